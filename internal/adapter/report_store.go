package adapter

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	m "ultraclean.dev/pkg/ultraclean/internal/model"
)

// archiveTime pins every archive entry timestamp (1980-01-01 UTC) so two runs
// over the same reports produce identical archives.
var archiveTime = time.Unix(315532800, 0).UTC()

// Table is one CSV report: a header row followed by data rows.
type Table struct {
	Header []string
	Rows   [][]string
}

// ReportStore persists report artifacts into the output directory.
type ReportStore interface {
	// WriteTable writes a CSV file with a header row, replacing any previous file.
	WriteTable(path m.Path, table Table) error

	// WriteText writes a plain-text report, replacing any previous file.
	WriteText(path m.Path, text string) error

	// Archive bundles every regular file directly inside dir into dir/name,
	// skipping the archive itself. Entries are sorted by name.
	Archive(dir m.Path, name string) (m.Path, error)
}

// LocalReportStore writes reports through a SourceFSAdapter so every report
// lands on disk with the same atomic replace used for patched sources.
type LocalReportStore struct {
	fs SourceFSAdapter
}

// NewReportStore creates a LocalReportStore backed by the local filesystem.
func NewReportStore() *LocalReportStore {
	return &LocalReportStore{fs: NewLocalSourceFSAdapter()}
}

// NewReportStoreWithFS creates a LocalReportStore writing through fs.
func NewReportStoreWithFS(fs SourceFSAdapter) *LocalReportStore {
	return &LocalReportStore{fs: fs}
}

// WriteTable encodes the table as RFC 4180 CSV.
func (s *LocalReportStore) WriteTable(path m.Path, table Table) error {
	var buf bytes.Buffer

	w := csv.NewWriter(&buf)
	if err := w.Write(table.Header); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	for _, row := range table.Rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	if err := s.fs.WriteFile(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}

// WriteText writes text verbatim.
func (s *LocalReportStore) WriteText(path m.Path, text string) error {
	if err := s.fs.WriteFile(path, []byte(text)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}

// Archive writes a deflated zip archive of the report directory.
func (s *LocalReportStore) Archive(dir m.Path, name string) (m.Path, error) {
	entries, err := os.ReadDir(string(dir))
	if err != nil {
		return "", fmt.Errorf("list %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() && entry.Name() != name {
			names = append(names, entry.Name())
		}
	}

	sort.Strings(names)

	var buf bytes.Buffer

	zw := zip.NewWriter(&buf)

	for _, entryName := range names {
		if err := s.addArchiveEntry(zw, dir, entryName); err != nil {
			_ = zw.Close()
			return "", err
		}
	}

	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("finalize archive: %w", err)
	}

	target := m.Path(filepath.Join(string(dir), name))
	if err := s.fs.WriteFile(target, buf.Bytes()); err != nil {
		return "", fmt.Errorf("write %s: %w", target, err)
	}

	return target, nil
}

func (s *LocalReportStore) addArchiveEntry(zw *zip.Writer, dir m.Path, name string) error {
	f, err := os.Open(filepath.Join(string(dir), name))
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	h := &zip.FileHeader{Name: filepath.ToSlash(name), Method: zip.Deflate}
	h.SetMode(0o644)
	h.Modified = archiveTime

	w, err := zw.CreateHeader(h)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}

	return nil
}
