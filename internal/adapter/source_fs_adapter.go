// Package adapter contains the parsing and filesystem adapters the ultraclean
// domain layer depends on.
package adapter

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	m "ultraclean.dev/pkg/ultraclean/internal/model"
)

// BackupSuffix is appended to a file path to form its backup sibling.
const BackupSuffix = ".bak"

// SourceFSAdapter abstracts filesystem-specific operations that the domain layer
// relies on when scanning and patching user projects. It hides direct `os`
// access so the workflow logic can be tested without touching the disk.
//
//nolint:interfacebloat // A richer interface keeps workflow logic decoupled from os/fs.
type SourceFSAdapter interface {
	// Walk visits every regular file under root in lexical order. Directories
	// for which skipDir returns true are not descended into.
	Walk(root m.Path, skipDir func(path m.Path) bool, fn FilepathWalkFunc) error

	// ReadFile loads a file from disk and returns its contents.
	ReadFile(path m.Path) ([]byte, error)

	// FileInfo returns metadata for a path.
	FileInfo(path m.Path) (os.FileInfo, error)

	// EnsureDir creates a directory (and parents) when absent.
	EnsureDir(path m.Path) error

	// WriteFile atomically replaces path with content: the data goes to a
	// temporary sibling which is then renamed over the target.
	WriteFile(path m.Path, content []byte) error

	// Backup copies the current content of path to path+BackupSuffix.
	Backup(path m.Path, content []byte) (m.Path, error)

	// RelPath returns the relative path from base to target with forward slashes.
	RelPath(base, target m.Path) (m.Path, error)

	// JoinPath joins path elements into a single path.
	JoinPath(elem ...string) m.Path
}

// FilepathWalkFunc is called for every regular file found by Walk.
type FilepathWalkFunc func(path m.Path, info os.FileInfo) error

// LocalSourceFSAdapter is the os-backed SourceFSAdapter.
type LocalSourceFSAdapter struct{}

// NewLocalSourceFSAdapter constructs a LocalSourceFSAdapter instance ready to
// be wired into the workflow.
func NewLocalSourceFSAdapter() *LocalSourceFSAdapter {
	return &LocalSourceFSAdapter{}
}

// Walk iterates over regular files under root. Unreadable entries are skipped
// so one bad directory cannot stop a batch run.
func (a *LocalSourceFSAdapter) Walk(root m.Path, skipDir func(path m.Path) bool, fn FilepathWalkFunc) error {
	rootStr := string(root)

	if _, err := os.Stat(rootStr); err != nil {
		return fmt.Errorf("root path error: %w", err)
	}

	var files []string

	err := filepath.WalkDir(rootStr, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		if d.IsDir() {
			if path != rootStr && skipDir != nil && skipDir(m.Path(path)) {
				return filepath.SkipDir
			}

			return nil
		}

		if d.Type().IsRegular() {
			files = append(files, path)
		}

		return nil
	})
	if err != nil {
		return err
	}

	sort.Strings(files)

	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}

		if err := fn(m.Path(path), info); err != nil {
			return err
		}
	}

	return nil
}

// ReadFile loads file contents from disk.
func (a *LocalSourceFSAdapter) ReadFile(path m.Path) ([]byte, error) {
	// #nosec G304 - path comes from walking the user-selected root
	return os.ReadFile(string(path))
}

// FileInfo returns os.FileInfo metadata for the given path.
func (a *LocalSourceFSAdapter) FileInfo(path m.Path) (os.FileInfo, error) {
	return os.Stat(string(path))
}

// EnsureDir creates the directory if it does not exist yet.
func (a *LocalSourceFSAdapter) EnsureDir(path m.Path) error {
	return os.MkdirAll(string(path), 0o750)
}

// WriteFile writes content through a temporary file and a rename so readers
// never observe a half-written source file.
func (a *LocalSourceFSAdapter) WriteFile(path m.Path, content []byte) error {
	target := string(path)

	perm := os.FileMode(0o644)
	if info, err := os.Stat(target); err == nil {
		perm = info.Mode().Perm()
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		return err
	}

	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()

		cleanup()

		return err
	}

	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}

	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return err
	}

	if err := os.Rename(tmpName, target); err != nil {
		cleanup()
		return err
	}

	return nil
}

// Backup writes content to the .bak sibling of path and returns its location.
func (a *LocalSourceFSAdapter) Backup(path m.Path, content []byte) (m.Path, error) {
	backup := m.Path(string(path) + BackupSuffix)
	if err := a.WriteFile(backup, content); err != nil {
		return "", fmt.Errorf("backup %s: %w", path, err)
	}

	return backup, nil
}

// RelPath returns the relative path from base to target.
func (a *LocalSourceFSAdapter) RelPath(base, target m.Path) (m.Path, error) {
	rel, err := filepath.Rel(string(base), string(target))
	if err != nil {
		return "", err
	}

	return m.Path(filepath.ToSlash(rel)), nil
}

// JoinPath joins path elements into a single path.
func (a *LocalSourceFSAdapter) JoinPath(elem ...string) m.Path {
	return m.Path(filepath.Join(elem...))
}
