package domain

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"ultraclean.dev/pkg/ultraclean/internal/adapter"
	m "ultraclean.dev/pkg/ultraclean/internal/model"
	"ultraclean.dev/pkg/ultraclean/internal/syntax"
)

const (
	patchesDirName       = "patches"
	insertFragmentSuffix = ".insert.py"
)

// LoadOptions narrows which files a load returns.
type LoadOptions struct {
	// Exclude holds regular expressions matched against both the root-relative
	// and the full path of a file.
	Exclude []string
	// SkipDirs are directories never descended into, such as the report
	// output directory.
	SkipDirs []m.Path
}

// Parsed is one successfully parsed Python file.
type Parsed struct {
	File m.File
	Unit *syntax.Unit
}

// Loader enumerates and parses the files of a source tree.
type Loader interface {
	// Files lists files of the given kinds below root in lexical order. With no
	// kinds every file is returned; otherwise Python patch fragments are left
	// out.
	Files(root m.Path, opts LoadOptions, kinds ...m.FileKind) ([]m.File, error)

	// ParsePython parses files with up to threads workers. Results keep the
	// order of files; unparseable files become ParseError rows.
	ParsePython(ctx context.Context, files []m.File, threads int) ([]Parsed, []m.ParseError, error)
}

type loader struct {
	adapter.SourceFSAdapter
	adapter.PythonFileAdapter
}

// NewLoader creates a Loader over the given adapters.
func NewLoader(fsAdapter adapter.SourceFSAdapter, pythonAdapter adapter.PythonFileAdapter) Loader {
	return &loader{
		SourceFSAdapter:   fsAdapter,
		PythonFileAdapter: pythonAdapter,
	}
}

func (l *loader) Files(root m.Path, opts LoadOptions, kinds ...m.FileKind) ([]m.File, error) {
	excludes, err := compileExcludes(opts.Exclude)
	if err != nil {
		return nil, err
	}

	skip := make(map[string]bool, len(opts.SkipDirs))
	for _, dir := range opts.SkipDirs {
		if abs, err := filepath.Abs(string(dir)); err == nil {
			skip[abs] = true
		}
	}

	var files []m.File

	err = l.Walk(root, func(path m.Path) bool {
		abs, err := filepath.Abs(string(path))
		return err == nil && skip[abs]
	}, func(path m.Path, info os.FileInfo) error {
		rel, err := l.RelPath(root, path)
		if err != nil {
			rel = path
		}

		kind := fileKind(string(path))
		if len(kinds) > 0 && !containsKind(kinds, kind) {
			return nil
		}

		if len(kinds) > 0 && kind == m.KindPython && isPatchFragment(string(rel)) {
			return nil
		}

		if matchesAny(excludes, string(rel), string(path)) {
			slog.Debug("Excluded file", "path", path)
			return nil
		}

		files = append(files, m.File{
			FullPath:  path,
			ShortPath: rel,
			Kind:      kind,
			Size:      info.Size(),
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

func (l *loader) ParsePython(ctx context.Context, files []m.File, threads int) ([]Parsed, []m.ParseError, error) {
	type outcome struct {
		unit *syntax.Unit
		fail *m.ParseError
	}

	outcomes := make([]outcome, len(files))

	group, groupCtx := errgroup.WithContext(ctx)
	if threads > 0 {
		group.SetLimit(threads)
	}

	for i, file := range files {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			unit, err := l.parseFile(groupCtx, file)
			if err != nil {
				slog.Warn("Failed to parse file", "path", file.FullPath, "error", err)
				outcomes[i].fail = &m.ParseError{File: file.FullPath, Message: err.Error()}

				return nil
			}

			outcomes[i].unit = unit

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, nil, err
	}

	var (
		parsed []Parsed
		errs   []m.ParseError
	)

	for i, o := range outcomes {
		if o.fail != nil {
			errs = append(errs, *o.fail)
			continue
		}

		parsed = append(parsed, Parsed{File: files[i], Unit: o.unit})
	}

	return parsed, errs, nil
}

func (l *loader) parseFile(ctx context.Context, file m.File) (*syntax.Unit, error) {
	content, err := l.ReadFile(file.FullPath)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	return l.Parse(ctx, file.FullPath, content)
}

func fileKind(path string) m.FileKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py":
		return m.KindPython
	case ".yml", ".yaml":
		return m.KindYAML
	}

	return ""
}

func containsKind(kinds []m.FileKind, kind m.FileKind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}

	return false
}

// isPatchFragment reports files below a patches/ directory and *.insert.py
// snippets, which are fragments rather than importable modules.
func isPatchFragment(rel string) bool {
	if strings.HasSuffix(strings.ToLower(rel), insertFragmentSuffix) {
		return true
	}

	parts := strings.Split(filepath.ToSlash(rel), "/")
	for _, part := range parts[:len(parts)-1] {
		if part == patchesDirName {
			return true
		}
	}

	return false
}

func compileExcludes(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))

	for _, pattern := range patterns {
		if strings.TrimSpace(pattern) == "" {
			continue
		}

		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}

		out = append(out, re)
	}

	return out, nil
}

func matchesAny(patterns []*regexp.Regexp, values ...string) bool {
	for _, re := range patterns {
		for _, v := range values {
			if re.MatchString(v) {
				return true
			}
		}
	}

	return false
}
