package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pmezard/go-difflib/difflib"

	"ultraclean.dev/pkg/ultraclean/internal/adapter"
	"ultraclean.dev/pkg/ultraclean/internal/controller"
	"ultraclean.dev/pkg/ultraclean/internal/domain/rules"
	m "ultraclean.dev/pkg/ultraclean/internal/model"
)

const diffContextLines = 3

// RunOptions are shared by every pipeline.
type RunOptions struct {
	Root    m.Path
	Out     m.Path
	Exclude []string
	Threads int
}

// ScanArgs configures a duplication scan.
type ScanArgs struct {
	RunOptions
}

// AutopatchArgs configures one codemod run.
type AutopatchArgs struct {
	RunOptions
	Catalog  rules.Catalog
	Write    bool
	NoBackup bool
	Debug    bool
}

// StructureArgs configures the structure inventory.
type StructureArgs struct {
	RunOptions
}

// YAMLCheckArgs configures the collision check.
type YAMLCheckArgs struct {
	RunOptions
	Tolerance float64
}

// AllArgs configures the full pipeline.
type AllArgs struct {
	RunOptions
	NoBackup bool
}

// Workflow runs the pipelines behind the CLI subcommands. Every method writes
// its reports into the output directory and returns the console summary.
// Per-file failures are counted in the summary; the returned error joins the
// failures of report writers and other fatal conditions.
type Workflow interface {
	Scan(ctx context.Context, args ScanArgs) (m.Summary, error)
	Autopatch(ctx context.Context, args AutopatchArgs) (m.Summary, error)
	Structure(ctx context.Context, args StructureArgs) (m.Summary, error)
	YAMLCheck(ctx context.Context, args YAMLCheckArgs) (m.Summary, error)
	All(ctx context.Context, args AllArgs) ([]m.Summary, error)
}

type workflow struct {
	adapter.SourceFSAdapter
	adapter.ReportStore
	adapter.YAMLDocAdapter
	controller.UI
	Loader
	Patcher

	mu       sync.Mutex
	backedUp map[m.Path]bool
}

// NewWorkflow wires the pipelines over the given components.
func NewWorkflow(
	fs adapter.SourceFSAdapter,
	store adapter.ReportStore,
	yamlAdapter adapter.YAMLDocAdapter,
	ui controller.UI,
	loader Loader,
	patcher Patcher,
) Workflow {
	return &workflow{
		SourceFSAdapter: fs,
		ReportStore:     store,
		YAMLDocAdapter:  yamlAdapter,
		UI:              ui,
		Loader:          loader,
		Patcher:         patcher,
		backedUp:        map[m.Path]bool{},
	}
}

func (w *workflow) Scan(ctx context.Context, args ScanArgs) (m.Summary, error) {
	summary := m.Summary{Stage: m.StageScan}

	files, err := w.prepare(args.RunOptions, m.KindPython)
	if err != nil {
		return summary, err
	}

	parsed, parseErrs, err := w.ParsePython(ctx, files, args.Threads)
	if err != nil {
		return summary, err
	}

	w.StartProgress(ctx, progressLabel(ctx, "scan"), len(parsed))
	defer w.StopProgress(ctx)

	result := m.ScanResult{Files: len(files), Errors: parseErrs}
	for _, p := range parsed {
		result.Assignments = append(result.Assignments, CollectAssignments(p.Unit)...)
		result.Functions = append(result.Functions, CollectFunctions(p.Unit)...)

		w.Advance(ctx, string(p.File.ShortPath))
	}

	w.StopProgress(ctx)

	report := BuildScanReport(result)

	slog.Info("Scan finished",
		"files", len(files),
		"assignments", len(result.Assignments),
		"functions", len(result.Functions),
		"parse_errors", len(parseErrs))

	tables := ScanTables(report)

	var errs []error

	for _, name := range ScanReportNames() {
		target := w.JoinPath(string(args.Out), name)
		if err := w.WriteTable(target, tables[name]); err != nil {
			errs = append(errs, err)
			continue
		}

		summary.Outputs = append(summary.Outputs, target)
	}

	summary.Files = len(files)
	summary.Groups = report.ConflictGroups()
	summary.Errors = len(parseErrs)

	w.DisplaySummary(ctx, summary)

	return summary, errors.Join(errs...)
}

func (w *workflow) Autopatch(ctx context.Context, args AutopatchArgs) (m.Summary, error) {
	summary := m.Summary{Stage: m.StageAutopatch, Name: args.Catalog.Name, Written: args.Write}

	files, err := w.prepare(args.RunOptions, m.KindPython)
	if err != nil {
		return summary, err
	}

	parsed, parseErrs, err := w.ParsePython(ctx, files, args.Threads)
	if err != nil {
		return summary, err
	}

	units := make(map[m.Path]Parsed, len(parsed))
	for _, p := range parsed {
		units[p.File.FullPath] = p
	}

	failures := make(map[m.Path]m.ParseError, len(parseErrs))
	for _, e := range parseErrs {
		failures[e.File] = e
	}

	var changes []m.Change

	w.StartProgress(ctx, progressLabel(ctx, "autopatch "+args.Catalog.Name), len(files))
	defer w.StopProgress(ctx)

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		w.Advance(ctx, string(file.ShortPath))

		if fail, ok := failures[file.FullPath]; ok {
			changes = append(changes, m.Change{
				File:   file.FullPath,
				Line:   unknownLine,
				Reason: m.ReasonParseErrorPrefix + fail.Message,
			})
			summary.Errors++

			continue
		}

		p, ok := units[file.FullPath]
		if !ok {
			continue
		}

		fileChanges := w.patchFile(ctx, p, args, &summary)
		changes = append(changes, fileChanges...)
	}

	w.StopProgress(ctx)

	summary.Files = len(files)

	target := w.JoinPath(string(args.Out), AutopatchReportName(args.Catalog.Name))

	var errs []error
	if err := w.WriteTable(target, ChangeTable(changes)); err != nil {
		errs = append(errs, err)
	} else {
		summary.Outputs = append(summary.Outputs, target)
	}

	slog.Info("Autopatch finished",
		"catalog", args.Catalog.Name,
		"files", summary.Files,
		"changed", summary.Changed,
		"write", args.Write,
		"errors", summary.Errors)

	w.DisplaySummary(ctx, summary)

	return summary, errors.Join(errs...)
}

// patchFile applies the catalog to one unit, writes the result when asked to
// and returns the change rows of the file.
func (w *workflow) patchFile(ctx context.Context, p Parsed, args AutopatchArgs, summary *m.Summary) []m.Change {
	res := w.Apply(ctx, p.Unit, args.Catalog)
	changes := res.Changes

	for _, c := range changes {
		switch {
		case c.IsFailure():
			summary.Errors++
		case c.Reason == m.ReasonSuspicious:
			summary.Skipped++
		}
	}

	if args.Debug {
		for _, c := range changes {
			w.DisplayChange(ctx, c)
		}
	}

	if !res.Changed() {
		return changes
	}

	summary.Changed++

	patched := res.Unit.Text()

	if args.Debug {
		w.DisplayDiff(ctx, p.File.FullPath, unifiedDiff(string(p.File.ShortPath), string(p.Unit.Source), patched))
	}

	if !args.Write {
		return changes
	}

	if err := w.writePatched(p, []byte(patched), args.NoBackup); err != nil {
		slog.Error("Failed to write patched file", "path", p.File.FullPath, "error", err)

		summary.Errors++

		changes = append(changes, m.Change{
			File:   p.File.FullPath,
			Line:   unknownLine,
			Reason: m.ReasonErrorPrefix + "write: " + err.Error(),
		})
	}

	return changes
}

// writePatched backs the original bytes up once per run before replacing the
// file, so a file patched twice keeps its pre-run content in the backup.
func (w *workflow) writePatched(p Parsed, content []byte, noBackup bool) error {
	path := p.File.FullPath

	if !noBackup {
		w.mu.Lock()
		done := w.backedUp[path]
		w.mu.Unlock()

		if !done {
			backup, err := w.Backup(path, p.Unit.Source)
			if err != nil {
				return err
			}

			w.mu.Lock()
			w.backedUp[path] = true
			w.mu.Unlock()

			slog.Debug("Backed up file", "path", path, "backup", backup)
		}
	}

	if err := w.WriteFile(path, content); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}

func (w *workflow) Structure(ctx context.Context, args StructureArgs) (m.Summary, error) {
	summary := m.Summary{Stage: m.StageStructure}

	files, err := w.prepare(args.RunOptions)
	if err != nil {
		return summary, err
	}

	entries := make([]m.InventoryEntry, 0, len(files))

	w.StartProgress(ctx, progressLabel(ctx, "structure"), len(files))
	defer w.StopProgress(ctx)

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		w.Advance(ctx, string(file.ShortPath))

		var text []byte

		if ReadsText(Extension(string(file.ShortPath))) {
			content, err := w.ReadFile(file.FullPath)
			if err != nil {
				slog.Warn("Failed to read file", "path", file.FullPath, "error", err)

				summary.Errors++
			} else {
				text = content
			}
		}

		entries = append(entries, NewInventoryEntry(file, text))
	}

	w.StopProgress(ctx)

	report := BuildStructure(entries)

	var errs []error

	write := func(name string, fn func(m.Path) error) {
		target := w.JoinPath(string(args.Out), name)
		if err := fn(target); err != nil {
			errs = append(errs, err)
			return
		}

		summary.Outputs = append(summary.Outputs, target)
	}

	write(ReportManifest, func(p m.Path) error { return w.WriteTable(p, ManifestTable(report.Entries)) })
	write(ReportDirs, func(p m.Path) error { return w.WriteTable(p, DirTable(report.Dirs)) })
	write(ReportTreeShort, func(p m.Path) error { return w.WriteText(p, report.TreeShort) })
	write(ReportTreeFull, func(p m.Path) error { return w.WriteText(p, report.TreeFull) })

	summary.Files = report.TotalFiles

	slog.Info("Structure inventory finished", "files", report.TotalFiles, "dirs", len(report.Dirs))

	w.DisplaySummary(ctx, summary)

	return summary, errors.Join(errs...)
}

func (w *workflow) YAMLCheck(ctx context.Context, args YAMLCheckArgs) (m.Summary, error) {
	summary := m.Summary{Stage: m.StageYAML}

	files, err := w.prepare(args.RunOptions, m.KindYAML)
	if err != nil {
		return summary, err
	}

	var positions []m.Position

	w.StartProgress(ctx, progressLabel(ctx, "yaml-check"), len(files))
	defer w.StopProgress(ctx)

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		w.Advance(ctx, string(file.ShortPath))

		src, err := w.ReadFile(file.FullPath)
		if err != nil {
			slog.Warn("Failed to read file", "path", file.FullPath, "error", err)

			summary.Errors++

			continue
		}

		docs, err := w.Decode(file.FullPath, src)
		if err != nil {
			slog.Debug("Falling back to line decoding", "path", file.FullPath, "error", err)

			summary.Skipped++
			docs = nil

			if doc := w.DecodeLines(src); doc != nil {
				docs = append(docs, doc)
			}
		}

		positions = append(positions, ExtractPositions(file.FullPath, docs)...)
	}

	w.StopProgress(ctx)

	tolerance := args.Tolerance
	if tolerance < 0 {
		tolerance = -tolerance
	}

	groups := FindCollisions(positions, tolerance)

	summary.Files = len(files)
	summary.Groups = len(groups)

	var errs []error

	target := w.JoinPath(string(args.Out), ReportCollisions)
	if err := w.WriteTable(target, CollisionTable(groups)); err != nil {
		errs = append(errs, err)
	} else {
		summary.Outputs = append(summary.Outputs, target)
	}

	slog.Info("Collision check finished", "files", len(files), "positions", len(positions), "groups", len(groups))

	w.DisplaySummary(ctx, summary)

	return summary, errors.Join(errs...)
}

func (w *workflow) All(ctx context.Context, args AllArgs) ([]m.Summary, error) {
	var (
		summaries []m.Summary
		errs      []error
	)

	collect := func(s m.Summary, err error) bool {
		summaries = append(summaries, s)
		if err != nil {
			errs = append(errs, err)
		}

		return ctx.Err() == nil
	}

	steps := []func(context.Context) (m.Summary, error){
		func(ctx context.Context) (m.Summary, error) {
			return w.Structure(ctx, StructureArgs{RunOptions: args.RunOptions})
		},
		func(ctx context.Context) (m.Summary, error) { return w.Scan(ctx, ScanArgs{RunOptions: args.RunOptions}) },
		func(ctx context.Context) (m.Summary, error) {
			return w.YAMLCheck(ctx, YAMLCheckArgs{RunOptions: args.RunOptions, Tolerance: DefaultTolerance})
		},
		func(ctx context.Context) (m.Summary, error) {
			return w.Autopatch(ctx, AutopatchArgs{RunOptions: args.RunOptions, Catalog: rules.AnnualSavings(), Write: true, NoBackup: args.NoBackup})
		},
		func(ctx context.Context) (m.Summary, error) {
			return w.Autopatch(ctx, AutopatchArgs{RunOptions: args.RunOptions, Catalog: rules.ProjectData(), Write: true, NoBackup: args.NoBackup})
		},
	}

	for i, step := range steps {
		if !collect(step(withStage(ctx, i+1, len(steps)))) {
			return summaries, errors.Join(append(errs, ctx.Err())...)
		}
	}

	archive := m.Summary{Stage: m.StageArchive}

	for _, s := range summaries {
		archive.Files += len(s.Outputs)
	}

	target, err := w.Archive(args.Out, ReportArchive)
	if err != nil {
		errs = append(errs, err)
		archive.Errors++
	} else {
		archive.Outputs = append(archive.Outputs, target)
	}

	w.DisplaySummary(ctx, archive)

	summaries = append(summaries, archive)

	w.DisplaySummaries(ctx, summaries)

	return summaries, errors.Join(errs...)
}

// prepare creates the output directory and lists the files of a pipeline,
// never descending into the output directory itself.
func (w *workflow) prepare(opts RunOptions, kinds ...m.FileKind) ([]m.File, error) {
	if _, err := w.FileInfo(opts.Root); err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}

	if err := w.EnsureDir(opts.Out); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", opts.Out, err)
	}

	files, err := w.Files(opts.Root, LoadOptions{Exclude: opts.Exclude, SkipDirs: []m.Path{opts.Out}}, kinds...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", opts.Root, err)
	}

	return files, nil
}

type stageKey struct{}

type stagePosition struct {
	index, total int
}

// withStage records that ctx runs stage index of total, shown in progress
// labels of the full pipeline.
func withStage(ctx context.Context, index, total int) context.Context {
	return context.WithValue(ctx, stageKey{}, stagePosition{index: index, total: total})
}

func progressLabel(ctx context.Context, label string) string {
	if pos, ok := ctx.Value(stageKey{}).(stagePosition); ok {
		return fmt.Sprintf("[%d/%d] %s", pos.index, pos.total, label)
	}

	return label
}

func unifiedDiff(name, before, after string) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: name,
		ToFile:   name + " (patched)",
		Context:  diffContextLines,
	})
	if err != nil {
		return ""
	}

	return diff
}
