package domain

import (
	"math"
	"strconv"
	"strings"

	"ultraclean.dev/pkg/ultraclean/internal/adapter"
	m "ultraclean.dev/pkg/ultraclean/internal/model"
)

// Report file names inside the output directory.
const (
	ReportLHSConflicts      = "python_lhs_conflicts.csv"
	ReportSameExprDiffLHS   = "python_rhs_same_expr_diff_lhs.csv"
	ReportSameShapeDiffVars = "python_lhs_same_shape_diff_vars.csv"
	ReportNameConflicts     = "python_function_name_conflicts.csv"
	ReportBodyDuplicates    = "python_function_body_duplicates.csv"
	ReportParseErrors       = "python_parse_errors.csv"
	ReportTopConflicts      = "top30_conflicting_lhs.csv"
	ReportManifest          = "app_structure_manifest.csv"
	ReportDirs              = "app_structure_dirs.csv"
	ReportTreeShort         = "app_tree_depth3.txt"
	ReportTreeFull          = "app_tree_full.txt"
	ReportCollisions        = "yaml_position_collisions.csv"
	ReportArchive           = "ultra_reports.zip"
)

// collisionSeparator marks the end of a collision group in the CSV.
const collisionSeparator = "---"

const listSeparator = " | "

var (
	assignmentHeader = []string{"file", "lineno", "lhs", "rhs_sig", "rhs_shape", "rhs_vars", "line"}
	changeHeader     = []string{"file", "lineno", "before", "after", "reason"}
)

// AutopatchReportName is the change report of one catalog.
func AutopatchReportName(catalog string) string {
	return "autopatch_" + catalog + "_report.csv"
}

// ScanTables converts a scan report into its tables keyed by file name.
func ScanTables(r ScanReport) map[string]adapter.Table {
	return map[string]adapter.Table{
		ReportLHSConflicts:      assignmentTable(r.LHSConflicts),
		ReportSameExprDiffLHS:   assignmentTable(r.SameExprDiffLHS),
		ReportSameShapeDiffVars: assignmentTable(r.SameShapeDiffVars),
		ReportNameConflicts:     nameConflictTable(r.NameConflicts),
		ReportBodyDuplicates:    bodyDuplicateTable(r.BodyDuplicates),
		ReportParseErrors:       parseErrorTable(r.ParseErrors),
		ReportTopConflicts:      topConflictTable(r.TopConflicts),
	}
}

// ScanReportNames lists the scan reports in the order they are written.
func ScanReportNames() []string {
	return []string{
		ReportLHSConflicts,
		ReportSameExprDiffLHS,
		ReportSameShapeDiffVars,
		ReportNameConflicts,
		ReportBodyDuplicates,
		ReportParseErrors,
		ReportTopConflicts,
	}
}

func assignmentTable(rows []m.Assignment) adapter.Table {
	t := adapter.Table{Header: assignmentHeader, Rows: make([][]string, 0, len(rows))}

	for _, a := range rows {
		t.Rows = append(t.Rows, []string{
			string(a.File),
			strconv.Itoa(a.Line),
			a.Target,
			a.Signature,
			a.Shape,
			strings.Join(a.Names, ","),
			a.Source,
		})
	}

	return t
}

func nameConflictTable(rows []NameConflict) adapter.Table {
	t := adapter.Table{Header: []string{"name", "distinct_impls", "files"}, Rows: make([][]string, 0, len(rows))}

	for _, c := range rows {
		t.Rows = append(t.Rows, []string{c.Name, strconv.Itoa(c.DistinctImpls), joinPaths(c.Files)})
	}

	return t
}

func bodyDuplicateTable(rows []BodyDuplicate) adapter.Table {
	t := adapter.Table{Header: []string{"hash", "count", "names", "files"}, Rows: make([][]string, 0, len(rows))}

	for _, d := range rows {
		t.Rows = append(t.Rows, []string{
			d.Hash,
			strconv.Itoa(d.Count),
			strings.Join(d.Names, listSeparator),
			joinPaths(d.Files),
		})
	}

	return t
}

func parseErrorTable(rows []m.ParseError) adapter.Table {
	t := adapter.Table{Header: []string{"file", "error"}, Rows: make([][]string, 0, len(rows))}

	for _, e := range rows {
		t.Rows = append(t.Rows, []string{string(e.File), e.Message})
	}

	return t
}

func topConflictTable(rows []TargetConflict) adapter.Table {
	t := adapter.Table{Header: []string{"lhs", "n_assign", "n_rhs"}, Rows: make([][]string, 0, len(rows))}

	for _, c := range rows {
		t.Rows = append(t.Rows, []string{c.Target, strconv.Itoa(c.Assignments), strconv.Itoa(c.Signatures)})
	}

	return t
}

// ChangeTable converts codemod changes into the autopatch report.
func ChangeTable(changes []m.Change) adapter.Table {
	t := adapter.Table{Header: changeHeader, Rows: make([][]string, 0, len(changes))}

	for _, c := range changes {
		t.Rows = append(t.Rows, []string{string(c.File), c.Line, c.Before, c.After, c.Reason})
	}

	return t
}

// ManifestTable converts the structure inventory into its manifest.
func ManifestTable(entries []m.InventoryEntry) adapter.Table {
	t := adapter.Table{
		Header: []string{"path", "ext", "size", "lines", "primary_role", "tags"},
		Rows:   make([][]string, 0, len(entries)),
	}

	for _, e := range entries {
		t.Rows = append(t.Rows, []string{
			string(e.Path),
			e.Ext,
			strconv.FormatInt(e.Size, 10),
			strconv.Itoa(e.Lines),
			e.PrimaryRole,
			strings.Join(e.Tags, ","),
		})
	}

	return t
}

// DirTable converts the directory summary.
func DirTable(dirs []m.DirSummary) adapter.Table {
	t := adapter.Table{Header: []string{"dir", "files", "roles"}, Rows: make([][]string, 0, len(dirs))}

	for _, d := range dirs {
		t.Rows = append(t.Rows, []string{string(d.Dir), strconv.Itoa(d.Files), strings.Join(d.Roles, ",")})
	}

	return t
}

// CollisionTable flattens collision groups, closing each group with a
// separator row.
func CollisionTable(groups []m.CollisionGroup) adapter.Table {
	t := adapter.Table{Header: []string{"file", "page", "x", "y", "key_hint"}}

	for _, g := range groups {
		for _, p := range g.Members {
			t.Rows = append(t.Rows, []string{
				string(p.File),
				strconv.Itoa(p.Page),
				formatCoordinate(p.X),
				formatCoordinate(p.Y),
				strings.Join(p.Hints, ";"),
			})
		}

		t.Rows = append(t.Rows, []string{collisionSeparator, "", "", "", ""})
	}

	return t
}

// formatCoordinate prints the shortest exact form, keeping a ".0" on whole
// numbers so every cell reads as a float.
func formatCoordinate(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if math.IsInf(v, 0) || math.IsNaN(v) || strings.ContainsAny(s, ".e") {
		return s
	}

	return s + ".0"
}

func joinPaths(paths []m.Path) string {
	parts := make([]string, 0, len(paths))
	for _, p := range paths {
		parts = append(parts, string(p))
	}

	return strings.Join(parts, listSeparator)
}
