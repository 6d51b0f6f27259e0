package domain

import (
	"bytes"
	"path"
	"regexp"
	"slices"
	"strings"

	m "ultraclean.dev/pkg/ultraclean/internal/model"
)

// TreeDepth is the depth of the shallow tree rendering.
const TreeDepth = 3

const (
	roleMisc   = "misc"
	dirMarker  = "📁"
	fileMarker = "📄"
)

// textExtensions are the file types whose content is read for role tagging
// and line counts.
var textExtensions = map[string]bool{
	".py": true, ".ts": true, ".tsx": true, ".js": true, ".json": true,
	".yml": true, ".yaml": true, ".md": true, ".txt": true, ".ini": true, ".cfg": true,
}

// rolePriority decides the primary role among the tags of a file.
var rolePriority = []string{"frontend", "ui", "pdf", "calc", "api", "db", "data", "utils", "python", "yaml", "json"}

type pathRole struct {
	role     string
	keywords []string
}

var pathRoles = []pathRole{
	{"pdf", []string{"pdf", "doc", "report"}},
	{"ui", []string{"ui", "view", "screen", "pages", "components"}},
	{"calc", []string{"calc", "analysis", "compute"}},
	{"api", []string{"api", "server", "backend", "fastapi"}},
	{"data", []string{"data", "csv", "excel", "db", "sql"}},
	{"utils", []string{"utils", "helpers", "common", "lib"}},
}

type textRole struct {
	pattern *regexp.Regexp
	tags    []string
}

var textRoles = []textRole{
	{regexp.MustCompile(`\bstreamlit\b`), []string{"streamlit", "ui"}},
	{regexp.MustCompile(`(?i)\b(reportlab|fitz|pymupdf|pypdf|borb|weasyprint|pikepdf)\b`), []string{"pdf"}},
	{regexp.MustCompile(`\b(pandas|numpy|scipy)\b`), []string{"calc"}},
	{regexp.MustCompile(`(?i)\bfastapi\b`), []string{"api"}},
	{regexp.MustCompile(`(?i)\b(sqlite3|better-sqlite3|sqlalchemy|psycopg2)\b`), []string{"db"}},
	{regexp.MustCompile(`(?i)\breact\b|\bprimereact\b|\bchakra-ui\b|\btailwind\b`), []string{"react", "ui"}},
	{regexp.MustCompile(`(?i)\belectron\b`), []string{"electron"}},
	{regexp.MustCompile(`(?i)\bheatpump|waermepumpe|wärmepumpe\b`), []string{"heatpump"}},
	{regexp.MustCompile(`(?i)\bphotovoltaic|photovoltaik|pv\b`), []string{"pv"}},
	{regexp.MustCompile(`(?i)\bcrm\b`), []string{"crm"}},
	{regexp.MustCompile(`(?i)\bqrcode|qr\b`), []string{"qr"}},
	{regexp.MustCompile(`(?i)\bicc\b|\bcolorspace\b|\bcolormanagement\b`), []string{"color"}},
	{regexp.MustCompile(`(?i)\bpyyaml|yaml\.safe_load\b`), []string{"yaml-io"}},
	{regexp.MustCompile(`(?i)\bghostscript|gswin|pdfcompress\b`), []string{"pdf-post"}},
	{regexp.MustCompile(`(?i)\bdocx|python-docx\b`), []string{"docx"}},
	{regexp.MustCompile(`(?i)\bmatplotlib|plotly|altair\b`), []string{"charts"}},
}

// StructureReport is the inventory of a source tree.
type StructureReport struct {
	Entries    []m.InventoryEntry
	Dirs       []m.DirSummary
	TreeShort  string
	TreeFull   string
	TotalFiles int
}

// ReadsText reports whether the structure inventory reads the content of a
// file with this extension.
func ReadsText(ext string) bool {
	return textExtensions[ext]
}

// Extension returns the lower-cased extension of p. Leading dots of the base
// name do not start an extension, so ".env" has none.
func Extension(p string) string {
	base := strings.TrimLeft(path.Base(p), ".")
	return strings.ToLower(path.Ext(base))
}

// NewInventoryEntry describes one file. text is nil for files whose content
// was not read.
func NewInventoryEntry(file m.File, text []byte) m.InventoryEntry {
	ext := Extension(string(file.ShortPath))

	lines := 0
	if len(text) > 0 {
		lines = bytes.Count(text, []byte("\n")) + 1
	}

	primary, tags := TagRoles(string(file.ShortPath), ext, text)

	return m.InventoryEntry{
		Path:        file.ShortPath,
		Ext:         ext,
		Size:        file.Size,
		Lines:       lines,
		PrimaryRole: primary,
		Tags:        tags,
	}
}

// TagRoles derives role tags from the path, the extension and the content of
// a file. Tags keep their first-seen order without repeats.
func TagRoles(relPath, ext string, text []byte) (string, []string) {
	var tags []string

	add := func(names ...string) {
		for _, n := range names {
			if !slices.Contains(tags, n) {
				tags = append(tags, n)
			}
		}
	}

	lower := strings.ToLower(relPath)

	for _, pr := range pathRoles {
		for _, kw := range pr.keywords {
			if strings.Contains(lower, kw) {
				add(pr.role)
				break
			}
		}
	}

	switch ext {
	case ".tsx", ".ts", ".js":
		add("frontend")
	case ".py":
		add("python")
	case ".yml", ".yaml":
		add("yaml")
	case ".json":
		add("json")
	}

	if len(text) > 0 {
		for _, tr := range textRoles {
			if tr.pattern.Match(text) {
				add(tr.tags...)
			}
		}
	}

	for _, role := range rolePriority {
		if slices.Contains(tags, role) {
			return role, tags
		}
	}

	return roleMisc, tags
}

// BuildStructure sorts the entries by path and derives the directory summary
// and both tree renderings.
func BuildStructure(entries []m.InventoryEntry) StructureReport {
	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, func(a, b m.InventoryEntry) int { return strings.Compare(string(a.Path), string(b.Path)) })

	paths := make([]m.Path, 0, len(sorted))
	for _, e := range sorted {
		paths = append(paths, e.Path)
	}

	return StructureReport{
		Entries:    sorted,
		Dirs:       summarizeDirs(sorted),
		TreeShort:  TreeText(paths, TreeDepth),
		TreeFull:   TreeText(paths, 0),
		TotalFiles: len(sorted),
	}
}

func summarizeDirs(entries []m.InventoryEntry) []m.DirSummary {
	byDir := map[m.Path]*m.DirSummary{}

	for _, e := range entries {
		dir := m.Path(path.Dir(string(e.Path)))

		summary, ok := byDir[dir]
		if !ok {
			summary = &m.DirSummary{Dir: dir}
			byDir[dir] = summary
		}

		summary.Files++
		if !slices.Contains(summary.Roles, e.PrimaryRole) {
			summary.Roles = append(summary.Roles, e.PrimaryRole)
		}
	}

	out := make([]m.DirSummary, 0, len(byDir))
	for _, s := range byDir {
		slices.Sort(s.Roles)
		out = append(out, *s)
	}

	slices.SortFunc(out, func(a, b m.DirSummary) int { return strings.Compare(string(a.Dir), string(b.Dir)) })

	return out
}

// TreeText renders files and the directories that contain them as an
// indented tree, two spaces per level. maxDepth <= 0 renders every level.
// Lines are ordered component by component, so a directory is directly
// followed by its contents.
func TreeText(files []m.Path, maxDepth int) string {
	dirs := map[string]bool{}
	nodes := map[string]bool{}

	for _, f := range files {
		p := strings.Trim(string(f), "/")
		if p == "" || p == "." {
			continue
		}

		nodes[p] = true

		for dir := path.Dir(p); dir != "." && dir != "/"; dir = path.Dir(dir) {
			dirs[dir] = true
			nodes[dir] = true
		}
	}

	ordered := make([][]string, 0, len(nodes))
	for p := range nodes {
		ordered = append(ordered, strings.Split(p, "/"))
	}

	slices.SortFunc(ordered, func(a, b []string) int { return slices.Compare(a, b) })

	lines := make([]string, 0, len(ordered))

	for _, parts := range ordered {
		depth := len(parts)
		if maxDepth > 0 && depth > maxDepth {
			continue
		}

		marker := fileMarker
		if dirs[strings.Join(parts, "/")] {
			marker = dirMarker
		}

		lines = append(lines, strings.Repeat("  ", depth-1)+marker+" "+parts[depth-1])
	}

	return strings.Join(lines, "\n")
}
