package domain

import (
	"fmt"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	m "ultraclean.dev/pkg/ultraclean/internal/model"
)

func assign(file m.Path, line int, target, sig, shape string, names ...string) m.Assignment {
	return m.Assignment{File: file, Line: line, Target: target, Signature: sig, Shape: shape, Names: names}
}

func targets(rows []m.Assignment) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, fmt.Sprintf("%s:%d:%s", r.File, r.Line, r.Target))
	}

	return out
}

func TestBuildScanReport_LHSConflicts(t *testing.T) {
	same := BuildScanReport(m.ScanResult{Assignments: []m.Assignment{
		assign("file1.py", 1, "total", "Add{Name(a),Name(b)}", "Add{Name,Name}", "a", "b"),
		assign("file2.py", 1, "total", "Add{Name(a),Name(b)}", "Add{Name,Name}", "a", "b"),
	}})
	assert.Empty(t, same.LHSConflicts)

	report := BuildScanReport(m.ScanResult{Assignments: []m.Assignment{
		assign("file2.py", 1, "total", "Mult{Name(a),Name(b)}", "Mult{Name,Name}", "a", "b"),
		assign("file1.py", 1, "total", "Add{Name(a),Name(b)}", "Add{Name,Name}", "a", "b"),
		assign("file3.py", 9, "other", "Name(x)", "Name", "x"),
	}})

	assert.Equal(t, []string{"file1.py:1:total", "file2.py:1:total"}, targets(report.LHSConflicts))
	assert.Equal(t, []TargetConflict{{Target: "total", Assignments: 2, Signatures: 2}}, report.TopConflicts)
}

func TestBuildScanReport_SameExprDiffLHS(t *testing.T) {
	report := BuildScanReport(m.ScanResult{Assignments: []m.Assignment{
		assign("b.py", 2, "net", "Sub(Name(g),Name(c))", "Sub(Name,Name)", "c", "g"),
		assign("a.py", 5, "profit", "Sub(Name(g),Name(c))", "Sub(Name,Name)", "c", "g"),
		assign("a.py", 6, "profit", "Sub(Name(g),Name(c))", "Sub(Name,Name)", "c", "g"),
		assign("c.py", 1, "solo", "Name(q)", "Name", "q"),
	}})

	assert.Equal(t, []string{"b.py:2:net", "a.py:5:profit", "a.py:6:profit"}, targets(report.SameExprDiffLHS))
	assert.Equal(t, 1, report.ConflictGroups())
}

func TestBuildScanReport_SameShapeDiffVars(t *testing.T) {
	report := BuildScanReport(m.ScanResult{Assignments: []m.Assignment{
		assign("a.py", 1, "total", "Add{Name(a),Name(b)}", "Add{Name,Name}", "a", "b"),
		assign("b.py", 1, "total", "Add{Name(c),Name(d)}", "Add{Name,Name}", "c", "d"),
		assign("c.py", 1, "sum", "Add{Name(a),Name(b)}", "Add{Name,Name}", "a", "b"),
		assign("d.py", 1, "sum", "Add{Name(a),Name(b)}", "Add{Name,Name}", "a", "b"),
	}})

	assert.Equal(t, []string{"a.py:1:total", "b.py:1:total"}, targets(report.SameShapeDiffVars))
}

func TestBuildScanReport_Functions(t *testing.T) {
	report := BuildScanReport(m.ScanResult{Functions: []m.Function{
		{File: "b.py", Name: "calc", Line: 1, Hash: "h1"},
		{File: "a.py", Name: "calc", Line: 1, Hash: "h2"},
		{File: "a.py", Name: "calc", Line: 9, Hash: "h2"},
		{File: "c.py", Name: "helper", Line: 3, Hash: "h3"},
	}})

	assert.Equal(t, []NameConflict{{Name: "calc", DistinctImpls: 2, Files: []m.Path{"a.py", "b.py"}}}, report.NameConflicts)
	assert.Equal(t, []BodyDuplicate{{Hash: "h2", Count: 2, Names: []string{"calc", "calc"}, Files: []m.Path{"a.py", "a.py"}}}, report.BodyDuplicates)
}

func TestBuildScanReport_OrderIndependent(t *testing.T) {
	result := m.ScanResult{
		Assignments: []m.Assignment{
			assign("a.py", 1, "total", "S1", "Sh", "a"),
			assign("b.py", 2, "total", "S2", "Sh", "b"),
			assign("c.py", 3, "net", "S1", "Sh", "a"),
			assign("d.py", 4, "net", "S3", "Sh2", "c"),
		},
		Functions: []m.Function{
			{File: "a.py", Name: "f", Line: 1, Hash: "x"},
			{File: "b.py", Name: "f", Line: 1, Hash: "y"},
			{File: "c.py", Name: "g", Line: 1, Hash: "x"},
		},
		Errors: []m.ParseError{{File: "z.py", Message: "bad"}, {File: "y.py", Message: "bad"}},
	}

	reversed := m.ScanResult{
		Assignments: slices.Clone(result.Assignments),
		Functions:   slices.Clone(result.Functions),
		Errors:      slices.Clone(result.Errors),
	}
	slices.Reverse(reversed.Assignments)
	slices.Reverse(reversed.Functions)
	slices.Reverse(reversed.Errors)

	if diff := cmp.Diff(BuildScanReport(result), BuildScanReport(reversed)); diff != "" {
		t.Errorf("report depends on record order (-first +reversed):\n%s", diff)
	}

	assert.Equal(t, m.Path("y.py"), BuildScanReport(result).ParseErrors[0].File)
}

func TestBuildScanReport_TopConflictLimit(t *testing.T) {
	var records []m.Assignment

	for i := range TopConflictLimit + 5 {
		target := fmt.Sprintf("t%02d", i)
		records = append(records,
			assign("a.py", i, target, "A", "S"),
			assign("b.py", i, target, "B", "S"),
		)
	}

	records = append(records, assign("c.py", 1, "t34", "C", "S"))

	top := BuildScanReport(m.ScanResult{Assignments: records}).TopConflicts

	assert.Len(t, top, TopConflictLimit)
	assert.Equal(t, TargetConflict{Target: "t34", Assignments: 3, Signatures: 3}, top[0])
	assert.Equal(t, "t00", top[1].Target)
}
