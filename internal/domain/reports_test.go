package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	m "ultraclean.dev/pkg/ultraclean/internal/model"
)

func TestFormatCoordinate(t *testing.T) {
	tests := map[float64]string{
		0:           "0.0",
		12:          "12.0",
		-3:          "-3.0",
		0.1:         "0.1",
		12.25:       "12.25",
		1e21:        "1000000000000000000000.0",
		math.Inf(1): "+Inf",
	}

	for in, want := range tests {
		assert.Equal(t, want, formatCoordinate(in))
	}
}

func TestCollisionTable(t *testing.T) {
	groups := []m.CollisionGroup{
		{Members: []m.Position{
			{File: "a.yaml", Page: 2, X: 1, Y: 1.5, Hints: []string{"x", "y", "page"}},
			{File: "a.yaml", Page: 2, X: 1.1, Y: 1.5},
		}},
		{Members: []m.Position{
			{File: "b.yaml", Page: 1, X: 0, Y: 0},
			{File: "b.yaml", Page: 1, X: 0, Y: 0},
		}},
	}

	table := CollisionTable(groups)

	assert.Equal(t, []string{"file", "page", "x", "y", "key_hint"}, table.Header)
	assert.Equal(t, [][]string{
		{"a.yaml", "2", "1.0", "1.5", "x;y;page"},
		{"a.yaml", "2", "1.1", "1.5", ""},
		{"---", "", "", "", ""},
		{"b.yaml", "1", "0.0", "0.0", ""},
		{"b.yaml", "1", "0.0", "0.0", ""},
		{"---", "", "", "", ""},
	}, table.Rows)
}

func TestCollisionTable_NoGroups(t *testing.T) {
	table := CollisionTable(nil)

	assert.Len(t, table.Header, 5)
	assert.Empty(t, table.Rows)
}

func TestScanTables(t *testing.T) {
	report := ScanReport{
		LHSConflicts: []m.Assignment{
			{File: "a.py", Line: 3, Target: "total", Signature: "Sig", Shape: "Shape", Names: []string{"a", "b"}, Source: "total = a + b"},
		},
		NameConflicts:  []NameConflict{{Name: "f", DistinctImpls: 2, Files: []m.Path{"a.py", "b.py"}}},
		BodyDuplicates: []BodyDuplicate{{Hash: "abc", Count: 2, Names: []string{"f", "g"}, Files: []m.Path{"a.py", "b.py"}}},
		TopConflicts:   []TargetConflict{{Target: "total", Assignments: 4, Signatures: 2}},
	}

	tables := ScanTables(report)

	assert.Len(t, tables, len(ScanReportNames()))
	assert.Equal(t, [][]string{{"a.py", "3", "total", "Sig", "Shape", "a,b", "total = a + b"}}, tables[ReportLHSConflicts].Rows)
	assert.Equal(t, [][]string{{"f", "2", "a.py | b.py"}}, tables[ReportNameConflicts].Rows)
	assert.Equal(t, [][]string{{"abc", "2", "f | g", "a.py | b.py"}}, tables[ReportBodyDuplicates].Rows)
	assert.Equal(t, [][]string{{"total", "4", "2"}}, tables[ReportTopConflicts].Rows)
	assert.Empty(t, tables[ReportParseErrors].Rows)
	assert.Equal(t, []string{"file", "error"}, tables[ReportParseErrors].Header)
}

func TestChangeTable(t *testing.T) {
	table := ChangeTable([]m.Change{{File: "a.py", Line: "?", Reason: "PARSE_ERROR:bad"}})

	assert.Equal(t, []string{"file", "lineno", "before", "after", "reason"}, table.Header)
	assert.Equal(t, [][]string{{"a.py", "?", "", "", "PARSE_ERROR:bad"}}, table.Rows)
}
