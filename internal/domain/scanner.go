package domain

import (
	"sort"
	"strings"

	m "ultraclean.dev/pkg/ultraclean/internal/model"
)

// TopConflictLimit caps the conflicting-target ranking.
const TopConflictLimit = 30

// NameConflict is a function name defined with differing bodies.
type NameConflict struct {
	Name          string
	DistinctImpls int
	Files         []m.Path
}

// BodyDuplicate is a function body hash shared by several definitions.
type BodyDuplicate struct {
	Hash  string
	Count int
	Names []string
	Files []m.Path
}

// TargetConflict ranks a target by how many different formulas assign it.
type TargetConflict struct {
	Target      string
	Assignments int
	Signatures  int
}

// ScanReport holds the duplication findings of one scan.
type ScanReport struct {
	LHSConflicts      []m.Assignment
	SameExprDiffLHS   []m.Assignment
	SameShapeDiffVars []m.Assignment
	NameConflicts     []NameConflict
	BodyDuplicates    []BodyDuplicate
	ParseErrors       []m.ParseError
	TopConflicts      []TargetConflict
}

// ConflictGroups counts the groups behind the three assignment reports.
func (r ScanReport) ConflictGroups() int {
	return countDistinct(r.LHSConflicts, func(a m.Assignment) string { return a.Target }) +
		countDistinct(r.SameExprDiffLHS, func(a m.Assignment) string { return a.Signature }) +
		countDistinct(r.SameShapeDiffVars, func(a m.Assignment) string { return a.Target + "\x00" + a.Shape })
}

// BuildScanReport groups the collected records into the duplication reports.
// The result depends only on the set of records, not on their order.
func BuildScanReport(result m.ScanResult) ScanReport {
	assignments := append([]m.Assignment(nil), result.Assignments...)
	functions := append([]m.Function(nil), result.Functions...)

	sort.SliceStable(functions, func(i, j int) bool {
		if functions[i].File != functions[j].File {
			return functions[i].File < functions[j].File
		}

		return functions[i].Line < functions[j].Line
	})

	errs := append([]m.ParseError(nil), result.Errors...)
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].File < errs[j].File })

	return ScanReport{
		LHSConflicts:      targetConflicts(assignments),
		SameExprDiffLHS:   signatureConflicts(assignments),
		SameShapeDiffVars: shapeDrift(assignments),
		NameConflicts:     nameConflicts(functions),
		BodyDuplicates:    bodyDuplicates(functions),
		ParseErrors:       errs,
		TopConflicts:      topConflicts(assignments, TopConflictLimit),
	}
}

// targetConflicts: same target, at least two distinct signatures.
func targetConflicts(records []m.Assignment) []m.Assignment {
	sigs := map[string]map[string]bool{}
	for _, a := range records {
		addToSet(sigs, a.Target, a.Signature)
	}

	var out []m.Assignment

	for _, a := range records {
		if len(sigs[a.Target]) >= 2 {
			out = append(out, a)
		}
	}

	sortAssignments(out, func(a m.Assignment) []string { return []string{a.Target, a.Signature} })

	return out
}

// signatureConflicts: same signature, at least two distinct targets.
func signatureConflicts(records []m.Assignment) []m.Assignment {
	targets := map[string]map[string]bool{}
	for _, a := range records {
		addToSet(targets, a.Signature, a.Target)
	}

	var out []m.Assignment

	for _, a := range records {
		if len(targets[a.Signature]) >= 2 {
			out = append(out, a)
		}
	}

	sortAssignments(out, func(a m.Assignment) []string { return []string{a.Signature, a.Target} })

	return out
}

// shapeDrift: same target and shape, at least two records referencing
// different name sets.
func shapeDrift(records []m.Assignment) []m.Assignment {
	key := func(a m.Assignment) string { return a.Target + "\x00" + a.Shape }

	counts := map[string]int{}
	names := map[string]map[string]bool{}

	for _, a := range records {
		counts[key(a)]++
		addToSet(names, key(a), strings.Join(a.Names, ","))
	}

	var out []m.Assignment

	for _, a := range records {
		k := key(a)
		if counts[k] >= 2 && len(names[k]) > 1 {
			out = append(out, a)
		}
	}

	sortAssignments(out, func(a m.Assignment) []string { return []string{a.Target, a.Shape} })

	return out
}

func nameConflicts(functions []m.Function) []NameConflict {
	hashes := map[string]map[string]bool{}
	files := map[string]map[string]bool{}

	for _, f := range functions {
		addToSet(hashes, f.Name, f.Hash)
		addToSet(files, f.Name, string(f.File))
	}

	var out []NameConflict

	for name, set := range hashes {
		if len(set) < 2 {
			continue
		}

		out = append(out, NameConflict{
			Name:          name,
			DistinctImpls: len(set),
			Files:         sortedPaths(files[name]),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

func bodyDuplicates(functions []m.Function) []BodyDuplicate {
	groups := map[string]*BodyDuplicate{}

	var order []string

	for _, f := range functions {
		group, ok := groups[f.Hash]
		if !ok {
			group = &BodyDuplicate{Hash: f.Hash}
			groups[f.Hash] = group
			order = append(order, f.Hash)
		}

		group.Count++
		group.Names = append(group.Names, f.Name)
		group.Files = append(group.Files, f.File)
	}

	sort.Strings(order)

	var out []BodyDuplicate

	for _, hash := range order {
		if groups[hash].Count >= 2 {
			out = append(out, *groups[hash])
		}
	}

	return out
}

func topConflicts(records []m.Assignment, limit int) []TargetConflict {
	counts := map[string]int{}
	sigs := map[string]map[string]bool{}

	for _, a := range records {
		counts[a.Target]++
		addToSet(sigs, a.Target, a.Signature)
	}

	var out []TargetConflict

	for target, set := range sigs {
		if len(set) < 2 {
			continue
		}

		out = append(out, TargetConflict{Target: target, Assignments: counts[target], Signatures: len(set)})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Signatures != out[j].Signatures {
			return out[i].Signatures > out[j].Signatures
		}

		return out[i].Target < out[j].Target
	})

	if len(out) > limit {
		out = out[:limit]
	}

	return out
}

// sortAssignments orders rows by the group keys, then file and line.
func sortAssignments(rows []m.Assignment, keys func(m.Assignment) []string) {
	sort.SliceStable(rows, func(i, j int) bool {
		ki, kj := keys(rows[i]), keys(rows[j])
		for n := range ki {
			if ki[n] != kj[n] {
				return ki[n] < kj[n]
			}
		}

		if rows[i].File != rows[j].File {
			return rows[i].File < rows[j].File
		}

		return rows[i].Line < rows[j].Line
	})
}

func addToSet(sets map[string]map[string]bool, key, value string) {
	set, ok := sets[key]
	if !ok {
		set = map[string]bool{}
		sets[key] = set
	}

	set[value] = true
}

func sortedPaths(set map[string]bool) []m.Path {
	paths := make([]string, 0, len(set))
	for p := range set {
		paths = append(paths, p)
	}

	sort.Strings(paths)

	out := make([]m.Path, len(paths))
	for i, p := range paths {
		out[i] = m.Path(p)
	}

	return out
}

func countDistinct(rows []m.Assignment, key func(m.Assignment) string) int {
	seen := map[string]bool{}
	for _, r := range rows {
		seen[key(r)] = true
	}

	return len(seen)
}
