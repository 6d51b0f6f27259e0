package model

// Assignment is one target of one assignment statement.
type Assignment struct {
	File      Path
	Line      int
	Target    string
	Signature string
	Shape     string
	Names     []string // referenced identifiers, sorted and unique
	Source    string   // the original source line, trimmed
}

// Function is one function definition with its body fingerprint.
type Function struct {
	File    Path
	Name    string
	Line    int
	EndLine int
	Hash    string
}

// ParseError records a file that could not be turned into a syntax tree.
type ParseError struct {
	File    Path
	Message string
}

// ScanResult is everything the canonicalizer extracted from a source tree.
type ScanResult struct {
	Files       int
	Assignments []Assignment
	Functions   []Function
	Errors      []ParseError
}

// Position is a coordinate triple found in a structured document.
type Position struct {
	File  Path
	Page  int
	X     float64
	Y     float64
	Hints []string // the first keys of the enclosing mapping
}

// CollisionGroup holds positions on the same file and page that lie within
// tolerance of the group's seed.
type CollisionGroup struct {
	Members []Position
}

// InventoryEntry describes one file of the structure manifest.
type InventoryEntry struct {
	Path        Path
	Ext         string
	Size        int64
	Lines       int
	PrimaryRole string
	Tags        []string
}

// DirSummary aggregates manifest entries per directory.
type DirSummary struct {
	Dir   Path
	Files int
	Roles []string
}
