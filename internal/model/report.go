package model

import "strings"

// Reason tags written to the autopatch reports that are not rule names.
const (
	ReasonSuspicious         = "skipped_suspicious_pattern"
	ReasonImportAdded        = "missing_import_added"
	ReasonDefinitionInserted = "definition_inserted"
	ReasonParseErrorPrefix   = "PARSE_ERROR:"
	ReasonErrorPrefix        = "ERROR:"
)

// Change is one audit entry of a codemod run.
type Change struct {
	File   Path
	Line   string // "?" when the position is unknown
	Before string
	After  string
	Reason string
}

// IsRewrite reports whether the change replaced an expression or statement.
func (c Change) IsRewrite() bool {
	switch c.Reason {
	case ReasonSuspicious, ReasonImportAdded, ReasonDefinitionInserted:
		return false
	}

	return !c.IsFailure()
}

// IsFailure reports whether the change records a parse or rule error.
func (c Change) IsFailure() bool {
	return strings.HasPrefix(c.Reason, ReasonParseErrorPrefix) || strings.HasPrefix(c.Reason, ReasonErrorPrefix)
}

// Stage names a pipeline step for console summaries.
type Stage string

// Pipeline stages.
const (
	StageScan      Stage = "scan"
	StageStructure Stage = "structure"
	StageYAML      Stage = "yaml-check"
	StageAutopatch Stage = "autopatch"
	StageArchive   Stage = "archive"
)

// Summary is the per-command result printed to the console.
type Summary struct {
	Stage   Stage
	Name    string // catalog name for autopatch stages
	Files   int    // files examined
	Changed int    // files changed (or would change in a dry run)
	Skipped int    // files or assignments skipped
	Errors  int    // per-file / per-assignment failures
	Groups  int    // collision groups or conflict groups
	Written bool   // whether files were modified on disk
	Outputs []Path
}
