// Package model defines the records exchanged between the scanner, the codemod
// engine, the collision detector and the report writers.
package model

// Path represents a file system path.
type Path string

// FileKind classifies the files the loader hands to the pipelines.
type FileKind string

const (
	// KindPython marks Python sources scanned and patched by the engine.
	KindPython FileKind = "python"
	// KindYAML marks structured layout documents for the collision check.
	KindYAML FileKind = "yaml"
)

// File represents a file discovered under the scanned root.
type File struct {
	FullPath  Path
	ShortPath Path // relative to the scanned root, forward slashes
	Kind      FileKind
	Size      int64
}
