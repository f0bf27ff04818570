package token

import (
	"fmt"
	stdtoken "go/token"
)

// Position is the resolved, human-readable form of a Pos: a filename, line
// and column. It is an alias for go/token.Position so that lexical and
// syntax errors can be collected directly into a go/scanner.ErrorList (see
// the scanner package), without a translation layer between this package's
// positions and the standard library's error-reporting types.
type Position = stdtoken.Position

// File represents one source file registered in a FileSet. It only tracks
// the file's name and size; Pos values are self-contained (line, column)
// pairs produced by the scanner, so File's job is purely to attach a
// filename to them for diagnostics.
type File struct {
	name string
	size int
}

// Name returns the file's name, as given to FileSet.AddFile.
func (f *File) Name() string { return f.name }

// Size returns the file's byte size, as given to FileSet.AddFile.
func (f *File) Size() int { return f.size }

// AddLine records the byte offset of the start of a new line. Kept for
// compatibility with scanners that want to track line boundaries
// externally; this implementation's Pos values already carry line/col so it
// is a no-op bookkeeping aid, not required for Position to work.
func (f *File) AddLine(offset int) {}

// Position resolves a Pos produced while scanning this file into a full
// Position with the file's name attached.
func (f *File) Position(pos Pos) Position {
	line, col := pos.LineCol()
	return Position{Filename: f.name, Line: line, Column: col}
}

// FileSet is a collection of source Files, keyed by name, providing a single
// place to resolve Pos values to Positions across every file a compilation
// touches.
type FileSet struct {
	files map[string]*File
	order []*File
}

// NewFileSet creates an empty FileSet.
func NewFileSet() *FileSet {
	return &FileSet{files: make(map[string]*File)}
}

// AddFile registers a new file of the given name and size. base is accepted
// for API parity with go/token.FileSet.AddFile but is unused since Pos
// values are not offsets into a shared address space.
func (s *FileSet) AddFile(name string, base, size int) *File {
	f := &File{name: name, size: size}
	s.files[name] = f
	s.order = append(s.order, f)
	return f
}

// File returns the registered file with the given name, or nil.
func (s *FileSet) File(name string) *File {
	return s.files[name]
}

// PosMode controls how FormatPos renders a position.
type PosMode int

const (
	PosNone    PosMode = iota // no position at all
	PosRaw                    // raw encoded Pos value
	PosOffsets                // 0-based line:column
	PosLong                   // filename:line:column
)

// FormatPos renders pos under the given file according to mode.
func FormatPos(mode PosMode, file *File, pos Pos, withFilename bool) string {
	switch mode {
	case PosNone:
		return ""
	case PosRaw:
		return fmt.Sprintf("%d", pos)
	case PosOffsets:
		if pos.Unknown() {
			return "-"
		}
		line, col := pos.LineCol()
		return fmt.Sprintf("%d:%d", line-1, col-1)
	default: // PosLong
		if pos.Unknown() {
			name := ""
			if withFilename && file != nil {
				name = file.Name()
			}
			return name + ":-:-"
		}
		line, col := pos.LineCol()
		name := ""
		if withFilename && file != nil {
			name = file.Name()
		}
		return fmt.Sprintf("%s:%d:%d", name, line, col)
	}
}
