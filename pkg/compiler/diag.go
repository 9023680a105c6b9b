package compiler

import "fmt"

// Category classifies a diagnostic by the stage that produced it.
type Category int

const (
	CatIO Category = iota
	CatLex
	CatPreproc
	CatParse
	CatType
	CatInternal
)

var categoryNames = [...]string{
	CatIO:       "io error",
	CatLex:      "lex error",
	CatPreproc:  "preprocessor error",
	CatParse:    "syntax error",
	CatType:     "type error",
	CatInternal: "internal error",
}

func (c Category) String() string {
	if int(c) >= 0 && int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// Process exit statuses reported by the driver. Internal errors are
// compiler bugs and get their own code.
const (
	ExitOK         = 0
	ExitDiagnostic = 1
	ExitInternal   = 2
)

// FileID names an entry in the compilation's file table.
type FileID int

// Pos is a source position: file, 1-based line, 1-based column.
type Pos struct {
	File FileID
	Line int
	Col  int
}

// FileTable interns source file names. It is append-only; FileIDs are
// stable for the lifetime of a compilation.
type FileTable struct {
	names []string
}

// Intern adds name to the table and returns its id. The same name may be
// interned more than once (e.g. a header included from two places); each
// occurrence gets its own id.
func (t *FileTable) Intern(name string) FileID {
	t.names = append(t.names, name)
	return FileID(len(t.names) - 1)
}

// Name returns the file name for id, or "<unknown>" if out of range.
func (t *FileTable) Name(id FileID) string {
	if int(id) >= 0 && int(id) < len(t.names) {
		return t.names[id]
	}
	return "<unknown>"
}

// Diagnostic is the single error value that crosses stage boundaries.
// It renders as <file>:<line>:<col>: <category>: <message>.
type Diagnostic struct {
	Category Category
	Pos      Pos
	File     string // resolved from the file table at creation time
	Msg      string
}

func (d *Diagnostic) Error() string {
	if d.File == "" {
		return fmt.Sprintf("%s: %s", d.Category, d.Msg)
	}
	if d.Pos.Line == 0 {
		return fmt.Sprintf("%s: %s: %s", d.File, d.Category, d.Msg)
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.File, d.Pos.Line, d.Pos.Col, d.Category, d.Msg)
}

// ExitStatus maps the diagnostic to the driver's process exit code.
func (d *Diagnostic) ExitStatus() int {
	if d.Category == CatInternal {
		return ExitInternal
	}
	return ExitDiagnostic
}

// Context carries the state shared across the stages of one compilation:
// the file table and the include search path. A fresh Context per
// compilation keeps runs independent in a library setting.
type Context struct {
	Files       *FileTable
	IncludeDirs []string // searched after the including file's directory

	// Warnings collects non-fatal diagnostics (e.g. unknown preprocessor
	// directives). The driver prints them; the compilation continues.
	Warnings []*Diagnostic
}

// NewContext returns a Context with an empty file table.
func NewContext() *Context {
	return &Context{Files: &FileTable{}}
}

// errorf builds a Diagnostic located at pos. A zero Pos means the error
// has no useful location.
func (c *Context) errorf(cat Category, pos Pos, format string, args ...any) *Diagnostic {
	file := ""
	if pos.Line != 0 {
		file = c.Files.Name(pos.File)
	}
	return &Diagnostic{
		Category: cat,
		Pos:      pos,
		File:     file,
		Msg:      fmt.Sprintf(format, args...),
	}
}

// warnf records a non-fatal diagnostic.
func (c *Context) warnf(cat Category, pos Pos, format string, args ...any) {
	c.Warnings = append(c.Warnings, c.errorf(cat, pos, format, args...))
}
