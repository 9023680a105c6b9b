package compiler

import (
	"os"
	"path/filepath"
)

// Compile runs the full pipeline over one translation unit held in src
// and returns the generated assembly text. filename names the unit in
// diagnostics; quoted includes resolve against its directory first.
//
// Every stage consumes its predecessor's output completely before the
// next begins; the first error aborts the run.
func Compile(ctx *Context, filename, src string) (string, error) {
	file := ctx.Files.Intern(filename)

	tokens, err := Lex(ctx, file, src)
	if err != nil {
		return "", err
	}

	tokens, err = Preprocess(ctx, tokens, filepath.Dir(filename))
	if err != nil {
		return "", err
	}

	unit, err := Parse(ctx, tokens)
	if err != nil {
		return "", err
	}

	syms, err := Check(ctx, unit)
	if err != nil {
		return "", err
	}

	return Generate(ctx, unit, syms)
}

// CompileFile reads path and compiles it.
func CompileFile(ctx *Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &Diagnostic{Category: CatIO, File: path, Msg: err.Error()}
	}
	return Compile(ctx, path, string(data))
}
