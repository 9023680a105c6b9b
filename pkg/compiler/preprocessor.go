package compiler

import (
	"os"
	"path/filepath"
	"strings"

	"gocc/lib"
)

// maxIncludeDepth bounds nested #include recursion.
const maxIncludeDepth = 64

// Preprocessor expands the token stream in place of the lexer's raw
// output: it resolves #include directives against a search path, records
// object-like #define macros, and substitutes them into identifier tokens.
type Preprocessor struct {
	ctx    *Context
	macros map[string][]Token
}

// Preprocess runs the preprocessor over tokens. baseDir is the directory
// of the file the tokens came from; quoted includes resolve against it
// first, then against ctx.IncludeDirs, then against the embedded headers.
func Preprocess(ctx *Context, tokens []Token, baseDir string) ([]Token, error) {
	p := &Preprocessor{ctx: ctx, macros: make(map[string][]Token)}
	return p.run(tokens, baseDir, 0)
}

func (p *Preprocessor) run(tokens []Token, baseDir string, depth int) ([]Token, error) {
	if depth > maxIncludeDepth {
		pos := Pos{}
		if len(tokens) > 0 {
			pos = tokens[0].Pos
		}
		return nil, p.ctx.errorf(CatPreproc, pos, "#include nested too deeply (limit %d)", maxIncludeDepth)
	}

	var out []Token
	i := 0
	for i < len(tokens) {
		tok := tokens[i]

		// A directive is a '#' that starts its source line.
		if tok.Type == HASH && tok.BOL {
			line, rest := directiveLine(tokens, i+1)
			i = rest
			if err := p.directive(tok, line, baseDir, depth, &out); err != nil {
				return nil, err
			}
			continue
		}

		if tok.Type == IDENTIFIER {
			if _, ok := p.macros[tok.Lexeme]; ok {
				out = append(out, p.expand(tok, map[string]bool{})...)
				i++
				continue
			}
		}

		if tok.Type == EOF {
			// Inner EOFs are dropped when splicing; the caller appends
			// the outermost one.
			if depth == 0 {
				out = append(out, tok)
			}
			i++
			continue
		}

		out = append(out, tok)
		i++
	}
	return out, nil
}

// directiveLine collects the tokens belonging to the directive whose '#'
// was just consumed: everything up to the next beginning-of-line token or
// EOF. Returns the line tokens and the resume index.
func directiveLine(tokens []Token, start int) ([]Token, int) {
	i := start
	for i < len(tokens) && tokens[i].Type != EOF && !tokens[i].BOL {
		i++
	}
	return tokens[start:i], i
}

func (p *Preprocessor) directive(hash Token, line []Token, baseDir string, depth int, out *[]Token) error {
	if len(line) == 0 {
		return p.ctx.errorf(CatPreproc, hash.Pos, "empty directive")
	}
	switch line[0].Lexeme {
	case "include":
		return p.include(hash, line[1:], baseDir, depth, out)
	case "define":
		return p.define(hash, line[1:])
	case "undef":
		if len(line) != 2 || line[1].Type != IDENTIFIER {
			return p.ctx.errorf(CatPreproc, hash.Pos, "#undef expects a single macro name")
		}
		delete(p.macros, line[1].Lexeme)
		return nil
	}
	p.ctx.warnf(CatPreproc, hash.Pos, "unknown directive #%s, skipped", line[0].Lexeme)
	return nil
}

// define records an object-like macro. Function-like macros are not part
// of the dialect: a '(' glued to the macro name is rejected.
func (p *Preprocessor) define(hash Token, line []Token) error {
	if len(line) == 0 || line[0].Type != IDENTIFIER {
		return p.ctx.errorf(CatPreproc, hash.Pos, "#define expects a macro name")
	}
	name := line[0]
	if len(line) > 1 && line[1].Type == LPAREN &&
		line[1].Pos.Line == name.Pos.Line && line[1].Pos.Col == name.Pos.Col+len(name.Lexeme) {
		return p.ctx.errorf(CatPreproc, name.Pos, "function-like macro %q is not supported", name.Lexeme)
	}
	body := make([]Token, len(line)-1)
	copy(body, line[1:])
	p.macros[name.Lexeme] = body
	return nil
}

// expand substitutes tok's macro body, rescanning the replacement for
// further macros. inflight blocks recursion through a name that is
// already being expanded.
func (p *Preprocessor) expand(tok Token, inflight map[string]bool) []Token {
	body, ok := p.macros[tok.Lexeme]
	if !ok || inflight[tok.Lexeme] {
		return []Token{tok}
	}
	inflight[tok.Lexeme] = true
	var out []Token
	for _, t := range body {
		if t.Type == IDENTIFIER {
			out = append(out, p.expand(t, inflight)...)
			continue
		}
		out = append(out, t)
	}
	delete(inflight, tok.Lexeme)
	return out
}

// include resolves the named file, lexes it, preprocesses it recursively,
// and splices the result into the output.
func (p *Preprocessor) include(hash Token, line []Token, baseDir string, depth int, out *[]Token) error {
	name, err := p.includePath(hash, line)
	if err != nil {
		return err
	}

	src, dir, filename, err := p.resolveInclude(hash, name, baseDir)
	if err != nil {
		return err
	}

	file := p.ctx.Files.Intern(filename)
	tokens, err := Lex(p.ctx, file, src)
	if err != nil {
		return err
	}
	spliced, err := p.run(tokens, dir, depth+1)
	if err != nil {
		return err
	}
	*out = append(*out, spliced...)
	return nil
}

// includePath extracts the path from the tokens after #include: either a
// single STRING token or a <...> token run whose lexemes are rejoined.
func (p *Preprocessor) includePath(hash Token, line []Token) (string, error) {
	if len(line) == 1 && line[0].Type == STRING {
		return line[0].Lexeme, nil
	}
	if len(line) >= 2 && line[0].Type == LESS && line[len(line)-1].Type == GREATER {
		var sb strings.Builder
		for _, t := range line[1 : len(line)-1] {
			sb.WriteString(t.Lexeme)
		}
		if sb.Len() > 0 {
			return sb.String(), nil
		}
	}
	return "", p.ctx.errorf(CatPreproc, hash.Pos, `#include expects "path" or <path>`)
}

// resolveInclude searches (a) the including file's directory, (b) the
// configured include dirs, (c) the headers embedded in the binary.
func (p *Preprocessor) resolveInclude(hash Token, name, baseDir string) (src, dir, filename string, err error) {
	candidates := append([]string{baseDir}, p.ctx.IncludeDirs...)
	for _, d := range candidates {
		full := filepath.Join(d, name)
		if data, rerr := os.ReadFile(full); rerr == nil {
			return string(data), filepath.Dir(full), full, nil
		}
	}
	if data, rerr := lib.Headers.ReadFile(lib.IncludeDir + "/" + name); rerr == nil {
		// Embedded headers have no on-disk directory; nested quoted
		// includes from them fall back to the search path alone.
		return string(data), baseDir, "<" + name + ">", nil
	}
	return "", "", "", p.ctx.errorf(CatPreproc, hash.Pos, "include file %q not found", name)
}
