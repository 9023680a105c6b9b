// Package compiler provides a C-subset lexer, preprocessor, parser,
// type checker, and code generator that targets Windows x64 assembly
// in Intel syntax.
//
// Pipeline: C source → Lex → Preprocess → Parse → Check → Generate → .s text
package compiler
