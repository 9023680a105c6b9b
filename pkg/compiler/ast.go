package compiler

import (
	"fmt"
	"strings"
)

//  Expression nodes

// Expr is implemented by every node that produces a value. genExpr always
// leaves the result in RAX. Type() is nil until the checker has run.
type Expr interface {
	exprNode()
	Pos() Pos
	Type() *Type
	String() string
}

// exprBase carries the position and checker-assigned type every
// expression node shares.
type exprBase struct {
	pos Pos
	typ *Type
}

func (b *exprBase) Pos() Pos        { return b.pos }
func (b *exprBase) Type() *Type     { return b.typ }
func (b *exprBase) setType(t *Type) { b.typ = t }

// Literal is a compile-time integer constant (integer or character
// literal in source).
//
//	int x = 10;
//	         ^^  Literal{Value: 10}
type Literal struct {
	exprBase
	Value int64
}

func (*Literal) exprNode()        {}
func (l *Literal) String() string { return fmt.Sprintf("%d", l.Value) }

// StringLit is a string constant "..." holding the decoded bytes
// including the NUL terminator.
type StringLit struct {
	exprBase
	Value []byte
}

func (*StringLit) exprNode()        {}
func (s *StringLit) String() string { return fmt.Sprintf("%q", string(s.Value)) }

// VarRef is a use of a named variable or function. Sym is filled by the
// checker with the resolved symbol's arena index.
//
//	return x;
//	       ^  VarRef{Name: "x"}
type VarRef struct {
	exprBase
	Name string
	Sym  SymbolID
}

func (*VarRef) exprNode()        {}
func (v *VarRef) String() string { return v.Name }

// UnaryExpr represents Op Operand (e.g. -x, !x, ~x, *p, &x, ++x, --x).
type UnaryExpr struct {
	exprBase
	Op      TokenType
	Operand Expr
}

func (*UnaryExpr) exprNode()        {}
func (u *UnaryExpr) String() string { return fmt.Sprintf("(%s %s)", u.Op, u.Operand) }

// PostfixExpr represents Operand++ or Operand--.
type PostfixExpr struct {
	exprBase
	Op      TokenType
	Operand Expr
}

func (*PostfixExpr) exprNode()        {}
func (p *PostfixExpr) String() string { return fmt.Sprintf("(%s %s)", p.Operand, p.Op) }

// BinaryExpr represents Left Op Right for the arithmetic, bitwise,
// shift, and comparison operators.
type BinaryExpr struct {
	exprBase
	Op    TokenType
	Left  Expr
	Right Expr
}

func (*BinaryExpr) exprNode() {}
func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}

// LogicalExpr represents Left && Right or Left || Right. It is separate
// from BinaryExpr because code generation short-circuits the right side.
type LogicalExpr struct {
	exprBase
	Op    TokenType
	Left  Expr
	Right Expr
}

func (*LogicalExpr) exprNode() {}
func (l *LogicalExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", l.Left, l.Op, l.Right)
}

// AssignExpr represents Left = Right and the compound forms += -= *= /= %=.
type AssignExpr struct {
	exprBase
	Op    TokenType
	Left  Expr
	Right Expr
}

func (*AssignExpr) exprNode() {}
func (a *AssignExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", a.Left, a.Op, a.Right)
}

// CondExpr represents Cond ? Then : Else.
type CondExpr struct {
	exprBase
	Cond Expr
	Then Expr
	Else Expr
}

func (*CondExpr) exprNode() {}
func (c *CondExpr) String() string {
	return fmt.Sprintf("(%s ? %s : %s)", c.Cond, c.Then, c.Else)
}

// IndexExpr represents Base[Index]. Multi-dimensional access nests.
type IndexExpr struct {
	exprBase
	Base  Expr
	Index Expr
}

func (*IndexExpr) exprNode()        {}
func (e *IndexExpr) String() string { return fmt.Sprintf("%s[%s]", e.Base, e.Index) }

// CallExpr represents Name(Args...). Sym resolves to the callee's symbol.
type CallExpr struct {
	exprBase
	Name string
	Sym  SymbolID
	Args []Expr
}

func (*CallExpr) exprNode() {}
func (c *CallExpr) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", c.Name, strings.Join(parts, ", "))
}

// CommaExpr represents Left, Right; the value is Right's.
type CommaExpr struct {
	exprBase
	Left  Expr
	Right Expr
}

func (*CommaExpr) exprNode()        {}
func (c *CommaExpr) String() string { return fmt.Sprintf("(%s, %s)", c.Left, c.Right) }

// SizeofExpr represents sizeof expr or sizeof(type-name). Exactly one of
// Operand and TypeName is set; Size is folded by the checker.
type SizeofExpr struct {
	exprBase
	Operand  Expr  // nil for the type-name form
	TypeName *Type // nil for the expression form
	Size     int64
}

func (*SizeofExpr) exprNode() {}
func (s *SizeofExpr) String() string {
	if s.Operand != nil {
		return fmt.Sprintf("sizeof(%s)", s.Operand)
	}
	return fmt.Sprintf("sizeof(%s)", s.TypeName)
}

//  Statement nodes

// Stmt is implemented by every node that does not produce a value.
type Stmt interface {
	stmtNode()
	String() string
}

// VarDecl represents one declarator of a declaration:  int *p = expr;
// It appears both at file scope (global) and inside blocks (local).
type VarDecl struct {
	NamePos  Pos
	Name     string
	DeclType *Type
	Init     Expr // may be nil
	Sym      SymbolID
}

func (*VarDecl) stmtNode() {}
func (d *VarDecl) String() string {
	if d.Init != nil {
		return fmt.Sprintf("VarDecl(%s %s = %s)", d.DeclType, d.Name, d.Init)
	}
	return fmt.Sprintf("VarDecl(%s %s)", d.DeclType, d.Name)
}

// DeclStmt groups the declarators of one declaration statement:
// int x, *p, a[3];
type DeclStmt struct {
	Decls []*VarDecl
}

func (*DeclStmt) stmtNode() {}
func (d *DeclStmt) String() string {
	parts := make([]string, len(d.Decls))
	for i, v := range d.Decls {
		parts[i] = v.String()
	}
	return "DeclStmt(" + strings.Join(parts, "; ") + ")"
}

// ExprStmt represents an expression evaluated for its side effects.
type ExprStmt struct {
	X Expr
}

func (*ExprStmt) stmtNode()        {}
func (e *ExprStmt) String() string { return fmt.Sprintf("ExprStmt(%s)", e.X) }

// ReturnStmt represents  return [expr];
type ReturnStmt struct {
	Pos Pos
	X   Expr // may be nil
}

func (*ReturnStmt) stmtNode() {}
func (r *ReturnStmt) String() string {
	if r.X == nil {
		return "ReturnStmt()"
	}
	return fmt.Sprintf("ReturnStmt(%s)", r.X)
}

// BlockStmt represents { statement; ... } and introduces a scope.
type BlockStmt struct {
	Stmts []Stmt
}

func (*BlockStmt) stmtNode()        {}
func (b *BlockStmt) String() string { return fmt.Sprintf("BlockStmt(len=%d)", len(b.Stmts)) }

// IfStmt represents if (cond) body [else elseBody].
type IfStmt struct {
	Cond Expr
	Body Stmt
	Else Stmt // may be nil
}

func (*IfStmt) stmtNode() {}
func (i *IfStmt) String() string {
	if i.Else != nil {
		return fmt.Sprintf("IfStmt(if %s then %s else %s)", i.Cond, i.Body, i.Else)
	}
	return fmt.Sprintf("IfStmt(if %s then %s)", i.Cond, i.Body)
}

// WhileStmt represents while (cond) body.
type WhileStmt struct {
	Cond Expr
	Body Stmt
}

func (*WhileStmt) stmtNode() {}
func (w *WhileStmt) String() string {
	return fmt.Sprintf("WhileStmt(while %s do %s)", w.Cond, w.Body)
}

// ForStmt represents for (init; cond; post) body. Init may be a
// declaration or an expression statement; any of the three heads may be
// absent.
type ForStmt struct {
	Init Stmt // may be nil
	Cond Expr // may be nil
	Post Expr // may be nil
	Body Stmt
}

func (*ForStmt) stmtNode() {}
func (f *ForStmt) String() string {
	return fmt.Sprintf("ForStmt(init=%v, cond=%v, post=%v, body=%s)", f.Init, f.Cond, f.Post, f.Body)
}

// FuncDecl represents a function prototype (Body nil) or definition.
type FuncDecl struct {
	NamePos    Pos
	Name       string
	FuncType   *Type // TFunc
	ParamNames []string
	Body       *BlockStmt // nil for a prototype
	Sym        SymbolID

	// Filled by the checker for definitions.
	ParamSyms []SymbolID
	FrameSize int  // local frame, 16-byte aligned
	NonLeaf   bool // body contains at least one call
}

func (*FuncDecl) stmtNode() {}
func (f *FuncDecl) String() string {
	if f.Body == nil {
		return fmt.Sprintf("FuncDecl(%s %s)", f.FuncType, f.Name)
	}
	return fmt.Sprintf("FuncDecl(%s %s, body=%s)", f.FuncType, f.Name, f.Body)
}
