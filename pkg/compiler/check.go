package compiler

// Checker walks the AST once, resolving names against the scope stack,
// assigning a type to every expression, and laying out each function's
// local frame. After a successful run every expression node has a
// non-nil type and every reference carries a symbol index.
type Checker struct {
	ctx  *Context
	syms *SymbolTable
	fn   *FuncDecl // function whose body is being checked, or nil

	// globalInits tracks which globals already carry an initialiser, so
	// a second initialised declaration is a redefinition while tentative
	// re-declarations stay legal.
	globalInits map[SymbolID]bool
}

// Check runs semantic analysis over the translation unit and returns the
// populated symbol table for the code generator.
func Check(ctx *Context, unit []Stmt) (*SymbolTable, error) {
	c := &Checker{ctx: ctx, syms: NewSymbolTable(), globalInits: make(map[SymbolID]bool)}
	for _, ext := range unit {
		switch n := ext.(type) {
		case *FuncDecl:
			if err := c.checkFunc(n); err != nil {
				return nil, err
			}
		case *DeclStmt:
			if err := c.checkGlobals(n); err != nil {
				return nil, err
			}
		default:
			return nil, c.ctx.errorf(CatInternal, Pos{}, "unexpected top-level node %T", ext)
		}
	}
	return c.syms, nil
}

func (c *Checker) errorf(pos Pos, format string, args ...any) error {
	return c.ctx.errorf(CatType, pos, format, args...)
}

//  Declarations

func (c *Checker) checkFunc(f *FuncDecl) error {
	if id, found := c.syms.Lookup(f.Name); found {
		prev := c.syms.Sym(id)
		if prev.Storage == StorFunc && prev.Defined && f.Body != nil {
			return c.errorf(f.NamePos, "redefinition of function %q", f.Name)
		}
	}
	id, ok := c.syms.DeclareFunc(f.Name, f.FuncType, f.Body != nil)
	if !ok {
		return c.errorf(f.NamePos, "%q redeclared with an incompatible type", f.Name)
	}
	f.Sym = id

	if f.Body == nil {
		return nil
	}

	c.fn = f
	c.syms.EnterFunction()
	for i, pname := range f.ParamNames {
		if pname == "" {
			return c.errorf(f.NamePos, "parameter %d of %q needs a name", i+1, f.Name)
		}
		pid, ok := c.syms.DeclareParam(pname, f.FuncType.Params[i], i)
		if !ok {
			return c.errorf(f.NamePos, "duplicate parameter %q", pname)
		}
		f.ParamSyms = append(f.ParamSyms, pid)
	}
	if err := c.checkBlock(f.Body); err != nil {
		return err
	}
	f.FrameSize = c.syms.ExitFunction()
	c.fn = nil
	return nil
}

func (c *Checker) checkGlobals(d *DeclStmt) error {
	for _, v := range d.Decls {
		if v.DeclType.Kind == TVoid {
			return c.errorf(v.NamePos, "variable %q declared void", v.Name)
		}
		id, ok := c.syms.DeclareGlobal(v.Name, v.DeclType, true)
		if !ok {
			return c.errorf(v.NamePos, "%q redeclared with an incompatible type", v.Name)
		}
		v.Sym = id

		if v.Init == nil {
			continue
		}
		if c.globalInits[id] {
			return c.errorf(v.NamePos, "redefinition of global %q", v.Name)
		}
		c.globalInits[id] = true
		if _, isConst := foldConstant(v.Init); !isConst {
			return c.errorf(v.NamePos, "initialiser for global %q is not a constant", v.Name)
		}
		it, err := c.checkExpr(v.Init)
		if err != nil {
			return err
		}
		if !assignable(v.DeclType, it.decay()) {
			return c.errorf(v.NamePos, "cannot initialise %s with a value of type %s", v.DeclType, it)
		}
	}
	return nil
}

// foldConstant resolves an integer literal, optionally under unary minus.
func foldConstant(e Expr) (int64, bool) {
	switch n := e.(type) {
	case *Literal:
		return n.Value, true
	case *UnaryExpr:
		if n.Op == MINUS {
			if lit, ok := n.Operand.(*Literal); ok {
				return -lit.Value, true
			}
		}
	}
	return 0, false
}

//  Statements

func (c *Checker) checkStmt(s Stmt) error {
	switch n := s.(type) {
	case *DeclStmt:
		return c.checkLocalDecls(n)
	case *ExprStmt:
		_, err := c.checkExpr(n.X)
		return err
	case *ReturnStmt:
		return c.checkReturn(n)
	case *BlockStmt:
		c.syms.EnterScope()
		defer c.syms.ExitScope()
		return c.checkBlock(n)
	case *IfStmt:
		if err := c.checkCond(n.Cond); err != nil {
			return err
		}
		if err := c.checkStmt(n.Body); err != nil {
			return err
		}
		if n.Else != nil {
			return c.checkStmt(n.Else)
		}
		return nil
	case *WhileStmt:
		if err := c.checkCond(n.Cond); err != nil {
			return err
		}
		return c.checkStmt(n.Body)
	case *ForStmt:
		// The init declaration is scoped to the loop.
		c.syms.EnterScope()
		defer c.syms.ExitScope()
		if n.Init != nil {
			if err := c.checkStmt(n.Init); err != nil {
				return err
			}
		}
		if n.Cond != nil {
			if err := c.checkCond(n.Cond); err != nil {
				return err
			}
		}
		if n.Post != nil {
			if _, err := c.checkExpr(n.Post); err != nil {
				return err
			}
		}
		return c.checkStmt(n.Body)
	}
	return c.ctx.errorf(CatInternal, Pos{}, "unexpected statement node %T", s)
}

// checkBlock walks a block's statements without pushing a scope; callers
// that need one (checkStmt, checkFunc for the parameter scope) push it.
func (c *Checker) checkBlock(b *BlockStmt) error {
	for _, s := range b.Stmts {
		if err := c.checkStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) checkLocalDecls(d *DeclStmt) error {
	for _, v := range d.Decls {
		if v.DeclType.Kind == TVoid {
			return c.errorf(v.NamePos, "variable %q declared void", v.Name)
		}
		if v.Init != nil && v.DeclType.Kind == TArray {
			return c.errorf(v.NamePos, "array %q cannot have an initialiser", v.Name)
		}
		var it *Type
		if v.Init != nil {
			// The initialiser is checked before the name is visible:
			// int x = x; is an error.
			t, err := c.checkExpr(v.Init)
			if err != nil {
				return err
			}
			it = t.decay()
		}
		id, ok := c.syms.DeclareLocal(v.Name, v.DeclType)
		if !ok {
			return c.errorf(v.NamePos, "%q redeclared with an incompatible type", v.Name)
		}
		v.Sym = id
		if it != nil && !assignable(v.DeclType, it) {
			return c.errorf(v.NamePos, "cannot initialise %s with a value of type %s", v.DeclType, it)
		}
	}
	return nil
}

func (c *Checker) checkReturn(r *ReturnStmt) error {
	if c.fn == nil {
		return c.errorf(r.Pos, "return outside of a function")
	}
	ret := c.fn.FuncType.Ret
	if r.X == nil {
		if ret.Kind != TVoid {
			return c.errorf(r.Pos, "function %q must return a value of type %s", c.fn.Name, ret)
		}
		return nil
	}
	if ret.Kind == TVoid {
		return c.errorf(r.Pos, "void function %q cannot return a value", c.fn.Name)
	}
	t, err := c.checkExpr(r.X)
	if err != nil {
		return err
	}
	if !assignable(ret, t.decay()) {
		return c.errorf(r.Pos, "cannot return %s from a function returning %s", t, ret)
	}
	return nil
}

// checkCond types a control-flow condition; any scalar converts to a
// boolean by comparison against zero.
func (c *Checker) checkCond(e Expr) error {
	t, err := c.checkExpr(e)
	if err != nil {
		return err
	}
	if !t.decay().isScalar() {
		return c.errorf(e.Pos(), "condition has non-scalar type %s", t)
	}
	return nil
}

//  Expressions

// checkExpr types e, resolving any names inside it. The returned type is
// the one recorded on the node (arrays not yet decayed).
func (c *Checker) checkExpr(e Expr) (*Type, error) {
	switch n := e.(type) {
	case *Literal:
		if n.Value >= -2147483648 && n.Value <= 2147483647 {
			n.setType(typeInt)
		} else {
			n.setType(typeLong)
		}

	case *StringLit:
		n.setType(pointerTo(typeChar))

	case *VarRef:
		id, ok := c.syms.Lookup(n.Name)
		if !ok {
			return nil, c.errorf(n.pos, "undefined symbol %q", n.Name)
		}
		n.Sym = id
		n.setType(c.syms.Sym(id).Type)

	case *UnaryExpr:
		t, err := c.checkUnary(n)
		if err != nil {
			return nil, err
		}
		n.setType(t)

	case *PostfixExpr:
		t, err := c.checkIncDec(n.Operand, n.Op, n.pos)
		if err != nil {
			return nil, err
		}
		n.setType(t)

	case *BinaryExpr:
		t, err := c.checkBinary(n)
		if err != nil {
			return nil, err
		}
		n.setType(t)

	case *LogicalExpr:
		for _, side := range []Expr{n.Left, n.Right} {
			t, err := c.checkExpr(side)
			if err != nil {
				return nil, err
			}
			if !t.decay().isScalar() {
				return nil, c.errorf(side.Pos(), "operand of %s has non-scalar type %s", n.Op, t)
			}
		}
		n.setType(typeInt)

	case *AssignExpr:
		t, err := c.checkAssign(n)
		if err != nil {
			return nil, err
		}
		n.setType(t)

	case *CondExpr:
		t, err := c.checkCondExpr(n)
		if err != nil {
			return nil, err
		}
		n.setType(t)

	case *IndexExpr:
		bt, err := c.checkExpr(n.Base)
		if err != nil {
			return nil, err
		}
		bt = bt.decay()
		if bt.Kind != TPointer {
			return nil, c.errorf(n.pos, "subscript of non-pointer type %s", bt)
		}
		it, err := c.checkExpr(n.Index)
		if err != nil {
			return nil, err
		}
		if !it.decay().isInteger() {
			return nil, c.errorf(n.Index.Pos(), "array index has non-integer type %s", it)
		}
		n.setType(bt.Elem)

	case *CallExpr:
		t, err := c.checkCall(n)
		if err != nil {
			return nil, err
		}
		n.setType(t)

	case *CommaExpr:
		if _, err := c.checkExpr(n.Left); err != nil {
			return nil, err
		}
		t, err := c.checkExpr(n.Right)
		if err != nil {
			return nil, err
		}
		n.setType(t.decay())

	case *SizeofExpr:
		t := n.TypeName
		if n.Operand != nil {
			// sizeof does not decay its operand: sizeof(arr) is the
			// whole array's size.
			ot, err := c.checkExpr(n.Operand)
			if err != nil {
				return nil, err
			}
			t = ot
		}
		if t.Size() == 0 {
			return nil, c.errorf(n.pos, "sizeof applied to incomplete type %s", t)
		}
		n.Size = int64(t.Size())
		n.setType(typeLong)

	default:
		return nil, c.ctx.errorf(CatInternal, Pos{}, "unexpected expression node %T", e)
	}
	return e.Type(), nil
}

func (c *Checker) checkUnary(n *UnaryExpr) (*Type, error) {
	if n.Op == PLUS_PLUS || n.Op == MINUS_MINUS {
		return c.checkIncDec(n.Operand, n.Op, n.pos)
	}

	t, err := c.checkExpr(n.Operand)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case MINUS, TILDE:
		if !t.decay().isInteger() {
			return nil, c.errorf(n.pos, "operand of %s has non-integer type %s", n.Op, t)
		}
		return promote(t), nil
	case NOT:
		if !t.decay().isScalar() {
			return nil, c.errorf(n.pos, "operand of ! has non-scalar type %s", t)
		}
		return typeInt, nil
	case STAR:
		dt := t.decay()
		if dt.Kind != TPointer {
			return nil, c.errorf(n.pos, "cannot dereference non-pointer type %s", t)
		}
		if dt.Elem.Kind == TVoid {
			return nil, c.errorf(n.pos, "cannot dereference void pointer")
		}
		return dt.Elem, nil
	case AND:
		if !isLvalue(n.Operand) {
			return nil, c.errorf(n.pos, "cannot take the address of a non-lvalue")
		}
		// The operand keeps its declared type: &arr is pointer-to-array.
		return pointerTo(t), nil
	}
	return nil, c.ctx.errorf(CatInternal, n.pos, "unexpected unary operator %s", n.Op)
}

// checkIncDec covers prefix and postfix ++/--.
func (c *Checker) checkIncDec(operand Expr, op TokenType, pos Pos) (*Type, error) {
	if !isLvalue(operand) {
		return nil, c.errorf(pos, "operand of %s is not an lvalue", op)
	}
	t, err := c.checkExpr(operand)
	if err != nil {
		return nil, err
	}
	if !t.isScalar() {
		return nil, c.errorf(pos, "operand of %s has non-scalar type %s", op, t)
	}
	return t, nil
}

func (c *Checker) checkBinary(n *BinaryExpr) (*Type, error) {
	lt, err := c.checkExpr(n.Left)
	if err != nil {
		return nil, err
	}
	rt, err := c.checkExpr(n.Right)
	if err != nil {
		return nil, err
	}
	lt, rt = lt.decay(), rt.decay()

	switch n.Op {
	case PLUS:
		switch {
		case lt.isInteger() && rt.isInteger():
			return usualArith(lt, rt), nil
		case lt.Kind == TPointer && rt.isInteger():
			return lt, nil
		case lt.isInteger() && rt.Kind == TPointer:
			return rt, nil
		}
	case MINUS:
		switch {
		case lt.isInteger() && rt.isInteger():
			return usualArith(lt, rt), nil
		case lt.Kind == TPointer && rt.isInteger():
			return lt, nil
		case lt.Kind == TPointer && rt.Kind == TPointer:
			if !lt.Elem.Equal(rt.Elem) {
				return nil, c.errorf(n.pos, "cannot subtract %s from %s", rt, lt)
			}
			return typeLong, nil
		}
	case STAR, SLASH, PERCENT:
		if lt.isInteger() && rt.isInteger() {
			if n.Op != STAR {
				if v, isConst := foldConstant(n.Right); isConst && v == 0 {
					return nil, c.errorf(n.pos, "division by zero")
				}
			}
			return usualArith(lt, rt), nil
		}
	case EQUALS, NOT_EQ, LESS, GREATER, LESS_EQ, GREATER_EQ:
		if lt.isInteger() && rt.isInteger() {
			return typeInt, nil
		}
		if lt.Kind == TPointer && rt.Kind == TPointer {
			if lt.Equal(rt) || lt.Elem.Kind == TVoid || rt.Elem.Kind == TVoid {
				return typeInt, nil
			}
		}
	case AND, PIPE, CARET:
		if lt.isInteger() && rt.isInteger() {
			return usualArith(lt, rt), nil
		}
	case SHL_OP, SHR_OP:
		if lt.isInteger() && rt.isInteger() {
			return promote(lt), nil
		}
	}
	return nil, c.errorf(n.pos, "invalid operands to %s: %s and %s", n.Op, lt, rt)
}

func (c *Checker) checkAssign(n *AssignExpr) (*Type, error) {
	if !isLvalue(n.Left) {
		return nil, c.errorf(n.pos, "assignment target is not an lvalue")
	}
	lt, err := c.checkExpr(n.Left)
	if err != nil {
		return nil, err
	}
	if lt.Kind == TArray {
		return nil, c.errorf(n.pos, "array type %s is not assignable", lt)
	}
	rt, err := c.checkExpr(n.Right)
	if err != nil {
		return nil, err
	}
	rt = rt.decay()

	switch n.Op {
	case ASSIGN:
		if !assignable(lt, rt) {
			return nil, c.errorf(n.pos, "cannot assign %s to %s", rt, lt)
		}
	case PLUS_ASSIGN, MINUS_ASSIGN:
		ok := (lt.isInteger() && rt.isInteger()) || (lt.Kind == TPointer && rt.isInteger())
		if !ok {
			return nil, c.errorf(n.pos, "invalid operands to %s: %s and %s", n.Op, lt, rt)
		}
	case STAR_ASSIGN, SLASH_ASSIGN, PERCENT_ASSIGN:
		if !lt.isInteger() || !rt.isInteger() {
			return nil, c.errorf(n.pos, "invalid operands to %s: %s and %s", n.Op, lt, rt)
		}
		if n.Op != STAR_ASSIGN {
			if v, isConst := foldConstant(n.Right); isConst && v == 0 {
				return nil, c.errorf(n.pos, "division by zero")
			}
		}
	}
	return lt, nil
}

func (c *Checker) checkCondExpr(n *CondExpr) (*Type, error) {
	if err := c.checkCond(n.Cond); err != nil {
		return nil, err
	}
	tt, err := c.checkExpr(n.Then)
	if err != nil {
		return nil, err
	}
	et, err := c.checkExpr(n.Else)
	if err != nil {
		return nil, err
	}
	tt, et = tt.decay(), et.decay()
	if tt.isInteger() && et.isInteger() {
		return usualArith(tt, et), nil
	}
	if tt.Kind == TPointer && et.Kind == TPointer {
		if tt.Equal(et) {
			return tt, nil
		}
		if tt.Elem.Kind == TVoid {
			return et, nil
		}
		if et.Elem.Kind == TVoid {
			return tt, nil
		}
	}
	return nil, c.errorf(n.pos, "mismatched branches of ?: (%s and %s)", tt, et)
}

func (c *Checker) checkCall(n *CallExpr) (*Type, error) {
	id, ok := c.syms.Lookup(n.Name)
	if !ok {
		return nil, c.errorf(n.pos, "undefined symbol %q", n.Name)
	}
	sym := c.syms.Sym(id)
	if sym.Type.Kind != TFunc {
		return nil, c.errorf(n.pos, "%q is not a function", n.Name)
	}
	n.Sym = id
	ft := sym.Type

	// The variadic flag comes from the callee's declared type, never
	// from the argument count.
	if ft.Variadic {
		if len(n.Args) < len(ft.Params) {
			return nil, c.errorf(n.pos, "%q expects at least %d arguments, got %d", n.Name, len(ft.Params), len(n.Args))
		}
	} else if len(n.Args) != len(ft.Params) {
		return nil, c.errorf(n.pos, "%q expects %d arguments, got %d", n.Name, len(ft.Params), len(n.Args))
	}

	for i, arg := range n.Args {
		at, err := c.checkExpr(arg)
		if err != nil {
			return nil, err
		}
		if i < len(ft.Params) && !assignable(ft.Params[i], at.decay()) {
			return nil, c.errorf(arg.Pos(), "argument %d of %q has type %s, expected %s", i+1, n.Name, at, ft.Params[i])
		}
	}

	if c.fn != nil {
		c.fn.NonLeaf = true
	}
	return ft.Ret, nil
}

//  Helpers

// isLvalue reports whether e designates addressable storage: a named
// variable, a dereference, or a subscript.
func isLvalue(e Expr) bool {
	switch n := e.(type) {
	case *VarRef:
		return true
	case *UnaryExpr:
		return n.Op == STAR
	case *IndexExpr:
		return true
	}
	return false
}

// promote applies the integer promotions: char widens to int.
func promote(t *Type) *Type {
	if t.Kind == TChar {
		return typeInt
	}
	return t
}

// usualArith brings two integer operands to their common type: the wider
// of the two after promotion.
func usualArith(a, b *Type) *Type {
	a, b = promote(a), promote(b)
	if a.Kind == TLong || b.Kind == TLong {
		return typeLong
	}
	return typeInt
}

// assignable reports whether src converts implicitly to dst: between
// integer types, between identical pointers, and between void* and any
// object pointer.
func assignable(dst, src *Type) bool {
	if dst.isInteger() && src.isInteger() {
		return true
	}
	if dst.Kind == TPointer && src.Kind == TPointer {
		return dst.Equal(src) || dst.Elem.Kind == TVoid || src.Elem.Kind == TVoid
	}
	return false
}
