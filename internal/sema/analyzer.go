// Package sema walks a parsed program, resolves every identifier and type
// name against a scope chain, assigns a type descriptor to every expression,
// and rewrites NodeExprIdent nodes in place to NodeExprDecl once resolved.
// The walk mirrors the teacher's buildSymbolTables/typeCheck split
// (lang/sem/analyzer.go, lang/ysem/analyzer.go) but abandons its
// errors []string accumulation: every analysis function here returns
// (result, error) and the first error unwinds the whole pass, the same
// abort-on-error discipline internal/parser uses, since there is no
// separate "check for accumulated errors before continuing" step to design.
package sema

import (
	"fmt"

	"github.com/gmofishsauce/tauc/internal/ast"
	"github.com/gmofishsauce/tauc/internal/diag"
	"github.com/gmofishsauce/tauc/internal/symtable"
	"github.com/gmofishsauce/tauc/internal/token"
	"github.com/gmofishsauce/tauc/internal/types"
)

// Analyzer resolves one program against its own fresh root scope, type
// builder, and node-to-descriptor table.
type Analyzer struct {
	builder  *types.Builder
	descs    map[*ast.Node]*types.Desc // every analyzed expression/type node
	declDesc map[*ast.Node]*types.Desc // struct/union/enum/fun/mod decl -> its own descriptor
	scope    *symtable.Table
	funcs    []*ast.Node // enclosing fun/gen declarations, innermost last
	loops    int         // count of enclosing while/for constructs
	warnings []diag.Diagnostic
}

// New returns an analyzer with an empty root scope.
func New() *Analyzer {
	return &Analyzer{
		builder:  types.NewBuilder(),
		descs:    make(map[*ast.Node]*types.Desc),
		declDesc: make(map[*ast.Node]*types.Desc),
		scope:    symtable.NewRoot(),
	}
}

// Descs returns the node-to-type-descriptor table built by Analyze.
func (a *Analyzer) Descs() map[*ast.Node]*types.Desc { return a.descs }

// Warnings returns the non-fatal diagnostics accumulated by Analyze.
func (a *Analyzer) Warnings() []diag.Diagnostic { return a.warnings }

// Builder returns the type builder Analyze resolved every descriptor
// against, so a downstream pass (internal/bytecode's emitter) can re-derive
// a declaration's type without its own symbol table.
func (a *Analyzer) Builder() *types.Builder { return a.builder }

// Analyze resolves every top-level declaration in prog. All declaration
// names are installed into the root scope before any body is analyzed, so
// forward references and recursive/mutually-recursive calls resolve.
func (a *Analyzer) Analyze(prog *ast.Node) error {
	for _, d := range prog.List {
		if err := a.declareLocal(d.Name, d); err != nil {
			return err
		}
	}
	for _, d := range prog.List {
		if err := a.analyzeDecl(d); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) declareLocal(name string, node *ast.Node) error {
	if _, redecl := a.scope.Insert(name, node); redecl {
		return fmt.Errorf("%s: redeclaration of %q", node.Tok.Loc, name)
	}
	if a.scope.IsShadowing(name) {
		a.warnings = append(a.warnings, diag.Warning(node.Tok.Loc, "shadowed declaration",
			fmt.Sprintf("%q shadows a declaration in an enclosing scope", name)))
	}
	return nil
}

func (a *Analyzer) inChildScope(fn func() error) error {
	prev := a.scope
	a.scope = prev.NewChild()
	err := fn()
	a.scope = prev
	return err
}

// ---- Declarations --------------------------------------------------------

func (a *Analyzer) analyzeDecl(d *ast.Node) error {
	switch d.Kind {
	case ast.NodeVarDecl, ast.NodeConstDecl:
		return a.analyzeGlobalVarDecl(d)
	case ast.NodeFunDecl:
		return a.analyzeFunDecl(d)
	case ast.NodeStructDecl, ast.NodeUnionDecl:
		_, err := a.structDesc(d)
		return err
	case ast.NodeEnumDecl:
		a.enumDesc(d)
		return nil
	case ast.NodeModDecl:
		return a.analyzeModDecl(d)
	}
	return fmt.Errorf("%s: internal error: unhandled declaration kind", d.Tok.Loc)
}

func (a *Analyzer) analyzeGlobalVarDecl(d *ast.Node) error {
	vtype, err := a.resolveType(d.A)
	if err != nil {
		return err
	}
	if d.B == nil {
		return nil
	}
	itype, err := a.analyzeExpr(d.B)
	if err != nil {
		return err
	}
	if !rvalue(itype).ImplicitlyConvertibleTo(vtype.RemoveMut()) {
		return fmt.Errorf("%s: cannot initialize %q of type %s with a value of type %s", d.Tok.Loc, d.Name, vtype, itype)
	}
	return nil
}

func (a *Analyzer) analyzeFunDecl(d *ast.Node) error {
	if _, err := a.funcDesc(d); err != nil {
		return err
	}
	if d.B == nil {
		return nil // extern: no body to analyze
	}
	return a.inChildScope(func() error {
		for _, p := range d.List {
			if p.Name == "" {
				continue // name-less extern "cdecl" variadic marker
			}
			if err := a.declareLocal(p.Name, p); err != nil {
				return err
			}
			if p.B != nil {
				if _, err := a.analyzeExpr(p.B); err != nil {
					return err
				}
			}
		}
		a.funcs = append(a.funcs, d)
		err := a.analyzeBlock(d.B)
		a.funcs = a.funcs[:len(a.funcs)-1]
		return err
	})
}

func (a *Analyzer) analyzeModDecl(d *ast.Node) error {
	return a.inChildScope(func() error {
		for _, m := range d.List {
			if err := a.declareLocal(m.Name, m); err != nil {
				return err
			}
		}
		for _, m := range d.List {
			if err := a.analyzeDecl(m); err != nil {
				return err
			}
		}
		return nil
	})
}

// ---- Statements -----------------------------------------------------------

func (a *Analyzer) analyzeBlock(n *ast.Node) error {
	for _, stmt := range n.List {
		if err := a.analyzeStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) analyzeStmt(n *ast.Node) error {
	switch n.Kind {
	case ast.NodeBlock:
		return a.inChildScope(func() error { return a.analyzeBlock(n) })
	case ast.NodeVarDecl, ast.NodeConstDecl:
		return a.analyzeLocalVarDecl(n)
	case ast.NodeIf:
		return a.analyzeIf(n)
	case ast.NodeWhile:
		return a.analyzeWhile(n)
	case ast.NodeFor:
		return a.analyzeFor(n)
	case ast.NodeBreak:
		if a.loops == 0 {
			return fmt.Errorf("%s: break outside a loop", n.Tok.Loc)
		}
		return nil
	case ast.NodeContinue:
		if a.loops == 0 {
			return fmt.Errorf("%s: continue outside a loop", n.Tok.Loc)
		}
		return nil
	case ast.NodeDefer:
		_, err := a.analyzeExpr(n.A)
		return err
	case ast.NodeReturn:
		return a.analyzeReturn(n)
	case ast.NodeYield:
		return a.analyzeYield(n)
	case ast.NodeExprStmt:
		_, err := a.analyzeExpr(n.A)
		return err
	}
	return fmt.Errorf("%s: internal error: unhandled statement kind", n.Tok.Loc)
}

func (a *Analyzer) analyzeLocalVarDecl(n *ast.Node) error {
	vtype, err := a.resolveType(n.A)
	if err != nil {
		return err
	}
	if n.B != nil {
		itype, err := a.analyzeExpr(n.B)
		if err != nil {
			return err
		}
		if !rvalue(itype).ImplicitlyConvertibleTo(vtype.RemoveMut()) {
			return fmt.Errorf("%s: cannot initialize %q of type %s with a value of type %s", n.Tok.Loc, n.Name, vtype, itype)
		}
	}
	return a.declareLocal(n.Name, n)
}

func (a *Analyzer) analyzeIf(n *ast.Node) error {
	condType, err := a.analyzeExpr(n.A)
	if err != nil {
		return err
	}
	if rvalue(condType).Kind != types.KindBool {
		return fmt.Errorf("%s: if condition must be bool, got %s", n.A.Tok.Loc, condType)
	}
	if err := a.inChildScope(func() error { return a.analyzeBlock(n.B) }); err != nil {
		return err
	}
	if n.C == nil {
		return nil
	}
	if n.C.Kind == ast.NodeIf {
		return a.analyzeIf(n.C)
	}
	return a.inChildScope(func() error { return a.analyzeBlock(n.C) })
}

func (a *Analyzer) analyzeWhile(n *ast.Node) error {
	condType, err := a.analyzeExpr(n.A)
	if err != nil {
		return err
	}
	if rvalue(condType).Kind != types.KindBool {
		return fmt.Errorf("%s: while condition must be bool, got %s", n.A.Tok.Loc, condType)
	}
	a.loops++
	err = a.inChildScope(func() error { return a.analyzeBlock(n.B) })
	a.loops--
	return err
}

// analyzeFor resolves the loop's lo..hi range and binds the loop variable as
// a read-only local (ref T, no mut) of the range's promoted integer type for
// the body. The
// for-loop node itself stands in as the loop variable's declaration, since
// there is no separate param/var node for it.
func (a *Analyzer) analyzeFor(n *ast.Node) error {
	elemType, err := a.analyzeExpr(n.A)
	if err != nil {
		return err
	}
	a.declDesc[n] = elemType
	a.loops++
	err = a.inChildScope(func() error {
		if err := a.declareLocal(n.Name, n); err != nil {
			return err
		}
		return a.analyzeBlock(n.B)
	})
	a.loops--
	return err
}

func (a *Analyzer) analyzeReturn(n *ast.Node) error {
	if len(a.funcs) == 0 {
		return fmt.Errorf("%s: return outside a function", n.Tok.Loc)
	}
	fn := a.funcs[len(a.funcs)-1]
	if fn.IsGen {
		return fmt.Errorf("%s: generators use yield, not return", n.Tok.Loc)
	}
	retType, err := a.returnTypeOf(fn)
	if err != nil {
		return err
	}
	if n.A == nil {
		if retType.Kind != types.KindUnit {
			return fmt.Errorf("%s: function returns %s, but return has no value", n.Tok.Loc, retType)
		}
		return nil
	}
	vtype, err := a.analyzeExpr(n.A)
	if err != nil {
		return err
	}
	if !rvalue(vtype).ImplicitlyConvertibleTo(retType) {
		return fmt.Errorf("%s: cannot return a value of type %s from a function returning %s", n.Tok.Loc, vtype, retType)
	}
	return nil
}

func (a *Analyzer) analyzeYield(n *ast.Node) error {
	if len(a.funcs) == 0 || !a.funcs[len(a.funcs)-1].IsGen {
		return fmt.Errorf("%s: yield outside a generator", n.Tok.Loc)
	}
	fn := a.funcs[len(a.funcs)-1]
	yieldType, err := a.returnTypeOf(fn)
	if err != nil {
		return err
	}
	vtype, err := a.analyzeExpr(n.A)
	if err != nil {
		return err
	}
	if !rvalue(vtype).ImplicitlyConvertibleTo(yieldType) {
		return fmt.Errorf("%s: cannot yield a value of type %s from a generator yielding %s", n.Tok.Loc, vtype, yieldType)
	}
	return nil
}

// ---- Expressions ----------------------------------------------------------

func (a *Analyzer) analyzeExpr(n *ast.Node) (*types.Desc, error) {
	result, err := a.analyzeExprKind(n)
	if err != nil {
		return nil, err
	}
	a.descs[n] = result
	return result, nil
}

func (a *Analyzer) analyzeExprKind(n *ast.Node) (*types.Desc, error) {
	switch n.Kind {
	case ast.NodeLiteral:
		return a.literalType(n)
	case ast.NodeExprIdent:
		return a.analyzeIdent(n)
	case ast.NodeExprDecl:
		return a.identDeclType(n.Decl)
	case ast.NodeUnary:
		return a.analyzeUnary(n)
	case ast.NodeBinary:
		return a.analyzeBinary(n)
	case ast.NodeAssign:
		return a.analyzeAssign(n)
	case ast.NodeCall:
		return a.analyzeCall(n)
	case ast.NodeIndex:
		return a.analyzeIndex(n)
	case ast.NodeMember:
		return a.analyzeMember(n)
	case ast.NodeTypeOp:
		return a.analyzeTypeOp(n)
	case ast.NodeRange:
		return a.analyzeRange(n)
	}
	return nil, fmt.Errorf("%s: internal error: unhandled expression kind", n.Tok.Loc)
}

// analyzeIdent resolves a bare identifier and rewrites it in place to
// NodeExprDecl, the one node mutation the analyzer performs.
func (a *Analyzer) analyzeIdent(n *ast.Node) (*types.Desc, error) {
	name := n.Ident()
	sym, _, ok := a.scope.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%s: undefined symbol %q", n.Tok.Loc, name)
	}
	switch sym.Decl.Kind {
	case ast.NodeVarDecl, ast.NodeConstDecl, ast.NodeParam, ast.NodeFunDecl, ast.NodeFor:
		t, err := a.identDeclType(sym.Decl)
		if err != nil {
			return nil, err
		}
		n.Kind = ast.NodeExprDecl
		n.Decl = sym.Decl
		return t, nil
	default:
		return nil, fmt.Errorf("%s: %q is not an expression", n.Tok.Loc, name)
	}
}

// literalType assigns the default or suffix-directed type for a literal
// token: an unsuffixed integer literal is i32, an unsuffixed float is f64,
// a char literal is u8, a string literal is a pointer to u8. Every literal
// is const, since it names a value rather than a storage location.
func (a *Analyzer) literalType(n *ast.Node) (*types.Desc, error) {
	var prim *types.Desc
	switch n.Tok.Kind {
	case token.LitInt:
		k, ok := map[string]types.Kind{
			"i8": types.KindI8, "i16": types.KindI16, "i32": types.KindI32, "i64": types.KindI64, "iz": types.KindISize,
			"u8": types.KindU8, "u16": types.KindU16, "u32": types.KindU32, "u64": types.KindU64, "uz": types.KindUSize,
		}[n.StrVal]
		if !ok {
			k = types.KindI32
		}
		prim = a.builder.Primitive(k)
	case token.LitFloat:
		prim = a.builder.Primitive(types.KindF64)
	case token.LitChar:
		prim = a.builder.Primitive(types.KindU8)
	case token.LitBool:
		prim = a.builder.Primitive(types.KindBool)
	case token.LitNull:
		prim = a.builder.Primitive(types.KindNull)
	case token.LitString:
		u8 := a.builder.Primitive(types.KindU8)
		p, err := a.builder.Ptr(u8)
		if err != nil {
			return nil, err
		}
		prim = p
	default:
		return nil, fmt.Errorf("%s: internal error: unrecognized literal token", n.Tok.Loc)
	}
	return a.builder.Const(prim)
}

func (a *Analyzer) analyzeUnary(n *ast.Node) (*types.Desc, error) {
	operandType, err := a.analyzeExpr(n.A)
	if err != nil {
		return nil, err
	}
	switch n.UnaryOp {
	case ast.UnaryPreInc, ast.UnaryPreDec, ast.UnaryPostInc, ast.UnaryPostDec:
		if !isRefMut(operandType) || !operandType.Elem.Elem.IsArithmetic() {
			return nil, fmt.Errorf("%s: %s requires a mutable arithmetic operand, got %s", n.Tok.Loc, incDecName(n.UnaryOp), operandType)
		}
		return rvalue(operandType), nil
	case ast.UnaryPlus, ast.UnaryMinus, ast.UnaryBitNot:
		rv := rvalue(operandType)
		if !rv.IsArithmetic() {
			return nil, fmt.Errorf("%s: operator requires an arithmetic operand, got %s", n.Tok.Loc, operandType)
		}
		return rv, nil
	case ast.UnaryLogNot:
		rv := rvalue(operandType)
		if rv.Kind != types.KindBool {
			return nil, fmt.Errorf("%s: ! requires a bool operand, got %s", n.Tok.Loc, operandType)
		}
		return rv, nil
	case ast.UnaryDeref:
		rv := rvalue(operandType)
		if rv.Kind != types.KindPtr {
			return nil, fmt.Errorf("%s: * requires a pointer operand, got %s", n.Tok.Loc, operandType)
		}
		return a.builder.Ref(rv.Elem)
	case ast.UnaryAddr:
		if operandType.Kind != types.KindRef {
			return nil, fmt.Errorf("%s: & requires an addressable operand, got %s", n.Tok.Loc, operandType)
		}
		return a.builder.Ptr(operandType.Elem)
	}
	return nil, fmt.Errorf("%s: internal error: unhandled unary operator", n.Tok.Loc)
}

func incDecName(op ast.UnaryOp) string {
	if op == ast.UnaryPreInc || op == ast.UnaryPostInc {
		return "++"
	}
	return "--"
}

func (a *Analyzer) analyzeBinary(n *ast.Node) (*types.Desc, error) {
	lt, err := a.analyzeExpr(n.A)
	if err != nil {
		return nil, err
	}
	rt, err := a.analyzeExpr(n.B)
	if err != nil {
		return nil, err
	}
	l, r := rvalue(lt), rvalue(rt)

	wrapConst := func(d *types.Desc) *types.Desc {
		if lt.Kind == types.KindConst && rt.Kind == types.KindConst {
			if w, err := a.builder.Const(d); err == nil {
				return w
			}
		}
		return d
	}

	switch n.BinaryOp {
	case ast.BinAdd, ast.BinSub, ast.BinMul, ast.BinDiv, ast.BinMod:
		if !l.IsArithmetic() || !r.IsArithmetic() {
			return nil, fmt.Errorf("%s: arithmetic operator requires arithmetic operands, got %s and %s", n.Tok.Loc, lt, rt)
		}
		a.warnMixedSign(n, l, r)
		return wrapConst(promote(a.builder, l, r)), nil
	case ast.BinBitAnd, ast.BinBitOr, ast.BinBitXor:
		if !l.IsInteger() || !r.IsInteger() {
			return nil, fmt.Errorf("%s: bitwise operator requires integer operands, got %s and %s", n.Tok.Loc, lt, rt)
		}
		a.warnMixedSign(n, l, r)
		return wrapConst(promote(a.builder, l, r)), nil
	case ast.BinShl, ast.BinShr:
		if !l.IsInteger() || !r.IsInteger() {
			return nil, fmt.Errorf("%s: shift operator requires integer operands, got %s and %s", n.Tok.Loc, lt, rt)
		}
		return wrapConst(l), nil
	case ast.BinLogAnd, ast.BinLogOr:
		if l.Kind != types.KindBool || r.Kind != types.KindBool {
			return nil, fmt.Errorf("%s: logical operator requires bool operands, got %s and %s", n.Tok.Loc, lt, rt)
		}
		return wrapConst(a.builder.Primitive(types.KindBool)), nil
	case ast.BinEq, ast.BinNe, ast.BinLt, ast.BinLe, ast.BinGt, ast.BinGe:
		if !l.IsArithmetic() || !r.IsArithmetic() {
			return nil, fmt.Errorf("%s: comparison requires arithmetic operands, got %s and %s", n.Tok.Loc, lt, rt)
		}
		a.warnMixedSign(n, l, r)
		return wrapConst(a.builder.Primitive(types.KindBool)), nil
	}
	return nil, fmt.Errorf("%s: internal error: unhandled binary operator", n.Tok.Loc)
}

func (a *Analyzer) warnMixedSign(n *ast.Node, l, r *types.Desc) {
	if l.IsInteger() && r.IsInteger() && l.IsSigned() != r.IsSigned() {
		a.warnings = append(a.warnings, diag.Warning(n.Tok.Loc, "mixed signedness",
			fmt.Sprintf("combining %s with %s mixes signed and unsigned operands", l, r)))
	}
}

func (a *Analyzer) analyzeAssign(n *ast.Node) (*types.Desc, error) {
	lt, err := a.analyzeExpr(n.A)
	if err != nil {
		return nil, err
	}
	rt, err := a.analyzeExpr(n.B)
	if err != nil {
		return nil, err
	}
	if !isRefMut(lt) {
		return nil, fmt.Errorf("%s: assignment target must be a mutable variable, got %s", n.Tok.Loc, lt)
	}
	target := lt.Elem.Elem
	if !rvalue(rt).ImplicitlyConvertibleTo(target) {
		return nil, fmt.Errorf("%s: cannot assign a value of type %s to %s", n.Tok.Loc, rt, target)
	}
	return lt, nil
}

func (a *Analyzer) analyzeCall(n *ast.Node) (*types.Desc, error) {
	calleeType, err := a.analyzeExpr(n.A)
	if err != nil {
		return nil, err
	}
	fn := calleeType.Underlying()
	if !fn.IsInvokable() {
		return nil, fmt.Errorf("%s: %s is not callable", n.Tok.Loc, calleeType)
	}

	minArgs := len(fn.Params)
	if n.A.Kind == ast.NodeExprDecl && n.A.Decl.Kind == ast.NodeFunDecl {
		minArgs = 0
		for _, p := range n.A.Decl.List {
			if p.Variadic {
				break
			}
			if p.B != nil {
				break
			}
			minArgs++
		}
	}
	cdeclVariadic := fn.Vararg && fn.ABI == "cdecl"
	if len(n.List) < minArgs {
		return nil, fmt.Errorf("%s: too few arguments: expected at least %d, got %d", n.Tok.Loc, minArgs, len(n.List))
	}
	if len(n.List) > len(fn.Params) && !cdeclVariadic {
		return nil, fmt.Errorf("%s: too many arguments: expected at most %d, got %d", n.Tok.Loc, len(fn.Params), len(n.List))
	}

	for i, arg := range n.List {
		at, err := a.analyzeExpr(arg)
		if err != nil {
			return nil, err
		}
		if i >= len(fn.Params) {
			continue // cdecl variadic tail: no static check
		}
		if !rvalue(at).ImplicitlyConvertibleTo(fn.Params[i]) {
			return nil, fmt.Errorf("%s: argument %d: cannot convert %s to %s", arg.Tok.Loc, i+1, at, fn.Params[i])
		}
	}
	return fn.Return, nil
}

func (a *Analyzer) analyzeIndex(n *ast.Node) (*types.Desc, error) {
	base, err := a.analyzeExpr(n.A)
	if err != nil {
		return nil, err
	}
	idx, err := a.analyzeExpr(n.B)
	if err != nil {
		return nil, err
	}
	if !rvalue(idx).IsInteger() {
		return nil, fmt.Errorf("%s: subscript index must be an integer, got %s", n.B.Tok.Loc, idx)
	}
	rv := rvalue(base)
	switch rv.Kind {
	case types.KindArray:
		if base.Kind == types.KindRef {
			return a.builder.Ref(rv.Elem)
		}
		return rv.Elem, nil
	case types.KindPtr:
		return a.builder.Ref(rv.Elem)
	}
	return nil, fmt.Errorf("%s: %s is not subscriptable", n.Tok.Loc, base)
}

func (a *Analyzer) analyzeMember(n *ast.Node) (*types.Desc, error) {
	base, err := a.analyzeExpr(n.A)
	if err != nil {
		return nil, err
	}
	switch n.MemberOp {
	case ast.MemberDot:
		rv := rvalue(base)
		if !rv.IsComposite() {
			return nil, fmt.Errorf("%s: %s has no members", n.Tok.Loc, base)
		}
		field, ok := lookupField(rv, n.Name)
		if !ok {
			return nil, fmt.Errorf("%s: %s has no member %q", n.Tok.Loc, rv, n.Name)
		}
		if base.Kind == types.KindRef {
			return a.builder.Ref(field)
		}
		return field, nil
	case ast.MemberStarDot:
		rv := rvalue(base)
		if rv.Kind != types.KindPtr {
			return nil, fmt.Errorf("%s: *. requires a pointer operand, got %s", n.Tok.Loc, base)
		}
		pointee := rv.Elem.RemoveMut()
		if !pointee.IsComposite() {
			return nil, fmt.Errorf("%s: %s has no members", n.Tok.Loc, pointee)
		}
		field, ok := lookupField(pointee, n.Name)
		if !ok {
			return nil, fmt.Errorf("%s: %s has no member %q", n.Tok.Loc, pointee, n.Name)
		}
		return a.builder.Ref(field)
	case ast.MemberQuestion:
		rv := rvalue(base)
		if rv.Kind != types.KindOpt {
			return nil, fmt.Errorf("%s: ?. requires an optional operand, got %s", n.Tok.Loc, base)
		}
		inner := rv.Elem
		if !inner.IsComposite() {
			return nil, fmt.Errorf("%s: %s has no members", n.Tok.Loc, inner)
		}
		field, ok := lookupField(inner, n.Name)
		if !ok {
			return nil, fmt.Errorf("%s: %s has no member %q", n.Tok.Loc, inner, n.Name)
		}
		return a.builder.Opt(field)
	}
	return nil, fmt.Errorf("%s: internal error: unhandled member operator", n.Tok.Loc)
}

func lookupField(desc *types.Desc, name string) (*types.Desc, bool) {
	for _, f := range desc.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return nil, false
}

func (a *Analyzer) analyzeTypeOp(n *ast.Node) (*types.Desc, error) {
	switch n.TypeOp {
	case ast.TypeOpSizeof, ast.TypeOpAlignof:
		if _, err := a.resolveType(n.A); err != nil {
			return nil, err
		}
		return a.builder.Const(a.builder.Primitive(types.KindUSize))
	case ast.TypeOpIs:
		if _, err := a.analyzeExpr(n.A); err != nil {
			return nil, err
		}
		if _, err := a.resolveType(n.B); err != nil {
			return nil, err
		}
		return a.builder.Primitive(types.KindBool), nil
	case ast.TypeOpAs:
		if _, err := a.analyzeExpr(n.A); err != nil {
			return nil, err
		}
		return a.resolveType(n.B)
	}
	return nil, fmt.Errorf("%s: internal error: unhandled type operator", n.Tok.Loc)
}

func (a *Analyzer) analyzeRange(n *ast.Node) (*types.Desc, error) {
	loType, err := a.analyzeExpr(n.A)
	if err != nil {
		return nil, err
	}
	hiType, err := a.analyzeExpr(n.B)
	if err != nil {
		return nil, err
	}
	lo, hi := rvalue(loType), rvalue(hiType)
	if !lo.IsInteger() || !hi.IsInteger() {
		return nil, fmt.Errorf("%s: range bounds must be integers, got %s and %s", n.Tok.Loc, loType, hiType)
	}
	return promote(a.builder, lo, hi), nil
}

// ---- Types ------------------------------------------------------------

func (a *Analyzer) resolveType(n *ast.Node) (*types.Desc, error) {
	switch n.Kind {
	case ast.NodeTypeName:
		if prim, ok := a.builder.PrimitiveByName(n.Name); ok {
			return prim, nil
		}
		sym, _, ok := a.scope.Lookup(n.Name)
		if !ok {
			return nil, fmt.Errorf("%s: undefined type %q", n.Tok.Loc, n.Name)
		}
		switch sym.Decl.Kind {
		case ast.NodeStructDecl, ast.NodeUnionDecl:
			return a.structDesc(sym.Decl)
		case ast.NodeEnumDecl:
			return a.enumDesc(sym.Decl), nil
		case ast.NodeModDecl:
			return a.modDesc(sym.Decl)
		default:
			return nil, fmt.Errorf("%s: %q is not a type name", n.Tok.Loc, n.Name)
		}
	case ast.NodeTypeMod:
		inner, err := a.resolveType(n.A)
		if err != nil {
			return nil, err
		}
		switch n.Modifier {
		case ast.ModMut:
			return a.builder.Mut(inner)
		case ast.ModConst:
			return a.builder.Const(inner)
		case ast.ModPtr:
			return a.builder.Ptr(inner)
		case ast.ModRef:
			return a.builder.Ref(inner)
		case ast.ModOpt:
			return a.builder.Opt(inner)
		}
		return nil, fmt.Errorf("%s: internal error: unknown type modifier", n.Tok.Loc)
	case ast.NodeTypeArray:
		elem, err := a.resolveType(n.A)
		if err != nil {
			return nil, err
		}
		return a.builder.Array(elem, int(n.IntVal))
	case ast.NodeTypeFun:
		params := make([]*types.Desc, len(n.List))
		for i, p := range n.List {
			pt, err := a.resolveType(p)
			if err != nil {
				return nil, err
			}
			params[i] = pt
		}
		ret, err := a.resolveType(n.A)
		if err != nil {
			return nil, err
		}
		if n.IsGen {
			return a.builder.Gen(params, ret, n.Variadic, ""), nil
		}
		return a.builder.Fun(params, ret, n.Variadic, ""), nil
	}
	return nil, fmt.Errorf("%s: internal error: not a type node", n.Tok.Loc)
}

// returnTypeOf resolves a fun/gen declaration's return (or yield) type,
// defaulting to unit when no type annotation follows the parameter list.
func (a *Analyzer) returnTypeOf(fn *ast.Node) (*types.Desc, error) {
	if fn.A == nil {
		return a.builder.Primitive(types.KindUnit), nil
	}
	return a.resolveType(fn.A)
}

// identDeclType computes the type an identifier resolving to decl carries
// as an expression: var/param/for-loop identifiers wrap their declared type
// directly in ref, so mutability comes entirely from whether that type
// itself reads "mut T" (var x: i32 is a read-only binding, var x: mut i32
// is assignable); const declarations are inlined values (const T, not
// addressable, since there is no storage to take the address of); function
// names are addressable references to their own signature.
func (a *Analyzer) identDeclType(decl *ast.Node) (*types.Desc, error) {
	switch decl.Kind {
	case ast.NodeVarDecl, ast.NodeParam:
		base, err := a.resolveType(decl.A)
		if err != nil {
			return nil, err
		}
		return a.builder.Ref(base)
	case ast.NodeFor:
		elem, ok := a.declDesc[decl]
		if !ok {
			return nil, fmt.Errorf("%s: internal error: for-loop element type not yet resolved", decl.Tok.Loc)
		}
		return a.builder.Ref(elem)
	case ast.NodeConstDecl:
		base, err := a.resolveType(decl.A)
		if err != nil {
			return nil, err
		}
		return a.builder.Const(base)
	case ast.NodeFunDecl:
		fd, err := a.funcDesc(decl)
		if err != nil {
			return nil, err
		}
		return a.builder.Ref(fd)
	}
	return nil, fmt.Errorf("%s: %q does not name a variable, constant, parameter, or function", decl.Tok.Loc, decl.Ident())
}

func (a *Analyzer) structDesc(decl *ast.Node) (*types.Desc, error) {
	if d, ok := a.declDesc[decl]; ok {
		return d, nil
	}
	fields := make([]types.Field, len(decl.List))
	for i, f := range decl.List {
		ft, err := a.resolveType(f.A)
		if err != nil {
			return nil, err
		}
		fields[i] = types.Field{Name: f.Name, Type: ft}
	}
	var desc *types.Desc
	if decl.Kind == ast.NodeStructDecl {
		desc = a.builder.Struct(decl.Name, fields)
	} else {
		desc = a.builder.Union(decl.Name, fields)
	}
	a.declDesc[decl] = desc
	return desc, nil
}

func (a *Analyzer) enumDesc(decl *ast.Node) *types.Desc {
	if d, ok := a.declDesc[decl]; ok {
		return d
	}
	names := make([]string, len(decl.List))
	for i, e := range decl.List {
		names[i] = e.Name
	}
	d := a.builder.Enum(decl.Name, names)
	a.declDesc[decl] = d
	return d
}

func (a *Analyzer) funcDesc(decl *ast.Node) (*types.Desc, error) {
	if d, ok := a.declDesc[decl]; ok {
		return d, nil
	}
	params := make([]*types.Desc, 0, len(decl.List))
	for _, p := range decl.List {
		if p.Name == "" {
			if decl.ABI != "cdecl" {
				return nil, fmt.Errorf("%s: a name-less variadic parameter is only allowed in an extern \"cdecl\" function", p.Tok.Loc)
			}
			continue // name-less extern "cdecl" variadic marker carries no type
		}
		pt, err := a.resolveType(p.A)
		if err != nil {
			return nil, err
		}
		params = append(params, pt)
	}
	ret, err := a.returnTypeOf(decl)
	if err != nil {
		return nil, err
	}
	var fd *types.Desc
	if decl.IsGen {
		fd = a.builder.Gen(params, ret, decl.Variadic, decl.ABI)
	} else {
		fd = a.builder.Fun(params, ret, decl.Variadic, decl.ABI)
	}
	a.declDesc[decl] = fd
	return fd, nil
}

func (a *Analyzer) modDesc(decl *ast.Node) (*types.Desc, error) {
	if d, ok := a.declDesc[decl]; ok {
		return d, nil
	}
	members := make([]*types.Desc, 0, len(decl.List))
	for _, m := range decl.List {
		mt, err := a.declTypeOf(m)
		if err != nil {
			return nil, err
		}
		members = append(members, mt)
	}
	d := a.builder.Mod(decl.Name, members)
	a.declDesc[decl] = d
	return d, nil
}

func (a *Analyzer) declTypeOf(decl *ast.Node) (*types.Desc, error) {
	switch decl.Kind {
	case ast.NodeStructDecl, ast.NodeUnionDecl:
		return a.structDesc(decl)
	case ast.NodeEnumDecl:
		return a.enumDesc(decl), nil
	case ast.NodeFunDecl:
		return a.funcDesc(decl)
	case ast.NodeModDecl:
		return a.modDesc(decl)
	case ast.NodeVarDecl, ast.NodeConstDecl:
		return a.resolveType(decl.A)
	}
	return nil, fmt.Errorf("%s: internal error: declTypeOf called on unexpected kind", decl.Tok.Loc)
}

// ---- Shared value helpers ---------------------------------------------

// rvalue strips one layer of ref (and any mut/const immediately beneath it)
// to get the type of the value an expression reads as, the form arithmetic,
// comparison, call-argument, and initializer rules check against.
func rvalue(d *types.Desc) *types.Desc {
	if d.Kind == types.KindRef {
		d = d.Elem
	}
	return d.RemoveMut().RemoveConst()
}

// isRefMut reports whether d is a ref to a mut storage location, the shape
// assignment targets and ++/-- operands require.
func isRefMut(d *types.Desc) bool {
	return d.Kind == types.KindRef && d.Elem.Kind == types.KindMut
}

// promote implements usual arithmetic promotion for binary operators: float
// beats integer (f64 beats f32), and among integers the wider rank wins,
// ties going to whichever operand is passed first.
func promote(b *types.Builder, l, r *types.Desc) *types.Desc {
	if l.IsFloat() || r.IsFloat() {
		if l.Kind == types.KindF64 || r.Kind == types.KindF64 {
			return b.Primitive(types.KindF64)
		}
		return b.Primitive(types.KindF32)
	}
	if intRank(l.Kind) >= intRank(r.Kind) {
		return l
	}
	return r
}

func intRank(k types.Kind) int {
	switch k {
	case types.KindI8, types.KindU8:
		return 1
	case types.KindI16, types.KindU16:
		return 2
	case types.KindI32, types.KindU32:
		return 3
	case types.KindI64, types.KindU64, types.KindISize, types.KindUSize:
		return 4
	}
	return 0
}
