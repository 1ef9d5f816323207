// Package parser turns a token stream into an AST via one-token-lookahead
// recursive descent, with expressions handed off to the Shunting-Yard pump
// in shyd.go. Grounded on lang/parse/parser.go's per-production parse
// functions and Parser struct shape, but parsing here is abort-on-error:
// every parse function returns (node, error) and the first error unwinds
// the whole parse immediately, rather than the teacher's panicMode
// synchronize-and-continue. Recovery is a driver policy, not the parser's,
// so there is no synchronization point to design here.
package parser

import (
	"fmt"

	"github.com/gmofishsauce/tauc/internal/ast"
	"github.com/gmofishsauce/tauc/internal/token"
)

// Parser consumes a fixed token slice (as produced by internal/lexer) and
// builds nodes in a single arena.
type Parser struct {
	toks  []*token.Token
	pos   int
	arena *ast.Arena
}

// New returns a parser positioned at the start of toks. toks must end with
// an EOF token, as internal/lexer.Lex guarantees.
func New(toks []*token.Token) *Parser {
	return &Parser{toks: toks, arena: ast.NewArena()}
}

// Arena returns the node arena the parser allocates into.
func (p *Parser) Arena() *ast.Arena { return p.arena }

func (p *Parser) peek() *token.Token { return p.toks[p.pos] }

func (p *Parser) peekAt(n int) *token.Token {
	i := p.pos + n
	if i >= len(p.toks) {
		i = len(p.toks) - 1
	}
	return p.toks[i]
}

func (p *Parser) advance() *token.Token {
	t := p.toks[p.pos]
	if p.pos+1 < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *Parser) expect(k token.Kind, what string) (*token.Token, error) {
	tok := p.peek()
	if tok.Kind != k {
		return nil, fmt.Errorf("%s: expected %s, got %q", tok.Loc, what, tok.Lexeme())
	}
	return p.advance(), nil
}

// ParseProgram parses an entire translation unit: a sequence of top-level
// declarations followed by EOF.
func ParseProgram(toks []*token.Token) (*ast.Node, *ast.Arena, error) {
	p := New(toks)
	prog := p.arena.New(ast.NodeProgram, p.peek())
	for p.peek().Kind != token.EOF {
		decl, err := p.parseDecl(true)
		if err != nil {
			return nil, nil, err
		}
		prog.List = append(prog.List, decl)
	}
	return prog, p.arena, nil
}

func isVisibilityKw(k token.Kind) bool { return k == token.KwPub || k == token.KwPriv }

// parseDecl parses one top-level or nested declaration. atTopLevel governs
// whether `extern "abi"` function declarations are permitted (only at
// module scope; nested functions are always native).
func (p *Parser) parseDecl(atTopLevel bool) (*ast.Node, error) {
	if isVisibilityKw(p.peek().Kind) {
		// Visibility is recorded on the declaration itself by re-dispatching
		// after consuming it; `pub`/`priv` read like a prefix modifier.
		vis := p.advance()
		decl, err := p.parseDecl(atTopLevel)
		if err != nil {
			return nil, err
		}
		if vis.Kind == token.KwPub {
			decl.StrVal = "pub"
		} else {
			decl.StrVal = "priv"
		}
		return decl, nil
	}

	tok := p.peek()
	switch tok.Kind {
	case token.KwVar:
		return p.parseVarOrConstDecl(false)
	case token.KwConst:
		return p.parseVarOrConstDecl(true)
	case token.KwExtern:
		return p.parseExternFunDecl(atTopLevel)
	case token.KwFun, token.KwGen:
		return p.parseFunDecl(tok.Kind == token.KwGen, "")
	case token.KwStruct:
		return p.parseFieldedDecl(ast.NodeStructDecl, "struct")
	case token.KwUnion:
		return p.parseFieldedDecl(ast.NodeUnionDecl, "union")
	case token.KwEnum:
		return p.parseEnumDecl()
	case token.KwMod:
		return p.parseModDecl()
	default:
		return nil, fmt.Errorf("%s: expected a declaration, got %q", tok.Loc, tok.Lexeme())
	}
}

// parseVarOrConstDecl parses: (var|const) name ':' type ('=' expr)? ';'
func (p *Parser) parseVarOrConstDecl(isConst bool) (*ast.Node, error) {
	kw := p.advance()
	nameTok, err := p.expect(token.IDENT, "identifier")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.PunctColon, "':'"); err != nil {
		return nil, err
	}
	typ, err := p.parseTypeExpr()
	if err != nil {
		return nil, err
	}
	var init *ast.Node
	if p.peek().Kind == token.PunctAssign {
		p.advance()
		init, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.PunctSemi, "';'"); err != nil {
		return nil, err
	}
	kind := ast.NodeVarDecl
	if isConst {
		kind = ast.NodeConstDecl
	}
	n := p.arena.New(kind, kw)
	n.Name = nameTok.Lexeme()
	n.A = typ
	n.B = init
	n.IsMut = !isConst
	return n, nil
}

// parseExternFunDecl parses: extern "abi" (fun|gen) ...
func (p *Parser) parseExternFunDecl(atTopLevel bool) (*ast.Node, error) {
	externTok := p.advance()
	if !atTopLevel {
		return nil, fmt.Errorf("%s: extern declarations are only allowed at module scope", externTok.Loc)
	}
	abiTok, err := p.expect(token.LitString, "a quoted ABI name")
	if err != nil {
		return nil, err
	}
	isGen := false
	switch p.peek().Kind {
	case token.KwGen:
		isGen = true
		p.advance()
	case token.KwFun:
		p.advance()
	default:
		return nil, fmt.Errorf("%s: expected 'fun' or 'gen' after extern ABI", p.peek().Loc)
	}
	return p.parseFunDeclBody(isGen, abiTok.StrVal, externTok)
}

// parseFunDecl parses a native (non-extern) function or generator
// declaration: fun name '(' params ')' (':' type)? block
func (p *Parser) parseFunDecl(isGen bool, abi string) (*ast.Node, error) {
	kw := p.advance()
	return p.parseFunDeclBody(isGen, abi, kw)
}

func (p *Parser) parseFunDeclBody(isGen bool, abi string, kw *token.Token) (*ast.Node, error) {
	nameTok, err := p.expect(token.IDENT, "function name")
	if err != nil {
		return nil, err
	}
	params, variadic, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	var retType *ast.Node
	if p.peek().Kind == token.PunctColon {
		p.advance()
		retType, err = p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
	}

	n := p.arena.New(ast.NodeFunDecl, kw)
	n.Name = nameTok.Lexeme()
	n.List = params
	n.A = retType
	n.IsGen = isGen
	n.Variadic = variadic
	n.ABI = abi

	// extern declarations have no body; native ones always do.
	if abi != "" {
		if _, err := p.expect(token.PunctSemi, "';'"); err != nil {
			return nil, err
		}
		return n, nil
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	n.B = body
	return n, nil
}

// parseParamList parses '(' params ')'. Default-valued parameters must form
// a contiguous suffix; a non-default parameter after a default one is an
// error. A variadic `...` marker, if present, must be the last parameter,
// and a name-less variadic parameter is only legal for extern "cdecl".
func (p *Parser) parseParamList() ([]*ast.Node, bool, error) {
	if _, err := p.expect(token.PunctLParen, "'('"); err != nil {
		return nil, false, err
	}
	var params []*ast.Node
	sawDefault := false
	variadic := false
	if p.peek().Kind == token.PunctRParen {
		p.advance()
		return params, variadic, nil
	}
	for {
		tok := p.peek()
		if tok.Kind == token.PunctDotDot && tok.Lexeme() == "..." {
			p.advance()
			variadic = true
			if p.peek().Kind == token.IDENT {
				param, err := p.parseOneParam()
				if err != nil {
					return nil, false, err
				}
				param.Variadic = true
				params = append(params, param)
			} else {
				// Name-less variadic marker: legal only for extern "cdecl";
				// the analyzer rejects it for anything else once it knows
				// the enclosing declaration's ABI.
				marker := p.arena.New(ast.NodeParam, tok)
				marker.Variadic = true
				params = append(params, marker)
			}
			if _, err := p.expect(token.PunctRParen, "')' after variadic parameter"); err != nil {
				return nil, false, err
			}
			return params, variadic, nil
		}

		param, err := p.parseOneParam()
		if err != nil {
			return nil, false, err
		}
		if param.B != nil {
			sawDefault = true
		} else if sawDefault {
			return nil, false, fmt.Errorf("%s: parameter %q without a default cannot follow a defaulted parameter", tok.Loc, param.Name)
		}
		params = append(params, param)

		next := p.peek()
		if next.Kind == token.PunctComma {
			p.advance()
			continue
		}
		if next.Kind == token.PunctRParen {
			p.advance()
			return params, variadic, nil
		}
		return nil, false, fmt.Errorf("%s: expected ',' or ')' in parameter list", next.Loc)
	}
}

// parseOneParam parses `name ':' type ('=' expr)?`.
func (p *Parser) parseOneParam() (*ast.Node, error) {
	nameTok, err := p.expect(token.IDENT, "parameter name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.PunctColon, "':'"); err != nil {
		return nil, err
	}
	typ, err := p.parseTypeExpr()
	if err != nil {
		return nil, err
	}
	n := p.arena.New(ast.NodeParam, nameTok)
	n.Name = nameTok.Lexeme()
	n.A = typ
	if p.peek().Kind == token.PunctAssign {
		p.advance()
		def, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		n.B = def
	}
	return n, nil
}

// parseFieldedDecl parses struct and union declarations, which share the
// same `kw name '{' (name ':' type ';')* '}'` shape.
func (p *Parser) parseFieldedDecl(kind ast.Kind, what string) (*ast.Node, error) {
	kw := p.advance()
	nameTok, err := p.expect(token.IDENT, what+" name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.PunctLBrace, "'{'"); err != nil {
		return nil, err
	}
	var fields []*ast.Node
	for p.peek().Kind != token.PunctRBrace {
		fieldName, err := p.expect(token.IDENT, "field name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.PunctColon, "':'"); err != nil {
			return nil, err
		}
		fieldType, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.PunctSemi, "';'"); err != nil {
			return nil, err
		}
		field := p.arena.New(ast.NodeParam, fieldName)
		field.Name = fieldName.Lexeme()
		field.A = fieldType
		fields = append(fields, field)
	}
	p.advance() // '}'
	n := p.arena.New(kind, kw)
	n.Name = nameTok.Lexeme()
	n.List = fields
	return n, nil
}

// parseEnumDecl parses: enum name '{' ident (',' ident)* ','? '}'
func (p *Parser) parseEnumDecl() (*ast.Node, error) {
	kw := p.advance()
	nameTok, err := p.expect(token.IDENT, "enum name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.PunctLBrace, "'{'"); err != nil {
		return nil, err
	}
	var enumerators []*ast.Node
	for p.peek().Kind != token.PunctRBrace {
		enumTok, err := p.expect(token.IDENT, "enumerator name")
		if err != nil {
			return nil, err
		}
		e := p.arena.New(ast.NodeEnumerator, enumTok)
		e.Name = enumTok.Lexeme()
		enumerators = append(enumerators, e)
		if p.peek().Kind == token.PunctComma {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.PunctRBrace, "'}'"); err != nil {
		return nil, err
	}
	n := p.arena.New(ast.NodeEnumDecl, kw)
	n.Name = nameTok.Lexeme()
	n.List = enumerators
	return n, nil
}

// parseModDecl parses: mod name '{' decl* '}'
func (p *Parser) parseModDecl() (*ast.Node, error) {
	kw := p.advance()
	nameTok, err := p.expect(token.IDENT, "module name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.PunctLBrace, "'{'"); err != nil {
		return nil, err
	}
	var members []*ast.Node
	for p.peek().Kind != token.PunctRBrace {
		member, err := p.parseDecl(true)
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	p.advance() // '}'
	n := p.arena.New(ast.NodeModDecl, kw)
	n.Name = nameTok.Lexeme()
	n.List = members
	return n, nil
}

// ---- Statements -----------------------------------------------------

func (p *Parser) parseBlock() (*ast.Node, error) {
	open, err := p.expect(token.PunctLBrace, "'{'")
	if err != nil {
		return nil, err
	}
	n := p.arena.New(ast.NodeBlock, open)
	for p.peek().Kind != token.PunctRBrace {
		if p.peek().Kind == token.EOF {
			return nil, fmt.Errorf("%s: unterminated block", open.Loc)
		}
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		n.List = append(n.List, stmt)
	}
	p.advance() // '}'
	return n, nil
}

func (p *Parser) parseStmt() (*ast.Node, error) {
	tok := p.peek()
	switch tok.Kind {
	case token.PunctLBrace:
		return p.parseBlock()
	case token.KwVar:
		return p.parseVarOrConstDecl(false)
	case token.KwConst:
		return p.parseVarOrConstDecl(true)
	case token.KwIf:
		return p.parseIf()
	case token.KwWhile:
		return p.parseWhile()
	case token.KwFor:
		return p.parseFor()
	case token.KwBreak:
		p.advance()
		if _, err := p.expect(token.PunctSemi, "';'"); err != nil {
			return nil, err
		}
		return p.arena.New(ast.NodeBreak, tok), nil
	case token.KwContinue:
		p.advance()
		if _, err := p.expect(token.PunctSemi, "';'"); err != nil {
			return nil, err
		}
		return p.arena.New(ast.NodeContinue, tok), nil
	case token.KwDefer:
		p.advance()
		call, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.PunctSemi, "';'"); err != nil {
			return nil, err
		}
		n := p.arena.New(ast.NodeDefer, tok)
		n.A = call
		return n, nil
	case token.KwReturn:
		p.advance()
		n := p.arena.New(ast.NodeReturn, tok)
		if k := p.peek().Kind; k != token.PunctSemi && k != token.PunctRBrace {
			val, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			n.A = val
		}
		// A return that ends its block may omit the ';'.
		if p.peek().Kind != token.PunctRBrace {
			if _, err := p.expect(token.PunctSemi, "';'"); err != nil {
				return nil, err
			}
		}
		return n, nil
	case token.KwYield:
		p.advance()
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.PunctSemi, "';'"); err != nil {
			return nil, err
		}
		n := p.arena.New(ast.NodeYield, tok)
		n.A = val
		return n, nil
	default:
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.PunctSemi, "';'"); err != nil {
			return nil, err
		}
		n := p.arena.New(ast.NodeExprStmt, tok)
		n.A = expr
		return n, nil
	}
}

func (p *Parser) parseIf() (*ast.Node, error) {
	kw := p.advance()
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	n := p.arena.New(ast.NodeIf, kw)
	n.A, n.B = cond, then
	if p.peek().Kind == token.KwElse {
		p.advance()
		if p.peek().Kind == token.KwIf {
			elseIf, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			n.C = elseIf
		} else {
			elseBlock, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			n.C = elseBlock
		}
	}
	return n, nil
}

func (p *Parser) parseWhile() (*ast.Node, error) {
	kw := p.advance()
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	n := p.arena.New(ast.NodeWhile, kw)
	n.A, n.B = cond, body
	return n, nil
}

// parseFor parses: for name 'in' lo '..' hi block
// per the resolved open question, ranges are explicit integer bounds; no
// generator-typed iterable is accepted.
func (p *Parser) parseFor() (*ast.Node, error) {
	kw := p.advance()
	nameTok, err := p.expect(token.IDENT, "loop variable name")
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Kind != token.IDENT || tok.Lexeme() != "in" {
		return nil, fmt.Errorf("%s: expected 'in' after for-loop variable", p.peek().Loc)
	}
	p.advance()
	rng, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if rng.Kind != ast.NodeRange {
		return nil, fmt.Errorf("%s: for-loop requires an explicit lo..hi range", kw.Loc)
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	n := p.arena.New(ast.NodeFor, kw)
	n.Name = nameTok.Lexeme()
	n.A = rng
	n.B = body
	return n, nil
}

// ---- Types ------------------------------------------------------------

var modifierKeywords = map[token.Kind]ast.Modifier{
	token.KwMut:   ast.ModMut,
	token.KwConst: ast.ModConst,
	token.KwPtr:   ast.ModPtr,
	token.KwRef:   ast.ModRef,
	token.KwOpt:   ast.ModOpt,
}

// parseTypeExpr parses a type: an optional chain of mut/const/ptr/ref/opt
// prefixes, a fun/gen signature, or a bare type name, followed by any
// number of postfix `[N]` array dimensions.
func (p *Parser) parseTypeExpr() (*ast.Node, error) {
	base, err := p.parseTypeAtom()
	if err != nil {
		return nil, err
	}
	for p.peek().Kind == token.PunctLBracket {
		lb := p.advance()
		sizeTok, err := p.expect(token.LitInt, "array size")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.PunctRBracket, "']'"); err != nil {
			return nil, err
		}
		n := p.arena.New(ast.NodeTypeArray, lb)
		n.A = base
		n.IntVal = sizeTok.IntVal
		base = n
	}
	return base, nil
}

func (p *Parser) parseTypeAtom() (*ast.Node, error) {
	tok := p.peek()
	if mod, ok := modifierKeywords[tok.Kind]; ok {
		p.advance()
		inner, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		n := p.arena.New(ast.NodeTypeMod, tok)
		n.Modifier = mod
		n.A = inner
		return n, nil
	}
	if tok.Kind == token.KwFun || tok.Kind == token.KwGen {
		return p.parseFunType(tok.Kind == token.KwGen)
	}
	if tok.Kind == token.IDENT {
		p.advance()
		n := p.arena.New(ast.NodeTypeName, tok)
		n.Name = tok.Lexeme()
		return n, nil
	}
	return nil, fmt.Errorf("%s: expected a type, got %q", tok.Loc, tok.Lexeme())
}

// parseFunType parses a function-type signature written as
// `fun(T, T, ...) -> T` or `gen(T, ...) -> T` — the arrow spelling used in
// type position, distinct from the `: T` return-type syntax a function
// *declaration* uses.
func (p *Parser) parseFunType(isGen bool) (*ast.Node, error) {
	kw := p.advance()
	if _, err := p.expect(token.PunctLParen, "'('"); err != nil {
		return nil, err
	}
	var params []*ast.Node
	variadic := false
	if p.peek().Kind != token.PunctRParen {
		for {
			if tok := p.peek(); tok.Kind == token.PunctDotDot && tok.Lexeme() == "..." {
				p.advance()
				variadic = true
				break
			}
			t, err := p.parseTypeExpr()
			if err != nil {
				return nil, err
			}
			params = append(params, t)
			if p.peek().Kind == token.PunctComma {
				p.advance()
				continue
			}
			break
		}
	}
	if _, err := p.expect(token.PunctRParen, "')'"); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.PunctArrow, "'->'"); err != nil {
		return nil, err
	}
	ret, err := p.parseTypeExpr()
	if err != nil {
		return nil, err
	}
	n := p.arena.New(ast.NodeTypeFun, kw)
	n.List = params
	n.A = ret
	n.IsGen = isGen
	n.Variadic = variadic
	return n, nil
}
