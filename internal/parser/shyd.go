package parser

import (
	"fmt"

	"github.com/gmofishsauce/tauc/internal/ast"
	"github.com/gmofishsauce/tauc/internal/token"
)

// Expression parsing runs Shunting-Yard rather than mutual recursion: an
// output queue and an operator stack, kept as the two literal auxiliary
// containers the algorithm describes, since precedence, associativity, and
// prefix/postfix disambiguation fall out of a table-driven pump far more
// directly than from a precedence-climbing recursive descent (the style
// internal/parser/parser.go otherwise uses throughout, grounded on
// lang/parse/parser.go's recursive-descent declaration/statement grammar).

// outKind distinguishes the two possible output-queue element shapes.
type outKind uint8

const (
	outTerm outKind = iota
	outOp
)

type outItem struct {
	kind outKind
	term *ast.Node
	op   *opInfo
}

// opInfo is one operator's pending entry: its precedence/associativity for
// flushing decisions, its arity for the second pass, and a closure that
// builds the composed node from its popped operands.
type opInfo struct {
	prec       int
	rightAssoc bool
	arity      int
	build      func(operands []*ast.Node) *ast.Node
}

type markerKind uint8

const (
	markerNone markerKind = iota
	markerOpenParen
	markerOpenBracket
)

type stackEntry struct {
	marker markerKind
	op     *opInfo
}

// parseExpr runs the Shunting-Yard pump over the token stream starting at
// the parser's current position and returns the single resulting AST node.
// It stops, without consuming, at the first token that is not part of the
// expression grammar (a block's `{`, a statement's `;`, an argument list's
// `,`, an unmatched `)`/`]` at bracket depth zero, EOF). `{`, `;` and `,`
// are absent from the operator table below and halt the pump through its
// default case; EOF and a `)`/`]` at depth zero are checked explicitly.
func (p *Parser) parseExpr() (*ast.Node, error) {
	var output []outItem
	var opStack []stackEntry
	prevTerm := false
	depth := 0

	pushOp := func(op *opInfo) {
		for len(opStack) > 0 {
			top := opStack[len(opStack)-1]
			if top.marker != markerNone {
				break
			}
			if op.rightAssoc {
				if top.op.prec >= op.prec {
					break
				}
			} else {
				if top.op.prec > op.prec {
					break
				}
			}
			opStack = opStack[:len(opStack)-1]
			output = append(output, outItem{kind: outOp, op: top.op})
		}
		opStack = append(opStack, stackEntry{op: op})
	}

	flushToMarker := func(want markerKind) error {
		for len(opStack) > 0 {
			top := opStack[len(opStack)-1]
			if top.marker == want {
				opStack = opStack[:len(opStack)-1]
				return nil
			}
			if top.marker != markerNone {
				return fmt.Errorf("%s: mismatched grouping", p.peek().Loc)
			}
			opStack = opStack[:len(opStack)-1]
			output = append(output, outItem{kind: outOp, op: top.op})
		}
		return fmt.Errorf("%s: unmatched closing bracket", p.peek().Loc)
	}

loop:
	for {
		tok := p.peek()
		switch tok.Kind {
		case token.EOF:
			break loop

		case token.IDENT, token.LitInt, token.LitFloat, token.LitString, token.LitChar, token.LitBool, token.LitNull:
			if prevTerm {
				return nil, fmt.Errorf("%s: unexpected %s, expected an operator", tok.Loc, describeTok(tok))
			}
			output = append(output, outItem{kind: outTerm, term: p.termNode(tok)})
			p.advance()
			prevTerm = true

		case token.KwIs, token.KwAs:
			if !prevTerm {
				return nil, fmt.Errorf("%s: %q requires a preceding expression", tok.Loc, tok.Lexeme())
			}
			p.advance()
			typeNode, err := p.parseTypeExpr()
			if err != nil {
				return nil, err
			}
			isAs := tok.Kind == token.KwAs
			pushOp(&opInfo{prec: 2, arity: 2, build: func(ops []*ast.Node) *ast.Node {
				n := p.arena.New(ast.NodeTypeOp, tok)
				if isAs {
					n.TypeOp = ast.TypeOpAs
				} else {
					n.TypeOp = ast.TypeOpIs
				}
				n.A, n.B = ops[0], ops[1]
				return n
			}})
			output = append(output, outItem{kind: outTerm, term: typeNode})
			prevTerm = true

		case token.KwSizeof, token.KwAlignof:
			if prevTerm {
				return nil, fmt.Errorf("%s: %q cannot follow an expression", tok.Loc, tok.Lexeme())
			}
			p.advance()
			typeNode, err := p.parseTypeExpr()
			if err != nil {
				return nil, err
			}
			isSizeof := tok.Kind == token.KwSizeof
			pushOp(&opInfo{prec: 2, arity: 1, build: func(ops []*ast.Node) *ast.Node {
				n := p.arena.New(ast.NodeTypeOp, tok)
				if isSizeof {
					n.TypeOp = ast.TypeOpSizeof
				} else {
					n.TypeOp = ast.TypeOpAlignof
				}
				n.A = ops[0]
				return n
			}})
			output = append(output, outItem{kind: outTerm, term: typeNode})
			prevTerm = true

		case token.PunctLParen:
			if prevTerm {
				p.advance()
				args, err := p.parseArgList()
				if err != nil {
					return nil, err
				}
				pushOp(&opInfo{prec: 1, arity: 1, build: func(ops []*ast.Node) *ast.Node {
					n := p.arena.New(ast.NodeCall, tok)
					n.A = ops[0]
					n.List = args
					return n
				}})
				prevTerm = true
			} else {
				opStack = append(opStack, stackEntry{marker: markerOpenParen})
				depth++
				p.advance()
				prevTerm = false
			}

		case token.PunctRParen:
			if depth == 0 {
				break loop
			}
			if err := flushToMarker(markerOpenParen); err != nil {
				return nil, err
			}
			depth--
			p.advance()
			prevTerm = true

		case token.PunctLBracket:
			if !prevTerm {
				return nil, fmt.Errorf("%s: unexpected %q", tok.Loc, "[")
			}
			opStack = append(opStack, stackEntry{marker: markerOpenBracket})
			depth++
			p.advance()
			prevTerm = false

		case token.PunctRBracket:
			if depth == 0 {
				break loop
			}
			if err := flushToMarker(markerOpenBracket); err != nil {
				return nil, err
			}
			depth--
			p.advance()
			pushOp(&opInfo{prec: 1, arity: 2, build: func(ops []*ast.Node) *ast.Node {
				n := p.arena.New(ast.NodeIndex, tok)
				n.A, n.B = ops[0], ops[1]
				return n
			}})
			prevTerm = true

		case token.PunctDot, token.PunctStarDot, token.PunctQDot:
			if !prevTerm {
				return nil, fmt.Errorf("%s: member access requires a preceding expression", tok.Loc)
			}
			p.advance()
			nameTok := p.peek()
			if nameTok.Kind != token.IDENT {
				return nil, fmt.Errorf("%s: expected member name", nameTok.Loc)
			}
			p.advance()
			memberOp := memberOpFor(tok.Kind)
			name := nameTok.Lexeme()
			pushOp(&opInfo{prec: 1, arity: 1, build: func(ops []*ast.Node) *ast.Node {
				n := p.arena.New(ast.NodeMember, tok)
				n.A = ops[0]
				n.Name = name
				n.MemberOp = memberOp
				return n
			}})
			prevTerm = true

		case token.PunctPlusPlus, token.PunctMinusMinus:
			isInc := tok.Kind == token.PunctPlusPlus
			if prevTerm {
				p.advance()
				pushOp(&opInfo{prec: 1, arity: 1, build: func(ops []*ast.Node) *ast.Node {
					n := p.arena.New(ast.NodeUnary, tok)
					if isInc {
						n.UnaryOp = ast.UnaryPostInc
					} else {
						n.UnaryOp = ast.UnaryPostDec
					}
					n.A = ops[0]
					return n
				}})
				prevTerm = true
			} else {
				p.advance()
				pushOp(&opInfo{prec: 2, arity: 1, build: func(ops []*ast.Node) *ast.Node {
					n := p.arena.New(ast.NodeUnary, tok)
					if isInc {
						n.UnaryOp = ast.UnaryPreInc
					} else {
						n.UnaryOp = ast.UnaryPreDec
					}
					n.A = ops[0]
					return n
				}})
				prevTerm = false
			}

		case token.PunctPlus, token.PunctMinus, token.PunctStar, token.PunctAmp:
			if !prevTerm {
				p.advance()
				uop := prefixUnaryFor(tok.Kind)
				pushOp(&opInfo{prec: 2, arity: 1, build: func(ops []*ast.Node) *ast.Node {
					n := p.arena.New(ast.NodeUnary, tok)
					n.UnaryOp = uop
					n.A = ops[0]
					return n
				}})
				prevTerm = false
				continue
			}
			p.advance()
			bop, prec := binaryOpFor(tok.Kind)
			pushOp(&opInfo{prec: prec, arity: 2, build: func(ops []*ast.Node) *ast.Node {
				n := p.arena.New(ast.NodeBinary, tok)
				n.BinaryOp = bop
				n.A, n.B = ops[0], ops[1]
				return n
			}})
			prevTerm = false

		case token.PunctTilde, token.PunctBang:
			if prevTerm {
				return nil, fmt.Errorf("%s: %q is not a binary operator", tok.Loc, tok.Lexeme())
			}
			p.advance()
			uop := ast.UnaryBitNot
			if tok.Kind == token.PunctBang {
				uop = ast.UnaryLogNot
			}
			pushOp(&opInfo{prec: 2, arity: 1, build: func(ops []*ast.Node) *ast.Node {
				n := p.arena.New(ast.NodeUnary, tok)
				n.UnaryOp = uop
				n.A = ops[0]
				return n
			}})
			prevTerm = false

		case token.PunctSlash, token.PunctPercent, token.PunctShl, token.PunctShr,
			token.PunctLt, token.PunctLe, token.PunctGt, token.PunctGe,
			token.PunctEq, token.PunctNe, token.PunctPipe, token.PunctCaret,
			token.PunctAndAnd, token.PunctOrOr:
			if !prevTerm {
				return nil, fmt.Errorf("%s: unexpected operator %q", tok.Loc, tok.Lexeme())
			}
			p.advance()
			bop, prec := binaryOpFor(tok.Kind)
			pushOp(&opInfo{prec: prec, arity: 2, build: func(ops []*ast.Node) *ast.Node {
				n := p.arena.New(ast.NodeBinary, tok)
				n.BinaryOp = bop
				n.A, n.B = ops[0], ops[1]
				return n
			}})
			prevTerm = false

		case token.PunctDotDot:
			if !prevTerm {
				return nil, fmt.Errorf("%s: range operator requires a left operand", tok.Loc)
			}
			p.advance()
			pushOp(&opInfo{prec: 13, arity: 2, build: func(ops []*ast.Node) *ast.Node {
				n := p.arena.New(ast.NodeRange, tok)
				n.A, n.B = ops[0], ops[1]
				return n
			}})
			prevTerm = false

		case token.PunctAssign:
			if !prevTerm {
				return nil, fmt.Errorf("%s: assignment requires a left-hand side", tok.Loc)
			}
			p.advance()
			pushOp(&opInfo{prec: 14, rightAssoc: true, arity: 2, build: func(ops []*ast.Node) *ast.Node {
				n := p.arena.New(ast.NodeAssign, tok)
				n.A, n.B = ops[0], ops[1]
				return n
			}})
			prevTerm = false

		default:
			break loop
		}
	}

	for len(opStack) > 0 {
		top := opStack[len(opStack)-1]
		if top.marker != markerNone {
			return nil, fmt.Errorf("%s: unclosed grouping", p.peek().Loc)
		}
		opStack = opStack[:len(opStack)-1]
		output = append(output, outItem{kind: outOp, op: top.op})
	}

	return evalOutputQueue(output)
}

func evalOutputQueue(output []outItem) (*ast.Node, error) {
	var nodes []*ast.Node
	for _, item := range output {
		if item.kind == outTerm {
			nodes = append(nodes, item.term)
			continue
		}
		if len(nodes) < item.op.arity {
			return nil, fmt.Errorf("malformed expression: operator expected %d operands", item.op.arity)
		}
		operands := make([]*ast.Node, item.op.arity)
		copy(operands, nodes[len(nodes)-item.op.arity:])
		nodes = nodes[:len(nodes)-item.op.arity]
		nodes = append(nodes, item.op.build(operands))
	}
	if len(nodes) != 1 {
		return nil, fmt.Errorf("malformed expression: expected exactly one result, got %d", len(nodes))
	}
	return nodes[0], nil
}

func (p *Parser) termNode(tok *token.Token) *ast.Node {
	if tok.Kind == token.IDENT {
		n := p.arena.New(ast.NodeExprIdent, tok)
		n.Name = tok.Lexeme()
		return n
	}
	n := p.arena.New(ast.NodeLiteral, tok)
	switch tok.Kind {
	case token.LitInt:
		n.IntVal = tok.IntVal
		n.StrVal = tok.Suffix
	case token.LitFloat:
		n.FltVal = tok.FltVal
	case token.LitString:
		n.StrVal = tok.StrVal
	case token.LitChar:
		n.IntVal = tok.IntVal
	case token.LitBool:
		n.IntVal = tok.IntVal
		n.IsBool = true
	case token.LitNull:
	}
	return n
}

// parseArgList parses a comma-delimited, parenthesis-terminated argument
// list whose opening paren has already been consumed.
func (p *Parser) parseArgList() ([]*ast.Node, error) {
	var args []*ast.Node
	if p.peek().Kind == token.PunctRParen {
		p.advance()
		return args, nil
	}
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		tok := p.peek()
		if tok.Kind == token.PunctComma {
			p.advance()
			continue
		}
		if tok.Kind == token.PunctRParen {
			p.advance()
			return args, nil
		}
		return nil, fmt.Errorf("%s: expected ',' or ')' in argument list", tok.Loc)
	}
}

func memberOpFor(k token.Kind) ast.MemberOp {
	switch k {
	case token.PunctStarDot:
		return ast.MemberStarDot
	case token.PunctQDot:
		return ast.MemberQuestion
	default:
		return ast.MemberDot
	}
}

func prefixUnaryFor(k token.Kind) ast.UnaryOp {
	switch k {
	case token.PunctPlus:
		return ast.UnaryPlus
	case token.PunctMinus:
		return ast.UnaryMinus
	case token.PunctStar:
		return ast.UnaryDeref
	case token.PunctAmp:
		return ast.UnaryAddr
	default:
		return ast.UnaryInvalid
	}
}

// binaryOpFor returns the BinaryOp and precedence (smaller binds tighter)
// for a binary-operator token. + - * & are handled separately above because
// they are also valid prefix operators; this covers every operator that is
// unambiguously binary.
func binaryOpFor(k token.Kind) (ast.BinaryOp, int) {
	switch k {
	case token.PunctPlus:
		return ast.BinAdd, 4
	case token.PunctMinus:
		return ast.BinSub, 4
	case token.PunctStar:
		return ast.BinMul, 3
	case token.PunctSlash:
		return ast.BinDiv, 3
	case token.PunctPercent:
		return ast.BinMod, 3
	case token.PunctAmp:
		return ast.BinBitAnd, 8
	case token.PunctPipe:
		return ast.BinBitOr, 10
	case token.PunctCaret:
		return ast.BinBitXor, 9
	case token.PunctShl:
		return ast.BinShl, 5
	case token.PunctShr:
		return ast.BinShr, 5
	case token.PunctLt:
		return ast.BinLt, 6
	case token.PunctLe:
		return ast.BinLe, 6
	case token.PunctGt:
		return ast.BinGt, 6
	case token.PunctGe:
		return ast.BinGe, 6
	case token.PunctEq:
		return ast.BinEq, 7
	case token.PunctNe:
		return ast.BinNe, 7
	case token.PunctAndAnd:
		return ast.BinLogAnd, 11
	case token.PunctOrOr:
		return ast.BinLogOr, 12
	default:
		return ast.BinInvalid, 0
	}
}

func describeTok(tok *token.Token) string {
	if tok.Kind == token.IDENT {
		return fmt.Sprintf("identifier %q", tok.Lexeme())
	}
	return fmt.Sprintf("token %q", tok.Lexeme())
}
