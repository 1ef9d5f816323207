package bytecode

import (
	"fmt"

	"github.com/gmofishsauce/tauc/internal/ast"
	"github.com/gmofishsauce/tauc/internal/types"
)

// resolveType re-derives a type node's descriptor for layout purposes only
// (parameter offsets, local-stack bumps). It covers the subset internal/sema's
// own resolveType does not need a symbol table for: primitives and
// mut/const/ptr/ref/opt/array modifiers. Struct/union/enum/fun/gen type
// names require the symbol table internal/sema already walked during
// analysis, which this package does not have access to; this emitter does
// not lower composite-valued parameters or locals (see DESIGN.md), so those
// names are reported as unsupported here rather than re-implemented.
func resolveType(b *types.Builder, n *ast.Node) (*types.Desc, error) {
	switch n.Kind {
	case ast.NodeTypeName:
		if d, ok := b.PrimitiveByName(n.Name); ok {
			return d, nil
		}
		return nil, fmt.Errorf("%s: this emitter only lays out primitive-typed parameters and locals, not %q", n.Tok.Loc, n.Name)
	case ast.NodeTypeArray:
		elem, err := resolveType(b, n.A)
		if err != nil {
			return nil, err
		}
		return b.Array(elem, int(n.IntVal))
	case ast.NodeTypeMod:
		elem, err := resolveType(b, n.A)
		if err != nil {
			return nil, err
		}
		switch n.Modifier {
		case ast.ModMut:
			return b.Mut(elem)
		case ast.ModConst:
			return b.Const(elem)
		case ast.ModPtr:
			return b.Ptr(elem)
		case ast.ModRef:
			return b.Ref(elem)
		case ast.ModOpt:
			return b.Opt(elem)
		}
	}
	return nil, fmt.Errorf("%s: unsupported type node for layout", n.Tok.Loc)
}

// Sizeof reports the storage size, in bytes, of a type descriptor, used by
// the emitter to advance the stack-pointer bump on a variable declaration
// (§4.5: "advance SP by sizeof(type)") and to pick an instruction's operand
// Width. Modifier wrappers other than array are transparent to storage
// layout: a ref/ptr is a machine address (8 bytes) and mut/const/opt don't
// change the underlying representation's size for this toolchain's purposes.
func Sizeof(d *types.Desc) int {
	switch d.Kind {
	case types.KindI8, types.KindU8, types.KindBool:
		return 1
	case types.KindI16, types.KindU16:
		return 2
	case types.KindI32, types.KindU32, types.KindF32:
		return 4
	case types.KindI64, types.KindU64, types.KindISize, types.KindUSize, types.KindF64:
		return 8
	case types.KindUnit, types.KindNull:
		return 0
	case types.KindPtr, types.KindRef, types.KindFun, types.KindGen:
		return 8
	case types.KindMut, types.KindConst:
		return Sizeof(d.Elem)
	case types.KindOpt:
		// one tag byte, rounded up to the payload's own alignment by simply
		// adding it: a systems-language opt isn't the spec's concern, this
		// is the simplest layout that keeps the payload's own size intact.
		return 1 + Sizeof(d.Elem)
	case types.KindArray:
		return d.ArraySize * Sizeof(d.Elem)
	case types.KindStruct, types.KindUnion:
		size := 0
		for _, f := range d.Fields {
			sz := Sizeof(f.Type)
			if d.Kind == types.KindUnion {
				if sz > size {
					size = sz
				}
			} else {
				size += sz
			}
		}
		return size
	default:
		return 8
	}
}

// WidthOf returns the instruction operand Width matching a type's storage
// size, clamping anything wider than 64 bits down to Width64 (composite
// values move through the stack a word at a time elsewhere in the emitter).
func WidthOf(d *types.Desc) Width {
	switch Sizeof(d) {
	case 1:
		return Width8
	case 2:
		return Width16
	case 4:
		return Width32
	default:
		return Width64
	}
}
