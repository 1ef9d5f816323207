// Package types implements the hash-consed type descriptor store: the
// single owner of every type value the analyzer and emitter reason about.
// Two structurally equal descriptors are always the same pointer, so type
// equality elsewhere in the compiler is pointer equality.
package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies which of the three type-descriptor families a Desc
// belongs to, generalized from the teacher's Kind+variant-field Type
// struct (lang/yparse/types.go) to the three families the type system
// needs: modifiers, primitives, and declared (nominal) types.
type Kind uint8

const (
	KindInvalid Kind = iota

	// Modifier family: wraps exactly one Elem.
	KindMut
	KindConst
	KindPtr
	KindArray
	KindRef
	KindOpt

	// Primitive family: no Elem.
	KindI8
	KindI16
	KindI32
	KindI64
	KindISize
	KindU8
	KindU16
	KindU32
	KindU64
	KindUSize
	KindF32
	KindF64
	KindBool
	KindUnit
	KindNull
	KindTypeKind // the meta-type of a type value, for sizeof/alignof-as-type contexts

	// Declared (nominal) family.
	KindFun
	KindGen
	KindStruct
	KindUnion
	KindEnum
	KindMod
)

// Field is one member of a struct or union descriptor.
type Field struct {
	Name string
	Type *Desc
}

// Desc is a type descriptor. Which fields are meaningful depends on Kind;
// every Desc a caller holds was returned by a Builder and is safe to
// compare for equality with ==.
type Desc struct {
	Kind Kind

	Elem      *Desc // modifier family
	ArraySize int   // KindArray only

	Name    string  // declared family
	Params  []*Desc // KindFun, KindGen
	Return  *Desc   // KindFun return type, KindGen yield type
	Vararg  bool    // KindFun, KindGen
	ABI     string  // KindFun, KindGen; "" means the default Tau ABI
	Fields  []Field // KindStruct, KindUnion
	Enums   []string // KindEnum
	Members []*Desc  // KindMod

	key string // hash-cons key, memoized at construction
}

func (d *Desc) String() string {
	switch d.Kind {
	case KindMut:
		return "mut " + d.Elem.String()
	case KindConst:
		return "const " + d.Elem.String()
	case KindPtr:
		return "ptr " + d.Elem.String()
	case KindArray:
		return fmt.Sprintf("array(%d) %s", d.ArraySize, d.Elem.String())
	case KindRef:
		return "ref " + d.Elem.String()
	case KindOpt:
		return "opt " + d.Elem.String()
	case KindI8:
		return "i8"
	case KindI16:
		return "i16"
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindISize:
		return "isize"
	case KindU8:
		return "u8"
	case KindU16:
		return "u16"
	case KindU32:
		return "u32"
	case KindU64:
		return "u64"
	case KindUSize:
		return "usize"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	case KindBool:
		return "bool"
	case KindUnit:
		return "unit"
	case KindNull:
		return "null"
	case KindTypeKind:
		return "type"
	case KindFun, KindGen:
		kw := "fun"
		if d.Kind == KindGen {
			kw = "gen"
		}
		parts := make([]string, len(d.Params))
		for i, p := range d.Params {
			parts[i] = p.String()
		}
		return fmt.Sprintf("%s(%s): %s", kw, strings.Join(parts, ", "), d.Return.String())
	case KindStruct:
		return "struct " + d.Name
	case KindUnion:
		return "union " + d.Name
	case KindEnum:
		return "enum " + d.Name
	case KindMod:
		return "mod " + d.Name
	default:
		return "<invalid type>"
	}
}

// Classification helpers. Each is O(1): a Kind switch, no traversal.

func (d *Desc) IsInteger() bool {
	switch d.Kind {
	case KindI8, KindI16, KindI32, KindI64, KindISize,
		KindU8, KindU16, KindU32, KindU64, KindUSize:
		return true
	}
	return false
}

func (d *Desc) IsFloat() bool { return d.Kind == KindF32 || d.Kind == KindF64 }

func (d *Desc) IsArithmetic() bool { return d.IsInteger() || d.IsFloat() }

func (d *Desc) IsSigned() bool {
	switch d.Kind {
	case KindI8, KindI16, KindI32, KindI64, KindISize, KindF32, KindF64:
		return true
	}
	return false
}

func (d *Desc) IsComposite() bool {
	return d.Kind == KindStruct || d.Kind == KindUnion
}

func (d *Desc) IsInvokable() bool { return d.Kind == KindFun || d.Kind == KindGen }

// RemoveMut strips an outer KindMut, if present.
func (d *Desc) RemoveMut() *Desc {
	if d.Kind == KindMut {
		return d.Elem
	}
	return d
}

// RemoveConst strips an outer KindConst, if present.
func (d *Desc) RemoveConst() *Desc {
	if d.Kind == KindConst {
		return d.Elem
	}
	return d
}

// RemoveRef strips an outer KindRef, if present.
func (d *Desc) RemoveRef() *Desc {
	if d.Kind == KindRef {
		return d.Elem
	}
	return d
}

// RemoveOpt strips an outer KindOpt, if present.
func (d *Desc) RemoveOpt() *Desc {
	if d.Kind == KindOpt {
		return d.Elem
	}
	return d
}

// RemovePtr strips an outer KindPtr, if present.
func (d *Desc) RemovePtr() *Desc {
	if d.Kind == KindPtr {
		return d.Elem
	}
	return d
}

// RemoveArray strips an outer KindArray, if present.
func (d *Desc) RemoveArray() *Desc {
	if d.Kind == KindArray {
		return d.Elem
	}
	return d
}

// Underlying strips every outer mut/const/ref wrapper, the composition
// callers most often want before inspecting a value's real shape.
func (d *Desc) Underlying() *Desc {
	for {
		switch d.Kind {
		case KindMut, KindConst, KindRef:
			d = d.Elem
		default:
			return d
		}
	}
}

// ImplicitlyConvertibleTo reports whether a value of type d can be used
// where a value of type to is expected, per the builder's convertibility
// rule: strip outer const from both sides, then either neither side is a
// reference and they are identical, or both are references and the
// target's mutability is satisfied by the source's.
func (d *Desc) ImplicitlyConvertibleTo(to *Desc) bool {
	from := d.RemoveConst()
	toStripped := to.RemoveConst()

	fromIsRef := from.Kind == KindRef
	toIsRef := toStripped.Kind == KindRef
	if fromIsRef != toIsRef {
		return false
	}
	if !fromIsRef {
		return from == toStripped
	}

	fromInner := from.Elem
	toInner := toStripped.Elem
	fromMut := fromInner.Kind == KindMut
	toMut := toInner.Kind == KindMut
	if toMut && !fromMut {
		return false
	}
	return fromInner.RemoveMut() == toInner.RemoveMut()
}

func keyOf(k Kind, parts ...string) string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(int(k)))
	for _, p := range parts {
		sb.WriteByte('\x1f')
		sb.WriteString(p)
	}
	return sb.String()
}

func descKey(d *Desc) string {
	if d == nil {
		return ""
	}
	return d.key
}
