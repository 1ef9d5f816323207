package types

import (
	"fmt"
	"strconv"
)

// Error is a type-builder invariant violation (spec's "type errors" taxonomy:
// the modifier-stacking rules are enforced here, by assertion).
type Error struct {
	Msg string
}

func (e *Error) Error() string { return e.Msg }

// Builder is the sole owner of every Desc it has ever produced: one facade
// method per type kind, each canonicalizing its input through an interning
// map keyed by a structural hash-cons key, so structurally equal requests
// return the identical pointer (spec's Type-builder identity property).
// Grounded on the teacher's NewXxxType constructor style
// (lang/yparse/types.go) generalized from plain allocation to interning.
type Builder struct {
	store map[string]*Desc
}

// NewBuilder returns an empty type builder with its primitive singletons
// not yet materialized; they are built lazily on first request.
func NewBuilder() *Builder {
	return &Builder{store: make(map[string]*Desc)}
}

func (b *Builder) intern(key string, make func() *Desc) *Desc {
	if d, ok := b.store[key]; ok {
		return d
	}
	d := make()
	d.key = key
	b.store[key] = d
	return d
}

// Primitive returns the canonical descriptor for a primitive kind. It is an
// error to call it with a modifier or declared Kind.
func (b *Builder) Primitive(k Kind) *Desc {
	switch k {
	case KindI8, KindI16, KindI32, KindI64, KindISize,
		KindU8, KindU16, KindU32, KindU64, KindUSize,
		KindF32, KindF64, KindBool, KindUnit, KindNull, KindTypeKind:
	default:
		panic(fmt.Sprintf("types: Primitive called with non-primitive kind %d", k))
	}
	key := keyOf(k)
	return b.intern(key, func() *Desc { return &Desc{Kind: k} })
}

// primitiveNames maps a type name as written in source to its primitive
// Kind, for resolving NodeTypeName nodes during analysis.
var primitiveNames = map[string]Kind{
	"i8": KindI8, "i16": KindI16, "i32": KindI32, "i64": KindI64, "isize": KindISize,
	"u8": KindU8, "u16": KindU16, "u32": KindU32, "u64": KindU64, "usize": KindUSize,
	"f32": KindF32, "f64": KindF64, "bool": KindBool, "unit": KindUnit,
	"null": KindNull, "type": KindTypeKind,
}

// PrimitiveByName returns the canonical descriptor for a primitive type
// name (e.g. "i32"), or (nil, false) if name does not name a primitive.
func (b *Builder) PrimitiveByName(name string) (*Desc, bool) {
	k, ok := primitiveNames[name]
	if !ok {
		return nil, false
	}
	return b.Primitive(k), true
}

// Mut wraps elem in a mut modifier. mut cannot wrap mut or const.
func (b *Builder) Mut(elem *Desc) (*Desc, error) {
	switch elem.Kind {
	case KindMut:
		return nil, &Error{"mut cannot wrap mut"}
	case KindConst:
		return nil, &Error{"mut cannot wrap const"}
	}
	key := keyOf(KindMut, descKey(elem))
	return b.intern(key, func() *Desc { return &Desc{Kind: KindMut, Elem: elem} }), nil
}

// Const wraps elem in a const modifier. const cannot wrap const.
func (b *Builder) Const(elem *Desc) (*Desc, error) {
	if elem.Kind == KindConst {
		return nil, &Error{"const cannot wrap const"}
	}
	key := keyOf(KindConst, descKey(elem))
	return b.intern(key, func() *Desc { return &Desc{Kind: KindConst, Elem: elem} }), nil
}

// Ptr wraps elem in a pointer modifier. ptr cannot wrap const or ref; if
// elem is mut, the mut's inner type cannot be ref.
func (b *Builder) Ptr(elem *Desc) (*Desc, error) {
	if err := checkPtrLikeElem("ptr", elem); err != nil {
		return nil, err
	}
	key := keyOf(KindPtr, descKey(elem))
	return b.intern(key, func() *Desc { return &Desc{Kind: KindPtr, Elem: elem} }), nil
}

// Array wraps elem in an array-of-size modifier, with the same stacking
// rules as Ptr.
func (b *Builder) Array(elem *Desc, size int) (*Desc, error) {
	if err := checkPtrLikeElem("array", elem); err != nil {
		return nil, err
	}
	key := keyOf(KindArray, descKey(elem), strconv.Itoa(size))
	return b.intern(key, func() *Desc { return &Desc{Kind: KindArray, Elem: elem, ArraySize: size} }), nil
}

func checkPtrLikeElem(what string, elem *Desc) error {
	switch elem.Kind {
	case KindConst:
		return &Error{what + " cannot wrap const"}
	case KindRef:
		return &Error{what + " cannot wrap ref"}
	case KindMut:
		if elem.Elem.Kind == KindRef {
			return &Error{what + " cannot wrap mut ref"}
		}
	}
	return nil
}

// Ref wraps elem in a reference modifier. ref cannot wrap const or ref; if
// elem is mut, the mut's inner type cannot be ref.
func (b *Builder) Ref(elem *Desc) (*Desc, error) {
	switch elem.Kind {
	case KindConst:
		return nil, &Error{"ref cannot wrap const"}
	case KindRef:
		return nil, &Error{"ref cannot wrap ref"}
	case KindMut:
		if elem.Elem.Kind == KindRef {
			return nil, &Error{"ref cannot wrap mut ref"}
		}
	}
	key := keyOf(KindRef, descKey(elem))
	return b.intern(key, func() *Desc { return &Desc{Kind: KindRef, Elem: elem} }), nil
}

// Opt wraps elem in an optional modifier. opt cannot wrap opt, const, or
// ref; if elem is mut, the mut's inner type cannot be ref or opt.
func (b *Builder) Opt(elem *Desc) (*Desc, error) {
	switch elem.Kind {
	case KindOpt:
		return nil, &Error{"opt cannot wrap opt"}
	case KindConst:
		return nil, &Error{"opt cannot wrap const"}
	case KindRef:
		return nil, &Error{"opt cannot wrap ref"}
	case KindMut:
		if elem.Elem.Kind == KindRef || elem.Elem.Kind == KindOpt {
			return nil, &Error{"opt cannot wrap mut ref/opt"}
		}
	}
	key := keyOf(KindOpt, descKey(elem))
	return b.intern(key, func() *Desc { return &Desc{Kind: KindOpt, Elem: elem} }), nil
}

// Fun returns the canonical function-type descriptor for the given
// signature.
func (b *Builder) Fun(params []*Desc, ret *Desc, vararg bool, abi string) *Desc {
	return b.invokable(KindFun, params, ret, vararg, abi)
}

// Gen returns the canonical generator-type descriptor; Return holds the
// yield type.
func (b *Builder) Gen(params []*Desc, yield *Desc, vararg bool, abi string) *Desc {
	return b.invokable(KindGen, params, yield, vararg, abi)
}

func (b *Builder) invokable(k Kind, params []*Desc, ret *Desc, vararg bool, abi string) *Desc {
	parts := make([]string, 0, len(params)+2)
	for _, p := range params {
		parts = append(parts, descKey(p))
	}
	parts = append(parts, descKey(ret), strconv.FormatBool(vararg), abi)
	key := keyOf(k, parts...)
	return b.intern(key, func() *Desc {
		return &Desc{Kind: k, Params: append([]*Desc(nil), params...), Return: ret, Vararg: vararg, ABI: abi}
	})
}

// Struct returns the canonical struct descriptor for name. Struct, union,
// enum, and module types are nominal: two calls with the same name return
// the same descriptor, and a second call with a different field set is a
// caller error (redeclaration is caught upstream, in internal/symtable).
func (b *Builder) Struct(name string, fields []Field) *Desc {
	return b.composite(KindStruct, name, fields)
}

// Union returns the canonical union descriptor for name.
func (b *Builder) Union(name string, fields []Field) *Desc {
	return b.composite(KindUnion, name, fields)
}

func (b *Builder) composite(k Kind, name string, fields []Field) *Desc {
	key := keyOf(k, name)
	return b.intern(key, func() *Desc {
		return &Desc{Kind: k, Name: name, Fields: append([]Field(nil), fields...)}
	})
}

// Enum returns the canonical enum descriptor for name.
func (b *Builder) Enum(name string, enumerators []string) *Desc {
	key := keyOf(KindEnum, name)
	return b.intern(key, func() *Desc {
		return &Desc{Kind: KindEnum, Name: name, Enums: append([]string(nil), enumerators...)}
	})
}

// Mod returns the canonical module descriptor for name.
func (b *Builder) Mod(name string, members []*Desc) *Desc {
	key := keyOf(KindMod, name)
	return b.intern(key, func() *Desc {
		return &Desc{Kind: KindMod, Name: name, Members: append([]*Desc(nil), members...)}
	})
}
