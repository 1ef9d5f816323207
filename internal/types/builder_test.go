package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrimitiveIdentity(t *testing.T) {
	b := NewBuilder()
	a := b.Primitive(KindI32)
	c := b.Primitive(KindI32)
	require.Same(t, a, c)
	require.NotSame(t, a, b.Primitive(KindI64))
}

func TestBuilderIdentityForStructurallyEqualModifiers(t *testing.T) {
	b := NewBuilder()
	i32 := b.Primitive(KindI32)

	p1, err := b.Ptr(i32)
	require.NoError(t, err)
	p2, err := b.Ptr(i32)
	require.NoError(t, err)
	require.Same(t, p1, p2)

	a1, err := b.Array(i32, 4)
	require.NoError(t, err)
	a2, err := b.Array(i32, 4)
	require.NoError(t, err)
	require.Same(t, a1, a2)

	a3, err := b.Array(i32, 8)
	require.NoError(t, err)
	require.NotSame(t, a1, a3)
}

func TestModifierStackingRejectsInvalidNesting(t *testing.T) {
	b := NewBuilder()
	i32 := b.Primitive(KindI32)

	mutT, err := b.Mut(i32)
	require.NoError(t, err)
	_, err = b.Mut(mutT)
	require.Error(t, err)

	constT, err := b.Const(i32)
	require.NoError(t, err)
	_, err = b.Mut(constT)
	require.Error(t, err)
	_, err = b.Const(constT)
	require.Error(t, err)

	refT, err := b.Ref(i32)
	require.NoError(t, err)
	_, err = b.Ptr(refT)
	require.Error(t, err)
	_, err = b.Ref(refT)
	require.Error(t, err)
	_, err = b.Ptr(constT)
	require.Error(t, err)

	optT, err := b.Opt(i32)
	require.NoError(t, err)
	_, err = b.Opt(optT)
	require.Error(t, err)

	mutRef, err := b.Mut(refT)
	require.NoError(t, err)
	_, err = b.Ptr(mutRef)
	require.Error(t, err)
	_, err = b.Opt(mutRef)
	require.Error(t, err)
}

func TestFunIdentity(t *testing.T) {
	b := NewBuilder()
	i32 := b.Primitive(KindI32)
	f1 := b.Fun([]*Desc{i32}, i32, false, "")
	f2 := b.Fun([]*Desc{i32}, i32, false, "")
	require.Same(t, f1, f2)

	f3 := b.Fun([]*Desc{i32}, i32, false, "cdecl")
	require.NotSame(t, f1, f3)
}

func TestStructIdentityIsNominal(t *testing.T) {
	b := NewBuilder()
	s1 := b.Struct("Point", []Field{{Name: "x", Type: b.Primitive(KindI32)}})
	s2 := b.Struct("Point", nil)
	require.Same(t, s1, s2)
}

func TestClassificationHelpers(t *testing.T) {
	b := NewBuilder()
	i32 := b.Primitive(KindI32)
	u8 := b.Primitive(KindU8)
	f32 := b.Primitive(KindF32)
	boolT := b.Primitive(KindBool)

	require.True(t, i32.IsInteger())
	require.True(t, i32.IsArithmetic())
	require.True(t, i32.IsSigned())
	require.False(t, u8.IsSigned())
	require.True(t, f32.IsFloat())
	require.True(t, f32.IsArithmetic())
	require.False(t, boolT.IsArithmetic())

	fn := b.Fun(nil, i32, false, "")
	require.True(t, fn.IsInvokable())

	st := b.Struct("S", nil)
	require.True(t, st.IsComposite())
}

func TestRemoveHelpers(t *testing.T) {
	b := NewBuilder()
	i32 := b.Primitive(KindI32)
	mutT, _ := b.Mut(i32)
	constT, _ := b.Const(mutT)

	require.Same(t, mutT, constT.RemoveConst())
	require.Same(t, i32, constT.RemoveConst().RemoveMut())
	require.Same(t, i32, constT.Underlying())
}

func TestImplicitConvertibility(t *testing.T) {
	b := NewBuilder()
	i32 := b.Primitive(KindI32)
	constI32, _ := b.Const(i32)
	require.True(t, i32.ImplicitlyConvertibleTo(constI32))
	require.True(t, constI32.ImplicitlyConvertibleTo(i32))

	ref, _ := b.Ref(i32)
	mutI32, _ := b.Mut(i32)
	refMut, _ := b.Ref(mutI32)

	require.True(t, refMut.ImplicitlyConvertibleTo(ref))
	require.False(t, ref.ImplicitlyConvertibleTo(refMut))
	require.True(t, refMut.ImplicitlyConvertibleTo(refMut))

	require.False(t, i32.ImplicitlyConvertibleTo(ref))
}

func TestStringRendering(t *testing.T) {
	b := NewBuilder()
	i32 := b.Primitive(KindI32)
	p, _ := b.Ptr(i32)
	require.Equal(t, "ptr i32", p.String())

	fn := b.Fun([]*Desc{i32}, i32, false, "")
	require.Equal(t, "fun(i32): i32", fn.String())
}
