package reflection

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTypeArgsKeyStableAcrossEquivalentArguments(t *testing.T) {
	intT := Primitives["int"]
	doubleT := Primitives["double"]
	classA := NewClassType(NewClass("Box"))

	k1 := TypeArgsKey([]*Type{intT, doubleT})
	k2 := TypeArgsKey([]*Type{intT, doubleT})
	require.Equal(t, k1, k2, "identical type argument lists should produce the same key")

	k3 := TypeArgsKey([]*Type{doubleT, intT})
	require.NotEqual(t, k1, k3, "argument order should matter: [int,double] and [double,int] collided")

	k4 := TypeArgsKey([]*Type{classA})
	k5 := TypeArgsKey([]*Type{NewClassType(NewClass("util/Box"))})
	require.NotEqual(t, k4, k5, "two distinct classes (different mangled names) should not share a key")
}

func TestClassTemplateIsGeneric(t *testing.T) {
	plain := &ClassTemplate{Name: "Box", Instances: map[string]*Class{}}
	require.False(t, plain.IsGeneric(), "a template with no type parameters should not report IsGeneric")

	generic := &ClassTemplate{Name: "Box", TypeParams: []string{"T"}, Instances: map[string]*Class{}}
	require.True(t, generic.IsGeneric(), "a template with type parameters should report IsGeneric")
}
