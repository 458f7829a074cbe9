package function

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wbrown/typeql-engine/ir"
)

func schemaFn(name string) ir.FunctionID { return ir.FunctionID{Name: name} }

func TestCheckStratificationAllowsPlainRecursion(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.DefineSchema("fib", &AnnotatedSignature{
		Signature: Signature{ID: schemaFn("fib")},
		Calls:     []CallEdge{{Callee: schemaFn("fib")}},
	}))

	require.NoError(t, CheckStratification(reg))
}

func TestCheckStratificationRejectsCycleThroughNegation(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.DefineSchema("a", &AnnotatedSignature{
		Signature: Signature{ID: schemaFn("a")},
		Calls:     []CallEdge{{Callee: schemaFn("b")}},
	}))
	require.NoError(t, reg.DefineSchema("b", &AnnotatedSignature{
		Signature: Signature{ID: schemaFn("b")},
		Calls:     []CallEdge{{Callee: schemaFn("a"), ThroughNegation: true}},
	}))

	err := CheckStratification(reg)
	require.Error(t, err)
	var stratErr *StratificationError
	require.ErrorAs(t, err, &stratErr)
	require.Contains(t, stratErr.Cycle, "a")
	require.Contains(t, stratErr.Cycle, "b")
}

func TestCheckStratificationRejectsCycleThroughReduction(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.DefineSchema("count_descendants", &AnnotatedSignature{
		Signature: Signature{ID: schemaFn("count_descendants")},
		Calls:     []CallEdge{{Callee: schemaFn("count_descendants"), ThroughReduction: true}},
	}))

	err := CheckStratification(reg)
	require.Error(t, err)
}

func TestCheckStratificationAllowsAcyclicNegation(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.DefineSchema("a", &AnnotatedSignature{
		Signature: Signature{ID: schemaFn("a")},
		Calls:     []CallEdge{{Callee: schemaFn("b"), ThroughNegation: true}},
	}))
	require.NoError(t, reg.DefineSchema("b", &AnnotatedSignature{
		Signature: Signature{ID: schemaFn("b")},
	}))

	require.NoError(t, CheckStratification(reg))
}

func TestRegistryLookupPrefersPreambleScope(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.DefineSchema("helper", &AnnotatedSignature{Signature: Signature{ID: schemaFn("helper")}}))
	require.NoError(t, reg.DefinePreamble("helper", &AnnotatedSignature{
		Signature: Signature{ID: ir.FunctionID{Scoped: true, Name: "helper"}},
	}))

	sig, ok := reg.Lookup(ir.FunctionID{Scoped: true, Name: "helper"})
	require.True(t, ok)
	require.True(t, sig.Signature.ID.Scoped)
}

func TestRegistryDefineSchemaRejectsDuplicate(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.DefineSchema("helper", &AnnotatedSignature{Signature: Signature{ID: schemaFn("helper")}}))
	err := reg.DefineSchema("helper", &AnnotatedSignature{Signature: Signature{ID: schemaFn("helper")}})
	require.Error(t, err)
}
