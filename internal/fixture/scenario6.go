package fixture

import (
	"github.com/wbrown/typeql-engine/function"
	"github.com/wbrown/typeql-engine/ir"
)

// StratificationViolation builds a registry containing a single
// schema function f($x) -> { not { f($x); }; return $x; } and runs
// stratification checking over it, returning the resulting
// *function.StratificationError (or nil, which would itself indicate a
// defect: this call graph is recursive through a negation by
// construction). There is no schema or store involved -- stratification
// is a property of the function call graph alone.
func StratificationViolation() error {
	reg := function.NewRegistry()
	fID := ir.FunctionID{Name: "f"}
	sig := &function.AnnotatedSignature{
		Signature: function.Signature{
			ID:      fID,
			Args:    []function.ArgumentSpec{{Category: ir.CategoryValue}},
			Returns: []function.ReturnSpec{{Category: ir.CategoryValue}},
		},
		Calls: []function.CallEdge{
			{Callee: fID, ThroughNegation: true},
		},
	}
	if err := reg.DefineSchema("f", sig); err != nil {
		return err
	}
	return function.CheckStratification(reg)
}
