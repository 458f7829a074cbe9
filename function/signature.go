// Package function implements function signatures (schema- and
// preamble-scoped), their annotated return types, and stratification
// checking over the call graph (§4.6).
package function

import "github.com/wbrown/typeql-engine/ir"

// ArgumentSpec is one declared formal argument: its variable category
// and, for Value-categorized arguments, the value categories it
// accepts.
type ArgumentSpec struct {
	Category ir.VariableCategory
}

// ReturnSpec describes a function's declared return shape: its
// variable category, whether a returned row may be absent per call
// (Optional), and whether the function returns a stream of rows
// rather than at most one (IsStream).
type ReturnSpec struct {
	Category ir.VariableCategory
	Optional bool
	IsStream bool
}

// Signature is a function's declared interface: its id, scope, formal
// arguments and returns, independent of its body.
type Signature struct {
	ID      ir.FunctionID
	Args    []ArgumentSpec
	Returns []ReturnSpec
}

// AnnotatedSignature augments a Signature with the concrete schema
// Type sets its arguments/returns have been inferred to accept, the
// output of running a function body through the annotator once.
type AnnotatedSignature struct {
	Signature     Signature
	ArgumentTypes [][]uint32 // per-argument candidate concept.TypeID set, as raw ids to avoid an import cycle with concept
	ReturnTypes   [][]uint32
	Calls         []CallEdge // direct callees, used by stratification
}

// CallEdge records one call site's callee and whether that particular
// call is reached through a Negation or a Reduce stage -- the
// restriction stratification cares about is per call site, not
// per function (§4.6).
type CallEdge struct {
	Callee           ir.FunctionID
	ThroughNegation  bool
	ThroughReduction bool
}
