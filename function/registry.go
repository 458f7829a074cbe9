package function

import (
	"fmt"

	"github.com/wbrown/typeql-engine/ir"
)

// Registry holds every function signature visible to a query: schema
// functions (persisted, shared across queries) and preamble functions
// (defined inline for a single query, §4.6).
type Registry struct {
	schema   map[string]*AnnotatedSignature
	preamble map[string]*AnnotatedSignature
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		schema:   make(map[string]*AnnotatedSignature),
		preamble: make(map[string]*AnnotatedSignature),
	}
}

// DefineSchema registers a schema-scoped function.
func (r *Registry) DefineSchema(name string, sig *AnnotatedSignature) error {
	if _, exists := r.schema[name]; exists {
		return fmt.Errorf("function: schema function %q already defined", name)
	}
	r.schema[name] = sig
	return nil
}

// DefinePreamble registers a preamble-scoped (query-local) function.
func (r *Registry) DefinePreamble(name string, sig *AnnotatedSignature) error {
	if _, exists := r.preamble[name]; exists {
		return fmt.Errorf("function: preamble function %q already defined", name)
	}
	r.preamble[name] = sig
	return nil
}

// Lookup resolves a FunctionID to its annotated signature, preferring
// preamble scope over schema scope (a preamble function may shadow a
// schema function of the same name within the query that defines it).
func (r *Registry) Lookup(id ir.FunctionID) (*AnnotatedSignature, bool) {
	if id.Scoped {
		sig, ok := r.preamble[id.Name]
		return sig, ok
	}
	sig, ok := r.schema[id.Name]
	return sig, ok
}

// All returns every defined signature, schema functions first, for
// stratification analysis over the whole call graph.
func (r *Registry) All() map[ir.FunctionID]*AnnotatedSignature {
	out := make(map[ir.FunctionID]*AnnotatedSignature, len(r.schema)+len(r.preamble))
	for name, sig := range r.schema {
		out[ir.FunctionID{Name: name}] = sig
	}
	for name, sig := range r.preamble {
		out[ir.FunctionID{Scoped: true, Name: name}] = sig
	}
	return out
}
