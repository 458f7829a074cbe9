package executor

import (
	"github.com/wbrown/typeql-engine/concept"
	"github.com/wbrown/typeql-engine/ir"
	"github.com/wbrown/typeql-engine/snapshot"
)

// ExecutionContext bundles everything a stage executor needs to read
// or write things against a single open snapshot, mirroring the
// teacher's per-query Context (datalog/executor/context.go) generalized
// from datalog annotation hooks to the concept/snapshot types this
// engine's stages actually operate on.
type ExecutionContext struct {
	Read       snapshot.ReadSnapshot
	Write      snapshot.WriteSnapshot // nil for read-only pipelines
	Schema     *concept.Schema
	Parameters *ir.ParameterRegistry
	Things     *ThingManager
}

// NewReadContext builds a context for a read-only (Match-only)
// pipeline.
func NewReadContext(read snapshot.ReadSnapshot, schema *concept.Schema, params *ir.ParameterRegistry) *ExecutionContext {
	return &ExecutionContext{Read: read, Schema: schema, Parameters: params, Things: NewThingManager(read, nil)}
}

// NewWriteContext builds a context for a pipeline that may also
// materialize or delete things.
func NewWriteContext(write snapshot.WriteSnapshot, schema *concept.Schema, params *ir.ParameterRegistry) *ExecutionContext {
	return &ExecutionContext{Read: write, Write: write, Schema: schema, Parameters: params, Things: NewThingManager(write, write)}
}
