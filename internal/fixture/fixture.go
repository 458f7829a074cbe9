// Package fixture holds the schema and data builders shared by the
// ambient CLI tools (cmd/tqlsh, cmd/loadschema): each exported Build
// function defines a small schema against a *concept.Schema, and the
// paired Seed function inserts data into it by compiling and running
// a real Insert pipeline (annotator -> writecheck -> lowering ->
// executor), not by poking the store directly. This keeps the fixture
// data honest about what the engine actually accepts.
//
// concept.Schema has no wire encoding of its own (see snapshot/typecache.go:
// it only caches already-built Schema objects in memory per sequence
// number within one process). Each tool therefore builds its schema in
// process with a Build function; because concept.NewSchema starts
// nextID at 1, the same Build function yields the same TypeIDs in every
// run. cmd/tqlsh does not read a store populated by cmd/loadschema: it
// builds and seeds its own store per scenario.
package fixture

import (
	"fmt"

	"github.com/wbrown/typeql-engine/concept"
	"github.com/wbrown/typeql-engine/executor"
)

// BuildFunc defines a scenario's schema against a fresh *concept.Schema,
// returning the type ids a Seed/query phase needs by name.
type BuildFunc func(*concept.Schema) (map[string]concept.TypeID, error)

// SeedFunc inserts a scenario's fixture data given the schema's type ids.
type SeedFunc func(*executor.ExecutionContext, map[string]concept.TypeID) error

// Scenario names one of the end-to-end demonstrations tqlsh/loadschema
// can build a store for.
type Scenario struct {
	Name  string
	Build BuildFunc
	Seed  SeedFunc
}

// Scenarios lists every schema+data fixture available to -scenario.
// "delete-has" and "stratification" are deliberately absent: the
// former reuses "entity-attribute"'s schema and data verbatim (it
// only differs in its query phase), and the latter never touches a
// schema or a store at all (it is pure function-registry analysis).
var Scenarios = []Scenario{
	{Name: "entity-attribute", Build: BuildEntityAttributeSchema, Seed: SeedEntityAttribute},
	{Name: "relation-roles", Build: BuildRelationRolesSchema, Seed: SeedRelationRoles},
	{Name: "reduce-group", Build: BuildReduceGroupSchema, Seed: SeedReduceGroup},
	{Name: "sort-comparability", Build: BuildSortSchema, Seed: SeedSort},
}

// Lookup resolves a scenario by name.
func Lookup(name string) (Scenario, bool) {
	for _, s := range Scenarios {
		if s.Name == name {
			return s, true
		}
	}
	return Scenario{}, false
}

// Names returns every registered scenario's name, for usage/help text.
func Names() []string {
	out := make([]string, len(Scenarios))
	for i, s := range Scenarios {
		out[i] = s.Name
	}
	return out
}

// drain runs a stage executor to completion, discarding its output --
// used by Seed functions whose only goal is the side effect of writing
// to the store, not the rows the stage hands back.
func drain(stage interface {
	ComputeNextBatch(executor.ExecutionInterrupt) (*executor.FixedBatch, error)
}) error {
	interrupt := executor.NewExecutionInterrupt()
	for {
		batch, err := stage.ComputeNextBatch(interrupt)
		if err != nil {
			return fmt.Errorf("fixture: %w", err)
		}
		if batch == nil {
			return nil
		}
	}
}
