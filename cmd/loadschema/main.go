// Command loadschema builds one of the canned demonstration schemas
// and seeds it with data against a badger-backed store, the way
// cmd/build-testdb seeds a fixed OHLC dataset (config flag, build,
// stats, done message). The schema itself is not written to the store;
// it exists only in this process. tqlsh does not open the store this
// command writes: it builds and seeds its own store per scenario
// under its -db directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/wbrown/typeql-engine/concept"
	"github.com/wbrown/typeql-engine/executor"
	"github.com/wbrown/typeql-engine/internal/fixture"
	"github.com/wbrown/typeql-engine/snapshot/badgerstore"
)

func main() {
	scenarioFlag := flag.String("scenario", "entity-attribute", fmt.Sprintf("fixture scenario to load (%v)", fixture.Names()))
	dbPath := flag.String("db", "./tqldata", "badger database directory")
	flag.Parse()

	scenario, ok := fixture.Lookup(*scenarioFlag)
	if !ok {
		fmt.Fprintf(os.Stderr, "loadschema: unknown scenario %q, want one of %v\n", *scenarioFlag, fixture.Names())
		os.Exit(1)
	}

	fmt.Printf("Loading scenario %q into %s\n", scenario.Name, *dbPath)

	store, err := badgerstore.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loadschema: open store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	schema := concept.NewSchema()

	ids, err := scenario.Build(schema)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loadschema: build schema: %v\n", err)
		os.Exit(1)
	}

	write, err := store.OpenWrite(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loadschema: open write snapshot: %v\n", err)
		os.Exit(1)
	}

	execCtx := executor.NewWriteContext(write, schema, nil)
	if err := scenario.Seed(execCtx, ids); err != nil {
		write.Abort()
		fmt.Fprintf(os.Stderr, "loadschema: seed: %v\n", err)
		os.Exit(1)
	}

	seq, err := write.Commit()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loadschema: commit: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Committed at sequence %d\n", seq)
	fmt.Printf("Types defined: %d\n", len(ids))
	for name, id := range ids {
		fmt.Printf("  %-12s -> type %d\n", name, id)
	}

	fmt.Printf("\n✅ Done! Scenario %q loaded into %s\n", scenario.Name, *dbPath)
}
