// Command tqlsh is a demo/ops shell over the engine, analogous to the
// teacher's cmd/datalog: it opens a badger-backed store per scenario,
// builds and seeds a small schema through the real Insert pipeline,
// then drives the corresponding Match/Reduce/Sort/Delete pipeline and
// prints the result with a markdown table, the same division of
// labour as cmd/datalog/main.go's runDemo + table_formatter.go.
//
// There's no query-text parser in this engine (see the package
// layout: ir/annotator/lowering/executor, no parser), so "running a
// query" here means hand-building the ir.Block the way a parser would
// have, rather than reading TypeQL text. -scenario picks one
// demonstration; with no flag, all of them run in sequence.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/wbrown/typeql-engine/annotator"
	"github.com/wbrown/typeql-engine/concept"
	"github.com/wbrown/typeql-engine/executor"
	"github.com/wbrown/typeql-engine/internal/display"
	"github.com/wbrown/typeql-engine/internal/fixture"
	"github.com/wbrown/typeql-engine/ir"
	"github.com/wbrown/typeql-engine/lowering"
	"github.com/wbrown/typeql-engine/snapshot/badgerstore"
	"github.com/wbrown/typeql-engine/value"
	"github.com/wbrown/typeql-engine/writecheck"
)

var allScenarios = []string{
	"entity-attribute",
	"relation-roles",
	"delete-has",
	"reduce-group",
	"sort-comparability",
	"stratification",
}

func main() {
	var (
		dbBase      string
		scenarioArg string
		interactive bool
		help        bool
		verbose     bool
	)
	flag.StringVar(&dbBase, "db", "./tqldata", "base directory for per-scenario badger stores")
	flag.StringVar(&scenarioArg, "scenario", "", fmt.Sprintf("run a single scenario (%v); default runs all", allScenarios))
	flag.BoolVar(&interactive, "i", false, "interactive shell")
	flag.BoolVar(&help, "h", false, "show usage")
	flag.BoolVar(&verbose, "verbose", false, "print row counts and timings for every step")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "tqlsh: demo shell for the typed graph query engine\n\n")
		fmt.Fprintf(os.Stderr, "Usage: tqlsh [-db path] [-scenario name] [-i] [-verbose]\n\n")
		fmt.Fprintf(os.Stderr, "Scenarios: %v\n\n", allScenarios)
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "  tqlsh                              run every scenario\n")
		fmt.Fprintf(os.Stderr, "  tqlsh -scenario reduce-group       run one scenario\n")
		fmt.Fprintf(os.Stderr, "  tqlsh -i                           interactive shell\n")
	}
	flag.Parse()

	if help {
		flag.Usage()
		os.Exit(0)
	}

	if interactive {
		runInteractive(dbBase, verbose)
		return
	}

	if scenarioArg != "" {
		if err := runScenario(scenarioArg, dbBase, verbose); err != nil {
			fmt.Fprintln(os.Stderr, color.RedString("tqlsh: %v", err))
			os.Exit(1)
		}
		return
	}

	runDemo(dbBase, verbose)
}

// runDemo runs every scenario in sequence, reporting scenarios whose
// failure is itself the point (sort-comparability's second half,
// stratification) as expected rather than aborting the run.
func runDemo(dbBase string, verbose bool) {
	for _, name := range allScenarios {
		fmt.Println(color.CyanString("=== %s ===", name))
		start := time.Now()
		err := runScenario(name, dbBase, verbose)
		elapsed := time.Since(start)
		if err != nil {
			fmt.Println(color.YellowString("(%v)", elapsed))
			fmt.Println(color.RedString("error: %v", err))
		} else if verbose {
			fmt.Println(color.GreenString("ok (%v)", elapsed))
		}
		fmt.Println()
	}
}

func runScenario(name, dbBase string, verbose bool) error {
	switch name {
	case "entity-attribute":
		return demoEntityAttribute(dbBase, verbose)
	case "relation-roles":
		return demoRelationRoles(dbBase, verbose)
	case "delete-has":
		return demoDeleteHas(dbBase, verbose)
	case "reduce-group":
		return demoReduceGroup(dbBase, verbose)
	case "sort-comparability":
		return demoSortComparability(dbBase, verbose)
	case "stratification":
		return demoStratification(verbose)
	default:
		return fmt.Errorf("tqlsh: unknown scenario %q, want one of %v", name, allScenarios)
	}
}

func runInteractive(dbBase string, verbose bool) {
	fmt.Println("tqlsh interactive shell. Commands: list, run <scenario>, all, exit")
	reader := newLineReader(os.Stdin)
	for {
		fmt.Print("tqlsh> ")
		line, ok := reader.ReadLine()
		if !ok {
			return
		}
		switch {
		case line == "exit" || line == "quit":
			return
		case line == "list":
			fmt.Println(allScenarios)
		case line == "all":
			runDemo(dbBase, verbose)
		case len(line) > 4 && line[:4] == "run ":
			if err := runScenario(line[4:], dbBase, verbose); err != nil {
				fmt.Println(color.RedString("error: %v", err))
			}
		case line == "":
			// ignore
		default:
			fmt.Println(color.YellowString("unrecognized command %q -- try list, run <scenario>, all, exit", line))
		}
	}
}

// lineReader is a thin bufio.Scanner wrapper, the same minimal REPL
// input shape as cmd/datalog/main.go's runInteractive.
type lineReader struct {
	scanner *bufio.Scanner
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{scanner: bufio.NewScanner(r)}
}

func (l *lineReader) ReadLine() (string, bool) {
	if !l.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(l.scanner.Text()), true
}

// openStore opens a fresh badger store in its own per-scenario
// subdirectory, so runs of different scenarios never collide.
func openStore(dbBase, scenario string) (*badgerstore.Store, error) {
	path := filepath.Join(dbBase, scenario)
	return badgerstore.Open(path)
}

// ----- shared query/annotation plumbing -----

// matchBatch runs block as a Match stage against ctx, seeding the
// pipeline with a single empty row (there's no upstream for a root
// Match). pc accumulates the running/value-category state every later
// stage (Reduce/Sort/Delete) in the same pipeline annotates against.
func matchBatch(ctx *executor.ExecutionContext, pc *annotator.PipelineContext, block *ir.Block, rows *lowering.RowSchema) (*executor.FixedBatch, error) {
	if _, err := pc.AnnotateMatch(block); err != nil {
		return nil, fmt.Errorf("annotate match: %w", err)
	}
	cexec := lowering.LowerMatch(&block.Root, rows)
	pe := executor.NewPatternExecutor(cexec, ctx)
	seed := executor.NewFixedBatch(rows.Width())
	seed.Append(seed.NewRow(0))
	pe.Prepare(seed)
	return drainBatch(pe, rows.Width())
}

func drainBatch(stage interface {
	ComputeNextBatch(executor.ExecutionInterrupt) (*executor.FixedBatch, error)
}, width int) (*executor.FixedBatch, error) {
	interrupt := executor.NewExecutionInterrupt()
	out := executor.NewFixedBatch(width)
	for {
		batch, err := stage.ComputeNextBatch(interrupt)
		if err != nil {
			return nil, err
		}
		if batch == nil {
			return out, nil
		}
		out.Rows = append(out.Rows, batch.Rows...)
	}
}

func printTable(schema *concept.Schema, headers []string, slots []int, batch *executor.FixedBatch) {
	fm := display.NewFormatter(schema)
	fmt.Print(fm.Table(headers, slots, batch.Rows))
}

// ----- scenario 1: entity owns attribute -----

func demoEntityAttribute(dbBase string, verbose bool) error {
	store, err := openStore(dbBase, "entity-attribute")
	if err != nil {
		return err
	}
	defer store.Close()

	schema := concept.NewSchema()
	ids, err := fixture.BuildEntityAttributeSchema(schema)
	if err != nil {
		return err
	}

	write, err := store.OpenWrite(context.Background())
	if err != nil {
		return err
	}
	ctx := executor.NewWriteContext(write, schema, nil)
	if err := fixture.SeedEntityAttribute(ctx, ids); err != nil {
		write.Abort()
		return err
	}

	// match $p isa child, has $a;
	block := ir.NewBlock()
	p := block.Variables.Declare("p")
	pt := block.Variables.Declare("PT")
	a := block.Variables.Declare("a")
	block.Root.Constraints = []ir.Constraint{
		ir.LabelConstraint{Type: pt, Label: concept.NewLabel("child")},
		ir.Isa{Thing: p, Type: pt, Mode: ir.IsaExact},
		ir.Has{Owner: p, Attr: a},
	}

	pc := annotator.NewPipelineContext(schema)
	rows := lowering.NewRowSchema()
	batch, err := matchBatch(ctx, pc, block, rows)
	if err != nil {
		write.Abort()
		return err
	}
	if len(batch.Rows) != 1 {
		write.Abort()
		return fmt.Errorf("expected 1 row, got %d", len(batch.Rows))
	}

	if verbose {
		pSlot, _ := rows.Slot(p)
		aSlot, _ := rows.Slot(a)
		printTable(schema, []string{"p", "a"}, []int{int(pSlot), int(aSlot)}, batch)
	}

	_, err = write.Commit()
	return err
}

// ----- scenario 2: relation with inferred roles -----

func demoRelationRoles(dbBase string, verbose bool) error {
	store, err := openStore(dbBase, "relation-roles")
	if err != nil {
		return err
	}
	defer store.Close()

	schema := concept.NewSchema()
	ids, err := fixture.BuildRelationRolesSchema(schema)
	if err != nil {
		return err
	}

	write, err := store.OpenWrite(context.Background())
	if err != nil {
		return err
	}
	ctx := executor.NewWriteContext(write, schema, nil)
	if err := fixture.SeedRelationRoles(ctx, ids); err != nil {
		write.Abort()
		return err
	}

	// match $r isa membership; return count;
	block := ir.NewBlock()
	r := block.Variables.Declare("r")
	rt := block.Variables.Declare("RT")
	block.Root.Constraints = []ir.Constraint{
		ir.LabelConstraint{Type: rt, Label: concept.NewLabel("membership")},
		ir.Isa{Thing: r, Type: rt, Mode: ir.IsaExact},
	}

	pc := annotator.NewPipelineContext(schema)
	rows := lowering.NewRowSchema()
	batch, err := matchBatch(ctx, pc, block, rows)
	if err != nil {
		write.Abort()
		return err
	}

	count := block.Variables.Declare("count")
	cat, err := pc.AnnotateReduce(count, annotator.ReduceCount, r)
	if err != nil {
		write.Abort()
		return err
	}
	instr := lowering.LowerReduce(rows, annotator.ReduceCount, r, count, cat, nil)
	rexec := executor.NewReduceExecutor(instr, rows.Width())
	rexec.Prepare(batch)
	reduced, err := drainBatch(rexec, rows.Width())
	if err != nil {
		write.Abort()
		return err
	}
	if len(reduced.Rows) != 1 {
		write.Abort()
		return fmt.Errorf("expected 1 reduced row, got %d", len(reduced.Rows))
	}
	countSlot, _ := rows.Slot(count)
	got := reduced.Rows[0].Get(int(countSlot)).Value.(int64)
	if got != 1 {
		write.Abort()
		return fmt.Errorf("expected count 1, got %d", got)
	}
	if verbose {
		printTable(schema, []string{"count"}, []int{int(countSlot)}, reduced)
	}

	_, err = write.Commit()
	return err
}

// ----- scenario 3: delete has -----

func demoDeleteHas(dbBase string, verbose bool) error {
	store, err := openStore(dbBase, "delete-has")
	if err != nil {
		return err
	}
	defer store.Close()

	schema := concept.NewSchema()
	ids, err := fixture.BuildEntityAttributeSchema(schema)
	if err != nil {
		return err
	}

	write, err := store.OpenWrite(context.Background())
	if err != nil {
		return err
	}
	ctx := executor.NewWriteContext(write, schema, nil)
	if err := fixture.SeedEntityAttribute(ctx, ids); err != nil {
		write.Abort()
		return err
	}

	// match $p isa child, has $a; delete has $a of $p;
	block := ir.NewBlock()
	p := block.Variables.Declare("p")
	pt := block.Variables.Declare("PT")
	a := block.Variables.Declare("a")
	block.Root.Constraints = []ir.Constraint{
		ir.LabelConstraint{Type: pt, Label: concept.NewLabel("child")},
		ir.Isa{Thing: p, Type: pt, Mode: ir.IsaExact},
		ir.Has{Owner: p, Attr: a},
	}

	pc := annotator.NewPipelineContext(schema)
	rows := lowering.NewRowSchema()
	batch, err := matchBatch(ctx, pc, block, rows)
	if err != nil {
		write.Abort()
		return err
	}
	if len(batch.Rows) != 1 {
		write.Abort()
		return fmt.Errorf("expected 1 row before delete, got %d", len(batch.Rows))
	}

	pSlot, _ := rows.Slot(p)
	aSlot, _ := rows.Slot(a)

	bound := map[ir.VariableID]bool{p: true, pt: true, a: true}
	if err := writecheck.CheckDelete([]ir.VariableID{a}, bound, nil); err != nil {
		write.Abort()
		return err
	}
	if err := pc.AnnotateDelete([]ir.VariableID{a}); err != nil {
		write.Abort()
		return err
	}

	// Edges only, no Concepts: the has-edge is removed, the attribute
	// instance itself is left alone (§8 scenario 3).
	plan := &executor.DeletePlan{
		Edges: []executor.DeleteInstruction{
			executor.DeleteHas{OwnerSlot: pSlot, AttributeSlot: aSlot},
		},
	}
	dexec := executor.NewDeleteExecutor(plan, ctx)
	dexec.Prepare(batch)
	if _, err := drainBatch(dexec, rows.Width()); err != nil {
		write.Abort()
		return err
	}

	// match $p has $a; should now yield zero rows.
	afterBlock := ir.NewBlock()
	p2 := afterBlock.Variables.Declare("p")
	a2 := afterBlock.Variables.Declare("a")
	afterBlock.Root.Constraints = []ir.Constraint{
		ir.Has{Owner: p2, Attr: a2},
	}
	afterPC := annotator.NewPipelineContext(schema)
	afterRows := lowering.NewRowSchema()
	afterBatch, err := matchBatch(ctx, afterPC, afterBlock, afterRows)
	if err != nil {
		write.Abort()
		return err
	}
	if len(afterBatch.Rows) != 0 {
		write.Abort()
		return fmt.Errorf("expected 0 rows after delete has, got %d", len(afterBatch.Rows))
	}

	// match $a isa age; should still yield one row -- the attribute
	// instance survives since it was never targeted for deletion.
	ageBlock := ir.NewBlock()
	age := ageBlock.Variables.Declare("a")
	ageType := ageBlock.Variables.Declare("AT")
	ageBlock.Root.Constraints = []ir.Constraint{
		ir.LabelConstraint{Type: ageType, Label: concept.NewLabel("age")},
		ir.Isa{Thing: age, Type: ageType, Mode: ir.IsaExact},
	}
	agePC := annotator.NewPipelineContext(schema)
	ageRows := lowering.NewRowSchema()
	ageBatch, err := matchBatch(ctx, agePC, ageBlock, ageRows)
	if err != nil {
		write.Abort()
		return err
	}
	if len(ageBatch.Rows) != 1 {
		write.Abort()
		return fmt.Errorf("expected attribute instance to survive (1 row), got %d", len(ageBatch.Rows))
	}

	if verbose {
		ageSlot, _ := ageRows.Slot(age)
		printTable(schema, []string{"a"}, []int{int(ageSlot)}, ageBatch)
	}

	_, err = write.Commit()
	return err
}

// ----- scenario 4: reduce per group -----

func demoReduceGroup(dbBase string, verbose bool) error {
	store, err := openStore(dbBase, "reduce-group")
	if err != nil {
		return err
	}
	defer store.Close()

	schema := concept.NewSchema()
	ids, err := fixture.BuildReduceGroupSchema(schema)
	if err != nil {
		return err
	}

	write, err := store.OpenWrite(context.Background())
	if err != nil {
		return err
	}
	ctx := executor.NewWriteContext(write, schema, nil)
	if err := fixture.SeedReduceGroup(ctx, ids); err != nil {
		write.Abort()
		return err
	}

	// match $p isa person, has age $a; reduce $c = count groupby $a;
	block := ir.NewBlock()
	p := block.Variables.Declare("p")
	pt := block.Variables.Declare("PT")
	a := block.Variables.Declare("a")
	block.Root.Constraints = []ir.Constraint{
		ir.LabelConstraint{Type: pt, Label: concept.NewLabel("person")},
		ir.Isa{Thing: p, Type: pt, Mode: ir.IsaExact},
		ir.Has{Owner: p, Attr: a},
	}

	pc := annotator.NewPipelineContext(schema)
	rows := lowering.NewRowSchema()
	batch, err := matchBatch(ctx, pc, block, rows)
	if err != nil {
		write.Abort()
		return err
	}
	if len(batch.Rows) != 3 {
		write.Abort()
		return fmt.Errorf("expected 3 rows, got %d", len(batch.Rows))
	}

	pc.BindValueCategory(a, value.Integer)

	c := block.Variables.Declare("c")
	cat, err := pc.AnnotateReduce(c, annotator.ReduceCount, a)
	if err != nil {
		write.Abort()
		return err
	}
	instr := lowering.LowerReduce(rows, annotator.ReduceCount, a, c, cat, []ir.VariableID{a})
	rexec := executor.NewReduceExecutor(instr, rows.Width())
	rexec.Prepare(batch)
	reduced, err := drainBatch(rexec, rows.Width())
	if err != nil {
		write.Abort()
		return err
	}
	if len(reduced.Rows) != 2 {
		write.Abort()
		return fmt.Errorf("expected 2 groups, got %d", len(reduced.Rows))
	}

	aSlot, _ := rows.Slot(a)
	cSlot, _ := rows.Slot(c)
	if verbose {
		printTable(schema, []string{"a", "c"}, []int{int(aSlot), int(cSlot)}, reduced)
	}

	_, err = write.Commit()
	return err
}

// ----- scenario 5: sort comparability -----

func demoSortComparability(dbBase string, verbose bool) error {
	store, err := openStore(dbBase, "sort-comparability")
	if err != nil {
		return err
	}
	defer store.Close()

	schema := concept.NewSchema()
	ids, err := fixture.BuildSortSchema(schema)
	if err != nil {
		return err
	}

	write, err := store.OpenWrite(context.Background())
	if err != nil {
		return err
	}
	ctx := executor.NewWriteContext(write, schema, nil)
	if err := fixture.SeedSort(ctx, ids); err != nil {
		write.Abort()
		return err
	}

	// match $p isa person, has name $n, has age $a; sort $n, $a; --
	// each sort key named by its attribute type, so it gets a single
	// concrete type (and category) straight from the match.
	block := ir.NewBlock()
	p := block.Variables.Declare("p")
	pt := block.Variables.Declare("PT")
	n := block.Variables.Declare("n")
	nt := block.Variables.Declare("NT")
	a := block.Variables.Declare("a")
	at := block.Variables.Declare("AT")
	block.Root.Constraints = []ir.Constraint{
		ir.LabelConstraint{Type: pt, Label: concept.NewLabel("person")},
		ir.Isa{Thing: p, Type: pt, Mode: ir.IsaExact},
		ir.LabelConstraint{Type: nt, Label: concept.NewLabel("name")},
		ir.Isa{Thing: n, Type: nt, Mode: ir.IsaExact},
		ir.Has{Owner: p, Attr: n},
		ir.LabelConstraint{Type: at, Label: concept.NewLabel("age")},
		ir.Isa{Thing: a, Type: at, Mode: ir.IsaExact},
		ir.Has{Owner: p, Attr: a},
	}

	pc := annotator.NewPipelineContext(schema)
	rows := lowering.NewRowSchema()
	batch, err := matchBatch(ctx, pc, block, rows)
	if err != nil {
		write.Abort()
		return err
	}

	// §8 scenario 5: "each sort variable is validated independently" --
	// AnnotateSort checks the keys of one call against one another, so
	// each key gets its own AnnotateSort call. Neither n nor a needs an explicit
	// BindValueCategory: each resolves its single candidate attribute
	// type's value category straight from the Match stage's running set.
	if err := pc.AnnotateSort([]ir.VariableID{n}); err != nil {
		write.Abort()
		return err
	}
	if err := pc.AnnotateSort([]ir.VariableID{a}); err != nil {
		write.Abort()
		return err
	}

	nSlot, _ := rows.Slot(n)
	aSlot, _ := rows.Slot(a)
	sexec := executor.NewSortExecutor([]executor.SortKey{{Slot: int(nSlot)}, {Slot: int(aSlot)}})
	sexec.Prepare(batch)
	sorted, err := drainBatch(sexec, rows.Width())
	if err != nil {
		write.Abort()
		return err
	}
	if verbose {
		printTable(schema, []string{"n", "a"}, []int{int(nSlot), int(aSlot)}, sorted)
	}

	// match $x isa person, has $v; sort $v; -- $v is left unconstrained,
	// so it ranges over every attribute type person owns (name and
	// age), spanning both String and Integer; this must fail.
	vBlock := ir.NewBlock()
	x := vBlock.Variables.Declare("x")
	xt := vBlock.Variables.Declare("XT")
	v := vBlock.Variables.Declare("v")
	vBlock.Root.Constraints = []ir.Constraint{
		ir.LabelConstraint{Type: xt, Label: concept.NewLabel("person")},
		ir.Isa{Thing: x, Type: xt, Mode: ir.IsaExact},
		ir.Has{Owner: x, Attr: v},
	}
	vPC := annotator.NewPipelineContext(schema)
	vRows := lowering.NewRowSchema()
	if _, err := matchBatch(ctx, vPC, vBlock, vRows); err != nil {
		write.Abort()
		return err
	}

	err = vPC.AnnotateSort([]ir.VariableID{v})
	write.Abort()
	var uncomparable *annotator.UncomparableValueTypesForSortVariable
	if errors.As(err, &uncomparable) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("expected sort on $v to fail with UncomparableValueTypesForSortVariable, it did not")
	}
	return fmt.Errorf("expected UncomparableValueTypesForSortVariable, got: %w", err)
}

// ----- scenario 6: stratification violation -----

func demoStratification(verbose bool) error {
	err := fixture.StratificationViolation()
	if err == nil {
		return fmt.Errorf("expected a stratification violation, got none")
	}
	if verbose {
		fmt.Println(color.RedString("StratificationViolation: %v", err))
	}
	return nil
}
