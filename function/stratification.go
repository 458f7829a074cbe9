package function

import (
	"fmt"
	"strings"

	"github.com/wbrown/typeql-engine/ir"
)

// StratificationError reports a recursive cycle through a negation or
// reduction (§4.6: "no recursive cycle through negation/reduction";
// §7: "reports the cycle"), naming the full cycle rather than just
// flagging that one exists, mirroring the original's
// `StratificationViolation(cycle_names: String)`.
type StratificationError struct {
	Cycle []string
}

func (e *StratificationError) Error() string {
	return fmt.Sprintf("function: detected a recursive cycle through a negation or reduction: [%s]", strings.Join(e.Cycle, ", "))
}

// CheckStratification verifies that every cycle in the call graph is
// free of edges marked ThroughNegation/ThroughReduction. A cycle made
// up entirely of ordinary calls is legal recursion; a cycle containing
// even one restricted edge is a stratification violation, wherever in
// the cycle that edge falls (not just the edge that closes it).
func CheckStratification(reg *Registry) error {
	all := reg.All()

	const (
		white = 0 // unvisited
		gray  = 1 // on the current DFS stack
		black = 2 // fully explored
	)
	color := make(map[ir.FunctionID]int, len(all))
	var pathIDs []ir.FunctionID
	var pathRestricted []bool // pathRestricted[i] = edge (pathIDs[i] -> pathIDs[i+1]) is restricted

	var visit func(id ir.FunctionID) error
	visit = func(id ir.FunctionID) error {
		color[id] = gray
		pathIDs = append(pathIDs, id)

		sig, ok := all[id]
		if ok {
			for _, edge := range sig.Calls {
				restricted := edge.ThroughNegation || edge.ThroughReduction
				pathRestricted = append(pathRestricted, restricted)

				switch color[edge.Callee] {
				case gray:
					if err := checkCycle(pathIDs, pathRestricted, edge.Callee); err != nil {
						return err
					}
				case white:
					if err := visit(edge.Callee); err != nil {
						return err
					}
				}

				pathRestricted = pathRestricted[:len(pathRestricted)-1]
			}
		}

		pathIDs = pathIDs[:len(pathIDs)-1]
		color[id] = black
		return nil
	}

	for id := range all {
		if color[id] == white {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkCycle inspects the cycle formed by closing pathIDs back to
// target: if any edge along it is restricted, report a
// StratificationError naming the full cycle.
func checkCycle(pathIDs []ir.FunctionID, pathRestricted []bool, target ir.FunctionID) error {
	start := -1
	for i, id := range pathIDs {
		if id == target {
			start = i
			break
		}
	}
	if start == -1 {
		return nil // defensive: should always be found when color[target] == gray
	}

	anyRestricted := false
	for i := start; i < len(pathRestricted); i++ {
		if pathRestricted[i] {
			anyRestricted = true
			break
		}
	}
	if !anyRestricted {
		return nil
	}

	names := make([]string, 0, len(pathIDs)-start+1)
	for _, id := range pathIDs[start:] {
		names = append(names, id.Name)
	}
	names = append(names, target.Name)
	return &StratificationError{Cycle: names}
}
