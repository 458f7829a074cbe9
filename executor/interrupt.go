package executor

import "sync/atomic"

// ExecutionInterrupt is a cooperative cancellation token shared across
// every executor in a pipeline (§5). Signal is safe to call from any
// goroutine; Check is cheap enough to call on every row if a caller
// wants tighter granularity than CheckInterruptFrequencyRows.
type ExecutionInterrupt struct {
	flag *atomic.Bool
}

// NewExecutionInterrupt returns a token in the not-interrupted state.
func NewExecutionInterrupt() ExecutionInterrupt {
	return ExecutionInterrupt{flag: new(atomic.Bool)}
}

// Signal marks the token interrupted. Idempotent.
func (i ExecutionInterrupt) Signal() {
	if i.flag != nil {
		i.flag.Store(true)
	}
}

// Check reports whether the token has been signalled.
func (i ExecutionInterrupt) Check() bool {
	return i.flag != nil && i.flag.Load()
}

// InterruptedError is returned by a stage's compute_next_batch-style
// method when it observes an interrupted token mid-batch.
type InterruptedError struct{}

func (*InterruptedError) Error() string { return "executor: execution interrupted" }
