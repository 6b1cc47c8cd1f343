package engine

import (
	"errors"
	"fmt"
	"time"
)

// EvalTimeout is the default hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when a script runs past the engine's limit.
	ErrTimeout = errors.New("evaluation timed out")
	// ErrSuperseded is returned when a newer Evaluate call started while
	// this one was running. Its result is dropped.
	ErrSuperseded = errors.New("evaluation superseded by newer request")
	// ErrAbandoned is returned by builtins called after their evaluation
	// was given up on.
	ErrAbandoned = errors.New("evaluation abandoned")
)

// evalResult carries one evaluation's outcome back to Evaluate.
type evalResult struct {
	result Result
	errors []EvalError
	err    error
}

// wait blocks for the outcome of generation gen. On timeout the worker may
// still be running; Evaluate cancels its context so further builtins fail
// with ErrAbandoned.
func (e *Engine) wait(ch <-chan evalResult, gen uint64) (Result, []EvalError, error) {
	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if !e.current(gen) {
			return Result{}, nil, ErrSuperseded
		}
		return res.result, res.errors, res.err
	case <-timer.C:
		e.logger.Warn("evaluation timed out", "timeout", e.timeout, "generation", gen)
		return Result{}, nil, fmt.Errorf("%w after %s", ErrTimeout, e.timeout)
	}
}

// next starts a new generation and returns it.
func (e *Engine) next() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.generation++
	return e.generation
}

func (e *Engine) current(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation == gen
}
