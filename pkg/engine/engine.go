// Package engine provides the Lisp console for burl. It wraps zygomys in a
// sandboxed environment whose builtins drive an editing session: creating
// and editing primitives and replaying pointer gestures against them.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/burl/pkg/gesture"
	"github.com/chazu/burl/pkg/kernel"
	"github.com/chazu/burl/pkg/session"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Result is what a script did to the session.
type Result struct {
	// Created lists objects added by the script, in order. Objects later
	// deleted by the same script are still listed.
	Created []kernel.ObjectID
	// Intents lists the gestures recognized while replaying taps and holds.
	Intents []gesture.Event
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout sets the hard limit for a single evaluation.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithThresholds sets the gesture timing used by tap, double-tap and hold.
func WithThresholds(t gesture.Thresholds) Option {
	return func(e *Engine) { e.thresholds = t }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Engine wraps the zygomys interpreter.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64

	timeout    time.Duration
	thresholds gesture.Thresholds
	logger     *slog.Logger
}

// NewEngine creates a new Engine instance.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		timeout:    EvalTimeout,
		thresholds: gesture.DefaultThresholds(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs Lisp source against s.
//
// Return semantics:
//   - On success: returns result + nil errors + nil error
//   - On parse/eval failure: returns the partial result + eval errors + nil
//     error; session changes made before the failure are kept
//   - On fatal failure (timeout, panic, superseded): returns an empty
//     result + nil + error
func (e *Engine) Evaluate(s *session.Synchronizer, source string) (Result, []EvalError, error) {
	if s == nil {
		return Result{}, nil, fmt.Errorf("evaluate: nil session")
	}

	gen := e.next()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		res, evalErrs, err := e.evaluate(ctx, s, source)
		ch <- evalResult{result: res, errors: evalErrs, err: err}
	}()

	return e.wait(ch, gen)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(ctx context.Context, s *session.Synchronizer, source string) (Result, []EvalError, error) {
	if strings.TrimSpace(source) == "" {
		return Result{}, nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	c := newConsole(ctx, s, e.thresholds, e.logger)
	defer c.close()
	registerBuiltins(env, c)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return c.result, parseZygomysError(err), nil
	}

	if _, err := env.Run(); err != nil {
		return c.result, parseZygomysError(err), nil
	}

	e.logger.Debug("script evaluated",
		"session", s.ID(), "created", len(c.result.Created), "intents", len(c.result.Intents))
	return c.result, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	for _, p := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := p.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
