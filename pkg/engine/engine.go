// Package engine provides the Lisp evaluation engine for mate.
// It wraps zygomys in a sandboxed environment and produces a Design
// (parts, anchors, assemblies and their attachments) from user source code.
package engine

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/mate/pkg/align"
	"github.com/chazu/mate/pkg/design"
	"github.com/chazu/mate/pkg/kernel"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code. Err holds the
// underlying Go error when a builtin failed.
type EvalError struct {
	Line    int
	Col     int
	Message string
	Err     error
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

func (e EvalError) Unwrap() error { return e.Err }

// Engine wraps the zygomys interpreter for mate evaluation.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment and a fresh design for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64

	kernel   kernel.Kernel
	timeout  time.Duration
	strategy align.Strategy
	strict   bool
	logger   *log.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithKernel sets the geometry kernel used by shape builtins. Without a
// kernel, shapes evaluate to nil and parts only carry anchors.
func WithKernel(k kernel.Kernel) Option {
	return func(e *Engine) { e.kernel = k }
}

// WithTimeout overrides EvalTimeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithStrategy sets the placement strategy of every assembly the script
// creates.
func WithStrategy(s align.Strategy) Option {
	return func(e *Engine) { e.strategy = s }
}

// WithStrictAnchors makes every assembly reject ambiguous anchor names.
func WithStrictAnchors(strict bool) Option {
	return func(e *Engine) { e.strict = strict }
}

// WithLogger sets the logger handed to assemblies and used for tracing.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates a new Engine instance.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		timeout:  EvalTimeout,
		strategy: align.SinglePair{},
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate takes Lisp source code and produces a new Design.
// Each call creates a fresh zygomys sandbox for deterministic evaluation.
//
// Return semantics:
//   - On success: returns design + nil errors + nil error
//   - On parse/eval failure: returns nil design + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*design.Design, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		d, evalErrs, err := e.evaluate(source)
		ch <- evalResult{design: d, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, &e.mu, &e.generation, e.timeout)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*design.Design, []EvalError, error) {
	// Empty source is a valid program that produces an empty design.
	if strings.TrimSpace(source) == "" {
		return design.New(), nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	st := &evalState{
		kernel:   e.kernel,
		design:   design.New(),
		strategy: e.strategy,
		strict:   e.strict,
		logger:   e.logger,
	}
	registerBuiltins(env, st)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err, nil), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err, st.failure), nil
	}

	e.logger.Debug("evaluated", "parts", st.design.PartCount(), "assemblies", len(st.design.Assemblies()))
	return st.design, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError
// values, extracting line information when the message carries it. cause
// is the error a builtin raised, if any; its message replaces the
// interpreter's rendering of it.
func parseZygomysError(err error, cause error) []EvalError {
	msg := err.Error()

	ev := EvalError{Message: strings.TrimSpace(msg), Err: cause}
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			ev.Line, _ = strconv.Atoi(m[1])
			ev.Message = strings.TrimSpace(m[2])
			break
		}
	}
	if cause != nil {
		ev.Message = cause.Error()
	}
	if ev.Message == "" {
		ev.Message = strings.TrimSpace(msg)
	}
	return []EvalError{ev}
}

// IsTimeout reports whether err is an evaluation timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
