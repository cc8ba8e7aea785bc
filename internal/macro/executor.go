package macro

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hlemont/stream-automate/internal/apperr"
	"github.com/hlemont/stream-automate/internal/logging"
)

// Backend performs key taps and typing. input.InputInjector satisfies it.
type Backend interface {
	TapKey(key string, modifiers []string) error
	TypeText(text string) error
}

// Outcome is the terminal state of one run.
type Outcome int

const (
	// Completed: every control ran.
	Completed Outcome = iota
	// Rejected: validation failed, nothing ran.
	Rejected
	// Failed: the backend failed at FailedAt; earlier controls ran.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Rejected:
		return "rejected"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result describes how a run ended.
type Result struct {
	Outcome Outcome

	// Invalid lists every rejected control when Outcome is Rejected.
	// It is empty for a rejected empty macro.
	Invalid []apperr.Invalid

	// FailedAt is the index of the failing control when Outcome is Failed.
	FailedAt int

	// Cause is the backend error when Outcome is Failed.
	Cause error
}

// Err converts the result into a taxonomy error, nil when Completed.
// internal marks backend failures as server faults.
func (r Result) Err(internal bool) error {
	switch r.Outcome {
	case Rejected:
		if len(r.Invalid) == 0 {
			return apperr.ValidationFailed(nil, "invalid macro: no controls")
		}
		parts := make([]string, len(r.Invalid))
		for i, inv := range r.Invalid {
			parts[i] = fmt.Sprintf("#%d %s", inv.Index, inv.Type)
		}
		return apperr.ValidationFailed(r.Invalid, "invalid macro: invalid control(s) %s", strings.Join(parts, ", "))
	case Failed:
		return apperr.ExecutionFailed(internal, r.FailedAt, fmt.Errorf("control #%d: %w", r.FailedAt, r.Cause))
	default:
		return nil
	}
}

// Check returns every invalid control of m with its index and type.
func Check(m Macro) []apperr.Invalid {
	var invalid []apperr.Invalid
	for i, c := range m {
		if !ValidateControl(c) {
			invalid = append(invalid, apperr.Invalid{Index: i, Type: describe(c)})
		}
	}
	return invalid
}

// Executor runs macros one at a time against a backend.
type Executor struct {
	mu      sync.Mutex
	backend Backend
	sleep   func(time.Duration)
	logger  *slog.Logger
	observe func(Result, time.Duration)
}

// Option configures an Executor.
type Option func(*Executor)

// WithSleep replaces time.Sleep for delay controls.
func WithSleep(sleep func(time.Duration)) Option {
	return func(e *Executor) {
		e.sleep = sleep
	}
}

// WithLogger sets the executor logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithObserver registers a callback invoked after every run.
func WithObserver(fn func(Result, time.Duration)) Option {
	return func(e *Executor) {
		e.observe = fn
	}
}

// NewExecutor creates an executor for backend.
func NewExecutor(backend Backend, opts ...Option) *Executor {
	e := &Executor{
		backend: backend,
		sleep:   time.Sleep,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run validates m, then executes it in order while holding the executor
// lock. Validation failures never touch the backend.
func (e *Executor) Run(m Macro) Result {
	start := time.Now()
	res := e.run(m)
	if e.observe != nil {
		e.observe(res, time.Since(start))
	}
	return res
}

func (e *Executor) run(m Macro) Result {
	if len(m) == 0 {
		return Result{Outcome: Rejected, FailedAt: -1}
	}
	if invalid := Check(m); len(invalid) > 0 {
		return Result{Outcome: Rejected, Invalid: invalid, FailedAt: -1}
	}

	actions := make([]Action, len(m))
	for i, c := range m {
		a, err := Decode(c)
		if err != nil {
			return Result{
				Outcome:  Rejected,
				Invalid:  []apperr.Invalid{{Index: i, Type: describe(c)}},
				FailedAt: -1,
			}
		}
		actions[i] = a
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for i, a := range actions {
		if err := e.perform(a); err != nil {
			e.logger.Warn("control failed", "index", i, "type", a.Type(), "error", err)
			return Result{Outcome: Failed, FailedAt: i, Cause: err}
		}
	}
	return Result{Outcome: Completed, FailedAt: -1}
}

func (e *Executor) perform(a Action) error {
	switch a := a.(type) {
	case KeyTap:
		e.logger.Debug("key tap", "key", a.Key, "modifiers", a.Modifiers)
		return e.backend.TapKey(a.Key, a.Modifiers)
	case TypeText:
		e.logger.Debug("type text", "length", len(a.Text))
		return e.backend.TypeText(a.Text)
	case Delay:
		e.logger.Debug("delay", "ms", a.Milliseconds)
		e.sleep(a.Duration())
		return nil
	default:
		return fmt.Errorf("unsupported action %T", a)
	}
}
