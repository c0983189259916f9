// Package compile is the single public entry point: it runs an expression
// through every stage of the pipeline and hands back a finished recipe
// (spec.md §4.0).
package compile

import (
	"log"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/tscc-project/tscc/codegen"
	"github.com/tscc-project/tscc/expr"
	"github.com/tscc-project/tscc/planner"
	"github.com/tscc-project/tscc/schedule"
	"github.com/tscc-project/tscc/sequence"
	"github.com/tscc-project/tscc/sizes"
	"github.com/tscc-project/tscc/types"
	"github.com/tscc-project/tscc/unified"
)

// Logger is the diagnostic sink every stage of a build writes through.
// Diagnostics (auto-broadcast notices, in-place storage choices) never
// affect correctness, so a nil Logger falling back to a no-op would be
// just as safe as defaultLogger; defaultLogger is the more useful zero
// value in practice since builds are normally run interactively.
type Logger interface {
	Warnf(format string, args ...any)
	Debugf(format string, args ...any)
}

// stdLogger adapts the standard library's log.Logger to the Logger
// interface. The pack has no third-party logging dependency for this
// package to pick up, so the standard library is the right level here
// (see DESIGN.md).
type stdLogger struct{ l *log.Logger }

func (s stdLogger) Warnf(format string, args ...any)  { s.l.Printf("WARN "+format, args...) }
func (s stdLogger) Debugf(format string, args ...any) { s.l.Printf("DEBUG "+format, args...) }

func defaultLogger() Logger { return stdLogger{l: log.Default()} }

// Session is a single compile build's identity: its uuid tags every log
// line the build emits, so interleaved builds (e.g. a test suite running
// several in one process) stay distinguishable in shared log output. The
// template-instantiation cache a build accumulates is scoped to the
// Session's single Compile call and is never reused across builds.
type Session struct {
	ID     uuid.UUID
	Logger Logger
}

// NewSession creates a fresh build identity.
func NewSession(opts ...Option) *Session {
	s := &Session{ID: uuid.New(), Logger: defaultLogger()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Option configures a Session.
type Option func(*Session)

// WithLogger overrides the default standard-library logger.
func WithLogger(l Logger) Option {
	return func(s *Session) { s.Logger = l }
}

// Compile runs e through substitution, validation, translation, planning,
// scheduling, sequencing, and assembly, in that order, and returns the
// finished recipe.
func Compile(e *expr.Expr, env types.CompileEnv, symEnv sizes.SymEnv, opts ...Option) (*codegen.Recipe, error) {
	s := NewSession(opts...)
	return s.Compile(e, env, symEnv)
}

// Compile runs the pipeline under s, so every diagnostic it emits carries
// s's session id.
func (s *Session) Compile(e *expr.Expr, env types.CompileEnv, symEnv sizes.SymEnv) (*codegen.Recipe, error) {
	s.Logger.Debugf("[%s] substituting symbolic sizes", s.ID)
	substituted, err := e.SubstSymSizes(symEnv)
	if err != nil {
		return nil, errors.Wrap(err, "substituting symbolic sizes")
	}

	if err := expr.Check(substituted); err != nil {
		return nil, errors.Wrap(err, "validating expression graph")
	}

	s.Logger.Debugf("[%s] translating to unified form", s.ID)
	// Translate resolves sizes against symEnv itself; it gets the original
	// graph so Var specs keep the symbolic shapes CompileEnv is keyed by.
	u, err := unified.Translate(e, symEnv)
	if err != nil {
		return nil, errors.Wrap(err, "translating to unified form")
	}

	s.Logger.Debugf("[%s] planning execution units", s.ID)
	plan, err := planner.Plan(u, env)
	if err != nil {
		return nil, errors.Wrap(err, "planning execution units")
	}

	s.Logger.Debugf("[%s] scheduling streams and events", s.ID)
	sched, err := schedule.Schedule(plan)
	if err != nil {
		return nil, errors.Wrap(err, "scheduling streams and events")
	}

	s.Logger.Debugf("[%s] sequencing device calls", s.ID)
	execCalls, warmupCalls, cache, err := sequence.Sequence(sched, plan)
	if err != nil {
		return nil, errors.Wrap(err, "sequencing device calls")
	}

	s.Logger.Debugf("[%s] assembling recipe (%d kernel/host wrappers)", s.ID, len(cache.Sources))
	recipe, err := codegen.Assemble(plan, sched, execCalls, warmupCalls, cache)
	if err != nil {
		return nil, errors.Wrap(err, "assembling recipe")
	}
	return recipe, nil
}
