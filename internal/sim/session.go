package sim

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/san-kum/popdyn/internal/config"
	"github.com/san-kum/popdyn/internal/dynamo"
	"github.com/san-kum/popdyn/internal/ecology"
	"github.com/san-kum/popdyn/internal/integrators"
	"github.com/san-kum/popdyn/internal/metrics"
)

type Options struct {
	StepSize              float64
	ExtinctionFloor       float64
	ConservationTolerance float64
	FullResolution        int
	DecimateEvery         int
	Thresholds            metrics.Thresholds
	// Integrator defaults to RK4 with ExtinctionFloor.
	Integrator dynamo.Integrator
	// Defaults maps each model to the parameters SetModel switches to.
	Defaults map[dynamo.ModelKind]ecology.Params
}

func DefaultOptions() Options {
	return OptionsFromConfig(config.DefaultConfig())
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		StepSize:              cfg.StepSize,
		ExtinctionFloor:       cfg.ExtinctionFloor,
		ConservationTolerance: cfg.ConservationTolerance,
		FullResolution:        cfg.History.FullResolution,
		DecimateEvery:         cfg.History.DecimateEvery,
		Thresholds:            cfg.Thresholds,
		Defaults: map[dynamo.ModelKind]ecology.Params{
			dynamo.Competition:  cfg.Params(dynamo.Competition),
			dynamo.PredatorPrey: cfg.Params(dynamo.PredatorPrey),
		},
	}
}

// Session is one simulation: parameters, state, clock, history and
// diagnostics. It is not safe for concurrent use; see Runner.
type Session struct {
	id      string
	opts    Options
	integ   dynamo.Integrator
	params  ecology.Params
	state   dynamo.State
	t       float64
	steps   int
	running bool
	history *History

	// nil unless the model has a first integral
	conservation *metrics.Conservation
	warnings     metrics.Warnings
}

// New creates an idle session seeded from params.
func New(params ecology.Params, opts Options) (*Session, error) {
	if params == nil {
		return nil, fmt.Errorf("%w: nil parameter set", dynamo.ErrUnknownModel)
	}
	integ := opts.Integrator
	if integ == nil {
		integ = integrators.NewRK4(opts.ExtinctionFloor)
	}
	s := &Session{
		id:      uuid.NewString(),
		opts:    opts,
		integ:   integ,
		params:  params.Clone(),
		history: NewHistory(opts.FullResolution, opts.DecimateEvery),
	}
	if err := s.Reset(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewModel creates an idle session with the default parameters of kind.
func NewModel(kind dynamo.ModelKind, opts Options) (*Session, error) {
	p, err := opts.defaults(kind)
	if err != nil {
		return nil, err
	}
	return New(p, opts)
}

func (s *Session) ID() string                 { return s.id }
func (s *Session) Running() bool              { return s.running }
func (s *Session) Model() dynamo.ModelKind    { return s.params.Kind() }
func (s *Session) State() dynamo.State        { return s.state }
func (s *Session) ElapsedTime() float64       { return s.t }
func (s *Session) Steps() int                 { return s.steps }
func (s *Session) Params() ecology.Params     { return s.params.Clone() }
func (s *Session) Warnings() metrics.Warnings { return s.warnings.Clone() }

// Start marks the session running and reports whether it was idle.
func (s *Session) Start() bool {
	if s.running {
		return false
	}
	s.running = true
	return true
}

// Pause marks the session idle. It is idempotent.
func (s *Session) Pause() {
	s.running = false
}

// Reset stops the session, reseeds it from the current parameters and
// clears the realism warnings.
func (s *Session) Reset() error {
	s.running = false
	if err := ecology.Validate(s.params); err != nil {
		return err
	}

	s.t = 0
	s.steps = 0
	s.state = s.params.Initial().Floor(s.opts.ExtinctionFloor)
	s.history.Reset(dynamo.TrajectoryPoint{Time: 0, N1: s.state.N1, N2: s.state.N2})

	s.conservation = nil
	if h, ok := s.params.(dynamo.Hamiltonian); ok {
		s.conservation = metrics.NewConservation(h, s.opts.ConservationTolerance)
		s.conservation.Start(s.state)
	}
	// warnings are rebuilt by the next tick or parameter edit
	s.warnings = metrics.Warnings{}
	return nil
}

// SetParameter edits one field. The trajectory is not reseeded; call
// Reset to restart from the new values.
func (s *Session) SetParameter(name string, value float64) error {
	if err := s.params.SetParam(name, value); err != nil {
		return err
	}
	s.warnings.Messages = s.opts.Thresholds.ParameterMessages(s.params)
	return nil
}

// SetAllParameters applies a partial update atomically: either every
// entry is applied or none is.
func (s *Session) SetAllParameters(values map[string]float64) error {
	out, err := ecology.ApplyAll(s.params, values)
	if err != nil {
		return err
	}
	s.params = out
	if h, ok := out.(dynamo.Hamiltonian); ok && s.conservation != nil {
		s.conservation.Rebind(h)
	}
	s.warnings.Messages = s.opts.Thresholds.ParameterMessages(s.params)
	return nil
}

// SetModel switches to kind with its default parameters and resets.
func (s *Session) SetModel(kind dynamo.ModelKind) error {
	p, err := s.opts.defaults(kind)
	if err != nil {
		return err
	}
	s.params = p
	return s.Reset()
}

// Tick advances the session by one integration step.
func (s *Session) Tick() (Snapshot, error) {
	if !s.running {
		return Snapshot{}, fmt.Errorf("tick at step %d: %w", s.steps, dynamo.ErrNotRunning)
	}
	s.advance()
	return s.Snapshot(), nil
}

func (s *Session) advance() {
	s.state = s.integ.Step(s.params, s.state, s.opts.StepSize)
	s.steps++
	s.t = float64(s.steps) * s.opts.StepSize

	if s.conservation != nil {
		s.conservation.Observe(s.state, s.t)
	}
	s.warnings = s.opts.Thresholds.Evaluate(s.params, s.state)
	s.history.Append(s.steps, dynamo.TrajectoryPoint{Time: s.t, N1: s.state.N1, N2: s.state.N2})
}

// Advance runs n ticks back to back. The session must be running.
func (s *Session) Advance(n int) error {
	if !s.running {
		return dynamo.ErrNotRunning
	}
	for i := 0; i < n; i++ {
		s.advance()
	}
	return nil
}

func (s *Session) Snapshot() Snapshot {
	return s.SnapshotTail(0)
}

// SnapshotTail is Snapshot with at most n history points (all when n <= 0).
func (s *Session) SnapshotTail(n int) Snapshot {
	snap := Snapshot{
		ID:          s.id,
		Model:       s.params.Kind(),
		Parameters:  s.params.GetParams(),
		Running:     s.running,
		ElapsedTime: s.t,
		Steps:       s.steps,
		State:       s.state,
		Warnings:    s.warnings.Clone(),
		History:     s.history.Tail(n),
		HistoryLen:  s.history.Len(),
	}
	if s.conservation != nil {
		cq := s.conservation.Report()
		snap.Conservation = &cq
	}
	return snap
}

func (o Options) defaults(kind dynamo.ModelKind) (ecology.Params, error) {
	if p, ok := o.Defaults[kind]; ok && p != nil {
		return p.Clone(), nil
	}
	return ecology.Defaults(kind)
}
