package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	. "github.com/onsi/gomega"

	"github.com/san-kum/popdyn/internal/analysis"
	"github.com/san-kum/popdyn/internal/dynamo"
	"github.com/san-kum/popdyn/internal/ecology"
	"github.com/san-kum/popdyn/internal/metrics"
)

func newSession(t *testing.T, p ecology.Params) *Session {
	t.Helper()
	s, err := New(p, DefaultOptions())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestNewSessionIsIdleAndSeeded(t *testing.T) {
	g := NewWithT(t)
	s := newSession(t, ecology.DefaultPredatorPrey())

	snap := s.Snapshot()
	g.Expect(snap.ID).NotTo(BeEmpty())
	g.Expect(snap.Running).To(BeFalse())
	g.Expect(snap.Model).To(Equal(dynamo.PredatorPrey))
	g.Expect(snap.ElapsedTime).To(Equal(0.0))
	g.Expect(snap.State).To(Equal(dynamo.State{N1: 40, N2: 9}))
	g.Expect(snap.History).To(Equal([]dynamo.TrajectoryPoint{{Time: 0, N1: 40, N2: 9}}))
	g.Expect(snap.Conservation).NotTo(BeNil())
	g.Expect(snap.Conservation.DriftPercent).To(Equal(0.0))
	g.Expect(snap.Conservation.Current).To(Equal(snap.Conservation.Initial))
	g.Expect(snap.Warnings.Any()).To(BeFalse())
}

func TestTickRequiresRunning(t *testing.T) {
	s := newSession(t, ecology.DefaultCompetition())

	if _, err := s.Tick(); !errors.Is(err, dynamo.ErrNotRunning) {
		t.Fatalf("Tick while idle: err = %v, want ErrNotRunning", err)
	}
	if err := s.Advance(3); !errors.Is(err, dynamo.ErrNotRunning) {
		t.Fatalf("Advance while idle: err = %v, want ErrNotRunning", err)
	}
	if s.Steps() != 0 {
		t.Errorf("idle tick advanced the session")
	}
}

func TestStartPauseIdempotent(t *testing.T) {
	s := newSession(t, ecology.DefaultCompetition())
	if !s.Start() {
		t.Error("first Start should report a transition")
	}
	if s.Start() {
		t.Error("second Start should be a no-op")
	}
	s.Pause()
	s.Pause()
	if s.Running() {
		t.Error("expected idle after Pause")
	}
}

func TestTickAdvancesClockAndHistory(t *testing.T) {
	g := NewWithT(t)
	s := newSession(t, ecology.DefaultPredatorPrey())
	s.Start()

	snap, err := s.Tick()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(snap.Steps).To(Equal(1))
	g.Expect(snap.ElapsedTime).To(BeNumerically("~", dynamo.DefaultStepSize, 1e-15))
	g.Expect(snap.History).To(HaveLen(2))
	g.Expect(snap.History[1].State()).To(Equal(snap.State))
	g.Expect(snap.State).NotTo(Equal(dynamo.State{N1: 40, N2: 9}))
}

func TestConservationOverSession(t *testing.T) {
	s := newSession(t, ecology.DefaultPredatorPrey())
	s.Start()

	initial := s.Snapshot().Conservation.Initial
	for i := 0; i < 2000; i++ {
		snap, err := s.Tick()
		if err != nil {
			t.Fatal(err)
		}
		if !snap.Conservation.IsConserved {
			t.Fatalf("tick %d: drift %.4f%%", i+1, snap.Conservation.DriftPercent)
		}
		if snap.Conservation.Initial != initial {
			t.Fatalf("tick %d: initial H changed", i+1)
		}
	}
}

func TestCompetitionHasNoConservedQuantity(t *testing.T) {
	s := newSession(t, ecology.DefaultCompetition())
	s.Start()
	snap, _ := s.Tick()
	if snap.Conservation != nil {
		t.Errorf("competition snapshot has conservation diagnostic: %+v", snap.Conservation)
	}
}

func TestPositivity(t *testing.T) {
	tests := []struct {
		name   string
		params ecology.Params
	}{
		{"textbook", ecology.DefaultPredatorPrey()},
		{"violent predator", ecology.NewPredatorPrey(2, 1.5, 0.5, 0.2, 40, 9)},
		{"exclusion", ecology.NewCompetition(1, 0.8, 120, 100, 0.3, 1.5, 50, 40)},
		{"overcrowded", ecology.NewCompetition(50, 50, 0.5, 0.5, 100, 100, 1e4, 1e4)},
		{"tiny start", ecology.NewPredatorPrey(1, 1, 0.1, 0.075, 1e-12, 1e-12)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(t, tt.params)
			s.Start()
			for i := 0; i < 2000; i++ {
				snap, err := s.Tick()
				if err != nil {
					t.Fatal(err)
				}
				x := snap.State
				if math.IsNaN(x.N1) || math.IsNaN(x.N2) || x.N1 < dynamo.ExtinctionFloor || x.N2 < dynamo.ExtinctionFloor {
					t.Fatalf("tick %d: state %v violates floor", i+1, x)
				}
			}
		})
	}
}

func TestDeterminism(t *testing.T) {
	run := func() Snapshot {
		s := newSession(t, ecology.DefaultPredatorPrey())
		s.Start()
		if err := s.Advance(3000); err != nil {
			t.Fatal(err)
		}
		return s.Snapshot()
	}

	a, b := run(), run()
	if a.ID == b.ID {
		t.Error("sessions should have distinct ids")
	}
	if diff := cmp.Diff(a, b, cmpopts.IgnoreFields(Snapshot{}, "ID")); diff != "" {
		t.Errorf("runs differ (-first +second):\n%s", diff)
	}
}

func TestResetIdempotent(t *testing.T) {
	s := newSession(t, ecology.DefaultPredatorPrey())
	s.Start()
	if err := s.Advance(250); err != nil {
		t.Fatal(err)
	}

	if err := s.Reset(); err != nil {
		t.Fatal(err)
	}
	once := s.Snapshot()
	if err := s.Reset(); err != nil {
		t.Fatal(err)
	}
	twice := s.Snapshot()

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("second reset changed the session:\n%s", diff)
	}
	want := []dynamo.TrajectoryPoint{{Time: 0, N1: 40, N2: 9}}
	if diff := cmp.Diff(want, once.History); diff != "" {
		t.Errorf("history after reset:\n%s", diff)
	}
	if once.Running || once.ElapsedTime != 0 || once.Steps != 0 {
		t.Errorf("reset left session in %+v", once)
	}
}

// The 3600-point bound (2000 full-resolution ticks + 8000/5 decimated
// ones) counts ticks only. The seed point recorded at reset is kept on
// top of it, so the history itself holds 3601 points.
func TestDecimationBoundExcludesSeedPoint(t *testing.T) {
	s := newSession(t, ecology.DefaultPredatorPrey())
	s.Start()
	if err := s.Advance(10000); err != nil {
		t.Fatal(err)
	}

	hist := s.Snapshot().History
	if len(hist) != 3601 {
		t.Fatalf("history length = %d, want 3600 tick points + 1 seed", len(hist))
	}
	if hist[0].Time != 0 {
		t.Fatalf("first point t = %v, want the seed at t = 0", hist[0].Time)
	}

	for i, p := range hist {
		index := int(math.Round(p.Time / dynamo.DefaultStepSize))
		if i <= 2000 && index != i {
			t.Fatalf("position %d holds tick %d, want full resolution", i, index)
		}
		if i > 2000 && index%5 != 0 {
			t.Fatalf("position %d holds tick %d, not a multiple of 5", i, index)
		}
	}
	if last := hist[len(hist)-1]; int(math.Round(last.Time/dynamo.DefaultStepSize)) != 10000 {
		t.Errorf("last point is tick %v, want 10000", last.Time/dynamo.DefaultStepSize)
	}
}

func TestCompetitionConvergesToEquilibrium(t *testing.T) {
	g := NewWithT(t)
	p := ecology.NewCompetition(1.0, 0.8, 120, 100, 0.4, 0.5, 50, 40)
	s := newSession(t, p)
	s.Start()
	g.Expect(s.Advance(5000)).To(Succeed())

	x := s.State()
	want := dynamo.State{
		N1: (120 - 0.4*100) / (1 - 0.4*0.5),
		N2: (100 - 0.5*120) / (1 - 0.4*0.5),
	}
	g.Expect(x.N1).To(BeNumerically("~", want.N1, 1e-6))
	g.Expect(x.N2).To(BeNumerically("~", want.N2, 1e-6))

	d := p.Derive(x)
	g.Expect(math.Abs(d.N1)).To(BeNumerically("<", 1e-4))
	g.Expect(math.Abs(d.N2)).To(BeNumerically("<", 1e-4))
}

func TestPredatorPreyOscillates(t *testing.T) {
	g := NewWithT(t)
	opts := DefaultOptions()
	opts.FullResolution = 5000
	s, err := New(ecology.DefaultPredatorPrey(), opts)
	g.Expect(err).NotTo(HaveOccurred())
	s.Start()
	g.Expect(s.Advance(5000)).To(Succeed())

	times, n1, n2 := s.Snapshot().Series()
	g.Expect(n1).To(HaveLen(5001))

	g.Expect(analysis.Crossings(n1, 1.0/0.075)).To(BeNumerically(">=", 3))
	g.Expect(analysis.Crossings(n2, 1.0/0.1)).To(BeNumerically(">=", 3))

	peaks := analysis.Peaks(n1)
	g.Expect(len(peaks)).To(BeNumerically(">=", 4))
	_, spread, ok := analysis.PeriodFromPeaks(times, peaks[:4])
	g.Expect(ok).To(BeTrue())
	g.Expect(spread).To(BeNumerically("<", 0.05))
}

func TestSetParameterDoesNotReset(t *testing.T) {
	g := NewWithT(t)
	s := newSession(t, ecology.DefaultPredatorPrey())
	s.Start()
	g.Expect(s.Advance(10)).To(Succeed())
	before := s.Snapshot()

	g.Expect(s.SetParameter("a", 0.5)).To(Succeed())
	after := s.Snapshot()

	g.Expect(after.Parameters["a"]).To(Equal(0.5))
	g.Expect(after.State).To(Equal(before.State))
	g.Expect(after.Steps).To(Equal(before.Steps))
	g.Expect(after.History).To(HaveLen(len(before.History)))
	g.Expect(after.Running).To(BeTrue())
	g.Expect(after.Conservation.Initial).To(Equal(before.Conservation.Initial))
	g.Expect(after.Warnings.Messages).To(ConsistOf(HavePrefix("warning: a = 0.5")))

	// the edit takes effect from the next reset, which clears the
	// warnings until the first tick re-derives them
	g.Expect(s.Reset()).To(Succeed())
	g.Expect(s.Snapshot().Parameters["a"]).To(Equal(0.5))
	g.Expect(s.Snapshot().Warnings.Any()).To(BeFalse())

	s.Start()
	_, err := s.Tick()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(s.Snapshot().Warnings.Messages).To(HaveLen(1))
}

func TestResetClearsWarnings(t *testing.T) {
	g := NewWithT(t)
	s := newSession(t, ecology.NewPredatorPrey(1, 1, 0.1, 0.075, 200, 2))
	s.Start()
	g.Expect(s.Advance(2000)).To(Succeed())
	g.Expect(s.Snapshot().Warnings.AttoFoxProblem).To(BeTrue())

	g.Expect(s.Reset()).To(Succeed())
	g.Expect(s.Snapshot().Warnings).To(Equal(metrics.Warnings{}))
}

func TestSetParameterRejectsNonFinite(t *testing.T) {
	s := newSession(t, ecology.DefaultCompetition())
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if err := s.SetParameter("K1", v); !errors.Is(err, dynamo.ErrInvalidParameter) {
			t.Errorf("SetParameter(K1, %v) = %v, want ErrInvalidParameter", v, err)
		}
	}
	if err := s.SetParameter("a", 0.1); !errors.Is(err, dynamo.ErrUnknownParameter) {
		t.Errorf("SetParameter(a) on competition = %v, want ErrUnknownParameter", err)
	}
	if got := s.Snapshot().Parameters["K1"]; got != 120 {
		t.Errorf("K1 = %v after rejected edits", got)
	}
}

func TestSetParameterAllowsImplausibleValues(t *testing.T) {
	g := NewWithT(t)
	s := newSession(t, ecology.DefaultCompetition())
	g.Expect(s.SetParameter("r1", 50)).To(Succeed())
	g.Expect(s.SetParameter("K2", 3)).To(Succeed())
	g.Expect(s.Reset()).To(Succeed())

	s.Start()
	g.Expect(s.Advance(500)).To(Succeed())
	g.Expect(s.State().IsValid()).To(BeTrue())

	w := s.Snapshot().Warnings
	g.Expect(w.HasErrors()).To(BeTrue())
	g.Expect(w.Messages).To(HaveLen(2))
}

func TestSetAllParametersIsAtomic(t *testing.T) {
	g := NewWithT(t)
	s := newSession(t, ecology.DefaultPredatorPrey())

	err := s.SetAllParameters(map[string]float64{"r1": 1.5, "b": math.NaN()})
	g.Expect(errors.Is(err, dynamo.ErrInvalidParameter)).To(BeTrue())
	g.Expect(s.Snapshot().Parameters["r1"]).To(Equal(1.0))

	err = s.SetAllParameters(map[string]float64{"r1": 1.5, "K1": 10})
	g.Expect(errors.Is(err, dynamo.ErrUnknownParameter)).To(BeTrue())
	g.Expect(s.Snapshot().Parameters["r1"]).To(Equal(1.0))

	g.Expect(s.SetAllParameters(map[string]float64{"r1": 1.5, "N2_0": 12})).To(Succeed())
	g.Expect(s.Snapshot().Parameters).To(HaveKeyWithValue("r1", 1.5))
	g.Expect(s.Snapshot().Parameters).To(HaveKeyWithValue("N2_0", 12.0))
	g.Expect(s.State()).To(Equal(dynamo.State{N1: 40, N2: 9}))
}

func TestSetAllParametersMatchesSingleEdits(t *testing.T) {
	single := newSession(t, ecology.DefaultPredatorPrey())
	bulk := newSession(t, ecology.DefaultPredatorPrey())
	for _, s := range []*Session{single, bulk} {
		s.Start()
		if err := s.Advance(40); err != nil {
			t.Fatal(err)
		}
	}

	if err := single.SetParameter("r1", 1.2); err != nil {
		t.Fatal(err)
	}
	if err := single.SetParameter("a", 0.12); err != nil {
		t.Fatal(err)
	}
	if err := bulk.SetAllParameters(map[string]float64{"r1": 1.2, "a": 0.12}); err != nil {
		t.Fatal(err)
	}

	for _, s := range []*Session{single, bulk} {
		if err := s.Advance(60); err != nil {
			t.Fatal(err)
		}
	}
	if diff := cmp.Diff(single.Snapshot(), bulk.Snapshot(), cmpopts.IgnoreFields(Snapshot{}, "ID")); diff != "" {
		t.Errorf("bulk edit diverged from single edits (-single +bulk):\n%s", diff)
	}
}

func TestSetModelResets(t *testing.T) {
	g := NewWithT(t)
	s := newSession(t, ecology.DefaultPredatorPrey())
	s.Start()
	g.Expect(s.Advance(100)).To(Succeed())

	g.Expect(s.SetModel(dynamo.Competition)).To(Succeed())
	snap := s.Snapshot()
	g.Expect(snap.Model).To(Equal(dynamo.Competition))
	g.Expect(snap.Running).To(BeFalse())
	g.Expect(snap.Steps).To(Equal(0))
	g.Expect(snap.Parameters).To(Equal(ecology.DefaultCompetition().GetParams()))
	g.Expect(snap.History).To(Equal([]dynamo.TrajectoryPoint{{Time: 0, N1: 50, N2: 40}}))
	g.Expect(snap.Conservation).To(BeNil())

	g.Expect(errors.Is(s.SetModel(dynamo.ModelKind(5)), dynamo.ErrUnknownModel)).To(BeTrue())
	g.Expect(s.Model()).To(Equal(dynamo.Competition))
}

func TestSetModelUsesConfiguredDefaults(t *testing.T) {
	opts := DefaultOptions()
	opts.Defaults[dynamo.PredatorPrey] = ecology.NewPredatorPrey(2, 1, 0.1, 0.075, 20, 5)
	s, err := NewModel(dynamo.PredatorPrey, opts)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.State(); got != (dynamo.State{N1: 20, N2: 5}) {
		t.Errorf("seed state = %v", got)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := newSession(t, ecology.DefaultPredatorPrey())
	s.Start()
	if err := s.Advance(5); err != nil {
		t.Fatal(err)
	}

	snap := s.Snapshot()
	snap.History[0].N1 = -1
	snap.Parameters["r1"] = 99
	snap.Conservation.Initial = 0

	fresh := s.Snapshot()
	if fresh.History[0].N1 != 40 || fresh.Parameters["r1"] != 1 || fresh.Conservation.Initial == 0 {
		t.Error("mutating a snapshot leaked into the session")
	}
}

func TestAttoFoxWarningRaisedDuringRun(t *testing.T) {
	s := newSession(t, ecology.NewPredatorPrey(1.0, 1.0, 0.1, 0.075, 200, 2))
	s.Start()

	seen := false
	for i := 0; i < 3000 && !seen; i++ {
		snap, err := s.Tick()
		if err != nil {
			t.Fatal(err)
		}
		seen = snap.Warnings.AttoFoxProblem
	}
	if !seen {
		t.Error("expected the deep orbit to drop below one individual")
	}
}

func TestNewRejectsInvalidParams(t *testing.T) {
	if _, err := New(ecology.NewPredatorPrey(1, 1, math.NaN(), 0.075, 40, 9), DefaultOptions()); !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Errorf("New with NaN param: err = %v", err)
	}
	if _, err := New(nil, DefaultOptions()); err == nil {
		t.Error("New(nil) should fail")
	}
}
