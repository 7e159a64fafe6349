package sim

import (
	"context"
	"errors"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/san-kum/popdyn/internal/dynamo"
	"github.com/san-kum/popdyn/internal/ecology"
)

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newRunner(t *testing.T) *Runner {
	t.Helper()
	s := newSession(t, ecology.DefaultPredatorPrey())
	r := NewRunner(s, time.Millisecond, quietLog())
	t.Cleanup(r.Close)
	return r
}

func TestRunnerTicksWhileRunning(t *testing.T) {
	g := NewWithT(t)
	r := newRunner(t)

	g.Expect(r.Start(context.Background())).To(BeTrue())
	g.Expect(r.Start(context.Background())).To(BeFalse())

	g.Eventually(func() int { return r.Snapshot().Steps }).
		WithTimeout(2 * time.Second).
		Should(BeNumerically(">=", 5))
	g.Expect(r.Snapshot().Running).To(BeTrue())
}

func TestRunnerPauseStopsTicks(t *testing.T) {
	g := NewWithT(t)
	r := newRunner(t)
	r.Start(context.Background())
	g.Eventually(func() int { return r.Snapshot().Steps }).
		WithTimeout(2 * time.Second).
		Should(BeNumerically(">", 0))

	r.Pause()
	paused := r.Snapshot()
	g.Expect(paused.Running).To(BeFalse())

	time.Sleep(20 * time.Millisecond)
	g.Expect(r.Snapshot().Steps).To(Equal(paused.Steps))

	r.Pause()
	g.Expect(r.Snapshot().Steps).To(Equal(paused.Steps))
}

func TestRunnerResumeContinuesTrajectory(t *testing.T) {
	g := NewWithT(t)
	r := newRunner(t)
	r.Start(context.Background())
	g.Eventually(func() int { return r.Snapshot().Steps }).
		WithTimeout(2 * time.Second).
		Should(BeNumerically(">", 2))
	r.Pause()
	before := r.Snapshot().Steps

	g.Expect(r.Start(context.Background())).To(BeTrue())
	g.Eventually(func() int { return r.Snapshot().Steps }).
		WithTimeout(2 * time.Second).
		Should(BeNumerically(">", before))
}

func TestRunnerContextCancelPauses(t *testing.T) {
	g := NewWithT(t)
	r := newRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)

	cancel()
	g.Eventually(func() bool { return r.Snapshot().Running }).
		WithTimeout(2 * time.Second).
		Should(BeFalse())
}

func TestRunnerResetStopsAndReseeds(t *testing.T) {
	g := NewWithT(t)
	r := newRunner(t)
	r.Start(context.Background())
	g.Eventually(func() int { return r.Snapshot().Steps }).
		WithTimeout(2 * time.Second).
		Should(BeNumerically(">", 0))

	g.Expect(r.Reset()).To(Succeed())
	snap := r.Snapshot()
	g.Expect(snap.Running).To(BeFalse())
	g.Expect(snap.Steps).To(Equal(0))
	g.Expect(snap.History).To(Equal([]dynamo.TrajectoryPoint{{Time: 0, N1: 40, N2: 9}}))

	time.Sleep(10 * time.Millisecond)
	g.Expect(r.Snapshot().Steps).To(Equal(0))
}

func TestRunnerCommands(t *testing.T) {
	g := NewWithT(t)
	r := newRunner(t)

	g.Expect(r.SetParameter("r1", 1.2)).To(Succeed())
	g.Expect(r.Snapshot().Parameters["r1"]).To(Equal(1.2))

	err := r.SetParameter("r1", math.NaN())
	g.Expect(errors.Is(err, dynamo.ErrInvalidParameter)).To(BeTrue())

	g.Expect(r.SetAllParameters(map[string]float64{"a": 0.05, "b": 0.05})).To(Succeed())
	g.Expect(r.Snapshot().Parameters).To(HaveKeyWithValue("a", 0.05))

	r.Start(context.Background())
	g.Expect(r.SetModel(dynamo.Competition)).To(Succeed())
	snap := r.Snapshot()
	g.Expect(snap.Model).To(Equal(dynamo.Competition))
	g.Expect(snap.Running).To(BeFalse())
	g.Expect(snap.Steps).To(Equal(0))
}

func TestRunnerPublishesSnapshots(t *testing.T) {
	g := NewWithT(t)
	r := newRunner(t)
	r.HistoryTail = 3

	var (
		mu    sync.Mutex
		snaps []Snapshot
	)
	unsubscribe := r.Subscribe(func(s Snapshot) {
		mu.Lock()
		snaps = append(snaps, s)
		mu.Unlock()
	})
	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(snaps)
	}

	r.Start(context.Background())
	g.Eventually(count).WithTimeout(2 * time.Second).Should(BeNumerically(">=", 10))
	r.Pause()

	mu.Lock()
	for _, s := range snaps {
		g.Expect(len(s.History)).To(BeNumerically("<=", 3))
		g.Expect(s.ID).To(Equal(r.ID()))
	}
	mu.Unlock()

	unsubscribe()
	n := count()
	g.Expect(r.SetParameter("r2", 0.9)).To(Succeed())
	g.Expect(count()).To(Equal(n))
}

func TestRunnerCloseWaitsForLoop(t *testing.T) {
	s := newSession(t, ecology.DefaultCompetition())
	r := NewRunner(s, time.Millisecond, quietLog())
	r.Start(context.Background())
	time.Sleep(5 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		r.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}
	steps := r.Snapshot().Steps
	time.Sleep(5 * time.Millisecond)
	if r.Snapshot().Steps != steps {
		t.Error("runner ticked after Close")
	}
}

func TestRunnerLastSnapshotAfterPauseIsPaused(t *testing.T) {
	for i := 0; i < 100; i++ {
		s := newSession(t, ecology.DefaultPredatorPrey())
		r := NewRunner(s, time.Microsecond, quietLog())

		var (
			mu   sync.Mutex
			last Snapshot
			seen bool
		)
		r.Subscribe(func(s Snapshot) {
			mu.Lock()
			last, seen = s, true
			mu.Unlock()
		})

		r.Start(context.Background())
		time.Sleep(200 * time.Microsecond)
		r.Pause()
		r.Close()

		mu.Lock()
		if !seen || last.Running {
			mu.Unlock()
			t.Fatalf("trial %d: last published snapshot running=%v (seen=%v)", i, last.Running, seen)
		}
		mu.Unlock()
	}
}
