package sim

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/popdyn/internal/dynamo"
)

// Runner drives one Session from a single ticker goroutine. Every
// command and every tick holds the same mutex, so ticks never overlap
// and never interleave with edits. Once Pause returns no further tick
// executes until Start is called again.
type Runner struct {
	mu       sync.Mutex
	sess     *Session
	interval time.Duration
	log      *logrus.Entry
	cancel   context.CancelFunc
	gen      uint64
	wg       sync.WaitGroup

	// pubMu is taken before mu is released so snapshots reach
	// subscribers in the order they were taken.
	pubMu sync.Mutex

	subsMu  sync.RWMutex
	subs    map[int]func(Snapshot)
	nextSub int

	// HistoryTail bounds the history carried by published snapshots.
	HistoryTail int
}

func NewRunner(sess *Session, interval time.Duration, log *logrus.Entry) *Runner {
	if interval <= 0 {
		interval = dynamo.DefaultTickInterval
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Runner{
		sess:     sess,
		interval: interval,
		log:      log.WithField("session", sess.ID()),
		subs:     make(map[int]func(Snapshot)),
	}
}

func (r *Runner) ID() string { return r.sess.ID() }

// Subscribe registers fn to receive a snapshot after every tick and
// command. fn runs on the runner's goroutines and must not call back
// into the Runner synchronously.
func (r *Runner) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	r.subsMu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.subsMu.Unlock()

	return func() {
		r.subsMu.Lock()
		delete(r.subs, id)
		r.subsMu.Unlock()
	}
}

// Start begins periodic ticking. It is a no-op if already running.
// Cancelling ctx pauses the session.
func (r *Runner) Start(ctx context.Context) bool {
	r.mu.Lock()
	if !r.sess.Start() {
		r.mu.Unlock()
		return false
	}
	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.gen++
	gen := r.gen
	r.wg.Add(1)
	snap := r.sess.SnapshotTail(r.HistoryTail)
	go r.loop(loopCtx, gen)
	r.handoff(snap)

	r.log.WithField("interval", r.interval).Info("simulation started")
	return true
}

func (r *Runner) loop(ctx context.Context, gen uint64) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.mu.Lock()
			if r.gen == gen && r.sess.Running() {
				r.stopLocked()
				r.log.Info("simulation stopped by context")
			}
			r.mu.Unlock()
			return
		case <-ticker.C:
		}

		r.mu.Lock()
		if ctx.Err() != nil || r.gen != gen || !r.sess.Running() {
			r.mu.Unlock()
			return
		}
		_, err := r.sess.Tick()
		if err != nil {
			r.mu.Unlock()
			r.log.WithError(err).Error("tick failed")
			return
		}
		snap := r.sess.SnapshotTail(r.HistoryTail)
		r.handoff(snap)

		if snap.Steps%200 == 0 {
			r.log.WithFields(logrus.Fields{
				"t":  snap.ElapsedTime,
				"n1": snap.State.N1,
				"n2": snap.State.N2,
			}).Debug("tick")
		}
	}
}

// Pause stops ticking. It is idempotent.
func (r *Runner) Pause() {
	r.mu.Lock()
	wasRunning := r.sess.Running()
	r.stopLocked()
	snap := r.sess.SnapshotTail(r.HistoryTail)
	if !wasRunning {
		r.mu.Unlock()
		return
	}
	r.handoff(snap)
	r.log.WithField("t", snap.ElapsedTime).Info("simulation paused")
}

func (r *Runner) stopLocked() {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.sess.Pause()
}

func (r *Runner) Reset() error {
	r.mu.Lock()
	r.stopLocked()
	if err := r.sess.Reset(); err != nil {
		r.mu.Unlock()
		r.log.WithError(err).Warn("reset rejected")
		return err
	}
	r.handoff(r.sess.SnapshotTail(r.HistoryTail))
	r.log.Info("simulation reset")
	return nil
}

func (r *Runner) SetParameter(name string, value float64) error {
	r.mu.Lock()
	if err := r.sess.SetParameter(name, value); err != nil {
		r.mu.Unlock()
		r.log.WithError(err).WithField("param", name).Warn("parameter rejected")
		return err
	}
	r.handoff(r.sess.SnapshotTail(r.HistoryTail))
	r.log.WithFields(logrus.Fields{"param": name, "value": value}).Info("parameter updated")
	return nil
}

func (r *Runner) SetAllParameters(values map[string]float64) error {
	r.mu.Lock()
	if err := r.sess.SetAllParameters(values); err != nil {
		r.mu.Unlock()
		r.log.WithError(err).Warn("parameter update rejected")
		return err
	}
	r.handoff(r.sess.SnapshotTail(r.HistoryTail))
	r.log.WithField("count", len(values)).Info("parameters updated")
	return nil
}

func (r *Runner) SetModel(kind dynamo.ModelKind) error {
	r.mu.Lock()
	r.stopLocked()
	if err := r.sess.SetModel(kind); err != nil {
		r.mu.Unlock()
		r.log.WithError(err).Warn("model switch rejected")
		return err
	}
	r.handoff(r.sess.SnapshotTail(r.HistoryTail))
	r.log.WithField("model", kind).Info("model switched")
	return nil
}

func (r *Runner) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sess.SnapshotTail(r.HistoryTail)
}

// Close pauses the runner and waits for its goroutine to exit.
func (r *Runner) Close() {
	r.mu.Lock()
	r.stopLocked()
	r.mu.Unlock()
	r.wg.Wait()
}

// handoff releases mu and delivers snap. It must be called with mu
// held; publishing order then matches the order snapshots were taken.
func (r *Runner) handoff(snap Snapshot) {
	r.pubMu.Lock()
	r.mu.Unlock()
	defer r.pubMu.Unlock()
	r.publish(snap)
}

func (r *Runner) publish(snap Snapshot) {
	r.subsMu.RLock()
	defer r.subsMu.RUnlock()
	for _, fn := range r.subs {
		fn(snap)
	}
}
