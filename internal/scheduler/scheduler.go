package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common/mclock"

	"github.com/kjannette/fleetsim-backend/internal/simulation"
)

var (
	ErrAlreadyRunning = errors.New("scheduler already running")
	ErrNotRunning     = errors.New("scheduler not running")
)

type State int32

const (
	Idle State = iota
	Ticking
)

func (s State) String() string {
	if s == Ticking {
		return "ticking"
	}
	return "idle"
}

// Ticker runs one pipeline pass. *simulation.Engine satisfies it.
type Ticker interface {
	Tick(ctx context.Context, now time.Time) (*simulation.Snapshot, error)
}

// Sink receives every successfully settled snapshot.
type Sink interface {
	Name() string
	Publish(ctx context.Context, snap *simulation.Snapshot) error
}

type Config struct {
	Interval    time.Duration // e.g. 15*time.Second
	SinkTimeout time.Duration // per sink, per tick
	Clock       mclock.Clock
	Now         func() time.Time // wall clock handed to the pipeline
}

type Stats struct {
	State      string    `json:"state"`
	Running    bool      `json:"running"`
	Interval   string    `json:"interval"`
	Ticks      int64     `json:"ticks"`
	Failures   int64     `json:"failures"`
	Skipped    int64     `json:"skippedSlots"`
	LastTickAt time.Time `json:"lastTickAt"`
	LastError  string    `json:"lastError,omitempty"`
}

// Scheduler drives the engine on a fixed interval. Ticks are strictly
// serialized. When a tick overruns its slot the missed slots are skipped,
// never queued; the next tick starts at the following slot boundary.
type Scheduler struct {
	engine Ticker
	sinks  []Sink
	cfg    Config

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}

	tickMu   sync.Mutex
	state    atomic.Int32
	ticks    atomic.Int64
	failures atomic.Int64
	skipped  atomic.Int64

	statMu     sync.Mutex
	lastTickAt time.Time
	lastErr    string
}

func New(engine Ticker, cfg Config, sinks ...Sink) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = 5 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = mclock.System{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Scheduler{engine: engine, sinks: sinks, cfg: cfg}
}

// Start runs one tick immediately, then one per interval.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})

	go s.loop(s.stopCh, s.done)

	fmt.Printf("[SCHED] Started (every %s, overrun policy: skip)\n", s.cfg.Interval)
	return nil
}

// Stop halts the timer. A tick already in progress runs to completion
// before Stop returns.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	close(s.stopCh)
	done := s.done
	s.running = false
	s.mu.Unlock()

	<-done
	fmt.Println("[SCHED] Stopped")
	return nil
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// TickNow runs a tick outside the schedule. It waits for any tick in
// progress to finish first.
func (s *Scheduler) TickNow(ctx context.Context) (*simulation.Snapshot, error) {
	return s.runTick(ctx)
}

func (s *Scheduler) Stats() Stats {
	s.statMu.Lock()
	last, lastErr := s.lastTickAt, s.lastErr
	s.statMu.Unlock()
	return Stats{
		State:      s.State().String(),
		Running:    s.Running(),
		Interval:   s.cfg.Interval.String(),
		Ticks:      s.ticks.Load(),
		Failures:   s.failures.Load(),
		Skipped:    s.skipped.Load(),
		LastTickAt: last,
		LastError:  lastErr,
	}
}

func (s *Scheduler) loop(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		began := s.cfg.Clock.Now()
		s.runTick(context.Background())
		wait := s.nextWait(s.cfg.Clock.Now().Sub(began))

		timer := s.cfg.Clock.NewTimer(wait)
		select {
		case <-stopCh:
			timer.Stop()
			return
		case <-timer.C():
		}
	}
}

// nextWait returns the delay to the next slot boundary and records any
// slots the last tick ran through.
func (s *Scheduler) nextWait(elapsed time.Duration) time.Duration {
	interval := s.cfg.Interval
	if elapsed < interval {
		return interval - elapsed
	}
	missed := int64(elapsed / interval)
	s.skipped.Add(missed)
	fmt.Printf("[SCHED] Tick took %s, skipping %d slot(s)\n", elapsed, missed)
	return interval - elapsed%interval
}

func (s *Scheduler) runTick(ctx context.Context) (*simulation.Snapshot, error) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	s.state.Store(int32(Ticking))
	defer s.state.Store(int32(Idle))

	now := s.cfg.Now()
	snap, err := s.safeTick(ctx, now)
	if err != nil {
		s.failures.Add(1)
		s.statMu.Lock()
		s.lastErr = err.Error()
		s.statMu.Unlock()
		fmt.Printf("[SCHED] Tick failed: %v\n", err)
		return nil, err
	}

	s.ticks.Add(1)
	s.statMu.Lock()
	s.lastTickAt = now
	s.lastErr = ""
	s.statMu.Unlock()

	s.broadcast(ctx, snap)
	return snap, nil
}

func (s *Scheduler) safeTick(ctx context.Context, now time.Time) (snap *simulation.Snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			snap, err = nil, fmt.Errorf("tick panicked: %v", r)
		}
	}()
	snap, err = s.engine.Tick(ctx, now)
	if err == nil && snap == nil {
		err = errors.New("tick produced no snapshot")
	}
	return snap, err
}

// broadcast hands snap to every sink. Each sink gets its own deadline; a
// sink that fails, panics or hangs does not affect the others.
func (s *Scheduler) broadcast(ctx context.Context, snap *simulation.Snapshot) {
	for _, sink := range s.sinks {
		if err := s.publishOne(ctx, sink, snap); err != nil {
			fmt.Printf("[SCHED] Sink %s: %v\n", sink.Name(), err)
		}
	}
}

func (s *Scheduler) publishOne(ctx context.Context, sink Sink, snap *simulation.Snapshot) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SinkTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				errCh <- fmt.Errorf("panic: %v", r)
			}
		}()
		errCh <- sink.Publish(ctx, snap)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return fmt.Errorf("timed out after %s", s.cfg.SinkTimeout)
	}
}
