package tracker

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/unklstewy/ivao-tracker/internal/metrics"
	"github.com/unklstewy/ivao-tracker/internal/registry"
)

// DefaultRefreshInterval is the board refresh period.
const DefaultRefreshInterval = 3 * time.Second

// Refresher runs one refresh cycle. *Pipeline implements it.
type Refresher interface {
	Refresh(ctx context.Context, snap registry.Snapshot) Board
}

// Scheduler refreshes the board periodically and publishes the latest one.
//
// Only one cycle runs at a time: ticks and RefreshNow calls that arrive while
// a cycle is in flight share its result instead of starting another.
type Scheduler struct {
	pipeline Refresher
	registry registry.Reader
	interval time.Duration

	latest atomic.Pointer[Board]
	group  singleflight.Group

	// snapshot is only touched inside the single-flight cycle
	snapshot registry.Snapshot

	subsMu sync.Mutex
	subs   map[chan struct{}]struct{}
}

// NewScheduler creates a scheduler. A non-positive interval uses
// DefaultRefreshInterval.
func NewScheduler(pipeline Refresher, reg registry.Reader, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	s := &Scheduler{
		pipeline: pipeline,
		registry: reg,
		interval: interval,
		subs:     make(map[chan struct{}]struct{}),
	}
	initial := emptyBoard(time.Time{}, UpstreamPending)
	s.latest.Store(&initial)
	return s
}

// Interval returns the refresh period.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Run refreshes immediately and then on every tick until ctx is cancelled.
// A cycle slower than the interval delays the next tick; ticks are not queued.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("Tracker refresh started (every %v)", s.interval)
	s.RefreshNow(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("Tracker refresh stopped")
			return
		case <-ticker.C:
			s.RefreshNow(ctx)
		}
	}
}

// Latest returns the most recently published board. It never blocks; before
// the first cycle it returns an empty board with Upstream "pending".
func (s *Scheduler) Latest() *Board {
	return s.latest.Load()
}

// RefreshNow runs a cycle, or joins the one already running, and returns the
// resulting board. If ctx ends first the latest published board is returned;
// the running cycle still completes and publishes.
func (s *Scheduler) RefreshNow(ctx context.Context) *Board {
	cycleCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan("refresh", func() (interface{}, error) {
		return s.cycle(cycleCtx), nil
	})

	select {
	case res := <-ch:
		return res.Val.(*Board)
	case <-ctx.Done():
		return s.Latest()
	}
}

// Subscribe returns a channel that receives a notification after each
// publish. Notifications are dropped while the previous one is unread. Call
// the returned function to unsubscribe.
func (s *Scheduler) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.subsMu.Lock()
	s.subs[ch] = struct{}{}
	s.subsMu.Unlock()

	return ch, func() {
		s.subsMu.Lock()
		delete(s.subs, ch)
		s.subsMu.Unlock()
	}
}

// cycle takes a registry snapshot, refreshes and publishes.
func (s *Scheduler) cycle(ctx context.Context) (board *Board) {
	start := time.Now()
	outcome := metrics.OutcomeOK

	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC in refresh cycle: %v", r)
			log.Println("Refresh will be retried on next cycle")
			outcome = metrics.OutcomePanic
			board = s.Latest()
		}
		metrics.RecordCycle(outcome, time.Since(start))
	}()

	snap, err := registry.TakeSnapshot(ctx, s.registry)
	if err != nil {
		log.Printf("✗ Airport registry unavailable: %v (keeping previous %d airports)", err, s.snapshot.Len())
		outcome = metrics.OutcomeRegistry
		snap = s.snapshot
	} else {
		s.snapshot = snap
	}

	next := s.pipeline.Refresh(ctx, snap)
	if next.Upstream == UpstreamUnavailable && outcome == metrics.OutcomeOK {
		outcome = metrics.OutcomeUnavailable
	}

	s.publish(&next)
	return &next
}

func (s *Scheduler) publish(board *Board) {
	s.latest.Store(board)
	metrics.SetBoardSize(len(board.Departures), len(board.Arrivals))

	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
