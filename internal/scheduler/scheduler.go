package scheduler

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"FundingSentinel/internal/collector"
	"FundingSentinel/internal/detector"
	"FundingSentinel/internal/metrics"
	"FundingSentinel/internal/model"
	"FundingSentinel/internal/store"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// ErrNoData is returned by Cycle when the exchange returned nothing usable.
var ErrNoData = errors.New("no funding data received")

const DefaultCycleTimeout = 5 * time.Minute

// State is the scheduler's lifecycle position.
type State int32

const (
	StateIdle State = iota
	StatePolling
	StateTerminating
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateTerminating:
		return "terminating"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Notifier turns change events into delivered messages.
type Notifier interface {
	Notify(ctx context.Context, ev model.ChangeEvent) (sent int, rendered bool)
}

// Scheduler polls the exchange on a fixed interval, diffs each result against the
// previous one and owns the persisted snapshot.
type Scheduler struct {
	Cron         *cron.Cron
	Collector    *collector.Collector
	Notifier     Notifier
	Store        store.Store
	Interval     time.Duration
	CycleTimeout time.Duration

	mu       sync.Mutex
	previous model.Snapshot
	state    atomic.Int32
}

// NewScheduler creates a new Scheduler.
func NewScheduler(col *collector.Collector, n Notifier, st store.Store, interval time.Duration) *Scheduler {
	logger := cron.PrintfLogger(log.StandardLogger())
	return &Scheduler{
		Cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.DelayIfStillRunning(logger)),
		),
		Collector:    col,
		Notifier:     n,
		Store:        st,
		Interval:     interval,
		CycleTimeout: DefaultCycleTimeout,
		previous:     model.Snapshot{},
	}
}

func (s *Scheduler) State() State { return State(s.state.Load()) }

// Run loads the stored snapshot, polls once right away and then on every interval
// until ctx is cancelled. An in-flight cycle is allowed to finish before Run returns.
func (s *Scheduler) Run(ctx context.Context) error {
	s.loadPrevious(ctx)

	log.Info("Starting Bitfinex funding monitor")
	s.runCycle(ctx)

	log.Infof("Scheduling checks every %s", s.Interval)
	s.Cron.Schedule(cron.Every(s.Interval), cron.FuncJob(func() { s.runCycle(ctx) }))
	s.Cron.Start()

	<-ctx.Done()
	s.state.Store(int32(StateTerminating))
	log.Info("Stopping scheduler, waiting for running cycle")
	<-s.Cron.Stop().Done()
	log.Info("Scheduler stopped")
	return nil
}

func (s *Scheduler) loadPrevious(ctx context.Context) {
	snap, err := s.Store.Load(ctx)
	if err != nil {
		log.WithError(err).Error("Error loading previous funding status, starting fresh")
		snap = model.Snapshot{}
	} else if len(snap) == 0 {
		log.Info("No previous funding status found, will create new one")
	} else {
		log.Infof("Loaded previous funding status for %d currencies", len(snap))
	}
	s.mu.Lock()
	s.previous = snap
	s.mu.Unlock()
}

func (s *Scheduler) runCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	// The cycle keeps running when ctx is cancelled so the snapshot write completes.
	cycleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.CycleTimeout)
	defer cancel()
	if err := s.Cycle(cycleCtx); err != nil {
		log.WithError(err).Warn("Status check skipped")
	}
}

// Cycle performs one poll: collect, detect, notify, then persist. It returns
// ErrNoData without touching state when the exchange gave nothing back.
func (s *Scheduler) Cycle(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.CompareAndSwap(int32(StateIdle), int32(StatePolling))
	defer s.state.CompareAndSwap(int32(StatePolling), int32(StateIdle))

	start := time.Now()
	defer func() { metrics.PollDuration.Observe(time.Since(start).Seconds()) }()

	current, err := s.Collector.Collect(ctx)
	if err != nil {
		metrics.PollCycles.WithLabelValues("skipped").Inc()
		return fmt.Errorf("%w: %w", ErrNoData, err)
	}
	if len(current) == 0 {
		metrics.PollCycles.WithLabelValues("skipped").Inc()
		return ErrNoData
	}

	for _, ev := range detector.DetectChanges(s.previous, current) {
		metrics.ChangeEvents.WithLabelValues(string(ev.Kind)).Inc()
		s.handle(ctx, ev)
	}

	s.previous = current
	if err := s.Store.Save(ctx, current); err != nil {
		log.WithError(err).Error("Error saving current funding status")
	} else {
		log.Debug("Saved current funding status")
	}

	active := current.Count(model.StatusActive)
	offered := current.Count(model.StatusOffered)
	inactive := current.Count(model.StatusInactive)
	metrics.CurrenciesByStatus.WithLabelValues(string(model.StatusActive)).Set(float64(active))
	metrics.CurrenciesByStatus.WithLabelValues(string(model.StatusOffered)).Set(float64(offered))
	metrics.CurrenciesByStatus.WithLabelValues(string(model.StatusInactive)).Set(float64(inactive))
	metrics.PollCycles.WithLabelValues("ok").Inc()

	log.Infof("Status check complete. Active: %d, Offered: %d, Inactive: %d", active, offered, inactive)
	return nil
}

func (s *Scheduler) handle(ctx context.Context, ev model.ChangeEvent) {
	entry := log.WithField("currency", ev.Currency)
	switch ev.Kind {
	case model.ChangeFirstSeen:
		entry.Infof("First status for %s: %s", ev.Currency, ev.Current.LendingStatus)
		return
	case model.ChangeStatusTransition:
		entry.Infof("%s lending status changed: %s -> %s", ev.Currency, ev.Previous.LendingStatus, ev.Current.LendingStatus)
	case model.ChangeParameter:
		entry.WithFields(log.Fields{
			"rate_changed":   ev.RateChanged,
			"amount_changed": ev.AmountChanged,
		}).Infof("%s lending parameters changed", ev.Currency)
	}

	sent, rendered := s.Notifier.Notify(ctx, ev)
	if rendered && sent == 0 {
		entry.Warn("Notification was not delivered by any channel")
	}
}

// Previous returns a copy of the in-memory snapshot.
func (s *Scheduler) Previous() model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.previous)
}
