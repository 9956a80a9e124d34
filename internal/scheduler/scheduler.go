package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/julianstephens/lightsout/internal/constants"
)

// ErrDisposed is returned when scheduling on a disposed Scheduler.
var ErrDisposed = errors.New("scheduler disposed")

// Callback runs when an entry fires. ctx is cancelled when the scheduler is
// disposed.
type Callback func(ctx context.Context, e Entry)

// Scheduler holds one plan's one-shot timers. It is built, filled and then
// disposed as a unit; re-planning means a new Scheduler.
type Scheduler struct {
	log   *log.Logger
	clock clockwork.Clock
	cron  gocron.Scheduler

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	jobs     map[uuid.UUID]Entry
	disposed bool
}

// New starts an empty scheduler driven by clock.
func New(clock clockwork.Clock, logger *log.Logger) (*Scheduler, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithPrefix("scheduler")

	cron, err := gocron.NewScheduler(
		gocron.WithClock(clock),
		gocron.WithLogger(gocronLogger{logger}),
		gocron.WithStopTimeout(constants.SchedulerStopWait),
		gocron.WithLocation(time.Local),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	cron.Start()

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		log:    logger,
		clock:  clock,
		cron:   cron,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[uuid.UUID]Entry),
	}, nil
}

// Schedule arms fn to run once at e.At. An entry whose time has already
// passed is skipped without error.
func (s *Scheduler) Schedule(e Entry, fn Callback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrDisposed
	}
	if !e.At.After(s.clock.Now()) {
		s.log.Debug("Skipping past entry", "entry", e.Name(), "at", e.At.Format(time.RFC3339))
		return nil
	}

	job, err := s.cron.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(e.At)),
		gocron.NewTask(s.run, e, fn),
		gocron.WithName(e.Name()),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", e.Name(), err)
	}
	s.jobs[job.ID()] = e
	s.log.Debug("Scheduled", "entry", e.Name(), "at", e.At.Format(time.RFC3339), "job", job.ID())
	return nil
}

// SchedulePlan arms every entry of p with fn and returns how many are armed.
// One entry failing does not stop the others from being armed.
func (s *Scheduler) SchedulePlan(p Plan, fn Callback) (int, error) {
	var errs []error
	for _, e := range p.Entries {
		if err := s.Schedule(e, fn); err != nil {
			if errors.Is(err, ErrDisposed) {
				return 0, err
			}
			errs = append(errs, err)
		}
	}
	return s.Len(), errors.Join(errs...)
}

// run is the gocron task body. A panicking callback is logged and contained.
func (s *Scheduler) run(e Entry, fn Callback) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Timer callback panicked", "entry", e.Name(), "panic", r, "stack", string(debug.Stack()))
		}
	}()
	if s.ctx.Err() != nil {
		return
	}
	fn(s.ctx, e)
}

// Len returns the number of armed entries.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Entries returns the armed entries in firing order.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.jobs))
	for _, e := range s.jobs {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Entry) int { return a.At.Compare(b.At) })
	return out
}

// Dispose cancels every pending timer. A callback already running sees its
// context cancelled and is waited for up to the stop timeout. Calling
// Dispose more than once is harmless.
func (s *Scheduler) Dispose() error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil
	}
	s.disposed = true
	s.jobs = map[uuid.UUID]Entry{}
	s.mu.Unlock()

	s.cancel()
	if err := s.cron.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	return nil
}

// gocronLogger adapts a charm logger to gocron's Logger interface.
type gocronLogger struct {
	l *log.Logger
}

func (g gocronLogger) Debug(msg string, args ...any) { g.l.Debug(msg, args...) }
func (g gocronLogger) Info(msg string, args ...any)  { g.l.Info(msg, args...) }
func (g gocronLogger) Warn(msg string, args ...any)  { g.l.Warn(msg, args...) }
func (g gocronLogger) Error(msg string, args ...any) { g.l.Error(msg, args...) }
