package service

import (
	"context"
	"fmt"
	"gw-transaction-webhook/internal/models"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

type TransactionFinalizer interface {
	Finalize(ctx context.Context, transactionID string) (*models.Transaction, error)
}

type SchedulerConfig struct {
	Delay   time.Duration
	Timeout time.Duration
	Workers int
	// QueueSize buffers ids whose delay has elapsed until a worker is free.
	QueueSize int
}

// Scheduler откладывает финализацию: на каждую задачу взводится свой таймер,
// а воркеры получают из канала только те id, срок которых уже наступил.
// Число ожидающих задержек не ограничено размером канала.
type Scheduler struct {
	finalizer TransactionFinalizer
	delay     time.Duration
	timeout   time.Duration
	log       *slog.Logger

	due     chan string
	pending atomic.Int64

	mu      sync.Mutex
	timers  map[*time.Timer]struct{}
	stopped bool

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	baseCtx    context.Context
	cancelBase context.CancelFunc
}

func NewScheduler(finalizer TransactionFinalizer, cfg SchedulerConfig, log *slog.Logger) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		finalizer:  finalizer,
		delay:      cfg.Delay,
		timeout:    cfg.Timeout,
		log:        log,
		due:        make(chan string, cfg.QueueSize),
		timers:     make(map[*time.Timer]struct{}),
		stopCh:     make(chan struct{}),
		baseCtx:    baseCtx,
		cancelBase: cancel,
	}

	for i := 0; i < cfg.Workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	return s
}

// Schedule arms the delay for transactionID. It never blocks and only
// returns false once Shutdown has started.
func (s *Scheduler) Schedule(transactionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		s.log.Warn("scheduler stopped, task rejected", slog.String("transaction_id", transactionID))
		return false
	}

	s.pending.Add(1)

	// колбэк берет mu, поэтому timer уже присвоен, когда он выполняется
	var timer *time.Timer
	timer = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		delete(s.timers, timer)
		s.mu.Unlock()

		s.handoff(transactionID)
	})
	s.timers[timer] = struct{}{}

	s.log.Debug("finalization scheduled",
		slog.String("transaction_id", transactionID),
		slog.Duration("delay", s.delay))
	return true
}

// Pending returns the number of scheduled tasks not yet picked by a worker.
func (s *Scheduler) Pending() int {
	return int(s.pending.Load())
}

func (s *Scheduler) handoff(transactionID string) {
	select {
	case <-s.stopCh:
		s.abandon(transactionID)
		return
	default:
	}

	select {
	case s.due <- transactionID:
	case <-s.stopCh:
		s.abandon(transactionID)
	}
}

func (s *Scheduler) abandon(transactionID string) {
	s.pending.Add(-1)
	s.log.Info("scheduler stopping, due task abandoned", slog.String("transaction_id", transactionID))
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()
	s.log.Info("finalize worker started", slog.Int("worker_id", id))

	for {
		select {
		case transactionID := <-s.due:
			s.pending.Add(-1)
			s.run(id, transactionID)

		case <-s.stopCh:
			s.log.Info("finalize worker stopping", slog.Int("worker_id", id))
			return
		}
	}
}

func (s *Scheduler) run(workerID int, transactionID string) {
	ctx := s.baseCtx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	defer func() {
		if p := recover(); p != nil {
			s.log.Error("finalization panicked",
				slog.Int("worker_id", workerID),
				slog.String("transaction_id", transactionID),
				slog.String("panic", fmt.Sprint(p)))
		}
	}()

	// errors are logged by the finalizer, the record keeps its current status
	_, _ = s.finalizer.Finalize(ctx, transactionID)
}

// Shutdown stops accepting tasks, disarms pending delays and waits for the
// workers. Finalizations still running when ctx expires are canceled.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		abandoned := 0
		for timer := range s.timers {
			if timer.Stop() {
				s.pending.Add(-1)
				abandoned++
			}
		}
		s.timers = nil
		s.mu.Unlock()

		s.log.Info("shutting down finalize scheduler", slog.Int("abandoned_delays", abandoned))
		close(s.stopCh)
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancelBase()
		s.log.Info("all finalize workers stopped")
		return nil
	case <-ctx.Done():
		s.cancelBase()
		s.log.Warn("shutdown timeout exceeded")
		return ctx.Err()
	}
}
