package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/apiwatch/apiwatch/internal/domain/endpoint"
	"github.com/apiwatch/apiwatch/internal/domain/result"
)

// ErrCycleRunning is returned when a cycle is requested while another is
// still in flight. Ticks hitting this are skipped, never queued.
var ErrCycleRunning = errors.New("monitoring cycle already in flight")

type SchedulerConfig struct {
	Interval       time.Duration
	MaxConcurrency int
}

// Scheduler drives periodic probing of all active endpoints. Lifecycle is
// Stopped -> Running -> Stopped; Start and Stop are idempotent.
type Scheduler struct {
	log       *zap.Logger
	endpoints endpoint.Repo
	prober    *Prober
	engine    *AlertEngine
	cfg       SchedulerConfig

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	cycleMu sync.Mutex
}

func NewScheduler(
	log *zap.Logger,
	endpoints endpoint.Repo,
	prober *Prober,
	engine *AlertEngine,
	cfg SchedulerConfig,
) *Scheduler {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 8
	}
	return &Scheduler{
		log:       log.With(zap.String("component", "scheduler")),
		endpoints: endpoints,
		prober:    prober,
		engine:    engine,
		cfg:       cfg,
	}
}

// Start launches the ticker loop with an immediate first cycle. Calling
// Start on a running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.running = true

	go s.run(ctx, done)
	s.log.Info("scheduler started", zap.Duration("interval", s.cfg.Interval))
}

// Stop cancels the loop and waits for the in-flight cycle to wind down.
// Double-stop is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if err := s.RunCycleOnce(ctx); err != nil {
		if errors.Is(err, ErrCycleRunning) {
			mCyclesSkipped.Inc()
			s.log.Warn("cycle still in flight, skipping tick")
			return
		}
		if !errors.Is(err, context.Canceled) {
			s.log.Warn("cycle error", zap.Error(err))
		}
	}
}

// RunCycleOnce executes one pass over all active endpoints. At most one
// cycle runs at a time; a concurrent call gets ErrCycleRunning.
func (s *Scheduler) RunCycleOnce(ctx context.Context) error {
	if !s.cycleMu.TryLock() {
		return ErrCycleRunning
	}
	defer s.cycleMu.Unlock()
	return s.cycle(ctx)
}

func (s *Scheduler) cycle(ctx context.Context) error {
	start := time.Now()
	tr := otel.Tracer("monitor.scheduler")
	ctx, span := tr.Start(ctx, "monitor.cycle")
	defer span.End()

	active, err := s.endpoints.ListActive(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("list active endpoints: %w", err)
	}
	span.SetAttributes(attribute.Int("endpoints", len(active)))
	if len(active) == 0 {
		return nil
	}

	sem := make(chan struct{}, s.cfg.MaxConcurrency)
	var wg sync.WaitGroup
	for _, e := range active {
		wg.Add(1)
		sem <- struct{}{}
		go func(e *endpoint.Endpoint) {
			defer wg.Done()
			defer func() { <-sem }()
			s.evaluateEndpoint(ctx, e)
		}(e)
	}
	wg.Wait()

	mCycles.Inc()
	mCycleDur.Observe(time.Since(start).Seconds())
	s.log.Debug("cycle complete",
		zap.Int("endpoints", len(active)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// evaluateEndpoint probes one endpoint and feeds the result through the
// alert engine. Failures stay contained here so one endpoint cannot abort
// the cycle.
func (s *Scheduler) evaluateEndpoint(ctx context.Context, e *endpoint.Endpoint) {
	tr := otel.Tracer("monitor.scheduler")
	ctx, span := tr.Start(ctx, "monitor.probe",
		trace.WithAttributes(
			attribute.Int64("endpoint.id", e.ID),
			attribute.String("endpoint.url", e.URL),
		),
	)
	defer span.End()

	mProbes.Inc()
	res := s.prober.Probe(ctx, e)
	mProbeLatency.Observe(float64(res.ResponseTime) / 1000)
	if res.Success {
		mProbesUp.Inc()
	} else {
		mProbesDown.Inc()
	}

	if _, err := s.engine.Evaluate(ctx, e, res); err != nil {
		span.RecordError(err)
		s.log.Warn("endpoint evaluation failed",
			zap.Int64("endpoint_id", e.ID),
			zap.String("name", e.Name),
			zap.Error(err),
		)
	}
}

// ProbeNow checks a single endpoint on demand, bypassing the cycle lock and
// the active filter. The caller gets the persisted result back.
func (s *Scheduler) ProbeNow(ctx context.Context, endpointID int64) (*result.CheckResult, error) {
	e, err := s.endpoints.GetByID(ctx, endpointID)
	if err != nil {
		return nil, fmt.Errorf("get endpoint: %w", err)
	}

	res := s.prober.Probe(ctx, e)
	if _, err := s.engine.Evaluate(ctx, e, res); err != nil {
		return nil, err
	}
	return res, nil
}
