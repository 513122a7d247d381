package volatility

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"volscan/internal/config"
	apperrors "volscan/internal/errors"
	"volscan/internal/files"
	"volscan/internal/infrastructure"
)

// ReportFunc receives the frozen aggregate once every worker has joined
type ReportFunc func(ctx context.Context, agg *Aggregate, stats RunStats) error

// Coordinator spawns one worker per file group and merges their results
type Coordinator struct {
	process        ProcessFunc
	report         ReportFunc
	column         int
	receiveTimeout time.Duration
	drainMode      DrainMode
	logger         *slog.Logger
	tracer         trace.Tracer
	metrics        *infrastructure.RunMetrics

	phase atomic.Int32
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithReceiveTimeout sets how long a poll-mode receive waits before checking liveness
func WithReceiveTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.receiveTimeout = d
		}
	}
}

// WithDrainMode selects poll or signal completion detection
func WithDrainMode(mode DrainMode) Option {
	return func(c *Coordinator) {
		c.drainMode = mode
	}
}

// WithPriceColumn sets the price column used by the default worker
func WithPriceColumn(column int) Option {
	return func(c *Coordinator) {
		c.column = column
	}
}

// WithProcessFunc replaces the default worker
func WithProcessFunc(fn ProcessFunc) Option {
	return func(c *Coordinator) {
		c.process = fn
	}
}

// WithReporter sets the function run in the reporting phase
func WithReporter(fn ReportFunc) Option {
	return func(c *Coordinator) {
		c.report = fn
	}
}

// WithLogger sets the coordinator and default worker logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTelemetry sets the tracer and run metrics
func WithTelemetry(tracer trace.Tracer, metrics *infrastructure.RunMetrics) Option {
	return func(c *Coordinator) {
		if tracer != nil {
			c.tracer = tracer
		}
		if metrics != nil {
			c.metrics = metrics
		}
	}
}

// NewCoordinator creates a coordinator. Without WithProcessFunc it runs Worker.Process.
func NewCoordinator(opts ...Option) *Coordinator {
	c := &Coordinator{
		column:         config.DefaultPriceColumn,
		receiveTimeout: config.DefaultReceiveTimeout,
		drainMode:      DrainSignal,
		logger:         slog.Default(),
		tracer:         tracenoop.NewTracerProvider().Tracer(infrastructure.InstrumentationName),
		metrics:        infrastructure.NoopRunMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.logger = infrastructure.WithComponent(c.logger, "coordinator")
	if c.process == nil {
		c.process = NewWorker(c.column, c.logger, c.metrics).Process
	}
	return c
}

// Phase returns the current phase; safe to call from any goroutine
func (c *Coordinator) Phase() Phase {
	return Phase(c.phase.Load())
}

func (c *Coordinator) setPhase(ctx context.Context, p Phase) {
	c.phase.Store(int32(p))
	c.logger.DebugContext(ctx, "phase changed", slog.String("phase", p.String()))
	trace.SpanFromContext(ctx).AddEvent("phase." + p.String())
}

// run holds the state of one Run call. Workers only touch results and running.
type run struct {
	results  chan WorkerResult
	running  atomic.Int32
	exited   chan struct{}
	joinErr  error
	reported map[int]bool
	agg      *Aggregate
	failure  error
	stats    RunStats
}

// Run processes groups with one goroutine each and returns the merged aggregate.
//
// Every worker sends exactly one result. The first failure, whether a worker
// error, a panic, a missing result or a duplicate instrument, cancels the
// remaining workers; Run still waits for all of them before returning it.
func (c *Coordinator) Run(ctx context.Context, groups []files.FileGroup) (*Aggregate, RunStats, error) {
	start := time.Now()
	c.phase.Store(int32(PhaseInit))

	ctx, span := c.tracer.Start(ctx, "volatility.run",
		trace.WithAttributes(
			attribute.Int("workers", len(groups)),
			attribute.String("drain_mode", string(c.drainMode)),
		))
	defer span.End()

	// ties log lines to the exported span when tracing is on
	if traceID := infrastructure.TraceIDFromContext(ctx); traceID != "" {
		c.logger.DebugContext(ctx, "run started", slog.String("otel_trace_id", traceID))
	}

	r := &run{
		results:  make(chan WorkerResult, len(groups)),
		exited:   make(chan struct{}),
		reported: make(map[int]bool, len(groups)),
		agg:      NewAggregate(),
		stats:    RunStats{Workers: len(groups), Files: files.Count(groups)},
	}

	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.spawn(workCtx, r, groups)
	c.drain(ctx, r, cancel)

	c.setPhase(ctx, PhaseJoining)
	<-r.exited
	if r.joinErr != nil && r.failure == nil {
		r.failure = r.joinErr
	}
	if r.failure == nil {
		r.failure = c.missingResult(ctx, r)
	}

	r.stats.Duration = time.Since(start)
	c.metrics.RunDuration.Record(ctx, r.stats.Duration.Seconds(),
		metric.WithAttributes(attribute.Bool("success", r.failure == nil)))

	if r.failure != nil {
		c.setPhase(ctx, PhaseDone)
		infrastructure.RecordError(ctx, r.failure)
		c.logger.ErrorContext(ctx, "run failed",
			slog.String("error", r.failure.Error()),
			slog.Int("received", r.stats.Received),
			slog.Int("workers", r.stats.Workers))
		return nil, r.stats, r.failure
	}

	c.setPhase(ctx, PhaseReporting)
	c.metrics.DegenerateInstruments.Add(ctx, int64(len(r.agg.Zero)))
	c.logger.InfoContext(ctx, "run complete",
		slog.Int("workers", r.stats.Workers),
		slog.Int("files", r.stats.Files),
		slog.Int("ranked", len(r.agg.Volatility)),
		slog.Int("degenerate", len(r.agg.Zero)),
		slog.Int("polls", r.stats.Polls),
		slog.Duration("duration", r.stats.Duration))

	if c.report != nil {
		if err := c.report(ctx, r.agg, r.stats); err != nil {
			c.setPhase(ctx, PhaseDone)
			span.SetStatus(codes.Error, err.Error())
			return r.agg, r.stats, err
		}
	}

	c.setPhase(ctx, PhaseDone)
	return r.agg, r.stats, nil
}

// spawn starts one goroutine per group.
// Each goroutine sends its result before it stops counting as running.
func (c *Coordinator) spawn(ctx context.Context, r *run, groups []files.FileGroup) {
	c.setPhase(ctx, PhaseSpawning)

	var g errgroup.Group
	r.running.Store(int32(len(groups)))

	for id, group := range groups {
		g.Go(func() error {
			defer r.running.Add(-1)
			defer func() {
				if p := recover(); p != nil {
					r.results <- WorkerResult{
						WorkerID: id,
						Err:      &apperrors.WorkerFailure{WorkerID: id, Cause: fmt.Errorf("panic: %v", p)},
					}
				}
			}()

			wctx, span := c.tracer.Start(ctx, "volatility.worker",
				trace.WithAttributes(
					attribute.Int("worker.id", id),
					attribute.Int("worker.files", len(group)),
				))
			defer span.End()

			res, err := c.process(wctx, id, group)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				res = WorkerResult{WorkerID: id, Err: err}
			}
			res.WorkerID = id
			r.results <- res
			return nil
		})
	}
	c.metrics.WorkersSpawned.Add(ctx, int64(len(groups)))

	// Wait runs off the coordinator goroutine so both drain modes can join on exited
	go func() {
		defer close(r.exited)
		r.joinErr = g.Wait()
	}()

	c.logger.DebugContext(ctx, "workers spawned", slog.Int("workers", len(groups)))
}

// drain receives results until every worker has exited and the channel is empty
func (c *Coordinator) drain(ctx context.Context, r *run, cancel context.CancelFunc) {
	c.setPhase(ctx, PhaseDraining)
	if r.stats.Workers == 0 {
		return
	}

	done := ctx.Done()
	for {
		switch c.drainMode {
		case DrainSignal:
			select {
			case res := <-r.results:
				c.handle(ctx, r, res, cancel)
				continue
			case <-done:
				c.abort(ctx, r, ctx.Err(), cancel)
				done = nil
				continue
			case <-r.exited:
			}
		default:
			select {
			case res := <-r.results:
				c.handle(ctx, r, res, cancel)
				continue
			case <-done:
				c.abort(ctx, r, ctx.Err(), cancel)
				done = nil
				continue
			case <-time.After(c.receiveTimeout):
				r.stats.Polls++
				c.metrics.PollCycles.Add(ctx, 1)
				alive := r.running.Load()
				c.logger.DebugContext(ctx, "no result within receive timeout",
					slog.Duration("timeout", c.receiveTimeout),
					slog.Int("poll", r.stats.Polls),
					slog.Int("running", int(alive)))
				if alive > 0 {
					continue
				}
			}
		}

		// No sender is left; whatever is still buffered is all there will be
		for drained := false; !drained; {
			select {
			case res := <-r.results:
				c.handle(ctx, r, res, cancel)
			default:
				drained = true
			}
		}
		return
	}
}

func (c *Coordinator) handle(ctx context.Context, r *run, res WorkerResult, cancel context.CancelFunc) {
	r.stats.Received++
	r.reported[res.WorkerID] = true

	if r.failure != nil {
		// already failing; later results only matter for the join
		return
	}

	if res.Failed() {
		var wf *apperrors.WorkerFailure
		err := res.Err
		if !errors.As(err, &wf) {
			err = &apperrors.WorkerFailure{WorkerID: res.WorkerID, Cause: res.Err}
		}
		c.abort(ctx, r, err, cancel)
		return
	}

	if err := r.agg.Merge(res); err != nil {
		c.abort(ctx, r, err, cancel)
		return
	}

	c.logger.DebugContext(ctx, "merged worker result",
		slog.Int("worker_id", res.WorkerID),
		slog.Int("files", res.Files),
		slog.Int("instruments", res.Instruments()),
		slog.Int("total", r.agg.Len()))
}

// abort records the first failure and cancels the remaining workers
func (c *Coordinator) abort(ctx context.Context, r *run, err error, cancel context.CancelFunc) {
	if r.failure != nil {
		return
	}
	r.failure = err
	cancel()

	var wf *apperrors.WorkerFailure
	if errors.As(err, &wf) {
		c.metrics.WorkerFailures.Add(ctx, 1)
	}
	c.logger.WarnContext(ctx, "cancelling remaining workers",
		slog.String("reason", err.Error()),
		slog.Int("running", int(r.running.Load())))
}

// missingResult reports the first worker that exited without sending
func (c *Coordinator) missingResult(ctx context.Context, r *run) error {
	if r.stats.Received >= r.stats.Workers {
		return nil
	}
	for id := 0; id < r.stats.Workers; id++ {
		if !r.reported[id] {
			c.metrics.WorkerFailures.Add(ctx, 1)
			c.logger.WarnContext(ctx, "worker exited without a result", slog.Int("worker_id", id))
			return &apperrors.WorkerFailure{WorkerID: id, Cause: apperrors.ErrNoResult}
		}
	}
	return nil
}
