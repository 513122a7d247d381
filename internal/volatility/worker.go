package volatility

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"volscan/internal/dataprocessing"
	apperrors "volscan/internal/errors"
	"volscan/internal/files"
	"volscan/internal/infrastructure"
)

// SeriesReader loads the price column of one file
type SeriesReader func(path string, column int) ([]decimal.Decimal, error)

// ProcessFunc turns one file group into a worker result.
// Worker.Process is the production implementation.
type ProcessFunc func(ctx context.Context, id int, group files.FileGroup) (WorkerResult, error)

// Worker computes volatility for every file of a group.
// A Worker holds no per-run state, so one value can serve any number of goroutines.
type Worker struct {
	column  int
	read    SeriesReader
	logger  *slog.Logger
	metrics *infrastructure.RunMetrics
}

// NewWorker creates a worker reading prices from column
func NewWorker(column int, logger *slog.Logger, metrics *infrastructure.RunMetrics) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = infrastructure.NoopRunMetrics()
	}
	return &Worker{
		column:  column,
		read:    dataprocessing.ReadPriceSeries,
		logger:  infrastructure.WithComponent(logger, "worker"),
		metrics: metrics,
	}
}

// Process handles group file by file and returns one result for the whole group.
// The context is checked between files; the first bad file aborts the group.
func (w *Worker) Process(ctx context.Context, id int, group files.FileGroup) (WorkerResult, error) {
	logger := w.logger.With(slog.Int("worker_id", id))
	logger.DebugContext(ctx, "worker started", slog.Int("files", len(group)))

	res := newWorkerResult(id)
	for _, path := range group {
		if err := ctx.Err(); err != nil {
			logger.DebugContext(ctx, "worker cancelled",
				slog.Int("processed", res.Files),
				slog.Int("remaining", len(group)-res.Files))
			return WorkerResult{}, err
		}

		name := dataprocessing.InstrumentName(path)
		if first, dup := res.Sources[name]; dup {
			return WorkerResult{}, &apperrors.ConsistencyError{
				Instrument:   name,
				FirstWorker:  id,
				SecondWorker: id,
				Path:         first + ", " + path,
			}
		}

		prices, err := w.read(path, w.column)
		if err != nil {
			return WorkerResult{}, err
		}

		calc, err := Calculate(prices)
		if err != nil {
			var emptyErr *apperrors.EmptySeriesError
			if errors.As(err, &emptyErr) && emptyErr.Path == "" {
				emptyErr.Path = path
			}
			return WorkerResult{}, err
		}

		res.Sources[name] = path
		if calc.Degenerate {
			res.Zero.Add(name)
		} else {
			res.Volatility[name] = calc.Volatility
		}
		res.Files++

		w.metrics.FilesProcessed.Add(ctx, 1,
			metric.WithAttributes(attribute.Bool("degenerate", calc.Degenerate)))
	}

	logger.DebugContext(ctx, "worker finished",
		slog.Int("files", res.Files),
		slog.Int("ranked", len(res.Volatility)),
		slog.Int("degenerate", len(res.Zero)))

	return res, nil
}
