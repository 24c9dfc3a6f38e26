package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"lickarchive/internal/bootstrap/logging"
	"lickarchive/internal/domain/observation"
	"lickarchive/internal/ports"
)

// RetryPolicy bounds the exponential backoff used for per-row inserts after
// a bulk insert failed.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsed      time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: 4 * time.Second,
		MaxInterval:     10 * time.Second,
		MaxElapsed:      60 * time.Second,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.MaxElapsedTime = p.MaxElapsed
	return backoff.WithContext(b, ctx)
}

// Ingestor buffers records and flushes them in transactional batches. When a
// batch fails as a whole, it falls back to inserting rows one at a time with
// retries, so a single bad row costs only itself instead of the batch.
type Ingestor struct {
	repo      ports.ObservationRepository
	uow       ports.UnitOfWork
	failures  *FailureLog
	retry     RetryPolicy
	batchSize int

	batch     []*observation.Record
	succeeded int
	failed    int
}

func NewIngestor(repo ports.ObservationRepository, uow ports.UnitOfWork, failures *FailureLog, retry RetryPolicy, batchSize int) *Ingestor {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Ingestor{
		repo:      repo,
		uow:       uow,
		failures:  failures,
		retry:     retry,
		batchSize: batchSize,
		batch:     make([]*observation.Record, 0, batchSize),
	}
}

func (i *Ingestor) Succeeded() int { return i.succeeded }
func (i *Ingestor) Failed() int    { return i.failed }

// Add buffers a record, flushing when the batch is full.
func (i *Ingestor) Add(ctx context.Context, rec *observation.Record) error {
	i.batch = append(i.batch, rec)
	if len(i.batch) >= i.batchSize {
		return i.Flush(ctx)
	}
	return nil
}

// Flush writes the buffered batch. The bulk path runs in one transaction; if
// it fails for any reason, every row is re-tried individually.
func (i *Ingestor) Flush(ctx context.Context) error {
	if len(i.batch) == 0 {
		return nil
	}
	batch := i.batch
	i.batch = i.batch[:0]

	err := i.uow.WithTx(ctx, func(txCtx context.Context) error {
		return i.repo.InsertBatch(txCtx, batch)
	})
	if err == nil {
		i.succeeded += len(batch)
		logging.Debug(ctx, "batch inserted", slog.Int("rows", len(batch)))
		return nil
	}

	logging.Warn(ctx, "bulk insert failed, retrying rows individually",
		slog.Int("rows", len(batch)), slog.Any("error", err))
	return i.retryOneByOne(ctx, batch)
}

func (i *Ingestor) retryOneByOne(ctx context.Context, batch []*observation.Record) error {
	for _, rec := range batch {
		if err := i.insertOne(ctx, rec); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			i.failed++
			logging.Error(ctx, "row insert failed",
				slog.String("filename", rec.Filename), slog.Any("error", err))
			if logErr := i.failures.RetryFailure(rec.Filename, err); logErr != nil {
				return logErr
			}
			continue
		}
		i.succeeded++
	}
	return nil
}

// insertOne retries transient failures with exponential backoff. Constraint
// violations are permanent: a duplicate filename will never insert, no
// matter how long we wait.
func (i *Ingestor) insertOne(ctx context.Context, rec *observation.Record) error {
	op := func() error {
		err := i.repo.InsertOne(ctx, rec)
		if err != nil && errors.Is(err, ports.ErrConstraintViolation) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.Retry(op, i.retry.backOff(ctx))
}
