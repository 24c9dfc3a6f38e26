package ports

import (
	"context"
	"errors"

	"lickarchive/internal/domain/observation"
)

// ErrConstraintViolation marks storage failures that will not succeed on
// retry, such as a duplicate filename hitting the unique constraint. The
// batch ingestor treats these as fatal per-row failures instead of retrying.
var ErrConstraintViolation = errors.New("constraint violation")

// ObservationRepository persists observation records. InsertBatch writes all
// records in the ambient transaction (see UnitOfWork); InsertOne is a single
// row in its own implicit transaction.
type ObservationRepository interface {
	InsertBatch(ctx context.Context, records []*observation.Record) error
	InsertOne(ctx context.Context, record *observation.Record) error
	Exists(ctx context.Context, filename string) (bool, error)
}
