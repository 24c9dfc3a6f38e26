package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"lickarchive/internal/bootstrap/logging"
	"lickarchive/internal/errs"
	"lickarchive/internal/metadata"
	"lickarchive/internal/ports"
)

// SupportedInstruments lists the instrument directory names the pipeline
// knows how to ingest. Requesting anything else is a usage error.
var SupportedInstruments = []string{"shane", "AO"}

// Service drives a full ingest run: scan the archive tree, read each file's
// metadata, and push records through the batch ingestor.
type Service struct {
	registry *metadata.Registry
	repo     ports.ObservationRepository
	uow      ports.UnitOfWork
}

func NewService(registry *metadata.Registry, repo ports.ObservationRepository, uow ports.UnitOfWork) *Service {
	return &Service{registry: registry, repo: repo, uow: uow}
}

// RunParams configures one ingest run.
type RunParams struct {
	ArchiveRoot string
	DateRange   DateRange
	Instruments []string
	BatchSize   int
	FailureDir  string
	Retry       RetryPolicy
}

// RunReport summarizes an ingest run. FailureFile is "" when every file
// ingested cleanly.
type RunReport struct {
	Processed   int
	Succeeded   int
	Failed      int
	FailureFile string
}

func validateInstruments(requested []string) error {
	for _, inst := range requested {
		supported := false
		for _, s := range SupportedInstruments {
			if inst == s {
				supported = true
				break
			}
		}
		if !supported {
			return fmt.Errorf("unsupported instrument %q (supported: %v)", inst, SupportedInstruments)
		}
	}
	return nil
}

// Run ingests every matching file under the archive root. Per-file failures
// are recorded in the failure artifact and do not stop the run; only
// environmental errors (unreadable root, broken database, cancellation)
// abort it.
func (s *Service) Run(ctx context.Context, params RunParams) (RunReport, error) {
	if err := validateInstruments(params.Instruments); err != nil {
		return RunReport{}, err
	}
	if _, err := os.Stat(params.ArchiveRoot); err != nil {
		return RunReport{}, errs.Wrapf(err, "archive root %s", params.ArchiveRoot)
	}

	ctx = logging.WithAttrs(ctx,
		slog.String("run_id", uuid.NewString()),
		slog.String("date_range", params.DateRange.String()),
	)
	logging.Info(ctx, "ingest run starting",
		slog.String("archive_root", params.ArchiveRoot),
		slog.Any("instruments", params.Instruments),
		slog.Int("batch_size", params.BatchSize),
	)

	failures := NewFailureLog(params.FailureDir)
	defer failures.Close()

	ing := NewIngestor(s.repo, s.uow, failures, params.Retry, params.BatchSize)
	scanner := &Scanner{
		Root:        params.ArchiveRoot,
		Range:       params.DateRange,
		Instruments: params.Instruments,
	}

	report := RunReport{}
	err := scanner.Scan(ctx, func(path string) error {
		report.Processed++
		rec, err := s.registry.ReadFile(ctx, path)
		if err != nil {
			logging.Warn(ctx, "failed to read file",
				slog.String("path", path), slog.Any("error", err))
			return failures.ReadFailure(path, err)
		}
		return ing.Add(ctx, rec)
	})
	if err != nil {
		return report, err
	}
	if err := ing.Flush(ctx); err != nil {
		return report, err
	}

	report.Succeeded = ing.Succeeded()
	report.Failed = report.Processed - report.Succeeded
	report.FailureFile = failures.Path()

	logging.Info(ctx, "ingest run finished",
		slog.Int("processed", report.Processed),
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed),
	)
	return report, nil
}

// RetryFailures re-ingests the files listed in a previous run's failure
// artifact, one row at a time. Files that already made it into the database
// are skipped; files that fail again go into a fresh artifact.
func (s *Service) RetryFailures(ctx context.Context, failureFile string, params RunParams) (RunReport, error) {
	paths, err := ReadFailurePaths(failureFile)
	if err != nil {
		return RunReport{}, err
	}

	ctx = logging.WithAttrs(ctx, slog.String("run_id", uuid.NewString()))
	logging.Info(ctx, "retry run starting",
		slog.String("failure_file", failureFile),
		slog.Int("files", len(paths)),
	)

	failures := NewFailureLog(params.FailureDir)
	defer failures.Close()

	ing := NewIngestor(s.repo, s.uow, failures, params.Retry, 1)

	report := RunReport{}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Processed++

		exists, err := s.repo.Exists(ctx, path)
		if err != nil {
			return report, err
		}
		if exists {
			logging.Info(ctx, "already ingested, skipping", slog.String("path", path))
			report.Succeeded++
			continue
		}

		rec, err := s.registry.ReadFile(ctx, path)
		if err != nil {
			logging.Warn(ctx, "failed to read file",
				slog.String("path", path), slog.Any("error", err))
			if logErr := failures.RetryFailure(path, err); logErr != nil {
				return report, logErr
			}
			report.Failed++
			continue
		}

		if err := ing.Add(ctx, rec); err != nil {
			return report, err
		}
		if err := ing.Flush(ctx); err != nil {
			return report, err
		}
	}

	report.Succeeded += ing.Succeeded()
	report.Failed += ing.Failed()
	report.FailureFile = failures.Path()

	logging.Info(ctx, "retry run finished",
		slog.Int("processed", report.Processed),
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed),
	)
	return report, nil
}
