package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"lickarchive/internal/domain/observation"
	"lickarchive/internal/ports"
)

// fakeRepo simulates filename uniqueness in memory. Bulk inserts fail whole
// when any row is a duplicate, matching transactional semantics.
type fakeRepo struct {
	rows      map[string]bool
	flaky     int // InsertOne failures to serve before succeeding
	batchErrs int // InsertBatch failures to serve regardless of rows
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: make(map[string]bool)}
}

func (f *fakeRepo) InsertBatch(_ context.Context, records []*observation.Record) error {
	if f.batchErrs > 0 {
		f.batchErrs--
		return errors.New("connection reset")
	}
	for _, rec := range records {
		if f.rows[rec.Filename] {
			return fmt.Errorf("%w: duplicate %s", ports.ErrConstraintViolation, rec.Filename)
		}
	}
	for _, rec := range records {
		f.rows[rec.Filename] = true
	}
	return nil
}

func (f *fakeRepo) InsertOne(_ context.Context, rec *observation.Record) error {
	if f.flaky > 0 {
		f.flaky--
		return errors.New("connection reset")
	}
	if f.rows[rec.Filename] {
		return fmt.Errorf("%w: duplicate %s", ports.ErrConstraintViolation, rec.Filename)
	}
	f.rows[rec.Filename] = true
	return nil
}

func (f *fakeRepo) Exists(_ context.Context, filename string) (bool, error) {
	return f.rows[filename], nil
}

// fakeUOW runs the callback without a real transaction.
type fakeUOW struct{}

func (fakeUOW) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func testPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxElapsed:      20 * time.Millisecond,
	}
}

func record(filename string) *observation.Record {
	return &observation.Record{
		Filename:    filename,
		Telescope:   observation.TelescopeShane,
		Instrument:  observation.InstrumentKastBlue,
		ObsDate:     time.Date(2022, time.January, 15, 0, 0, 0, 0, time.UTC),
		FrameType:   observation.FrameTypeScience,
		IngestFlags: observation.FlagClear,
	}
}

func TestIngestorFlushesFullBatches(t *testing.T) {
	repo := newFakeRepo()
	failures := NewFailureLog(t.TempDir())
	defer failures.Close()
	ing := NewIngestor(repo, fakeUOW{}, failures, testPolicy(), 2)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := ing.Add(ctx, record(fmt.Sprintf("/data/b%d.fits", i))); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if err := ing.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if ing.Succeeded() != 5 || ing.Failed() != 0 {
		t.Fatalf("succeeded, failed = %d, %d", ing.Succeeded(), ing.Failed())
	}
	if len(repo.rows) != 5 {
		t.Fatalf("stored %d rows, want 5", len(repo.rows))
	}
	if failures.Path() != "" {
		t.Fatalf("unexpected failure artifact %s", failures.Path())
	}
}

func TestIngestorFallsBackToRowInserts(t *testing.T) {
	repo := newFakeRepo()
	repo.rows["/data/b2.fits"] = true // will collide

	dir := t.TempDir()
	failures := NewFailureLog(dir)
	defer failures.Close()
	ing := NewIngestor(repo, fakeUOW{}, failures, testPolicy(), 10)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if err := ing.Add(ctx, record(fmt.Sprintf("/data/b%d.fits", i))); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if err := ing.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if ing.Succeeded() != 3 {
		t.Fatalf("succeeded = %d, want 3", ing.Succeeded())
	}
	if ing.Failed() != 1 {
		t.Fatalf("failed = %d, want 1", ing.Failed())
	}

	data, err := os.ReadFile(failures.Path())
	if err != nil {
		t.Fatalf("read failure artifact: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("artifact lines = %v, want exactly one", lines)
	}
	path, ok := ParseFailureLine(lines[0])
	if !ok || path != "/data/b2.fits" {
		t.Fatalf("artifact line %q names %q", lines[0], path)
	}
}

func TestIngestorRetriesTransientRowFailures(t *testing.T) {
	repo := newFakeRepo()
	repo.batchErrs = 1 // force the per-row path
	repo.flaky = 2     // first two row inserts fail transiently

	failures := NewFailureLog(t.TempDir())
	defer failures.Close()
	ing := NewIngestor(repo, fakeUOW{}, failures, testPolicy(), 10)
	ctx := context.Background()

	if err := ing.Add(ctx, record("/data/b0.fits")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := ing.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if ing.Succeeded() != 1 || ing.Failed() != 0 {
		t.Fatalf("succeeded, failed = %d, %d; transient errors should be retried", ing.Succeeded(), ing.Failed())
	}
}

func TestIngestorConstraintViolationIsNotRetried(t *testing.T) {
	repo := newFakeRepo()
	repo.rows["/data/b0.fits"] = true

	failures := NewFailureLog(t.TempDir())
	defer failures.Close()
	ing := NewIngestor(repo, fakeUOW{}, failures, testPolicy(), 10)
	ctx := context.Background()

	start := time.Now()
	if err := ing.Add(ctx, record("/data/b0.fits")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := ing.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if ing.Failed() != 1 {
		t.Fatalf("failed = %d, want 1", ing.Failed())
	}
	// A permanent failure must not burn the whole retry budget.
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("constraint violation took %v, looks retried", elapsed)
	}
}

func TestIngestorEmptyFlush(t *testing.T) {
	failures := NewFailureLog(t.TempDir())
	defer failures.Close()
	ing := NewIngestor(newFakeRepo(), fakeUOW{}, failures, testPolicy(), 10)

	if err := ing.Flush(context.Background()); err != nil {
		t.Fatalf("Flush on empty batch: %v", err)
	}
	if ing.Succeeded() != 0 || ing.Failed() != 0 {
		t.Fatal("empty flush should not change counters")
	}
}
