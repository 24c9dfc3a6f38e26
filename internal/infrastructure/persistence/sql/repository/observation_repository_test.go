package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"lickarchive/internal/domain/observation"
	"lickarchive/internal/infrastructure/persistence/sql/model"
	"lickarchive/internal/infrastructure/persistence/sql/uow"
	"lickarchive/internal/ports"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.sqlite")
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.Observation{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func testRecord(filename string) *observation.Record {
	exptime := 120.0
	object := "NGC 2392"
	return &observation.Record{
		Filename:    filename,
		Telescope:   observation.TelescopeShane,
		Instrument:  observation.InstrumentKastBlue,
		ObsDate:     time.Date(2022, time.January, 15, 8, 30, 0, 0, time.UTC),
		Exptime:     &exptime,
		Object:      &object,
		Coord:       &observation.SPoint{RA: 112.295, Dec: 20.911},
		FrameType:   observation.FrameTypeScience,
		IngestFlags: observation.FlagClear,
		Header:      "OBJECT  = 'NGC 2392'",
	}
}

func TestInsertOneAndExists(t *testing.T) {
	db := openTestDB(t)
	repo := NewObservationRepository(db)
	ctx := context.Background()

	rec := testRecord("/data/2022-01/15/shane/b100.fits")
	if err := repo.InsertOne(ctx, rec); err != nil {
		t.Fatalf("InsertOne: %v", err)
	}

	exists, err := repo.Exists(ctx, rec.Filename)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !exists {
		t.Fatal("inserted record should exist")
	}

	exists, err = repo.Exists(ctx, "/data/2022-01/15/shane/b999.fits")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Fatal("missing record should not exist")
	}
}

func TestInsertOneDuplicateIsConstraintViolation(t *testing.T) {
	db := openTestDB(t)
	repo := NewObservationRepository(db)
	ctx := context.Background()

	rec := testRecord("/data/2022-01/15/shane/b100.fits")
	if err := repo.InsertOne(ctx, rec); err != nil {
		t.Fatalf("InsertOne: %v", err)
	}

	err := repo.InsertOne(ctx, testRecord(rec.Filename))
	if !errors.Is(err, ports.ErrConstraintViolation) {
		t.Fatalf("duplicate insert err = %v, want ErrConstraintViolation", err)
	}
}

func TestInsertBatchInTransaction(t *testing.T) {
	db := openTestDB(t)
	repo := NewObservationRepository(db)
	u := uow.NewUnitOfWork(db)
	ctx := context.Background()

	records := []*observation.Record{
		testRecord("/data/2022-01/15/shane/b100.fits"),
		testRecord("/data/2022-01/15/shane/b101.fits"),
		testRecord("/data/2022-01/15/shane/b102.fits"),
	}

	err := u.WithTx(ctx, func(txCtx context.Context) error {
		return repo.InsertBatch(txCtx, records)
	})
	if err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}

	var count int64
	if err := db.Model(&model.Observation{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
}

func TestInsertBatchDuplicateRollsBack(t *testing.T) {
	db := openTestDB(t)
	repo := NewObservationRepository(db)
	u := uow.NewUnitOfWork(db)
	ctx := context.Background()

	if err := repo.InsertOne(ctx, testRecord("/data/2022-01/15/shane/b101.fits")); err != nil {
		t.Fatalf("seed insert: %v", err)
	}

	records := []*observation.Record{
		testRecord("/data/2022-01/15/shane/b100.fits"),
		testRecord("/data/2022-01/15/shane/b101.fits"), // duplicate
		testRecord("/data/2022-01/15/shane/b102.fits"),
	}

	err := u.WithTx(ctx, func(txCtx context.Context) error {
		return repo.InsertBatch(txCtx, records)
	})
	if !errors.Is(err, ports.ErrConstraintViolation) {
		t.Fatalf("err = %v, want ErrConstraintViolation", err)
	}

	// The whole batch rolled back; only the seeded row remains.
	var count int64
	if err := db.Model(&model.Observation{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}

func TestStoredColumnValues(t *testing.T) {
	db := openTestDB(t)
	repo := NewObservationRepository(db)
	ctx := context.Background()

	rec := testRecord("/data/2022-01/15/shane/b100.fits")
	rec.IngestFlags = observation.FlagNoLampsInHeader | observation.FlagNoCoord
	if err := repo.InsertOne(ctx, rec); err != nil {
		t.Fatalf("InsertOne: %v", err)
	}

	var row model.Observation
	if err := db.First(&row, "filename = ?", rec.Filename).Error; err != nil {
		t.Fatalf("load row: %v", err)
	}

	if row.FrameType != "science" {
		t.Fatalf("frame_type = %q", row.FrameType)
	}
	if row.Instrument != "Kast Blue" {
		t.Fatalf("instrument = %q", row.Instrument)
	}
	if row.Coord == nil || *row.Coord != "(112.295d, 20.911d)" {
		t.Fatalf("coord = %v", row.Coord)
	}

	flags, err := observation.ParseBitString(row.IngestFlags)
	if err != nil {
		t.Fatalf("ParseBitString(%q): %v", row.IngestFlags, err)
	}
	if flags != rec.IngestFlags {
		t.Fatalf("ingest_flags = %s, want %s", flags.BitString(), rec.IngestFlags.BitString())
	}
}
