package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"lickarchive/internal/domain/observation"
	"lickarchive/internal/errs"
	"lickarchive/internal/infrastructure/persistence/sql/model"
	"lickarchive/internal/ports"
)

// ObservationRepository implements ports.ObservationRepository with gorm.
type ObservationRepository struct {
	db *gorm.DB
}

func NewObservationRepository(db *gorm.DB) *ObservationRepository {
	return &ObservationRepository{db: db}
}

func (r *ObservationRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

func (r *ObservationRepository) InsertBatch(ctx context.Context, records []*observation.Record) error {
	if len(records) == 0 {
		return nil
	}

	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	rows := make([]model.Observation, 0, len(records))
	for _, rec := range records {
		rows = append(rows, toModel(rec))
	}
	if err := db.Create(&rows).Error; err != nil {
		return classifyStoreError(errs.Wrap(err, "bulk insert observations"))
	}
	return nil
}

func (r *ObservationRepository) InsertOne(ctx context.Context, record *observation.Record) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	row := toModel(record)
	if err := db.Create(&row).Error; err != nil {
		return classifyStoreError(errs.Wrapf(err, "insert observation %s", record.Filename))
	}
	return nil
}

func (r *ObservationRepository) Exists(ctx context.Context, filename string) (bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return false, err
	}

	var count int64
	if err := db.Model(&model.Observation{}).
		Where("filename = ?", filename).
		Count(&count).Error; err != nil {
		return false, errs.Wrapf(err, "check observation %s exists", filename)
	}
	return count > 0, nil
}

// classifyStoreError tags failures that retrying cannot fix so the ingestor
// can skip straight to the failure artifact.
func classifyStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isConstraintMessage(err) {
		return fmt.Errorf("%w: %v", ports.ErrConstraintViolation, err)
	}
	return err
}

func isConstraintMessage(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "constraint failed")
}

func toModel(rec *observation.Record) model.Observation {
	var coord *string
	if rec.Coord != nil {
		s := rec.Coord.String()
		coord = &s
	}

	return model.Observation{
		Telescope:       string(rec.Telescope),
		Instrument:      string(rec.Instrument),
		ObsDate:         rec.ObsDate,
		Exptime:         rec.Exptime,
		RA:              rec.RA,
		Dec:             rec.Dec,
		Coord:           coord,
		Object:          rec.Object,
		Airmass:         rec.Airmass,
		Program:         rec.Program,
		Observer:        rec.Observer,
		FrameType:       rec.FrameType.String(),
		Filename:        rec.Filename,
		IngestFlags:     rec.IngestFlags.BitString(),
		Header:          rec.Header,
		SlitName:        rec.SlitName,
		BeamSplitterPos: rec.BeamSplitterPos,
		Grism:           rec.Grism,
		GratingName:     rec.GratingName,
		GratingTilt:     rec.GratingTilt,
		AperName:        rec.AperName,
		Filter1:         rec.Filter1,
		Filter2:         rec.Filter2,
		SciFilter:       rec.SciFilter,
		CoaddsDone:      rec.CoaddsDone,
		TrueIntTime:     rec.TrueIntTime,
	}
}
