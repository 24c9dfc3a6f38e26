package model

import "time"

// Observation is the relational row for one ingested file. The filename is
// the natural key: re-ingesting the same file must fail the unique
// constraint rather than overwrite silently. IngestFlags is stored as the
// fixed-width bit string the BIT(32) column carries on PostgreSQL.
type Observation struct {
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`

	Telescope  string    `gorm:"column:telescope;type:text;not null"`
	Instrument string    `gorm:"column:instrument;type:text;not null;index:index_obs_instrument"`
	ObsDate    time.Time `gorm:"column:obs_date;not null;index:index_obs_obs_date"`

	Exptime  *float64 `gorm:"column:exptime"`
	RA       *string  `gorm:"column:ra;type:text"`
	Dec      *string  `gorm:"column:dec;type:text"`
	Coord    *string  `gorm:"column:coord;type:text"`
	Object   *string  `gorm:"column:object;type:text;index:index_obs_object"`
	Airmass  *float64 `gorm:"column:airmass"`
	Program  *string  `gorm:"column:program;type:text"`
	Observer *string  `gorm:"column:observer;type:text"`

	FrameType   string `gorm:"column:frame_type;type:text;not null;index:index_obs_frame"`
	Filename    string `gorm:"column:filename;type:text;not null;uniqueIndex:index_obs_filename"`
	IngestFlags string `gorm:"column:ingest_flags;type:char(32);not null"`
	Header      string `gorm:"column:header;type:text"`

	// Shane Kast fields.
	SlitName        *string `gorm:"column:slit_name;type:text"`
	BeamSplitterPos *string `gorm:"column:beam_splitter_pos;type:text"`
	Grism           *string `gorm:"column:grism;type:text"`
	GratingName     *string `gorm:"column:grating_name;type:text"`
	GratingTilt     *int64  `gorm:"column:grating_tilt"`

	// ShaneAO/ShARCS fields.
	AperName    *string  `gorm:"column:apername;type:text"`
	Filter1     *string  `gorm:"column:filter1;type:text"`
	Filter2     *string  `gorm:"column:filter2;type:text"`
	SciFilter   *string  `gorm:"column:sci_filter;type:text"`
	CoaddsDone  *int64   `gorm:"column:coadds_done"`
	TrueIntTime *float64 `gorm:"column:true_int_time"`
}

func (Observation) TableName() string {
	return "observations"
}
