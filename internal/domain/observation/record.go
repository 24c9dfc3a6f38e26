// Package observation holds the archive's core entity: one metadata record
// per ingested instrument file, along with the frame type and ingest flag
// vocabulary shared by the readers and the persistence layer.
package observation

import "time"

type Telescope string

const TelescopeShane Telescope = "Shane"

// Instrument is a closed enumeration, extendable only by adding a new
// metadata reader for the instrument.
type Instrument string

const (
	InstrumentKastBlue Instrument = "Kast Blue"
	InstrumentKastRed  Instrument = "Kast Red"
	InstrumentSharcs   Instrument = "ShaneAO/ShARCS"
)

// Record is one row of metadata read from an instrument file. It is
// constructed entirely by a metadata reader from a single header, handed to
// the batch ingestor, and immutable once persisted. Nil pointer fields mean
// the header legitimately did not carry the value.
type Record struct {
	// Filename is the archive-relative path of the file, the natural key.
	Filename string

	Telescope  Telescope
	Instrument Instrument

	// ObsDate is always timezone-aware UTC and never zero; readers resolve
	// it through a fallback chain and flag any deviation.
	ObsDate time.Time

	Exptime  *float64
	RA       *string
	Dec      *string
	Coord    *SPoint
	Object   *string
	Airmass  *float64
	Program  *string
	Observer *string

	FrameType   FrameType
	IngestFlags IngestFlags

	// Header is the full verbatim header text, retained for audit and
	// reprocessing.
	Header string

	// Shane Kast fields.
	SlitName        *string
	BeamSplitterPos *string
	Grism           *string
	GratingName     *string
	GratingTilt     *int64

	// ShaneAO/ShARCS fields.
	AperName    *string
	Filter1     *string
	Filter2     *string
	SciFilter   *string
	CoaddsDone  *int64
	TrueIntTime *float64
}
