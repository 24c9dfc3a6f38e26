package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"lickarchive/internal/bootstrap/logging"
	"lickarchive/internal/domain/observation"
	"lickarchive/internal/fitshdr"
)

// ShaneKastReader reads metadata from Shane Kast spectrograph files.
type ShaneKastReader struct{}

// CanRead claims files under a "shane" directory whose header identifies the
// Kast instrument. Newer files set VERSION to kastr/kastb; 2008-and-earlier
// files set INSTRUME to KAST; some of those have a blank INSTRUME but KAST in
// PROGRAM.
func (r *ShaneKastReader) CanRead(path string, header *fitshdr.Header) bool {
	if !strings.Contains(filepath.Dir(path), "shane") {
		return false
	}

	if v, ok := header.Str("VERSION"); ok && (v == "kastr" || v == "kastb") {
		return true
	}

	if instr, ok := header.Str("INSTRUME"); ok {
		name := strings.ToUpper(strings.TrimSpace(instr))
		if name == "KAST" {
			return true
		}
		if name == "" {
			if program, ok := header.Str("PROGRAM"); ok &&
				strings.ToUpper(strings.TrimSpace(program)) == "KAST" {
				return true
			}
		}
	}

	return false
}

// classify determines the frame type from exposure time, lamp status and
// object name. Parts of this logic were adapted from PypeIt.
func (r *ShaneKastReader) classify(ctx context.Context, exptime float64, lamps []bool, object *string) (observation.FrameType, observation.IngestFlags) {
	flags := observation.FlagClear

	if lamps == nil {
		logging.Debug(ctx, "no lamps information, using OBJECT to determine frame type")
		flags |= observation.FlagNoLampsInHeader
		return kastObjectFrameType(object, &flags), flags
	}

	frameType := observation.FrameTypeUnknown
	if !anyLampOn(lamps, 0, len(lamps)) && exptime > 1 {
		// No lamps on: science if a real exposure.
		frameType = observation.FrameTypeScience
	}

	if exptime <= 1 {
		// A near-zero exposure is always a bias, whatever the lamps claim.
		return observation.FrameTypeBias, flags
	}

	if anyDomeLampOn(lamps) {
		// Any dome light on makes this a flat.
		frameType = observation.FrameTypeFlat
	} else if anyArcLampOn(lamps) && exptime <= 61 {
		// Long "arc" exposures are leftover lamp state, not real arcs.
		frameType = observation.FrameTypeArc
	}

	return frameType, flags
}

func (r *ShaneKastReader) ReadRow(ctx context.Context, path string, header *fitshdr.Header, flags observation.IngestFlags) (*observation.Record, error) {
	ctx = logReader(ctx, "shane_kast")

	instrument, err := r.resolveInstrument(header)
	if err != nil {
		return nil, err
	}

	rec := &observation.Record{
		Filename:   path,
		Telescope:  observation.TelescopeShane,
		Instrument: instrument,
	}

	if dateObs, ok := header.Str("DATE-OBS"); ok {
		rec.ObsDate, err = parseHeaderTime(dateObs)
		if err != nil {
			return nil, fmt.Errorf("invalid format for DATE-OBS %q: %w", dateObs, err)
		}
	} else {
		logging.Debug(ctx, "used directory date for observation date", slog.String("file", path))
		dirDate, err := archiveDirDate(path)
		if err != nil {
			return nil, fmt.Errorf("no DATE-OBS and the directory date is unusable: %w", err)
		}
		rec.ObsDate = dirDate
		flags |= observation.FlagUseDirDate
	}

	rec.Exptime = floatPtr(header, "EXPTIME")
	if rec.Exptime == nil {
		// Some older files use EXPOSURE.
		rec.Exptime = floatPtr(header, "EXPOSURE")
	}

	rec.RA, rec.Dec, rec.Coord, err = ResolveCoords(header)
	if err != nil {
		return nil, err
	}
	if rec.Coord == nil {
		flags |= observation.FlagNoCoord
	}

	rec.Object = strippedPtr(header, "OBJECT")
	rec.SlitName = strippedPtr(header, "SLIT_N")
	rec.Airmass = floatPtr(header, "AIRMASS")
	rec.BeamSplitterPos = strippedPtr(header, "BSPLIT_N")
	rec.Grism = strippedPtr(header, "GRISM_N")
	rec.GratingName = strippedPtr(header, "GRATNG_N")
	rec.GratingTilt = intPtr(header, "GRTILT_P")
	rec.Program = strippedPtr(header, "PROGRAM")
	rec.Observer = strippedPtr(header, "OBSERVER")

	exptime := 0.0
	if rec.Exptime != nil {
		exptime = *rec.Exptime
	}
	frameType, frameFlags := r.classify(ctx, exptime, LampStatus(header), rec.Object)
	rec.FrameType = frameType
	flags |= frameFlags

	text, textFlags := sanitizeHeaderText(header.Text())
	rec.Header = text
	flags |= textFlags

	rec.IngestFlags = flags
	return rec, nil
}

// resolveInstrument maps the header's instrument discriminator to the Kast
// side. Its absence means the file was mis-routed to this reader (old data
// from unrelated instruments shares the shane directory), which is a hard
// error rather than an anomaly flag.
func (r *ShaneKastReader) resolveInstrument(header *fitshdr.Header) (observation.Instrument, error) {
	switch version, _ := header.Str("VERSION"); version {
	case "kastb":
		return observation.InstrumentKastBlue, nil
	case "kastr":
		return observation.InstrumentKastRed, nil
	}

	instr, ok := header.Str("INSTRUME")
	if !ok {
		version, _ := header.Str("VERSION")
		return "", fmt.Errorf("unrecognized instrument for Shane telescope, VERSION was %q", version)
	}

	name := strings.ToUpper(strings.TrimSpace(instr))
	program := ""
	if p, ok := header.Str("PROGRAM"); ok {
		program = strings.ToUpper(strings.TrimSpace(p))
	}
	if name != "KAST" && !(name == "" && program == "KAST") {
		return "", fmt.Errorf("unrecognized instrument for Shane telescope: %q", instr)
	}

	// Older headers use SPSIDE to indicate red/blue.
	side, ok := header.Str("SPSIDE")
	if !ok {
		return "", fmt.Errorf("could not ingest older Kast data because it did not have SPSIDE set")
	}
	switch strings.ToLower(strings.TrimSpace(side)) {
	case "red":
		return observation.InstrumentKastRed, nil
	case "blue":
		return observation.InstrumentKastBlue, nil
	}
	return "", fmt.Errorf("could not ingest older Kast data because the SPSIDE value %q was not red or blue", side)
}

// kastObjectFrameType is the object-name heuristic used when the Kast lamp
// status is unavailable.
func kastObjectFrameType(object *string, flags *observation.IngestFlags) observation.FrameType {
	if object == nil {
		*flags |= observation.FlagNoObjectInHeader
		return observation.FrameTypeUnknown
	}

	lower := strings.ToLower(*object)
	switch {
	case strings.Contains(lower, "flat"):
		return observation.FrameTypeFlat
	case strings.Contains(lower, "dark"):
		return observation.FrameTypeDark
	case strings.Contains(lower, "arc"):
		return observation.FrameTypeArc
	case strings.Contains(lower, "bias"):
		return observation.FrameTypeBias
	case strings.TrimSpace(*object) != "":
		return observation.FrameTypeScience
	}

	*flags |= observation.FlagNoObjectInHeader
	return observation.FrameTypeUnknown
}

// parseHeaderTime parses an ISO timestamp from a header, treating it as UTC.
// The fractional seconds are optional; plenty of older files omit them.
func parseHeaderTime(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02T15:04:05.999999999", strings.TrimSpace(s), time.UTC)
}
