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

// sharcsCutoverDate is the earliest date with ShARCS data in the archive.
// The AO directory before this date holds files from the retired IRCAL
// instrument, which is not supported.
var sharcsCutoverDate = time.Date(2014, time.April, 1, 0, 0, 0, 0, time.UTC)

// darkFilterName is the FILT2NAM blank that makes an exposure a dark
// regardless of lamp or object evidence.
const darkFilterName = "Blank25"

// ShaneAOSharcsReader reads metadata from ShaneAO/ShARCS files.
type ShaneAOSharcsReader struct{}

// CanRead claims files whose directory carries the AO token, dated on or
// after the ShARCS cutover.
func (r *ShaneAOSharcsReader) CanRead(path string, header *fitshdr.Header) bool {
	if !strings.Contains(filepath.Dir(path), "AO") {
		return false
	}

	fileDate, err := archiveDirDate(path)
	if err != nil {
		return false
	}
	return !fileDate.Before(sharcsCutoverDate)
}

// classify determines the frame type from the object name, the second filter
// wheel and the lamp status.
func (r *ShaneAOSharcsReader) classify(ctx context.Context, object, filter2 *string, lamps []bool) (observation.FrameType, observation.IngestFlags) {
	flags := observation.FlagClear

	if filter2 != nil && *filter2 == darkFilterName {
		return observation.FrameTypeDark, flags
	}

	if lamps == nil || !anyLampOn(lamps, 0, len(lamps)) {
		if lamps == nil {
			flags |= observation.FlagNoLampsInHeader
			logging.Debug(ctx, "could not find lamps, using OBJECT to determine frame type")
		} else {
			logging.Debug(ctx, "lamps are off, using OBJECT to double check frame type")
		}
		return r.objectFrameType(object, lamps != nil, &flags), flags
	}

	if anyDomeLampOn(lamps) {
		// Any dome light on makes this a flat. Only the flat lamps matter
		// for ShARCS; the TUB lamps above lamp 5 are not used.
		return observation.FrameTypeFlat, flags
	}
	if anyArcLampOn(lamps) {
		return observation.FrameTypeArc, flags
	}
	return observation.FrameTypeUnknown, flags
}

func (r *ShaneAOSharcsReader) objectFrameType(object *string, lampsPresent bool, flags *observation.IngestFlags) observation.FrameType {
	if object == nil {
		*flags |= observation.FlagNoObjectInHeader
		return observation.FrameTypeUnknown
	}

	lower := strings.ToLower(*object)
	switch {
	case strings.Contains(lower, "dark"):
		return observation.FrameTypeDark
	case strings.Contains(lower, "flat"):
		return observation.FrameTypeFlat
	case strings.Contains(lower, "bias"):
		return observation.FrameTypeBias
	case strings.TrimSpace(*object) != "":
		return observation.FrameTypeScience
	}

	*flags |= observation.FlagNoObjectInHeader
	if lampsPresent {
		// Lamps are specified in the header but all off; count it as a
		// science image even though the object is empty.
		return observation.FrameTypeScience
	}
	return observation.FrameTypeUnknown
}

func (r *ShaneAOSharcsReader) ReadRow(ctx context.Context, path string, header *fitshdr.Header, flags observation.IngestFlags) (*observation.Record, error) {
	ctx = logReader(ctx, "shane_ao_sharcs")

	rec := &observation.Record{
		Filename:   path,
		Telescope:  observation.TelescopeShane,
		Instrument: observation.InstrumentSharcs,
	}

	obsDate, dateFlags, err := r.resolveObsDate(ctx, path, header)
	if err != nil {
		return nil, err
	}
	rec.ObsDate = obsDate
	flags |= dateFlags

	rec.CoaddsDone = intPtr(header, "COADDONE")
	rec.TrueIntTime = floatPtr(header, "TRUITIME")
	if rec.TrueIntTime != nil && rec.CoaddsDone != nil {
		exptime := *rec.TrueIntTime * float64(*rec.CoaddsDone)
		rec.Exptime = &exptime
	}

	rec.RA, rec.Dec, rec.Coord, err = ResolveCoords(header)
	if err != nil {
		return nil, err
	}
	if rec.Coord == nil {
		flags |= observation.FlagNoCoord
	}

	rec.Object = strPtr(header, "OBJECT")
	rec.Airmass = floatPtr(header, "AIRMASS")
	rec.AperName = strPtr(header, "APERNAM")
	rec.Filter1 = strPtr(header, "FILT1NAM")
	rec.Filter2 = strPtr(header, "FILT2NAM")
	rec.SciFilter = strPtr(header, "SCIFILT")
	rec.Program = strPtr(header, "PROGRAM")
	rec.Observer = strPtr(header, "OBSERVER")

	frameType, frameFlags := r.classify(ctx, rec.Object, rec.Filter2, LampStatus(header))
	rec.FrameType = frameType
	flags |= frameFlags

	text, textFlags := sanitizeHeaderText(header.Text())
	rec.Header = text
	flags |= textFlags

	rec.IngestFlags = flags
	return rec, nil
}

// resolveObsDate runs the date fallback chain: DATE-BEG when present and
// parseable; otherwise DATE-OBS combined with TIME-OBS when DATE-OBS matches
// the directory date; otherwise the directory date at midnight UTC. Exactly
// one path fires and each deviation raises its flag.
func (r *ShaneAOSharcsReader) resolveObsDate(ctx context.Context, path string, header *fitshdr.Header) (time.Time, observation.IngestFlags, error) {
	flags := observation.FlagClear

	if dateBeg, ok := header.Str("DATE-BEG"); ok {
		logging.Debug(ctx, "found DATE-BEG")
		t, err := parseHeaderTime(dateBeg)
		if err != nil {
			// A present DATE-BEG is used directly; a value that will not
			// parse fails the file rather than degrading to a 24h-accurate
			// directory date.
			return time.Time{}, flags, fmt.Errorf("invalid format for DATE-BEG %q: %w", dateBeg, err)
		}
		return t, flags, nil
	}

	flags |= observation.FlagAONoDateBeg
	dirDateText, _ := archivePathParts(path)

	// Check for weird out of sync DATE-OBS.
	if dateObs, ok := header.Str("DATE-OBS"); ok && dateObs == dirDateText {
		if timeObs, ok := header.Str("TIME-OBS"); ok {
			t, err := parseHeaderTime(dateObs + "T" + timeObs)
			if err == nil {
				logging.Debug(ctx, "did not find DATE-BEG, but DATE-OBS/TIME-OBS seem sane, using those")
				return t, flags | observation.FlagAOUseDateObs, nil
			}
			logging.Error(ctx, "invalid format for DATE-OBS/TIME-OBS",
				slog.String("date_obs", dateObs), slog.String("time_obs", timeObs))
		}
	} else {
		logging.Debug(ctx, "DATE-OBS is on a different day than the directory name, not using")
	}

	logging.Debug(ctx, "using directory date for observation date")
	dirDate, err := archiveDirDate(path)
	if err != nil {
		return time.Time{}, flags, fmt.Errorf("directory date is unusable for %s: %w", path, err)
	}
	return dirDate, flags | observation.FlagUseDirDate, nil
}
