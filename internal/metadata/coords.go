package metadata

import (
	"strconv"
	"strings"

	"lickarchive/internal/domain/observation"
	"lickarchive/internal/fitshdr"
)

// celestialWCSName is the WCS name that marks an RA/DEC solution. The FITS
// standard pads CTYPE with hyphens, so the type prefixes below are four
// characters.
const celestialWCSName = "Celestial coordinates"

// ResolveCoords reads RA and DEC from a header, trying the competing header
// conventions in strict priority order: the "S"-suffixed secondary WCS axis
// pair first (used by ShaneAO/ShARCS; the data producer confirms it takes
// priority over the unsuffixed solution), then the primary WCS pair, then a
// bare RA/DEC pair. Colon-delimited bare values are sexagesimal and
// converted; malformed sexagesimal is a hard error for the file. The point
// is nil when no rule matched or the WCS name check failed, which the caller
// records as FlagNoCoord.
func ResolveCoords(h *fitshdr.Header) (ra, dec *string, coord *observation.SPoint, err error) {
	if raV, ok := h.Get("CRVAL1S"); ok {
		if decV, ok := h.Get("CRVAL2S"); ok && wcsIsCelestial(h, "CTYPE1S", "CTYPE2S", "WCSNAMES") {
			ra, dec, coord = wcsCoord(raV, decV)
		}
	}

	if ra == nil {
		if raV, ok := h.Get("CRVAL1"); ok {
			if decV, ok := h.Get("CRVAL2"); ok && wcsIsCelestial(h, "CTYPE1", "CTYPE2", "WCSNAME") {
				ra, dec, coord = wcsCoord(raV, decV)
			}
		}
	}

	if ra == nil {
		raV, raOK := h.Get("RA")
		decV, decOK := h.Get("DEC")
		if raOK && decOK {
			raText := valueText(raV)
			decText := valueText(decV)
			ra, dec = &raText, &decText

			if strings.Contains(raText, ":") {
				p, convErr := observation.SPointFromSexagesimal(raText, decText)
				if convErr != nil {
					return ra, dec, nil, convErr
				}
				coord = &p
			} else {
				coord = decimalPoint(raV, decV)
			}
		}
	}

	return ra, dec, coord, nil
}

// wcsIsCelestial checks that a WCS axis pair really is an RA/DEC solution.
func wcsIsCelestial(h *fitshdr.Header, ctype1Key, ctype2Key, nameKey string) bool {
	name, ok := h.Str(nameKey)
	if !ok || name != celestialWCSName {
		return false
	}
	ctype1, ok := h.Str(ctype1Key)
	if !ok || !strings.HasPrefix(ctype1, "RA--") {
		return false
	}
	ctype2, ok := h.Str(ctype2Key)
	if !ok || !strings.HasPrefix(ctype2, "DEC-") {
		return false
	}
	return true
}

// wcsCoord renders a WCS axis pair. The point tolerates numeric values that
// arrive as string cards, same as the bare RA/DEC branch.
func wcsCoord(raV, decV any) (*string, *string, *observation.SPoint) {
	raText := valueText(raV)
	decText := valueText(decV)
	return &raText, &decText, decimalPoint(raV, decV)
}

// decimalPoint builds a point from already-decimal-degree values, which may
// be numeric cards or numeric strings. Unparseable values yield no point.
func decimalPoint(raV, decV any) *observation.SPoint {
	ra, ok := asFloat(raV)
	if !ok {
		return nil
	}
	dec, ok := asFloat(decV)
	if !ok {
		return nil
	}
	return &observation.SPoint{RA: ra, Dec: dec}
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}
