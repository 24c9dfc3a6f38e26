package observation

import (
	"fmt"
	"strconv"
	"strings"
)

// SPoint is a point on the celestial sphere in decimal degrees. Its string
// form is the pgsphere SPOINT literal used by the coord column, which backs
// cone searches.
type SPoint struct {
	RA  float64
	Dec float64
}

// String renders the pgsphere literal, for example "(187.25d, 45.5d)".
func (p SPoint) String() string {
	return fmt.Sprintf("(%sd, %sd)",
		strconv.FormatFloat(p.RA, 'f', -1, 64),
		strconv.FormatFloat(p.Dec, 'f', -1, 64))
}

// SPointFromSexagesimal converts colon-delimited RA (hours:minutes:seconds)
// and DEC (degrees:minutes:seconds) to an SPoint. A wrong number of fields
// is a hard error; out of range components such as 60 seconds are carried
// through arithmetically.
func SPointFromSexagesimal(ra, dec string) (SPoint, error) {
	rah, ram, ras, err := splitSexagesimal(ra)
	if err != nil {
		return SPoint{}, fmt.Errorf("RA value %q is not valid hms format: %w", ra, err)
	}

	decd, decm, decs, err := splitSexagesimal(dec)
	if err != nil {
		return SPoint{}, fmt.Errorf("DEC value %q is not valid dms format: %w", dec, err)
	}

	raDeg := (rah*3600 + ram*60 + ras) / 3600 * 15

	sign := 1.0
	if decd < 0 || strings.HasPrefix(strings.TrimSpace(dec), "-") {
		sign = -1
		if decd < 0 {
			decd = -decd
		}
	}
	decDeg := sign * (decd + decm/60 + decs/3600)

	return SPoint{RA: raDeg, Dec: decDeg}, nil
}

func splitSexagesimal(s string) (float64, float64, float64, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("expected 3 colon-delimited fields, got %d", len(parts))
	}

	out := make([]float64, 3)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("field %d: %w", i+1, err)
		}
		out[i] = v
	}
	return out[0], out[1], out[2], nil
}
