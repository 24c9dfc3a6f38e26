package metadata

import (
	"math"
	"testing"

	"lickarchive/internal/fitshdr"
)

func TestResolveCoordsSecondaryWCSWins(t *testing.T) {
	h := fitshdr.ParseText(
		"CRVAL1S =               187.25\n" +
			"CRVAL2S =                 45.5\n" +
			"CTYPE1S = 'RA---TAN'\n" +
			"CTYPE2S = 'DEC--TAN'\n" +
			"WCSNAMES= 'Celestial coordinates'\n" +
			"CRVAL1  =                  1.0\n" +
			"CRVAL2  =                  2.0\n" +
			"CTYPE1  = 'RA---TAN'\n" +
			"CTYPE2  = 'DEC--TAN'\n" +
			"WCSNAME = 'Celestial coordinates'\n" +
			"RA      = '12:00:00'\n" +
			"DEC     = '30:00:00'\n" +
			"END")

	ra, dec, coord, err := ResolveCoords(h)
	if err != nil {
		t.Fatalf("ResolveCoords: %v", err)
	}
	if ra == nil || *ra != "187.25" || dec == nil || *dec != "45.5" {
		t.Fatalf("ra, dec = %v, %v", ra, dec)
	}
	if coord == nil || coord.RA != 187.25 || coord.Dec != 45.5 {
		t.Fatalf("coord = %v", coord)
	}
}

func TestResolveCoordsStringTypedWCSValues(t *testing.T) {
	// Some headers quote CRVAL values; a numeric string still yields a point.
	h := fitshdr.ParseText(
		"CRVAL1S = '187.25'\n" +
			"CRVAL2S = '45.5'\n" +
			"CTYPE1S = 'RA---TAN'\n" +
			"CTYPE2S = 'DEC--TAN'\n" +
			"WCSNAMES= 'Celestial coordinates'\n" +
			"END")

	ra, dec, coord, err := ResolveCoords(h)
	if err != nil {
		t.Fatalf("ResolveCoords: %v", err)
	}
	if ra == nil || *ra != "187.25" || dec == nil || *dec != "45.5" {
		t.Fatalf("ra, dec = %v, %v", ra, dec)
	}
	if coord == nil || coord.RA != 187.25 || coord.Dec != 45.5 {
		t.Fatalf("coord = %v", coord)
	}
}

func TestResolveCoordsPrimaryWCSFallback(t *testing.T) {
	h := fitshdr.ParseText(
		"CRVAL1  =                120.5\n" +
			"CRVAL2  =                -10.0\n" +
			"CTYPE1  = 'RA---TAN'\n" +
			"CTYPE2  = 'DEC--TAN'\n" +
			"WCSNAME = 'Celestial coordinates'\n" +
			"END")

	ra, dec, coord, err := ResolveCoords(h)
	if err != nil {
		t.Fatalf("ResolveCoords: %v", err)
	}
	if ra == nil || *ra != "120.5" || dec == nil || *dec != "-10" {
		t.Fatalf("ra, dec = %v, %v", ra, dec)
	}
	if coord == nil || coord.RA != 120.5 || coord.Dec != -10.0 {
		t.Fatalf("coord = %v", coord)
	}
}

func TestResolveCoordsWCSNameCheckFails(t *testing.T) {
	// A non-celestial WCS pair must not produce a point; the bare RA/DEC
	// pair is used instead.
	h := fitshdr.ParseText(
		"CRVAL1  =                120.5\n" +
			"CRVAL2  =                -10.0\n" +
			"CTYPE1  = 'LINEAR'\n" +
			"CTYPE2  = 'LINEAR'\n" +
			"WCSNAME = 'Detector coordinates'\n" +
			"RA      = '12:00:00'\n" +
			"DEC     = '-30:30:00'\n" +
			"END")

	ra, dec, coord, err := ResolveCoords(h)
	if err != nil {
		t.Fatalf("ResolveCoords: %v", err)
	}
	if ra == nil || *ra != "12:00:00" || dec == nil || *dec != "-30:30:00" {
		t.Fatalf("ra, dec = %v, %v", ra, dec)
	}
	if coord == nil || coord.RA != 180 || coord.Dec != -30.5 {
		t.Fatalf("coord = %v", coord)
	}
}

func TestResolveCoordsDecimalRADEC(t *testing.T) {
	h := fitshdr.ParseText(
		"RA      =              112.295\n" +
			"DEC     =               20.911\n" +
			"END")

	ra, dec, coord, err := ResolveCoords(h)
	if err != nil {
		t.Fatalf("ResolveCoords: %v", err)
	}
	if ra == nil || *ra != "112.295" || dec == nil || *dec != "20.911" {
		t.Fatalf("ra, dec = %v, %v", ra, dec)
	}
	if coord == nil || math.Abs(coord.RA-112.295) > 1e-9 || math.Abs(coord.Dec-20.911) > 1e-9 {
		t.Fatalf("coord = %v", coord)
	}
}

func TestResolveCoordsMalformedSexagesimal(t *testing.T) {
	h := fitshdr.ParseText(
		"RA      = '12:30'\n" +
			"DEC     = '10:00:00'\n" +
			"END")

	ra, dec, coord, err := ResolveCoords(h)
	if err == nil {
		t.Fatal("expected hard error for malformed sexagesimal RA")
	}
	if coord != nil {
		t.Fatalf("coord = %v, want nil", coord)
	}
	// The raw text is still reported alongside the error.
	if ra == nil || *ra != "12:30" || dec == nil || *dec != "10:00:00" {
		t.Fatalf("ra, dec = %v, %v", ra, dec)
	}
}

func TestResolveCoordsNothingPresent(t *testing.T) {
	h := fitshdr.ParseText("OBJECT  = 'M31'\nEND")

	ra, dec, coord, err := ResolveCoords(h)
	if err != nil {
		t.Fatalf("ResolveCoords: %v", err)
	}
	if ra != nil || dec != nil || coord != nil {
		t.Fatalf("expected all nil, got %v, %v, %v", ra, dec, coord)
	}
}
