package observation

import (
	"fmt"
	"strconv"
)

// IngestFlags is a fixed-width bitmask recording why ingest heuristics had
// to deviate from their primary path for a file. Flags are OR-accumulated
// along the decision path and never cleared within a single read.
type IngestFlags uint32

// FlagClear means nothing unusual happened while ingesting the file.
const FlagClear IngestFlags = 0

const (
	// FlagNoLampsInHeader: no lamp status keys in the header, OBJECT was used
	// to determine the frame type.
	FlagNoLampsInHeader IngestFlags = 1 << iota
	// FlagAONoDateBeg: a ShaneAO/ShARCS file had no DATE-BEG.
	FlagAONoDateBeg
	// FlagAOUseDateObs: a ShaneAO/ShARCS file used DATE-OBS/TIME-OBS, which
	// is less reliable than DATE-BEG.
	FlagAOUseDateObs
	// FlagUseDirDate: the observation date came from the directory name and
	// is only accurate to 24 hours.
	FlagUseDirDate
	// FlagNoObjectInHeader: there was no OBJECT in the header.
	FlagNoObjectInHeader
	// FlagNoFITSEndCard: the FITS header had no END card.
	FlagNoFITSEndCard
	// FlagNoFITSSimpleCard: the FITS header had no SIMPLE card at the beginning.
	FlagNoFITSSimpleCard
	// FlagFITSVerifyError: the FITS header failed a verification check.
	FlagFITSVerifyError
	// FlagUnknownFormat: the file could not be identified as FITS. Used
	// internally, never persisted.
	FlagUnknownFormat
	// FlagNoCoord: the RA/DEC in the header could not be resolved, cone
	// searches will not match the file.
	FlagNoCoord
	// FlagInvalidChar: an invalid character (such as NUL) was found in the
	// header text.
	FlagInvalidChar
)

// flagBits is the number of bits the persisted bit-string carries. The
// database column is BIT(32); the width is part of the storage contract.
const flagBits = 32

// Has reports whether every bit in mask is set.
func (f IngestFlags) Has(mask IngestFlags) bool {
	return f&mask == mask
}

// BitString renders the flags as a fixed-width binary string, most
// significant bit first, matching the BIT(32) column representation.
func (f IngestFlags) BitString() string {
	return fmt.Sprintf("%032b", uint32(f))
}

// ParseBitString parses a fixed-width binary string produced by BitString.
func ParseBitString(s string) (IngestFlags, error) {
	if len(s) != flagBits {
		return FlagClear, fmt.Errorf("ingest flags bit string must be %d characters, got %d", flagBits, len(s))
	}
	v, err := strconv.ParseUint(s, 2, flagBits)
	if err != nil {
		return FlagClear, fmt.Errorf("invalid ingest flags bit string %q: %w", s, err)
	}
	return IngestFlags(v), nil
}
