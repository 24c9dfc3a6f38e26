package fitshdr

import (
	"errors"
	"io"
	"os"

	"lickarchive/internal/domain/observation"
	"lickarchive/internal/errs"
)

const blockLen = 2880

// OpenFile reads the primary header of a FITS file, dealing with invalid
// files as much as possible. The returned flags document any issues found
// while opening; when the file cannot be identified as FITS at all, the
// header is nil and FlagUnknownFormat is set instead of an error. Errors are
// reserved for I/O failures.
func OpenFile(path string) (*Header, observation.IngestFlags, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, observation.FlagClear, errs.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	return Read(f)
}

// Read parses a primary header from r. See OpenFile for the flag contract.
func Read(r io.Reader) (*Header, observation.IngestFlags, error) {
	flags := observation.FlagClear

	block := make([]byte, blockLen)
	n, err := io.ReadFull(r, block)
	if err != nil {
		if n == 0 {
			return nil, flags | observation.FlagUnknownFormat, nil
		}
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, observation.FlagClear, errs.Wrap(err, "read header block")
		}
		// A truncated first block is suspicious but may still hold cards.
		block = block[:n]
		flags |= observation.FlagFITSVerifyError
	}

	if !printableASCII(block[:min(cardLen, len(block))]) {
		return nil, flags | observation.FlagUnknownFormat, nil
	}

	if len(block) < 6 || string(block[:6]) != "SIMPLE" {
		flags |= observation.FlagNoFITSSimpleCard
	}

	h := newHeader()
	sawEnd := false

	for {
		full := len(block)/cardLen*cardLen == len(block) && len(block) > 0

		for off := 0; off+cardLen <= len(block); off += cardLen {
			raw := block[off : off+cardLen]
			if !printableASCII(raw) {
				// Data or garbage reached before the END card.
				flags |= observation.FlagNoFITSEndCard
				sawEnd = true
				break
			}
			card := parseCard(string(raw))
			if card.Key == "END" {
				sawEnd = true
				break
			}
			h.append(card)
		}
		if sawEnd {
			break
		}
		if !full {
			// Truncated block, cannot continue.
			flags |= observation.FlagNoFITSEndCard
			break
		}

		n, err = io.ReadFull(r, block[:blockLen])
		if err != nil {
			if n == 0 || errors.Is(err, io.ErrUnexpectedEOF) {
				flags |= observation.FlagNoFITSEndCard
				block = block[:n]
				if n == 0 {
					break
				}
				continue
			}
			return nil, observation.FlagClear, errs.Wrap(err, "read header block")
		}
		block = block[:blockLen]
	}

	if h.Len() == 0 {
		return nil, flags | observation.FlagUnknownFormat, nil
	}

	return h, flags, nil
}

// printableASCII reports whether b holds only the characters FITS permits in
// header cards.
func printableASCII(b []byte) bool {
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}
