// Package metadata reads observation metadata records from instrument files.
// Each supported instrument has a Reader that claims files through an
// applicability predicate; the Registry dispatches a file to the first
// reader that claims it, in fixed registration order.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"lickarchive/internal/bootstrap/logging"
	"lickarchive/internal/domain/observation"
	"lickarchive/internal/fitshdr"
)

var (
	// ErrUnknownFormat marks files that could not be parsed as FITS at all.
	ErrUnknownFormat = errors.New("unknown file format")

	// ErrUnrecognizedFile marks parseable FITS files that no registered
	// reader claims. Distinct from ErrUnknownFormat and from reader-level
	// errors so callers can tell "not FITS", "FITS from an unsupported
	// source" and "claimed but broken" apart.
	ErrUnrecognizedFile = errors.New("unrecognized FITS file")
)

// Reader extracts a metadata record from one instrument family's files.
type Reader interface {
	// CanRead is the applicability predicate: a side-effect-free test of the
	// file path and parsed header deciding whether this reader should
	// process the file.
	CanRead(path string, header *fitshdr.Header) bool

	// ReadRow builds the observation record from the header. flags carries
	// any bits already raised while opening the file; ReadRow ORs its own
	// anomalies on top and never clears a bit.
	ReadRow(ctx context.Context, path string, header *fitshdr.Header, flags observation.IngestFlags) (*observation.Record, error)
}

// Registry dispatches files to readers in a fixed, order-significant list.
// Registration order is a visible contract: the first CanRead that returns
// true wins.
type Registry struct {
	readers []Reader
}

// NewRegistry builds the registry with all supported instrument readers.
// Adding an instrument means adding its Reader here.
func NewRegistry() *Registry {
	return &Registry{
		readers: []Reader{
			&ShaneKastReader{},
			&ShaneAOSharcsReader{},
		},
	}
}

// ReadFile opens the file's header and reads one metadata record from it.
func (g *Registry) ReadFile(ctx context.Context, path string) (*observation.Record, error) {
	header, flags, err := fitshdr.OpenFile(path)
	if err != nil {
		return nil, err
	}
	if header == nil || flags.Has(observation.FlagUnknownFormat) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	return g.ReadHeader(ctx, path, header, flags)
}

// ReadHeader dispatches an already-parsed header. Split from ReadFile so
// rows can be reprocessed from the stored header column.
func (g *Registry) ReadHeader(ctx context.Context, path string, header *fitshdr.Header, flags observation.IngestFlags) (*observation.Record, error) {
	for _, r := range g.readers {
		if r.CanRead(path, header) {
			return r.ReadRow(ctx, path, header, flags)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnrecognizedFile, path)
}

// archivePathParts extracts the date string ("YYYY-MM-DD") and instrument
// directory name from an archive path laid out as YYYY-MM/DD/instrument/file.
func archivePathParts(path string) (dateText, instrument string) {
	dir := filepath.Dir(path)
	instrument = filepath.Base(dir)
	day := filepath.Base(filepath.Dir(dir))
	yearMonth := filepath.Base(filepath.Dir(filepath.Dir(dir)))
	return yearMonth + "-" + day, instrument
}

// archiveDirDate parses the directory-encoded date of an archive path.
func archiveDirDate(path string) (time.Time, error) {
	dateText, _ := archivePathParts(path)
	return time.ParseInLocation("2006-01-02", dateText, time.UTC)
}

// strPtr returns a pointer to the keyword's string value, or nil when
// absent or not a string card.
func strPtr(h *fitshdr.Header, key string) *string {
	s, ok := h.Str(key)
	if !ok {
		return nil
	}
	return &s
}

// strippedPtr is strPtr with surrounding whitespace removed.
func strippedPtr(h *fitshdr.Header, key string) *string {
	p := strPtr(h, key)
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	return &s
}

func floatPtr(h *fitshdr.Header, key string) *float64 {
	f, ok := h.Float(key)
	if !ok {
		return nil
	}
	return &f
}

func intPtr(h *fitshdr.Header, key string) *int64 {
	i, ok := h.Int(key)
	if !ok {
		return nil
	}
	return &i
}

// valueText renders a typed header value the way it should appear in a text
// column (RA/DEC are stored as they appear in the header, whatever the type).
func valueText(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		if t {
			return "T"
		}
		return "F"
	}
	return ""
}

// sanitizeHeaderText replaces characters the database rejects (such as NUL)
// in the stored header text, raising FlagInvalidChar when any were found.
func sanitizeHeaderText(text string) (string, observation.IngestFlags) {
	if !strings.ContainsRune(text, '\x00') {
		return text, observation.FlagClear
	}
	return strings.ReplaceAll(text, "\x00", " "), observation.FlagInvalidChar
}

func logReader(ctx context.Context, reader string) context.Context {
	return logging.WithAttrs(ctx, slog.String("component", "metadata."+reader))
}
