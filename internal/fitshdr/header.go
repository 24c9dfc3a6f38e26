// Package fitshdr parses FITS primary headers into a typed key/value view.
// It is deliberately lenient: the archive holds decades of hand-edited
// headers, so missing END cards, missing SIMPLE cards, and stray bytes are
// recorded as ingest flags instead of rejecting the file outright.
package fitshdr

import (
	"strconv"
	"strings"
)

const cardLen = 80

// Card is a single 80-column header card. Value is nil for commentary cards
// (COMMENT, HISTORY, blank keyword); otherwise it holds string, bool, int64
// or float64 depending on the card's FITS value type.
type Card struct {
	Key     string
	Value   any
	Comment string

	raw string
}

// Header is a parsed FITS primary header. Card order is preserved; lookups
// return the first card with a matching keyword, as the original files are
// occasionally sloppy about duplicates.
type Header struct {
	cards []Card
	index map[string]int
}

func newHeader() *Header {
	return &Header{index: make(map[string]int)}
}

func (h *Header) append(c Card) {
	h.cards = append(h.cards, c)
	if c.Key != "" && c.Key != "COMMENT" && c.Key != "HISTORY" {
		if _, ok := h.index[c.Key]; !ok {
			h.index[c.Key] = len(h.cards) - 1
		}
	}
}

// Has reports whether the keyword is present, even with an empty value.
// Absent and present-but-empty are distinct states downstream.
func (h *Header) Has(key string) bool {
	_, ok := h.index[key]
	return ok
}

// Get returns the raw typed value of the first card with the keyword.
// It never panics on a missing key.
func (h *Header) Get(key string) (any, bool) {
	i, ok := h.index[key]
	if !ok {
		return nil, false
	}
	return h.cards[i].Value, true
}

// Str returns the keyword's value when it is a string card.
func (h *Header) Str(key string) (string, bool) {
	v, ok := h.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Float returns the keyword's value when it is numeric (integer or real).
func (h *Header) Float(key string) (float64, bool) {
	v, ok := h.Get(key)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	}
	return 0, false
}

// Int returns the keyword's value when it is an integer card.
func (h *Header) Int(key string) (int64, bool) {
	v, ok := h.Get(key)
	if !ok {
		return 0, false
	}
	i, ok := v.(int64)
	return i, ok
}

// Bool returns the keyword's value when it is a logical card.
func (h *Header) Bool(key string) (bool, bool) {
	v, ok := h.Get(key)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Text renders the header as newline-joined card text without the END card
// or padding, the form stored verbatim in the database for audit and
// reprocessing.
func (h *Header) Text() string {
	lines := make([]string, 0, len(h.cards))
	for _, c := range h.cards {
		lines = append(lines, strings.TrimRight(c.raw, " "))
	}
	// Drop trailing blank padding cards.
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// Len returns the number of cards, commentary included.
func (h *Header) Len() int {
	return len(h.cards)
}

// ParseText parses a header from newline-joined card text, the format
// produced by Text. Used when reprocessing rows from the stored header
// column and by tests.
func ParseText(text string) *Header {
	h := newHeader()
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if len(line) > cardLen {
			line = line[:cardLen]
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if len(line) < cardLen {
			line += strings.Repeat(" ", cardLen-len(line))
		}
		card := parseCard(line)
		if card.Key == "END" {
			break
		}
		h.append(card)
	}
	return h
}

// parseCard parses one 80-column card. raw must be exactly cardLen bytes.
func parseCard(raw string) Card {
	key := strings.TrimRight(raw[:8], " ")

	card := Card{Key: key, raw: raw}
	if key == "END" {
		return card
	}
	if key == "" || key == "COMMENT" || key == "HISTORY" || raw[8:10] != "= " {
		// Commentary card, no value.
		return card
	}

	card.Value, card.Comment = parseValue(raw[10:])
	return card
}

// parseValue splits a card body into its typed value and comment.
func parseValue(body string) (any, string) {
	body = strings.TrimLeft(body, " ")

	if strings.HasPrefix(body, "'") {
		return parseStringValue(body)
	}

	// Non-string: value runs until the comment separator.
	value := body
	comment := ""
	if i := strings.IndexByte(body, '/'); i >= 0 {
		value = body[:i]
		comment = strings.TrimSpace(body[i+1:])
	}
	value = strings.TrimSpace(value)

	switch value {
	case "":
		// Undefined value; keep the key present with an empty string so
		// callers can tell "present but empty" from absent.
		return "", comment
	case "T":
		return true, comment
	case "F":
		return false, comment
	}

	if i, err := strconv.ParseInt(value, 10, 64); err == nil {
		return i, comment
	}

	// FITS allows D exponents on doubles.
	normalized := strings.Map(func(r rune) rune {
		if r == 'D' || r == 'd' {
			return 'E'
		}
		return r
	}, value)
	if f, err := strconv.ParseFloat(normalized, 64); err == nil {
		return f, comment
	}

	// Keyword with a malformed value; keep the raw text rather than failing
	// the whole header.
	return value, comment
}

func parseStringValue(body string) (any, string) {
	// Skip the opening quote; a '' inside the string is an escaped quote.
	var b strings.Builder
	i := 1
	for i < len(body) {
		c := body[i]
		if c == '\'' {
			if i+1 < len(body) && body[i+1] == '\'' {
				b.WriteByte('\'')
				i += 2
				continue
			}
			i++
			break
		}
		b.WriteByte(c)
		i++
	}

	comment := ""
	if j := strings.IndexByte(body[i:], '/'); j >= 0 {
		comment = strings.TrimSpace(body[i+j+1:])
	}

	// FITS strings are padded with trailing blanks that are not significant.
	return strings.TrimRight(b.String(), " "), comment
}
