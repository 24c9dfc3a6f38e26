package metadata

import (
	"strings"

	"lickarchive/internal/fitshdr"
)

// lampNames is the fixed order of the LAMPSTAx keywords on the Shane
// telescope. Indexes [0,domeLampCount) are the dome/flat lamps; the rest
// are arc lamps.
var lampNames = [...]string{
	"1", "2", "3", "4", "5",
	"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K",
}

const domeLampCount = 5

// LampStatus translates the LAMPSTAx keywords to a fixed-order boolean
// vector. An element is true when the keyword is boolean true or the
// case-insensitive string "on". If any lamp keyword is absent the whole
// vector is nil: partial information is treated as no information, never as
// "all off".
func LampStatus(h *fitshdr.Header) []bool {
	status := make([]bool, len(lampNames))
	for i, name := range lampNames {
		v, ok := h.Get("LAMPSTA" + name)
		if !ok {
			return nil
		}
		switch t := v.(type) {
		case bool:
			status[i] = t
		case string:
			status[i] = strings.EqualFold(strings.TrimSpace(t), "on")
		}
	}
	return status
}

func anyLampOn(lamps []bool, lo, hi int) bool {
	for i := lo; i < hi && i < len(lamps); i++ {
		if lamps[i] {
			return true
		}
	}
	return false
}

func anyDomeLampOn(lamps []bool) bool {
	return anyLampOn(lamps, 0, domeLampCount)
}

func anyArcLampOn(lamps []bool) bool {
	return anyLampOn(lamps, domeLampCount, len(lampNames))
}
