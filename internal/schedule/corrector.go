package schedule

import (
	"strings"
	"time"
)

// DefaultStorageOffset is the skew the notification store adds when it
// persists createdAt.
const DefaultStorageOffset = 7 * time.Hour

// InvalidTime is returned for instants that could not be parsed. Callers
// render a fixed fallback string for it.
var InvalidTime = time.Time{}

// Corrector maps a stored instant back to the real instant.
type Corrector interface {
	Correct(t time.Time) time.Time
}

// OffsetCorrector undoes a fixed write-time offset.
type OffsetCorrector struct {
	Offset time.Duration
}

// NoCorrection leaves instants as stored. Consultation times use it.
var NoCorrection Corrector = OffsetCorrector{}

func (c OffsetCorrector) Correct(t time.Time) time.Time {
	if IsInvalid(t) {
		return InvalidTime
	}
	return t.Add(-c.Offset)
}

func IsInvalid(t time.Time) bool {
	return t.IsZero()
}

var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseInstant parses the timestamp formats the upstream services emit.
// Unparseable input returns InvalidTime.
func ParseInstant(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return InvalidTime
	}
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return InvalidTime
}

// CorrectRaw parses raw and applies c.
func CorrectRaw(c Corrector, raw string) time.Time {
	if c == nil {
		c = NoCorrection
	}
	return c.Correct(ParseInstant(raw))
}
