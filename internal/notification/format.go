package notification

import (
	"fmt"
	"time"

	"github.com/hackgods/consultation-dashboard/internal/schedule"
)

const InvalidTimeLabel = "Invalid time"

// Formatter renders notification ages relative to now.
type Formatter struct {
	Corrector schedule.Corrector
	Location  *time.Location
	Now       func() time.Time
}

func NewFormatter(corrector schedule.Corrector, loc *time.Location, now func() time.Time) Formatter {
	if corrector == nil {
		corrector = schedule.OffsetCorrector{Offset: schedule.DefaultStorageOffset}
	}
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return Formatter{Corrector: corrector, Location: loc, Now: now}
}

// Relative takes a stored createdAt, removes the storage skew and describes
// its age. Anything a week or older is shown as a date.
func (f Formatter) Relative(stored time.Time) string {
	if schedule.IsInvalid(stored) {
		return InvalidTimeLabel
	}
	created := f.Corrector.Correct(stored)
	age := f.Now().Sub(created)
	if age < 0 {
		age = 0
	}

	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return plural(int(age/time.Minute), "minute")
	case age < 24*time.Hour:
		return plural(int(age/time.Hour), "hour")
	case age < 7*24*time.Hour:
		return plural(int(age/(24*time.Hour)), "day")
	default:
		return created.In(f.Location).Format("02/01/2006")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
