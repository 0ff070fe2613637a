package schedule

import "time"

const (
	DaysPerWeek   = 7
	DateKeyLayout = "2006-01-02"
)

// WeekDay is one column of the grid. It is derived from the anchor on every
// render and has no identity of its own.
type WeekDay struct {
	Date        time.Time // local midnight
	Key         string    // canonical YYYY-MM-DD, used for matching
	Label       string    // locale formatted, display only
	WeekdayName string
}

type Week [DaysPerWeek]WeekDay

// Contains reports whether t (converted to loc) falls on one of the days.
func (w Week) Contains(t time.Time, loc *time.Location) bool {
	key := t.In(loc).Format(DateKeyLayout)
	for _, d := range w {
		if d.Key == key {
			return true
		}
	}
	return false
}

// WeekBuilder produces the seven days of the week containing an anchor.
type WeekBuilder struct {
	Location  *time.Location
	Locale    Locale
	WeekStart time.Weekday
}

func NewWeekBuilder(loc *time.Location, locale Locale) WeekBuilder {
	if loc == nil {
		loc = time.Local
	}
	return WeekBuilder{Location: loc, Locale: locale, WeekStart: locale.WeekStart}
}

// Build returns seven consecutive days starting at the configured week start.
func (b WeekBuilder) Build(anchor time.Time) Week {
	loc := b.location()
	local := anchor.In(loc)

	offset := (int(local.Weekday()) - int(b.WeekStart) + DaysPerWeek) % DaysPerWeek
	y, m, d := local.Date()

	var week Week
	for i := 0; i < DaysPerWeek; i++ {
		// time.Date normalizes day overflow and stays on local midnight across DST changes.
		day := time.Date(y, m, d-offset+i, 0, 0, 0, 0, loc)
		week[i] = WeekDay{
			Date:        day,
			Key:         day.Format(DateKeyLayout),
			Label:       day.Format(b.labelLayout()),
			WeekdayName: b.Locale.WeekdayNames[day.Weekday()],
		}
	}
	return week
}

func (b WeekBuilder) location() *time.Location {
	if b.Location == nil {
		return time.Local
	}
	return b.Location
}

func (b WeekBuilder) labelLayout() string {
	if b.Locale.LabelLayout == "" {
		return "02/01"
	}
	return b.Locale.LabelLayout
}

// Navigator holds the grid anchor. The week is always recomputed from the
// anchor, never patched.
type Navigator struct {
	builder WeekBuilder
	clock   func() time.Time
	anchor  time.Time
}

func NewNavigator(builder WeekBuilder, clock func() time.Time) *Navigator {
	if clock == nil {
		clock = time.Now
	}
	return &Navigator{builder: builder, clock: clock, anchor: clock()}
}

func (n *Navigator) Anchor() time.Time { return n.anchor }

func (n *Navigator) Week() Week { return n.builder.Build(n.anchor) }

func (n *Navigator) Next() Week {
	n.anchor = n.shift(1)
	return n.Week()
}

func (n *Navigator) Prev() Week {
	n.anchor = n.shift(-1)
	return n.Week()
}

func (n *Navigator) Reset() Week {
	n.anchor = n.clock()
	return n.Week()
}

func (n *Navigator) shift(weeks int) time.Time {
	return n.anchor.In(n.builder.location()).AddDate(0, 0, weeks*DaysPerWeek)
}
