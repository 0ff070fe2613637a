package schedule

import (
	"sort"
	"time"
)

// Schedulable is anything that can occupy a grid cell.
type Schedulable interface {
	// SlotTime is the stored start instant.
	SlotTime() time.Time
	// OccupiesSlot is false for entries that only appear in history.
	OccupiesSlot() bool
	// TieBreak orders entries competing for the same cell.
	TieBreak() (created time.Time, id string)
}

// Matcher assigns entries to (day, slot) cells by comparing local wall-clock
// start time with the slot start.
type Matcher struct {
	Location  *time.Location
	Corrector Corrector
}

func NewMatcher(loc *time.Location, corrector Corrector) Matcher {
	if loc == nil {
		loc = time.Local
	}
	if corrector == nil {
		corrector = NoCorrection
	}
	return Matcher{Location: loc, Corrector: corrector}
}

// Local converts a stored instant to local wall-clock time.
func (m Matcher) Local(t time.Time) time.Time {
	c := m.Corrector
	if c == nil {
		c = NoCorrection
	}
	loc := m.Location
	if loc == nil {
		loc = time.Local
	}
	return c.Correct(t).In(loc)
}

// Fits reports whether e belongs in the cell.
func (m Matcher) Fits(e Schedulable, day WeekDay, slot TimeSlot) bool {
	if !e.OccupiesSlot() || IsInvalid(e.SlotTime()) {
		return false
	}
	local := m.Local(e.SlotTime())
	return local.Format(DateKeyLayout) == day.Key && slot.startsAt(local)
}

// Match returns the entry occupying the cell and how many other entries also
// fit it. Ties go to the earliest creation time, then the smallest id, then
// input order.
func Match[T Schedulable](m Matcher, items []T, day WeekDay, slot TimeSlot) (winner T, overlaps int, ok bool) {
	var candidates []int
	for i, item := range items {
		if m.Fits(item, day, slot) {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return winner, 0, false
	}
	best := pickWinner(items, candidates)
	return items[best], len(candidates) - 1, true
}

// Cell is one (day, slot) intersection.
type Cell[T Schedulable] struct {
	Day      WeekDay
	Entry    *T
	Overlaps int
}

type Row[T Schedulable] struct {
	Slot  TimeSlot
	Cells [DaysPerWeek]Cell[T]
}

type Grid[T Schedulable] struct {
	Days Week
	Rows []Row[T]
}

// BuildGrid places every eligible entry into at most one cell.
func BuildGrid[T Schedulable](m Matcher, items []T, week Week, slots []TimeSlot) Grid[T] {
	type cellKey struct {
		date string
		hour int
		min  int
	}

	buckets := make(map[cellKey][]int)
	for i, item := range items {
		if !item.OccupiesSlot() || IsInvalid(item.SlotTime()) {
			continue
		}
		local := m.Local(item.SlotTime())
		k := cellKey{date: local.Format(DateKeyLayout), hour: local.Hour(), min: local.Minute()}
		buckets[k] = append(buckets[k], i)
	}

	grid := Grid[T]{Days: week, Rows: make([]Row[T], len(slots))}
	for r, slot := range slots {
		grid.Rows[r].Slot = slot
		for c, day := range week {
			cell := Cell[T]{Day: day}
			if idx := buckets[cellKey{date: day.Key, hour: slot.StartHour, min: slot.StartMinute}]; len(idx) > 0 {
				best := items[pickWinner(items, idx)]
				cell.Entry = &best
				cell.Overlaps = len(idx) - 1
			}
			grid.Rows[r].Cells[c] = cell
		}
	}
	return grid
}

func pickWinner[T Schedulable](items []T, candidates []int) int {
	ordered := make([]int, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(a, b int) bool {
		ca, ida := items[ordered[a]].TieBreak()
		cb, idb := items[ordered[b]].TieBreak()
		switch {
		case ca.IsZero() != cb.IsZero():
			return !ca.IsZero()
		case !ca.Equal(cb):
			return ca.Before(cb)
		default:
			return ida < idb
		}
	})
	return ordered[0]
}
