package schedule

import (
	"fmt"
	"time"
)

// TimeSlot is a fixed daily appointment window in local time.
type TimeSlot struct {
	Label       string
	StartHour   int
	StartMinute int
	EndHour     int
	EndMinute   int
}

var defaultSlots = []TimeSlot{
	{Label: "Slot 1", StartHour: 8, EndHour: 9},
	{Label: "Slot 2", StartHour: 10, EndHour: 11},
	{Label: "Slot 3", StartHour: 13, EndHour: 14},
	{Label: "Slot 4", StartHour: 15, EndHour: 16},
}

// DefaultSlots returns a copy of the four daily slots.
func DefaultSlots() []TimeSlot {
	out := make([]TimeSlot, len(defaultSlots))
	copy(out, defaultSlots)
	return out
}

// Start returns the slot's start on the given day.
func (s TimeSlot) Start(day WeekDay) time.Time {
	y, m, d := day.Date.Date()
	return time.Date(y, m, d, s.StartHour, s.StartMinute, 0, 0, day.Date.Location())
}

func (s TimeSlot) End(day WeekDay) time.Time {
	y, m, d := day.Date.Date()
	return time.Date(y, m, d, s.EndHour, s.EndMinute, 0, 0, day.Date.Location())
}

// Range renders "08:00 - 09:00".
func (s TimeSlot) Range() string {
	return fmt.Sprintf("%02d:%02d - %02d:%02d", s.StartHour, s.StartMinute, s.EndHour, s.EndMinute)
}

func (s TimeSlot) startsAt(t time.Time) bool {
	return t.Hour() == s.StartHour && t.Minute() == s.StartMinute
}
