package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type booking struct {
	id      string
	at      time.Time
	created time.Time
	active  bool
}

func (b booking) SlotTime() time.Time           { return b.at }
func (b booking) OccupiesSlot() bool            { return b.active }
func (b booking) TieBreak() (time.Time, string) { return b.created, b.id }

func TestMatchExactStartOnly(t *testing.T) {
	loc := mustLoad(t, "Asia/Ho_Chi_Minh")
	m := NewMatcher(loc, nil)
	week := NewWeekBuilder(loc, LookupLocale("vi-VN")).Build(time.Date(2026, 10, 14, 0, 0, 0, 0, loc))
	slots := DefaultSlots()

	items := []booking{
		{id: "a", at: time.Date(2026, 10, 14, 8, 0, 0, 0, loc), active: true},
		{id: "b", at: time.Date(2026, 10, 14, 8, 30, 0, 0, loc), active: true},
		{id: "c", at: time.Date(2026, 10, 14, 9, 0, 0, 0, loc), active: true},
	}

	wednesday := week[2]
	got, overlaps, ok := Match(m, items, wednesday, slots[0])
	require.True(t, ok)
	assert.Equal(t, "a", got.id)
	assert.Zero(t, overlaps)

	// 08:30 and 09:00 do not equal any slot start.
	for _, slot := range slots[1:] {
		_, _, ok := Match(m, items, wednesday, slot)
		assert.False(t, ok)
	}
}

func TestMatchComparesInConfiguredZone(t *testing.T) {
	loc := mustLoad(t, "Asia/Ho_Chi_Minh")
	m := NewMatcher(loc, nil)
	week := NewWeekBuilder(loc, LookupLocale("vi-VN")).Build(time.Date(2026, 10, 14, 0, 0, 0, 0, loc))

	// 01:00 UTC is 08:00 in UTC+7.
	items := []booking{{id: "utc", at: time.Date(2026, 10, 14, 1, 0, 0, 0, time.UTC), active: true}}

	got, _, ok := Match(m, items, week[2], DefaultSlots()[0])
	require.True(t, ok)
	assert.Equal(t, "utc", got.id)
}

func TestMatchAppliesCorrector(t *testing.T) {
	m := NewMatcher(time.UTC, OffsetCorrector{Offset: time.Hour})
	week := NewWeekBuilder(time.UTC, LookupLocale("en-GB")).Build(time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC))

	items := []booking{{id: "x", at: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC), active: true}}
	_, _, ok := Match(m, items, week[2], DefaultSlots()[0])
	assert.True(t, ok)
}

func TestMatchSkipsInactiveAndInvalid(t *testing.T) {
	m := NewMatcher(time.UTC, nil)
	week := NewWeekBuilder(time.UTC, LookupLocale("en-GB")).Build(time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC))

	items := []booking{
		{id: "done", at: time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC), active: false},
		{id: "broken", at: InvalidTime, active: true},
	}
	_, _, ok := Match(m, items, week[2], DefaultSlots()[0])
	assert.False(t, ok)
}

func TestMatchTieBreak(t *testing.T) {
	m := NewMatcher(time.UTC, nil)
	day := NewWeekBuilder(time.UTC, LookupLocale("en-GB")).Build(time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC))[2]
	at := time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)
	early := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)

	cases := []struct {
		name  string
		items []booking
		want  string
	}{
		{
			name: "earliest creation wins over input order",
			items: []booking{
				{id: "a", at: at, created: late, active: true},
				{id: "b", at: at, created: early, active: true},
			},
			want: "b",
		},
		{
			name: "known creation time beats unknown",
			items: []booking{
				{id: "a", at: at, active: true},
				{id: "b", at: at, created: late, active: true},
			},
			want: "b",
		},
		{
			name: "id breaks equal creation times",
			items: []booking{
				{id: "z", at: at, created: early, active: true},
				{id: "m", at: at, created: early, active: true},
			},
			want: "m",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, overlaps, ok := Match(m, tc.items, day, DefaultSlots()[1])
			require.True(t, ok)
			assert.Equal(t, tc.want, got.id)
			assert.Equal(t, len(tc.items)-1, overlaps)
		})
	}
}

func TestBuildGridPlacesEachEntryOnce(t *testing.T) {
	loc := mustLoad(t, "Asia/Ho_Chi_Minh")
	m := NewMatcher(loc, nil)
	week := NewWeekBuilder(loc, LookupLocale("vi-VN")).Build(time.Date(2026, 10, 14, 0, 0, 0, 0, loc))
	slots := DefaultSlots()

	items := []booking{
		{id: "mon-1", at: time.Date(2026, 10, 12, 8, 0, 0, 0, loc), active: true},
		{id: "wed-3", at: time.Date(2026, 10, 14, 13, 0, 0, 0, loc), active: true},
		{id: "sun-4", at: time.Date(2026, 10, 18, 15, 0, 0, 0, loc), active: true},
		{id: "next-week", at: time.Date(2026, 10, 19, 8, 0, 0, 0, loc), active: true},
		{id: "off-slot", at: time.Date(2026, 10, 14, 12, 0, 0, 0, loc), active: true},
	}

	grid := BuildGrid(m, items, week, slots)
	require.Len(t, grid.Rows, len(slots))

	placed := map[string][2]int{}
	for r, row := range grid.Rows {
		for c, cell := range row.Cells {
			assert.Equal(t, week[c], cell.Day)
			if cell.Entry != nil {
				_, dup := placed[cell.Entry.id]
				assert.False(t, dup, "entry %s placed twice", cell.Entry.id)
				placed[cell.Entry.id] = [2]int{r, c}
			}
		}
	}

	assert.Equal(t, map[string][2]int{
		"mon-1": {0, 0},
		"wed-3": {2, 2},
		"sun-4": {3, 6},
	}, placed)

	// BuildGrid agrees with Match on every cell.
	for _, row := range grid.Rows {
		for _, cell := range row.Cells {
			got, _, ok := Match(m, items, cell.Day, row.Slot)
			assert.Equal(t, ok, cell.Entry != nil)
			if ok {
				assert.Equal(t, got.id, cell.Entry.id)
			}
		}
	}
}
