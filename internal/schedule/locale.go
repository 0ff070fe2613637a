package schedule

import (
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Locale carries the calendar conventions used to render a week.
type Locale struct {
	Tag          language.Tag
	WeekStart    time.Weekday
	WeekdayNames [7]string // indexed by time.Weekday
	LabelLayout  string
}

// supportedLocales is ordered; the first entry is the fallback.
var supportedLocales = []Locale{
	{
		Tag:          language.MustParse("vi-VN"),
		WeekStart:    time.Monday,
		WeekdayNames: [7]string{"Chủ nhật", "Thứ hai", "Thứ ba", "Thứ tư", "Thứ năm", "Thứ sáu", "Thứ bảy"},
		LabelLayout:  "02/01",
	},
	{
		Tag:          language.AmericanEnglish,
		WeekStart:    time.Sunday,
		WeekdayNames: [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
		LabelLayout:  "Jan 2",
	},
	{
		Tag:          language.BritishEnglish,
		WeekStart:    time.Monday,
		WeekdayNames: [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
		LabelLayout:  "2 Jan",
	},
	{
		Tag:          language.MustParse("id-ID"),
		WeekStart:    time.Monday,
		WeekdayNames: [7]string{"Minggu", "Senin", "Selasa", "Rabu", "Kamis", "Jumat", "Sabtu"},
		LabelLayout:  "02/01",
	},
	{
		Tag:          language.MustParse("fr-FR"),
		WeekStart:    time.Monday,
		WeekdayNames: [7]string{"dimanche", "lundi", "mardi", "mercredi", "jeudi", "vendredi", "samedi"},
		LabelLayout:  "02/01",
	},
	{
		Tag:          language.MustParse("de-DE"),
		WeekStart:    time.Monday,
		WeekdayNames: [7]string{"Sonntag", "Montag", "Dienstag", "Mittwoch", "Donnerstag", "Freitag", "Samstag"},
		LabelLayout:  "02.01.",
	},
}

var localeMatcher = func() language.Matcher {
	tags := make([]language.Tag, len(supportedLocales))
	for i, l := range supportedLocales {
		tags[i] = l.Tag
	}
	return language.NewMatcher(tags)
}()

// LookupLocale resolves a BCP 47 tag (or Accept-Language value) to the
// closest supported locale.
func LookupLocale(raw string) Locale {
	tags, _, err := language.ParseAcceptLanguage(strings.TrimSpace(raw))
	if err != nil || len(tags) == 0 {
		return supportedLocales[0]
	}
	_, idx, confidence := localeMatcher.Match(tags...)
	if confidence == language.No {
		return supportedLocales[0]
	}
	return supportedLocales[idx]
}

// ParseWeekday accepts english weekday names ("monday", "Mon").
func ParseWeekday(raw string) (time.Weekday, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if len(raw) < 3 {
		return 0, false
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if strings.HasPrefix(name, raw) {
			return d, true
		}
	}
	return 0, false
}
