package window

import (
	"time"

	"github.com/teambition/rrule-go"

	appLog "weekendbot/internal/log"
	"weekendbot/internal/model"
)

// Window is the advertised (Start, End) period.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Weekday numbers days Monday = 0 … Sunday = 6.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// FridayAndSunday returns the Friday and Sunday of the Monday-based week
// containing day, keeping day's time of day.
func FridayAndSunday(day time.Time) (time.Time, time.Time) {
	monday := day.AddDate(0, 0, -Weekday(day))
	friday := monday.AddDate(0, 0, 4)
	sunday := friday.AddDate(0, 0, 2)
	return friday, sunday
}

// NextWeekend returns the upcoming (or current) Friday relative to now and
// the Sunday two days later, both at now's time of day.
func NextWeekend(now time.Time) Window {
	now = now.Truncate(time.Second)

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{rrule.FR},
		Dtstart:   now,
		Count:     1,
	})
	if err != nil {
		appLog.Error("failed to build weekend rule; using weekday arithmetic", err, "now", now)
		friday := now.AddDate(0, 0, (4-Weekday(now)+7)%7)
		return Window{Start: friday, End: friday.AddDate(0, 0, 2)}
	}
	friday := r.After(now, true)

	return Window{Start: friday, End: friday.AddDate(0, 0, 2)}
}

// Resolve computes the window for events.
//
//   - A non-nil override is returned as is.
//   - No events: NextWeekend(now).
//   - Otherwise the Friday–Sunday of the week holding the earliest start,
//     widened to cover the earliest start and the latest end.
func Resolve(events []model.Event, override *Window, now time.Time) Window {
	if override != nil {
		return *override
	}
	if len(events) == 0 {
		return NextWeekend(now)
	}

	earliestStart := events[0].StartTime
	latestEnd := events[0].EndTime
	for _, ev := range events[1:] {
		if ev.StartTime.Before(earliestStart) {
			earliestStart = ev.StartTime
		}
		if ev.EndTime.After(latestEnd) {
			latestEnd = ev.EndTime
		}
	}

	friday, sunday := FridayAndSunday(earliestStart)

	w := Window{Start: friday, End: sunday}
	if earliestStart.Before(w.Start) {
		w.Start = earliestStart
	}
	if latestEnd.After(w.End) {
		w.End = latestEnd
	}
	return w
}
