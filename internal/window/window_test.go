package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weekendbot/internal/model"
)

func at(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func ev(start, end time.Time) model.Event {
	return model.Event{Title: "x", StartTime: start, EndTime: end}
}

func TestWeekdayMondayZero(t *testing.T) {
	// 2024-11-18 is a Monday.
	for i := 0; i < 7; i++ {
		assert.Equal(t, i, Weekday(at(2024, 11, 18+i, 12)))
	}
}

func TestResolveEarlyThursdayEvent(t *testing.T) {
	events := []model.Event{
		ev(at(2024, 11, 22, 23), at(2024, 11, 23, 7)),
		ev(at(2024, 11, 22, 23), at(2024, 11, 23, 8)),
		ev(at(2024, 11, 21, 22), at(2024, 11, 22, 2)),
	}

	w := Resolve(events, nil, time.Now())

	assert.Equal(t, at(2024, 11, 21, 22), w.Start)
	assert.Equal(t, at(2024, 11, 24, 22), w.End)
	assert.Equal(t, 6, Weekday(w.End))
}

func TestResolveSaturdayNightEvent(t *testing.T) {
	events := []model.Event{ev(at(2024, 11, 23, 23), at(2024, 11, 24, 8))}

	w := Resolve(events, nil, time.Now())

	assert.Equal(t, at(2024, 11, 22, 23), w.Start)
	assert.Equal(t, at(2024, 11, 24, 23), w.End)
}

func TestResolveWidensPastSunday(t *testing.T) {
	events := []model.Event{ev(at(2024, 11, 22, 20), at(2024, 11, 25, 6))}

	w := Resolve(events, nil, time.Now())

	assert.Equal(t, at(2024, 11, 22, 20), w.Start)
	assert.Equal(t, at(2024, 11, 25, 6), w.End)
}

func TestResolveCoversAllEvents(t *testing.T) {
	base := at(2024, 12, 2, 9)
	for offset := 0; offset < 14*24; offset += 7 {
		start := base.Add(time.Duration(offset) * time.Hour)
		events := []model.Event{
			ev(start, start.Add(5*time.Hour)),
			ev(start.Add(30*time.Hour), start.Add(40*time.Hour)),
		}

		w := Resolve(events, nil, time.Now())

		assert.False(t, w.Start.After(start), "offset %d", offset)
		assert.False(t, w.End.Before(start.Add(40*time.Hour)), "offset %d", offset)
		friday, sunday := FridayAndSunday(start)
		assert.False(t, w.Start.After(friday))
		assert.False(t, w.End.Before(sunday))
	}
}

func TestResolveEmptyUsesNextWeekend(t *testing.T) {
	now := time.Date(2024, 11, 20, 10, 15, 0, 0, time.UTC) // Wednesday

	w := Resolve(nil, nil, now)

	assert.Equal(t, time.Date(2024, 11, 22, 10, 15, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2024, 11, 24, 10, 15, 0, 0, time.UTC), w.End)
}

func TestNextWeekendEveryWeekday(t *testing.T) {
	// 2024-11-18 (Mon) … 2024-11-24 (Sun).
	for d := 18; d <= 24; d++ {
		now := at(2024, 11, d, 9)

		w := NextWeekend(now)

		require.Equal(t, 4, Weekday(w.Start), "day %d", d)
		assert.Equal(t, 48*time.Hour, w.End.Sub(w.Start))
		assert.False(t, w.Start.Before(now))
		assert.Less(t, w.Start.Sub(now), 7*24*time.Hour)
	}

	// A Friday maps to itself.
	assert.Equal(t, at(2024, 11, 22, 9), NextWeekend(at(2024, 11, 22, 9)).Start)
}

func TestResolveOverrideWins(t *testing.T) {
	override := &Window{Start: at(2024, 12, 31, 18), End: at(2025, 1, 2, 6)}
	events := []model.Event{ev(at(2024, 11, 23, 23), at(2024, 11, 24, 8))}

	assert.Equal(t, *override, Resolve(events, override, time.Now()))
	assert.Equal(t, *override, Resolve(nil, override, time.Now()))
}
