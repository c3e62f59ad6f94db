package datefmt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func countMonths(s string) int {
	n := 0
	for _, m := range months {
		n += strings.Count(s, m)
	}
	return n
}

func TestFormatRangeSameMonth(t *testing.T) {
	assert.Equal(t, "21-24 ноября", FormatRange(day(2024, 11, 21), day(2024, 11, 24)))
	assert.Equal(t, "1-3 января", FormatRange(day(2025, 1, 1), day(2025, 1, 3)))
}

func TestFormatRangeCrossMonth(t *testing.T) {
	assert.Equal(t, "29 ноября - 1 декабря", FormatRange(day(2024, 11, 29), day(2024, 12, 1)))
	// Year boundary still prints month and day only.
	assert.Equal(t, "30 декабря - 1 января", FormatRange(day(2024, 12, 30), day(2025, 1, 1)))
}

func TestFormatRangeMonthTokens(t *testing.T) {
	start := day(2024, 1, 1)
	for i := 0; i < 366; i += 3 {
		s := start.AddDate(0, 0, i)
		e := s.AddDate(0, 0, 2)

		label := FormatRange(s, e)
		if s.Month() == e.Month() {
			assert.Equal(t, 1, countMonths(label), label)
		} else {
			assert.Equal(t, 2, countMonths(label), label)
		}
		assert.False(t, strings.HasPrefix(label, "0"), label)
		assert.Equal(t, label, FormatRange(s, e))
	}
}

func TestWeekdayName(t *testing.T) {
	// 2024-11-18 is a Monday.
	expected := []string{"понедельник", "вторник", "среда", "четверг", "пятница", "суббота", "воскресенье"}
	for i, name := range expected {
		assert.Equal(t, name, WeekdayName(day(2024, 11, 18+i)))
	}

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		seen[WeekdayName(day(2023, 3, 1).AddDate(0, 0, i))] = true
	}
	assert.Len(t, seen, 7)
}
