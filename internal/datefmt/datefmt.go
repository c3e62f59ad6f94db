package datefmt

import (
	"strconv"
	"time"
)

var weekdays = [7]string{
	"понедельник",
	"вторник",
	"среда",
	"четверг",
	"пятница",
	"суббота",
	"воскресенье",
}

// Genitive month names, as used after a day number.
var months = [12]string{
	"января",
	"февраля",
	"марта",
	"апреля",
	"мая",
	"июня",
	"июля",
	"августа",
	"сентября",
	"октября",
	"ноября",
	"декабря",
}

// WeekdayName returns the Russian name of t's weekday.
func WeekdayName(t time.Time) string {
	return weekdays[(int(t.Weekday())+6)%7]
}

// MonthName returns the genitive Russian name of t's month.
func MonthName(t time.Time) string {
	return months[t.Month()-1]
}

// FormatRange renders a short label such as "1-3 января" or
// "30 декабря - 1 января". The year is never shown.
func FormatRange(start, end time.Time) string {
	d1 := strconv.Itoa(start.Day())
	d2 := strconv.Itoa(end.Day())

	if start.Month() == end.Month() {
		return d1 + "-" + d2 + " " + MonthName(start)
	}
	return d1 + " " + MonthName(start) + " - " + d2 + " " + MonthName(end)
}
