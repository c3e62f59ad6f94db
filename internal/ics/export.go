package ics

import (
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	appLog "weekendbot/internal/log"
	"weekendbot/internal/model"
)

// ProductID identifies exported calendars.
const ProductID = "-//weekendbot//announcement//RU"

// floatingLayout writes DATE-TIME values without TZID or Z suffix: event
// times are wall-clock times of the venue.
const floatingLayout = "20060102T150405"

// uidNamespace scopes the name-based UIDs of exported events.
var uidNamespace = uuid.MustParse("6f1c2a3e-5b7d-4e0a-9c1f-2d3b4a5c6e7f")

// Export writes events as a VCALENDAR with one VEVENT per event, in list
// order. name becomes X-WR-CALNAME; stamp is used for DTSTAMP.
func Export(w io.Writer, events []model.Event, name string, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)
	if name != "" {
		cal.SetXWRCalName(name)
	}

	for _, e := range events {
		ve := cal.AddEvent(UID(e))
		ve.SetDtStampTime(stamp.UTC())
		ve.SetProperty(ical.ComponentPropertyDtStart, e.StartTime.Format(floatingLayout))
		ve.SetProperty(ical.ComponentPropertyDtEnd, e.EndTime.Format(floatingLayout))
		ve.SetSummary(e.Title)
		ve.SetLocation(e.VenueName + ", " + e.VenueAddress + ", " + e.City)
		if e.TitleLink != "" {
			ve.SetURL(e.TitleLink)
		}
		ve.SetDescription(description(e))
	}

	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		appLog.Error("ics export failed", err, "event_count", len(events))
		return err
	}
	appLog.Info("ics export completed", "event_count", len(events))
	return nil
}

// UID derives a stable identifier from title, start and venue, so that
// re-exporting the same event updates it in subscribed calendars.
func UID(e model.Event) string {
	key := strings.Join([]string{e.Title, model.FormatTime(e.StartTime), e.VenueName}, "|")
	return uuid.NewSHA1(uidNamespace, []byte(key)).String() + "@weekendbot"
}

func description(e model.Event) string {
	var parts []string
	if e.Description != "" {
		parts = append(parts, e.Description)
	}
	ticket := e.TicketLabel()
	if e.TicketLink != "" {
		ticket += " " + e.TicketLink
	}
	parts = append(parts, ticket, e.VenueMapLink)
	return strings.Join(parts, "\n")
}
