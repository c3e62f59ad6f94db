package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() EventInput {
	return EventInput{
		City:         "Амстердам",
		Title:        "RAUM invites BASSIANI",
		TitleLink:    "https://www.instagram.com/club.raum/p/DArEX2oIko8/",
		Description:  "Лучший клуб СНГ прилетает в лучший клуб Амстердама.",
		StartTime:    "2024-11-22T23:00:00",
		EndTime:      "2024-11-23T07:00:00",
		VenueName:    "Клуб RAUM",
		VenueAddress: "Humberweg 3",
		VenueMapLink: "https://maps.app.goo.gl/RfpFD8iWguaMHSEe8",
		TicketLink:   "https://shop.paylogic.com/ea94b94aa341470e96e4be2916ee397f/",
		TicketInfo:   "Билетов мало.",
	}
}

func TestNewEvent(t *testing.T) {
	ev, err := NewEvent(validInput())
	require.NoError(t, err)

	assert.Equal(t, "Амстердам", ev.City)
	assert.Equal(t, time.Date(2024, 11, 22, 23, 0, 0, 0, time.UTC), ev.StartTime)
	assert.Equal(t, time.Date(2024, 11, 23, 7, 0, 0, 0, time.UTC), ev.EndTime)
	assert.Equal(t, "Билетов мало.", ev.TicketLabel())
}

func TestNewEventTrimsText(t *testing.T) {
	in := validInput()
	in.Title = "  CODA Collective  "
	in.Description = "\n"

	ev, err := NewEvent(in)
	require.NoError(t, err)
	assert.Equal(t, "CODA Collective", ev.Title)
	assert.Empty(t, ev.Description)
}

func TestNewEventValidation(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*EventInput)
		field string
	}{
		{"blank city", func(in *EventInput) { in.City = "   " }, "city"},
		{"missing title", func(in *EventInput) { in.Title = "" }, "title"},
		{"missing venue name", func(in *EventInput) { in.VenueName = "" }, "venueName"},
		{"missing venue address", func(in *EventInput) { in.VenueAddress = "\t" }, "venueAddress"},
		{"missing map link", func(in *EventInput) { in.VenueMapLink = "" }, "venueMapLink"},
		{"relative map link", func(in *EventInput) { in.VenueMapLink = "maps/abc" }, "venueMapLink"},
		{"ftp ticket link", func(in *EventInput) { in.TicketLink = "ftp://example.com/t" }, "ticketLink"},
		{"bad title link", func(in *EventInput) { in.TitleLink = "not a url" }, "titleLink"},
		{"bad start", func(in *EventInput) { in.StartTime = "22.11.2024 23:00" }, "startTime"},
		{"end equals start", func(in *EventInput) { in.EndTime = in.StartTime }, "endTime"},
		{"end before start", func(in *EventInput) { in.EndTime = "2024-11-22T22:00:00" }, "endTime"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.edit(&in)

			_, err := NewEvent(in)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestOptionalLinksMayBeEmpty(t *testing.T) {
	in := validInput()
	in.TitleLink = ""
	in.TicketLink = ""
	in.TicketInfo = ""

	ev, err := NewEvent(in)
	require.NoError(t, err)
	assert.Equal(t, DefaultTicketInfo, ev.TicketLabel())
}

func TestEventJSONOmitsUnsetOptionals(t *testing.T) {
	in := validInput()
	in.TitleLink = ""
	in.Description = ""
	in.TicketLink = ""
	in.TicketInfo = ""
	ev, err := NewEvent(in)
	require.NoError(t, err)

	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.NotContains(t, raw, "titleLink")
	assert.NotContains(t, raw, "description")
	assert.NotContains(t, raw, "ticketLink")
	assert.NotContains(t, raw, "ticketInfo")
	assert.Equal(t, "2024-11-22T23:00:00", raw["startTime"])

	var back Event
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, ev, back)
}

func TestEventUnmarshalRevalidates(t *testing.T) {
	var ev Event
	err := json.Unmarshal([]byte(`{"city":"Утрехт","title":"x","startTime":"2024-11-22T23:00:00","endTime":"2024-11-22T22:00:00","venueName":"BASIS","venueAddress":"Oudegracht 97","venueMapLink":"https://maps.app.goo.gl/z"}`), &ev)

	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestNaive(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	got := Naive(time.Date(2024, 11, 20, 18, 30, 15, 999, loc))
	assert.Equal(t, time.Date(2024, 11, 20, 18, 30, 15, 0, time.UTC), got)
}
