package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// TimeLayout is the persisted form of event timestamps. Timestamps carry
// no zone: they are local wall-clock times of the place the event happens.
const TimeLayout = "2006-01-02T15:04:05"

// DefaultTicketInfo is shown when an event has no ticket remark.
const DefaultTicketInfo = "Билет не нужен."

// Event is one happening advertised in the weekly announcement.
//
// StartTime and EndTime are naive wall-clock values carried in time.UTC;
// see Naive.
type Event struct {
	City         string
	Title        string
	TitleLink    string
	Description  string
	StartTime    time.Time
	EndTime      time.Time
	VenueName    string
	VenueAddress string
	VenueMapLink string
	TicketLink   string
	TicketInfo   string
}

// EventInput is the raw, unvalidated shape of an Event as it arrives from an
// authoring surface, a YAML file or a stored draft.
type EventInput struct {
	City         string `json:"city" yaml:"city" validate:"required"`
	Title        string `json:"title" yaml:"title" validate:"required"`
	TitleLink    string `json:"titleLink,omitempty" yaml:"titleLink,omitempty" validate:"omitempty,weburl"`
	Description  string `json:"description,omitempty" yaml:"description,omitempty"`
	StartTime    string `json:"startTime" yaml:"startTime" validate:"required"`
	EndTime      string `json:"endTime" yaml:"endTime" validate:"required"`
	VenueName    string `json:"venueName" yaml:"venueName" validate:"required"`
	VenueAddress string `json:"venueAddress" yaml:"venueAddress" validate:"required"`
	VenueMapLink string `json:"venueMapLink" yaml:"venueMapLink" validate:"required,weburl"`
	TicketLink   string `json:"ticketLink,omitempty" yaml:"ticketLink,omitempty" validate:"omitempty,weburl"`
	TicketInfo   string `json:"ticketInfo,omitempty" yaml:"ticketInfo,omitempty"`
}

// ValidationError reports the first invariant an Event violates.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event: %s: %s", e.Field, e.Reason)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("weburl", isWebURL); err != nil {
		panic(err)
	}
	return v
}

// isWebURL accepts absolute http/https URLs with a host.
func isWebURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// NewEvent trims, validates and converts in into an Event.
// Every failure is a *ValidationError.
func NewEvent(in EventInput) (Event, error) {
	in = in.trimmed()

	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return Event{}, &ValidationError{
				Field:  jsonName(verrs[0].Field()),
				Reason: reasonFor(verrs[0].Tag()),
			}
		}
		return Event{}, &ValidationError{Field: "event", Reason: err.Error()}
	}

	start, err := ParseTime(in.StartTime)
	if err != nil {
		return Event{}, &ValidationError{Field: "startTime", Reason: "expected " + TimeLayout}
	}
	end, err := ParseTime(in.EndTime)
	if err != nil {
		return Event{}, &ValidationError{Field: "endTime", Reason: "expected " + TimeLayout}
	}
	if !end.After(start) {
		return Event{}, &ValidationError{Field: "endTime", Reason: "must be after startTime"}
	}

	return Event{
		City:         in.City,
		Title:        in.Title,
		TitleLink:    in.TitleLink,
		Description:  in.Description,
		StartTime:    start,
		EndTime:      end,
		VenueName:    in.VenueName,
		VenueAddress: in.VenueAddress,
		VenueMapLink: in.VenueMapLink,
		TicketLink:   in.TicketLink,
		TicketInfo:   in.TicketInfo,
	}, nil
}

// Input converts e back into its raw record form.
func (e Event) Input() EventInput {
	return EventInput{
		City:         e.City,
		Title:        e.Title,
		TitleLink:    e.TitleLink,
		Description:  e.Description,
		StartTime:    FormatTime(e.StartTime),
		EndTime:      FormatTime(e.EndTime),
		VenueName:    e.VenueName,
		VenueAddress: e.VenueAddress,
		VenueMapLink: e.VenueMapLink,
		TicketLink:   e.TicketLink,
		TicketInfo:   e.TicketInfo,
	}
}

// TicketLabel returns TicketInfo or DefaultTicketInfo when unset.
func (e Event) TicketLabel() string {
	if e.TicketInfo == "" {
		return DefaultTicketInfo
	}
	return e.TicketInfo
}

// MarshalJSON writes the persisted record shape.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Input())
}

// UnmarshalJSON reads the persisted record shape and re-validates it.
func (e *Event) UnmarshalJSON(data []byte) error {
	var in EventInput
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	ev, err := NewEvent(in)
	if err != nil {
		return err
	}
	*e = ev
	return nil
}

// Naive drops the zone of t, keeping its wall clock as seen in t's location.
func Naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

// ParseTime parses a TimeLayout timestamp into the naive carrier.
func ParseTime(s string) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, s, time.UTC)
}

// FormatTime formats a naive timestamp with TimeLayout.
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

func (in EventInput) trimmed() EventInput {
	return EventInput{
		City:         strings.TrimSpace(in.City),
		Title:        strings.TrimSpace(in.Title),
		TitleLink:    strings.TrimSpace(in.TitleLink),
		Description:  strings.TrimSpace(in.Description),
		StartTime:    strings.TrimSpace(in.StartTime),
		EndTime:      strings.TrimSpace(in.EndTime),
		VenueName:    strings.TrimSpace(in.VenueName),
		VenueAddress: strings.TrimSpace(in.VenueAddress),
		VenueMapLink: strings.TrimSpace(in.VenueMapLink),
		TicketLink:   strings.TrimSpace(in.TicketLink),
		TicketInfo:   strings.TrimSpace(in.TicketInfo),
	}
}

func jsonName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

func reasonFor(tag string) string {
	switch tag {
	case "required":
		return "is required"
	case "weburl":
		return "must be an absolute http(s) URL"
	default:
		return "failed " + tag
	}
}
