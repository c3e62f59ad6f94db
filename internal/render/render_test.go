package render

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weekendbot/internal/model"
	"weekendbot/internal/window"
)

func sampleEvents(t *testing.T) []model.Event {
	t.Helper()
	inputs := []model.EventInput{
		{
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
		},
		{
			City:         "Роттердам",
			Title:        "CODA Collective, Free Pop-up rave",
			StartTime:    "2024-11-21T22:00:00",
			EndTime:      "2024-11-22T02:00:00",
			VenueName:    "Арт-центр WORM",
			VenueAddress: "Boomgaardsstraat 71",
			VenueMapLink: "https://maps.app.goo.gl/3S5DKJii2WiJoN2p6",
		},
	}
	events := make([]model.Event, 0, len(inputs))
	for _, in := range inputs {
		ev, err := model.NewEvent(in)
		require.NoError(t, err)
		events = append(events, ev)
	}
	return events
}

func TestRenderBuiltinTemplate(t *testing.T) {
	events := sampleEvents(t)
	w := window.Resolve(events, nil, time.Now())

	doc, err := New("").Render(events, w)
	require.NoError(t, err)

	assert.Contains(t, doc, metaCharsetTag)
	assert.Contains(t, doc, "21-24 ноября")
	assert.Contains(t, doc, "пятница, 23:00")
	assert.Contains(t, doc, "четверг, 22:00")
	assert.Contains(t, doc, "Билетов мало.")
	assert.Contains(t, doc, model.DefaultTicketInfo)

	first := strings.Index(doc, "RAUM invites BASSIANI")
	second := strings.Index(doc, "CODA Collective")
	require.True(t, first >= 0 && second >= 0)
	assert.Less(t, first, second, "events keep list order")
}

func TestRenderMessageStripsMetaCharset(t *testing.T) {
	events := sampleEvents(t)
	w := window.Resolve(events, nil, time.Now())

	msg, err := New("").RenderMessage(events, w)
	require.NoError(t, err)

	assert.NotContains(t, msg, metaCharsetTag)
	assert.Contains(t, msg, "21-24 ноября")
}

func TestStripMetaCharsetIsLiteral(t *testing.T) {
	in := `<meta charset="UTF-8"><b>x</b><meta charset="utf-8">`
	assert.Equal(t, `<b>x</b><meta charset="utf-8">`, StripMetaCharset(in))
}

func TestRenderCustomTemplateContract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.html")
	text := `{{ .dateRange }}|{{ range .events }}{{ .Title }}@{{ weekdayOf .StartTime }};{{ end }}`
	require.NoError(t, os.WriteFile(path, []byte(text), 0o600))

	events := sampleEvents(t)
	w := window.Window{
		Start: time.Date(2024, 11, 29, 18, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 12, 1, 18, 0, 0, 0, time.UTC),
	}

	doc, err := New(path).Render(events, w)
	require.NoError(t, err)
	assert.Equal(t, "29 ноября - 1 декабря|RAUM invites BASSIANI@пятница;CODA Collective, Free Pop-up rave@четверг;", doc)
}

func TestRenderEmptyEvents(t *testing.T) {
	w := window.NextWeekend(time.Date(2024, 11, 20, 10, 0, 0, 0, time.UTC))

	doc, err := New("").Render(nil, w)
	require.NoError(t, err)
	assert.Contains(t, doc, "22-24 ноября")
}

func TestRenderTemplateErrors(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.html")
	require.NoError(t, os.WriteFile(broken, []byte(`{{ range .events }}`), 0o600))
	failing := filepath.Join(dir, "failing.html")
	require.NoError(t, os.WriteFile(failing, []byte(`{{ index .events 10 }}`), 0o600))
	empty := filepath.Join(dir, "empty.html")
	require.NoError(t, os.WriteFile(empty, []byte("  \n"), 0o600))

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "nope.html")},
		{"parse error", broken},
		{"execution error", failing},
		{"empty file", empty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.path).Render(sampleEvents(t), window.Window{})

			var terr *TemplateError
			require.True(t, errors.As(err, &terr), "got %v", err)
			assert.Equal(t, tt.path, terr.Path)
		})
	}

	_, err := New(filepath.Join(dir, "nope.html")).Render(nil, window.Window{})
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestPreviewPage(t *testing.T) {
	doc := "<meta charset=\"UTF-8\">\n<b>Куда идём? 22-24 ноября</b>\n"

	page := PreviewPage(doc)

	assert.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"))
	assert.Equal(t, 1, strings.Count(page, `<meta charset="UTF-8">`))
	assert.Contains(t, page, `data-ready="true"><b>Куда идём? 22-24 ноября</b></div>`)
}
