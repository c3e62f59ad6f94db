package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"os"
	"strings"
	"time"

	"weekendbot/internal/datefmt"
	appLog "weekendbot/internal/log"
	"weekendbot/internal/model"
	"weekendbot/internal/window"
)

// metaCharsetTag is rejected by Telegram inside message bodies.
const metaCharsetTag = `<meta charset="UTF-8">`

const defaultTemplateName = "templates/announcement.html"

//go:embed templates/announcement.html
var defaultTemplate embed.FS

// TemplateError reports a missing, unparsable or failing template.
type TemplateError struct {
	Path string
	Err  error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("render: template %q: %v", e.Path, e.Err)
}

func (e *TemplateError) Unwrap() error {
	return e.Err
}

// Renderer executes the announcement template. The template sees exactly
// three inputs: .events, .dateRange and the weekdayOf function.
type Renderer struct {
	path string
}

// New returns a Renderer reading the template at path on every render.
// An empty path selects the built-in template.
func New(path string) *Renderer {
	return &Renderer{path: path}
}

// Render produces the full document for events over w.
func (r *Renderer) Render(events []model.Event, w window.Window) (string, error) {
	tpl, err := r.load()
	if err != nil {
		return "", err
	}

	if events == nil {
		events = []model.Event{}
	}
	data := map[string]any{
		"events":    events,
		"dateRange": datefmt.FormatRange(w.Start, w.End),
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", &TemplateError{Path: r.name(), Err: err}
	}

	appLog.Debug("render completed", "template", r.name(), "event_count", len(events), "bytes", buf.Len())
	return buf.String(), nil
}

// RenderMessage is Render with the meta charset tag removed, ready for the
// messaging channel.
func (r *Renderer) RenderMessage(events []model.Event, w window.Window) (string, error) {
	doc, err := r.Render(events, w)
	if err != nil {
		return "", err
	}
	return StripMetaCharset(doc), nil
}

// StripMetaCharset removes every literal <meta charset="UTF-8"> tag.
func StripMetaCharset(doc string) string {
	return strings.ReplaceAll(doc, metaCharsetTag, "")
}

// previewHead lays out the message the way a chat client shows it: line
// breaks are kept and HTML tags carry the formatting.
const previewHead = `<!DOCTYPE html>
<html lang="ru">
<head>
<meta charset="UTF-8">
<title>Предпросмотр</title>
<style>
body { margin: 0; background: #e6ebee; font-family: -apple-system, "Segoe UI", Roboto, sans-serif; }
.message { margin: 12px; padding: 10px 14px; background: #fff; border-radius: 12px; white-space: pre-wrap; line-height: 1.35; font-size: 15px; }
a { color: #2a7ab0; text-decoration: none; }
</style>
</head>
<body>
<div class="message" data-ready="true">`

const previewTail = `</div>
</body>
</html>
`

// PreviewPage wraps a rendered document into a standalone HTML page for the
// browser preview and PNG capture.
func PreviewPage(doc string) string {
	return previewHead + strings.TrimSpace(StripMetaCharset(doc)) + previewTail
}

func (r *Renderer) load() (*template.Template, error) {
	var (
		text []byte
		err  error
	)
	if r.path == "" {
		text, err = defaultTemplate.ReadFile(defaultTemplateName)
	} else {
		text, err = os.ReadFile(r.path)
	}
	if err != nil {
		return nil, &TemplateError{Path: r.name(), Err: err}
	}
	if len(bytes.TrimSpace(text)) == 0 {
		return nil, &TemplateError{Path: r.name(), Err: errors.New("template is empty")}
	}

	tpl, err := template.New("announcement").
		Funcs(template.FuncMap{"weekdayOf": weekdayOf}).
		Parse(string(text))
	if err != nil {
		return nil, &TemplateError{Path: r.name(), Err: err}
	}
	return tpl, nil
}

func (r *Renderer) name() string {
	if r.path == "" {
		return "builtin:" + defaultTemplateName
	}
	return r.path
}

func weekdayOf(t time.Time) string {
	return datefmt.WeekdayName(t)
}
