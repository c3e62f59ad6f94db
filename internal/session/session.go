package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"weekendbot/internal/config"
	appLog "weekendbot/internal/log"
	"weekendbot/internal/metrics"
	"weekendbot/internal/model"
	"weekendbot/internal/render"
	"weekendbot/internal/window"
)

var (
	// ErrBusy is returned for mutations attempted while a send is in flight.
	ErrBusy = errors.New("session: send in progress")
	// ErrEmpty is returned by Send when the working list has no events.
	ErrEmpty = errors.New("session: no events to send")
	// ErrNoDrafts is returned by draft operations when no store is configured.
	ErrNoDrafts = errors.New("session: draft store is not configured")
	// ErrSentDraftNotCleared is returned by Send when the announcement was
	// delivered and the list emptied but the stored draft could not be
	// cleared. The draft store error is wrapped alongside it.
	ErrSentDraftNotCleared = errors.New("session: sent, but the stored draft was not cleared")
)

// Draft operation labels.
const (
	opSave  = "save"
	opLoad  = "load"
	opClear = "clear"
)

// Dispatcher delivers a rendered document; *telegram.Dispatcher implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, events []model.Event, document string) error
}

// DraftStore persists the working list; every draft.Store implements it.
type DraftStore interface {
	Save(ctx context.Context, events []model.Event) error
	Load(ctx context.Context) ([]model.Event, error)
	Clear(ctx context.Context) error
}

// Options configures a Session. Zero values select defaults: the built-in
// template, no channel, no draft store.
type Options struct {
	Renderer *render.Renderer

	// Dispatcher is nil when no channel is configured; Send then fails with
	// config.ErrTelegramNotConfigured.
	Dispatcher Dispatcher

	// Drafts is nil when persistence is disabled.
	Drafts DraftStore

	// Override replaces the computed window when non-nil.
	Override *window.Window

	// Location is the zone whose wall clock is "now". Defaults to time.Local.
	Location *time.Location

	// Now defaults to time.Now.
	Now func() time.Time

	Metrics *metrics.Metrics
}

// Session is safe for concurrent use.
type Session struct {
	renderer   *render.Renderer
	dispatcher Dispatcher
	drafts     DraftStore
	override   *window.Window
	loc        *time.Location
	now        func() time.Time
	metrics    *metrics.Metrics

	mu      sync.Mutex
	list    *model.EventList
	sending bool
	dirty   bool
}

// New returns a Session with an empty working list.
func New(opts Options) *Session {
	s := &Session{
		renderer:   opts.Renderer,
		dispatcher: opts.Dispatcher,
		drafts:     opts.Drafts,
		override:   opts.Override,
		loc:        opts.Location,
		now:        opts.Now,
		metrics:    opts.Metrics,
		list:       model.NewEventList(),
	}
	if s.renderer == nil {
		s.renderer = render.New("")
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop()
	}
	return s
}

// Add appends ev to the working list.
func (s *Session) Add(ev model.Event) (model.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sending {
		return model.Entry{}, ErrBusy
	}
	id := s.list.Add(ev)
	s.changedLocked()
	appLog.Debug("event added", "id", id, "title", ev.Title)
	return model.Entry{ID: id, Event: ev}, nil
}

// Remove deletes the event with handle id.
func (s *Session) Remove(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sending {
		return ErrBusy
	}
	if err := s.list.Remove(id); err != nil {
		return err
	}
	s.changedLocked()
	return nil
}

// Move shifts the event with handle id by delta positions.
func (s *Session) Move(id uuid.UUID, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sending {
		return ErrBusy
	}
	if err := s.list.Move(id, delta); err != nil {
		return err
	}
	s.changedLocked()
	return nil
}

// Clear empties the working list. The stored draft is left alone.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sending {
		return ErrBusy
	}
	s.list.Clear()
	s.changedLocked()
	return nil
}

// Entries returns the working list in display order.
func (s *Session) Entries() []model.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list.Entries()
}

// Events returns the events of the working list in display order.
func (s *Session) Events() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list.Events()
}

// Window resolves the advertised window for the current list.
func (s *Session) Window() window.Window {
	return window.Resolve(s.Events(), s.override, s.nowNaive())
}

// Document renders the full document, meta charset tag included.
func (s *Session) Document() (string, error) {
	events := s.Events()
	doc, err := s.renderer.Render(events, window.Resolve(events, s.override, s.nowNaive()))
	s.metrics.Renders.WithLabelValues(metrics.Status(err)).Inc()
	return doc, err
}

// Send renders the channel message and dispatches it. On success the
// working list is emptied and the stored draft cleared. On failure the list
// is kept as is. A draft clear failure after delivery is reported as
// ErrSentDraftNotCleared.
//
// Once started, neither the dispatch nor the cleanup is cancelled by ctx.
func (s *Session) Send(ctx context.Context) error {
	if s.dispatcher == nil {
		return config.ErrTelegramNotConfigured
	}

	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		return ErrBusy
	}
	if s.list.Len() == 0 {
		s.mu.Unlock()
		return ErrEmpty
	}
	s.sending = true
	events := s.list.Events()
	s.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	err := s.send(ctx, events)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sending = false
	if err != nil {
		return err
	}

	s.list.Clear()
	s.dirty = false
	s.metrics.WorkingListSize.Set(0)
	appLog.Info("announcement delivered", "event_count", len(events))

	if s.drafts == nil {
		return nil
	}
	if err := s.clearDraftLocked(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrSentDraftNotCleared, err)
	}
	return nil
}

func (s *Session) send(ctx context.Context, events []model.Event) error {
	w := window.Resolve(events, s.override, s.nowNaive())
	doc, err := s.renderer.RenderMessage(events, w)
	s.metrics.Renders.WithLabelValues(metrics.Status(err)).Inc()
	if err != nil {
		appLog.Error("render failed", err, "event_count", len(events))
		return err
	}
	return s.dispatcher.Dispatch(ctx, events, doc)
}

// SaveDraft overwrites the stored draft with the working list.
func (s *Session) SaveDraft(ctx context.Context) error {
	if s.drafts == nil {
		return ErrNoDrafts
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sending {
		return ErrBusy
	}
	return s.saveDraftLocked(ctx)
}

// LoadDraft replaces the working list with the stored draft and returns the
// number of events loaded. On failure the working list is unchanged.
func (s *Session) LoadDraft(ctx context.Context) (int, error) {
	if s.drafts == nil {
		return 0, ErrNoDrafts
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sending {
		return 0, ErrBusy
	}
	events, err := s.drafts.Load(ctx)
	s.metrics.DraftOperations.WithLabelValues(opLoad, metrics.Status(err)).Inc()
	if err != nil {
		appLog.Error("draft load failed", err)
		return 0, err
	}
	s.list.Replace(events)
	s.dirty = false
	s.metrics.WorkingListSize.Set(float64(s.list.Len()))
	appLog.Debug("working list replaced from draft", "event_count", len(events))
	return len(events), nil
}

// ClearDraft removes the stored draft. The working list is left alone.
func (s *Session) ClearDraft(ctx context.Context) error {
	if s.drafts == nil {
		return ErrNoDrafts
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sending {
		return ErrBusy
	}
	return s.clearDraftLocked(ctx)
}

// Autosave saves the working list if it changed since the last save, load
// or send. It reports whether a save happened and never waits for a send.
func (s *Session) Autosave(ctx context.Context) (bool, error) {
	if s.drafts == nil {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sending || !s.dirty {
		return false, nil
	}
	if err := s.saveDraftLocked(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// StartAutosave runs Autosave on the cron schedule spec (standard five-field
// syntax or descriptors such as "@every 5m"). The returned stop function
// waits for a running save to finish.
func (s *Session) StartAutosave(spec string) (func(), error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		saved, err := s.Autosave(context.Background())
		if err != nil {
			appLog.Error("autosave failed", err)
			return
		}
		if saved {
			appLog.Debug("autosave completed")
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	appLog.Info("autosave scheduled", "spec", spec)

	return func() {
		<-c.Stop().Done()
	}, nil
}

func (s *Session) saveDraftLocked(ctx context.Context) error {
	events := s.list.Events()
	err := s.drafts.Save(ctx, events)
	s.metrics.DraftOperations.WithLabelValues(opSave, metrics.Status(err)).Inc()
	if err != nil {
		appLog.Error("draft save failed", err)
		return err
	}
	s.dirty = false
	appLog.Debug("working list saved", "event_count", len(events))
	return nil
}

func (s *Session) clearDraftLocked(ctx context.Context) error {
	err := s.drafts.Clear(ctx)
	s.metrics.DraftOperations.WithLabelValues(opClear, metrics.Status(err)).Inc()
	if err != nil {
		appLog.Error("draft clear failed", err)
		return err
	}
	appLog.Debug("stored draft cleared")
	return nil
}

func (s *Session) changedLocked() {
	s.dirty = true
	s.metrics.WorkingListSize.Set(float64(s.list.Len()))
}

func (s *Session) nowNaive() time.Time {
	return model.Naive(s.now().In(s.loc))
}
