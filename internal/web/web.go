package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"weekendbot/internal/config"
	"weekendbot/internal/datefmt"
	"weekendbot/internal/draft"
	appLog "weekendbot/internal/log"
	"weekendbot/internal/model"
	"weekendbot/internal/render"
	"weekendbot/internal/session"
	"weekendbot/internal/telegram"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// Server provides the HTTP authoring API over one session.
type Server struct {
	cfg      *config.Config
	sess     *session.Session
	gatherer prometheus.Gatherer
	mux      *http.ServeMux
}

// NewServer constructs a new Server. A nil gatherer serves the default
// Prometheus registry on /metrics.
func NewServer(cfg *config.Config, sess *session.Session, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		cfg:      cfg,
		sess:     sess,
		gatherer: gatherer,
		mux:      http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password disables auth.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health and /metrics with
// HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="weekendbot", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// StartServer serves s on cfg.Listen until ctx is cancelled, then shuts
// down gracefully.
func StartServer(ctx context.Context, cfg *config.Config, s *Server) error {
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	s.mux.HandleFunc("GET /api/events", s.handleListEvents)
	s.mux.HandleFunc("POST /api/events", s.handleAddEvent)
	s.mux.HandleFunc("DELETE /api/events", s.handleClearEvents)
	s.mux.HandleFunc("DELETE /api/events/{id}", s.handleRemoveEvent)
	s.mux.HandleFunc("POST /api/events/{id}/move", s.handleMoveEvent)

	s.mux.HandleFunc("GET /api/window", s.handleWindow)
	s.mux.HandleFunc("GET /preview", s.handlePreview)
	s.mux.HandleFunc("POST /api/send", s.handleSend)

	s.mux.HandleFunc("POST /api/draft", s.handleSaveDraft)
	s.mux.HandleFunc("GET /api/draft", s.handleLoadDraft)
	s.mux.HandleFunc("DELETE /api/draft", s.handleClearDraft)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// eventsResponse is the JSON response shape for the working list.
type eventsResponse struct {
	Events []model.Entry `json:"events"`
}

// windowResponse is the JSON response shape for /api/window.
type windowResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Label string `json:"label"`
}

type moveRequest struct {
	Delta int `json:"delta"`
}

func (s *Server) handleListEvents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, eventsResponse{Events: s.sess.Entries()})
}

// handleAddEvent validates a raw event record and appends it.
func (s *Server) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	var in model.EventInput
	if !decodeBody(w, r, &in) {
		return
	}

	ev, err := model.NewEvent(in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	entry, err := s.sess.Add(ev)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleClearEvents(w http.ResponseWriter, _ *http.Request) {
	if err := s.sess.Clear(); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.sess.Remove(id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMoveEvent moves an event one position up (-1) or down (1).
func (s *Server) handleMoveEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req moveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Delta != -1 && req.Delta != 1 {
		writeError(w, http.StatusBadRequest, "delta must be -1 or 1")
		return
	}
	if err := s.sess.Move(id, req.Delta); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: s.sess.Entries()})
}

func (s *Server) handleWindow(w http.ResponseWriter, _ *http.Request) {
	win := s.sess.Window()
	writeJSON(w, http.StatusOK, windowResponse{
		Start: model.FormatTime(win.Start),
		End:   model.FormatTime(win.End),
		Label: datefmt.FormatRange(win.Start, win.End),
	})
}

// handlePreview renders the current list as a standalone HTML page.
//
// GET /preview?raw=1 returns the document exactly as the template produced
// it, as written by the file sink.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	doc, err := s.sess.Document()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if r.URL.Query().Get("raw") != "1" {
		doc = render.PreviewPage(doc)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

// handleSend delivers the announcement and the poll. The dispatch keeps
// running if the client disconnects.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	err := s.sess.Send(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, sendResponse{Status: "sent"})
	case errors.Is(err, session.ErrSentDraftNotCleared):
		writeJSON(w, http.StatusOK, sendResponse{Status: "sent", DraftClearError: err.Error()})
	default:
		writeDomainError(w, err)
	}
}

// sendResponse reports a delivered announcement. DraftClearError is set when
// the stored draft survived the send.
type sendResponse struct {
	Status          string `json:"status"`
	DraftClearError string `json:"draft_clear_error,omitempty"`
}

func (s *Server) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	if err := s.sess.SaveDraft(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleLoadDraft replaces the working list with the stored draft.
func (s *Server) handleLoadDraft(w http.ResponseWriter, r *http.Request) {
	if _, err := s.sess.LoadDraft(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: s.sess.Entries()})
}

func (s *Server) handleClearDraft(w http.ResponseWriter, r *http.Request) {
	if err := s.sess.ClearDraft(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return uuid.Nil, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// errorResponse is the JSON error shape. Field is set for validation
// failures, Step for delivery failures.
type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	Step  string `json:"step,omitempty"`
}

// writeDomainError maps pipeline errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		verr *model.ValidationError
		terr *render.TemplateError
		derr *telegram.DeliveryError
		perr *draft.PersistenceError
	)

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Field: verr.Field})
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrEmpty):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, config.ErrTelegramNotConfigured), errors.Is(err, session.ErrNoDrafts):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &derr):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error(), Step: derr.Step})
	case errors.As(err, &terr), errors.As(err, &perr):
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		appLog.Error("unexpected request error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
