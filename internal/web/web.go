package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"annualcal/internal/catalog"
	"annualcal/internal/config"
	"annualcal/internal/ics"
	appLog "annualcal/internal/log"
	"annualcal/internal/model"
	"annualcal/internal/resolve"
)

// Server serves the rendered calendar and a JSON view of the resolved
// occurrences.
type Server struct {
	cfg     *config.Config
	catalog *catalog.Catalog
	emitter *ics.Emitter
	now     func() time.Time
	mux     *http.ServeMux

	// Rendered document, refreshed by cron and on cache miss.
	docMu sync.RWMutex
	doc   *document
}

// document is one rendered calendar and the window it covers.
type document struct {
	body       []byte
	window     ics.Window
	renderedAt time.Time
}

// Option configures a Server.
type Option func(s *Server)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, cat *catalog.Catalog, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		catalog: cat,
		now:     time.Now,
		mux:     http.NewServeMux(),
	}
	for _, fn := range opts {
		fn(s)
	}
	s.emitter = ics.NewEmitter(cat, cfg.EmitterOptions()...)
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
	// Empty credentials mean auth is disabled.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="annualcal", charset="UTF-8"`)
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

// Run renders the calendar, starts the refresh schedule and serves HTTP on
// cfg.Listen until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Render(); err != nil {
		return err
	}

	sched := cron.New()
	if _, err := sched.AddFunc(s.cfg.RefreshCron, s.refresh); err != nil {
		return err
	}
	sched.Start()
	defer func() {
		<-sched.Stop().Done()
	}()

	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen, "refresh", s.cfg.RefreshCron)
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
	return nil
}

func (s *Server) refresh() {
	if err := s.Render(); err != nil {
		appLog.Error("scheduled render failed", err)
	}
}

// Render re-renders the cached calendar document. The body and the cached
// window come from a single clock reading.
func (s *Server) Render() error {
	now := s.now()
	var buf bytes.Buffer
	if err := s.emitter.WriteAt(&buf, now); err != nil {
		return err
	}
	doc := &document{
		body:       buf.Bytes(),
		window:     s.emitter.Window(now),
		renderedAt: now,
	}
	s.docMu.Lock()
	s.doc = doc
	s.docMu.Unlock()
	appLog.Info("calendar rendered", "bytes", len(doc.body), "from", doc.window.From, "to", doc.window.To)
	return nil
}

// current returns the cached document, rendering one if the cache is empty
// or was rendered for a different year window.
func (s *Server) current() (*document, error) {
	s.docMu.RLock()
	doc := s.doc
	s.docMu.RUnlock()
	if doc != nil && doc.window == s.emitter.Window(s.now()) {
		return doc, nil
	}
	if err := s.Render(); err != nil {
		return nil, err
	}
	s.docMu.RLock()
	defer s.docMu.RUnlock()
	return s.doc, nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/calendar.ics", s.handleCalendar)
	s.mux.HandleFunc("/api/events", s.handleEvents)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	doc, err := s.current()
	if err != nil {
		appLog.Error("render calendar failed", err)
		http.Error(w, "failed to render calendar", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.body)))
	w.Header().Set("Last-Modified", doc.renderedAt.UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(doc.body); err != nil {
		appLog.Error("write calendar response failed", err)
	}
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Year   int             `json:"year"`
	Events []occurrenceDTO `json:"events"`
}

// occurrenceDTO is a JSON-friendly view of an occurrence.
type occurrenceDTO struct {
	Summary string `json:"summary"`
	Date    string `json:"date"`
	UID     string `json:"uid"`
}

// handleEvents returns the resolved occurrences for a single year.
//
// GET /api/events?year=2024 (default: current UTC year)
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	year := s.now().UTC().Year()
	if v := r.URL.Query().Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "year must be an integer")
			return
		}
		year = n
	}

	occ, err := ics.ExpandYear(s.catalog, year)
	if err != nil {
		if errors.Is(err, resolve.ErrYearOutOfRange) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		appLog.Error("api events: expand failed", err, "year", year)
		writeError(w, http.StatusInternalServerError, "failed to resolve events")
		return
	}

	dtos := make([]occurrenceDTO, 0, len(occ))
	for _, o := range occ {
		dtos = append(dtos, occurrenceDTO{
			Summary: o.Summary,
			Date:    model.ISODate(o.Date),
			UID:     o.UID,
		})
	}
	writeJSON(w, http.StatusOK, eventsResponse{Year: year, Events: dtos})
}

func requireGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
