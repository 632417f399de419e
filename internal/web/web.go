package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"weekcal/internal/config"
	appLog "weekcal/internal/log"
	"weekcal/internal/refresh"
	"weekcal/internal/week"
)

// Server exposes the latest rendered week over HTTP.
type Server struct {
	cfg    *config.Config
	runner *refresh.Runner
	mux    *http.ServeMux

	// now is injectable for tests.
	now func() time.Time
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, runner *refresh.Runner) *Server {
	s := &Server{
		cfg:    cfg,
		runner: runner,
		mux:    http.NewServeMux(),
		now:    time.Now,
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
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
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
			w.Header().Set("WWW-Authenticate", `Basic realm="weekcal", charset="UTF-8"`)
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

// StartServer serves s on cfg.Listen until ctx is canceled, then shuts
// down gracefully.
func StartServer(ctx context.Context, s *Server) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return err
	}
	return Serve(ctx, s, ln)
}

// Serve is StartServer on an already bound listener. ln is closed on return.
func Serve(ctx context.Context, s *Server, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+ln.Addr().String())
		errCh <- srv.Serve(ln)
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

// LocalURL is the URL a browser on this host uses to reach listen.
// Wildcard or missing hosts map to the loopback address.
func LocalURL(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://" + listen + "/"
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + "/"
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /{$}", s.handlePage)
	s.mux.HandleFunc("GET /api/week", s.handleWeek)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	s.mux.HandleFunc("GET /preview.png", s.handlePreview)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handlePage serves the latest rendered HTML page.
func (s *Server) handlePage(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.runner.Store().Latest()
	if !ok {
		http.Error(w, "calendar not rendered yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(snap.HTML)
}

// handlePreview serves the last captured PNG from disk.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	path := s.cfg.Capture.Output
	if _, err := os.Stat(path); err != nil {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}

// handleRefresh runs a refresh cycle now and returns the new week.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := s.runner.Run(r.Context(), s.now().In(s.runner.Location()))
	if err != nil {
		appLog.Error("api refresh failed", err)
		status := http.StatusBadGateway
		if errors.Is(err, refresh.ErrNoSources) {
			status = http.StatusConflict
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toWeekResponse(snap, s.cfg.WeekStart))
}

// handleWeek returns the latest week as JSON.
func (s *Server) handleWeek(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.runner.Store().Latest()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "calendar not rendered yet")
		return
	}
	writeJSON(w, http.StatusOK, toWeekResponse(snap, s.cfg.WeekStart))
}

// weekResponse is the JSON response shape for /api/week.
type weekResponse struct {
	RunID           string                 `json:"run_id"`
	GeneratedAt     time.Time              `json:"generated_at"`
	DisplayTimeZone string                 `json:"display_timezone"`
	WeekStart       string                 `json:"week_start"`
	RangeStart      time.Time              `json:"range_start"`
	RangeEnd        time.Time              `json:"range_end"`
	Days            []dayDTO               `json:"days"`
	Stats           week.Stats             `json:"stats"`
	Sources         []refresh.SourceStatus `json:"sources"`
}

type dayDTO struct {
	Date    string    `json:"date"`
	Weekday string    `json:"weekday"`
	Tiles   []tileDTO `json:"tiles"`
}

// tileDTO is a JSON-friendly view of a day tile.
type tileDTO struct {
	Label    string    `json:"label"`
	Summary  string    `json:"summary"`
	AllDay   bool      `json:"all_day"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	SourceID string    `json:"source_id"`
	UID      string    `json:"uid,omitempty"`
}

func toWeekResponse(snap refresh.Snapshot, weekStart string) weekResponse {
	win := snap.View.Window
	resp := weekResponse{
		RunID:           snap.RunID,
		GeneratedAt:     snap.GeneratedAt,
		DisplayTimeZone: win.Location.String(),
		WeekStart:       weekStart,
		RangeStart:      win.Start,
		RangeEnd:        win.End,
		Days:            make([]dayDTO, 0, len(win.Days)),
		Stats:           snap.View.Stats,
		Sources:         snap.Sources,
	}
	for _, col := range snap.View.Columns() {
		day := dayDTO{
			Date:    col.Date.String(),
			Weekday: col.Date.Weekday().String(),
			Tiles:   make([]tileDTO, 0, len(col.Tiles)),
		}
		for _, t := range col.Tiles {
			day.Tiles = append(day.Tiles, tileDTO{
				Label:    t.Label,
				Summary:  t.Summary,
				AllDay:   t.AllDay,
				Start:    t.Start,
				End:      t.End,
				SourceID: t.SourceID,
				UID:      t.UID,
			})
		}
		resp.Days = append(resp.Days, day)
	}
	return resp
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
