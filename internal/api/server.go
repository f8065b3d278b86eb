// Package api provides the HTTP API for driving plant sessions.
// Session endpoints are public; each session holds its own configuration
// and serializes its calculations.
// POST /api/v1/admin/* endpoints require a bearer token.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/talgya/tokamak-sim/internal/config"
	"github.com/talgya/tokamak-sim/internal/display"
	"github.com/talgya/tokamak-sim/internal/engine"
	"github.com/talgya/tokamak-sim/internal/geometry"
	"github.com/talgya/tokamak-sim/internal/impurity"
	"github.com/talgya/tokamak-sim/internal/persistence"
	"github.com/talgya/tokamak-sim/internal/plant"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 200
	maxBodyBytes    = 1 << 16
)

// Server serves plant sessions over HTTP.
type Server struct {
	DB       *persistence.DB // nil disables run history
	Port     int
	AdminKey string // Bearer token for admin endpoints. Empty = admin disabled.

	CORSOrigins  []string
	CalcRate     int
	CalcWindow   time.Duration
	SessionTTL   time.Duration
	SaveRuns     bool
	MaxIteration int
	Defaults     config.DefaultsConfig

	sessions *sessionStore
	started  time.Time
	calcs    atomic.Int64
	httpSrv  *http.Server
}

// NewServer builds a server from the loaded configuration.
func NewServer(cfg *config.Config, db *persistence.DB, adminKey string) *Server {
	return &Server{
		DB:           db,
		Port:         cfg.Server.Port,
		AdminKey:     adminKey,
		CORSOrigins:  cfg.Server.CORSOrigins,
		CalcRate:     cfg.Server.CalcRate,
		CalcWindow:   cfg.Server.CalcWindow,
		SessionTTL:   time.Hour,
		SaveRuns:     cfg.Storage.SaveRuns,
		MaxIteration: cfg.Engine.MaxIteration,
		Defaults:     cfg.Defaults,
	}
}

// Handler returns the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	if s.sessions == nil {
		s.sessions = newSessionStore(s.SessionTTL)
	}
	if s.started.IsZero() {
		s.started = time.Now()
	}
	calcLimiter := NewRateLimiter(s.CalcRate, s.CalcWindow)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/gauges", s.handleGauges)
	mux.HandleFunc("/api/v1/runs", s.handleRuns)
	mux.HandleFunc("/api/v1/sessions", s.handleSessions)
	mux.HandleFunc("/api/v1/session/", s.handleSessionRoutes(calcLimiter))

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/admin/purge", s.adminOnly(s.handlePurge))

	return corsMiddleware(s.CORSOrigins, mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "save_runs", s.SaveRuns && s.DB != nil)

	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops the listener and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	slog.Info("HTTP API stopping")
	return s.httpSrv.Shutdown(ctx)
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Localhost dev servers are always allowed.
func corsMiddleware(origins []string, next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	for _, origin := range origins {
		allowedOrigins[origin] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no PLANTSIM_ADMIN_KEY set)", http.StatusForbidden)
				return
			}

			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}

		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := map[string]any{
		"name":         "plantsim",
		"uptime_s":     int64(time.Since(s.started).Seconds()),
		"sessions":     s.sessions.len(),
		"calculations": s.calcs.Load(),
		"plant_types":  plant.Types(),
		"defaults":     s.Defaults,
		"persistence":  s.DB != nil,
	}
	if s.DB != nil {
		if n, err := s.DB.CountRuns(); err == nil {
			status["stored_runs"] = n
		}
	}
	writeJSON(w, status)
}

func (s *Server) handleGauges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]any{
		"gauges":  display.Gauges,
		"palette": display.PaletteSize,
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.DB == nil {
		http.Error(w, "run history disabled", http.StatusServiceUnavailable)
		return
	}

	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxRunLimit)
	}

	var (
		runs []persistence.Run
		err  error
	)
	if sid := r.URL.Query().Get("session"); sid != "" {
		runs, err = s.DB.SessionRuns(sid, limit)
	} else {
		runs, err = s.DB.RecentRuns(limit)
	}
	if err != nil {
		slog.Error("load runs failed", "error", err)
		http.Error(w, "failed to load runs", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []persistence.Run{}
	}
	writeJSON(w, runs)
}

// handleSessions creates a session (POST) or lists session ids (GET).
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, map[string]any{"sessions": s.sessions.ids()})
	case http.MethodPost:
		sess, err := s.newSession()
		if err != nil {
			slog.Error("create session failed", "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		sess.mu.Lock()
		view := s.sessionView(sess)
		sess.mu.Unlock()
		slog.Info("session created", "session", sess.ID, "plant", string(sess.sim.Config.Plant))
		writeJSONStatus(w, http.StatusCreated, view)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) newSession() (*session, error) {
	sim := engine.NewSimulation()
	sim.MaxIteration = s.MaxIteration
	if s.Defaults.PlantType != "" {
		if _, err := sim.ApplyConfiguration(plant.OptionPlantType, s.Defaults.PlantType); err != nil {
			return nil, err
		}
	}
	drive := engine.ProxiesFor(sim.Config, s.Defaults.Field, s.Defaults.Power, s.Defaults.Fuel)
	return s.sessions.add(sim, s.Defaults.Sliders, drive), nil
}

// handleSessionRoutes dispatches /api/v1/session/{id}[/action].
func (s *Server) handleSessionRoutes(calcLimiter *RateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		// api v1 session {id} [action]
		if len(parts) < 4 || parts[3] == "" {
			http.Error(w, "missing session id", http.StatusBadRequest)
			return
		}
		id := parts[3]
		sess, ok := s.sessions.get(id)
		if !ok {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		action := ""
		if len(parts) > 4 {
			action = parts[4]
		}

		switch action {
		case "":
			switch r.Method {
			case http.MethodGet:
				sess.mu.Lock()
				view := s.sessionView(sess)
				sess.mu.Unlock()
				writeJSON(w, view)
			case http.MethodDelete:
				s.sessions.remove(id)
				slog.Info("session closed", "session", id)
				w.WriteHeader(http.StatusNoContent)
			default:
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			}
			return
		case "config", "impurities", "advanced", "calculate":
		default:
			http.NotFound(w, r)
			return
		}

		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

		switch action {
		case "config":
			s.handleConfig(w, r, sess)
		case "impurities":
			s.handleImpurities(w, r, sess)
		case "advanced":
			s.handleAdvanced(w, r, sess)
		case "calculate":
			RateLimitMiddleware(calcLimiter, func(w http.ResponseWriter, r *http.Request) {
				s.handleCalculate(w, r, sess)
			})(w, r)
		}
	}
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request, sess *session) {
	var req struct {
		Option string `json:"option"`
		Value  string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecodeError(w, err)
		return
	}
	opt, err := plant.ParseOption(req.Option)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touch(time.Now())

	reset, err := sess.sim.ApplyConfiguration(opt, req.Value)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	if reset.SliderReset {
		sess.sliders = *reset.Sliders
	}
	if opt == plant.OptionPlantType && s.DB != nil {
		if err := s.DB.SaveMeta("last_plant_type", req.Value); err != nil {
			slog.Error("save meta failed", "error", err)
		}
	}

	writeJSON(w, map[string]any{
		"reset":         reset,
		"sliders":       sess.sliders,
		"configuration": configurationView(&sess.sim.Config),
	})
}

func (s *Server) handleImpurities(w http.ResponseWriter, r *http.Request, sess *session) {
	var req struct {
		impurity.Composition
		Percent bool `json:"percent,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecodeError(w, err)
		return
	}
	comp := req.Composition
	if req.Percent {
		comp = impurity.FromPercent(comp)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touch(time.Now())

	if err := sess.sim.SetImpurities(comp); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, map[string]any{
		"impurities": sess.sim.Impurities(),
		"mix":        sess.sim.Mix(),
	})
}

func (s *Server) handleAdvanced(w http.ResponseWriter, r *http.Request, sess *session) {
	var req plant.Limits
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecodeError(w, err)
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touch(time.Now())

	if err := sess.sim.SetAdvancedLimits(req); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, map[string]any{
		"limits":        sess.sim.Config.Limits(),
		"configuration": configurationView(&sess.sim.Config),
	})
}

// calculateRequest carries optional slider and input overrides. Omitted parts
// reuse the session's current values. Physical inputs take precedence over
// slider positions.
type calculateRequest struct {
	Sliders  *plant.Sliders        `json:"sliders,omitempty"`
	Inputs   *engine.DrivingInputs `json:"inputs,omitempty"`
	Physical *engine.Inputs        `json:"physical,omitempty"`
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request, sess *session) {
	var req calculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeDecodeError(w, err)
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touch(time.Now())

	sliders := sess.sliders
	if req.Sliders != nil {
		sliders = *req.Sliders
	}
	drive := sess.drive
	switch {
	case req.Physical != nil:
		drive = req.Physical.Proxies(sess.sim.Config)
	case req.Inputs != nil:
		drive = *req.Inputs
	}

	res, err := sess.sim.Calculate(r.Context(), sliders, drive)
	if err != nil {
		slog.Info("calculation rejected", "session", sess.ID, "error", err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	sess.sliders = sliders
	sess.drive = drive
	s.calcs.Add(1)

	resp := map[string]any{
		"result":    res,
		"dashboard": display.Build(res),
	}
	if s.SaveRuns && s.DB != nil {
		run, err := persistence.NewRun(sess.ID, sess.sim.Config.Plant, res.Inputs, res)
		if err == nil {
			err = s.DB.SaveRun(run)
		}
		if err != nil {
			slog.Error("save run failed", "session", sess.ID, "error", err)
		} else {
			resp["run_id"] = run.ID
		}
	}

	slog.Info("calculation",
		"session", sess.ID,
		"plant", string(sess.sim.Config.Plant),
		"pfus_mw", fmt.Sprintf("%.1f", res.Fusion),
		"p_e_mw", fmt.Sprintf("%.1f", res.ElecNet),
	)
	writeJSON(w, resp)
}

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	n := s.sessions.purge()
	slog.Info("sessions purged", "count", n)
	writeJSON(w, map[string]any{"purged": n})
}

// sessionView must be called with sess.mu held, or before sess is shared.
func (s *Server) sessionView(sess *session) map[string]any {
	view := map[string]any{
		"id":            sess.ID,
		"created_at":    sess.Created.UTC().Format(time.RFC3339),
		"configuration": configurationView(&sess.sim.Config),
		"impurities":    sess.sim.Impurities(),
		"sliders":       sess.sliders,
		"inputs":        sess.drive,
		"calculations":  sess.sim.Calls(),
	}
	if last, ok := sess.sim.Last(); ok {
		view["last"] = last
	}
	return view
}

func configurationView(c *plant.Configuration) map[string]any {
	sel := c.Selections()
	return map[string]any{
		"plantType":   sel[plant.OptionPlantType],
		"confinement": sel[plant.OptionConfinement],
		"betaLimit":   sel[plant.OptionBetaLimit],
		"elongation":  sel[plant.OptionElongation],
		"limits":      c.Limits(),
		"R_o":         c.R0,
		"a_o":         c.A0,
		"k_o":         c.K0,
		"Vol_o":       c.Vol0,
	}
}

// statusFor maps model errors to 400 and everything else to 500.
func statusFor(err error) int {
	var (
		cfgErr *plant.ConfigError
		domErr *impurity.DomainError
		geoErr *geometry.DegenerateError
		numErr *engine.NumericError
	)
	switch {
	case errors.As(err, &cfgErr), errors.As(err, &domErr), errors.As(err, &geoErr), errors.As(err, &numErr),
		errors.Is(err, plant.ErrInvalidLimit), errors.Is(err, geometry.ErrSliderRange):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeDecodeError reports a request body that could not be decoded.
func writeDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	http.Error(w, "invalid json", http.StatusBadRequest)
}

func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
