package transporthttp

import (
	"context"
	_ "embed"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/cors"

	"example.com/strategist/internal/agent"
	"example.com/strategist/internal/auth"
	"example.com/strategist/internal/config"
	"example.com/strategist/internal/domain"
	"example.com/strategist/internal/logger"
	spg "example.com/strategist/internal/storage/postgres"
)

//go:embed openapi.yaml
var openAPISpec []byte

// Recorder accepts records for asynchronous persistence.
type Recorder interface {
	Enqueue(rec domain.StrategyRecord) bool
}

// Store serves persisted records back to their owners.
type Store interface {
	Ready(ctx context.Context) error
	GetStrategy(ctx context.Context, userID, id string) (domain.StrategyRecord, error)
	ListStrategies(ctx context.Context, userID string, limit int) ([]domain.StrategyRecord, error)
	QueryStats(ctx context.Context, userID string, from, to time.Time) (spg.Stats, error)
}

// ServerDeps holds everything the handlers need. Recorder and Store are nil
// when persistence is disabled.
type ServerDeps struct {
	Cfg      config.Config
	Agent    agent.Strategist
	Verifier *auth.Verifier
	Recorder Recorder
	Store    Store
	Defaults domain.Defaults
	Log      *logger.Logger
	Now      func() time.Time
}

// --- Service metadata ---

func (d *ServerDeps) HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Strategist Agent API",
		"version": config.Version,
		"docs":    "/openapi.yaml",
	})
}

func (d *ServerDeps) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": config.ServiceName,
	})
}

func (d *ServerDeps) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	if d.Store != nil {
		if err := d.Store.Ready(r.Context()); err != nil {
			d.Log.Warn("readiness check failed", "error", err)
			WriteProblem(w, http.StatusServiceUnavailable, "not ready", "database not reachable", nil)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (d *ServerDeps) HandleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(openAPISpec)
}

// --- Strategy generation ---

func (d *ServerDeps) HandlePostStrategy(w http.ResponseWriter, r *http.Request) {
	defer DrainBody(r)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteProblem(w, http.StatusRequestEntityTooLarge, "payload too large",
				"request body exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes", nil)
			return
		}
		WriteProblem(w, http.StatusBadRequest, "invalid request", "could not read request body", nil)
		return
	}

	in, err := domain.DecodeStrategyInput(body)
	if err != nil {
		if ve, ok := domain.AsValidationError(err); ok {
			WriteProblem(w, http.StatusUnprocessableEntity, "validation failed", "one or more fields are invalid", ve.ByField())
			return
		}
		WriteProblem(w, http.StatusBadRequest, "invalid json", err.Error(), nil)
		return
	}

	userID := auth.UserIDFrom(r.Context())
	ctx := r.Context()
	if d.Cfg.Agent.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Cfg.Agent.Timeout)
		defer cancel()
	}

	out, err := d.Agent.GenerateStrategy(ctx, in)
	if err == nil {
		var rec domain.StrategyRecord
		rec, err = domain.NewStrategyRecord(userID, in, out, d.Defaults)
		if err == nil {
			d.record(rec)
			writeJSON(w, http.StatusOK, rec)
			return
		}
	}
	d.writeAgentError(w, r, err)
}

func (d *ServerDeps) writeAgentError(w http.ResponseWriter, r *http.Request, err error) {
	if ve, ok := domain.AsValidationError(err); ok {
		d.Log.Error("agent output failed validation", "error", err)
		WriteProblem(w, http.StatusBadGateway, "invalid agent output", "the agent returned a strategy that failed validation", ve.ByField())
		return
	}
	if agent.IsTimeout(err) {
		d.Log.Warn("agent timed out", "error", err)
		WriteProblem(w, http.StatusGatewayTimeout, "agent timeout", "the agent did not respond in time", nil)
		return
	}
	if r.Context().Err() != nil {
		d.Log.Debug("client went away during generation", "error", err)
		return
	}
	d.Log.Error("agent call failed", "error", err)
	WriteProblem(w, http.StatusBadGateway, "agent error", "the agent failed to generate a strategy", nil)
}

func (d *ServerDeps) record(rec domain.StrategyRecord) {
	if d.Recorder == nil {
		return
	}
	if !d.Recorder.Enqueue(rec) {
		d.Log.Warn("record queue full, strategy not persisted", "id", rec.ID, "user_id", rec.UserID)
		return
	}
	d.Log.Debug("strategy queued for persistence", "id", rec.ID, "user_id", rec.UserID)
}

// --- Persisted strategies ---

const (
	defaultListLimit = 20
	maxListLimit     = 100

	defaultStatsWindow = 30 * 24 * time.Hour
	maxStatsWindow     = 365 * 24 * time.Hour
)

func (d *ServerDeps) requireStore(w http.ResponseWriter) bool {
	if d.Store == nil {
		WriteProblem(w, http.StatusNotImplemented, "persistence disabled", "strategy storage is not configured", nil)
		return false
	}
	return true
}

func (d *ServerDeps) HandleListStrategies(w http.ResponseWriter, r *http.Request) {
	if !d.requireStore(w) {
		return
	}
	limit := defaultListLimit
	if s := strings.TrimSpace(r.URL.Query().Get("limit")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			WriteProblem(w, http.StatusBadRequest, "invalid parameters", "limit must be a positive integer", nil)
			return
		}
		limit = min(n, maxListLimit)
	}

	items, err := d.Store.ListStrategies(r.Context(), auth.UserIDFrom(r.Context()), limit)
	if err != nil {
		d.Log.Error("list strategies failed", "error", err)
		WriteProblem(w, http.StatusInternalServerError, "query error", "could not list strategies", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "limit": limit})
}

func (d *ServerDeps) HandleGetStrategy(w http.ResponseWriter, r *http.Request) {
	if !d.requireStore(w) {
		return
	}
	rec, err := d.Store.GetStrategy(r.Context(), auth.UserIDFrom(r.Context()), r.PathValue("id"))
	if errors.Is(err, spg.ErrNotFound) {
		WriteProblem(w, http.StatusNotFound, "not found", "strategy not found", nil)
		return
	}
	if err != nil {
		d.Log.Error("get strategy failed", "error", err)
		WriteProblem(w, http.StatusInternalServerError, "query error", "could not load strategy", nil)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (d *ServerDeps) HandleStrategyStats(w http.ResponseWriter, r *http.Request) {
	if !d.requireStore(w) {
		return
	}
	from, to, ok := parseWindow(w, r, d.Now())
	if !ok {
		return
	}
	stats, err := d.Store.QueryStats(r.Context(), auth.UserIDFrom(r.Context()), from, to)
	if err != nil {
		d.Log.Error("strategy stats failed", "error", err)
		WriteProblem(w, http.StatusInternalServerError, "query error", "could not compute stats", nil)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// parseWindow reads optional from/to epoch seconds. A missing bound is
// derived from the other one or from now; wide windows are capped.
func parseWindow(w http.ResponseWriter, r *http.Request, now time.Time) (time.Time, time.Time, bool) {
	q := r.URL.Query()
	parse := func(name string) (time.Time, bool, bool) {
		s := strings.TrimSpace(q.Get(name))
		if s == "" {
			return time.Time{}, false, true
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			WriteProblem(w, http.StatusBadRequest, "invalid parameters", name+" must be epoch seconds", nil)
			return time.Time{}, false, false
		}
		return time.Unix(v, 0).UTC(), true, true
	}

	from, hasFrom, ok := parse("from")
	if !ok {
		return from, from, false
	}
	to, hasTo, ok := parse("to")
	if !ok {
		return from, to, false
	}
	switch {
	case !hasFrom && !hasTo:
		to = now
		from = to.Add(-defaultStatsWindow)
	case !hasTo:
		to = now
	case !hasFrom:
		from = to.Add(-defaultStatsWindow)
	}
	if from.After(to) {
		WriteProblem(w, http.StatusBadRequest, "invalid parameters", "from must not be after to", nil)
		return from, to, false
	}
	if to.Sub(from) > maxStatsWindow {
		from = to.Add(-maxStatsWindow)
	}
	return from, to, true
}

// --- Router ---

func (d *ServerDeps) Router() http.Handler {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.Verifier == nil {
		d.Verifier = auth.NewVerifier("", d.Cfg.DefaultUserID)
	}
	requireUser := RequireUser(d.Verifier)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", d.HandleRoot)
	mux.HandleFunc("GET /health", d.HandleHealth)
	mux.HandleFunc("GET /readyz", d.HandleReadyz)
	mux.HandleFunc("GET /openapi.yaml", d.HandleOpenAPI)

	var postStrategy http.Handler = http.HandlerFunc(d.HandlePostStrategy)
	postStrategy = BodyLimit(d.Cfg.MaxBodyBytes)(postStrategy)
	postStrategy = RequireJSON(postStrategy)
	postStrategy = RateLimitPerMinute(d.Cfg.RateLimitPerMin, d.Now)(postStrategy)
	postStrategy = requireUser(postStrategy)
	mux.Handle("POST /strategy", postStrategy)

	mux.Handle("GET /strategies", requireUser(http.HandlerFunc(d.HandleListStrategies)))
	mux.Handle("GET /strategies/stats", requireUser(http.HandlerFunc(d.HandleStrategyStats)))
	mux.Handle("GET /strategies/{id}", requireUser(http.HandlerFunc(d.HandleGetStrategy)))

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{d.Cfg.FrontendURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return RequestLogger(d.Log)(c.Handler(mux))
}
