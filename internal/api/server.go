// Package api provides the HTTP surface over the bargaining and simulation
// engines. GET endpoints are public (read-only observation); the defaults
// tunables take POSTs gated by a bearer token.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/shoal-accord/internal/accord"
	"github.com/talgya/shoal-accord/internal/bargain"
	"github.com/talgya/shoal-accord/internal/calibrate"
	"github.com/talgya/shoal-accord/internal/incident"
	"github.com/talgya/shoal-accord/internal/marine"
	"github.com/talgya/shoal-accord/internal/scenario"
	"github.com/talgya/shoal-accord/internal/session"
	"github.com/talgya/shoal-accord/internal/store"
	"github.com/talgya/shoal-accord/internal/utility"
)

// Server serves the negotiation table over HTTP.
type Server struct {
	Registry *session.Registry
	Scenario *scenario.Scenario
	Defaults *incident.Defaults
	DB       *store.DB // optional; nil disables persistence
	Port     int
	AdminKey string // bearer token for tunable writes; empty = writes disabled

	// Sessions are single-threaded by contract (the round counter is the
	// only mutable state), so offers are serialized here rather than
	// locking inside the core.
	offerMu sync.Mutex
}

// Handler builds the route table. Calibration sweeps many simulator runs
// per request, so the sweep endpoints carry a per-IP rate limit.
func (s *Server) Handler() http.Handler {
	simLimiter := NewRateLimiter(120, time.Minute)
	calLimiter := NewRateLimiter(20, time.Minute)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/session", s.handleStartSession)
	mux.HandleFunc("/api/v1/session/", s.handleSessionRoutes)
	mux.HandleFunc("/api/v1/simulate", RateLimitMiddleware(simLimiter, s.handleSimulate))
	mux.HandleFunc("/api/v1/calibrate", RateLimitMiddleware(calLimiter, s.handleCalibrate))
	mux.HandleFunc("/api/v1/defaults", s.adminOnly(s.handleDefaults))
	mux.HandleFunc("/api/v1/runs", s.handleRuns)
	mux.HandleFunc("/api/v1/run/", s.handleRunEvents)

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "persistence", s.DB != nil)

	handler := s.Handler()
	go func() {
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed console origins. Set
// ACCORD_CORS_ORIGINS to a comma-separated list; localhost dev servers are
// always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("ACCORD_CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
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

// adminOnly requires bearer token auth on POST requests; GETs pass through.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "tunable writes disabled (no ACCORD_ADMIN_KEY set)", http.StatusForbidden)
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
	alpha, baseP := s.Defaults.Get()
	writeJSON(w, map[string]any{
		"name":             s.Scenario.Name,
		"case_id":          s.Scenario.CaseID,
		"sessions":         s.Registry.Len(),
		"weather":          s.Scenario.Weather,
		"media_visibility": s.Scenario.MediaVisibility,
		"alpha":            alpha,
		"base_p":           baseP,
	})
}

// startSessionRequest mirrors the start_session contract.
type startSessionRequest struct {
	CaseID     string                        `json:"case_id"`
	Parties    []string                      `json:"parties"`
	Mediator   string                        `json:"mediator"`
	IssueSpace []string                      `json:"issue_space"`
	MaxRounds  int                           `json:"max_rounds"`
	Priors     map[string]map[string]float64 `json:"priors"`

	// UseScenarioParties attaches the scenario roster's valuation models
	// for any listed party defined there.
	UseScenarioParties bool `json:"use_scenario_parties"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	issueSpace := make([]accord.Issue, 0, len(req.IssueSpace))
	for _, is := range req.IssueSpace {
		issueSpace = append(issueSpace, accord.Issue(is))
	}
	if len(issueSpace) == 0 {
		for _, is := range s.Scenario.IssueSpace {
			issueSpace = append(issueSpace, accord.Issue(is))
		}
	}

	start := session.StartRequest{
		CaseID:     req.CaseID,
		Parties:    req.Parties,
		Mediator:   req.Mediator,
		IssueSpace: issueSpace,
		MaxRounds:  req.MaxRounds,
		Priors:     make(map[string]bargain.Weights, len(req.Priors)),
	}
	for party, weights := range req.Priors {
		wm := make(bargain.Weights, len(weights))
		for attr, weight := range weights {
			wm[utility.AttributeName(attr)] = weight
		}
		start.Priors[party] = wm
	}
	if req.UseScenarioParties {
		for _, ps := range s.Scenario.Parties {
			start.Models = append(start.Models, ps.Party())
		}
	}

	id, sess, err := s.Registry.Start(start)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if s.DB != nil {
		if err := s.DB.SaveSession(id, sess); err != nil {
			slog.Error("save session failed", "session", id, "error", err)
		}
	}

	slog.Info("session started", "session", id, "parties", len(sess.Parties))
	writeJSON(w, map[string]any{
		"session":     id,
		"parties":     sess.Parties,
		"mediator":    sess.Mediator,
		"issue_space": sess.IssueSpace,
		"round":       sess.Round,
	})
}

// handleSessionRoutes dispatches GET /api/v1/session/{id} and
// POST /api/v1/session/{id}/offer.
func (s *Server) handleSessionRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/session/")
	id, action, _ := strings.Cut(rest, "/")

	sess, err := s.Registry.Get(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		writeJSON(w, map[string]any{
			"session":     id,
			"parties":     sess.Parties,
			"mediator":    sess.Mediator,
			"issue_space": sess.IssueSpace,
			"round":       sess.Round,
		})
	case action == "offer" && r.Method == http.MethodPost:
		s.handleOffer(w, r, id, sess)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

type offerRequest struct {
	Proposer  string                    `json:"proposer"`
	Agreement map[string]map[string]any `json:"agreement"`
}

func (s *Server) handleOffer(w http.ResponseWriter, r *http.Request, id string, sess *bargain.Session) {
	var req offerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.offerMu.Lock()
	res, err := sess.EvaluateOffer(req.Proposer, decodeAgreement(req.Agreement))
	s.offerMu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if s.DB != nil {
		if err := s.DB.SaveEvaluation(id, res); err != nil {
			slog.Error("save evaluation failed", "session", id, "error", err)
		}
	}
	writeJSON(w, res)
}

type simulateRequest struct {
	Steps     int                       `json:"steps"`
	Seed      *int64                    `json:"seed"`
	Agreement map[string]map[string]any `json:"agreement"`
	Weather   string                    `json:"weather"`
	MediaVis  *int                      `json:"media_visibility"`
	Alpha     *float64                  `json:"alpha"`
	BaseP     *float64                  `json:"base_p"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Steps < 0 {
		http.Error(w, "steps must be non-negative", http.StatusBadRequest)
		return
	}

	seed := int64(1)
	if req.Seed != nil {
		seed = *req.Seed
	}

	env := s.Scenario.Environment(seed)
	if req.Weather != "" {
		env.Weather = marine.ParseWeather(req.Weather)
		env.Forecast = nil
	}
	if req.MediaVis != nil {
		env.MediaVisibility = *req.MediaVis
		env = env.Clamped()
	}

	cfg := s.Defaults.Config()
	cfg.Composition = s.Scenario.PopulationComposition()
	if req.Alpha != nil {
		cfg.Alpha = *req.Alpha
	}
	if req.BaseP != nil {
		cfg.BaseP = *req.BaseP
	}

	sim := incident.NewSimulator(cfg, decodeAgreement(req.Agreement), env, seed)
	log := sim.Run(req.Steps)
	summary := incident.Summarize(log)

	runID := uuid.NewString()
	if s.DB != nil {
		rec := store.RunRecord{
			ID:          runID,
			Steps:       req.Steps,
			Seed:        seed,
			Alpha:       cfg.Alpha,
			BaseP:       cfg.BaseP,
			Incidents:   summary.Incidents,
			MaxSeverity: summary.MaxSeverity,
		}
		if err := s.DB.SaveRun(rec, log); err != nil {
			slog.Error("save run failed", "run", runID, "error", err)
		}
	}

	events := make([]map[string]any, 0, len(log))
	for _, in := range log {
		events = append(events, map[string]any{
			"step":     in.Step,
			"type":     incident.TypeName(in.Type),
			"severity": in.Severity,
		})
	}
	writeJSON(w, map[string]any{
		"run":     runID,
		"summary": summary,
		"events":  events,
	})
}

type calibrateRequest struct {
	Steps      int                       `json:"steps"`
	Bucket     int                       `json:"bucket"`
	Historical map[int]int               `json:"historical"`
	Agreement  map[string]map[string]any `json:"agreement"`
	Seeds      []int64                   `json:"seeds"`
	Alphas     []float64                 `json:"alphas"`
	BasePs     []float64                 `json:"base_ps"`
	Apply      bool                      `json:"apply"` // install best params as defaults
}

func (s *Server) handleCalibrate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req calibrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	search := calibrate.Search{
		Steps:       req.Steps,
		Bucket:      req.Bucket,
		Agreement:   decodeAgreement(req.Agreement),
		Environment: s.Scenario.Environment(1),
		Historical:  req.Historical,
		Composition: s.Scenario.PopulationComposition(),
		Seeds:       req.Seeds,
		Alphas:      req.Alphas,
		BasePs:      req.BasePs,
	}

	best, grid, err := search.Run()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Apply {
		s.Defaults.Set(best.Alpha, best.BaseP)
		slog.Info("calibrated defaults applied", "alpha", best.Alpha, "base_p", best.BaseP, "score", best.Score)
	}
	if s.DB != nil {
		if err := s.DB.SaveCalibration(best, req.Steps, req.Bucket); err != nil {
			slog.Error("save calibration failed", "error", err)
		}
	}

	writeJSON(w, map[string]any{
		"best_params": best,
		"grid":        grid,
	})
}

func (s *Server) handleDefaults(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		alpha, baseP := s.Defaults.Get()
		writeJSON(w, map[string]any{"alpha": alpha, "base_p": baseP})
	case http.MethodPost:
		var req struct {
			Alpha float64 `json:"alpha"`
			BaseP float64 `json:"base_p"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		s.Defaults.Set(req.Alpha, req.BaseP)
		alpha, baseP := s.Defaults.Get()
		slog.Info("defaults updated", "alpha", alpha, "base_p", baseP)
		writeJSON(w, map[string]any{"alpha": alpha, "base_p": baseP})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "persistence disabled", http.StatusNotFound)
		return
	}
	recs, err := s.DB.RecentRuns(20)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"runs": recs})
}

func (s *Server) handleRunEvents(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "persistence disabled", http.StatusNotFound)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/run/")
	id, action, _ := strings.Cut(rest, "/")
	if action != "events" || id == "" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	events, err := s.DB.RunEvents(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"run": id, "events": events})
}

// decodeAgreement converts the JSON issue/term shape into the immutable
// agreement model. Garbled term values survive decoding; construction
// records them as warnings the evaluator surfaces downstream.
func decodeAgreement(raw map[string]map[string]any) *accord.Agreement {
	issues := make(map[accord.Issue]accord.Terms, len(raw))
	for name, terms := range raw {
		issues[accord.Issue(name)] = accord.Terms(terms)
	}
	return accord.New(issues)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("JSON encode error", "error", err)
	}
}
