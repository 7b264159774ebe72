package web

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"wristcal/internal/agenda"
	"wristcal/internal/config"
	"wristcal/internal/ics"
	appLog "wristcal/internal/log"
)

// Server provides the HTTP surface consumed by the device:
// per-account event queries and bulk cache warming.
type Server struct {
	cfg      *config.Config
	accounts config.Accounts
	svc      *agenda.Service
	cache    *ics.Cache
	router   *mux.Router
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, accounts config.Accounts, svc *agenda.Service, cache *ics.Cache) *Server {
	s := &Server{
		cfg:      cfg,
		accounts: accounts,
		svc:      svc,
		cache:    cache,
		router:   mux.NewRouter(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.router)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/v0/account/{key}", s.handleAccount).Methods(http.MethodGet)
	s.router.PathPrefix("/v0/precache").HandlerFunc(s.handlePrecache).Methods(http.MethodGet)
	// Everything else falls through to mux's default 404.
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
// Empty username or password counts as disabled.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
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
		// /health stays unauthenticated for probes.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="wristcal", charset="UTF-8"`)
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

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// eventDTO is one event in the device wire format. Times are epoch
// seconds; column is -1 for full-width (all-day / alarm) entries.
type eventDTO struct {
	Summary string `json:"summary"`
	Day     bool   `json:"day"`
	Start   int64  `json:"start"`
	End     int64  `json:"end"`
	Column  int    `json:"column"`
}

// accountResponse is the JSON envelope for /v0/account/{key}.
type accountResponse struct {
	Status  string     `json:"status"`
	Columns int        `json:"columns"`
	Events  []eventDTO `json:"events"`
}

// handleAccount answers "what should the display show right now" for
// one account.
//
// GET /v0/account/{key}?time=<RFC3339|"now">&force_cache_miss=<bool>
//
// The display window is anchored at the requested time: look-back for
// events already in progress, the timed horizon ahead for timed
// events, and the (independent) all-day horizon for the all-day lane.
func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := mux.Vars(r)["key"]

	acct, err := s.accounts.Lookup(key)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	loc := resolveLocationOrLocal(s.cfg.Timezone)

	q := r.URL.Query()
	now := time.Now().In(loc)
	if v := q.Get("time"); v != "" && v != "now" {
		parsed, perr := time.Parse(time.RFC3339, v)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid time parameter")
			return
		}
		now = parsed.In(loc)
	}
	forceMiss := q.Get("force_cache_miss") == "true"

	windowStart := now.Add(-time.Duration(s.cfg.LookBackMinutes) * time.Minute)
	windowEnd := now.Add(time.Duration(s.cfg.TimedHorizonHours) * time.Hour)
	dayWindowEnd := now.AddDate(0, 0, s.cfg.AllDayHorizonDays)

	sources := make([]ics.Source, 0, len(acct.ICalURLs))
	for _, u := range acct.ICalURLs {
		if u == "" {
			continue
		}
		sources = append(sources, ics.Source{ID: key, URL: u})
	}

	appLog.Info("account request",
		"key", key,
		"window_start", windowStart.Format(time.RFC3339),
		"window_end", windowEnd.Format(time.RFC3339),
		"day_window_end", dayWindowEnd.Format(time.RFC3339),
		"force_cache_miss", forceMiss,
		"source_count", len(sources),
	)

	result := s.svc.Events(ctx, agenda.Request{
		Sources:           sources,
		Identities:        acct.Identities,
		ExcludedSummaries: acct.ExcludedEvents,
		WindowStart:       windowStart,
		WindowEnd:         windowEnd,
		DayWindowEnd:      dayWindowEnd,
		ForceCacheMiss:    forceMiss,
	})

	dtos := make([]eventDTO, 0, len(result.Events))
	for _, ev := range result.Events {
		dtos = append(dtos, eventDTO{
			Summary: ev.Summary,
			Day:     ev.AllDay,
			Start:   ev.Start.Unix(),
			End:     ev.End.Unix(),
			Column:  ev.Column,
		})
	}

	writeJSON(w, http.StatusOK, accountResponse{
		Status:  "ok",
		Columns: result.Columns,
		Events:  dtos,
	})
}

// handlePrecache warms the feed cache for every configured account.
// Responds 200 with an empty body; individual feed failures are
// logged inside the cache, never surfaced.
func (s *Server) handlePrecache(w http.ResponseWriter, r *http.Request) {
	s.cache.Precache(r.Context(), s.precacheSources())
	w.WriteHeader(http.StatusOK)
}

func (s *Server) precacheSources() []ics.Source {
	urls := s.accounts.AllURLs()
	sources := make([]ics.Source, 0, len(urls))
	for _, u := range urls {
		sources = append(sources, ics.Source{ID: "precache", URL: u})
	}
	return sources
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
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
