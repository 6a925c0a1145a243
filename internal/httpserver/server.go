// internal/httpserver/server.go
//
// HTTP server wiring for the vocabulary jumble game.
// Responsibilities:
//   - Router + middleware (request IDs, access logs, panic pages, timeouts, CORS).
//   - Page flow: "/", "/index", "/_check", "/success" with the game state in a signed cookie.
//   - JSON API: POST /game/new, POST /game/check, GET /game/{id}, /game/{id}/qr, /game/{id}/ws.
//   - Daily jumble under /daily, accounts under /auth, /stats/me, /games/mine.
//
// Notes:
//   - The vocabulary is loaded once by the caller and shared read-only by every handler.
//   - History and stats writes are best effort; a failed write is logged, play continues.

package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/vocab-jumble/assets"
	"github.com/robalobadob/vocab-jumble/internal/auth"
	"github.com/robalobadob/vocab-jumble/internal/config"
	"github.com/robalobadob/vocab-jumble/internal/game"
	"github.com/robalobadob/vocab-jumble/internal/jumble"
	"github.com/robalobadob/vocab-jumble/internal/session"
	"github.com/robalobadob/vocab-jumble/internal/store"
	"github.com/robalobadob/vocab-jumble/internal/vocab"
)

const (
	handlerTimeout = 10 * time.Second
	anonCookieName = "vocab_anon"
)

// Server bundles the router and everything the handlers share.
type Server struct {
	r        *chi.Mux
	cfg      *config.Config
	db       *sql.DB
	vocab    *vocab.Vocab
	store    store.Store
	history  *store.History
	auth     *auth.Service
	sessions *session.Codec
	pages    *template.Template
	policy   *bluemonday.Policy
	upgrader websocket.Upgrader
	watchers watchers
	daily    *dailyServer
}

// New constructs a Server, installs middleware, and registers routes.
// db must already be migrated.
func New(cfg *config.Config, v *vocab.Vocab, st store.Store, db *sql.DB) *Server {
	s := &Server{
		r:       chi.NewRouter(),
		cfg:     cfg,
		db:      db,
		vocab:   v,
		store:   st,
		history: store.NewHistory(db),
		auth:    auth.NewService(db, cfg.SecretKey, cfg.TokenTTL, uuid.NewString),
		sessions: &session.Codec{
			Secret: []byte(cfg.SecretKey),
			TTL:    cfg.SessionTTL,
			Secure: cfg.Production,
		},
		pages:  template.Must(template.ParseFS(assets.Templates(), "*.html")),
		policy: bluemonday.StrictPolicy(),
	}
	s.auth.Secure = cfg.Production
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(hlog.NewHandler(log.Logger))
	s.r.Use(hlog.AccessHandler(accessLog))
	s.r.Use(s.recoverer)
	s.r.Use(s.cors)

	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "words": s.vocab.Len()})
	})

	// Page flow: game state in the session cookie
	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(handlerTimeout))
		r.Get("/", s.handleIndex)
		r.Get("/index", s.handleIndex)
		r.Get("/_check", s.handleCheck)
		r.Get("/success", s.handleSuccess)
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(assets.Static()))))
	})

	// JSON API: optional auth, guests can play
	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(handlerTimeout))
		r.Use(jsonContentType)
		r.Use(s.auth.Optional())

		r.Get("/vocab", s.handleVocab)
		r.Post("/game/new", s.handleNewGame)
		r.Post("/game/check", s.handleGameCheck)
		r.Get("/game/{id}", s.handleGetGame)
		r.Get("/game/{id}/qr", s.handleQR)

		s.mountDaily(r)
		s.mountAuthRoutes(r)
	})

	// Websocket: hijacked connections must not sit behind the handler timeout.
	s.r.With(s.auth.Optional()).Get("/game/{id}/ws", s.handleWS)

	s.r.NotFound(s.notFound)
	s.r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
	})

	return s
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// HTTPServer returns an *http.Server for addr serving this router.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: handlerTimeout,
		IdleTimeout:       10 * time.Minute,
	}
}

// RunJanitor drops expired server-held games every tick until ctx ends.
func (s *Server) RunJanitor(ctx context.Context, every time.Duration) error {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.C:
			s.sweep(ctx, now)
		}
	}
}

// sweep drops expired games and forgets daily games from past dates.
func (s *Server) sweep(ctx context.Context, now time.Time) {
	if n := s.store.Sweep(ctx, now, s.cfg.GameTTL); n > 0 {
		log.Debug().Int("games", n).Msg("swept idle games")
	}
	if s.daily != nil {
		if n := s.daily.prune(now); n > 0 {
			log.Debug().Int("days", n).Msg("pruned daily index")
		}
	}
}

func (s *Server) generator() jumble.Generator {
	return jumble.Generator{Compact: s.cfg.CompactJumble}
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.cfg.ClientOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin != "" {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recoverer logs a panic and answers with the 500 page.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				hlog.FromRequest(r).Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panic")
				if wantsHTML(r) {
					s.render(w, r, http.StatusInternalServerError, "500.html", pageData{Title: "Server error"})
					return
				}
				writeError(w, http.StatusInternalServerError, "internal")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func accessLog(r *http.Request, status, size int, d time.Duration) {
	hlog.FromRequest(r).Debug().
		Str("req_id", chimw.GetReqID(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", d).
		Msg("request")
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || origin == s.cfg.ClientOrigin {
		return true
	}
	return strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://") == r.Host
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	hlog.FromRequest(r).Warn().Str("path", r.URL.Path).Msg("not found")
	if wantsHTML(r) {
		s.render(w, r, http.StatusNotFound, "404.html", pageData{Title: "Not found"})
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
}

// ------------------------------- helpers -----------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

// clean strips markup from text echoed back to the browser.
func (s *Server) clean(text string) string {
	return s.policy.Sanitize(text)
}

// owner resolves who is playing: the signed-in user or an anonymous cookie id.
func (s *Server) owner(w http.ResponseWriter, r *http.Request) store.Owner {
	if me := auth.FromContext(r.Context()); me != nil {
		return store.Owner{UserID: me.ID}
	}
	return store.Owner{AnonID: s.ensureAnonID(w, r)}
}

// ensureAnonID returns the anonymous player cookie, setting a new one if absent.
func (s *Server) ensureAnonID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(anonCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	sameSite := http.SameSiteLaxMode
	if s.cfg.Production {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     anonCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Production,
		SameSite: sameSite,
		Expires:  time.Now().Add(180 * 24 * time.Hour),
	})
	return id
}

// recordCheck persists the effect of one candidate on a server-held game.
func (s *Server) recordCheck(ctx context.Context, g *game.Game, res game.Result) {
	if !res.IsNewMatch {
		return
	}
	logger := log.Ctx(ctx)
	if err := s.history.Progress(ctx, g.Snapshot()); err != nil {
		logger.Warn().Err(err).Str("gameId", g.ID).Msg("update game history")
	}
	me := auth.FromContext(ctx)
	if me == nil {
		return
	}
	d := auth.Delta{Words: 1}
	if res.Success {
		d.Won = 1
	}
	if err := s.auth.Bump(ctx, me.ID, d); err != nil {
		logger.Warn().Err(err).Str("user", me.ID).Msg("bump stats")
	}
}

// errStatus maps store/game errors to HTTP statuses.
func errStatus(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, jumble.ErrInvalidTarget):
		return http.StatusBadRequest, "invalid_target"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
