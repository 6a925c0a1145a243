// internal/httpserver/routes_auth.go
//
// Accounts: /auth/signup, /auth/login, /auth/logout, /auth/me, plus the gated
// /stats/me and /games/mine. Signup and login attach any games played under
// the anonymous cookie to the account.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/vocab-jumble/internal/auth"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// mountAuthRoutes registers authentication and gated routes.
func (s *Server) mountAuthRoutes(r chi.Router) {
	r.Post("/auth/signup", s.handleSignup)
	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Require())
		r.Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, auth.FromContext(r.Context()))
		})
		r.Get("/stats/me", s.handleStats)
		r.Get("/games/mine", s.handleMine)
	})
}

// handleSignup creates a user, sets the auth cookie and claims anonymous history.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	u, err := s.auth.Signup(r.Context(), body.Username, body.Password)
	switch {
	case errors.Is(err, auth.ErrUsernameTaken):
		writeError(w, http.StatusConflict, "Username taken")
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tok, ok := s.signIn(w, r, u)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": u.ID, "username": u.Username, "createdAt": u.CreatedAt, "token": tok})
}

// handleLogin checks credentials, sets the auth cookie and claims anonymous history.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	u, err := s.auth.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	tok, ok := s.signIn(w, r, u)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": u.ID, "username": u.Username, "token": tok})
}

// signIn issues the token for u. It reports false after writing an error.
func (s *Server) signIn(w http.ResponseWriter, r *http.Request, u *auth.User) (string, bool) {
	tok, exp, err := s.auth.Sign(u)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("sign token")
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return "", false
	}
	s.auth.SetCookie(w, tok, exp)
	if err := s.history.Claim(r.Context(), s.ensureAnonID(w, r), u.ID); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("user", u.ID).Msg("claim anonymous games")
	}
	return tok, true
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.ClearCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	me := auth.FromContext(r.Context())
	u, err := s.auth.FindByID(r.Context(), me.ID)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":          u.ID,
		"gamesPlayed": u.GamesPlayed,
		"gamesWon":    u.GamesWon,
		"wordsFound":  u.WordsFound,
	})
}

func (s *Server) handleMine(w http.ResponseWriter, r *http.Request) {
	me := auth.FromContext(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := s.history.Mine(r.Context(), me.ID, limit)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("list games")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
