// internal/httpserver/routes_game.go
//
// JSON API for server-held games:
//   - GET  /vocab        → list-vocabulary
//   - POST /game/new     → start-game, body {"target": n} (optional, defaults to success-at-count)
//   - POST /game/check   → check-candidate, body {"gameId": "...", "text": "..."}
//   - GET  /game/{id}    → current snapshot
//
// Games are kept in the game store; history rows and account stats follow along.

package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/vocab-jumble/internal/auth"
	"github.com/robalobadob/vocab-jumble/internal/game"
	"github.com/robalobadob/vocab-jumble/internal/store"
)

type vocabRes struct {
	Words []string `json:"words"`
	Count int      `json:"count"`
}

func (s *Server) handleVocab(w http.ResponseWriter, r *http.Request) {
	words := game.ListVocabulary(s.vocab)
	writeJSON(w, http.StatusOK, vocabRes{Words: words, Count: len(words)})
}

// -----------------------------------------------------------------------------
// /game/new

type newGameReq struct {
	Target *int `json:"target"`
}

type newGameRes struct {
	GameID string `json:"gameId"`
	Jumble string `json:"jumble"`
	Target int    `json:"target"`
}

// handleNewGame starts a game for the caller. An empty body uses the
// configured target.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	logger := hlog.FromRequest(r)

	var p newGameReq
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request")
		return
	}
	target := s.cfg.SuccessAtCount
	if p.Target != nil {
		target = *p.Target
	}

	g, err := game.New(s.vocab, target, s.generator())
	if err != nil {
		status, code := errStatus(err)
		writeError(w, status, code)
		return
	}
	o := s.owner(w, r)
	g.Owner = player(o)
	if err := s.store.Save(r.Context(), g); err != nil {
		logger.Error().Err(err).Msg("save game")
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	s.started(r, g, o)

	snap := g.Snapshot()
	logger.Debug().Str("gameId", g.ID).Int("target", snap.Target).Msg("game started")
	writeJSON(w, http.StatusOK, newGameRes{GameID: g.ID, Jumble: snap.Jumble, Target: snap.Target})
}

// started records a new game in history and, for signed-in players, their stats.
func (s *Server) started(r *http.Request, g *game.Game, o store.Owner) {
	logger := hlog.FromRequest(r)
	if err := s.history.Started(r.Context(), g.Snapshot(), g.CreatedAt, o); err != nil {
		logger.Warn().Err(err).Str("gameId", g.ID).Msg("record game start")
	}
	if o.UserID == "" {
		return
	}
	if err := s.auth.Bump(r.Context(), o.UserID, auth.Delta{Played: 1}); err != nil {
		logger.Warn().Err(err).Str("user", o.UserID).Msg("bump stats")
	}
}

// -----------------------------------------------------------------------------
// /game/check

type checkReq struct {
	GameID string `json:"gameId"`
	Text   string `json:"text"`
}

type checkRes struct {
	game.Result
	Matches []string `json:"matches"`
	Target  int      `json:"target"`
}

// handleGameCheck applies one candidate to a stored game.
func (s *Server) handleGameCheck(w http.ResponseWriter, r *http.Request) {
	var p checkReq
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.GameID == "" {
		writeError(w, http.StatusBadRequest, "bad_request")
		return
	}
	g, err := s.store.Get(r.Context(), p.GameID)
	if err != nil {
		status, code := errStatus(err)
		writeError(w, status, code)
		return
	}
	if g.Daily != "" {
		writeError(w, http.StatusConflict, "use_daily")
		return
	}

	res := s.check(r, g, p.Text)
	snap := g.Snapshot()
	writeJSON(w, http.StatusOK, checkRes{Result: res, Matches: snap.Matches, Target: snap.Target})
}

// check applies text to g, persists the effect and returns the sanitized result.
func (s *Server) check(r *http.Request, g *game.Game, text string) game.Result {
	res := g.Apply(s.vocab, text)
	s.recordCheck(r.Context(), g, res)
	if res.IsNewMatch {
		hlog.FromRequest(r).Debug().Str("gameId", g.ID).Str("match", res.Match).Msg("new match")
	}
	res.Match = s.clean(res.Match)
	return res
}

// -----------------------------------------------------------------------------
// /game/{id}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	g, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		status, code := errStatus(err)
		writeError(w, status, code)
		return
	}
	writeJSON(w, http.StatusOK, g.Snapshot())
}
