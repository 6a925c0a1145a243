// internal/httpserver/routes_daily.go
//
// HTTP routes for the daily jumble.
// Exposes three endpoints under /daily:
//   - POST /daily/new         → start today's jumble (creates or reuses the player's game)
//   - POST /daily/check       → submit a candidate word for today's game
//   - GET  /daily/leaderboard → fastest finishers for today (or ?date=YYYY-MM-DD)
//
// Everyone gets the same jumble on the same UTC date (seeded from date + salt).
// Each player can finish once per day, enforced by the daily_results table.
// Games in progress live in the shared game store, but only these routes play
// them; /game/check and the websocket refuse daily games with 409 use_daily.

package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/vocab-jumble/internal/daily"
	"github.com/robalobadob/vocab-jumble/internal/game"
	"github.com/robalobadob/vocab-jumble/internal/store"
)

// dailyServer wraps dependencies for /daily endpoints.
type dailyServer struct {
	srv     *Server
	results *daily.Store
	now     func() time.Time

	mu    sync.Mutex                   // guards games
	games map[string]map[string]string // date → player → game id
}

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	dd := &dailyServer{
		srv:     s,
		results: daily.NewStore(s.db),
		now:     time.Now,
		games:   make(map[string]map[string]string),
	}
	s.daily = dd
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", dd.handleNew)
		r.Post("/check", dd.handleCheck)
		r.Get("/leaderboard", dd.handleLeaderboard)
	})
}

// player returns the signed-in user id, or the anonymous cookie id.
func player(o store.Owner) string {
	if o.UserID != "" {
		return o.UserID
	}
	return o.AnonID
}

// current returns the player's game for date if it is still held.
func (d *dailyServer) current(r *http.Request, date, uid string) *game.Game {
	d.mu.Lock()
	id, ok := d.games[date][uid]
	d.mu.Unlock()
	if !ok {
		return nil
	}
	g, err := d.srv.store.Get(r.Context(), id)
	if err != nil {
		return nil
	}
	return g
}

// prune forgets the games of every date before now's and reports how many
// dates were dropped.
func (d *dailyServer) prune(now time.Time) int {
	today := daily.DateKey(now)
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for date := range d.games {
		if date < today {
			delete(d.games, date)
			n++
		}
	}
	return n
}

// -----------------------------------------------------------------------------
// /daily/new

type dailyNewRes struct {
	GameID string `json:"gameId"`
	Date   string `json:"date"`
	Played bool   `json:"played"`
	Jumble string `json:"jumble,omitempty"`
	Target int    `json:"target,omitempty"`
}

// handleNew creates or reuses the player's daily game.
// A player with a stored result for today gets Played=true and no game.
func (d *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	logger := hlog.FromRequest(r)
	o := d.srv.owner(w, r)
	uid := player(o)
	now := d.now()
	date := daily.DateKey(now)

	played, err := d.results.AlreadyPlayed(r.Context(), uid, date)
	if err != nil {
		logger.Error().Err(err).Msg("daily lookup")
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	if played {
		writeJSON(w, http.StatusOK, dailyNewRes{Date: date, Played: true})
		return
	}

	if g := d.current(r, date, uid); g != nil {
		snap := g.Snapshot()
		writeJSON(w, http.StatusOK, dailyNewRes{GameID: g.ID, Date: date, Jumble: snap.Jumble, Target: snap.Target})
		return
	}

	g, err := game.New(d.srv.vocab, d.srv.cfg.SuccessAtCount, daily.Generator(now, d.srv.cfg.DailySalt, d.srv.cfg.CompactJumble))
	if err != nil {
		status, code := errStatus(err)
		writeError(w, status, code)
		return
	}
	g.Daily = date
	g.Owner = uid
	if err := d.srv.store.Save(r.Context(), g); err != nil {
		logger.Error().Err(err).Msg("save daily game")
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}

	d.mu.Lock()
	if d.games[date] == nil {
		d.games[date] = make(map[string]string)
	}
	d.games[date][uid] = g.ID
	d.mu.Unlock()
	d.srv.started(r, g, o)

	snap := g.Snapshot()
	logger.Debug().Str("gameId", g.ID).Str("date", date).Msg("daily started")
	writeJSON(w, http.StatusOK, dailyNewRes{GameID: g.ID, Date: date, Jumble: snap.Jumble, Target: snap.Target})
}

// -----------------------------------------------------------------------------
// /daily/check

type dailyCheckReq struct {
	GameID string `json:"gameId"`
	Text   string `json:"text"`
}

type dailyCheckRes struct {
	game.Result
	State    string   `json:"state"` // in_progress | won | locked
	Matches  []string `json:"matches"`
	Attempts int      `json:"attempts"`
}

// handleCheck applies a candidate to today's game.
// The first finish is persisted; later checks on a finished game report "locked".
func (d *dailyServer) handleCheck(w http.ResponseWriter, r *http.Request) {
	logger := hlog.FromRequest(r)
	uid := player(d.srv.owner(w, r))

	var p dailyCheckReq
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.GameID == "" {
		writeError(w, http.StatusBadRequest, "bad_request")
		return
	}

	date := daily.DateKey(d.now())
	g := d.current(r, date, uid)
	if g == nil || g.ID != p.GameID {
		writeError(w, http.StatusConflict, "no_session")
		return
	}

	if before := g.Snapshot(); before.Finished {
		writeJSON(w, http.StatusOK, dailyCheckRes{
			Result:   game.Result{Success: true},
			State:    "locked",
			Matches:  before.Matches,
			Attempts: before.Attempts,
		})
		return
	}

	res := g.Apply(d.srv.vocab, p.Text)
	res.Match = d.srv.clean(res.Match)
	snap := g.Snapshot()

	d.srv.recordCheck(r.Context(), g, res)

	state := "in_progress"
	if res.Success && res.IsNewMatch {
		state = "won"
		err := d.results.InsertResult(r.Context(), daily.Result{
			UserID:    uid,
			Date:      date,
			Attempts:  snap.Attempts,
			ElapsedMs: snap.ElapsedMs,
		})
		if err != nil {
			logger.Error().Err(err).Str("gameId", g.ID).Msg("store daily result")
		}
	}

	writeJSON(w, http.StatusOK, dailyCheckRes{
		Result:   res,
		State:    state,
		Matches:  snap.Matches,
		Attempts: snap.Attempts,
	})
}

// -----------------------------------------------------------------------------
// /daily/leaderboard

type lbRes struct {
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for ?date= (default today).
func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(d.now())
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := d.results.Leaderboard(r.Context(), date, limit)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("leaderboard")
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	writeJSON(w, http.StatusOK, lbRes{Date: date, Top: rows})
}
