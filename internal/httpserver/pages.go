// internal/httpserver/pages.go
//
// Browser game: the page flow keeps the game state in the signed session
// cookie, so every keystroke check is answered without server-side storage.
//   - GET /, /index → start-game, render the jumble page.
//   - GET /_check   → check-candidate for ?text=, JSON answer for the page script.
//   - GET /success  → shown once the target has been reached.

package httpserver

import (
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/vocab-jumble/internal/game"
)

// pageData feeds every template; fields unused by a page stay empty.
type pageData struct {
	Title  string
	Prefix string
	Jumble string
	Target int
	Vocab  []string
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.pages.ExecuteTemplate(w, name, data); err != nil {
		// headers are gone; all we can do is log
		hlog.FromRequest(r).Error().Err(err).Str("template", name).Msg("render")
	}
}

// handleIndex starts a fresh game in the session cookie.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	logger := hlog.FromRequest(r)

	st, err := game.Start(s.vocab, s.cfg.SuccessAtCount, s.generator())
	if err != nil {
		logger.Error().Err(err).Msg("start game")
		s.render(w, r, http.StatusInternalServerError, "500.html", pageData{Title: "Server error"})
		return
	}
	if err := s.sessions.Write(w, st); err != nil {
		logger.Error().Err(err).Msg("write session")
		s.render(w, r, http.StatusInternalServerError, "500.html", pageData{Title: "Server error"})
		return
	}
	logger.Debug().Int("target", st.Target).Int("jumble_len", len(st.Jumble)).Msg("session started")

	s.render(w, r, http.StatusOK, "vocab.html", pageData{
		Title:  "Vocabulary",
		Jumble: st.Jumble,
		Target: st.Target,
		Vocab:  game.ListVocabulary(s.vocab),
	})
}

// checkPageRes is the payload the page script expects:
// {"success": true} once complete, otherwise the match details.
type checkPageRes struct {
	Match      string `json:"match,omitempty"`
	IsNewMatch bool   `json:"is_new_match"`
	Success    bool   `json:"success"`
}

// handleCheck tests ?text= against the session's jumble and vocabulary.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	logger := hlog.FromRequest(r)

	st, err := s.sessions.Read(r)
	if err != nil {
		writeError(w, http.StatusForbidden, "no_session")
		return
	}

	next, res := game.Check(s.vocab, st, r.URL.Query().Get("text"))
	if res.IsNewMatch {
		if err := s.sessions.Write(w, next); err != nil {
			logger.Error().Err(err).Msg("write session")
			writeError(w, http.StatusInternalServerError, "internal")
			return
		}
		logger.Debug().Str("match", res.Match).Int("found", len(next.Matches)).Msg("new match")
	}

	if res.Success {
		writeJSON(w, http.StatusOK, checkPageRes{Success: true})
		return
	}
	writeJSON(w, http.StatusOK, checkPageRes{
		Match:      s.clean(res.Match),
		IsNewMatch: res.IsNewMatch,
	})
}

// handleSuccess shows the win page, or 403 when the session has not won.
func (s *Server) handleSuccess(w http.ResponseWriter, r *http.Request) {
	st, err := s.sessions.Read(r)
	if err != nil || !st.Complete() {
		s.render(w, r, http.StatusForbidden, "403.html", pageData{Title: "Forbidden"})
		return
	}
	s.render(w, r, http.StatusOK, "success.html", pageData{Title: "Success"})
}
