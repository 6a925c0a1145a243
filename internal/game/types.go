// internal/game/types.go
//
// Core type definitions for the jumble game.
// Defines:
//   - State:    the per-session match record (jumble, target, matches found).
//   - Result:   outcome of checking one candidate word.
//   - Game:     a live game held by the server, wrapping a State.
//   - Snapshot: a copy of a Game safe to encode and hand out.

package game

import (
	"sync"
	"time"
)

// State is the session record carried between requests.
// Matches holds distinct words in the order they were found.
type State struct {
	Jumble  string   `json:"jumble"`
	Target  int      `json:"target_count"`
	Matches []string `json:"matches"`
}

// Result is what check-candidate reports for a single submission.
type Result struct {
	Match      string `json:"match"`        // the normalized candidate
	IsNewMatch bool   `json:"is_new_match"` // true only the first time a word is found
	Success    bool   `json:"success"`      // matches reached the target
}

// Game is a server-held game, used by the JSON API, websocket and daily modes.
// ID, Daily, Owner and CreatedAt are set before the game is shared and never change.
type Game struct {
	ID        string    // uuid
	Daily     string    // date key (YYYY-MM-DD) for daily games, empty otherwise
	Owner     string    // user or anonymous id that started the game
	CreatedAt time.Time // UTC

	mu         sync.Mutex // guards the fields below
	state      State
	attempts   int       // candidates checked
	finishedAt time.Time // zero until the target is reached
}

// Snapshot is a point-in-time copy of a Game.
type Snapshot struct {
	ID    string `json:"gameId"`
	Daily string `json:"daily,omitempty"`
	State
	Attempts  int   `json:"attempts"`
	Finished  bool  `json:"finished"`
	ElapsedMs int64 `json:"elapsedMs,omitempty"` // set once finished
}
