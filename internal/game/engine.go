// internal/game/engine.go
//
// Core game engine.
// Responsibilities:
//   - start-game: clamp the requested target to the vocabulary size and build a jumble.
//   - check-candidate: accept a word iff it is in the vocabulary, spellable from
//     the jumble and not already found; report completion once the target is met.
//   - list-vocabulary: expose the loaded words in load order.
//
// Start and Check are pure functions over State so they can run against a
// signed cookie, a stored Game or a terminal loop alike.

package game

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/robalobadob/vocab-jumble/internal/jumble"
	"github.com/robalobadob/vocab-jumble/internal/letterbag"
	"github.com/robalobadob/vocab-jumble/internal/vocab"
)

// Start creates the state for a new game.
// The target is min(requested, vocabulary size), so a large request never
// surfaces jumble.ErrInsufficientVocabulary. A requested target below 1
// returns jumble.ErrInvalidTarget.
func Start(v *vocab.Vocab, requested int, gen jumble.Generator) (State, error) {
	target := min(requested, v.Len())
	j, err := gen.Jumbled(v.List(), target)
	if err != nil {
		return State{}, err
	}
	return State{Jumble: j, Target: target, Matches: []string{}}, nil
}

// Check applies one candidate to st and returns the updated state.
// st.Matches is never modified in place; a new match yields a new slice.
func Check(v *vocab.Vocab, st State, candidate string) (State, Result) {
	text := vocab.Normalize(candidate)
	res := Result{Match: text}

	if text != "" &&
		v.Has(text) &&
		letterbag.New(st.Jumble).ContainsString(text) &&
		!slices.Contains(st.Matches, text) {
		st.Matches = append(slices.Clip(st.Matches), text)
		res.IsNewMatch = true
	}

	res.Success = st.Complete()
	return st, res
}

// Complete reports whether the target has been reached.
func (st State) Complete() bool {
	return st.Target > 0 && len(st.Matches) >= st.Target
}

// ListVocabulary returns the vocabulary in load order.
func ListVocabulary(v *vocab.Vocab) []string {
	return v.List()
}

// New starts a server-held game with a fresh id.
func New(v *vocab.Vocab, requested int, gen jumble.Generator) (*Game, error) {
	st, err := Start(v, requested, gen)
	if err != nil {
		return nil, err
	}
	return &Game{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		state:     st,
	}, nil
}

// Apply checks a candidate against the game and records the outcome.
// Once finished the game no longer changes; further candidates report success.
func (g *Game) Apply(v *vocab.Vocab, candidate string) Result {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.finishedAt.IsZero() {
		return Result{Match: vocab.Normalize(candidate), Success: true}
	}

	g.attempts++
	next, res := Check(v, g.state, candidate)
	g.state = next
	if res.Success {
		g.finishedAt = time.Now().UTC()
	}
	return res
}

// Snapshot returns a copy of the game safe to encode.
func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := g.state
	st.Matches = slices.Clone(g.state.Matches)
	s := Snapshot{
		ID:       g.ID,
		Daily:    g.Daily,
		State:    st,
		Attempts: g.attempts,
		Finished: !g.finishedAt.IsZero(),
	}
	if s.Finished {
		s.ElapsedMs = g.finishedAt.Sub(g.CreatedAt).Milliseconds()
	}
	return s
}

// ExpiresAt is when an idle game may be dropped: ttl after creation, but a
// daily game is kept at least until its UTC day ends.
func (g *Game) ExpiresAt(ttl time.Duration) time.Time {
	exp := g.CreatedAt.Add(ttl)
	if g.Daily == "" {
		return exp
	}
	day, err := time.Parse(time.DateOnly, g.Daily)
	if err != nil {
		return exp
	}
	if end := day.AddDate(0, 0, 1); end.After(exp) {
		return end
	}
	return exp
}
