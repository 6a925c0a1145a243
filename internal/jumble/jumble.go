// internal/jumble/jumble.go
//
// Jumble generation.
//
// A jumble is built by picking `target` distinct words at random, pooling their
// letters into one LetterBag and shuffling the result. Every picked word can
// therefore be spelled from the jumble, which guarantees at least `target`
// findable vocabulary words.
//
// Pooling modes:
//   - default: letters are summed (the jumble is a permutation of the
//     concatenated words).
//   - Compact: letters are unioned (each letter appears as often as the word
//     that needs it most), giving a shorter jumble with the same guarantee.

package jumble

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/robalobadob/vocab-jumble/internal/letterbag"
)

var (
	// ErrInsufficientVocabulary is returned when target exceeds the number of distinct words.
	ErrInsufficientVocabulary = errors.New("jumble: not enough distinct words for target")
	// ErrInvalidTarget is returned for a target below 1.
	ErrInvalidTarget = errors.New("jumble: target must be at least 1")
)

// Generator produces jumbles. The zero value uses the global random source.
type Generator struct {
	Rand    *rand.Rand // seeded source, e.g. for the daily jumble; not safe for concurrent use
	Compact bool       // union letters instead of summing them
}

// Jumbled is Generator{}.Jumbled.
func Jumbled(words []string, target int) (string, error) {
	return Generator{}.Jumbled(words, target)
}

// Jumbled returns a random permutation of the pooled letters of `target`
// distinct words chosen from words. The input slice is not modified.
func (g Generator) Jumbled(words []string, target int) (string, error) {
	picked, err := g.Pick(words, target)
	if err != nil {
		return "", err
	}

	bag := letterbag.New("")
	for _, w := range picked {
		if g.Compact {
			bag.Union(letterbag.New(w))
		} else {
			bag.Merge(letterbag.New(w))
		}
	}

	letters := bag.Runes()
	g.shuffle(len(letters), func(i, j int) { letters[i], letters[j] = letters[j], letters[i] })
	return string(letters), nil
}

// Pick selects target distinct, non-empty words from words at random.
func (g Generator) Pick(words []string, target int) ([]string, error) {
	if target < 1 {
		return nil, ErrInvalidTarget
	}
	pool := distinct(words)
	if target > len(pool) {
		return nil, fmt.Errorf("%w: want %d, have %d", ErrInsufficientVocabulary, target, len(pool))
	}
	g.shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:target], nil
}

func (g Generator) shuffle(n int, swap func(i, j int)) {
	if g.Rand != nil {
		g.Rand.Shuffle(n, swap)
		return
	}
	rand.Shuffle(n, swap)
}

// distinct returns a fresh slice of the unique non-empty words, first occurrence first.
func distinct(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}
