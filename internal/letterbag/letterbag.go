// internal/letterbag/letterbag.go
//
// LetterBag is a multiset of characters.
// It models "letters available" (the jumble) versus "letters needed" (a candidate word).
//
// Notes:
//   - Every rune counts, including whitespace and control characters; callers that want
//     case folding or trimming normalize before constructing a bag.
//   - A rune with count zero is never stored, so two bags are equal iff their maps are.
//   - Merge sums multiplicities; Union keeps the larger one.

package letterbag

import (
	"slices"
	"strings"
)

// LetterBag maps each rune to its number of occurrences.
// The zero value is an empty bag ready to use.
type LetterBag struct {
	counts map[rune]int
}

// New builds a bag from the runes of s. The empty string yields an empty bag.
func New(s string) *LetterBag {
	b := &LetterBag{counts: make(map[rune]int, len(s))}
	for _, r := range s {
		b.counts[r]++
	}
	return b
}

// Count returns how many times r occurs in the bag.
func (b *LetterBag) Count(r rune) int {
	if b == nil {
		return 0
	}
	return b.counts[r]
}

// Len returns the total number of runes, counting repeats.
func (b *LetterBag) Len() int {
	if b == nil {
		return 0
	}
	n := 0
	for _, c := range b.counts {
		n += c
	}
	return n
}

// Contains reports whether every rune of other occurs in b at least as often.
// A nil or empty other is always contained.
func (b *LetterBag) Contains(other *LetterBag) bool {
	if other == nil {
		return true
	}
	for r, need := range other.counts {
		if b.Count(r) < need {
			return false
		}
	}
	return true
}

// ContainsString is Contains for a raw string; s is converted to a transient bag.
func (b *LetterBag) ContainsString(s string) bool {
	return b.Contains(New(s))
}

// Merge adds the counts of other into b.
func (b *LetterBag) Merge(other *LetterBag) {
	if other == nil {
		return
	}
	b.init()
	for r, c := range other.counts {
		b.counts[r] += c
	}
}

// Union raises each count in b to at least the count in other.
// Merging a bag that b already contains leaves b unchanged.
func (b *LetterBag) Union(other *LetterBag) {
	if other == nil {
		return
	}
	b.init()
	for r, c := range other.counts {
		if c > b.counts[r] {
			b.counts[r] = c
		}
	}
}

func (b *LetterBag) init() {
	if b.counts == nil {
		b.counts = make(map[rune]int)
	}
}

// Equal reports whether both bags hold the same runes with the same counts.
func (b *LetterBag) Equal(other *LetterBag) bool {
	if b.Len() != other.Len() {
		return false
	}
	return b.Contains(other) && other.Contains(b)
}

// Runes expands the bag into a sorted slice, each rune repeated count times.
func (b *LetterBag) Runes() []rune {
	if b == nil {
		return nil
	}
	keys := make([]rune, 0, len(b.counts))
	for r := range b.counts {
		keys = append(keys, r)
	}
	slices.Sort(keys)

	out := make([]rune, 0, b.Len())
	for _, r := range keys {
		for i := 0; i < b.counts[r]; i++ {
			out = append(out, r)
		}
	}
	return out
}

// String returns the canonical form: runes in ascending order, each repeated
// exactly its count, no separators.
func (b *LetterBag) String() string {
	var sb strings.Builder
	for _, r := range b.Runes() {
		sb.WriteRune(r)
	}
	return sb.String()
}
