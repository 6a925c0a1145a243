// internal/vocab/vocab.go
//
// Vocabulary management for the jumble game.
//
// Responsibilities:
//   - Load the word list from a configured file, or fall back to the embedded default.
//   - Normalize words once at load time (trim + lowercase) and de-duplicate them.
//   - Keep load order for listing and a set for constant-time membership tests.
//
// File formats:
//   - *.yaml / *.yml: a document with a top-level `words:` sequence.
//   - anything else:  one word per line; blank lines and '#' comments are skipped.
//
// A Vocab is built once at startup and never mutated afterwards, so it can be
// shared by every request handler without locking.

package vocab

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/robalobadob/vocab-jumble/assets"
)

// Vocab is a read-only set of valid words.
type Vocab struct {
	words []string            // load order, distinct
	set   map[string]struct{} // membership
}

// yamlList is the shape of a YAML word list.
type yamlList struct {
	Words []string `yaml:"words"`
}

// Normalize applies the case folding used for every word and candidate.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// New builds a Vocab from raw words.
// Words are normalized; blanks, '#' comments and duplicates are dropped.
// An empty result is a *ConfigError wrapping ErrEmpty.
func New(words []string) (*Vocab, error) {
	v := &Vocab{set: make(map[string]struct{}, len(words))}
	for _, w := range words {
		w = Normalize(w)
		if w == "" || strings.HasPrefix(w, "#") {
			continue
		}
		if _, dup := v.set[w]; dup {
			continue
		}
		v.set[w] = struct{}{}
		v.words = append(v.words, w)
	}
	if len(v.words) == 0 {
		return nil, &ConfigError{Source: "word list", Err: ErrEmpty}
	}
	return v, nil
}

// Load reads a word list from path.
func Load(path string) (*Vocab, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigError{Source: path, Err: err}
	}
	defer f.Close()

	var words []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		words, err = readYAML(f)
	default:
		words, err = readLines(f)
	}
	if err != nil {
		return nil, &ConfigError{Source: path, Err: err}
	}

	v, err := New(words)
	if err != nil {
		return nil, &ConfigError{Source: path, Err: ErrEmpty}
	}
	return v, nil
}

// Default loads the embedded word list shipped with the server.
func Default() (*Vocab, error) {
	f, err := assets.FS.Open(assets.VocabFile)
	if err != nil {
		return nil, &ConfigError{Source: "embedded " + assets.VocabFile, Err: err}
	}
	defer f.Close()

	words, err := readLines(f)
	if err != nil {
		return nil, &ConfigError{Source: "embedded " + assets.VocabFile, Err: err}
	}
	return New(words)
}

// FromConfig loads path when set, the embedded default otherwise.
func FromConfig(path string) (*Vocab, error) {
	if path == "" {
		return Default()
	}
	return Load(path)
}

// readLines returns every line of r; filtering happens in New.
func readLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	return out, sc.Err()
}

func readYAML(r io.Reader) ([]string, error) {
	var doc yamlList
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return doc.Words, nil
}

// Has reports whether word, after normalization, is in the vocabulary.
func (v *Vocab) Has(word string) bool {
	_, ok := v.set[Normalize(word)]
	return ok
}

// List returns a copy of the words in load order.
func (v *Vocab) List() []string {
	out := make([]string, len(v.words))
	copy(out, v.words)
	return out
}

// Len returns the number of distinct words.
func (v *Vocab) Len() int { return len(v.words) }
