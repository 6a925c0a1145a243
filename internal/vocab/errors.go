package vocab

import "errors"

// ErrEmpty means the word list produced no usable words.
var ErrEmpty = errors.New("vocabulary is empty")

// ConfigError reports a vocabulary that cannot be used to serve games.
// It is fatal at startup.
type ConfigError struct {
	Source string // file path or description of the list
	Err    error
}

func (e *ConfigError) Error() string {
	return "vocab: " + e.Source + ": " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error { return e.Err }
