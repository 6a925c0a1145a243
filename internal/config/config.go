package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every flag name to form its environment variable,
// e.g. --success-at-count is VOCAB_SUCCESS_AT_COUNT.
const EnvPrefix = "VOCAB"

const devSecret = "dev_secret_change_me"

// Config holds all application configuration.
type Config struct {
	ConfigFile string

	// server
	Bind         string
	Port         int
	ClientOrigin string
	PublicURL    string
	Production   bool

	// game
	Vocab          string // word list path; empty uses the embedded list
	SuccessAtCount int
	CompactJumble  bool
	DailySalt      string
	GameTTL        time.Duration

	// state
	DBPath     string
	SecretKey  string
	SessionTTL time.Duration
	TokenTTL   time.Duration

	// logging
	LogLevel string
	Pretty   bool
}

// RegisterFlags declares every setting on fs with its default.
func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVar(&c.ConfigFile, "config", "", "optional config file (yaml, toml or json) (env: VOCAB_CONFIG)")
	fs.StringVarP(&c.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: VOCAB_BIND)")
	fs.IntVarP(&c.Port, "port", "p", 5000, "port to listen on (env: VOCAB_PORT)")
	fs.StringVar(&c.ClientOrigin, "client-origin", "http://localhost:5173", "origin allowed to call the JSON API with credentials (env: VOCAB_CLIENT_ORIGIN)")
	fs.StringVar(&c.PublicURL, "public-url", "", "externally visible base URL used in share links (env: VOCAB_PUBLIC_URL)")
	fs.BoolVar(&c.Production, "production", false, "secure cookies and mandatory secret key (env: VOCAB_PRODUCTION)")

	fs.StringVar(&c.Vocab, "vocab", "", "path to the vocabulary word list, .txt or .yaml (env: VOCAB_VOCAB)")
	fs.IntVarP(&c.SuccessAtCount, "success-at-count", "n", 3, "words to find before a game is won (env: VOCAB_SUCCESS_AT_COUNT)")
	fs.BoolVar(&c.CompactJumble, "compact-jumble", false, "share letters between picked words instead of concatenating them (env: VOCAB_COMPACT_JUMBLE)")
	fs.StringVar(&c.DailySalt, "daily-salt", "local_dev_salt", "secret mixed into the daily jumble seed (env: VOCAB_DAILY_SALT)")
	fs.DurationVar(&c.GameTTL, "game-ttl", 6*time.Hour, "how long server-held games are kept (env: VOCAB_GAME_TTL)")

	fs.StringVar(&c.DBPath, "db", "./data/vocab.db", "SQLite database path (env: VOCAB_DB)")
	fs.StringVar(&c.SecretKey, "secret-key", devSecret, "key signing session cookies and auth tokens (env: VOCAB_SECRET_KEY)")
	fs.DurationVar(&c.SessionTTL, "session-ttl", 24*time.Hour, "lifetime of the game session cookie (env: VOCAB_SESSION_TTL)")
	fs.DurationVar(&c.TokenTTL, "token-ttl", 14*24*time.Hour, "lifetime of account tokens (env: VOCAB_TOKEN_TTL)")

	fs.StringVar(&c.LogLevel, "log-level", "info", "zerolog level: trace, debug, info, warn, error (env: VOCAB_LOG_LEVEL)")
	fs.BoolVar(&c.Pretty, "pretty", false, "human-readable console logs instead of JSON (env: VOCAB_PRETTY)")
}

// Load fills unset flags from .env, the environment and the optional config
// file, in that order of precedence after explicit flags.
func Load(fs *pflag.FlagSet) error {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return err
	}
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var setErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Changed || setErr != nil {
			return
		}
		if v.IsSet(f.Name) {
			if err := fs.Set(f.Name, v.GetString(f.Name)); err != nil {
				setErr = fmt.Errorf("%s: %w", f.Name, err)
			}
		}
	})
	return setErr
}

// Validate reports settings the server cannot run with.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.SuccessAtCount < 1 {
		return fmt.Errorf("success-at-count must be at least 1, got %d", c.SuccessAtCount)
	}
	if c.Production && (c.SecretKey == "" || c.SecretKey == devSecret) {
		return errors.New("a secret key must be set in production")
	}
	if c.SecretKey == "" {
		return errors.New("secret key must not be empty")
	}
	return nil
}

// InsecureSecret reports whether the development secret is in use.
func (c *Config) InsecureSecret() bool { return c.SecretKey == devSecret }

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}
