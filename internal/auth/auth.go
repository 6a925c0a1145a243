package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUsernameTaken      = errors.New("username taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
)

// User is a row of the users table.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	GamesPlayed  int       `json:"gamesPlayed"`
	GamesWon     int       `json:"gamesWon"`
	WordsFound   int       `json:"wordsFound"`
}

// Identity is what a verified token says about the caller.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Delta is a change to a user's counters.
type Delta struct {
	Played int
	Won    int
	Words  int
}

// Service manages accounts and their tokens.
type Service struct {
	db         *sql.DB
	secret     []byte
	ttl        time.Duration
	CookieName string
	Secure     bool // production cookies: Secure + SameSite=None
	newID      func() string
}

// NewService builds a Service. newID generates user ids.
func NewService(db *sql.DB, secret string, ttl time.Duration, newID func() string) *Service {
	return &Service{db: db, secret: []byte(secret), ttl: ttl, CookieName: "vocab_token", newID: newID}
}

func normalizeUsername(u string) string {
	return strings.TrimSpace(u)
}

func validateSignup(u, p string) error {
	if len(u) < 3 || len(u) > 24 {
		return errors.New("username must be 3-24 chars")
	}
	for _, r := range u {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return errors.New("username: letters, numbers, underscore only")
		}
	}
	if len(p) < 8 || len(p) > 72 {
		return errors.New("password must be 8-72 chars")
	}
	return nil
}

// Signup validates and creates a user.
func (s *Service) Signup(ctx context.Context, username, pw string) (*User, error) {
	username = normalizeUsername(username)
	if err := validateSignup(username, pw); err != nil {
		return nil, err
	}
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE username=?`, username).Scan(&exists)
	switch {
	case err == nil:
		return nil, ErrUsernameTaken
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &User{
		ID:           s.newID(),
		Username:     username,
		PasswordHash: string(h),
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, created_at) VALUES (?,?,?,?)`,
		u.ID, u.Username, u.PasswordHash, u.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// Login checks credentials.
func (s *Service) Login(ctx context.Context, username, pw string) (*User, error) {
	u, err := s.findBy(ctx, `username=?`, normalizeUsername(username))
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(pw)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// FindByID loads a user.
func (s *Service) FindByID(ctx context.Context, id string) (*User, error) {
	return s.findBy(ctx, `id=?`, id)
}

func (s *Service) findBy(ctx context.Context, where string, arg any) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, username, password_hash, created_at, games_played, games_won, words_found
	                                  FROM users WHERE `+where, arg)
	var u User
	var created string
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &created, &u.GamesPlayed, &u.GamesWon, &u.WordsFound); err != nil {
		return nil, err
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &u, nil
}

// Bump adds d to a user's counters.
func (s *Service) Bump(ctx context.Context, userID string, d Delta) error {
	_, err := s.db.ExecContext(ctx, `
        UPDATE users
        SET games_played = games_played + ?, games_won = games_won + ?, words_found = words_found + ?
        WHERE id=?`, d.Played, d.Won, d.Words, userID)
	return err
}

// Sign issues an HS256 token for u.
func (s *Service) Sign(u *User) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.ttl)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":       u.ID,
		"username": u.Username,
		"exp":      exp.Unix(),
		"iat":      now.Unix(),
	})
	ss, err := t.SignedString(s.secret)
	return ss, exp, err
}

// Parse verifies a token.
func (s *Service) Parse(tok string) (*Identity, error) {
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return nil, ErrInvalidToken
	}
	id, _ := claims["id"].(string)
	username, _ := claims["username"].(string)
	if id == "" || username == "" {
		return nil, ErrInvalidToken
	}
	return &Identity{ID: id, Username: username}, nil
}

func (s *Service) sameSite() http.SameSite {
	if s.Secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// SetCookie writes the auth token cookie.
func (s *Service) SetCookie(w http.ResponseWriter, token string, exp time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: s.sameSite(),
		Expires:  exp,
	})
}

// ClearCookie deletes the auth token cookie.
func (s *Service) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: s.sameSite(),
		MaxAge:   -1,
	})
}

// TokenFromRequest returns a bearer token or the auth cookie value.
func (s *Service) TokenFromRequest(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(s.CookieName); err == nil {
		return c.Value
	}
	return ""
}
