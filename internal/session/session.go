// internal/session/session.go
//
// Signed cookie holding a player's game.State for the page flow (/, /_check).
// The state travels with the browser as an HS256 JWT, so the server keeps
// nothing per player between keystrokes.

package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/robalobadob/vocab-jumble/internal/game"
)

// ErrNoSession is returned when the request carries no valid session cookie.
var ErrNoSession = errors.New("session: missing or invalid")

// DefaultCookieName is used when Codec.Name is empty.
const DefaultCookieName = "vocab_session"

type claims struct {
	game.State
	jwt.RegisteredClaims
}

// Codec signs and verifies session cookies.
type Codec struct {
	Secret []byte
	Name   string
	TTL    time.Duration // zero means no expiry claim
	Secure bool          // production: Secure + SameSite=None
}

func (c *Codec) name() string {
	if c.Name == "" {
		return DefaultCookieName
	}
	return c.Name
}

// Encode signs st into a token.
func (c *Codec) Encode(st game.State) (string, error) {
	now := time.Now()
	cl := claims{State: st, RegisteredClaims: jwt.RegisteredClaims{IssuedAt: jwt.NewNumericDate(now)}}
	if c.TTL > 0 {
		cl.ExpiresAt = jwt.NewNumericDate(now.Add(c.TTL))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(c.Secret)
}

// Decode verifies a token and returns the state it carries.
func (c *Codec) Decode(tok string) (game.State, error) {
	var cl claims
	t, err := jwt.ParseWithClaims(tok, &cl, func(*jwt.Token) (any, error) {
		return c.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return game.State{}, ErrNoSession
	}
	if cl.Target < 1 {
		return game.State{}, ErrNoSession
	}
	if cl.Matches == nil {
		cl.Matches = []string{}
	}
	return cl.State, nil
}

// Write stores st in the response cookie.
func (c *Codec) Write(w http.ResponseWriter, st game.State) error {
	tok, err := c.Encode(st)
	if err != nil {
		return err
	}
	sameSite := http.SameSiteLaxMode
	if c.Secure {
		sameSite = http.SameSiteNoneMode
	}
	ck := &http.Cookie{
		Name:     c.name(),
		Value:    tok,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: sameSite,
	}
	if c.TTL > 0 {
		ck.Expires = time.Now().Add(c.TTL)
	}
	http.SetCookie(w, ck)
	return nil
}

// Read returns the state from the request cookie.
func (c *Codec) Read(r *http.Request) (game.State, error) {
	ck, err := r.Cookie(c.name())
	if err != nil || ck.Value == "" {
		return game.State{}, ErrNoSession
	}
	return c.Decode(ck.Value)
}
