package auth

import (
	"context"
	"net/http"
)

type ctxUserKey struct{}

// FromContext returns the caller placed in ctx by Optional or Require, or nil.
func FromContext(ctx context.Context) *Identity {
	u, _ := ctx.Value(ctxUserKey{}).(*Identity)
	return u
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxUserKey{}, id)
}

// identify resolves the token on r to a user that still exists.
func (s *Service) identify(r *http.Request) (*Identity, error) {
	tok := s.TokenFromRequest(r)
	if tok == "" {
		return nil, ErrInvalidToken
	}
	id, err := s.Parse(tok)
	if err != nil {
		return nil, err
	}
	if _, err := s.FindByID(r.Context(), id.ID); err != nil {
		return nil, ErrInvalidToken
	}
	return id, nil
}

// Optional decorates requests with the caller when a valid token is present.
// It never rejects; guests pass through.
func (s *Service) Optional() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id, err := s.identify(r); err == nil {
				r = r.WithContext(WithIdentity(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Require rejects requests without a valid token for an existing user.
func (s *Service) Require() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := s.identify(r)
			if err != nil {
				http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
