package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/mealcourt/go-food-orders/internal/users"
)

type contextKey int

const (
	subjectKey contextKey = iota
	userIDKey
)

// TokenVerifier resolves a raw bearer credential to the identity provider's
// subject. An interface so tests substitute a fake instead of a live OIDC
// provider.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (subject string, err error)
}

type OIDCVerifier struct{ verifier *oidc.IDTokenVerifier }

// NewOIDCVerifier discovers the issuer's keys once at startup. audience is
// the API identifier the tokens must be minted for.
func NewOIDCVerifier(ctx context.Context, issuer, audience string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, err
	}
	return &OIDCVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: audience}),
	}, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (string, error) {
	tok, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return "", err
	}
	return tok.Subject, nil
}

// UserResolver maps a verified subject to the internal user record.
type UserResolver interface {
	GetBySubject(ctx context.Context, subject string) (*users.User, error)
}

// RequireToken verifies the bearer credential and stores the subject on the
// context. It does not require a user record to exist yet; first-login user
// creation runs behind this.
func RequireToken(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, ok := verify(r, verifier)
			if !ok {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(
				context.WithValue(r.Context(), subjectKey, subject)))
		})
	}
}

// RequireUser additionally resolves the subject to an internal user id; a
// verified token without a registered user is still a 401.
func RequireUser(verifier TokenVerifier, resolver UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, ok := verify(r, verifier)
			if !ok {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			u, err := resolver.GetBySubject(r.Context(), subject)
			if err != nil {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), subjectKey, subject)
			ctx = context.WithValue(ctx, userIDKey, u.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func verify(r *http.Request, verifier TokenVerifier) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	subject, err := verifier.Verify(r.Context(), strings.TrimPrefix(header, "Bearer "))
	if err != nil || subject == "" {
		return "", false
	}
	return subject, true
}

func Subject(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(subjectKey).(string)
	return s, ok
}

func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}
