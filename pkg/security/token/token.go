// Package token issues and verifies signed access tokens with a
// revocation blacklist, so logout takes effect before expiry.
package token

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/oklog/ulid/v2"

	tokenopts "github.com/kart-io/guardian/pkg/options/token"
	guarderrors "github.com/kart-io/guardian/pkg/utils/errors"
)

// Info describes an issued token.
type Info struct {
	Token     string    `json:"token"`
	Subject   string    `json:"subject"`
	ExpiresAt time.Time `json:"expires_at"`
}

type customClaims struct {
	jwt.RegisteredClaims
}

// Service signs, verifies, refreshes and revokes access tokens. Tokens
// are HS256 JWTs; revocation is tracked in a pluggable blacklist store.
type Service struct {
	opts  *tokenopts.Options
	store Store
}

// NewService creates a token service. The store holds revoked token IDs
// until their natural expiry.
func NewService(opts *tokenopts.Options, store Store) *Service {
	if opts == nil {
		opts = tokenopts.NewOptions()
	}
	if store == nil {
		store = NewMemoryStore(0)
	}
	return &Service{opts: opts, store: store}
}

// Sign issues a token for subject.
func (s *Service) Sign(ctx context.Context, subject string) (*Info, error) {
	if subject == "" {
		return nil, guarderrors.ErrInvalidParam.WithMessage("subject is required")
	}

	now := time.Now()
	expiresAt := now.Add(s.opts.Expired)

	claims := customClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			Issuer:    s.opts.Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.opts.Key))
	if err != nil {
		return nil, guarderrors.ErrInternal.WithCause(err).WithMessage("failed to sign token")
	}

	return &Info{Token: signed, Subject: subject, ExpiresAt: expiresAt}, nil
}

// Verify parses and validates tokenString, rejecting revoked tokens,
// and returns the subject it was issued to.
func (s *Service) Verify(ctx context.Context, tokenString string) (string, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return "", err
	}

	revoked, err := s.store.Check(ctx, claims.ID)
	if err != nil {
		return "", guarderrors.ErrInternal.WithCause(err).WithMessage("failed to check token revocation")
	}
	if revoked {
		return "", guarderrors.ErrTokenRevoked
	}

	return claims.Subject, nil
}

// Refresh revokes tokenString and issues a replacement for the same
// subject. Refusal applies outside the max-refresh window measured from
// original issuance.
func (s *Service) Refresh(ctx context.Context, tokenString string) (*Info, error) {
	claims, err := s.parse(tokenString)
	if err != nil && !errors.Is(err, guarderrors.ErrTokenExpired) {
		return nil, err
	}

	if claims.IssuedAt == nil || time.Since(claims.IssuedAt.Time) > s.opts.MaxRefresh {
		return nil, guarderrors.ErrTokenExpired.WithMessage("token is beyond the refresh window")
	}

	revoked, err := s.store.Check(ctx, claims.ID)
	if err != nil {
		return nil, guarderrors.ErrInternal.WithCause(err).WithMessage("failed to check token revocation")
	}
	if revoked {
		return nil, guarderrors.ErrTokenRevoked
	}

	if err := s.revokeClaims(ctx, claims); err != nil {
		return nil, err
	}
	return s.Sign(ctx, claims.Subject)
}

// Revoke blacklists tokenString until its natural expiry. Revoking an
// already-expired token is a no-op.
func (s *Service) Revoke(ctx context.Context, tokenString string) error {
	claims, err := s.parse(tokenString)
	if err != nil {
		if errors.Is(err, guarderrors.ErrTokenExpired) {
			return nil
		}
		return err
	}
	return s.revokeClaims(ctx, claims)
}

func (s *Service) revokeClaims(ctx context.Context, claims *customClaims) error {
	ttl := s.opts.MaxRefresh
	if claims.ExpiresAt != nil {
		if remaining := time.Until(claims.ExpiresAt.Time); remaining > 0 {
			ttl = remaining
		}
	}
	if err := s.store.Set(ctx, claims.ID, ttl); err != nil {
		return guarderrors.ErrInternal.WithCause(err).WithMessage("failed to revoke token")
	}
	return nil
}

// parse validates the signature and standard claims. Expired tokens
// return ErrTokenExpired together with the parsed claims so callers can
// still inspect them.
func (s *Service) parse(tokenString string) (*customClaims, error) {
	claims := &customClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, guarderrors.ErrInvalidToken.WithMessagef("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.opts.Key), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return claims, guarderrors.ErrTokenExpired
		}
		return nil, guarderrors.ErrInvalidToken.WithCause(err)
	}

	if claims.ID == "" || claims.Subject == "" {
		return nil, guarderrors.ErrInvalidToken.WithMessage("token is missing required claims")
	}
	return claims, nil
}
