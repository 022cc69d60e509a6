package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/elibrary/internal/metrics"
	"github.com/iliyamo/elibrary/internal/model"
	"github.com/iliyamo/elibrary/internal/utils"
)

// ErrTokenInvalid covers every reason a bearer token is refused: bad
// signature, wrong algorithm or issuer, expiry, or revocation.
var ErrTokenInvalid = errors.New("invalid or expired token")

// RevocationStore persists revoked token digests until their natural expiry.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenHash string, exp time.Time) error
	IsRevoked(ctx context.Context, tokenHash string, now time.Time) (bool, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// TokenService issues and checks access tokens and maintains the
// revocation list.
type TokenService struct {
	secret  string
	ttl     time.Duration
	store   RevocationStore
	metrics metrics.Recorder
	now     func() time.Time
}

// NewTokenService wires a token service.  rec may be nil.
func NewTokenService(secret string, ttl time.Duration, store RevocationStore, rec metrics.Recorder) *TokenService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &TokenService{
		secret:  secret,
		ttl:     ttl,
		store:   store,
		metrics: rec,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// TTL returns the lifetime given to every issued token.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs a token carrying the identity snapshot.
func (s *TokenService) Issue(id model.Identity) (utils.AccessToken, error) {
	tok, err := utils.NewAccessToken(s.secret, id.UserID, id.Email, id.Role, s.ttl)
	if err != nil {
		return utils.AccessToken{}, fmt.Errorf("sign token: %w", err)
	}
	return tok, nil
}

// Verify returns the identity embedded in raw when the signature checks
// out, the token has not expired and it is not on the revocation list.
// Store failures are returned as-is so callers can tell them apart from a
// refused token.
func (s *TokenService) Verify(ctx context.Context, raw string) (model.Identity, error) {
	claims, err := utils.ParseAccessToken(s.secret, raw)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			s.metrics.RecordTokenRejected("expired")
		} else {
			s.metrics.RecordTokenRejected("invalid")
		}
		return model.Identity{}, ErrTokenInvalid
	}
	revoked, err := s.store.IsRevoked(ctx, utils.HashToken(raw), s.now())
	if err != nil {
		return model.Identity{}, fmt.Errorf("revocation lookup: %w", err)
	}
	if revoked {
		s.metrics.RecordTokenRejected("revoked")
		return model.Identity{}, ErrTokenInvalid
	}
	return model.Identity{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}, nil
}

// Revoke adds raw to the revocation list until its own expiry.  Revoking
// the same token twice is a no-op.
func (s *TokenService) Revoke(ctx context.Context, raw string) error {
	exp, err := utils.TokenExpiry(raw)
	if err != nil {
		return ErrTokenInvalid
	}
	if err := s.store.Revoke(ctx, utils.HashToken(raw), exp); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	s.metrics.RecordTokenRevoked()
	return nil
}

// PurgeExpired drops revocation rows whose token has expired anyway.
func (s *TokenService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.store.PurgeExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge revocations: %w", err)
	}
	s.metrics.RecordRevocationsPurged(n)
	return n, nil
}
