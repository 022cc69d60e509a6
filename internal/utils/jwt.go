package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/sha256" // SHA‑256 digest of tokens stored in the blacklist
	"encoding/hex"  // hex encoding of digests
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
	"github.com/google/uuid"
)

// Issuer is written into and required from every access token.
const Issuer = "elibrary"

// ErrMalformedToken is returned when a token cannot even be decoded.
var ErrMalformedToken = errors.New("malformed token")

// Claims is the payload of an access token: the identity snapshot plus the
// registered claims (sub, exp, iat, jti, iss).
type Claims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string sent as `Authorization: Bearer`.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for a user.  The expiry is
// an absolute timestamp ttl after issuance; a unique jti keeps two tokens
// issued within the same second distinct.
func NewAccessToken(secret, userID, email, role string, ttl time.Duration) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    Issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp.Truncate(time.Second)}, nil
}

// ParseAccessToken verifies signature, algorithm, issuer and expiry and
// returns the claims.  An expiry claim is mandatory.
func ParseAccessToken(secret, raw string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || claims.UserID == "" {
		return nil, ErrMalformedToken
	}
	return claims, nil
}

// TokenExpiry decodes the exp claim without checking the signature.  It is
// used when revoking a token that already passed the gate.
func TokenExpiry(raw string) (time.Time, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return time.Time{}, ErrMalformedToken
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrMalformedToken
	}
	return claims.ExpiresAt.Time.UTC(), nil
}

// HashToken returns the SHA‑256 hash of a bearer token as a hex string.
// Only the digest is persisted in the revocation list.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
