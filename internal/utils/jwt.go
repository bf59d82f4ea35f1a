// Package utils provides helpers for token issuance and password hashing.
package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessToken is a signed HS256 JWT plus the metadata callers need: the jti
// used as the revocation key and the expiry time.
type AccessToken struct {
	Token string
	JTI   string
	Exp   time.Time
}

// Claims are the verified contents of an access token. Only the user's
// identity travels in the token; the role is looked up from the credential
// store on every request.
type Claims struct {
	UserID    uint64
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Parse rejections. The middleware logs which one occurred; clients see a
// single 401 either way.
var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenInvalid   = errors.New("token signature invalid")
)

// NewAccessToken builds and signs an HS256 JWT for a user. Claims are
// sub (user id), jti (fresh UUID, the revocation key), iat and exp. TTL is
// configuration, passed in minutes.
func NewAccessToken(secret string, userID uint64, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	jti := uuid.NewString()

	claims := jwt.MapClaims{
		"sub": userID,
		"jti": jti,
		"iat": now.Unix(),
		"exp": exp.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, JTI: jti, Exp: exp}, nil
}

// ParseAccessToken verifies signature and expiry and extracts the claims.
// It is stateless and safe for concurrent use; the revocation ledger lookup
// happens in the middleware, which has access to the store.
func ParseAccessToken(secret, raw string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, ErrTokenMalformed
		}
		return Claims{}, ErrTokenInvalid
	}
	if !tok.Valid {
		return Claims{}, ErrTokenInvalid
	}

	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrTokenMalformed
	}
	sub, ok := mc["sub"].(float64) // numeric claims decode as float64
	if !ok || sub <= 0 {
		return Claims{}, ErrTokenMalformed
	}
	jti, ok := mc["jti"].(string)
	if !ok || jti == "" {
		return Claims{}, ErrTokenMalformed
	}

	c := Claims{UserID: uint64(sub), JTI: jti}
	if iat, ok := mc["iat"].(float64); ok {
		c.IssuedAt = time.Unix(int64(iat), 0).UTC()
	}
	if exp, ok := mc["exp"].(float64); ok {
		c.ExpiresAt = time.Unix(int64(exp), 0).UTC()
	}
	return c, nil
}
