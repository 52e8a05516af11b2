// Package auth contains the leaf credential primitives of the identity core:
// password hashing, JWT issuance/verification, the password policy, and the
// authorization rules. Everything here is pure or CPU-bound; no I/O.
package auth

import (
	"errors"
	"time"

	"github.com/dstepanov2008/shopauth/internal/common"
	"github.com/dstepanov2008/shopauth/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the registered claims plus a snapshot of the user's email,
// name and admin flag taken at issuance. The snapshot is not refreshed on
// later profile changes; the token stays valid until natural expiry.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Name  string `json:"name"`
	Admin bool   `json:"admin"`
}

// TokenIssuer mints and verifies HS256 access tokens. The clock is a field so
// tests can issue and verify at fixed instants.
type TokenIssuer struct {
	secret   []byte
	validity time.Duration
	now      func() time.Time
}

func NewTokenIssuer(secret []byte, validity time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, validity: validity, now: time.Now}
}

// Issue signs a token for the user with iat=now and exp=now+validity.
func (i *TokenIssuer) Issue(u *models.User) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(i.validity)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: u.Email,
		Name:  u.Name,
		Admin: u.IsAdmin,
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify parses and validates a compact token string. Expiry is judged
// against the issuer's clock at the moment of the call. Failure modes are
// distinguished: expired, not yet valid, bad signature, or structurally
// malformed.
func (i *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, common.ErrTokenSignature
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithIssuedAt())
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, common.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
			return nil, common.ErrTokenNotYetValid
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, common.ErrTokenSignature
		default:
			return nil, common.ErrTokenMalformed
		}
	}

	if !token.Valid {
		return nil, common.ErrTokenSignature
	}
	return claims, nil
}
