package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func hashPassword(password string) (string, error) {
	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return "", fmt.Errorf("internal/auth: pw hash failed: %w", err)
	}
	return hash, nil
}

// verifyPassword reports whether password matches hash. A mismatch is not an
// error; a malformed hash is.
func verifyPassword(password, hash string) (bool, error) {
	ok, err := argon2id.ComparePasswordAndHash(password, hash)
	if err != nil {
		return false, fmt.Errorf("internal/auth: pw and hash comparison failed: %w", err)
	}
	return ok, nil
}

// decoyHash is checked when the email is unknown, so a failed sign-in costs
// one argon2id run whether or not the account exists.
var decoyHash = sync.OnceValue(func() string {
	hash, _ := hashPassword(rand.Text())
	return hash
})

// Signer issues and verifies HS256 access tokens.
type Signer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewSigner returns a Signer. An empty issuer is neither set nor checked.
func NewSigner(secret, issuer string) Signer {
	return Signer{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Sign returns an access token for userID valid for ttl.
func (s Signer) Sign(userID uuid.UUID, ttl time.Duration) (string, error) {
	now := s.now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("internal/auth: failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify returns the user an access token was issued to. Every failure wraps
// ErrUnauthenticated.
func (s Signer) Verify(tokenString string) (uuid.UUID, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil }, opts...)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject claim %q", ErrUnauthenticated, claims.Subject)
	}
	return userID, nil
}

// newRefreshToken returns an opaque 256-bit token.
func newRefreshToken() string {
	b := make([]byte, 32)
	// rand.Read never returns an error.
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
