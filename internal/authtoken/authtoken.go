// Package authtoken issues and verifies the bearer tokens the HTTP API
// checks on its runs endpoints when a signing key is configured, and
// hashes and verifies an operator-provisioned client secret.
package authtoken

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const issuer = "rosterctl"

// Claims are the custom fields carried in a session token, alongside the
// registered claims (issuer, subject, expiry) jwt.RegisteredClaims adds.
type Claims struct {
	jwt.RegisteredClaims
	ClientID string `json:"client_id"`
}

// Manager issues and validates self-signed HS256 bearer tokens.
type Manager struct {
	signingKey []byte
	ttl        time.Duration
}

// NewManager creates a Manager. secret must be at least 32 bytes.
func NewManager(secret string, ttl time.Duration) (*Manager, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("token signing key must be at least 32 bytes, got %d", len(secret))
	}
	return &Manager{signingKey: []byte(secret), ttl: ttl}, nil
}

// IssueToken creates a signed bearer token for clientID.
func (m *Manager) IssueToken(clientID string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   clientID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		ClientID: clientID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.signingKey)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies the token's signature, issuer, and expiry, and
// returns its claims.
func (m *Manager) ValidateToken(raw string) (*Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.signingKey, nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}
	return &claims, nil
}

// HashSecret hashes an operator-provisioned client secret for storage.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), 12)
	if err != nil {
		return "", fmt.Errorf("hashing client secret: %w", err)
	}
	return string(hash), nil
}

// VerifySecret reports whether secret matches the stored hash.
func VerifySecret(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
