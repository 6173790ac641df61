package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Issuer is stamped into every relay token and required on verification.
const Issuer = "desk-relay"

const (
	defaultTokenTTL = time.Hour
	clockLeeway     = 30 * time.Second
)

var errMissingClient = errors.New("token names no client")

// TokenManager issues and verifies the HS256 tokens intake clients present.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	parser *jwt.Parser
}

// NewTokenManager builds a manager. A zero ttl falls back to one hour.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(clockLeeway),
		),
	}
}

// Enabled reports whether a secret is configured.
func (tm *TokenManager) Enabled() bool {
	return tm != nil && len(tm.secret) > 0
}

// Claims identify the intake client calling the relay.
type Claims struct {
	Client string `json:"client"`
	jwt.RegisteredClaims
}

// Issue signs a token for client, valid from now for the manager's ttl.
func (tm *TokenManager) Issue(client string, now time.Time) (string, time.Time, error) {
	if client == "" {
		return "", time.Time{}, errMissingClient
	}
	expiresAt := now.Add(tm.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Client: client,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   client,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify checks signature, issuer and expiry and returns the claims.
func (tm *TokenManager) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	if _, err := tm.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return tm.secret, nil
	}); err != nil {
		return nil, err
	}
	if claims.Client == "" {
		return nil, errMissingClient
	}
	return claims, nil
}
