package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types carried in the typ claim. An access token is never accepted
// where a refresh token is expected, and vice versa.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// ErrWrongTokenType is returned when a token's typ claim does not match.
var ErrWrongTokenType = errors.New("wrong token type")

// Claims are the JWT claims of both token types.
type Claims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// JWTManager signs and verifies HS256 tokens.
type JWTManager struct {
	secret        []byte
	issuer        string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	now           func() time.Time
}

// NewJWTManager creates a new JWT manager with the given secret and expiry durations.
func NewJWTManager(secret, issuer string, accessExpiry, refreshExpiry time.Duration) *JWTManager {
	return &JWTManager{
		secret:        []byte(secret),
		issuer:        issuer,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		now:           time.Now,
	}
}

// RefreshExpiry is the lifetime of refresh tokens.
func (m *JWTManager) RefreshExpiry() time.Duration {
	return m.refreshExpiry
}

// GenerateAccessToken signs an access token for userID.
func (m *JWTManager) GenerateAccessToken(userID string) (string, error) {
	token, _, err := m.sign(userID, TokenTypeAccess, m.accessExpiry, "")
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return token, nil
}

// GenerateRefreshToken signs a refresh token for userID and returns its
// expiry. Each token carries a random jti, so two tokens issued in the same
// second still differ.
func (m *JWTManager) GenerateRefreshToken(userID string) (string, time.Time, error) {
	token, exp, err := m.sign(userID, TokenTypeRefresh, m.refreshExpiry, uuid.NewString())
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return token, exp, nil
}

func (m *JWTManager) sign(userID, typ string, ttl time.Duration, jti string) (string, time.Time, error) {
	now := m.now().UTC()
	exp := now.Add(ttl)
	claims := &Claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        jti,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ValidateAccessToken parses and validates an access token, returning the claims.
func (m *JWTManager) ValidateAccessToken(tokenString string) (*Claims, error) {
	return m.validate(tokenString, TokenTypeAccess)
}

// ValidateRefreshToken parses and validates a refresh token, returning the claims.
func (m *JWTManager) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return m.validate(tokenString, TokenTypeRefresh)
}

// VerifyAccessToken returns the subject of a valid access token. It has the
// shape of middleware.TokenVerifier.
func (m *JWTManager) VerifyAccessToken(tokenString string) (string, error) {
	claims, err := m.ValidateAccessToken(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (m *JWTManager) validate(tokenString, typ string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("parse %s token: %w", typ, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid %s token claims", typ)
	}
	if claims.Type != typ {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrWrongTokenType, claims.Type, typ)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%s token has no subject", typ)
	}

	return claims, nil
}
