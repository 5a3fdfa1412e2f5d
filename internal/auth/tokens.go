package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims is the identity payload carried by both access and refresh tokens.
type Claims struct {
	UserID int    `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates the two session tokens. Access and
// refresh tokens use independent secrets so one cannot stand in for the
// other.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewTokenIssuer(accessSecret, refreshSecret []byte) *TokenIssuer {
	return &TokenIssuer{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessTTL:     time.Hour,
		refreshTTL:    7 * 24 * time.Hour,
	}
}

// NewTokenIssuerWithTTL is used by tests that need short expirations.
func NewTokenIssuerWithTTL(accessSecret, refreshSecret []byte, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	ti := NewTokenIssuer(accessSecret, refreshSecret)
	ti.accessTTL = accessTTL
	ti.refreshTTL = refreshTTL
	return ti
}

// Issue returns a fresh access/refresh token pair for the identity.
func (ti *TokenIssuer) Issue(userID int, email, role string) (accessToken, refreshToken string, err error) {
	accessToken, err = ti.sign(userID, email, role, ti.accessSecret, ti.accessTTL)
	if err != nil {
		return "", "", err
	}
	refreshToken, err = ti.sign(userID, email, role, ti.refreshSecret, ti.refreshTTL)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func (ti *TokenIssuer) sign(userID int, email, role string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ValidateAccess parses and verifies an access token.
func (ti *TokenIssuer) ValidateAccess(token string) (*Claims, error) {
	return ti.validate(token, ti.accessSecret)
}

// ValidateRefresh parses and verifies a refresh token.
func (ti *TokenIssuer) ValidateRefresh(token string) (*Claims, error) {
	return ti.validate(token, ti.refreshSecret)
}

func (ti *TokenIssuer) validate(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
