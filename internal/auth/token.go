package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "wa-campaign"

var signingMethod = jwt.SigningMethodHS256

type Claims struct {
	jwt.RegisteredClaims
	Role Role `json:"role"`
}

type Token struct {
	Value     string
	ExpiresAt time.Time
}

func (t Token) Expired(now time.Time) bool { return !now.Before(t.ExpiresAt) }

type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (i *TokenIssuer) Issue(u User) (Token, error) {
	return i.IssueWithExpiry(u, i.now().Add(i.ttl))
}

// IssueWithExpiry signs a token with an explicit expiry, which may be in the past.
func (i *TokenIssuer) IssueWithExpiry(u User, exp time.Time) (Token, error) {
	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Role: u.Role,
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(i.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	// NumericDate truncates to seconds
	return Token{Value: signed, ExpiresAt: claims.ExpiresAt.Time}, nil
}

func (i *TokenIssuer) keyFunc(t *jwt.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	}
	return i.secret, nil
}

func (i *TokenIssuer) Validate(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, i.keyFunc,
		jwt.WithTimeFunc(i.now),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
	default:
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
}

// Refresh accepts an expired token as long as its signature is good and it
// belongs to u, then issues a fresh one.
func (i *TokenIssuer) Refresh(u User, raw string) (Token, error) {
	claims := &Claims{}
	if _, err := jwt.ParseWithClaims(raw, claims, i.keyFunc, jwt.WithoutClaimsValidation()); err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.Subject != u.ID {
		return Token{}, fmt.Errorf("%w: subject mismatch", ErrTokenInvalid)
	}
	if !u.Active {
		return Token{}, fmt.Errorf("refresh for %s: %w", u.ID, ErrUserInactive)
	}
	return i.Issue(u)
}
