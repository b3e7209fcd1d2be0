package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/crmadmin/access-core/internal/core/domain"
)

const (
	defaultTokenTTL = time.Hour
	tokenIssuer     = "crm-access-core"
)

// TokenClaims is the payload carried by access tokens.
type TokenClaims struct {
	jwt.RegisteredClaims
	Role       domain.Role `json:"role"`
	PositionID string      `json:"pos,omitempty"`
}

// TokenService signs and verifies HS256 access tokens. Tokens are not
// persisted; validity is computed from the signature and expiry alone.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL returns the lifetime given to newly issued tokens.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs a token for user and returns it with its expiry.
func (s *TokenService) Issue(user *domain.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
		Role: user.Role,
	}
	if user.PositionID != nil {
		claims.PositionID = *user.PositionID
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies the signature and expiry of raw. An expired but otherwise
// well-formed token always yields ErrTokenExpired; every other failure is
// ErrTokenInvalid.
func (s *TokenService) Parse(raw string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.NewAuthError(domain.KindTokenExpired, err)
		}
		return nil, domain.NewAuthError(domain.KindTokenInvalid, err)
	}
	if !token.Valid {
		return nil, domain.ErrTokenInvalid
	}

	if claims.Subject == "" {
		return nil, domain.NewAuthError(domain.KindTokenInvalid, errors.New("missing subject"))
	}
	if _, err := domain.ParseRole(string(claims.Role)); err != nil {
		return nil, domain.NewAuthError(domain.KindTokenInvalid, err)
	}
	return claims, nil
}
