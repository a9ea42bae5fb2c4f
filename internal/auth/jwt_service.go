package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "gcpanel/internal/errors"
)

const (
	// AccessTokenExpiry is used when no access TTL is configured.
	AccessTokenExpiry = 30 * time.Minute
	// RefreshTokenExpiry is used when no refresh TTL is configured.
	RefreshTokenExpiry = 7 * 24 * time.Hour

	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Identity is what a token says about its holder.
type Identity struct {
	UserID   uint
	Username string
	Roles    []string
}

// Claims represents JWT claims. The subject is the decimal user id.
type Claims struct {
	Username string   `json:"username,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	Type     string   `json:"typ"`
	jwt.RegisteredClaims
}

// UserID decodes the subject claim.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: bad subject %q", apperrors.ErrInvalidToken, c.Subject)
	}
	return uint(id), nil
}

// TTL is the time left before the token expires.
func (c *Claims) TTL(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Time.Sub(now)
}

// JWTService handles JWT token generation and validation.
type JWTService struct {
	secret []byte
	now    func() time.Time
}

// NewJWTService creates a new JWT service with the given secret.
func NewJWTService(secret string) *JWTService {
	return &JWTService{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Secret exposes the signing key for the echo-jwt middleware.
func (s *JWTService) Secret() []byte { return s.secret }

// CreateAccessToken issues an access token carrying only the user id.
func (s *JWTService) CreateAccessToken(userID uint, ttl time.Duration) (string, error) {
	return s.CreateAccessTokenFor(Identity{UserID: userID}, ttl)
}

// CreateAccessTokenFor issues an access token with username and roles claims.
func (s *JWTService) CreateAccessTokenFor(id Identity, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = AccessTokenExpiry
	}
	_, token, err := s.sign(id, TokenTypeAccess, ttl)
	return token, err
}

// CreateRefreshToken issues a refresh token. The token ID is returned
// separately for storage in the token store.
func (s *JWTService) CreateRefreshToken(id Identity, ttl time.Duration) (tokenID string, token string, err error) {
	if ttl <= 0 {
		ttl = RefreshTokenExpiry
	}
	return s.sign(id, TokenTypeRefresh, ttl)
}

func (s *JWTService) sign(id Identity, typ string, ttl time.Duration) (string, string, error) {
	now := s.now()
	tokenID := uuid.NewString()
	claims := &Claims{
		Username: id.Username,
		Roles:    id.Roles,
		Type:     typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   strconv.FormatUint(uint64(id.UserID), 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return tokenID, token, nil
}

// ParseToken verifies signature, method and expiry and returns the claims.
// Every failure matches apperrors.ErrInvalidToken.
func (s *JWTService) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperrors.ErrInvalidToken
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: token ID not found", apperrors.ErrInvalidToken)
	}
	return claims, nil
}

// ParseTokenOfType parses a token and checks its typ claim.
func (s *JWTService) ParseTokenOfType(tokenString, typ string) (*Claims, error) {
	claims, err := s.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != typ {
		return nil, fmt.Errorf("%w: expected %s token", apperrors.ErrInvalidToken, typ)
	}
	return claims, nil
}
