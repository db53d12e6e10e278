package auth

import (
	"errors"
	"fmt"

	"github.com/ecoroute/crm-api/internal/config"
	"github.com/ecoroute/crm-api/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims are the application claims carried by access tokens.
// Subject holds the user id.
type Claims struct {
	jwt.RegisteredClaims
	Name          string `json:"name,omitempty"`
	Email         string `json:"email,omitempty"`
	Role          string `json:"role"`
	IsMasterSales bool   `json:"isMasterSales,omitempty"`
}

// JWTValidator validates HS256 access tokens issued by the identity service
type JWTValidator struct {
	secret []byte
	issuer string
}

// NewJWTValidator creates a new JWT validator
func NewJWTValidator(cfg *config.AuthConfig) *JWTValidator {
	return &JWTValidator{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.JWTIssuer,
	}
}

// Enabled reports whether a signing secret is configured
func (v *JWTValidator) Enabled() bool {
	return len(v.secret) > 0
}

// ValidateToken validates a JWT token and returns user context
func (v *JWTValidator) ValidateToken(tokenString string) (*UserContext, error) {
	if !v.Enabled() {
		return nil, fmt.Errorf("%w: token validation is not configured", ErrInvalidToken)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}

	role := domain.Role(claims.Role)
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}

	return &UserContext{
		UserID:        userID,
		DisplayName:   claims.Name,
		Email:         claims.Email,
		Role:          role,
		IsMasterSales: claims.IsMasterSales,
	}, nil
}
