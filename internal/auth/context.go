package auth

import (
	"context"

	"github.com/ecoroute/crm-api/internal/domain"
	"github.com/google/uuid"
)

// UserContext holds authenticated user information
type UserContext struct {
	UserID        uuid.UUID
	DisplayName   string
	Email         string
	Role          domain.Role
	IsMasterSales bool
}

type contextKey string

const userContextKey contextKey = "userContext"

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok && user != nil
}

// Principal is the subset of the user that visibility rules are evaluated against
func (u *UserContext) Principal() domain.Principal {
	return domain.Principal{
		ID:            u.UserID,
		Role:          u.Role,
		IsMasterSales: u.IsMasterSales,
	}
}

// HasAnyRole checks if user has any of the specified roles
func (u *UserContext) HasAnyRole(roles ...domain.Role) bool {
	for _, role := range roles {
		if u.Role == role {
			return true
		}
	}
	return false
}
