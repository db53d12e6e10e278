package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ecoroute/crm-api/internal/config"
	"github.com/ecoroute/crm-api/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserLookup loads the stored user record for a token subject
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// Middleware handles authentication for HTTP requests
type Middleware struct {
	jwtValidator  *JWTValidator
	apiKey        string
	users         UserLookup
	refreshFromDB bool
	logger        *zap.Logger
}

// NewMiddleware creates a new authentication middleware. users may be nil
// when role refresh from the database is disabled.
func NewMiddleware(cfg *config.Config, users UserLookup, logger *zap.Logger) *Middleware {
	return &Middleware{
		jwtValidator:  NewJWTValidator(&cfg.Auth),
		apiKey:        cfg.Auth.APIKey,
		users:         users,
		refreshFromDB: cfg.Auth.RefreshFromDB && users != nil,
		logger:        logger,
	}
}

// systemUser is the principal for API key requests
func systemUser() *UserContext {
	return &UserContext{
		UserID:      uuid.Nil,
		DisplayName: "System",
		Email:       "system@ecoroute.io",
		Role:        domain.RoleSuperAdmin,
	}
}

// Authenticate is the main authentication middleware
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Try API key first
		if apiKey := r.Header.Get("x-api-key"); apiKey != "" {
			if !m.validateAPIKey(apiKey) {
				m.logger.Warn("invalid API key attempt",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			userCtx := systemUser()
			m.logger.Info("request authenticated",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("auth_type", "api_key"),
				zap.Duration("auth_duration", time.Since(start)),
			)
			next.ServeHTTP(w, r.WithContext(WithUserContext(r.Context(), userCtx)))
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Unauthorized: missing authorization header", http.StatusUnauthorized)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			http.Error(w, "Unauthorized: invalid authorization header format", http.StatusUnauthorized)
			return
		}

		userCtx, err := m.jwtValidator.ValidateToken(parts[1])
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err),
			)
			http.Error(w, "Unauthorized: "+err.Error(), http.StatusUnauthorized)
			return
		}

		if m.refreshFromDB {
			if err := m.refresh(r.Context(), userCtx); err != nil {
				m.logger.Warn("user refresh rejected request",
					zap.String("user_id", userCtx.UserID.String()),
					zap.Error(err),
				)
				// The cause may come from the database and stays in the log
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}

		m.logger.Info("request authenticated",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("auth_type", "jwt"),
			zap.String("user_id", userCtx.UserID.String()),
			zap.String("role", string(userCtx.Role)),
			zap.Duration("auth_duration", time.Since(start)),
		)

		next.ServeHTTP(w, r.WithContext(WithUserContext(r.Context(), userCtx)))
	})
}

// refresh replaces token claims with the stored role and flags so that
// demotions take effect before the token expires
func (m *Middleware) refresh(ctx context.Context, userCtx *UserContext) error {
	user, err := m.users.GetByID(ctx, userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("unknown user")
		}
		return fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive {
		return errors.New("user is deactivated")
	}
	if !user.Role.IsValid() {
		return fmt.Errorf("stored role %q is not recognised", user.Role)
	}

	userCtx.Role = user.Role
	userCtx.IsMasterSales = user.IsMasterSales
	userCtx.DisplayName = user.DisplayName
	userCtx.Email = user.Email
	return nil
}

// RequireRole middleware ensures user has specific role
func (m *Middleware) RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userCtx, ok := FromContext(r.Context())
			if !ok {
				http.Error(w, "Forbidden: no user context", http.StatusForbidden)
				return
			}

			if !userCtx.HasAnyRole(roles...) {
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (m *Middleware) validateAPIKey(key string) bool {
	if m.apiKey == "" {
		return false
	}
	// Constant-time comparison to prevent timing attacks
	return subtle.ConstantTimeCompare([]byte(key), []byte(m.apiKey)) == 1
}
