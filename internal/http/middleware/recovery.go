package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"github.com/ecoroute/crm-api/internal/domain"
	applog "github.com/ecoroute/crm-api/internal/logger"
	"go.uber.org/zap"
)

// Recovery turns a handler panic into a 500 problem response and logs the stack
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				applog.WithRequest(logger, r.Method, r.URL.Path, RequestIDFromContext(r.Context())).Error("panic recovered",
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()),
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(domain.APIError{
					Type:   domain.ErrorTypeInternal,
					Title:  "Internal Server Error",
					Status: http.StatusInternalServerError,
					Detail: "Internal server error",
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
