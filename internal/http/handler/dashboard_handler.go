package handler

import (
	"net/http"

	"github.com/ecoroute/crm-api/internal/auth"
	"github.com/ecoroute/crm-api/internal/service"
	"go.uber.org/zap"
)

type DashboardHandler struct {
	dashboardService *service.DashboardService
	logger           *zap.Logger
}

func NewDashboardHandler(dashboardService *service.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		logger:           logger,
	}
}

// @Summary Get dashboard
// @Description Returns the caller's own pipeline figures regardless of role.
// @Description
// @Description **Stats:** claimed leads, active proposals (pending, approved, sent), in-progress contracts
// @Description (everything before signed), managed clients, and list sizes.
// @Description
// @Description **Pipeline:** proposal and contract breakdowns in fixed display order with zero counts filled in.
// @Description `leads` is always an empty list.
// @Description
// @Description **Lists:** next 5 scheduled events and last 5 activity entries.
// @Tags Dashboard
// @Produce json
// @Success 200 {object} domain.APIResponse{data=domain.DashboardReport}
// @Failure 500 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /dashboard [get]
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := auth.FromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	report, err := h.dashboardService.BuildReport(r.Context(), userCtx.Principal())
	if err != nil {
		respondServiceError(w, h.logger, err, "")
		return
	}

	respondData(w, report)
}
