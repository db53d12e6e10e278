package handler

import (
	"net/http"

	"github.com/ecoroute/crm-api/internal/auth"
	"github.com/ecoroute/crm-api/internal/service"
	"go.uber.org/zap"
)

// PipelineHandler serves proposals and contracts
type PipelineHandler struct {
	pipelineService *service.PipelineService
	logger          *zap.Logger
}

func NewPipelineHandler(pipelineService *service.PipelineService, logger *zap.Logger) *PipelineHandler {
	return &PipelineHandler{
		pipelineService: pipelineService,
		logger:          logger,
	}
}

// @Summary List proposals
// @Description Sales users see their own proposals; master sales, admins and super admins see all.
// @Tags Proposals
// @Produce json
// @Success 200 {object} domain.APIResponse{data=[]domain.ProposalDTO}
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /proposals [get]
func (h *PipelineHandler) ListProposals(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := auth.FromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	proposals, err := h.pipelineService.ListProposals(r.Context(), userCtx.Principal())
	if err != nil {
		respondServiceError(w, h.logger, err, "")
		return
	}
	respondData(w, proposals)
}

// @Summary Get proposal
// @Description proposalData is reported as ok, malformed (with the raw stored text) or missing.
// @Tags Proposals
// @Produce json
// @Param id path string true "Proposal ID"
// @Success 200 {object} domain.APIResponse{data=domain.ProposalDTO}
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /proposals/{id} [get]
func (h *PipelineHandler) GetProposal(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := auth.FromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid proposal ID: must be a valid UUID")
		return
	}

	proposal, err := h.pipelineService.GetProposal(r.Context(), userCtx.Principal(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Proposal not found")
		return
	}
	respondData(w, proposal)
}

// @Summary List contracts
// @Tags Contracts
// @Produce json
// @Success 200 {object} domain.APIResponse{data=[]domain.ContractDTO}
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /contracts [get]
func (h *PipelineHandler) ListContracts(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := auth.FromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	contracts, err := h.pipelineService.ListContracts(r.Context(), userCtx.Principal())
	if err != nil {
		respondServiceError(w, h.logger, err, "")
		return
	}
	respondData(w, contracts)
}

// @Summary Get contract
// @Tags Contracts
// @Produce json
// @Param id path string true "Contract ID"
// @Success 200 {object} domain.APIResponse{data=domain.ContractDTO}
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /contracts/{id} [get]
func (h *PipelineHandler) GetContract(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := auth.FromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid contract ID: must be a valid UUID")
		return
	}

	contract, err := h.pipelineService.GetContract(r.Context(), userCtx.Principal(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Contract not found")
		return
	}
	respondData(w, contract)
}
