package handler

import (
	"net/http"

	"github.com/ecoroute/crm-api/internal/auth"
	"github.com/ecoroute/crm-api/internal/filequery"
	"github.com/ecoroute/crm-api/internal/service"
	"go.uber.org/zap"
)

type FileHandler struct {
	fileService *service.FileService
	logger      *zap.Logger
}

func NewFileHandler(fileService *service.FileService, logger *zap.Logger) *FileHandler {
	return &FileHandler{
		fileService: fileService,
		logger:      logger,
	}
}

// @Summary List files
// @Description Lists files visible to the caller, newest first.
// @Description Facet counts are computed without the entityType filter so every category count stays visible.
// @Tags Files
// @Produce json
// @Param entityType query string false "Entity type or comma separated list" example(contract,signed_contract)
// @Param search query string false "Case-insensitive match on file name, related entity number or client name"
// @Param page query int false "Page number (default 1)"
// @Param limit query int false "Page size (default 10, max 100)"
// @Param dateFrom query string false "Inclusive start date (YYYY-MM-DD, UTC)"
// @Param dateTo query string false "Inclusive end date (YYYY-MM-DD, UTC)"
// @Success 200 {object} domain.FileListResponse
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /files [get]
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := auth.FromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	params, err := filequery.ParseParams(r.URL.Query())
	if err != nil {
		respondValidationError(w, err)
		return
	}

	resp, err := h.fileService.List(r.Context(), userCtx.Principal(), params)
	if err != nil {
		respondServiceError(w, h.logger, err, "")
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// @Summary Get file metadata
// @Tags Files
// @Produce json
// @Param id path string true "File ID"
// @Success 200 {object} domain.APIResponse{data=domain.FileDTO}
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /files/{id} [get]
func (h *FileHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := auth.FromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid file ID: must be a valid UUID")
		return
	}

	file, err := h.fileService.GetByID(r.Context(), userCtx.Principal(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "File not found")
		return
	}

	respondData(w, file)
}

// @Summary Get download link
// @Description Returns a presigned URL valid for 900 seconds.
// @Tags Files
// @Produce json
// @Param id path string true "File ID"
// @Success 200 {object} domain.APIResponse{data=domain.DownloadURLDTO}
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /files/{id}/download [get]
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := auth.FromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid file ID: must be a valid UUID")
		return
	}

	link, err := h.fileService.DownloadURL(r.Context(), userCtx.Principal(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "File not found")
		return
	}

	respondData(w, link)
}
