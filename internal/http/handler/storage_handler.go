package handler

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/ecoroute/crm-api/internal/storage"
	"go.uber.org/zap"
)

// LocalStorageHandler serves files behind signed links when storage mode is local
type LocalStorageHandler struct {
	store  *storage.LocalStorage
	logger *zap.Logger
}

func NewLocalStorageHandler(store *storage.LocalStorage, logger *zap.Logger) *LocalStorageHandler {
	return &LocalStorageHandler{
		store:  store,
		logger: logger,
	}
}

// Serve streams the file named by the path once its token checks out.
// The token is the only credential; no session is required.
func (h *LocalStorageHandler) Serve(w http.ResponseWriter, r *http.Request) {
	storagePath := strings.TrimPrefix(r.URL.Path, storage.LocalRoutePrefix)

	if err := h.store.Verify(storagePath, r.URL.Query().Get("token")); err != nil {
		respondWithError(w, http.StatusForbidden, storage.ErrInvalidSignature.Error())
		return
	}

	body, err := h.store.Open(r.Context(), storagePath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			respondWithError(w, http.StatusNotFound, "File not found")
			return
		}
		h.logger.Error("failed to open local file", zap.Error(err), zap.String("path", storagePath))
		respondWithError(w, http.StatusInternalServerError, "Failed to read file")
		return
	}
	defer body.Close()

	name := path.Base(storagePath)
	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("failed to stream local file", zap.Error(err), zap.String("path", storagePath))
	}
}
