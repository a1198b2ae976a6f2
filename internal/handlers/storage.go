package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ObjectReader reads objects written through repository.AvatarStorage by
// stores that keep them locally.
type ObjectReader interface {
	Object(ctx context.Context, bucket, path string) ([]byte, string, error)
}

// StorageHandler serves public objects for local stores.
type StorageHandler struct {
	objects ObjectReader
	logger  *zap.Logger
}

// NewStorageHandler creates a StorageHandler.
func NewStorageHandler(objects ObjectReader, logger *zap.Logger) *StorageHandler {
	return &StorageHandler{objects: objects, logger: logger}
}

// PublicObject handles GET /storage/v1/object/public/{bucket}/*
//
//	@Summary	Fetch a public object
//	@Tags		storage
//	@Produce	octet-stream
//	@Param		bucket	path	string	true	"Bucket name"
//	@Param		path	path	string	true	"Object path"
//	@Success	200
//	@Failure	404	{object}	api.ErrorResponse
//	@Router		/storage/v1/object/public/{bucket}/{path} [get]
func (h *StorageHandler) PublicObject(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	path := chi.URLParam(r, "*")

	body, contentType, err := h.objects.Object(r.Context(), bucket, path)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Header().Set("Cache-Control", "public, max-age=60")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
