package handlers

import (
	"context"
	"errors"
	"net/http"

	"blog-api/httpx"
	"blog-api/models"
	"blog-api/uploads"

	"go.uber.org/zap"
)

const (
	// uploadField is the multipart field carrying the file
	uploadField = "image"
	// maxUploadMemory is how much of a multipart body is buffered in memory before spilling to disk
	maxUploadMemory = 32 << 20
)

// UploadHandler stores a single uploaded file
type UploadHandler struct {
	storage uploads.Storage
}

func NewUploadHandler(storage uploads.Storage) *UploadHandler {
	return &UploadHandler{storage: storage}
}

// Upload handles POST /upload
func (h *UploadHandler) Upload(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		httpx.WriteValidationError(w, []httpx.FieldError{{Field: uploadField, Message: "must be sent as multipart/form-data"}})
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		httpx.WriteValidationError(w, []httpx.FieldError{{Field: uploadField, Message: "is required"}})
		return
	}
	defer file.Close()

	url, err := h.storage.Save(ctx, header.Filename, file, header.Size, header.Header.Get("Content-Type"))
	if errors.Is(err, uploads.ErrInvalidName) {
		httpx.WriteValidationError(w, []httpx.FieldError{{Field: uploadField, Message: "has an invalid file name"}})
		return
	}
	if err != nil {
		logRequest(ctx, "error", "Failed to store upload", zap.Error(err), zap.String("filename", header.Filename))
		httpx.Internal(w, "failed to store file")
		return
	}

	logRequest(ctx, "info", "File uploaded", zap.String("url", url))
	httpx.WriteJSON(w, models.UploadResponse{URL: url}, http.StatusOK)
}
