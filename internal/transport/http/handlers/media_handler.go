package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	mediasvc "github.com/Iornfire12211221/KNG-sub001/internal/services/media"
	"github.com/Iornfire12211221/KNG-sub001/internal/transport/http/dto"
	httperrors "github.com/Iornfire12211221/KNG-sub001/internal/transport/http/errors"
)

type MediaHandler struct {
	service *mediasvc.Service
	logger  *zap.Logger
}

func NewMediaHandler(service *mediasvc.Service, logger *zap.Logger) *MediaHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaHandler{service: service, logger: logger}
}

// UploadPhoto accepts a multipart "photo" part and returns the stored
// object key plus a signed link.
func (h *MediaHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "MEDIA_SERVICE_UNAVAILABLE", "media service is unavailable")
		return
	}

	if err := r.ParseMultipartForm(mediasvc.MaxPhotoSize); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "photo part is required")
		return
	}
	defer file.Close()

	photo, err := h.service.UploadEvidence(
		r.Context(), identity.UserID,
		header.Filename, header.Header.Get("Content-Type"),
		file, header.Size,
	)
	if err != nil {
		switch {
		case errors.Is(err, mediasvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid photo payload")
		case errors.Is(err, mediasvc.ErrPhotoTooBig):
			writeBadRequest(w, "PHOTO_TOO_BIG", "photo exceeds the size limit")
		case errors.Is(err, mediasvc.ErrUnsupported):
			writeBadRequest(w, "UNSUPPORTED_MEDIA", "photo must be jpeg, png or webp")
		default:
			h.logger.Error("photo upload failed", zap.Error(err))
			writeInternal(w, "INTERNAL_ERROR", "failed to store photo")
		}
		return
	}

	httperrors.WriteData(w, http.StatusCreated, dto.PhotoUploadResponse{
		Key: photo.Key,
		URL: photo.URL,
	})
}
