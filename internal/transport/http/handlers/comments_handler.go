package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Iornfire12211221/KNG-sub001/internal/domain/model"
	commentssvc "github.com/Iornfire12211221/KNG-sub001/internal/services/comments"
	"github.com/Iornfire12211221/KNG-sub001/internal/transport/http/dto"
	httperrors "github.com/Iornfire12211221/KNG-sub001/internal/transport/http/errors"
)

type CommentsHandler struct {
	service *commentssvc.Service
	users   UserLookup
	logger  *zap.Logger
}

func NewCommentsHandler(service *commentssvc.Service, users UserLookup, logger *zap.Logger) *CommentsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentsHandler{service: service, users: users, logger: logger}
}

func (h *CommentsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "COMMENTS_SERVICE_UNAVAILABLE", "comments service is unavailable")
		return
	}

	comments, err := h.service.ListByPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, commentssvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "post id is required")
		default:
			h.logger.Error("list comments failed", zap.Error(err))
			writeInternal(w, "INTERNAL_ERROR", "failed to list comments")
		}
		return
	}

	httperrors.WriteData(w, http.StatusOK, comments)
}

func (h *CommentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "COMMENTS_SERVICE_UNAVAILABLE", "comments service is unavailable")
		return
	}

	var req dto.CreateCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	author := model.User{ID: identity.UserID}
	if h.users != nil {
		if user, err := h.users.Get(r.Context(), identity.UserID); err == nil {
			author = user
		}
	}

	comment, err := h.service.Create(r.Context(), chi.URLParam(r, "id"), author, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, commentssvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", err.Error())
		case errors.Is(err, commentssvc.ErrPostNotFound):
			writeNotFound(w, "POST_NOT_FOUND", "post not found")
		default:
			h.logger.Error("create comment failed", zap.Error(err))
			writeInternal(w, "INTERNAL_ERROR", "failed to create comment")
		}
		return
	}

	httperrors.WriteData(w, http.StatusCreated, comment)
}
