package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Iornfire12211221/KNG-sub001/internal/domain/enums"
	"github.com/Iornfire12211221/KNG-sub001/internal/domain/model"
	authsvc "github.com/Iornfire12211221/KNG-sub001/internal/services/auth"
	postssvc "github.com/Iornfire12211221/KNG-sub001/internal/services/posts"
	ratesvc "github.com/Iornfire12211221/KNG-sub001/internal/services/rate"
	"github.com/Iornfire12211221/KNG-sub001/internal/transport/http/dto"
	httperrors "github.com/Iornfire12211221/KNG-sub001/internal/transport/http/errors"
)

// UserLookup resolves the authenticated user for author attribution.
type UserLookup interface {
	Get(ctx context.Context, id int64) (model.User, error)
}

type PostsHandler struct {
	service *postssvc.Service
	users   UserLookup
	limiter *ratesvc.Limiter
	logger  *zap.Logger
}

func NewPostsHandler(service *postssvc.Service, users UserLookup, logger *zap.Logger) *PostsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostsHandler{service: service, users: users, logger: logger}
}

// AttachRateLimiter enables submission throttling; without it posts go
// through unthrottled (degraded mode when redis is down).
func (h *PostsHandler) AttachRateLimiter(limiter *ratesvc.Limiter) {
	h.limiter = limiter
}

func (h *PostsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "POSTS_SERVICE_UNAVAILABLE", "posts service is unavailable")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeBadRequest(w, "VALIDATION_ERROR", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	posts, err := h.service.ListActive(r.Context(), time.Now(), limit)
	if err != nil {
		h.logger.Error("list active posts failed", zap.Error(err))
		writeInternal(w, "INTERNAL_ERROR", "failed to list posts")
		return
	}

	httperrors.WriteData(w, http.StatusOK, posts)
}

func (h *PostsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "POSTS_SERVICE_UNAVAILABLE", "posts service is unavailable")
		return
	}

	if h.limiter != nil {
		retryAfter, allowed, err := h.limiter.AllowPost(r.Context(), identity.UserID)
		if err != nil {
			h.logger.Warn("rate limiter unavailable, letting submission through", zap.Error(err))
		} else if !allowed {
			httperrors.WriteRateLimited(w, retryAfter)
			return
		}
	}

	var req dto.SubmitPostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	userName := req.UserName
	if h.users != nil {
		if user, err := h.users.Get(r.Context(), identity.UserID); err == nil {
			userName = user.Name
		}
	}

	post, err := h.service.Submit(r.Context(), postssvc.SubmitInput{
		Description: req.Description,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Address:     req.Address,
		UserID:      identity.UserID,
		UserName:    userName,
		Category:    req.Type,
		Severity:    req.Severity,
		PhotoKey:    req.PhotoKey,
	})
	if err != nil {
		switch {
		case errors.Is(err, postssvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", err.Error())
		default:
			h.logger.Error("submit post failed", zap.Error(err))
			writeInternal(w, "INTERNAL_ERROR", "failed to submit post")
		}
		return
	}

	httperrors.WriteData(w, http.StatusCreated, post)
}

func (h *PostsHandler) Like(w http.ResponseWriter, r *http.Request) {
	if _, ok := identityOrFail(w, r); !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "POSTS_SERVICE_UNAVAILABLE", "posts service is unavailable")
		return
	}

	post, err := h.service.Like(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handlePostError(w, h.logger, err, "like post failed")
		return
	}

	httperrors.WriteData(w, http.StatusOK, dto.LikeResponse{Likes: post.Likes})
}

func (h *PostsHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "POSTS_SERVICE_UNAVAILABLE", "posts service is unavailable")
		return
	}
	if !h.mayManage(w, r, identity, chi.URLParam(r, "id")) {
		return
	}

	var req dto.UpdatePostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	post, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), postssvc.Patch{
		Description: req.Description,
		Address:     req.Address,
		Severity:    req.Severity,
	})
	if err != nil {
		handlePostError(w, h.logger, err, "update post failed")
		return
	}

	httperrors.WriteData(w, http.StatusOK, post)
}

func (h *PostsHandler) Remove(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "POSTS_SERVICE_UNAVAILABLE", "posts service is unavailable")
		return
	}
	if !h.mayManage(w, r, identity, chi.URLParam(r, "id")) {
		return
	}

	if err := h.service.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		handlePostError(w, h.logger, err, "remove post failed")
		return
	}

	httperrors.WriteData(w, http.StatusOK, map[string]bool{"deleted": true})
}

// mayManage allows the author and anyone with moderator privileges.
func (h *PostsHandler) mayManage(w http.ResponseWriter, r *http.Request, identity authsvc.Identity, postID string) bool {
	post, err := h.service.Get(r.Context(), postID)
	if err != nil {
		handlePostError(w, h.logger, err, "load post failed")
		return false
	}

	if post.UserID != identity.UserID && !enums.ParseRole(identity.Role).AtLeast(enums.RoleModerator) {
		writeForbidden(w, "FORBIDDEN", "not the author of this post")
		return false
	}
	return true
}

func handlePostError(w http.ResponseWriter, logger *zap.Logger, err error, logMessage string) {
	switch {
	case errors.Is(err, postssvc.ErrNotFound):
		writeNotFound(w, "POST_NOT_FOUND", "post not found")
	case errors.Is(err, postssvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
	default:
		logger.Error(logMessage, zap.Error(err))
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
