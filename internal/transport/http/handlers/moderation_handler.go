package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Iornfire12211221/KNG-sub001/internal/domain/enums"
	modsvc "github.com/Iornfire12211221/KNG-sub001/internal/services/moderation"
	postssvc "github.com/Iornfire12211221/KNG-sub001/internal/services/posts"
	"github.com/Iornfire12211221/KNG-sub001/internal/transport/http/dto"
	httperrors "github.com/Iornfire12211221/KNG-sub001/internal/transport/http/errors"
)

// ModerationHandler is the moderator surface: the flagged queue, manual
// overrides and the learning feedback loop.
type ModerationHandler struct {
	posts  *postssvc.Service
	engine *modsvc.Engine
	logger *zap.Logger
}

func NewModerationHandler(posts *postssvc.Service, engine *modsvc.Engine, logger *zap.Logger) *ModerationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModerationHandler{posts: posts, engine: engine, logger: logger}
}

func (h *ModerationHandler) Queue(w http.ResponseWriter, r *http.Request) {
	if h.posts == nil {
		writeInternal(w, "POSTS_SERVICE_UNAVAILABLE", "posts service is unavailable")
		return
	}

	flagged, err := h.posts.ListFlagged(r.Context(), 0)
	if err != nil {
		h.logger.Error("list flagged posts failed", zap.Error(err))
		writeInternal(w, "INTERNAL_ERROR", "failed to load moderation queue")
		return
	}

	httperrors.WriteData(w, http.StatusOK, flagged)
}

func (h *ModerationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, enums.ModerationStatusApproved)
}

func (h *ModerationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, enums.ModerationStatusRejected)
}

func (h *ModerationHandler) resolve(w http.ResponseWriter, r *http.Request, status enums.ModerationStatus) {
	if h.posts == nil {
		writeInternal(w, "POSTS_SERVICE_UNAVAILABLE", "posts service is unavailable")
		return
	}

	post, err := h.posts.SetStatus(r.Context(), chi.URLParam(r, "id"), status)
	if err != nil {
		handlePostError(w, h.logger, err, "moderation resolve failed")
		return
	}

	httperrors.WriteData(w, http.StatusOK, post)
}

// Feedback feeds a moderator's verdict back into the engine's accuracy
// tracking.
func (h *ModerationHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		writeInternal(w, "MODERATION_ENGINE_UNAVAILABLE", "moderation engine is unavailable")
		return
	}

	var req dto.ModerationFeedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	action, err := enums.ParseModerationAction(req.CorrectAction)
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "correct_action must be approve, reject or flag")
		return
	}

	if err := h.engine.LearnFromFeedback(r.Context(), chi.URLParam(r, "id"), action); err != nil {
		if errors.Is(err, modsvc.ErrMissingPostFields) {
			writeBadRequest(w, "VALIDATION_ERROR", err.Error())
			return
		}
		h.logger.Error("moderation feedback failed", zap.Error(err))
		writeInternal(w, "INTERNAL_ERROR", "failed to record feedback")
		return
	}

	httperrors.WriteData(w, http.StatusOK, map[string]bool{"recorded": true})
}

func (h *ModerationHandler) Stats(w http.ResponseWriter, _ *http.Request) {
	if h.engine == nil {
		writeInternal(w, "MODERATION_ENGINE_UNAVAILABLE", "moderation engine is unavailable")
		return
	}

	snapshot := h.engine.Stats()
	httperrors.WriteData(w, http.StatusOK, dto.ModerationStatsResponse{
		Approved:       snapshot.Approved,
		Rejected:       snapshot.Rejected,
		Flagged:        snapshot.Flagged,
		AvgConfidence:  snapshot.AvgConfidence,
		LearningCycles: snapshot.LearningCycles,
		Accuracy:       snapshot.Accuracy,
	})
}
