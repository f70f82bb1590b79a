package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Iornfire12211221/KNG-sub001/internal/domain/enums"
	"github.com/Iornfire12211221/KNG-sub001/internal/domain/model"
	locationsvc "github.com/Iornfire12211221/KNG-sub001/internal/services/location"
	userssvc "github.com/Iornfire12211221/KNG-sub001/internal/services/users"
	"github.com/Iornfire12211221/KNG-sub001/internal/transport/http/dto"
	httperrors "github.com/Iornfire12211221/KNG-sub001/internal/transport/http/errors"
)

type UsersHandler struct {
	service  *userssvc.Service
	resolver *locationsvc.Resolver
	logger   *zap.Logger
}

func NewUsersHandler(service *userssvc.Service, resolver *locationsvc.Resolver, logger *zap.Logger) *UsersHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UsersHandler{service: service, resolver: resolver, logger: logger}
}

func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "USERS_SERVICE_UNAVAILABLE", "users service is unavailable")
		return
	}

	user, err := h.service.Get(r.Context(), identity.UserID)
	if err != nil {
		handleUserError(w, h.logger, err)
		return
	}

	httperrors.WriteData(w, http.StatusOK, user)
}

func (h *UsersHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "USERS_SERVICE_UNAVAILABLE", "users service is unavailable")
		return
	}

	var req dto.PreferencesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	current, err := h.service.Get(r.Context(), identity.UserID)
	if err != nil {
		handleUserError(w, h.logger, err)
		return
	}

	prefs := current.Preferences
	if req.Enabled != nil {
		prefs.Enabled = *req.Enabled
	}
	if req.RadiusKM != nil {
		prefs.RadiusKM = *req.RadiusKM
	}
	if req.Categories != nil {
		categories := make(map[enums.PostCategory]bool, len(req.Categories))
		for name, enabled := range req.Categories {
			categories[enums.PostCategory(name)] = enabled
		}
		prefs.Categories = categories
	}
	prefs.QuietStart = req.QuietStart
	prefs.QuietEnd = req.QuietEnd

	if err := h.service.UpdatePreferences(r.Context(), identity.UserID, prefs); err != nil {
		handleUserError(w, h.logger, err)
		return
	}

	httperrors.WriteData(w, http.StatusOK, prefs)
}

// ReportLocation stores the client's fix and answers with the nearest
// street address when the geocoder knows it.
func (h *UsersHandler) ReportLocation(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}
	if h.resolver == nil {
		writeInternal(w, "LOCATION_SERVICE_UNAVAILABLE", "location service is unavailable")
		return
	}

	var req dto.ReportLocationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		// No coordinates from the client; walk the resolver's fallback
		// chain (cached fix, then IP estimate).
		fix, err := h.resolver.Resolve(r.Context(), identity.UserID, clientIP(r))
		if err != nil {
			h.logger.Error("location resolution failed", zap.Error(err), zap.Int64("user_id", identity.UserID))
			writeInternal(w, "INTERNAL_ERROR", "failed to resolve location")
			return
		}
		if fix == nil {
			httperrors.WriteData(w, http.StatusOK, dto.ReportLocationResponse{})
			return
		}
		address, aerr := h.resolver.ResolveAddress(r.Context(), fix.Latitude, fix.Longitude)
		if aerr != nil {
			h.logger.Debug("address resolution failed", zap.Error(aerr))
		}
		httperrors.WriteData(w, http.StatusOK, dto.ReportLocationResponse{Fix: fix, Address: address})
		return
	}

	if err := h.resolver.CacheFix(r.Context(), identity.UserID, model.LocationFix{
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		AccuracyM: req.AccuracyM,
		Source:    model.FixSourceSensor,
	}); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid coordinates")
		return
	}

	address, err := h.resolver.ResolveAddress(r.Context(), *req.Latitude, *req.Longitude)
	if err != nil {
		// address is best effort; the fix is already stored
		h.logger.Debug("address resolution failed", zap.Error(err))
	}

	httperrors.WriteData(w, http.StatusOK, dto.ReportLocationResponse{Address: address})
}

func (h *UsersHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "USERS_SERVICE_UNAVAILABLE", "users service is unavailable")
		return
	}

	targetID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || targetID <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid user id")
		return
	}

	var req dto.SetRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	actor, err := h.service.Get(r.Context(), identity.UserID)
	if err != nil {
		handleUserError(w, h.logger, err)
		return
	}

	if err := h.service.SetRole(r.Context(), actor, targetID, enums.ParseRole(req.Role)); err != nil {
		handleUserError(w, h.logger, err)
		return
	}

	httperrors.WriteData(w, http.StatusOK, map[string]bool{"updated": true})
}

func handleUserError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, userssvc.ErrNotFound):
		writeNotFound(w, "USER_NOT_FOUND", "user not found")
	case errors.Is(err, userssvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, userssvc.ErrRoleChange):
		writeForbidden(w, "FORBIDDEN", "role change not permitted")
	default:
		logger.Error("users handler failure", zap.Error(err))
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
