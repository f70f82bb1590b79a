package handlers

import (
	"net/http"
	"time"

	httperrors "github.com/Iornfire12211221/KNG-sub001/internal/transport/http/errors"
)

type HealthHandler struct {
	version string
	now     func() time.Time
}

func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{version: version, now: time.Now}
}

func (h *HealthHandler) Get(w http.ResponseWriter, _ *http.Request) {
	httperrors.WriteRaw(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": h.now().UTC().Format(time.RFC3339),
		"version":   h.version,
	})
}
