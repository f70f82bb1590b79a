package handlers

import (
	"encoding/json"
	"net"
	"net/http"

	authsvc "github.com/Iornfire12211221/KNG-sub001/internal/services/auth"
	httperrors "github.com/Iornfire12211221/KNG-sub001/internal/transport/http/errors"
)

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.WriteError(w, http.StatusBadRequest, code, message)
}

func writeUnauthorized(w http.ResponseWriter, code, message string) {
	httperrors.WriteError(w, http.StatusUnauthorized, code, message)
}

func writeForbidden(w http.ResponseWriter, code, message string) {
	httperrors.WriteError(w, http.StatusForbidden, code, message)
}

func writeNotFound(w http.ResponseWriter, code, message string) {
	httperrors.WriteError(w, http.StatusNotFound, code, message)
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.WriteError(w, http.StatusInternalServerError, code, message)
}

func identityOrFail(w http.ResponseWriter, r *http.Request) (authsvc.Identity, bool) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
	}
	return identity, ok
}

// clientIP trusts RemoteAddr; the RealIP middleware has already rewritten
// it from X-Forwarded-For when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
