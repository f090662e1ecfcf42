package httptransport

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"taaruf/internal/platform/middleware"
	"taaruf/pkg/domain"
	dErrors "taaruf/pkg/domain-errors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError translates a domain error into the stable JSON envelope. The
// envelope carries the code and the user-facing message; internal detail
// stays in the logs.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	writeJSON(w, dErrors.ToHTTPStatus(code), map[string]string{
		"error":   string(code),
		"message": dErrors.UserMessage(code),
	})
}

// actorID extracts the authenticated participant set by the auth middleware.
func actorID(r *http.Request) (domain.UserID, error) {
	raw := middleware.GetUserID(r.Context())
	if raw == "" {
		return domain.UserID{}, dErrors.New(dErrors.CodeInternal, "authentication context missing")
	}
	return domain.ParseUserID(raw)
}

// clientAddr is the caller's network address as the abuse guard keys it:
// the first X-Forwarded-For hop when present, else the connection peer.
func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func idempotencyKey(r *http.Request) string {
	return r.Header.Get("X-Idempotency-Key")
}
