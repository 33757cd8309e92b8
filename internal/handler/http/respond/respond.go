// Package respond renders JSON responses and the service's error envelope.
// Error details are sanitized so upstream URLs with embedded credentials
// never reach clients or logs verbatim.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"pagefeed/internal/domain/entity"
	"pagefeed/internal/handler/http/requestid"
)

// Development switches error responses to include the underlying error
// chain. Set once by main before the server starts; never enable in
// production.
var Development bool

// ErrorBody is the wire shape of every error response.
type ErrorBody struct {
	Error     bool   `json:"error"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
	Timestamp string `json:"timestamp"`
	Path      string `json:"path"`
	Detail    string `json:"detail,omitempty"` // development mode only
}

// JSON writes a JSON response with the given status code and data.
func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			// ヘッダー送信済みなのでログに残すしかない
			slog.Default().Error("failed to encode JSON response",
				slog.Int("status_code", code),
				slog.Any("error", err))
		}
	}
}

// Error writes the error envelope. kind supplies the stable machine-readable
// code; message is the user-facing string. In production the cause stays in
// the logs; development mode echoes the sanitized chain in `detail`.
func Error(w http.ResponseWriter, r *http.Request, status int, kind entity.Kind, message string, cause error) {
	body := ErrorBody{
		Error:     true,
		Code:      string(kind),
		Message:   message,
		RequestID: requestid.FromContext(r.Context()),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      r.URL.Path,
	}

	if cause != nil {
		sanitized := SanitizeError(cause)
		if Development {
			body.Detail = sanitized
		}
		if status >= 500 {
			slog.Default().Error("request failed",
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.String("code", string(kind)),
				slog.String("error", sanitized))
		} else {
			slog.Default().Warn("request rejected",
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.String("code", string(kind)),
				slog.String("error", sanitized))
		}
	}

	JSON(w, status, body)
}
