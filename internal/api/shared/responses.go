package shared

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/phrazzld/vision-gateway/internal/platform/logger"
	"github.com/phrazzld/vision-gateway/internal/redact"
)

// ErrorPrefix starts every plain-text error body.
const ErrorPrefix = "Error: "

// RespondWithText writes a plain-text response with the given status code.
func RespondWithText(w http.ResponseWriter, r *http.Request, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if traceID := GetTraceID(r.Context()); traceID != "" {
		w.Header().Set(TraceIDHeader, traceID)
	}
	w.WriteHeader(status)
	if _, err := fmt.Fprint(w, body); err != nil {
		logger.FromContext(r.Context()).Debug("failed to write response body", "error", err)
	}
}

// RespondWithErrorAndLog writes "Error: <userMessage>" as plain text and logs
// the redacted error. The raw error never reaches the client.
//
// 5xx responses are logged at ERROR, 504 at WARN, everything else at DEBUG.
func RespondWithErrorAndLog(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	userMessage string,
	err error,
) {
	traceID := GetTraceID(r.Context())

	logAttrs := []slog.Attr{
		slog.String("trace_id", traceID),
		slog.String("path", r.URL.Path),
		slog.String("method", r.Method),
		slog.Int("status_code", status),
		slog.String("user_message", userMessage),
	}
	if err != nil {
		logAttrs = append(logAttrs,
			slog.String("error", redact.Error(err)),
			slog.String("error_type", fmt.Sprintf("%T", err)))
	}

	logLevel := slog.LevelDebug
	switch {
	case status == http.StatusGatewayTimeout:
		logLevel = slog.LevelWarn
	case status >= http.StatusInternalServerError:
		logLevel = slog.LevelError
	}

	logger.FromContext(r.Context()).LogAttrs(r.Context(), logLevel, "API error response", logAttrs...)

	RespondWithText(w, r, status, ErrorPrefix+userMessage)
}
