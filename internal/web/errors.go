package web

// errors.go turns errors into responses.
//
// The technical error is logged with the request id; the client only sees
// the mapped core.UserMessage, as JSON for API callers and as an HTML page
// otherwise.

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/JonMunkholm/sweeper/internal/core"
	"github.com/JonMunkholm/sweeper/internal/logging"
	"github.com/JonMunkholm/sweeper/internal/web/templates"
)

var (
	errNoFile       = errors.New("no file provided")
	errTooManyFiles = errors.New("too many files")
	errInvalidEmail = errors.New("invalid email address")
	errRateLimited  = errors.New("rate limit exceeded")
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status that matches a user error code.
func statusFor(code string) int {
	switch {
	case code == "FILE001":
		return http.StatusRequestEntityTooLarge
	case code == "FILE006":
		return http.StatusUnsupportedMediaType
	case code == "FILE002", code == "FILE003", code == "FILE005":
		return http.StatusUnprocessableEntity
	case strings.HasPrefix(code, "FILE"), strings.HasPrefix(code, "FORM"),
		code == "COL001", code == "CNV001":
		return http.StatusBadRequest
	case strings.HasPrefix(code, "SES"):
		return http.StatusNotFound
	case code == "JOB001":
		return http.StatusServiceUnavailable
	case code == "JOB003":
		return http.StatusGatewayTimeout
	case code == "RATE001":
		return http.StatusTooManyRequests
	case code == "AUTH001":
		return http.StatusUnauthorized
	case code == "AUTH002":
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes its user message. A zero status means
// "derive it from the error code".
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := core.MapError(err)
	if status == 0 {
		status = statusFor(msg.Code)
	}

	log := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", msg.Code,
		"error", err.Error(),
	}
	if status >= 500 || !core.IsUserFacing(err) {
		log.Error("request error", attrs...)
	} else {
		log.Warn("request error", attrs...)
	}

	if wantsJSON(r) {
		render.Status(r, status)
		render.JSON(w, r, ErrorResponse{
			Error:   msg.Message,
			Message: msg.Message,
			Action:  msg.Action,
			Code:    msg.Code,
		})
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.ErrorPage(msg).Render(r.Context(), w); err != nil {
		log.Error("render error page", "error", err)
	}
}

// wantsJSON reports whether the client should get JSON back.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
