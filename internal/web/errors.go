package web

// errors.go turns service errors into responses.
//
// The technical error is logged with the request id; the client gets the
// user message from core.MapError, as JSON or as an HTML fragment for HTMX.

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/lpcsv/internal/core"
	"github.com/JonMunkholm/lpcsv/internal/logging"
	"github.com/JonMunkholm/lpcsv/internal/web/templates"
)

// ErrorResponse is the JSON body of an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	Detail  string `json:"detail,omitempty"`
}

// errBadRequest marks request problems found by the handlers themselves.
var errBadRequest = errors.New("bad request")

// respondError logs err and writes the mapped user message. Status comes from
// the error code table.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	msg := core.MapError(err)
	status := msg.Status
	if errors.Is(err, errBadRequest) {
		status = http.StatusBadRequest
	}
	if status == 0 {
		status = http.StatusInternalServerError
	}

	log := logging.FromContext(r.Context())
	if status >= 500 {
		log.Error("request error", "path", r.URL.Path, "status", status, "error", err, "code", msg.Code)
	} else {
		log.Warn("request rejected", "path", r.URL.Path, "status", status, "error", err, "code", msg.Code)
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_ = templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
		return
	}

	resp := ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
	// Client errors carry the technical detail, such as the rows in a cycle.
	if status < 500 {
		resp.Detail = err.Error()
	}
	writeJSON(w, status, resp)
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
