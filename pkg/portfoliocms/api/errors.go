package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/dayhz/portfolio2-sub000/pkg/portfoliocms"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries a machine readable code and a human message.
type ErrorBody struct {
	Code      string                        `json:"code"`
	Message   string                        `json:"message"`
	Fields    []portfoliocms.FieldViolation `json:"fields,omitempty"`
	Detail    string                        `json:"detail,omitempty"`
	RequestID string                        `json:"request_id,omitempty"`
}

var errBadRequest = errors.New("bad request")

// badRequest builds a validation error for malformed input that never
// reaches the service layer.
func badRequest(message string, fields ...portfoliocms.FieldViolation) error {
	return &portfoliocms.Error{
		Kind:    portfoliocms.KindValidation,
		Op:      "decode_request",
		Message: message,
		Fields:  fields,
		Err:     errBadRequest,
	}
}

func statusFor(kind portfoliocms.Kind) int {
	switch kind {
	case portfoliocms.KindNotFound:
		return http.StatusNotFound
	case portfoliocms.KindConflict:
		return http.StatusConflict
	case portfoliocms.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ErrorRenderer writes service errors as ErrorResponse. Internal details are
// only exposed when showDetail is set.
type ErrorRenderer struct {
	logger     *slog.Logger
	showDetail bool
}

// NewErrorRenderer creates an ErrorRenderer.
func NewErrorRenderer(logger *slog.Logger, showDetail bool) ErrorRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return ErrorRenderer{logger: logger, showDetail: showDetail}
}

func (e ErrorRenderer) render(w http.ResponseWriter, r *http.Request, err error) {
	kind := portfoliocms.KindOf(err)
	status := statusFor(kind)

	body := ErrorBody{
		Code:      kind.String(),
		Message:   portfoliocms.MessageOf(err),
		Fields:    portfoliocms.FieldsOf(err),
		RequestID: middleware.GetReqID(r.Context()),
	}
	if body.Message == "" {
		body.Message = http.StatusText(status)
	}

	if status >= http.StatusInternalServerError {
		e.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "request_id", body.RequestID, "err", err)
		if e.showDetail {
			body.Detail = err.Error()
		}
	} else {
		e.logger.DebugContext(r.Context(), "request rejected",
			"method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}

	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: body})
}
