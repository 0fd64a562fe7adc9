// internal/app/features/errors/errors.go
package errors

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/dalemusser/stratadata/internal/app/datascreen"
	"github.com/dalemusser/stratadata/internal/app/datasource"
	"github.com/dalemusser/stratadata/internal/app/system/jsonutil"
	"github.com/dalemusser/stratadata/internal/app/tableview"
	"go.uber.org/zap"
)

// ErrorLogger wraps the zap logger for error logging.
type ErrorLogger struct {
	logger *zap.Logger
}

// NewErrorLogger creates a new ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorLogger{logger: logger}
}

// Log logs an error with the given message and error.
func (e *ErrorLogger) Log(r *http.Request, msg string, err error) {
	e.logger.Error(msg,
		zap.Error(err),
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
	)
}

// LogWithFields logs an error with additional fields.
func (e *ErrorLogger) LogWithFields(r *http.Request, msg string, err error, fields ...zap.Field) {
	allFields := append([]zap.Field{
		zap.Error(err),
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
	}, fields...)
	e.logger.Error(msg, allFields...)
}

// StatusOf maps an error from the screen or a store to an HTTP status.
//
//	validation    400
//	not found     404
//	duplicate     409
//	invalid state 422
//	anything else 500
func StatusOf(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case stderrors.Is(err, datasource.ErrNoCredentials):
		return http.StatusUnauthorized
	case stderrors.Is(err, datascreen.ErrUnknownTable):
		return http.StatusNotFound
	case stderrors.Is(err, tableview.ErrUnknownField), stderrors.Is(err, tableview.ErrInvalidLimit):
		return http.StatusBadRequest
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	switch datasource.KindOf(err) {
	case datasource.KindValidation:
		return http.StatusBadRequest
	case datasource.KindNotFound:
		return http.StatusNotFound
	case datasource.KindDuplicate:
		return http.StatusConflict
	case datasource.KindInvalidState:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// Respond writes err as a JSON error body. Validation errors carry their
// field messages and duplicates carry the id of the existing record.
// Only unclassified failures are logged at error level; their message is
// not shown to the client.
func (e *ErrorLogger) Respond(w http.ResponseWriter, r *http.Request, msg string, err error, fields ...zap.Field) {
	status := StatusOf(err)

	var verr *datasource.ValidationError
	if stderrors.As(err, &verr) {
		jsonutil.ValidationError(w, verr.FieldMap())
		return
	}

	var dup *datasource.DuplicateError
	if stderrors.As(err, &dup) {
		jsonutil.Conflict(w, dup.Error(), map[string]any{"existing_id": dup.ExistingID})
		return
	}

	switch status {
	case http.StatusInternalServerError, http.StatusGatewayTimeout:
		e.LogWithFields(r, msg, err, fields...)
		jsonutil.Error(w, status, msg)
	default:
		jsonutil.Error(w, status, err.Error())
	}
}

// Handler provides JSON responses for requests the router cannot serve.
type Handler struct{}

// NewHandler creates a new error Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// Forbidden writes a 403.
func (h *Handler) Forbidden(w http.ResponseWriter, r *http.Request) {
	jsonutil.Forbidden(w, "access denied")
}

// Unauthorized writes a 401.
func (h *Handler) Unauthorized(w http.ResponseWriter, r *http.Request) {
	jsonutil.Unauthorized(w, "sign in required")
}

// NotFound writes a 404 naming the path.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	jsonutil.ErrorWith(w, http.StatusNotFound, "not found", map[string]any{"path": r.URL.Path})
}

// MethodNotAllowed writes a 405.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	jsonutil.ErrorWith(w, http.StatusMethodNotAllowed, "method not allowed", map[string]any{"method": r.Method})
}

// InternalError writes a 500 without detail.
func (h *Handler) InternalError(w http.ResponseWriter, r *http.Request) {
	jsonutil.InternalError(w, "internal server error")
}
