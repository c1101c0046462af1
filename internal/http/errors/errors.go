// Package errors define AppError y el mapeo de errores de dominio a HTTP.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/dropDatabas3/hellopair/internal/domain/pairing"
	"github.com/dropDatabas3/hellopair/internal/lock"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// WriteError escribe la respuesta JSON del error.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
	})
}

// FromError convierte errores de otras capas en AppError.
func FromError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	switch {
	case stderrors.Is(err, pairing.ErrNotFound):
		return ErrNotFound.WithCause(err)
	case stderrors.Is(err, pairing.ErrInvalidInput):
		return ErrInvalidParameter.WithCause(err)
	case stderrors.Is(err, pairing.ErrStoreUnavailable):
		return ErrServiceUnavailable.WithCause(err).WithDetail(err.Error())
	case stderrors.Is(err, pairing.ErrNotSupported):
		return ErrNotImplemented.WithCause(err)
	case stderrors.Is(err, lock.ErrNotAcquired), stderrors.Is(err, context.DeadlineExceeded):
		return ErrGatewayTimeout.WithCause(err)
	}
	return ErrInternalServerError.WithCause(err)
}
