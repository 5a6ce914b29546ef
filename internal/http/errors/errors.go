// Package errors define la estructura estándar de errores de la API y su
// serialización al cliente.
package errors

import (
	"fmt"
	"net/http"
)

// APIError es un error con código estable y status HTTP. El error original
// (causa) se conserva para logs pero nunca se expone al cliente.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// WithCause devuelve una COPIA con la causa adjunta, para no mutar las
// variables base.
func (e *APIError) WithCause(err error) *APIError {
	clone := *e
	clone.Err = err
	return &clone
}

// FromError convierte cualquier error en un APIError; los desconocidos se
// vuelven un 500 opaco conservando la causa.
func FromError(err error) *APIError {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr
	}
	return ErrInternal.WithCause(err)
}

// ─── Errores predefinidos ───

var (
	// 401: autenticación. Un principal inexistente y uno inactivo responden
	// igual, y todos los fallos criptográficos comparten el mismo código.
	ErrUnauthorized = &APIError{
		Code:       "auth.unauthorized",
		Message:    "Authentication is required to access this resource.",
		HTTPStatus: http.StatusUnauthorized,
	}
	ErrInvalidUser = &APIError{
		Code:       "auth.invalidUser",
		Message:    "This user account does not exist or is inactive.",
		HTTPStatus: http.StatusUnauthorized,
	}
	ErrInvalidInstallation = &APIError{
		Code:       "auth.invalidInstallation",
		Message:    "This installation does not exist or is inactive.",
		HTTPStatus: http.StatusUnauthorized,
	}
	ErrInvalidCredentials = &APIError{
		Code:       "auth.invalidCredentials",
		Message:    "The e-mail or password is invalid.",
		HTTPStatus: http.StatusUnauthorized,
	}
	ErrInvalidInstallationAuth = &APIError{
		Code:       "auth.invalidCredentials",
		Message:    "The provided authorization is invalid or has expired.",
		HTTPStatus: http.StatusUnauthorized,
	}
	ErrInvalidToken = &APIError{
		Code:       "auth.invalidToken",
		Message:    "The provided authentication token is invalid or has expired.",
		HTTPStatus: http.StatusUnauthorized,
	}
	ErrInvalidAuthorization = &APIError{
		Code:       "auth.invalidAuthorization",
		Message:    "The provided authorization is not valid for this action.",
		HTTPStatus: http.StatusUnauthorized,
	}

	// 403
	ErrForbidden = &APIError{
		Code:       "auth.forbidden",
		Message:    "You are not authorized to perform this action.",
		HTTPStatus: http.StatusForbidden,
	}

	// 404
	ErrRecordNotFound = &APIError{
		Code:       "record.notFound",
		Message:    "No resource was found at this verb and URI.",
		HTTPStatus: http.StatusNotFound,
	}

	// 400
	ErrInvalidJSON = &APIError{
		Code:       "request.invalidBody",
		Message:    "The request body is not valid JSON.",
		HTTPStatus: http.StatusBadRequest,
	}

	// 405
	ErrMethodNotAllowed = &APIError{
		Code:       "request.methodNotAllowed",
		Message:    "The method is not allowed for this URI.",
		HTTPStatus: http.StatusMethodNotAllowed,
	}

	// 500: nunca expone detalle interno.
	ErrInternal = &APIError{
		Code:       "server.unexpected",
		Message:    "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError,
	}
)
