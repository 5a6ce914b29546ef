package errors

import (
	"encoding/json"
	"net/http"

	"github.com/BloodyDerby/biosentiers-backend/internal/validation"
)

// envelope es el cuerpo uniforme de todas las respuestas de error.
type envelope struct {
	Errors any `json:"errors"`
}

// Write serializa un error al cliente como {"errors":[{code,message}]}.
func Write(w http.ResponseWriter, err error) {
	apiErr := FromError(err)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(apiErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(envelope{Errors: []*APIError{apiErr}})
}

// WriteValidation serializa errores de validación como 422 con el detalle
// por ubicación.
func WriteValidation(w http.ResponseWriter, errs validation.Errors) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnprocessableEntity)
	_ = json.NewEncoder(w).Encode(envelope{Errors: errs})
}
