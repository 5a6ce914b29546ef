// Package controllers agrupa helpers compartidos por los controllers HTTP.
package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	httperrors "github.com/BloodyDerby/biosentiers-backend/internal/http/errors"
)

// WriteJSON serializa v con el status dado.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSONBody decodifica el body como JSON genérico. La validación opera
// sobre la estructura decodificada, así que acá no se exige ninguna forma.
// Un body vacío equivale a un objeto vacío; la validación reporta entonces
// los campos requeridos en vez de un 400 genérico.
// Responde 400 y devuelve false si el body no es JSON válido.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request) (any, bool) {
	var body any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, true
		}
		httperrors.Write(w, httperrors.ErrInvalidJSON.WithCause(err))
		return nil, false
	}
	return body, true
}
