// Package middlewares contiene los middlewares HTTP del API.
package middlewares

import "net/http"

// Middleware es un decorador de http.Handler. El router los compone con
// chi (Use y With), así que acá solo se define el tipo.
type Middleware func(http.Handler) http.Handler
