package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// NewCORSHandler returns the CORS middleware for the browser UI, which runs
// on its own dev-server origin and talks to this daemon cross-origin.
// allowedOrigins entries are full origins (scheme + host, no trailing
// slash). The API only ever serves GET and POST; anything else is rejected
// at preflight.
func NewCORSHandler(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler
}
