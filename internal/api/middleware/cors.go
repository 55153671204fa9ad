package middleware

import (
	"slices"

	"github.com/go-chi/cors"
)

// CORSOptions allows chat gateways on allowedOrigins to call the API
func CORSOptions(allowedOrigins []string) cors.Options {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	return cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition", "Content-Length"},
		// Credentials with a wildcard origin would let any site act for the user
		AllowCredentials: !slices.Contains(allowedOrigins, "*"),
		MaxAge:           300,
	}
}
