package server

import (
	"log/slog"
	"net/http"

	"github.com/rs/cors"
)

// CORSPolicy lists the browser origins allowed to call the API.
type CORSPolicy struct {
	AllowedOrigins   []string
	AllowCredentials bool
}

var corsAllowedMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	if len(s.cors.AllowedOrigins) == 0 {
		return next
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   s.cors.AllowedOrigins,
		AllowedMethods:   corsAllowedMethods,
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: s.cors.AllowCredentials,
		Logger:           slog.NewLogLogger(s.log().Handler(), slog.LevelDebug),
	})
	return c.Handler(next)
}
