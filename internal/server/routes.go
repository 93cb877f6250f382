package server

import (
	"log/slog"
	"net/http"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
	}
}

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(h *Handlers, logger *slog.Logger, cfg Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)

	mux.HandleFunc("POST /meditations", h.CreateMeditation)
	mux.HandleFunc("GET /meditations", h.ListMeditations)
	mux.HandleFunc("GET /meditations/{id}", h.GetMeditation)
	mux.HandleFunc("GET /meditations/{id}/audio", h.GetMeditationAudio)
	mux.HandleFunc("DELETE /meditations/{id}", h.DeleteMeditation)

	mux.HandleFunc("POST /pacing/estimate", h.EstimatePacing)
	mux.HandleFunc("POST /pacing/markup", h.MarkupScript)
	mux.HandleFunc("POST /audio/pace", h.PaceAudio)

	chain := ChainMiddleware(
		RecoveryMiddleware(logger),
		RequestIDMiddleware(),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.AllowedOrigins),
	)

	return chain(mux)
}
