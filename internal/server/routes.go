package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check and metrics.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metricsHandler())

	// Uploads.
	mux.HandleFunc("POST /api/upload", s.handleUpload)

	// Files collection and single file.
	mux.HandleFunc("GET /api/files", s.handleListFiles)
	mux.HandleFunc("GET /api/files/{file_id}", s.handleGetFile)
	mux.HandleFunc("DELETE /api/files/{file_id}", s.handleDeleteFile)

	// Content.
	mux.HandleFunc("GET /api/download/{file_id}", s.handleDownload)

	// Accounting.
	mux.HandleFunc("GET /api/storage", s.handleStorage)

	return mux
}
