package server

import (
	"context"
	"net/http"

	"cloudsync/internal/api"
)

type blobUsage interface {
	Usage(ctx context.Context) (int64, error)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := api.HealthResponse{Status: "ok"}
	if s.health == nil {
		s.writeJSON(w, http.StatusOK, resp)
		return
	}

	if err := s.health.Ping(r.Context()); err != nil {
		s.writeErrorReq(w, r, http.StatusServiceUnavailable, makeAPIError(http.StatusServiceUnavailable, "unavailable", ErrCodeStoreFailure, err))
		return
	}
	version, err := s.health.SchemaVersion(r.Context())
	if err != nil {
		s.writeServiceError(w, r, storeFailure(err))
		return
	}
	resp.SchemaVersion = version
	if usage, ok := s.blobs.(blobUsage); ok {
		if bytes, err := usage.Usage(r.Context()); err == nil {
			resp.BlobBytes = bytes
			blobDirBytes.Set(float64(bytes))
		} else {
			s.log().Warn("measure blob directory", "error", err)
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}
