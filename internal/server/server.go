package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"cloudsync/internal/blobstore"
	"cloudsync/internal/store"
)

const (
	allowRemoteEnvKey  = "CLOUDSYNC_ALLOW_REMOTE"
	readTimeoutEnvKey  = "CLOUDSYNC_READ_TIMEOUT"
	writeTimeoutEnvKey = "CLOUDSYNC_WRITE_TIMEOUT"
	readHeaderTimeout  = 5 * time.Second
	idleTimeout        = 60 * time.Second
	shutdownTimeout    = 30 * time.Second

	// Uploads and downloads of up to the max file size share these.
	defaultReadTimeout  = 10 * time.Minute
	defaultWriteTimeout = 10 * time.Minute
)

type healthChecker interface {
	Ping(ctx context.Context) error
	SchemaVersion(ctx context.Context) (int, error)
}

// Options configures a Server beyond its storage backends.
type Options struct {
	Policy StoragePolicy
	CORS   CORSPolicy
}

// Server wraps HTTP handlers for the cloudsync API.
type Server struct {
	addr   string
	files  *FileService
	health healthChecker
	blobs  blobstore.BlobStore
	cors   CORSPolicy
	logger *slog.Logger
}

// New creates a new server instance.
func New(addr string, fileStore store.FileStore, blobs blobstore.BlobStore, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	health, _ := any(fileStore).(healthChecker)

	return &Server{
		addr:   addr,
		files:  NewFileService(fileStore, blobs, opts.Policy, logger),
		health: health,
		blobs:  blobs,
		cors:   opts.CORS,
		logger: logger,
	}
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.withMetrics(s.withRequestLogging(s.withCORS(s.routes())))
}

// ListenAndServe starts the HTTP server and shuts it down when ctx ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.log().Info("starting server", "addr", s.addr)
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       durationFromEnv(readTimeoutEnvKey, defaultReadTimeout),
		WriteTimeout:      durationFromEnv(writeTimeoutEnvKey, defaultWriteTimeout),
		IdleTimeout:       idleTimeout,
		ErrorLog:          slog.NewLogLogger(s.log().Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// ListenAddr converts a base API URL into a listen address.
func ListenAddr(apiURL string) (string, error) {
	if apiURL == "" {
		return "", fmt.Errorf("api url is required")
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(apiURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return apiURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func durationFromEnv(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
