package main

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"

	"cloudsync/internal/api"
	"cloudsync/internal/config"
)

const (
	serverStartTimeout = 3 * time.Second
	serverPollInterval = 100 * time.Millisecond

	noAutostartEnvKey = "CLOUDSYNC_NO_AUTOSTART"
)

func withClient(cfg *config.Config, fn func(*api.Client) error) error {
	cleanup, err := ensureServer(cfg)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	return fn(api.NewClient(cfg.APIURL))
}

// ensureServer starts a throwaway local server when none answers at the
// configured URL. The returned cleanup stops it.
func ensureServer(cfg *config.Config) (func(), error) {
	client := api.NewClient(cfg.APIURL)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	pingErr := client.Ping(ctx)
	if pingErr == nil {
		return nil, nil
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(noAutostartEnvKey)), "true") {
		return nil, pingErr
	}

	cmd, err := startServerProcess(cfg)
	if err != nil {
		return nil, err
	}

	stop := func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}
	if err := waitForServer(client, serverStartTimeout); err != nil {
		stop()
		return nil, err
	}
	return stop, nil
}

func startServerProcess(cfg *config.Config) (*exec.Cmd, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(exe, "srv")
	cmd.Env = append(os.Environ(),
		"CLOUDSYNC_DB="+cfg.DBPath,
		"CLOUDSYNC_API_URL="+cfg.APIURL,
		"CLOUDSYNC_BLOB_DIR="+cfg.BlobDir(),
	)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd, nil
}

func waitForServer(client *api.Client, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		err := client.Ping(ctx)
		cancel()
		if err == nil {
			return nil
		}
		if !isConnRefused(err) {
			// Something else owns the port.
			return err
		}
		time.Sleep(serverPollInterval)
	}
	return errors.New("server did not start in time")
}

func isConnRefused(err error) bool {
	var netErr *net.OpError
	return errors.As(err, &netErr)
}
