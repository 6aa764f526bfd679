package main

import (
	"context"
	"errors"
	"net"
	"os"

	"cloudsync/internal/api"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "file_not_found":
			lines = append(lines, "hint: list stored files with: cloudsync ls")
		case "blob_missing":
			lines = append(lines, "hint: the record exists but its content is gone from the blob directory; remove it with: cloudsync rm <id>")
		case "file_too_large":
			lines = append(lines, "hint: check the server limit with: cloudsync storage")
		case "storage_quota_exceeded":
			lines = append(lines, "hint: free space with cloudsync rm, or raise storage.limit_bytes on the server.")
		case "unsupported_media_type":
			lines = append(lines, "hint: the server restricts storage.allowed_media_types.")
		case "duplicate_content":
			lines = append(lines, "hint: a file with identical content is already stored.")
		}
		if apiErr.Code == "" {
			lines = append(lines, "hint: verify CLOUDSYNC_API_URL points to a cloudsync server.")
		}
		if apiErr.Status >= 500 {
			lines = append(lines, "hint: server returned an internal error; check server logs for details.")
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; check server health or increase CLOUDSYNC_HTTP_TIMEOUT (CLOUDSYNC_TRANSFER_TIMEOUT for uploads and downloads).")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: ensure a cloudsync server is running at CLOUDSYNC_API_URL.",
			"hint: start local server manually with: cloudsync srv",
		)
		if os.Getenv(noAutostartEnvKey) != "" {
			lines = append(lines, "hint: automatic server start is disabled by "+noAutostartEnvKey+".")
		}
		return uniqueLines(lines)
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
