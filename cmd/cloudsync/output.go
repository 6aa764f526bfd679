package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"cloudsync/internal/api"
	"cloudsync/internal/format"
)

var (
	outputFormatter format.Formatter = format.JSONFormatter{}
	stdout          io.Writer        = os.Stdout
)

func writeJSON(payload any) error {
	return outputFormatter.Write(stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(stdout, format, args...)
	return err
}

func writeFileList(files []api.FileSummary) error {
	if len(files) == 0 {
		return writePlain("no files stored\n")
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tSIZE\tUPLOADED")
	for _, file := range files {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", file.ID, file.Filename, file.FileType, humanize.IBytes(file.FileSize), formatTime(file.UploadDate))
	}
	return tw.Flush()
}

func writeFileDetail(file api.FileDetail) error {
	lines := []string{
		fmt.Sprintf("id: %d", file.ID),
		fmt.Sprintf("filename: %s", file.Filename),
		fmt.Sprintf("file_type: %s", file.FileType),
		fmt.Sprintf("file_size: %d (%s)", file.FileSize, humanize.IBytes(file.FileSize)),
		fmt.Sprintf("upload_date: %s", formatTime(file.UploadDate)),
		fmt.Sprintf("file_hash: %s", file.FileHash),
		fmt.Sprintf("is_public: %t", file.IsPublic),
	}
	if file.Description != "" {
		lines = append(lines, fmt.Sprintf("description: %s", file.Description))
	}
	if len(file.Tags) > 0 {
		lines = append(lines, fmt.Sprintf("tags: %s", strings.Join(file.Tags, ", ")))
	}
	if file.UserID != nil {
		lines = append(lines, fmt.Sprintf("user_id: %d", *file.UserID))
	}
	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func writeStorageInfo(info api.StorageInfo) error {
	limit := "unlimited"
	if info.StorageLimit > 0 {
		limit = humanize.IBytes(uint64(info.StorageLimit))
	}
	lines := []string{
		fmt.Sprintf("total_files: %d", info.TotalFiles),
		fmt.Sprintf("total_size: %s", humanize.IBytes(info.TotalSize)),
		fmt.Sprintf("storage_limit: %s", limit),
		fmt.Sprintf("max_file_size: %s", humanize.IBytes(uint64(info.MaxFileSize))),
		fmt.Sprintf("used_percentage: %.2f%%", info.UsedPercentage),
	}
	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
