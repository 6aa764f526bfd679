package main

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cloudsync/internal/api"
	"cloudsync/internal/config"
)

const sniffLength = 512

func newUploadCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var contentType string

	cmd := &cobra.Command{
		Use:   "upload <path>...",
		Short: "Upload one or more files in a single batch",
		Args:  requireAtLeastArgs(1, "at least one path is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]api.UploadFile, 0, len(args))
			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()

				info, err := f.Stat()
				if err != nil {
					return err
				}
				if info.IsDir() {
					return fmt.Errorf("%s is a directory", path)
				}

				mediaType := strings.TrimSpace(contentType)
				if mediaType == "" {
					if mediaType, err = detectContentType(f); err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
				}
				files = append(files, api.UploadFile{
					Filename:    filepath.Base(path),
					ContentType: mediaType,
					Content:     f,
				})
			}

			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.Upload(cmd.Context(), files)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				for _, file := range resp.Files {
					if err := writePlain("%d\t%s\t%s\n", file.ID, file.Filename, humanize.IBytes(file.FileSize)); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&contentType, "content-type", "", "media type for every file (default: detect)")
	return cmd
}

func newListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List stored files",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				files, err := client.ListFiles(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(files)
				}
				return writeFileList(files)
			})
		},
	}
}

func newShowCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "show <file-id>",
		Short: "Show the metadata of one file",
		Args:  requireFileIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseFileIDs(args)
			if err != nil {
				return err
			}
			return withClient(cfg, func(client *api.Client) error {
				for _, id := range ids {
					file, err := client.GetFile(cmd.Context(), id)
					if err != nil {
						return err
					}
					if *jsonOutput {
						err = writeJSON(file)
					} else {
						err = writeFileDetail(file)
					}
					if err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newGetCmd(cfg *config.Config) *cobra.Command {
	var (
		outPath string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "get <file-id>",
		Short: "Download file content",
		Args:  requireExactlyArgs(1, "file id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseFileID(args[0])
			if err != nil {
				return err
			}

			return withClient(cfg, func(client *api.Client) error {
				if outPath == "-" {
					_, err := client.Download(cmd.Context(), id, stdout)
					return err
				}

				target := strings.TrimSpace(outPath)
				if target == "" {
					file, err := client.GetFile(cmd.Context(), id)
					if err != nil {
						return err
					}
					target = safeLocalName(file.Filename)
				}
				if !force {
					if _, err := os.Stat(target); err == nil {
						return fmt.Errorf("output file %s exists (use --force to overwrite)", target)
					}
				}

				f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
				if err != nil {
					return err
				}
				meta, err := client.Download(cmd.Context(), id, f)
				if closeErr := f.Close(); err == nil {
					err = closeErr
				}
				if err != nil {
					_ = os.Remove(target)
					return err
				}
				return writePlain("%s\t%s\n", target, humanize.IBytes(uint64(meta.Size)))
			})
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output path (default: stored filename, - for stdout)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite output path if it exists")
	return cmd
}

func newRemoveCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <file-id>...",
		Aliases: []string{"delete"},
		Short:   "Delete stored files",
		Args:    requireFileIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseFileIDs(args)
			if err != nil {
				return err
			}
			return withClient(cfg, func(client *api.Client) error {
				for _, id := range ids {
					resp, err := client.DeleteFile(cmd.Context(), id)
					if err != nil {
						return fmt.Errorf("delete %d: %w", id, err)
					}
					if *jsonOutput {
						err = writeJSON(resp)
					} else {
						err = writePlain("%d\t%s\n", id, resp.Message)
					}
					if err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newStorageCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "storage",
		Short: "Show storage usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				info, err := client.StorageInfo(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(info)
				}
				return writeStorageInfo(info)
			})
		},
	}
}

func newInfoCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show server health and local paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				health, err := client.Health(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(map[string]any{
						"api_url":        client.BaseURL(),
						"db_path":        cfg.DBPath,
						"blob_dir":       cfg.BlobDir(),
						"status":         health.Status,
						"schema_version": health.SchemaVersion,
						"blob_bytes":     health.BlobBytes,
					})
				}
				_ = writePlain("api_url: %s\n", client.BaseURL())
				_ = writePlain("db_path: %s\n", cfg.DBPath)
				_ = writePlain("blob_dir: %s\n", cfg.BlobDir())
				_ = writePlain("status: %s\n", health.Status)
				_ = writePlain("schema_version: %d\n", health.SchemaVersion)
				return writePlain("blob_bytes: %s\n", humanize.IBytes(uint64(health.BlobBytes)))
			})
		},
	}
}

// detectContentType guesses from the extension, then sniffs the first bytes.
// The file offset is restored before returning.
func detectContentType(f *os.File) (string, error) {
	if byExt := mime.TypeByExtension(filepath.Ext(f.Name())); byExt != "" {
		return byExt, nil
	}

	buf := make([]byte, sniffLength)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	if n == 0 {
		return "application/octet-stream", nil
	}
	return http.DetectContentType(buf[:n]), nil
}

func safeLocalName(name string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if base == "." || base == "/" || base == ".." || base == "" {
		return "download"
	}
	return base
}
