package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"cloudsync/internal/api"
	"cloudsync/internal/auth"
	"cloudsync/internal/blobstore"
	"cloudsync/internal/config"
	"cloudsync/internal/models"
	"cloudsync/internal/server"
	"cloudsync/internal/store"
)

func newCLITestConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv(noAutostartEnvKey, "true")
	t.Setenv(logLevelEnvKey, "")

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "cloudsync.db")
	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	bs, err := blobstore.NewLocalDir(filepath.Join(dir, "uploads"))
	if err != nil {
		t.Fatalf("open blob dir: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := server.New("127.0.0.1:0", st, bs, logger, server.Options{Policy: server.DefaultStoragePolicy()})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	cfg := config.Default()
	cfg.APIURL = ts.URL
	cfg.DBPath = dbPath
	cfg.Storage.BlobDir = filepath.Join(dir, "uploads")
	return &cfg
}

func runCLI(t *testing.T, cfg *config.Config, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevFormatter := stdout, outputFormatter
	stdout = &buf
	defer func() {
		stdout = prevOut
		outputFormatter = prevFormatter
	}()

	cmd := newRootCmd(cfg)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func writeLocalFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestFileCommandsRoundTrip(t *testing.T) {
	cfg := newCLITestConfig(t)
	local := t.TempDir()
	notes := writeLocalFile(t, local, "notes.txt", "hello cloudsync")
	data := writeLocalFile(t, local, "data.json", `{"k":1}`)

	out, err := runCLI(t, cfg, nil, "--json", "upload", notes, data)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	var uploaded api.UploadResponse
	if err := json.Unmarshal([]byte(out), &uploaded); err != nil {
		t.Fatalf("decode upload output %q: %v", out, err)
	}
	if uploaded.Message != "Files uploaded successfully" || len(uploaded.Files) != 2 {
		t.Fatalf("unexpected upload response: %+v", uploaded)
	}
	if uploaded.Files[0].FileType != "text/plain; charset=utf-8" || uploaded.Files[1].FileType != "application/json" {
		t.Fatalf("expected detected media types, got %q and %q", uploaded.Files[0].FileType, uploaded.Files[1].FileType)
	}
	notesID := itoa(uploaded.Files[0].ID)

	out, err = runCLI(t, cfg, nil, "ls")
	if err != nil {
		t.Fatalf("ls: %v", err)
	}
	if !strings.Contains(out, "notes.txt") || !strings.Contains(out, "data.json") || !strings.Contains(out, "15 B") {
		t.Fatalf("unexpected ls output:\n%s", out)
	}

	out, err = runCLI(t, cfg, nil, "show", notesID)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "filename: notes.txt") || !strings.Contains(out, "file_hash: ") {
		t.Fatalf("unexpected show output:\n%s", out)
	}

	target := filepath.Join(t.TempDir(), "copy.txt")
	if _, err := runCLI(t, cfg, nil, "get", notesID, "-o", target); err != nil {
		t.Fatalf("get: %v", err)
	}
	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if string(got) != "hello cloudsync" {
		t.Fatalf("unexpected downloaded content %q", got)
	}
	if _, err := runCLI(t, cfg, nil, "get", notesID, "-o", target); err == nil {
		t.Fatal("expected existing output file to be refused without --force")
	}

	t.Chdir(t.TempDir())
	if _, err := runCLI(t, cfg, nil, "get", notesID); err != nil {
		t.Fatalf("get default name: %v", err)
	}
	if _, err := os.Stat("notes.txt"); err != nil {
		t.Fatalf("expected download under stored filename: %v", err)
	}

	out, err = runCLI(t, cfg, nil, "rm", notesID)
	if err != nil {
		t.Fatalf("rm: %v", err)
	}
	if !strings.Contains(out, "File deleted successfully") {
		t.Fatalf("unexpected rm output %q", out)
	}

	_, err = runCLI(t, cfg, nil, "rm", notesID)
	if !api.HasCode(err, "file_not_found") {
		t.Fatalf("expected file_not_found, got %v", err)
	}
}

func TestStorageCommandYAML(t *testing.T) {
	cfg := newCLITestConfig(t)

	out, err := runCLI(t, cfg, nil, "--yaml", "storage")
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	for _, want := range []string{"total_files: 0", "storage_limit: 1073741824", "used_percentage: 0"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in yaml output:\n%s", want, out)
		}
	}

	if _, err := runCLI(t, cfg, nil, "--json", "--yaml", "storage"); err == nil {
		t.Fatal("expected --json and --yaml to be mutually exclusive")
	}
}

func TestUploadRejectsDirectory(t *testing.T) {
	cfg := newCLITestConfig(t)
	if _, err := runCLI(t, cfg, nil, "upload", t.TempDir()); err == nil {
		t.Fatal("expected directory upload to fail")
	}
}

func TestFileIDArguments(t *testing.T) {
	cfg := newCLITestConfig(t)
	for _, args := range [][]string{{"rm"}, {"rm", "abc"}, {"show", "0"}, {"get", "1", "2"}} {
		if _, err := runCLI(t, cfg, nil, args...); err == nil {
			t.Fatalf("expected %v to be rejected", args)
		}
	}
}

func TestUserCommands(t *testing.T) {
	cfg := newCLITestConfig(t)

	if _, err := runCLI(t, cfg, strings.NewReader("s3cret-pass\n"), "user", "add", "Amrit", "--email", "Amrit@Example.com"); err == nil {
		t.Fatal("expected --password-stdin to be required")
	}

	out, err := runCLI(t, cfg, strings.NewReader("s3cret-pass\n"), "--json", "user", "add", "Amrit", "--email", "Amrit@Example.com", "--password-stdin")
	if err != nil {
		t.Fatalf("user add: %v", err)
	}
	var created models.User
	if err := json.Unmarshal([]byte(out), &created); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if created.ID == 0 || created.Username != "amrit" || created.Email != "amrit@example.com" {
		t.Fatalf("unexpected user %+v", created)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()
	stored, err := st.GetUserByUsername(context.Background(), "amrit")
	if err != nil || stored == nil {
		t.Fatalf("lookup user: %v", err)
	}
	if !auth.VerifyPassword(stored.HashedPassword, "s3cret-pass") {
		t.Fatal("expected stored hash to verify")
	}

	if _, err := runCLI(t, cfg, strings.NewReader("another-pass\n"), "user", "add", "amrit", "--email", "x@example.com", "--password-stdin"); err == nil {
		t.Fatal("expected duplicate username to fail")
	}

	out, err = runCLI(t, cfg, nil, "user", "list")
	if err != nil {
		t.Fatalf("user list: %v", err)
	}
	if !strings.Contains(out, "amrit\tamrit@example.com") {
		t.Fatalf("unexpected user list output %q", out)
	}
}

func TestMigrateInspect(t *testing.T) {
	cfg := newCLITestConfig(t)
	out, err := runCLI(t, cfg, nil, "--json", "migrate", "--inspect")
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	var plan store.MigrationStatus
	if err := json.Unmarshal([]byte(out), &plan); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	if plan.CurrentVersion < 1 || plan.CurrentVersion != plan.AvailableVersion || len(plan.Pending) != 0 {
		t.Fatalf("unexpected migration plan %+v", plan)
	}
}

func TestConfigGetUnknownKey(t *testing.T) {
	cfg := config.Default()
	if _, err := configValue(&cfg, "storage.nope"); err == nil {
		t.Fatal("expected unknown key error")
	}
	got, err := configValue(&cfg, "storage.max_file_size_bytes")
	if err != nil || got != "104857600" {
		t.Fatalf("unexpected value %q err=%v", got, err)
	}
}

func TestDetectContentType(t *testing.T) {
	dir := t.TempDir()
	png := writeLocalFile(t, dir, "pixel", "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	empty := writeLocalFile(t, dir, "empty", "")
	text := writeLocalFile(t, dir, "readme.txt", "hi")

	tests := map[string]string{
		png:   "image/png",
		empty: "application/octet-stream",
		text:  "text/plain; charset=utf-8",
	}
	for path, want := range tests {
		f, err := os.Open(path)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		got, err := detectContentType(f)
		if err != nil {
			t.Fatalf("detect %s: %v", path, err)
		}
		if got != want {
			t.Fatalf("detect %s: expected %q, got %q", filepath.Base(path), want, got)
		}
		if pos, _ := f.Seek(0, io.SeekCurrent); pos != 0 {
			t.Fatalf("expected offset reset, got %d", pos)
		}
		f.Close()
	}
}

func TestSafeLocalName(t *testing.T) {
	for in, want := range map[string]string{
		"report.pdf":        "report.pdf",
		"../../etc/passwd":  "passwd",
		`C:\temp\notes.txt`: "notes.txt",
		"..":                "download",
		"":                  "download",
	} {
		if got := safeLocalName(in); got != want {
			t.Fatalf("safeLocalName(%q) = %q, want %q", in, got, want)
		}
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
