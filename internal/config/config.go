package config

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAPIURL             = "http://127.0.0.1:8000"
	DefaultDBFileName         = "cloudsync.db"
	DefaultBlobDirName        = "uploads"
	DefaultLogLevel           = "debug"
	ConfigFileName            = ".cloudsync.toml"
	DefaultStorageLimit int64 = 1024 * 1024 * 1024
	DefaultMaxFileSize  int64 = 100 * 1024 * 1024

	configDirEnvKey          = "CLOUDSYNC_CONFIG_DIR"
	trustProjectConfigEnvKey = "CLOUDSYNC_TRUST_PROJECT_CONFIG"

	apiURLEnvKey       = "CLOUDSYNC_API_URL"
	dbPathEnvKey       = "CLOUDSYNC_DB"
	blobDirEnvKey      = "CLOUDSYNC_BLOB_DIR"
	corsOriginsEnvKey  = "CLOUDSYNC_CORS_ORIGINS"
	storageLimitEnvKey = "CLOUDSYNC_STORAGE_LIMIT_BYTES"
	maxFileSizeEnvKey  = "CLOUDSYNC_MAX_FILE_SIZE_BYTES"
)

// DefaultCORSOrigins are the web frontends allowed to call the API.
var DefaultCORSOrigins = []string{
	"https://amritclouds.web.app",
	"https://amritclouds.firebaseapp.com",
	"http://localhost:3000",
}

// StorageConfig defines limits and layout for stored files.
type StorageConfig struct {
	BlobDir           string   `toml:"blob_dir"`
	LimitBytes        int64    `toml:"limit_bytes"`
	MaxFileSizeBytes  int64    `toml:"max_file_size_bytes"`
	AllowedMediaTypes []string `toml:"allowed_media_types"`
	EnforceQuota      bool     `toml:"enforce_quota"`
}

// CORSConfig defines the cross-origin policy of the HTTP API.
type CORSConfig struct {
	AllowedOrigins   []string `toml:"allowed_origins"`
	AllowCredentials bool     `toml:"allow_credentials"`
}

// Config defines runtime configuration for cloudsync.
type Config struct {
	APIURL                   string        `toml:"api_url"`
	DBPath                   string        `toml:"db_path"`
	LogLevel                 string        `toml:"log_level"`
	Storage                  StorageConfig `toml:"storage"`
	CORS                     CORSConfig    `toml:"cors"`
	TrustedProjectConfigPath string        `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	origins := make([]string, len(DefaultCORSOrigins))
	copy(origins, DefaultCORSOrigins)
	return Config{
		APIURL:   DefaultAPIURL,
		DBPath:   "",
		LogLevel: DefaultLogLevel,
		Storage: StorageConfig{
			LimitBytes:       DefaultStorageLimit,
			MaxFileSizeBytes: DefaultMaxFileSize,
			EnforceQuota:     true,
		},
		CORS: CORSConfig{
			AllowedOrigins:   origins,
			AllowCredentials: true,
		},
	}
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, ConfigFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
	"api_url",
	"db_path",
	"log_level",
	"storage.blob_dir",
	"storage.limit_bytes",
	"storage.max_file_size_bytes",
	"storage.allowed_media_types",
	"storage.enforce_quota",
	"cors.allowed_origins",
	"cors.allow_credentials",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "db_path":
		return c.DBPath, nil
	case "log_level":
		return c.LogLevel, nil
	case "storage.blob_dir":
		return c.Storage.BlobDir, nil
	case "storage.limit_bytes":
		return strconv.FormatInt(c.Storage.LimitBytes, 10), nil
	case "storage.max_file_size_bytes":
		return strconv.FormatInt(c.Storage.MaxFileSizeBytes, 10), nil
	case "storage.allowed_media_types":
		return strings.Join(c.Storage.AllowedMediaTypes, ","), nil
	case "storage.enforce_quota":
		return strconv.FormatBool(c.Storage.EnforceQuota), nil
	case "cors.allowed_origins":
		return strings.Join(c.CORS.AllowedOrigins, ","), nil
	case "cors.allow_credentials":
		return strconv.FormatBool(c.CORS.AllowCredentials), nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, ConfigFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from trusted files and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, ConfigFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, ConfigFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	if apiURL := os.Getenv(apiURLEnvKey); apiURL != "" {
		cfg.APIURL = apiURL
	}
	if dbPath := os.Getenv(dbPathEnvKey); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if blobDir := os.Getenv(blobDirEnvKey); blobDir != "" {
		cfg.Storage.BlobDir = blobDir
	}
	if raw := strings.TrimSpace(os.Getenv(corsOriginsEnvKey)); raw != "" {
		cfg.CORS.AllowedOrigins = splitCSV(raw)
	}
	if raw := strings.TrimSpace(os.Getenv(storageLimitEnvKey)); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed >= 0 {
			cfg.Storage.LimitBytes = parsed
		}
	}
	if raw := strings.TrimSpace(os.Getenv(maxFileSizeEnvKey)); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed > 0 {
			cfg.Storage.MaxFileSizeBytes = parsed
		}
	}

	if cfg.DBPath == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	cfg.normalizeStorageDefaults()

	return &cfg, nil
}

// BlobDir returns the configured blob directory, or the uploads directory
// next to the database.
func (c *Config) BlobDir() string {
	if dir := strings.TrimSpace(c.Storage.BlobDir); dir != "" {
		return dir
	}
	return filepath.Join(filepath.Dir(c.DBPath), DefaultBlobDirName)
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "storage.max_file_size_bytes":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "storage.limit_bytes":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("%s must be a non-negative integer", key)
		}
		return parsed, nil
	case "storage.enforce_quota", "cors.allow_credentials":
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false", key)
		}
		return parsed, nil
	case "storage.allowed_media_types", "cors.allowed_origins":
		return splitCSV(value), nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func splitCSV(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func (c *Config) normalizeStorageDefaults() {
	if c.Storage.LimitBytes < 0 {
		c.Storage.LimitBytes = DefaultStorageLimit
	}
	if c.Storage.MaxFileSizeBytes <= 0 {
		c.Storage.MaxFileSizeBytes = DefaultMaxFileSize
	}
	c.Storage.AllowedMediaTypes = normalizeConfiguredMediaTypes(c.Storage.AllowedMediaTypes)
}

func normalizeConfiguredMediaTypes(rawValues []string) []string {
	if len(rawValues) == 0 {
		return nil
	}
	out := make([]string, 0, len(rawValues))
	seen := map[string]struct{}{}
	for _, raw := range rawValues {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parsed, _, err := mime.ParseMediaType(raw)
		if err != nil {
			continue
		}
		normalized := strings.ToLower(strings.TrimSpace(parsed))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
