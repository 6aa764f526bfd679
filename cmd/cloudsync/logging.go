package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"cloudsync/internal/config"
)

const (
	logLevelEnvKey  = "CLOUDSYNC_LOG_LEVEL"
	logFormatEnvKey = "CLOUDSYNC_LOG_FORMAT"
)

// levelSource records which setting won when resolving the log level.
type levelSource int

const (
	sourceDefault levelSource = iota
	sourceConfig
	sourceEnv
	sourceFlag
)

// configureLoggerForCLI installs the default logger. Flag > env > config.
// A bad flag is an error; a bad env or config value falls back to the
// default level and returns a warning line for stderr.
func configureLoggerForCLI(flagLevel, configLevel string) (string, error) {
	envLevel := os.Getenv(logLevelEnvKey)
	raw, source := selectedLogLevel(flagLevel, envLevel, configLevel)

	level, err := parseLogLevel(raw)
	if err == nil {
		slog.SetDefault(newLogger(os.Stderr, level))
		return "", nil
	}

	var warning string
	switch source {
	case sourceFlag:
		return "", fmt.Errorf("invalid --log-level %q", flagLevel)
	case sourceEnv:
		warning = fmt.Sprintf("warning: invalid %s=%q; defaulting to %s", logLevelEnvKey, envLevel, config.DefaultLogLevel)
	case sourceConfig:
		warning = fmt.Sprintf("warning: invalid log_level=%q; defaulting to %s", configLevel, config.DefaultLogLevel)
	}
	fallback, _ := parseLogLevel(config.DefaultLogLevel)
	slog.SetDefault(newLogger(os.Stderr, fallback))
	return warning, nil
}

func selectedLogLevel(flagLevel, envLevel, configLevel string) (string, levelSource) {
	switch {
	case strings.TrimSpace(flagLevel) != "":
		return flagLevel, sourceFlag
	case strings.TrimSpace(envLevel) != "":
		return envLevel, sourceEnv
	case strings.TrimSpace(configLevel) != "":
		return configLevel, sourceConfig
	}
	return "", sourceDefault
}

func parseLogLevel(raw string) (slog.Level, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return slog.LevelDebug, nil
	}
	if strings.EqualFold(value, "warning") {
		value = "warn"
	}
	if numeric, err := strconv.Atoi(value); err == nil {
		return slog.Level(numeric), nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return slog.LevelDebug, fmt.Errorf("invalid log level %q", raw)
	}
	return level, nil
}

// newLogger builds a text handler, or a JSON handler when
// CLOUDSYNC_LOG_FORMAT=json.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(logFormatEnvKey)), "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
