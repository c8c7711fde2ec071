package config

import (
	"io"
	"log/slog"
	"os"
	"strings"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultListenAddr   = ":8080"
	defaultStoreBackend = "file"
	defaultStorePath    = "/tmp/vpsuser.json"

	// Log rotation defaults for CAPSULE_LOG_FILE.
	defaultLogMaxSizeMB  = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAgeDays = 7

	envListenAddr     = "CAPSULE_LISTEN_ADDR"
	envStoreBackend   = "CAPSULE_STORE_BACKEND"
	envStorePath      = "CAPSULE_STORE_PATH"
	envLogLevel       = "CAPSULE_LOG_LEVEL"
	envLogFile        = "CAPSULE_LOG_FILE"
	envAllowedOrigins = "CAPSULE_ALLOWED_ORIGINS"
	envCallbackSalt   = "CALLBACK_SALT"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	ListenAddr     string
	StoreBackend   string
	StorePath      string
	LogLevel       slog.Level
	LogFile        string
	AllowedOrigins []string
	// CallbackSalt keys callback secret derivation. Empty selects the
	// built-in default, which is not safe outside development.
	CallbackSalt string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	cfg := Config{
		ListenAddr:     defaultListenAddr,
		StoreBackend:   defaultStoreBackend,
		StorePath:      defaultStorePath,
		LogLevel:       slog.LevelInfo,
		AllowedOrigins: []string{"*"},
	}

	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envStoreBackend); v != "" {
		cfg.StoreBackend = strings.ToLower(v)
	}
	if v := os.Getenv(envStorePath); v != "" {
		cfg.StorePath = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
	if v := os.Getenv(envLogFile); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv(envAllowedOrigins); v != "" {
		if origins := parseList(v); len(origins) > 0 {
			cfg.AllowedOrigins = origins
		}
	}
	cfg.CallbackSalt = os.Getenv(envCallbackSalt)

	return cfg
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// LogWriter returns the destination for application logs: stdout, and also
// a size-rotated file when LogFile is set. The returned closer releases the
// file.
func (c Config) LogWriter(stdout io.Writer) (io.Writer, io.Closer) {
	if c.LogFile == "" {
		return stdout, nopCloser{}
	}
	file := &lj.Logger{
		Filename:   c.LogFile,
		MaxSize:    defaultLogMaxSizeMB,
		MaxBackups: defaultLogMaxBackups,
		MaxAge:     defaultLogMaxAgeDays,
		Compress:   true,
	}
	return io.MultiWriter(stdout, file), file
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
