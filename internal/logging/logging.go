package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultPath returns the log file location inside the user cache directory.
func DefaultPath() (string, error) {
	cache, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolving cache dir: %w", err)
	}
	return filepath.Join(cache, "sopti", "sopti.log"), nil
}

// Open builds a logger appending to the given file. Console output stays
// clean for progress rendering; diagnostics go to the log only.
func Open(path string) (*zap.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", path, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(zapcore.AddSync(f)),
		zap.InfoLevel,
	)
	return zap.New(core), nil
}

// OpenDefault opens the logger at the default path, falling back to a no-op
// logger when the cache directory is unavailable.
func OpenDefault() *zap.Logger {
	path, err := DefaultPath()
	if err != nil {
		return zap.NewNop()
	}
	logger, err := Open(path)
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
