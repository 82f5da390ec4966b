// Package logging builds the application logger. The terminal belongs to the
// UI, so log output goes to a file.
package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// New returns a zap logger writing to path. When debug is true, uses
// development config (human-readable, debug level); otherwise uses production
// config (JSON, info level).
func New(debug bool, path string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	if path != "" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		cfg.OutputPaths = []string{path}
		cfg.ErrorOutputPaths = []string{path}
	}
	return cfg.Build()
}
