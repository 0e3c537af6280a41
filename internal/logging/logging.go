// Package logging builds the structured loggers shared by the offline
// merge tool and the tile server.
package logging

import "go.uber.org/zap"

// New builds a production zap.Logger, switched to DebugLevel when debug
// is set (the server's --debug flag).
func New(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger, nil
}

// NewDevelopment builds a human-readable console logger, used for the
// CLI tools where a single operator reads the output directly; it logs
// at DebugLevel when debug is set (the overlayntiff -d flag), InfoLevel
// otherwise.
func NewDevelopment(debug bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if !debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}
