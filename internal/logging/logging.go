// Package logging builds the console logger used by every command.
package logging

import (
	"go.uber.org/zap"
)

// New returns a sugared console logger. Debug mode switches to the
// development config with debug-level output; otherwise only warnings
// and errors reach the console so machine-readable stdout stays clean.
func New(debug bool) *zap.SugaredLogger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	cfg.Encoding = "console"
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		panic("logger init: " + err.Error())
	}
	return logger.Sugar()
}
