package handlers

import (
	"io"
	"os"

	"github.com/go-logr/logr"
	"gopkg.in/natefinch/lumberjack.v2"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/imamik/kubedash/internal/config"
)

// setupLogging installs the process logger. Debug switches to development
// mode (console encoding, V(1) enabled). A log file is rotated by size.
func setupLogging(cfg config.LogConfig) logr.Logger {
	logger := zap.New(zap.UseDevMode(cfg.Debug), zap.WriteTo(logWriter(cfg)))
	log.SetLogger(logger)
	return logger.WithName("kubedash")
}

func logWriter(cfg config.LogConfig) io.Writer {
	if cfg.File == "" {
		return os.Stderr
	}
	return io.MultiWriter(os.Stderr, &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	})
}
