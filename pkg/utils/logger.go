package utils

import (
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	Logger     *logrus.Logger
	loggerOnce sync.Once
)

// NewLogger builds a JSON logger at the given level. Unknown levels fall back to info.
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()

	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(ParseLevel(level))
	logger.SetOutput(os.Stdout)

	return logger
}

// ParseLevel maps LOG_LEVEL style strings onto logrus levels.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// GetLogger returns the process logger, configured from LOG_LEVEL on first use.
func GetLogger() *logrus.Logger {
	loggerOnce.Do(func() {
		if Logger == nil {
			Logger = NewLogger(os.Getenv("LOG_LEVEL"))
		}
	})
	return Logger
}
