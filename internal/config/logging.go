// internal/config/logging.go
package config

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// ConfigureLogging applies the log level and formatter to the standard logrus logger.
func ConfigureLogging(cfg LogConfig) {
	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stdout)

	if strings.EqualFold(cfg.Format, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}
