package shared

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// ConfigureLogging applies level and formatter to the standard logrus logger
func ConfigureLogging(cfg LoggingConfig) {
	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		logrus.WithField("level", cfg.Level).Warn("Invalid log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	logrus.WithFields(logrus.Fields{
		"component":    "Logging",
		"level":        level.String(),
		"format":       cfg.Format,
		"service_name": cfg.ServiceName,
	}).Debug("Logging configured")
}
