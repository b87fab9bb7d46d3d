// internal/logger/logger.go
package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func init() {
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetLevel(logrus.InfoLevel)
}

// Configure switches to JSON output in production and applies the level name.
func Configure(environment, level string) {
	if environment == "production" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	if parsed, err := logrus.ParseLevel(level); err == nil {
		log.SetLevel(parsed)
	}
}

func Get() *logrus.Logger {
	return log
}

// LogError writes a structured error entry tagged with where it happened.
func LogError(module, funcName, context string, data any, err error) {
	fields := logrus.Fields{
		"module":   module,
		"funcName": funcName,
		"context":  context,
	}
	if data != nil {
		fields["data"] = data
	}
	log.WithFields(fields).Error(err.Error())
}
