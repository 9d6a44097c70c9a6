package utils

import (
	"os"

	"github.com/sirupsen/logrus"
)

const logTimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// Logger is the process-wide logger shared by every engine component.
// Components attach themselves via ComponentLogger rather than holding their
// own logrus instances, so level and format changes apply everywhere at once.
var Logger *logrus.Logger

// InitLogger configures the global logger from the logging config section
func InitLogger(level, format, output, file string) error {
	Logger = logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	Logger.SetLevel(logLevel)

	switch format {
	case "json":
		Logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: logTimestampFormat,
		})
	default:
		Logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: logTimestampFormat,
		})
	}

	if output == "file" && file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return err
		}
		Logger.SetOutput(f)
	} else {
		Logger.SetOutput(os.Stdout)
	}

	return nil
}

// GetLogger returns the global logger, initializing it with defaults when the
// CLI has not configured it yet (tests, ad-hoc tooling)
func GetLogger() *logrus.Logger {
	if Logger == nil {
		InitLogger("info", "json", "stdout", "")
	}
	return Logger
}

// ComponentLogger returns an entry scoped to a component name, e.g.
// "sync_orchestrator" or "ledger"
func ComponentLogger(component string) *logrus.Entry {
	return GetLogger().WithField("component", component)
}
