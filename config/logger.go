package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log is usable before InitLogger runs so that library code and tests can
// always emit through it.
var Log = logrus.New()

// InitLogger sets up the process-wide logrus instance. Unknown levels fall
// back to info.
func InitLogger(level string) {
	Log.SetFormatter(&logrus.JSONFormatter{})
	Log.SetOutput(os.Stdout)

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	Log.SetLevel(parsed)
}
