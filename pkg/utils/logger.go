package utils

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// App default configurations
var (
	ModName = "utils"
	log     = logrus.WithField(
		"module", ModName,
	)
	DefaultLoglvl    = logrus.InfoLevel
	DefaultLogOutput = os.Stderr
)

// Select Log Level from string
func ParseLogLevel(lvl string) logrus.Level {
	switch lvl {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return DefaultLoglvl
	}
}

// parse Output from string. Reports go to stdout/files, so logs default to stderr.
func ParseLogOutput(out string) io.Writer {
	switch out {
	case "terminal", "stdout":
		return os.Stdout
	case "stderr":
		return os.Stderr
	default:
		return DefaultLogOutput
	}
}
