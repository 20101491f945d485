package tools

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger returns a JSON logger writing to stdout and, when cfg.LogFile is
// set, appending to that file too. The returned closer closes the file.
func NewLogger(cfg Config) (*logrus.Logger, io.Closer, error) {
	l := logrus.New()
	l.Formatter = &logrus.JSONFormatter{}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if cfg.LogFile == "" {
		l.SetOutput(os.Stdout)
		return l, io.NopCloser(nil), nil
	}
	// Record anything we log in the log file
	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening log file: %w", err)
	}
	l.SetOutput(io.MultiWriter(logFile, os.Stdout))
	return l, logFile, nil
}
