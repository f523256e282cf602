package log

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// Logger wraps logrus with printf-style helpers and a colored banner.
type Logger struct {
	*logrus.Logger
	green *color.Color
	cyan  *color.Color
	bold  *color.Color
}

func New(debug bool) *Logger {
	logger := &Logger{
		Logger: logrus.New(),
		green:  color.New(color.FgGreen),
		cyan:   color.New(color.FgCyan),
		bold:   color.New(color.Bold),
	}

	logger.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "2006/01/02 15:04:05",
		FullTimestamp:   true,
		DisableSorting:  true,
	})

	if debug || os.Getenv("DEBUG") == "true" {
		logger.SetLevel(logrus.DebugLevel)
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	return logger
}

// Discard returns a logger that drops everything, for tests.
func Discard() *Logger {
	l := New(false)
	l.SetOutput(io.Discard)
	return l
}

func (l *Logger) Info(format string, v ...interface{}) {
	l.Logger.Info(fmt.Sprintf(format, v...))
}

func (l *Logger) Warn(format string, v ...interface{}) {
	l.Logger.Warn(fmt.Sprintf(format, v...))
}

func (l *Logger) Error(format string, v ...interface{}) {
	l.Logger.Error(fmt.Sprintf(format, v...))
}

func (l *Logger) Fatal(format string, v ...interface{}) {
	l.Logger.Fatal(fmt.Sprintf(format, v...))
}

func (l *Logger) Debug(format string, v ...interface{}) {
	l.Logger.Debug(fmt.Sprintf(format, v...))
}

// Banner prints the listening port and the managed storages.
func (l *Logger) Banner(port string, mounts map[string]string) {
	names := make([]string, 0, len(mounts))
	for name := range mounts {
		names = append(names, name)
	}
	sort.Strings(names)

	out := l.Out
	l.bold.Fprintf(out, "Server running on port %s\n", port)
	l.green.Fprintf(out, "Managing %d storage(s):\n", len(mounts))
	for _, name := range names {
		l.cyan.Fprintf(out, "   - %s: %s\n", name, mounts[name])
	}
}
