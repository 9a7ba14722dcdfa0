package logger

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	globalLogger *logrus.Logger
	mu           sync.Mutex
)

// Init initializes the global logger. Level is one of debug, info, warn,
// error; anything else falls back to info.
func Init(level string) {
	mu.Lock()
	defer mu.Unlock()

	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	l.SetLevel(parsed)

	globalLogger = l
}

func get() *logrus.Logger {
	mu.Lock()
	defer mu.Unlock()

	if globalLogger == nil {
		globalLogger = logrus.New()
	}
	return globalLogger
}

// Info logs an info message.
func Info(format string, v ...interface{}) {
	get().Infof(format, v...)
}

// Debug logs a debug message.
func Debug(format string, v ...interface{}) {
	get().Debugf(format, v...)
}

// Error logs an error message.
func Error(format string, v ...interface{}) {
	get().Errorf(format, v...)
}

// Warn logs a warning message.
func Warn(format string, v ...interface{}) {
	get().Warnf(format, v...)
}

// WithFields returns an entry carrying structured fields.
func WithFields(fields map[string]interface{}) *logrus.Entry {
	return get().WithFields(logrus.Fields(fields))
}

// GetWriter returns the logger output for components that need a raw writer.
func GetWriter() io.Writer {
	return get().Writer()
}
