package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

var log *logrus.Logger

// Init configures the package logger. Unknown levels fall back to info.
func Init(level string) {
	l := logrus.New()
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log = l
}

func get() *logrus.Logger {
	if log == nil {
		Init("info")
	}
	return log
}

// SetOutput redirects log output, mostly for tests and the bridge's quiet mode.
func SetOutput(w io.Writer) {
	get().SetOutput(w)
}

// WithField returns an entry carrying a single structured field.
func WithField(key string, value interface{}) *logrus.Entry {
	return get().WithField(key, value)
}

func Debug(args ...interface{})                 { get().Debug(args...) }
func Info(args ...interface{})                  { get().Info(args...) }
func Warn(args ...interface{})                  { get().Warn(args...) }
func Error(args ...interface{})                 { get().Error(args...) }
func Fatal(args ...interface{})                 { get().Fatal(args...) }
func Debugf(format string, args ...interface{}) { get().Debugf(format, args...) }
func Infof(format string, args ...interface{})  { get().Infof(format, args...) }
func Warnf(format string, args ...interface{})  { get().Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { get().Errorf(format, args...) }
func Fatalf(format string, args ...interface{}) { get().Fatalf(format, args...) }
