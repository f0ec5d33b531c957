package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	easy "github.com/t-tomalak/logrus-easy-formatter"
)

// New builds the process logger. format "json" is used in production; any
// other value selects the compact text layout.
func New(level, format string) *logrus.Logger {
	l := logrus.New()
	l.Out = os.Stderr
	l.Level = parseLevel(level)
	if strings.EqualFold(format, "json") {
		l.Formatter = &logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"}
	} else {
		l.Formatter = &easy.Formatter{
			TimestampFormat: "01-02 15:04:05.000",
			LogFormat:       "[%lvl%]   [%time%]   -   %msg%\n",
		}
	}
	return l
}

// Component returns an entry tagged with the component name.
func Component(l *logrus.Logger, name string) *logrus.Entry {
	return l.WithField("component", name)
}

// OrDiscard returns e, or an entry that drops everything when e is nil.
func OrDiscard(e *logrus.Entry) *logrus.Entry {
	if e != nil {
		return e
	}
	l := logrus.New()
	l.Out = io.Discard
	return logrus.NewEntry(l)
}

func parseLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
