package report

import (
	"fmt"
	"time"

	"github.com/certifi/gocertifi"
	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

var enabled bool

// Init configures Sentry. An empty dsn leaves reporting disabled.
func Init(dsn, environment string, log *logrus.Entry) error {
	if dsn == "" {
		log.Warn("empty sentry DSN, error reporting disabled")
		return nil
	}
	rootCAs, err := gocertifi.CACerts()
	if err != nil {
		return fmt.Errorf("load sentry CA: %w", err)
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		CaCerts:     rootCAs,
	}); err != nil {
		return fmt.Errorf("init sentry: %w", err)
	}
	enabled = true
	log.Info("sentry error reporter initialized")
	return nil
}

// Error sends err to Sentry when reporting is enabled.
func Error(err error) {
	if !enabled || err == nil {
		return
	}
	sentry.CaptureException(err)
}

// Flush waits up to timeout for buffered events to be delivered.
func Flush(timeout time.Duration) {
	if enabled {
		sentry.Flush(timeout)
	}
}
