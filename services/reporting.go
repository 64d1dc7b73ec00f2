package services

import (
	"time"

	"github.com/getsentry/sentry-go"
)

type ErrorReporter interface {
	Report(err error, tags map[string]string)
}

// SentryReporter forwards to the global sentry hub. Without sentry.Init it is
// a no-op.
type SentryReporter struct{}

func (SentryReporter) Report(err error, tags map[string]string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		for key, value := range tags {
			scope.SetTag(key, value)
		}
		sentry.CaptureException(err)
	})
}

// InitSentry is skipped entirely when dsn is empty.
func InitSentry(dsn string, environment string, release string) (func(), error) {
	if dsn == "" {
		return func() {}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          release,
		TracesSampleRate: 1.0,
	})
	if err != nil {
		return func() {}, err
	}
	return func() {
		sentry.Flush(2 * time.Second)
	}, nil
}
