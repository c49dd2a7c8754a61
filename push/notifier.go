// Package push defines the narrow adapter interface the registry invokes
// to wake a device after it enqueues mailbox content (spec.md §1 scopes
// the push-notification HTTP client out of the core; spec.md §5 requires
// the call to happen outside any Registry lock).
//
// Grounded on the teacher's interfaces/packet_delivery.go: a small
// capability interface the core depends on, with simulation and
// no-op implementations for tests, and the real HTTP client left as an
// external collaborator.
package push

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Notifier delivers a wake-up signal to one device. Implementations must
// be safe for concurrent use; Notify is called from registry fanout
// goroutines, never while a Registry lock is held.
type Notifier interface {
	// Notify wakes the device identified by pushToken. A push failure
	// must not be treated as a request failure (spec.md §7: "a
	// push-notification failure is logged only").
	Notify(ctx context.Context, pushToken string) error
}

// NoopNotifier discards every notification. Useful for tests and for
// devices that never registered a push token.
type NoopNotifier struct{}

// Notify implements Notifier by doing nothing.
func (NoopNotifier) Notify(context.Context, string) error { return nil }

// LoggingNotifier wraps another Notifier and logs every call plus any
// failure, matching spec.md §7's "a push failure is logged only" policy.
type LoggingNotifier struct {
	Next Notifier
}

// Notify delegates to Next, logging the outcome.
func (n LoggingNotifier) Notify(ctx context.Context, pushToken string) error {
	next := n.Next
	if next == nil {
		next = NoopNotifier{}
	}
	err := next.Notify(ctx, pushToken)
	fields := logrus.Fields{"function": "Notify"}
	if err != nil {
		logrus.WithFields(fields).WithError(err).Warn("push notification failed")
	} else {
		logrus.WithFields(fields).Debug("push notification delivered")
	}
	return err
}
