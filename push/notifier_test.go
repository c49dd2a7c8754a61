package push

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// recordingNotifier records every Notify call for test assertions,
// mirroring the teacher's SimulatedPacketDelivery recording pattern.
type recordingNotifier struct {
	mu     sync.Mutex
	tokens []string
	err    error
}

func (r *recordingNotifier) Notify(_ context.Context, pushToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, pushToken)
	return r.err
}

func TestNoopNotifierAlwaysSucceeds(t *testing.T) {
	n := NoopNotifier{}
	require.NoError(t, n.Notify(context.Background(), "token"))
}

func TestLoggingNotifierDelegates(t *testing.T) {
	rec := &recordingNotifier{}
	n := LoggingNotifier{Next: rec}
	require.NoError(t, n.Notify(context.Background(), "abc"))
	require.Equal(t, []string{"abc"}, rec.tokens)
}

func TestLoggingNotifierSurfacesErrorWithoutPanicking(t *testing.T) {
	rec := &recordingNotifier{err: errors.New("unreachable")}
	n := LoggingNotifier{Next: rec}
	err := n.Notify(context.Background(), "abc")
	require.Error(t, err)
}

func TestLoggingNotifierDefaultsToNoop(t *testing.T) {
	n := LoggingNotifier{}
	require.NoError(t, n.Notify(context.Background(), "abc"))
}
