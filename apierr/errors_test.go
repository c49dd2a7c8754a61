package apierr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[Kind]int{
		KindInvalidRequest:        http.StatusBadRequest,
		KindAuthenticationFailed:  http.StatusUnauthorized,
		KindResourceNotAvailable:  http.StatusNotFound,
		KindInvalidSignature:      http.StatusNotAcceptable,
		KindResourceAlreadyExists: http.StatusConflict,
		KindRequestOutdated:       http.StatusGone,
		KindInvalidKeyUpload:      http.StatusPreconditionFailed,
		KindInternal:              http.StatusInternalServerError,
	}
	for kind, want := range cases {
		require.Equal(t, want, kind.HTTPStatus())
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(KindInternal, "consumePreKeys", cause)
	require.ErrorIs(t, err, cause)
	require.Equal(t, KindInternal, KindOf(err))
}

func TestKindOfDefaultsToInternal(t *testing.T) {
	require.Equal(t, KindInternal, KindOf(errors.New("unclassified")))
}

func TestNewProducesReadableMessage(t *testing.T) {
	err := New(KindAuthenticationFailed, "authenticateDevice", "token mismatch")
	require.Contains(t, err.Error(), "authenticateDevice")
	require.Contains(t, err.Error(), "AuthenticationFailed")
	require.Contains(t, err.Error(), "token mismatch")
}
