package operations

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFatalClassification(t *testing.T) {
	transport := &TransportError{Op: "fetch", Err: errors.New("connection refused")}
	require.False(t, Fatal(transport))
	require.False(t, Fatal(fmt.Errorf("cycle failed: %w", transport)))

	require.True(t, Fatal(&RepoError{Op: "open", Err: errors.New("corrupt")}))
	require.True(t, Fatal(&ConfigError{Msg: "no repo source"}))
	require.True(t, Fatal(&CredentialError{Reason: KeyNotFound, Err: errors.New("missing")}))
	require.True(t, Fatal(errors.New("anything else")))
}

func TestCredentialErrorWrapsTransport(t *testing.T) {
	credErr := &CredentialError{Reason: AuthRejected, Err: errors.New("bad key")}
	wrapped := &TransportError{Op: "auth", Err: credErr}

	require.False(t, Fatal(wrapped))
	var inner *CredentialError
	require.ErrorAs(t, wrapped, &inner)
	require.Equal(t, AuthRejected, inner.Reason)
}
