package operations

import (
	"errors"
	"fmt"
)

// The loop only distinguishes two error classes: transport failures are
// contained to a single cycle and retried on the next interval,
// everything else aborts the process.

type CredentialReason int

const (
	// KeyNotFound means the configured key files are missing or unreadable.
	KeyNotFound CredentialReason = iota
	// AuthRejected means the key material was refused with the supplied
	// passphrase. No other passphrase is ever tried.
	AuthRejected
)

func (r CredentialReason) String() string {
	switch r {
	case KeyNotFound:
		return "key not found"
	case AuthRejected:
		return "authentication rejected"
	}
	return "unknown"
}

// CredentialError reports unusable SSH key material. It is fatal during
// the initial open or clone; later fetches wrap it in a TransportError
// so the loop keeps polling.
type CredentialError struct {
	Reason CredentialReason
	Err    error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("credentials: %s: %v", e.Reason, e.Err)
}

func (e *CredentialError) Unwrap() error { return e.Err }

// ConfigError reports an unusable configuration, such as a missing
// repository with no clone URL to create it from.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "config: " + e.Msg }

// TransportError reports a network, protocol or authentication failure
// while talking to the remote. The cycle is skipped and the previous
// tip retained.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RepoError reports a broken repository or an unknown branch or remote.
// Retrying cannot heal these.
type RepoError struct {
	Op  string
	Err error
}

func (e *RepoError) Error() string {
	return fmt.Sprintf("repository: %s: %v", e.Op, e.Err)
}

func (e *RepoError) Unwrap() error { return e.Err }

// Fatal reports whether err should abort the process instead of being
// retried on the next interval.
func Fatal(err error) bool {
	var te *TransportError
	return !errors.As(err, &te)
}
