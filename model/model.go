package model

import (
	"time"

	"github.com/go-git/go-git/v5/plumbing"
)

// Config is the full configuration surface of the daemon. It is built
// once at startup and never mutated afterwards.
type Config struct {
	Path           string `validate:"required"`
	RemoteURL      string
	Remote         string `validate:"required"`
	Branch         string `validate:"required"`
	Interval       int    `validate:"gte=1"`
	Command        string `validate:"required"`
	PrivateKeyPath string `validate:"required"`
	PublicKeyPath  string `validate:"required"`
	Username       string `validate:"required"`
	UsePassphrase  bool
}

// SyncResult reports the outcome of one fetch cycle. Changed is true
// when the tracked branch tip moved.
type SyncResult struct {
	OldHash plumbing.Hash
	NewHash plumbing.Hash
	Changed bool
}

// CommandOutcome describes the most recent command invocation. An
// ExitCode of -1 means the child was terminated by a signal.
type CommandOutcome struct {
	ExitCode int
	Elapsed  time.Duration
}
