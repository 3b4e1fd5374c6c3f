package operations

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"golang.org/x/term"

	"github.com/ceeox/localdeploy/model"
)

// PassphraseFunc reads a passphrase from the operator.
type PassphraseFunc func() (string, error)

// CredentialProvider turns the configured SSH key pair into a reusable
// authentication method. Resolution is lazy: nothing touches the disk
// or the terminal until the first authenticated operation needs it.
// The operator is prompted for a passphrase at most once per run.
type CredentialProvider struct {
	username       string
	privateKeyPath string
	publicKeyPath  string
	usePassphrase  bool
	prompt         PassphraseFunc

	passphrase string
	prompted   bool
	auth       transport.AuthMethod
}

func NewCredentialProvider(config model.Config) *CredentialProvider {
	return &CredentialProvider{
		username:       config.Username,
		privateKeyPath: config.PrivateKeyPath,
		publicKeyPath:  config.PublicKeyPath,
		usePassphrase:  config.UsePassphrase,
		prompt:         readPassphrase,
	}
}

// Resolve returns the cached auth method, building it on first use.
// Key material does not change mid-run, so a successful resolution is
// reused for every subsequent fetch.
func (p *CredentialProvider) Resolve() (transport.AuthMethod, error) {
	if p.auth != nil {
		return p.auth, nil
	}

	for _, path := range []string{p.privateKeyPath, p.publicKeyPath} {
		if _, err := os.Stat(path); err != nil {
			return nil, &CredentialError{Reason: KeyNotFound, Err: fmt.Errorf("ssh key %s: %w", path, err)}
		}
	}

	if p.usePassphrase && !p.prompted {
		passphrase, err := p.prompt()
		if err != nil {
			return nil, fmt.Errorf("failed to read passphrase: %w", err)
		}
		p.passphrase = passphrase
		p.prompted = true
	}

	auth, err := ssh.NewPublicKeysFromFile(p.username, p.privateKeyPath, p.passphrase)
	if err != nil {
		return nil, &CredentialError{Reason: AuthRejected, Err: err}
	}
	p.auth = auth
	return auth, nil
}

func readPassphrase() (string, error) {
	fmt.Fprint(os.Stderr, "SSH key passphrase: ")
	passphrase, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(passphrase)), nil
}
