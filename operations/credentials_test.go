package operations

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	gossh "golang.org/x/crypto/ssh"

	"github.com/ceeox/localdeploy/model"
)

// writeKeyPair generates an RSA key pair on disk. A non-empty
// passphrase produces an encrypted private key.
func writeKeyPair(t *testing.T, dir, passphrase string) (string, string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	if passphrase != "" {
		block, err = x509.EncryptPEMBlock(rand.Reader, block.Type, block.Bytes, []byte(passphrase), x509.PEMCipherAES256) //nolint:staticcheck // fixture generation only
		require.NoError(t, err)
	}
	privPath := filepath.Join(dir, "id_rsa")
	require.NoError(t, os.WriteFile(privPath, pem.EncodeToMemory(block), 0o600))

	pub, err := gossh.NewPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPath := privPath + ".pub"
	require.NoError(t, os.WriteFile(pubPath, gossh.MarshalAuthorizedKey(pub), 0o644))

	return privPath, pubPath
}

func newTestProvider(priv, pub string, usePassphrase bool) *CredentialProvider {
	return NewCredentialProvider(model.Config{
		Username:       "git",
		PrivateKeyPath: priv,
		PublicKeyPath:  pub,
		UsePassphrase:  usePassphrase,
	})
}

func TestResolveMissingKeys(t *testing.T) {
	dir := t.TempDir()
	provider := newTestProvider(filepath.Join(dir, "id_rsa"), filepath.Join(dir, "id_rsa.pub"), false)

	_, err := provider.Resolve()
	var credErr *CredentialError
	require.ErrorAs(t, err, &credErr)
	require.Equal(t, KeyNotFound, credErr.Reason)
}

func TestResolveMissingPublicKey(t *testing.T) {
	priv, pub := writeKeyPair(t, t.TempDir(), "")
	require.NoError(t, os.Remove(pub))
	provider := newTestProvider(priv, pub, false)

	_, err := provider.Resolve()
	var credErr *CredentialError
	require.ErrorAs(t, err, &credErr)
	require.Equal(t, KeyNotFound, credErr.Reason)
}

func TestResolveCachesAuthMethod(t *testing.T) {
	priv, pub := writeKeyPair(t, t.TempDir(), "")
	provider := newTestProvider(priv, pub, false)

	first, err := provider.Resolve()
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := provider.Resolve()
	require.NoError(t, err)
	require.Same(t, first, second, "auth method should be resolved once and reused")
}

func TestResolvePromptsAtMostOnce(t *testing.T) {
	priv, pub := writeKeyPair(t, t.TempDir(), "sesame")
	provider := newTestProvider(priv, pub, true)

	prompts := 0
	provider.prompt = func() (string, error) {
		prompts++
		return "sesame", nil
	}

	for i := 0; i < 3; i++ {
		auth, err := provider.Resolve()
		require.NoError(t, err)
		require.NotNil(t, auth)
	}
	require.Equal(t, 1, prompts, "operator must only be asked once per run")
}

func TestResolveWrongPassphraseRejected(t *testing.T) {
	priv, pub := writeKeyPair(t, t.TempDir(), "sesame")
	provider := newTestProvider(priv, pub, true)

	prompts := 0
	provider.prompt = func() (string, error) {
		prompts++
		return "not-the-passphrase", nil
	}

	_, err := provider.Resolve()
	var credErr *CredentialError
	require.ErrorAs(t, err, &credErr)
	require.Equal(t, AuthRejected, credErr.Reason)

	// A second attempt must reuse the cached passphrase rather than
	// prompting again with a different guess.
	_, err = provider.Resolve()
	require.ErrorAs(t, err, &credErr)
	require.Equal(t, 1, prompts)
}

func TestResolvePromptFailureSurfaces(t *testing.T) {
	priv, pub := writeKeyPair(t, t.TempDir(), "sesame")
	provider := newTestProvider(priv, pub, true)
	provider.prompt = func() (string, error) {
		return "", errors.New("stdin closed")
	}

	_, err := provider.Resolve()
	require.Error(t, err)
	require.Contains(t, err.Error(), "passphrase")
}
