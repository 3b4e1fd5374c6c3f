package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/ceeox/localdeploy/model"
)

// Repository wraps the on-disk working copy and the (remote, branch)
// pair it tracks. The stored tip only moves after a successful
// fast-forward, so a failed cycle leaves the baseline intact.
type Repository struct {
	path   string
	url    string
	remote string
	branch string
	creds  *CredentialProvider
	logger *slog.Logger

	repo *git.Repository
	tip  plumbing.Hash
}

func NewRepository(config model.Config, creds *CredentialProvider, logger *slog.Logger) *Repository {
	return &Repository{
		path:   config.Path,
		url:    config.RemoteURL,
		remote: config.Remote,
		branch: config.Branch,
		creds:  creds,
		logger: logger,
	}
}

// Path returns the working copy location, which is also the working
// directory for the configured command.
func (r *Repository) Path() string { return r.path }

// Tip returns the last-known tip of the tracked branch.
func (r *Repository) Tip() plumbing.Hash { return r.tip }

// OpenOrClone opens the repository at the configured path, cloning it
// from the configured URL when the path holds none. Any error here is
// fatal: the loop must not start without a usable working copy.
func (r *Repository) OpenOrClone(ctx context.Context) error {
	repo, err := git.PlainOpen(r.path)
	switch {
	case err == nil:
		r.logger.Info("Repository found", "path", r.path)
		r.repo = repo
	case errors.Is(err, git.ErrRepositoryNotExists):
		if r.url == "" {
			return &ConfigError{Msg: fmt.Sprintf("no repository at %s and no clone url given", r.path)}
		}
		if err := r.clone(ctx); err != nil {
			return err
		}
	default:
		return &RepoError{Op: "open " + r.path, Err: err}
	}
	return r.baseline()
}

func (r *Repository) clone(ctx context.Context) error {
	auth, err := r.authFor(r.url)
	if err != nil {
		return err
	}
	r.logger.Info("Repository not found, cloning...", "path", r.path, "url", r.url)
	repo, err := git.PlainCloneContext(ctx, r.path, false, &git.CloneOptions{
		URL:           r.url,
		Auth:          auth,
		RemoteName:    r.remote,
		ReferenceName: plumbing.NewBranchReferenceName(r.branch),
		Progress:      os.Stdout,
	})
	if err != nil {
		return &TransportError{Op: "clone", Err: err}
	}
	r.logger.Info("Clone successful.")
	r.repo = repo
	return nil
}

// authFor resolves SSH credentials when the url needs them. Plain
// http(s) remotes are rejected before any dial: this tool only
// authenticates over ssh, and failing deep inside the transport would
// bury the real problem.
func (r *Repository) authFor(url string) (transport.AuthMethod, error) {
	ep, err := transport.NewEndpoint(url)
	if err != nil {
		return nil, &ConfigError{Msg: fmt.Sprintf("invalid remote url %s: %v", url, err)}
	}
	switch ep.Protocol {
	case "http", "https":
		return nil, &TransportError{Op: "auth", Err: fmt.Errorf("%s remotes are not supported, use an ssh url", ep.Protocol)}
	case "ssh":
		return r.creds.Resolve()
	}
	return nil, nil
}

// baseline records the current branch tip so the first sync compares
// against the state present at startup. A local branch may not exist
// yet when an existing repository was checked out elsewhere; the
// remote-tracking ref or HEAD then serves as the starting point.
func (r *Repository) baseline() error {
	for _, name := range []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(r.branch),
		plumbing.NewRemoteReferenceName(r.remote, r.branch),
	} {
		ref, err := r.repo.Reference(name, true)
		if err == nil {
			r.tip = ref.Hash()
			return nil
		}
		if !errors.Is(err, plumbing.ErrReferenceNotFound) {
			return &RepoError{Op: "resolve " + name.String(), Err: err}
		}
	}
	head, err := r.repo.Head()
	if err != nil {
		return &RepoError{Op: "resolve HEAD", Err: err}
	}
	r.tip = head.Hash()
	return nil
}

// Sync fetches the remote and fast-forwards the local branch when the
// remote tip moved. Transport failures leave the stored tip untouched
// so the next interval retries from the same baseline.
func (r *Repository) Sync(ctx context.Context) (model.SyncResult, error) {
	result := model.SyncResult{OldHash: r.tip, NewHash: r.tip}

	remote, err := r.repo.Remote(r.remote)
	if err != nil {
		return result, &RepoError{Op: "remote " + r.remote, Err: err}
	}
	var auth transport.AuthMethod
	if urls := remote.Config().URLs; len(urls) > 0 {
		auth, err = r.authFor(urls[0])
		if err != nil {
			var credErr *CredentialError
			if errors.As(err, &credErr) {
				// Key trouble after a successful startup is worth
				// retrying: the operator may fix the key files while
				// the daemon keeps polling.
				return result, &TransportError{Op: "auth", Err: credErr}
			}
			return result, err
		}
	}

	err = r.repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: r.remote,
		Auth:       auth,
		Force:      true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return result, &TransportError{Op: "fetch", Err: err}
	}

	remoteRef, err := r.repo.Reference(plumbing.NewRemoteReferenceName(r.remote, r.branch), true)
	if err != nil {
		return result, &RepoError{Op: fmt.Sprintf("remote branch %s/%s", r.remote, r.branch), Err: err}
	}
	newHash := remoteRef.Hash()
	if newHash == r.tip {
		return result, nil
	}

	r.logger.Info("Updating repository", "old_hash", r.tip, "new_hash", newHash)
	if err := r.fastForward(newHash); err != nil {
		return result, err
	}
	r.tip = newHash
	result.NewHash = newHash
	result.Changed = true
	return result, nil
}

// fastForward moves the local branch to hash and makes the working
// tree match it exactly. Local modifications are discarded: the
// working copy is a deploy target, not a workspace.
func (r *Repository) fastForward(hash plumbing.Hash) error {
	worktree, err := r.repo.Worktree()
	if err != nil {
		return &RepoError{Op: "worktree", Err: err}
	}
	branchRef := plumbing.NewBranchReferenceName(r.branch)
	err = worktree.Checkout(&git.CheckoutOptions{Branch: branchRef, Force: true})
	if errors.Is(err, git.ErrBranchNotFound) {
		err = worktree.Checkout(&git.CheckoutOptions{Hash: hash, Branch: branchRef, Create: true})
	}
	if err != nil {
		return &RepoError{Op: "checkout " + r.branch, Err: err}
	}
	if err := worktree.Reset(&git.ResetOptions{Commit: hash, Mode: git.HardReset}); err != nil {
		return &RepoError{Op: "reset", Err: err}
	}
	return nil
}
