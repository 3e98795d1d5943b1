package git

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5"
	gitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/errors"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/models"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/ports"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/logger"
)

var _ ports.WorkspaceSession = (*Workspace)(nil)

// Workspace is a clone living in a temporary directory.
// Exec may run concurrently for different subdirectories, so the repository
// handle it refreshes is guarded by mu.
type Workspace struct {
	dir  string
	auth transport.AuthMethod

	mu   sync.RWMutex
	repo *git.Repository
}

func (w *Workspace) Dir() string {
	return w.dir
}

// reload reopens the repository so refs and objects written by external
// tools are visible.
func (w *Workspace) reload() error {
	repo, err := git.PlainOpen(w.dir)
	if err != nil {
		return errors.ErrWorkspace.WithError(err).WithContext("dir", w.dir)
	}
	w.mu.Lock()
	w.repo = repo
	w.mu.Unlock()
	return nil
}

func (w *Workspace) repository() *git.Repository {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.repo
}

func (w *Workspace) HeadCommitID() (string, error) {
	head, err := w.repository().Head()
	if err != nil {
		return "", errors.ErrRefNotFound.WithError(err).WithContext("ref", "HEAD")
	}
	return head.Hash().String(), nil
}

func (w *Workspace) RunTool(ctx context.Context, name string, args ...string) (int, error) {
	res, err := w.Exec(ctx, "", name, args...)
	return res.ExitCode, err
}

func (w *Workspace) Exec(ctx context.Context, subdir string, name string, args ...string) (models.ToolResult, error) {
	log := logger.FromContext(ctx)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = filepath.Join(w.dir, subdir)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := models.ToolResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case stderrors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		res.ExitCode = -1
		return res, errors.ErrRunTool.WithError(err).WithContext("tool", name)
	}

	log.Debug("external tool finished",
		"tool", name,
		"args", strings.Join(args, " "),
		"exit_code", res.ExitCode)

	if reloadErr := w.reload(); reloadErr != nil {
		return res, reloadErr
	}
	return res, nil
}

func (w *Workspace) AddRemote(name, url string) error {
	_, err := w.repository().CreateRemote(&gitcfg.RemoteConfig{
		Name:  name,
		URLs:  []string{url},
		Fetch: []gitcfg.RefSpec{gitcfg.RefSpec(fmt.Sprintf("+refs/heads/*:refs/remotes/%s/*", name))},
	})
	if err != nil {
		return errors.ErrFetchFailed.WithError(err).WithContext("remote", name)
	}
	return nil
}

// Fetch fetches refspecs from remote, or the remote's configured refspecs
// when none are given.
func (w *Workspace) Fetch(ctx context.Context, remote string, refspecs ...string) error {
	opts := &git.FetchOptions{
		RemoteName: remote,
		Auth:       w.auth,
	}
	for _, spec := range refspecs {
		opts.RefSpecs = append(opts.RefSpecs, gitcfg.RefSpec(spec))
	}

	err := w.repository().FetchContext(ctx, opts)
	if err != nil && !stderrors.Is(err, git.NoErrAlreadyUpToDate) {
		return errors.ErrFetchFailed.
			WithError(err).
			WithContext("remote", remote).
			WithContext("refspecs", refspecs)
	}
	return nil
}

func (w *Workspace) ResolveRevision(rev string) (string, error) {
	hash, err := w.repository().ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return "", errors.ErrRefNotFound.WithError(err).WithContext("ref", rev)
	}
	return hash.String(), nil
}

func (w *Workspace) CreateBranch(name, baseRev string) error {
	hash, err := w.repository().ResolveRevision(plumbing.Revision(baseRev))
	if err != nil {
		return errors.ErrCreateBranch.WithError(err).WithContext("base", baseRev)
	}

	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), *hash)
	if err := w.repository().Storer.SetReference(ref); err != nil {
		return errors.ErrCreateBranch.WithError(err).WithContext("branch", name)
	}
	return nil
}

func (w *Workspace) Checkout(branch string) error {
	return w.checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Force:  true,
	}, branch)
}

func (w *Workspace) CheckoutCommit(hash string) error {
	return w.checkout(&git.CheckoutOptions{
		Hash:  plumbing.NewHash(hash),
		Force: true,
	}, hash)
}

func (w *Workspace) checkout(opts *git.CheckoutOptions, target string) error {
	tree, err := w.repository().Worktree()
	if err != nil {
		return errors.ErrCheckoutFailed.WithError(err).WithContext("target", target)
	}
	if err := tree.Checkout(opts); err != nil {
		return errors.ErrCheckoutFailed.WithError(err).WithContext("target", target)
	}
	return nil
}

// Push pushes branch to the branch of the same name on remote. Any failure
// is reported as errors.ErrPushRejected.
func (w *Workspace) Push(ctx context.Context, remote, branch string) error {
	spec := fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch)
	err := w.repository().PushContext(ctx, &git.PushOptions{
		RemoteName: remote,
		RefSpecs:   []gitcfg.RefSpec{gitcfg.RefSpec(spec)},
		Auth:       w.auth,
	})
	if err != nil && !stderrors.Is(err, git.NoErrAlreadyUpToDate) {
		return errors.ErrPushRejected.
			WithError(err).
			WithContext("remote", remote).
			WithContext("branch", branch)
	}
	return nil
}

func (w *Workspace) CommitMessage(hash string) (string, error) {
	commit, err := w.repository().CommitObject(plumbing.NewHash(hash))
	if err != nil {
		return "", errors.ErrRefNotFound.WithError(err).WithContext("commit", hash)
	}
	return commit.Message, nil
}

func (w *Workspace) CommitParents(hash string) ([]string, error) {
	commit, err := w.repository().CommitObject(plumbing.NewHash(hash))
	if err != nil {
		return nil, errors.ErrRefNotFound.WithError(err).WithContext("commit", hash)
	}
	parents := make([]string, 0, len(commit.ParentHashes))
	for _, p := range commit.ParentHashes {
		parents = append(parents, p.String())
	}
	return parents, nil
}

var _ ports.WorkspaceProvider = (*Cloner)(nil)

// Cloner hands out workspaces cloned from a hosting service.
type Cloner struct {
	baseURL string
	token   string
	tempDir string
}

type ClonerOption func(*Cloner)

// WithBaseURL changes where RepoURL points, e.g. a local directory in tests.
func WithBaseURL(baseURL string) ClonerOption {
	return func(c *Cloner) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithTempDir sets the parent directory of the workspaces.
func WithTempDir(dir string) ClonerOption {
	return func(c *Cloner) {
		c.tempDir = dir
	}
}

func NewCloner(token string, opts ...ClonerOption) *Cloner {
	c := &Cloner{
		baseURL: "https://github.com",
		token:   token,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cloner) RepoURL(owner, repo string) string {
	return fmt.Sprintf("%s/%s/%s.git", c.baseURL, owner, repo)
}

func (c *Cloner) authFor(url string) transport.AuthMethod {
	if c.token == "" || !strings.HasPrefix(url, "https://") {
		return nil
	}
	return &githttp.BasicAuth{
		Username: "x-access-token",
		Password: c.token,
	}
}

// WithClone clones url into a fresh temporary directory, checks out branch
// (or the remote default branch when empty) and calls fn. The directory is
// removed on every path out of WithClone.
func (c *Cloner) WithClone(ctx context.Context, url, branch string, fn func(ports.WorkspaceSession) error) error {
	log := logger.FromContext(ctx)

	dir, err := os.MkdirTemp(c.tempDir, "*_extensions")
	if err != nil {
		return errors.ErrWorkspace.WithError(err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Warn("failed to remove workspace", "dir", dir, "error", err)
		}
	}()

	auth := c.authFor(url)
	opts := &git.CloneOptions{
		URL:  url,
		Auth: auth,
	}
	if branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(branch)
	}

	repo, err := git.PlainCloneContext(ctx, dir, false, opts)
	if err != nil {
		return errors.ErrCloneFailed.
			WithError(err).
			WithContext("url", redact(url)).
			WithContext("branch", branch)
	}

	log.Debug("workspace ready", "dir", dir, "branch", branch)

	return fn(&Workspace{dir: dir, repo: repo, auth: auth})
}

func redact(url string) string {
	if i := strings.Index(url, "@"); i >= 0 && strings.HasPrefix(url, "https://") {
		return "https://***" + url[i:]
	}
	return url
}
