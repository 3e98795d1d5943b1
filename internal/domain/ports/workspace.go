package ports

import (
	"context"

	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/models"
)

// WorkspaceSession is a temporary clone of a repository. It is only valid
// inside the callback passed to WorkspaceProvider.WithClone.
type WorkspaceSession interface {
	Dir() string
	HeadCommitID() (string, error)
	// RunTool runs an external program in the workspace root and returns its
	// exit code. A non-zero exit code is not an error.
	RunTool(ctx context.Context, name string, args ...string) (int, error)
	// Exec is RunTool with captured output and a working directory relative
	// to the workspace root.
	Exec(ctx context.Context, subdir string, name string, args ...string) (models.ToolResult, error)
	AddRemote(name, url string) error
	Fetch(ctx context.Context, remote string, refspecs ...string) error
	CreateBranch(name, baseRev string) error
	Checkout(branch string) error
	CheckoutCommit(hash string) error
	Push(ctx context.Context, remote, branch string) error
	ResolveRevision(rev string) (string, error)
	CommitMessage(hash string) (string, error)
	CommitParents(hash string) ([]string, error)
}

// WorkspaceProvider creates workspaces and removes them when fn returns.
type WorkspaceProvider interface {
	RepoURL(owner, repo string) string
	WithClone(ctx context.Context, url, branch string, fn func(WorkspaceSession) error) error
}
