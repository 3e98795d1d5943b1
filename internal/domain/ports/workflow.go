package ports

import (
	"context"

	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/models"
)

// Linter lints the recipes of a pull request and reports the result back.
type Linter interface {
	// ComputeLintMessage returns errors.ErrLintSkipped when linting does not
	// apply to the pull request.
	ComputeLintMessage(ctx context.Context, owner, repo string, number int, ignoreBase bool) (*models.LintResult, error)
	CommentOnPR(ctx context.Context, owner, repo string, number int, message string, opts models.CommentOptions) (*models.Comment, error)
	SetPRStatus(ctx context.Context, owner, repo string, result *models.LintResult, targetURL string) error
}

// TeamSyncer keeps the maintainer team of a feedstock in line with its
// recipe. commitSHA is optional and selects where the welcome comment goes.
type TeamSyncer interface {
	UpdateTeam(ctx context.Context, org, repo, commitSHA string) (models.TeamChanges, error)
}

// CIKeyRefresher replaces the CI deploy key of a repository.
type CIKeyRefresher interface {
	UpdateCircle(ctx context.Context, org, repo string) error
}

// PRCommandHandler and IssueCommandHandler are the entry points used by the
// webhook server.
type PRCommandHandler interface {
	HandleComment(ctx context.Context, org, repo string, number int, comment string) error
	Handle(ctx context.Context, trigger models.PRTrigger) error
}

type IssueCommandHandler interface {
	Handle(ctx context.Context, trigger models.IssueTrigger) error
}
