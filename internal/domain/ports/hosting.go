package ports

import (
	"context"

	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/models"
)

type PullRequestClient interface {
	GetPR(ctx context.Context, owner, repo string, number int) (*models.PullRequest, error)
	CreatePR(ctx context.Context, owner, repo string, pr models.NewPullRequest) (*models.PullRequest, error)
}

type IssueClient interface {
	GetIssue(ctx context.Context, owner, repo string, number int) (*models.Issue, error)
	ListIssueComments(ctx context.Context, owner, repo string, number int) ([]models.Comment, error)
	CreateIssueComment(ctx context.Context, owner, repo string, number int, body string) (*models.Comment, error)
	SetIssueState(ctx context.Context, owner, repo string, number int, state string) error
}

type StatusClient interface {
	CreateStatus(ctx context.Context, owner, repo string, status models.CommitStatus) error
	GetCombinedStatus(ctx context.Context, owner, repo, ref string) (string, error)
	CreateCommitComment(ctx context.Context, owner, repo, sha, body string) error
}

type RepositoryClient interface {
	GetRepository(ctx context.Context, owner, repo string) (*models.Repository, error)
	CreateFork(ctx context.Context, owner, repo string) (*models.Repository, error)
	GetAuthenticatedUser(ctx context.Context) (string, error)
	GetRateLimit(ctx context.Context) (*models.RateLimit, error)
}

type TeamClient interface {
	GetTeamBySlug(ctx context.Context, org, slug string) (*models.Team, error)
	CreateTeam(ctx context.Context, org, name string) (*models.Team, error)
	AddTeamRepo(ctx context.Context, org, slug, owner, repo string) error
	ListTeamMembers(ctx context.Context, org, slug string) ([]string, error)
	AddTeamMembership(ctx context.Context, org, slug, user string) error
	RemoveTeamMembership(ctx context.Context, org, slug, user string) error
}

// HostingClient is everything the bot needs from the code hosting platform.
type HostingClient interface {
	PullRequestClient
	IssueClient
	StatusClient
	RepositoryClient
	TeamClient
}
