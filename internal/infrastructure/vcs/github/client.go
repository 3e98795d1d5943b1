package github

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"

	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/errors"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/models"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/ports"
)

var _ ports.HostingClient = (*GitHubClient)(nil)

type PullRequestsService interface {
	Get(ctx context.Context, owner, repo string, number int) (*github.PullRequest, *github.Response, error)
	Create(ctx context.Context, owner, repo string, pull *github.NewPullRequest) (*github.PullRequest, *github.Response, error)
}

type IssuesService interface {
	Get(ctx context.Context, owner, repo string, number int) (*github.Issue, *github.Response, error)
	Edit(ctx context.Context, owner, repo string, number int, issue *github.IssueRequest) (*github.Issue, *github.Response, error)
	ListComments(ctx context.Context, owner, repo string, number int, opts *github.IssueListCommentsOptions) ([]*github.IssueComment, *github.Response, error)
	CreateComment(ctx context.Context, owner, repo string, number int, comment *github.IssueComment) (*github.IssueComment, *github.Response, error)
}

type RepositoriesService interface {
	Get(ctx context.Context, owner, repo string) (*github.Repository, *github.Response, error)
	CreateFork(ctx context.Context, owner, repo string, opts *github.RepositoryCreateForkOptions) (*github.Repository, *github.Response, error)
	CreateStatus(ctx context.Context, owner, repo, ref string, status *github.RepoStatus) (*github.RepoStatus, *github.Response, error)
	GetCombinedStatus(ctx context.Context, owner, repo, ref string, opts *github.ListOptions) (*github.CombinedStatus, *github.Response, error)
	CreateComment(ctx context.Context, owner, repo, sha string, comment *github.RepositoryComment) (*github.RepositoryComment, *github.Response, error)
}

type UsersService interface {
	Get(ctx context.Context, user string) (*github.User, *github.Response, error)
}

type TeamsService interface {
	GetTeamBySlug(ctx context.Context, org, slug string) (*github.Team, *github.Response, error)
	CreateTeam(ctx context.Context, org string, team github.NewTeam) (*github.Team, *github.Response, error)
	AddTeamRepoBySlug(ctx context.Context, org, slug, owner, repo string, opts *github.TeamAddTeamRepoOptions) (*github.Response, error)
	ListTeamMembersBySlug(ctx context.Context, org, slug string, opts *github.TeamListTeamMembersOptions) ([]*github.User, *github.Response, error)
	AddTeamMembershipBySlug(ctx context.Context, org, slug, user string, opts *github.TeamAddTeamMembershipOptions) (*github.Membership, *github.Response, error)
	RemoveTeamMembershipBySlug(ctx context.Context, org, slug, user string) (*github.Response, error)
}

type RateLimitService interface {
	Get(ctx context.Context) (*github.RateLimits, *github.Response, error)
}

// GitHubClient implements ports.HostingClient on top of go-github. Unlike a
// per-repository client it takes owner and repo on every call, since one
// webhook delivery may touch the upstream repository and a fork.
type GitHubClient struct {
	prService    PullRequestsService
	issueService IssuesService
	repoService  RepositoriesService
	userService  UsersService
	teamService  TeamsService
	rateService  RateLimitService
}

func NewGitHubClient(token string) *GitHubClient {
	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}

	client := github.NewClient(httpClient)
	return NewGitHubClientWithServices(
		client.PullRequests,
		client.Issues,
		client.Repositories,
		client.Users,
		client.Teams,
		client.RateLimit,
	)
}

func NewGitHubClientWithServices(
	prService PullRequestsService,
	issueService IssuesService,
	repoService RepositoriesService,
	userService UsersService,
	teamService TeamsService,
	rateService RateLimitService,
) *GitHubClient {
	return &GitHubClient{
		prService:    prService,
		issueService: issueService,
		repoService:  repoService,
		userService:  userService,
		teamService:  teamService,
		rateService:  rateService,
	}
}

// wrapError maps GitHub API failures onto the VCS error sentinels.
func wrapError(resp *github.Response, err error, op string) error {
	var rateErr *github.RateLimitError
	if stderrors.As(err, &rateErr) {
		return errors.ErrGitHubRateLimit.WithError(err).WithContext("operation", op)
	}
	var abuseErr *github.AbuseRateLimitError
	if stderrors.As(err, &abuseErr) {
		return errors.ErrGitHubRateLimit.WithError(err).WithContext("operation", op)
	}

	if resp != nil {
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return errors.ErrGitHubTokenInvalid.WithError(err).WithContext("operation", op)
		case http.StatusForbidden:
			return errors.ErrGitHubInsufficientPerms.WithError(err).WithContext("operation", op)
		case http.StatusNotFound:
			return errors.ErrRepositoryNotFound.WithError(err).WithContext("operation", op)
		}
	}

	return fmt.Errorf("github %s: %w", op, err)
}

func isNotFound(resp *github.Response) bool {
	return resp != nil && resp.StatusCode == http.StatusNotFound
}

func (c *GitHubClient) GetPR(ctx context.Context, owner, repo string, number int) (*models.PullRequest, error) {
	pr, resp, err := c.prService.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, wrapError(resp, err, "get pull request")
	}
	return toPullRequest(pr), nil
}

func toPullRequest(pr *github.PullRequest) *models.PullRequest {
	out := &models.PullRequest{
		Number:    pr.GetNumber(),
		State:     pr.GetState(),
		Title:     pr.GetTitle(),
		Body:      pr.GetBody(),
		Mergeable: pr.Mergeable,
		HTMLURL:   pr.GetHTMLURL(),
	}
	if head := pr.GetHead(); head != nil {
		out.Head = models.BranchRef{
			Owner:  head.GetUser().GetLogin(),
			Repo:   head.GetRepo().GetName(),
			Branch: head.GetRef(),
		}
		out.HeadSHA = head.GetSHA()
	}
	if base := pr.GetBase(); base != nil {
		out.BaseRef = base.GetRef()
	}
	return out
}

func (c *GitHubClient) CreatePR(ctx context.Context, owner, repo string, pr models.NewPullRequest) (*models.PullRequest, error) {
	created, resp, err := c.prService.Create(ctx, owner, repo, &github.NewPullRequest{
		Title: github.String(pr.Title),
		Body:  github.String(pr.Body),
		Head:  github.String(pr.Head),
		Base:  github.String(pr.Base),
	})
	if err != nil {
		return nil, wrapError(resp, err, "create pull request")
	}
	return toPullRequest(created), nil
}

func (c *GitHubClient) GetIssue(ctx context.Context, owner, repo string, number int) (*models.Issue, error) {
	issue, resp, err := c.issueService.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, wrapError(resp, err, "get issue")
	}
	return &models.Issue{
		Number: issue.GetNumber(),
		Title:  issue.GetTitle(),
		Body:   issue.GetBody(),
		State:  issue.GetState(),
		IsPR:   issue.IsPullRequest(),
	}, nil
}

// ListIssueComments returns every comment of an issue or pull request,
// oldest first.
func (c *GitHubClient) ListIssueComments(ctx context.Context, owner, repo string, number int) ([]models.Comment, error) {
	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var comments []models.Comment
	for {
		page, resp, err := c.issueService.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, wrapError(resp, err, "list comments")
		}
		for _, cm := range page {
			comments = append(comments, toComment(cm))
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return comments, nil
}

func toComment(cm *github.IssueComment) models.Comment {
	return models.Comment{
		ID:      cm.GetID(),
		Body:    cm.GetBody(),
		Author:  cm.GetUser().GetLogin(),
		HTMLURL: cm.GetHTMLURL(),
	}
}

func (c *GitHubClient) CreateIssueComment(ctx context.Context, owner, repo string, number int, body string) (*models.Comment, error) {
	cm, resp, err := c.issueService.CreateComment(ctx, owner, repo, number, &github.IssueComment{
		Body: github.String(body),
	})
	if err != nil {
		return nil, wrapError(resp, err, "create comment")
	}
	out := toComment(cm)
	return &out, nil
}

func (c *GitHubClient) SetIssueState(ctx context.Context, owner, repo string, number int, state string) error {
	_, resp, err := c.issueService.Edit(ctx, owner, repo, number, &github.IssueRequest{
		State: github.String(state),
	})
	if err != nil {
		return wrapError(resp, err, "edit issue")
	}
	return nil
}

func (c *GitHubClient) CreateStatus(ctx context.Context, owner, repo string, status models.CommitStatus) error {
	rs := &github.RepoStatus{
		State:       github.String(status.State),
		Description: github.String(status.Description),
		Context:     github.String(status.Context),
	}
	if status.TargetURL != "" {
		rs.TargetURL = github.String(status.TargetURL)
	}

	_, resp, err := c.repoService.CreateStatus(ctx, owner, repo, status.SHA, rs)
	if err != nil {
		return wrapError(resp, err, "create status")
	}
	return nil
}

func (c *GitHubClient) GetCombinedStatus(ctx context.Context, owner, repo, ref string) (string, error) {
	status, resp, err := c.repoService.GetCombinedStatus(ctx, owner, repo, ref, nil)
	if err != nil {
		return "", wrapError(resp, err, "get combined status")
	}
	return status.GetState(), nil
}

func (c *GitHubClient) CreateCommitComment(ctx context.Context, owner, repo, sha, body string) error {
	_, resp, err := c.repoService.CreateComment(ctx, owner, repo, sha, &github.RepositoryComment{
		Body: github.String(body),
	})
	if err != nil {
		return wrapError(resp, err, "create commit comment")
	}
	return nil
}

func (c *GitHubClient) GetRepository(ctx context.Context, owner, repo string) (*models.Repository, error) {
	r, resp, err := c.repoService.Get(ctx, owner, repo)
	if err != nil {
		return nil, wrapError(resp, err, "get repository")
	}
	return toRepository(r), nil
}

func toRepository(r *github.Repository) *models.Repository {
	return &models.Repository{
		Owner:         r.GetOwner().GetLogin(),
		Name:          r.GetName(),
		DefaultBranch: r.GetDefaultBranch(),
		CloneURL:      r.GetCloneURL(),
		Fork:          r.GetFork(),
	}
}

// CreateFork forks owner/repo into the authenticated account. GitHub creates
// forks asynchronously and answers 202, which go-github reports as an
// AcceptedError; an existing fork is returned the same way.
func (c *GitHubClient) CreateFork(ctx context.Context, owner, repo string) (*models.Repository, error) {
	fork, resp, err := c.repoService.CreateFork(ctx, owner, repo, &github.RepositoryCreateForkOptions{})
	if err != nil {
		var accepted *github.AcceptedError
		if !stderrors.As(err, &accepted) {
			return nil, wrapError(resp, err, "create fork")
		}
	}
	if fork == nil {
		return &models.Repository{Name: repo, Fork: true}, nil
	}
	return toRepository(fork), nil
}

func (c *GitHubClient) GetAuthenticatedUser(ctx context.Context) (string, error) {
	user, resp, err := c.userService.Get(ctx, "")
	if err != nil {
		return "", wrapError(resp, err, "get authenticated user")
	}
	return user.GetLogin(), nil
}

func (c *GitHubClient) GetRateLimit(ctx context.Context) (*models.RateLimit, error) {
	limits, resp, err := c.rateService.Get(ctx)
	if err != nil {
		return nil, wrapError(resp, err, "get rate limit")
	}
	core := limits.GetCore()
	if core == nil {
		return &models.RateLimit{}, nil
	}
	return &models.RateLimit{
		Limit:     core.Limit,
		Remaining: core.Remaining,
		Reset:     core.Reset.Time,
	}, nil
}

// GetTeamBySlug returns nil without error when the team does not exist.
func (c *GitHubClient) GetTeamBySlug(ctx context.Context, org, slug string) (*models.Team, error) {
	team, resp, err := c.teamService.GetTeamBySlug(ctx, org, slug)
	if err != nil {
		if isNotFound(resp) {
			return nil, nil
		}
		return nil, wrapError(resp, err, "get team")
	}
	return toTeam(team), nil
}

func toTeam(team *github.Team) *models.Team {
	return &models.Team{
		ID:   team.GetID(),
		Slug: team.GetSlug(),
		Name: team.GetName(),
	}
}

func (c *GitHubClient) CreateTeam(ctx context.Context, org, name string) (*models.Team, error) {
	team, resp, err := c.teamService.CreateTeam(ctx, org, github.NewTeam{
		Name:    name,
		Privacy: github.String("closed"),
	})
	if err != nil {
		return nil, wrapError(resp, err, "create team")
	}
	return toTeam(team), nil
}

func (c *GitHubClient) AddTeamRepo(ctx context.Context, org, slug, owner, repo string) error {
	resp, err := c.teamService.AddTeamRepoBySlug(ctx, org, slug, owner, repo, &github.TeamAddTeamRepoOptions{
		Permission: "push",
	})
	if err != nil {
		return wrapError(resp, err, "add team repository")
	}
	return nil
}

func (c *GitHubClient) ListTeamMembers(ctx context.Context, org, slug string) ([]string, error) {
	opts := &github.TeamListTeamMembersOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var logins []string
	for {
		users, resp, err := c.teamService.ListTeamMembersBySlug(ctx, org, slug, opts)
		if err != nil {
			return nil, wrapError(resp, err, "list team members")
		}
		for _, u := range users {
			logins = append(logins, u.GetLogin())
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return logins, nil
}

func (c *GitHubClient) AddTeamMembership(ctx context.Context, org, slug, user string) error {
	_, resp, err := c.teamService.AddTeamMembershipBySlug(ctx, org, slug, user, &github.TeamAddTeamMembershipOptions{
		Role: "member",
	})
	if err != nil {
		return wrapError(resp, err, "add team membership")
	}
	return nil
}

func (c *GitHubClient) RemoveTeamMembership(ctx context.Context, org, slug, user string) error {
	resp, err := c.teamService.RemoveTeamMembershipBySlug(ctx, org, slug, user)
	if err != nil {
		return wrapError(resp, err, "remove team membership")
	}
	return nil
}
