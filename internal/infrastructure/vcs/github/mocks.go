package github

import (
	"context"

	"github.com/google/go-github/v66/github"
	"github.com/stretchr/testify/mock"
)

func response(v interface{}) *github.Response {
	if v == nil {
		return nil
	}
	return v.(*github.Response)
}

type MockPRService struct {
	mock.Mock
}

func (m *MockPRService) Get(ctx context.Context, owner, repo string, number int) (*github.PullRequest, *github.Response, error) {
	args := m.Called(ctx, owner, repo, number)
	pr, _ := args.Get(0).(*github.PullRequest)
	return pr, response(args.Get(1)), args.Error(2)
}

func (m *MockPRService) Create(ctx context.Context, owner, repo string, pull *github.NewPullRequest) (*github.PullRequest, *github.Response, error) {
	args := m.Called(ctx, owner, repo, pull)
	pr, _ := args.Get(0).(*github.PullRequest)
	return pr, response(args.Get(1)), args.Error(2)
}

type MockIssuesService struct {
	mock.Mock
}

func (m *MockIssuesService) Get(ctx context.Context, owner, repo string, number int) (*github.Issue, *github.Response, error) {
	args := m.Called(ctx, owner, repo, number)
	issue, _ := args.Get(0).(*github.Issue)
	return issue, response(args.Get(1)), args.Error(2)
}

func (m *MockIssuesService) Edit(ctx context.Context, owner, repo string, number int, req *github.IssueRequest) (*github.Issue, *github.Response, error) {
	args := m.Called(ctx, owner, repo, number, req)
	issue, _ := args.Get(0).(*github.Issue)
	return issue, response(args.Get(1)), args.Error(2)
}

func (m *MockIssuesService) ListComments(ctx context.Context, owner, repo string, number int, opts *github.IssueListCommentsOptions) ([]*github.IssueComment, *github.Response, error) {
	args := m.Called(ctx, owner, repo, number, opts)
	comments, _ := args.Get(0).([]*github.IssueComment)
	return comments, response(args.Get(1)), args.Error(2)
}

func (m *MockIssuesService) CreateComment(ctx context.Context, owner, repo string, number int, comment *github.IssueComment) (*github.IssueComment, *github.Response, error) {
	args := m.Called(ctx, owner, repo, number, comment)
	cm, _ := args.Get(0).(*github.IssueComment)
	return cm, response(args.Get(1)), args.Error(2)
}

type MockRepoService struct {
	mock.Mock
}

func (m *MockRepoService) Get(ctx context.Context, owner, repo string) (*github.Repository, *github.Response, error) {
	args := m.Called(ctx, owner, repo)
	r, _ := args.Get(0).(*github.Repository)
	return r, response(args.Get(1)), args.Error(2)
}

func (m *MockRepoService) CreateFork(ctx context.Context, owner, repo string, opts *github.RepositoryCreateForkOptions) (*github.Repository, *github.Response, error) {
	args := m.Called(ctx, owner, repo, opts)
	r, _ := args.Get(0).(*github.Repository)
	return r, response(args.Get(1)), args.Error(2)
}

func (m *MockRepoService) CreateStatus(ctx context.Context, owner, repo, ref string, status *github.RepoStatus) (*github.RepoStatus, *github.Response, error) {
	args := m.Called(ctx, owner, repo, ref, status)
	s, _ := args.Get(0).(*github.RepoStatus)
	return s, response(args.Get(1)), args.Error(2)
}

func (m *MockRepoService) GetCombinedStatus(ctx context.Context, owner, repo, ref string, opts *github.ListOptions) (*github.CombinedStatus, *github.Response, error) {
	args := m.Called(ctx, owner, repo, ref, opts)
	s, _ := args.Get(0).(*github.CombinedStatus)
	return s, response(args.Get(1)), args.Error(2)
}

func (m *MockRepoService) CreateComment(ctx context.Context, owner, repo, sha string, comment *github.RepositoryComment) (*github.RepositoryComment, *github.Response, error) {
	args := m.Called(ctx, owner, repo, sha, comment)
	c, _ := args.Get(0).(*github.RepositoryComment)
	return c, response(args.Get(1)), args.Error(2)
}

type MockUsersService struct {
	mock.Mock
}

func (m *MockUsersService) Get(ctx context.Context, user string) (*github.User, *github.Response, error) {
	args := m.Called(ctx, user)
	u, _ := args.Get(0).(*github.User)
	return u, response(args.Get(1)), args.Error(2)
}

type MockTeamsService struct {
	mock.Mock
}

func (m *MockTeamsService) GetTeamBySlug(ctx context.Context, org, slug string) (*github.Team, *github.Response, error) {
	args := m.Called(ctx, org, slug)
	team, _ := args.Get(0).(*github.Team)
	return team, response(args.Get(1)), args.Error(2)
}

func (m *MockTeamsService) CreateTeam(ctx context.Context, org string, team github.NewTeam) (*github.Team, *github.Response, error) {
	args := m.Called(ctx, org, team)
	t, _ := args.Get(0).(*github.Team)
	return t, response(args.Get(1)), args.Error(2)
}

func (m *MockTeamsService) AddTeamRepoBySlug(ctx context.Context, org, slug, owner, repo string, opts *github.TeamAddTeamRepoOptions) (*github.Response, error) {
	args := m.Called(ctx, org, slug, owner, repo, opts)
	return response(args.Get(0)), args.Error(1)
}

func (m *MockTeamsService) ListTeamMembersBySlug(ctx context.Context, org, slug string, opts *github.TeamListTeamMembersOptions) ([]*github.User, *github.Response, error) {
	args := m.Called(ctx, org, slug, opts)
	users, _ := args.Get(0).([]*github.User)
	return users, response(args.Get(1)), args.Error(2)
}

func (m *MockTeamsService) AddTeamMembershipBySlug(ctx context.Context, org, slug, user string, opts *github.TeamAddTeamMembershipOptions) (*github.Membership, *github.Response, error) {
	args := m.Called(ctx, org, slug, user, opts)
	ms, _ := args.Get(0).(*github.Membership)
	return ms, response(args.Get(1)), args.Error(2)
}

func (m *MockTeamsService) RemoveTeamMembershipBySlug(ctx context.Context, org, slug, user string) (*github.Response, error) {
	args := m.Called(ctx, org, slug, user)
	return response(args.Get(0)), args.Error(1)
}

type MockRateLimitService struct {
	mock.Mock
}

func (m *MockRateLimitService) Get(ctx context.Context) (*github.RateLimits, *github.Response, error) {
	args := m.Called(ctx)
	limits, _ := args.Get(0).(*github.RateLimits)
	return limits, response(args.Get(1)), args.Error(2)
}
