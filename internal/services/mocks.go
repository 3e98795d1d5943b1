package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/models"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/ports"
)

type MockHostingClient struct {
	mock.Mock
}

func (m *MockHostingClient) GetPR(ctx context.Context, owner, repo string, number int) (*models.PullRequest, error) {
	args := m.Called(ctx, owner, repo, number)
	pr, _ := args.Get(0).(*models.PullRequest)
	return pr, args.Error(1)
}

func (m *MockHostingClient) CreatePR(ctx context.Context, owner, repo string, pr models.NewPullRequest) (*models.PullRequest, error) {
	args := m.Called(ctx, owner, repo, pr)
	out, _ := args.Get(0).(*models.PullRequest)
	return out, args.Error(1)
}

func (m *MockHostingClient) GetIssue(ctx context.Context, owner, repo string, number int) (*models.Issue, error) {
	args := m.Called(ctx, owner, repo, number)
	issue, _ := args.Get(0).(*models.Issue)
	return issue, args.Error(1)
}

func (m *MockHostingClient) ListIssueComments(ctx context.Context, owner, repo string, number int) ([]models.Comment, error) {
	args := m.Called(ctx, owner, repo, number)
	comments, _ := args.Get(0).([]models.Comment)
	return comments, args.Error(1)
}

func (m *MockHostingClient) CreateIssueComment(ctx context.Context, owner, repo string, number int, body string) (*models.Comment, error) {
	args := m.Called(ctx, owner, repo, number, body)
	cm, _ := args.Get(0).(*models.Comment)
	return cm, args.Error(1)
}

func (m *MockHostingClient) SetIssueState(ctx context.Context, owner, repo string, number int, state string) error {
	args := m.Called(ctx, owner, repo, number, state)
	return args.Error(0)
}

func (m *MockHostingClient) CreateStatus(ctx context.Context, owner, repo string, status models.CommitStatus) error {
	args := m.Called(ctx, owner, repo, status)
	return args.Error(0)
}

func (m *MockHostingClient) GetCombinedStatus(ctx context.Context, owner, repo, ref string) (string, error) {
	args := m.Called(ctx, owner, repo, ref)
	return args.String(0), args.Error(1)
}

func (m *MockHostingClient) CreateCommitComment(ctx context.Context, owner, repo, sha, body string) error {
	args := m.Called(ctx, owner, repo, sha, body)
	return args.Error(0)
}

func (m *MockHostingClient) GetRepository(ctx context.Context, owner, repo string) (*models.Repository, error) {
	args := m.Called(ctx, owner, repo)
	r, _ := args.Get(0).(*models.Repository)
	return r, args.Error(1)
}

func (m *MockHostingClient) CreateFork(ctx context.Context, owner, repo string) (*models.Repository, error) {
	args := m.Called(ctx, owner, repo)
	r, _ := args.Get(0).(*models.Repository)
	return r, args.Error(1)
}

func (m *MockHostingClient) GetAuthenticatedUser(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockHostingClient) GetRateLimit(ctx context.Context) (*models.RateLimit, error) {
	args := m.Called(ctx)
	rl, _ := args.Get(0).(*models.RateLimit)
	return rl, args.Error(1)
}

func (m *MockHostingClient) GetTeamBySlug(ctx context.Context, org, slug string) (*models.Team, error) {
	args := m.Called(ctx, org, slug)
	team, _ := args.Get(0).(*models.Team)
	return team, args.Error(1)
}

func (m *MockHostingClient) CreateTeam(ctx context.Context, org, name string) (*models.Team, error) {
	args := m.Called(ctx, org, name)
	team, _ := args.Get(0).(*models.Team)
	return team, args.Error(1)
}

func (m *MockHostingClient) AddTeamRepo(ctx context.Context, org, slug, owner, repo string) error {
	args := m.Called(ctx, org, slug, owner, repo)
	return args.Error(0)
}

func (m *MockHostingClient) ListTeamMembers(ctx context.Context, org, slug string) ([]string, error) {
	args := m.Called(ctx, org, slug)
	members, _ := args.Get(0).([]string)
	return members, args.Error(1)
}

func (m *MockHostingClient) AddTeamMembership(ctx context.Context, org, slug, user string) error {
	args := m.Called(ctx, org, slug, user)
	return args.Error(0)
}

func (m *MockHostingClient) RemoveTeamMembership(ctx context.Context, org, slug, user string) error {
	args := m.Called(ctx, org, slug, user)
	return args.Error(0)
}

// MockWorkspaceProvider hands the registered session to the callback, so
// tests see the same cleanup contract as the real provider.
type MockWorkspaceProvider struct {
	mock.Mock
	Session ports.WorkspaceSession
}

func (m *MockWorkspaceProvider) RepoURL(owner, repo string) string {
	return "https://github.com/" + owner + "/" + repo + ".git"
}

func (m *MockWorkspaceProvider) WithClone(ctx context.Context, url, branch string, fn func(ports.WorkspaceSession) error) error {
	args := m.Called(ctx, url, branch)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m.Session)
}

type MockWorkspaceSession struct {
	mock.Mock
	Root string
}

func (m *MockWorkspaceSession) Dir() string {
	return m.Root
}

func (m *MockWorkspaceSession) HeadCommitID() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *MockWorkspaceSession) RunTool(ctx context.Context, name string, args ...string) (int, error) {
	a := m.Called(ctx, name, args)
	return a.Int(0), a.Error(1)
}

func (m *MockWorkspaceSession) Exec(ctx context.Context, subdir string, name string, args ...string) (models.ToolResult, error) {
	a := m.Called(ctx, subdir, name, args)
	res, _ := a.Get(0).(models.ToolResult)
	return res, a.Error(1)
}

func (m *MockWorkspaceSession) AddRemote(name, url string) error {
	args := m.Called(name, url)
	return args.Error(0)
}

func (m *MockWorkspaceSession) Fetch(ctx context.Context, remote string, refspecs ...string) error {
	args := m.Called(ctx, remote, refspecs)
	return args.Error(0)
}

func (m *MockWorkspaceSession) CreateBranch(name, baseRev string) error {
	args := m.Called(name, baseRev)
	return args.Error(0)
}

func (m *MockWorkspaceSession) Checkout(branch string) error {
	args := m.Called(branch)
	return args.Error(0)
}

func (m *MockWorkspaceSession) CheckoutCommit(hash string) error {
	args := m.Called(hash)
	return args.Error(0)
}

func (m *MockWorkspaceSession) Push(ctx context.Context, remote, branch string) error {
	args := m.Called(ctx, remote, branch)
	return args.Error(0)
}

func (m *MockWorkspaceSession) ResolveRevision(rev string) (string, error) {
	args := m.Called(rev)
	return args.String(0), args.Error(1)
}

func (m *MockWorkspaceSession) CommitMessage(hash string) (string, error) {
	args := m.Called(hash)
	return args.String(0), args.Error(1)
}

func (m *MockWorkspaceSession) CommitParents(hash string) ([]string, error) {
	args := m.Called(hash)
	parents, _ := args.Get(0).([]string)
	return parents, args.Error(1)
}

type MockLinter struct {
	mock.Mock
}

func (m *MockLinter) ComputeLintMessage(ctx context.Context, owner, repo string, number int, ignoreBase bool) (*models.LintResult, error) {
	args := m.Called(ctx, owner, repo, number, ignoreBase)
	res, _ := args.Get(0).(*models.LintResult)
	return res, args.Error(1)
}

func (m *MockLinter) CommentOnPR(ctx context.Context, owner, repo string, number int, message string, opts models.CommentOptions) (*models.Comment, error) {
	args := m.Called(ctx, owner, repo, number, message, opts)
	cm, _ := args.Get(0).(*models.Comment)
	return cm, args.Error(1)
}

func (m *MockLinter) SetPRStatus(ctx context.Context, owner, repo string, result *models.LintResult, targetURL string) error {
	args := m.Called(ctx, owner, repo, result, targetURL)
	return args.Error(0)
}

type MockTeamSyncer struct {
	mock.Mock
}

func (m *MockTeamSyncer) UpdateTeam(ctx context.Context, org, repo, commitSHA string) (models.TeamChanges, error) {
	args := m.Called(ctx, org, repo, commitSHA)
	changes, _ := args.Get(0).(models.TeamChanges)
	return changes, args.Error(1)
}

func (m *MockTeamSyncer) InvalidateFilterOut(org string) {
	m.Called(org)
}

type MockCIKeyRefresher struct {
	mock.Mock
}

func (m *MockCIKeyRefresher) UpdateCircle(ctx context.Context, org, repo string) error {
	args := m.Called(ctx, org, repo)
	return args.Error(0)
}
