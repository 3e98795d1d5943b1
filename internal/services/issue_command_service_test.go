package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/errors"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/models"
)

type issueFixture struct {
	*actionsFixture
	svc      *IssueCommandService
	vcs      *MockHostingClient
	provider *MockWorkspaceProvider
	session  *MockWorkspaceSession
}

func newIssueFixture(t *testing.T) *issueFixture {
	t.Helper()
	cfg := newTestConfig()
	f := &issueFixture{
		actionsFixture: newActionsFixture(),
		vcs:            new(MockHostingClient),
		session:        new(MockWorkspaceSession),
	}
	f.provider = &MockWorkspaceProvider{Session: f.session}
	f.svc = NewIssueCommandService(f.vcs, f.provider, f.actions, NewFeedbackComposer(newTestTranslations(t), cfg), cfg)
	return f
}

func issueTrigger(repo, title, text string) models.IssueTrigger {
	return models.IssueTrigger{
		Kind:   models.TriggerIssueBody,
		Repo:   models.NewRepoContext("nwb-extensions", repo, "staged-extensions", "-feedstock"),
		Number: 7,
		Title:  title,
		Text:   text,
	}
}

// expectForkAndBranch sets up the fork, clone and branch steps of an issue
// rerender. headAfter is the head commit once the tool ran.
func (f *issueFixture) expectForkAndBranch(headAfter string) {
	f.vcs.On("GetAuthenticatedUser", mock.Anything).Return("nwb-extensions-admin", nil)
	f.vcs.On("GetRepository", mock.Anything, "nwb-extensions", "ndx-foo-feedstock").
		Return(&models.Repository{Owner: "nwb-extensions", Name: "ndx-foo-feedstock", DefaultBranch: "main"}, nil)
	f.vcs.On("CreateFork", mock.Anything, "nwb-extensions", "ndx-foo-feedstock").
		Return(&models.Repository{Owner: "nwb-extensions-admin", Name: "ndx-foo-feedstock", Fork: true}, nil)
	f.provider.On("WithClone", mock.Anything, "https://github.com/nwb-extensions-admin/ndx-foo-feedstock.git", "").Return(nil)
	f.session.On("AddRemote", "upstream", "https://github.com/nwb-extensions/ndx-foo-feedstock.git").Return(nil)
	f.session.On("Fetch", mock.Anything, "upstream", mock.Anything).Return(nil)
	f.session.On("CreateBranch", "nwb_extensions_admin_7", "refs/remotes/upstream/main").Return(nil)
	f.session.On("Checkout", "nwb_extensions_admin_7").Return(nil)
	f.session.On("HeadCommitID").Return("aaa", nil).Once()
	f.session.On("RunTool", mock.Anything, "nwb", rerenderArgs).Return(0, nil)
	f.session.On("HeadCommitID").Return(headAfter, nil).Once()
}

func TestIssueCommandService_Rerender_OpensPR(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newIssueFixture(t)
	f.expectForkAndBranch("bbb")
	f.session.On("Push", mock.Anything, "origin", "nwb_extensions_admin_7").Return(nil)

	var opened models.NewPullRequest
	f.vcs.On("CreatePR", mock.Anything, "nwb-extensions", "ndx-foo-feedstock", mock.Anything).
		Run(func(args mock.Arguments) { opened = args.Get(3).(models.NewPullRequest) }).
		Return(&models.PullRequest{Number: 42}, nil)
	f.vcs.On("CreateIssueComment", mock.Anything, "nwb-extensions", "ndx-foo-feedstock", 7,
		mock.MatchedBy(func(body string) bool {
			return containsAll(body, "I rerendered the recipe in nwb-extensions/ndx-foo-feedstock#42.")
		})).Return(&models.Comment{ID: 1}, nil)

	// Act
	err := f.svc.Handle(ctx, issueTrigger("ndx-foo-feedstock", "@nwb-extensions-admin, please rerender", ""))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "MNT: rerender", opened.Title)
	assert.Equal(t, "nwb-extensions-admin:nwb_extensions_admin_7", opened.Head)
	assert.Equal(t, "main", opened.Base)
	assert.Contains(t, opened.Body, "Fixes #7")
	f.vcs.AssertNotCalled(t, "SetIssueState", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.session.AssertExpectations(t)
	f.vcs.AssertExpectations(t)
}

func TestIssueCommandService_Rerender_FromCommentDoesNotFix(t *testing.T) {
	// Arrange
	f := newIssueFixture(t)
	f.expectForkAndBranch("bbb")
	f.session.On("Push", mock.Anything, "origin", "nwb_extensions_admin_7").Return(nil)

	var opened models.NewPullRequest
	f.vcs.On("CreatePR", mock.Anything, "nwb-extensions", "ndx-foo-feedstock", mock.Anything).
		Run(func(args mock.Arguments) { opened = args.Get(3).(models.NewPullRequest) }).
		Return(&models.PullRequest{Number: 43}, nil)
	f.vcs.On("CreateIssueComment", mock.Anything, mock.Anything, mock.Anything, 7, mock.Anything).Return(&models.Comment{ID: 1}, nil)

	// Act
	err := f.svc.Handle(context.Background(), issueTrigger("ndx-foo-feedstock", "Outdated CI", "@nwb-extensions-admin please rerender"))

	// Assert
	require.NoError(t, err)
	assert.NotContains(t, opened.Body, "Fixes #7")
}

func TestIssueCommandService_Rerender_NothingChangedClosesIssue(t *testing.T) {
	// Arrange
	f := newIssueFixture(t)
	f.expectForkAndBranch("aaa")
	f.vcs.On("CreateIssueComment", mock.Anything, "nwb-extensions", "ndx-foo-feedstock", 7,
		mock.MatchedBy(func(body string) bool { return containsAll(body, "nothing actually changed") })).
		Return(&models.Comment{ID: 1}, nil)
	f.vcs.On("SetIssueState", mock.Anything, "nwb-extensions", "ndx-foo-feedstock", 7, models.StateClosed).Return(nil)

	// Act
	err := f.svc.Handle(context.Background(), issueTrigger("ndx-foo-feedstock", "@nwb-extensions-admin please rerender", ""))

	// Assert
	require.NoError(t, err)
	f.vcs.AssertExpectations(t)
	f.vcs.AssertNotCalled(t, "CreatePR", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.session.AssertNotCalled(t, "Push", mock.Anything, mock.Anything, mock.Anything)
}

func TestIssueCommandService_UpdateTeam(t *testing.T) {
	t.Run("title match closes the issue", func(t *testing.T) {
		// Arrange
		f := newIssueFixture(t)
		f.teams.On("UpdateTeam", mock.Anything, "nwb-extensions", "ndx-foo-feedstock", "").
			Return(models.TeamChanges{Current: models.NewMemberSet("alice")}, nil)
		f.vcs.On("CreateIssueComment", mock.Anything, "nwb-extensions", "ndx-foo-feedstock", 7,
			mock.MatchedBy(func(body string) bool { return containsAll(body, "updated the team with maintainers from master") })).
			Return(&models.Comment{ID: 1}, nil)
		f.vcs.On("SetIssueState", mock.Anything, "nwb-extensions", "ndx-foo-feedstock", 7, models.StateClosed).Return(nil)

		// Act
		err := f.svc.Handle(context.Background(), issueTrigger("ndx-foo-feedstock", "@nwb-extensions-admin, please update team", ""))

		// Assert
		require.NoError(t, err)
		f.vcs.AssertExpectations(t)
		f.provider.AssertNotCalled(t, "WithClone", mock.Anything, mock.Anything, mock.Anything)
		f.vcs.AssertNotCalled(t, "CreatePR", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("comment match keeps the issue open", func(t *testing.T) {
		// Arrange
		f := newIssueFixture(t)
		f.teams.On("UpdateTeam", mock.Anything, "nwb-extensions", "ndx-foo-feedstock", "").Return(models.TeamChanges{}, nil)
		f.vcs.On("CreateIssueComment", mock.Anything, "nwb-extensions", "ndx-foo-feedstock", 7, mock.Anything).
			Return(&models.Comment{ID: 1}, nil)

		// Act
		err := f.svc.Handle(context.Background(), issueTrigger("ndx-foo-feedstock", "Team is stale", "@nwb-extensions-admin refresh the team"))

		// Assert
		require.NoError(t, err)
		f.vcs.AssertNotCalled(t, "SetIssueState", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("failure is returned with a comment", func(t *testing.T) {
		// Arrange
		f := newIssueFixture(t)
		f.teams.On("UpdateTeam", mock.Anything, mock.Anything, mock.Anything, "").Return(models.TeamChanges{}, errors.ErrTeamSync)
		f.ci.On("UpdateCircle", mock.Anything, "nwb-extensions", "ndx-foo-feedstock").Return(nil)
		f.vcs.On("CreateIssueComment", mock.Anything, mock.Anything, mock.Anything, 7, mock.Anything).Return(&models.Comment{ID: 1}, nil)
		f.vcs.On("SetIssueState", mock.Anything, mock.Anything, mock.Anything, 7, models.StateClosed).Return(nil)

		// Act
		err := f.svc.Handle(context.Background(), issueTrigger("ndx-foo-feedstock",
			"@nwb-extensions-admin please update the circle", "@nwb-extensions-admin please update team"))

		// Assert
		assert.ErrorIs(t, err, errors.ErrTeamSync)
		f.ci.AssertExpectations(t)
		f.vcs.AssertNumberOfCalls(t, "CreateIssueComment", 2)
		f.vcs.AssertNumberOfCalls(t, "SetIssueState", 1)
	})
}

func TestIssueCommandService_IgnoresOtherRepositories(t *testing.T) {
	f := newIssueFixture(t)

	err := f.svc.Handle(context.Background(), issueTrigger("staged-extensions", "@nwb-extensions-admin please rerender", ""))

	require.NoError(t, err)
	f.vcs.AssertNotCalled(t, "GetAuthenticatedUser", mock.Anything)
}

func TestIssueCommandService_IgnoresLint(t *testing.T) {
	f := newIssueFixture(t)

	err := f.svc.Handle(context.Background(), issueTrigger("ndx-foo-feedstock", "", "@nwb-extensions-linter please lint"))

	require.NoError(t, err)
	f.linter.AssertNotCalled(t, "ComputeLintMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIssueCommandService_AdminBranch(t *testing.T) {
	f := newIssueFixture(t)

	assert.Equal(t, "nwb_extensions_admin_12", f.svc.AdminBranch(12))
}
