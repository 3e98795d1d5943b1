package admin

import (
	"bytes"
	"context"
	"testing"

	"github.com/nwb-extensions/nwb-extensions-webservices/internal/config"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/models"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/ports"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/i18n"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPRHandler struct {
	mock.Mock
}

func (m *mockPRHandler) HandleComment(ctx context.Context, org, repo string, number int, comment string) error {
	args := m.Called(ctx, org, repo, number, comment)
	return args.Error(0)
}

func (m *mockPRHandler) Handle(ctx context.Context, trigger models.PRTrigger) error {
	args := m.Called(ctx, trigger)
	return args.Error(0)
}

type mockIssueHandler struct {
	mock.Mock
}

func (m *mockIssueHandler) Handle(ctx context.Context, trigger models.IssueTrigger) error {
	args := m.Called(ctx, trigger)
	return args.Error(0)
}

func runCommand(t *testing.T, prs ports.PRCommandHandler, issues ports.IssueCommandHandler, args ...string) (string, error) {
	t.Helper()
	trans, err := i18n.NewTranslations("en", "")
	require.NoError(t, err)

	factory := NewCommandFactory(
		func() (ports.PRCommandHandler, error) { return prs, nil },
		func() (ports.IssueCommandHandler, error) { return issues, nil },
	)
	cmd := factory.CreateCommand(trans, config.Default())
	var out bytes.Buffer
	cmd.Writer = &out

	err = cmd.Run(context.Background(), append([]string{"command"}, args...))
	return out.String(), err
}

func TestCommand_PR(t *testing.T) {
	// Arrange
	prs := new(mockPRHandler)
	prs.On("HandleComment", mock.Anything, "nwb-extensions", "ndx-foo-feedstock", 7, "@nwb-extensions-admin please rerender").
		Return(nil)

	// Act
	out, err := runCommand(t, prs, nil, "pr", "nwb-extensions/ndx-foo-feedstock", "7", "@nwb-extensions-admin", "please", "rerender")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Commands handled.\n", out)
	prs.AssertExpectations(t)
}

func TestCommand_Issue(t *testing.T) {
	// Arrange
	issues := new(mockIssueHandler)
	issues.On("Handle", mock.Anything, models.IssueTrigger{
		Kind:   models.TriggerIssueComment,
		Repo:   models.NewRepoContext("nwb-extensions", "ndx-foo-feedstock", "staged-extensions", "-feedstock"),
		Number: 9,
		Title:  "@nwb-extensions-admin, please update team",
		Text:   "thanks",
	}).Return(nil)

	// Act
	_, err := runCommand(t, nil, issues, "issue", "--title", "@nwb-extensions-admin, please update team",
		"nwb-extensions/ndx-foo-feedstock", "9", "thanks")

	// Assert
	require.NoError(t, err)
	issues.AssertExpectations(t)
}

func TestCommand_MissingArguments(t *testing.T) {
	_, err := runCommand(t, new(mockPRHandler), nil, "pr", "o/r", "1")

	assert.EqualError(t, err, "expected arguments: pr <owner/repo> <number> <comment>")
}
