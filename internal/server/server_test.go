package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nwb-extensions/nwb-extensions-webservices/internal/config"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/models"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/services"
)

type MockPRLinter struct {
	mock.Mock
}

func (m *MockPRLinter) LintPR(ctx context.Context, owner, repo string, number int, ignoreBase bool, opts models.CommentOptions) (*models.LintResult, error) {
	args := m.Called(ctx, owner, repo, number, ignoreBase, opts)
	res, _ := args.Get(0).(*models.LintResult)
	return res, args.Error(1)
}

type MockPRCommands struct {
	mock.Mock
}

func (m *MockPRCommands) HandleComment(ctx context.Context, org, repo string, number int, comment string) error {
	return m.Called(ctx, org, repo, number, comment).Error(0)
}

func (m *MockPRCommands) Handle(ctx context.Context, trigger models.PRTrigger) error {
	return m.Called(ctx, trigger).Error(0)
}

type MockIssueCommands struct {
	mock.Mock
}

func (m *MockIssueCommands) Handle(ctx context.Context, trigger models.IssueTrigger) error {
	return m.Called(ctx, trigger).Error(0)
}

type MockUpdater struct {
	mock.Mock
}

func (m *MockUpdater) Enabled() bool {
	return m.Called().Bool(0)
}

func (m *MockUpdater) Update(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type fixture struct {
	srv     *Server
	hosting *services.MockHostingClient
	linter  *MockPRLinter
	teams   *services.MockTeamSyncer
	prs     *MockPRCommands
	issues  *MockIssueCommands
	updater *MockUpdater
}

func newFixture(t *testing.T, secret string) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.WebhookSecret = secret

	f := &fixture{
		hosting: new(services.MockHostingClient),
		linter:  new(MockPRLinter),
		teams:   new(services.MockTeamSyncer),
		prs:     new(MockPRCommands),
		issues:  new(MockIssueCommands),
		updater: new(MockUpdater),
	}
	f.hosting.On("GetRateLimit", mock.Anything).
		Return(&models.RateLimit{Limit: 5000, Remaining: 4999, Reset: time.Now().Add(time.Hour)}, nil).Maybe()

	f.srv = New(cfg, Dependencies{
		Hosting:       f.hosting,
		Linter:        f.linter,
		Teams:         f.teams,
		PRCommands:    f.prs,
		IssueCommands: f.issues,
		Updater:       f.updater,
	})
	return f
}

func post(t *testing.T, h http.Handler, path, event, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if event != "" {
		req.Header.Set("X-GitHub-Event", event)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_Ping(t *testing.T) {
	f := newFixture(t, "")

	for _, path := range []string{
		"/nwb-extensions-linting/hook",
		"/nwb-extensions-teams/hook",
		"/nwb-extensions-command/hook",
		"/nwb-extensions-webservice-update/hook",
	} {
		t.Run(path, func(t *testing.T) {
			rec := post(t, f.srv.Handler(), path, "ping", `{}`)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "pong", rec.Body.String())
		})
	}
}

func TestServer_UnhandledEvent(t *testing.T) {
	f := newFixture(t, "")

	missing := post(t, f.srv.Handler(), "/nwb-extensions-linting/hook", "", "a=1")
	other := post(t, f.srv.Handler(), "/nwb-extensions-teams/hook", "issues", `{}`)

	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.Equal(t, http.StatusNotFound, other.Code)
}

func TestServer_LintingHook(t *testing.T) {
	tests := []struct {
		name       string
		repo       string
		ignoreBase bool
	}{
		{name: "feedstock", repo: "repo_name", ignoreBase: false},
		{name: "staged extensions", repo: "staged-extensions", ignoreBase: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			f := newFixture(t, "")
			body := `{"action":"opened","repository":{"name":"` + tt.repo + `","owner":{"login":"nwb-extensions"}},
				"pull_request":{"number":16,"state":"open"}}`
			f.linter.On("LintPR", mock.Anything, "nwb-extensions", tt.repo, 16, tt.ignoreBase,
				models.CommentOptions{Search: "nwb-extensions-linting service"}).Return(&models.LintResult{}, nil)

			// Act
			rec := post(t, f.srv.Handler(), "/nwb-extensions-linting/hook", "pull_request", body)

			// Assert
			assert.Equal(t, http.StatusOK, rec.Code)
			f.linter.AssertExpectations(t)
		})
	}

	t.Run("closed or foreign pull requests are ignored", func(t *testing.T) {
		f := newFixture(t, "")

		closed := post(t, f.srv.Handler(), "/nwb-extensions-linting/hook", "pull_request",
			`{"repository":{"name":"r","owner":{"login":"nwb-extensions"}},"pull_request":{"number":1,"state":"closed"}}`)
		foreign := post(t, f.srv.Handler(), "/nwb-extensions-linting/hook", "pull_request",
			`{"repository":{"name":"r","owner":{"login":"someone"}},"pull_request":{"number":1,"state":"open"}}`)

		assert.Equal(t, http.StatusOK, closed.Code)
		assert.Equal(t, http.StatusOK, foreign.Code)
		f.linter.AssertNotCalled(t, "LintPR", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("handler error is a 500", func(t *testing.T) {
		f := newFixture(t, "")
		f.linter.On("LintPR", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, assert.AnError)

		rec := post(t, f.srv.Handler(), "/nwb-extensions-linting/hook", "pull_request",
			`{"repository":{"name":"r","owner":{"login":"nwb-extensions"}},"pull_request":{"number":1,"state":"open"}}`)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestServer_TeamsHook(t *testing.T) {
	// Arrange
	f := newFixture(t, "")
	body := `{"ref":"refs/heads/master","head_commit":{"id":"abc123"},
		"repository":{"name":"ndx-foo-feedstock","owner":{"login":"nwb-extensions","name":"nwb-extensions"}}}`
	f.teams.On("UpdateTeam", mock.Anything, "nwb-extensions", "ndx-foo-feedstock", "abc123").Return(models.TeamChanges{}, nil)

	// Act
	rec := post(t, f.srv.Handler(), "/nwb-extensions-teams/hook", "push", body)
	other := post(t, f.srv.Handler(), "/nwb-extensions-teams/hook", "push",
		`{"ref":"refs/heads/dev","repository":{"name":"ndx-foo-feedstock","owner":{"login":"nwb-extensions"}}}`)

	// Assert
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, other.Code)
	f.teams.AssertNumberOfCalls(t, "UpdateTeam", 1)
}

func TestServer_TeamsHook_Membership(t *testing.T) {
	// Arrange
	f := newFixture(t, "")
	f.teams.On("InvalidateFilterOut", "nwb-extensions").Return()
	filtered := `{"action":"added","scope":"team","member":{"login":"carol"},
		"team":{"slug":"staged-extensions"},"organization":{"login":"nwb-extensions"}}`
	unrelated := `{"action":"added","scope":"team","member":{"login":"carol"},
		"team":{"slug":"ndx-foo"},"organization":{"login":"nwb-extensions"}}`

	// Act
	rec := post(t, f.srv.Handler(), "/nwb-extensions-teams/hook", "membership", filtered)
	other := post(t, f.srv.Handler(), "/nwb-extensions-teams/hook", "membership", unrelated)

	// Assert
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, other.Code)
	f.teams.AssertNumberOfCalls(t, "InvalidateFilterOut", 1)
}

func TestServer_CommandHook_PullRequest(t *testing.T) {
	const prJSON = `"pull_request":{"number":3,"body":"@nwb-extensions-admin please rerender",
		"head":{"ref":"patch-1","repo":{"name":"ndx-foo-feedstock","owner":{"login":"contributor"}}}},
		"repository":{"name":"ndx-foo-feedstock","owner":{"login":"nwb-extensions"}}`

	want := func(kind models.TriggerKind, text string) models.PRTrigger {
		return models.PRTrigger{
			Kind:   kind,
			Repo:   models.NewRepoContext("nwb-extensions", "ndx-foo-feedstock", "staged-extensions", "-feedstock"),
			Number: 3,
			Head:   models.BranchRef{Owner: "contributor", Repo: "ndx-foo-feedstock", Branch: "patch-1"},
			Text:   text,
		}
	}

	t.Run("opened pull request body", func(t *testing.T) {
		f := newFixture(t, "")
		f.prs.On("Handle", mock.Anything, want(models.TriggerPRBody, "@nwb-extensions-admin please rerender")).Return(nil)

		rec := post(t, f.srv.Handler(), "/nwb-extensions-command/hook", "pull_request", `{"action":"opened",`+prJSON+`}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		f.prs.AssertExpectations(t)
	})

	t.Run("closed pull request is ignored", func(t *testing.T) {
		f := newFixture(t, "")

		rec := post(t, f.srv.Handler(), "/nwb-extensions-command/hook", "pull_request", `{"action":"closed",`+prJSON+`}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		f.prs.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
	})

	t.Run("review body", func(t *testing.T) {
		f := newFixture(t, "")
		f.prs.On("Handle", mock.Anything, want(models.TriggerPRReview, "@nwb-extensions-linter lint")).Return(nil)

		rec := post(t, f.srv.Handler(), "/nwb-extensions-command/hook", "pull_request_review",
			`{"action":"submitted","review":{"body":"@nwb-extensions-linter lint"},`+prJSON+`}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		f.prs.AssertExpectations(t)
	})

	t.Run("review comment", func(t *testing.T) {
		f := newFixture(t, "")
		f.prs.On("Handle", mock.Anything, want(models.TriggerPRComment, "@nwb-extensions-admin rerender")).Return(nil)

		rec := post(t, f.srv.Handler(), "/nwb-extensions-command/hook", "pull_request_review_comment",
			`{"action":"created","comment":{"body":"@nwb-extensions-admin rerender"},`+prJSON+`}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		f.prs.AssertExpectations(t)
	})
}

func TestServer_CommandHook_Issues(t *testing.T) {
	const repoJSON = `"repository":{"name":"ndx-foo-feedstock","owner":{"login":"nwb-extensions"}}`

	t.Run("comment on a pull request", func(t *testing.T) {
		f := newFixture(t, "")
		f.prs.On("HandleComment", mock.Anything, "nwb-extensions", "ndx-foo-feedstock", 4, "@nwb-extensions-admin please lint").Return(nil)

		rec := post(t, f.srv.Handler(), "/nwb-extensions-command/hook", "issue_comment",
			`{"action":"created","issue":{"number":4,"title":"t","pull_request":{"url":"u"}},
			"comment":{"body":"@nwb-extensions-admin please lint"},`+repoJSON+`}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		f.prs.AssertExpectations(t)
		f.issues.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
	})

	t.Run("comment on an issue has no title", func(t *testing.T) {
		f := newFixture(t, "")
		f.issues.On("Handle", mock.Anything, models.IssueTrigger{
			Kind:   models.TriggerIssueComment,
			Repo:   models.NewRepoContext("nwb-extensions", "ndx-foo-feedstock", "staged-extensions", "-feedstock"),
			Number: 5,
			Text:   "@nwb-extensions-admin please update team",
		}).Return(nil)

		rec := post(t, f.srv.Handler(), "/nwb-extensions-command/hook", "issue_comment",
			`{"action":"created","issue":{"number":5,"title":"@nwb-extensions-admin please rerender","body":"b"},
			"comment":{"body":"@nwb-extensions-admin please update team"},`+repoJSON+`}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		f.issues.AssertExpectations(t)
	})

	t.Run("opened issue uses title and body", func(t *testing.T) {
		f := newFixture(t, "")
		f.issues.On("Handle", mock.Anything, models.IssueTrigger{
			Kind:   models.TriggerIssueBody,
			Repo:   models.NewRepoContext("nwb-extensions", "ndx-foo-feedstock", "staged-extensions", "-feedstock"),
			Number: 6,
			Title:  "@nwb-extensions-admin, please rerender",
			Text:   "thanks",
		}).Return(nil)

		rec := post(t, f.srv.Handler(), "/nwb-extensions-command/hook", "issues",
			`{"action":"opened","issue":{"number":6,"title":"@nwb-extensions-admin, please rerender","body":"thanks"},`+repoJSON+`}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		f.issues.AssertExpectations(t)
	})

	t.Run("closed issue is ignored", func(t *testing.T) {
		f := newFixture(t, "")

		rec := post(t, f.srv.Handler(), "/nwb-extensions-command/hook", "issues",
			`{"action":"closed","issue":{"number":6,"title":"x"},`+repoJSON+`}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		f.issues.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
	})
}

func TestServer_WebserviceUpdateHook(t *testing.T) {
	const statusJSON = `{"name":"nwb-extensions/nwb-extensions-webservices","sha":"abc","state":"success"}`

	t.Run("green combined status updates", func(t *testing.T) {
		f := newFixture(t, "")
		f.updater.On("Enabled").Return(true)
		f.hosting.On("GetCombinedStatus", mock.Anything, "nwb-extensions", "nwb-extensions-webservices", "abc").Return("success", nil)
		f.updater.On("Update", mock.Anything).Return(nil)

		rec := post(t, f.srv.Handler(), "/nwb-extensions-webservice-update/hook", "status", statusJSON)

		assert.Equal(t, http.StatusOK, rec.Code)
		f.updater.AssertExpectations(t)
	})

	t.Run("pending combined status waits", func(t *testing.T) {
		f := newFixture(t, "")
		f.updater.On("Enabled").Return(true)
		f.hosting.On("GetCombinedStatus", mock.Anything, mock.Anything, mock.Anything, "abc").Return("pending", nil)

		rec := post(t, f.srv.Handler(), "/nwb-extensions-webservice-update/hook", "status", statusJSON)

		assert.Equal(t, http.StatusOK, rec.Code)
		f.updater.AssertNotCalled(t, "Update", mock.Anything)
	})

	t.Run("push is accepted silently", func(t *testing.T) {
		f := newFixture(t, "")

		rec := post(t, f.srv.Handler(), "/nwb-extensions-webservice-update/hook", "push", `{}`)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestServer_Signature(t *testing.T) {
	const secret = "s3cret"
	body := `{"repository":{"name":"r","owner":{"login":"someone"}},"pull_request":{"number":1,"state":"open"}}`
	mac := hmac.New(sha256.New, []byte(secret))
	_, err := mac.Write([]byte(body))
	require.NoError(t, err)
	signature := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	f := newFixture(t, secret)

	good := post(t, f.srv.Handler(), "/nwb-extensions-linting/hook", "pull_request", body, "X-Hub-Signature-256", signature)
	bad := post(t, f.srv.Handler(), "/nwb-extensions-linting/hook", "pull_request", body, "X-Hub-Signature-256", "sha256=00")

	assert.Equal(t, http.StatusOK, good.Code)
	assert.Equal(t, http.StatusUnauthorized, bad.Code)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	f := newFixture(t, "")
	req := httptest.NewRequest(http.MethodGet, "/nwb-extensions-command/hook", nil)
	rec := httptest.NewRecorder()

	f.srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
