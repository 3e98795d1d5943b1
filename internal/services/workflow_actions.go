package services

import (
	"context"
	stderrors "errors"

	"github.com/nwb-extensions/nwb-extensions-webservices/internal/config"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/errors"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/models"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/ports"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/logger"
)

// LintCommentMarker identifies comments of the linting service among the
// bot's comments.
const LintCommentMarker = "nwb-extensions-linting service"

// WorkflowActions runs a single command and classifies its outcome. Errors
// are reported in the outcome, never returned.
type WorkflowActions struct {
	linter ports.Linter
	teams  ports.TeamSyncer
	ci     ports.CIKeyRefresher
	cfg    *config.Config
}

func NewWorkflowActions(linter ports.Linter, teams ports.TeamSyncer, ci ports.CIKeyRefresher, cfg *config.Config) *WorkflowActions {
	return &WorkflowActions{
		linter: linter,
		teams:  teams,
		ci:     ci,
		cfg:    cfg,
	}
}

// Rerender runs the rerender tool in ws. Changed is set when the tool made
// a commit.
func (a *WorkflowActions) Rerender(ctx context.Context, ws ports.WorkspaceSession) models.WorkflowOutcome {
	outcome := models.WorkflowOutcome{Command: models.CommandRerender}

	before, err := ws.HeadCommitID()
	if err != nil {
		outcome.Err = err
		return outcome
	}

	code, err := ws.RunTool(ctx, a.cfg.RerenderCommand[0], a.cfg.RerenderCommand[1:]...)
	if err != nil {
		outcome.Err = errors.ErrRerenderFailed.WithError(err)
		return outcome
	}
	if code != 0 {
		outcome.Err = errors.ErrRerenderFailed.WithContext("exit_code", code)
		return outcome
	}

	after, err := ws.HeadCommitID()
	if err != nil {
		outcome.Err = err
		return outcome
	}

	outcome.Changed = after != before
	logger.Info(ctx, "rerender finished", "changed", outcome.Changed)
	return outcome
}

// Relint lints the pull request again and reports the result as a comment
// and a commit status. An identical lint comment is not posted twice.
func (a *WorkflowActions) Relint(ctx context.Context, owner, repo string, number int) models.WorkflowOutcome {
	outcome := models.WorkflowOutcome{Command: models.CommandRelint}

	result, err := a.linter.ComputeLintMessage(ctx, owner, repo, number, repo == a.cfg.StagedRepo)
	if err != nil {
		if stderrors.Is(err, errors.ErrLintSkipped) {
			logger.Info(ctx, "linting was skipped", "number", number)
		}
		outcome.Err = err
		return outcome
	}

	comment, err := a.linter.CommentOnPR(ctx, owner, repo, number, result.Message, models.CommentOptions{
		Search: LintCommentMarker,
	})
	if err != nil {
		outcome.Err = err
		return outcome
	}

	if err := a.linter.SetPRStatus(ctx, owner, repo, result, comment.HTMLURL); err != nil {
		outcome.Err = err
	}
	return outcome
}

func (a *WorkflowActions) UpdateTeam(ctx context.Context, org, repo string) models.WorkflowOutcome {
	changes, err := a.teams.UpdateTeam(ctx, org, repo, "")
	return models.WorkflowOutcome{
		Command: models.CommandUpdateTeam,
		Changed: err == nil && changes.Changed(),
		Err:     err,
	}
}

func (a *WorkflowActions) UpdateCIKey(ctx context.Context, org, repo string) models.WorkflowOutcome {
	err := a.ci.UpdateCircle(ctx, org, repo)
	return models.WorkflowOutcome{
		Command: models.CommandUpdateCIKey,
		Changed: err == nil,
		Err:     err,
	}
}
