package services

import (
	"context"
	stderrors "errors"

	"github.com/hashicorp/go-multierror"

	"github.com/nwb-extensions/nwb-extensions-webservices/internal/config"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/errors"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/models"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/ports"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/grammar"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/logger"
)

var _ ports.PRCommandHandler = (*PRCommandService)(nil)

// PRCommandService runs the admin commands found in pull request comments,
// reviews and descriptions.
type PRCommandService struct {
	vcs        ports.HostingClient
	workspaces ports.WorkspaceProvider
	actions    *WorkflowActions
	composer   *FeedbackComposer
	grammar    *grammar.Grammar
	cfg        *config.Config
}

func NewPRCommandService(vcs ports.HostingClient, workspaces ports.WorkspaceProvider, actions *WorkflowActions, composer *FeedbackComposer, cfg *config.Config) *PRCommandService {
	return &PRCommandService{
		vcs:        vcs,
		workspaces: workspaces,
		actions:    actions,
		composer:   composer,
		grammar:    grammar.New(cfg.HandleBase),
		cfg:        cfg,
	}
}

// HandleComment looks up the head branch of the pull request before
// handling an issue comment, which does not carry it.
func (s *PRCommandService) HandleComment(ctx context.Context, org, repo string, number int, comment string) error {
	if !s.grammar.Mentioned(comment) {
		return nil
	}

	pr, err := s.vcs.GetPR(ctx, org, repo, number)
	if err != nil {
		return err
	}

	return s.Handle(ctx, models.PRTrigger{
		Kind:   models.TriggerPRComment,
		Repo:   models.NewRepoContext(org, repo, s.cfg.StagedRepo, s.cfg.FeedstockSuffix),
		Number: number,
		Head:   pr.Head,
		Text:   comment,
	})
}

func (s *PRCommandService) Handle(ctx context.Context, trigger models.PRTrigger) error {
	if !trigger.Repo.Accepted() {
		return nil
	}
	ctx = logger.With(ctx, "repo", trigger.Repo.FullName(), "number", trigger.Number)

	org, repo := trigger.Repo.Organization, trigger.Repo.Name
	staged := trigger.Repo.IsStaged
	commands := s.grammar.Match(trigger.Text)

	var result *multierror.Error

	if !staged && commands.Has(models.CommandUpdateCIKey) {
		outcome := s.actions.UpdateCIKey(ctx, org, repo)
		if outcome.Failed() {
			result = multierror.Append(result, outcome.Err)
		}
		if err := s.post(ctx, org, repo, trigger.Number, s.composer.Compose(models.CommandUpdateCIKey, outcome, false)); err != nil {
			result = multierror.Append(result, err)
		}
	}

	relint := commands.Has(models.CommandRelint)
	rerender := !staged && commands.Has(models.CommandRerender)
	if !relint && !rerender {
		return result.ErrorOrNil()
	}

	logger.Info(ctx, "running pull request commands", "commands", commands.Sorted())

	run := &commandRun{}
	head := trigger.Head
	err := s.workspaces.WithClone(ctx, s.workspaces.RepoURL(head.Owner, head.Repo), head.Branch, func(ws ports.WorkspaceSession) error {
		if relint {
			outcome := s.actions.Relint(ctx, org, repo, trigger.Number)
			if outcome.Failed() && !stderrors.Is(outcome.Err, errors.ErrLintSkipped) {
				result = multierror.Append(result, outcome.Err)
			}
		}

		if rerender {
			outcome := s.actions.Rerender(ctx, ws)
			if outcome.Failed() {
				logger.Warn(ctx, "rerender failed", "error", outcome.Err)
			}
			run.record(outcome)
		}

		if len(run.expected) > 0 && run.changed {
			run.pushErr = ws.Push(ctx, "origin", head.Branch)
			if run.pushErr != nil {
				logger.Warn(ctx, "push rejected", "branch", head.Branch, "error", run.pushErr)
			}
		}
		return nil
	})
	if err != nil {
		return multierror.Append(result, err).ErrorOrNil()
	}

	if err := s.post(ctx, org, repo, trigger.Number, s.composer.PRSummary(run, head)); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

func (s *PRCommandService) post(ctx context.Context, org, repo string, number int, msg models.FeedbackMessage) error {
	if msg.Empty() {
		return nil
	}
	_, err := s.vcs.CreateIssueComment(ctx, org, repo, number, msg.Body)
	return err
}
