package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/nwb-extensions/nwb-extensions-webservices/internal/config"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/models"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/ports"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/grammar"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/logger"
)

var _ ports.IssueCommandHandler = (*IssueCommandService)(nil)

// IssueCommandService runs the admin commands found in feedstock issues.
// A rerender is delivered as a pull request from the bot's fork.
type IssueCommandService struct {
	vcs        ports.HostingClient
	workspaces ports.WorkspaceProvider
	actions    *WorkflowActions
	composer   *FeedbackComposer
	grammar    *grammar.Grammar
	cfg        *config.Config
}

func NewIssueCommandService(vcs ports.HostingClient, workspaces ports.WorkspaceProvider, actions *WorkflowActions, composer *FeedbackComposer, cfg *config.Config) *IssueCommandService {
	return &IssueCommandService{
		vcs:        vcs,
		workspaces: workspaces,
		actions:    actions,
		composer:   composer,
		grammar:    grammar.New(cfg.HandleBase),
		cfg:        cfg,
	}
}

func (s *IssueCommandService) Handle(ctx context.Context, trigger models.IssueTrigger) error {
	if !trigger.Repo.IsFeedstock {
		return nil
	}

	commands := s.grammar.Match(trigger.Text + trigger.Title)
	if !commands.Has(models.CommandUpdateTeam) && !commands.Has(models.CommandUpdateCIKey) && !commands.Has(models.CommandRerender) {
		return nil
	}
	titleCommands := s.grammar.Match(trigger.Title)

	ctx = logger.With(ctx, "repo", trigger.Repo.FullName(), "number", trigger.Number)
	logger.Info(ctx, "running issue commands", "commands", commands.Sorted())

	org, repo := trigger.Repo.Organization, trigger.Repo.Name
	var result *multierror.Error

	if commands.Has(models.CommandUpdateTeam) {
		outcome := s.actions.UpdateTeam(ctx, org, repo)
		if outcome.Failed() {
			result = multierror.Append(result, outcome.Err)
		}
		msg := s.composer.Compose(models.CommandUpdateTeam, outcome, titleCommands.Has(models.CommandUpdateTeam))
		if err := s.respond(ctx, org, repo, trigger.Number, msg); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if commands.Has(models.CommandUpdateCIKey) {
		outcome := s.actions.UpdateCIKey(ctx, org, repo)
		if outcome.Failed() {
			result = multierror.Append(result, outcome.Err)
		}
		msg := s.composer.Compose(models.CommandUpdateCIKey, outcome, titleCommands.Has(models.CommandUpdateCIKey))
		if err := s.respond(ctx, org, repo, trigger.Number, msg); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if commands.Has(models.CommandRerender) {
		if err := s.rerender(ctx, org, repo, trigger.Number, titleCommands.Has(models.CommandRerender)); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

// AdminBranch is the fork branch that carries the result of a command
// requested in issue number.
func (s *IssueCommandService) AdminBranch(number int) string {
	return fmt.Sprintf("%s_admin_%d", strings.ReplaceAll(s.cfg.HandleBase, "-", "_"), number)
}

// rerender forks the feedstock, rerenders a fresh branch off the upstream
// default branch and opens a pull request when anything changed.
func (s *IssueCommandService) rerender(ctx context.Context, org, repo string, number int, fromTitle bool) error {
	user, err := s.vcs.GetAuthenticatedUser(ctx)
	if err != nil {
		return err
	}

	upstream, err := s.vcs.GetRepository(ctx, org, repo)
	if err != nil {
		return err
	}
	base := upstream.DefaultBranch
	if base == "" {
		base = s.cfg.DefaultBranch
	}

	if _, err := s.vcs.CreateFork(ctx, org, repo); err != nil {
		return err
	}

	branch := s.AdminBranch(number)
	var outcome models.WorkflowOutcome
	err = s.workspaces.WithClone(ctx, s.workspaces.RepoURL(user, repo), "", func(ws ports.WorkspaceSession) error {
		if err := ws.AddRemote("upstream", s.workspaces.RepoURL(org, repo)); err != nil {
			return err
		}
		if err := ws.Fetch(ctx, "upstream"); err != nil {
			return err
		}
		if err := ws.CreateBranch(branch, "refs/remotes/upstream/"+base); err != nil {
			return err
		}
		if err := ws.Checkout(branch); err != nil {
			return err
		}

		outcome = s.actions.Rerender(ctx, ws)
		if outcome.Changed && !outcome.Failed() {
			return ws.Push(ctx, "origin", branch)
		}
		return nil
	})
	if err != nil {
		return err
	}

	msg := s.composer.IssueRerender(outcome, fromTitle)
	if msg.ShouldOpenPR {
		pr, err := s.vcs.CreatePR(ctx, org, repo, models.NewPullRequest{
			Title: s.composer.RerenderPRTitle(),
			Body:  s.composer.RerenderPRBody(number, fromTitle),
			Head:  user + ":" + branch,
			Base:  base,
		})
		if err != nil {
			return err
		}
		logger.Info(ctx, "opened rerender pull request", "pr", pr.Number, "branch", branch)
		msg.Body = s.composer.IssuePROpened(org, repo, pr.Number)
	}

	if err := s.respond(ctx, org, repo, number, msg); err != nil {
		return err
	}
	return outcome.Err
}

// respond posts msg and closes the issue when asked to.
func (s *IssueCommandService) respond(ctx context.Context, org, repo string, number int, msg models.FeedbackMessage) error {
	if !msg.Empty() {
		if _, err := s.vcs.CreateIssueComment(ctx, org, repo, number, msg.Body); err != nil {
			return err
		}
	}
	if msg.ShouldCloseIssue {
		return s.vcs.SetIssueState(ctx, org, repo, number, models.StateClosed)
	}
	return nil
}
