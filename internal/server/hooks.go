package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"slices"
	"strings"

	"github.com/google/go-github/v66/github"

	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/models"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/logger"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/services"
)

type eventHandler func(ctx context.Context, event interface{}) error

var errUnexpectedPayload = stderrors.New("unexpected webhook payload")

func ignoreEvent(context.Context, interface{}) error {
	return nil
}

// hook answers pings, rejects events it has no handler for with a 404 and
// runs the handler synchronously otherwise.
func (s *Server) hook(name string, handlers map[string]eventHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		event := github.WebHookType(r)
		ctx := logger.With(r.Context(), "hook", name, "event", event)

		if event == "ping" {
			_, _ = w.Write([]byte("pong"))
			return
		}

		handle, ok := handlers[event]
		if !ok {
			logger.Warn(ctx, "unhandled event")
			http.Error(w, "unhandled event", http.StatusNotFound)
			return
		}

		payload, err := github.ValidatePayload(r, s.secret)
		if err != nil {
			logger.Warn(ctx, "invalid webhook payload", "error", err)
			http.Error(w, "invalid payload", http.StatusUnauthorized)
			return
		}

		parsed, err := github.ParseWebHook(event, payload)
		if err != nil {
			logger.Warn(ctx, "could not parse webhook", "error", err)
			http.Error(w, "bad payload", http.StatusBadRequest)
			return
		}

		if err := handle(ctx, parsed); err != nil {
			logger.Error(ctx, "webhook handler failed", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		s.logRateLimit(ctx)
		w.WriteHeader(http.StatusOK)
	}
}

func (s *Server) handleLintPullRequest(ctx context.Context, event interface{}) error {
	e, ok := event.(*github.PullRequestEvent)
	if !ok {
		return errUnexpectedPayload
	}

	owner := e.GetRepo().GetOwner().GetLogin()
	repo := e.GetRepo().GetName()
	pr := e.GetPullRequest()
	if owner != s.cfg.Organization || pr.GetState() != models.StateOpen || s.deps.Linter == nil {
		return nil
	}

	ctx = logger.With(ctx, "repo", owner+"/"+repo, "number", pr.GetNumber())
	_, err := s.deps.Linter.LintPR(ctx, owner, repo, pr.GetNumber(), repo == s.cfg.StagedRepo, models.CommentOptions{
		Search: services.LintCommentMarker,
	})
	return err
}

func (s *Server) handleTeamPush(ctx context.Context, event interface{}) error {
	e, ok := event.(*github.PushEvent)
	if !ok {
		return errUnexpectedPayload
	}

	owner := e.GetRepo().GetOwner().GetLogin()
	repo := e.GetRepo().GetName()
	if owner != s.cfg.Organization || e.GetRef() != "refs/heads/"+s.cfg.DefaultBranch || s.deps.Teams == nil {
		return nil
	}

	ctx = logger.With(ctx, "repo", owner+"/"+repo)
	_, err := s.deps.Teams.UpdateTeam(ctx, owner, repo, e.GetHeadCommit().GetID())
	return err
}

func (s *Server) handleTeamMembership(ctx context.Context, event interface{}) error {
	e, ok := event.(*github.MembershipEvent)
	if !ok {
		return errUnexpectedPayload
	}

	org := e.GetOrg().GetLogin()
	slug := e.GetTeam().GetSlug()
	if org != s.cfg.Organization || s.deps.Teams == nil || !slices.Contains(s.cfg.FilterOutTeams, slug) {
		return nil
	}

	logger.Info(ctx, "filter-out team changed", "team", slug, "action", e.GetAction())
	s.deps.Teams.InvalidateFilterOut(org)
	return nil
}

// handleCommandPullRequest extracts the command text of pull request,
// review and review comment events.
func (s *Server) handleCommandPullRequest(ctx context.Context, event interface{}) error {
	var (
		repo   *github.Repository
		pr     *github.PullRequest
		kind   models.TriggerKind
		text   string
		action string
	)

	switch e := event.(type) {
	case *github.PullRequestReviewEvent:
		repo, pr, action = e.GetRepo(), e.GetPullRequest(), e.GetAction()
		kind = models.TriggerPRReview
		if action != "dismissed" {
			text = e.GetReview().GetBody()
		}
	case *github.PullRequestEvent:
		repo, pr, action = e.GetRepo(), e.GetPullRequest(), e.GetAction()
		kind = models.TriggerPRBody
		if action == "opened" || action == "edited" || action == "reopened" {
			text = pr.GetBody()
		}
	case *github.PullRequestReviewCommentEvent:
		repo, pr, action = e.GetRepo(), e.GetPullRequest(), e.GetAction()
		kind = models.TriggerPRComment
		if action != "deleted" {
			text = e.GetComment().GetBody()
		}
	default:
		return errUnexpectedPayload
	}

	owner := repo.GetOwner().GetLogin()
	if owner != s.cfg.Organization || text == "" || s.deps.PRCommands == nil {
		return nil
	}

	head := pr.GetHead()
	return s.deps.PRCommands.Handle(ctx, models.PRTrigger{
		Kind:   kind,
		Repo:   models.NewRepoContext(owner, repo.GetName(), s.cfg.StagedRepo, s.cfg.FeedstockSuffix),
		Number: pr.GetNumber(),
		Head: models.BranchRef{
			Owner:  head.GetRepo().GetOwner().GetLogin(),
			Repo:   head.GetRepo().GetName(),
			Branch: head.GetRef(),
		},
		Text: text,
	})
}

// handleCommandIssue routes comments on pull requests to the pull request
// commands and everything else to the issue commands.
func (s *Server) handleCommandIssue(ctx context.Context, event interface{}) error {
	var (
		repo    *github.Repository
		issue   *github.Issue
		comment *github.IssueComment
		action  string
		title   string
	)

	switch e := event.(type) {
	case *github.IssueCommentEvent:
		repo, issue, comment, action = e.GetRepo(), e.GetIssue(), e.GetComment(), e.GetAction()
	case *github.IssuesEvent:
		repo, issue, action = e.GetRepo(), e.GetIssue(), e.GetAction()
		title = issue.GetTitle()
	default:
		return errUnexpectedPayload
	}

	owner := repo.GetOwner().GetLogin()
	if owner != s.cfg.Organization || issue == nil {
		return nil
	}
	name := repo.GetName()

	if issue.IsPullRequest() {
		if action == "deleted" || comment == nil || s.deps.PRCommands == nil {
			return nil
		}
		return s.deps.PRCommands.HandleComment(ctx, owner, name, issue.GetNumber(), comment.GetBody())
	}

	switch action {
	case "opened", "edited", "created", "reopened":
	default:
		return nil
	}
	if s.deps.IssueCommands == nil {
		return nil
	}

	text := issue.GetBody()
	kind := models.TriggerIssueBody
	if comment != nil {
		text = comment.GetBody()
		kind = models.TriggerIssueComment
	}

	return s.deps.IssueCommands.Handle(ctx, models.IssueTrigger{
		Kind:   kind,
		Repo:   models.NewRepoContext(owner, name, s.cfg.StagedRepo, s.cfg.FeedstockSuffix),
		Number: issue.GetNumber(),
		Title:  title,
		Text:   text,
	})
}

// handleUpdateStatus redeploys once every status of the commit is green.
func (s *Server) handleUpdateStatus(ctx context.Context, event interface{}) error {
	e, ok := event.(*github.StatusEvent)
	if !ok {
		return errUnexpectedPayload
	}
	if s.deps.Updater == nil || !s.deps.Updater.Enabled() {
		return nil
	}

	state := e.GetState()
	if state == models.StatusSuccess && s.deps.Hosting != nil {
		owner, repo, found := strings.Cut(e.GetName(), "/")
		if !found {
			return nil
		}
		combined, err := s.deps.Hosting.GetCombinedStatus(ctx, owner, repo, e.GetSHA())
		if err != nil {
			return err
		}
		state = combined
	}

	if state != models.StatusSuccess {
		return nil
	}
	return s.deps.Updater.Update(ctx)
}
