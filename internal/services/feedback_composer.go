package services

import (
	"strings"

	"github.com/nwb-extensions/nwb-extensions-webservices/internal/config"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/models"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/i18n"
)

// FeedbackComposer turns command outcomes into the comments the bot posts.
// It never talks to GitHub.
type FeedbackComposer struct {
	trans *i18n.Translations
	cfg   *config.Config
}

func NewFeedbackComposer(trans *i18n.Translations, cfg *config.Config) *FeedbackComposer {
	return &FeedbackComposer{trans: trans, cfg: cfg}
}

// commandRun accumulates the state of the clone-backed commands of a pull
// request event.
type commandRun struct {
	expected    []models.Command
	changed     bool
	rerenderErr error
	pushErr     error
}

func (r *commandRun) record(outcome models.WorkflowOutcome) {
	if outcome.Command.Mutating() {
		r.expected = append(r.expected, outcome.Command)
	}
	r.changed = r.changed || outcome.Changed
	if outcome.Command == models.CommandRerender && outcome.Err != nil {
		r.rerenderErr = outcome.Err
	}
}

func (f *FeedbackComposer) message(id string, data map[string]interface{}) string {
	return f.trans.GetMessage("webservice_greeting", 0, nil) + "\n\n" + f.trans.GetMessage(id, 0, data) + "\n"
}

// Compose builds the comment for a command that runs without a clone.
// closeOnSuccess is set when the issue title asked for the command.
func (f *FeedbackComposer) Compose(command models.Command, outcome models.WorkflowOutcome, closeOnSuccess bool) models.FeedbackMessage {
	if outcome.Failed() {
		return models.FeedbackMessage{Body: f.failed([]models.Command{command})}
	}

	switch command {
	case models.CommandUpdateCIKey:
		return models.FeedbackMessage{
			Body:             f.message("ci_key_updated", nil),
			ShouldCloseIssue: closeOnSuccess,
		}
	case models.CommandUpdateTeam:
		return models.FeedbackMessage{
			Body:             f.message("team_updated", map[string]interface{}{"Branch": f.cfg.DefaultBranch}),
			ShouldCloseIssue: closeOnSuccess,
		}
	default:
		return models.FeedbackMessage{}
	}
}

func (f *FeedbackComposer) failed(commands []models.Command) string {
	return f.message("command_failed", map[string]interface{}{
		"Changes": joinChanges(commands),
		"Org":     f.cfg.Organization,
	})
}

// PRSummary is the single comment posted after the clone-backed commands of
// a pull request ran. It is empty when no mutating command was requested or
// when the push went through silently.
func (f *FeedbackComposer) PRSummary(run *commandRun, head models.BranchRef) models.FeedbackMessage {
	if run == nil || len(run.expected) == 0 {
		return models.FeedbackMessage{}
	}

	data := map[string]interface{}{
		"Changes": joinChanges(run.expected),
		"Branch":  head.Branch,
		"Owner":   head.Owner,
		"Repo":    head.Repo,
	}
	switch {
	case run.changed && run.pushErr != nil:
		return models.FeedbackMessage{Body: f.message("push_rejected", data)}
	case run.changed:
		return models.FeedbackMessage{Body: f.message("changes_pushed", data)}
	case run.rerenderErr != nil:
		return models.FeedbackMessage{Body: f.failed(run.expected)}
	default:
		return models.FeedbackMessage{Body: f.message("nothing_to_do", data)}
	}
}

// IssueRerender decides what follows a rerender requested from an issue.
// When ShouldOpenPR is set the body is left empty: it needs the number of
// the pull request, see IssuePROpened.
func (f *FeedbackComposer) IssueRerender(outcome models.WorkflowOutcome, closeOnSuccess bool) models.FeedbackMessage {
	if outcome.Failed() {
		return models.FeedbackMessage{Body: f.failed([]models.Command{models.CommandRerender})}
	}
	if outcome.Changed {
		return models.FeedbackMessage{ShouldOpenPR: true}
	}
	return models.FeedbackMessage{
		Body: f.message("issue_nothing_changed", map[string]interface{}{
			"Action": f.trans.GetMessage("rerender_action", 0, nil),
		}),
		ShouldCloseIssue: closeOnSuccess,
	}
}

func (f *FeedbackComposer) IssuePROpened(owner, repo string, number int) string {
	return f.message("issue_pr_opened", map[string]interface{}{
		"Action": f.trans.GetMessage("rerender_action", 0, nil),
		"Owner":  owner,
		"Repo":   repo,
		"Number": number,
	})
}

func (f *FeedbackComposer) RerenderPRTitle() string {
	return f.trans.GetMessage("rerender_pr_title", 0, nil)
}

// RerenderPRBody links the pull request to its issue. With fixes set the
// hosting platform closes the issue once the pull request is merged.
func (f *FeedbackComposer) RerenderPRBody(issue int, fixes bool) string {
	body := f.message("rerender_pr_body", map[string]interface{}{
		"Action": f.trans.GetMessage("rerender_action", 0, nil),
		"Issue":  issue,
	})
	if fixes {
		body += "\n" + f.trans.GetMessage("pr_fixes_issue", 0, map[string]interface{}{"Issue": issue})
	}
	return body
}

// joinChanges renders commands as an English list: "a", "a and b",
// "a, b, and c".
func joinChanges(commands []models.Command) string {
	parts := make([]string, len(commands))
	for i, c := range commands {
		parts[i] = c.ChangeDescription()
	}

	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	case 2:
		return parts[0] + " and " + parts[1]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + ", and " + parts[len(parts)-1]
	}
}
