package models

// TriggerKind identifies where the text of a command came from.
type TriggerKind string

const (
	TriggerPRComment    TriggerKind = "pr_comment"
	TriggerPRBody       TriggerKind = "pr_body"
	TriggerPRReview     TriggerKind = "pr_review"
	TriggerIssueComment TriggerKind = "issue_comment"
	TriggerIssueBody    TriggerKind = "issue_body"
)

type (
	// PRTrigger is a pull request event with enough information to clone
	// the contributor's branch.
	PRTrigger struct {
		Kind   TriggerKind
		Repo   RepoContext
		Number int
		Head   BranchRef
		Text   string
	}

	// IssueTrigger is an issue event. Title is empty for comment events.
	IssueTrigger struct {
		Kind   TriggerKind
		Repo   RepoContext
		Number int
		Title  string
		Text   string
	}

	// BranchRef points at a branch of a possibly forked repository.
	BranchRef struct {
		Owner  string
		Repo   string
		Branch string
	}
)

func (b BranchRef) FullName() string {
	return b.Owner + "/" + b.Repo
}
