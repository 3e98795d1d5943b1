package models

type LintStatus string

const (
	LintGood          LintStatus = "good"
	LintMixed         LintStatus = "mixed"
	LintBad           LintStatus = "bad"
	LintNoRecipes     LintStatus = "no extensions"
	LintMergeConflict LintStatus = "merge_conflict"
)

// LintResult is the outcome of linting the recipes of a pull request.
type LintResult struct {
	Message string
	Status  LintStatus
	SHA     string
}

// RecipeLint holds the linter findings for a single recipe directory.
type RecipeLint struct {
	Path  string
	Lints []string
	Hints []string
}

// CommentOptions controls idempotent commenting. Force always posts; Search
// restricts the previous comments considered to those containing it.
type CommentOptions struct {
	Force  bool
	Search string
}
