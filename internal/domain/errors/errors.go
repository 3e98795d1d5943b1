package errors

import (
	"errors"
	"fmt"
)

// ErrorType defines the category of the error
type ErrorType string

const (
	TypeConfiguration ErrorType = "CONFIGURATION"
	TypeVCS           ErrorType = "VCS"
	TypeGit           ErrorType = "GIT"
	TypeWorkflow      ErrorType = "WORKFLOW"
	TypeLint          ErrorType = "LINT"
	TypeCI            ErrorType = "CI"
	TypeInternal      ErrorType = "INTERNAL"
)

// AppError represents a domain-level error with a type and an underlying error
type AppError struct {
	Type       ErrorType
	Message    string
	Context    map[string]interface{}
	Err        error
	Suggestion string
}

func (e *AppError) Error() string {
	var msg string
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	} else {
		msg = fmt.Sprintf("%s: %s", e.Type, e.Message)
	}

	if e.Context != nil {
		if stderr, ok := e.Context["stderr"].(string); ok && stderr != "" {
			msg += fmt.Sprintf(" - %s", stderr)
		}
	}

	return msg
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the same kind of AppError, so copies made with
// WithError/WithContext still match their sentinel through errors.Is.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Type == t.Type && e.Message == t.Message
}

// WithError creates a new AppError with an underlying error
func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Type:       e.Type,
		Message:    e.Message,
		Context:    e.Context,
		Err:        err,
		Suggestion: e.Suggestion,
	}
}

// WithContext creates a new AppError with additional context
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	ctx := make(map[string]interface{})
	for k, v := range e.Context {
		ctx[k] = v
	}
	ctx[key] = value
	return &AppError{
		Type:       e.Type,
		Message:    e.Message,
		Context:    ctx,
		Err:        e.Err,
		Suggestion: e.Suggestion,
	}
}

func (e *AppError) WithSuggestion(suggestion string) *AppError {
	return &AppError{
		Type:       e.Type,
		Message:    e.Message,
		Context:    e.Context,
		Err:        e.Err,
		Suggestion: suggestion,
	}
}

// NewAppError creates a new AppError
func NewAppError(t ErrorType, msg string, err error) *AppError {
	return &AppError{
		Type:    t,
		Message: msg,
		Err:     err,
	}
}

// Git errors
var (
	ErrCloneFailed = NewAppError(TypeGit, "Failed to clone repository", nil).
			WithSuggestion("Check the repository URL and that the token can read it")

	ErrFetchFailed = NewAppError(TypeGit, "Failed to fetch from remote", nil)

	ErrRefNotFound = NewAppError(TypeGit, "Reference not found in workspace", nil)

	ErrCreateBranch = NewAppError(TypeGit, "Failed to create branch", nil)

	ErrCheckoutFailed = NewAppError(TypeGit, "Failed to checkout", nil)

	ErrPushRejected = NewAppError(TypeGit, "Push was rejected by the remote", nil).
			WithSuggestion("Make sure \"Allow edits from maintainers\" is enabled on the pull request")

	ErrRunTool = NewAppError(TypeGit, "Failed to start external tool", nil)

	ErrWorkspace = NewAppError(TypeGit, "Failed to prepare temporary workspace", nil)
)

// Workflow errors
var (
	ErrRerenderFailed = NewAppError(TypeWorkflow, "Rerender tool exited with a non-zero status", nil)

	ErrTeamSync = NewAppError(TypeWorkflow, "Failed to synchronize maintainer team", nil)

	ErrRecipeMeta = NewAppError(TypeWorkflow, "Failed to read recipe metadata", nil).
			WithSuggestion("Check that recipe/meta.yaml exists and lists extra.recipe-maintainers")
)

// Lint errors
var (
	ErrLintSkipped = NewAppError(TypeLint, "Linting was skipped", nil)

	ErrMergeableUnknown = NewAppError(TypeLint, "Pull request mergeability could not be determined", nil)
)

// CI errors
var (
	ErrCIKeyRefresh = NewAppError(TypeCI, "Failed to refresh CircleCI deploy key", nil).
		WithSuggestion("Check that the CircleCI token is valid and has admin access to the project")
)

// Configuration errors
var (
	ErrTokenMissing = NewAppError(TypeConfiguration, "GitHub token is missing", nil).
			WithSuggestion("Set GH_TOKEN or github_token in the configuration file")

	ErrCircleTokenMissing = NewAppError(TypeConfiguration, "CircleCI token is missing", nil).
				WithSuggestion("Set CIRCLE_TOKEN or circle_token in the configuration file")

	ErrInvalidConfig = NewAppError(TypeConfiguration, "Configuration is invalid", nil)
)

// GitHub/VCS errors
var (
	ErrRepositoryNotFound = NewAppError(TypeVCS, "repository not found", nil).
				WithSuggestion("Check repository name and access permissions")

	ErrGitHubTokenInvalid = NewAppError(TypeVCS, "GitHub token is invalid or expired", nil).
				WithSuggestion("Generate a new token at: https://github.com/settings/tokens")

	ErrGitHubInsufficientPerms = NewAppError(TypeVCS, "GitHub token has insufficient permissions", nil).
					WithSuggestion("Token needs 'repo' and 'admin:org' scopes")

	ErrGitHubRateLimit = NewAppError(TypeVCS, "GitHub API rate limit exceeded", nil).
				WithSuggestion("Wait for the rate limit to reset")
)
