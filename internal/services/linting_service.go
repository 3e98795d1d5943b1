package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/sync/errgroup"

	"github.com/nwb-extensions/nwb-extensions-webservices/internal/config"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/errors"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/models"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/ports"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/i18n"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/logger"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/regex"
)

const (
	recipeMetaFile = "ndx-meta.yaml"

	// Recipes are linted in their own directories of the same checkout.
	maxParallelLints = 4
)

var _ ports.Linter = (*LintingService)(nil)

type LintingService struct {
	vcs        ports.HostingClient
	workspaces ports.WorkspaceProvider
	trans      *i18n.Translations
	cfg        *config.Config

	pollAttempts uint
	pollDelay    time.Duration
}

type LintingOption func(*LintingService)

// WithMergeablePolling controls how long ComputeLintMessage waits for GitHub
// to compute the mergeability of a pull request.
func WithMergeablePolling(attempts uint, delay time.Duration) LintingOption {
	return func(s *LintingService) {
		s.pollAttempts = attempts
		s.pollDelay = delay
	}
}

func NewLintingService(vcs ports.HostingClient, workspaces ports.WorkspaceProvider, trans *i18n.Translations, cfg *config.Config, opts ...LintingOption) *LintingService {
	s := &LintingService{
		vcs:          vcs,
		workspaces:   workspaces,
		trans:        trans,
		cfg:          cfg,
		pollAttempts: 30,
		pollDelay:    time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// waitMergeable polls the pull request until GitHub knows whether it can be
// merged.
func (s *LintingService) waitMergeable(ctx context.Context, owner, repo string, number int) (bool, error) {
	var mergeable bool
	err := retry.Do(
		func() error {
			pr, err := s.vcs.GetPR(ctx, owner, repo, number)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			if !pr.IsOpen() {
				return retry.Unrecoverable(errors.ErrLintSkipped.WithContext("state", pr.State))
			}
			if pr.Mergeable == nil {
				return errors.ErrMergeableUnknown
			}
			mergeable = *pr.Mergeable
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(s.pollAttempts),
		retry.Delay(s.pollDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	return mergeable, err
}

func (s *LintingService) ComputeLintMessage(ctx context.Context, owner, repo string, number int, ignoreBase bool) (*models.LintResult, error) {
	log := logger.FromContext(ctx).With("repo", owner+"/"+repo, "number", number)

	mergeable, err := s.waitMergeable(ctx, owner, repo, number)
	if err != nil {
		return nil, err
	}

	var result *models.LintResult
	err = s.workspaces.WithClone(ctx, s.workspaces.RepoURL(owner, repo), "", func(ws ports.WorkspaceSession) error {
		headRef := fmt.Sprintf("refs/remotes/origin/pull/%d/head", number)
		mergeRef := fmt.Sprintf("refs/remotes/origin/pull/%d/merge", number)
		headSpec := fmt.Sprintf("+refs/pull/%d/head:%s", number, headRef)
		mergeSpec := fmt.Sprintf("+refs/pull/%d/merge:%s", number, mergeRef)

		// The merge ref is missing when the pull request was opened in
		// conflict.
		hasMerge := true
		if err := ws.Fetch(ctx, "origin", headSpec, mergeSpec); err != nil {
			hasMerge = false
			if err := ws.Fetch(ctx, "origin", headSpec); err != nil {
				return err
			}
		}

		sha, err := ws.ResolveRevision(headRef)
		if err != nil {
			return err
		}

		msg, err := ws.CommitMessage(sha)
		if err != nil {
			return err
		}
		if regex.SkipMarkers.MatchString(msg) {
			return errors.ErrLintSkipped.WithContext("sha", sha)
		}

		if !mergeable {
			result = &models.LintResult{
				Message: s.compose(s.trans.GetMessage("lint_merge_conflict", 0, map[string]interface{}{
					"Org": s.cfg.Organization,
				})),
				Status: models.LintMergeConflict,
				SHA:    sha,
			}
			return nil
		}

		target := sha
		if hasMerge {
			if target, err = ws.ResolveRevision(mergeRef); err != nil {
				return err
			}
		}

		var baseRecipes []string
		if ignoreBase {
			baseRecipes, err = s.baseRecipes(ws, target, sha)
			if err != nil {
				return err
			}
		}

		if err := ws.CheckoutCommit(target); err != nil {
			return err
		}
		recipes, err := findRecipes(ws.Dir())
		if err != nil {
			return err
		}

		prRecipes := subtract(recipes, baseRecipes)
		findings := make([]models.RecipeLint, len(prRecipes))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(maxParallelLints)
		for i, recipe := range prRecipes {
			i, recipe := i, recipe
			g.Go(func() error {
				findings[i] = s.lintRecipe(gctx, ws, recipe)
				return nil
			})
		}
		_ = g.Wait()

		result = s.buildResult(findings)
		result.SHA = sha
		return nil
	})
	if err != nil {
		return nil, err
	}

	pr, err := s.vcs.GetPR(ctx, owner, repo, number)
	if err != nil {
		return nil, err
	}
	if !pr.IsOpen() {
		return nil, errors.ErrLintSkipped.WithContext("state", pr.State)
	}

	log.Info("lint computed", "status", string(result.Status), "sha", result.SHA)
	return result, nil
}

// baseRecipes lists the recipes on the base side of the merge commit.
func (s *LintingService) baseRecipes(ws ports.WorkspaceSession, merge, head string) ([]string, error) {
	parents, err := ws.CommitParents(merge)
	if err != nil {
		return nil, err
	}
	if len(parents) != 2 {
		return nil, errors.ErrRefNotFound.
			WithContext("commit", merge).
			WithContext("reason", fmt.Sprintf("expected 2 parents, found %d", len(parents)))
	}

	base := parents[0]
	if base == head {
		base = parents[1]
	}
	if err := ws.CheckoutCommit(base); err != nil {
		return nil, err
	}
	return findRecipes(ws.Dir())
}

func (s *LintingService) lintRecipe(ctx context.Context, ws ports.WorkspaceSession, recipe string) models.RecipeLint {
	log := logger.FromContext(ctx)
	lint := models.RecipeLint{Path: recipe}

	args := append(append([]string{}, s.cfg.LintCommand[1:]...), ".")
	res, err := ws.Exec(ctx, recipe, s.cfg.LintCommand[0], args...)
	if err == nil {
		lint.Lints, lint.Hints = parseLintOutput(res.Stdout)
	}

	if err != nil || (!res.Success() && len(lint.Lints) == 0) {
		log.Warn("recipe linter failed", "recipe", recipe, "exit_code", res.ExitCode, "stderr", res.Stderr, "error", err)
		lint.Lints = []string{s.trans.GetMessage("lint_tool_failed", 0, nil)}
	}
	return lint
}

func (s *LintingService) buildResult(findings []models.RecipeLint) *models.LintResult {
	if len(findings) == 0 {
		return &models.LintResult{
			Message: s.compose(s.trans.GetMessage("lint_no_recipes", 0, map[string]interface{}{
				"Org": s.cfg.Organization,
			})),
			Status: models.LintNoRecipes,
		}
	}

	allPass := true
	hasHints := false
	var sections []string
	paths := make([]string, 0, len(findings))
	for _, f := range findings {
		paths = append(paths, "```"+f.Path+"```")
		if len(f.Lints) > 0 {
			allPass = false
			sections = append(sections, recipeSection(f.Path, f.Lints))
		}
		if len(f.Hints) > 0 {
			hasHints = true
			sections = append(sections, recipeSection(f.Path, f.Hints))
		}
	}
	data := map[string]interface{}{"Recipes": strings.Join(paths, ", ")}

	switch {
	case allPass && hasHints:
		return &models.LintResult{
			Message: s.compose(
				s.trans.GetMessage("lint_good", 0, data),
				s.trans.GetMessage("lint_mixed_suffix", 0, nil),
				strings.Join(sections, "\n\n"),
			),
			Status: models.LintMixed,
		}
	case allPass:
		return &models.LintResult{
			Message: s.compose(s.trans.GetMessage("lint_good", 0, data)),
			Status:  models.LintGood,
		}
	default:
		return &models.LintResult{
			Message: s.compose(
				s.trans.GetMessage("lint_bad", 0, data),
				s.trans.GetMessage("lint_bad_suffix", 0, nil),
				strings.Join(sections, "\n\n"),
			),
			Status: models.LintBad,
		}
	}
}

func (s *LintingService) compose(parts ...string) string {
	return strings.Join(append([]string{s.trans.GetMessage("linting_greeting", 0, nil)}, parts...), "\n\n") + "\n"
}

func recipeSection(path string, items []string) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, " * "+item)
	}
	return fmt.Sprintf("For **%s**:\n\n%s", path, strings.Join(lines, "\n"))
}

// CommentOnPR posts message unless the bot's latest matching comment already
// says the same thing, in which case that comment is returned.
func (s *LintingService) CommentOnPR(ctx context.Context, owner, repo string, number int, message string, opts models.CommentOptions) (*models.Comment, error) {
	if opts.Force {
		return s.vcs.CreateIssueComment(ctx, owner, repo, number, message)
	}

	comments, err := s.vcs.ListIssueComments(ctx, owner, repo, number)
	if err != nil {
		return nil, err
	}
	me, err := s.vcs.GetAuthenticatedUser(ctx)
	if err != nil {
		return nil, err
	}

	var last *models.Comment
	for i := range comments {
		c := comments[i]
		if c.Author != me {
			continue
		}
		if opts.Search != "" && !strings.Contains(c.Body, opts.Search) {
			continue
		}
		last = &c
	}

	if last != nil && last.Body == message {
		logger.Debug(ctx, "identical comment already posted", "comment_id", last.ID)
		return last, nil
	}
	return s.vcs.CreateIssueComment(ctx, owner, repo, number, message)
}

func (s *LintingService) SetPRStatus(ctx context.Context, owner, repo string, result *models.LintResult, targetURL string) error {
	if result == nil {
		return nil
	}

	status := models.CommitStatus{
		SHA:       result.SHA,
		Context:   s.cfg.LinterHandle(),
		TargetURL: targetURL,
	}
	switch result.Status {
	case models.LintGood:
		status.State = models.StatusSuccess
		status.Description = s.trans.GetMessage("lint_status_good", 0, nil)
	case models.LintMixed:
		status.State = models.StatusSuccess
		status.Description = s.trans.GetMessage("lint_status_mixed", 0, nil)
	default:
		status.State = models.StatusFailure
		status.Description = s.trans.GetMessage("lint_status_bad", 0, nil)
	}

	return s.vcs.CreateStatus(ctx, owner, repo, status)
}

// LintPR computes the lint of a pull request and reports it as a comment
// and a commit status. A skipped lint is not an error.
func (s *LintingService) LintPR(ctx context.Context, owner, repo string, number int, ignoreBase bool, opts models.CommentOptions) (*models.LintResult, error) {
	result, err := s.ComputeLintMessage(ctx, owner, repo, number, ignoreBase)
	if err != nil {
		if stderrors.Is(err, errors.ErrLintSkipped) {
			logger.Info(ctx, "linting was skipped", "repo", owner+"/"+repo, "number", number)
			return nil, nil
		}
		return nil, err
	}

	comment, err := s.CommentOnPR(ctx, owner, repo, number, result.Message, opts)
	if err != nil {
		return nil, err
	}
	if err := s.SetPRStatus(ctx, owner, repo, result, comment.HTMLURL); err != nil {
		return nil, err
	}
	return result, nil
}

// findRecipes returns the sorted directories below root, relative to it,
// that contain a recipe metadata file.
func findRecipes(root string) ([]string, error) {
	var recipes []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		if d.IsDir() || d.Name() != recipeMetaFile {
			return nil
		}
		rel, err := filepath.Rel(root, filepath.Dir(path))
		if err != nil {
			return err
		}
		recipes = append(recipes, filepath.ToSlash(rel))
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.ErrWorkspace.WithError(err)
	}
	sort.Strings(recipes)
	return recipes, nil
}

func subtract(all, remove []string) []string {
	skip := make(map[string]struct{}, len(remove))
	for _, r := range remove {
		skip[r] = struct{}{}
	}
	out := make([]string, 0, len(all))
	for _, a := range all {
		if _, ok := skip[a]; !ok {
			out = append(out, a)
		}
	}
	return out
}

// parseLintOutput splits the recipe linter report into lints and hints.
// Bullets belong to the most recent "has some lint" or "has some hints"
// header.
func parseLintOutput(out string) (lints, hints []string) {
	var current *[]string
	for _, line := range strings.Split(out, "\n") {
		switch {
		case regex.LintHeader.MatchString(line):
			current = &lints
		case regex.HintHeader.MatchString(line):
			current = &hints
		case current != nil:
			if m := regex.LintBullet.FindStringSubmatch(line); m != nil {
				*current = append(*current, m[1])
			} else if strings.TrimSpace(line) != "" {
				current = nil
			}
		}
	}
	return lints, hints
}
