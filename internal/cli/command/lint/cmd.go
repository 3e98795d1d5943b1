package lint

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/nwb-extensions/nwb-extensions-webservices/internal/cli/arguments"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/config"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/errors"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/models"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/i18n"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/logger"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/services"
	"github.com/urfave/cli/v3"
)

// Service computes lint results and, when asked, publishes them.
type Service interface {
	ComputeLintMessage(ctx context.Context, owner, repo string, number int, ignoreBase bool) (*models.LintResult, error)
	LintPR(ctx context.Context, owner, repo string, number int, ignoreBase bool, opts models.CommentOptions) (*models.LintResult, error)
}

type ServiceProvider func() (Service, error)

type LintCommandFactory struct {
	provide ServiceProvider
}

func NewLintCommandFactory(provide ServiceProvider) *LintCommandFactory {
	return &LintCommandFactory{provide: provide}
}

func (f *LintCommandFactory) CreateCommand(trans *i18n.Translations, _ *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "lint",
		Usage:     trans.GetMessage("lint_usage", 0, nil),
		ArgsUsage: "<owner/repo> <pr>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "enable-commenting",
				Usage: trans.GetMessage("flag_enable_commenting_usage", 0, nil),
			},
			&cli.BoolFlag{
				Name:  "ignore-base",
				Usage: trans.GetMessage("flag_ignore_base_usage", 0, nil),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := arguments.Require(trans, cmd, 2); err != nil {
				return err
			}
			owner, repo, err := arguments.Repo(trans, cmd.Args().Get(0))
			if err != nil {
				return err
			}
			number, err := arguments.Number(trans, cmd.Args().Get(1))
			if err != nil {
				return err
			}

			svc, err := f.provide()
			if err != nil {
				return err
			}

			ctx = logger.With(ctx, "repo", owner+"/"+repo, "pr", number)
			ignoreBase := cmd.Bool("ignore-base")
			out := cmd.Root().Writer

			if cmd.Bool("enable-commenting") {
				result, err := svc.LintPR(ctx, owner, repo, number, ignoreBase, models.CommentOptions{
					Search: services.LintCommentMarker,
				})
				if err != nil {
					return err
				}
				if result == nil {
					_, _ = fmt.Fprintln(out, trans.GetMessage("lint_skipped", 0, nil))
					return nil
				}
				_, _ = fmt.Fprint(out, result.Message)
				return nil
			}

			result, err := svc.ComputeLintMessage(ctx, owner, repo, number, ignoreBase)
			if stderrors.Is(err, errors.ErrLintSkipped) {
				_, _ = fmt.Fprintln(out, trans.GetMessage("lint_skipped", 0, nil))
				return nil
			}
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(out, trans.GetMessage("lint_preview", 0, map[string]interface{}{
				"Message": result.Message,
			}))
			return nil
		},
	}
}
