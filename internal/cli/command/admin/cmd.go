// Package admin exposes the @-mention command handlers on the command line so
// a maintainer can replay a comment without a webhook delivery.
package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/nwb-extensions/nwb-extensions-webservices/internal/cli/arguments"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/config"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/models"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/ports"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/i18n"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/logger"
	"github.com/urfave/cli/v3"
)

type (
	PRHandlerProvider    func() (ports.PRCommandHandler, error)
	IssueHandlerProvider func() (ports.IssueCommandHandler, error)
)

type CommandFactory struct {
	prs    PRHandlerProvider
	issues IssueHandlerProvider
}

func NewCommandFactory(prs PRHandlerProvider, issues IssueHandlerProvider) *CommandFactory {
	return &CommandFactory{prs: prs, issues: issues}
}

func (f *CommandFactory) CreateCommand(trans *i18n.Translations, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "command",
		Usage: trans.GetMessage("command_usage", 0, nil),
		Commands: []*cli.Command{
			f.prCommand(trans),
			f.issueCommand(trans, cfg),
		},
	}
}

func (f *CommandFactory) prCommand(trans *i18n.Translations) *cli.Command {
	return &cli.Command{
		Name:      "pr",
		Usage:     trans.GetMessage("command_pr_usage", 0, nil),
		ArgsUsage: "<owner/repo> <number> <comment>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			owner, repo, number, text, err := parseTarget(trans, cmd)
			if err != nil {
				return err
			}
			handler, err := f.prs()
			if err != nil {
				return err
			}

			ctx = logger.With(ctx, "repo", owner+"/"+repo, "pr", number)
			if err := handler.HandleComment(ctx, owner, repo, number, text); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.Root().Writer, trans.GetMessage("command_done", 0, nil))
			return nil
		},
	}
}

func (f *CommandFactory) issueCommand(trans *i18n.Translations, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "issue",
		Usage:     trans.GetMessage("command_issue_usage", 0, nil),
		ArgsUsage: "<owner/repo> <number> <comment>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "title",
				Usage: trans.GetMessage("flag_title_usage", 0, nil),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			owner, repo, number, text, err := parseTarget(trans, cmd)
			if err != nil {
				return err
			}
			handler, err := f.issues()
			if err != nil {
				return err
			}

			ctx = logger.With(ctx, "repo", owner+"/"+repo, "issue", number)
			err = handler.Handle(ctx, models.IssueTrigger{
				Kind:   models.TriggerIssueComment,
				Repo:   models.NewRepoContext(owner, repo, cfg.StagedRepo, cfg.FeedstockSuffix),
				Number: number,
				Title:  cmd.String("title"),
				Text:   text,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.Root().Writer, trans.GetMessage("command_done", 0, nil))
			return nil
		},
	}
}

func parseTarget(trans *i18n.Translations, cmd *cli.Command) (string, string, int, string, error) {
	if err := arguments.Require(trans, cmd, 3); err != nil {
		return "", "", 0, "", err
	}
	owner, repo, err := arguments.Repo(trans, cmd.Args().Get(0))
	if err != nil {
		return "", "", 0, "", err
	}
	number, err := arguments.Number(trans, cmd.Args().Get(1))
	if err != nil {
		return "", "", 0, "", err
	}
	return owner, repo, number, strings.Join(cmd.Args().Slice()[2:], " "), nil
}
