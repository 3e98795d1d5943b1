package team

import (
	"context"
	"fmt"
	"strings"

	"github.com/nwb-extensions/nwb-extensions-webservices/internal/cli/arguments"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/config"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/ports"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/i18n"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/logger"
	"github.com/urfave/cli/v3"
)

type SyncerProvider func() (ports.TeamSyncer, error)

type UpdateTeamCommandFactory struct {
	provide SyncerProvider
}

func NewUpdateTeamCommandFactory(provide SyncerProvider) *UpdateTeamCommandFactory {
	return &UpdateTeamCommandFactory{provide: provide}
}

func (f *UpdateTeamCommandFactory) CreateCommand(trans *i18n.Translations, _ *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "update-team",
		Usage:     trans.GetMessage("update_team_usage", 0, nil),
		ArgsUsage: "<org> <repo>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "commit",
				Usage: trans.GetMessage("flag_commit_usage", 0, nil),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := arguments.Require(trans, cmd, 2); err != nil {
				return err
			}
			org, repo := cmd.Args().Get(0), cmd.Args().Get(1)

			syncer, err := f.provide()
			if err != nil {
				return err
			}

			ctx = logger.With(ctx, "org", org, "repo", repo)
			changes, err := syncer.UpdateTeam(ctx, org, repo, cmd.String("commit"))
			if err != nil {
				return err
			}

			out := cmd.Root().Writer
			_, _ = fmt.Fprintln(out, trans.GetMessage("update_team_result", 0, map[string]interface{}{
				"Repo":    org + "/" + repo,
				"Members": strings.Join(changes.Current.Sorted(), ", "),
			}))
			if len(changes.NewlyAdded) > 0 {
				_, _ = fmt.Fprintln(out, trans.GetMessage("update_team_new_members", 0, map[string]interface{}{
					"Members": strings.Join(changes.NewlyAdded.Sorted(), ", "),
				}))
			}
			return nil
		},
	}
}
