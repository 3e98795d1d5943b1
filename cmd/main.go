package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/nwb-extensions/nwb-extensions-webservices/internal/cli/command/admin"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/cli/command/lint"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/cli/command/serve"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/cli/command/team"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/cli/registry"
	cfg "github.com/nwb-extensions/nwb-extensions-webservices/internal/config"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/ports"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/i18n"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/infrastructure/di"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/logger"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/version"
	"github.com/urfave/cli/v3"
)

const configEnv = "NWB_WEBSERVICES_CONFIG"

func main() {
	app, err := initializeApp()
	if err != nil {
		log.Fatalf("error initializing the cli: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

// configPath prefers the explicit environment variable, then the user's
// config directory. An empty path runs on defaults and environment only.
func configPath() string {
	if p := os.Getenv(configEnv); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "nwb-extensions-webservices", "config.json")
}

func initializeApp() (*cli.Command, error) {
	cfgApp, err := cfg.LoadConfig(configPath())
	if err != nil {
		return nil, err
	}

	translations, err := i18n.NewTranslations(cfg.GetLocaleConfig(cfgApp.Language), "")
	if err != nil {
		return nil, fmt.Errorf("error loading translations: %w", err)
	}

	var logOpts logger.Options
	container := di.NewContainer(cfgApp, translations)

	// Global flags are parsed before any subcommand action, so the logger is
	// set up on the first service lookup.
	var once sync.Once
	setup := func() {
		once.Do(func() { logger.Initialize(logOpts) })
	}

	registerCommand := registry.NewRegistry(cfgApp, translations)

	if err := registerCommand.Register("serve", serve.NewServeCommandFactory(func() (serve.Server, error) {
		setup()
		srv, err := container.GetServer()
		if err != nil {
			return nil, err
		}
		return srv, nil
	})); err != nil {
		return nil, err
	}

	if err := registerCommand.Register("lint", lint.NewLintCommandFactory(func() (lint.Service, error) {
		setup()
		svc, err := container.GetLintingService()
		if err != nil {
			return nil, err
		}
		return svc, nil
	})); err != nil {
		return nil, err
	}

	if err := registerCommand.Register("update-team", team.NewUpdateTeamCommandFactory(func() (ports.TeamSyncer, error) {
		setup()
		svc, err := container.GetTeamService()
		if err != nil {
			return nil, err
		}
		return svc, nil
	})); err != nil {
		return nil, err
	}

	if err := registerCommand.Register("command", admin.NewCommandFactory(
		func() (ports.PRCommandHandler, error) {
			setup()
			svc, err := container.GetPRCommandService()
			if err != nil {
				return nil, err
			}
			return svc, nil
		},
		func() (ports.IssueCommandHandler, error) {
			setup()
			svc, err := container.GetIssueCommandService()
			if err != nil {
				return nil, err
			}
			return svc, nil
		},
	)); err != nil {
		return nil, err
	}

	return &cli.Command{
		Name:    "nwb-extensions-webservices",
		Usage:   translations.GetMessage("app_usage", 0, nil),
		Version: version.FullVersion(),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "debug",
				Usage:       translations.GetMessage("flag_debug_usage", 0, nil),
				Destination: &logOpts.Debug,
			},
			&cli.BoolFlag{
				Name:        "verbose",
				Usage:       translations.GetMessage("flag_verbose_usage", 0, nil),
				Destination: &logOpts.Verbose,
			},
			&cli.BoolFlag{
				Name:        "pretty",
				Usage:       translations.GetMessage("flag_pretty_usage", 0, nil),
				Destination: &logOpts.Pretty,
			},
		},
		Commands: registerCommand.CreateCommands(),
	}, nil
}
