package di

import (
	"context"
	"time"

	"github.com/nwb-extensions/nwb-extensions-webservices/internal/config"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/models"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/ports"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/i18n"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/infrastructure/cache"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/infrastructure/circleci"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/infrastructure/git"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/infrastructure/httpclient"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/infrastructure/update"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/infrastructure/vcs/github"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/server"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/services"
)

const circleTimeout = 30 * time.Second

// Container wires the application. Services are created on first use so
// commands that do not need GitHub run without a token.
type Container struct {
	config       *config.Config
	translations *i18n.Translations

	hosting    ports.HostingClient
	workspaces ports.WorkspaceProvider
	ciKeys     ports.CIKeyRefresher

	linting *services.LintingService
	teams   *services.TeamService
	actions *services.WorkflowActions
	prs     *services.PRCommandService
	issues  *services.IssueCommandService
}

func NewContainer(cfg *config.Config, trans *i18n.Translations) *Container {
	return &Container{
		config:       cfg,
		translations: trans,
	}
}

// SetHostingClient replaces the GitHub client, mainly for tests.
func (c *Container) SetHostingClient(hosting ports.HostingClient) {
	c.hosting = hosting
}

func (c *Container) SetWorkspaceProvider(workspaces ports.WorkspaceProvider) {
	c.workspaces = workspaces
}

func (c *Container) SetCIKeyRefresher(ci ports.CIKeyRefresher) {
	c.ciKeys = ci
}

func (c *Container) Config() *config.Config {
	return c.config
}

func (c *Container) Translations() *i18n.Translations {
	return c.translations
}

func (c *Container) GetHostingClient() (ports.HostingClient, error) {
	if c.hosting != nil {
		return c.hosting, nil
	}
	if err := c.config.RequireGitHubToken(); err != nil {
		return nil, err
	}
	c.hosting = github.NewGitHubClient(c.config.GitHubToken)
	return c.hosting, nil
}

func (c *Container) GetWorkspaceProvider() ports.WorkspaceProvider {
	if c.workspaces == nil {
		c.workspaces = git.NewCloner(c.config.GitHubToken)
	}
	return c.workspaces
}

// GetCIKeyRefresher never fails: without a CircleCI token the refresher
// reports the missing token when a key refresh is requested.
func (c *Container) GetCIKeyRefresher() ports.CIKeyRefresher {
	if c.ciKeys != nil {
		return c.ciKeys
	}
	if err := c.config.RequireCircleToken(); err != nil {
		c.ciKeys = missingCircleToken{err: err}
		return c.ciKeys
	}
	c.ciKeys = circleci.NewClient(c.config.CircleToken, circleci.WithHTTPClient(httpclient.New(circleTimeout)))
	return c.ciKeys
}

type missingCircleToken struct {
	err error
}

func (m missingCircleToken) UpdateCircle(context.Context, string, string) error {
	return m.err
}

func (c *Container) GetLintingService() (*services.LintingService, error) {
	if c.linting != nil {
		return c.linting, nil
	}
	hosting, err := c.GetHostingClient()
	if err != nil {
		return nil, err
	}
	c.linting = services.NewLintingService(hosting, c.GetWorkspaceProvider(), c.translations, c.config)
	return c.linting, nil
}

func (c *Container) GetTeamService() (*services.TeamService, error) {
	if c.teams != nil {
		return c.teams, nil
	}
	hosting, err := c.GetHostingClient()
	if err != nil {
		return nil, err
	}
	ttl, err := c.config.CacheTTL()
	if err != nil {
		return nil, err
	}
	filterOut, err := cache.NewCache[models.MemberSet](c.config.TeamCacheSize, ttl)
	if err != nil {
		return nil, err
	}
	c.teams = services.NewTeamService(hosting, c.GetWorkspaceProvider(), c.translations, c.config, filterOut)
	return c.teams, nil
}

func (c *Container) GetWorkflowActions() (*services.WorkflowActions, error) {
	if c.actions != nil {
		return c.actions, nil
	}
	linting, err := c.GetLintingService()
	if err != nil {
		return nil, err
	}
	teams, err := c.GetTeamService()
	if err != nil {
		return nil, err
	}
	c.actions = services.NewWorkflowActions(linting, teams, c.GetCIKeyRefresher(), c.config)
	return c.actions, nil
}

func (c *Container) GetPRCommandService() (*services.PRCommandService, error) {
	if c.prs != nil {
		return c.prs, nil
	}
	actions, err := c.GetWorkflowActions()
	if err != nil {
		return nil, err
	}
	c.prs = services.NewPRCommandService(c.hosting, c.GetWorkspaceProvider(), actions,
		services.NewFeedbackComposer(c.translations, c.config), c.config)
	return c.prs, nil
}

func (c *Container) GetIssueCommandService() (*services.IssueCommandService, error) {
	if c.issues != nil {
		return c.issues, nil
	}
	actions, err := c.GetWorkflowActions()
	if err != nil {
		return nil, err
	}
	c.issues = services.NewIssueCommandService(c.hosting, c.GetWorkspaceProvider(), actions,
		services.NewFeedbackComposer(c.translations, c.config), c.config)
	return c.issues, nil
}

// GetServer builds the webhook server with every hook enabled.
func (c *Container) GetServer() (*server.Server, error) {
	linting, err := c.GetLintingService()
	if err != nil {
		return nil, err
	}
	teams, err := c.GetTeamService()
	if err != nil {
		return nil, err
	}
	prs, err := c.GetPRCommandService()
	if err != nil {
		return nil, err
	}
	issues, err := c.GetIssueCommandService()
	if err != nil {
		return nil, err
	}

	return server.New(c.config, server.Dependencies{
		Hosting:       c.hosting,
		Linter:        linting,
		Teams:         teams,
		PRCommands:    prs,
		IssueCommands: issues,
		Updater:       update.NewUpdateService(c.config.UpdateCommand),
	}), nil
}
