package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/errors"
)

type Config struct {
	GitHubToken   string `json:"github_token"`
	CircleToken   string `json:"circle_token,omitempty"`
	WebhookSecret string `json:"webhook_secret,omitempty"`

	Organization    string `json:"organization" validate:"required"`
	HandleBase      string `json:"handle_base" validate:"required"`
	StagedRepo      string `json:"staged_repo" validate:"required"`
	FeedstockSuffix string `json:"feedstock_suffix" validate:"required"`
	DefaultBranch   string `json:"default_branch" validate:"required"`

	RerenderCommand []string `json:"rerender_command" validate:"min=1,dive,required"`
	LintCommand     []string `json:"lint_command" validate:"min=1,dive,required"`
	UpdateCommand   []string `json:"update_command,omitempty"`

	ListenAddr     string   `json:"listen_addr" validate:"required"`
	Language       string   `json:"language" validate:"required"`
	TeamCacheTTL   string   `json:"team_cache_ttl"`
	TeamCacheSize  int      `json:"team_cache_size" validate:"gte=1"`
	FilterOutTeams []string `json:"filter_out_teams"`
}

const (
	defaultOrganization    = "nwb-extensions"
	defaultHandleBase      = "nwb-extensions"
	defaultStagedRepo      = "staged-extensions"
	defaultFeedstockSuffix = "-feedstock"
	defaultBranch          = "master"
	defaultListenAddr      = ":5000"
	defaultLang            = "en"
	defaultTeamCacheTTL    = "1h"
	defaultTeamCacheSize   = 64
)

var validate = validator.New()

func Default() *Config {
	return &Config{
		Organization:    defaultOrganization,
		HandleBase:      defaultHandleBase,
		StagedRepo:      defaultStagedRepo,
		FeedstockSuffix: defaultFeedstockSuffix,
		DefaultBranch:   defaultBranch,
		RerenderCommand: []string{"nwb", "extensions", "smithy", "rerender", "-c", "auto"},
		LintCommand:     []string{"nwb", "extensions", "smithy", "recipe-lint"},
		ListenAddr:      defaultListenAddr,
		Language:        defaultLang,
		TeamCacheTTL:    defaultTeamCacheTTL,
		TeamCacheSize:   defaultTeamCacheSize,
		FilterOutTeams:  []string{defaultStagedRepo},
	}
}

// LoadConfig reads the JSON file at path on top of the defaults and then
// applies environment overrides. A missing file is not an error: the service
// is usually configured through the environment alone.
func LoadConfig(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, config); err != nil {
				return nil, errors.ErrInvalidConfig.
					WithError(err).
					WithContext("path", path)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	applyEnv(config)

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

func applyEnv(config *Config) {
	if v := os.Getenv("GH_TOKEN"); v != "" {
		config.GitHubToken = v
	}
	if v := os.Getenv("CIRCLE_TOKEN"); v != "" {
		config.CircleToken = v
	}
	if v := os.Getenv("WEBHOOK_SECRET"); v != "" {
		config.WebhookSecret = v
	}
	if v := os.Getenv("PORT"); v != "" {
		config.ListenAddr = ":" + strings.TrimPrefix(v, ":")
	}
}

func validateConfig(config *Config) error {
	if err := validate.Struct(config); err != nil {
		return errors.ErrInvalidConfig.WithError(err)
	}

	if !strings.HasPrefix(config.FeedstockSuffix, "-") {
		return errors.ErrInvalidConfig.
			WithContext("feedstock_suffix", config.FeedstockSuffix).
			WithSuggestion("The feedstock suffix must start with '-'")
	}

	if _, err := config.CacheTTL(); err != nil {
		return errors.ErrInvalidConfig.WithError(err).WithContext("team_cache_ttl", config.TeamCacheTTL)
	}

	return nil
}

// CacheTTL returns the parsed team cache lifetime. An empty value disables
// expiry.
func (c *Config) CacheTTL() (time.Duration, error) {
	if c.TeamCacheTTL == "" {
		return 0, nil
	}
	return time.ParseDuration(c.TeamCacheTTL)
}

// RequireGitHubToken is checked by commands that talk to the GitHub API.
func (c *Config) RequireGitHubToken() error {
	if c.GitHubToken == "" {
		return errors.ErrTokenMissing
	}
	return nil
}

func (c *Config) RequireCircleToken() error {
	if c.CircleToken == "" {
		return errors.ErrCircleTokenMissing
	}
	return nil
}

func (c *Config) AdminHandle() string {
	return c.HandleBase + "-admin"
}

func (c *Config) LinterHandle() string {
	return c.HandleBase + "-linter"
}
