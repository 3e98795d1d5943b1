// Package server receives GitHub webhooks and dispatches them to the
// linting, team and command services.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/nwb-extensions/nwb-extensions-webservices/internal/config"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/models"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/ports"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/logger"
)

const deliveryHeader = "X-GitHub-Delivery"

// PRLinter lints a pull request and reports the result on GitHub.
type PRLinter interface {
	LintPR(ctx context.Context, owner, repo string, number int, ignoreBase bool, opts models.CommentOptions) (*models.LintResult, error)
}

// TeamSyncer also drops cached filter-out members when a filter-out team
// changes.
type TeamSyncer interface {
	ports.TeamSyncer
	InvalidateFilterOut(org string)
}

// Updater redeploys the service.
type Updater interface {
	Enabled() bool
	Update(ctx context.Context) error
}

// Dependencies are the services behind the hooks. A nil dependency
// disables the hooks that need it.
type Dependencies struct {
	Hosting       ports.HostingClient
	Linter        PRLinter
	Teams         TeamSyncer
	PRCommands    ports.PRCommandHandler
	IssueCommands ports.IssueCommandHandler
	Updater       Updater
}

type Server struct {
	cfg    *config.Config
	deps   Dependencies
	secret []byte
	router *mux.Router

	server *http.Server
	l      net.Listener
	doneCh chan struct{}
}

// New creates a Server and attaches the following hooks, all POST:
//
//   - /nwb-extensions-linting/hook: lints opened pull requests.
//   - /nwb-extensions-teams/hook: syncs maintainer teams on pushes to the default branch
//     and refreshes the filter-out members when a filter-out team changes.
//   - /nwb-extensions-command/hook: runs admin commands from pull requests and issues.
//   - /nwb-extensions-webservice-update/hook: redeploys the service when its own CI is green.
func New(cfg *config.Config, deps Dependencies) *Server {
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		secret: []byte(cfg.WebhookSecret),
		doneCh: make(chan struct{}),
	}

	r := mux.NewRouter()
	r.Use(deliveryMiddleware)

	r.HandleFunc("/nwb-extensions-linting/hook", s.hook("linting", map[string]eventHandler{
		"pull_request": s.handleLintPullRequest,
	})).Methods(http.MethodPost)
	r.HandleFunc("/nwb-extensions-teams/hook", s.hook("teams", map[string]eventHandler{
		"push":       s.handleTeamPush,
		"membership": s.handleTeamMembership,
	})).Methods(http.MethodPost)
	r.HandleFunc("/nwb-extensions-command/hook", s.hook("command", map[string]eventHandler{
		"pull_request":                s.handleCommandPullRequest,
		"pull_request_review":         s.handleCommandPullRequest,
		"pull_request_review_comment": s.handleCommandPullRequest,
		"issue_comment":               s.handleCommandIssue,
		"issues":                      s.handleCommandIssue,
	})).Methods(http.MethodPost)
	r.HandleFunc("/nwb-extensions-webservice-update/hook", s.hook("webservice-update", map[string]eventHandler{
		"status": s.handleUpdateStatus,
		"push":   ignoreEvent,
	})).Methods(http.MethodPost)

	s.router = r
	s.server = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 30 * time.Second,
	}
	return s
}

// deliveryMiddleware tags the request logger with the GitHub delivery ID, or
// a fresh one for requests that do not carry it.
func deliveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(deliveryHeader)
		if id == "" {
			id = uuid.NewString()
		}
		ctx := logger.With(r.Context(), "delivery_id", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Listen binds the configured address. It is separate from Serve so callers
// learn about a busy port before blocking.
func (s *Server) Listen() error {
	l, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	s.l = l
	return nil
}

// Serve blocks until the server is shut down.
func (s *Server) Serve() error {
	select {
	case <-s.doneCh:
		return fmt.Errorf("tried to reuse a stopped server")
	default:
	}
	if s.l == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	logger.Info(context.Background(), "webhook server listening", "addr", s.Addr())
	return s.server.Serve(s.l)
}

func (s *Server) Addr() string {
	if s.l == nil {
		return s.cfg.ListenAddr
	}
	return s.l.Addr().String()
}

func (s *Server) Shutdown(ctx context.Context) error {
	defer close(s.doneCh)
	return s.server.Shutdown(ctx)
}

// logRateLimit reports the GitHub API budget left after a hook ran.
func (s *Server) logRateLimit(ctx context.Context) {
	if s.deps.Hosting == nil {
		return
	}
	rl, err := s.deps.Hosting.GetRateLimit(ctx)
	if err != nil {
		logger.Warn(ctx, "could not read github rate limit", "error", err)
		return
	}
	logger.Info(ctx, "github rate limit",
		"remaining", rl.Remaining,
		"limit", rl.Limit,
		"reset_in", time.Until(rl.Reset).Round(time.Second).String(),
	)
}
