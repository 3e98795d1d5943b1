package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nwb-extensions/nwb-extensions-webservices/internal/config"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/i18n"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/logger"
	"github.com/urfave/cli/v3"
)

const defaultShutdownTimeout = 10 * time.Second

// Server is the part of the webhook server the command drives.
type Server interface {
	Listen() error
	Serve() error
	Addr() string
	Shutdown(ctx context.Context) error
}

type ServerProvider func() (Server, error)

type ServeCommandFactory struct {
	provide         ServerProvider
	shutdownTimeout time.Duration
}

func NewServeCommandFactory(provide ServerProvider) *ServeCommandFactory {
	return &ServeCommandFactory{
		provide:         provide,
		shutdownTimeout: defaultShutdownTimeout,
	}
}

func (f *ServeCommandFactory) CreateCommand(trans *i18n.Translations, _ *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: trans.GetMessage("serve_usage", 0, nil),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			srv, err := f.provide()
			if err != nil {
				return err
			}
			if err := srv.Listen(); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.Root().Writer, trans.GetMessage("serve_listening", 0, map[string]interface{}{
				"Addr": srv.Addr(),
			}))

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Serve()
			}()

			select {
			case err := <-errCh:
				return ignoreClosed(err)
			case <-ctx.Done():
			}

			logger.Info(ctx, "shutting down webhook server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), f.shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			return ignoreClosed(<-errCh)
		},
	}
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
