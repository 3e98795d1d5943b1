package update

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/errors"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/logger"
)

// Service redeploys the webservice by running a configured command once
// the webservices repository is green.
type Service struct {
	command []string
	run     func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func NewUpdateService(command []string) *Service {
	return &Service{
		command: command,
		run:     runCommand,
	}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

// Enabled reports whether an update command is configured.
func (s *Service) Enabled() bool {
	return len(s.command) > 0
}

func (s *Service) Update(ctx context.Context) error {
	if !s.Enabled() {
		logger.Debug(ctx, "no update command configured")
		return nil
	}

	logger.Info(ctx, "updating webservice", "command", s.command)
	out, err := s.run(ctx, s.command[0], s.command[1:]...)
	if err != nil {
		return errors.ErrRunTool.
			WithError(err).
			WithContext("command", s.command).
			WithContext("stderr", string(out))
	}
	logger.Debug(ctx, "webservice updated", "output", string(out))
	return nil
}
