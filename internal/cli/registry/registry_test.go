package registry

import (
	"testing"

	"github.com/nwb-extensions/nwb-extensions-webservices/internal/config"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/i18n"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

type mockCommandFactory struct {
	name string
}

func (m *mockCommandFactory) CreateCommand(t *i18n.Translations, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name: m.name,
	}
}

func newTestRegistry(t *testing.T) (*Registry, *config.Config, *i18n.Translations) {
	t.Helper()
	cfg := config.Default()
	translations, err := i18n.NewTranslations("en", "")
	require.NoError(t, err)
	return NewRegistry(cfg, translations), cfg, translations
}

func TestRegistry_Register(t *testing.T) {
	t.Run("should register new factory successfully", func(t *testing.T) {
		registry, _, _ := newTestRegistry(t)
		factory := &mockCommandFactory{name: "lint"}

		// act
		err := registry.Register("lint", factory)

		// assert
		assert.NoError(t, err)
		assert.Len(t, registry.factories, 1)
		assert.Contains(t, registry.factories, "lint")
	})

	t.Run("should return error when registering duplicate factory", func(t *testing.T) {
		// arrange
		registry, _, _ := newTestRegistry(t)
		factory := &mockCommandFactory{name: "lint"}

		// act
		_ = registry.Register("lint", factory)
		err := registry.Register("lint", factory)

		// assert
		assert.EqualError(t, err, "command factory lint is already registered")
		assert.Len(t, registry.factories, 1)
	})
}

func TestRegistry_CreateCommands(t *testing.T) {
	t.Run("should create commands sorted by name", func(t *testing.T) {
		// Arrange
		registry, _, _ := newTestRegistry(t)
		_ = registry.Register("serve", &mockCommandFactory{name: "serve"})
		_ = registry.Register("command", &mockCommandFactory{name: "command"})
		_ = registry.Register("lint", &mockCommandFactory{name: "lint"})

		// Act
		commands := registry.CreateCommands()

		// Assert
		require.Len(t, commands, 3)
		assert.Equal(t, "command", commands[0].Name)
		assert.Equal(t, "lint", commands[1].Name)
		assert.Equal(t, "serve", commands[2].Name)
	})

	t.Run("should return empty slice when no factories registered", func(t *testing.T) {
		// Arrange
		registry, _, _ := newTestRegistry(t)

		// Act
		commands := registry.CreateCommands()

		// Assert
		assert.Empty(t, commands)
	})
}

func TestNewRegistry(t *testing.T) {
	t.Run("should create new registry with empty factories", func(t *testing.T) {
		// Act
		registry, cfg, translations := newTestRegistry(t)

		// Assert
		assert.NotNil(t, registry)
		assert.Empty(t, registry.factories)
		assert.Equal(t, cfg, registry.config)
		assert.Equal(t, translations, registry.t)
	})
}
