// Package arguments parses the positional arguments shared by the commands.
package arguments

import (
	"errors"
	"strconv"
	"strings"

	"github.com/nwb-extensions/nwb-extensions-webservices/internal/i18n"
	"github.com/urfave/cli/v3"
)

// Require fails with the command's usage line when fewer than n positional
// arguments were given.
func Require(t *i18n.Translations, cmd *cli.Command, n int) error {
	if cmd.Args().Len() < n {
		return errors.New(t.GetMessage("error_missing_arguments", 0, map[string]interface{}{
			"Usage": cmd.Name + " " + cmd.ArgsUsage,
		}))
	}
	return nil
}

// Repo splits an owner/name pair.
func Repo(t *i18n.Translations, value string) (string, string, error) {
	owner, name, ok := strings.Cut(value, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", errors.New(t.GetMessage("error_invalid_repo", 0, map[string]interface{}{
			"Repo": value,
		}))
	}
	return owner, name, nil
}

// Number parses a positive pull request or issue number.
func Number(t *i18n.Translations, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, errors.New(t.GetMessage("error_invalid_number", 0, map[string]interface{}{
			"Value": value,
		}))
	}
	return n, nil
}
