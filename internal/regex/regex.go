package regex

import (
	"fmt"
	"regexp"
)

// DefaultHandleBase is the bot account prefix; the bot answers to
// @<base>-admin and @<base>-linter.
const DefaultHandleBase = "nwb-extensions"

// Command suffixes. They are appended to the shared mention prefix.
const (
	rerenderSuffix     = `(please )?re-?render`
	relintSuffix       = `(please )?(re-?)?lint`
	updateTeamSuffix   = `(please )?(update|refresh) (the )?team`
	updateCircleSuffix = `(please )?(update|refresh) (the )?circle`
)

// CommandPatterns holds the compiled command expressions for one bot handle.
type CommandPatterns struct {
	Prefix       *regexp.Regexp
	Rerender     *regexp.Regexp
	Relint       *regexp.Regexp
	UpdateTeam   *regexp.Regexp
	UpdateCircle *regexp.Regexp
}

// MentionPrefix is the shared prefix: a mention of either handle, optionally
// followed by a comma or colon.
func MentionPrefix(handleBase string) string {
	return fmt.Sprintf(`@%s-(admin|linter)\s*[,:]?\s*`, regexp.QuoteMeta(handleBase))
}

func CompileCommandPatterns(handleBase string) *CommandPatterns {
	pre := MentionPrefix(handleBase)
	return &CommandPatterns{
		Prefix:       regexp.MustCompile(`(?i)` + pre),
		Rerender:     regexp.MustCompile(`(?i)` + pre + rerenderSuffix),
		Relint:       regexp.MustCompile(`(?i)` + pre + relintSuffix),
		UpdateTeam:   regexp.MustCompile(`(?i)` + pre + updateTeamSuffix),
		UpdateCircle: regexp.MustCompile(`(?i)` + pre + updateCircleSuffix),
	}
}

var (
	// Bot commands for the default handle
	Commands = CompileCommandPatterns(DefaultHandleBase)

	// Lint output of the recipe linter
	LintHeader  = regexp.MustCompile(`(?i)\bhas some lint:?\s*$`)
	HintHeader  = regexp.MustCompile(`(?i)\bhas some hints:?\s*$`)
	LintBullet  = regexp.MustCompile(`^\s*[*\-]\s+(.+?)\s*$`)
	SkipMarkers = regexp.MustCompile(`\[(ci skip|skip ci|lint skip|skip lint)\]`)

	// Jinja fragments stripped from recipe metadata before YAML parsing
	JinjaStatement = regexp.MustCompile(`(?m)^\s*\{%.*%\}\s*$`)
	JinjaExpr      = regexp.MustCompile(`\{\{[^}]*\}\}`)

	// Git and Repo patterns
	SSHRepo   = regexp.MustCompile(`git@([^:]+):([^/]+)/(.+)\.git$`)
	HTTPSRepo = regexp.MustCompile(`https://([^/]+)/([^/]+)/(.+?)(?:\.git)?$`)
)
