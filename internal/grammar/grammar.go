// Package grammar recognizes admin commands in free text such as comments,
// review bodies and issue titles.
package grammar

import (
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/models"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/regex"
)

type Grammar struct {
	patterns *regex.CommandPatterns
}

// New builds a grammar for the bot handles derived from handleBase. An empty
// base selects the default handles.
func New(handleBase string) *Grammar {
	if handleBase == "" || handleBase == regex.DefaultHandleBase {
		return &Grammar{patterns: regex.Commands}
	}
	return &Grammar{patterns: regex.CompileCommandPatterns(handleBase)}
}

// Default is the grammar for the default bot handles.
var Default = New("")

// Mentioned reports whether text addresses the bot at all.
func (g *Grammar) Mentioned(text string) bool {
	return g.patterns.Prefix.MatchString(text)
}

// Match returns every command found anywhere in text. Either handle is
// accepted for every command.
func (g *Grammar) Match(text string) models.CommandSet {
	set := models.NewCommandSet()
	if text == "" {
		return set
	}
	if g.patterns.Rerender.MatchString(text) {
		set.Add(models.CommandRerender)
	}
	if g.patterns.Relint.MatchString(text) {
		set.Add(models.CommandRelint)
	}
	if g.patterns.UpdateTeam.MatchString(text) {
		set.Add(models.CommandUpdateTeam)
	}
	if g.patterns.UpdateCircle.MatchString(text) {
		set.Add(models.CommandUpdateCIKey)
	}
	return set
}

// Match uses the default grammar.
func Match(text string) models.CommandSet {
	return Default.Match(text)
}
