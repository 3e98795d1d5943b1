package models

import "sort"

// Command is a maintenance action the bot can be asked to perform.
type Command string

const (
	CommandRerender    Command = "rerender"
	CommandRelint      Command = "relint"
	CommandUpdateTeam  Command = "update-team"
	CommandUpdateCIKey Command = "update-ci-key"
)

// Mutating reports whether the command may produce a commit that has to be
// pushed.
func (c Command) Mutating() bool {
	return c == CommandRerender
}

// ChangeDescription is the verb phrase used in feedback ("I tried to
// re-render for you").
func (c Command) ChangeDescription() string {
	switch c {
	case CommandRerender:
		return "re-render"
	case CommandRelint:
		return "re-lint"
	case CommandUpdateTeam:
		return "update the team"
	case CommandUpdateCIKey:
		return "update the circle-ci key"
	default:
		return string(c)
	}
}

// CommandSet is an unordered collection of commands found in a piece of text.
type CommandSet map[Command]struct{}

func NewCommandSet(commands ...Command) CommandSet {
	s := make(CommandSet, len(commands))
	for _, c := range commands {
		s[c] = struct{}{}
	}
	return s
}

func (s CommandSet) Add(c Command) {
	s[c] = struct{}{}
}

func (s CommandSet) Has(c Command) bool {
	_, ok := s[c]
	return ok
}

func (s CommandSet) Empty() bool {
	return len(s) == 0
}

func (s CommandSet) Len() int {
	return len(s)
}

// Sorted returns the commands in a stable order, mainly for logs.
func (s CommandSet) Sorted() []Command {
	out := make([]Command, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
