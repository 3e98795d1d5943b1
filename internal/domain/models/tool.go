package models

// ToolResult is the outcome of an external program run in a workspace.
type ToolResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

func (r ToolResult) Success() bool {
	return r.ExitCode == 0
}
