package models

type (
	// WorkflowOutcome is the result of running a single command.
	WorkflowOutcome struct {
		Command Command
		Changed bool
		Err     error
	}

	// FeedbackMessage is what the bot posts back for an event.
	FeedbackMessage struct {
		Body             string
		ShouldCloseIssue bool
		ShouldOpenPR     bool
	}
)

func (o WorkflowOutcome) Failed() bool {
	return o.Err != nil
}

func (f FeedbackMessage) Empty() bool {
	return f.Body == ""
}
