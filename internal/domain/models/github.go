package models

import "time"

type (
	PullRequest struct {
		Number    int
		State     string
		Title     string
		Body      string
		Mergeable *bool
		Head      BranchRef
		HeadSHA   string
		BaseRef   string
		HTMLURL   string
	}

	NewPullRequest struct {
		Title string
		Body  string
		Head  string
		Base  string
	}

	Issue struct {
		Number int
		Title  string
		Body   string
		State  string
		IsPR   bool
	}

	Comment struct {
		ID      int64
		Body    string
		Author  string
		HTMLURL string
	}

	Repository struct {
		Owner         string
		Name          string
		DefaultBranch string
		CloneURL      string
		Fork          bool
	}

	CommitStatus struct {
		SHA         string
		State       string
		Description string
		Context     string
		TargetURL   string
	}

	Team struct {
		ID   int64
		Slug string
		Name string
	}

	RateLimit struct {
		Limit     int
		Remaining int
		Reset     time.Time
	}
)

const (
	StateOpen   = "open"
	StateClosed = "closed"

	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusPending = "pending"
)

func (p PullRequest) IsOpen() bool {
	return p.State == StateOpen
}
