package httpclient

import (
	"net/http"
	"time"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// New returns the client used for plain REST calls that go-github does not
// cover.
func New(timeout time.Duration) HTTPClient {
	return &http.Client{Timeout: timeout}
}
