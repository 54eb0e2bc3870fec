package services

import (
	"io"
	"net/http"
	"strings"
)

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// MaxErrorBody caps how much of a failed response body is kept for errors.
const MaxErrorBody = 4096

// ReadErrorBody returns up to MaxErrorBody bytes of resp.Body, trimmed.
func ReadErrorBody(resp *http.Response) string {
	if resp == nil || resp.Body == nil {
		return ""
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, MaxErrorBody))
	return strings.TrimSpace(string(data))
}
