// Package platform implements the delivery targets a notification can be sent to.
//
// Every platform exposes the same single capability: send a message, optionally
// with the path of a snapshot image. Network platforms perform exactly one
// request per call and report any non-success status as an error.
package platform

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Platform delivers a notification message. imagePath is empty when there is no snapshot.
type Platform interface {
	Name() string
	Send(ctx context.Context, message, imagePath string) error
}

// maxErrorBody bounds how much of a failed response ends up in the error.
const maxErrorBody = 512

// StatusError reports a response with an unexpected status code.
type StatusError struct {
	Platform   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s API error: status %d", e.Platform, e.StatusCode)
	}
	return fmt.Sprintf("%s API error: status %d: %s", e.Platform, e.StatusCode, e.Body)
}

// checkResponse drains resp and returns a StatusError unless its status is accepted.
func checkResponse(name string, resp *http.Response, accepted ...int) error {
	defer resp.Body.Close()

	for _, code := range accepted {
		if resp.StatusCode == code {
			io.Copy(io.Discard, resp.Body)
			return nil
		}
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Platform: name, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

// defaultClient is used when no client is configured. Timeouts come from the
// dispatcher's per-send context.
var defaultClient = &http.Client{}

func clientOrDefault(c *http.Client) *http.Client {
	if c == nil {
		return defaultClient
	}
	return c
}
