// Package backend is the HTTP client for the extraction/summarization service.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// NoContent is returned in place of an empty or missing summary.
const NoContent = "No content found."

// Action selects what the service does with the page.
type Action string

const (
	// ActionNone is the base call: no action query parameter is sent.
	ActionNone      Action = ""
	ActionRead      Action = "read"
	ActionSummarize Action = "summarize"
)

// ParseAction converts a user-supplied action name.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionNone, ActionRead, ActionSummarize:
		return a, nil
	default:
		return "", fmt.Errorf("unknown action %q (want read or summarize)", s)
	}
}

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("request failed with status code %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("request failed with status code %d", e.StatusCode)
}

// Client posts URLs to the service.
type Client struct {
	endpoint   *url.URL
	httpClient *http.Client
	log        logrus.FieldLogger
}

// request is the JSON body sent to the service.
type request struct {
	URL string `json:"url"`
}

// response is the JSON body returned by the service. Detail is set by the
// service on errors.
type response struct {
	Summary *string `json:"summary"`
	Detail  any     `json:"detail"`
}

// NewClient creates a client for endpoint. A zero timeout means requests
// never time out.
func NewClient(endpoint string, timeout time.Duration, log logrus.FieldLogger) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return nil, fmt.Errorf("parsing endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("endpoint must be an http(s) URL: %q", endpoint)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Client{
		endpoint: u,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}, nil
}

// Endpoint returns the service URL.
func (c *Client) Endpoint() string {
	return c.endpoint.String()
}

// Process sends pageURL to the service and returns the extracted text.
func (c *Client) Process(ctx context.Context, pageURL string, action Action) (string, error) {
	body, err := json.Marshal(request{URL: pageURL})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	target := c.requestURL(action)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	log := c.log.WithFields(logrus.Fields{"url": pageURL, "action": string(action)})
	log.Debug("posting to backend")
	start := time.Now()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.WithError(err).Warn("backend request failed")
		return "", fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	log = log.WithFields(logrus.Fields{"status": resp.StatusCode, "elapsed": time.Since(start)})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		var apiResp response
		if json.Unmarshal(respBody, &apiResp) == nil {
			statusErr.Detail = detailString(apiResp.Detail)
		}
		log.WithError(statusErr).Warn("backend returned an error status")
		return "", statusErr
	}

	var apiResp response
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshaling response: %w", err)
	}

	log.Debug("backend responded")

	if apiResp.Summary == nil || *apiResp.Summary == "" {
		return NoContent, nil
	}
	return *apiResp.Summary, nil
}

// requestURL builds the endpoint URL, adding ?action= unless this is the
// base call.
func (c *Client) requestURL(action Action) string {
	u := *c.endpoint
	if action != ActionNone {
		q := u.Query()
		q.Set("action", string(action))
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// detailString flattens a FastAPI "detail" value, which is either a string
// or a list of validation errors.
func detailString(detail any) string {
	switch d := detail.(type) {
	case nil:
		return ""
	case string:
		return d
	default:
		out, err := json.Marshal(d)
		if err != nil {
			return ""
		}
		return string(out)
	}
}
