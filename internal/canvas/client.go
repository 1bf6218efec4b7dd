// Package canvas is a thin client for the Canvas LMS REST API. It
// handles bearer auth and Link-header pagination; retry policy belongs
// to the caller.
package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"cnsync/internal/apierr"
)

// DefaultTimeout bounds every HTTP call made by the client.
const DefaultTimeout = 30 * time.Second

// Client is an authenticated Canvas API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Canvas client for the given instance base URL (e.g.
// "https://school.instructure.com") and access token.
func New(ctx context.Context, baseURL, token string) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	hc := oauth2.NewClient(ctx, ts)
	hc.Timeout = DefaultTimeout
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: hc,
	}
}

// ListCourses fetches the user's active courses, following pagination
// until exhausted.
func (c *Client) ListCourses(ctx context.Context) ([]Course, error) {
	endpoint := fmt.Sprintf("%s/api/v1/courses?%s", c.baseURL, url.Values{
		"enrollment_state": {"active"},
		"per_page":         {"100"},
	}.Encode())

	var all []Course
	for endpoint != "" {
		var page []Course
		next, err := c.getPage(ctx, endpoint, &page)
		if err != nil {
			return nil, fmt.Errorf("listing courses: %w", err)
		}
		all = append(all, page...)
		endpoint = next
	}
	return all, nil
}

// ListAssignments fetches every assignment of a course, following
// pagination until exhausted.
func (c *Client) ListAssignments(ctx context.Context, courseID int64) ([]Assignment, error) {
	endpoint := fmt.Sprintf("%s/api/v1/courses/%d/assignments?%s", c.baseURL, courseID, url.Values{
		"per_page": {"100"},
	}.Encode())

	var all []Assignment
	for endpoint != "" {
		var page []Assignment
		next, err := c.getPage(ctx, endpoint, &page)
		if err != nil {
			return nil, fmt.Errorf("listing assignments for course %d: %w", courseID, err)
		}
		all = append(all, page...)
		endpoint = next
	}
	return all, nil
}

// getPage performs one GET, decodes the JSON body into out, and returns
// the rel="next" pagination link, or "" when this was the last page.
func (c *Client) getPage(ctx context.Context, endpoint string, out any) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apierr.WrapTransport(err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return "", apierr.WrapTransport(err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", apierr.FromResponse(resp, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return "", fmt.Errorf("decoding canvas response: %w", err)
	}
	return nextLink(resp.Header.Get("Link")), nil
}

// nextLink extracts the rel="next" URL from an RFC 5988 Link header.
// Canvas sends: <https://...?page=2>; rel="next", <...>; rel="last"
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		sections := strings.Split(part, ";")
		if len(sections) < 2 {
			continue
		}
		target := strings.Trim(strings.TrimSpace(sections[0]), "<>")
		for _, param := range sections[1:] {
			if strings.TrimSpace(param) == `rel="next"` {
				return target
			}
		}
	}
	return ""
}
