package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bcnelson/roster-monitor/internal/domain"
)

// GroupIDPlaceholder is replaced by the group identifier in the endpoint template.
const GroupIDPlaceholder = "{id}"

// maxBodySize caps how much of a response body is read.
const maxBodySize = 16 << 20

// RosterClient retrieves the current roster of a group.
type RosterClient interface {
	FetchRoster(ctx context.Context, groupID string) (domain.Roster, error)
}

// Client fetches rosters from the remote members API over HTTP.
type Client struct {
	http      *http.Client
	endpoint  string
	userAgent string
}

// Ensure Client implements RosterClient.
var _ RosterClient = (*Client)(nil)

// New creates a new HTTP roster client.
// endpoint must contain the {id} placeholder.
func New(endpoint string, timeout time.Duration, userAgent string) (*Client, error) {
	if !strings.Contains(endpoint, GroupIDPlaceholder) {
		return nil, fmt.Errorf("endpoint %q has no %s placeholder: %w", endpoint, GroupIDPlaceholder, domain.ErrInvalidInput)
	}
	return &Client{
		http:      &http.Client{Timeout: timeout},
		endpoint:  endpoint,
		userAgent: userAgent,
	}, nil
}

// URL returns the members endpoint for a group.
func (c *Client) URL(groupID string) string {
	return strings.ReplaceAll(c.endpoint, GroupIDPlaceholder, url.PathEscape(groupID))
}

// FetchRoster gets the current roster of a group, admins first.
func (c *Client) FetchRoster(ctx context.Context, groupID string) (domain.Roster, error) {
	if groupID == "" {
		return nil, fmt.Errorf("group id is required: %w", domain.ErrInvalidInput)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(groupID), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status %s", domain.ErrTransport, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", domain.ErrTransport, err)
	}

	return DecodeRoster(body)
}
