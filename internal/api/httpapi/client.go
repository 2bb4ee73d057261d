package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
)

// Client calls the control API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for the API at baseURL. token is sent on admin calls.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

// Status returns the daemon status.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var status StatusResponse
	if _, err := c.do(ctx, http.MethodGet, "/status", false, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Playlist returns the cached playlist as raw JSON, or nil when none is cached.
func (c *Client) Playlist(ctx context.Context) (json.RawMessage, error) {
	var body json.RawMessage
	found, err := c.do(ctx, http.MethodGet, "/playlist", false, &body)
	if err != nil || !found {
		return nil, err
	}
	return body, nil
}

// Foreground moves the daemon to the foreground.
func (c *Client) Foreground(ctx context.Context) (*MessageResponse, error) {
	return c.message(ctx, "/lifecycle/foreground", false)
}

// Background moves the daemon to the background.
func (c *Client) Background(ctx context.Context) (*MessageResponse, error) {
	return c.message(ctx, "/lifecycle/background", false)
}

// Disable turns the playlist feature off.
func (c *Client) Disable(ctx context.Context) (*MessageResponse, error) {
	return c.message(ctx, "/admin/disable", true)
}

// Enable turns the playlist feature back on.
func (c *Client) Enable(ctx context.Context) (*MessageResponse, error) {
	return c.message(ctx, "/admin/enable", true)
}

func (c *Client) message(ctx context.Context, path string, admin bool) (*MessageResponse, error) {
	var msg MessageResponse
	if _, err := c.do(ctx, http.MethodPost, path, admin, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// do performs the request and decodes the JSON body into out. It reports
// false when the server answered with no content.
func (c *Client) do(ctx context.Context, method, path string, admin bool, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return false, errors.Wrap(err, "failed to create request")
	}
	if admin {
		req.Header.Set(AdminTokenHeader, c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, errors.Wrapf(err, "%s %s failed", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		var msg MessageResponse
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(body, &msg) == nil && msg.Message != "" {
			return false, errors.Newf("%s %s: %s (status %d)", method, path, msg.Message, resp.StatusCode)
		}
		return false, errors.Newf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, errors.Wrap(err, "failed to decode response")
	}
	return true, nil
}
