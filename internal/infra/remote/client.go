// Package remote provides an HTTP client that downloads playlists from a
// playlist server.
package remote

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/osa030/playlistd/internal/domain/playlist"
)

// maxBodySize caps the size of a playlist response.
const maxBodySize = 8 << 20

// Client downloads playlists over HTTP.
type Client struct {
	url        string
	headers    map[string]string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Config represents remote client configuration.
type Config struct {
	URL        string
	Headers    map[string]string
	Timeout    time.Duration
	RatePerSec float64 // Maximum requests per second, 0 disables limiting

	// Optional OAuth2 client credentials
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// New creates a new remote playlist client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("playlist URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.TokenURL != "" {
		if cfg.ClientID == "" || cfg.ClientSecret == "" {
			return nil, errors.New("client id and secret are required when token url is set")
		}
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		httpClient = cc.Client(ctx)
		httpClient.Timeout = cfg.Timeout
	}

	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}

	return &Client{
		url:        cfg.URL,
		headers:    cfg.Headers,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, 1),
	}, nil
}

// Fetch downloads the current playlist.
// It returns a nil Blob when the server has no playlist for us (204 or an
// empty body) and an empty Blob when the server sent "{}".
func (c *Client) Fetch(ctx context.Context) (playlist.Blob, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limiter wait failed")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to request playlist")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		zlog.Debug().Msg("playlist server returned no content")
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("playlist server returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}
	if len(body) > maxBodySize {
		return nil, errors.Newf("playlist response exceeds %d bytes", maxBodySize)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	blob, err := playlist.Decode(body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode playlist response")
	}
	if blob == nil {
		// "null"
		return nil, nil
	}
	return blob, nil
}
