// Package directory implements the node directory client. The directory
// service indexes the federated network and answers filtered listing queries;
// its failure is the only condition that aborts a crawl run.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Config controls the directory client.
type Config struct {
	APIURL         string
	APIKey         string
	Count          int
	MinActiveUsers int
	MinVersion     string
	Timeout        time.Duration
}

// Client queries an instances.social-style listing API.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// New builds a Client. The http.Client is owned by the Client and carries the
// configured timeout.
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type listResponse struct {
	Instances []struct {
		Name string `json:"name"`
	} `json:"instances"`
}

// ListNodes fetches the node population matching the configured filters.
// The returned slice is treated as a static, read-only list for the whole run.
func (c *Client) ListNodes(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build directory request: %w", err)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	req.URL.RawQuery = c.queryParams().Encode()

	c.logger.Info("fetching node population",
		zap.Int("min_active_users", c.cfg.MinActiveUsers),
		zap.String("min_version", c.cfg.MinVersion),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only response

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory returned status %d", resp.StatusCode)
	}

	var payload listResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode directory response: %w", err)
	}

	nodes := make([]string, 0, len(payload.Instances))
	for _, inst := range payload.Instances {
		if inst.Name == "" {
			continue
		}
		nodes = append(nodes, inst.Name)
	}
	c.logger.Info("node population fetched", zap.Int("nodes", len(nodes)))
	return nodes, nil
}

func (c *Client) queryParams() url.Values {
	params := url.Values{}
	// count=0 asks the API for the full population rather than a page.
	params.Set("count", strconv.Itoa(c.cfg.Count))
	if c.cfg.MinActiveUsers > 0 {
		params.Set("min_active_users", strconv.Itoa(c.cfg.MinActiveUsers))
	}
	if c.cfg.MinVersion != "" {
		params.Set("min_version", c.cfg.MinVersion)
	}
	return params
}
