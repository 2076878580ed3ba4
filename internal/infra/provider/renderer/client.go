// Package renderer implements a headless-browser rendering client (browserless-compatible).
package renderer

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"audio-trends-service/internal/infra/provider"
)

// Endpoint is the rendering service's content path.
const Endpoint = "/content"

// Config holds renderer settings.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

type contentRequest struct {
	URL         string       `json:"url"`
	GotoOptions *gotoOptions `json:"gotoOptions,omitempty"`
}

type gotoOptions struct {
	WaitUntil string `json:"waitUntil"`
}

// Client fetches fully rendered HTML for a page.
type Client struct {
	client *resty.Client
	token  string
	logger *zap.Logger
}

// New creates a new renderer client.
func New(cfg Config, logger *zap.Logger) *Client {
	return &Client{
		client: provider.NewRestyClient(provider.ClientConfig{
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
		}),
		token:  cfg.Token,
		logger: logger,
	}
}

// Render returns the HTML of pageURL after it finished loading.
func (c *Client) Render(ctx context.Context, pageURL string) (string, error) {
	req := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "text/html").
		SetBody(contentRequest{
			URL:         pageURL,
			GotoOptions: &gotoOptions{WaitUntil: "networkidle2"},
		})

	if c.token != "" {
		req.SetQueryParam("token", c.token)
	}

	resp, err := req.Post(Endpoint)
	if err != nil {
		return "", fmt.Errorf("renderer request: %w", err)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("renderer returned status %d", resp.StatusCode())
	}

	c.logger.Debug("page rendered",
		zap.String("url", pageURL),
		zap.Int("bytes", len(resp.Body())),
	)

	return resp.String(), nil
}
