// Package paidapi implements the paid lookup API sources.
// Both configured vendors share this client and differ only in configuration.
package paidapi

import (
	"context"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"profile-service/internal/domain"
	"profile-service/internal/infra/source"
)

// Source names used in sources.order.
const (
	PrimaryName   = "paid_primary"
	SecondaryName = "paid_secondary"
)

// DefaultAPIKeyHeader is sent when no key header is configured.
const DefaultAPIKeyHeader = "X-RapidAPI-Key"

// DefaultQueryParam carries the handle when no parameter name is configured.
const DefaultQueryParam = "username"

// hostHeader names the vendor host for marketplace-routed APIs.
const hostHeader = "X-RapidAPI-Host"

// Config holds a paid API source's configuration.
type Config struct {
	Name         string
	Client       source.ClientConfig
	Endpoint     string
	APIKey       string
	APIKeyHeader string
	HostHeader   string
	QueryParam   string
}

// Client implements domain.Source for a paid lookup API.
type Client struct {
	cfg    Config
	client *resty.Client
	cb     *gobreaker.CircuitBreaker[*resty.Response]
	logger *zap.Logger
}

// New creates a new paid API client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.APIKeyHeader == "" {
		cfg.APIKeyHeader = DefaultAPIKeyHeader
	}
	if cfg.QueryParam == "" {
		cfg.QueryParam = DefaultQueryParam
	}

	client := source.NewRestyClient(cfg.Client).
		SetHeader("Accept", "application/json")
	if cfg.HostHeader != "" {
		client.SetHeader(hostHeader, cfg.HostHeader)
	}

	return &Client{
		cfg:    cfg,
		client: client,
		cb:     source.NewCircuitBreaker[*resty.Response](cfg.Name, cfg.Client.CB, logger),
		logger: logger,
	}
}

// Name returns the source identifier.
func (c *Client) Name() string {
	return c.cfg.Name
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != ""
}

// Fetch issues one lookup for handle.
func (c *Client) Fetch(ctx context.Context, handle string) (domain.RawPayload, error) {
	if !c.Configured() {
		return nil, domain.NewSourceError(c.cfg.Name, domain.KindMissingCredentials, "no API key configured")
	}

	resp, err := source.Execute(c.cfg.Name, c.cb, func() (*resty.Response, error) {
		return c.client.R().
			SetContext(ctx).
			SetHeader(c.cfg.APIKeyHeader, c.cfg.APIKey).
			SetQueryParam(c.cfg.QueryParam, handle).
			Get(c.cfg.Endpoint)
	})
	if err != nil {
		c.logger.Warn("paid api fetch failed",
			zap.String("source", c.cfg.Name),
			zap.String("handle", handle),
			zap.Error(err),
			zap.String("state", c.cb.State().String()),
		)

		return nil, err
	}

	raw, err := source.DecodeObject(c.cfg.Name, resp.Body())
	if err != nil {
		return nil, err
	}

	c.logger.Debug("paid api fetch completed",
		zap.String("source", c.cfg.Name),
		zap.String("handle", handle),
		zap.Int("bytes", len(resp.Body())),
	)

	return raw, nil
}
