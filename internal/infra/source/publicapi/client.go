// Package publicapi implements the unauthenticated public endpoint source.
package publicapi

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"profile-service/internal/domain"
	"profile-service/internal/infra/source"
)

// Name is the source identifier used in sources.order.
const Name = "public"

// Placeholder is replaced by the escaped handle in endpoint templates.
const Placeholder = "{handle}"

const appIDHeader = "X-IG-App-ID"

// Config holds the public endpoint source configuration.
type Config struct {
	Client    source.ClientConfig
	Endpoints []string
	AppID     string
}

// Client implements domain.Source by trying known public URLs in order.
type Client struct {
	endpoints []string
	client    *resty.Client
	cb        *gobreaker.CircuitBreaker[domain.RawPayload]
	logger    *zap.Logger
}

// New creates a new public endpoint client.
func New(cfg Config, logger *zap.Logger) *Client {
	client := source.NewRestyClient(cfg.Client).
		SetHeader("Accept", "application/json").
		SetHeader("X-Requested-With", "XMLHttpRequest")
	if cfg.AppID != "" {
		client.SetHeader(appIDHeader, cfg.AppID)
	}

	return &Client{
		endpoints: cfg.Endpoints,
		client:    client,
		cb:        source.NewCircuitBreaker[domain.RawPayload](Name, cfg.Client.CB, logger),
		logger:    logger,
	}
}

// Name returns the source identifier.
func (c *Client) Name() string {
	return Name
}

// Fetch returns the first endpoint answer that is HTTP 200 with a JSON object.
// When every endpoint refuses, the source reports forbidden ("blocked").
func (c *Client) Fetch(ctx context.Context, handle string) (domain.RawPayload, error) {
	raw, err := c.cb.Execute(func() (domain.RawPayload, error) {
		return c.sweep(ctx, handle)
	})
	if err != nil {
		err = source.TransportError(Name, err)
		c.logger.Warn("public endpoint fetch failed",
			zap.String("handle", handle),
			zap.Error(err),
			zap.String("state", c.cb.State().String()),
		)

		return nil, err
	}

	return raw, nil
}

func (c *Client) sweep(ctx context.Context, handle string) (domain.RawPayload, error) {
	for _, tmpl := range c.endpoints {
		path := Expand(tmpl, handle)

		resp, err := c.client.R().
			SetContext(ctx).
			Get(path)
		if err != nil {
			if ctx.Err() != nil {
				return nil, source.TransportError(Name, err)
			}
			c.logger.Debug("public endpoint unreachable",
				zap.String("path", path),
				zap.Error(err),
			)

			continue
		}
		if resp.StatusCode() != http.StatusOK {
			c.logger.Debug("public endpoint refused",
				zap.String("path", path),
				zap.Int("status", resp.StatusCode()),
			)

			continue
		}

		raw, err := source.DecodeObject(Name, resp.Body())
		if err != nil {
			c.logger.Debug("public endpoint returned non-JSON",
				zap.String("path", path),
			)

			continue
		}

		return raw, nil
	}

	return nil, domain.NewSourceError(Name, domain.KindForbidden, "blocked: no public endpoint answered")
}

// Expand substitutes the escaped handle into an endpoint template.
func Expand(tmpl, handle string) string {
	return strings.ReplaceAll(tmpl, Placeholder, url.PathEscape(handle))
}
