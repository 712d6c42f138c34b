// Package registry builds the ordered list of profile sources from configuration.
package registry

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"profile-service/internal/config"
	"profile-service/internal/domain"
	"profile-service/internal/infra/source"
	"profile-service/internal/infra/source/mock"
	"profile-service/internal/infra/source/paidapi"
	"profile-service/internal/infra/source/publicapi"
	"profile-service/internal/infra/source/scraper"
)

// NewSources creates the sources named in cfg.Order, in that order.
// Unknown or repeated names are a configuration error; the mock source is
// skipped when disabled.
func NewSources(cfg config.SourcesConfig, logger *zap.Logger) ([]domain.Source, error) {
	sources := make([]domain.Source, 0, len(cfg.Order))
	seen := make(map[string]struct{}, len(cfg.Order))

	for _, name := range cfg.Order {
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("source %q listed twice in sources.order", name)
		}
		seen[name] = struct{}{}

		switch name {
		case scraper.Name:
			sources = append(sources, scraper.New(scraper.Config{
				Client: source.ClientConfig{
					BaseURL: cfg.Scraper.BaseURL,
					Timeout: cfg.Scraper.Timeout,
				},
				PostLimit: cfg.Scraper.PostLimit,
				PostDelay: cfg.Scraper.PostDelay,
			}, logger))
		case paidapi.PrimaryName:
			sources = append(sources, paidapi.New(paidConfig(name, cfg.Paid.Primary), logger))
		case paidapi.SecondaryName:
			sources = append(sources, paidapi.New(paidConfig(name, cfg.Paid.Secondary), logger))
		case publicapi.Name:
			sources = append(sources, publicapi.New(publicapi.Config{
				Client: source.ClientConfig{
					BaseURL: cfg.Public.BaseURL,
					Timeout: cfg.Public.Timeout,
					CB:      cbConfig(cfg.Public.CB),
				},
				Endpoints: cfg.Public.Endpoints,
				AppID:     cfg.Public.AppID,
			}, logger))
		case mock.Name:
			if !cfg.Mock.Enabled {
				logger.Info("mock source disabled, skipping")

				continue
			}
			sources = append(sources, mock.New(logger))
		default:
			return nil, fmt.Errorf("unknown source %q in sources.order", name)
		}
	}

	if len(sources) == 0 {
		return nil, errors.New("no sources enabled")
	}

	return sources, nil
}

func paidConfig(name string, e config.PaidEndpoint) paidapi.Config {
	return paidapi.Config{
		Name: name,
		Client: source.ClientConfig{
			BaseURL: e.BaseURL,
			Timeout: e.Timeout,
			CB:      cbConfig(e.CB),
		},
		Endpoint:     e.Endpoint,
		APIKey:       e.APIKey,
		APIKeyHeader: e.APIKeyHeader,
		HostHeader:   e.HostHeader,
		QueryParam:   e.QueryParam,
	}
}

func cbConfig(c config.CBConfig) source.CBConfig {
	return source.CBConfig{
		MaxRequests:  c.MaxRequests,
		Interval:     c.Interval,
		Timeout:      c.Timeout,
		FailureRatio: c.FailureRatio,
	}
}
