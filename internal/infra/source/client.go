// Package source provides the HTTP plumbing shared by profile source adapters:
// client construction, circuit breaking, and mapping of transport and status
// failures onto domain.SourceError.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"profile-service/internal/domain"
)

// DefaultUserAgent is sent by every adapter unless overridden.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// maxBodyLen bounds the upstream body carried by an api_error.
const maxBodyLen = 512

// ClientConfig holds configuration for a source client.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	CB      CBConfig
}

// CBConfig holds circuit breaker configuration.
type CBConfig struct {
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	FailureRatio float64
}

// NewRestyClient creates a new Resty HTTP client.
// Retries are disabled: the fallback chain is the retry policy.
func NewRestyClient(cfg ClientConfig) *resty.Client {
	return resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", DefaultUserAgent)
}

// NewCircuitBreaker creates a new circuit breaker for a source.
// Answers that say nothing about upstream health (not_found,
// unparseable_response) do not count as failures.
func NewCircuitBreaker[T any](name string, cfg CBConfig, logger *zap.Logger) *gobreaker.CircuitBreaker[T] {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)

			return counts.Requests >= 3 && failureRatio >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			switch domain.KindOf(err) {
			case domain.KindNotFound, domain.KindUnparseableResponse:
				return true
			default:
				return false
			}
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("source", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return gobreaker.NewCircuitBreaker[T](settings)
}

// Check converts the outcome of a resty call into a response or a
// *domain.SourceError. Non-2xx responses are failures.
func Check(name string, resp *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return nil, TransportError(name, err)
	}
	if resp.IsError() || resp.StatusCode() >= http.StatusMultipleChoices {
		return nil, StatusError(name, resp)
	}

	return resp, nil
}

// Execute runs call through cb and classifies the result with Check.
func Execute(
	name string,
	cb *gobreaker.CircuitBreaker[*resty.Response],
	call func() (*resty.Response, error),
) (*resty.Response, error) {
	resp, err := cb.Execute(func() (*resty.Response, error) {
		r, err := call()

		return Check(name, r, err)
	})
	if err != nil {
		return nil, TransportError(name, err)
	}

	return resp, nil
}

// KindForStatus maps an upstream HTTP status onto a failure kind.
func KindForStatus(status int) domain.ErrorKind {
	switch status {
	case http.StatusTooManyRequests:
		return domain.KindRateLimited
	case http.StatusUnauthorized:
		return domain.KindAuthError
	case http.StatusForbidden:
		return domain.KindForbidden
	case http.StatusNotFound:
		return domain.KindNotFound
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return domain.KindTimeout
	default:
		return domain.KindAPIError
	}
}

// StatusError builds the SourceError for a failed HTTP response.
func StatusError(name string, resp *resty.Response) *domain.SourceError {
	status := resp.StatusCode()
	se := &domain.SourceError{
		Source:  name,
		Kind:    KindForStatus(status),
		Status:  status,
		Message: http.StatusText(status),
	}
	if se.Message == "" {
		se.Message = "unexpected status"
	}
	if se.Kind == domain.KindAPIError {
		se.Body = truncate(resp.String(), maxBodyLen)
	}

	return se
}

// TransportError classifies an error raised before a usable response arrived.
// SourceErrors pass through unchanged.
func TransportError(name string, err error) *domain.SourceError {
	var se *domain.SourceError
	if errors.As(err, &se) {
		return se
	}

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return domain.NewSourceError(name, domain.KindConnectionError, "circuit breaker open")
	case isTimeout(err):
		return domain.NewSourceError(name, domain.KindTimeout, "request timed out")
	default:
		return domain.NewSourceError(name, domain.KindConnectionError, "%v", err)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}

// DecodeObject parses body as a JSON object, keeping numbers as json.Number.
func DecodeObject(name string, body []byte) (domain.RawPayload, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, domain.NewSourceError(name, domain.KindUnparseableResponse, "invalid JSON: %v", err)
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, domain.NewSourceError(name, domain.KindUnparseableResponse, "response is not a JSON object")
	}

	return domain.RawPayload(obj), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n]
}
