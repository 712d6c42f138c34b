package paidapi

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"profile-service/internal/domain"
	"profile-service/internal/infra/source"
)

const (
	testBaseURL  = "https://paid.example.com"
	testEndpoint = testBaseURL + "/v1/info"
)

func newTestClient(apiKey string) *Client {
	cfg := Config{
		Name: PrimaryName,
		Client: source.ClientConfig{
			BaseURL: testBaseURL,
			Timeout: 5 * time.Second,
			CB: source.CBConfig{
				MaxRequests:  1,
				Interval:     60 * time.Second,
				Timeout:      15 * time.Second,
				FailureRatio: 0.6,
			},
		},
		Endpoint:   "/v1/info",
		APIKey:     apiKey,
		HostHeader: "paid.example.com",
		QueryParam: "username_or_id_or_url",
	}
	client := New(cfg, zap.NewNop())

	// Activate httpmock for this client's HTTP transport
	httpmock.ActivateNonDefault(client.client.GetClient())

	return client
}

func samplePayload() map[string]any {
	return map[string]any{
		"data": map[string]any{
			"username":        "nasa",
			"full_name":       "NASA",
			"follower_count":  97000000,
			"following_count": 77,
			"media_count":     4291,
			"is_verified":     true,
		},
	}
}

func TestPaidAPI_Fetch_Success(t *testing.T) {
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", testEndpoint,
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "secret-key", req.Header.Get(DefaultAPIKeyHeader))
			assert.Equal(t, "paid.example.com", req.Header.Get("X-RapidAPI-Host"))
			assert.Equal(t, "nasa", req.URL.Query().Get("username_or_id_or_url"))

			return httpmock.NewJsonResponse(200, samplePayload())
		})

	client := newTestClient("secret-key")
	raw, err := client.Fetch(context.Background(), "nasa")

	require.NoError(t, err)
	data, ok := raw["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "nasa", data["username"])

	profile, ok := domain.NewNormalizer().Normalize(raw, "nasa", client.Name())
	require.True(t, ok)
	assert.Equal(t, int64(97000000), profile.Followers)
	assert.Equal(t, int64(4291), profile.Posts)
	assert.True(t, profile.IsVerified)
}

func TestPaidAPI_Fetch_MissingKeyMakesNoRequest(t *testing.T) {
	defer httpmock.DeactivateAndReset()

	client := newTestClient("")
	_, err := client.Fetch(context.Background(), "nasa")

	var se *domain.SourceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, domain.KindMissingCredentials, se.Kind)
	assert.Equal(t, PrimaryName, se.Source)
	assert.Zero(t, httpmock.GetTotalCallCount())
	assert.False(t, client.Configured())
}

func TestPaidAPI_Fetch_StatusMapping(t *testing.T) {
	defer httpmock.DeactivateAndReset()

	tests := []struct {
		name   string
		status int
		want   domain.ErrorKind
	}{
		{"429 Too Many Requests", 429, domain.KindRateLimited},
		{"401 Unauthorized", 401, domain.KindAuthError},
		{"403 Forbidden", 403, domain.KindForbidden},
		{"404 Not Found", 404, domain.KindNotFound},
		{"504 Gateway Timeout", 504, domain.KindTimeout},
		{"500 Internal Server Error", 500, domain.KindAPIError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpmock.Reset()
			httpmock.RegisterResponder("GET", testEndpoint,
				httpmock.NewStringResponder(tt.status, `{"message":"nope"}`))

			// fresh client per case so the breaker stays closed
			client := newTestClient("secret-key")
			raw, err := client.Fetch(context.Background(), "nasa")

			assert.Nil(t, raw)
			var se *domain.SourceError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.want, se.Kind)
			assert.Equal(t, tt.status, se.Status)
		})
	}
}

func TestPaidAPI_Fetch_APIErrorCarriesBody(t *testing.T) {
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", testEndpoint,
		httpmock.NewStringResponder(502, "upstream exploded"))

	client := newTestClient("secret-key")
	_, err := client.Fetch(context.Background(), "nasa")

	var se *domain.SourceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, domain.KindAPIError, se.Kind)
	assert.Equal(t, "upstream exploded", se.Body)
}

func TestPaidAPI_Fetch_InvalidJSON(t *testing.T) {
	defer httpmock.DeactivateAndReset()

	tests := []struct {
		name string
		body string
	}{
		{"html", "<html>blocked</html>"},
		{"array", `[{"username":"nasa"}]`},
		{"truncated", `{"data":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpmock.Reset()
			httpmock.RegisterResponder("GET", testEndpoint,
				httpmock.NewStringResponder(200, tt.body))

			client := newTestClient("secret-key")
			_, err := client.Fetch(context.Background(), "nasa")

			assert.Equal(t, domain.KindUnparseableResponse, domain.KindOf(err))
		})
	}
}

func TestPaidAPI_Fetch_ConnectionError(t *testing.T) {
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", testEndpoint,
		httpmock.NewErrorResponder(assert.AnError))

	client := newTestClient("secret-key")
	_, err := client.Fetch(context.Background(), "nasa")

	assert.Equal(t, domain.KindConnectionError, domain.KindOf(err))
}

func TestPaidAPI_CircuitBreaker_OpensAfterFailures(t *testing.T) {
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", testEndpoint,
		httpmock.NewStringResponder(500, "Server Error"))

	client := newTestClient("secret-key")
	for i := 0; i < 3; i++ {
		_, err := client.Fetch(context.Background(), "nasa")
		require.Error(t, err)
	}

	start := time.Now()
	_, err := client.Fetch(context.Background(), "nasa")
	elapsed := time.Since(start)

	var se *domain.SourceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, domain.KindConnectionError, se.Kind)
	assert.Contains(t, se.Message, "circuit breaker open")
	// Should fail fast without making an HTTP request
	assert.Less(t, elapsed.Milliseconds(), int64(100))
	assert.Equal(t, 3, httpmock.GetTotalCallCount())
}

func TestPaidAPI_NoRetries(t *testing.T) {
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", testEndpoint,
		httpmock.NewStringResponder(503, "unavailable"))

	client := newTestClient("secret-key")
	_, err := client.Fetch(context.Background(), "nasa")

	require.Error(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestPaidAPI_Defaults(t *testing.T) {
	client := New(Config{Name: SecondaryName, APIKey: "k"}, zap.NewNop())

	assert.Equal(t, SecondaryName, client.Name())
	assert.Equal(t, DefaultAPIKeyHeader, client.cfg.APIKeyHeader)
	assert.Equal(t, DefaultQueryParam, client.cfg.QueryParam)
}
