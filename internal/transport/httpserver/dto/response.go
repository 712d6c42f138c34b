package dto

import (
	"time"

	"profile-service/internal/app/service"
	"profile-service/internal/domain"
)

// ProfileBody carries the canonical profile fields.
type ProfileBody struct {
	Username      string   `json:"username"`
	FullName      string   `json:"full_name"`
	Biography     string   `json:"biography"`
	Followers     int64    `json:"followers"`
	Following     int64    `json:"following"`
	Posts         int64    `json:"posts"`
	ProfilePicURL string   `json:"profile_pic_url"`
	IsPrivate     bool     `json:"is_private"`
	IsVerified    bool     `json:"is_verified"`
	ExternalURL   string   `json:"external_url"`
	RecentPosts   []string `json:"recent_posts"`
	Source        string   `json:"source"`
	GeneratedAt   string   `json:"generated_at"`
}

// ProfileResponse is the lookup response: profile fields plus cache status.
type ProfileResponse struct {
	ProfileBody
	Cached    bool   `json:"cached"`
	Timestamp string `json:"timestamp"`
}

// FromProfile converts a domain.Profile to ProfileBody.
func FromProfile(p *domain.Profile) ProfileBody {
	posts := p.RecentPosts
	if posts == nil {
		posts = []string{}
	}

	return ProfileBody{
		Username:      p.Username,
		FullName:      p.FullName,
		Biography:     p.Biography,
		Followers:     p.Followers,
		Following:     p.Following,
		Posts:         p.Posts,
		ProfilePicURL: p.ProfilePicURL,
		IsPrivate:     p.IsPrivate,
		IsVerified:    p.IsVerified,
		ExternalURL:   p.ExternalURL,
		RecentPosts:   posts,
		Source:        p.Source,
		GeneratedAt:   p.GeneratedAt.UTC().Format(time.RFC3339),
	}
}

// FromLookupResult converts service.LookupResult to ProfileResponse.
func FromLookupResult(r *service.LookupResult, now time.Time) ProfileResponse {
	return ProfileResponse{
		ProfileBody: FromProfile(r.Profile),
		Cached:      r.Cached,
		Timestamp:   Timestamp(now),
	}
}

// SnapshotResponse is the last persisted record for a handle.
type SnapshotResponse struct {
	ProfileBody
	FetchCount int64  `json:"fetch_count"`
	Timestamp  string `json:"timestamp"`
}

// HealthResponse represents the service status report.
type HealthResponse struct {
	Status           string   `json:"status"`
	CacheSize        int      `json:"cache_size"`
	APIKeyConfigured bool     `json:"api_key_configured"`
	APIKeyPreview    string   `json:"api_key_preview,omitempty"`
	Version          string   `json:"version"`
	Sources          []string `json:"sources"`
	SnapshotsEnabled bool     `json:"snapshots_enabled"`
	SnapshotCount    int64    `json:"snapshot_count"`
	Timestamp        string   `json:"timestamp"`
}

// ClearResponse reports how many cache entries were removed.
type ClearResponse struct {
	Cleared   int    `json:"cleared"`
	Timestamp string `json:"timestamp"`
}

// ProbeSourceResponse is one source's outcome in a probe report.
type ProbeSourceResponse struct {
	Source          string `json:"source"`
	Success         bool   `json:"success"`
	ErrorKind       string `json:"error_kind,omitempty"`
	Error           string `json:"error,omitempty"`
	FieldsExtracted int    `json:"fields_extracted"`
	DurationMS      int64  `json:"duration_ms"`
}

// ProbeResponse is the diagnostic report for every configured source.
type ProbeResponse struct {
	Handle    string                `json:"handle"`
	Results   []ProbeSourceResponse `json:"results"`
	Summary   ProbeSummary          `json:"summary"`
	Timestamp string                `json:"timestamp"`
}

// ProbeSummary holds the probe totals.
type ProbeSummary struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// FromProbeResults converts service.ProbeResult slice to ProbeResponse.
func FromProbeResults(handle string, results []service.ProbeResult, now time.Time) ProbeResponse {
	resp := ProbeResponse{
		Handle:    handle,
		Results:   make([]ProbeSourceResponse, len(results)),
		Timestamp: Timestamp(now),
	}

	for i, r := range results {
		if r.Success {
			resp.Summary.Succeeded++
		} else {
			resp.Summary.Failed++
		}

		resp.Results[i] = ProbeSourceResponse{
			Source:          r.Source,
			Success:         r.Success,
			ErrorKind:       string(r.ErrorKind),
			Error:           r.Error,
			FieldsExtracted: r.FieldsExtracted,
			DurationMS:      r.Duration.Milliseconds(),
		}
	}

	return resp
}

// AttemptResponse describes one failed source attempt.
type AttemptResponse struct {
	Source  string `json:"source"`
	Kind    string `json:"kind"`
	Status  int    `json:"status,omitempty"`
	Message string `json:"message"`
}

// FromAttempts converts the failed attempts of an exhausted lookup.
func FromAttempts(attempts []*domain.SourceError) []AttemptResponse {
	out := make([]AttemptResponse, len(attempts))
	for i, a := range attempts {
		out[i] = AttemptResponse{
			Source:  a.Source,
			Kind:    string(a.Kind),
			Status:  a.Status,
			Message: a.Message,
		}
	}

	return out
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error      string      `json:"error"`
	Code       string      `json:"code,omitempty"`
	Details    interface{} `json:"details,omitempty"`
	Suggestion string      `json:"suggestion,omitempty"`
	RetryAfter int         `json:"retry_after,omitempty"`
	Timestamp  string      `json:"timestamp"`
}

// Timestamp formats t as RFC 3339 in UTC.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
