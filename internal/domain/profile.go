// Package domain contains the core business logic and entities.
// This package has no external dependencies (only stdlib).
package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// MaxRecentPosts is the cap on recent post URLs carried by a Profile.
const MaxRecentPosts = 10

// MaxHandleLength is the longest handle accepted.
const MaxHandleLength = 30

// ErrInvalidHandle is returned when a handle is empty or malformed after normalization.
var ErrInvalidHandle = errors.New("invalid handle")

var handlePattern = regexp.MustCompile(`^[a-z0-9._]+$`)

// Profile is the canonical profile record returned to clients regardless of source.
// Every field is always populated; absent values are zero values, never nil.
type Profile struct {
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

	// Source is the provenance tag: the name of the adapter that produced the record.
	Source      string    `json:"source"`
	GeneratedAt time.Time `json:"generated_at"`
}

// NewProfile creates an empty, fully populated Profile for the given handle.
func NewProfile(handle, source string, generatedAt time.Time) *Profile {
	return &Profile{
		Username:    handle,
		RecentPosts: []string{},
		Source:      source,
		GeneratedAt: generatedAt,
	}
}

// Clone returns a deep copy of the profile.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.RecentPosts = append([]string{}, p.RecentPosts...)

	return &cp
}

// NormalizeHandle trims whitespace, strips one leading "@" and lower-cases.
func NormalizeHandle(raw string) string {
	h := strings.TrimSpace(raw)
	h = strings.TrimPrefix(h, "@")

	return strings.ToLower(strings.TrimSpace(h))
}

// ValidateHandle reports ErrInvalidHandle for a normalized handle that cannot be looked up.
func ValidateHandle(handle string) error {
	if handle == "" || len(handle) > MaxHandleLength || !handlePattern.MatchString(handle) {
		return ErrInvalidHandle
	}

	return nil
}
