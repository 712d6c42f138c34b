package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// containerPaths are tried in order to locate the mapping holding user fields.
// The raw payload itself is the last resort.
var containerPaths = []string{
	"graphql.user",
	"data.user",
	"user",
	"profile",
	"data",
	"result",
}

// markerKeys identify a mapping as a user record. At least one must be present.
var markerKeys = []string{"username", "user_name", "handle", "full_name", "id", "pk"}

// postListPaths are tried in order, first inside the container then on the raw payload.
var postListPaths = []string{
	"edge_owner_to_timeline_media.edges",
	"recent_posts",
	"posts",
	"items",
	"media",
}

// postURLKeys lists per-node media fields, richer representations first.
var postURLKeys = []string{
	"video_url",
	"display_url",
	"image_versions2.candidates.0.url",
	"thumbnail_src",
	"thumbnail_url",
	"media_url",
	"url",
	"permalink",
}

// postCodeKeys are used to build a permalink when no URL field is present.
var postCodeKeys = []string{"shortcode", "code"}

// PermalinkFormat builds a post permalink from a shortcode.
const PermalinkFormat = "https://www.instagram.com/p/%s/"

// fieldMapping maps one output field to its ordered candidate keys.
// apply coerces and assigns a candidate value, returning false on coercion failure.
type fieldMapping struct {
	field      string
	candidates []string
	apply      func(p *Profile, v any) bool
}

var profileFields = []fieldMapping{
	{
		field:      "username",
		candidates: []string{"username", "user_name", "handle", "screen_name"},
		apply:      setHandle,
	},
	{
		field:      "full_name",
		candidates: []string{"full_name", "fullName", "fullname", "display_name", "name"},
		apply:      setString(func(p *Profile, s string) { p.FullName = s }),
	},
	{
		field:      "biography",
		candidates: []string{"biography", "bio", "description"},
		apply:      setString(func(p *Profile, s string) { p.Biography = s }),
	},
	{
		field: "followers",
		candidates: []string{
			"follower_count", "followers_count", "followers", "edge_followed_by",
		},
		apply: setCount(func(p *Profile, n int64) { p.Followers = n }),
	},
	{
		field: "following",
		candidates: []string{
			"following_count", "followings_count", "following", "followees", "edge_follow",
		},
		apply: setCount(func(p *Profile, n int64) { p.Following = n }),
	},
	{
		field: "posts",
		candidates: []string{
			"media_count", "posts_count", "post_count", "mediacount", "posts",
			"edge_owner_to_timeline_media",
		},
		apply: setCount(func(p *Profile, n int64) { p.Posts = n }),
	},
	{
		field: "profile_pic_url",
		candidates: []string{
			"profile_pic_url_hd", "hd_profile_pic_url_info.url", "profile_pic_url",
			"avatar_url", "profile_picture", "avatar",
		},
		apply: setString(func(p *Profile, s string) { p.ProfilePicURL = s }),
	},
	{
		field:      "is_private",
		candidates: []string{"is_private", "private"},
		apply:      setBool(func(p *Profile, b bool) { p.IsPrivate = b }),
	},
	{
		field:      "is_verified",
		candidates: []string{"is_verified", "verified"},
		apply:      setBool(func(p *Profile, b bool) { p.IsVerified = b }),
	},
	{
		field:      "external_url",
		candidates: []string{"external_url", "website", "bio_link"},
		apply:      setString(func(p *Profile, s string) { p.ExternalURL = s }),
	},
}

// Normalizer maps heterogeneous source payloads onto the canonical Profile.
type Normalizer struct {
	now func() time.Time
}

// NewNormalizer creates a Normalizer stamping profiles with the current UTC time.
func NewNormalizer() *Normalizer {
	return &Normalizer{now: func() time.Time { return time.Now().UTC() }}
}

// Normalize builds a Profile from raw, or returns false if the payload shape is unrecognized.
func (n *Normalizer) Normalize(raw RawPayload, handle, source string) (*Profile, bool) {
	p, _ := n.NormalizeDetailed(raw, handle, source)

	return p, p != nil
}

// NormalizeDetailed is Normalize that also reports how many output fields were
// filled from the payload. It returns nil, 0 for an unrecognized payload.
func (n *Normalizer) NormalizeDetailed(raw RawPayload, handle, source string) (*Profile, int) {
	if raw == nil {
		return nil, 0
	}

	user, ok := findContainer(map[string]any(raw))
	if !ok {
		return nil, 0
	}

	now := time.Now().UTC()
	if n.now != nil {
		now = n.now()
	}

	profile := NewProfile(handle, source, now)
	matched := 0

	for _, fm := range profileFields {
		for _, key := range fm.candidates {
			v, ok := lookup(user, key)
			if !ok {
				continue
			}
			if fm.apply(profile, v) {
				matched++

				break
			}
		}
	}

	profile.RecentPosts = extractPosts(user, map[string]any(raw))
	if len(profile.RecentPosts) > 0 {
		matched++
	}

	return profile, matched
}

func findContainer(raw map[string]any) (map[string]any, bool) {
	for _, path := range containerPaths {
		v, ok := lookup(raw, path)
		if !ok {
			continue
		}
		if m, ok := asMap(v); ok && hasMarker(m) {
			return m, true
		}
	}

	if hasMarker(raw) {
		return raw, true
	}

	return nil, false
}

func hasMarker(m map[string]any) bool {
	for _, k := range markerKeys {
		if v, ok := m[k]; ok && v != nil {
			return true
		}
	}

	return false
}

// lookup walks a dotted path through nested maps and lists.
// Numeric segments index into lists. Nil values count as absent.
func lookup(m map[string]any, path string) (any, bool) {
	var cur any = m
	for _, seg := range strings.Split(path, ".") {
		if mm, ok := asMap(cur); ok {
			cur, ok = mm[seg]
			if !ok {
				return nil, false
			}

			continue
		}
		list, ok := cur.([]any)
		if !ok {
			return nil, false
		}
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 || idx >= len(list) {
			return nil, false
		}
		cur = list[idx]
	}

	if cur == nil {
		return nil, false
	}

	return cur, true
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case RawPayload:
		return map[string]any(t), true
	default:
		return nil, false
	}
}

func extractPosts(user, raw map[string]any) []string {
	list := findPostList(user)
	if list == nil {
		list = findPostList(raw)
	}

	posts := make([]string, 0, MaxRecentPosts)
	seen := make(map[string]struct{}, MaxRecentPosts)

	for _, item := range list {
		if len(posts) >= MaxRecentPosts {
			break
		}
		url := postURL(item)
		if url == "" {
			continue
		}
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}
		posts = append(posts, url)
	}

	return posts
}

func findPostList(m map[string]any) []any {
	for _, path := range postListPaths {
		v, ok := lookup(m, path)
		if !ok {
			continue
		}
		if list, ok := v.([]any); ok {
			return list
		}
	}

	return nil
}

func postURL(item any) string {
	if s, ok := item.(string); ok {
		return strings.TrimSpace(s)
	}

	node, ok := asMap(item)
	if !ok {
		return ""
	}
	if inner, ok := asMap(node["node"]); ok {
		node = inner
	}

	for _, key := range postURLKeys {
		if v, ok := lookup(node, key); ok {
			if s, ok := toString(v); ok {
				return s
			}
		}
	}
	for _, key := range postCodeKeys {
		if v, ok := lookup(node, key); ok {
			if s, ok := toString(v); ok {
				return fmt.Sprintf(PermalinkFormat, s)
			}
		}
	}

	return ""
}

func setString(set func(*Profile, string)) func(*Profile, any) bool {
	return func(p *Profile, v any) bool {
		s, ok := toString(v)
		if ok {
			set(p, s)
		}

		return ok
	}
}

// setHandle keeps the requested handle when the upstream username is not a valid handle.
func setHandle(p *Profile, v any) bool {
	s, ok := toString(v)
	if !ok {
		return false
	}
	h := NormalizeHandle(s)
	if ValidateHandle(h) != nil {
		return false
	}
	p.Username = h

	return true
}

func setCount(set func(*Profile, int64)) func(*Profile, any) bool {
	return func(p *Profile, v any) bool {
		n, ok := ToCount(v)
		if ok {
			set(p, n)
		}

		return ok
	}
}

func setBool(set func(*Profile, bool)) func(*Profile, any) bool {
	return func(p *Profile, v any) bool {
		b, ok := toBool(v)
		if ok {
			set(p, b)
		}

		return ok
	}
}

// toString accepts non-blank strings and JSON numbers.
func toString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case json.Number:
		return t.String(), true
	default:
		return "", false
	}
}

// ToCount coerces a loosely typed count to a non-negative integer.
// Count objects such as {"count": N} or {"edge_count": N} are unwrapped;
// strings may carry thousands separators and K/M/B suffixes.
func ToCount(v any) (int64, bool) {
	switch t := v.(type) {
	case map[string]any, RawPayload:
		m, _ := asMap(t)
		for _, k := range []string{"count", "edge_count"} {
			if inner, ok := m[k]; ok && inner != nil {
				return ToCount(inner)
			}
		}
		return 0, false
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return nonNegative(n)
		}
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return fromFloat(f)
	case float64:
		return fromFloat(t)
	case float32:
		return fromFloat(float64(t))
	case int:
		return nonNegative(int64(t))
	case int32:
		return nonNegative(int64(t))
	case int64:
		return nonNegative(t)
	case string:
		return ParseCount(t)
	default:
		return 0, false
	}
}

// ParseCount parses human formatted counts like "12,345", "1.2K" or "3M".
func ParseCount(s string) (int64, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(",", "", " ", "", "\u00a0", "").Replace(s)
	if s == "" {
		return 0, false
	}

	multiplier := 1.0
	switch s[len(s)-1] {
	case 'k':
		multiplier = 1e3
	case 'm':
		multiplier = 1e6
	case 'b':
		multiplier = 1e9
	}
	if multiplier != 1 {
		s = s[:len(s)-1]
	} else if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return nonNegative(n)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}

	return fromFloat(f * multiplier)
}

// maxCountFloat is 2^63, the first float64 that no longer fits an int64.
const maxCountFloat = float64(1 << 63)

func fromFloat(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, false
	}
	f = math.Round(f)
	if f >= maxCountFloat {
		return 0, false
	}

	return int64(f), true
}

func nonNegative(n int64) (int64, bool) {
	if n < 0 {
		return 0, false
	}

	return n, true
}

func toBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes":
			return true, true
		case "false", "0", "no":
			return false, true
		}
		return false, false
	case json.Number:
		switch t.String() {
		case "1":
			return true, true
		case "0":
			return false, true
		}
		return false, false
	case float64:
		if t == 0 || t == 1 {
			return t == 1, true
		}
		return false, false
	case int:
		if t == 0 || t == 1 {
			return t == 1, true
		}
		return false, false
	default:
		return false, false
	}
}
