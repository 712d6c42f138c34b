// Package mock implements the deterministic synthetic data source.
// It always succeeds so the fallback chain can guarantee a response; the
// provenance tag "mock" is the only marker that the data is fabricated.
package mock

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand/v2"

	"go.uber.org/zap"

	"profile-service/internal/domain"
)

// Name is the source identifier used in sources.order.
const Name = "mock"

const postCount = 6

type canned struct {
	fullName  string
	biography string
	followers int64
	following int64
	posts     int64
	verified  bool
	website   string
}

// well-known handles get stable, recognisable values
var cannedProfiles = map[string]canned{
	"instagram": {
		fullName:  "Instagram",
		biography: "Discover what's new on Instagram",
		followers: 672_000_000,
		following: 150,
		posts:     7_900,
		verified:  true,
		website:   "https://about.instagram.com",
	},
	"nasa": {
		fullName:  "NASA",
		biography: "Exploring the universe and our home planet.",
		followers: 97_400_000,
		following: 77,
		posts:     4_291,
		verified:  true,
		website:   "https://www.nasa.gov",
	},
	"natgeo": {
		fullName:  "National Geographic",
		biography: "Inspiring the explorer in everyone",
		followers: 283_000_000,
		following: 160,
		posts:     30_500,
		verified:  true,
		website:   "https://www.nationalgeographic.com",
	},
	"cristiano": {
		fullName:  "Cristiano Ronaldo",
		biography: "",
		followers: 636_000_000,
		following: 590,
		posts:     3_800,
		verified:  true,
	},
}

// Client implements domain.Source with fabricated data.
type Client struct {
	logger *zap.Logger
}

// New creates a new mock source.
func New(logger *zap.Logger) *Client {
	return &Client{logger: logger}
}

// Name returns the source identifier.
func (c *Client) Name() string {
	return Name
}

// Fetch returns the canned profile for well-known handles, otherwise values
// derived from a hash of the handle, so repeated calls agree.
func (c *Client) Fetch(_ context.Context, handle string) (domain.RawPayload, error) {
	rng := rand.New(rand.NewPCG(seed(handle), 0x9e3779b97f4a7c15))

	p, ok := cannedProfiles[handle]
	if !ok {
		p = canned{
			fullName:  fmt.Sprintf("User %s", handle),
			biography: fmt.Sprintf("Sample profile for @%s", handle),
			followers: 100 + rng.Int64N(5_000_000),
			following: 10 + rng.Int64N(2_000),
			posts:     rng.Int64N(3_000),
			verified:  rng.IntN(10) == 0,
		}
	}

	posts := make([]any, 0, postCount)
	for i := 0; i < postCount; i++ {
		posts = append(posts, map[string]any{
			"shortcode": fmt.Sprintf("%s%06d", shortcodePrefix(handle), rng.IntN(1_000_000)),
		})
	}

	c.logger.Debug("serving synthetic profile", zap.String("handle", handle), zap.Bool("canned", ok))

	return domain.RawPayload{
		"user": map[string]any{
			"username":        handle,
			"full_name":       p.fullName,
			"biography":       p.biography,
			"follower_count":  p.followers,
			"following_count": p.following,
			"media_count":     p.posts,
			"profile_pic_url": fmt.Sprintf("https://picsum.photos/seed/%s/320", handle),
			"is_private":      false,
			"is_verified":     p.verified,
			"external_url":    p.website,
			"recent_posts":    posts,
		},
	}, nil
}

func seed(handle string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(handle))

	return h.Sum64()
}

func shortcodePrefix(handle string) string {
	if len(handle) > 4 {
		return handle[:4]
	}

	return handle
}
