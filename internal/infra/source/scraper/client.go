// Package scraper implements the profile page scraping source.
// It reads the Open Graph metadata and post links from the public profile
// HTML page; counts stay human formatted for the normalizer to coerce.
package scraper

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"profile-service/internal/domain"
	"profile-service/internal/infra/source"
	"profile-service/internal/ratelimit"
)

// Name is the source identifier used in sources.order.
const Name = "scraper"

// DefaultPostLimit caps the post links collected per page.
const DefaultPostLimit = 10

// Config holds the scraper configuration.
type Config struct {
	Client    source.ClientConfig
	PostLimit int
	PostDelay time.Duration
}

// countsPattern matches "1.2M Followers, 500 Following, 2,000 Posts".
var countsPattern = regexp.MustCompile(`(?i)([\d.,]+\s*[kmb]?)\s+followers?,\s*([\d.,]+\s*[kmb]?)\s+following,\s*([\d.,]+\s*[kmb]?)\s+posts?`)

const bioMarker = `Instagram: "`

// Client implements domain.Source by scraping the profile page.
type Client struct {
	cfg    Config
	client *resty.Client
	logger *zap.Logger
}

// New creates a new scraper client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.PostLimit <= 0 || cfg.PostLimit > domain.MaxRecentPosts {
		cfg.PostLimit = DefaultPostLimit
	}

	client := source.NewRestyClient(cfg.Client).
		SetHeader("Accept", "text/html,application/xhtml+xml").
		SetHeader("Accept-Language", "en-US,en;q=0.9")
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	return &Client{
		cfg:    cfg,
		client: client,
		logger: logger,
	}
}

// Name returns the source identifier.
func (c *Client) Name() string {
	return Name
}

// Fetch downloads and parses the profile page for handle.
func (c *Client) Fetch(ctx context.Context, handle string) (domain.RawPayload, error) {
	r, err := c.client.R().
		SetContext(ctx).
		Get("/" + handle + "/")
	resp, err := source.Check(Name, r, err)
	if err != nil {
		c.logger.Warn("scraper fetch failed",
			zap.String("handle", handle),
			zap.Error(err),
		)

		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, domain.NewSourceError(Name, domain.KindUnparseableResponse, "parsing page: %v", err)
	}

	user, err := c.parse(ctx, doc, handle)
	if err != nil {
		return nil, err
	}

	return domain.RawPayload{"user": user}, nil
}

func (c *Client) parse(ctx context.Context, doc *goquery.Document, handle string) (map[string]any, error) {
	title := meta(doc, "property", "og:title")
	ogDesc := meta(doc, "property", "og:description")
	if title == "" && ogDesc == "" {
		return nil, domain.NewSourceError(Name, domain.KindUnparseableResponse, "no profile metadata in page")
	}

	user := map[string]any{
		"username":        handle,
		"full_name":       fullName(title),
		"profile_pic_url": meta(doc, "property", "og:image"),
		"is_private":      strings.Contains(strings.ToLower(doc.Text()), "this account is private"),
	}

	desc := meta(doc, "name", "description")
	for _, text := range []string{ogDesc, desc} {
		if m := countsPattern.FindStringSubmatch(text); m != nil {
			user["followers"] = strings.TrimSpace(m[1])
			user["following"] = strings.TrimSpace(m[2])
			user["posts"] = strings.TrimSpace(m[3])

			break
		}
	}
	if bio := biography(desc); bio != "" {
		user["biography"] = bio
	}

	posts, err := c.collectPosts(ctx, doc)
	if err != nil {
		return nil, err
	}
	user["recent_posts"] = posts

	return user, nil
}

// collectPosts walks post and reel anchors in page order, pausing PostDelay
// between them.
func (c *Client) collectPosts(ctx context.Context, doc *goquery.Document) ([]any, error) {
	posts := make([]any, 0, c.cfg.PostLimit)
	seen := make(map[string]struct{})

	var waitErr error
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if !strings.Contains(href, "/p/") && !strings.Contains(href, "/reel/") {
			return true
		}

		link := c.absolute(href)
		if _, dup := seen[link]; dup {
			return true
		}

		if len(posts) > 0 {
			if waitErr = ratelimit.Sleep(ctx, c.cfg.PostDelay); waitErr != nil {
				return false
			}
		}

		seen[link] = struct{}{}
		posts = append(posts, link)

		return len(posts) < c.cfg.PostLimit
	})
	if waitErr != nil {
		return nil, source.TransportError(Name, waitErr)
	}

	return posts, nil
}

func (c *Client) absolute(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}

	return strings.TrimRight(c.cfg.Client.BaseURL, "/") + "/" + strings.TrimLeft(href, "/")
}

func meta(doc *goquery.Document, attr, name string) string {
	v, _ := doc.Find(`meta[` + attr + `="` + name + `"]`).First().Attr("content")

	return strings.TrimSpace(v)
}

// fullName extracts "NASA" from "NASA (@nasa) • Instagram photos and videos".
func fullName(title string) string {
	if i := strings.Index(title, " (@"); i >= 0 {
		return strings.TrimSpace(title[:i])
	}

	return ""
}

// biography extracts the quoted bio from a description meta such as
// `97M Followers, ... - NASA (@nasa) on Instagram: "Exploring the universe"`.
func biography(desc string) string {
	i := strings.Index(desc, bioMarker)
	if i < 0 {
		return ""
	}

	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(desc[i+len(bioMarker):]), `"`))
}
