// Package directory looks up podcasts and episodes in the Podcast Index.
package directory

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/heaversm/podquest/config"
)

const defaultEndpoint = "https://api.podcastindex.org/api/1.0"

// Podcast is one feed returned by a directory search.
type Podcast struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	FeedURL string `json:"url"`
	Author  string `json:"author"`
	Image   string `json:"image"`
}

// Episode is one entry of a feed, carrying the audio enclosure URL the
// transcription pipeline downloads.
type Episode struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	EnclosureURL string `json:"enclosureUrl"`
	DatePub      int64  `json:"datePublished"`
	Duration     int    `json:"duration"`
}

// Client calls the Podcast Index API. Every request is signed with the
// sha1(key+secret+timestamp) scheme the API requires.
type Client struct {
	key      string
	secret   string
	endpoint string
	client   *http.Client

	// now overrides the clock used for request signing (for testing).
	now func() time.Time
}

func NewClient(cfg config.PodcastIndexConfig) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Client{
		key:      cfg.APIKey,
		secret:   cfg.APISecret,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
		now:      time.Now,
	}
}

// Enabled reports whether directory credentials are configured.
func (c *Client) Enabled() bool {
	return c != nil && c.key != "" && c.secret != ""
}

// SearchPodcasts finds feeds matching term, at most max results.
func (c *Client) SearchPodcasts(ctx context.Context, term string, max int) ([]Podcast, error) {
	q := url.Values{}
	q.Set("q", term)
	q.Set("max", strconv.Itoa(max))
	var out struct {
		Feeds []Podcast `json:"feeds"`
	}
	if err := c.get(ctx, "/search/byterm", q, &out); err != nil {
		return nil, err
	}
	return out.Feeds, nil
}

// EpisodesByFeedURL lists recent episodes of the feed at feedURL.
func (c *Client) EpisodesByFeedURL(ctx context.Context, feedURL string, max int) ([]Episode, error) {
	q := url.Values{}
	q.Set("url", feedURL)
	q.Set("max", strconv.Itoa(max))
	var out struct {
		Items []Episode `json:"items"`
	}
	if err := c.get(ctx, "/episodes/byfeedurl", q, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	if !c.Enabled() {
		return fmt.Errorf("podcast index credentials not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	c.sign(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("podcast index request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("podcast index: unexpected status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("podcast index: decode response: %w", err)
	}
	return nil
}

// sign adds the Podcast Index auth headers: the Authorization value is the
// hex sha1 of key+secret+timestamp, where the timestamp also travels in
// X-Auth-Date.
func (c *Client) sign(req *http.Request) {
	ts := strconv.FormatInt(c.now().Unix(), 10)
	hash := sha1.Sum([]byte(c.key + c.secret + ts))
	req.Header.Set("X-Auth-Date", ts)
	req.Header.Set("X-Auth-Key", c.key)
	req.Header.Set("Authorization", fmt.Sprintf("%x", hash))
	req.Header.Set("User-Agent", "Podquest/1.0")
}
