package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"tradescribe/internal/config"
	"tradescribe/internal/logging"
	"tradescribe/internal/media"
)

// Video holds the display metadata fetched for a source. All fields are
// optional; metadata only enriches reports and notifications.
type Video struct {
	Title        string `json:"title,omitempty"`
	Author       string `json:"author,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// Client fetches video metadata. The oEmbed endpoint is the primary source;
// when it fails the watch page's og: meta tags fill in. Either path failing
// is never fatal to a pipeline run.
type Client struct {
	oembedBase string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client (for testing).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// NewClient builds a metadata client from configuration.
func NewClient(cfg config.Metadata, logger *slog.Logger, opts ...Option) *Client {
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &Client{
		oembedBase: strings.TrimRight(cfg.OEmbedBaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewComponentLogger(logger, "metadata"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Fetch returns whatever metadata could be obtained for the source. A
// complete failure returns the zero Video and the last error; callers log it
// and move on.
func (c *Client) Fetch(ctx context.Context, src media.VideoSource) (Video, error) {
	video, err := c.fetchOEmbed(ctx, src)
	if err == nil {
		return video, nil
	}
	c.logger.Debug("oembed lookup failed, trying watch page",
		logging.String(logging.FieldVideoID, src.ID),
		logging.Error(err))

	video, pageErr := c.fetchWatchPage(ctx, src)
	if pageErr == nil {
		return video, nil
	}
	return Video{}, fmt.Errorf("oembed: %w; watch page: %w", err, pageErr)
}

type oembedPayload struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

func (c *Client) fetchOEmbed(ctx context.Context, src media.VideoSource) (Video, error) {
	endpoint := fmt.Sprintf("%s?url=%s&format=json", c.oembedBase, url.QueryEscape(src.URL))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Video{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Video{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Video{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload oembedPayload
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		return Video{}, fmt.Errorf("decode oembed payload: %w", err)
	}
	if payload.Title == "" && payload.AuthorName == "" {
		return Video{}, fmt.Errorf("oembed payload empty")
	}
	return Video{
		Title:        payload.Title,
		Author:       payload.AuthorName,
		ThumbnailURL: payload.ThumbnailURL,
	}, nil
}

func (c *Client) fetchWatchPage(ctx context.Context, src media.VideoSource) (Video, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return Video{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Video{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Video{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return Video{}, fmt.Errorf("parse watch page: %w", err)
	}

	video := Video{
		Title:        metaContent(doc, `meta[property="og:title"]`),
		ThumbnailURL: metaContent(doc, `meta[property="og:image"]`),
	}
	if author := metaContent(doc, `meta[name="author"]`); author != "" {
		video.Author = author
	} else {
		video.Author = doc.Find(`span[itemprop="author"] link[itemprop="name"]`).AttrOr("content", "")
	}
	if video.Title == "" && video.Author == "" {
		return Video{}, fmt.Errorf("no og metadata on watch page")
	}
	return video, nil
}

func metaContent(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).AttrOr("content", ""))
}
