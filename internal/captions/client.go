package captions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"tradescribe/internal/config"
	"tradescribe/internal/logging"
	"tradescribe/internal/media"
	"tradescribe/internal/pipeline"
)

const userAgent = "tradescribe/0.1"

// Client retrieves platform caption tracks and converts them into normalized
// transcripts. It is the fast acquisition path: any failure that persists
// past the bounded retry budget surfaces as ErrCaptionsUnavailable so the
// coordinator can fall back, whether the track was truly absent or just
// unreachable.
type Client struct {
	baseURL    string
	languages  []string
	attempts   int
	baseDelay  time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	sleeper    func(time.Duration)
	logger     *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		if sleeper != nil {
			c.sleeper = sleeper
		}
	}
}

// NewClient constructs a caption client from configuration.
func NewClient(cfg config.Captions, logger *slog.Logger, opts ...Option) *Client {
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	client := &Client{
		baseURL:    cfg.BaseURL,
		languages:  cfg.Languages,
		attempts:   cfg.RetryAttempts,
		baseDelay:  time.Duration(cfg.RetryBaseDelayMS) * time.Millisecond,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.RequestBurst),
		sleeper:    time.Sleep,
		logger:     logging.NewComponentLogger(logger, "captions"),
	}
	if client.attempts <= 0 {
		client.attempts = 3
	}
	if client.baseDelay <= 0 {
		client.baseDelay = 500 * time.Millisecond
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Name identifies this acquisition strategy.
func (c *Client) Name() string { return pipeline.StageCaptions }

// Acquire fetches the caption track for the video and parses it into a
// transcript tagged with the caption method.
func (c *Client) Acquire(ctx context.Context, src media.VideoSource) (media.Transcript, error) {
	tracks, err := c.listTracks(ctx, src.ID)
	if err != nil {
		return media.Transcript{}, err
	}
	if len(tracks) == 0 {
		return media.Transcript{}, pipeline.Wrap(pipeline.ErrCaptionsUnavailable,
			pipeline.StageCaptions, "list tracks", "no caption tracks published", nil)
	}

	track := chooseTrack(tracks, c.languages)
	segments, err := c.fetchTrack(ctx, src.ID, track)
	if err != nil {
		return media.Transcript{}, err
	}
	if len(segments) == 0 {
		return media.Transcript{}, pipeline.Wrap(pipeline.ErrCaptionsUnavailable,
			pipeline.StageCaptions, "fetch track", "caption track contained no usable text", nil)
	}

	transcript := media.Transcript{
		Source:    src,
		Method:    media.MethodCaption,
		Language:  track.LangCode,
		Segments:  segments,
		FetchedAt: time.Now().UTC(),
	}
	if err := transcript.Validate(); err != nil {
		return media.Transcript{}, pipeline.Wrap(pipeline.ErrCaptionsUnavailable,
			pipeline.StageCaptions, "normalize", "caption track produced a malformed transcript", err)
	}

	c.logger.Info("caption track fetched",
		logging.String(logging.FieldVideoID, src.ID),
		logging.String("language", track.LangCode),
		logging.Int("segments", len(segments)))
	return transcript, nil
}

func (c *Client) listTracks(ctx context.Context, videoID string) ([]Track, error) {
	query := url.Values{}
	query.Set("type", "list")
	query.Set("v", videoID)

	body, err := c.getWithRetry(ctx, c.baseURL+"?"+query.Encode(), "list tracks")
	if err != nil {
		return nil, err
	}
	tracks, err := parseTrackList(body)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.ErrCaptionsUnavailable,
			pipeline.StageCaptions, "list tracks", "unparseable track list", err)
	}
	return tracks, nil
}

func (c *Client) fetchTrack(ctx context.Context, videoID string, track Track) ([]media.Segment, error) {
	query := url.Values{}
	query.Set("v", videoID)
	query.Set("lang", track.LangCode)
	if track.Name != "" {
		query.Set("name", track.Name)
	}

	body, err := c.getWithRetry(ctx, c.baseURL+"?"+query.Encode(), "fetch track")
	if err != nil {
		return nil, err
	}
	segments, err := parseTrack(body)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.ErrCaptionsUnavailable,
			pipeline.StageCaptions, "fetch track", "unparseable caption payload", err)
	}
	return segments, nil
}

// getWithRetry performs a GET with bounded exponential backoff. Client-side
// statuses (4xx) mean the platform denied or lacks the resource and are not
// retried; everything transient is retried until the attempt budget runs out,
// then surfaced as ErrCaptionsUnavailable to trigger fallback.
func (c *Client) getWithRetry(ctx context.Context, requestURL, operation string) ([]byte, error) {
	var lastErr error
	delay := c.baseDelay

	for attempt := 1; attempt <= c.attempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, err := c.getOnce(ctx, requestURL)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var statusErr *statusError
		if errors.As(err, &statusErr) && !statusErr.transient() {
			return nil, pipeline.Wrap(pipeline.ErrCaptionsUnavailable,
				pipeline.StageCaptions, operation, "platform denied caption access", err)
		}

		lastErr = err
		if attempt < c.attempts {
			c.logger.Debug("caption request retry",
				logging.String("operation", operation),
				logging.Int("attempt", attempt),
				logging.Duration("delay", delay),
				logging.Error(err))
			c.sleeper(delay)
			delay *= 2
		}
	}

	return nil, pipeline.Wrap(pipeline.ErrCaptionsUnavailable,
		pipeline.StageCaptions, operation,
		fmt.Sprintf("gave up after %d attempts", c.attempts), lastErr)
}

func (c *Client) getOnce(ctx context.Context, requestURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("request timeout: %w", err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &statusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return io.ReadAll(resp.Body)
}

type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
}

// transient reports whether the status is worth retrying. 429 counts as
// transient; other 4xx statuses are definitive denials.
func (e *statusError) transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}
