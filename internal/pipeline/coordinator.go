package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"tradescribe/internal/logging"
	"tradescribe/internal/media"
	"tradescribe/internal/progress"
)

// Stage names used for error attribution and progress events.
const (
	StageCache    = "cache"
	StageCaptions = "captions"
	StageSpeech   = "speech"
)

// Strategy is one way of turning a video source into a transcript. The
// coordinator tries strategies in order; a strategy failing with
// ErrCaptionsUnavailable hands control to the next one, anything else is
// terminal for the run. Adding a third acquisition method is a matter of
// appending to the strategy list.
type Strategy interface {
	Name() string
	Acquire(ctx context.Context, src media.VideoSource) (media.Transcript, error)
}

// Cache is the subset of the transcript store the coordinator needs.
type Cache interface {
	Get(ctx context.Context, videoID string) (media.Transcript, bool, error)
	Put(ctx context.Context, transcript media.Transcript) error
}

// Coordinator orchestrates cache consultation and the ordered acquisition
// strategies, producing exactly one normalized transcript per request.
type Coordinator struct {
	cache      Cache
	strategies []Strategy
	reporter   progress.Reporter
	logger     *slog.Logger

	// Writers for the same video serialize here so concurrent requests do
	// not duplicate fetch work; distinct videos proceed independently.
	keyLocks sync.Map // video ID -> *sync.Mutex
}

// NewCoordinator builds a coordinator over the given strategy order.
func NewCoordinator(cache Cache, strategies []Strategy, reporter progress.Reporter, logger *slog.Logger) *Coordinator {
	if reporter == nil {
		reporter = progress.NewNop()
	}
	return &Coordinator{
		cache:      cache,
		strategies: strategies,
		reporter:   reporter,
		logger:     logging.NewComponentLogger(logger, "acquire"),
	}
}

// Acquire returns a transcript for the video, consulting the cache first
// unless forceRefresh is set. A refreshed result still overwrites the cache
// entry so a hit always reflects the best transcript obtained so far.
func (c *Coordinator) Acquire(ctx context.Context, src media.VideoSource, forceRefresh bool) (media.Transcript, error) {
	if len(c.strategies) == 0 {
		return media.Transcript{}, Wrap(ErrConfiguration, StageCache, "acquire", "no acquisition strategies configured", nil)
	}

	unlock := c.lockKey(src.ID)
	defer unlock()

	if !forceRefresh {
		if transcript, hit := c.cacheLookup(ctx, src.ID); hit {
			c.reporter.Publish(progress.Event{
				Stage:   progress.StageCacheHit,
				VideoID: src.ID,
				Message: fmt.Sprintf("cached transcript (%s)", transcript.Method),
			})
			return transcript, nil
		}
	}

	var attempted []string
	for i, strategy := range c.strategies {
		stage := progress.StageCaptionFetch
		message := "fetching caption track"
		if i > 0 {
			stage = progress.StageFallback
			message = "falling back to " + strategy.Name()
		}
		c.reporter.Publish(progress.Event{Stage: stage, VideoID: src.ID, Message: message})

		transcript, err := strategy.Acquire(ctx, src)
		if err == nil {
			c.finish(ctx, transcript)
			return transcript, nil
		}

		attempted = append(attempted, strategy.Name())
		recoverable := errors.Is(err, ErrCaptionsUnavailable) && i < len(c.strategies)-1
		if recoverable {
			c.logger.Info("acquisition strategy exhausted, falling back",
				logging.String(logging.FieldVideoID, src.ID),
				logging.String(logging.FieldStage, strategy.Name()),
				logging.Error(err))
			continue
		}

		acqErr := &AcquisitionError{Stage: strategy.Name(), Attempt: attempted, Err: err}
		c.reporter.Publish(progress.Event{
			Stage:   progress.StageFailed,
			VideoID: src.ID,
			Message: fmt.Sprintf("acquisition failed in %s", strategy.Name()),
		})
		return media.Transcript{}, acqErr
	}

	// Unreachable: the final strategy either succeeds or returns above.
	return media.Transcript{}, &AcquisitionError{
		Stage:   c.strategies[len(c.strategies)-1].Name(),
		Attempt: attempted,
		Err:     errors.New("all strategies exhausted"),
	}
}

// cacheLookup treats any cache error as a miss so a damaged cache degrades to
// a re-fetch rather than failing the run.
func (c *Coordinator) cacheLookup(ctx context.Context, videoID string) (media.Transcript, bool) {
	if c.cache == nil {
		return media.Transcript{}, false
	}
	transcript, hit, err := c.cache.Get(ctx, videoID)
	if err != nil {
		logging.WarnWithContext(c.logger, "cache read failed", "cache_read_failed",
			logging.String(logging.FieldVideoID, videoID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "treating as cache miss and re-fetching"))
		return media.Transcript{}, false
	}
	return transcript, hit
}

// finish records a successful acquisition. A cancelled context means the
// caller gave up mid-flight; in that case nothing is written so the cache
// never holds a partial result. A failed write is surfaced as a warning but
// never fails an otherwise-successful acquisition.
func (c *Coordinator) finish(ctx context.Context, transcript media.Transcript) {
	videoID := transcript.Source.ID
	if c.cache != nil && ctx.Err() == nil {
		if err := c.cache.Put(ctx, transcript); err != nil {
			logging.WarnWithContext(c.logger, "cache write failed", "cache_write_failed",
				logging.String(logging.FieldVideoID, videoID),
				logging.Error(err),
				logging.String(logging.FieldImpact, "next run will re-fetch this transcript"))
		}
	}
	c.reporter.Publish(progress.Event{
		Stage:   progress.StageAcquired,
		VideoID: videoID,
		Message: fmt.Sprintf("transcript acquired via %s (%d segments)", transcript.Method, len(transcript.Segments)),
	})
}

func (c *Coordinator) lockKey(videoID string) func() {
	value, _ := c.keyLocks.LoadOrStore(videoID, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
