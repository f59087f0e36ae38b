package progress

import (
	"log/slog"
	"sync"
	"time"

	"tradescribe/internal/logging"
)

// Stage identifies the coarse-grained pipeline phase an event belongs to.
type Stage string

const (
	StageCacheHit     Stage = "cache_hit"
	StageCaptionFetch Stage = "caption_fetch"
	StageFallback     Stage = "fallback"
	StageAcquired     Stage = "acquired"
	StageExtracting   Stage = "extracting"
	StageBuilding     Stage = "building"
	StageComplete     Stage = "complete"
	StageFailed       Stage = "failed"
)

// Event is one discrete status update for an external status display.
type Event struct {
	Stage   Stage     `json:"stage"`
	VideoID string    `json:"video_id"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Reporter receives status events from pipeline stages. Implementations must
// never block the caller; dropping events under backpressure is acceptable.
type Reporter interface {
	Publish(Event)
}

// Hub buffers recent events for an external renderer. Publishing never
// blocks: when the buffer is full the oldest event is discarded.
type Hub struct {
	mu       sync.Mutex
	capacity int
	buffer   []Event
	subs     []chan Event
	dropped  uint64
}

// NewHub constructs a bounded event buffer.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 128
	}
	return &Hub{capacity: capacity}
}

// Publish appends an event, evicting the oldest entry when full, and offers
// the event to subscribers without waiting for them to drain.
func (h *Hub) Publish(evt Event) {
	if h == nil {
		return
	}
	if evt.Time.IsZero() {
		evt.Time = time.Now().UTC()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.buffer) == h.capacity {
		copy(h.buffer, h.buffer[1:])
		h.buffer[len(h.buffer)-1] = evt
	} else {
		h.buffer = append(h.buffer, evt)
	}

	for _, sub := range h.subs {
		select {
		case sub <- evt:
		default:
			h.dropped++
		}
	}
}

// Subscribe registers a bounded delivery channel. Slow consumers lose events
// rather than stalling the pipeline.
func (h *Hub) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)
	h.mu.Lock()
	h.subs = append(h.subs, ch)
	h.mu.Unlock()
	return ch
}

// Snapshot returns a copy of the buffered events, oldest first.
func (h *Hub) Snapshot() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Event, len(h.buffer))
	copy(out, h.buffer)
	return out
}

// Dropped reports how many events were discarded due to slow subscribers.
func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

type nopReporter struct{}

func (nopReporter) Publish(Event) {}

// NewNop returns a reporter that discards all events.
func NewNop() Reporter { return nopReporter{} }

type logReporter struct {
	logger *slog.Logger
}

// NewLogReporter routes events to the structured log at debug level, for runs
// without an attached status display.
func NewLogReporter(logger *slog.Logger) Reporter {
	return logReporter{logger: logging.NewComponentLogger(logger, "progress")}
}

func (r logReporter) Publish(evt Event) {
	r.logger.Debug("pipeline progress",
		logging.String("stage", string(evt.Stage)),
		logging.String("video_id", evt.VideoID),
		logging.String("message", evt.Message))
}

// Fanout publishes each event to every reporter in order.
type Fanout []Reporter

func (f Fanout) Publish(evt Event) {
	for _, r := range f {
		if r != nil {
			r.Publish(evt)
		}
	}
}
