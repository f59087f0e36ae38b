package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tradescribe/internal/config"
)

const userAgent = "Tradescribe/0.1.0"

// Service defines the notification surface exposed to the analysis runner.
type Service interface {
	NotifyAnalysisStarted(ctx context.Context, videoTitle string) error
	NotifyAnalysisCompleted(ctx context.Context, videoTitle string, concepts, unresolved int) error
	NotifyAnalysisFailed(ctx context.Context, videoTitle, stage string, cause error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg config.Notifications) Service {
	topic := strings.TrimSpace(cfg.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		started:  cfg.Started,
		done:     cfg.Completed,
		errors:   cfg.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	started  bool
	done     bool
	errors   bool
}

func (n *ntfyService) NotifyAnalysisStarted(ctx context.Context, videoTitle string) error {
	if !n.started {
		return nil
	}
	videoTitle = displayTitle(videoTitle)
	data := payload{
		title:   "Tradescribe - Analysis Started",
		message: fmt.Sprintf("Analyzing: %s", videoTitle),
		tags:    []string{"tradescribe", "analysis", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyAnalysisCompleted(ctx context.Context, videoTitle string, concepts, unresolved int) error {
	if !n.done {
		return nil
	}
	videoTitle = displayTitle(videoTitle)
	message := fmt.Sprintf("Specification ready: %s (%d concepts)", videoTitle, concepts)
	if unresolved > 0 {
		message = fmt.Sprintf("%s\n%d items need review", message, unresolved)
	}
	data := payload{
		title:    "Tradescribe - Complete",
		message:  message,
		tags:     []string{"tradescribe", "analysis", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyAnalysisFailed(ctx context.Context, videoTitle, stage string, cause error) error {
	if !n.errors {
		return nil
	}
	videoTitle = displayTitle(videoTitle)
	var builder strings.Builder
	fmt.Fprintf(&builder, "Analysis failed: %s", videoTitle)
	if stage = strings.TrimSpace(stage); stage != "" {
		fmt.Fprintf(&builder, "\nStage: %s", stage)
	}
	if cause != nil {
		fmt.Fprintf(&builder, "\n%s", strings.TrimSpace(cause.Error()))
	}
	data := payload{
		title:    "Tradescribe - Failed",
		message:  builder.String(),
		tags:     []string{"tradescribe", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Tradescribe - Test",
		message:  "Notification system test",
		tags:     []string{"tradescribe", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func displayTitle(title string) string {
	if title = strings.TrimSpace(title); title != "" {
		return title
	}
	return "unknown video"
}

type noopService struct{}

func (noopService) NotifyAnalysisStarted(context.Context, string) error              { return nil }
func (noopService) NotifyAnalysisCompleted(context.Context, string, int, int) error  { return nil }
func (noopService) NotifyAnalysisFailed(context.Context, string, string, error) error { return nil }
func (noopService) TestNotification(context.Context) error                           { return nil }
