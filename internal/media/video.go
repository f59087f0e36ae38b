package media

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// VideoSource identifies a video on the hosting platform. The platform ID is
// the cache key for everything derived from the video.
type VideoSource struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

var urlPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?(?:[\w=&-]*&)?v=)([\w-]{6,})`),
	regexp.MustCompile(`(?:youtu\.be/)([\w-]{6,})`),
	regexp.MustCompile(`(?:youtube\.com/embed/)([\w-]{6,})`),
	regexp.MustCompile(`(?:youtube\.com/v/)([\w-]{6,})`),
	regexp.MustCompile(`(?:youtube\.com/shorts/)([\w-]{6,})`),
	regexp.MustCompile(`(?:youtube\.com/live/)([\w-]{6,})`),
}

var bareIDPattern = regexp.MustCompile(`^[\w-]{6,}$`)

// ErrInvalidSource indicates the input could not be resolved to a video ID.
var ErrInvalidSource = errors.New("unrecognized video URL")

// ParseSource resolves a watch URL (or a bare video ID) into a VideoSource.
func ParseSource(input string) (VideoSource, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return VideoSource{}, fmt.Errorf("%w: empty input", ErrInvalidSource)
	}

	for _, pattern := range urlPatterns {
		if match := pattern.FindStringSubmatch(input); match != nil {
			return VideoSource{ID: match[1], URL: input}, nil
		}
	}

	// Accept a bare video ID so callers can re-run cached analyses without
	// keeping the original URL around.
	if !strings.Contains(input, "/") && bareIDPattern.MatchString(input) {
		return VideoSource{ID: input, URL: "https://www.youtube.com/watch?v=" + input}, nil
	}

	return VideoSource{}, fmt.Errorf("%w: %q", ErrInvalidSource, input)
}
