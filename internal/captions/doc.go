// Package captions implements the fast acquisition path: fetching and parsing
// the platform-provided caption track for a video. Failures surface as
// ErrCaptionsUnavailable so the coordinator can fall back to speech
// recognition, whether the track is absent or merely unreachable.
package captions
