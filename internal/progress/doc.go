// Package progress emits coarse-grained status events for an external status
// display. Publishing is fire-and-forget: the pipeline never blocks waiting
// for a consumer, and events may be dropped under backpressure without
// affecting correctness.
package progress
