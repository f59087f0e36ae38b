// Package metadata fetches best-effort display metadata (title, author) for
// a video. It never gates the pipeline: failures degrade to an unannotated
// run.
package metadata
