// Package media defines the core data model shared across the pipeline:
// video sources, transcript segments, and acquisition provenance.
package media
