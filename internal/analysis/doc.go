// Package analysis orchestrates a full pipeline run for one video: transcript
// acquisition, concept extraction, specification building, and persistence of
// the analysis artifact.
package analysis
