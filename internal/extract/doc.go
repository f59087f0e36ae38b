// Package extract scans normalized transcripts for trading strategy
// vocabulary and emits candidate concepts with confidence scores and
// segment-level provenance. The vocabulary lives in a declarative lexicon;
// recognizing a new indicator or rule means adding a table entry, not code.
package extract
