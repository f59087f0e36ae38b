// Package transcriptcache is the durable transcript store, keyed by platform
// video ID. Transcripts of published videos are immutable, so entries never
// expire; a later acquisition simply overwrites the prior entry so a hit
// always represents the best transcript obtained so far.
package transcriptcache
