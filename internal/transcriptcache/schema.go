package transcriptcache

const schema = `
CREATE TABLE IF NOT EXISTS transcripts (
    video_id      TEXT PRIMARY KEY,
    url           TEXT NOT NULL,
    method        TEXT NOT NULL,
    language      TEXT NOT NULL DEFAULT '',
    segments_json TEXT NOT NULL,
    fetched_at    TEXT NOT NULL,
    stored_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transcripts_stored_at ON transcripts(stored_at);
`
