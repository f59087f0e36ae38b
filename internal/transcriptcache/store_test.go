package transcriptcache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tradescribe/internal/media"
)

func newTestStore(t *testing.T, maxEntries int) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "transcripts.db"), maxEntries, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testTranscript(videoID string, method media.Method) media.Transcript {
	return media.Transcript{
		Source:   media.VideoSource{ID: videoID, URL: "https://youtu.be/" + videoID},
		Method:   method,
		Language: "en",
		Segments: []media.Segment{
			{StartMS: 0, EndMS: 1500, Text: "stop loss two percent"},
			{StartMS: 1500, EndMS: 4000, Text: "fourteen period RSI"},
		},
		FetchedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestPutAndGetRoundTrip(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()

	want := testTranscript("vid00001", media.MethodCaption)
	if err := store.Put(ctx, want); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, hit, err := store.Get(ctx, "vid00001")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !hit {
		t.Fatal("expected cache hit")
	}
	if got.Method != media.MethodCaption {
		t.Errorf("method mismatch: %q", got.Method)
	}
	if got.Language != "en" {
		t.Errorf("language mismatch: %q", got.Language)
	}
	if len(got.Segments) != 2 || got.Segments[1].Text != "fourteen period RSI" {
		t.Errorf("segments mismatch: %+v", got.Segments)
	}
	if got.FullText() != want.FullText() {
		t.Errorf("full text mismatch: %q vs %q", got.FullText(), want.FullText())
	}
}

func TestGetMissReturnsNoError(t *testing.T) {
	store := newTestStore(t, 0)
	_, hit, err := store.Get(context.Background(), "never-stored")
	if err != nil {
		t.Fatalf("miss should not error: %v", err)
	}
	if hit {
		t.Fatal("expected miss")
	}
}

func TestPutOverwritesMethodUpgrade(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()

	if err := store.Put(ctx, testTranscript("vid00002", media.MethodSpeech)); err != nil {
		t.Fatalf("first Put: %v", err)
	}
	if err := store.Put(ctx, testTranscript("vid00002", media.MethodCaption)); err != nil {
		t.Fatalf("second Put: %v", err)
	}

	got, hit, err := store.Get(ctx, "vid00002")
	if err != nil || !hit {
		t.Fatalf("Get after overwrite: hit=%v err=%v", hit, err)
	}
	if got.Method != media.MethodCaption {
		t.Errorf("expected caption entry to replace speech entry, got %q", got.Method)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Errorf("overwrite should not create a second row, count=%d", count)
	}
}

func TestPutRejectsInvalidTranscript(t *testing.T) {
	store := newTestStore(t, 0)
	bad := testTranscript("vid00003", media.MethodCaption)
	bad.Segments[1].StartMS = 0 // duplicate start, violates ordering
	if err := store.Put(context.Background(), bad); err == nil {
		t.Fatal("Put should reject a transcript that fails validation")
	}
}

func TestPruneEvictsOldestFirst(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()

	for i, id := range []string{"old-vid", "mid-vid", "new-vid"} {
		tr := testTranscript(id, media.MethodCaption)
		if err := store.Put(ctx, tr); err != nil {
			t.Fatalf("Put %d: %v", i, err)
		}
		time.Sleep(2 * time.Millisecond) // distinct stored_at ordering
	}

	if err := store.Prune(ctx, 2); err != nil {
		t.Fatalf("Prune: %v", err)
	}

	if _, hit, _ := store.Get(ctx, "old-vid"); hit {
		t.Error("oldest entry should have been evicted")
	}
	for _, id := range []string{"mid-vid", "new-vid"} {
		if _, hit, _ := store.Get(ctx, id); !hit {
			t.Errorf("entry %q should have survived pruning", id)
		}
	}
}

func TestRemoveAndClear(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()

	if err := store.Put(ctx, testTranscript("vid00004", media.MethodCaption)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Remove(ctx, "vid00004"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := store.Remove(ctx, "vid00004"); err == nil {
		t.Error("removing a missing entry should report an error")
	}

	if err := store.Put(ctx, testTranscript("vid00005", media.MethodSpeech)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	count, _ := store.Count(ctx)
	if count != 0 {
		t.Errorf("expected empty cache after Clear, count=%d", count)
	}
}

func TestListNewestFirst(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()

	for _, id := range []string{"first-vid", "second-vid"} {
		if err := store.Put(ctx, testTranscript(id, media.MethodCaption)); err != nil {
			t.Fatalf("Put: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	summaries, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	if summaries[0].VideoID != "second-vid" {
		t.Errorf("expected newest first, got %q", summaries[0].VideoID)
	}
	if summaries[0].SegmentCount != 2 {
		t.Errorf("segment count mismatch: %d", summaries[0].SegmentCount)
	}
}
