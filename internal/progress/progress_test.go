package progress

import (
	"fmt"
	"testing"
)

func TestHubBuffersAndEvicts(t *testing.T) {
	hub := NewHub(3)

	for i := 0; i < 5; i++ {
		hub.Publish(Event{Stage: StageCaptionFetch, VideoID: "vid", Message: fmt.Sprintf("event %d", i)})
	}

	snap := hub.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected buffer capped at 3, got %d", len(snap))
	}
	if snap[0].Message != "event 2" || snap[2].Message != "event 4" {
		t.Errorf("expected oldest events evicted, got %q..%q", snap[0].Message, snap[2].Message)
	}
}

func TestHubPublishNeverBlocks(t *testing.T) {
	hub := NewHub(4)
	// Subscriber with a tiny buffer that is never drained.
	hub.Subscribe(1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			hub.Publish(Event{Stage: StageFallback, VideoID: "vid"})
		}
	}()

	<-done
	if hub.Dropped() == 0 {
		t.Error("expected events to be dropped for the stalled subscriber")
	}
}

func TestHubSubscribeReceives(t *testing.T) {
	hub := NewHub(8)
	ch := hub.Subscribe(8)

	hub.Publish(Event{Stage: StageComplete, VideoID: "abc", Message: "done"})

	evt := <-ch
	if evt.Stage != StageComplete || evt.VideoID != "abc" {
		t.Errorf("unexpected event: %+v", evt)
	}
	if evt.Time.IsZero() {
		t.Error("Publish should stamp event time")
	}
}

func TestFanoutSkipsNil(t *testing.T) {
	hub := NewHub(2)
	f := Fanout{nil, hub, NewNop()}
	f.Publish(Event{Stage: StageBuilding, VideoID: "x"})
	if len(hub.Snapshot()) != 1 {
		t.Error("fanout should deliver to live reporters")
	}
}
