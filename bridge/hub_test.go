package bridge

import (
	"testing"

	"docview/scanner"
)

func TestHubFiltersByScanID(t *testing.T) {
	hub := NewHub(4)
	all := hub.Subscribe("")
	only := hub.Subscribe("b")
	defer hub.Unsubscribe(all)
	defer hub.Unsubscribe(only)

	hub.Emit(scanner.ProgressEvent, scanner.Progress{ScanID: "a", Stage: scanner.StageStart})
	hub.Emit(scanner.ProgressEvent, scanner.Progress{ScanID: "b", Stage: scanner.StageStart})

	if got := len(all.C()); got != 2 {
		t.Fatalf("unfiltered listener got %d frames, want 2", got)
	}
	if got := len(only.C()); got != 1 {
		t.Fatalf("filtered listener got %d frames, want 1", got)
	}
	frame := <-only.C()
	if frame.Event != scanner.ProgressEvent || frame.Progress.ScanID != "b" {
		t.Fatalf("unexpected frame %+v", frame)
	}
}

func TestHubNeverBlocks(t *testing.T) {
	hub := NewHub(1)
	sub := hub.Subscribe("")
	for i := 0; i < 100; i++ {
		hub.Emit(scanner.ProgressEvent, scanner.Progress{Stage: scanner.StageProgress, ScannedFiles: uint64(i)})
	}
	if got := len(sub.C()); got != 1 {
		t.Fatalf("expected a full buffer of 1, got %d", got)
	}
	hub.Unsubscribe(sub)
	if hub.Len() != 0 {
		t.Fatalf("expected no listeners, got %d", hub.Len())
	}
	hub.Emit(scanner.ProgressEvent, scanner.Progress{Stage: scanner.StageDone})
}

func TestHubCloseEndsSubscriptions(t *testing.T) {
	hub := NewHub(0)
	sub := hub.Subscribe("")
	hub.Close()
	if _, ok := <-sub.C(); ok {
		t.Fatal("expected closed channel after hub close")
	}
	// Unsubscribing after Close must not panic.
	hub.Unsubscribe(sub)
}
