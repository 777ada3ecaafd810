package window

import (
	"context"
	"slices"
	"strconv"
	"testing"
	"time"
)

func ints(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func intID(v int) string { return strconv.Itoa(v) }

func newWindow(cfg Config, n int) *Window[int] {
	w := New(cfg, intID)
	w.SetItems(ints(n))
	return w
}

func TestBelowThresholdShowsEverything(t *testing.T) {
	w := newWindow(Config{ChunkSize: 10, Threshold: 20, MaxLoadedChunks: 2}, 19)
	if w.Enabled() {
		t.Fatal("expected chunking disabled below threshold")
	}
	w.Scroll(0, 3)
	if got := len(w.Visible()); got != 19 {
		t.Errorf("expected all 19 items visible, got %d", got)
	}
	if w.LoadedChunks() != 0 {
		t.Errorf("expected no chunk bookkeeping, got %d chunks", w.LoadedChunks())
	}
}

func TestEmptyList(t *testing.T) {
	w := newWindow(Config{ChunkSize: 10, Threshold: 20}, 0)
	w.Scroll(0, 10)
	if got := w.Visible(); len(got) != 0 {
		t.Errorf("expected empty visible set, got %v", got)
	}
	if w.Cleanup() != 0 {
		t.Error("expected cleanup to be a no-op")
	}
}

func TestScrollToEndLoadsAll(t *testing.T) {
	w := newWindow(Config{ChunkSize: 10, Threshold: 20, MaxLoadedChunks: 8}, 25)
	if !w.Enabled() {
		t.Fatal("expected chunking enabled")
	}
	if got := len(w.Visible()); got != 20 {
		t.Fatalf("expected initial visible count 20, got %d", got)
	}
	if w.Total() != 25 {
		t.Errorf("expected total 25, got %d", w.Total())
	}

	w.Scroll(20, 24)
	visible := w.Visible()
	if len(visible) != 25 {
		t.Fatalf("expected 25 visible after scrolling to the end, got %d", len(visible))
	}
	if !slices.Equal(visible, ints(25)) {
		t.Errorf("visible items out of order: %v", visible)
	}
}

func TestScrollForwardKeepsEarlierChunks(t *testing.T) {
	w := newWindow(Config{ChunkSize: 10, Threshold: 20, Buffer: 0}, 100)

	w.Scroll(40, 45)
	chunks := w.Chunks()
	for i, want := range []bool{true, true, false, false, true, false} {
		if chunks[i].Loaded != want {
			t.Errorf("chunk %d loaded = %v, want %v", i, chunks[i].Loaded, want)
		}
	}
	if got := len(w.Visible()); got != 30 {
		t.Errorf("expected 30 visible items, got %d", got)
	}
}

func TestBufferExtendsRequiredChunks(t *testing.T) {
	w := newWindow(Config{ChunkSize: 10, Threshold: 20, Buffer: 5}, 100)
	w.Scroll(52, 57)
	chunks := w.Chunks()
	if !chunks[4].Loaded || !chunks[5].Loaded || !chunks[6].Loaded {
		t.Errorf("expected chunks 4-6 loaded, got %+v", chunks[3:8])
	}
	if chunks[3].Loaded || chunks[7].Loaded {
		t.Errorf("expected chunks 3 and 7 unloaded, got %+v", chunks[3:8])
	}
}

func TestVisibleOrderIndependentOfLoadOrder(t *testing.T) {
	w := newWindow(Config{ChunkSize: 10, Threshold: 20}, 100)

	w.Scroll(70, 72)
	w.Scroll(30, 31)
	w.Scroll(50, 51)

	var want []int
	for _, c := range []int{0, 1, 3, 5, 7} {
		want = append(want, ints(100)[c*10:c*10+10]...)
	}
	if got := w.Visible(); !slices.Equal(got, want) {
		t.Errorf("got %v\nwant %v", got, want)
	}
}

func TestEvictionRespectsCapAndRecency(t *testing.T) {
	w := newWindow(Config{ChunkSize: 10, Threshold: 20, MaxLoadedChunks: 3}, 100)

	// Loaded: 0, 1 (initial). Access 1 again so 0 is the oldest.
	w.Scroll(10, 11)
	w.Scroll(30, 31) // 0, 1, 3
	w.Scroll(50, 51) // over cap: 0 evicted

	chunks := w.Chunks()
	if chunks[0].Loaded {
		t.Error("expected least recently accessed chunk 0 to be evicted")
	}
	for _, i := range []int{1, 3, 5} {
		if !chunks[i].Loaded {
			t.Errorf("expected chunk %d loaded", i)
		}
	}
	if w.LoadedChunks() != 3 {
		t.Errorf("expected 3 loaded chunks, got %d", w.LoadedChunks())
	}
}

func TestEvictionNeverDropsRequestedRange(t *testing.T) {
	w := newWindow(Config{ChunkSize: 10, Threshold: 20, MaxLoadedChunks: 2}, 100)

	// Near the end everything loads, then the cap trims back, but the
	// requested tail survives.
	w.Scroll(95, 99)
	chunks := w.Chunks()
	if !chunks[9].Loaded {
		t.Error("expected requested chunk 9 to stay loaded")
	}
	if w.LoadedChunks() != 2 {
		t.Errorf("expected cap of 2 loaded chunks, got %d", w.LoadedChunks())
	}

	// A requested range wider than the cap stays fully loaded.
	w.Scroll(20, 49)
	if got := w.LoadedChunks(); got != 3 {
		t.Errorf("expected 3 loaded chunks for a 3-chunk range, got %d", got)
	}
	visible := w.Visible()
	if visible[0] != 20 || visible[len(visible)-1] != 49 {
		t.Errorf("expected visible 20..49, got %d..%d", visible[0], visible[len(visible)-1])
	}
}

func TestCleanupTrimsToVisibleRange(t *testing.T) {
	w := newWindow(Config{ChunkSize: 10, Threshold: 20, MaxLoadedChunks: 2, Buffer: 10}, 100)

	// Buffer pulls in chunks 2 and 4 around visible chunk 3.
	w.Scroll(30, 39)
	if got := w.LoadedChunks(); got != 3 {
		t.Fatalf("expected 3 loaded chunks, got %d", got)
	}

	if n := w.Cleanup(); n != 1 {
		t.Errorf("expected cleanup to evict 1 chunk, got %d", n)
	}
	if !w.Chunks()[3].Loaded {
		t.Error("expected visible chunk 3 to survive cleanup")
	}
	if n := w.Cleanup(); n != 0 {
		t.Errorf("expected second cleanup to be a no-op, got %d", n)
	}
}

func TestRunCleansUpInBackground(t *testing.T) {
	w := newWindow(Config{ChunkSize: 10, Threshold: 20, MaxLoadedChunks: 2, Buffer: 10, CleanupInterval: time.Millisecond}, 100)
	w.Scroll(30, 39)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for w.LoadedChunks() > 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	if got := w.LoadedChunks(); got != 2 {
		t.Errorf("expected background cleanup to reach the cap, got %d chunks", got)
	}
}

func TestSetItemsInvalidatesOnContentChange(t *testing.T) {
	w := newWindow(Config{ChunkSize: 10, Threshold: 20}, 50)
	w.Scroll(45, 49)
	if got := len(w.Visible()); got != 50 {
		t.Fatalf("expected all 50 visible, got %d", got)
	}
	before := w.Chunks()[0].Key

	// Same list again: state kept.
	if w.SetItems(ints(50)) {
		t.Error("expected identical list not to re-partition")
	}
	if got := len(w.Visible()); got != 50 {
		t.Errorf("expected state kept, got %d visible", got)
	}

	// Same length, different content: chunks are new and the window restarts.
	reversed := ints(50)
	slices.Reverse(reversed)
	if !w.SetItems(reversed) {
		t.Fatal("expected re-partition for reordered list")
	}
	after := w.Chunks()[0].Key
	if after == before {
		t.Error("expected chunk identity to change with content")
	}
	if after.Start != before.Start || after.End != before.End {
		t.Errorf("expected same bounds, got %+v vs %+v", after, before)
	}
	if got := len(w.Visible()); got != 20 {
		t.Errorf("expected initial window of 20, got %d", got)
	}

	// Length change.
	if !w.SetItems(ints(30)) {
		t.Error("expected re-partition for length change")
	}
	if len(w.Chunks()) != 3 {
		t.Errorf("expected 3 chunks, got %d", len(w.Chunks()))
	}
}
