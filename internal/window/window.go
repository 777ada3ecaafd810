// Package window bounds how much of a long list is materialised at once. A
// list at or above the chunking threshold is split into fixed-size chunks and
// only the chunks around the reported scroll position are kept loaded.
package window

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// Config tunes chunking.
type Config struct {
	// ChunkSize is the number of items per chunk.
	ChunkSize int
	// Threshold is the list length at which chunking engages.
	Threshold int
	// MaxLoadedChunks caps loaded chunks. Zero or less means no cap.
	MaxLoadedChunks int
	// Buffer is the number of items loaded on each side of the visible range.
	Buffer int
	// CleanupInterval is how often Run trims chunks over the cap.
	CleanupInterval time.Duration
}

// DefaultConfig returns the settings used by browse sessions.
func DefaultConfig() Config {
	return Config{
		ChunkSize:       50,
		Threshold:       200,
		MaxLoadedChunks: 8,
		Buffer:          25,
		CleanupInterval: 30 * time.Second,
	}
}

func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.ChunkSize <= 0 {
		c.ChunkSize = def.ChunkSize
	}
	if c.Threshold <= 0 {
		c.Threshold = def.Threshold
	}
	// The initial window is two chunks wide.
	if c.MaxLoadedChunks > 0 && c.MaxLoadedChunks < 2 {
		c.MaxLoadedChunks = 2
	}
	if c.Buffer < 0 {
		c.Buffer = 0
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = def.CleanupInterval
	}
	return c
}

// ChunkKey identifies a chunk. Salt is a digest of the item ids of the whole
// list, so chunks of a different list never share a key even when their
// bounds match.
type ChunkKey struct {
	Start int
	End   int
	Salt  uint64
}

// ChunkState describes one chunk for inspection.
type ChunkState struct {
	Key    ChunkKey `json:"key"`
	Loaded bool     `json:"loaded"`
}

// span is an inclusive range of chunk indexes.
type span struct {
	lo, hi int
}

func (s span) contains(i int) bool { return i >= s.lo && i <= s.hi }

// Window tracks which chunks of a list are loaded. It is safe for concurrent
// use so that Run can trim it in the background.
type Window[T any] struct {
	mu     sync.Mutex
	cfg    Config
	id     func(T) string
	items  []T
	salt   uint64
	ready  bool
	chunks []ChunkKey
	// loaded holds the loaded chunks, least recently accessed first.
	loaded *simplelru.LRU[ChunkKey, struct{}]
	// required is the last requested range including the buffer; visible is
	// the same range without it.
	required span
	visible  span
}

// New creates an empty window. id returns a stable identity for an item and
// is used to detect when the list content changes.
func New[T any](cfg Config, id func(T) string) *Window[T] {
	return &Window[T]{cfg: cfg.normalize(), id: id}
}

// Config returns the effective configuration.
func (w *Window[T]) Config() Config {
	return w.cfg
}

// SetItems replaces the list. When its length or content differs from the
// current list all chunks are discarded and the initial window is loaded
// again. It reports whether the list was re-partitioned.
func (w *Window[T]) SetItems(items []T) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	salt := w.digest(items)
	if w.ready && len(items) == len(w.items) && salt == w.salt {
		w.items = items
		return false
	}

	w.items = items
	w.salt = salt
	w.ready = true
	w.partition()
	slog.Debug("window re-partitioned", "items", len(items), "chunks", len(w.chunks), "enabled", w.enabled())
	return true
}

func (w *Window[T]) digest(items []T) uint64 {
	d := xxhash.New()
	for _, item := range items {
		d.WriteString(w.id(item))
		d.Write([]byte{0})
	}
	return d.Sum64()
}

func (w *Window[T]) partition() {
	w.chunks = w.chunks[:0]
	w.loaded = nil
	if !w.enabled() {
		return
	}

	size := w.cfg.ChunkSize
	for start := 0; start < len(w.items); start += size {
		w.chunks = append(w.chunks, ChunkKey{Start: start, End: min(start+size, len(w.items)), Salt: w.salt})
	}

	// The capacity covers every chunk so the cache never evicts on its own.
	w.loaded, _ = simplelru.NewLRU[ChunkKey, struct{}](len(w.chunks), nil)

	initial := span{lo: 0, hi: min(1, len(w.chunks)-1)}
	for i := initial.lo; i <= initial.hi; i++ {
		w.loaded.Add(w.chunks[i], struct{}{})
	}
	w.required = initial
	w.visible = initial
}

func (w *Window[T]) enabled() bool {
	return len(w.items) > 0 && len(w.items) >= w.cfg.Threshold
}

// Enabled reports whether chunking is active for the current list.
func (w *Window[T]) Enabled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enabled()
}

// Total returns the length of the full list, loaded or not.
func (w *Window[T]) Total() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.items)
}

// LoadedChunks returns the number of loaded chunks.
func (w *Window[T]) LoadedChunks() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.loaded == nil {
		return 0
	}
	return w.loaded.Len()
}

// Chunks lists every chunk in list order.
func (w *Window[T]) Chunks() []ChunkState {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]ChunkState, len(w.chunks))
	for i, key := range w.chunks {
		out[i] = ChunkState{Key: key, Loaded: w.loaded.Contains(key)}
	}
	return out
}

// Scroll reports the visible item range [first, last]. The chunks covering
// that range plus the buffer are loaded. When last is within one chunk of
// the end of the list every chunk is loaded. Chunks over the cap are then
// evicted, least recently accessed first, never touching the requested range.
func (w *Window[T]) Scroll(first, last int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	total := len(w.items)
	if !w.enabled() || total == 0 {
		return
	}
	if last < first {
		first, last = last, first
	}
	first = clamp(first, 0, total-1)
	last = clamp(last, 0, total-1)

	size := w.cfg.ChunkSize
	w.visible = span{lo: first / size, hi: last / size}
	w.required = span{
		lo: max(0, first-w.cfg.Buffer) / size,
		hi: min(total-1, last+w.cfg.Buffer) / size,
	}

	if last >= total-size {
		for _, key := range w.chunks {
			w.loaded.Add(key, struct{}{})
		}
	}
	// Touch the requested chunks last so they are the most recently accessed.
	for i := w.required.lo; i <= w.required.hi; i++ {
		w.loaded.Add(w.chunks[i], struct{}{})
	}

	w.evict(w.required)
}

// evict drops least recently accessed chunks outside keep until the cap is
// met or only kept chunks remain. It returns the number of evicted chunks.
func (w *Window[T]) evict(keep span) int {
	limit := w.cfg.MaxLoadedChunks
	if limit <= 0 || w.loaded == nil {
		return 0
	}
	evicted := 0
	for _, key := range w.loaded.Keys() {
		if w.loaded.Len() <= limit {
			break
		}
		if keep.contains(key.Start / w.cfg.ChunkSize) {
			continue
		}
		w.loaded.Remove(key)
		evicted++
	}
	return evicted
}

// Cleanup trims loaded chunks down to the cap, keeping only the chunks of the
// last visible range safe. It is a no-op while chunking is disabled or the
// cap is not exceeded.
func (w *Window[T]) Cleanup() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.enabled() || w.cfg.MaxLoadedChunks <= 0 || w.loaded.Len() <= w.cfg.MaxLoadedChunks {
		return 0
	}
	n := w.evict(w.visible)
	if n > 0 {
		slog.Debug("window cleanup evicted chunks", "evicted", n, "loaded", w.loaded.Len())
	}
	return n
}

// Run calls Cleanup every CleanupInterval until ctx is done.
func (w *Window[T]) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Cleanup()
		}
	}
}

// Visible returns the items of all loaded chunks in list order. While
// chunking is disabled it returns the whole list.
func (w *Window[T]) Visible() []T {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.enabled() {
		return slices.Clone(w.items)
	}

	keys := w.loaded.Keys()
	slices.SortFunc(keys, func(a, b ChunkKey) int { return a.Start - b.Start })

	n := 0
	for _, k := range keys {
		n += k.End - k.Start
	}
	out := make([]T, 0, n)
	for _, k := range keys {
		out = append(out, w.items[k.Start:k.End]...)
	}
	return out
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
