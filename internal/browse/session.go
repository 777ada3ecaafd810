// Package browse keeps per-client browse sessions: a collection fetched once,
// the filter and sort applied to it and a chunk window over the result.
package browse

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/erazemk/sneakerdex/internal/catalog"
	"github.com/erazemk/sneakerdex/internal/model"
	"github.com/erazemk/sneakerdex/internal/window"
)

// Loader fetches the full collection of an owner.
type Loader func(ctx context.Context, ownerID int64) ([]model.Sneaker, error)

// Session is the view state of one client browsing one collection.
type Session struct {
	ID       string
	OwnerID  int64
	OpenedAt time.Time

	mu     sync.Mutex
	source []model.Sneaker
	filter catalog.FilterSpec
	sort   catalog.SortSpec
	unit   model.SizeUnit
	view   *catalog.View
	facets catalog.Facets
	result catalog.Result
	window *window.Window[model.Sneaker]

	stopOnce sync.Once
	stop     context.CancelFunc
}

// Page is what a client renders: the loaded part of the derived list plus
// enough state to draw filter controls and a scroll bar.
type Page struct {
	SessionID    string              `json:"session_id"`
	Filter       catalog.FilterSpec  `json:"filter"`
	FilterHash   string              `json:"filter_hash"`
	Sort         catalog.SortSpec    `json:"sort"`
	Unit         model.SizeUnit      `json:"unit"`
	Collection   int                 `json:"collection"`
	Total        int                 `json:"total"`
	Chunked      bool                `json:"chunked"`
	LoadedChunks int                 `json:"loaded_chunks"`
	Chunks       []window.ChunkState `json:"chunks,omitempty"`
	Degraded     bool                `json:"degraded,omitempty"`
	Facets       catalog.Facets      `json:"facets"`
	Items        []model.Sneaker     `json:"items"`
}

func sneakerID(s model.Sneaker) string { return s.ID }

func newSession(id string, ownerID int64, source []model.Sneaker, unit model.SizeUnit, cfg window.Config, logger *slog.Logger) *Session {
	s := &Session{
		ID:       id,
		OwnerID:  ownerID,
		OpenedAt: time.Now(),
		source:   source,
		filter:   catalog.FilterSpec{},
		sort:     catalog.DefaultSort,
		unit:     unit,
		view:     catalog.NewView(logger.With("session", id)),
		window:   window.New(cfg, sneakerID),
	}
	s.facets = catalog.UniqueValues(source, unit)
	s.derive()
	return s
}

// start runs background chunk cleanup until the session is stopped.
func (s *Session) start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	go s.window.Run(ctx)
}

func (s *Session) close() {
	s.stopOnce.Do(func() {
		if s.stop != nil {
			s.stop()
		}
	})
}

// derive refreshes the view and hands the result to the window. The caller
// holds s.mu.
func (s *Session) derive() {
	s.result = s.view.Refresh(s.source, s.filter, s.sort, s.unit)
	s.window.SetItems(s.result.Items)
}

// Apply changes the filter, sort and unit. Invalid input keeps the previous
// settings and returns a degraded page built from the last good list.
func (s *Session) Apply(filter catalog.FilterSpec, sort catalog.SortSpec, unit model.SizeUnit) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.view.Refresh(s.source, filter, sort, unit)
	if res.Degraded {
		s.result = res
		return s.page(), res.Err
	}

	if unit != s.unit {
		s.facets = catalog.UniqueValues(s.source, unit)
	}
	s.filter = filter
	s.sort = sort
	s.unit = unit
	s.result = res
	s.window.SetItems(res.Items)
	return s.page(), nil
}

// Scroll reports the visible range of the derived list and returns the
// resulting page.
func (s *Session) Scroll(first, last int) Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.window.Scroll(first, last)
	return s.page()
}

// Page returns the current page without changing anything.
func (s *Session) Page() Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page()
}

// Reload fetches the collection again, e.g. after it was edited.
func (s *Session) Reload(ctx context.Context, load Loader) error {
	source, err := load(ctx, s.OwnerID)
	if err != nil {
		return fmt.Errorf("reloading collection: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = source
	s.facets = catalog.UniqueValues(source, s.unit)
	s.view.Reset()
	s.derive()
	return nil
}

func (s *Session) page() Page {
	p := Page{
		SessionID:    s.ID,
		Filter:       s.filter,
		FilterHash:   fmt.Sprintf("%016x", s.filter.Hash()),
		Sort:         s.sort,
		Unit:         s.unit,
		Collection:   len(s.source),
		Total:        s.window.Total(),
		Chunked:      s.window.Enabled(),
		LoadedChunks: s.window.LoadedChunks(),
		Degraded:     s.result.Degraded,
		Facets:       s.facets,
		Items:        s.window.Visible(),
	}
	if p.Chunked {
		p.Chunks = s.window.Chunks()
	}
	if p.Items == nil {
		p.Items = []model.Sneaker{}
	}
	return p
}
