package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/erazemk/sneakerdex/internal/browse"
	"github.com/erazemk/sneakerdex/internal/catalog"
	"github.com/erazemk/sneakerdex/internal/model"
	"github.com/erazemk/sneakerdex/internal/prefs"
)

// BrowseHandler handles browse session endpoints.
type BrowseHandler struct {
	Browse *browse.Manager
	Prefs  *prefs.Service
}

// viewRequest sets the filter, sort and unit of a session. Omitted parts
// take their defaults.
type viewRequest struct {
	Filter catalog.FilterSpec `json:"filter"`
	Sort   catalog.SortSpec   `json:"sort"`
	Unit   string             `json:"unit"`
}

type scrollRequest struct {
	First int `json:"first"`
	Last  int `json:"last"`
}

func (h *BrowseHandler) parseView(req viewRequest) (catalog.SortSpec, model.SizeUnit, error) {
	sortSpec, err := catalog.ParseSortSpec(string(req.Sort.Key), string(req.Sort.Dir))
	if err != nil {
		return sortSpec, "", err
	}
	unit := h.Prefs.SizeUnit.Get()
	if req.Unit != "" {
		if unit, err = model.ParseSizeUnit(req.Unit); err != nil {
			return sortSpec, "", err
		}
	}
	return sortSpec, unit, req.Filter.Validate()
}

// Open handles POST /api/browse.
func (h *BrowseHandler) Open(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req viewRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sortSpec, unit, err := h.parseView(req)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	s, err := h.Browse.Open(r.Context(), claims.UserID, unit)
	if err != nil {
		slog.Error("failed to open browse session", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to open browse session")
		return
	}
	page, err := s.Apply(req.Filter, sortSpec, unit)
	if err != nil {
		slog.Warn("browse session view rejected", "session", s.ID, "error", err)
	}
	jsonResponse(w, http.StatusCreated, page)
}

func (h *BrowseHandler) session(w http.ResponseWriter, r *http.Request) (*browse.Session, bool) {
	claims := GetClaims(r.Context())
	s, err := h.Browse.Get(r.PathValue("id"), claims.UserID)
	if err != nil {
		jsonError(w, http.StatusNotFound, "browse session not found")
		return nil, false
	}
	return s, true
}

// Get handles GET /api/browse/{id}.
func (h *BrowseHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, s.Page())
}

// Update handles PUT /api/browse/{id}.
func (h *BrowseHandler) Update(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req viewRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sortSpec, unit, err := h.parseView(req)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := s.Apply(req.Filter, sortSpec, unit)
	var derr *catalog.DerivationError
	if errors.As(err, &derr) {
		jsonError(w, http.StatusBadRequest, derr.Error())
		return
	}
	jsonResponse(w, http.StatusOK, page)
}

// Scroll handles POST /api/browse/{id}/scroll.
func (h *BrowseHandler) Scroll(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req scrollRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.First < 0 || req.Last < 0 {
		jsonError(w, http.StatusBadRequest, "invalid range")
		return
	}
	jsonResponse(w, http.StatusOK, s.Scroll(req.First, req.Last))
}

// Close handles DELETE /api/browse/{id}.
func (h *BrowseHandler) Close(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if err := h.Browse.Close(r.PathValue("id"), claims.UserID); err != nil {
		jsonError(w, http.StatusNotFound, "browse session not found")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "browse session closed"})
}
