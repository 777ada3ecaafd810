package api

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/schema"

	"github.com/erazemk/sneakerdex/internal/browse"
	"github.com/erazemk/sneakerdex/internal/catalog"
	"github.com/erazemk/sneakerdex/internal/form"
	"github.com/erazemk/sneakerdex/internal/model"
	"github.com/erazemk/sneakerdex/internal/prefs"
	"github.com/erazemk/sneakerdex/internal/store"
)

// SneakersHandler handles the collection endpoints. Every request acts on
// the collection of the authenticated user.
type SneakersHandler struct {
	DB      *sql.DB
	Prefs   *prefs.Service
	Browse  *browse.Manager
	decoder *schema.Decoder
}

// NewSneakersHandler creates a sneakers handler.
func NewSneakersHandler(db *sql.DB, p *prefs.Service, b *browse.Manager) *SneakersHandler {
	dec := schema.NewDecoder()
	dec.IgnoreUnknownKeys(true)
	return &SneakersHandler{DB: db, Prefs: p, Browse: b, decoder: dec}
}

// viewQuery holds the non-filter query parameters of list requests.
type viewQuery struct {
	Sort string `schema:"sort"`
	Dir  string `schema:"dir"`
	Unit string `schema:"unit"`
}

type validateRequest struct {
	Field  string         `json:"field"`
	Values map[string]any `json:"values"`
}

type validateResponse struct {
	Field string `json:"field"`
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

type summaryResponse struct {
	catalog.Summary
	Currency  string            `json:"currency"`
	Formatted map[string]string `json:"formatted"`
}

// parseView decodes the filter, sort and unit of a list request. A missing
// unit means the preferred unit.
func (h *SneakersHandler) parseView(r *http.Request) (catalog.FilterSpec, catalog.SortSpec, model.SizeUnit, error) {
	query := r.URL.Query()

	var filter catalog.FilterSpec
	if err := h.decoder.Decode(&filter, query); err != nil {
		return filter, catalog.SortSpec{}, "", err
	}
	var vq viewQuery
	if err := h.decoder.Decode(&vq, query); err != nil {
		return filter, catalog.SortSpec{}, "", err
	}

	sortSpec, err := catalog.ParseSortSpec(vq.Sort, vq.Dir)
	if err != nil {
		return filter, sortSpec, "", err
	}
	unit := h.Prefs.SizeUnit.Get()
	if vq.Unit != "" {
		if unit, err = model.ParseSizeUnit(vq.Unit); err != nil {
			return filter, sortSpec, "", err
		}
	}
	if err := filter.Validate(); err != nil {
		return filter, sortSpec, unit, err
	}
	return filter, sortSpec, unit, nil
}

func (h *SneakersHandler) collection(w http.ResponseWriter, r *http.Request) ([]model.Sneaker, bool) {
	claims := GetClaims(r.Context())
	items, err := store.ListSneakers(r.Context(), h.DB, claims.UserID)
	if err != nil {
		slog.Error("failed to list sneakers", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list sneakers")
		return nil, false
	}
	return items, true
}

// List handles GET /api/sneakers.
func (h *SneakersHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, sortSpec, unit, err := h.parseView(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, ok := h.collection(w, r)
	if !ok {
		return
	}

	derived, err := catalog.Derive(items, filter, sortSpec, unit)
	if err != nil {
		slog.Warn("sneaker list derivation failed", "error", err)
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if derived == nil {
		derived = []model.Sneaker{}
	}
	jsonResponse(w, http.StatusOK, derived)
}

// Facets handles GET /api/sneakers/facets.
func (h *SneakersHandler) Facets(w http.ResponseWriter, r *http.Request) {
	unit := h.Prefs.SizeUnit.Get()
	if raw := r.URL.Query().Get("unit"); raw != "" {
		u, err := model.ParseSizeUnit(raw)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		unit = u
	}
	items, ok := h.collection(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, catalog.UniqueValues(items, unit))
}

// Summary handles GET /api/sneakers/summary. The filter query parameters of
// List narrow what is summed.
func (h *SneakersHandler) Summary(w http.ResponseWriter, r *http.Request) {
	filter, _, unit, err := h.parseView(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, ok := h.collection(w, r)
	if !ok {
		return
	}

	sum := catalog.Summarize(catalog.Filter(items, filter, unit))
	jsonResponse(w, http.StatusOK, summaryResponse{
		Summary:  sum,
		Currency: h.Prefs.Currency.Get().String(),
		Formatted: map[string]string{
			"total_paid":      h.Prefs.FormatMoney(sum.TotalPaid),
			"total_value":     h.Prefs.FormatMoney(sum.TotalValue),
			"unrealized_gain": h.Prefs.FormatMoney(sum.UnrealizedGain),
		},
	})
}

// Get handles GET /api/sneakers/{id}.
func (h *SneakersHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	s, err := store.GetSneaker(r.Context(), h.DB, claims.UserID, r.PathValue("id"))
	if err != nil {
		slog.Error("failed to get sneaker", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get sneaker")
		return
	}
	if s == nil {
		jsonError(w, http.StatusNotFound, "sneaker not found")
		return
	}
	jsonResponse(w, http.StatusOK, s)
}

// Create handles POST /api/sneakers.
func (h *SneakersHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	values, err := decodeValues(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	normalizeValues(values)

	fc, err := newSneakerForm(h.DB, form.ModeCreate, nil, claims.UserID, "")
	if err != nil {
		slog.Error("failed to build sneaker form", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	fc.SetValues(values)

	var created *model.Sneaker
	err = fc.Submit(r.Context(), func(ctx context.Context, data map[string]any) error {
		s := &model.Sneaker{OwnerID: claims.UserID}
		if err := applyValues(s, data, h.Prefs.SizeUnit.Get()); err != nil {
			fc.SetExternalError(err.Error())
			return errBadInput
		}
		var err error
		created, err = store.CreateSneaker(ctx, h.DB, s)
		return err
	})
	if !h.submitted(w, fc, err) {
		return
	}

	slog.Info("sneaker created", "user", claims.Username, "sneaker", created.ID, "brand", created.Brand, "model", created.Model)
	h.reloadSessions(r.Context(), claims.UserID)
	jsonResponse(w, http.StatusCreated, created)
}

// Update handles PUT /api/sneakers/{id}. Fields missing from the body keep
// their stored values.
func (h *SneakersHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	existing, err := store.GetSneaker(r.Context(), h.DB, claims.UserID, r.PathValue("id"))
	if err != nil {
		slog.Error("failed to get sneaker", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get sneaker")
		return
	}
	if existing == nil {
		jsonError(w, http.StatusNotFound, "sneaker not found")
		return
	}

	values, err := decodeValues(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	normalizeValues(values)

	unit := editUnit(values, h.Prefs.SizeUnit.Get())
	fc, err := newSneakerForm(h.DB, form.ModeEdit, sneakerValues(existing, unit), claims.UserID, existing.ID)
	if err != nil {
		slog.Error("failed to build sneaker form", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	fc.SetValues(values)

	updated := *existing
	err = fc.Submit(r.Context(), func(ctx context.Context, data map[string]any) error {
		if err := applyValues(&updated, data, unit); err != nil {
			fc.SetExternalError(err.Error())
			return errBadInput
		}
		return store.UpdateSneaker(ctx, h.DB, &updated)
	})
	if !h.submitted(w, fc, err) {
		return
	}

	s, err := store.GetSneaker(r.Context(), h.DB, claims.UserID, existing.ID)
	if err != nil || s == nil {
		slog.Error("failed to reload sneaker", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get sneaker")
		return
	}
	slog.Info("sneaker updated", "user", claims.Username, "sneaker", s.ID)
	h.reloadSessions(r.Context(), claims.UserID)
	jsonResponse(w, http.StatusOK, s)
}

// Delete handles DELETE /api/sneakers/{id}.
func (h *SneakersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	id := r.PathValue("id")
	if err := store.DeleteSneaker(r.Context(), h.DB, claims.UserID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, http.StatusNotFound, "sneaker not found")
			return
		}
		slog.Error("failed to delete sneaker", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete sneaker")
		return
	}

	slog.Info("sneaker deleted", "user", claims.Username, "sneaker", id)
	h.reloadSessions(r.Context(), claims.UserID)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "sneaker deleted"})
}

// Validate handles POST /api/sneakers/validate: the check a client runs when
// a field loses focus. When the body names an "id", the field is checked as
// part of editing that sneaker.
func (h *SneakersHandler) Validate(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	var req validateRequest
	if err := decodeJSON(r, &req); err != nil || req.Field == "" {
		jsonError(w, http.StatusBadRequest, "field required")
		return
	}
	if req.Values == nil {
		req.Values = map[string]any{}
	}
	normalizeValues(req.Values)

	excludeID, _ := req.Values["id"].(string)
	delete(req.Values, "id")

	fc, err := newSneakerForm(h.DB, form.ModeCreate, nil, claims.UserID, excludeID)
	if err != nil {
		slog.Error("failed to build sneaker form", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	fc.SetValues(req.Values)
	fc.Focus(req.Field)
	if err := fc.Blur(r.Context(), req.Field); err != nil {
		slog.Error("field validation failed", "field", req.Field, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to validate field")
		return
	}

	jsonResponse(w, http.StatusOK, validateResponse{
		Field: req.Field,
		State: fc.State(req.Field).String(),
		Error: fc.FieldError(req.Field),
	})
}

// errBadInput marks a submission rejected while converting valid form data,
// with the reason set as the form's external error.
var errBadInput = errors.New("bad input")

// submitted writes the error response for a failed submission and reports
// whether the submission succeeded.
func (h *SneakersHandler) submitted(w http.ResponseWriter, fc *form.Controller, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, form.ErrInvalid), errors.Is(err, errBadInput):
		jsonResponse(w, http.StatusUnprocessableEntity, formErrorResponse{
			Error:  fc.DisplayedError(),
			Fields: fc.Errors(),
		})
	case errors.Is(err, form.ErrNoChanges):
		jsonError(w, http.StatusUnprocessableEntity, "no changes")
	case isUniqueViolation(err):
		jsonResponse(w, http.StatusConflict, formErrorResponse{
			Error:  styleCodeTakenMessage,
			Fields: map[string]string{"style_code": styleCodeTakenMessage},
		})
	default:
		slog.Error("failed to save sneaker", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to save sneaker")
	}
	return false
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (h *SneakersHandler) reloadSessions(ctx context.Context, ownerID int64) {
	if h.Browse == nil {
		return
	}
	if err := h.Browse.Reload(ctx, ownerID); err != nil {
		slog.Warn("failed to reload browse sessions", "owner_id", ownerID, "error", err)
	}
}
