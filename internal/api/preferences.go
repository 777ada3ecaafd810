package api

import (
	"log/slog"
	"net/http"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"

	"github.com/erazemk/sneakerdex/internal/model"
	"github.com/erazemk/sneakerdex/internal/prefs"
)

// PreferencesHandler handles the preference endpoints.
type PreferencesHandler struct {
	Prefs *prefs.Service
}

// Get handles GET /api/preferences.
func (h *PreferencesHandler) Get(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, h.Prefs.Snapshot())
}

// Update handles PUT /api/preferences. Empty fields are left unchanged; the
// request is rejected as a whole if any value is invalid.
func (h *PreferencesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req prefs.Snapshot
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		unit model.SizeUnit
		cur  currency.Unit
		tag  language.Tag
		err  error
	)
	if req.SizeUnit != "" {
		if unit, err = h.Prefs.SizeUnit.Parse(req.SizeUnit); err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.Currency != "" {
		if cur, err = h.Prefs.Currency.Parse(req.Currency); err != nil {
			jsonError(w, http.StatusBadRequest, "unknown currency")
			return
		}
	}
	if req.Language != "" {
		if tag, err = h.Prefs.Language.Parse(req.Language); err != nil {
			jsonError(w, http.StatusBadRequest, "unknown language")
			return
		}
	}

	ctx := r.Context()
	if req.SizeUnit != "" {
		err = h.Prefs.SizeUnit.Set(ctx, unit)
	}
	if err == nil && req.Currency != "" {
		err = h.Prefs.Currency.Set(ctx, cur)
	}
	if err == nil && req.Language != "" {
		err = h.Prefs.Language.Set(ctx, tag)
	}
	if err != nil {
		slog.Error("failed to save preferences", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to save preferences")
		return
	}

	claims := GetClaims(ctx)
	snap := h.Prefs.Snapshot()
	slog.Info("preferences updated", "user", claims.Username, "size_unit", snap.SizeUnit, "currency", snap.Currency, "language", snap.Language)
	jsonResponse(w, http.StatusOK, snap)
}
