package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"feestplanner/internal/budget"
	"feestplanner/internal/catalog"
	"feestplanner/internal/interaction"
	"feestplanner/internal/planner"
)

type apiHandler struct {
	planner     *planner.Service
	ledgerTitle string
	logger      zerolog.Logger
}

func (h *apiHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/clients/{clientID}", func(r chi.Router) {
		r.Get("/vendors", h.listVendors)
		r.Get("/vendors/{vendorID}", h.getVendor)
		r.Post("/vendors/{vendorID}/favorite", h.toggleFavorite)
		r.Post("/vendors/{vendorID}/budget", h.addVendorToBudget)
		r.Post("/vendors/{vendorID}/rating", h.rateVendor)
		r.Get("/categories", h.listCategories)
		r.Get("/budget", h.getBudget)
		r.Get("/budget/export", h.exportBudget)
		r.Post("/budget/items", h.addBudgetItem)
		r.Delete("/budget/items/{itemID}", h.deleteBudgetItem)
	})
}

type budgetResponse struct {
	Items []budget.Item `json:"items"`
	Total float64       `json:"total"`
}

type addItemRequest struct {
	Name string      `json:"name"`
	Cost json.Number `json:"cost"`
}

type rateRequest struct {
	Vote int `json:"vote"`
}

type favoriteResponse struct {
	Favorite bool `json:"favorite"`
}

type rateResponse struct {
	Vote          int     `json:"vote"`
	DisplayRating float64 `json:"displayRating"`
	Accepted      bool    `json:"accepted"`
}

type addVendorResponse struct {
	Item  budget.Item `json:"item"`
	Added bool        `json:"added"`
}

// parseQuery maps the list parameters onto a catalog query. Missing values
// keep the defaults.
func parseQuery(r *http.Request) (catalog.Query, error) {
	q := catalog.DefaultQuery()
	v := r.URL.Query()
	q.Search = strings.TrimSpace(v.Get("q"))
	if c := strings.TrimSpace(v.Get("category")); c != "" {
		q.Category = c
	}
	if raw := strings.TrimSpace(v.Get("max_price")); raw != "" {
		p, err := strconv.ParseFloat(raw, 64)
		if err != nil || p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return q, errors.New("max_price must be a non-negative number")
		}
		q.MaxPrice = p
	}
	q.SharedID = strings.TrimSpace(v.Get("id"))
	return q, nil
}

func (h *apiHandler) listVendors(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var views []planner.VendorView
	h.do(w, r, func(_ context.Context, ws *planner.Workspace) error {
		views = ws.Browse(q)
		return nil
	}, func() { respond(w, http.StatusOK, views) })
}

func (h *apiHandler) getVendor(w http.ResponseWriter, r *http.Request) {
	var view planner.VendorView
	h.do(w, r, func(_ context.Context, ws *planner.Workspace) error {
		var err error
		view, err = ws.Vendor(chi.URLParam(r, "vendorID"))
		return err
	}, func() { respond(w, http.StatusOK, view) })
}

func (h *apiHandler) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	var fav bool
	h.do(w, r, func(ctx context.Context, ws *planner.Workspace) error {
		var err error
		fav, err = ws.ToggleFavorite(ctx, chi.URLParam(r, "vendorID"))
		return err
	}, func() { respond(w, http.StatusOK, favoriteResponse{Favorite: fav}) })
}

func (h *apiHandler) addVendorToBudget(w http.ResponseWriter, r *http.Request) {
	var resp addVendorResponse
	h.do(w, r, func(ctx context.Context, ws *planner.Workspace) error {
		var err error
		resp.Item, resp.Added, err = ws.AddToBudget(ctx, chi.URLParam(r, "vendorID"))
		return err
	}, func() {
		status := http.StatusOK
		if resp.Added {
			status = http.StatusCreated
		}
		respond(w, status, resp)
	})
}

func (h *apiHandler) rateVendor(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	var res interaction.RateResult
	h.do(w, r, func(ctx context.Context, ws *planner.Workspace) error {
		var err error
		res, err = ws.Rate(ctx, chi.URLParam(r, "vendorID"), req.Vote)
		return err
	}, func() {
		respond(w, http.StatusOK, rateResponse{
			Vote:          res.Vote,
			DisplayRating: interaction.RoundRating(res.Display),
			Accepted:      res.Accepted,
		})
	})
}

func (h *apiHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	var cats []string
	h.do(w, r, func(_ context.Context, ws *planner.Workspace) error {
		cats = ws.Categories()
		return nil
	}, func() { respond(w, http.StatusOK, cats) })
}

func (h *apiHandler) getBudget(w http.ResponseWriter, r *http.Request) {
	var resp budgetResponse
	h.do(w, r, func(_ context.Context, ws *planner.Workspace) error {
		resp.Items = ws.Ledger.Items()
		resp.Total = ws.Ledger.Total()
		return nil
	}, func() { respond(w, http.StatusOK, resp) })
}

func (h *apiHandler) exportBudget(w http.ResponseWriter, r *http.Request) {
	var text string
	h.do(w, r, func(_ context.Context, ws *planner.Workspace) error {
		text = ws.Ledger.ExportText(h.ledgerTitle)
		return nil
	}, func() {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+budget.ExportName+`"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(text))
	})
}

func (h *apiHandler) addBudgetItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	var item budget.Item
	h.do(w, r, func(ctx context.Context, ws *planner.Workspace) error {
		var err error
		item, err = ws.AddManualItem(ctx, req.Name, req.Cost.String())
		return err
	}, func() { respond(w, http.StatusCreated, item) })
}

func (h *apiHandler) deleteBudgetItem(w http.ResponseWriter, r *http.Request) {
	var removed bool
	h.do(w, r, func(ctx context.Context, ws *planner.Workspace) error {
		var err error
		removed, err = ws.Ledger.Remove(ctx, chi.URLParam(r, "itemID"))
		return err
	}, func() {
		if !removed {
			writeError(w, http.StatusNotFound, "budget item not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

// do runs fn in the client's workspace and calls ok on success. Domain errors
// become 4xx responses.
func (h *apiHandler) do(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, ws *planner.Workspace) error, ok func()) {
	clientID := strings.TrimSpace(chi.URLParam(r, "clientID"))
	if clientID == "" {
		writeError(w, http.StatusBadRequest, "client id is required")
		return
	}
	err := h.planner.Do(r.Context(), clientID, fn)
	if err == nil {
		ok()
		return
	}
	switch {
	case errors.Is(err, planner.ErrVendorNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, budget.ErrInvalidName),
		errors.Is(err, budget.ErrInvalidCost),
		errors.Is(err, interaction.ErrInvalidVote):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error().Err(err).Str("client_id", clientID).Str("path", r.URL.Path).Msg("api request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respond(w, status, map[string]string{"error": msg})
}
