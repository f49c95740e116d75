package planner

import (
	"context"
	"errors"

	"feestplanner/internal/budget"
	"feestplanner/internal/catalog"
	"feestplanner/internal/interaction"
)

var ErrVendorNotFound = interaction.ErrVendorNotFound

// Workspace is the opened state of one client. It is only valid inside the
// Do callback that produced it.
type Workspace struct {
	ClientID string
	Catalog  *catalog.Store
	Ledger   *budget.Ledger
	State    *interaction.State

	svc *Service
}

// VendorView is a vendor as shown to the client, with its per-client marks.
type VendorView struct {
	catalog.Vendor
	Favorite      bool    `json:"favorite"`
	InBudget      bool    `json:"inBudget"`
	DisplayRating float64 `json:"displayRating"`
	UserVote      int     `json:"userVote,omitempty"`
}

func (ws *Workspace) Browse(q catalog.Query) []VendorView {
	vendors := catalog.Filter(ws.Catalog.List(), q)
	out := make([]VendorView, 0, len(vendors))
	for _, v := range vendors {
		out = append(out, ws.view(v))
	}
	return out
}

func (ws *Workspace) Vendor(id string) (VendorView, error) {
	v, ok := ws.Catalog.Get(id)
	if !ok {
		return VendorView{}, ErrVendorNotFound
	}
	return ws.view(v), nil
}

func (ws *Workspace) FavoriteViews() []VendorView {
	vendors := ws.State.FavoriteVendors(ws.Catalog.List())
	out := make([]VendorView, 0, len(vendors))
	for _, v := range vendors {
		out = append(out, ws.view(v))
	}
	return out
}

func (ws *Workspace) Categories() []string {
	return catalog.Categories(ws.Catalog.List())
}

func (ws *Workspace) AddVendor(ctx context.Context, d catalog.Draft) (catalog.Vendor, error) {
	v, err := d.Build(ws.svc.now())
	if err != nil {
		return catalog.Vendor{}, err
	}
	if err := ws.Catalog.Add(ctx, v); err != nil {
		return catalog.Vendor{}, err
	}
	ws.svc.metrics.VendorsAdded.Inc()
	ws.svc.logger.Info().Str("client_id", ws.ClientID).Str("vendor_id", v.ID).Msg("vendor added")
	return v, nil
}

func (ws *Workspace) DeleteVendor(ctx context.Context, id string, confirmed bool) (catalog.Vendor, error) {
	v, err := interaction.Delete(ctx, ws.Catalog, id, confirmed)
	if err != nil {
		return catalog.Vendor{}, err
	}
	ws.svc.metrics.VendorsRemoved.Inc()
	ws.svc.logger.Info().Str("client_id", ws.ClientID).Str("vendor_id", id).Msg("vendor removed")
	return v, nil
}

// AddToBudget adds the vendor's starting price as a line item. added is false
// when the vendor was already in the budget.
func (ws *Workspace) AddToBudget(ctx context.Context, vendorID string) (budget.Item, bool, error) {
	v, ok := ws.Catalog.Get(vendorID)
	if !ok {
		return budget.Item{}, false, ErrVendorNotFound
	}
	item, added, err := ws.Ledger.AddFromVendor(ctx, v)
	if err != nil {
		return budget.Item{}, false, err
	}
	if added {
		ws.svc.metrics.BudgetItemsAdded.WithLabelValues("vendor").Inc()
	}
	return item, added, nil
}

func (ws *Workspace) AddManualItem(ctx context.Context, name, cost string) (budget.Item, error) {
	item, err := ws.Ledger.AddManual(ctx, name, cost)
	if err != nil {
		return budget.Item{}, err
	}
	ws.svc.metrics.BudgetItemsAdded.WithLabelValues("manual").Inc()
	return item, nil
}

func (ws *Workspace) ToggleFavorite(ctx context.Context, vendorID string) (bool, error) {
	if _, ok := ws.Catalog.Get(vendorID); !ok {
		return false, ErrVendorNotFound
	}
	return ws.State.Toggle(ctx, vendorID)
}

func (ws *Workspace) Rate(ctx context.Context, vendorID string, vote int) (interaction.RateResult, error) {
	v, ok := ws.Catalog.Get(vendorID)
	if !ok {
		return interaction.RateResult{}, ErrVendorNotFound
	}
	return ws.State.Rate(ctx, v, vote)
}

// Contact returns the contact flow for a vendor in this workspace.
func (ws *Workspace) Contact(vendorID string) (*interaction.Contact, error) {
	v, ok := ws.Catalog.Get(vendorID)
	if !ok {
		return nil, ErrVendorNotFound
	}
	if ws.svc.submitter == nil {
		return nil, errors.New("contact submitter is not configured")
	}
	return ws.svc.Contact(ws.ClientID, v), nil
}

func (ws *Workspace) view(v catalog.Vendor) VendorView {
	vote, _ := ws.State.Vote(v.ID)
	return VendorView{
		Vendor:        v,
		Favorite:      ws.State.IsFavorite(v.ID),
		InBudget:      ws.Ledger.Has(v.ID),
		DisplayRating: interaction.RoundRating(ws.State.DisplayRating(v)),
		UserVote:      vote,
	}
}
