package budget

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"feestplanner/internal/catalog"
	"feestplanner/internal/kv"
)

const (
	StorageKey   = "budget.v1"
	DefaultTitle = "Mijn MarokkaansFeest Budget"
	ExportName   = "mijn-budget.txt"
)

var (
	ErrInvalidName = errors.New("budget item name is required")
	ErrInvalidCost = errors.New("budget item cost must be a number")
)

type Item struct {
	ID            string  `json:"id"`
	ProviderID    string  `json:"providerId,omitempty"`
	Name          string  `json:"name"`
	EstimatedCost float64 `json:"estimatedCost"`
	Note          string  `json:"note,omitempty"`
}

// Ledger is the running cost estimate of one client. Every mutation persists
// the full item list.
type Ledger struct {
	kv    *kv.Adapter
	items []Item
}

func Open(ctx context.Context, adapter *kv.Adapter) *Ledger {
	return &Ledger{
		kv:    adapter,
		items: kv.Load(ctx, adapter, StorageKey, []Item{}),
	}
}

// AddFromVendor copies the vendor's name and starting price into a new line
// item. A vendor already in the ledger is left alone and added is false.
func (l *Ledger) AddFromVendor(ctx context.Context, v catalog.Vendor) (item Item, added bool, err error) {
	for _, it := range l.items {
		if it.ProviderID == v.ID {
			return it, false, nil
		}
	}
	item = Item{
		ID:            newItemID(),
		ProviderID:    v.ID,
		Name:          v.Name,
		EstimatedCost: v.PriceStart,
	}
	l.items = append(l.items, item)
	if err := l.persist(ctx); err != nil {
		return Item{}, false, err
	}
	return item, true, nil
}

// AddManual appends a free line item. costText accepts a decimal comma and a
// leading euro sign.
func (l *Ledger) AddManual(ctx context.Context, name, costText string) (Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Item{}, ErrInvalidName
	}
	cost, err := ParseCost(costText)
	if err != nil {
		return Item{}, err
	}
	item := Item{ID: newItemID(), Name: name, EstimatedCost: cost}
	l.items = append(l.items, item)
	if err := l.persist(ctx); err != nil {
		return Item{}, err
	}
	return item, nil
}

// Remove drops the item with id. It reports whether anything was removed.
func (l *Ledger) Remove(ctx context.Context, id string) (bool, error) {
	next := l.items[:0:0]
	for _, it := range l.items {
		if it.ID != id {
			next = append(next, it)
		}
	}
	if len(next) == len(l.items) {
		return false, nil
	}
	l.items = next
	return true, l.persist(ctx)
}

// RemoveVendor drops every item referring to vendorID.
func (l *Ledger) RemoveVendor(ctx context.Context, vendorID string) error {
	next := l.items[:0:0]
	for _, it := range l.items {
		if it.ProviderID != vendorID {
			next = append(next, it)
		}
	}
	if len(next) == len(l.items) {
		return nil
	}
	prev := l.items
	l.items = next
	if err := l.persist(ctx); err != nil {
		l.items = prev
		return err
	}
	return nil
}

func (l *Ledger) Items() []Item {
	return append([]Item(nil), l.items...)
}

func (l *Ledger) Has(vendorID string) bool {
	for _, it := range l.items {
		if it.ProviderID == vendorID {
			return true
		}
	}
	return false
}

func (l *Ledger) Total() float64 {
	var sum float64
	for _, it := range l.items {
		sum += it.EstimatedCost
	}
	return sum
}

// ExportText renders the downloadable summary:
//
//	<title>:
//
//	- <name>: €<cost>
//
//	Totaal: €<sum>
func (l *Ledger) ExportText(title string) string {
	if strings.TrimSpace(title) == "" {
		title = DefaultTitle
	}
	lines := make([]string, 0, len(l.items))
	for _, it := range l.items {
		lines = append(lines, fmt.Sprintf("- %s: €%s", it.Name, FormatCost(it.EstimatedCost)))
	}
	return title + ":\n\n" + strings.Join(lines, "\n") + "\n\nTotaal: €" + FormatCost(l.Total())
}

// FormatCost prints the shortest decimal form of v: 450, 12.5.
func FormatCost(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func ParseCost(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSpace(strings.TrimPrefix(s, "€"))
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return 0, ErrInvalidCost
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrInvalidCost
	}
	return f, nil
}

func (l *Ledger) persist(ctx context.Context) error {
	return kv.Save(ctx, l.kv, StorageKey, l.items)
}

func newItemID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
