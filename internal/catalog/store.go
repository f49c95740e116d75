package catalog

import (
	"context"
	"fmt"

	"feestplanner/internal/kv"
)

const StorageKey = "catalog.v1"

// Cascade is asked to drop records referring to a vendor before the vendor
// itself leaves the catalog. RemoveVendor must be safe to repeat.
type Cascade interface {
	RemoveVendor(ctx context.Context, vendorID string) error
}

// Store owns the vendor list of one client and is its only writer.
type Store struct {
	kv       *kv.Adapter
	vendors  []Vendor
	cascades []Cascade
}

// Open loads the persisted catalog, installing seed when nothing usable is
// stored.
func Open(ctx context.Context, adapter *kv.Adapter, seed []Vendor, cascades ...Cascade) (*Store, error) {
	s := &Store{kv: adapter, cascades: cascades}
	s.vendors = kv.Load(ctx, adapter, StorageKey, []Vendor(nil))
	if len(s.vendors) == 0 {
		s.vendors = append([]Vendor(nil), seed...)
		if err := s.persist(ctx); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add prepends v so the newest vendor is listed first.
func (s *Store) Add(ctx context.Context, v Vendor) error {
	if v.ID == "" {
		return fmt.Errorf("vendor id is empty")
	}
	next := make([]Vendor, 0, len(s.vendors)+1)
	next = append(next, v)
	next = append(next, s.vendors...)
	s.vendors = next
	return s.persist(ctx)
}

// Remove runs the cascades, then deletes the vendor with id. The catalog is
// written last, so on any failure the vendor stays listed and the removal
// can be retried. Removing an unknown id is a silent success.
func (s *Store) Remove(ctx context.Context, id string) error {
	idx := s.index(id)
	if idx < 0 {
		return nil
	}
	for _, c := range s.cascades {
		if err := c.RemoveVendor(ctx, id); err != nil {
			return fmt.Errorf("cascade remove %s: %w", id, err)
		}
	}
	prev := s.vendors
	s.vendors = append(s.vendors[:idx:idx], s.vendors[idx+1:]...)
	if err := s.persist(ctx); err != nil {
		s.vendors = prev
		return err
	}
	return nil
}

func (s *Store) Replace(ctx context.Context, vendors []Vendor) error {
	s.vendors = append([]Vendor(nil), vendors...)
	return s.persist(ctx)
}

func (s *Store) List() []Vendor {
	return append([]Vendor(nil), s.vendors...)
}

func (s *Store) Get(id string) (Vendor, bool) {
	idx := s.index(id)
	if idx < 0 {
		return Vendor{}, false
	}
	return s.vendors[idx], true
}

func (s *Store) Len() int {
	return len(s.vendors)
}

func (s *Store) index(id string) int {
	for i, v := range s.vendors {
		if v.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) persist(ctx context.Context) error {
	vendors := s.vendors
	if vendors == nil {
		vendors = []Vendor{}
	}
	return kv.Save(ctx, s.kv, StorageKey, vendors)
}
