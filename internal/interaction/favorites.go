package interaction

import (
	"context"
	"slices"

	"feestplanner/internal/catalog"
)

// Toggle flips membership of vendorID in the favorite set and returns the new
// membership. On a failed save the set is left as it was.
func (s *State) Toggle(ctx context.Context, vendorID string) (bool, error) {
	prev := s.snapshot()
	fav := false
	if idx := slices.Index(s.doc.Favorites, vendorID); idx >= 0 {
		s.doc.Favorites = slices.Delete(s.doc.Favorites, idx, idx+1)
	} else {
		s.doc.Favorites = append(s.doc.Favorites, vendorID)
		fav = true
	}
	if err := s.save(ctx); err != nil {
		s.doc = prev
		return !fav, err
	}
	return fav, nil
}

func (s *State) IsFavorite(vendorID string) bool {
	return slices.Contains(s.doc.Favorites, vendorID)
}

// Favorites returns the stored ids, including ones whose vendor is gone.
func (s *State) Favorites() []string {
	return slices.Clone(s.doc.Favorites)
}

// FavoriteVendors returns the favorited vendors in catalog order, skipping
// ids that no longer resolve.
func (s *State) FavoriteVendors(vendors []catalog.Vendor) []catalog.Vendor {
	out := make([]catalog.Vendor, 0, len(s.doc.Favorites))
	for _, v := range vendors {
		if s.IsFavorite(v.ID) {
			out = append(out, v)
		}
	}
	return out
}
