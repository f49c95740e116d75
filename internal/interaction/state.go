package interaction

import (
	"context"
	"fmt"
	"slices"

	"feestplanner/internal/kv"
)

const (
	StateKey       = "client_state"
	stateVersion   = 2
	legacyFavorite = "favoriteProviders"
	legacyRating   = "rating_"
)

// document is the single persisted root for favorites and ratings.
type document struct {
	Version   int            `json:"version"`
	Favorites []string       `json:"favorites"`
	Ratings   map[string]int `json:"ratings"`
}

// State holds the favorites and ratings of one client.
type State struct {
	kv  *kv.Adapter
	doc document
}

// Open loads the client state. When no aggregate is stored yet, the older
// per-key layout (one favorites list plus one rating key per vendor) is folded
// into it, saved and cleared. vendorIDs names the rating keys to look for.
// The aggregate is written even when nothing was migrated, so the legacy
// keys are only looked up once per client.
func Open(ctx context.Context, adapter *kv.Adapter, vendorIDs []string) (*State, error) {
	s := &State{kv: adapter}
	if adapter.Has(ctx, StateKey) {
		s.doc = kv.Load(ctx, adapter, StateKey, emptyDocument())
		s.normalize()
		return s, nil
	}

	s.doc = emptyDocument()
	var legacyKeys []string

	if adapter.Has(ctx, legacyFavorite) {
		for _, id := range kv.Load(ctx, adapter, legacyFavorite, []string{}) {
			if !slices.Contains(s.doc.Favorites, id) {
				s.doc.Favorites = append(s.doc.Favorites, id)
			}
		}
		legacyKeys = append(legacyKeys, legacyFavorite)
	}
	for _, id := range vendorIDs {
		key := legacyRating + id
		if !adapter.Has(ctx, key) {
			continue
		}
		if vote := kv.Load(ctx, adapter, key, 0); validVote(vote) {
			s.doc.Ratings[id] = vote
		}
		legacyKeys = append(legacyKeys, key)
	}
	if err := s.save(ctx); err != nil {
		return nil, fmt.Errorf("migrate client state: %w", err)
	}
	for _, key := range legacyKeys {
		if err := adapter.Clear(ctx, key); err != nil {
			return nil, fmt.Errorf("migrate client state: %w", err)
		}
	}
	return s, nil
}

// RemoveVendor prunes the favorite and the rating of a deleted vendor.
func (s *State) RemoveVendor(ctx context.Context, vendorID string) error {
	_, rated := s.doc.Ratings[vendorID]
	idx := slices.Index(s.doc.Favorites, vendorID)
	if !rated && idx < 0 {
		return nil
	}
	prev := s.snapshot()
	delete(s.doc.Ratings, vendorID)
	if idx >= 0 {
		s.doc.Favorites = slices.Delete(s.doc.Favorites, idx, idx+1)
	}
	if err := s.save(ctx); err != nil {
		s.doc = prev
		return err
	}
	return nil
}

func (s *State) save(ctx context.Context) error {
	s.doc.Version = stateVersion
	return kv.Save(ctx, s.kv, StateKey, s.doc)
}

func (s *State) snapshot() document {
	return document{
		Version:   s.doc.Version,
		Favorites: slices.Clone(s.doc.Favorites),
		Ratings:   cloneRatings(s.doc.Ratings),
	}
}

func (s *State) normalize() {
	if s.doc.Favorites == nil {
		s.doc.Favorites = []string{}
	}
	if s.doc.Ratings == nil {
		s.doc.Ratings = map[string]int{}
	}
	for id, vote := range s.doc.Ratings {
		if !validVote(vote) {
			delete(s.doc.Ratings, id)
		}
	}
}

func emptyDocument() document {
	return document{Version: stateVersion, Favorites: []string{}, Ratings: map[string]int{}}
}

func cloneRatings(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
