package interaction

import (
	"context"
	"errors"
	"math"

	"feestplanner/internal/catalog"
)

// priorVotes is the weight given to a vendor's listed rating when blending in
// a client's own vote.
const priorVotes = 20

var ErrInvalidVote = errors.New("vote must be between 1 and 5")

type RateResult struct {
	Vote     int
	Display  float64
	Accepted bool
}

// Blend folds one vote into a base average as if the base were backed by
// priorVotes earlier votes.
func Blend(base float64, vote int) float64 {
	return (base*priorVotes + float64(vote)) / (priorVotes + 1)
}

// RoundRating rounds to one decimal for display.
func RoundRating(r float64) float64 {
	return math.Round(r*10) / 10
}

// Rate records the client's vote for v. Ratings are write-once: once a vote is
// stored, further calls return Accepted=false together with the first vote's
// result. The vendor's own rating is never changed.
func (s *State) Rate(ctx context.Context, v catalog.Vendor, vote int) (RateResult, error) {
	if prev, ok := s.doc.Ratings[v.ID]; ok {
		return RateResult{Vote: prev, Display: Blend(v.Rating, prev)}, nil
	}
	if !validVote(vote) {
		return RateResult{}, ErrInvalidVote
	}
	s.doc.Ratings[v.ID] = vote
	if err := s.save(ctx); err != nil {
		delete(s.doc.Ratings, v.ID)
		return RateResult{}, err
	}
	return RateResult{Vote: vote, Display: Blend(v.Rating, vote), Accepted: true}, nil
}

func (s *State) Vote(vendorID string) (int, bool) {
	v, ok := s.doc.Ratings[vendorID]
	return v, ok
}

// DisplayRating is the rating shown for v to this client.
func (s *State) DisplayRating(v catalog.Vendor) float64 {
	if vote, ok := s.doc.Ratings[v.ID]; ok {
		return Blend(v.Rating, vote)
	}
	return v.Rating
}

func validVote(v int) bool {
	return v >= 1 && v <= 5
}
