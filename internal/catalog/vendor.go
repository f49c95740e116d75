package catalog

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Category = string

const (
	CategoryZiana    Category = "Ziana & Visagie"
	CategoryCatering Category = "Catering & Traiteur"
	CategoryVenue    Category = "Zalen & Locaties"
	CategoryMusic    Category = "DJ & Muziek"
	CategoryPhoto    Category = "Fotografie & Video"
	CategoryDecor    Category = "Decoratie"
	CategoryOther    Category = "Overig"
)

// BaseCategories is the fixed category set, in display order.
var BaseCategories = []Category{
	CategoryZiana,
	CategoryCatering,
	CategoryVenue,
	CategoryMusic,
	CategoryPhoto,
	CategoryDecor,
	CategoryOther,
}

type Vendor struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Category    string  `json:"category" yaml:"category"`
	Description string  `json:"description" yaml:"description"`
	Location    string  `json:"location" yaml:"location"`
	PriceStart  float64 `json:"priceStart" yaml:"price_start"`
	ImageURL    string  `json:"imageUrl" yaml:"image_url"`
	Rating      float64 `json:"rating" yaml:"rating"`
	Phone       string  `json:"phone,omitempty" yaml:"phone,omitempty"`
	Email       string  `json:"email,omitempty" yaml:"email,omitempty"`
	IsOwner     bool    `json:"isOwner,omitempty" yaml:"is_owner,omitempty"`
}

var (
	ErrMissingName        = errors.New("name is required")
	ErrMissingLocation    = errors.New("location is required")
	ErrMissingDescription = errors.New("description is required")
	ErrInvalidCategory    = errors.New("category is required")
	ErrNegativePrice      = errors.New("price must not be negative")
)

// Draft is the add-vendor form as submitted by a client.
type Draft struct {
	Name           string
	Category       string
	CustomCategory string
	UseCustom      bool
	Description    string
	Location       string
	PriceStart     string
	ImageURL       string
	Phone          string
	Email          string
}

// Build validates the draft and turns it into an owned vendor record. New
// vendors start at a 5.0 rating.
func (d Draft) Build(now time.Time) (Vendor, error) {
	category := strings.TrimSpace(d.Category)
	if d.UseCustom {
		category = strings.TrimSpace(d.CustomCategory)
	}
	if category == "" {
		return Vendor{}, ErrInvalidCategory
	}
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return Vendor{}, ErrMissingName
	}
	location := strings.TrimSpace(d.Location)
	if location == "" {
		return Vendor{}, ErrMissingLocation
	}
	description := strings.TrimSpace(d.Description)
	if description == "" {
		return Vendor{}, ErrMissingDescription
	}

	price := parsePrice(d.PriceStart)
	if price < 0 {
		return Vendor{}, ErrNegativePrice
	}

	id := newVendorID(now)
	image := strings.TrimSpace(d.ImageURL)
	if image == "" {
		image = fmt.Sprintf("https://picsum.photos/seed/%s/400/300", id)
	}

	return Vendor{
		ID:          id,
		Name:        name,
		Category:    category,
		Description: description,
		Location:    location,
		PriceStart:  price,
		ImageURL:    image,
		Rating:      5.0,
		Phone:       strings.TrimSpace(d.Phone),
		Email:       strings.TrimSpace(d.Email),
		IsOwner:     true,
	}, nil
}

// parsePrice mirrors the form: anything that does not parse counts as 0.
func parsePrice(raw string) float64 {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	raw = strings.TrimPrefix(raw, "€")
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func newVendorID(now time.Time) string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return strconv.FormatInt(now.UnixMilli(), 10)
}
