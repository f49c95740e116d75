package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultSeed returns the built-in sample catalog installed for new clients.
func DefaultSeed() []Vendor {
	return []Vendor{
		{
			ID:          "1",
			Name:        "Ziana Amira",
			Category:    CategoryZiana,
			Description: "Exclusieve Marokkaanse bruidsstyling en visagie. Wij zorgen ervoor dat u straleert op uw grote dag met de nieuwste collectie jurken.",
			Location:    "Amsterdam",
			PriceStart:  1500,
			ImageURL:    "https://picsum.photos/seed/ziana1/400/300",
			Rating:      4.8,
			Phone:       "06-12345678",
			Email:       "info@zianaamira.nl",
		},
		{
			ID:          "2",
			Name:        "Traiteur Maghreb Royal",
			Category:    CategoryCatering,
			Description: "Authentieke Marokkaanse keuken met een moderne twist. Van bastilla tot tajine, wij verzorgen het complete diner.",
			Location:    "Rotterdam",
			PriceStart:  2500,
			ImageURL:    "https://picsum.photos/seed/catering1/400/300",
			Rating:      4.9,
			Phone:       "010-9876543",
			Email:       "contact@maghrebroyal.nl",
		},
		{
			ID:          "3",
			Name:        "DJ Yassin",
			Category:    CategoryMusic,
			Description: "De beste Chaabi, Reggada en R&B mixen voor een onvergetelijk feest. Inclusief professionele lichtshow.",
			Location:    "Utrecht",
			PriceStart:  450,
			ImageURL:    "https://picsum.photos/seed/dj1/400/300",
			Rating:      4.5,
			Phone:       "06-87654321",
			Email:       "bookings@djyassin.nl",
		},
		{
			ID:          "4",
			Name:        "Partycentrum Het Paleis",
			Category:    CategoryVenue,
			Description: "Luxe zaalverhuur met capaciteit tot 500 personen. Gescheiden zalen mogelijk.",
			Location:    "Den Haag",
			PriceStart:  2000,
			ImageURL:    "https://picsum.photos/seed/venue1/400/300",
			Rating:      4.7,
		},
		{
			ID:          "5",
			Name:        "Fotografie Yasmina",
			Category:    CategoryPhoto,
			Description: "Wij leggen uw mooiste momenten vast. Gespecialiseerd in Marokkaanse bruiloften.",
			Location:    "Eindhoven",
			PriceStart:  800,
			ImageURL:    "https://picsum.photos/seed/photo1/400/300",
			Rating:      4.6,
		},
		{
			ID:          "6",
			Name:        "Decoratie 1001 Nacht",
			Category:    CategoryDecor,
			Description: "Sfeervolle decoratie voor elke gelegenheid. Tafels, stoelen, ingang en podia.",
			Location:    "Amsterdam",
			PriceStart:  600,
			ImageURL:    "https://picsum.photos/seed/decor1/400/300",
			Rating:      4.3,
		},
		{
			ID:          "7",
			Name:        "Dakka Fantasia",
			Category:    CategoryMusic,
			Description: "Traditionele Dakka Marrakchia om de sfeer er goed in te brengen bij het ophalen van de bruid.",
			Location:    "Breda",
			PriceStart:  350,
			ImageURL:    "https://picsum.photos/seed/dakka/400/300",
			Rating:      4.8,
			IsOwner:     true,
		},
	}
}

type seedFile struct {
	Vendors []Vendor `yaml:"vendors"`
}

// LoadSeedFile reads a YAML catalog of the form `vendors: [...]`. An empty
// path returns DefaultSeed.
func LoadSeedFile(path string) ([]Vendor, error) {
	if path == "" {
		return DefaultSeed(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed catalog: %w", err)
	}
	return ParseSeed(b)
}

func ParseSeed(b []byte) ([]Vendor, error) {
	var f seedFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse seed catalog: %w", err)
	}
	seen := make(map[string]struct{}, len(f.Vendors))
	for i, v := range f.Vendors {
		if v.ID == "" {
			return nil, fmt.Errorf("seed vendor #%d has no id", i+1)
		}
		if _, dup := seen[v.ID]; dup {
			return nil, fmt.Errorf("seed vendor id %q is duplicated", v.ID)
		}
		seen[v.ID] = struct{}{}
		if v.Name == "" || v.Category == "" {
			return nil, fmt.Errorf("seed vendor %q needs a name and a category", v.ID)
		}
		if v.PriceStart < 0 {
			return nil, fmt.Errorf("seed vendor %q: %w", v.ID, ErrNegativePrice)
		}
	}
	return f.Vendors, nil
}
