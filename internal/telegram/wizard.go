package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"feestplanner/internal/budget"
	"feestplanner/internal/catalog"
	"feestplanner/internal/interaction"
)

const (
	wizardAddVendor = "add_vendor"
	wizardContact   = "contact"

	stepName        = "name"
	stepCategory    = "category"
	stepLocation    = "location"
	stepDescription = "description"
	stepPrice       = "price"
	stepPhone       = "phone"
	stepEmail       = "email"
	stepImage       = "image"
	stepMessage     = "message"

	skipInput = "-"
)

// wizardState is one multi-step form kept in Redis between private messages.
type wizardState struct {
	Kind     string           `json:"kind"`
	Step     string           `json:"step"`
	VendorID string           `json:"vendor_id,omitempty"`
	Draft    catalog.Draft    `json:"draft"`
	Form     interaction.Form `json:"form"`
}

var errWizardInput = errors.New("invalid wizard input")

func newVendorWizard() wizardState {
	return wizardState{Kind: wizardAddVendor, Step: stepName}
}

func newContactWizard(vendorID string) wizardState {
	return wizardState{Kind: wizardContact, Step: stepName, VendorID: vendorID}
}

// prompt is the question asked for the current step.
func (w wizardState) prompt() string {
	if w.Kind == wizardContact {
		switch w.Step {
		case stepName:
			return "Wat is je naam?"
		case stepEmail:
			return "Wat is je e-mailadres?"
		case stepMessage:
			return "Wat is je bericht? Vertel bijvoorbeeld de datum en het aantal gasten."
		}
		return ""
	}
	switch w.Step {
	case stepName:
		return "Hoe heet je bedrijf of dienst?"
	case stepCategory:
		return "Kies een categorie of typ je eigen categorie."
	case stepLocation:
		return "In welke plaats ben je gevestigd?"
	case stepDescription:
		return "Geef een korte omschrijving van je dienst."
	case stepPrice:
		return "Wat is je startprijs in euro? Stuur '-' om over te slaan."
	case stepPhone:
		return "Telefoonnummer? Stuur '-' om over te slaan."
	case stepEmail:
		return "E-mailadres? Stuur '-' om over te slaan."
	case stepImage:
		return "Link naar een afbeelding? Stuur '-' voor een standaardafbeelding."
	}
	return ""
}

// advance applies text to the current step. done reports that the last step
// was answered; a validation failure leaves the state unchanged and returns
// a user-facing notice.
func (w *wizardState) advance(text string) (done bool, notice string, err error) {
	text = strings.TrimSpace(text)
	if w.Kind == wizardContact {
		return w.advanceContact(text)
	}
	return w.advanceVendor(text)
}

func (w *wizardState) advanceVendor(text string) (bool, string, error) {
	optional := text
	if optional == skipInput {
		optional = ""
	}
	switch w.Step {
	case stepName:
		if text == "" {
			return false, "Naam is verplicht.", errWizardInput
		}
		w.Draft.Name = text
		w.Step = stepCategory
	case stepCategory:
		if text == "" || text == skipInput {
			return false, "Categorie is verplicht.", errWizardInput
		}
		w.setCategory(text)
		w.Step = stepLocation
	case stepLocation:
		if text == "" {
			return false, "Locatie is verplicht.", errWizardInput
		}
		w.Draft.Location = text
		w.Step = stepDescription
	case stepDescription:
		if text == "" {
			return false, "Omschrijving is verplicht.", errWizardInput
		}
		w.Draft.Description = text
		w.Step = stepPrice
	case stepPrice:
		if optional != "" {
			if cost, err := budget.ParseCost(optional); err == nil && cost < 0 {
				return false, "De prijs mag niet negatief zijn.", errWizardInput
			}
		}
		w.Draft.PriceStart = optional
		w.Step = stepPhone
	case stepPhone:
		w.Draft.Phone = optional
		w.Step = stepEmail
	case stepEmail:
		w.Draft.Email = optional
		w.Step = stepImage
	case stepImage:
		w.Draft.ImageURL = optional
		return true, "", nil
	default:
		return false, "", fmt.Errorf("unknown wizard step %q", w.Step)
	}
	return false, "", nil
}

// setCategory takes a fixed category when the input names one, otherwise the
// input becomes a custom category.
func (w *wizardState) setCategory(text string) {
	if c, exact, ok := catalog.ResolveCategory(text, catalog.BaseCategories); ok && exact && c != catalog.AllCategories {
		w.Draft.Category = c
		w.Draft.UseCustom = false
		w.Draft.CustomCategory = ""
		return
	}
	w.Draft.UseCustom = true
	w.Draft.CustomCategory = text
}

func (w *wizardState) advanceContact(text string) (bool, string, error) {
	switch w.Step {
	case stepName:
		if text == "" {
			return false, "Naam is verplicht.", interaction.ErrMissingContactName
		}
		w.Form.Name = text
		w.Step = stepEmail
	case stepEmail:
		probe := interaction.Form{Name: w.Form.Name, Email: text, Message: "-"}
		if err := probe.Validate(); err != nil {
			return false, "Dat is geen geldig e-mailadres.", err
		}
		w.Form.Email = text
		w.Step = stepMessage
	case stepMessage:
		if text == "" {
			return false, "Bericht is verplicht.", interaction.ErrMissingMessage
		}
		w.Form.Message = text
		return true, "", nil
	default:
		return false, "", fmt.Errorf("unknown wizard step %q", w.Step)
	}
	return false, "", nil
}

type wizardStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func newWizardStore(rdb *redis.Client, ttl time.Duration) *wizardStore {
	return &wizardStore{redis: rdb, ttl: ttl}
}

func (w *wizardStore) key(userID int64) string {
	return fmt.Sprintf("feestplanner:wizard:%d", userID)
}

func (w *wizardStore) Set(ctx context.Context, userID int64, state wizardState) error {
	b, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return w.redis.Set(ctx, w.key(userID), string(b), w.ttl).Err()
}

func (w *wizardStore) Get(ctx context.Context, userID int64) (*wizardState, error) {
	raw, err := w.redis.Get(ctx, w.key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var state wizardState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (w *wizardStore) Clear(ctx context.Context, userID int64) error {
	return w.redis.Del(ctx, w.key(userID)).Err()
}
