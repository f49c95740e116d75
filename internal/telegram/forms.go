package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"feestplanner/internal/catalog"
	"feestplanner/internal/interaction"
	"feestplanner/internal/planner"
)

func isPrivate(ctx *ext.Context) bool {
	return ctx.EffectiveChat != nil && ctx.EffectiveChat.Type == "private"
}

func (s *Service) addVendor(b *gotgbot.Bot, ctx *ext.Context) error {
	return s.beginVendorWizard(ctx, b)
}

func (s *Service) beginVendorWizard(ctx *ext.Context, b *gotgbot.Bot) error {
	if !isPrivate(ctx) {
		return s.reply(ctx, b, "Gebruik /add_vendor in een privégesprek met de bot.")
	}
	state := newVendorWizard()
	if err := s.wizard.Set(context.Background(), userID(ctx), state); err != nil {
		return s.fail(ctx, b, err, "wizard_start")
	}
	return s.reply(ctx, b, "Nieuwe dienst toevoegen. Stuur /cancel om te stoppen.\n\n"+state.prompt())
}

func (s *Service) contact(b *gotgbot.Bot, ctx *ext.Context) error {
	id := strings.TrimSpace(commandRemainder(ctx.EffectiveMessage.GetText()))
	if id == "" {
		return s.reply(ctx, b, "Gebruik: /contact <id>")
	}
	return s.beginContactWizard(ctx, b, id)
}

func (s *Service) beginContactWizard(ctx *ext.Context, b *gotgbot.Bot, vendorID string) error {
	if !isPrivate(ctx) {
		return s.reply(ctx, b, "Neem contact op via een privégesprek met de bot.")
	}
	var phase interaction.Phase
	var vendor catalog.Vendor
	err := s.do(ctx, func(_ context.Context, ws *planner.Workspace) error {
		c, err := ws.Contact(vendorID)
		if err != nil {
			return err
		}
		phase = c.Phase()
		vendor, _ = ws.Catalog.Get(vendorID)
		return nil
	})
	if errors.Is(err, planner.ErrVendorNotFound) {
		return s.reply(ctx, b, vendorGoneText)
	}
	if err != nil {
		return s.fail(ctx, b, err, "contact_start")
	}
	if phase == interaction.PhaseSent {
		return s.reply(ctx, b, interaction.ThankYouText(vendor))
	}

	state := newContactWizard(vendorID)
	if err := s.wizard.Set(context.Background(), userID(ctx), state); err != nil {
		return s.fail(ctx, b, err, "wizard_start")
	}
	return s.reply(ctx, b, "Bericht aan "+vendor.Name+". Stuur /cancel om te stoppen.\n\n"+state.prompt())
}

func (s *Service) cancelWizard(b *gotgbot.Bot, ctx *ext.Context) error {
	if ctx.EffectiveUser == nil {
		return nil
	}
	if err := s.wizard.Clear(context.Background(), ctx.EffectiveUser.Id); err != nil {
		return s.reply(ctx, b, "Stoppen lukt nu niet, probeer het opnieuw.")
	}
	return s.reply(ctx, b, "Formulier gestopt.")
}

// privateText feeds an active form, or otherwise hands the text to the
// assistant.
func (s *Service) privateText(b *gotgbot.Bot, ctx *ext.Context) error {
	if ctx.EffectiveChat == nil || ctx.EffectiveUser == nil || ctx.EffectiveMessage == nil {
		return nil
	}
	text := strings.TrimSpace(ctx.EffectiveMessage.GetText())
	if text == "" || strings.HasPrefix(text, "/") {
		return nil
	}

	state, err := s.wizard.Get(context.Background(), ctx.EffectiveUser.Id)
	if err != nil {
		s.logger.Error().Err(err).Msg("wizard load failed")
		return s.reply(ctx, b, "Het formulier kon niet geladen worden. Begin opnieuw.")
	}
	if state == nil {
		return s.enqueueTurn(ctx, b, text)
	}
	return s.advanceWizard(ctx, b, state, text)
}

func (s *Service) advanceWizard(ctx *ext.Context, b *gotgbot.Bot, state *wizardState, text string) error {
	done, notice, err := state.advance(text)
	if err != nil {
		if notice == "" {
			s.logger.Error().Err(err).Msg("wizard step failed")
			_ = s.wizard.Clear(context.Background(), userID(ctx))
			return s.reply(ctx, b, genericFailure)
		}
		return s.reply(ctx, b, notice+"\n\n"+state.prompt())
	}
	if done {
		if state.Kind == wizardContact {
			return s.finishContact(ctx, b, state)
		}
		return s.finishVendor(ctx, b, state)
	}
	if err := s.wizard.Set(context.Background(), userID(ctx), *state); err != nil {
		return s.fail(ctx, b, err, "wizard_save")
	}
	if state.Step == stepCategory {
		return s.replyWithMarkup(ctx, b, state.prompt(), wizardCategoryKeyboard())
	}
	return s.reply(ctx, b, state.prompt())
}

func (s *Service) finishVendor(ctx *ext.Context, b *gotgbot.Bot, state *wizardState) error {
	var view planner.VendorView
	err := s.do(ctx, func(c context.Context, ws *planner.Workspace) error {
		v, err := ws.AddVendor(c, state.Draft)
		if err != nil {
			return err
		}
		view, err = ws.Vendor(v.ID)
		return err
	})
	if notice := draftNotice(err); notice != "" {
		_ = s.wizard.Clear(context.Background(), userID(ctx))
		return s.reply(ctx, b, notice+" Begin opnieuw met /add_vendor.")
	}
	if err != nil {
		return s.fail(ctx, b, err, "add_vendor")
	}
	_ = s.wizard.Clear(context.Background(), userID(ctx))
	return s.replyWithMarkup(ctx, b, "Je dienst is toegevoegd!\n\n"+vendorCardText(view), vendorKeyboard(view))
}

func draftNotice(err error) string {
	switch {
	case errors.Is(err, catalog.ErrMissingName):
		return "Naam is verplicht."
	case errors.Is(err, catalog.ErrMissingLocation):
		return "Locatie is verplicht."
	case errors.Is(err, catalog.ErrMissingDescription):
		return "Omschrijving is verplicht."
	case errors.Is(err, catalog.ErrInvalidCategory):
		return "Categorie is verplicht."
	case errors.Is(err, catalog.ErrNegativePrice):
		return "De prijs mag niet negatief zijn."
	}
	return ""
}

// finishContact submits the collected form. A failed delivery keeps the
// wizard on the message step so that resending the message retries.
func (s *Service) finishContact(ctx *ext.Context, b *gotgbot.Bot, state *wizardState) error {
	var res interaction.Result
	var vendor catalog.Vendor
	err := s.do(ctx, func(c context.Context, ws *planner.Workspace) error {
		flow, err := ws.Contact(state.VendorID)
		if err != nil {
			return err
		}
		vendor, _ = ws.Catalog.Get(state.VendorID)
		if err := flow.Edit(state.Form); err != nil {
			return err
		}
		res, err = flow.Submit(c)
		return err
	})
	switch {
	case errors.Is(err, planner.ErrVendorNotFound):
		_ = s.wizard.Clear(context.Background(), userID(ctx))
		return s.reply(ctx, b, vendorGoneText)
	case errors.Is(err, interaction.ErrNotEditing):
		_ = s.wizard.Clear(context.Background(), userID(ctx))
		return s.reply(ctx, b, interaction.ThankYouText(vendor))
	case err != nil:
		return s.fail(ctx, b, err, "contact")
	}

	if res.Status != interaction.StatusSent {
		s.metrics.ContactRequests.WithLabelValues("failed").Inc()
		if err := s.wizard.Set(context.Background(), userID(ctx), *state); err != nil {
			s.logger.Warn().Err(err).Msg("failed to keep contact form")
		}
		return s.reply(ctx, b, "Versturen is mislukt. Stuur je bericht nogmaals om het opnieuw te proberen.")
	}
	s.metrics.ContactRequests.WithLabelValues("sent").Inc()
	_ = s.wizard.Clear(context.Background(), userID(ctx))
	return s.reply(ctx, b, interaction.ThankYouText(vendor)+"\nReferentie: "+res.Reference)
}

// pickWizardCategory handles the category buttons of the add-vendor form.
func (s *Service) pickWizardCategory(ctx *ext.Context, b *gotgbot.Bot, arg string) error {
	idx, err := strconv.Atoi(arg)
	if err != nil || idx < 0 || idx >= len(catalog.BaseCategories) {
		return nil
	}
	state, err := s.wizard.Get(context.Background(), userID(ctx))
	if err != nil || state == nil || state.Kind != wizardAddVendor || state.Step != stepCategory {
		return s.reply(ctx, b, "Dit formulier is verlopen. Begin opnieuw met /add_vendor.")
	}
	return s.advanceWizard(ctx, b, state, catalog.BaseCategories[idx])
}
