package telegram

import (
	"context"
	"errors"
	"strings"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"feestplanner/internal/budget"
	"feestplanner/internal/planner"
)

func (s *Service) budget(b *gotgbot.Bot, ctx *ext.Context) error {
	return s.showBudget(ctx, b, false)
}

func (s *Service) showBudget(ctx *ext.Context, b *gotgbot.Bot, edit bool) error {
	var items []budget.Item
	var total float64
	err := s.do(ctx, func(_ context.Context, ws *planner.Workspace) error {
		items = ws.Ledger.Items()
		total = ws.Ledger.Total()
		return nil
	})
	if err != nil {
		return s.fail(ctx, b, err, "budget")
	}
	if edit {
		return s.editOrReplyCallback(ctx, b, budgetText(items, total), budgetKeyboard(items))
	}
	return s.replyWithMarkup(ctx, b, budgetText(items, total), budgetKeyboard(items))
}

// budgetAdd handles /budget_add <cost> <name...>.
func (s *Service) budgetAdd(b *gotgbot.Bot, ctx *ext.Context) error {
	cost, name := splitFirstWord(commandRemainder(ctx.EffectiveMessage.GetText()))
	if cost == "" {
		return s.reply(ctx, b, "Gebruik: /budget_add <bedrag> <omschrijving>, bijvoorbeeld /budget_add 350 Bloemen")
	}
	var item budget.Item
	err := s.do(ctx, func(c context.Context, ws *planner.Workspace) error {
		var err error
		item, err = ws.AddManualItem(c, name, cost)
		return err
	})
	switch {
	case errors.Is(err, budget.ErrInvalidCost):
		return s.reply(ctx, b, "Ongeldig bedrag. Gebruik bijvoorbeeld 350 of 12,50.")
	case errors.Is(err, budget.ErrInvalidName):
		return s.reply(ctx, b, "Geef ook een omschrijving op.")
	case err != nil:
		return s.fail(ctx, b, err, "budget_add")
	}
	return s.reply(ctx, b, "Toegevoegd: "+item.Name+" ("+formatPrice(item.EstimatedCost)+")")
}

func (s *Service) budgetDel(b *gotgbot.Bot, ctx *ext.Context) error {
	id := strings.TrimSpace(commandRemainder(ctx.EffectiveMessage.GetText()))
	if id == "" {
		return s.reply(ctx, b, "Gebruik: /budget_del <id>. Of gebruik de knoppen bij /budget.")
	}
	removed, err := s.removeBudgetItem(ctx, id)
	if err != nil {
		return s.fail(ctx, b, err, "budget_del")
	}
	if !removed {
		return s.reply(ctx, b, "Post niet gevonden.")
	}
	return s.reply(ctx, b, "Post verwijderd.")
}

func (s *Service) removeBudgetItem(ctx *ext.Context, id string) (bool, error) {
	var removed bool
	err := s.do(ctx, func(c context.Context, ws *planner.Workspace) error {
		var err error
		removed, err = ws.Ledger.Remove(c, id)
		return err
	})
	return removed, err
}

func (s *Service) addVendorToBudget(ctx *ext.Context, vendorID string) (string, error) {
	var added bool
	var item budget.Item
	err := s.do(ctx, func(c context.Context, ws *planner.Workspace) error {
		var err error
		item, added, err = ws.AddToBudget(c, vendorID)
		return err
	})
	if errors.Is(err, planner.ErrVendorNotFound) {
		return vendorGoneText, nil
	}
	if err != nil {
		return "", err
	}
	if !added {
		return "Staat al in je budget.", nil
	}
	return "Toegevoegd aan budget: " + formatPrice(item.EstimatedCost), nil
}

// export sends the budget summary as a text file.
func (s *Service) export(b *gotgbot.Bot, ctx *ext.Context) error {
	return s.sendExport(ctx, b)
}

func (s *Service) sendExport(ctx *ext.Context, b *gotgbot.Bot) error {
	if ctx.EffectiveChat == nil {
		return nil
	}
	var text string
	err := s.do(ctx, func(_ context.Context, ws *planner.Workspace) error {
		text = ws.Ledger.ExportText(s.ledgerTitle)
		return nil
	})
	if err != nil {
		return s.fail(ctx, b, err, "export")
	}
	_, err = b.SendDocument(ctx.EffectiveChat.Id, gotgbot.InputFileByReader(budget.ExportName, strings.NewReader(text)), &gotgbot.SendDocumentOpts{
		Caption: "Je budgetoverzicht",
	})
	return err
}
