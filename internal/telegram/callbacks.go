package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"feestplanner/internal/catalog"
	"feestplanner/internal/planner"
)

func (s *Service) onCallback(b *gotgbot.Bot, ctx *ext.Context) error {
	if ctx == nil || ctx.CallbackQuery == nil {
		return nil
	}

	action, args, ok := parseCallback(ctx.CallbackQuery.Data)
	if !ok {
		s.answerCallback(b, ctx, "Onbekende actie.", true)
		return nil
	}
	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}

	switch action {
	case actMenu:
		s.answerCallback(b, ctx, "", false)
		return s.editOrReplyCallback(ctx, b, menuText(), menuKeyboard())

	case actBrowse:
		s.answerCallback(b, ctx, "", false)
		return s.showBrowse(ctx, b, true)

	case actResetFilters:
		s.answerCallback(b, ctx, "Filters gewist.", false)
		if err := s.views.Clear(context.Background(), userID(ctx)); err != nil {
			s.logger.Warn().Err(err).Msg("failed to clear view")
		}
		return s.showBrowse(ctx, b, true)

	case actCategories:
		s.answerCallback(b, ctx, "", false)
		return s.showCategories(ctx, b, true)

	case actCategory:
		s.answerCallback(b, ctx, "", false)
		if arg == categoryAll {
			return s.applyCategory(ctx, b, catalog.AllCategories, true)
		}
		var cats []string
		if err := s.do(ctx, func(_ context.Context, ws *planner.Workspace) error {
			cats = ws.Categories()
			return nil
		}); err != nil {
			return s.fail(ctx, b, err, "category")
		}
		c, ok := categoryByKey(cats, arg)
		if !ok {
			return s.showCategories(ctx, b, true)
		}
		return s.applyCategory(ctx, b, c, true)

	case actVendor:
		s.answerCallback(b, ctx, "", false)
		return s.showVendor(ctx, b, arg, true)

	case actFavorite:
		var now bool
		err := s.do(ctx, func(c context.Context, ws *planner.Workspace) error {
			var err error
			now, err = ws.ToggleFavorite(c, arg)
			return err
		})
		if err != nil {
			s.answerCallback(b, ctx, "Opslaan mislukt.", true)
			return nil
		}
		if now {
			s.answerCallback(b, ctx, "Toegevoegd aan favorieten.", false)
		} else {
			s.answerCallback(b, ctx, "Verwijderd uit favorieten.", false)
		}
		return s.showVendor(ctx, b, arg, true)

	case actFavorites:
		s.answerCallback(b, ctx, "", false)
		return s.showFavorites(ctx, b, true)

	case actBudget:
		notice, err := s.addVendorToBudget(ctx, arg)
		if err != nil {
			s.logger.Error().Err(err).Str("vendor_id", arg).Msg("add to budget failed")
			s.answerCallback(b, ctx, "Opslaan mislukt.", true)
			return nil
		}
		s.answerCallback(b, ctx, notice, false)
		return s.showVendor(ctx, b, arg, true)

	case actBudgetView:
		s.answerCallback(b, ctx, "", false)
		return s.showBudget(ctx, b, true)

	case actBudgetDel:
		removed, err := s.removeBudgetItem(ctx, arg)
		if err != nil {
			s.logger.Error().Err(err).Msg("remove budget item failed")
			s.answerCallback(b, ctx, "Verwijderen mislukt.", true)
			return nil
		}
		if removed {
			s.answerCallback(b, ctx, "Post verwijderd.", false)
		} else {
			s.answerCallback(b, ctx, "Post niet gevonden.", false)
		}
		return s.showBudget(ctx, b, true)

	case actExport:
		s.answerCallback(b, ctx, "", false)
		return s.sendExport(ctx, b)

	case actRate:
		vote := 0
		if len(args) > 1 {
			vote, _ = strconv.Atoi(args[1])
		}
		text, err := s.applyRating(ctx, arg, vote)
		if err != nil {
			s.logger.Error().Err(err).Msg("rate failed")
			s.answerCallback(b, ctx, "Opslaan mislukt.", true)
			return nil
		}
		s.answerCallback(b, ctx, text, false)
		return s.showVendor(ctx, b, arg, true)

	case actContact:
		s.answerCallback(b, ctx, "", false)
		return s.beginContactWizard(ctx, b, arg)

	case actShare:
		msg, err := s.shareMessage(ctx, arg)
		if err != nil {
			if !errors.Is(err, planner.ErrVendorNotFound) {
				s.logger.Error().Err(err).Str("vendor_id", arg).Msg("share failed")
			}
			s.answerCallback(b, ctx, shareNotice(err), true)
			return nil
		}
		s.answerCallback(b, ctx, shareNotice(nil), false)
		return s.replyWithMarkup(ctx, b, shareText(msg), shareKeyboard(msg))

	case actDelete:
		s.answerCallback(b, ctx, "", false)
		return s.promptDelete(ctx, b, arg, true)

	case actDeleteOK:
		s.answerCallback(b, ctx, "", false)
		return s.confirmDelete(ctx, b, arg)

	case actAddVendor:
		s.answerCallback(b, ctx, "", false)
		return s.beginVendorWizard(ctx, b)

	case actWizardCat:
		s.answerCallback(b, ctx, "", false)
		return s.pickWizardCategory(ctx, b, arg)

	case actAsk:
		s.answerCallback(b, ctx, "", false)
		return s.reply(ctx, b, askUsage)

	default:
		s.answerCallback(b, ctx, "Onbekende actie: "+action, true)
		return nil
	}
}

func (s *Service) answerCallback(b *gotgbot.Bot, ctx *ext.Context, text string, alert bool) {
	if ctx == nil || ctx.CallbackQuery == nil {
		return
	}
	opts := &gotgbot.AnswerCallbackQueryOpts{ShowAlert: alert}
	if text != "" {
		opts.Text = text
	}
	_, _ = b.AnswerCallbackQuery(ctx.CallbackQuery.Id, opts)
}

func (s *Service) editOrReplyCallback(ctx *ext.Context, b *gotgbot.Bot, text string, markup *gotgbot.InlineKeyboardMarkup) error {
	if ctx != nil && ctx.CallbackQuery != nil && ctx.CallbackQuery.Message != nil {
		opts := &gotgbot.EditMessageTextOpts{}
		if markup != nil {
			opts.ReplyMarkup = *markup
		}
		_, _, err := ctx.CallbackQuery.Message.EditText(b, text, opts)
		if err == nil {
			return nil
		}
		if strings.Contains(strings.ToLower(err.Error()), "message is not modified") {
			return nil
		}
		// the message may be too old to edit
	}
	return s.replyWithMarkup(ctx, b, text, markup)
}
