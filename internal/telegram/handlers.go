package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"feestplanner/internal/budget"
	"feestplanner/internal/catalog"
	"feestplanner/internal/interaction"
	"feestplanner/internal/planner"
)

const (
	genericFailure = "Er ging iets mis. Probeer het later opnieuw."
	vendorGoneText = "Deze dienst bestaat niet (meer)."
)

// shareNotice is the callback toast for a share button press.
func shareNotice(err error) string {
	switch {
	case err == nil:
		return "Link gekopieerd!"
	case errors.Is(err, planner.ErrVendorNotFound):
		return vendorGoneText
	default:
		return "Delen mislukt."
	}
}

func (s *Service) help(b *gotgbot.Bot, ctx *ext.Context) error {
	return s.replyWithMarkup(ctx, b, helpText(), menuKeyboard())
}

func (s *Service) menu(b *gotgbot.Bot, ctx *ext.Context) error {
	return s.replyWithMarkup(ctx, b, menuText(), menuKeyboard())
}

// start opens the menu, or the shared vendor when the payload carries one.
func (s *Service) start(b *gotgbot.Bot, ctx *ext.Context) error {
	args := ctx.Args()
	if len(args) > 1 {
		if id, ok := interaction.ParseShared(args[1]); ok {
			if _, err := s.views.Update(context.Background(), userID(ctx), func(q *catalog.Query) {
				q.SharedID = id
			}); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store shared view")
			}
			return s.showVendor(ctx, b, id, false)
		}
	}
	return s.replyWithMarkup(ctx, b, menuText(), menuKeyboard())
}

func (s *Service) browse(b *gotgbot.Bot, ctx *ext.Context) error {
	search := strings.TrimSpace(commandRemainder(ctx.EffectiveMessage.GetText()))
	if _, err := s.views.Update(context.Background(), userID(ctx), func(q *catalog.Query) {
		q.Search = search
		q.SharedID = ""
	}); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store view")
	}
	return s.showBrowse(ctx, b, false)
}

func (s *Service) showBrowse(ctx *ext.Context, b *gotgbot.Bot, edit bool) error {
	q := s.views.Get(context.Background(), userID(ctx))
	var views []planner.VendorView
	err := s.do(ctx, func(_ context.Context, ws *planner.Workspace) error {
		views = ws.Browse(q)
		return nil
	})
	if err != nil {
		return s.fail(ctx, b, err, "browse")
	}
	if edit {
		return s.editOrReplyCallback(ctx, b, browseText(views, q), browseKeyboard(views))
	}
	return s.replyWithMarkup(ctx, b, browseText(views, q), browseKeyboard(views))
}

func (s *Service) categories(b *gotgbot.Bot, ctx *ext.Context) error {
	return s.showCategories(ctx, b, false)
}

func (s *Service) showCategories(ctx *ext.Context, b *gotgbot.Bot, edit bool) error {
	q := s.views.Get(context.Background(), userID(ctx))
	var cats []string
	err := s.do(ctx, func(_ context.Context, ws *planner.Workspace) error {
		cats = ws.Categories()
		return nil
	})
	if err != nil {
		return s.fail(ctx, b, err, "categories")
	}
	if edit {
		return s.editOrReplyCallback(ctx, b, "Kies een categorie:", categoriesKeyboard(cats, q.Category))
	}
	return s.replyWithMarkup(ctx, b, "Kies een categorie:", categoriesKeyboard(cats, q.Category))
}

func (s *Service) category(b *gotgbot.Bot, ctx *ext.Context) error {
	input := strings.TrimSpace(commandRemainder(ctx.EffectiveMessage.GetText()))
	if input == "" {
		return s.showCategories(ctx, b, false)
	}
	var cats []string
	if err := s.do(ctx, func(_ context.Context, ws *planner.Workspace) error {
		cats = ws.Categories()
		return nil
	}); err != nil {
		return s.fail(ctx, b, err, "category")
	}

	c, exact, ok := catalog.ResolveCategory(input, cats)
	if !ok {
		return s.replyWithMarkup(ctx, b, "Onbekende categorie. Kies er een:", categoriesKeyboard(cats, ""))
	}
	if !exact {
		markup := &gotgbot.InlineKeyboardMarkup{InlineKeyboard: [][]gotgbot.InlineKeyboardButton{
			{categoryButton(c, c)},
		}}
		return s.replyWithMarkup(ctx, b, "Bedoelde je "+c+"?", markup)
	}
	return s.applyCategory(ctx, b, c, false)
}

func (s *Service) applyCategory(ctx *ext.Context, b *gotgbot.Bot, category string, edit bool) error {
	if _, err := s.views.Update(context.Background(), userID(ctx), func(q *catalog.Query) {
		q.Category = category
		q.SharedID = ""
	}); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store view")
	}
	return s.showBrowse(ctx, b, edit)
}

func (s *Service) maxPrice(b *gotgbot.Bot, ctx *ext.Context) error {
	raw := strings.TrimSpace(commandRemainder(ctx.EffectiveMessage.GetText()))
	price, err := budget.ParseCost(raw)
	if err != nil || price < 0 {
		return s.reply(ctx, b, "Gebruik: /maxprice <bedrag>, bijvoorbeeld /maxprice 1500")
	}
	if _, err := s.views.Update(context.Background(), userID(ctx), func(q *catalog.Query) {
		q.MaxPrice = price
		q.SharedID = ""
	}); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store view")
	}
	return s.showBrowse(ctx, b, false)
}

func (s *Service) resetFilters(b *gotgbot.Bot, ctx *ext.Context) error {
	if err := s.views.Clear(context.Background(), userID(ctx)); err != nil {
		s.logger.Warn().Err(err).Msg("failed to clear view")
	}
	return s.showBrowse(ctx, b, false)
}

func (s *Service) vendor(b *gotgbot.Bot, ctx *ext.Context) error {
	id := strings.TrimSpace(commandRemainder(ctx.EffectiveMessage.GetText()))
	if id == "" {
		return s.reply(ctx, b, "Gebruik: /vendor <id>")
	}
	return s.showVendor(ctx, b, id, false)
}

func (s *Service) showVendor(ctx *ext.Context, b *gotgbot.Bot, id string, edit bool) error {
	var view planner.VendorView
	err := s.do(ctx, func(_ context.Context, ws *planner.Workspace) error {
		var err error
		view, err = ws.Vendor(id)
		return err
	})
	if errors.Is(err, planner.ErrVendorNotFound) {
		return s.reply(ctx, b, vendorGoneText)
	}
	if err != nil {
		return s.fail(ctx, b, err, "vendor")
	}
	if edit {
		return s.editOrReplyCallback(ctx, b, vendorCardText(view), vendorKeyboard(view))
	}
	return s.replyWithMarkup(ctx, b, vendorCardText(view), vendorKeyboard(view))
}

func (s *Service) favorites(b *gotgbot.Bot, ctx *ext.Context) error {
	return s.showFavorites(ctx, b, false)
}

func (s *Service) showFavorites(ctx *ext.Context, b *gotgbot.Bot, edit bool) error {
	var views []planner.VendorView
	err := s.do(ctx, func(_ context.Context, ws *planner.Workspace) error {
		views = ws.FavoriteViews()
		return nil
	})
	if err != nil {
		return s.fail(ctx, b, err, "favorites")
	}
	text := "Je hebt nog geen favorieten."
	if len(views) > 0 {
		text = strings.Replace(browseText(views, catalog.DefaultQuery()), "Alle diensten", "Je favorieten", 1)
	}
	if edit {
		return s.editOrReplyCallback(ctx, b, text, browseKeyboard(views))
	}
	return s.replyWithMarkup(ctx, b, text, browseKeyboard(views))
}

func (s *Service) rate(b *gotgbot.Bot, ctx *ext.Context) error {
	id, rest := splitFirstWord(commandRemainder(ctx.EffectiveMessage.GetText()))
	vote, err := strconv.Atoi(strings.TrimSpace(rest))
	if id == "" || err != nil {
		return s.reply(ctx, b, "Gebruik: /rate <id> <1-5>")
	}
	text, err := s.applyRating(ctx, id, vote)
	if err != nil {
		return s.fail(ctx, b, err, "rate")
	}
	return s.reply(ctx, b, text)
}

func (s *Service) applyRating(ctx *ext.Context, vendorID string, vote int) (string, error) {
	var res interaction.RateResult
	err := s.do(ctx, func(c context.Context, ws *planner.Workspace) error {
		var err error
		res, err = ws.Rate(c, vendorID, vote)
		return err
	})
	switch {
	case errors.Is(err, interaction.ErrInvalidVote):
		return "Kies een waarde van 1 tot 5.", nil
	case errors.Is(err, planner.ErrVendorNotFound):
		return vendorGoneText, nil
	case err != nil:
		return "", err
	case !res.Accepted:
		return "Je hebt deze dienst al beoordeeld met " + strconv.Itoa(res.Vote) + ".", nil
	}
	return "Bedankt voor je beoordeling! Nieuwe score: ★" + formatRating(res.Display), nil
}

func (s *Service) share(b *gotgbot.Bot, ctx *ext.Context) error {
	id := strings.TrimSpace(commandRemainder(ctx.EffectiveMessage.GetText()))
	if id == "" {
		return s.reply(ctx, b, "Gebruik: /share <id>")
	}
	return s.sendShare(ctx, b, id)
}

func (s *Service) sendShare(ctx *ext.Context, b *gotgbot.Bot, id string) error {
	msg, err := s.shareMessage(ctx, id)
	if errors.Is(err, planner.ErrVendorNotFound) {
		return s.reply(ctx, b, vendorGoneText)
	}
	if err != nil {
		return s.fail(ctx, b, err, "share")
	}
	return s.replyWithMarkup(ctx, b, shareText(msg), shareKeyboard(msg))
}

func (s *Service) shareMessage(ctx *ext.Context, id string) (interaction.ShareMessage, error) {
	var msg interaction.ShareMessage
	err := s.do(ctx, func(_ context.Context, ws *planner.Workspace) error {
		v, ok := ws.Catalog.Get(id)
		if !ok {
			return planner.ErrVendorNotFound
		}
		msg = s.linker.Message(v)
		return nil
	})
	return msg, err
}

func (s *Service) deleteVendor(b *gotgbot.Bot, ctx *ext.Context) error {
	id := strings.TrimSpace(commandRemainder(ctx.EffectiveMessage.GetText()))
	if id == "" {
		return s.reply(ctx, b, "Gebruik: /delete <id>")
	}
	return s.promptDelete(ctx, b, id, false)
}

// promptDelete asks for confirmation; the removal itself only happens from
// the confirmation button.
func (s *Service) promptDelete(ctx *ext.Context, b *gotgbot.Bot, id string, edit bool) error {
	var view planner.VendorView
	err := s.do(ctx, func(_ context.Context, ws *planner.Workspace) error {
		var err error
		view, err = ws.Vendor(id)
		return err
	})
	if errors.Is(err, planner.ErrVendorNotFound) {
		return s.reply(ctx, b, vendorGoneText)
	}
	if err != nil {
		return s.fail(ctx, b, err, "delete")
	}
	if !view.IsOwner {
		return s.reply(ctx, b, "Je kunt alleen je eigen diensten verwijderen.")
	}
	text := interaction.DeletePrompt + "\n\n" + view.Name
	if edit {
		return s.editOrReplyCallback(ctx, b, text, deleteConfirmKeyboard(id))
	}
	return s.replyWithMarkup(ctx, b, text, deleteConfirmKeyboard(id))
}

func (s *Service) confirmDelete(ctx *ext.Context, b *gotgbot.Bot, id string) error {
	var name string
	err := s.do(ctx, func(c context.Context, ws *planner.Workspace) error {
		v, err := ws.DeleteVendor(c, id, true)
		name = v.Name
		return err
	})
	switch {
	case errors.Is(err, planner.ErrVendorNotFound):
		return s.editOrReplyCallback(ctx, b, vendorGoneText, nil)
	case errors.Is(err, interaction.ErrNotOwner):
		return s.editOrReplyCallback(ctx, b, "Je kunt alleen je eigen diensten verwijderen.", nil)
	case err != nil:
		return s.fail(ctx, b, err, "delete")
	}
	return s.editOrReplyCallback(ctx, b, name+" is verwijderd.", &gotgbot.InlineKeyboardMarkup{
		InlineKeyboard: [][]gotgbot.InlineKeyboardButton{backToMenuRow()},
	})
}

func (s *Service) do(ctx *ext.Context, fn func(ctx context.Context, ws *planner.Workspace) error) error {
	cid, ok := clientID(ctx)
	if !ok {
		return errors.New("update has no user")
	}
	return s.planner.Do(context.Background(), cid, fn)
}

func (s *Service) fail(ctx *ext.Context, b *gotgbot.Bot, err error, op string) error {
	cid, _ := clientID(ctx)
	s.logger.Error().Err(err).Str("client_id", cid).Str("op", op).Msg("planner operation failed")
	return s.reply(ctx, b, genericFailure)
}

func commandRemainder(text string) string {
	parts := strings.SplitN(strings.TrimSpace(text), " ", 2)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

func splitFirstWord(s string) (first string, rest string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ""
	}
	idx := strings.IndexByte(s, ' ')
	if idx < 0 {
		return s, ""
	}
	return s[:idx], strings.TrimSpace(s[idx+1:])
}
