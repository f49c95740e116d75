package telegram

import (
	"fmt"
	"hash/fnv"
	"net/url"
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
	cbPrefix = "fp:"

	actMenu         = "menu"
	actBrowse       = "browse"
	actCategories   = "cats"
	actCategory     = "cat"
	actVendor       = "v"
	actFavorite     = "fav"
	actFavorites    = "favs"
	actBudget       = "bud"
	actBudgetView   = "budget"
	actBudgetDel    = "bdel"
	actExport       = "export"
	actRate         = "rate"
	actContact      = "contact"
	actShare        = "share"
	actDelete       = "del"
	actDeleteOK     = "delok"
	actAddVendor    = "add"
	actWizardCat    = "wcat"
	actAsk          = "ask"
	actResetFilters = "reset"

	categoryAll = "all"

	// listLimit caps the vendors rendered in one browse message.
	listLimit = 10
)

func cbData(action string, args ...string) string {
	if len(args) == 0 {
		return cbPrefix + action
	}
	return cbPrefix + action + ":" + strings.Join(args, ":")
}

func parseCallback(data string) (action string, args []string, ok bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(data), cbPrefix)
	if !ok || rest == "" {
		return "", nil, false
	}
	parts := strings.Split(rest, ":")
	return parts[0], parts[1:], true
}

func helpText() string {
	return strings.Join([]string{
		"MarokkaansFeest planner",
		"",
		"Diensten:",
		"/browse [zoekterm] - zoek in de diensten",
		"/categories - kies een categorie",
		"/category <naam> - filter op categorie",
		"/maxprice <bedrag> - maximale startprijs",
		"/reset - wis alle filters",
		"/vendor <id> - bekijk een dienst",
		"/favorites - je favorieten",
		"/rate <id> <1-5> - geef een beoordeling",
		"/share <id> - deel een dienst",
		"/contact <id> - stuur een bericht",
		"/add_vendor - voeg je eigen dienst toe",
		"/delete <id> - verwijder je eigen dienst",
		"",
		"Budget:",
		"/budget - je budgetoverzicht",
		"/budget_add <bedrag> <omschrijving> - eigen post toevoegen",
		"/budget_del <id> - post verwijderen",
		"/export - download je budget",
		"",
		"Samira:",
		"/ask <vraag> - vraag het de AI assistent",
		"/cancel - stop het huidige formulier",
	}, "\n")
}

func menuText() string {
	return "Welkom bij MarokkaansFeest! Vind de beste diensten voor je feest, houd je budget bij en vraag Samira om advies."
}

func menuKeyboard() *gotgbot.InlineKeyboardMarkup {
	return &gotgbot.InlineKeyboardMarkup{InlineKeyboard: [][]gotgbot.InlineKeyboardButton{
		{
			{Text: "Diensten bekijken", CallbackData: cbData(actBrowse)},
			{Text: "Categorieën", CallbackData: cbData(actCategories)},
		},
		{
			{Text: "Favorieten", CallbackData: cbData(actFavorites)},
			{Text: "Mijn budget", CallbackData: cbData(actBudgetView)},
		},
		{
			{Text: "Dienst toevoegen", CallbackData: cbData(actAddVendor)},
			{Text: "Vraag Samira", CallbackData: cbData(actAsk)},
		},
	}}
}

func backToMenuRow() []gotgbot.InlineKeyboardButton {
	return []gotgbot.InlineKeyboardButton{{Text: "Menu", CallbackData: cbData(actMenu)}}
}

func formatPrice(v float64) string {
	return "€" + budget.FormatCost(v)
}

func formatRating(r float64) string {
	return strconv.FormatFloat(r, 'f', 1, 64)
}

func filterSummary(q catalog.Query) string {
	parts := make([]string, 0, 3)
	if q.SharedID != "" {
		return "Gedeelde dienst"
	}
	if q.Search != "" {
		parts = append(parts, fmt.Sprintf("zoekterm %q", q.Search))
	}
	if q.Category != "" && q.Category != catalog.AllCategories {
		parts = append(parts, "categorie "+q.Category)
	}
	if q.MaxPrice != catalog.DefaultMaxPrice {
		parts = append(parts, "max "+formatPrice(q.MaxPrice))
	}
	if len(parts) == 0 {
		return "Alle diensten"
	}
	return "Filters: " + strings.Join(parts, ", ")
}

func vendorLine(v planner.VendorView) string {
	marks := ""
	if v.Favorite {
		marks += " ❤"
	}
	if v.InBudget {
		marks += " 💰"
	}
	return fmt.Sprintf("%s (%s, %s) vanaf %s ★%s%s", v.Name, v.Category, v.Location, formatPrice(v.PriceStart), formatRating(v.DisplayRating), marks)
}

func browseText(views []planner.VendorView, q catalog.Query) string {
	lines := []string{filterSummary(q), ""}
	if len(views) == 0 {
		lines = append(lines, "Geen resultaten gevonden. Probeer andere filters of /reset.")
		return strings.Join(lines, "\n")
	}
	for i, v := range views {
		if i == listLimit {
			lines = append(lines, fmt.Sprintf("... en nog %d. Verfijn je zoekopdracht.", len(views)-listLimit))
			break
		}
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, vendorLine(v)))
	}
	return strings.Join(lines, "\n")
}

func browseKeyboard(views []planner.VendorView) *gotgbot.InlineKeyboardMarkup {
	rows := make([][]gotgbot.InlineKeyboardButton, 0, len(views)+1)
	for i, v := range views {
		if i == listLimit {
			break
		}
		rows = append(rows, []gotgbot.InlineKeyboardButton{{
			Text:         fmt.Sprintf("%d. %s", i+1, v.Name),
			CallbackData: cbData(actVendor, v.ID),
		}})
	}
	rows = append(rows, []gotgbot.InlineKeyboardButton{
		{Text: "Categorieën", CallbackData: cbData(actCategories)},
		{Text: "Filters wissen", CallbackData: cbData(actResetFilters)},
	}, backToMenuRow())
	return &gotgbot.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func vendorCardText(v planner.VendorView) string {
	lines := []string{
		v.Name,
		fmt.Sprintf("%s · %s", v.Category, v.Location),
		"",
		v.Description,
		"",
		"Vanaf " + formatPrice(v.PriceStart),
		"Beoordeling ★" + formatRating(v.DisplayRating),
	}
	if v.UserVote > 0 {
		lines = append(lines, fmt.Sprintf("Jouw beoordeling: %d", v.UserVote))
	}
	if v.Phone != "" {
		lines = append(lines, "Telefoon: "+v.Phone)
	}
	if v.Email != "" {
		lines = append(lines, "E-mail: "+v.Email)
	}
	if v.ImageURL != "" {
		lines = append(lines, v.ImageURL)
	}
	if v.IsOwner {
		lines = append(lines, "", "Dit is jouw dienst.")
	}
	return strings.Join(lines, "\n")
}

func vendorKeyboard(v planner.VendorView) *gotgbot.InlineKeyboardMarkup {
	fav := "Favoriet ♡"
	if v.Favorite {
		fav = "Favoriet ❤"
	}
	bud := "Toevoegen aan budget"
	if v.InBudget {
		bud = "In budget ✓"
	}
	rows := [][]gotgbot.InlineKeyboardButton{
		{
			{Text: fav, CallbackData: cbData(actFavorite, v.ID)},
			{Text: bud, CallbackData: cbData(actBudget, v.ID)},
		},
	}
	if v.UserVote == 0 {
		stars := make([]gotgbot.InlineKeyboardButton, 0, 5)
		for n := 1; n <= 5; n++ {
			stars = append(stars, gotgbot.InlineKeyboardButton{
				Text:         strconv.Itoa(n) + "★",
				CallbackData: cbData(actRate, v.ID, strconv.Itoa(n)),
			})
		}
		rows = append(rows, stars)
	}
	rows = append(rows, []gotgbot.InlineKeyboardButton{
		{Text: "Contact", CallbackData: cbData(actContact, v.ID)},
		{Text: "Delen", CallbackData: cbData(actShare, v.ID)},
	})
	if v.IsOwner {
		rows = append(rows, []gotgbot.InlineKeyboardButton{
			{Text: "Verwijderen", CallbackData: cbData(actDelete, v.ID)},
		})
	}
	rows = append(rows, []gotgbot.InlineKeyboardButton{
		{Text: "Terug naar lijst", CallbackData: cbData(actBrowse)},
	})
	return &gotgbot.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func deleteConfirmKeyboard(vendorID string) *gotgbot.InlineKeyboardMarkup {
	return &gotgbot.InlineKeyboardMarkup{InlineKeyboard: [][]gotgbot.InlineKeyboardButton{
		{
			{Text: "Ja, verwijderen", CallbackData: cbData(actDeleteOK, vendorID)},
			{Text: "Annuleren", CallbackData: cbData(actVendor, vendorID)},
		},
	}}
}

// categoryKey is a short stable token for a category name. Callback data is
// limited to 64 bytes and custom names can be longer.
func categoryKey(category string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(category))
	return fmt.Sprintf("%08x", h.Sum32())
}

// categoryByKey finds the category a keyboard button was rendered for.
func categoryByKey(categories []string, key string) (string, bool) {
	for _, c := range categories {
		if categoryKey(c) == key {
			return c, true
		}
	}
	return "", false
}

func categoryButton(label, category string) gotgbot.InlineKeyboardButton {
	return gotgbot.InlineKeyboardButton{Text: label, CallbackData: cbData(actCategory, categoryKey(category))}
}

func categoriesKeyboard(categories []string, active string) *gotgbot.InlineKeyboardMarkup {
	rows := make([][]gotgbot.InlineKeyboardButton, 0, len(categories)+2)
	all := catalog.AllCategories
	if active == "" || active == catalog.AllCategories {
		all = "• " + all
	}
	rows = append(rows, []gotgbot.InlineKeyboardButton{{Text: all, CallbackData: cbData(actCategory, categoryAll)}})
	for _, c := range categories {
		label := c
		if c == active {
			label = "• " + c
		}
		rows = append(rows, []gotgbot.InlineKeyboardButton{categoryButton(label, c)})
	}
	rows = append(rows, backToMenuRow())
	return &gotgbot.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func wizardCategoryKeyboard() *gotgbot.InlineKeyboardMarkup {
	rows := make([][]gotgbot.InlineKeyboardButton, 0, len(catalog.BaseCategories))
	for i, c := range catalog.BaseCategories {
		rows = append(rows, []gotgbot.InlineKeyboardButton{{Text: c, CallbackData: cbData(actWizardCat, strconv.Itoa(i))}})
	}
	return &gotgbot.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func budgetText(items []budget.Item, total float64) string {
	if len(items) == 0 {
		return "Je budget is nog leeg. Voeg diensten toe vanuit de lijst of gebruik /budget_add <bedrag> <omschrijving>."
	}
	lines := []string{"Mijn budget", ""}
	for i, it := range items {
		lines = append(lines, fmt.Sprintf("%d. %s: %s", i+1, it.Name, formatPrice(it.EstimatedCost)))
	}
	lines = append(lines, "", "Totaal: "+formatPrice(total))
	return strings.Join(lines, "\n")
}

func budgetKeyboard(items []budget.Item) *gotgbot.InlineKeyboardMarkup {
	rows := make([][]gotgbot.InlineKeyboardButton, 0, len(items)+2)
	for i, it := range items {
		rows = append(rows, []gotgbot.InlineKeyboardButton{{
			Text:         fmt.Sprintf("Verwijder %d. %s", i+1, it.Name),
			CallbackData: cbData(actBudgetDel, it.ID),
		}})
	}
	if len(items) > 0 {
		rows = append(rows, []gotgbot.InlineKeyboardButton{{Text: "Download overzicht", CallbackData: cbData(actExport)}})
	}
	rows = append(rows, backToMenuRow())
	return &gotgbot.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// shareKeyboard opens Telegram's own share sheet for the link.
func shareKeyboard(msg interaction.ShareMessage) *gotgbot.InlineKeyboardMarkup {
	q := url.Values{}
	q.Set("url", msg.URL)
	q.Set("text", msg.Text)
	return &gotgbot.InlineKeyboardMarkup{InlineKeyboard: [][]gotgbot.InlineKeyboardButton{
		{{Text: "Delen", Url: "https://t.me/share/url?" + q.Encode()}},
	}}
}

func shareText(msg interaction.ShareMessage) string {
	return msg.Title + "\n\n" + msg.Text + "\n" + msg.URL
}

func (s *Service) replyWithMarkup(ctx *ext.Context, b *gotgbot.Bot, text string, markup *gotgbot.InlineKeyboardMarkup) error {
	if ctx == nil || ctx.EffectiveChat == nil {
		return nil
	}
	opts := &gotgbot.SendMessageOpts{}
	if markup != nil {
		opts.ReplyMarkup = *markup
	}
	_, err := b.SendMessage(ctx.EffectiveChat.Id, text, opts)
	return err
}

func (s *Service) reply(ctx *ext.Context, b *gotgbot.Bot, text string) error {
	return s.replyWithMarkup(ctx, b, text, nil)
}
