package telegram

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"feestplanner/internal/budget"
	"feestplanner/internal/catalog"
	"feestplanner/internal/interaction"
	"feestplanner/internal/planner"
)

func TestCallbackDataRoundTrip(t *testing.T) {
	data := cbData(actRate, "0190a2b4-7c1e-7d4f-9a1b-2c3d4e5f6a7b", "4")
	if len(data) > 64 {
		t.Fatalf("callback data exceeds telegram limit: %d bytes", len(data))
	}
	action, args, ok := parseCallback(data)
	if !ok || action != actRate {
		t.Fatalf("unexpected parse: %q %v", action, ok)
	}
	if diff := cmp.Diff([]string{"0190a2b4-7c1e-7d4f-9a1b-2c3d4e5f6a7b", "4"}, args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}

	if action, args, ok := parseCallback(cbData(actMenu)); !ok || action != actMenu || len(args) != 0 {
		t.Fatalf("bare action parse failed: %q %v %v", action, args, ok)
	}
	if _, _, ok := parseCallback("hb:menu"); ok {
		t.Fatalf("foreign prefix must be rejected")
	}
}

func TestFilterSummary(t *testing.T) {
	if got := filterSummary(catalog.DefaultQuery()); got != "Alle diensten" {
		t.Fatalf("unexpected default summary %q", got)
	}
	q := catalog.DefaultQuery()
	q.Search = "dj"
	q.Category = catalog.CategoryMusic
	q.MaxPrice = 800
	want := `Filters: zoekterm "dj", categorie DJ & Muziek, max €800`
	if got := filterSummary(q); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	q.SharedID = "3"
	if got := filterSummary(q); got != "Gedeelde dienst" {
		t.Fatalf("shared view summary %q", got)
	}
}

func seedViews() []planner.VendorView {
	out := []planner.VendorView{}
	for _, v := range catalog.DefaultSeed() {
		out = append(out, planner.VendorView{Vendor: v, DisplayRating: v.Rating})
	}
	return out
}

func TestBrowseTextAndKeyboard(t *testing.T) {
	views := seedViews()
	views[2].Favorite = true
	views[2].InBudget = true

	text := browseText(views, catalog.DefaultQuery())
	if !strings.HasPrefix(text, "Alle diensten\n\n1. Ziana Amira") {
		t.Fatalf("unexpected text:\n%s", text)
	}
	if !strings.Contains(text, "3. DJ Yassin") || !strings.Contains(text, "❤ 💰") {
		t.Fatalf("marks missing:\n%s", text)
	}

	kb := browseKeyboard(views)
	if len(kb.InlineKeyboard) != len(views)+2 {
		t.Fatalf("expected one row per vendor plus two, got %d", len(kb.InlineKeyboard))
	}
	if kb.InlineKeyboard[0][0].CallbackData != cbData(actVendor, "1") {
		t.Fatalf("unexpected first button %+v", kb.InlineKeyboard[0][0])
	}

	if got := browseText(nil, catalog.DefaultQuery()); !strings.Contains(got, "Geen resultaten") {
		t.Fatalf("empty state missing: %q", got)
	}
}

func TestBrowseTextCapsLongLists(t *testing.T) {
	views := make([]planner.VendorView, 0, 25)
	for i := 0; i < 25; i++ {
		views = append(views, seedViews()[i%7])
	}
	text := browseText(views, catalog.DefaultQuery())
	if !strings.Contains(text, "... en nog 15.") {
		t.Fatalf("expected overflow line:\n%s", text)
	}
	if rows := len(browseKeyboard(views).InlineKeyboard); rows != listLimit+2 {
		t.Fatalf("expected %d rows, got %d", listLimit+2, rows)
	}
}

func TestVendorKeyboard(t *testing.T) {
	v := seedViews()[6]
	kb := vendorKeyboard(v)
	var hasDelete, hasStars bool
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			if btn.CallbackData == cbData(actDelete, v.ID) {
				hasDelete = true
			}
			if btn.CallbackData == cbData(actRate, v.ID, "5") {
				hasStars = true
			}
		}
	}
	if !hasDelete || !hasStars {
		t.Fatalf("owned, unrated vendor needs delete and rating buttons: %+v", kb.InlineKeyboard)
	}

	rated := seedViews()[0]
	rated.UserVote = 4
	for _, row := range vendorKeyboard(rated).InlineKeyboard {
		for _, btn := range row {
			if strings.HasPrefix(btn.CallbackData, cbPrefix+actRate+":") {
				t.Fatalf("rating buttons must disappear after voting")
			}
			if strings.HasPrefix(btn.CallbackData, cbPrefix+actDelete+":") {
				t.Fatalf("delete offered for a vendor the client does not own")
			}
		}
	}
}

func TestVendorCardText(t *testing.T) {
	v := seedViews()[0]
	v.DisplayRating = 4.6
	v.UserVote = 1
	text := vendorCardText(v)
	for _, want := range []string{"Ziana Amira", "Vanaf €1500", "★4.6", "Jouw beoordeling: 1", "info@zianaamira.nl"} {
		if !strings.Contains(text, want) {
			t.Fatalf("card misses %q:\n%s", want, text)
		}
	}
}

func TestBudgetText(t *testing.T) {
	items := []budget.Item{
		{ID: "a", Name: "DJ Yassin", EstimatedCost: 450},
		{ID: "b", Name: "Bloemen", EstimatedCost: 12.5},
	}
	want := "Mijn budget\n\n1. DJ Yassin: €450\n2. Bloemen: €12.5\n\nTotaal: €462.5"
	if got := budgetText(items, 462.5); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	kb := budgetKeyboard(items)
	if kb.InlineKeyboard[0][0].CallbackData != cbData(actBudgetDel, "a") {
		t.Fatalf("unexpected delete button %+v", kb.InlineKeyboard[0][0])
	}
	if len(budgetKeyboard(nil).InlineKeyboard) != 1 {
		t.Fatalf("empty budget should only offer the menu")
	}
}

func TestShareKeyboardUsesShareURL(t *testing.T) {
	msg := interaction.Linker{BotUsername: "feestbot"}.Message(catalog.DefaultSeed()[2])
	kb := shareKeyboard(msg)
	u := kb.InlineKeyboard[0][0].Url
	if !strings.HasPrefix(u, "https://t.me/share/url?") || !strings.Contains(u, "start%3Dv_3") {
		t.Fatalf("unexpected share url %q", u)
	}
	if !strings.HasSuffix(shareText(msg), "https://t.me/feestbot?start=v_3") {
		t.Fatalf("unexpected share text %q", shareText(msg))
	}
}

func TestCommandParsing(t *testing.T) {
	if got := commandRemainder("/budget_add 350 Bloemen en kaarsen"); got != "350 Bloemen en kaarsen" {
		t.Fatalf("unexpected remainder %q", got)
	}
	cost, name := splitFirstWord("350 Bloemen en kaarsen")
	if cost != "350" || name != "Bloemen en kaarsen" {
		t.Fatalf("unexpected split %q %q", cost, name)
	}
	if got := commandRemainder("/budget"); got != "" {
		t.Fatalf("expected empty remainder, got %q", got)
	}
}

func TestCategoryKeysSurviveReordering(t *testing.T) {
	rendered := []string{catalog.CategoryMusic, "Henna", "Zaalverhuur"}
	kb := categoriesKeyboard(rendered, "")
	henna := kb.InlineKeyboard[2][0].CallbackData
	if henna != cbData(actCategory, categoryKey("Henna")) {
		t.Fatalf("unexpected button data %q", henna)
	}
	_, args, ok := parseCallback(henna)
	if !ok || len(args) != 1 {
		t.Fatalf("unparseable button data %q", henna)
	}

	// a custom category sorted in front of the clicked one
	current := []string{"Catering", catalog.CategoryMusic, "Henna", "Zaalverhuur"}
	if got, ok := categoryByKey(current, args[0]); !ok || got != "Henna" {
		t.Fatalf("resolved %q, %v; want Henna", got, ok)
	}
	if _, ok := categoryByKey([]string{"Catering"}, args[0]); ok {
		t.Fatalf("removed category must not resolve")
	}

	long := strings.Repeat("Traditionele Marokkaanse ", 8)
	if data := categoryButton(long, long).CallbackData; len(data) > 64 {
		t.Fatalf("callback data exceeds telegram limit: %d bytes", len(data))
	}
}
