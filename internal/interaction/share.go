package interaction

import (
	"fmt"
	"net/url"
	"strings"

	"feestplanner/internal/catalog"
)

// StartPrefix marks a vendor id in a Telegram /start payload.
const StartPrefix = "v_"

// Linker builds share links for single vendors. With BaseURL set the link is
// <BaseURL>?id=<vendor>; otherwise it is a Telegram deep link that opens the
// bot with /start v_<vendor>.
type Linker struct {
	BaseURL     string
	BotUsername string
}

type ShareMessage struct {
	Title string
	Text  string
	URL   string
}

func (l Linker) Link(vendorID string) string {
	if l.BaseURL != "" {
		u, err := url.Parse(l.BaseURL)
		if err == nil {
			q := u.Query()
			q.Set("id", vendorID)
			u.RawQuery = q.Encode()
			return u.String()
		}
	}
	return fmt.Sprintf("https://t.me/%s?start=%s%s", strings.TrimPrefix(l.BotUsername, "@"), StartPrefix, vendorID)
}

func (l Linker) Message(v catalog.Vendor) ShareMessage {
	return ShareMessage{
		Title: fmt.Sprintf("%s op MarokkaansFeest", v.Name),
		Text:  fmt.Sprintf("Ik heb %s gevonden op MarokkaansFeest! Bekijk het hier:", v.Name),
		URL:   l.Link(v.ID),
	}
}

// ParseShared extracts a vendor id from a /start payload (v_<id>) or from a
// share URL carrying ?id=<id>, also inside a #/?id= fragment.
func ParseShared(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if id, ok := strings.CutPrefix(s, StartPrefix); ok {
		return id, id != ""
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", false
	}
	if id := u.Query().Get("id"); id != "" {
		return id, true
	}
	if u.Query().Get("start") != "" {
		return ParseShared(u.Query().Get("start"))
	}
	if _, frag, ok := strings.Cut(u.Fragment, "?"); ok {
		if q, err := url.ParseQuery(frag); err == nil && q.Get("id") != "" {
			return q.Get("id"), true
		}
	}
	return "", false
}
