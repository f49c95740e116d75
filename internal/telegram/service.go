package telegram

import (
	"time"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/callbackquery"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/message"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"feestplanner/internal/interaction"
	"feestplanner/internal/metrics"
	"feestplanner/internal/planner"
	"feestplanner/internal/queue"
)

type Service struct {
	planner     *planner.Service
	queue       *queue.StreamQueue
	rateLimiter *queue.RateLimiter
	gate        *queue.BusyGate
	wizard      *wizardStore
	views       *viewStore
	linker      interaction.Linker
	ledgerTitle string
	logger      zerolog.Logger
	metrics     *metrics.Metrics
}

type Config struct {
	Planner     *planner.Service
	Queue       *queue.StreamQueue
	RateLimiter *queue.RateLimiter
	Gate        *queue.BusyGate
	Redis       *redis.Client
	Linker      interaction.Linker
	LedgerTitle string
	Logger      zerolog.Logger
	Metrics     *metrics.Metrics
	WizardTTL   time.Duration
	ViewTTL     time.Duration
}

func NewService(cfg Config) *Service {
	m := cfg.Metrics
	if m == nil {
		m = metrics.Global()
	}
	if cfg.WizardTTL <= 0 {
		cfg.WizardTTL = 20 * time.Minute
	}
	if cfg.ViewTTL <= 0 {
		cfg.ViewTTL = 24 * time.Hour
	}
	return &Service{
		planner:     cfg.Planner,
		queue:       cfg.Queue,
		rateLimiter: cfg.RateLimiter,
		gate:        cfg.Gate,
		wizard:      newWizardStore(cfg.Redis, cfg.WizardTTL),
		views:       newViewStore(cfg.Redis, cfg.ViewTTL, cfg.Logger),
		linker:      cfg.Linker,
		ledgerTitle: cfg.LedgerTitle,
		logger:      cfg.Logger,
		metrics:     m,
	}
}

func (s *Service) Register(d *ext.Dispatcher) {
	d.AddHandler(handlers.NewCommand("help", s.help))
	d.AddHandler(handlers.NewCommand("start", s.start))
	d.AddHandler(handlers.NewCommand("menu", s.menu))
	d.AddHandler(handlers.NewCommand("browse", s.browse))
	d.AddHandler(handlers.NewCommand("categories", s.categories))
	d.AddHandler(handlers.NewCommand("category", s.category))
	d.AddHandler(handlers.NewCommand("maxprice", s.maxPrice))
	d.AddHandler(handlers.NewCommand("reset", s.resetFilters))
	d.AddHandler(handlers.NewCommand("vendor", s.vendor))
	d.AddHandler(handlers.NewCommand("favorites", s.favorites))
	d.AddHandler(handlers.NewCommand("rate", s.rate))
	d.AddHandler(handlers.NewCommand("share", s.share))
	d.AddHandler(handlers.NewCommand("delete", s.deleteVendor))
	d.AddHandler(handlers.NewCommand("budget", s.budget))
	d.AddHandler(handlers.NewCommand("budget_add", s.budgetAdd))
	d.AddHandler(handlers.NewCommand("budget_del", s.budgetDel))
	d.AddHandler(handlers.NewCommand("export", s.export))
	d.AddHandler(handlers.NewCommand("add_vendor", s.addVendor))
	d.AddHandler(handlers.NewCommand("contact", s.contact))
	d.AddHandler(handlers.NewCommand("cancel", s.cancelWizard))
	d.AddHandler(handlers.NewCommand("ask", s.ask))
	d.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbPrefix), s.onCallback))
	d.AddHandler(handlers.NewMessage(func(msg *gotgbot.Message) bool {
		return message.Private(msg) && message.Text(msg)
	}, s.privateText))
}

func (s *Service) now() time.Time {
	return time.Now().UTC()
}

func userID(ctx *ext.Context) int64 {
	if ctx == nil || ctx.EffectiveUser == nil {
		return 0
	}
	return ctx.EffectiveUser.Id
}

func clientID(ctx *ext.Context) (string, bool) {
	uid := userID(ctx)
	if uid == 0 {
		return "", false
	}
	return planner.ClientID(uid), true
}
