package planner

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"feestplanner/internal/budget"
	"feestplanner/internal/catalog"
	"feestplanner/internal/interaction"
	"feestplanner/internal/kv"
	"feestplanner/internal/metrics"
)

// BackendFactory returns the persistence backend scoped to one client.
type BackendFactory func(clientID string) kv.Backend

type Config struct {
	Backends   BackendFactory
	Seed       []catalog.Vendor
	Submitter  interaction.Submitter
	ResetAfter time.Duration
	Logger     zerolog.Logger
	Metrics    *metrics.Metrics
	Now        func() time.Time
}

// Service opens client workspaces. Operations for one client are serialized;
// different clients run in parallel.
type Service struct {
	backends   BackendFactory
	seed       []catalog.Vendor
	submitter  interaction.Submitter
	resetAfter time.Duration
	logger     zerolog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time

	locks *keyedMutex

	contactsMu sync.Mutex
	contacts   map[string]*interaction.Contact
}

func New(cfg Config) *Service {
	m := cfg.Metrics
	if m == nil {
		m = metrics.Global()
	}
	seed := cfg.Seed
	if len(seed) == 0 {
		seed = catalog.DefaultSeed()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		backends:   cfg.Backends,
		seed:       seed,
		submitter:  cfg.Submitter,
		resetAfter: cfg.ResetAfter,
		logger:     cfg.Logger,
		metrics:    m,
		now:        now,
		locks:      newKeyedMutex(),
		contacts:   map[string]*interaction.Contact{},
	}
}

// ClientID is the stable id of a Telegram user.
func ClientID(userID int64) string {
	return "tg:" + strconv.FormatInt(userID, 10)
}

// Do opens the workspace of clientID and runs fn while holding the client's
// lock.
func (s *Service) Do(ctx context.Context, clientID string, fn func(ctx context.Context, ws *Workspace) error) error {
	unlock := s.locks.Lock(clientID)
	defer unlock()

	ws, err := s.open(ctx, clientID)
	if err != nil {
		return err
	}
	return fn(ctx, ws)
}

func (s *Service) open(ctx context.Context, clientID string) (*Workspace, error) {
	adapter := kv.New(s.backends(clientID), s.logger.With().Str("client_id", clientID).Logger())

	ledger := budget.Open(ctx, adapter)

	// legacy rating keys are named after vendor ids, so the state needs them
	// before the catalog itself is opened
	ids := vendorIDs(kv.Load(ctx, adapter, catalog.StorageKey, []catalog.Vendor(nil)))
	if len(ids) == 0 {
		ids = vendorIDs(s.seed)
	}
	state, err := interaction.Open(ctx, adapter, ids)
	if err != nil {
		return nil, fmt.Errorf("open client state: %w", err)
	}

	store, err := catalog.Open(ctx, adapter, s.seed, ledger, state)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	return &Workspace{
		ClientID: clientID,
		Catalog:  store,
		Ledger:   ledger,
		State:    state,
		svc:      s,
	}, nil
}

// Reset drops every persisted key of the client. The next Do starts from the
// seed catalog with an empty budget.
func (s *Service) Reset(ctx context.Context, clientID string) error {
	unlock := s.locks.Lock(clientID)
	defer unlock()

	adapter := kv.New(s.backends(clientID), s.logger)
	for _, key := range []string{catalog.StorageKey, budget.StorageKey, interaction.StateKey} {
		if err := adapter.Clear(ctx, key); err != nil {
			return fmt.Errorf("reset %s: %w", key, err)
		}
	}
	s.dropContacts(clientID)
	return nil
}

// Contact returns the contact flow of one vendor card, creating it in the
// editing phase. A sent flow is kept until its reset timer fires.
func (s *Service) Contact(clientID string, v catalog.Vendor) *interaction.Contact {
	key := clientID + "/" + v.ID
	s.contactsMu.Lock()
	defer s.contactsMu.Unlock()
	if c, ok := s.contacts[key]; ok {
		return c
	}
	c := interaction.NewContact(interaction.ContactConfig{
		ClientID:   clientID,
		Vendor:     v,
		Submitter:  s.submitter,
		ResetAfter: s.resetAfter,
		OnReset:    func() { s.forgetContact(key) },
	})
	s.contacts[key] = c
	return c
}

func (s *Service) forgetContact(key string) {
	s.contactsMu.Lock()
	defer s.contactsMu.Unlock()
	delete(s.contacts, key)
}

func (s *Service) dropContacts(clientID string) {
	s.contactsMu.Lock()
	defer s.contactsMu.Unlock()
	prefix := clientID + "/"
	for key, c := range s.contacts {
		if strings.HasPrefix(key, prefix) {
			c.Close()
			delete(s.contacts, key)
		}
	}
}

// Close stops pending contact timers.
func (s *Service) Close() {
	s.contactsMu.Lock()
	defer s.contactsMu.Unlock()
	for key, c := range s.contacts {
		c.Close()
		delete(s.contacts, key)
	}
}

func vendorIDs(vendors []catalog.Vendor) []string {
	out := make([]string, 0, len(vendors))
	for _, v := range vendors {
		out = append(out, v.ID)
	}
	return out
}
