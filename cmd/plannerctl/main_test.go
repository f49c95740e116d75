package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"feestplanner/internal/budget"
	"feestplanner/internal/catalog"
	"feestplanner/internal/crypto"
	"feestplanner/internal/interaction"
	"feestplanner/internal/kv"
	"feestplanner/internal/planner"
	"feestplanner/internal/storage"
)

type fixture struct {
	store   *storage.Store
	planner *planner.Service
	keyring *crypto.Keyring
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.Open(context.Background(), "sqlite3", ":memory:", true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	svc := planner.New(planner.Config{
		Backends: func(clientID string) kv.Backend { return store.ForClient(clientID) },
		Logger:   zerolog.Nop(),
	})
	t.Cleanup(svc.Close)
	return &fixture{store: store, planner: svc}
}

func (f *fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	open := func(context.Context) (*app, error) {
		return &app{
			store:       f.store,
			keyring:     f.keyring,
			planner:     f.planner,
			seed:        catalog.DefaultSeed(),
			ledgerTitle: "Test Budget",
			logger:      zerolog.Nop(),
		}, nil
	}
	var out bytes.Buffer
	root := newRootCmd(open)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func testKey(b byte) []byte {
	return bytes.Repeat([]byte{b}, 32)
}

func TestCatalogListSeedAndClient(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "catalog", "list", "--category", catalog.CategoryMusic)
	require.NoError(t, err)
	require.Contains(t, out, "DJ Yassin")
	require.Contains(t, out, "Dakka Fantasia")
	require.NotContains(t, out, "Het Paleis")

	err = f.planner.Do(context.Background(), "tg:1", func(ctx context.Context, ws *planner.Workspace) error {
		_, err := ws.ToggleFavorite(ctx, "3")
		return err
	})
	require.NoError(t, err)

	out, err = f.run(t, "catalog", "list", "--client", "tg:1", "--id", "3")
	require.NoError(t, err)
	require.Contains(t, out, "DJ Yassin")
	require.Contains(t, out, "fav")
	require.NotContains(t, out, "Dakka Fantasia")
}

func TestCatalogValidate(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`vendors:
  - id: "a"
    name: Henna Salon
    category: Henna
    price_start: 120
`), 0o600))

	out, err := f.run(t, "catalog", "validate", path)
	require.NoError(t, err)
	require.Contains(t, out, "1 vendors")
	require.Contains(t, out, "Henna")

	require.NoError(t, os.WriteFile(path, []byte("vendors:\n  - name: nameless\n"), 0o600))
	_, err = f.run(t, "catalog", "validate", path)
	require.Error(t, err)
}

func TestBudgetExportAndReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	err := f.planner.Do(ctx, "tg:1", func(ctx context.Context, ws *planner.Workspace) error {
		if _, _, err := ws.AddToBudget(ctx, "3"); err != nil {
			return err
		}
		_, err := ws.AddManualItem(ctx, "Bloemen", "150")
		return err
	})
	require.NoError(t, err)

	out, err := f.run(t, "budget", "show", "--client", "tg:1")
	require.NoError(t, err)
	require.Contains(t, out, "DJ Yassin")
	require.Contains(t, out, "TOTAL")

	out, err = f.run(t, "budget", "export", "--client", "tg:1")
	require.NoError(t, err)
	require.Contains(t, out, "Test Budget")
	require.Contains(t, out, "Bloemen")

	target := filepath.Join(t.TempDir(), "mijn-budget.txt")
	_, err = f.run(t, "budget", "export", "--client", "tg:1", "-o", target)
	require.NoError(t, err)
	written, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Contains(t, string(written), "Bloemen")

	out, err = f.run(t, "client", "state", "--client", "tg:1")
	require.NoError(t, err)
	require.Contains(t, out, budget.StorageKey)

	_, err = f.run(t, "client", "reset", "--client", "tg:1")
	require.Error(t, err)

	_, err = f.run(t, "client", "reset", "--client", "tg:1", "--yes")
	require.NoError(t, err)

	err = f.planner.Do(ctx, "tg:1", func(_ context.Context, ws *planner.Workspace) error {
		require.Empty(t, ws.Ledger.Items())
		return nil
	})
	require.NoError(t, err)
}

func TestOutboxListMarkAndRekey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old, err := crypto.NewKeyring("old", map[string][]byte{"old": testKey(1)})
	require.NoError(t, err)
	sub := &interaction.OutboxSubmitter{Outbox: f.store, Keyring: old, Logger: zerolog.Nop()}
	res := sub.Submit(ctx, "tg:9", catalog.DefaultSeed()[2], interaction.Form{
		Name:    "Samira",
		Email:   "samira@example.nl",
		Message: "Is 12 juni nog vrij?",
	})
	require.Equal(t, interaction.StatusSent, res.Status)

	_, err = f.run(t, "outbox", "rekey")
	require.ErrorIs(t, err, errNoKeyring)

	f.keyring, err = crypto.NewKeyring("new", map[string][]byte{"old": testKey(1), "new": testKey(2)})
	require.NoError(t, err)

	out, err := f.run(t, "outbox", "list", "--decrypt")
	require.NoError(t, err)
	require.Contains(t, out, "samira@example.nl")

	out, err = f.run(t, "outbox", "rekey")
	require.NoError(t, err)
	require.Contains(t, out, "rekeyed 1 of 1")

	out, err = f.run(t, "outbox", "rekey")
	require.NoError(t, err)
	require.Contains(t, out, "rekeyed 0 of 1")

	only, err := crypto.NewKeyring("new", map[string][]byte{"new": testKey(2)})
	require.NoError(t, err)
	rows, err := f.store.ListContactRequests(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	var form interaction.Form
	require.NoError(t, only.OpenJSON(rows[0].EncPayload, "tg:9", &form))
	require.Equal(t, "Samira", form.Name)

	_, err = f.run(t, "outbox", "mark", "--id", "1", "--status", "bogus")
	require.Error(t, err)
	out, err = f.run(t, "outbox", "mark", "--id", "1")
	require.NoError(t, err)
	require.Contains(t, out, "delivered")

	out, err = f.run(t, "outbox", "list")
	require.NoError(t, err)
	require.NotContains(t, out, "tg:9")
}
