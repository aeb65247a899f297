package main

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/zaloga/internal/config"
	"github.com/erazemk/zaloga/internal/inventory"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/notify"
)

// run executes the CLI against dbPath and returns what it printed to stdout.
func run(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	c := newRootCmd()
	c.SetOut(&out)
	c.SetErr(&errOut)
	c.SetArgs(append([]string{"--db", dbPath}, args...))
	err := c.Execute()
	return out.String(), err
}

func tempDB(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return filepath.Join(dir, "zaloga.sqlite3")
}

func TestInitPrintsPassphraseOnce(t *testing.T) {
	dbPath := tempDB(t)

	out, err := run(t, dbPath, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Passphrase: ")

	out, err = run(t, dbPath, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Already initialized")

	out, err = run(t, dbPath, "init", "--reset-passphrase")
	require.NoError(t, err)
	assert.Contains(t, out, "Passphrase: ")
}

func TestAddListRemove(t *testing.T) {
	dbPath := tempDB(t)

	out, err := run(t, dbPath, "list")
	require.NoError(t, err)
	assert.Equal(t, "No items available.\n", out)

	_, err = run(t, dbPath, "add", "Rice", "5")
	require.NoError(t, err)
	_, err = run(t, dbPath, "add", "Oil", " 2 ")
	require.NoError(t, err)

	out, err = run(t, dbPath, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Rice")
	assert.Contains(t, out, "Oil")

	out, err = run(t, dbPath, "rm", "1")
	require.NoError(t, err)
	assert.Equal(t, "Removed item 1.\n", out)

	out, err = run(t, dbPath, "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "Rice")
	assert.Contains(t, out, "Oil")
}

func TestInvalidArguments(t *testing.T) {
	dbPath := tempDB(t)

	_, err := run(t, dbPath, "add", "Rice", "a lot")
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = run(t, dbPath, "add", "  ", "1")
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = run(t, dbPath, "rm", "zero")
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = run(t, dbPath, "add", "Rice")
	assert.Error(t, err)

	_, err = run(t, dbPath, "--db-driver", "mysql", "list")
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestAddWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	dbPath := tempDB(t)

	_, err := run(t, dbPath, "--redis", mr.Addr(), "add", "Salt", "1")
	require.NoError(t, err)

	out, err := run(t, dbPath, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Salt")
}

func TestPrintItems(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printItems(&buf, []model.Item{{ID: 1, Name: "Rice", Quantity: 5}, {ID: 12, Name: "Olive oil", Quantity: 2}}))
	assert.Equal(t, "ID  NAME       QUANTITY\n1   Rice       5\n12  Olive oil  2\n", buf.String())
}

// openServerBackend opens dbPath the way serve does.
func openServerBackend(t *testing.T, dbPath string) *backend {
	t.Helper()
	a := &app{v: config.NewViper()}
	a.v.Set("db.dsn", dbPath)
	a.v.Set("db.poll_interval", 10*time.Millisecond)
	cfg, err := config.Load(a.v, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	a.cfg = cfg

	b, err := a.openBackend(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestDefaultNotifierWatchesDatabaseFile(t *testing.T) {
	b := openServerBackend(t, tempDB(t))
	assert.IsType(t, &notify.SQLiteNotifier{}, b.notifier)
}

func TestRunningHolderSeesCLIWrites(t *testing.T) {
	dbPath := tempDB(t)
	b := openServerBackend(t, dbPath)

	h, err := inventory.NewStateHolder(context.Background(), inventory.NewRepository(b.store),
		inventory.WithLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	<-h.Ready()

	_, err = run(t, dbPath, "add", "Rice", "5")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		items := h.Items()
		return len(items) == 1 && items[0].Name == "Rice"
	}, 2*time.Second, 10*time.Millisecond)

	_, err = run(t, dbPath, "rm", "1")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(h.Items()) == 0 }, 2*time.Second, 10*time.Millisecond)
}
