package migrations

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLogger struct {
	infos []string
	warns []string
}

func (l *testLogger) Info(msg string, _ ...any)  { l.infos = append(l.infos, msg) }
func (l *testLogger) Warn(msg string, _ ...any)  { l.warns = append(l.warns, msg) }
func (l *testLogger) Error(msg string, _ ...any) {}

type fakeMigrator struct {
	upErr   error
	downErr error
	steps   []int
	downs   int
}

func (m *fakeMigrator) Up() error { return m.upErr }
func (m *fakeMigrator) Down() error {
	m.downs++
	return m.downErr
}
func (m *fakeMigrator) Steps(n int) error {
	m.steps = append(m.steps, n)
	return m.downErr
}
func (m *fakeMigrator) Close() (error, error) { return nil, nil }

type blockingMigrator struct {
	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
}

func newBlockingMigrator() *blockingMigrator {
	return &blockingMigrator{closeCh: make(chan struct{})}
}

func (m *blockingMigrator) Up() error {
	<-m.closeCh
	return nil
}
func (m *blockingMigrator) Down() error     { return m.Up() }
func (m *blockingMigrator) Steps(int) error { return m.Up() }
func (m *blockingMigrator) Close() (error, error) {
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		close(m.closeCh)
	})
	return nil, nil
}

// stubFactories swaps the driver and migrator factories for the duration of the test.
func stubFactories(t *testing.T, m migrator, onSource func(string)) {
	t.Helper()

	origDriverFactory := driverFactory
	origMigratorFactory := migratorFactory
	t.Cleanup(func() {
		driverFactory = origDriverFactory
		migratorFactory = origMigratorFactory
	})

	driverFactory = func(_ *sql.DB, cfg Config) (database.Driver, error) {
		require.NotEmpty(t, cfg.MigrationsTable)
		return nil, nil
	}
	migratorFactory = func(sourceURL string, _ database.Driver) (migrator, error) {
		if onSource != nil {
			onSource(sourceURL)
		}
		if m == nil {
			return nil, errors.New("boom")
		}
		return m, nil
	}
}

func TestUp_NilDB(t *testing.T) {
	assert.Error(t, Up(context.Background(), nil, Config{}))
	assert.Error(t, Down(context.Background(), nil, Config{}, 1))
}

func TestUp_ContextAlreadyCancelled_ReturnsCtxErr(t *testing.T) {
	called := false
	stubFactories(t, &fakeMigrator{}, func(string) { called = true })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Up(ctx, &sql.DB{}, Config{Dir: t.TempDir()})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called, "no migrator should be created once ctx is cancelled")
}

func TestUp_ContextDeadlineExceeded_ReturnsCtxErr_AndCloses(t *testing.T) {
	block := newBlockingMigrator()
	stubFactories(t, block, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := Up(ctx, &sql.DB{}, Config{Dir: t.TempDir()})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, block.closed.Load())
}

func TestUp_ErrNoChange_ReturnsNil(t *testing.T) {
	logger := &testLogger{}
	stubFactories(t, &fakeMigrator{upErr: migrate.ErrNoChange}, nil)

	require.NoError(t, Up(context.Background(), &sql.DB{}, Config{Dir: t.TempDir(), Logger: logger}))
	assert.Contains(t, logger.infos, "No migrations to apply")
}

func TestUp_Success_LogsApplied(t *testing.T) {
	logger := &testLogger{}
	stubFactories(t, &fakeMigrator{}, nil)

	require.NoError(t, Up(context.Background(), &sql.DB{}, Config{Dir: t.TempDir(), Logger: logger}))
	assert.Contains(t, logger.infos, "Migrations applied successfully")
}

func TestUp_WrapsFailure(t *testing.T) {
	stubFactories(t, &fakeMigrator{upErr: errors.New("syntax error at or near")}, nil)

	err := Up(context.Background(), &sql.DB{}, Config{Dir: t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrations: up")
}

func TestDown_WithStepsRollsBackThatMany(t *testing.T) {
	logger := &testLogger{}
	m := &fakeMigrator{}
	stubFactories(t, m, nil)

	require.NoError(t, Down(context.Background(), &sql.DB{}, Config{Dir: t.TempDir(), Logger: logger}, 2))
	assert.Equal(t, []int{-2}, m.steps)
	assert.Equal(t, 0, m.downs)
	assert.Contains(t, logger.infos, "Migrations rolled back successfully")
}

func TestDown_WithoutStepsRollsBackAll(t *testing.T) {
	m := &fakeMigrator{}
	stubFactories(t, m, nil)

	require.NoError(t, Down(context.Background(), &sql.DB{}, Config{Dir: t.TempDir()}, 0))
	assert.Equal(t, 1, m.downs)
	assert.Empty(t, m.steps)
}

func TestUp_MigratorInitError(t *testing.T) {
	stubFactories(t, nil, nil)

	err := Up(context.Background(), &sql.DB{}, Config{Dir: t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrations: init")
}

func TestUp_HandlesPathsWithSpecialCharacters(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "my migrations dir")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	var gotSourceURL string
	stubFactories(t, &fakeMigrator{upErr: migrate.ErrNoChange}, func(s string) { gotSourceURL = s })

	require.NoError(t, Up(context.Background(), &sql.DB{}, Config{Dir: dir}))

	parsed, err := url.Parse(gotSourceURL)
	require.NoError(t, err)
	assert.Equal(t, "file", parsed.Scheme)

	abs, _ := filepath.Abs(dir)
	assert.Equal(t, filepath.ToSlash(abs), parsed.Path)
}
