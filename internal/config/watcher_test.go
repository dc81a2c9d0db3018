package config

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andreiPopCatalin/gale-chat/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWatcherLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestWatcherLoadsInitialConfig(t *testing.T) {
	path := writeConfigFile(t, `{"database": {"path": "chat.db"}, "log_level": "debug"}`)

	w := NewWatcher(path, newWatcherLogger())
	w.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Start(ctx) }()

	require.Eventually(t, func() bool {
		return w.GetConfig() != nil
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "debug", w.GetConfig().LogLevel)

	cancel()
	require.NoError(t, <-errCh)
}

func TestWatcherInvalidInitialConfig(t *testing.T) {
	path := writeConfigFile(t, `{not json`)

	w := NewWatcher(path, newWatcherLogger())
	assert.Error(t, w.Start(context.Background()))
}

func TestWatcherReloadsOnChange(t *testing.T) {
	path := writeConfigFile(t, `{"database": {"path": "chat.db"}, "log_level": "info"}`)

	w := NewWatcher(path, newWatcherLogger())
	w.interval = 10 * time.Millisecond

	var notified atomic.Int64
	w.OnChange(func(c *models.Config) {
		if c.LogLevel == "debug" {
			notified.Add(1)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Start(ctx) }()

	require.Eventually(t, func() bool {
		return w.GetConfig() != nil
	}, time.Second, 5*time.Millisecond)

	// Rewrite with a future mod time so the poll sees a change.
	require.NoError(t, os.WriteFile(path, []byte(`{"database": {"path": "chat.db"}, "log_level": "debug"}`), 0600))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	require.Eventually(t, func() bool {
		return notified.Load() >= 1
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, "debug", w.GetConfig().LogLevel)
}

func TestWatcherKeepsOldConfigOnBadReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"database": {"path": "chat.db"}, "log_level": "info"}`), 0600))

	w := NewWatcher(path, newWatcherLogger())
	w.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Start(ctx) }()

	require.Eventually(t, func() bool {
		return w.GetConfig() != nil
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte(`{broken`), 0600))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	time.Sleep(200 * time.Millisecond)
	require.NotNil(t, w.GetConfig())
	assert.Equal(t, "info", w.GetConfig().LogLevel)
}
