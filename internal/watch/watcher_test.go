package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startWatcher(t *testing.T, dir string, run RunFunc) *Watcher {
	t.Helper()
	w, err := New(dir, 100*time.Millisecond, run, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(w.Stop)
	return w
}

func TestWatcher_RunsOnceAfterBurst(t *testing.T) {
	dir := t.TempDir()
	var runs atomic.Int32
	w := startWatcher(t, dir, func(context.Context) error {
		runs.Add(1)
		return nil
	})

	for _, name := range []string{"basal_profile.json", "carb_ratios.json", "profile.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(`[]`), 0644))
	}

	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 5*time.Second, 20*time.Millisecond)
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load(), "a burst of writes should trigger a single run")

	stats := w.Stats()
	assert.GreaterOrEqual(t, stats.Events, 3)
	assert.Equal(t, 1, stats.Runs)
	assert.Equal(t, dir, filepath.Dir(stats.LastEventPath))
}

func TestWatcher_IgnoresEditorFiles(t *testing.T) {
	dir := t.TempDir()
	var runs atomic.Int32
	startWatcher(t, dir, func(context.Context) error {
		runs.Add(1)
		return nil
	})

	for _, name := range []string{".profile.json.swp", "profile.json~", "basal.tmp"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(`x`), 0644))
	}
	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, int32(0), runs.Load())
}

func TestWatcher_CountsFailures(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir, func(context.Context) error {
		return errors.New("missing input file")
	})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "profile.json"), []byte(`{}`), 0644))
	require.Eventually(t, func() bool { return w.Stats().Failures == 1 }, 5*time.Second, 20*time.Millisecond)
}

func TestWatcher_StopsOnContextCancel(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, 50*time.Millisecond, func(context.Context) error { return nil }, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	cancel()

	select {
	case <-w.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
	w.Stop()
}

func TestWatcher_StartMissingDir(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "absent"), 0, func(context.Context) error { return nil }, nil)
	require.NoError(t, err)
	assert.Error(t, w.Start(context.Background()))
	w.Stop()
}
