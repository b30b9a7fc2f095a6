package watcher

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvaslink/internal/adapters/filesystem"
	"canvaslink/internal/domain"
	"canvaslink/internal/ports"
)

type recordingEngine struct {
	mu  sync.Mutex
	ops []domain.Operation
}

func (e *recordingEngine) Derive(ctx context.Context, source string) (string, error) {
	return "", errors.New("not supported")
}

func (e *recordingEngine) Submit(op domain.Operation) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ops = append(e.ops, op)
	return nil
}

func (e *recordingEngine) submitted() []domain.Operation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.Operation(nil), e.ops...)
}

const (
	initialCanvas = `{"nodes":[{"id":"n1","type":"text","text":"one"}],"edges":[]}`
	editedCanvas  = `{"nodes":[{"id":"n1","type":"text","text":"uno"},{"id":"n2","type":"text","text":"two"}],"edges":[]}`
)

func newTestDetector(t *testing.T) (string, *filesystem.Repository, *Detector, *recordingEngine) {
	t.Helper()
	vault := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(vault, "A.canvas"), []byte(initialCanvas), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(vault, ".obsidian"), 0755))

	repo := filesystem.NewRepository(vault)
	engine := &recordingEngine{}
	d, err := New(vault, repo, engine, &Options{Debounce: 50 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(d.Stop)
	return vault, repo, d, engine
}

func TestObserve_EmitsDiffAgainstSnapshot(t *testing.T) {
	vault, _, d, engine := newTestDetector(t)
	ctx := context.Background()
	require.NoError(t, d.Seed(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(vault, "A.canvas"), []byte(editedCanvas), 0644))
	ops := d.Observe(ctx, "A.canvas")

	require.Len(t, ops, 2)
	assert.Equal(t, domain.OpUpdateNodeText, ops[0].Kind)
	assert.Equal(t, "n1", ops[0].NodeID)
	assert.Equal(t, "uno", ops[0].Text)
	assert.Equal(t, domain.OpCreateNode, ops[1].Kind)
	assert.Equal(t, "n2", ops[1].NodeID)
	assert.Len(t, engine.submitted(), 2)

	assert.Empty(t, d.Observe(ctx, "A.canvas"), "an unchanged file yields nothing")
}

func TestObserve_FirstSightingOnlySnapshots(t *testing.T) {
	vault, _, d, engine := newTestDetector(t)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(vault, "New.canvas"), []byte(initialCanvas), 0644))
	assert.Empty(t, d.Observe(ctx, "New.canvas"))

	require.NoError(t, os.WriteFile(filepath.Join(vault, "New.canvas"), []byte(`{"nodes":[],"edges":[]}`), 0644))
	ops := d.Observe(ctx, "New.canvas")
	require.Len(t, ops, 1)
	assert.Equal(t, domain.OpDeleteNode, ops[0].Kind)
	assert.Len(t, engine.submitted(), 1)
}

func TestObserve_IgnoresPartialWrites(t *testing.T) {
	vault, _, d, _ := newTestDetector(t)
	ctx := context.Background()
	require.NoError(t, d.Seed(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(vault, "A.canvas"), []byte(`{"nodes":[{"id":`), 0644))
	assert.Empty(t, d.Observe(ctx, "A.canvas"))

	// the snapshot survived, so the completed write diffs against the original
	require.NoError(t, os.WriteFile(filepath.Join(vault, "A.canvas"), []byte(editedCanvas), 0644))
	assert.Len(t, d.Observe(ctx, "A.canvas"), 2)
}

func TestObserve_IgnoresTruncation(t *testing.T) {
	vault, _, d, _ := newTestDetector(t)
	ctx := context.Background()
	require.NoError(t, d.Seed(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(vault, "A.canvas"), nil, 0644))
	assert.Empty(t, d.Observe(ctx, "A.canvas"), "an emptied file must not read as every node deleted")
}

func TestObserve_RemovedFileIsForgotten(t *testing.T) {
	vault, _, d, _ := newTestDetector(t)
	ctx := context.Background()
	require.NoError(t, d.Seed(ctx))
	require.Equal(t, 1, d.snapshotCount())

	require.NoError(t, os.Remove(filepath.Join(vault, "A.canvas")))
	assert.Empty(t, d.Observe(ctx, "A.canvas"))
	assert.Equal(t, 0, d.snapshotCount())
}

func TestStore_EngineWritesAreNotEchoed(t *testing.T) {
	_, repo, d, engine := newTestDetector(t)
	ctx := context.Background()
	require.NoError(t, d.Seed(ctx))

	store := d.Store(repo)
	require.NoError(t, store.Modify(ctx, "A.canvas", []byte(editedCanvas)))
	require.NoError(t, store.Create(ctx, "AC1.canvas", []byte(initialCanvas)))

	assert.Empty(t, d.Observe(ctx, "A.canvas"))
	assert.Empty(t, d.Observe(ctx, "AC1.canvas"))
	assert.Empty(t, engine.submitted())
}

func TestStore_DeleteForgetsSnapshot(t *testing.T) {
	_, repo, d, engine := newTestDetector(t)
	ctx := context.Background()
	require.NoError(t, d.Seed(ctx))

	store := d.Store(repo)
	require.NoError(t, store.Create(ctx, "AC1.canvas", []byte(initialCanvas)))
	require.Equal(t, 2, d.snapshotCount())

	require.NoError(t, store.Delete(ctx, "AC1.canvas"))
	assert.Equal(t, 1, d.snapshotCount())
	assert.Empty(t, d.Observe(ctx, "AC1.canvas"))
	assert.Empty(t, engine.submitted())
}

type failingStore struct {
	ports.DocumentStore
}

func (failingStore) Modify(ctx context.Context, path string, content []byte) error {
	return errors.New("disk full")
}

func TestStore_FailedWriteRestoresSnapshot(t *testing.T) {
	vault, repo, d, _ := newTestDetector(t)
	ctx := context.Background()
	require.NoError(t, d.Seed(ctx))

	store := d.Store(failingStore{DocumentStore: repo})
	assert.Error(t, store.Modify(ctx, "A.canvas", []byte(editedCanvas)))

	// a user edit with the same content must still be detected
	require.NoError(t, os.WriteFile(filepath.Join(vault, "A.canvas"), []byte(editedCanvas), 0644))
	assert.Len(t, d.Observe(ctx, "A.canvas"), 2)
}

func TestDetector_WatchesVault(t *testing.T) {
	vault, _, d, engine := newTestDetector(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, d.Start(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(vault, "A.canvas"), []byte(editedCanvas), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(vault, ".obsidian", "workspace.canvas"), []byte(editedCanvas), 0644))

	assert.Eventually(t, func() bool {
		return len(engine.submitted()) == 2
	}, 3*time.Second, 20*time.Millisecond)

	for _, op := range engine.submitted() {
		assert.Equal(t, "A.canvas", op.Source)
	}
}

func TestWatchNewDir_LogsFailure(t *testing.T) {
	vault := t.TempDir()
	var logs bytes.Buffer
	d, err := New(vault, filesystem.NewRepository(vault), nil, &Options{
		Logger: slog.New(slog.NewTextHandler(&logs, nil)),
	})
	require.NoError(t, err)
	d.Stop()

	d.watchNewDir(vault)
	assert.Contains(t, logs.String(), "failed to watch new directory")
}

func TestRelCanvasPath(t *testing.T) {
	d := &Detector{root: "/vault"}

	tests := []struct {
		name   string
		abs    string
		want   string
		wantOK bool
	}{
		{name: "top level", abs: "/vault/A.canvas", want: "A.canvas", wantOK: true},
		{name: "nested", abs: "/vault/boards/B.canvas", want: "boards/B.canvas", wantOK: true},
		{name: "markdown", abs: "/vault/notes.md"},
		{name: "hidden dir", abs: "/vault/.trash/A.canvas"},
		{name: "outside", abs: "/elsewhere/A.canvas"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := d.relCanvasPath(tt.abs)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
