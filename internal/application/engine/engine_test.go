package engine

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvaslink/internal/application"
	"canvaslink/internal/application/registry"
	"canvaslink/internal/domain"
	"canvaslink/internal/ports"
)

type write struct {
	path    string
	content string
}

// memStore is an in-memory DocumentStore that records every Modify
type memStore struct {
	mu     sync.Mutex
	files  map[string][]byte
	writes []write
	delay  map[string]time.Duration
	gate   chan struct{} // when set, Modify waits on it

	active    int
	maxActive int
}

func newMemStore(files map[string]string) *memStore {
	s := &memStore{files: map[string][]byte{}, delay: map[string]time.Duration{}}
	for p, c := range files {
		s.files[p] = []byte(c)
	}
	return s
}

func (s *memStore) Read(ctx context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.files[path]
	if !ok {
		return nil, &application.DocumentError{Op: "read", Path: path, Kind: application.ErrNotFound}
	}
	return slices.Clone(c), nil
}

func (s *memStore) Create(ctx context.Context, path string, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[path]; ok {
		return &application.DocumentError{Op: "create", Path: path, Kind: application.ErrAlreadyExists}
	}
	s.files[path] = slices.Clone(content)
	return nil
}

func (s *memStore) Modify(ctx context.Context, path string, content []byte) error {
	s.mu.Lock()
	s.active++
	s.maxActive = max(s.maxActive, s.active)
	d, gate := s.delay[path], s.gate
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	time.Sleep(d)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.active--
	if _, ok := s.files[path]; !ok {
		return &application.DocumentError{Op: "modify", Path: path, Kind: application.ErrNotFound}
	}
	s.files[path] = slices.Clone(content)
	s.writes = append(s.writes, write{path: path, content: string(content)})
	return nil
}

func (s *memStore) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[path]; !ok {
		return &application.DocumentError{Op: "delete", Path: path, Kind: application.ErrNotFound}
	}
	delete(s.files, path)
	return nil
}

func (s *memStore) Exists(ctx context.Context, path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[path]
	return ok
}

func (s *memStore) Resolve(ctx context.Context, path string) (ports.DocumentInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.files[path]
	if !ok {
		return ports.DocumentInfo{}, false
	}
	return ports.DocumentInfo{Path: path, IsFile: true, Size: int64(len(c))}, true
}

func (s *memStore) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.files))
	for p := range s.files {
		out = append(out, p)
	}
	slices.Sort(out)
	return out, nil
}

func (s *memStore) canvas(t *testing.T, path string) *domain.Canvas {
	t.Helper()
	s.mu.Lock()
	content := s.files[path]
	s.mu.Unlock()
	c, err := domain.ParseCanvas(content)
	require.NoError(t, err)
	return c
}

func (s *memStore) writeLog() []write {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.writes)
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []ports.Notice
}

func (n *recordingNotifier) Notify(notice ports.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

// groupStore is a GroupStore whose saves can be made to fail
type groupStore struct {
	mu      sync.Mutex
	groups  []domain.LinkageGroup
	saveErr error
}

func (s *groupStore) LoadGroups(ctx context.Context) ([]domain.LinkageGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groups, nil
}

func (s *groupStore) SaveGroups(ctx context.Context, groups []domain.LinkageGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.groups = groups
	return nil
}

func (s *groupStore) TouchGroup(ctx context.Context, id string, at time.Time) error {
	return nil
}

func (s *groupStore) DataVersion(ctx context.Context) (int64, error) {
	return 0, nil
}

func (s *groupStore) Close() error { return nil }

const emptyCanvas = `{"nodes":[],"edges":[]}`

var fixedNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

func newTestEngine(t *testing.T, store *memStore, groups ...[]string) (*Engine, *registry.Registry) {
	t.Helper()
	ctx := context.Background()
	reg := registry.New(nil)
	for _, members := range groups {
		_, err := reg.CreateGroup(ctx, members, fixedNow.Add(-time.Hour))
		require.NoError(t, err)
	}
	eng, err := New(Config{
		Store:    store,
		Registry: reg,
		Clock:    func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return eng, reg
}

func waitIdle(t *testing.T, eng *Engine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, eng.Wait(ctx))
	assert.Equal(t, StateIdle, eng.State())
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Config{Registry: registry.New(nil)})
	assert.Error(t, err)
	_, err = New(Config{Store: newMemStore(nil)})
	assert.Error(t, err)
}

func TestDerive_ScansWholeGroup(t *testing.T) {
	source := `{"nodes":[{"id":"n1","type":"text","text":"hello"}],"edges":[]}`
	store := newMemStore(map[string]string{
		"A.canvas":   emptyCanvas,
		"AC1.canvas": source,
		"AC3.canvas": emptyCanvas,
	})
	eng, reg := newTestEngine(t, store, []string{"A.canvas", "AC1.canvas", "AC3.canvas"})

	got, err := eng.Derive(context.Background(), "AC1.canvas")
	require.NoError(t, err)
	assert.Equal(t, "AC4.canvas", got)

	created, err := store.Read(context.Background(), "AC4.canvas")
	require.NoError(t, err)
	assert.Equal(t, source, string(created), "derived document must be a byte copy of its source")

	g, ok := reg.FindGroupContaining("AC1.canvas")
	require.True(t, ok)
	assert.Equal(t, []string{"A.canvas", "AC1.canvas", "AC3.canvas", "AC4.canvas"}, g.Members)
	assert.Equal(t, fixedNow, g.LastSyncedAt)
	assert.Len(t, reg.All(), 1)
}

func TestDerive_UngroupedPlainNameStartsAtC1(t *testing.T) {
	store := newMemStore(map[string]string{"boards/Notes.canvas": emptyCanvas})
	eng, reg := newTestEngine(t, store)

	got, err := eng.Derive(context.Background(), "boards/Notes.canvas")
	require.NoError(t, err)
	assert.Equal(t, "boards/NotesC1.canvas", got)

	g, ok := reg.FindGroupContaining("boards/NotesC1.canvas")
	require.True(t, ok)
	assert.Equal(t, []string{"boards/Notes.canvas", "boards/NotesC1.canvas"}, g.Members)
}

func TestDerive_GroupClosure(t *testing.T) {
	store := newMemStore(map[string]string{"Map.canvas": emptyCanvas})
	eng, reg := newTestEngine(t, store)
	ctx := context.Background()

	first, err := eng.Derive(ctx, "Map.canvas")
	require.NoError(t, err)
	second, err := eng.Derive(ctx, first)
	require.NoError(t, err)
	third, err := eng.Derive(ctx, "Map.canvas")
	require.NoError(t, err)

	assert.Equal(t, []string{"MapC1.canvas", "MapC2.canvas", "MapC3.canvas"}, []string{first, second, third})
	all := reg.All()
	require.Len(t, all, 1)
	assert.Equal(t, []string{"Map.canvas", "MapC1.canvas", "MapC2.canvas", "MapC3.canvas"}, all[0].Members)
}

func TestDerive_Failures(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		source  string
		wantErr error
	}{
		{
			name:    "missing source",
			files:   map[string]string{},
			source:  "Ghost.canvas",
			wantErr: application.ErrNotFound,
		},
		{
			name:    "not a canvas",
			files:   map[string]string{"notes.md": "# hi"},
			source:  "notes.md",
			wantErr: application.ErrNotFound,
		},
		{
			name:    "target already exists",
			files:   map[string]string{"Plan.canvas": emptyCanvas, "PlanC1.canvas": `{"nodes":[]}`},
			source:  "Plan.canvas",
			wantErr: application.ErrAlreadyExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore(tt.files)
			notifier := &recordingNotifier{}
			reg := registry.New(nil)
			eng, err := New(Config{Store: store, Registry: reg, Notifier: notifier})
			require.NoError(t, err)

			_, err = eng.Derive(context.Background(), tt.source)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, reg.All(), "a failed derivation must not touch the registry")

			require.Len(t, notifier.notices, 1)
			assert.Equal(t, ports.NoticeError, notifier.notices[0].Level)
		})
	}
}

func TestDerive_LinkFailureRemovesCopy(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(map[string]string{"Map.canvas": emptyCanvas})
	groups := &groupStore{saveErr: errors.New("disk full")}
	reg := registry.New(groups)
	eng, err := New(Config{Store: store, Registry: reg})
	require.NoError(t, err)

	_, err = eng.Derive(ctx, "Map.canvas")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.False(t, store.Exists(ctx, "MapC1.canvas"), "an unlinked copy must not stay behind")
	assert.Empty(t, reg.All())

	groups.saveErr = nil
	got, err := eng.Derive(ctx, "Map.canvas")
	require.NoError(t, err)
	assert.Equal(t, "MapC1.canvas", got)
}

func TestDerive_NotifiesSuccess(t *testing.T) {
	store := newMemStore(map[string]string{"A.canvas": emptyCanvas})
	notifier := &recordingNotifier{}
	eng, err := New(Config{Store: store, Registry: registry.New(nil), Notifier: notifier})
	require.NoError(t, err)

	_, err = eng.Derive(context.Background(), "A.canvas")
	require.NoError(t, err)

	require.Len(t, notifier.notices, 1)
	assert.Equal(t, ports.NoticeInfo, notifier.notices[0].Level)
	assert.Contains(t, notifier.notices[0].Message, "AC1.canvas")
}

func TestSubmit_PropagatesToOtherMembers(t *testing.T) {
	store := newMemStore(map[string]string{
		"A.canvas": emptyCanvas,
		"B.canvas": emptyCanvas,
		"C.canvas": emptyCanvas,
	})
	eng, reg := newTestEngine(t, store, []string{"A.canvas", "B.canvas", "C.canvas"})

	node := domain.NewTextNode("n1", "shared", 10, 20, 250, 60)
	require.NoError(t, eng.Submit(domain.CreateNode("A.canvas", node)))
	waitIdle(t, eng)

	log := store.writeLog()
	require.Len(t, log, 2)
	assert.Equal(t, "B.canvas", log[0].path)
	assert.Equal(t, "C.canvas", log[1].path)

	for _, p := range []string{"B.canvas", "C.canvas"} {
		n, ok := store.canvas(t, p).Node("n1")
		require.True(t, ok, "node missing from %s", p)
		text, _ := n.Text()
		assert.Equal(t, "shared", text)
	}
	assert.Equal(t, 0, store.canvas(t, "A.canvas").NodeCount(), "source must not be written")

	g, _ := reg.FindGroupContaining("A.canvas")
	assert.Equal(t, fixedNow, g.LastSyncedAt)
}

func TestSubmit_UngroupedSourceIsNoop(t *testing.T) {
	store := newMemStore(map[string]string{"Solo.canvas": emptyCanvas, "B.canvas": emptyCanvas})
	eng, _ := newTestEngine(t, store)

	require.NoError(t, eng.Submit(domain.DeleteNode("Solo.canvas", "n1")))
	waitIdle(t, eng)

	assert.Empty(t, store.writeLog())
}

func TestSubmit_PreservesOrderAcrossTargets(t *testing.T) {
	store := newMemStore(map[string]string{
		"A.canvas": emptyCanvas,
		"B.canvas": emptyCanvas,
		"C.canvas": emptyCanvas,
	})
	store.delay["B.canvas"] = 40 * time.Millisecond
	eng, _ := newTestEngine(t, store, []string{"A.canvas", "B.canvas", "C.canvas"})

	require.NoError(t, eng.Submit(domain.CreateNode("A.canvas", domain.NewTextNode("n1", "v1", 0, 0, 10, 10))))
	require.NoError(t, eng.Submit(domain.UpdateNodeText("A.canvas", "n1", "v2")))
	waitIdle(t, eng)

	log := store.writeLog()
	require.Len(t, log, 4)
	got := make([]string, len(log))
	for i, w := range log {
		version := "v1"
		if strings.Contains(w.content, `"v2"`) {
			version = "v2"
		}
		got[i] = w.path + ":" + version
	}
	assert.Equal(t, []string{"B.canvas:v1", "C.canvas:v1", "B.canvas:v2", "C.canvas:v2"}, got)
	assert.Equal(t, 1, store.maxActive, "writes must never overlap")
}

func TestSubmit_SkipsUnparseableTarget(t *testing.T) {
	store := newMemStore(map[string]string{
		"A.canvas": emptyCanvas,
		"B.canvas": `{"nodes": not json`,
		"C.canvas": emptyCanvas,
	})
	eng, _ := newTestEngine(t, store, []string{"A.canvas", "B.canvas", "C.canvas"})

	require.NoError(t, eng.Submit(domain.CreateNode("A.canvas", domain.NewTextNode("n1", "x", 0, 0, 10, 10))))
	waitIdle(t, eng)

	log := store.writeLog()
	require.Len(t, log, 1)
	assert.Equal(t, "C.canvas", log[0].path)

	b, err := store.Read(context.Background(), "B.canvas")
	require.NoError(t, err)
	assert.Equal(t, `{"nodes": not json`, string(b))
}

func TestSubmit_SkipsMissingTarget(t *testing.T) {
	store := newMemStore(map[string]string{"A.canvas": emptyCanvas, "C.canvas": emptyCanvas})
	eng, _ := newTestEngine(t, store, []string{"A.canvas", "Gone.canvas", "C.canvas"})

	require.NoError(t, eng.Submit(domain.CreateNode("A.canvas", domain.NewTextNode("n1", "x", 0, 0, 10, 10))))
	waitIdle(t, eng)

	log := store.writeLog()
	require.Len(t, log, 1)
	assert.Equal(t, "C.canvas", log[0].path)
}

func TestSubmit_DeleteCleansEdgesInTargets(t *testing.T) {
	target := `{"nodes":[{"id":"a","type":"text","text":""},{"id":"b","type":"text","text":""}],` +
		`"edges":[{"id":"ab","fromNode":"a","toNode":"b"},{"id":"ba","fromNode":"b","toNode":"a"}]}`
	store := newMemStore(map[string]string{"A.canvas": emptyCanvas, "B.canvas": target})
	eng, _ := newTestEngine(t, store, []string{"A.canvas", "B.canvas"})

	require.NoError(t, eng.Submit(domain.DeleteNode("A.canvas", "a")))
	waitIdle(t, eng)

	c := store.canvas(t, "B.canvas")
	_, ok := c.Node("a")
	assert.False(t, ok)
	assert.Empty(t, c.Edges())
}

func TestSubmit_UnchangedTargetIsNotWritten(t *testing.T) {
	target := `{"nodes":[{"id":"n1","type":"text","text":"same"}],"edges":[]}`
	store := newMemStore(map[string]string{"A.canvas": target, "B.canvas": target})
	eng, _ := newTestEngine(t, store, []string{"A.canvas", "B.canvas"})

	require.NoError(t, eng.Submit(domain.UpdateNodeText("A.canvas", "n1", "same")))
	require.NoError(t, eng.Submit(domain.UpdateNodeText("A.canvas", "absent", "x")))
	waitIdle(t, eng)

	assert.Empty(t, store.writeLog())
}

func TestSubmit_RejectsInvalidOperation(t *testing.T) {
	eng, _ := newTestEngine(t, newMemStore(nil))

	err := eng.Submit(domain.Operation{Kind: domain.OpDeleteNode, Source: "A.canvas"})
	assert.ErrorIs(t, err, application.ErrInvalidOperation)
	assert.Equal(t, StateIdle, eng.State())
}

func TestEngine_SingleFlightState(t *testing.T) {
	store := newMemStore(map[string]string{"A.canvas": emptyCanvas, "B.canvas": emptyCanvas})
	store.gate = make(chan struct{})
	eng, _ := newTestEngine(t, store, []string{"A.canvas", "B.canvas"})

	require.NoError(t, eng.Submit(domain.CreateNode("A.canvas", domain.NewTextNode("n1", "x", 0, 0, 10, 10))))
	require.NoError(t, eng.Submit(domain.CreateNode("A.canvas", domain.NewTextNode("n2", "y", 0, 0, 10, 10))))
	assert.Equal(t, StateDraining, eng.State())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, eng.Wait(ctx), context.DeadlineExceeded)

	close(store.gate)
	waitIdle(t, eng)
	assert.Equal(t, 0, eng.Pending())
	assert.Len(t, store.writeLog(), 2)
}

func TestEngine_DeriveWaitsBehindQueuedOperations(t *testing.T) {
	store := newMemStore(map[string]string{"A.canvas": emptyCanvas, "AC1.canvas": emptyCanvas})
	store.delay["AC1.canvas"] = 30 * time.Millisecond
	eng, _ := newTestEngine(t, store, []string{"A.canvas", "AC1.canvas"})

	require.NoError(t, eng.Submit(domain.CreateNode("A.canvas", domain.NewTextNode("n1", "x", 0, 0, 10, 10))))
	derived, err := eng.Derive(context.Background(), "AC1.canvas")
	require.NoError(t, err)
	assert.Equal(t, "AC2.canvas", derived)

	// the derivation ran after the create landed in AC1, so the copy has it
	_, ok := store.canvas(t, derived).Node("n1")
	assert.True(t, ok)
}

func TestEngine_DeriveThenPropagateAcrossGroup(t *testing.T) {
	ctx := context.Background()
	doc := `{"nodes":[{"id":"n1","type":"text","text":"draft"}],"edges":[]}`
	store := newMemStore(map[string]string{
		"A.canvas":   doc,
		"AC1.canvas": doc,
		"AC3.canvas": doc,
	})
	eng, reg := newTestEngine(t, store, []string{"A.canvas", "AC1.canvas", "AC3.canvas"})

	derived, err := eng.Derive(ctx, "AC1.canvas")
	require.NoError(t, err)
	require.Equal(t, "AC4.canvas", derived)

	g, ok := reg.FindGroupContaining("A.canvas")
	require.True(t, ok)
	assert.Equal(t, []string{"A.canvas", "AC1.canvas", "AC3.canvas", "AC4.canvas"}, g.Members)

	require.NoError(t, eng.Submit(domain.UpdateNodeText("A.canvas", "n1", "hi")))
	waitIdle(t, eng)

	log := store.writeLog()
	paths := make([]string, len(log))
	for i, w := range log {
		paths[i] = w.path
	}
	assert.Equal(t, []string{"AC1.canvas", "AC3.canvas", "AC4.canvas"}, paths)

	for _, p := range paths {
		n, ok := store.canvas(t, p).Node("n1")
		require.True(t, ok)
		text, _ := n.Text()
		assert.Equal(t, "hi", text, p)
	}

	source, err := store.Read(ctx, "A.canvas")
	require.NoError(t, err)
	assert.Equal(t, doc, string(source), "the source is never rewritten")
}
