package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqd/internal/config"
	"github.com/fyrsmithlabs/docqd/internal/ingest"
)

type stubIngestor struct {
	mu      sync.Mutex
	err     error
	uploads chan ingest.Upload
}

func newStubIngestor() *stubIngestor {
	return &stubIngestor{uploads: make(chan ingest.Upload, 10)}
}

func (s *stubIngestor) Ingest(_ context.Context, upload ingest.Upload) (*ingest.Record, error) {
	s.mu.Lock()
	err := s.err
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.uploads <- upload
	return &ingest.Record{ID: "doc-1", Filename: upload.Filename, ChunkCount: 1}, nil
}

func startTestWatcher(t *testing.T, dir string) (*Watcher, *stubIngestor) {
	t.Helper()

	ingestor := newStubIngestor()
	w, err := New(&config.WatchConfig{
		Dir:      dir,
		Debounce: config.Duration(50 * time.Millisecond),
	}, []string{".txt", ".pdf"}, ingestor, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(w.Stop)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	require.NoError(t, w.Start(ctx))

	// Give the watcher time to initialize
	time.Sleep(50 * time.Millisecond)
	return w, ingestor
}

func TestNew_RequiresDirectory(t *testing.T) {
	_, err := New(&config.WatchConfig{}, nil, newStubIngestor(), zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watch directory")

	_, err = New(nil, nil, newStubIngestor(), zap.NewNop())
	require.Error(t, err)
}

func TestNew_RequiresIngestor(t *testing.T) {
	_, err := New(&config.WatchConfig{Dir: t.TempDir()}, nil, nil, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingestor")
}

func TestWatcher_StartFailsOnMissingDirectory(t *testing.T) {
	w, err := New(&config.WatchConfig{Dir: filepath.Join(t.TempDir(), "absent")}, nil, newStubIngestor(), zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	err = w.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watch directory")
}

func TestWatcher_IngestsDroppedFile(t *testing.T) {
	dir := t.TempDir()
	_, ingestor := startTestWatcher(t, dir)

	content := []byte("The report covers the third quarter in detail.")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.txt"), content, 0o644))

	select {
	case upload := <-ingestor.uploads:
		assert.Equal(t, "report.txt", upload.Filename)
		assert.Equal(t, content, upload.Data)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for dropped file to be ingested")
	}
}

func TestWatcher_DebouncesRapidWrites(t *testing.T) {
	dir := t.TempDir()
	_, ingestor := startTestWatcher(t, dir)

	path := filepath.Join(dir, "draft.txt")
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("draft content under revision"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-ingestor.uploads:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for debounced ingest")
	}

	select {
	case upload := <-ingestor.uploads:
		t.Fatalf("expected a single debounced ingest, got a second one for %s", upload.Filename)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_SkipsDisallowedExtensions(t *testing.T) {
	dir := t.TempDir()
	_, ingestor := startTestWatcher(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "scratch.tmp"), []byte("partial write"), 0o644))

	select {
	case upload := <-ingestor.uploads:
		t.Fatalf("file with disallowed extension was ingested: %s", upload.Filename)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_IngestErrorDoesNotStopWatching(t *testing.T) {
	dir := t.TempDir()
	_, ingestor := startTestWatcher(t, dir)

	ingestor.mu.Lock()
	ingestor.err = errors.New("index unavailable")
	ingestor.mu.Unlock()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "failing.txt"), []byte("first file"), 0o644))
	time.Sleep(200 * time.Millisecond)

	ingestor.mu.Lock()
	ingestor.err = nil
	ingestor.mu.Unlock()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "working.txt"), []byte("second file"), 0o644))

	select {
	case upload := <-ingestor.uploads:
		assert.Equal(t, "working.txt", upload.Filename)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher stopped after an ingest error")
	}
}

func TestWatcher_StopCancelsPending(t *testing.T) {
	dir := t.TempDir()
	w, ingestor := startTestWatcher(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "late.txt"), []byte("written just before stop"), 0o644))
	w.Stop()
	// Stop is idempotent.
	w.Stop()

	select {
	case upload := <-ingestor.uploads:
		t.Fatalf("pending file was ingested after stop: %s", upload.Filename)
	case <-time.After(300 * time.Millisecond):
	}
}
