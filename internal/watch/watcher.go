// Package watch ingests documents dropped into a watched directory.
//
// The watcher debounces rapid write events per file, skips files
// whose extension is not allowed, and hands completed files to the
// ingest service. It is optional: the daemon starts one only when a
// watch directory is configured.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqd/internal/config"
	"github.com/fyrsmithlabs/docqd/internal/ingest"
)

// defaultDebounce delays ingestion after the last write so editors
// and slow copies finish before the file is read.
const defaultDebounce = 500 * time.Millisecond

// Ingestor receives completed files. Satisfied by *ingest.Service.
type Ingestor interface {
	Ingest(ctx context.Context, upload ingest.Upload) (*ingest.Record, error)
}

// Watcher watches a drop directory and ingests files written into it.
type Watcher struct {
	dir      string
	debounce time.Duration
	allowed  map[string]bool
	ingestor Ingestor
	watcher  *fsnotify.Watcher
	logger   *zap.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	stop    chan struct{}
}

// New creates a watcher for the configured drop directory. Only files
// with an allowed extension are ingested; everything else written
// into the directory is ignored.
func New(cfg *config.WatchConfig, allowedExtensions []string, ingestor Ingestor, logger *zap.Logger) (*Watcher, error) {
	if cfg == nil || cfg.Dir == "" {
		return nil, fmt.Errorf("watch directory is required")
	}
	if ingestor == nil {
		return nil, fmt.Errorf("ingestor cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	debounce := cfg.Debounce.Duration()
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	allowed := make(map[string]bool, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		allowed[strings.ToLower(ext)] = true
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating filesystem watcher: %w", err)
	}

	return &Watcher{
		dir:      cfg.Dir,
		debounce: debounce,
		allowed:  allowed,
		ingestor: ingestor,
		watcher:  fsWatcher,
		logger:   logger,
		pending:  make(map[string]*time.Timer),
		stop:     make(chan struct{}),
	}, nil
}

// Start begins watching. Files already present in the directory are
// not ingested; only new writes trigger ingestion.
func (w *Watcher) Start(ctx context.Context) error {
	info, err := os.Stat(w.dir)
	if err != nil {
		return fmt.Errorf("watch directory %s: %w", w.dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch path %s is not a directory", w.dir)
	}

	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	w.logger.Info("watching drop directory",
		zap.String("dir", w.dir),
		zap.Duration("debounce", w.debounce))

	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.schedule(ctx, event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// schedule queues a file for ingestion after the debounce window,
// restarting the window on every new write to the same path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	ext := strings.ToLower(filepath.Ext(path))
	if !w.allowed[ext] {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.ingestFile(ctx, path)
	})
}

func (w *Watcher) ingestFile(ctx context.Context, path string) {
	w.mu.Lock()
	delete(w.pending, path)
	w.mu.Unlock()

	select {
	case <-w.stop:
		return
	case <-ctx.Done():
		return
	default:
	}

	// The file may have been removed between the event and the flush.
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		w.logger.Warn("reading dropped file failed", zap.String("path", path), zap.Error(err))
		return
	}

	record, err := w.ingestor.Ingest(ctx, ingest.Upload{
		Filename: filepath.Base(path),
		Data:     data,
	})
	if err != nil {
		w.logger.Warn("ingesting dropped file failed", zap.String("path", path), zap.Error(err))
		return
	}

	w.logger.Info("ingested dropped file",
		zap.String("path", path),
		zap.String("document_id", record.ID),
		zap.Int("chunks", record.ChunkCount))
}

// Stop stops the watcher and cancels pending ingestions.
func (w *Watcher) Stop() {
	select {
	case <-w.stop:
		return
	default:
		close(w.stop)
		_ = w.watcher.Close()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}
