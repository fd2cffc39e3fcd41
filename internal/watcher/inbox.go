// Package watcher imports PDFs dropped into the inbox directory. Files are
// given a settle delay after their last write so partially-copied documents
// are never imported, then consumed into the library and removed from disk.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Duke0404/readersync/internal/domain"
)

// Importer is the slice of the library service the inbox needs.
type Importer interface {
	ImportPDF(ctx context.Context, filename string, data []byte) (*domain.Book, error)
}

// Options configures the inbox watcher.
type Options struct {
	// SettleDelay is how long a file must sit unchanged before import.
	SettleDelay time.Duration
}

func (o *Options) setDefaults() {
	if o.SettleDelay == 0 {
		o.SettleDelay = 500 * time.Millisecond
	}
}

// pendingFile tracks a file that may still be copying.
type pendingFile struct {
	size    int64
	modTime time.Time
	timer   *time.Timer
}

// Inbox watches a single directory for dropped PDFs.
type Inbox struct {
	dir      string
	importer Importer
	logger   *slog.Logger
	opts     Options

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*pendingFile

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates an inbox watcher over dir. The directory is created if it
// does not exist.
func New(dir string, importer Importer, logger *slog.Logger, opts Options) (*Inbox, error) {
	opts.setDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	return &Inbox{
		dir:      dir,
		importer: importer,
		logger:   logger,
		opts:     opts,
		watcher:  fw,
		pending:  make(map[string]*pendingFile),
		done:     make(chan struct{}),
	}, nil
}

// Start processes inbox events until ctx is cancelled. Files already in
// the directory are swept on startup so drops made while the daemon was
// down are not lost.
func (i *Inbox) Start(ctx context.Context) error {
	i.sweep(ctx)

	i.wg.Add(1)
	go i.loop(ctx)

	<-ctx.Done()
	return nil
}

// Stop releases the underlying filesystem watcher.
func (i *Inbox) Stop() error {
	close(i.done)

	i.mu.Lock()
	for _, p := range i.pending {
		p.timer.Stop()
	}
	clear(i.pending)
	i.mu.Unlock()

	err := i.watcher.Close()
	i.wg.Wait()
	return err
}

// sweep imports any PDFs already sitting in the inbox.
func (i *Inbox) sweep(ctx context.Context) {
	entries, err := os.ReadDir(i.dir)
	if err != nil {
		i.logger.Warn("inbox sweep failed", "dir", i.dir, "error", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(i.dir, entry.Name())
		if !isPDFPath(path) {
			continue
		}
		i.consume(ctx, path)
	}
}

func (i *Inbox) loop(ctx context.Context) {
	defer i.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-i.done:
			return
		case event, ok := <-i.watcher.Events:
			if !ok {
				return
			}
			i.handle(ctx, event)
		case err, ok := <-i.watcher.Errors:
			if !ok {
				return
			}
			i.logger.Warn("inbox watch error", "error", err)
		}
	}
}

func (i *Inbox) handle(ctx context.Context, event fsnotify.Event) {
	path := event.Name
	if !isPDFPath(path) {
		return
	}

	if event.Op&fsnotify.Remove != 0 {
		i.cancelPending(path)
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	i.startSettling(ctx, path)
}

// startSettling (re)arms the settle timer for a file still being written.
func (i *Inbox) startSettling(ctx context.Context, path string) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if p, ok := i.pending[path]; ok {
		p.timer.Stop()
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		delete(i.pending, path)
		return
	}

	p := &pendingFile{size: info.Size(), modTime: info.ModTime()}
	p.timer = time.AfterFunc(i.opts.SettleDelay, func() {
		i.checkSettled(ctx, path)
	})
	i.pending[path] = p
}

func (i *Inbox) checkSettled(ctx context.Context, path string) {
	i.mu.Lock()
	p, ok := i.pending[path]
	if !ok {
		i.mu.Unlock()
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		delete(i.pending, path)
		i.mu.Unlock()
		return
	}

	if info.Size() != p.size || !info.ModTime().Equal(p.modTime) {
		// Still growing, wait another round.
		p.size = info.Size()
		p.modTime = info.ModTime()
		p.timer = time.AfterFunc(i.opts.SettleDelay, func() {
			i.checkSettled(ctx, path)
		})
		i.mu.Unlock()
		return
	}

	delete(i.pending, path)
	i.mu.Unlock()

	i.consume(ctx, path)
}

// consume imports a settled PDF and removes it from the inbox. The file is
// only removed after a successful import; a failed file stays behind for
// the user to inspect.
func (i *Inbox) consume(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		i.logger.Warn("inbox read failed", "path", path, "error", err)
		return
	}

	book, err := i.importer.ImportPDF(ctx, filepath.Base(path), data)
	if err != nil {
		i.logger.Warn("inbox import failed", "path", path, "error", err)
		return
	}

	if err := os.Remove(path); err != nil {
		i.logger.Warn("inbox cleanup failed", "path", path, "error", err)
	}

	i.logger.Info("inbox import",
		"path", path,
		"book_id", book.ID,
		"title", book.Title,
	)
}

func (i *Inbox) cancelPending(path string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if p, ok := i.pending[path]; ok {
		p.timer.Stop()
		delete(i.pending, path)
	}
}

func isPDFPath(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}
