package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Duke0404/readersync/internal/domain"
)

type recordingImporter struct {
	mu       sync.Mutex
	imported []string
	fail     bool
}

func (r *recordingImporter) ImportPDF(_ context.Context, filename string, data []byte) (*domain.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return nil, os.ErrInvalid
	}
	r.imported = append(r.imported, filename)
	return &domain.Book{ID: int64(len(r.imported)), Title: filename}, nil
}

func (r *recordingImporter) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.imported...)
}

func startInbox(t *testing.T, dir string, importer Importer) *Inbox {
	t.Helper()

	inbox, err := New(dir, importer, nil, Options{SettleDelay: 20 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = inbox.Start(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = inbox.Stop()
	})
	return inbox
}

func TestInbox_ImportsDroppedPDF(t *testing.T) {
	dir := t.TempDir()
	importer := &recordingImporter{}
	startInbox(t, dir, importer)

	path := filepath.Join(dir, "dropped.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 payload"), 0o644))

	require.Eventually(t, func() bool {
		return len(importer.names()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"dropped.pdf"}, importer.names())

	// Consumed files leave the inbox.
	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestInbox_IgnoresNonPDFFiles(t *testing.T) {
	dir := t.TempDir()
	importer := &recordingImporter{}
	startInbox(t, dir, importer)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.pdf"), []byte("%PDF"), 0o644))

	time.Sleep(150 * time.Millisecond)
	assert.Empty(t, importer.names())
}

func TestInbox_SweepsExistingFilesOnStart(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "waiting.pdf"), []byte("%PDF-1.4"), 0o644))

	importer := &recordingImporter{}
	startInbox(t, dir, importer)

	require.Eventually(t, func() bool {
		return len(importer.names()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"waiting.pdf"}, importer.names())
}

func TestInbox_FailedImportKeepsFile(t *testing.T) {
	dir := t.TempDir()
	importer := &recordingImporter{fail: true}
	startInbox(t, dir, importer)

	path := filepath.Join(dir, "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not actually a pdf"), 0o644))

	time.Sleep(200 * time.Millisecond)

	// The file stays behind for inspection.
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestInbox_CreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "inbox", "nested")

	inbox, err := New(dir, &recordingImporter{}, nil, Options{})
	require.NoError(t, err)
	defer inbox.Stop()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
