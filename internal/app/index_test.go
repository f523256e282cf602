package app

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"filecommand-api/internal/domain"
	"filecommand-api/internal/infra/filesystem"
	"filecommand-api/internal/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) (*Index, string) {
	t.Helper()
	root := t.TempDir()
	driver := filesystem.NewLocalDriver(map[string]string{"default": root})
	dsn := "file:" + filepath.Join(t.TempDir(), "index.db") + "?_journal_mode=WAL"

	ix, err := NewIndex(driver, dsn, log.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })
	return ix, root
}

func touch(t *testing.T, path string, age time.Duration) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	mtime := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestIndexSearch(t *testing.T) {
	ix, root := newTestIndex(t)
	touch(t, filepath.Join(root, "photo.JPG"), time.Hour)
	touch(t, filepath.Join(root, "sub", "pic.png"), 2*time.Hour)
	touch(t, filepath.Join(root, "old.png"), 30*24*time.Hour)
	touch(t, filepath.Join(root, "notes.txt"), 3*time.Hour)
	touch(t, filepath.Join(root, "~lock.txt"), time.Minute)

	require.NoError(t, ix.Reindex("default"))

	_, total, err := ix.Search("default", nil, 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, total)

	files, total, err := ix.Search("default", []string{"jpg", ".png"}, 10, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, files, 3)
	assert.Equal(t, "photo.JPG", files[0].Name)
	assert.Equal(t, "/sub/pic.png", files[1].Path)

	files, total, err = ix.Search("default", []string{"png"}, 10, 0, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "pic.png", files[0].Name)

	files, _, err = ix.Search("default", nil, 0, 2, 0)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestIndexRecentAndRefresh(t *testing.T) {
	ix, root := newTestIndex(t)
	touch(t, filepath.Join(root, "a.txt"), time.Hour)
	require.NoError(t, ix.Reindex("default"))

	touch(t, filepath.Join(root, "b.txt"), time.Minute)
	require.NoError(t, os.Remove(filepath.Join(root, "a.txt")))
	ix.ReindexAll()

	files, err := ix.Recent("default", 10, 0)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "b.txt", files[0].Name)
	assert.Equal(t, "txt", files[0].Extension)
}

func TestReindexDuringScanRescans(t *testing.T) {
	ix, root := newTestIndex(t)
	touch(t, filepath.Join(root, "a.txt"), time.Hour)

	listed := make(chan struct{})
	release := make(chan struct{})
	var scans int32
	walk := ix.listFiles
	ix.listFiles = func(storage string) ([]domain.FileInfo, error) {
		files, err := walk(storage)
		if atomic.AddInt32(&scans, 1) == 1 {
			close(listed)
			<-release
		}
		return files, err
	}

	done := make(chan error, 1)
	go func() { done <- ix.Reindex("default") }()
	<-listed

	// the first scan has already walked the tree
	touch(t, filepath.Join(root, "sub", "b.txt"), time.Minute)
	require.NoError(t, ix.Reindex("default"))
	close(release)
	require.NoError(t, <-done)

	assert.EqualValues(t, 2, atomic.LoadInt32(&scans))
	_, total, err := ix.Search("default", nil, 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	require.NoError(t, ix.Reindex("default"))
	assert.EqualValues(t, 3, atomic.LoadInt32(&scans), "no scan left pending")
}

func TestIndexUnknownStorage(t *testing.T) {
	ix, _ := newTestIndex(t)
	assert.Error(t, ix.Reindex("nope"))
}

func TestFilesystemServiceCache(t *testing.T) {
	ix, root := newTestIndex(t)
	driver := filesystem.NewLocalDriver(map[string]string{"default": root})
	svc := NewFilesystemService(driver, ix, log.Discard())

	touch(t, filepath.Join(root, "a.txt"), time.Hour)
	files, err := svc.ListFiles("default", "/", false)
	require.NoError(t, err)
	require.Len(t, files, 1)

	touch(t, filepath.Join(root, "b.txt"), time.Hour)
	files, err = svc.ListFiles("default", "/", false)
	require.NoError(t, err)
	assert.Len(t, files, 1, "listing is served from cache")

	svc.StorageChanged("default")
	files, err = svc.ListFiles("default", "/", false)
	require.NoError(t, err)
	assert.Len(t, files, 2)
	svc.Close()
}

func TestFilesystemServiceCloseWaitsForReindex(t *testing.T) {
	ix, root := newTestIndex(t)
	driver := filesystem.NewLocalDriver(map[string]string{"default": root})
	svc := NewFilesystemService(driver, ix, log.Discard())

	touch(t, filepath.Join(root, "a.txt"), time.Hour)
	svc.StorageChanged("default")
	svc.Close()

	_, total, err := ix.Search("default", nil, 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total, "the background reindex finished before Close returned")

	// after Close, changes only drop the cache
	touch(t, filepath.Join(root, "b.txt"), time.Hour)
	svc.StorageChanged("default")
	svc.StartReindex()
	svc.Close()
	_, total, err = ix.Search("default", nil, 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestFileInFolder(t *testing.T) {
	_, root := newTestIndex(t)
	driver := filesystem.NewLocalDriver(map[string]string{"default": root})
	svc := NewFilesystemService(driver, nil, log.Discard())
	touch(t, filepath.Join(root, "docs", "a.txt"), time.Hour)

	f, err := svc.FileInFolder("default:/docs/", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "default:/docs/a.txt", f.Identifier())

	_, err = svc.FileInFolder("default:/docs/", "b.txt")
	assert.Error(t, err)
	_, err = svc.FileInFolder("default:/docs/", "../docs/a.txt")
	assert.Error(t, err)
	_, err = svc.FileInFolder("default:/missing/", "a.txt")
	assert.Error(t, err)
}
