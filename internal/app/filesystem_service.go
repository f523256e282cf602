package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"filecommand-api/internal/domain"
	"filecommand-api/internal/infra/filesystem"
	"filecommand-api/internal/log"
)

type cacheEntry struct {
	files     []domain.FileInfo
	timestamp time.Time
}

const cacheTTL = 60 * time.Second

// FilesystemService serves read-side listing and search; writes go through the FileProcessor.
type FilesystemService struct {
	driver *filesystem.LocalDriver
	index  *Index
	log    *log.Logger

	cache map[string]cacheEntry
	mu    sync.RWMutex

	// background reindexes, waited for by Close
	bgMu   sync.Mutex
	bg     sync.WaitGroup
	closed bool
}

func NewFilesystemService(driver *filesystem.LocalDriver, index *Index, logger *log.Logger) *FilesystemService {
	return &FilesystemService{
		driver: driver,
		index:  index,
		log:    logger,
		cache:  make(map[string]cacheEntry),
	}
}

func (s *FilesystemService) getCache(key string) ([]domain.FileInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, found := s.cache[key]
	if !found || time.Since(entry.timestamp) > cacheTTL {
		return nil, false
	}
	return entry.files, true
}

func (s *FilesystemService) setCache(key string, files []domain.FileInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = cacheEntry{
		files:     files,
		timestamp: time.Now(),
	}
}

// StorageChanged drops cached listings of a storage and refreshes its index in the background.
func (s *FilesystemService) StorageChanged(storage string) {
	prefix := storage + ":"
	s.mu.Lock()
	for k := range s.cache {
		if strings.HasPrefix(k, prefix) {
			delete(s.cache, k)
		}
	}
	s.mu.Unlock()

	s.background(func() {
		if err := s.index.Reindex(storage); err != nil {
			s.log.Error("Failed to reindex %s: %v", storage, err)
		}
	})
}

// background runs fn on the index unless there is none or Close was called.
func (s *FilesystemService) background(fn func()) bool {
	if s.index == nil {
		return false
	}
	s.bgMu.Lock()
	defer s.bgMu.Unlock()
	if s.closed {
		return false
	}
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		fn()
	}()
	return true
}

// Close stops new background reindexes and waits for running ones, so the
// index can be closed afterwards.
func (s *FilesystemService) Close() {
	s.bgMu.Lock()
	s.closed = true
	s.bgMu.Unlock()
	s.bg.Wait()
}

func (s *FilesystemService) ListStorages() []domain.StorageInfo {
	return s.driver.ListStorages()
}

func (s *FilesystemService) ListFiles(storage, path string, showHidden bool) ([]domain.FileInfo, error) {
	cacheKey := fmt.Sprintf("%s:%s:%t", storage, path, showHidden)
	if files, hit := s.getCache(cacheKey); hit {
		return files, nil
	}

	files, err := s.driver.ReadDir(storage, path, showHidden)
	if err == nil {
		s.setCache(cacheKey, files)
	}
	return files, err
}

func (s *FilesystemService) ListAllFiles(storage string, showHidden bool) ([]domain.FileInfo, error) {
	cacheKey := fmt.Sprintf("%s:recursive:%t", storage, showHidden)
	if files, hit := s.getCache(cacheKey); hit {
		return files, nil
	}

	files, err := s.driver.ReadDirRecursive(storage, showHidden)
	if err == nil {
		s.setCache(cacheKey, files)
	}
	return files, err
}

var errNoIndex = errors.New("file index is not available")

func (s *FilesystemService) Search(storage string, extensions []string, limit, offset, days int) ([]domain.FileInfo, int, error) {
	if s.index == nil {
		return nil, 0, errNoIndex
	}
	return s.index.Search(storage, extensions, limit, offset, days)
}

func (s *FilesystemService) Recent(storage string, limit, offset int) ([]domain.FileInfo, error) {
	if s.index == nil {
		return nil, errNoIndex
	}
	return s.index.Recent(storage, limit, offset)
}

// StartReindex rescans every storage in the background.
func (s *FilesystemService) StartReindex() bool {
	return s.background(func() { s.index.ReindexAll() })
}

// OpenFile resolves a download: the open file, its size and its sniffed content type.
func (s *FilesystemService) OpenFile(storage, path string) (*os.File, os.FileInfo, string, error) {
	f, err := s.driver.GetFile(storage, path)
	if err != nil {
		return nil, nil, "", err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, "", err
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, "", domain.ErrNotAFile
	}

	mime, err := s.driver.DetectMimeType(storage, path)
	if err != nil {
		mime = "application/octet-stream"
	}
	return f, info, mime, nil
}

// FileInFolder resolves fileName inside the folder identified by folderID.
func (s *FilesystemService) FileInFolder(folderID, fileName string) (*filesystem.File, error) {
	storage, dir, err := domain.SplitIdentifier(folderID)
	if err != nil {
		return nil, err
	}
	if fileName == "" || strings.ContainsAny(fileName, `/\`) {
		return nil, fmt.Errorf("invalid file name %q", fileName)
	}
	if _, err := s.driver.Folder(storage, dir); err != nil {
		return nil, err
	}
	return s.driver.File(storage, strings.TrimSuffix(dir, "/")+"/"+fileName)
}
