package app

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"filecommand-api/internal/log"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
)

// Reindexer is the part of the index the scheduler drives.
type Reindexer interface {
	ReindexAll()
	Reindex(storage string) error
}

// Scheduler runs the periodic full reindex and reacts to changes on mount roots.
type Scheduler struct {
	cron     *cron.Cron
	index    Reindexer
	log      *log.Logger
	schedule string
	debounce time.Duration

	watcher *fsnotify.Watcher
	roots   map[string]string // clean root path -> storage name
	done    chan struct{}
	wg      sync.WaitGroup
}

func NewScheduler(index Reindexer, schedule string, logger *log.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		index:    index,
		log:      logger,
		schedule: schedule,
		debounce: 2 * time.Second,
		roots:    make(map[string]string),
		done:     make(chan struct{}),
	}
}

// Start registers the reindex job and runs a first scan in the background.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.reindexAll); err != nil {
		return err
	}
	s.cron.Start()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.reindexAll()
	}()
	s.log.Info("Index scheduler started (%s)", s.schedule)
	return nil
}

func (s *Scheduler) reindexAll() {
	started := time.Now()
	s.index.ReindexAll()
	s.log.Info("Reindex finished in %s", time.Since(started).Round(time.Millisecond))
}

// Watch adds the top level of every mount root to an fsnotify watcher.
func (s *Scheduler) Watch(mounts map[string]string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for name, root := range mounts {
		root = filepath.Clean(root)
		if err := watcher.Add(root); err != nil {
			s.log.Warn("Cannot watch storage %s at %s: %v", name, root, err)
			continue
		}
		s.roots[root] = name
	}
	s.watcher = watcher

	s.wg.Add(1)
	go s.watchLoop()
	return nil
}

func (s *Scheduler) storageFor(path string) (string, bool) {
	dir := filepath.Dir(filepath.Clean(path))
	for root, name := range s.roots {
		if dir == root || strings.HasPrefix(dir, root+string(filepath.Separator)) {
			return name, true
		}
	}
	return "", false
}

func (s *Scheduler) watchLoop() {
	defer s.wg.Done()

	pending := make(map[string]bool)
	timer := time.NewTimer(s.debounce)
	timer.Stop()

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Chmod) {
				continue
			}
			if name, ok := s.storageFor(event.Name); ok {
				pending[name] = true
				timer.Reset(s.debounce)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("Watcher error: %v", err)
		case <-timer.C:
			for name := range pending {
				if err := s.index.Reindex(name); err != nil {
					s.log.Error("Failed to reindex %s: %v", name, err)
				}
			}
			pending = make(map[string]bool)
		case <-s.done:
			return
		}
	}
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	if s.watcher != nil {
		close(s.done)
		s.watcher.Close()
	}
	s.wg.Wait()
	s.log.Info("Index scheduler stopped")
}
