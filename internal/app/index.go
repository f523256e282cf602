package app

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"filecommand-api/internal/domain"
	"filecommand-api/internal/infra/filesystem"
	"filecommand-api/internal/log"

	_ "github.com/mattn/go-sqlite3"
)

const indexSchema = `
	CREATE TABLE IF NOT EXISTS files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		storage TEXT,
		name TEXT,
		path TEXT,
		is_dir BOOLEAN,
		size INTEGER,
		modified DATETIME,
		extension TEXT,
		item_count INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_storage ON files(storage);
	CREATE INDEX IF NOT EXISTS idx_extension ON files(extension);
	CREATE INDEX IF NOT EXISTS idx_modified ON files(modified);
	CREATE INDEX IF NOT EXISTS idx_storage_ext_mod ON files(storage, extension, modified);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_path_storage ON files(storage, path);
`

// Index keeps a SQLite copy of every storage tree for search and recent-file queries.
type Index struct {
	driver *filesystem.LocalDriver
	db     *sql.DB
	log    *log.Logger

	// listFiles is the tree walk a scan indexes.
	listFiles func(storage string) ([]domain.FileInfo, error)

	mu      sync.Mutex
	running map[string]bool
	dirty   map[string]bool
}

func NewIndex(driver *filesystem.LocalDriver, dsn string, logger *log.Logger) (*Index, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	// one writer keeps WAL happy across background reindex goroutines
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(indexSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize index schema: %w", err)
	}

	return &Index{
		driver: driver,
		db:     db,
		log:    logger,
		listFiles: func(storage string) ([]domain.FileInfo, error) {
			return driver.ReadDirRecursive(storage, false)
		},
		running: make(map[string]bool),
		dirty:   make(map[string]bool),
	}, nil
}

func (ix *Index) Close() error {
	return ix.db.Close()
}

func (ix *Index) ReindexAll() {
	var wg sync.WaitGroup
	for _, name := range ix.driver.StorageNames() {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			if err := ix.Reindex(name); err != nil {
				ix.log.Error("Failed to index storage %s: %v", name, err)
			}
		}(name)
	}
	wg.Wait()
}

// Reindex rescans one storage. A call that arrives while the storage is
// being scanned returns at once and makes the running scan go again, so
// changes made during a scan are never lost.
func (ix *Index) Reindex(storage string) error {
	ix.mu.Lock()
	if ix.running[storage] {
		ix.dirty[storage] = true
		ix.mu.Unlock()
		return nil
	}
	ix.running[storage] = true
	ix.mu.Unlock()

	for {
		err := ix.scan(storage)

		ix.mu.Lock()
		again := err == nil && ix.dirty[storage]
		delete(ix.dirty, storage)
		if !again {
			delete(ix.running, storage)
		}
		ix.mu.Unlock()

		if !again {
			return err
		}
	}
}

func (ix *Index) scan(storage string) error {
	files, err := ix.listFiles(storage)
	if err != nil {
		return err
	}
	if err := ix.update(storage, files); err != nil {
		return err
	}
	ix.log.Debug("Indexed %s: %d files", storage, len(files))
	return nil
}

func (ix *Index) update(storage string, files []domain.FileInfo) error {
	tx, err := ix.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// the whole storage is replaced on every scan
	if _, err := tx.Exec("DELETE FROM files WHERE storage = ?", storage); err != nil {
		return fmt.Errorf("clear index for %s: %w", storage, err)
	}

	stmt, err := tx.Prepare("INSERT INTO files(storage, name, path, is_dir, size, modified, extension, item_count) VALUES(?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range files {
		ext := strings.ToLower(strings.TrimPrefix(f.Extension, "."))
		if _, err := stmt.Exec(storage, f.Name, f.Path, f.IsDir, f.Size, f.ModTime.UTC(), ext, f.ItemCount); err != nil {
			ix.log.Debug("Skipping index record %s: %v", f.Path, err)
		}
	}

	return tx.Commit()
}

// Search returns indexed files of a storage, newest first, plus the total match count.
// A zero limit and offset only counts.
func (ix *Index) Search(storage string, extensions []string, limit, offset, days int) ([]domain.FileInfo, int, error) {
	// hide system and temp noise
	where := ` FROM files
		WHERE storage = ? AND is_dir = 0
		AND name NOT LIKE '.%'
		AND name NOT LIKE '$%'
		AND name NOT LIKE '~%'`
	args := []interface{}{storage}

	if len(extensions) > 0 {
		placeholders := make([]string, len(extensions))
		for i, ext := range extensions {
			placeholders[i] = "?"
			args = append(args, strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), ".")))
		}
		where += " AND extension IN (" + strings.Join(placeholders, ",") + ")"
	}

	if days > 0 {
		where += " AND modified > ?"
		args = append(args, time.Now().UTC().AddDate(0, 0, -days))
	}

	var total int
	if err := ix.db.QueryRow("SELECT COUNT(*)"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count indexed files: %w", err)
	}

	if limit <= 0 && offset <= 0 {
		return []domain.FileInfo{}, total, nil
	}

	query := "SELECT name, path, is_dir, size, modified, extension, item_count" + where + " ORDER BY modified DESC"
	if limit <= 0 {
		limit = -1
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	files, err := ix.query(query, args...)
	return files, total, err
}

func (ix *Index) Recent(storage string, limit, offset int) ([]domain.FileInfo, error) {
	files, _, err := ix.Search(storage, nil, limit, offset, 0)
	return files, err
}

func (ix *Index) query(query string, args ...interface{}) ([]domain.FileInfo, error) {
	rows, err := ix.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	defer rows.Close()

	results := []domain.FileInfo{}
	for rows.Next() {
		var f domain.FileInfo
		var ext sql.NullString
		if err := rows.Scan(&f.Name, &f.Path, &f.IsDir, &f.Size, &f.ModTime, &ext, &f.ItemCount); err != nil {
			return nil, err
		}
		f.Extension = ext.String
		results = append(results, f)
	}
	return results, rows.Err()
}
