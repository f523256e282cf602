package domain

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

var (
	ErrStorageNotFound = errors.New("storage not found")
	ErrInvalidPath     = errors.New("invalid path: trying to access outside root directory")
	ErrNotFound        = errors.New("file or folder not found")
	ErrExists          = errors.New("target already exists")
	ErrFolderNotEmpty  = errors.New("folder is not empty")
	ErrNotAFile        = errors.New("not a file")
	ErrNotAFolder      = errors.New("not a folder")
)

// Resource is anything the file processor can hand back to a client.
type Resource interface {
	ToArray() map[string]any
}

// FileResource is a stored file as seen by the result flattener.
type FileResource interface {
	Resource
	ModificationTime() int64
	Extension() string
}

type FolderResource interface {
	Resource
	Identifier() string
}

// FileData maps an operation name (delete, editfile, ...) to its argument list.
type FileData map[string][]any

// Clone copies the operation map and argument slices.
func (d FileData) Clone() FileData {
	if d == nil {
		return nil
	}
	out := make(FileData, len(d))
	for op, args := range d {
		out[op] = append([]any(nil), args...)
	}
	return out
}

// FileResults holds one result per command argument, keyed by operation.
type FileResults map[string][]any

// Upload is a file posted alongside a command payload.
type Upload struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

type ConflictMode string

const (
	ConflictCancel  ConflictMode = "cancel"
	ConflictReplace ConflictMode = "replace"
	ConflictRename  ConflictMode = "rename"
)

func ParseConflictMode(s string) (ConflictMode, error) {
	switch ConflictMode(strings.ToLower(s)) {
	case "", ConflictCancel:
		return ConflictCancel, nil
	case ConflictReplace:
		return ConflictReplace, nil
	case ConflictRename:
		return ConflictRename, nil
	}
	return "", fmt.Errorf("unknown conflict mode %q", s)
}

// SplitIdentifier splits a combined "storage:/path" identifier.
func SplitIdentifier(id string) (storage, path string, err error) {
	parts := strings.SplitN(id, ":", 2)
	if len(parts) != 2 || parts[0] == "" {
		return "", "", fmt.Errorf("invalid identifier %q, use storage:/path", id)
	}
	path = parts[1]
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return parts[0], path, nil
}

func CombinedIdentifier(storage, path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return storage + ":" + path
}

type FileInfo struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	Mode      string    `json:"mode"`
	ModTime   time.Time `json:"mod_time"`
	IsDir     bool      `json:"is_dir"`
	Extension string    `json:"extension"`
	ItemCount int       `json:"item_count"`
	Path      string    `json:"path"`
}

type StorageInfo struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	TotalSize uint64 `json:"total_size"`
	UsedSize  uint64 `json:"used_size"`
	FreeSize  uint64 `json:"free_size"`
	IsMounted bool   `json:"is_mounted"`
}

type ProcessRequest struct {
	Data     FileData `json:"data"`
	Redirect string   `json:"redirect"`
}
