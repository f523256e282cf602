package filesystem

import (
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"filecommand-api/internal/domain"

	"github.com/gabriel-vasile/mimetype"
)

// File is a stored file resolved inside a storage.
type File struct {
	storage  string
	path     string
	size     int64
	modTime  int64
	mimeType string
}

func (f *File) Storage() string { return f.storage }
func (f *File) Path() string    { return f.path }
func (f *File) Name() string    { return path.Base(f.path) }
func (f *File) Size() int64     { return f.size }
func (f *File) MimeType() string {
	return f.mimeType
}

func (f *File) Identifier() string {
	return domain.CombinedIdentifier(f.storage, f.path)
}

func (f *File) ModificationTime() int64 { return f.modTime }

// Extension is lower case and has no leading dot.
func (f *File) Extension() string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(f.path), "."))
}

func (f *File) ToArray() map[string]any {
	return map[string]any{
		"id":                f.Identifier(),
		"identifier":        f.path,
		"storage":           f.storage,
		"name":              f.Name(),
		"extension":         f.Extension(),
		"size":              f.size,
		"mimetype":          f.mimeType,
		"type":              fileType(f.mimeType),
		"modification_date": f.modTime,
		"url":               "/api/download?" + url.Values{"storage": {f.storage}, "path": {f.path}}.Encode(),
	}
}

func fileType(mime string) string {
	switch {
	case strings.HasPrefix(mime, "text/"):
		return "text"
	case strings.HasPrefix(mime, "image/"):
		return "image"
	case strings.HasPrefix(mime, "audio/"):
		return "audio"
	case strings.HasPrefix(mime, "video/"):
		return "video"
	case strings.HasPrefix(mime, "application/"):
		return "application"
	}
	return "unknown"
}

// Folder is a directory resolved inside a storage.
type Folder struct {
	storage string
	path    string
}

func (f *Folder) Storage() string { return f.storage }
func (f *Folder) Path() string    { return f.path }

func (f *Folder) Name() string {
	if f.path == "/" {
		return f.storage
	}
	return path.Base(f.path)
}

// Identifier is the combined identifier with a trailing slash.
func (f *Folder) Identifier() string {
	id := domain.CombinedIdentifier(f.storage, f.path)
	if !strings.HasSuffix(id, "/") {
		id += "/"
	}
	return id
}

func (f *Folder) ToArray() map[string]any {
	return map[string]any{
		"id":         f.Identifier(),
		"identifier": f.path,
		"storage":    f.storage,
		"name":       f.Name(),
	}
}

func cleanSubPath(p string) string {
	return path.Clean("/" + filepath.ToSlash(p))
}

// File resolves a file resource, detecting its mime type from content.
func (d *LocalDriver) File(storageName, subPath string) (*File, error) {
	fullPath, err := d.validatePath(storageName, subPath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, notFound(err)
	}
	if info.IsDir() {
		return nil, domain.ErrNotAFile
	}

	mime := "application/octet-stream"
	if m, err := mimetype.DetectFile(fullPath); err == nil {
		mime = m.String()
	}

	return &File{
		storage:  storageName,
		path:     cleanSubPath(subPath),
		size:     info.Size(),
		modTime:  info.ModTime().Unix(),
		mimeType: mime,
	}, nil
}

func (d *LocalDriver) Folder(storageName, subPath string) (*Folder, error) {
	isDir, err := d.IsDir(storageName, subPath)
	if err != nil {
		return nil, err
	}
	if !isDir {
		return nil, domain.ErrNotAFolder
	}
	return &Folder{storage: storageName, path: cleanSubPath(subPath)}, nil
}

// DetectMimeType sniffs the content type of a stored file.
func (d *LocalDriver) DetectMimeType(storageName, subPath string) (string, error) {
	fullPath, err := d.validatePath(storageName, subPath)
	if err != nil {
		return "", err
	}
	m, err := mimetype.DetectFile(fullPath)
	if err != nil {
		return "", notFound(err)
	}
	return m.String(), nil
}
