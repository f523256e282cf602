package filesystem

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"filecommand-api/internal/domain"
)

type LocalDriver struct {
	Mounts map[string]string // storage name -> path
}

func NewLocalDriver(mounts map[string]string) *LocalDriver {
	clean := make(map[string]string, len(mounts))
	for name, root := range mounts {
		clean[name] = filepath.Clean(root)
	}
	return &LocalDriver{Mounts: clean}
}

// Resolve storage name to its root path
func (d *LocalDriver) getStorageRoot(storageName string) (string, error) {
	root, exists := d.Mounts[storageName]
	if !exists {
		return "", fmt.Errorf("storage '%s': %w", storageName, domain.ErrStorageNotFound)
	}
	return root, nil
}

// Keep the resolved path inside the storage root
func (d *LocalDriver) validatePath(storageName, subPath string) (string, error) {
	root, err := d.getStorageRoot(storageName)
	if err != nil {
		return "", err
	}

	cleanPath := filepath.Clean(filepath.Join(root, subPath))
	if cleanPath != root && !strings.HasPrefix(cleanPath, root+string(filepath.Separator)) {
		return "", domain.ErrInvalidPath
	}

	return cleanPath, nil
}

func (d *LocalDriver) GetRealPath(storageName, subPath string) (string, error) {
	return d.validatePath(storageName, subPath)
}

func (d *LocalDriver) StorageNames() []string {
	names := make([]string, 0, len(d.Mounts))
	for name := range d.Mounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List available storages with their disk usage
func (d *LocalDriver) ListStorages() []domain.StorageInfo {
	storages := make([]domain.StorageInfo, 0, len(d.Mounts))
	for _, name := range d.StorageNames() {
		root := d.Mounts[name]
		info := domain.StorageInfo{Name: name, Path: root}
		if st, err := os.Stat(root); err == nil && st.IsDir() {
			info.IsMounted = true
			info.TotalSize, info.FreeSize = diskUsage(root)
			if info.TotalSize >= info.FreeSize {
				info.UsedSize = info.TotalSize - info.FreeSize
			}
		}
		storages = append(storages, info)
	}
	return storages
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// READ: list folder contents
func (d *LocalDriver) ReadDir(storageName, subPath string, showHidden bool) ([]domain.FileInfo, error) {
	fullPath, err := d.validatePath(storageName, subPath)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, notFound(err)
	}

	files := make([]domain.FileInfo, 0, len(entries))
	for _, entry := range entries {
		if !showHidden && isHidden(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		fi := toFileInfo(filepath.Join(subPath, entry.Name()), info)
		if entry.IsDir() {
			if children, err := os.ReadDir(filepath.Join(fullPath, entry.Name())); err == nil {
				fi.ItemCount = len(children)
			}
		}
		files = append(files, fi)
	}

	return files, nil
}

// READ: walk the whole storage
func (d *LocalDriver) ReadDirRecursive(storageName string, showHidden bool) ([]domain.FileInfo, error) {
	root, err := d.getStorageRoot(storageName)
	if err != nil {
		return nil, err
	}

	var files []domain.FileInfo
	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			// unreadable subtrees are skipped, not fatal
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}
		if !showHidden && isHidden(entry.Name()) {
			if entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		files = append(files, toFileInfo("/"+filepath.ToSlash(rel), info))
		return nil
	})
	return files, err
}

func toFileInfo(path string, info os.FileInfo) domain.FileInfo {
	return domain.FileInfo{
		Name:      info.Name(),
		Size:      info.Size(),
		Mode:      info.Mode().String(),
		ModTime:   info.ModTime(),
		IsDir:     info.IsDir(),
		Extension: filepath.Ext(info.Name()),
		Path:      filepath.ToSlash(path),
	}
}

func (d *LocalDriver) Exists(storageName, subPath string) bool {
	fullPath, err := d.validatePath(storageName, subPath)
	if err != nil {
		return false
	}
	_, err = os.Lstat(fullPath)
	return err == nil
}

// Check whether the path is a directory
func (d *LocalDriver) IsDir(storageName, subPath string) (bool, error) {
	fullPath, err := d.validatePath(storageName, subPath)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return false, notFound(err)
	}

	return info.IsDir(), nil
}

func (d *LocalDriver) IsEmptyDir(storageName, subPath string) (bool, error) {
	fullPath, err := d.validatePath(storageName, subPath)
	if err != nil {
		return false, err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		return false, notFound(err)
	}
	defer f.Close()

	_, err = f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	return false, err
}

// CREATE: new folder, parents included
func (d *LocalDriver) CreateFolder(storageName, subPath string) error {
	fullPath, err := d.validatePath(storageName, subPath)
	if err != nil {
		return err
	}

	return os.MkdirAll(fullPath, 0755)
}

// CREATE: new empty file, fails if it exists
func (d *LocalDriver) CreateFile(storageName, subPath string) error {
	fullPath, err := d.validatePath(storageName, subPath)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return domain.ErrExists
		}
		return err
	}
	return f.Close()
}

// CREATE: write an uploaded stream, replacing any existing file
func (d *LocalDriver) SaveFile(storageName, subPath string, src io.Reader) error {
	fullPath, err := d.validatePath(storageName, subPath)
	if err != nil {
		return err
	}

	// make sure the parent folder exists
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	dst, err := os.Create(fullPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

// UPDATE: overwrite the contents of an existing file
func (d *LocalDriver) SetContents(storageName, subPath, content string) error {
	fullPath, err := d.validatePath(storageName, subPath)
	if err != nil {
		return err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return notFound(err)
	}
	if info.IsDir() {
		return domain.ErrNotAFile
	}

	return os.WriteFile(fullPath, []byte(content), info.Mode().Perm())
}

// READ: open a file for download
func (d *LocalDriver) GetFile(storageName, subPath string) (*os.File, error) {
	fullPath, err := d.validatePath(storageName, subPath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		return nil, notFound(err)
	}
	return f, nil
}

// UPDATE: rename or move inside one storage
func (d *LocalDriver) Rename(storageName, oldPath, newPath string) error {
	oldFullPath, err := d.validatePath(storageName, oldPath)
	if err != nil {
		return err
	}

	newFullPath, err := d.validatePath(storageName, newPath)
	if err != nil {
		return err
	}

	if err := os.Rename(oldFullPath, newFullPath); err != nil {
		return notFound(err)
	}
	return nil
}

// Move works across storages; when rename fails (different devices) it copies and deletes.
func (d *LocalDriver) Move(srcStorage, srcPath, dstStorage, dstPath string) error {
	srcFull, err := d.validatePath(srcStorage, srcPath)
	if err != nil {
		return err
	}
	dstFull, err := d.validatePath(dstStorage, dstPath)
	if err != nil {
		return err
	}

	if dstFull == srcFull || strings.HasPrefix(dstFull, srcFull+string(filepath.Separator)) {
		return fmt.Errorf("cannot move %s into itself", srcPath)
	}

	if err := os.Rename(srcFull, dstFull); err == nil {
		return nil
	}
	if err := copyPath(srcFull, dstFull); err != nil {
		return err
	}
	return os.RemoveAll(srcFull)
}

// Copy copies a file or a folder tree.
func (d *LocalDriver) Copy(srcStorage, srcPath, dstStorage, dstPath string) error {
	srcFull, err := d.validatePath(srcStorage, srcPath)
	if err != nil {
		return err
	}
	dstFull, err := d.validatePath(dstStorage, dstPath)
	if err != nil {
		return err
	}
	if dstFull == srcFull || strings.HasPrefix(dstFull, srcFull+string(filepath.Separator)) {
		return fmt.Errorf("cannot copy %s into itself", srcPath)
	}
	return copyPath(srcFull, dstFull)
}

func copyPath(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return notFound(err)
	}
	if !info.IsDir() {
		return copyFile(src, dst, info.Mode().Perm())
	}

	return filepath.WalkDir(src, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if entry.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		fi, err := entry.Info()
		if err != nil {
			return err
		}
		return copyFile(path, target, fi.Mode().Perm())
	})
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// DELETE: remove a file or a folder tree
func (d *LocalDriver) Delete(storageName, subPath string) error {
	fullPath, err := d.validatePath(storageName, subPath)
	if err != nil {
		return err
	}
	root, _ := d.getStorageRoot(storageName)
	if fullPath == root {
		return fmt.Errorf("cannot delete the root of storage '%s'", storageName)
	}
	if _, err := os.Lstat(fullPath); err != nil {
		return notFound(err)
	}

	return os.RemoveAll(fullPath)
}

func notFound(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return domain.ErrNotFound
	}
	return err
}
