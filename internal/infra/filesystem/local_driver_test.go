package filesystem

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"filecommand-api/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDriver(t *testing.T) (*LocalDriver, string) {
	t.Helper()
	root := t.TempDir()
	return NewLocalDriver(map[string]string{"default": root}), root
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestValidatePath(t *testing.T) {
	d, root := newTestDriver(t)

	tests := []struct {
		name    string
		storage string
		path    string
		want    string
		wantErr error
	}{
		{name: "root", storage: "default", path: "/", want: root},
		{name: "nested", storage: "default", path: "/a/b.txt", want: filepath.Join(root, "a", "b.txt")},
		{name: "dot dot inside", storage: "default", path: "/a/../b", want: filepath.Join(root, "b")},
		{name: "escape", storage: "default", path: "/../../etc/passwd", wantErr: domain.ErrInvalidPath},
		{name: "unknown storage", storage: "nope", path: "/", wantErr: domain.ErrStorageNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.validatePath(tt.storage, tt.path)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidatePathRejectsSiblingPrefix(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "data")
	require.NoError(t, os.Mkdir(root, 0755))
	d := NewLocalDriver(map[string]string{"default": root})

	_, err := d.validatePath("default", "/../data-other/x")
	assert.ErrorIs(t, err, domain.ErrInvalidPath)
}

func TestReadDir(t *testing.T) {
	d, root := newTestDriver(t)
	writeFile(t, filepath.Join(root, "a.txt"), "a")
	writeFile(t, filepath.Join(root, ".hidden"), "h")
	writeFile(t, filepath.Join(root, "sub", "b.txt"), "b")

	files, err := d.ReadDir("default", "/", false)
	require.NoError(t, err)
	require.Len(t, files, 2)

	byName := map[string]domain.FileInfo{}
	for _, f := range files {
		byName[f.Name] = f
	}
	assert.Equal(t, ".txt", byName["a.txt"].Extension)
	assert.True(t, byName["sub"].IsDir)
	assert.Equal(t, 1, byName["sub"].ItemCount)

	files, err = d.ReadDir("default", "/", true)
	require.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestReadDirRecursive(t *testing.T) {
	d, root := newTestDriver(t)
	writeFile(t, filepath.Join(root, "a.txt"), "a")
	writeFile(t, filepath.Join(root, "sub", "deep", "c.md"), "c")
	writeFile(t, filepath.Join(root, ".git", "config"), "x")

	files, err := d.ReadDirRecursive("default", false)
	require.NoError(t, err)

	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	assert.ElementsMatch(t, []string{"/a.txt", "/sub", "/sub/deep", "/sub/deep/c.md"}, paths)
}

func TestReadDirRecursiveMissingRoot(t *testing.T) {
	d := NewLocalDriver(map[string]string{"gone": filepath.Join(t.TempDir(), "missing")})
	_, err := d.ReadDirRecursive("gone", false)
	assert.Error(t, err)
}

func TestCreateAndEdit(t *testing.T) {
	d, root := newTestDriver(t)

	require.NoError(t, d.CreateFolder("default", "/docs"))
	require.NoError(t, d.CreateFile("default", "/docs/readme.md"))
	assert.ErrorIs(t, d.CreateFile("default", "/docs/readme.md"), domain.ErrExists)

	require.NoError(t, d.SetContents("default", "/docs/readme.md", "# hello"))
	content, err := os.ReadFile(filepath.Join(root, "docs", "readme.md"))
	require.NoError(t, err)
	assert.Equal(t, "# hello", string(content))

	assert.ErrorIs(t, d.SetContents("default", "/docs", "x"), domain.ErrNotAFile)
	assert.ErrorIs(t, d.SetContents("default", "/missing.txt", "x"), domain.ErrNotFound)
}

func TestSaveFile(t *testing.T) {
	d, root := newTestDriver(t)

	require.NoError(t, d.SaveFile("default", "/up/load.txt", strings.NewReader("payload")))
	content, err := os.ReadFile(filepath.Join(root, "up", "load.txt"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(content))
}

func TestCopyMoveDelete(t *testing.T) {
	d, root := newTestDriver(t)
	writeFile(t, filepath.Join(root, "src", "a.txt"), "a")
	writeFile(t, filepath.Join(root, "src", "nested", "b.txt"), "b")

	require.NoError(t, d.Copy("default", "/src", "default", "/dst"))
	assert.FileExists(t, filepath.Join(root, "dst", "nested", "b.txt"))
	assert.FileExists(t, filepath.Join(root, "src", "a.txt"))

	assert.Error(t, d.Copy("default", "/src", "default", "/src/inner"))

	require.NoError(t, d.Move("default", "/dst/a.txt", "default", "/moved.txt"))
	assert.FileExists(t, filepath.Join(root, "moved.txt"))
	assert.NoFileExists(t, filepath.Join(root, "dst", "a.txt"))

	require.NoError(t, d.Rename("default", "/moved.txt", "/renamed.txt"))
	assert.FileExists(t, filepath.Join(root, "renamed.txt"))

	empty, err := d.IsEmptyDir("default", "/src")
	require.NoError(t, err)
	assert.False(t, empty)

	require.NoError(t, d.Delete("default", "/src"))
	assert.NoDirExists(t, filepath.Join(root, "src"))
	assert.ErrorIs(t, d.Delete("default", "/src"), domain.ErrNotFound)
	assert.Error(t, d.Delete("default", "/"))
}

func TestMoveAcrossStorages(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	d := NewLocalDriver(map[string]string{"a": a, "b": b})
	writeFile(t, filepath.Join(a, "f.txt"), "f")

	require.NoError(t, d.Move("a", "/f.txt", "b", "/f.txt"))
	assert.FileExists(t, filepath.Join(b, "f.txt"))
	assert.NoFileExists(t, filepath.Join(a, "f.txt"))
}

func TestFileResource(t *testing.T) {
	d, root := newTestDriver(t)
	path := filepath.Join(root, "page.HTML")
	writeFile(t, path, "<html><body>hi</body></html>")
	mtime := time.Unix(123456789, 0)
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	f, err := d.File("default", "page.HTML")
	require.NoError(t, err)

	assert.Equal(t, int64(123456789), f.ModificationTime())
	assert.Equal(t, "html", f.Extension())
	assert.Equal(t, "default:/page.HTML", f.Identifier())

	record := f.ToArray()
	assert.Equal(t, "default:/page.HTML", record["id"])
	assert.Equal(t, "page.HTML", record["name"])
	assert.Equal(t, "text", record["type"])
	assert.True(t, strings.HasPrefix(record["mimetype"].(string), "text/html"))
	assert.Equal(t, "/api/download?path=%2Fpage.HTML&storage=default", record["url"])

	_, err = d.File("default", "/")
	assert.ErrorIs(t, err, domain.ErrNotAFile)
	_, err = d.File("default", "/missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFolderResource(t *testing.T) {
	d, root := newTestDriver(t)
	require.NoError(t, os.Mkdir(filepath.Join(root, "docs"), 0755))
	writeFile(t, filepath.Join(root, "a.txt"), "a")

	f, err := d.Folder("default", "docs/")
	require.NoError(t, err)
	assert.Equal(t, "default:/docs/", f.Identifier())
	assert.Equal(t, "docs", f.Name())

	rootFolder, err := d.Folder("default", "/")
	require.NoError(t, err)
	assert.Equal(t, "default:/", rootFolder.Identifier())

	_, err = d.Folder("default", "/a.txt")
	assert.ErrorIs(t, err, domain.ErrNotAFolder)
}

func TestListStorages(t *testing.T) {
	present := t.TempDir()
	d := NewLocalDriver(map[string]string{
		"b":       present,
		"a":       filepath.Join(present, "missing"),
		"present": present,
	})

	storages := d.ListStorages()
	require.Len(t, storages, 3)
	assert.Equal(t, "a", storages[0].Name)
	assert.False(t, storages[0].IsMounted)
	assert.True(t, storages[1].IsMounted)
}
