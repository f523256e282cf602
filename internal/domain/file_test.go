package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		storage string
		path    string
		wantErr bool
	}{
		{name: "root", id: "default:/", storage: "default", path: "/"},
		{name: "nested", id: "ssd:/a/b.txt", storage: "ssd", path: "/a/b.txt"},
		{name: "missing slash", id: "ssd:a.txt", storage: "ssd", path: "/a.txt"},
		{name: "no storage", id: ":/a.txt", wantErr: true},
		{name: "no separator", id: "a.txt", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, path, err := SplitIdentifier(tt.id)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.storage, storage)
			assert.Equal(t, tt.path, path)
		})
	}
}

func TestParseConflictMode(t *testing.T) {
	mode, err := ParseConflictMode("")
	require.NoError(t, err)
	assert.Equal(t, ConflictCancel, mode)

	mode, err = ParseConflictMode("Rename")
	require.NoError(t, err)
	assert.Equal(t, ConflictRename, mode)

	_, err = ParseConflictMode("overwrite")
	assert.Error(t, err)
}

func TestFileDataClone(t *testing.T) {
	data := FileData{"delete": {true}}
	clone := data.Clone()
	clone["delete"][0] = false
	clone["editfile"] = []any{"x"}

	assert.Equal(t, FileData{"delete": {true}}, data)
}
