package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"survdash/internal/dataprocessing"
)

// writeFiles creates names in dir, each one minute newer than the last
func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	base := time.Now().Add(-time.Hour)
	for i, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("test content"), 0644))
		modTime := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(path, modTime, modTime))
	}
}

func names(files []FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Name
	}
	return out
}

func TestFindLineLists(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  []string
	}{
		{
			name:  "workbooks and csv",
			files: []string{"jan.xlsx", "feb.CSV", "mar.xlsm"},
			want:  []string{"jan.xlsx", "feb.CSV", "mar.xlsm"},
		},
		{
			name:  "legacy and unrelated files skipped",
			files: []string{"old.xls", "notes.txt", "cases.xlsx", "chart.png"},
			want:  []string{"cases.xlsx"},
		},
		{
			name:  "empty directory",
			files: nil,
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := t.TempDir()
			writeFiles(t, filepath.Join(base, "incoming"), tt.files...)
			require.NoError(t, os.MkdirAll(filepath.Join(base, "incoming", "archive.xlsx"), 0755))

			found, err := NewDiscovery(base).FindLineLists("incoming")
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(found))

			for _, f := range found {
				assert.Equal(t, filepath.Join(base, "incoming", f.Name), f.Path)
				assert.Positive(t, f.Size)
				assert.NotEmpty(t, f.Format)
			}
		})
	}
}

func TestFindLineLists_AbsolutePath(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "cases.csv")

	found, err := NewDiscovery("/does/not/matter").FindLineLists(dir)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, dataprocessing.FormatCSV, found[0].Format)
}

func TestFindLineLists_MissingDirectory(t *testing.T) {
	_, err := NewDiscovery(t.TempDir()).FindLineLists("missing")
	assert.Error(t, err)
}

func TestFindFilesByPattern(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir,
		"disease_surveillance_20240301_090000.csv",
		"cases.csv",
		"disease_surveillance_20240302_090000.csv")

	found, err := NewDiscovery("").FindFilesByPattern(dir, "disease_surveillance_*.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"disease_surveillance_20240301_090000.csv",
		"disease_surveillance_20240302_090000.csv",
	}, names(found))
}

func TestLatest(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.xlsx", "b.csv", "c.xlsx", "d.txt")

	latest, err := NewDiscovery("").Latest(dir)
	require.NoError(t, err)
	assert.Equal(t, "c.xlsx", latest.Name)

	empty := t.TempDir()
	writeFiles(t, empty, "readme.txt")
	_, err = NewDiscovery("").Latest(empty)
	assert.ErrorIs(t, err, ErrNoLineList)
}

func TestGetLatestFile(t *testing.T) {
	now := time.Now()
	files := []FileInfo{
		{Name: "a", ModTime: now.Add(-2 * time.Hour)},
		{Name: "b", ModTime: now},
		{Name: "c", ModTime: now.Add(-time.Hour)},
	}

	latest, ok := GetLatestFile(files)
	assert.True(t, ok)
	assert.Equal(t, "b", latest.Name)

	_, ok = GetLatestFile(nil)
	assert.False(t, ok)
}

func TestFilterFilesByDateRange(t *testing.T) {
	now := time.Now()
	files := []FileInfo{
		{Name: "old", ModTime: now.Add(-48 * time.Hour)},
		{Name: "recent", ModTime: now.Add(-time.Hour)},
		{Name: "future", ModTime: now.Add(time.Hour)},
	}

	filtered := FilterFilesByDateRange(files, now.Add(-24*time.Hour), now)
	assert.Equal(t, []string{"recent"}, names(filtered))
}
