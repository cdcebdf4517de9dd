package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"survdash/internal/dataprocessing"
)

// ErrNoLineList is returned when a directory holds no readable line-list
var ErrNoLineList = errors.New("no line-list files found")

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
	Format  dataprocessing.Format
}

// Discovery finds line-list files below a base directory
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindLineLists returns the workbook and CSV files in dir, oldest first.
// Legacy .xls workbooks and other extensions are skipped.
func (d *Discovery) FindLineLists(dir string) ([]FileInfo, error) {
	return d.find(dir, func(name string) (dataprocessing.Format, bool) {
		format, err := dataprocessing.DetectFormat(name)
		return format, err == nil
	})
}

// FindFilesByPattern returns the files in dir whose name matches a glob
// pattern, oldest first
func (d *Discovery) FindFilesByPattern(dir, pattern string) ([]FileInfo, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return d.find(dir, func(name string) (dataprocessing.Format, bool) {
		matched, _ := filepath.Match(pattern, name)
		if !matched {
			return "", false
		}
		format, _ := dataprocessing.DetectFormat(name)
		return format, true
	})
}

// Latest returns the most recently modified line-list in dir
func (d *Discovery) Latest(dir string) (FileInfo, error) {
	found, err := d.FindLineLists(dir)
	if err != nil {
		return FileInfo{}, err
	}
	latest, ok := GetLatestFile(found)
	if !ok {
		return FileInfo{}, fmt.Errorf("%w in %s", ErrNoLineList, d.resolve(dir))
	}
	return latest, nil
}

func (d *Discovery) resolve(dir string) string {
	if filepath.IsAbs(dir) || d.basePath == "" {
		return dir
	}
	return filepath.Join(d.basePath, dir)
}

func (d *Discovery) find(dir string, accept func(name string) (dataprocessing.Format, bool)) ([]FileInfo, error) {
	fullPath := d.resolve(dir)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		format, ok := accept(name)
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Format:  format,
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].ModTime.Before(files[j].ModTime)
	})

	return files, nil
}

// GetLatestFile returns the most recently modified file from a list
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}

	latest := files[0]
	for _, file := range files[1:] {
		if file.ModTime.After(latest.ModTime) {
			latest = file
		}
	}

	return latest, true
}

// FilterFilesByDateRange keeps files modified strictly between start and end
func FilterFilesByDateRange(files []FileInfo, start, end time.Time) []FileInfo {
	var filtered []FileInfo
	for _, file := range files {
		if file.ModTime.After(start) && file.ModTime.Before(end) {
			filtered = append(filtered, file)
		}
	}
	return filtered
}
