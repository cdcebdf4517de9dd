package exporter

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"survdash/internal/config"
	"survdash/internal/dataprocessing"
)

// ExportFilenameLayout is the timestamp layout used in export filenames
const ExportFilenameLayout = "20060102_150405"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ExportFilename returns the download name for a dataset export taken at t
func ExportFilename(t time.Time) string {
	return fmt.Sprintf("disease_surveillance_%s.csv", t.Format(ExportFilenameLayout))
}

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	paths *config.Paths
}

// NewCSVWriter creates a new CSV writer instance. paths may be nil when
// only stream output is needed.
func NewCSVWriter(paths *config.Paths) *CSVWriter {
	return &CSVWriter{paths: paths}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// Write writes headers and records to dst
func (w *CSVWriter) Write(dst io.Writer, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := dst.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(dst)

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteTable writes every row and column of the table as read from the
// upload, header first
func (w *CSVWriter) WriteTable(dst io.Writer, table *dataprocessing.Table, bom bool) error {
	records := make([][]string, table.Len())
	for i := range records {
		records[i] = table.Row(i)
	}
	return w.Write(dst, WriteOptions{
		Headers:   table.Headers(),
		Records:   records,
		BOMPrefix: bom,
	})
}

// WriteFile exports the table to filePath. Relative paths resolve against
// the exports directory. The resolved path is returned.
func (w *CSVWriter) WriteFile(filePath string, table *dataprocessing.Table, bom bool) (string, error) {
	fullPath := w.resolvePath(filePath)

	slog.Info("Writing CSV export",
		slog.String("file_path", filePath),
		slog.String("full_path", fullPath),
		slog.Int("record_count", table.Len()))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	buf := bufio.NewWriter(file)
	if err := w.WriteTable(buf, table, bom); err != nil {
		file.Close()
		return "", err
	}
	if err := buf.Flush(); err != nil {
		file.Close()
		return "", fmt.Errorf("failed to flush export: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close export: %w", err)
	}

	return fullPath, nil
}

// resolvePath resolves a path to the exports directory
func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.paths == nil {
		return filePath
	}
	return w.paths.GetExportPath(filePath)
}
