package validation

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"survdash/internal/config"
)

// SignatureLen is the number of leading bytes ValidateWorkbookSignature inspects
const SignatureLen = 8

var (
	// ErrEmptyFile is returned for zero-byte uploads
	ErrEmptyFile = errors.New("file is empty")
	// ErrFileTooLarge is returned when an upload exceeds the configured limit
	ErrFileTooLarge = errors.New("file exceeds upload limit")
	// ErrExtensionNotAllowed is returned for file types outside the allow-list
	ErrExtensionNotAllowed = errors.New("file type not allowed")
	// ErrTemporaryFile is returned for Office lock files such as ~$cases.xlsx
	ErrTemporaryFile = errors.New("temporary office file")
	// ErrSignatureMismatch is returned when the content does not match the extension
	ErrSignatureMismatch = errors.New("file content does not match its extension")
)

var (
	zipMagic = []byte{'P', 'K', 0x03, 0x04}
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// FileValidator checks uploaded and local line-list files before parsing
type FileValidator struct {
	logger     *slog.Logger
	maxBytes   int64
	extensions map[string]bool
}

// NewFileValidator creates a validator from the ingest settings
func NewFileValidator(logger *slog.Logger, cfg config.IngestConfig) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = config.DefaultMaxUploadBytes
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = config.Default().Ingest.Extensions
	}

	exts := make(map[string]bool, len(cfg.Extensions))
	for _, ext := range cfg.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = true
	}

	return &FileValidator{
		logger:     logger.With(slog.String("component", "file_validator")),
		maxBytes:   cfg.MaxUploadBytes,
		extensions: exts,
	}
}

// ValidateUpload checks the filename and declared size of an upload.
// A negative size means unknown and skips the size checks.
func (v *FileValidator) ValidateUpload(name string, size int64) error {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := strings.ToLower(filepath.Ext(base))

	if strings.HasPrefix(base, "~$") {
		v.logger.Warn("Rejected temporary Office file", slog.String("file", base))
		return fmt.Errorf("%w: %s", ErrTemporaryFile, base)
	}

	if !v.extensions[ext] {
		v.logger.Warn("Rejected file type",
			slog.String("file", base),
			slog.String("extension", ext))
		return fmt.Errorf("%w: %q (allowed: %s)", ErrExtensionNotAllowed, ext, strings.Join(v.allowed(), ", "))
	}

	if size == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyFile, base)
	}

	if size > v.maxBytes {
		v.logger.Warn("Rejected oversized upload",
			slog.String("file", base),
			slog.Int64("size", size),
			slog.Int64("limit", v.maxBytes))
		return fmt.Errorf("%w: %d bytes > %d", ErrFileTooLarge, size, v.maxBytes)
	}

	return nil
}

// ValidateWorkbookSignature checks the leading bytes against the extension.
// Workbooks must be ZIP containers; a binary .xls renamed to .xlsx is caught
// here before the parser sees it.
func (v *FileValidator) ValidateWorkbookSignature(name string, header []byte) error {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		if bytes.HasPrefix(header, zipMagic) {
			return nil
		}
		if bytes.HasPrefix(header, oleMagic) {
			return fmt.Errorf("%w: %s is a legacy .xls workbook", ErrSignatureMismatch, name)
		}
		return fmt.Errorf("%w: %s is not a ZIP-based workbook", ErrSignatureMismatch, name)
	case ".csv":
		if bytes.HasPrefix(header, zipMagic) || bytes.HasPrefix(header, oleMagic) {
			return fmt.Errorf("%w: %s is a binary file", ErrSignatureMismatch, name)
		}
	}
	return nil
}

// ValidateFile checks that a local file exists, is readable and passes the upload rules
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	if err := v.ValidateUpload(path, info.Size()); err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	defer file.Close()

	header := make([]byte, SignatureLen)
	n, _ := file.Read(header)
	if err := v.ValidateWorkbookSignature(path, header[:n]); err != nil {
		return err
	}

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputDirectory ensures an output directory exists and is writable
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(testFile)

	return nil
}

func (v *FileValidator) allowed() []string {
	out := make([]string, 0, len(v.extensions))
	for ext := range v.extensions {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}
