package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	// MaxFileSize is the maximum size of a dataset or document read from disk (50MB)
	MaxFileSize = 50 * 1024 * 1024
)

// CheckFileSize verifies if a file is within acceptable size limits
func CheckFileSize(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("error checking file size: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	if info.Size() > MaxFileSize {
		return fmt.Errorf("file size %d bytes exceeds maximum allowed size of %d bytes", info.Size(), MaxFileSize)
	}

	return nil
}

// SafeReadFile reads a file after checking its size
func SafeReadFile(path string) ([]byte, error) {
	if err := CheckFileSize(path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	return data, nil
}

// SafeReadAll reads r up to limit bytes and fails if more are available
func SafeReadAll(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("error reading input: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("input exceeds maximum allowed size of %d bytes", limit)
	}
	return data, nil
}

// WriteDocument writes a generated document, creating parent directories as needed
func WriteDocument(path, content string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("error writing output file: %w", err)
	}
	return nil
}
