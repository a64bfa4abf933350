// Package input provides implementations for acquisition modules.
// This file implements the file module for reading an already-downloaded
// fixed-width text file, optionally gzip-compressed.
package input

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"strings"
)

// FileConfig represents the configuration for a file acquisition module.
type FileConfig struct {
	// Path is the fixed-width text file (required). A ".gz" suffix selects
	// transparent decompression.
	Path string `json:"path"`
}

// FileModule reads the raw dataset from the local filesystem.
type FileModule struct {
	config FileConfig
}

// ParseFileConfig parses a raw configuration map into FileConfig.
func ParseFileConfig(config map[string]interface{}) (FileConfig, error) {
	var cfg FileConfig
	path, ok := config["path"].(string)
	if !ok || path == "" {
		return cfg, errors.New("'path' is required and must be a non-empty string")
	}
	cfg.Path = path
	return cfg, nil
}

// NewFileFromConfig creates a new file acquisition module from
// configuration.
func NewFileFromConfig(config FileConfig) (*FileModule, error) {
	if config.Path == "" {
		return nil, errors.New("path is required")
	}
	return &FileModule{config: config}, nil
}

// Open opens the configured file.
func (m *FileModule) Open(_ context.Context) (io.ReadCloser, error) {
	f, err := os.Open(m.config.Path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(m.config.Path, ".gz") {
		return f, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &gzipReadCloser{gz: gz, file: f}, nil
}

// Close implements the Module interface; the file module holds no
// resources between Open calls.
func (m *FileModule) Close() error {
	return nil
}

// gzipReadCloser closes both the gzip reader and the underlying file.
type gzipReadCloser struct {
	gz   *gzip.Reader
	file *os.File
}

func (g *gzipReadCloser) Read(p []byte) (int, error) {
	return g.gz.Read(p)
}

func (g *gzipReadCloser) Close() error {
	err := g.gz.Close()
	if ferr := g.file.Close(); err == nil {
		err = ferr
	}
	return err
}

// Verify interface compliance at compile time
var _ Module = (*FileModule)(nil)
