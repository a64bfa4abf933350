// Package input provides implementations for acquisition modules.
// This file implements the HTTP module: it downloads the gzip-compressed
// SEER population archive, decompresses it into the data directory, and
// removes the archive to save space. Transient network and server errors
// are retried with exponential backoff; decode-side errors never are.
package input

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/errhandling"
	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/logger"
)

// Default HTTP module settings.
const (
	DefaultDataDir     = "data"
	DefaultHTTPTimeout = 10 * time.Minute

	archiveName = "seer_us_population_data.txt.gz"
	extractName = "seer_us_population_data.txt"
)

// HTTPConfig represents the configuration for an HTTP acquisition module.
type HTTPConfig struct {
	// URL is the archive URL (required). The body must be gzip-compressed
	// fixed-width text.
	URL string `json:"url"`
	// DataDir is the directory for the downloaded and extracted files.
	// Defaults to "data".
	DataDir string `json:"dataDir,omitempty"`
	// TimeoutSeconds bounds the whole download. Defaults to 600.
	TimeoutSeconds int `json:"timeoutSeconds,omitempty"`
	// MaxAttempts is the number of download attempts including the first.
	MaxAttempts int `json:"maxAttempts,omitempty"`
}

// HTTPModule downloads and extracts the population archive.
type HTTPModule struct {
	config HTTPConfig
	client *http.Client
	retry  errhandling.RetryConfig
}

// ParseHTTPConfig parses a raw configuration map into HTTPConfig.
func ParseHTTPConfig(config map[string]interface{}) (HTTPConfig, error) {
	var cfg HTTPConfig

	url, ok := config["url"].(string)
	if !ok || url == "" {
		return cfg, errors.New("'url' is required and must be a non-empty string")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return cfg, fmt.Errorf("'url' must be an http(s) URL, got %q", url)
	}
	cfg.URL = url

	if dir, ok := config["dataDir"].(string); ok {
		cfg.DataDir = dir
	}
	if v, ok := asInt(config["timeoutSeconds"]); ok {
		cfg.TimeoutSeconds = v
	}
	if v, ok := asInt(config["maxAttempts"]); ok {
		cfg.MaxAttempts = v
	}
	return cfg, nil
}

// NewHTTPFromConfig creates a new HTTP acquisition module from
// configuration.
func NewHTTPFromConfig(config HTTPConfig) (*HTTPModule, error) {
	if config.URL == "" {
		return nil, errors.New("url is required")
	}
	if config.DataDir == "" {
		config.DataDir = DefaultDataDir
	}
	timeout := DefaultHTTPTimeout
	if config.TimeoutSeconds > 0 {
		timeout = time.Duration(config.TimeoutSeconds) * time.Second
	}
	retry := errhandling.DefaultRetryConfig()
	if config.MaxAttempts > 0 {
		retry.MaxAttempts = config.MaxAttempts
	}

	logger.Debug("http input module initialized",
		slog.String("url", config.URL),
		slog.String("data_dir", config.DataDir),
		slog.Duration("timeout", timeout),
	)

	return &HTTPModule{
		config: config,
		client: &http.Client{Timeout: timeout},
		retry:  retry,
	}, nil
}

// Open downloads the archive, decompresses it next to it, removes the
// archive, and returns the extracted fixed-width text file.
func (m *HTTPModule) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := os.MkdirAll(m.config.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	archivePath := filepath.Join(m.config.DataDir, archiveName)
	outputPath := filepath.Join(m.config.DataDir, extractName)

	err := errhandling.Retry(ctx, m.retry, func(ctx context.Context) error {
		return m.download(ctx, archivePath)
	})
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", m.config.URL, err)
	}

	if err := extractGzip(archivePath, outputPath); err != nil {
		return nil, fmt.Errorf("decompressing archive: %w", err)
	}

	// The archive is not kept once extracted; there is no caching of
	// downloaded archives between runs.
	if err := os.Remove(archivePath); err != nil {
		logger.Warn("failed to remove archive",
			slog.String("path", archivePath),
			slog.String("error", err.Error()),
		)
	}

	f, err := os.Open(outputPath)
	if err != nil {
		return nil, fmt.Errorf("opening extracted file: %w", err)
	}
	logger.Info("dataset acquired",
		slog.String("url", m.config.URL),
		slog.String("path", outputPath),
	)
	return f, nil
}

// download fetches the archive to path. Non-2xx responses are classified
// so the retry executor can distinguish transient failures from fatal ones.
func (m *HTTPModule) download(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.config.URL, nil)
	if err != nil {
		return err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return errhandling.ClassifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errhandling.ClassifyHTTPStatus(resp.StatusCode)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	written, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return errhandling.ClassifyError(err)
	}

	logger.Debug("archive downloaded",
		slog.String("path", path),
		slog.Int64("bytes", written),
	)
	return nil
}

// extractGzip decompresses src into dst.
func extractGzip(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	gz, err := gzip.NewReader(in)
	if err != nil {
		return err
	}
	defer gz.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, gz)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return err
	}
	return nil
}

// Close releases idle connections held by the HTTP client.
func (m *HTTPModule) Close() error {
	m.client.CloseIdleConnections()
	return nil
}

// asInt converts YAML/JSON numeric scalars to int.
func asInt(v interface{}) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	default:
		return 0, false
	}
}

// Verify interface compliance at compile time
var _ Module = (*HTTPModule)(nil)
