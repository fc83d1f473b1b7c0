package owid

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/wonny/vaxtrack/pkg/httputil"
	"github.com/wonny/vaxtrack/pkg/logger"
)

// StatusError is returned when the dataset host answers with a non-200 status
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("owid: unexpected status %d from %s", e.Code, e.URL)
}

// Client downloads the OWID dataset
type Client struct {
	http   *httputil.Client
	url    string
	logger *logger.Logger
}

// NewClient creates a new dataset client
func NewClient(httpClient *httputil.Client, url string, log *logger.Logger) *Client {
	return &Client{
		http:   httpClient,
		url:    url,
		logger: log.Module("owid"),
	}
}

// URL returns the dataset location
func (c *Client) URL() string {
	return c.url
}

// Fetch opens the remote dataset. The caller must close the reader.
func (c *Client) Fetch(ctx context.Context) (io.ReadCloser, error) {
	resp, err := c.http.Get(ctx, c.url)
	if err != nil {
		return nil, fmt.Errorf("fetch dataset: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, URL: c.url}
	}

	return resp.Body, nil
}

// Download writes the remote dataset to path via a temp file and rename,
// so readers never observe a partial file. Returns bytes written.
func (c *Client) Download(ctx context.Context, path string) (int64, error) {
	start := time.Now()

	body, err := c.Fetch(ctx)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	n, err := io.Copy(tmp, body)
	if err != nil {
		cleanup()
		return n, fmt.Errorf("write dataset: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return n, fmt.Errorf("sync dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return n, fmt.Errorf("close dataset: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return n, fmt.Errorf("rename dataset: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"path":     path,
		"bytes":    n,
		"duration": time.Since(start).String(),
	}).Info("Dataset downloaded")

	return n, nil
}

// Loader resolves the dataset from the local cache, downloading it on demand
type Loader struct {
	client    *Client
	cachePath string
	logger    *logger.Logger
}

// NewLoader creates a loader. A nil client makes it cache-only.
func NewLoader(client *Client, cachePath string, log *logger.Logger) *Loader {
	return &Loader{
		client:    client,
		cachePath: cachePath,
		logger:    log.Module("owid"),
	}
}

// Load returns the parsed dataset.
// refresh forces a download even when a cached copy exists.
func (l *Loader) Load(ctx context.Context, refresh bool) (*Table, error) {
	_, statErr := os.Stat(l.cachePath)
	missing := errors.Is(statErr, os.ErrNotExist)

	if refresh || missing {
		if l.client == nil {
			return nil, fmt.Errorf("dataset %s not cached and no download client configured", l.cachePath)
		}
		if _, err := l.client.Download(ctx, l.cachePath); err != nil {
			return nil, err
		}
	}

	table, err := LoadFile(l.cachePath)
	if err != nil {
		return nil, err
	}

	l.logger.WithFields(map[string]interface{}{
		"path":     l.cachePath,
		"rows":     table.Len(),
		"entities": len(table.Entities()),
	}).Info("Dataset loaded")

	return table, nil
}
