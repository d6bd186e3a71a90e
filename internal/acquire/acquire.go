// Package acquire turns scan targets (local files, directories, or URLs) into
// source units ready for analysis.
package acquire

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/http2"

	"github.com/hexborne/vulndetective/api/schemas"
	"github.com/hexborne/vulndetective/internal/config"
	"github.com/hexborne/vulndetective/internal/observability"
)

const (
	defaultMaxFileSize = 1 << 20
	defaultTimeout     = 30 * time.Second

	tlsHandshakeTimeout   = 5 * time.Second
	responseHeaderTimeout = 10 * time.Second
)

// Directories that never contain first-party source worth scanning.
var skippedDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	"dist":         true,
	"build":        true,
}

// Acquirer resolves scan targets into source units.
type Acquirer struct {
	cfg    config.AcquireConfig
	client *http.Client
	log    *zap.Logger
}

// New builds an Acquirer. Zero config fields fall back to sane limits.
func New(cfg config.AcquireConfig) *Acquirer {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = defaultMaxFileSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Acquirer{
		cfg:    cfg,
		client: newHTTPClient(cfg.Timeout),
		log:    observability.GetLogger().Named("acquire"),
	}
}

// newHTTPClient builds a client with conservative timeouts at every layer so a
// stalled remote fetch cannot hang a scan.
func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		TLSHandshakeTimeout:   tlsHandshakeTimeout,
		ResponseHeaderTimeout: responseHeaderTimeout,
		MaxIdleConns:          10,
		IdleConnTimeout:       30 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		observability.GetLogger().Warn("Failed to configure HTTP/2 transport, falling back to HTTP/1.1", zap.Error(err))
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// Acquire resolves a target into one or more source units. A target is an
// HTTP(S) URL, a single file, or a directory walked recursively.
func (a *Acquirer) Acquire(ctx context.Context, target string) ([]*schemas.SourceUnit, error) {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		unit, err := a.acquireURL(ctx, target)
		if err != nil {
			return nil, err
		}
		return []*schemas.SourceUnit{unit}, nil
	}

	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("cannot access target %q: %w", target, err)
	}
	if info.IsDir() {
		return a.acquireDir(ctx, target)
	}

	unit, err := a.acquireFile(target, info.Size())
	if err != nil {
		return nil, err
	}
	return []*schemas.SourceUnit{unit}, nil
}

func (a *Acquirer) acquireFile(path string, size int64) (*schemas.SourceUnit, error) {
	if size > a.cfg.MaxFileSize {
		return nil, fmt.Errorf("file %q exceeds the %d byte size limit", path, a.cfg.MaxFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	return schemas.NewSourceUnit(path, LanguageForPath(path), string(data)), nil
}

// acquireDir walks the tree and collects every recognized source file. Files
// over the size limit are skipped with a warning rather than failing the walk.
func (a *Acquirer) acquireDir(ctx context.Context, root string) ([]*schemas.SourceUnit, error) {
	var units []*schemas.SourceUnit

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if path != root && skippedDirs[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}
		if !IsSupportedPath(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() > a.cfg.MaxFileSize {
			a.log.Warn("Skipping oversized file",
				zap.String("path", path),
				zap.Int64("size", info.Size()),
				zap.Int64("limit", a.cfg.MaxFileSize))
			return nil
		}
		unit, err := a.acquireFile(path, info.Size())
		if err != nil {
			return err
		}
		units = append(units, unit)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %q: %w", root, err)
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("no recognized source files under %q", root)
	}

	sort.Slice(units, func(i, j int) bool { return units[i].Name < units[j].Name })
	return units, nil
}

func (a *Acquirer) acquireURL(ctx context.Context, rawURL string) (*schemas.SourceUnit, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid target URL %q: %w", rawURL, err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %q: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %q returned status %d", rawURL, resp.StatusCode)
	}

	// Read one byte past the limit so truncation is detectable.
	body, err := io.ReadAll(io.LimitReader(resp.Body, a.cfg.MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %q: %w", rawURL, err)
	}
	if int64(len(body)) > a.cfg.MaxFileSize {
		return nil, fmt.Errorf("response from %q exceeds the %d byte size limit", rawURL, a.cfg.MaxFileSize)
	}

	return schemas.NewSourceUnit(rawURL, LanguageForPath(rawURL), string(body)), nil
}
