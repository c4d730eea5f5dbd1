package fetch

import (
	"context"
	"fmt"
	"net/url"
	"path"

	"github.com/newthinker/nseetl/internal/collector"
	"github.com/newthinker/nseetl/internal/core"
	"github.com/newthinker/nseetl/internal/storage/archive"
	"go.uber.org/zap"
)

// Downloader saves raw report payloads verbatim
type Downloader struct {
	fetcher collector.Fetcher
	storage archive.Storage
	logger  *zap.Logger
}

// NewDownloader creates a downloader writing into storage
func NewDownloader(fetcher collector.Fetcher, storage archive.Storage, logger *zap.Logger) *Downloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{
		fetcher: fetcher,
		storage: storage,
		logger:  logger,
	}
}

// WithLogger returns a copy of d logging to logger
func (d *Downloader) WithLogger(logger *zap.Logger) *Downloader {
	c := *d
	c.logger = logger
	return &c
}

// Download fetches rawURL and stores the body under folder, named after the
// last segment of the final URL. It returns the stored path, or "" when the
// server did not answer 200.
func (d *Downloader) Download(ctx context.Context, rawURL, folder string) (string, error) {
	resp, err := d.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}

	if !resp.OK() {
		d.logger.Warn("report not available",
			zap.String("url", rawURL),
			zap.Int("status", resp.StatusCode),
		)
		return "", nil
	}

	name, err := fileName(resp.URL)
	if err != nil {
		return "", err
	}

	dest := path.Join(folder, name)
	if err := d.storage.Write(ctx, dest, resp.Body); err != nil {
		return "", err
	}

	d.logger.Info("report saved",
		zap.String("path", dest),
		zap.Int("bytes", len(resp.Body)),
	)
	return dest, nil
}

func fileName(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", core.WrapError(core.ErrFetchFailed, fmt.Errorf("parsing url %q: %w", raw, err))
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", core.WrapError(core.ErrFetchFailed, fmt.Errorf("no file name in url %q", raw))
	}
	return name, nil
}
