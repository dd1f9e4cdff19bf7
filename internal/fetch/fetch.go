// Package fetch downloads crime datasets and street-network archives from
// open-data portals over HTTP and FTP, and parses the CSV/XLSX/ZIP payloads
// they come in.
package fetch

import (
	"context"
	"io"
)

// Fetcher downloads remote datasets.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL into a local file. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)

	// DownloadIfChanged fetches only when the server-side ETag differs from
	// the one passed in. Returns (body, newETag, changed, error); body is nil
	// when unchanged.
	DownloadIfChanged(ctx context.Context, url string, etag string) (io.ReadCloser, string, bool, error)
}
