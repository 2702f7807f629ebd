// scraper/downloader.go
package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/dustin/go-humanize"
)

// Downloader fetches source files into a local directory.
type Downloader struct {
	Client *http.Client
	Dir    string // os.TempDir() when empty
	Logger *slog.Logger
}

// Download saves href to a new temporary file and returns its path. The file
// keeps the source's extension so OpenRows can pick a reader. The caller owns
// the file and must remove it.
func (d *Downloader) Download(ctx context.Context, href string) (string, error) {
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, href, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request for %s: %w", href, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make GET request to %s: %w", href, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download file from %s: received status code %d", href, resp.StatusCode)
	}

	dir := d.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	outFile, err := os.CreateTemp(dir, "source-*"+fileExt(href))
	if err != nil {
		return "", fmt.Errorf("failed to create local file in %s: %w", dir, err)
	}

	n, err := copyAndClose(outFile, resp.Body)
	if err != nil {
		os.Remove(outFile.Name())
		return "", fmt.Errorf("failed to save downloaded content from %s: %w", href, err)
	}

	logger.Info("downloaded source file", "component", "scraper", "href", href, "path", outFile.Name(), "size", humanize.Bytes(uint64(n)))
	return outFile.Name(), nil
}

// copyAndClose copies body into out and always closes out. A close error is
// returned, since it can mean buffered data never reached the disk.
func copyAndClose(out io.WriteCloser, body io.Reader) (int64, error) {
	n, err := io.Copy(out, body)
	if err != nil {
		out.Close()
		return n, fmt.Errorf("copy failed: %w", err)
	}
	if err := out.Close(); err != nil {
		return n, fmt.Errorf("close failed: %w", err)
	}
	return n, nil
}

func fileExt(href string) string {
	if u, err := url.Parse(href); err == nil {
		return path.Ext(u.Path)
	}
	return filepath.Ext(href)
}
