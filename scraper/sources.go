// scraper/sources.go
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gewnthar/permitsync/models"
)

// sourceExtensions are the file types linked from a list page that count as sources.
var sourceExtensions = []string{".xlsx", ".xls", ".csv"}

// DiscoverSources scrapes listURL for links to downloadable source files and
// returns them in page order with absolute hrefs. A link appearing twice is
// reported once. When a file name contains one of operatorKeys (case-insensitive)
// the descriptor carries that key.
func DiscoverSources(ctx context.Context, client *http.Client, listURL string, operatorKeys []string) ([]models.SourceDescriptor, error) {
	if client == nil {
		client = http.DefaultClient
	}
	base, err := url.Parse(listURL)
	if err != nil {
		return nil, fmt.Errorf("invalid list URL %s: %w", listURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", listURL, err)
	}
	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get URL %s: %w", listURL, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get URL %s: status code %d", listURL, res.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML from %s: %w", listURL, err)
	}

	var descs []models.SourceDescriptor
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil || !hasSourceExtension(ref.Path) {
			return
		}
		abs := base.ResolveReference(ref).String()
		if seen[abs] {
			return
		}
		seen[abs] = true
		descs = append(descs, models.SourceDescriptor{
			Href:        abs,
			Text:        strings.Join(strings.Fields(s.Text()), " "),
			OperatorKey: matchOperatorKey(path.Base(ref.Path), operatorKeys),
		})
	})

	slog.Debug("discovered source files", "component", "scraper", "list_url", listURL, "count", len(descs))
	return descs, nil
}

func hasSourceExtension(p string) bool {
	lower := strings.ToLower(p)
	for _, ext := range sourceExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func matchOperatorKey(fileName string, keys []string) string {
	name := strings.ToLower(fileName)
	for _, k := range keys {
		if k != "" && strings.Contains(name, strings.ToLower(k)) {
			return k
		}
	}
	return ""
}
