package normalizer

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sumochan15/agentworkflow/pkg/log"
)

// ReadingLookup corroborates a proposed reading against the official sumo
// association site. Several search URL shapes and furigana selectors are
// tried in order; the first non-empty hit wins. Every failure is
// non-fatal; the caller falls back to the model-proposed reading.
type ReadingLookup struct {
	baseURL    string
	httpClient *http.Client
}

// search URL query parameter shapes, tried in order
var searchParams = []string{"shikona", "q", "name"}

// furigana-bearing selectors, tried in order per page
var furiganaSelectors = []string{
	".furigana",
	".shikona-kana",
	".rikishi-kana",
	"ruby rt",
	`[class*="kana"]`,
	`[class*="furigana"]`,
}

var titleReadingRe = regexp.MustCompile(`（(.+?)）`)

func NewReadingLookup(baseURL string, timeout time.Duration) *ReadingLookup {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ReadingLookup{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Lookup returns the official reading for the wrestler name, or an error
// when no strategy produced one.
func (l *ReadingLookup) Lookup(ctx context.Context, name string) (string, error) {
	for _, param := range searchParams {
		searchURL := fmt.Sprintf("%s/ResultRikishiData/search?%s=%s",
			l.baseURL, param, url.QueryEscape(name))

		reading, err := l.tryURL(ctx, searchURL)
		if err != nil {
			log.Debug("Reading lookup via %s failed for %s: %v", param, name, err)
			continue
		}
		if reading != "" {
			log.Info("Official reading found: %s -> %s", name, reading)
			return reading, nil
		}
	}
	return "", fmt.Errorf("no official reading found for %s", name)
}

func (l *ReadingLookup) tryURL(ctx context.Context, searchURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}

	for _, selector := range furiganaSelectors {
		furigana := strings.TrimSpace(doc.Find(selector).First().Text())
		if furigana != "" {
			return furigana, nil
		}
	}

	// Last resort: reading in parentheses inside the page title.
	if m := titleReadingRe.FindStringSubmatch(doc.Find("title").Text()); m != nil {
		return m[1], nil
	}

	return "", nil
}
