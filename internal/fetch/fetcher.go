package fetch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sumochan15/agentworkflow/pkg/log"
)

const maxContentLength = 4000

// content-bearing selectors tried in priority order
var contentSelectors = []string{
	"article",
	"main",
	".post-body",
	".article-content",
	"body",
}

// Fetcher resolves a free-form input into plain text suitable for
// prompting. URLs are fetched and reduced to article text; anything else
// passes through unchanged.
type Fetcher struct {
	httpClient *http.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// IsURL reports whether the input should be treated as a page address.
func IsURL(input string) bool {
	return strings.HasPrefix(input, "http")
}

// Content returns the bounded plain-text content for the input.
func (f *Fetcher) Content(ctx context.Context, input string) (string, error) {
	if !IsURL(input) {
		return input, nil
	}

	log.Info("Fetching article content from %s", input)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, input, nil)
	if err != nil {
		return "", fmt.Errorf("build request for %s: %w", input, err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", input, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch %s: unexpected status %d", input, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", input, err)
	}

	return extractText(doc), nil
}

func extractText(doc *goquery.Document) string {
	var text string
	for _, selector := range contentSelectors {
		sel := doc.Find(selector)
		if sel.Length() == 0 {
			continue
		}
		text = sel.First().Text()
		if strings.TrimSpace(text) != "" {
			break
		}
	}

	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) > maxContentLength {
		text = string(runes[:maxContentLength])
	}
	return text
}
