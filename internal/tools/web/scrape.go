package web

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"finwiz/internal/tools"
	"finwiz/pkg/errors"
)

// maxScrapeBytes bounds how much of a page body is read.
const maxScrapeBytes = 512 << 10

// maxScrapeRunes bounds the extracted text passed back to the agent.
const maxScrapeRunes = 8000

var (
	scriptRe = regexp.MustCompile(`(?is)<(script|style|noscript)[^>]*>.*?</(script|style|noscript)>`)
	tagRe    = regexp.MustCompile(`(?s)<[^>]*>`)
	spaceRe  = regexp.MustCompile(`[ \t]+`)
	blankRe  = regexp.MustCompile(`\n{3,}`)
)

// Scraper fetches a page and extracts its readable text.
type Scraper struct {
	http *http.Client
}

// NewScraper creates a web page scraper.
func NewScraper(timeout time.Duration) *Scraper {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Scraper{http: &http.Client{Timeout: timeout}}
}

// Fetch downloads a URL and returns its text content with markup stripped.
func (s *Scraper) Fetch(ctx context.Context, url string) (string, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "", errors.Wrapf(errors.ErrInvalidInput, "unsupported url %q", url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.Wrap(err, "create scrape request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; finwiz/1.0)")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", errors.Wrapf(errors.ErrTool, "fetch %s: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Wrapf(errors.ErrExternal, "fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxScrapeBytes))
	if err != nil {
		return "", errors.Wrap(err, "read page body")
	}

	return ExtractText(string(body)), nil
}

// ExtractText strips HTML markup and normalizes whitespace.
func ExtractText(html string) string {
	text := scriptRe.ReplaceAllString(html, " ")
	text = tagRe.ReplaceAllString(text, "\n")
	text = strings.NewReplacer("&nbsp;", " ", "&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'").Replace(text)
	text = spaceRe.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	text = blankRe.ReplaceAllString(strings.Join(kept, "\n"), "\n\n")

	runes := []rune(text)
	if len(runes) > maxScrapeRunes {
		text = string(runes[:maxScrapeRunes]) + "\n[truncated]"
	}
	return text
}

// NewScrapeTool builds the web_scrape tool.
func NewScrapeTool(scraper *Scraper) tools.Tool {
	return tools.New(
		"web_scrape",
		"Download a web page and return its readable text content",
		func(ctx context.Context, args map[string]interface{}) (string, error) {
			url, err := tools.StringArg(args, "url")
			if err != nil {
				return "", err
			}
			return scraper.Fetch(ctx, url)
		},
	)
}
