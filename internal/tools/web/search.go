package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"finwiz/internal/tools"
	"finwiz/pkg/errors"
)

const serperURL = "https://google.serper.dev/search"

// maxSearchResults caps how many organic hits a single search returns.
const maxSearchResults = 8

// SearchClient calls the Serper web search API.
type SearchClient struct {
	apiKey string
	http   *http.Client
}

// NewSearchClient creates a Serper search client.
func NewSearchClient(apiKey string, timeout time.Duration) *SearchClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SearchClient{apiKey: apiKey, http: &http.Client{Timeout: timeout}}
}

type serperResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

// Search runs a web search and returns a compact textual result list.
func (c *SearchClient) Search(ctx context.Context, query string) (string, error) {
	if c.apiKey == "" {
		return "", errors.Wrap(errors.ErrConfig, "serper API key not configured")
	}

	payload, err := json.Marshal(map[string]interface{}{"q": query, "num": maxSearchResults})
	if err != nil {
		return "", errors.Wrap(err, "marshal search request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serperURL, bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "create search request")
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrapf(errors.ErrTool, "send search request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "read search response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Wrapf(errors.ErrExternal, "serper API error (%d)", resp.StatusCode)
	}

	var parsed serperResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", errors.Wrap(err, "unmarshal search response")
	}
	if len(parsed.Organic) == 0 {
		return "No results found for: " + query, nil
	}

	var b strings.Builder
	for i, hit := range parsed.Organic {
		if i >= maxSearchResults {
			break
		}
		fmt.Fprintf(&b, "%d. %s\n   %s\n   %s\n", i+1, hit.Title, hit.Link, hit.Snippet)
	}
	return b.String(), nil
}

// NewSearchTool builds the web_search tool.
func NewSearchTool(client *SearchClient) tools.Tool {
	return tools.New(
		"web_search",
		"Search the web for recent news and articles about a query",
		func(ctx context.Context, args map[string]interface{}) (string, error) {
			query, err := tools.StringArg(args, "query")
			if err != nil {
				return "", err
			}
			return client.Search(ctx, query)
		},
	)
}
