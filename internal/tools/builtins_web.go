package tools

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/relaycore/relaycore/pkg/models"
)

// WebFetchCap is the most bytes of body fetch_page and search_web return.
// Both requests are made with the incoming ctx, so the dispatcher's own
// deadline bounds every round trip; httpClient sets no timeout of its own.
const WebFetchCap = 20000

var httpClient = &http.Client{}

func fetchPageTool(ctx context.Context, args map[string]any, tc models.ToolContext) models.ToolResult {
	url := stringArg(args, "url")
	if url == "" {
		return failure("url is required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return failure("invalid url: %s", err.Error())
	}
	req.Header.Set("User-Agent", "relaycore-agent/1.0")

	resp, err := httpClient.Do(req)
	if err != nil {
		return failure("fetch failed: %s", err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return failure("fetch failed: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, WebFetchCap*4))
	if err != nil {
		return failure("failed reading response: %s", err.Error())
	}
	text := string(body)
	if len(text) > WebFetchCap {
		text = text[:WebFetchCap]
	}
	return success(text)
}

// searchWebTool is a thin wrapper over a configurable search endpoint. No
// search vendor is wired by default; absent one, it reports that plainly
// rather than pretending to have results.
func searchWebTool(ctx context.Context, args map[string]any, tc models.ToolContext) models.ToolResult {
	query := stringArg(args, "query")
	if query == "" {
		return failure("query is required")
	}
	endpoint := WebSearchEndpoint
	if endpoint == "" {
		return failure("no web search provider configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?q="+strings.ReplaceAll(query, " ", "+"), nil)
	if err != nil {
		return failure("invalid search request: %s", err.Error())
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return failure("search failed: %s", err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return failure("search failed: HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, WebFetchCap*4))
	if err != nil {
		return failure("failed reading search response: %s", err.Error())
	}
	text := string(body)
	if len(text) > WebFetchCap {
		text = text[:WebFetchCap]
	}
	return success(text)
}

// WebSearchEndpoint is set by config at startup. Empty disables search_web.
var WebSearchEndpoint string

// RegisterWebTools adds the HTTP-backed built-ins to reg.
func RegisterWebTools(reg *Registry) {
	reg.Register(models.ToolDefinition{
		Name: "fetch_page", Enabled: true,
		Description: "Fetch a URL and return its body as text.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"url": map[string]any{"type": "string"}},
			"required":   []string{"url"},
		},
	}, ExecutorFunc(fetchPageTool))

	reg.Register(models.ToolDefinition{
		Name: "search_web", Enabled: true,
		Description: "Search the web for a query and return raw results.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"query": map[string]any{"type": "string"}},
			"required":   []string{"query"},
		},
	}, ExecutorFunc(searchWebTool))
}
