package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/relaycore/relaycore/pkg/models"
)

// CatalogueFetchTimeout bounds a tools/list round trip.
const CatalogueFetchTimeout = 10 * time.Second

// CallTimeout bounds a tools/call round trip.
const CallTimeout = 60 * time.Second

// httpClient is a thin JSON-RPC 2.0 client over one MCP server's HTTP
// endpoint, narrowed to the single http transport this project supports.
type httpClient struct {
	server models.MCPServer
	client *http.Client
	nextID int
}

func newHTTPClient(server models.MCPServer) *httpClient {
	return &httpClient{server: server, client: &http.Client{}}
}

func (c *httpClient) call(ctx context.Context, method string, params any, result any) error {
	c.nextID++
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return err
		}
		raw = b
	}

	req := rpcRequest{JSONRPC: "2.0", ID: c.nextID, Method: method, Params: raw}
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.server.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.server.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.server.APIKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("MCP API error: %d", resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("invalid MCP response: %w", err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("MCP error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if result != nil && len(rpcResp.Result) > 0 {
		return json.Unmarshal(rpcResp.Result, result)
	}
	return nil
}

// listTools calls tools/list and returns the server's catalogue.
func (c *httpClient) listTools(ctx context.Context) ([]mcpTool, error) {
	ctx, cancel := context.WithTimeout(ctx, CatalogueFetchTimeout)
	defer cancel()

	var result listToolsResult
	if err := c.call(ctx, "tools/list", nil, &result); err != nil {
		return nil, err
	}
	return result.Tools, nil
}

// callTool calls tools/call and returns the concatenated text content, or
// the stringified result if no text-typed content entry is present.
func (c *httpClient) callTool(ctx context.Context, tool string, args map[string]any) (models.ToolResult, error) {
	ctx, cancel := context.WithTimeout(ctx, CallTimeout)
	defer cancel()

	argBytes, err := json.Marshal(args)
	if err != nil {
		return models.ToolResult{}, err
	}

	var result callToolResult
	if err := c.call(ctx, "tools/call", callToolParams{Name: tool, Arguments: argBytes}, &result); err != nil {
		return models.ToolResult{}, err
	}

	var parts []string
	for _, content := range result.Content {
		if content.Type == "text" {
			parts = append(parts, content.Text)
		}
	}
	output := strings.Join(parts, "\n")
	if output == "" {
		b, _ := json.Marshal(result)
		output = string(b)
	}

	return models.ToolResult{Success: !result.IsError, Output: output}, nil
}
