package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// AdapterClient talks to the chat-platform adapter's callback endpoints —
// send_dm, send_file, ask_user, and the rest of the bot-only tool family
// are thin wrappers over this HTTP contract. The adapter itself (Telegram
// bot/userbot, Discord, whichever frontend is running) is an external
// collaborator specified only at this interface.
type AdapterClient struct {
	BaseURL string
	HTTP    *http.Client
}

// NewAdapterClient builds a client against baseURL (e.g.
// "http://localhost:8765"). An empty baseURL disables every bot-only and
// userbot tool — their executors report "adapter not configured" rather
// than panicking.
func NewAdapterClient(baseURL string) *AdapterClient {
	return &AdapterClient{BaseURL: baseURL, HTTP: &http.Client{Timeout: 30 * time.Second}}
}

func (c *AdapterClient) configured() bool { return c != nil && c.BaseURL != "" }

// Configured reports whether the client has a usable base URL. Exported
// for callers outside this package (the scheduler's task runner) that
// need to decide whether a reminder can be delivered at all.
func (c *AdapterClient) Configured() bool { return c.configured() }

// SendDM posts a direct message to userID via the adapter's /send_dm
// callback, the same contract the send_dm built-in tool uses.
func (c *AdapterClient) SendDM(ctx context.Context, userID, text string) error {
	if !c.configured() {
		return fmt.Errorf("adapter not configured")
	}
	_, err := c.post(ctx, "/send_dm", map[string]any{"user_id": userID, "text": text})
	return err
}

func (c *AdapterClient) post(ctx context.Context, path string, body any) (map[string]any, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("adapter HTTP %d: %s", resp.StatusCode, string(data))
	}
	var out map[string]any
	if len(data) > 0 {
		_ = json.Unmarshal(data, &out)
	}
	return out, nil
}

func (c *AdapterClient) get(ctx context.Context, path string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("adapter HTTP %d: %s", resp.StatusCode, string(data))
	}
	var out map[string]any
	if len(data) > 0 {
		_ = json.Unmarshal(data, &out)
	}
	return out, nil
}
