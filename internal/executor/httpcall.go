package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/quantsight/flowcanvas/internal/workflow"
)

// HTTPCall performs the request described by an http-call node's config:
// `url`, `method`, optional `body`. Placeholders of the form {key} in the
// URL and body are filled from the node's resolved inputs before dispatch.
type HTTPCall struct {
	client *http.Client
}

// NewHTTPCall creates an http-call executor. A nil client gets a default
// with a 30s timeout.
func NewHTTPCall(client *http.Client) *HTTPCall {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPCall{client: client}
}

func (h *HTTPCall) Type() workflow.NodeType { return workflow.NodeHTTPCall }

func (h *HTTPCall) Execute(ctx context.Context, node workflow.Node, inputs map[string]any) (map[string]any, error) {
	cfg := node.Data.Config
	url, _ := cfg["url"].(string)
	if url == "" {
		return nil, fmt.Errorf("http-call node %s: url is required", node.ID)
	}
	method, _ := cfg["method"].(string)
	if method == "" {
		method = http.MethodGet
	}
	url = fillPlaceholders(url, inputs)

	var body io.Reader
	if raw, ok := cfg["body"].(string); ok && raw != "" {
		body = strings.NewReader(fillPlaceholders(raw, inputs))
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), url, body)
	if err != nil {
		return nil, fmt.Errorf("http-call node %s: %w", node.ID, err)
	}
	if headers, ok := cfg["headers"].(map[string]any); ok {
		for k, v := range headers {
			req.Header.Set(k, fmt.Sprintf("%v", v))
		}
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http-call node %s: request failed: %w", node.ID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("http-call node %s: read response: %w", node.ID, err)
	}

	out := map[string]any{
		"status": resp.StatusCode,
		"url":    url,
	}
	var decoded any
	if json.Unmarshal(data, &decoded) == nil {
		out["body"] = decoded
	} else {
		out["body"] = string(data)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return out, fmt.Errorf("http-call node %s: upstream returned status %d", node.ID, resp.StatusCode)
	}
	return out, nil
}

// fillPlaceholders substitutes {key} tokens with flattened input values.
// Unknown tokens are left as-is.
func fillPlaceholders(s string, inputs map[string]any) string {
	for key, val := range flatten("", inputs) {
		s = strings.ReplaceAll(s, "{"+key+"}", fmt.Sprintf("%v", val))
	}
	return s
}

func flatten(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, isMap := v.(map[string]any); isMap {
			for fk, fv := range flatten(key, sub) {
				out[fk] = fv
			}
			continue
		}
		out[key] = v
	}
	return out
}
