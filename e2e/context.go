package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TestContext carries HTTP state between the steps of one scenario.
type TestContext struct {
	BaseURL string
	Client  *http.Client

	RunID        string
	LastStatus   int
	LastBody     []byte
	LastResponse map[string]any
	Saved        map[string]any
}

func NewTestContext(baseURL string) *TestContext {
	return &TestContext{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 10 * time.Second},
		Saved:   map[string]any{},
	}
}

// Reset clears per-scenario state and picks a fresh run ID.
func (tc *TestContext) Reset() {
	tc.RunID = fmt.Sprintf("e2e-%d", time.Now().UnixNano())
	tc.LastStatus = 0
	tc.LastBody = nil
	tc.LastResponse = nil
	tc.Saved = map[string]any{}
}

func (tc *TestContext) POST(path string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, tc.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return tc.do(req)
}

func (tc *TestContext) GET(path string) error {
	req, err := http.NewRequest(http.MethodGet, tc.BaseURL+path, nil)
	if err != nil {
		return err
	}
	return tc.do(req)
}

func (tc *TestContext) do(req *http.Request) error {
	resp, err := tc.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tc.LastStatus = resp.StatusCode
	tc.LastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	tc.LastResponse = nil
	if len(tc.LastBody) > 0 {
		var parsed map[string]any
		if json.Unmarshal(tc.LastBody, &parsed) == nil {
			tc.LastResponse = parsed
		}
	}
	return nil
}

func (tc *TestContext) GetRunID() string {
	return tc.RunID
}

func (tc *TestContext) GetStatus() int {
	return tc.LastStatus
}

// GetResponseField reads a dotted path such as "extension.new_due_at" or
// "steps.1.icon" from the last JSON response.
func (tc *TestContext) GetResponseField(path string) (any, error) {
	if tc.LastResponse == nil {
		return nil, fmt.Errorf("last response was not a JSON object: %s", string(tc.LastBody))
	}
	var cur any = tc.LastResponse
	for _, part := range strings.Split(path, ".") {
		switch v := cur.(type) {
		case map[string]any:
			next, ok := v[part]
			if !ok {
				return nil, fmt.Errorf("field %q not found in response", path)
			}
			cur = next
		case []any:
			var idx int
			if _, err := fmt.Sscanf(part, "%d", &idx); err != nil || idx < 0 || idx >= len(v) {
				return nil, fmt.Errorf("index %q out of range in %q", part, path)
			}
			cur = v[idx]
		default:
			return nil, fmt.Errorf("cannot descend into %q", path)
		}
	}
	return cur, nil
}

func (tc *TestContext) Save(key string, v any) {
	tc.Saved[key] = v
}

func (tc *TestContext) Load(key string) (any, bool) {
	v, ok := tc.Saved[key]
	return v, ok
}
