package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// apiError is the error envelope shared by the OpenAI and Gemini APIs.
type apiError struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

const maxErrorPreview = 300

// postJSON sends body as JSON and decodes a 2xx response into out.
// Non-2xx responses become errors carrying the provider's error message.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("error marshaling body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		var e apiError
		if json.Unmarshal(raw, &e) == nil && e.Error != nil && e.Error.Message != "" {
			return fmt.Errorf("status %d: %s", res.StatusCode, e.Error.Message)
		}
		return fmt.Errorf("status %d: %s", res.StatusCode, truncate(string(raw), maxErrorPreview))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("error decoding response (status %d): %w", res.StatusCode, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
