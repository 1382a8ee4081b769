package blacklist

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPChecker queries an external IMEI registry over HTTP. The client timeout
// bounds every lookup; callers treat an error as "check later", never as a
// registration failure.
type HTTPChecker struct {
	baseURL string
	client  *http.Client
}

func NewHTTPChecker(baseURL string, timeout time.Duration) *HTTPChecker {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPChecker{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPChecker) Check(ctx context.Context, imei string) (*Result, error) {
	url := fmt.Sprintf("%s/imei/%s", c.baseURL, imei)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build blacklist request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("blacklist lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &Result{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("blacklist registry returned status %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode blacklist response: %w", err)
	}

	return &result, nil
}
