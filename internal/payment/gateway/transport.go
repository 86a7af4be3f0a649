package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

// =====================================================
// OUTBOUND TRANSPORT
// =====================================================
// Shared HTTP client for driver calls to the external gateway APIs.
// Every call carries a timeout and runs through a per-gateway circuit
// breaker so a dead gateway fails fast instead of tying up request
// handlers. Pay is never retried here - the remote side may have
// committed; callers confirm with Verify instead.

const defaultTimeout = 30 * time.Second

type APIClient struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// NewAPIClient creates the transport for one gateway. The breaker opens
// after five consecutive failures and probes again after 30 seconds.
func NewAPIClient(gatewayName string) *APIClient {
	return &APIClient{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    gatewayName,
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

// PostJSON posts a JSON body and decodes a JSON object response.
func (c *APIClient) PostJSON(ctx context.Context, endpoint string, body map[string]interface{}, headers map[string]string) (map[string]interface{}, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, endpoint, bytes.NewReader(payload), "application/json", headers)
}

// PostForm posts form-encoded fields and decodes a JSON object response.
func (c *APIClient) PostForm(ctx context.Context, endpoint string, fields map[string]string, headers map[string]string) (map[string]interface{}, error) {
	form := url.Values{}
	for k, v := range fields {
		form.Set(k, v)
	}
	return c.do(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", headers)
}

// GetJSON issues a GET and decodes a JSON object response.
func (c *APIClient) GetJSON(ctx context.Context, endpoint string, headers map[string]string) (map[string]interface{}, error) {
	return c.do(ctx, http.MethodGet, endpoint, nil, "", headers)
}

func (c *APIClient) do(ctx context.Context, method, endpoint string, body io.Reader, contentType string, headers map[string]string) (map[string]interface{}, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("gateway call failed: %w", err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(raw))
		}

		var parsed map[string]interface{}
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return nil, fmt.Errorf("failed to parse gateway response: %w", err)
		}
		parsed["_http_status"] = resp.StatusCode
		return parsed, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]interface{}), nil
}
