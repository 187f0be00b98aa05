// Package transport delivers metrics payloads to the collector.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// MetricsPath is appended to the collector base URL.
const MetricsPath = "/metrics"

// Transport sends one payload. Send blocks until the collector answers.
// Implementations never retry.
type Transport interface {
	Send(ctx context.Context, url string, payload map[string]any) error
}

// StatusError is returned when the collector answers with a non-2xx
// status.
type StatusError struct {
	StatusCode int
	StatusText string
}

func (e *StatusError) Error() string {
	return e.StatusText
}

// HTTPTransport posts payloads as JSON.
type HTTPTransport struct {
	client *http.Client
	logger *zap.Logger
}

// NewHTTPTransport returns an HTTPTransport. A nil client gets an
// instrumented client with the given timeout.
func NewHTTPTransport(client *http.Client, timeout time.Duration, logger *zap.Logger) *HTTPTransport {
	if client == nil {
		client = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPTransport{client: client, logger: logger}
}

func (t *HTTPTransport) Send(ctx context.Context, url string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := t.client.Do(request)
	if err != nil {
		return fmt.Errorf("failed to send payload: %w", err)
	}
	defer response.Body.Close()
	_, _ = io.Copy(io.Discard, response.Body)

	if response.StatusCode < 200 || response.StatusCode > 299 {
		t.logger.Debug("Collector rejected payload",
			zap.String("url", url),
			zap.Int("status_code", response.StatusCode),
		)
		return &StatusError{
			StatusCode: response.StatusCode,
			StatusText: statusText(response),
		}
	}
	return nil
}

// statusText strips the numeric prefix from response.Status.
func statusText(response *http.Response) string {
	code := fmt.Sprintf("%d ", response.StatusCode)
	if text := strings.TrimPrefix(response.Status, code); text != "" && text != response.Status {
		return text
	}
	if text := http.StatusText(response.StatusCode); text != "" {
		return text
	}
	return response.Status
}

// URL joins a collector base URL with MetricsPath.
func URL(collector string) string {
	return strings.TrimSuffix(collector, "/") + MetricsPath
}
