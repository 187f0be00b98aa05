package metrics

import (
	"context"

	"go.uber.org/zap"
)

// FlushResult is delivered once per FlushAsync call.
type FlushResult struct {
	Payload map[string]any
	Err     error
}

// Flush sends the collected data and blocks until the collector answers.
// The buffer is cleared before sending; a failed payload is dropped. A
// flush with nothing buffered still sends the static context.
func (m *Metrics) Flush(ctx context.Context) (map[string]any, error) {
	payload := m.takePayload()
	return payload, m.send(ctx, payload)
}

// FlushAsync captures and clears the buffer like Flush, then sends in the
// background. The returned channel receives exactly one result.
//
// An unload flush issued while an async flush is in flight may reach the
// collector first; nothing orders the two.
func (m *Metrics) FlushAsync(ctx context.Context) <-chan FlushResult {
	payload := m.takePayload()
	results := make(chan FlushResult, 1)
	go func() {
		defer close(results)
		results <- FlushResult{Payload: payload, Err: m.send(ctx, payload)}
	}()
	return results
}

// takePayload cancels the inactivity timer; the next logged event or
// timer restarts it.
func (m *Metrics) takePayload() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inactivity.Cancel()
	payload := filter(m.allDataLocked())
	m.buffer.Clear()
	return payload
}

func (m *Metrics) send(ctx context.Context, payload map[string]any) error {
	if err := m.transport.Send(ctx, m.url, payload); err != nil {
		m.logger.Warn("Failed to flush metrics", zap.String("url", m.url), zap.Error(err))
		for _, observer := range m.observers {
			observer.FlushFailed(err)
		}
		return err
	}
	m.logger.Debug("Flushed metrics", zap.String("url", m.url))
	for _, observer := range m.observers {
		observer.FlushSucceeded(payload)
	}
	return nil
}

// flushOnUnload blocks so the payload is not lost when the page goes
// away.
func (m *Metrics) flushOnUnload() {
	_, _ = m.Flush(context.Background())
}

func (m *Metrics) flushOnInactivity() {
	m.LogEvent(inactivityFlushEvent)
	m.FlushAsync(context.Background())
}
