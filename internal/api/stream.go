package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// StreamEvent opens the narrative stream for eventID and reads it until
// it ends or ctx is canceled. After every read, onBuffer is handed the
// entire text received so far; callers pair it with a stream.Reassembler,
// whose cursor makes re-delivery of already processed prefixes harmless.
// A nil return means the server closed the stream normally, which is the
// out-of-band stream-ended signal.
func (c *Client) StreamEvent(ctx context.Context, eventID string, onBuffer func(cumulative string)) error {
	u := fmt.Sprintf("%s/event/stream/%s", c.baseURL, url.PathEscape(eventID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to stream: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return decodeError(resp.StatusCode, body)
	}

	c.logger.Debug("narrative stream connected", "event_id", eventID)

	var cumulative strings.Builder
	chunk := make([]byte, 4096)
	for {
		n, readErr := resp.Body.Read(chunk)
		if n > 0 {
			cumulative.Write(chunk[:n])
			onBuffer(cumulative.String())
		}
		if readErr == io.EOF {
			c.logger.Debug("narrative stream ended", "event_id", eventID)
			return nil
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("error reading stream: %w", readErr)
		}
	}
}
