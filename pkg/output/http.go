package output

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPOutput POSTs each batch to a collector endpoint as a
// newline-delimited body. Lines keep the terminators they arrived with,
// so the body is a byte-exact concatenation of the scrubbed stream.
type HTTPOutput struct {
	url     string
	headers map[string]string
	client  *http.Client
}

func NewHTTPOutput(url string, headers map[string]string) *HTTPOutput {
	return &HTTPOutput{
		url:     url,
		headers: headers,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (h *HTTPOutput) WriteBatch(lines [][]byte) error {
	var body bytes.Buffer
	for _, line := range lines {
		body.Write(line)
	}

	req, err := http.NewRequest(http.MethodPost, h.url, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("collector returned status %d", resp.StatusCode)
	}
	return nil
}

// Flush is a no-op; every batch is posted when written.
func (h *HTTPOutput) Flush() error {
	return nil
}
