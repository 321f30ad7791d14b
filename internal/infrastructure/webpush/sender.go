package webpush

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// maxErrorBody caps how much of a relay error body is kept.
const maxErrorBody = 1024

// Response is the relay's answer to a delivery attempt.
type Response struct {
	StatusCode int
	Body       string
}

// Gone reports whether the relay says the subscription no longer exists.
func (r *Response) Gone() bool {
	return r.StatusCode == http.StatusNotFound || r.StatusCode == http.StatusGone
}

// OK reports a 2xx answer.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Sender POSTs framed payloads to push relays. It performs exactly one
// attempt per call.
type Sender struct {
	client  *http.Client
	ttl     time.Duration
	urgency string
}

// NewSender builds a Sender whose requests are bounded by timeout. Relay
// redirects are not followed.
func NewSender(timeout, ttl time.Duration, urgency string) *Sender {
	return NewSenderWithClient(&http.Client{
		Timeout: timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}, ttl, urgency)
}

// NewSenderWithClient builds a Sender on an existing client.
func NewSenderWithClient(client *http.Client, ttl time.Duration, urgency string) *Sender {
	return &Sender{client: client, ttl: ttl, urgency: urgency}
}

// Send delivers body to endpoint with the given Authorization value.
func (s *Sender) Send(ctx context.Context, endpoint string, body []byte, authorization string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build relay request: %w", err)
	}
	req.Header.Set("TTL", strconv.Itoa(int(s.ttl/time.Second)))
	req.Header.Set("Content-Encoding", ContentEncoding)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Authorization", authorization)
	if s.urgency != "" {
		req.Header.Set("Urgency", s.urgency)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("relay request: %w", err)
	}
	defer resp.Body.Close()

	out := &Response{StatusCode: resp.StatusCode}
	if !out.OK() {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		out.Body = string(b)
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return out, nil
}
