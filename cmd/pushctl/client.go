package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-push-relay/internal/domain"
	"github.com/urfave/cli/v2"
)

// client calls the operator routes of the push API.
type client struct {
	baseURL string
	token   string
	http    *http.Client
}

func newClient(baseURL, token string) *client {
	return &client{baseURL: strings.TrimRight(baseURL, "/"), token: token, http: &http.Client{}}
}

func (c *client) Send(ctx context.Context, recipientID string, fields domain.NotificationFields) error {
	return c.post(ctx, "/v1/push/send/"+url.PathEscape(recipientID), fields, nil)
}

func (c *client) Broadcast(ctx context.Context, fields domain.NotificationFields) (*domain.BroadcastReport, error) {
	var report domain.BroadcastReport
	if err := c.post(ctx, "/v1/push/broadcast", fields, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *client) post(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var env struct {
			Error string `json:"error"`
		}
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(b, &env) != nil || env.Error == "" {
			env.Error = strings.TrimSpace(string(b))
		}
		return fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, env.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func fieldsFromFlags(cCtx *cli.Context) domain.NotificationFields {
	f := domain.NotificationFields{
		Title: cCtx.String("title"),
		Body:  cCtx.String("body"),
		Icon:  cCtx.String("icon"),
		Badge: cCtx.String("badge"),
		Tag:   cCtx.String("tag"),
		URL:   cCtx.String("url"),
	}
	if n := cCtx.Int("badge-count"); n >= 0 {
		f.BadgeCount = &n
	}
	return f
}

func contextWithTimeout(cCtx *cli.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cCtx.Context, cCtx.Duration(timeoutFlag.Name))
}
