// Package ladderapi pulls ladder standings from the public ladder endpoint.
package ladderapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/Showdown-LadderTracker-bot/internal/ident"
	"github.com/park285/Showdown-LadderTracker-bot/internal/ladder"
	"github.com/park285/Showdown-LadderTracker-bot/pkg/ladderdto"
)

var ErrNotFound = errors.New("ladderapi: format not found")

type Client struct {
	baseURL   string
	http      *fasthttp.Client
	userAgent string

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithDial replaces the connection dialer, e.g. with an in-memory listener.
func WithDial(dial func(addr string) (net.Conn, error)) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		userAgent:      "ladder-tracker-bot",
		defaultTimeout: 5 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ladder implements the tracker's ladder source.
func (c *Client) Ladder(ctx context.Context, format ident.ID) ([]ladder.RawEntry, error) {
	l, err := c.Fetch(ctx, format)
	if err != nil {
		return nil, err
	}
	return ToRaw(l), nil
}

// Fetch returns the decoded ladder document of format.
func (c *Client) Fetch(ctx context.Context, format ident.ID) (*ladderdto.Ladder, error) {
	if format == "" {
		return nil, ErrNotFound
	}
	var out ladderdto.Ladder
	if err := c.getJSON(ctx, "/"+format.String()+".json", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ToRaw converts the wire entries, keeping their order.
func ToRaw(l *ladderdto.Ladder) []ladder.RawEntry {
	if l == nil {
		return nil
	}
	out := make([]ladder.RawEntry, 0, len(l.Toplist))
	for _, e := range l.Toplist {
		out = append(out, ladder.RawEntry{
			Name:            e.DisplayName(),
			Elo:             e.Elo,
			GXE:             e.GXE,
			GlickoRating:    e.R,
			GlickoDeviation: e.RD,
		})
	}
	return out
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(c.baseURL + path)
	req.Header.Set("Accept", "application/json")
	req.Header.SetUserAgent(c.userAgent)

	attempts := c.retryMax
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("ladder request failed: %w", err)
			if attempt == attempts || sleepWithContext(ctx, backoffDuration(attempt)) != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status == fasthttp.StatusNotFound {
			return ErrNotFound
		}
		if status < 200 || status >= 300 {
			lastErr = fmt.Errorf("ladder api error: status=%d body=%s", status, truncate(string(resp.Body()), 256))
			if attempt == attempts || !shouldRetryStatus(status) || sleepWithContext(ctx, backoffDuration(attempt)) != nil {
				return lastErr
			}
			continue
		}

		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("decode ladder: %w", err)
		}
		return nil
	}
	if lastErr == nil {
		lastErr = errors.New("ladder request failed")
	}
	return lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 5 {
		attempt = 5
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
