// Package tracker reads raw events from an ActivityWatch-compatible server.
package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/runnerr0/awcal/internal/activity"
)

// DefaultServerURL is the address of a local tracker server.
const DefaultServerURL = "http://localhost:5600"

// Buckets names the three tracker buckets that make up one Input.
type Buckets struct {
	AFK       string
	Window    string
	Stopwatch string
}

// Info is the subset of the server's /api/0/info response awcal uses.
type Info struct {
	Hostname string `json:"hostname"`
	Version  string `json:"version"`
	Testing  bool   `json:"testing"`
}

// Client talks to the tracker's REST API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a client for the server at baseURL. A zero timeout
// leaves requests bounded only by their context.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultServerURL
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
			},
		},
		logger: logger,
	}
}

// BaseURL returns the server address the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// FetchEvents returns the events of bucket in [start, end), tagged with kind.
func (c *Client) FetchEvents(ctx context.Context, bucket string, kind activity.Kind, start, end time.Time) ([]activity.Event, error) {
	q := url.Values{}
	q.Set("starttime", start.UTC().Format(time.RFC3339Nano))
	q.Set("endtime", end.UTC().Format(time.RFC3339Nano))
	u := fmt.Sprintf("%s/api/0/buckets/%s/events?%s", c.baseURL, url.PathEscape(bucket), q.Encode())

	body, err := c.get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("fetching bucket %s: %w", bucket, err)
	}
	events, err := activity.DecodeEvents(kind, body)
	if err != nil {
		return nil, fmt.Errorf("fetching bucket %s: %w", bucket, err)
	}
	return events, nil
}

// GetEvents is FetchEvents with failures logged and mapped to an empty,
// non-nil list, so one unreachable bucket does not abort a run.
func (c *Client) GetEvents(ctx context.Context, bucket string, kind activity.Kind, start, end time.Time) []activity.Event {
	events, err := c.FetchEvents(ctx, bucket, kind, start, end)
	if err != nil {
		c.logger.ErrorContext(ctx, "tracker request failed", "bucket", bucket, "error", err)
		return []activity.Event{}
	}
	return events
}

// FetchInput fetches the three buckets concurrently. Bucket failures yield
// empty streams; only a cancelled ctx is returned as an error.
func (c *Client) FetchInput(ctx context.Context, b Buckets, start, end time.Time) (activity.Input, error) {
	var in activity.Input
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		in.AFK = c.GetEvents(gctx, b.AFK, activity.KindAFK, start, end)
		return nil
	})
	g.Go(func() error {
		in.Window = c.GetEvents(gctx, b.Window, activity.KindWindow, start, end)
		return nil
	})
	g.Go(func() error {
		in.Stopwatch = c.GetEvents(gctx, b.Stopwatch, activity.KindTask, start, end)
		return nil
	})
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return activity.Input{}, err
	}
	c.logger.DebugContext(ctx, "fetched tracker input",
		"afk", len(in.AFK), "window", len(in.Window), "stopwatch", len(in.Stopwatch))
	return in, nil
}

// Ping checks that the server answers /api/0/info.
func (c *Client) Ping(ctx context.Context) (*Info, error) {
	body, err := c.get(ctx, c.baseURL+"/api/0/info")
	if err != nil {
		return nil, fmt.Errorf("pinging tracker: %w", err)
	}
	var info Info
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decoding tracker info: %w", err)
	}
	return &info, nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("tracker returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
