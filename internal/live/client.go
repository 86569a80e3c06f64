// Package live fetches and parses train schedules from the official
// railway enquiry site. The site serves semi-structured HTML and is
// frequently slow or unavailable; every transport or parse problem is
// reported as "no data" (a nil Result), never as an error.
package live

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Client queries the live enquiry endpoint
type Client struct {
	url    string
	client *http.Client
}

// NewClient creates a live source client with a bounded request timeout
func NewClient(enquiryURL string, timeout time.Duration) *Client {
	return &Client{
		url: enquiryURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch queries the enquiry endpoint for the given train number and parses
// the response into a normalized schedule. Returns (nil, nil) when the
// source has nothing usable for this number, including timeouts, non-2xx
// responses and malformed pages. An error is only returned for
// request-construction bugs.
func (c *Client) Fetch(ctx context.Context, trainNo string) (*Result, error) {
	result, err := c.doFetch(ctx, trainNo)
	if err != nil {
		log.Printf("live: fetch %s failed: %v", trainNo, err)
		return nil, nil
	}
	return result, nil
}

// FetchWithRetry is Fetch with transient transport failures retried under
// capped exponential backoff. Used by the bulk refresh sweep, where a
// single flaky response should not burn a whole train number.
func (c *Client) FetchWithRetry(ctx context.Context, trainNo string) (*Result, error) {
	var result *Result

	op := func() error {
		var err error
		result, err = c.doFetch(ctx, trainNo)
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		log.Printf("live: fetch %s failed after retries: %v", trainNo, err)
		return nil, nil
	}
	return result, nil
}

// doFetch performs one enquiry round trip. Transport and parse failures
// come back as errors; an intact page with no schedule rows is (nil, nil).
func (c *Client) doFetch(ctx context.Context, trainNo string) (*Result, error) {
	form := url.Values{}
	form.Set("trainNo", trainNo)
	form.Set("jStation", "")
	form.Set("trnType", "")
	form.Set("dt", "")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	result, err := parseSchedulePage(resp.Body, trainNo)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return result, nil
}
