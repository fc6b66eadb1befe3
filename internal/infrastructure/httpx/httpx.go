package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultTimeout bounds one vendor call, connect and read included.
const DefaultTimeout = 15 * time.Second

type Client struct {
	HTTP *http.Client
}

// New returns a client with the default per-call timeout.
func New() *Client {
	return &Client{HTTP: &http.Client{Timeout: DefaultTimeout}}
}

func (c *Client) do(ctx context.Context, req *http.Request, read func(*http.Response) error) error {
	if c.HTTP == nil {
		c.HTTP = &http.Client{Timeout: DefaultTimeout}
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 200 * time.Millisecond
	exp.MaxInterval = 1 * time.Second
	exp.MaxElapsedTime = 3 * time.Second

	op := func() error {
		resp, err := c.HTTP.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return fmt.Errorf("server error %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("status %d", resp.StatusCode))
		}
		return read(resp)
	}
	return backoff.Retry(op, backoff.WithContext(exp, ctx))
}

// DoJSON performs the request and decodes a JSON body into out, retrying
// transport errors and 5xx responses. 4xx responses fail immediately.
func (c *Client) DoJSON(ctx context.Context, req *http.Request, out any) error {
	return c.do(ctx, req, func(resp *http.Response) error {
		return json.NewDecoder(resp.Body).Decode(out)
	})
}

// DoText performs the request and returns the raw body, with the same retry
// behavior as DoJSON. Some vendors speak plain text instead of JSON.
func (c *Client) DoText(ctx context.Context, req *http.Request) (string, error) {
	var body string
	err := c.do(ctx, req, func(resp *http.Response) error {
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		body = string(b)
		return nil
	})
	return body, err
}
