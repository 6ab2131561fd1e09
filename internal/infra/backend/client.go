package backend

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	json "github.com/goccy/go-json"
	"github.com/imroc/req/v3"
	"github.com/pkg/errors"

	"maipocket-quiz/internal/domain"
)

const defaultRetryFor = 5 * time.Second

// Client talks to the MaiPocket REST backend.
type Client struct {
	http     *req.Client
	retryFor time.Duration
}

// NewClient builds a client; retryFor bounds how long idempotent calls are retried.
func NewClient(baseURL string, timeout, retryFor time.Duration) *Client {
	if retryFor <= 0 {
		retryFor = defaultRetryFor
	}
	httpClient := req.C().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetJsonMarshal(json.Marshal).
		SetJsonUnmarshal(json.Unmarshal).
		SetCommonHeader("Accept", "application/json")
	return &Client{http: httpClient, retryFor: retryFor}
}

func (c *Client) request(ctx context.Context, player domain.Player) *req.Request {
	r := c.http.R().SetContext(ctx)
	if player.Token != "" {
		r.SetBearerAuthToken(player.Token)
	}
	return r
}

func (c *Client) backoff(ctx context.Context) backoff.BackOffContext {
	return backoff.WithContext(&backoff.ExponentialBackOff{
		InitialInterval:     100 * time.Millisecond,
		RandomizationFactor: 0.5,
		Multiplier:          2.5,
		MaxInterval:         time.Second,
		MaxElapsedTime:      c.retryFor,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}, ctx)
}

// retry runs op with exponential backoff until it succeeds, returns a
// backoff.Permanent error, or the retry window closes.
func (c *Client) retry(ctx context.Context, what string, op func() error) error {
	return backoff.RetryNotify(op, c.backoff(ctx), func(e error, next time.Duration) {
		log.Printf("%s failed, retrying in %v: %v", what, next, e)
	})
}

// StatusError is a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend responded %d: %s", e.Code, e.Body)
}

// Temporary reports whether the request is worth retrying.
func (e *StatusError) Temporary() bool {
	return e.Code >= http.StatusInternalServerError || e.Code == http.StatusTooManyRequests
}

// decode checks the status and unmarshals the body into out.
func decode(resp *req.Response, out any) error {
	body, err := resp.ToBytes()
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	if out == nil {
		return nil
	}
	return errors.Wrap(json.Unmarshal(body, out), "decode response")
}

// retryable marks failures that retrying cannot fix as permanent.
func retryable(err error) error {
	var status *StatusError
	if err == nil || !errors.As(err, &status) || status.Temporary() {
		return err
	}
	return backoff.Permanent(err)
}
