// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package httpclient provides the outbound HTTP stack for upstream collaborators.

It layers a retrying [Client] under a [Breaker] so that a failing upstream is
cut off quickly instead of stalling every request that touches it.

Layers:

  - Client: connection pooling, per-call timeout and bounded exponential retry.
  - Breaker: gobreaker circuit with state exported to Prometheus.
*/
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// # Configuration

// Config holds HTTP client configuration.
type Config struct {
	Timeout         time.Duration
	MaxRetries      int
	RetryWaitMin    time.Duration
	RetryWaitMax    time.Duration
	MaxConnsPerHost int
}

// DefaultConfig returns conservative defaults for calls made on the request path.
func DefaultConfig() Config {
	return Config{
		Timeout:         10 * time.Second,
		MaxRetries:      2,
		RetryWaitMin:    200 * time.Millisecond,
		RetryWaitMax:    2 * time.Second,
		MaxConnsPerHost: 20,
	}
}

// # Retry Client

// Client wraps [http.Client] with retry logic.
type Client struct {
	httpClient *http.Client
	config     Config
}

// New creates a client with its own pooled transport.
func New(cfg Config) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{Transport: transport, Timeout: cfg.Timeout},
		config:     cfg,
	}
}

/*
Do executes the request, retrying network errors and 5xx answers.

Description: 501 is never retried. Request bodies are rewound through
[http.Request.GetBody] between attempts; requests without it are sent once.

Returns:
  - *http.Response: The last response received
  - error: Transport failure after the final attempt or context cancellation
*/
func (client *Client) Do(ctx context.Context, request *http.Request) (*http.Response, error) {
	request = request.WithContext(ctx)
	retries := client.config.MaxRetries
	if request.Body != nil && request.Body != http.NoBody && request.GetBody == nil {
		retries = 0
	}

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			if err := client.wait(ctx, attempt); err != nil {
				return nil, err
			}
			if request.GetBody != nil {
				body, err := request.GetBody()
				if err != nil {
					return nil, fmt.Errorf("httpclient: rewind body: %w", err)
				}
				request.Body = body
			}
		}

		response, err := client.httpClient.Do(request)
		if err != nil {
			if isRetryableError(err) && attempt < retries {
				continue
			}
			return nil, fmt.Errorf("httpclient: request failed after %d attempts: %w", attempt+1, err)
		}

		if response.StatusCode >= 500 && response.StatusCode != http.StatusNotImplemented && attempt < retries {
			_ = response.Body.Close()
			continue
		}

		return response, nil
	}
}

// wait sleeps for the exponential backoff of the given attempt.
func (client *Client) wait(ctx context.Context, attempt int) error {
	backoff := client.config.RetryWaitMin * time.Duration(1<<uint(attempt-1))
	if backoff > client.config.RetryWaitMax {
		backoff = client.config.RetryWaitMax
	}

	timer := time.NewTimer(backoff)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// isRetryableError reports transport failures worth another attempt.
func isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
