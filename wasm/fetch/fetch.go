// Copyright 2026 The Wasmbuild Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package fetch retrieves Wasm artifacts over HTTP, retrying
// transient failures with exponential backoff.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultMaxRetries is used when [Config.MaxRetries] is zero.
	DefaultMaxRetries = 5

	// InitialDelay is the wait before the first retry. It doubles
	// after every failed attempt up to MaxDelay.
	InitialDelay = 250 * time.Millisecond
	MaxDelay     = 10 * time.Second
)

// Config holds configuration for [New].
type Config struct {
	// Client is used to make requests. If it is nil,
	// [http.DefaultClient] is used.
	Client *http.Client

	// MaxRetries holds the number of retries after the first
	// attempt. Zero means DefaultMaxRetries; a negative value
	// disables retries.
	MaxRetries int

	// Logger receives a warning for each retry. If it is nil,
	// [slog.Default] is used.
	Logger *slog.Logger

	// NewTimer returns the timer used to wait between attempts.
	// If it is nil, a real timer is used.
	NewTimer func() backoff.Timer
}

// Fetcher performs GET requests with retries. It holds no mutable
// state, so a single Fetcher may serve concurrent calls.
type Fetcher struct {
	client     *http.Client
	maxRetries int
	logger     *slog.Logger
	newTimer   func() backoff.Timer
}

// New returns a Fetcher. If cfg is nil, it's equivalent to a pointer
// to a zero-valued [Config].
func New(cfg *Config) *Fetcher {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	f := &Fetcher{
		client:     c.Client,
		maxRetries: c.MaxRetries,
		logger:     c.Logger,
		newTimer:   c.NewTimer,
	}
	if f.client == nil {
		f.client = http.DefaultClient
	}
	switch {
	case f.maxRetries == 0:
		f.maxRetries = DefaultMaxRetries
	case f.maxRetries < 0:
		f.maxRetries = 0
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// MaxRetries returns the number of retries f makes after the first
// attempt.
func (f *Fetcher) MaxRetries() int {
	return f.maxRetries
}

// StatusError describes an unsuccessful HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("error downloading %s: %s", e.URL, e.Status)
}

// CheckResponse returns a *StatusError if resp does not have a 2xx
// status code.
func CheckResponse(resp *http.Response) error {
	if OK(resp.StatusCode) {
		return nil
	}
	u := ""
	if resp.Request != nil && resp.Request.URL != nil {
		u = resp.Request.URL.Redacted()
	}
	return &StatusError{
		URL:        u,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
	}
}

// OK reports whether code is a success status.
func OK(code int) bool {
	return code >= 200 && code < 300
}

// Retryable reports whether a response with the given status may
// succeed if the request is repeated. Other client errors such as
// 404 are permanent.
func Retryable(code int) bool {
	switch {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return true
	case code >= 500:
		return true
	}
	return false
}

// Fetch issues a GET request for u.
//
// A transport error is retried while attempts remain and returned
// once they are exhausted. A response with a retryable status is also
// retried; when attempts run out, or when the status is not
// retryable, the last response is returned as-is with a nil error, so
// the caller must check the status code.
func (f *Fetcher) Fetch(ctx context.Context, u *url.URL) (*http.Response, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = InitialDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = MaxDelay
	b.MaxElapsedTime = 0
	b.Reset()

	var (
		resp    *http.Response
		attempt int
	)
	operation := func() error {
		attempt++
		if resp != nil {
			// Discard the unsuccessful response from the previous attempt.
			resp.Body.Close()
			resp = nil
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		r, err := f.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		resp = r
		if OK(r.StatusCode) {
			return nil
		}
		err = CheckResponse(r)
		if !Retryable(r.StatusCode) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, delay time.Duration) {
		f.logger.WarnContext(ctx, "failed fetching; retrying",
			"url", u.Redacted(),
			"attempt", attempt,
			"delay", delay,
			"err", err,
		)
	}
	var timer backoff.Timer
	if f.newTimer != nil {
		timer = f.newTimer()
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(f.maxRetries)), ctx)
	err := backoff.RetryNotifyWithTimer(operation, policy, notify, timer)
	var statusErr *StatusError
	switch {
	case err == nil:
		return resp, nil
	case resp != nil && errors.As(err, &statusErr):
		return resp, nil
	}
	if resp != nil {
		resp.Body.Close()
	}
	return nil, err
}
