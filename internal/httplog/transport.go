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

package httplog

import (
	"bytes"
	"io"
	"maps"
	"mime"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync/atomic"
)

// DefaultMaxBodySize holds the maximum number of body bytes included
// in a logged response when [TransportConfig.MaxBodySize] is <=0.
const DefaultMaxBodySize = 1024

// TransportConfig holds configuration for [Transport].
type TransportConfig struct {
	// Logger is used to log the requests. If it is nil,
	// the zero [SlogLogger] will be used.
	Logger Logger

	// Transport is used as the underlying transport for
	// making HTTP requests. If it is nil,
	// [http.DefaultTransport] will be used.
	Transport http.RoundTripper

	// AllowQueryParam reports whether the value of a URL query
	// parameter may be logged. If it is nil, all values are
	// redacted.
	AllowQueryParam func(key string) bool

	// MaxBodySize holds the maximum size of textual response body
	// to include in the log. Binary bodies are never logged.
	MaxBodySize int
}

// Transport returns an [http.RoundTripper] that logs each request
// and response. A nil cfg0 is the same as a zero [TransportConfig].
func Transport(cfg0 *TransportConfig) http.RoundTripper {
	var cfg TransportConfig
	if cfg0 != nil {
		cfg = *cfg0
	}
	if cfg.Logger == nil {
		cfg.Logger = SlogLogger{}
	}
	if cfg.Transport == nil {
		cfg.Transport = http.DefaultTransport
	}
	if cfg.AllowQueryParam == nil {
		cfg.AllowQueryParam = func(string) bool { return false }
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}
	return &loggingTransport{cfg: cfg}
}

type loggingTransport struct {
	cfg TransportConfig
}

var seq atomic.Int64

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	id := seq.Add(1)
	reqURL := RedactedURL(req.URL, t.cfg.AllowQueryParam).String()
	t.cfg.Logger.Log(ctx, KindClientSendRequest, &Request{
		ID:     id,
		Method: req.Method,
		URL:    reqURL,
		Header: redactAuthorization(req.Header),
	})
	resp, err := t.cfg.Transport.RoundTrip(req)
	if err != nil {
		t.cfg.Logger.Log(ctx, KindClientRecvResponse, &Response{
			ID:     id,
			Method: req.Method,
			URL:    reqURL,
			Error:  err.Error(),
		})
		return nil, err
	}
	logResp := &Response{
		ID:            id,
		Method:        req.Method,
		URL:           reqURL,
		StatusCode:    resp.StatusCode,
		ContentLength: resp.ContentLength,
		Header:        resp.Header,
	}
	if isText(resp.Header.Get("Content-Type")) {
		t.peekBody(logResp, resp)
	} else if resp.Body != nil && resp.Body != http.NoBody {
		logResp.BodyRedactedBecause = "binary content"
	}
	t.cfg.Logger.Log(ctx, KindClientRecvResponse, logResp)
	return resp, nil
}

// peekBody records the start of the body of resp in logResp, leaving
// the full body readable by the caller.
func (t *loggingTransport) peekBody(logResp *Response, resp *http.Response) {
	if resp.Body == nil {
		return
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, int64(t.cfg.MaxBodySize+1)))
	if len(data) > t.cfg.MaxBodySize || err != nil {
		logResp.BodyTruncated = true
	}
	logResp.Body = string(data[:min(len(data), t.cfg.MaxBodySize)])
	resp.Body = struct {
		io.Reader
		io.Closer
	}{
		Reader: io.MultiReader(bytes.NewReader(data), resp.Body),
		Closer: resp.Body,
	}
}

func isText(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch {
	case strings.HasPrefix(mediaType, "text/"):
		return true
	case mediaType == "application/json", mediaType == "application/xml":
		return true
	}
	return false
}

func redactAuthorization(h http.Header) http.Header {
	auths, ok := h["Authorization"]
	if !ok {
		return h
	}
	h = maps.Clone(h) // shallow copy
	auths = slices.Clone(auths)
	for i, auth := range auths {
		if kind, _, ok := strings.Cut(auth, " "); ok && (kind == "Basic" || kind == "Bearer") {
			auths[i] = kind + " REDACTED"
		} else {
			auths[i] = "REDACTED"
		}
	}
	h["Authorization"] = auths
	return h
}

// RedactedURL returns u without its password and with the values of
// query parameters not accepted by allow replaced by REDACTED.
func RedactedURL(u *url.URL, allow func(key string) bool) *url.URL {
	r := *u
	if _, has := r.User.Password(); has {
		r.User = url.UserPassword(r.User.Username(), "REDACTED")
	}
	if r.RawQuery == "" {
		return &r
	}
	qs := r.Query()
	changed := false
	for k, v := range qs {
		if allow(k) {
			continue
		}
		changed = true
		for i := range v {
			v[i] = "REDACTED"
		}
	}
	if changed {
		r.RawQuery = qs.Encode()
	}
	return &r
}
