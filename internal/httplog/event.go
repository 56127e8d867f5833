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

// Package httplog logs the HTTP traffic made while downloading
// artifacts.
package httplog

import (
	"context"
	"log/slog"
	"net/http"
)

// Logger receives one event per request sent and one per response
// (or transport failure) received.
type Logger interface {
	Log(ctx context.Context, kind EventKind, r RequestOrResponse)
}

type EventKind int

const (
	NoEvent EventKind = iota
	KindClientSendRequest
	KindClientRecvResponse
)

func (k EventKind) String() string {
	switch k {
	case KindClientSendRequest:
		return "http client->"
	case KindClientRecvResponse:
		return "http client<-"
	default:
		return "unknown"
	}
}

// RequestOrResponse is implemented by [*Request] and [*Response].
type RequestOrResponse interface {
	requestOrResponse()
}

// Request represents an HTTP request.
type Request struct {
	ID     int64       `json:"id"`
	Method string      `json:"method"`
	URL    string      `json:"url"`
	Header http.Header `json:"header"`
}

func (*Request) requestOrResponse() {}

// Response represents an HTTP response.
type Response struct {
	ID            int64       `json:"id"`
	Method        string      `json:"method,omitempty"`
	URL           string      `json:"url,omitempty"`
	Error         string      `json:"error,omitempty"`
	StatusCode    int         `json:"statusCode,omitempty"`
	ContentLength int64       `json:"contentLength,omitempty"`
	Header        http.Header `json:"header,omitempty"`

	// Body holds the start of a textual body, such as an error page.
	// Artifact bytes are never included.
	Body                string `json:"body,omitempty"`
	BodyTruncated       bool   `json:"bodyTruncated,omitempty"`
	BodyRedactedBecause string `json:"bodyRedactedBecause,omitempty"`
}

func (*Response) requestOrResponse() {}

// SlogLogger is a Logger that writes to an [slog.Logger]. The zero
// value logs to [slog.Default] at info level.
type SlogLogger struct {
	Logger *slog.Logger
	Level  slog.Level
}

func (l SlogLogger) Log(ctx context.Context, kind EventKind, r RequestOrResponse) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Log(ctx, l.Level, kind.String(), "info", r)
}
