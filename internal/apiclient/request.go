package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"

	"licenser/pkg/contracts/domain"
)

// The request helpers wrap every license API call. They never return a
// Go error: all failure modes are folded into the response envelope so
// host applications handle exactly one shape.
//
// All helpers guard on authentication first; an unauthenticated client
// fails locally without touching the network.

func get[T any](ctx context.Context, c *TokenClient, route string) domain.Response[T] {
	return do[T](ctx, c, http.MethodGet, route, nil)
}

func post[T any](ctx context.Context, c *TokenClient, route string, body any) domain.Response[T] {
	return do[T](ctx, c, http.MethodPost, route, body)
}

func put[T any](ctx context.Context, c *TokenClient, route string, body any) domain.Response[T] {
	return do[T](ctx, c, http.MethodPut, route, body)
}

func del[T any](ctx context.Context, c *TokenClient, route string) domain.Response[T] {
	return do[T](ctx, c, http.MethodDelete, route, nil)
}

func do[T any](ctx context.Context, c *TokenClient, method, route string, body any) domain.Response[T] {
	if !c.IsAuthenticated() {
		return domain.Err[T](domain.ErrKindUnauthorized, msgNotAuthorized)
	}
	c.refreshIfExpired(ctx)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return domain.Err[T](domain.ErrKindUnknown, err.Error())
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+route, reader)
	if err != nil {
		return domain.Err[T](domain.ErrKindUnknown, err.Error())
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	c.mu.RLock()
	req.Header.Set("Authorization", "Bearer "+c.bearer)
	c.mu.RUnlock()

	resp, err := c.http.Do(req)
	if err != nil {
		if isTransportError(err) {
			return domain.Err[T](domain.ErrKindTransport, msgAPIUnavailable)
		}
		return domain.Err[T](domain.ErrKindUnknown, err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return domain.Err[T](domain.ErrKindUnknown, err.Error())
	}

	if resp.StatusCode >= 500 {
		return domain.Err[T](domain.ErrKindServer, fmt.Sprintf("%s: %s", msgServerError, snippet(raw)))
	}

	// A 4xx body is decoded like any other: the server's error
	// envelopes round-trip, and non-envelope rejections (middleware
	// problem documents) fall out of the schema below. The
	// "not authorized" message stays reserved for the local guard so a
	// caller can tell "never sent" from "sent and rejected".

	var envelope domain.Response[T]
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return domain.Err[T](domain.ErrKindServer, fmt.Sprintf("%s: %s", msgServerError, snippet(raw)))
	}
	if envelope.IsError() && envelope.Kind == domain.ErrKindNone {
		envelope.Kind = domain.ErrKindServer
	}
	return envelope
}

// isTransportError reports whether err is a connectivity failure (the
// server could not be reached at all) rather than a malformed request
// or protocol error.
func isTransportError(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true
		}
		var netErr net.Error
		if errors.As(urlErr.Err, &netErr) {
			return true
		}
		var opErr *net.OpError
		if errors.As(urlErr.Err, &opErr) {
			return true
		}
		if errors.Is(urlErr.Err, context.DeadlineExceeded) {
			return true
		}
	}
	return false
}

func snippet(raw []byte) string {
	const limit = 256
	if len(raw) > limit {
		raw = raw[:limit]
	}
	return string(raw)
}
