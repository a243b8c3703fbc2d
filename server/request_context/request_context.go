// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package request_context provides per-request state for HTTP handlers.

This package is separate because Go disallows a cyclic import graph.
*/
package request_context

import (
	"context"
	"net/http"

	"codeberg.org/dtextview/dtextview/core/idgen"
)

// RequestContext carries request-scoped data through the middleware chain.
type RequestContext struct {
	// RequestID is an identifier for tracing requests.
	RequestID string

	// RequestError holds the error returned by the handler, if any.
	//
	// Populated by middleware.CatchError.
	RequestError error

	// StatusCode to be sent in the response. Defaults to 200 OK.
	StatusCode int

	// Header is the header of the incoming request. Upstream requests consult
	// it for Cache-Control directives.
	Header http.Header
}

type requestContextKeyType struct{}

var requestContextKey = requestContextKeyType{}

// WithRequestContext attaches a fresh RequestContext for r to ctx.
//
// This is called once per request, first in the middleware chain.
func WithRequestContext(ctx context.Context, r *http.Request) context.Context {
	rc := RequestContext{
		RequestID:  idgen.Make(),
		StatusCode: http.StatusOK,
		Header:     r.Header,
	}

	return context.WithValue(ctx, requestContextKey, &rc)
}

// FromContext extracts the RequestContext from ctx, always returning a valid
// pointer. Without one a zero-value instance is returned.
func FromContext(ctx context.Context) *RequestContext {
	if v := ctx.Value(requestContextKey); v != nil {
		if rc, ok := v.(*RequestContext); ok {
			return rc
		}
	}

	return &RequestContext{}
}

// FromRequest is FromContext(r.Context()).
func FromRequest(r *http.Request) *RequestContext {
	return FromContext(r.Context())
}
