// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Package requests performs the upstream HTTP requests to the booru API.
package requests

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"codeberg.org/dtextview/dtextview/config"
	"codeberg.org/dtextview/dtextview/core/audit"
	"codeberg.org/dtextview/dtextview/core/idgen"
	"codeberg.org/dtextview/dtextview/server/request_context"
	"codeberg.org/dtextview/dtextview/server/utils"
)

const userAgent = "dtextview (+https://codeberg.org/dtextview/dtextview)"

var (
	errInvalidJSON      = errors.New("response contained invalid JSON")
	errAPIResponseError = errors.New("API response indicated error")
)

// APIError is a failed upstream request.
type APIError struct {
	// StatusCode is the HTTP status code of the response.
	StatusCode int

	// Message is the message reported by the API, or the status text.
	Message string

	Err error
}

func (e *APIError) Error() string {
	var b strings.Builder

	b.WriteString(e.Err.Error())

	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}

	fmt.Fprintf(&b, " (status code: %d)", e.StatusCode)

	return b.String()
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// GetJSON performs a GET request and returns the response body once it is
// known to be valid JSON that does not report an error.
//
// Returns an *APIError if the status code is 400 or above, or if the body is
// a Danbooru error object ({"success": false, ...}).
func GetJSON(ctx context.Context, url string, auth Auth, basicAuth bool) ([]byte, error) {
	resp, body, err := Do(ctx, RequestOptions{URL: url, Auth: auth, BasicAuth: basicAuth})
	if err != nil {
		return nil, err
	}

	if err := checkStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return processJSONResponse(resp.StatusCode, body)
}

// Do sends a GET request and returns the response together with its body.
//
// Successful responses are served from and stored in the response cache,
// unless the incoming request asked otherwise. The returned response's Body
// is a NopCloser over the returned bytes.
//
// Do does not check the status code.
func Do(ctx context.Context, opts RequestOptions) (*http.Response, []byte, error) {
	policy := determineCachePolicy(opts.URL, opts.Auth.Login, request_context.FromContext(ctx).Header)
	if policy.cachedItem != nil {
		item := policy.cachedItem

		return &http.Response{
			StatusCode: item.StatusCode,
			Header:     http.Header{"Content-Type": []string{item.ContentType}},
			Body:       io.NopCloser(bytes.NewReader(item.Body)),
		}, item.Body, nil
	}

	req, err := newRequest(ctx, opts)
	if err != nil {
		return nil, nil, err
	}

	resp, body, err := sendRequest(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	if policy.shouldUseCache && resp.StatusCode == http.StatusOK && !isErrorObject(body) {
		storeInCache(ctx, opts, resp, body)
	}

	return resp, body, nil
}

func storeInCache(ctx context.Context, opts RequestOptions, resp *http.Response, body []byte) {
	var buf bytes.Buffer

	if err := gob.NewEncoder(&buf).Encode(cachedItem{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		URL:         opts.URL,
	}); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("Failed to serialize item for cache")

		return
	}

	cache.Set(generateCacheKey(opts.URL, opts.Auth.Login), buf.Bytes())
}

// checkStatus turns a status code of 400 or above into an *APIError.
func checkStatus(statusCode int, body []byte) error {
	if statusCode < http.StatusBadRequest {
		return nil
	}

	// Danbooru puts the reason in "message"; fall back to the status text.
	message := gjson.GetBytes(body, "message").String()
	if message == "" {
		message = http.StatusText(statusCode)
	}

	if message == "" {
		message = "An unknown API error occurred"
	}

	return &APIError{
		StatusCode: statusCode,
		Message:    message,
		Err:        errAPIResponseError,
	}
}

// processJSONResponse validates a response body.
func processJSONResponse(statusCode int, body []byte) ([]byte, error) {
	if !gjson.ValidBytes(body) {
		return nil, &APIError{
			StatusCode: statusCode,
			Message:    truncate(string(body), maxLoggedBodyLength),
			Err:        errInvalidJSON,
		}
	}

	if isErrorObject(body) {
		message := gjson.GetBytes(body, "message").String()
		if message == "" {
			message = gjson.GetBytes(body, "error").String()
		}

		if message == "" {
			message = "API response contained an error with no message"
		}

		return nil, &APIError{
			StatusCode: statusCode,
			Message:    message,
			Err:        errAPIResponseError,
		}
	}

	return body, nil
}

// isErrorObject reports whether body is an object with "success": false.
func isErrorObject(body []byte) bool {
	success := gjson.GetBytes(body, "success")

	return success.Exists() && success.Type == gjson.False
}

func newRequest(ctx context.Context, opts RequestOptions) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	if lang := config.Global.Request.AcceptLanguage; lang != "" {
		req.Header.Set("Accept-Language", lang)
	}

	if opts.BasicAuth && opts.Auth.Login != "" {
		req.SetBasicAuth(opts.Auth.Login, opts.Auth.APIKey)
	}

	return req, nil
}

// sendRequest executes req inside an audit span and reads the whole body.
func sendRequest(ctx context.Context, req *http.Request) (_ *http.Response, _ []byte, err error) {
	span := audit.Span{
		Destination: audit.ToBooru,
		RequestID:   request_context.FromContext(ctx).RequestID + "-" + idgen.Make(),
		Method:      req.Method,
		URL:         redactURL(req.URL.String()),
	}

	ctx = span.Begin(ctx)
	defer func() {
		span.Error = err
		span.End()
		span.Log()
	}()

	resp, err := utils.HTTPClient.Do(req.WithContext(ctx))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	span.StatusCode = resp.StatusCode

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	span.Body = body

	resp.Body = io.NopCloser(bytes.NewReader(body))

	return resp, body, nil
}

const maxLoggedBodyLength = 200

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n] + "..."
}

// redactURL hides credentials passed as query parameters.
func redactURL(raw string) string {
	for _, param := range []string{"api_key=", "login="} {
		i := strings.Index(raw, param)
		if i < 0 {
			continue
		}

		start := i + len(param)

		end := strings.IndexByte(raw[start:], '&')
		if end < 0 {
			end = len(raw) - start
		}

		raw = raw[:start] + "[redacted]" + raw[start+end:]
	}

	return raw
}
