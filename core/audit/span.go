// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package audit

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"runtime/trace"
	"strconv"
	"time"

	servertiming "github.com/mitchellh/go-server-timing"
	"github.com/rs/zerolog/log"
)

// TrafficDestination describes the logical destination of an HTTP request.
type TrafficDestination string

const (
	ToUser  TrafficDestination = "user"
	ToBooru TrafficDestination = "booru"

	responseFilePermissions = 0o600
)

var (
	// SaveResponses enables writing upstream response bodies to ResponseDirectory.
	SaveResponses bool

	// ResponseDirectory receives one file per saved response, named after the request id.
	ResponseDirectory string
)

// Span is one HTTP request in flight.
//
// Begin starts a runtime/trace task and, when the context carries a
// server-timing header, a metric. End stops both; Log writes the debug line.
type Span struct {
	task     *trace.Task
	start    time.Time
	duration time.Duration
	metric   *servertiming.Metric

	Destination TrafficDestination
	RequestID   string
	Method      string
	URL         string
	StatusCode  int
	Error       error
	Body        []byte // only kept for SaveResponses

	savedTo string
}

// ServerTimingName is "destination$method$base64url(url)" without padding,
// which keeps the name a valid token.
func (span *Span) ServerTimingName() string {
	return string(span.Destination) + "$" + span.Method + "$" + base64.RawURLEncoding.EncodeToString([]byte(span.URL))
}

func (span *Span) Begin(ctx context.Context) context.Context {
	span.start = time.Now()

	ctx, span.task = trace.NewTask(ctx, "http."+string(span.Destination))

	if timing := servertiming.FromContext(ctx); timing != nil {
		span.metric = timing.NewMetric(span.ServerTimingName())
		span.metric.Extra = map[string]string{
			"start": strconv.FormatFloat(float64(span.start.UnixNano())/float64(time.Millisecond), 'f', -1, 64),
		}
	}

	return ctx
}

// End may be called more than once; only the first call counts.
func (span *Span) End() {
	if span.task == nil {
		return
	}

	span.duration = time.Since(span.start)
	span.task.End()
	span.task = nil

	if span.metric != nil {
		span.metric.Duration = span.duration
	}
}

func (span *Span) Duration() time.Duration {
	return span.duration
}

// Log writes the span at debug level and saves the body if enabled.
func (span *Span) Log() {
	if span.Destination == ToBooru && SaveResponses && len(span.Body) > 0 {
		span.saveBody()
	}

	event := log.Debug().
		Str("sys", "http").
		Str("method", span.Method).
		Str("url", span.URL).
		Int("status_code", span.StatusCode).
		Str("len", humanizeSize(len(span.Body))).
		Dur("dur", span.duration).
		Str("destination", string(span.Destination)).
		Str("request_id", span.RequestID)

	if span.savedTo != "" {
		event.Str("response_filename", span.savedTo)
	}

	if span.Error != nil {
		event.Err(span.Error)
	}

	event.Send()
}

func (span *Span) saveBody() {
	filename := filepath.Join(ResponseDirectory, span.RequestID+".json")

	if err := os.WriteFile(filename, span.Body, responseFilePermissions); err != nil {
		log.Err(err).
			Str("request_id", span.RequestID).
			Msg("Failed to save response")

		return
	}

	span.savedTo = filename
}

const (
	bytesInKB = 1024
	bytesInMB = bytesInKB * bytesInKB
)

func humanizeSize(x int) string {
	switch {
	case x < bytesInKB:
		return strconv.Itoa(x)
	case x < bytesInMB:
		return fmt.Sprintf("%.2fK", float64(x)/bytesInKB)
	default:
		return fmt.Sprintf("%.2fM", float64(x)/bytesInMB)
	}
}
