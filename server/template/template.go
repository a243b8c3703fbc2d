// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package template renders the server's HTML pages as templ components.

Every page is wrapped in Layout, which takes the page body as its child.
*/
package template

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/a-h/templ"
)

// Common holds the fields the layout needs.
type Common struct {
	Title       string
	Description string
	Version     string
	RepoURL     string
}

// RenderToString converts a templ.Component to its string representation.
//
// Handling errors in templates is awkward, so if an error occurs during rendering,
// it is formatted into a string and returned.
func RenderToString(c templ.Component) string {
	var buffer bytes.Buffer

	err := c.Render(context.Background(), &buffer)
	if err != nil {
		return fmt.Errorf("templ: failed to render component: %w", err).Error()
	}

	return buffer.String()
}

// NaturalTime formats a time.Time value as a natural language string.
func NaturalTime(date time.Time) string {
	return date.Format("Monday, 2 January 2006, at 3:04 PM")
}

// RelativeTime describes how long before now date was, e.g. "3 days ago".
// Future dates are formatted absolutely.
func RelativeTime(date, now time.Time) string {
	const (
		day   = 24 * time.Hour
		week  = 7 * day
		month = 31 * day
	)

	duration := now.Sub(date)

	pluralize := func(value int, unit string) string {
		if value == 1 {
			return "1 " + unit + " ago"
		}

		return fmt.Sprintf("%d %ss ago", value, unit)
	}

	switch {
	case duration < 0:
		return date.Format("2 January 2006")
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		return pluralize(int(duration.Minutes()), "minute")
	case duration < day:
		return pluralize(int(duration.Hours()), "hour")
	case duration < week:
		return pluralize(int(duration/day), "day")
	case duration < month:
		return pluralize(int(duration/week), "week")
	}

	months := (now.Year()-date.Year())*12 + int(now.Month()) - int(date.Month())
	if months < 12 {
		return pluralize(max(months, 1), "month")
	}

	return pluralize(months/12, "year")
}

// htmlWriter writes markup to w and keeps the first error, so components
// can emit a page without checking every write.
type htmlWriter struct {
	w   io.Writer
	err error
}

// raw writes trusted markup as is.
func (hw *htmlWriter) raw(s string) {
	if hw.err == nil {
		_, hw.err = io.WriteString(hw.w, s)
	}
}

// text writes s escaped for element content and attribute values.
func (hw *htmlWriter) text(s string) {
	hw.raw(templ.EscapeString(s))
}

// url writes an href value, replacing unsafe schemes.
func (hw *htmlWriter) url(s string) {
	hw.text(string(templ.URL(s)))
}

// component renders c in place.
func (hw *htmlWriter) component(ctx context.Context, c templ.Component) {
	if hw.err == nil {
		hw.err = c.Render(ctx, hw.w)
	}
}
