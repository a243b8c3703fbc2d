// Copyright 2023 - 2025, the dtextview contributors
// SPDX-License-Identifier: AGPL-3.0-only

package dtext

import (
	"regexp"
	"strconv"
	"strings"
)

// defaultExpandTitle is used for [expand] without a title.
const defaultExpandTitle = "Show"

var (
	// headingRegexp matches "h2. Title" and "h2#ref. Title" at the start of a segment.
	headingRegexp = regexp.MustCompile(`^(?i:h([1-6]))(?:#([\w-]+))?\.\s?`)

	// expandRegexp matches an expandable section at the start of a segment,
	// up to the first closing tag.
	expandRegexp = regexp.MustCompile(`(?is)^\[expand(?:=([^\]]*))?\](.*?)\[/expand\]`)

	// expandOpenRegexp and expandCloseRegexp find sections whose body spans
	// several segments.
	expandOpenRegexp  = regexp.MustCompile(`(?i)^\[expand(?:=[^\]]*)?\]`)
	expandCloseRegexp = regexp.MustCompile(`(?i)\[/expand\]`)

	// listItemRegexp matches a bullet line; the marker length is the depth.
	listItemRegexp = regexp.MustCompile(`^([*]+|-)\s`)
)

// StructureBlocks turns inline-resolved text into block-level HTML.
//
// The text is split into segments on blank lines and every segment becomes a
// heading, an expandable section, or a sequence of paragraphs and lists.
func StructureBlocks(text, lineSeparator string) string {
	if lineSeparator == "" {
		lineSeparator = DefaultLineSeparator
	}

	var sb strings.Builder

	for _, segment := range splitSegments(text, lineSeparator) {
		sb.WriteString(structureSegment(segment, lineSeparator))
	}

	return sb.String()
}

// splitSegments returns the maximal runs of non-blank lines, rejoined with
// lineSeparator. An [expand] whose closing tag lies in a later segment
// swallows the segments up to and including the closing one.
func splitSegments(text, lineSeparator string) []string {
	var (
		segments []string
		current  []string
	)

	flush := func() {
		if len(current) > 0 {
			segments = append(segments, strings.Join(current, lineSeparator))
			current = nil
		}
	}

	for _, line := range strings.Split(text, lineSeparator) {
		line = trimCR(line, lineSeparator)

		if strings.TrimSpace(line) == "" {
			flush()

			continue
		}

		current = append(current, line)
	}

	flush()

	return mergeExpandSegments(segments, lineSeparator)
}

func mergeExpandSegments(segments []string, lineSeparator string) []string {
	merged := make([]string, 0, len(segments))
	blankLine := lineSeparator + lineSeparator

	for i := 0; i < len(segments); i++ {
		segment := segments[i]

		if expandOpenRegexp.MatchString(segment) {
			for !expandCloseRegexp.MatchString(segment) && i+1 < len(segments) {
				i++
				segment += blankLine + segments[i]
			}
		}

		merged = append(merged, segment)
	}

	return merged
}

func structureSegment(segment, lineSeparator string) string {
	if m := headingRegexp.FindStringSubmatchIndex(segment); m != nil {
		return structureHeading(segment, m, lineSeparator)
	}

	if trimmed := strings.TrimSpace(segment); expandRegexp.MatchString(trimmed) {
		return structureExpand(trimmed, lineSeparator)
	}

	return structureLines(strings.Split(segment, lineSeparator))
}

// structureExpand emits the section title and body, then structures
// whatever follows the closing tag as a new segment.
func structureExpand(segment, lineSeparator string) string {
	m := expandRegexp.FindStringSubmatchIndex(segment)

	var title string
	if m[2] >= 0 {
		title = strings.TrimSpace(segment[m[2]:m[3]])
	}

	if title == "" {
		title = defaultExpandTitle
	}

	return "<h5>" + title + "</h5>" +
		StructureBlocks(segment[m[4]:m[5]], lineSeparator) +
		StructureBlocks(segment[m[1]:], lineSeparator)
}

// structureHeading emits the heading and structures whatever follows its
// first line as a new segment.
func structureHeading(segment string, m []int, lineSeparator string) string {
	level, _ := strconv.Atoi(segment[m[2]:m[3]])
	tag := "h" + strconv.Itoa(max(level-1, 1))

	var refAttr string
	if m[4] >= 0 {
		refAttr = ` data-ref="` + strings.TrimPrefix(segment[m[4]:m[5]], "dtext-") + `"`
	}

	title, rest, _ := strings.Cut(segment[m[1]:], lineSeparator)

	return "<" + tag + refAttr + ">" + strings.TrimSpace(title) + "</" + tag + ">" + StructureBlocks(rest, lineSeparator)
}

// structureLines walks the lines of one segment, opening and closing <ul>
// one level at a time whenever the bullet depth changes. Consecutive
// non-list lines are joined into one paragraph.
func structureLines(lines []string) string {
	var (
		sb           strings.Builder
		paragraph    []string
		currentLevel int
	)

	flushParagraph := func() {
		if len(paragraph) == 0 {
			return
		}

		sb.WriteString("<p>")
		sb.WriteString(strings.Join(paragraph, "<br>"))
		sb.WriteString("</p>")

		paragraph = paragraph[:0]
	}

	for _, line := range lines {
		level, item := listLevel(line)

		if level != currentLevel {
			flushParagraph()

			for currentLevel < level {
				sb.WriteString("<ul>")

				currentLevel++
			}

			for currentLevel > level {
				sb.WriteString("</ul>")

				currentLevel--
			}
		}

		switch {
		case level > 0:
			sb.WriteString("<li>" + item + "</li>")
		case strings.HasPrefix(line, galleryOpen):
			flushParagraph()
			sb.WriteString(line)
		default:
			paragraph = append(paragraph, line)
		}
	}

	for ; currentLevel > 0; currentLevel-- {
		sb.WriteString("</ul>")
	}

	flushParagraph()

	return sb.String()
}

// listLevel returns the bullet depth of line and its text without the
// marker. Lines that are not list items have depth 0.
func listLevel(line string) (int, string) {
	m := listItemRegexp.FindStringSubmatchIndex(line)
	if m == nil {
		return 0, line
	}

	level := m[3] - m[2]
	if line[m[2]] == '-' {
		level = 1
	}

	return level, strings.TrimSpace(line[m[1]:])
}

func trimCR(line, lineSeparator string) string {
	if lineSeparator == "\n" {
		return strings.TrimSuffix(line, "\r")
	}

	return line
}
