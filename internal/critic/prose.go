package critic

import (
	"regexp"
	"strings"
)

var (
	fenceLine     = regexp.MustCompile("^\\s*(```|~~~)")
	headingLine   = regexp.MustCompile(`^\s{0,3}#{1,6}(?:\s|$)`)
	level2Heading = regexp.MustCompile(`^\s{0,3}##[ \t]+(.*?)[ \t#]*$`)
	markerOnly    = regexp.MustCompile(`^[\s*\-_]+$`)
	listMarker    = regexp.MustCompile(`^\s*(?:[*\-+]|\d+[.)])\s+`)
)

// splitLines normalizes line endings and splits markdown into lines
func splitLines(markdown string) []string {
	markdown = strings.ReplaceAll(markdown, "\r\n", "\n")
	return strings.Split(markdown, "\n")
}

// paragraphs keeps only the prose of a markdown document. Code fences, table
// rows, blockquotes, headings and rule lines are dropped; list markers are
// stripped and every list item starts its own paragraph; soft-wrapped lines
// are joined with a single space.
func paragraphs(lines []string) []string {
	var (
		out     []string
		current []string
		fence   string
	)

	flush := func() {
		if len(current) > 0 {
			out = append(out, strings.Join(current, " "))
			current = nil
		}
	}

	for _, line := range lines {
		if m := fenceLine.FindStringSubmatch(line); m != nil {
			switch {
			case fence == "":
				fence = m[1]
				flush()
			case fence == m[1]:
				fence = ""
			}
			continue
		}
		if fence != "" {
			continue
		}

		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flush()
			continue
		case strings.HasPrefix(trimmed, "|"), strings.HasPrefix(trimmed, ">"):
			flush()
			continue
		case headingLine.MatchString(line), markerOnly.MatchString(trimmed):
			flush()
			continue
		}

		if listMarker.MatchString(line) {
			flush()
			trimmed = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
			if trimmed == "" {
				continue
			}
		}
		current = append(current, trimmed)
	}
	flush()

	return out
}

// section returns the body of the first level-2 heading whose text starts
// with one of the given headings, up to the next level-2 heading.
func section(lines []string, headings []string) (heading string, body []string, found bool) {
	fence, start := "", 0
	for i, line := range lines {
		if m := fenceLine.FindStringSubmatch(line); m != nil {
			switch {
			case fence == "":
				fence = m[1]
			case fence == m[1]:
				fence = ""
			}
			continue
		}
		if fence != "" {
			continue
		}

		m := level2Heading.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if found {
			return heading, lines[start:i], true
		}
		if matchesHeading(m[1], headings) {
			heading, start, found = strings.TrimSpace(m[1]), i+1, true
		}
	}

	if !found {
		return "", nil, false
	}
	return heading, lines[start:], true
}

func matchesHeading(text string, headings []string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	for _, h := range headings {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" && strings.HasPrefix(text, h) {
			return true
		}
	}
	return false
}
