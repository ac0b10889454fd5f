package compiler

import (
	"html"
	"regexp"
	"strconv"
	"strings"
)

// Math spans are swapped for private use placeholders before goldmark sees
// the source, so emphasis and escapes inside TeX are left untouched.
const (
	mathOpen  = "\uE002"
	mathClose = "\uE003"
)

var placeholderPattern = regexp.MustCompile(mathOpen + `(\d+)` + mathClose)

type mathStash struct {
	spans []string
}

func (m *mathStash) put(span string) string {
	m.spans = append(m.spans, span)
	return mathOpen + strconv.Itoa(len(m.spans)-1) + mathClose
}

// restore puts the original spans back. escape is set when the target is
// HTML.
func (m *mathStash) restore(s string, escape bool) string {
	if len(m.spans) == 0 {
		return s
	}

	return placeholderPattern.ReplaceAllStringFunc(s, func(ph string) string {
		i, err := strconv.Atoi(ph[len(mathOpen) : len(ph)-len(mathClose)])
		if err != nil || i >= len(m.spans) {
			return ph
		}
		if escape {
			return html.EscapeString(m.spans[i])
		}
		return m.spans[i]
	})
}

// protectMath stashes math spans that sit outside fenced code blocks.
func protectMath(src string) (string, *mathStash) {
	stash := &mathStash{}
	if !strings.Contains(src, "$") {
		return src, stash
	}

	var out, prose strings.Builder
	flush := func() {
		out.WriteString(stash.scan(prose.String()))
		prose.Reset()
	}

	var fence string
	for _, line := range strings.SplitAfter(src, "\n") {
		if fence != "" {
			out.WriteString(line)
			if closesFence(line, fence) {
				fence = ""
			}
			continue
		}
		if f := openingFence(line); f != "" {
			flush()
			fence = f
			out.WriteString(line)
			continue
		}
		prose.WriteString(line)
	}
	flush()

	return out.String(), stash
}

func openingFence(line string) string {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 {
		return ""
	}
	for _, c := range []byte{'`', '~'} {
		n := 0
		for n < len(trimmed) && trimmed[n] == c {
			n++
		}
		if n >= 3 {
			return trimmed[:n]
		}
	}
	return ""
}

func closesFence(line, fence string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, fence) {
		return false
	}
	return strings.Trim(trimmed, fence[:1]) == ""
}

// scan replaces $...$ and $$...$$ spans in prose, skipping code spans and
// escaped dollars.
func (m *mathStash) scan(s string) string {
	var out strings.Builder
	for i := 0; i < len(s); {
		switch {
		case s[i] == '\\' && i+1 < len(s):
			out.WriteString(s[i : i+2])
			i += 2

		case s[i] == '`':
			n := runLength(s, i, '`')
			end := strings.Index(s[i+n:], s[i:i+n])
			if end < 0 {
				out.WriteString(s[i : i+n])
				i += n
				continue
			}
			stop := i + n + end + n
			out.WriteString(s[i:stop])
			i = stop

		case strings.HasPrefix(s[i:], "$$"):
			end := strings.Index(s[i+2:], "$$")
			if end < 0 {
				out.WriteString("$$")
				i += 2
				continue
			}
			stop := i + 2 + end + 2
			out.WriteString(m.put(s[i:stop]))
			i = stop

		case s[i] == '$':
			if stop := inlineEnd(s, i); stop > 0 {
				out.WriteString(m.put(s[i:stop]))
				i = stop
				continue
			}
			out.WriteByte('$')
			i++

		default:
			out.WriteByte(s[i])
			i++
		}
	}
	return out.String()
}

func runLength(s string, i int, c byte) int {
	n := 0
	for i+n < len(s) && s[i+n] == c {
		n++
	}
	return n
}

// inlineEnd returns the index just past the closing '$' of an inline span
// opening at i, or 0. The opener must be followed by a non-space, the
// closer preceded by a non-space and not followed by a digit, and the span
// stays on one line.
func inlineEnd(s string, i int) int {
	if i+1 >= len(s) || isSpace(s[i+1]) {
		return 0
	}

	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\n':
			return 0
		case '\\':
			j++
		case '$':
			if isSpace(s[j-1]) {
				continue
			}
			if j+1 < len(s) && s[j+1] >= '0' && s[j+1] <= '9' {
				continue
			}
			return j + 1
		}
	}
	return 0
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
