package competency

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// maxTextLength bounds idnumber and shortname values.
const maxTextLength = 100

// cleanText strips markup from s, trims it, and limits it to maxTextLength
// runes.
func cleanText(s string) string {
	s = stripTags(s)
	s = strings.TrimSpace(s)
	return shorten(s, maxTextLength)
}

func stripTags(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}

func shorten(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n]))
}

// parseInt reads a leading integer, returning 0 for anything else.
func parseInt(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	end := 0
	if s[0] == '-' || s[0] == '+' {
		end = 1
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// isTruthy reports whether a flag column is set.
func isTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "false", "no", "off":
		return false
	}
	return true
}

// relatedEscape stands in for a literal comma inside a related idnumber.
const relatedEscape = "%2C"

// splitRelated splits a relatedidnumbers cell and cleans each reference the
// same way idnumbers are cleaned.
func splitRelated(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = cleanText(strings.ReplaceAll(p, relatedEscape, ","))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func joinRelated(ids []string) string {
	escaped := make([]string, len(ids))
	for i, id := range ids {
		escaped[i] = strings.ReplaceAll(id, ",", relatedEscape)
	}
	return strings.Join(escaped, ",")
}

func splitTaxonomies(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
