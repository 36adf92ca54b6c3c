package orchestrator

import (
	"regexp"
	"strings"
)

// Name lookup patterns, tried in order. The capture keeps the original
// casing: the graph search is case-insensitive, but the answer echoes the
// name as the user typed it.
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:nhân viên|người)\s+(?:có\s+)?tên(?:\s+là)?\s+([\p{L}][\p{L}\s]+)`),
	regexp.MustCompile(`(?i)thông tin\s+(?:về|của)\s+(?:nhân viên\s+)?([\p{L}][\p{L}\s]+)`),
	regexp.MustCompile(`(?i)\btên(?:\s+là)?\s+([\p{L}][\p{L}\s]+)`),
}

// Trailing filler that bleeds into the greedy name capture.
var nameTrailers = []string{"là ai", "ai", "không", "nhé", "vậy", "đi", "với"}

// extractEmployeeName returns the person name mentioned in an explicit
// by-name query, or "" when the message is not one.
func extractEmployeeName(message string) string {
	text := strings.TrimRight(strings.TrimSpace(message), "?!.")
	for _, re := range namePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		name = trimTrailers(name)
		// A single short token is more likely a filter word than a name.
		if len([]rune(name)) < 2 {
			continue
		}
		return name
	}
	return ""
}

func trimTrailers(name string) string {
	for changed := true; changed; {
		changed = false
		lower := strings.ToLower(name)
		for _, t := range nameTrailers {
			suffix := " " + t
			if strings.HasSuffix(lower, suffix) {
				name = strings.TrimSpace(name[:len(name)-len(suffix)])
				changed = true
				break
			}
		}
	}
	return name
}
