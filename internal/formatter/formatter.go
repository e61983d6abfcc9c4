package formatter

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/samzong/autopush/internal/emoji"
)

const (
	// DiffPromptLimit caps the diff bytes sent to the model.
	DiffPromptLimit = 4000

	// DefaultLengthCap is the default maximum commit message length in runes.
	DefaultLengthCap = 50

	// TruncationMarker ends a message that was cut to fit the length cap.
	TruncationMarker = "..."

	// StatsSeparator separates the diff from the numstat block in a payload.
	StatsSeparator = "-- autopush diff stats --"
)

var (
	issuePattern = regexp.MustCompile(`\s*\(#\d+\)|\s*#\d+`)
	labelPattern = regexp.MustCompile(`(?i)^(?:commit message|message|commit|short message)\s*:\s*`)
)

// JoinPayload combines a staged diff and its numstat block into one payload.
func JoinPayload(diff, stats string) string {
	diff = strings.TrimRight(diff, "\n")
	stats = strings.TrimSpace(stats)
	if stats == "" || strings.TrimSpace(diff) == "" {
		return diff
	}
	return diff + "\n" + StatsSeparator + "\n" + stats
}

// SplitPayload is the inverse of JoinPayload.
func SplitPayload(payload string) (diff, stats string) {
	parts := strings.SplitN(payload, StatsSeparator, 2)
	if len(parts) != 2 {
		return payload, ""
	}
	return strings.TrimRight(parts[0], "\n"), strings.TrimSpace(parts[1])
}

// PromptDiff returns the diff portion of payload shrunk to fit limit bytes.
// Low-priority files (lock files, generated code, vendored trees) are
// summarized first.
func PromptDiff(payload string, limit int) string {
	diff, stats := SplitPayload(payload)
	if len(diff) <= limit {
		return diff
	}
	return shrinkDiff(diff, stats, limit)
}

// Sanitize reduces raw model output to a single clean subject line.
func Sanitize(raw string) string {
	line := firstLine(raw)
	line = labelPattern.ReplaceAllString(line, "")
	line = stripQuotes(line)
	line = issuePattern.ReplaceAllString(line, "")
	line = strings.TrimSpace(line)
	line = strings.TrimRight(line, ".。")
	return strings.TrimSpace(line)
}

// Finalize turns candidate text into a commit message: sanitized, prefixed
// with an accepted emoji, and capped at limit runes. The second result
// reports whether the message had to be truncated.
func Finalize(raw string, limit int) (string, bool) {
	msg := Sanitize(raw)
	if msg == "" {
		return "", false
	}
	return Truncate(emoji.Ensure(msg), limit)
}

// Truncate shortens s to at most limit runes, ending with TruncationMarker
// when anything was cut.
func Truncate(s string, limit int) (string, bool) {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s, false
	}
	markerLen := utf8.RuneCountInString(TruncationMarker)
	if limit <= markerLen {
		return string([]rune(s)[:limit]), true
	}
	runes := []rune(s)
	kept := strings.TrimRight(string(runes[:limit-markerLen]), " ")
	return kept + TruncationMarker, true
}

func firstLine(raw string) string {
	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		return line
	}
	return ""
}

func stripQuotes(s string) string {
	for {
		s = strings.TrimSpace(s)
		if len(s) < 2 {
			return s
		}
		trimmed := false
		for _, q := range []string{`"`, "'", "`", "“"} {
			closing := q
			if q == "“" {
				closing = "”"
			}
			if strings.HasPrefix(s, q) && strings.HasSuffix(s, closing) && len(s) >= len(q)+len(closing) {
				s = s[len(q) : len(s)-len(closing)]
				trimmed = true
				break
			}
		}
		if !trimmed {
			return s
		}
	}
}

// truncateToValidUTF8 cuts input to at most maxBytes without splitting the
// last rune. Invalid bytes earlier in input are kept as they are.
func truncateToValidUTF8(input string, maxBytes int) string {
	if len(input) <= maxBytes {
		return input
	}
	end := max(maxBytes, 0)
	for range utf8.UTFMax - 1 {
		if end == 0 || utf8.RuneStart(input[end]) {
			break
		}
		end--
	}
	return input[:end]
}
