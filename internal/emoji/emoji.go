package emoji

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Default is the emoji used when no rule matches.
const Default = "🔧"

// Rule maps a change category to its emoji and the word prefixes that select it.
type Rule struct {
	Category string
	Emoji    string
	Prefixes []string
}

// Rules is evaluated top to bottom; the first rule with a matching word wins.
var Rules = []Rule{
	{Category: "fix", Emoji: "🐛", Prefixes: []string{"fix", "bug", "error", "crash", "resolv", "patch", "repair"}},
	{Category: "remove", Emoji: "🗑️", Prefixes: []string{"remov", "delet", "drop", "clean", "prune"}},
	{Category: "docs", Emoji: "📝", Prefixes: []string{"doc", "readme", "comment", "changelog"}},
	{Category: "perf", Emoji: "⚡", Prefixes: []string{"perf", "optimi", "speed", "faster", "cache"}},
	{Category: "style", Emoji: "🎨", Prefixes: []string{"style", "format", "lint", "indent"}},
	{Category: "refactor", Emoji: "♻️", Prefixes: []string{"refactor", "restructur", "renam", "simplif", "extract"}},
	{Category: "test", Emoji: "✅", Prefixes: []string{"test", "spec", "coverage"}},
	{Category: "feature", Emoji: "✨", Prefixes: []string{"add", "feat", "implement", "introduc", "creat", "support", "new"}},
	{Category: "release", Emoji: "🚀", Prefixes: []string{"release", "deploy", "launch", "publish", "version"}},
}

// typeMap maps conventional commit types to their emoji.
var typeMap = map[string]string{
	"feat":     "✨",
	"fix":      "🐛",
	"docs":     "📝",
	"style":    "🎨",
	"refactor": "♻️",
	"perf":     "⚡",
	"test":     "✅",
	"chore":    "🔧",
	"build":    "🏗️",
	"ci":       "🤖",
	"revert":   "🔙",
	"release":  "🚀",
	"hotfix":   "🔥",
	"security": "🔒",
	"wip":      "🚧",
	"deps":     "🔗",
	"remove":   "🗑️",
}

var commitTypeRegex = regexp.MustCompile(`^([a-zA-Z]+)(?:\([^)]+\))?!?:\s*`)

var allowed = buildAllowed()

func buildAllowed() []string {
	seen := map[string]bool{Default: true}
	for _, r := range Rules {
		seen[r.Emoji] = true
	}
	for _, e := range typeMap {
		seen[e] = true
	}
	out := make([]string, 0, len(seen))
	for e := range seen {
		out = append(out, e)
	}
	// longest first so "🗑️" wins over a bare "🗑"
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}

// Allowed returns every emoji accepted as a message prefix.
func Allowed() []string {
	return append([]string(nil), allowed...)
}

// ForType returns the emoji for a conventional commit type, or "".
func ForType(commitType string) string {
	return typeMap[strings.ToLower(commitType)]
}

// Description lists the keyword categories for use in prompts,
// e.g. "🐛 for fix, 🗑️ for remove, ...".
func Description() string {
	parts := make([]string, 0, len(Rules)+1)
	for _, r := range Rules {
		parts = append(parts, fmt.Sprintf("%s for %s", r.Emoji, r.Category))
	}
	parts = append(parts, fmt.Sprintf("%s for chore", Default))
	return strings.Join(parts, ", ")
}

// Classify picks the emoji for free text using the keyword rules.
func Classify(text string) string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, rule := range Rules {
		for _, w := range words {
			for _, p := range rule.Prefixes {
				if strings.HasPrefix(w, p) {
					return rule.Emoji
				}
			}
		}
	}
	return Default
}

// HasAllowedPrefix reports whether message starts with an accepted emoji.
// The emoji presentation selector (U+FE0F) is optional.
func HasAllowedPrefix(message string) bool {
	return allowedPrefix(message) != ""
}

func allowedPrefix(message string) string {
	for _, e := range allowed {
		if strings.HasPrefix(message, e) {
			return e
		}
		if bare := strings.TrimSuffix(e, "\uFE0F"); bare != e && strings.HasPrefix(message, bare) {
			return bare
		}
	}
	return ""
}

// Ensure returns message with a leading accepted emoji. An existing accepted
// emoji is kept; any other leading emoji is replaced. A conventional
// "type(scope):" prefix is turned into its emoji, otherwise the keyword rules decide.
func Ensure(message string) string {
	message = strings.TrimSpace(message)
	if message == "" {
		return ""
	}
	if HasAllowedPrefix(message) {
		return message
	}

	body := stripLeadingEmoji(message)
	if body == "" {
		return Default
	}

	if m := commitTypeRegex.FindStringSubmatch(body); m != nil {
		if e := ForType(m[1]); e != "" {
			rest := strings.TrimSpace(body[len(m[0]):])
			if rest == "" {
				return e
			}
			return e + " " + capitalize(rest)
		}
	}

	return Classify(body) + " " + body
}

func stripLeadingEmoji(s string) string {
	return strings.TrimSpace(strings.TrimLeftFunc(s, func(r rune) bool {
		return isEmoji(r) || unicode.IsSpace(r)
	}))
}

func capitalize(s string) string {
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// isEmoji checks if a rune is likely an emoji character.
func isEmoji(r rune) bool {
	return (r >= 0x1F000 && r <= 0x1FAFF) ||
		(r >= 0x2600 && r <= 0x27BF) ||
		(r >= 0xFE00 && r <= 0xFE0F) ||
		r == 0x200D ||
		(r >= 0x2190 && r <= 0x21FF) ||
		(r >= 0x2B00 && r <= 0x2BFF) ||
		r == 0x203C || r == 0x2049 || r == 0x231A || r == 0x231B || r == 0x23F0
}
