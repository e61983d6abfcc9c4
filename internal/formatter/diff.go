package formatter

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

const truncatedNote = "...(content is too long, truncated)"

var (
	lowPriorityPatterns = []string{
		"go.sum", "package-lock.json", "yarn.lock", "pnpm-lock.yaml",
		"Pipfile.lock", "poetry.lock", "composer.lock", "Cargo.lock", "Gemfile.lock",
		"*.lock",
		"*.pb.go", "*_generated.go", "*_gen.go",
		"*.min.js", "*.min.css", "*.map",
	}
	lowPriorityDirs = []string{"vendor", "node_modules", "third_party", "dist"}
)

// fileDiff is one "diff --git" section of a unified diff.
type fileDiff struct {
	Path    string
	OldPath string
	Header  string
	Hunks   []string
	Binary  bool
	Added   int
	Deleted int
}

func (f fileDiff) summary() string {
	switch {
	case f.Binary:
		return f.Path + " (binary)"
	case f.OldPath != "" && f.OldPath != f.Path:
		return f.OldPath + " -> " + f.Path + " (renamed)"
	default:
		return fmt.Sprintf("%s (+%d/-%d)", f.Path, f.Added, f.Deleted)
	}
}

func (f fileDiff) lowPriority() bool {
	for _, seg := range strings.Split(f.Path, "/") {
		for _, dir := range lowPriorityDirs {
			if seg == dir {
				return true
			}
		}
	}
	base := filepath.Base(f.Path)
	for _, pattern := range lowPriorityPatterns {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// shrinkDiff keeps whole file sections in order until limit is reached and
// replaces the rest with one-line summaries. Low-priority files are always
// summarized.
func shrinkDiff(diff, stats string, limit int) string {
	files := splitDiff(diff)
	if len(files) == 0 {
		return truncateToValidUTF8(diff, limit) + truncatedNote
	}

	numstat := parseNumstat(stats)
	for i := range files {
		if s, ok := numstat[files[i].Path]; ok {
			files[i].Added, files[i].Deleted = s.added, s.deleted
			files[i].Binary = files[i].Binary || s.binary
		} else {
			files[i].Added, files[i].Deleted = countChanges(files[i].Hunks)
		}
	}

	var full, summaries []fileDiff
	for _, f := range files {
		if f.lowPriority() {
			summaries = append(summaries, f)
		} else {
			full = append(full, f)
		}
	}

	var b strings.Builder
	for _, f := range full {
		if !writeSection(&b, f, limit) {
			summaries = append(summaries, f)
		}
	}

	if len(summaries) > 0 {
		const heading = "Other changed files:\n"
		if b.Len()+len(heading) <= limit {
			b.WriteString(heading)
		}
		for _, f := range summaries {
			line := f.summary() + "\n"
			if b.Len()+len(line) > limit {
				break
			}
			b.WriteString(line)
		}
	}

	return truncateToValidUTF8(b.String(), limit)
}

// writeSection appends f whole if it fits within limit.
func writeSection(b *strings.Builder, f fileDiff, limit int) bool {
	size := len(f.Header)
	for _, h := range f.Hunks {
		size += len(h)
	}
	if b.Len()+size > limit {
		return false
	}
	b.WriteString(f.Header)
	for _, h := range f.Hunks {
		b.WriteString(h)
	}
	return true
}

func splitDiff(raw string) []fileDiff {
	var files []fileDiff
	var cur *fileDiff
	inHunk := false

	for _, line := range strings.Split(raw, "\n") {
		if strings.HasPrefix(line, "diff --git ") {
			if cur != nil {
				files = append(files, *cur)
			}
			cur = &fileDiff{Header: line + "\n"}
			cur.OldPath, cur.Path = headerPaths(line)
			inHunk = false
			continue
		}
		if cur == nil {
			continue
		}
		if strings.HasPrefix(line, "@@") {
			inHunk = true
			cur.Hunks = append(cur.Hunks, line+"\n")
			continue
		}
		if inHunk {
			cur.Hunks[len(cur.Hunks)-1] += line + "\n"
			continue
		}
		cur.Header += line + "\n"
		switch {
		case strings.HasPrefix(line, "rename from "):
			cur.OldPath = strings.Trim(strings.TrimPrefix(line, "rename from "), `"`)
		case strings.HasPrefix(line, "rename to "):
			cur.Path = strings.Trim(strings.TrimPrefix(line, "rename to "), `"`)
		case strings.HasPrefix(line, "Binary files "), strings.HasPrefix(line, "GIT binary patch"):
			cur.Binary = true
		}
	}
	if cur != nil {
		files = append(files, *cur)
	}
	return files
}

// headerPaths extracts the a/ and b/ paths of a "diff --git a/x b/y" line.
func headerPaths(line string) (oldPath, newPath string) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return "", ""
	}
	clean := func(p, prefix string) string {
		return strings.TrimPrefix(strings.Trim(p, `"`), prefix)
	}
	return clean(fields[2], "a/"), clean(fields[3], "b/")
}

type numstatEntry struct {
	added   int
	deleted int
	binary  bool
}

// parseNumstat reads `git diff --numstat` output keyed by the new path.
func parseNumstat(raw string) map[string]numstatEntry {
	out := map[string]numstatEntry{}
	for _, line := range strings.Split(raw, "\n") {
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			continue
		}
		var e numstatEntry
		if parts[0] == "-" && parts[1] == "-" {
			e.binary = true
		} else {
			e.added, _ = strconv.Atoi(parts[0])
			e.deleted, _ = strconv.Atoi(parts[1])
		}
		out[renameTarget(strings.TrimSpace(parts[2]))] = e
	}
	return out
}

// renameTarget resolves "old => new" and "dir/{a => b}/f" to the new path.
func renameTarget(path string) string {
	if !strings.Contains(path, "=>") {
		return path
	}
	start, end := strings.Index(path, "{"), strings.Index(path, "}")
	if start >= 0 && end > start {
		inner := strings.SplitN(path[start+1:end], "=>", 2)
		joined := path[:start] + strings.TrimSpace(inner[len(inner)-1]) + path[end+1:]
		return strings.ReplaceAll(joined, "//", "/")
	}
	parts := strings.SplitN(path, "=>", 2)
	return strings.TrimSpace(parts[1])
}

func countChanges(hunks []string) (added, deleted int) {
	for _, h := range hunks {
		for _, line := range strings.Split(h, "\n") {
			switch {
			case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			case strings.HasPrefix(line, "+"):
				added++
			case strings.HasPrefix(line, "-"):
				deleted++
			}
		}
	}
	return added, deleted
}
