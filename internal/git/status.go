package git

import (
	"slices"
	"strings"
)

// ChangeSet is a point-in-time snapshot of pending paths in the working tree.
type ChangeSet struct {
	Staged    []string
	Modified  []string
	Untracked []string
}

// Empty reports whether the snapshot holds no pending changes.
func (c ChangeSet) Empty() bool {
	return len(c.Staged) == 0 && len(c.Modified) == 0 && len(c.Untracked) == 0
}

// Files returns every path in the snapshot, sorted and de-duplicated.
func (c ChangeSet) Files() []string {
	all := make([]string, 0, len(c.Staged)+len(c.Modified)+len(c.Untracked))
	all = append(all, c.Staged...)
	all = append(all, c.Modified...)
	all = append(all, c.Untracked...)
	slices.Sort(all)
	return slices.Compact(all)
}

// Listing renders the snapshot as a short status listing, one path per line.
func (c ChangeSet) Listing() string {
	var b strings.Builder
	write := func(label string, paths []string) {
		for _, p := range paths {
			b.WriteString(label)
			b.WriteString(" ")
			b.WriteString(p)
			b.WriteString("\n")
		}
	}
	write("staged:", c.Staged)
	write("modified:", c.Modified)
	write("untracked:", c.Untracked)
	return strings.TrimRight(b.String(), "\n")
}

// ParsePorcelain parses `git status --porcelain -z` output.
func ParsePorcelain(raw string) ChangeSet {
	var cs ChangeSet
	entries := strings.Split(raw, "\x00")
	for i := 0; i < len(entries); i++ {
		entry := entries[i]
		if len(entry) < 4 {
			continue
		}
		x, y, path := entry[0], entry[1], entry[3:]

		if x == 'R' || x == 'C' || y == 'R' || y == 'C' {
			// the original path follows as its own NUL-terminated field
			i++
		}

		switch {
		case x == '?' && y == '?':
			cs.Untracked = append(cs.Untracked, path)
		case x == '!' && y == '!':
		default:
			if x != ' ' {
				cs.Staged = append(cs.Staged, path)
			}
			if y != ' ' {
				cs.Modified = append(cs.Modified, path)
			}
		}
	}
	return cs
}
