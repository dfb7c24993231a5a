package reconcile

import (
	"strings"

	"github.com/JonMunkholm/gmvsync/internal/store"
)

// matchOptions tunes attribute comparison.
type matchOptions struct {
	caseless map[string]bool
}

func (m matchOptions) equal(attr, a, b string) bool {
	if m.caseless[attr] {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// diff returns the attributes whose wanted value differs from the current
// one. A missing current value equals the empty string.
func (m matchOptions) diff(want, have store.Fields, attrs []string) []string {
	var changed []string
	for _, a := range attrs {
		if !m.equal(a, want[a], have[a]) {
			changed = append(changed, a)
		}
	}
	return changed
}

// fetchNextDetail returns the index of the first candidate matching want on
// every attribute, or -1.
func (m matchOptions) fetchNextDetail(candidates []store.Detail, want store.Fields, attrs []string) int {
next:
	for i, c := range candidates {
		for _, a := range attrs {
			if !m.equal(a, want[a], c.Fields[a]) {
				continue next
			}
		}
		return i
	}
	return -1
}

// removeDuplicates drops every record whose natural key was already seen.
func (m matchOptions) removeDuplicates(records []store.Fields, key []string) []store.Fields {
	seen := make(map[string]bool, len(records))
	out := records[:0]
	for _, r := range records {
		parts := make([]string, len(key))
		for i, a := range key {
			parts[i] = r[a]
			if m.caseless[a] {
				parts[i] = strings.ToLower(parts[i])
			}
		}
		k := strings.Join(parts, "|")
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}

// fixPrimary leaves exactly one record flagged primary: the first flagged
// one, or the first record when none is.
func fixPrimary(records []store.Fields) {
	found := false
	for _, r := range records {
		if !found && isTrue(r["is_primary"]) {
			found = true
			r["is_primary"] = "1"
			continue
		}
		r["is_primary"] = "0"
	}
	if !found && len(records) > 0 {
		records[0]["is_primary"] = "1"
	}
}

func isTrue(v string) bool {
	switch strings.ToLower(v) {
	case "", "0", "f", "false", "n", "no":
		return false
	}
	return true
}

func pick(f store.Fields, names []string) store.Fields {
	out := make(store.Fields, len(names))
	for _, n := range names {
		out[n] = f[n]
	}
	return out
}
