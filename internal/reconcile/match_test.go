package reconcile

import (
	"testing"

	"github.com/JonMunkholm/gmvsync/internal/store"
)

func TestFixPrimary(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"none flagged", []string{"0", "", "0"}, []string{"1", "0", "0"}},
		{"first flagged wins", []string{"0", "1", "1"}, []string{"0", "1", "0"}},
		{"truthy values", []string{"t", "yes"}, []string{"1", "0"}},
		{"single", []string{""}, []string{"1"}},
		{"empty", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := make([]store.Fields, len(tt.in))
			for i, v := range tt.in {
				records[i] = store.Fields{"is_primary": v}
			}
			fixPrimary(records)

			primaries := 0
			for i, r := range records {
				if r["is_primary"] != tt.want[i] {
					t.Errorf("record %d is_primary = %q, want %q", i, r["is_primary"], tt.want[i])
				}
				if r["is_primary"] == "1" {
					primaries++
				}
			}
			if len(records) > 0 && primaries != 1 {
				t.Errorf("primaries = %d, want 1", primaries)
			}
		})
	}
}

func TestRemoveDuplicates(t *testing.T) {
	m := matchOptions{caseless: map[string]bool{"email": true}}
	records := []store.Fields{
		{"email": "a@example.org", "location_type_id": "2"},
		{"email": "A@Example.org", "location_type_id": "1"},
		{"email": "b@example.org"},
		{"email": "a@example.org"},
	}

	got := m.removeDuplicates(records, []string{"email"})
	if len(got) != 2 {
		t.Fatalf("removeDuplicates() kept %d records, want 2", len(got))
	}
	if got[0]["location_type_id"] != "2" {
		t.Errorf("first occurrence not kept: %v", got[0])
	}
	if got[1]["email"] != "b@example.org" {
		t.Errorf("second record = %v, want b@example.org", got[1])
	}
}

func TestFetchNextDetail(t *testing.T) {
	m := matchOptions{caseless: map[string]bool{"email": true}}
	candidates := []store.Detail{
		{ID: 1, Fields: store.Fields{"email": "x@example.org", "location_type_id": "2"}},
		{ID: 2, Fields: store.Fields{"email": "A@example.org", "location_type_id": "1"}},
		{ID: 3, Fields: store.Fields{"email": "a@example.org", "location_type_id": "2"}},
	}
	want := store.Fields{"email": "a@example.org", "location_type_id": "2"}

	tests := []struct {
		attrs []string
		want  int
	}{
		{[]string{"email", "location_type_id"}, 2},
		{[]string{"email"}, 1},
		{[]string{"location_type_id"}, 0},
		{[]string{}, 0},
	}
	for _, tt := range tests {
		if got := m.fetchNextDetail(candidates, want, tt.attrs); got != tt.want {
			t.Errorf("fetchNextDetail(%v) = %d, want %d", tt.attrs, got, tt.want)
		}
	}

	if got := m.fetchNextDetail(candidates, store.Fields{"email": "none@example.org"}, []string{"email"}); got != -1 {
		t.Errorf("fetchNextDetail() = %d, want -1", got)
	}
}

func TestDiff(t *testing.T) {
	m := matchOptions{caseless: map[string]bool{"email": true}}
	want := store.Fields{"email": "A@example.org", "is_primary": "1", "location_type_id": ""}
	have := store.Fields{"email": "a@example.org", "is_primary": "0"}

	got := m.diff(want, have, []string{"email", "is_primary", "location_type_id"})
	if len(got) != 1 || got[0] != "is_primary" {
		t.Errorf("diff() = %v, want [is_primary]", got)
	}
}

func TestChangeLog(t *testing.T) {
	l := NewChangeLog()
	l.Record(2, "last_name", "Meyer", true, "Meier")
	l.Record(1, "is_primary [2]", "", false, "0")
	l.Record(1, "first_name", "", false, "Anna")
	l.Record(2, "last_name", "Meyer", true, "Maier")

	if l.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", l.Len())
	}
	if got := l.Contacts(); got[0] != 2 || got[1] != 1 {
		t.Errorf("Contacts() = %v, want [2 1]", got)
	}
	changes := l.Changes(2)
	if len(changes) != 1 || changes[0].New != "Maier" {
		t.Errorf("Changes(2) = %v, want one change to Maier", changes)
	}
	if changes := l.Changes(1); len(changes) != 1 || changes[0].Field != "first_name" {
		t.Errorf("Changes(1) = %v, want only first_name", changes)
	}
}
