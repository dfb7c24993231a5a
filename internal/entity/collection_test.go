package entity

import (
	"errors"
	"testing"

	"github.com/JonMunkholm/gmvsync/internal/logging"
)

func newTestCollection(records ...Record) *Collection {
	return NewCollection("test", logging.Discard(), records)
}

func TestRenameKeysUsesSnapshot(t *testing.T) {
	c := newTestCollection(Record{"a": "1", "b": "2"})
	c.RenameKeys([]FieldMap{{"a", "b"}, {"b", "c"}}, true)

	r := c.Records()[0]
	if r["b"] != "1" {
		t.Errorf("b = %q, want %q", r["b"], "1")
	}
	if r["c"] != "2" {
		t.Errorf("c = %q, want %q", r["c"], "2")
	}
	if _, ok := r["a"]; ok {
		t.Errorf("a still present after rename")
	}
}

func TestRenameKeysKeepOld(t *testing.T) {
	c := newTestCollection(Record{"a": "1"})
	c.RenameKeys([]FieldMap{{"a", "x"}}, false)

	r := c.Records()[0]
	if r["a"] != "1" || r["x"] != "1" {
		t.Errorf("record = %v, want a and x set to 1", r)
	}
}

func TestMapValues(t *testing.T) {
	c := newTestCollection(
		Record{"flag": "t"},
		Record{"flag": "f"},
		Record{"flag": "x"},
		Record{},
	)
	c.MapValues("flag", TrueFalseMap, "0")

	want := []string{"1", "0", "0", "0"}
	for i, r := range c.Records() {
		if r["flag"] != want[i] {
			t.Errorf("record %d flag = %q, want %q", i, r["flag"], want[i])
		}
	}
}

func TestMapViaList(t *testing.T) {
	list := NewReferenceList("jobs", logging.Discard(), [][2]string{{"1", "Pfarrer"}, {"2", "Küster"}})
	c := newTestCollection(Record{"job": "2"}, Record{"job": "9"})
	c.MapViaList("job", list, "")

	records := c.Records()
	if records[0]["job"] != "Küster" {
		t.Errorf("job = %q, want %q", records[0]["job"], "Küster")
	}
	if records[1]["job"] != "" {
		t.Errorf("unlisted job = %q, want empty", records[1]["job"])
	}
}

func TestJoinFirstWins(t *testing.T) {
	a := newTestCollection(Record{"key": "1", "city": "Bonn"}, Record{"key": "2"}, Record{"key": ""})
	b := newTestCollection(
		Record{"id": "1", "city": "Köln", "zip": "50667"},
		Record{"id": "1", "city": "Essen", "zip": "45127"},
		Record{"id": "2", "city": "Essen"},
	)
	a.Join(b, "key", "id", nil)

	records := a.Records()
	if records[0]["city"] != "Bonn" {
		t.Errorf("city = %q, want existing %q", records[0]["city"], "Bonn")
	}
	if records[0]["zip"] != "50667" {
		t.Errorf("zip = %q, want first match %q", records[0]["zip"], "50667")
	}
	if records[1]["city"] != "Essen" {
		t.Errorf("city = %q, want %q", records[1]["city"], "Essen")
	}
	if _, ok := records[2]["city"]; ok {
		t.Errorf("record without key was joined: %v", records[2])
	}
}

func TestJoinFieldsOverwrite(t *testing.T) {
	a := newTestCollection(Record{"key": "1", "city": "Bonn"}, Record{"key": "3"})
	b := newTestCollection(Record{"id": "1", "city": "Köln", "zip": "50667"})
	a.Join(b, "key", "id", []string{"city"})

	records := a.Records()
	if records[0]["city"] != "Köln" {
		t.Errorf("city = %q, want %q", records[0]["city"], "Köln")
	}
	if _, ok := records[0]["zip"]; ok {
		t.Errorf("zip copied although not requested")
	}
	if _, ok := records[1]["city"]; ok {
		t.Errorf("unmatched record got city")
	}
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name    string
		pred    Predicate
		values  []string
		want    int
		wantErr error
	}{
		{"not empty", NotEmpty, nil, 2, nil},
		{"equals", Equals, []string{"f"}, 1, nil},
		{"in", In, []string{"f", ""}, 2, nil},
		{"unknown", Predicate("greater"), nil, 3, ErrUnknownPredicate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCollection(Record{"h": "t"}, Record{"h": "f"}, Record{"h": ""})
			_, err := c.Filter("h", tt.pred, tt.values...)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Filter() error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("Filter() error = %v", err)
			}
			if c.Len() != tt.want {
				t.Errorf("Len() = %d, want %d", c.Len(), tt.want)
			}
		})
	}
}

func TestFilterEqualsNeedsOneValue(t *testing.T) {
	c := newTestCollection(Record{"h": "f"})
	if _, err := c.Filter("h", Equals); err == nil {
		t.Error("Filter(equals) without value succeeded")
	}
}

func TestDeleteMaintainsIndex(t *testing.T) {
	c := newTestCollection(Record{"id": "1", "n": "a"}, Record{"id": "1", "n": "b"}, Record{"id": "2"})
	c.IndexBy("id")

	if !c.Delete(0) {
		t.Fatal("Delete(0) = false")
	}
	r, ok := c.Lookup("id", "1")
	if !ok || r["n"] != "b" {
		t.Errorf("Lookup after delete = %v, %v, want record b", r, ok)
	}
	if c.Delete(0) {
		t.Error("second Delete(0) = true")
	}
	c.Delete(1)
	if _, ok := c.Lookup("id", "1"); ok {
		t.Error("Lookup found deleted record")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestDeleteKey(t *testing.T) {
	c := newTestCollection(
		Record{"gmv_id": "100", "email": "a@example.org"},
		Record{"gmv_id": "101", "email": "b@example.org"},
		Record{"gmv_id": "100", "email": "c@example.org"},
	)
	c.IndexBy("email")

	if got := c.DeleteKey("gmv_id", "100"); got != 2 {
		t.Fatalf("DeleteKey() = %d, want 2", got)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
	if _, ok := c.Lookup("email", "c@example.org"); ok {
		t.Error("email index still holds a deleted record")
	}
	if r, ok := c.Lookup("gmv_id", "101"); !ok || r["email"] != "b@example.org" {
		t.Errorf("Lookup(101) = %v, %v", r, ok)
	}
	if got := c.DeleteKey("gmv_id", "100"); got != 0 {
		t.Errorf("second DeleteKey() = %d, want 0", got)
	}
	if got := c.DeleteKey("gmv_id", ""); got != 0 {
		t.Errorf("DeleteKey(empty) = %d, want 0", got)
	}
}

func TestAppendExtendsIndex(t *testing.T) {
	c := newTestCollection(Record{"id": "1"})
	c.IndexBy("id")
	c.Append(Record{"id": "2"})

	if _, ok := c.Lookup("id", "2"); !ok {
		t.Error("Lookup misses appended record")
	}
}

func TestSetInvalidatesIndex(t *testing.T) {
	c := newTestCollection(Record{"id": "1"})
	c.IndexBy("id")
	c.Set(0, "id", "5")

	if _, ok := c.Lookup("id", "1"); ok {
		t.Error("stale index entry for old value")
	}
	if _, ok := c.Lookup("id", "5"); !ok {
		t.Error("Lookup misses new value")
	}
}

func TestLookupReturnsCopy(t *testing.T) {
	c := newTestCollection(Record{"id": "1", "v": "x"})
	r, _ := c.Lookup("id", "1")
	r["v"] = "changed"

	again, _ := c.Lookup("id", "1")
	if again["v"] != "x" {
		t.Errorf("v = %q, want %q", again["v"], "x")
	}
}

func TestOccurrences(t *testing.T) {
	c := newTestCollection(Record{"o": "1"}, Record{"o": "1"}, Record{"o": "2"}, Record{"o": ""})
	got := c.Occurrences("o")

	if len(got) != 2 || got["1"] != 2 || got["2"] != 1 {
		t.Errorf("Occurrences() = %v, want map[1:2 2:1]", got)
	}
}

func TestRetain(t *testing.T) {
	c := newTestCollection(Record{"a": "1", "b": "2", "c": "3"})
	c.Retain("a", "c")

	r := c.Records()[0]
	if len(r) != 2 || r["a"] != "1" || r["c"] != "3" {
		t.Errorf("record = %v, want a and c only", r)
	}
}
