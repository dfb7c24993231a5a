// Package entity turns export rows into normalized records for the target store.
//
// A Collection is an in-memory table. Records live in an append-only slot
// vector; a deleted slot is marked dead and never reused, so slot numbers are
// stable for the lifetime of the collection. Secondary indexes map field
// values to slot numbers and are kept coherent on every mutation: Delete and
// Append maintain them in place, all other mutations drop them so they are
// rebuilt on the next lookup.
package entity

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
)

// ErrUnknownPredicate is returned by Filter for an unsupported predicate.
var ErrUnknownPredicate = errors.New("unknown filter predicate")

// Record is one entity record: field name to value. An empty string is the
// empty value; a missing key means the field was never set.
type Record map[string]string

// Clone returns a copy of r.
func (r Record) Clone() Record {
	return maps.Clone(r)
}

// FieldMap renames From to To.
type FieldMap struct {
	From string
	To   string
}

// Predicate selects the records Filter keeps.
type Predicate string

const (
	NotEmpty Predicate = "not_empty" // keep records whose field is non-empty
	Equals   Predicate = "equals"    // keep records whose field equals the single value
	In       Predicate = "in"        // keep records whose field is one of the values
)

// Collection is an ordered set of records with lazily built indexes.
type Collection struct {
	name    string
	log     *slog.Logger
	slots   []Record
	live    []bool
	size    int
	indexes map[string]map[string][]int
}

// NewCollection wraps records. The collection takes ownership of the maps.
func NewCollection(name string, log *slog.Logger, records []Record) *Collection {
	if log == nil {
		log = slog.Default()
	}
	c := &Collection{
		name:    name,
		log:     log,
		slots:   make([]Record, 0, len(records)),
		live:    make([]bool, 0, len(records)),
		indexes: make(map[string]map[string][]int),
	}
	for _, r := range records {
		c.Append(r)
	}
	return c
}

// Name returns the collection name used in log records.
func (c *Collection) Name() string { return c.name }

// Len returns the number of live records.
func (c *Collection) Len() int { return c.size }

// Append adds r and returns its slot. Built indexes are extended in place.
func (c *Collection) Append(r Record) int {
	if r == nil {
		r = Record{}
	}
	slot := len(c.slots)
	c.slots = append(c.slots, r)
	c.live = append(c.live, true)
	c.size++
	for field, idx := range c.indexes {
		if v := r[field]; v != "" {
			idx[v] = append(idx[v], slot)
		}
	}
	return slot
}

// Slots returns the live slot numbers in insertion order.
func (c *Collection) Slots() []int {
	out := make([]int, 0, c.size)
	for slot, ok := range c.live {
		if ok {
			out = append(out, slot)
		}
	}
	return out
}

// Record returns a copy of the record in slot, or nil if the slot is dead.
func (c *Collection) Record(slot int) Record {
	if slot < 0 || slot >= len(c.slots) || !c.live[slot] {
		return nil
	}
	return c.slots[slot].Clone()
}

// Records returns copies of all live records in insertion order.
func (c *Collection) Records() []Record {
	out := make([]Record, 0, c.size)
	for slot, ok := range c.live {
		if ok {
			out = append(out, c.slots[slot].Clone())
		}
	}
	return out
}

// Set assigns field in slot.
func (c *Collection) Set(slot int, field, value string) {
	if slot < 0 || slot >= len(c.slots) || !c.live[slot] {
		return
	}
	c.slots[slot][field] = value
	delete(c.indexes, field)
}

// Transform calls fn with every live record for in-place modification.
func (c *Collection) Transform(fn func(Record)) {
	for slot, ok := range c.live {
		if ok {
			fn(c.slots[slot])
		}
	}
	c.dropIndexes()
}

// RenameKeys renames fields in a single pass per record. Every new value is
// read from the record as it was before the pass, so chained pairs such as
// a->b, b->c move the old b to c rather than the old a. With dropOld, source
// fields that are not themselves a target are removed.
func (c *Collection) RenameKeys(mapping []FieldMap, dropOld bool) {
	for slot, ok := range c.live {
		if !ok {
			continue
		}
		r := c.slots[slot]
		snapshot := r.Clone()
		if dropOld {
			for _, m := range mapping {
				if m.From != m.To {
					delete(r, m.From)
				}
			}
		}
		for _, m := range mapping {
			r[m.To] = snapshot[m.From]
		}
	}
	c.dropIndexes()
}

// MapValues replaces field with mapping[value], or def when the value is not
// mapped. Records lacking the field get def and a warning.
func (c *Collection) MapValues(field string, mapping map[string]string, def string) {
	c.mapWith(field, def, func(v string) (string, bool) {
		m, ok := mapping[v]
		return m, ok
	})
}

// MapViaList replaces field through list, falling back to def.
func (c *Collection) MapViaList(field string, list *ReferenceList, def string) {
	c.mapWith(field, def, func(v string) (string, bool) {
		return list.Map(v, def), true
	})
}

func (c *Collection) mapWith(field, def string, lookup func(string) (string, bool)) {
	missing := 0
	unmapped := make(map[string]int)
	for slot, ok := range c.live {
		if !ok {
			continue
		}
		r := c.slots[slot]
		v, present := r[field]
		if !present {
			missing++
			r[field] = def
			continue
		}
		m, found := lookup(v)
		if !found {
			if v != "" {
				unmapped[v]++
			}
			m = def
		}
		r[field] = m
	}
	delete(c.indexes, field)

	if missing > 0 {
		c.log.Warn("mapping failed, property missing", "collection", c.name, "field", field, "records", missing)
	}
	for _, v := range slices.Sorted(maps.Keys(unmapped)) {
		c.log.Warn("unmapped value replaced by default", "collection", c.name, "field", field, "value", v, "records", unmapped[v], "default", def)
	}
}

// SetAll assigns value to field on every record.
func (c *Collection) SetAll(field, value string) {
	for slot, ok := range c.live {
		if ok {
			c.slots[slot][field] = value
		}
	}
	delete(c.indexes, field)
}

// CopyField copies from into to on every record.
func (c *Collection) CopyField(from, to string) {
	for slot, ok := range c.live {
		if ok {
			c.slots[slot][to] = c.slots[slot][from]
		}
	}
	delete(c.indexes, to)
}

// DropField removes field from every record.
func (c *Collection) DropField(field string) {
	for slot, ok := range c.live {
		if ok {
			delete(c.slots[slot], field)
		}
	}
	delete(c.indexes, field)
}

// Retain removes every field not listed from every record.
func (c *Collection) Retain(fields ...string) {
	keep := make(map[string]bool, len(fields))
	for _, f := range fields {
		keep[f] = true
	}
	for slot, ok := range c.live {
		if !ok {
			continue
		}
		for f := range c.slots[slot] {
			if !keep[f] {
				delete(c.slots[slot], f)
			}
		}
	}
	c.dropIndexes()
}

// IndexBy builds the index for field if it is not built yet. Records with an
// empty value are left out.
func (c *Collection) IndexBy(field string) {
	if _, ok := c.indexes[field]; ok {
		return
	}
	idx := make(map[string][]int)
	for slot, ok := range c.live {
		if !ok {
			continue
		}
		if v := c.slots[slot][field]; v != "" {
			idx[v] = append(idx[v], slot)
		}
	}
	c.indexes[field] = idx
}

// Lookup returns a copy of the first record whose field equals value.
func (c *Collection) Lookup(field, value string) (Record, bool) {
	slot, ok := c.first(field, value)
	if !ok {
		return nil, false
	}
	return c.slots[slot].Clone(), true
}

// LookupAll returns copies of every record whose field equals value, in order.
func (c *Collection) LookupAll(field, value string) []Record {
	if value == "" {
		return nil
	}
	c.IndexBy(field)
	slots := c.indexes[field][value]
	out := make([]Record, len(slots))
	for i, slot := range slots {
		out[i] = c.slots[slot].Clone()
	}
	return out
}

func (c *Collection) first(field, value string) (int, bool) {
	if value == "" {
		return 0, false
	}
	c.IndexBy(field)
	slots := c.indexes[field][value]
	if len(slots) == 0 {
		return 0, false
	}
	return slots[0], true
}

// Join enriches each record whose myKey is set with the first record of other
// whose otherKey has the same value. With fields, exactly those fields are
// copied, overwriting. Without fields, every field of the other record that
// the record does not have yet is copied; existing fields are never touched.
func (c *Collection) Join(other *Collection, myKey, otherKey string, fields []string) {
	joined := 0
	for slot, ok := range c.live {
		if !ok {
			continue
		}
		r := c.slots[slot]
		key := r[myKey]
		if key == "" {
			continue
		}
		src, found := other.first(otherKey, key)
		if !found {
			continue
		}
		joined++
		match := other.slots[src]
		if fields != nil {
			for _, f := range fields {
				r[f] = match[f]
			}
			continue
		}
		for f, v := range match {
			if _, exists := r[f]; !exists {
				r[f] = v
			}
		}
	}
	c.dropIndexes()
	c.log.Debug("joined collections", "collection", c.name, "other", other.name, "key", myKey, "matched", joined)
}

// Filter deletes every record not satisfying pred and returns the number removed.
func (c *Collection) Filter(field string, pred Predicate, values ...string) (int, error) {
	var keep func(string) bool
	switch pred {
	case NotEmpty:
		keep = func(v string) bool { return v != "" }
	case Equals:
		if len(values) != 1 {
			return 0, fmt.Errorf("filter %s on %q needs exactly one value, got %d", pred, field, len(values))
		}
		want := values[0]
		keep = func(v string) bool { return v == want }
	case In:
		set := make(map[string]bool, len(values))
		for _, v := range values {
			set[v] = true
		}
		keep = func(v string) bool { return set[v] }
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPredicate, pred)
	}

	removed := 0
	for slot, ok := range c.live {
		if ok && !keep(c.slots[slot][field]) {
			c.Delete(slot)
			removed++
		}
	}
	return removed, nil
}

// Delete removes the record in slot from the collection and every index.
func (c *Collection) Delete(slot int) bool {
	if slot < 0 || slot >= len(c.slots) || !c.live[slot] {
		return false
	}
	c.live[slot] = false
	c.size--
	r := c.slots[slot]
	for field, idx := range c.indexes {
		v := r[field]
		if v == "" {
			continue
		}
		rest := slices.DeleteFunc(idx[v], func(s int) bool { return s == slot })
		if len(rest) == 0 {
			delete(idx, v)
		} else {
			idx[v] = rest
		}
	}
	return true
}

// DeleteKey removes every record whose field equals value and returns how
// many were removed.
func (c *Collection) DeleteKey(field, value string) int {
	if value == "" {
		return 0
	}
	c.IndexBy(field)
	removed := 0
	for _, slot := range slices.Clone(c.indexes[field][value]) {
		if c.Delete(slot) {
			removed++
		}
	}
	return removed
}

// Occurrences counts the distinct non-empty values of field.
func (c *Collection) Occurrences(field string) map[string]int {
	out := make(map[string]int)
	for slot, ok := range c.live {
		if !ok {
			continue
		}
		if v := c.slots[slot][field]; v != "" {
			out[v]++
		}
	}
	return out
}

func (c *Collection) dropIndexes() {
	clear(c.indexes)
}
