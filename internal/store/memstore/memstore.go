// Package memstore is an in-memory store.Store. It carries the default
// reference data and is used by tests and dry runs.
package memstore

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/JonMunkholm/gmvsync/internal/store"
)

// Hook is consulted before every write. A non-nil error aborts the write.
type Hook func(op string, f store.Fields) error

type contact struct {
	fields  store.Fields
	deleted bool
}

// Store is an in-memory target store. It is safe for concurrent use.
type Store struct {
	mu sync.Mutex

	nextID        int64
	contacts      map[int64]*contact
	identities    []store.Identity
	details       map[store.DetailKind]map[int64]*store.Detail
	optionGroups  map[string]int64
	optionValues  map[int64]*store.OptionValue
	contactTypes  []store.ContactType
	countries     []store.Country
	locationTypes []store.LocationType
	customFields  map[string]store.CustomField
	relTypes      map[string]int64
	relationships map[int64]*store.Relationship
	activities    []store.Activity

	hook Hook
}

var _ store.Store = (*Store)(nil)

// New returns a store seeded with the default reference data.
func New() *Store {
	s := &Store{
		nextID:        100,
		contacts:      make(map[int64]*contact),
		details:       make(map[store.DetailKind]map[int64]*store.Detail),
		optionGroups:  make(map[string]int64),
		optionValues:  make(map[int64]*store.OptionValue),
		countries:     slices.Clone(store.DefaultCountries),
		locationTypes: slices.Clone(store.DefaultLocationTypes),
		customFields:  make(map[string]store.CustomField),
		relTypes:      maps.Clone(store.DefaultRelationshipTypes),
		relationships: make(map[int64]*store.Relationship),
	}
	for kind := range store.DetailColumns {
		s.details[kind] = make(map[int64]*store.Detail)
	}
	for _, f := range store.DefaultCustomFields {
		s.customFields[f.Key()] = f
	}
	for _, g := range []string{store.GroupGender, store.GroupPrefix, store.GroupPhoneType, store.GroupIdentityType} {
		s.optionGroups[g] = s.id()
	}
	for _, v := range store.DefaultOptionValues {
		v.ID = s.id()
		s.optionValues[v.ID] = &v
	}
	return s
}

// SetHook installs h; nil removes it.
func (s *Store) SetHook(h Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = h
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) check(op string, f store.Fields) error {
	if s.hook == nil {
		return nil
	}
	return s.hook(op, f)
}

func (s *Store) validContactField(name string) bool {
	if store.IsCustom(name) {
		_, ok := s.customFields[name]
		return ok
	}
	return slices.Contains(store.ContactColumns, name)
}

func validDetailField(kind store.DetailKind, name string) bool {
	return slices.Contains(store.DetailColumns[kind], name)
}

// Ping implements store.Store.
func (s *Store) Ping(context.Context) error { return nil }

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// CreateContact implements store.Contacts.
func (s *Store) CreateContact(_ context.Context, f store.Fields) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check("contact.create", f); err != nil {
		return 0, err
	}
	for name := range f {
		if !s.validContactField(name) {
			return 0, fmt.Errorf("create contact: %w: %s", store.ErrUnknownField, name)
		}
	}
	id := s.id()
	s.contacts[id] = &contact{fields: f.Clone()}
	return id, nil
}

// UpdateContact implements store.Contacts.
func (s *Store) UpdateContact(_ context.Context, id int64, f store.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check("contact.update", f); err != nil {
		return err
	}
	c, ok := s.contacts[id]
	if !ok {
		return fmt.Errorf("update contact %d: %w", id, store.ErrNotFound)
	}
	for name := range f {
		if !s.validContactField(name) {
			return fmt.Errorf("update contact %d: %w: %s", id, store.ErrUnknownField, name)
		}
	}
	maps.Copy(c.fields, f)
	return nil
}

// GetContact implements store.Contacts.
func (s *Store) GetContact(_ context.Context, id int64, fields []string) (store.Fields, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contacts[id]
	if !ok {
		return nil, fmt.Errorf("get contact %d: %w", id, store.ErrNotFound)
	}
	out := store.Fields{"id": fmt.Sprint(id)}
	for _, name := range fields {
		if !s.validContactField(name) {
			return nil, fmt.Errorf("get contact %d: %w: %s", id, store.ErrUnknownField, name)
		}
		if v, ok := c.fields[name]; ok {
			out[name] = v
		}
	}
	return out, nil
}

// FindContacts implements store.Contacts.
func (s *Store) FindContacts(_ context.Context, criteria store.Fields) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []int64
	for id, c := range s.contacts {
		if !c.deleted && s.matches(id, c, criteria) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *Store) matches(id int64, c *contact, criteria store.Fields) bool {
	for name, want := range criteria {
		switch name {
		case "email", "phone":
			kind := store.KindEmail
			if name == "phone" {
				kind = store.KindPhone
			}
			found := false
			for _, d := range s.details[kind] {
				if d.ContactID == id && strings.EqualFold(d.Fields[name], want) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			if c.fields[name] != want {
				return false
			}
		}
	}
	return true
}

// DeleteContact marks a contact deleted. FindContacts skips it.
func (s *Store) DeleteContact(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.contacts[id]; ok {
		c.deleted = true
	}
}

// Contact returns a copy of the stored fields of a contact.
func (s *Store) Contact(id int64) store.Fields {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.contacts[id]; ok {
		return c.fields.Clone()
	}
	return nil
}

// ContactCount returns the number of contacts.
func (s *Store) ContactCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.contacts)
}

// ListIdentities implements store.Identities.
func (s *Store) ListIdentities(_ context.Context, typ string) ([]store.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []store.Identity
	for _, ident := range s.identities {
		if ident.Type == typ {
			out = append(out, ident)
		}
	}
	return out, nil
}

// FindByIdentity implements store.Identities.
func (s *Store) FindByIdentity(_ context.Context, typ, identifier string) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []int64
	for _, ident := range s.identities {
		if ident.Type == typ && ident.Identifier == identifier {
			out = append(out, ident.ContactID)
		}
	}
	return out, nil
}

// AddIdentity implements store.Identities.
func (s *Store) AddIdentity(_ context.Context, contactID int64, typ, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contacts[contactID]; !ok {
		return fmt.Errorf("add identity: contact %d: %w", contactID, store.ErrNotFound)
	}
	s.identities = append(s.identities, store.Identity{ContactID: contactID, Type: typ, Identifier: identifier})
	return nil
}

// TrackedDetails implements store.Details.
func (s *Store) TrackedDetails(_ context.Context, kind store.DetailKind, identityType string) (map[int64][]store.Detail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tracked := make(map[int64]bool)
	for _, ident := range s.identities {
		if ident.Type == identityType {
			tracked[ident.ContactID] = true
		}
	}

	out := make(map[int64][]store.Detail)
	for _, id := range slices.Sorted(maps.Keys(s.details[kind])) {
		d := s.details[kind][id]
		if tracked[d.ContactID] {
			out[d.ContactID] = append(out[d.ContactID], store.Detail{ID: d.ID, ContactID: d.ContactID, Fields: d.Fields.Clone()})
		}
	}
	return out, nil
}

// CreateDetail implements store.Details.
func (s *Store) CreateDetail(_ context.Context, kind store.DetailKind, contactID int64, f store.Fields) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(string(kind)+".create", f); err != nil {
		return 0, err
	}
	if _, ok := s.contacts[contactID]; !ok {
		return 0, fmt.Errorf("create %s: contact %d: %w", kind, contactID, store.ErrNotFound)
	}
	for name := range f {
		if !validDetailField(kind, name) {
			return 0, fmt.Errorf("create %s: %w: %s", kind, store.ErrUnknownField, name)
		}
	}
	id := s.id()
	s.details[kind][id] = &store.Detail{ID: id, ContactID: contactID, Fields: f.Clone()}
	return id, nil
}

// UpdateDetail implements store.Details.
func (s *Store) UpdateDetail(_ context.Context, kind store.DetailKind, id int64, f store.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(string(kind)+".update", f); err != nil {
		return err
	}
	d, ok := s.details[kind][id]
	if !ok {
		return fmt.Errorf("update %s %d: %w", kind, id, store.ErrNotFound)
	}
	for name := range f {
		if !validDetailField(kind, name) {
			return fmt.Errorf("update %s: %w: %s", kind, store.ErrUnknownField, name)
		}
	}
	maps.Copy(d.Fields, f)
	return nil
}

// AddDetail stores a detail without hooks, for seeding.
func (s *Store) AddDetail(kind store.DetailKind, contactID int64, f store.Fields) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.details[kind][id] = &store.Detail{ID: id, ContactID: contactID, Fields: f.Clone()}
	return id
}

// DetailsOf returns the details of a contact ordered by id.
func (s *Store) DetailsOf(kind store.DetailKind, contactID int64) []store.Detail {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []store.Detail
	for _, id := range slices.Sorted(maps.Keys(s.details[kind])) {
		if d := s.details[kind][id]; d.ContactID == contactID {
			out = append(out, store.Detail{ID: d.ID, ContactID: d.ContactID, Fields: d.Fields.Clone()})
		}
	}
	return out
}

// OptionGroupID implements store.Options.
func (s *Store) OptionGroupID(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.optionGroups[name]
	if !ok {
		return 0, fmt.Errorf("option group %q: %w", name, store.ErrNotFound)
	}
	return id, nil
}

// CreateOptionGroup implements store.Options.
func (s *Store) CreateOptionGroup(_ context.Context, name, _ string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.optionGroups[name]; ok {
		return id, nil
	}
	id := s.id()
	s.optionGroups[name] = id
	return id, nil
}

// ListOptionValues implements store.Options.
func (s *Store) ListOptionValues(_ context.Context, group string) ([]store.OptionValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []store.OptionValue
	for _, v := range s.optionValues {
		if v.Group == group {
			out = append(out, *v)
		}
	}
	slices.SortFunc(out, func(a, b store.OptionValue) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// CreateOptionValue implements store.Options.
func (s *Store) CreateOptionValue(_ context.Context, v store.OptionValue) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.optionGroups[v.Group]; !ok {
		return 0, fmt.Errorf("create option value: group %q: %w", v.Group, store.ErrNotFound)
	}
	v.ID = s.id()
	s.optionValues[v.ID] = &v
	return v.ID, nil
}

// UpdateOptionValue implements store.Options.
func (s *Store) UpdateOptionValue(_ context.Context, id int64, label string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.optionValues[id]
	if !ok {
		return fmt.Errorf("update option value %d: %w", id, store.ErrNotFound)
	}
	v.Label = label
	v.IsActive = active
	return nil
}

// DeleteOptionValue implements store.Options.
func (s *Store) DeleteOptionValue(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.optionValues[id]; !ok {
		return fmt.Errorf("delete option value %d: %w", id, store.ErrNotFound)
	}
	delete(s.optionValues, id)
	return nil
}

// ListContactTypes implements store.Schema.
func (s *Store) ListContactTypes(_ context.Context, name string) ([]store.ContactType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.ContactType
	for _, ct := range s.contactTypes {
		if ct.Name == name {
			out = append(out, ct)
		}
	}
	return out, nil
}

// CreateContactType implements store.Schema.
func (s *Store) CreateContactType(_ context.Context, ct store.ContactType) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ct.ID = s.id()
	s.contactTypes = append(s.contactTypes, ct)
	return ct.ID, nil
}

// ListCountries implements store.Schema.
func (s *Store) ListCountries(context.Context) ([]store.Country, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.countries), nil
}

// ListLocationTypes implements store.Schema.
func (s *Store) ListLocationTypes(context.Context) ([]store.LocationType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.locationTypes), nil
}

// ListCustomFields implements store.Schema.
func (s *Store) ListCustomFields(context.Context) ([]store.CustomField, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.CustomField, 0, len(s.customFields))
	for _, key := range slices.Sorted(maps.Keys(s.customFields)) {
		out = append(out, s.customFields[key])
	}
	return out, nil
}

// RelationshipTypeID implements store.Relationships.
func (s *Store) RelationshipTypeID(_ context.Context, nameAB string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.relTypes[nameAB]
	if !ok {
		return 0, fmt.Errorf("relationship type %q: %w", nameAB, store.ErrNotFound)
	}
	return id, nil
}

// ListRelationships implements store.Relationships.
func (s *Store) ListRelationships(_ context.Context, typeID int64) ([]store.Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Relationship
	for _, id := range slices.Sorted(maps.Keys(s.relationships)) {
		r := s.relationships[id]
		if r.TypeID == typeID {
			c := *r
			c.Fields = r.Fields.Clone()
			out = append(out, c)
		}
	}
	return out, nil
}

// CreateRelationship implements store.Relationships.
func (s *Store) CreateRelationship(_ context.Context, r store.Relationship) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("relationship.create", r.Fields); err != nil {
		return 0, err
	}
	for _, id := range []int64{r.ContactA, r.ContactB} {
		if _, ok := s.contacts[id]; !ok {
			return 0, fmt.Errorf("create relationship: contact %d: %w", id, store.ErrNotFound)
		}
	}
	r.ID = s.id()
	r.Fields = r.Fields.Clone()
	s.relationships[r.ID] = &r
	return r.ID, nil
}

// UpdateRelationship implements store.Relationships.
func (s *Store) UpdateRelationship(_ context.Context, id int64, f store.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("relationship.update", f); err != nil {
		return err
	}
	r, ok := s.relationships[id]
	if !ok {
		return fmt.Errorf("update relationship %d: %w", id, store.ErrNotFound)
	}
	if r.Fields == nil {
		r.Fields = store.Fields{}
	}
	for k, v := range f {
		if k == store.FieldActive {
			r.IsActive = v == "1"
			continue
		}
		r.Fields[k] = v
	}
	return nil
}

// CreateActivity implements store.Activities.
func (s *Store) CreateActivity(_ context.Context, a store.Activity) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contacts[a.TargetID]; !ok {
		return 0, fmt.Errorf("create activity: contact %d: %w", a.TargetID, store.ErrNotFound)
	}
	s.activities = append(s.activities, a)
	return s.id(), nil
}

// Activities returns the recorded activities in creation order.
func (s *Store) Activities() []store.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.activities)
}
