// Package store defines the target contact database as seen by the sync
// engine: contacts, their details, the identity tracker, option lists and
// the few lookup tables the engine reads.
//
// Records travel as Fields, a field name to string value bag. Core contact
// columns use their plain names ("first_name"); custom fields are addressed
// as "group.field" ("gmv_data.gmv_data_identifier").
package store

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAmbiguous is returned when a lookup expected to be unique matches
	// more than one record.
	ErrAmbiguous = errors.New("ambiguous match")

	// ErrUnknownField is returned for a field the store cannot persist.
	ErrUnknownField = errors.New("unknown field")
)

// Fields is a field name to value bag.
type Fields map[string]string

// Clone returns a copy of f.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// IsCustom reports whether name addresses a custom field.
func IsCustom(name string) bool {
	return strings.Contains(name, ".")
}

// SplitCustom splits "group.field" into its parts.
func SplitCustom(name string) (group, field string) {
	group, field, _ = strings.Cut(name, ".")
	return group, field
}

// ContactColumns are the core contact fields.
var ContactColumns = []string{
	"contact_type", "contact_sub_type",
	"first_name", "last_name", "birth_date", "gender_id", "prefix_id",
	"job_title", "formal_title",
	"organization_name", "note", "employer_id",
}

// DetailKind names a contact detail table.
type DetailKind string

const (
	KindEmail   DetailKind = "email"
	KindPhone   DetailKind = "phone"
	KindAddress DetailKind = "address"
	KindWebsite DetailKind = "website"
)

// DetailColumns lists the persisted fields of each detail kind.
var DetailColumns = map[DetailKind][]string{
	KindEmail:   {"email", "is_primary", "location_type_id"},
	KindPhone:   {"phone", "phone_type_id", "is_primary", "location_type_id"},
	KindAddress: {"street_address", "postal_code", "city", "supplemental_address_1", "country_id", "geo_code_1", "geo_code_2", "is_primary", "location_type_id"},
	KindWebsite: {"url", "location_type_id"},
}

// Detail is an existing detail record.
type Detail struct {
	ID        int64
	ContactID int64
	Fields    Fields
}

// Identity links a contact to an external identifier of a given type.
type Identity struct {
	ContactID  int64
	Type       string
	Identifier string
}

// OptionValue is one entry of an option list.
type OptionValue struct {
	ID       int64
	Group    string
	Value    string
	Name     string
	Label    string
	IsActive bool
}

// ContactType is a contact (sub) type definition.
type ContactType struct {
	ID     int64
	Name   string
	Label  string
	Parent string
}

// Country is a country with its localized name.
type Country struct {
	ID   int64
	Name string
}

// LocationType is a detail location type.
type LocationType struct {
	ID          int64
	Name        string
	DisplayName string
}

// CustomField describes a custom field. OptionGroup is set for fields
// backed by an option list.
type CustomField struct {
	Group       string
	Name        string
	Label       string
	OptionGroup string
}

// Key returns "group.name".
func (f CustomField) Key() string {
	return f.Group + "." + f.Name
}

// Relationship links contact A to contact B.
type Relationship struct {
	ID       int64
	TypeID   int64
	ContactA int64
	ContactB int64
	IsActive bool
	Fields   Fields // start_date, end_date and custom fields
}

// FieldActive toggles Relationship.IsActive in UpdateRelationship. The
// value is "1" or "0".
const FieldActive = "is_active"

// Activity is an audit entry attached to a contact.
type Activity struct {
	TypeID   int64
	Subject  string
	Status   string
	Details  string
	TargetID int64
	Date     time.Time
}

// Contacts creates, updates and finds contacts.
type Contacts interface {
	CreateContact(ctx context.Context, f Fields) (int64, error)
	UpdateContact(ctx context.Context, id int64, f Fields) error
	// GetContact returns the requested fields plus "id".
	GetContact(ctx context.Context, id int64, fields []string) (Fields, error)
	// FindContacts returns the ids of live contacts matching every
	// criterion. "email" and "phone" match any detail of the contact,
	// case-insensitively for email.
	FindContacts(ctx context.Context, criteria Fields) ([]int64, error)
}

// Identities is the identity tracker.
type Identities interface {
	ListIdentities(ctx context.Context, typ string) ([]Identity, error)
	FindByIdentity(ctx context.Context, typ, identifier string) ([]int64, error)
	AddIdentity(ctx context.Context, contactID int64, typ, identifier string) error
}

// Details manages emails, phones, addresses and websites.
type Details interface {
	// TrackedDetails returns the details of every contact carrying an
	// identity of identityType, grouped by contact.
	TrackedDetails(ctx context.Context, kind DetailKind, identityType string) (map[int64][]Detail, error)
	CreateDetail(ctx context.Context, kind DetailKind, contactID int64, f Fields) (int64, error)
	UpdateDetail(ctx context.Context, kind DetailKind, id int64, f Fields) error
}

// Options manages option lists.
type Options interface {
	// OptionGroupID returns ErrNotFound for an unknown group.
	OptionGroupID(ctx context.Context, name string) (int64, error)
	CreateOptionGroup(ctx context.Context, name, title string) (int64, error)
	ListOptionValues(ctx context.Context, group string) ([]OptionValue, error)
	CreateOptionValue(ctx context.Context, v OptionValue) (int64, error)
	UpdateOptionValue(ctx context.Context, id int64, label string, active bool) error
	DeleteOptionValue(ctx context.Context, id int64) error
}

// Schema exposes contact types and the lookup tables.
type Schema interface {
	ListContactTypes(ctx context.Context, name string) ([]ContactType, error)
	CreateContactType(ctx context.Context, ct ContactType) (int64, error)
	ListCountries(ctx context.Context) ([]Country, error)
	ListLocationTypes(ctx context.Context) ([]LocationType, error)
	ListCustomFields(ctx context.Context) ([]CustomField, error)
}

// Relationships manages relationships between contacts.
type Relationships interface {
	// RelationshipTypeID resolves a type by its A to B name.
	RelationshipTypeID(ctx context.Context, nameAB string) (int64, error)
	ListRelationships(ctx context.Context, typeID int64) ([]Relationship, error)
	CreateRelationship(ctx context.Context, r Relationship) (int64, error)
	// UpdateRelationship writes f; FieldActive sets the active flag.
	UpdateRelationship(ctx context.Context, id int64, f Fields) error
}

// Activities records audit activities.
type Activities interface {
	CreateActivity(ctx context.Context, a Activity) (int64, error)
}

// Store is the complete target store.
type Store interface {
	Contacts
	Identities
	Details
	Options
	Schema
	Relationships
	Activities
	Ping(ctx context.Context) error
	Close() error
}
