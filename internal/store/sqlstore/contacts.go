package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/JonMunkholm/gmvsync/internal/store"
)

const entityContact = "contact"

// CreateContact implements store.Contacts.
func (s *Store) CreateContact(ctx context.Context, f store.Fields) (int64, error) {
	core, custom, err := s.split(ctx, f, store.ContactColumns, true)
	if err != nil {
		return 0, fmt.Errorf("create contact: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("create contact: %w", err)
	}
	defer tx.Rollback()

	cols := append(core, "is_deleted")
	id, err := s.insert(ctx, tx, "contact", cols, append(values(f, core), false))
	if err != nil {
		return 0, fmt.Errorf("create contact: %w", err)
	}
	if err := setCustom(ctx, tx, entityContact, id, f, custom); err != nil {
		return 0, fmt.Errorf("create contact: custom values: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("create contact: %w", err)
	}
	return id, nil
}

// UpdateContact implements store.Contacts.
func (s *Store) UpdateContact(ctx context.Context, id int64, f store.Fields) error {
	core, custom, err := s.split(ctx, f, store.ContactColumns, true)
	if err != nil {
		return fmt.Errorf("update contact %d: %w", id, err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update contact %d: %w", id, err)
	}
	defer tx.Rollback()

	if len(core) > 0 {
		if err := update(ctx, tx, "contact", id, core, values(f, core)); err != nil {
			return fmt.Errorf("update contact %d: %w", id, err)
		}
	}
	if err := setCustom(ctx, tx, entityContact, id, f, custom); err != nil {
		return fmt.Errorf("update contact %d: custom values: %w", id, err)
	}
	return tx.Commit()
}

// GetContact implements store.Contacts. NULL columns are left out.
func (s *Store) GetContact(ctx context.Context, id int64, fields []string) (store.Fields, error) {
	var core, custom []string
	for _, name := range fields {
		switch {
		case slices.Contains(store.ContactColumns, name):
			core = append(core, name)
		case store.IsCustom(name):
			custom = append(custom, name)
		default:
			return nil, fmt.Errorf("get contact %d: %w: %s", id, store.ErrUnknownField, name)
		}
	}

	cols := append([]string{"id"}, core...)
	dest := make([]any, len(cols))
	var got int64
	dest[0] = &got
	vals := make([]sql.NullString, len(core))
	for i := range core {
		dest[i+1] = &vals[i]
	}
	query := fmt.Sprintf("SELECT %s FROM contact WHERE id = ?", strings.Join(cols, ", "))
	if err := s.db.QueryRowxContext(ctx, s.db.Rebind(query), id).Scan(dest...); err != nil {
		return nil, notFound(err, fmt.Sprintf("get contact %d", id))
	}

	out := store.Fields{"id": strconv.FormatInt(id, 10)}
	for i, name := range core {
		if vals[i].Valid {
			out[name] = vals[i].String
		}
	}
	if len(custom) > 0 {
		cv, err := s.getCustom(ctx, entityContact, []int64{id}, custom)
		if err != nil {
			return nil, fmt.Errorf("get contact %d: custom values: %w", id, err)
		}
		for k, v := range cv[id] {
			out[k] = v
		}
	}
	return out, nil
}

// FindContacts implements store.Contacts.
func (s *Store) FindContacts(ctx context.Context, criteria store.Fields) ([]int64, error) {
	names := make([]string, 0, len(criteria))
	for name := range criteria {
		names = append(names, name)
	}
	sort.Strings(names)

	where := []string{"c.is_deleted = ?"}
	args := []any{false}
	for _, name := range names {
		v := criteria[name]
		switch {
		case name == "email":
			where = append(where, "EXISTS (SELECT 1 FROM email e WHERE e.contact_id = c.id AND LOWER(e.email) = LOWER(?))")
		case name == "phone":
			where = append(where, "EXISTS (SELECT 1 FROM phone p WHERE p.contact_id = c.id AND p.phone = ?)")
		case slices.Contains(store.ContactColumns, name):
			where = append(where, "c."+name+" = ?")
		case store.IsCustom(name):
			where = append(where, "EXISTS (SELECT 1 FROM custom_value cv WHERE cv.entity = 'contact' AND cv.entity_id = c.id AND cv.field = ? AND cv.value = ?)")
			args = append(args, name)
		default:
			return nil, fmt.Errorf("find contacts: %w: %s", store.ErrUnknownField, name)
		}
		args = append(args, v)
	}

	query := "SELECT c.id FROM contact c WHERE " + strings.Join(where, " AND ") + " ORDER BY c.id"
	var ids []int64
	if err := s.db.SelectContext(ctx, &ids, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("find contacts: %w", err)
	}
	return ids, nil
}

// ListIdentities implements store.Identities.
func (s *Store) ListIdentities(ctx context.Context, typ string) ([]store.Identity, error) {
	var rows []struct {
		ContactID  int64  `db:"contact_id"`
		Type       string `db:"identifier_type"`
		Identifier string `db:"identifier"`
	}
	query := "SELECT contact_id, identifier_type, identifier FROM contact_identity WHERE identifier_type = ? ORDER BY id"
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), typ); err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}

	out := make([]store.Identity, len(rows))
	for i, r := range rows {
		out[i] = store.Identity{ContactID: r.ContactID, Type: r.Type, Identifier: r.Identifier}
	}
	return out, nil
}

// FindByIdentity implements store.Identities.
func (s *Store) FindByIdentity(ctx context.Context, typ, identifier string) ([]int64, error) {
	var ids []int64
	query := "SELECT contact_id FROM contact_identity WHERE identifier_type = ? AND identifier = ? ORDER BY id"
	if err := s.db.SelectContext(ctx, &ids, s.db.Rebind(query), typ, identifier); err != nil {
		return nil, fmt.Errorf("find by identity: %w", err)
	}
	return ids, nil
}

// AddIdentity implements store.Identities.
func (s *Store) AddIdentity(ctx context.Context, contactID int64, typ, identifier string) error {
	cols := []string{"contact_id", "identifier_type", "identifier"}
	if _, err := s.insert(ctx, s.db, "contact_identity", cols, []any{contactID, typ, identifier}); err != nil {
		return fmt.Errorf("add identity: %w", err)
	}
	return nil
}
