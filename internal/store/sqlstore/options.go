package sqlstore

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/gmvsync/internal/store"
)

type optionValueRow struct {
	ID       int64  `db:"id"`
	Group    string `db:"group_name"`
	Value    string `db:"value"`
	Name     string `db:"name"`
	Label    string `db:"label"`
	IsActive bool   `db:"is_active"`
}

// OptionGroupID implements store.Options.
func (s *Store) OptionGroupID(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.db.GetContext(ctx, &id, s.db.Rebind("SELECT id FROM option_group WHERE name = ?"), name)
	if err != nil {
		return 0, notFound(err, fmt.Sprintf("option group %q", name))
	}
	return id, nil
}

// CreateOptionGroup implements store.Options.
func (s *Store) CreateOptionGroup(ctx context.Context, name, title string) (int64, error) {
	id, err := s.insert(ctx, s.db, "option_group", []string{"name", "title"}, []any{name, title})
	if err != nil {
		return 0, fmt.Errorf("create option group %q: %w", name, err)
	}
	return id, nil
}

// ListOptionValues implements store.Options.
func (s *Store) ListOptionValues(ctx context.Context, group string) ([]store.OptionValue, error) {
	var rows []optionValueRow
	query := `SELECT v.id, g.name AS group_name, v.value, v.name, v.label, v.is_active
		FROM option_value v JOIN option_group g ON g.id = v.option_group_id
		WHERE g.name = ? ORDER BY v.id`
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), group); err != nil {
		return nil, fmt.Errorf("list option values %q: %w", group, err)
	}

	out := make([]store.OptionValue, len(rows))
	for i, r := range rows {
		out[i] = store.OptionValue(r)
	}
	return out, nil
}

// CreateOptionValue implements store.Options.
func (s *Store) CreateOptionValue(ctx context.Context, v store.OptionValue) (int64, error) {
	groupID, err := s.OptionGroupID(ctx, v.Group)
	if err != nil {
		return 0, fmt.Errorf("create option value: %w", err)
	}
	cols := []string{"option_group_id", "value", "name", "label", "is_active"}
	id, err := s.insert(ctx, s.db, "option_value", cols, []any{groupID, v.Value, v.Name, v.Label, v.IsActive})
	if err != nil {
		return 0, fmt.Errorf("create option value: %w", err)
	}
	return id, nil
}

// UpdateOptionValue implements store.Options.
func (s *Store) UpdateOptionValue(ctx context.Context, id int64, label string, active bool) error {
	if err := update(ctx, s.db, "option_value", id, []string{"label", "is_active"}, []any{label, active}); err != nil {
		return fmt.Errorf("update option value %d: %w", id, err)
	}
	return nil
}

// DeleteOptionValue implements store.Options.
func (s *Store) DeleteOptionValue(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM option_value WHERE id = ?"), id); err != nil {
		return fmt.Errorf("delete option value %d: %w", id, err)
	}
	return nil
}

// ListContactTypes implements store.Schema.
func (s *Store) ListContactTypes(ctx context.Context, name string) ([]store.ContactType, error) {
	var rows []struct {
		ID     int64  `db:"id"`
		Name   string `db:"name"`
		Label  string `db:"label"`
		Parent string `db:"parent"`
	}
	query := "SELECT id, name, label, parent FROM contact_type WHERE name = ? ORDER BY id"
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), name); err != nil {
		return nil, fmt.Errorf("list contact types: %w", err)
	}

	out := make([]store.ContactType, len(rows))
	for i, r := range rows {
		out[i] = store.ContactType(r)
	}
	return out, nil
}

// CreateContactType implements store.Schema.
func (s *Store) CreateContactType(ctx context.Context, ct store.ContactType) (int64, error) {
	id, err := s.insert(ctx, s.db, "contact_type", []string{"name", "label", "parent"}, []any{ct.Name, ct.Label, ct.Parent})
	if err != nil {
		return 0, fmt.Errorf("create contact type %q: %w", ct.Name, err)
	}
	return id, nil
}

// ListCountries implements store.Schema.
func (s *Store) ListCountries(ctx context.Context) ([]store.Country, error) {
	var rows []struct {
		ID   int64  `db:"id"`
		Name string `db:"name"`
	}
	if err := s.db.SelectContext(ctx, &rows, "SELECT id, name FROM country ORDER BY id"); err != nil {
		return nil, fmt.Errorf("list countries: %w", err)
	}

	out := make([]store.Country, len(rows))
	for i, r := range rows {
		out[i] = store.Country(r)
	}
	return out, nil
}

// ListLocationTypes implements store.Schema.
func (s *Store) ListLocationTypes(ctx context.Context) ([]store.LocationType, error) {
	var rows []struct {
		ID          int64  `db:"id"`
		Name        string `db:"name"`
		DisplayName string `db:"display_name"`
	}
	if err := s.db.SelectContext(ctx, &rows, "SELECT id, name, display_name FROM location_type ORDER BY id"); err != nil {
		return nil, fmt.Errorf("list location types: %w", err)
	}

	out := make([]store.LocationType, len(rows))
	for i, r := range rows {
		out[i] = store.LocationType(r)
	}
	return out, nil
}

// ListCustomFields implements store.Schema.
func (s *Store) ListCustomFields(ctx context.Context) ([]store.CustomField, error) {
	var rows []struct {
		Group       string `db:"group_name"`
		Name        string `db:"name"`
		Label       string `db:"label"`
		OptionGroup string `db:"option_group"`
	}
	query := "SELECT group_name, name, label, option_group FROM custom_field ORDER BY group_name, name"
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list custom fields: %w", err)
	}

	out := make([]store.CustomField, len(rows))
	for i, r := range rows {
		out[i] = store.CustomField(r)
	}
	return out, nil
}
