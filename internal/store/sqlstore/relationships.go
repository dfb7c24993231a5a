package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/JonMunkholm/gmvsync/internal/store"
)

const entityRelationship = "relationship"

var relationshipColumns = []string{"start_date", "end_date"}

// RelationshipTypeID implements store.Relationships.
func (s *Store) RelationshipTypeID(ctx context.Context, nameAB string) (int64, error) {
	var ids []int64
	query := "SELECT id FROM relationship_type WHERE name_a_b = ? ORDER BY id"
	if err := s.db.SelectContext(ctx, &ids, s.db.Rebind(query), nameAB); err != nil {
		return 0, fmt.Errorf("relationship type %q: %w", nameAB, err)
	}
	switch len(ids) {
	case 0:
		return 0, fmt.Errorf("relationship type %q: %w", nameAB, store.ErrNotFound)
	case 1:
		return ids[0], nil
	default:
		return 0, fmt.Errorf("relationship type %q: %w", nameAB, store.ErrAmbiguous)
	}
}

// ListRelationships implements store.Relationships.
func (s *Store) ListRelationships(ctx context.Context, typeID int64) ([]store.Relationship, error) {
	var rows []struct {
		ID        int64          `db:"id"`
		TypeID    int64          `db:"relationship_type_id"`
		ContactA  int64          `db:"contact_id_a"`
		ContactB  int64          `db:"contact_id_b"`
		IsActive  bool           `db:"is_active"`
		StartDate sql.NullString `db:"start_date"`
		EndDate   sql.NullString `db:"end_date"`
	}
	query := `SELECT id, relationship_type_id, contact_id_a, contact_id_b, is_active, start_date, end_date
		FROM relationship WHERE relationship_type_id = ? ORDER BY id`
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), typeID); err != nil {
		return nil, fmt.Errorf("list relationships: %w", err)
	}

	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	custom, err := s.getCustom(ctx, entityRelationship, ids, nil)
	if err != nil {
		return nil, fmt.Errorf("list relationships: custom values: %w", err)
	}

	out := make([]store.Relationship, len(rows))
	for i, r := range rows {
		f := store.Fields{}
		if r.StartDate.Valid {
			f["start_date"] = r.StartDate.String
		}
		if r.EndDate.Valid {
			f["end_date"] = r.EndDate.String
		}
		for k, v := range custom[r.ID] {
			f[k] = v
		}
		out[i] = store.Relationship{
			ID:       r.ID,
			TypeID:   r.TypeID,
			ContactA: r.ContactA,
			ContactB: r.ContactB,
			IsActive: r.IsActive,
			Fields:   f,
		}
	}
	return out, nil
}

// CreateRelationship implements store.Relationships.
func (s *Store) CreateRelationship(ctx context.Context, r store.Relationship) (int64, error) {
	core, custom, err := s.split(ctx, r.Fields, relationshipColumns, true)
	if err != nil {
		return 0, fmt.Errorf("create relationship: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("create relationship: %w", err)
	}
	defer tx.Rollback()

	cols := append([]string{"relationship_type_id", "contact_id_a", "contact_id_b", "is_active"}, core...)
	args := append([]any{r.TypeID, r.ContactA, r.ContactB, r.IsActive}, values(r.Fields, core)...)
	id, err := s.insert(ctx, tx, "relationship", cols, args)
	if err != nil {
		return 0, fmt.Errorf("create relationship: %w", err)
	}
	if err := setCustom(ctx, tx, entityRelationship, id, r.Fields, custom); err != nil {
		return 0, fmt.Errorf("create relationship: custom values: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("create relationship: %w", err)
	}
	return id, nil
}

// UpdateRelationship implements store.Relationships.
func (s *Store) UpdateRelationship(ctx context.Context, id int64, f store.Fields) error {
	active, setActive := f[store.FieldActive]
	f = f.Clone()
	delete(f, store.FieldActive)
	core, custom, err := s.split(ctx, f, relationshipColumns, true)
	if err != nil {
		return fmt.Errorf("update relationship %d: %w", id, err)
	}
	args := values(f, core)
	if setActive {
		core = append(core, "is_active")
		args = append(args, active == "1")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update relationship %d: %w", id, err)
	}
	defer tx.Rollback()

	if err := update(ctx, tx, "relationship", id, core, args); err != nil {
		return fmt.Errorf("update relationship %d: %w", id, err)
	}
	if err := setCustom(ctx, tx, entityRelationship, id, f, custom); err != nil {
		return fmt.Errorf("update relationship %d: custom values: %w", id, err)
	}
	return tx.Commit()
}

// CreateActivity implements store.Activities.
func (s *Store) CreateActivity(ctx context.Context, a store.Activity) (int64, error) {
	cols := []string{"activity_type_id", "subject", "status", "details", "target_contact_id", "activity_date_time"}
	args := []any{a.TypeID, a.Subject, a.Status, a.Details, a.TargetID, a.Date.UTC().Format("2006-01-02 15:04:05")}
	id, err := s.insert(ctx, s.db, "activity", cols, args)
	if err != nil {
		return 0, fmt.Errorf("create activity: %w", err)
	}
	return id, nil
}
