package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/JonMunkholm/gmvsync/internal/store"
)

func detailColumns(kind store.DetailKind) ([]string, error) {
	cols, ok := store.DetailColumns[kind]
	if !ok {
		return nil, fmt.Errorf("unknown detail kind %q", kind)
	}
	return cols, nil
}

// TrackedDetails implements store.Details.
func (s *Store) TrackedDetails(ctx context.Context, kind store.DetailKind, identityType string) (map[int64][]store.Detail, error) {
	cols, err := detailColumns(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		"SELECT id, contact_id, %s FROM %s WHERE contact_id IN (SELECT contact_id FROM contact_identity WHERE identifier_type = ?) ORDER BY id",
		strings.Join(cols, ", "), kind,
	)
	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(query), identityType)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer rows.Close()

	out := make(map[int64][]store.Detail)
	for rows.Next() {
		var d store.Detail
		vals := make([]sql.NullString, len(cols))
		dest := []any{&d.ID, &d.ContactID}
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("list %s: %w", kind, err)
		}
		d.Fields = store.Fields{}
		for i, c := range cols {
			if vals[i].Valid {
				d.Fields[c] = vals[i].String
			}
		}
		out[d.ContactID] = append(out[d.ContactID], d)
	}
	return out, rows.Err()
}

// CreateDetail implements store.Details.
func (s *Store) CreateDetail(ctx context.Context, kind store.DetailKind, contactID int64, f store.Fields) (int64, error) {
	cols, err := detailColumns(kind)
	if err != nil {
		return 0, err
	}
	core, _, err := s.split(ctx, f, cols, false)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", kind, err)
	}

	id, err := s.insert(ctx, s.db, string(kind), append([]string{"contact_id"}, core...), append([]any{contactID}, values(f, core)...))
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", kind, err)
	}
	return id, nil
}

// UpdateDetail implements store.Details.
func (s *Store) UpdateDetail(ctx context.Context, kind store.DetailKind, id int64, f store.Fields) error {
	cols, err := detailColumns(kind)
	if err != nil {
		return err
	}
	core, _, err := s.split(ctx, f, cols, false)
	if err != nil {
		return fmt.Errorf("update %s %d: %w", kind, id, err)
	}
	if err := update(ctx, s.db, string(kind), id, core, values(f, core)); err != nil {
		return fmt.Errorf("update %s %d: %w", kind, id, err)
	}
	return nil
}
