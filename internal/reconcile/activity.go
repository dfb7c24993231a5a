package reconcile

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/gmvsync/internal/store"
)

// Change activity fields.
const (
	ActivitySubject = "Update durch GMV"
	ActivityStatus  = "Completed"
)

// changeRow is one rendered line of a change activity.
type changeRow struct {
	Label string
	Old   string
	New   string
}

// changeTable renders the details of a change activity.
func changeTable(rows []changeRow) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<table class="gmv-changes"><thead><tr><th>Feld</th><th>Alter Wert</th><th>Neuer Wert</th></tr></thead><tbody>`); err != nil {
			return err
		}
		for _, row := range rows {
			_, err := fmt.Fprintf(w, "<tr><td>%s</td><td>%s</td><td>%s</td></tr>",
				templ.EscapeString(row.Label), templ.EscapeString(row.Old), templ.EscapeString(row.New))
			if err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</tbody></table>`)
		return err
	})
}

// generateChangeActivities writes one activity per changed contact.
func (r *run) generateChangeActivities(ctx context.Context) error {
	typeID := r.opts.ChangeActivityTypeID
	if typeID == 0 {
		r.log.Debug("change activities disabled, no activity type configured", "changed_contacts", r.changes.Len())
		return nil
	}

	for _, contactID := range r.changes.Contacts() {
		changes := r.changes.Changes(contactID)
		rows := make([]changeRow, len(changes))
		for i, c := range changes {
			rows[i] = changeRow{
				Label: r.lookups.Label(ctx, c.Field),
				Old:   r.lookups.Format(ctx, c.Field, c.Old),
				New:   r.lookups.Format(ctx, c.Field, c.New),
			}
		}

		var buf bytes.Buffer
		if err := changeTable(rows).Render(ctx, &buf); err != nil {
			return fmt.Errorf("render change activity: %w", err)
		}

		_, err := r.store.CreateActivity(ctx, store.Activity{
			TypeID:   typeID,
			Subject:  ActivitySubject,
			Status:   ActivityStatus,
			Details:  buf.String(),
			TargetID: contactID,
			Date:     r.opts.Now(),
		})
		if err != nil {
			r.log.Error("cannot create change activity", "contact_id", contactID, "error", err)
			r.count(PhaseActivities, Failed)
			continue
		}
		r.count(PhaseActivities, Created)
	}
	return nil
}
