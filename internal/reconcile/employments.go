package reconcile

import (
	"context"
	"fmt"
	"slices"

	"github.com/JonMunkholm/gmvsync/internal/entity"
	"github.com/JonMunkholm/gmvsync/internal/store"
)

// employmentAttributes are the relationship fields compared in sync mode.
var employmentAttributes = []string{
	"start_date", "end_date", entity.FieldJob,
	"gmv_employee.gmv_employee_designation",
	"gmv_employee.gmv_employee_end_reason",
}

type pair struct{ a, b int64 }

// syncEmployments creates the missing employment relationships. In sync
// mode existing ones are updated as well. Afterwards every linked
// individual without an employer gets its first active employer.
func (r *run) syncEmployments(ctx context.Context) error {
	if r.opts.EmploymentMode == EmploymentOff {
		r.log.Info("employments sync disabled")
		return nil
	}

	rels, err := r.store.ListRelationships(ctx, r.relTypeID)
	if err != nil {
		return fmt.Errorf("load relationships: %w", err)
	}
	existing := make(map[pair][]store.Detail)
	for _, rel := range rels {
		p := pair{rel.ContactA, rel.ContactB}
		existing[p] = append(existing[p], store.Detail{ID: rel.ID, ContactID: rel.ContactA, Fields: rel.Fields})
	}

	var m matchOptions
	tiers := [][]string{{entity.FieldJob}, {}}
	var employees []int64

	for _, rec := range r.employments.Records() {
		want := pick(store.Fields(rec), employmentAttributes)
		log := r.log.With("employee_gmv_id", rec[entity.FieldEmployee], "employer_gmv_id", rec[entity.FieldEmployer])

		a, okA, errA := r.ids.Resolve(ctx, rec[entity.FieldEmployee], true)
		b, okB, errB := r.ids.Resolve(ctx, rec[entity.FieldEmployer], true)
		if !okA || !okB {
			log.Warn("employment skipped, contacts missing", "error_employee", errA, "error_employer", errB)
			r.count(PhaseEmployments, Skipped)
			continue
		}
		if !slices.Contains(employees, a) {
			employees = append(employees, a)
		}

		p := pair{a, b}
		idx := -1
		for _, tier := range tiers {
			if idx = m.fetchNextDetail(existing[p], want, tier); idx >= 0 {
				break
			}
		}

		if idx < 0 {
			_, err := r.store.CreateRelationship(ctx, store.Relationship{
				TypeID:   r.relTypeID,
				ContactA: a,
				ContactB: b,
				IsActive: want["end_date"] == "",
				Fields:   want,
			})
			if err != nil {
				log.Error("cannot create employment", "error", err)
				r.count(PhaseEmployments, Failed)
				continue
			}
			r.count(PhaseEmployments, Created)
			continue
		}

		have := existing[p][idx]
		existing[p] = slices.Delete(existing[p], idx, idx+1)
		if r.opts.EmploymentMode == EmploymentImport {
			r.count(PhaseEmployments, Unchanged)
			continue
		}

		changed := m.diff(want, have.Fields, employmentAttributes)
		if len(changed) == 0 {
			r.count(PhaseEmployments, Unchanged)
			continue
		}
		update := pick(want, changed)
		if slices.Contains(changed, "end_date") {
			update[store.FieldActive] = activeFlag(want["end_date"] == "")
		}
		if err := r.store.UpdateRelationship(ctx, have.ID, update); err != nil {
			log.Error("cannot update employment", "relationship_id", have.ID, "error", err)
			r.count(PhaseEmployments, Failed)
			continue
		}
		for _, attr := range changed {
			before, set := have.Fields[attr]
			r.changes.Record(a, attr, before, set, want[attr])
		}
		r.count(PhaseEmployments, Updated)
	}

	return r.linkEmployers(ctx, employees)
}

func activeFlag(active bool) string {
	if active {
		return "1"
	}
	return "0"
}

// linkEmployers sets employer and organization name of every employee that
// has no employer yet, using the first active employment.
func (r *run) linkEmployers(ctx context.Context, employees []int64) error {
	rels, err := r.store.ListRelationships(ctx, r.relTypeID)
	if err != nil {
		return fmt.Errorf("load relationships: %w", err)
	}
	employer := make(map[int64]int64)
	for _, rel := range rels {
		if _, ok := employer[rel.ContactA]; !ok && rel.IsActive {
			employer[rel.ContactA] = rel.ContactB
		}
	}

	for _, id := range employees {
		org, ok := employer[id]
		if !ok {
			continue
		}
		current, err := r.store.GetContact(ctx, id, []string{"employer_id"})
		if err != nil {
			r.log.Error("cannot read employee", "contact_id", id, "error", err)
			r.count(PhaseEmployers, Failed)
			continue
		}
		if current["employer_id"] != "" {
			r.count(PhaseEmployers, Unchanged)
			continue
		}
		orgFields, err := r.store.GetContact(ctx, org, []string{"organization_name"})
		if err != nil {
			r.log.Error("cannot read employer", "contact_id", org, "error", err)
			r.count(PhaseEmployers, Failed)
			continue
		}
		_, err = r.updateContact(ctx, id, store.Fields{
			"employer_id":       formatID(org),
			"organization_name": orgFields["organization_name"],
		})
		if err != nil {
			r.log.Error("cannot set employer", "contact_id", id, "employer_id", org, "error", err)
			r.count(PhaseEmployers, Failed)
			continue
		}
		r.count(PhaseEmployers, Updated)
	}
	return nil
}
