package reconcile

import (
	"context"
	"fmt"
	"slices"

	"github.com/JonMunkholm/gmvsync/internal/entity"
	"github.com/JonMunkholm/gmvsync/internal/store"
)

// detailSpec describes how one kind of contact detail is reconciled.
type detailSpec struct {
	phase string
	kind  store.DetailKind
	src   *entity.Collection

	// key is the natural key wanted details are deduplicated by.
	key []string
	// tiers is the match order, most specific first.
	tiers [][]string
	// compare are the attributes whose difference triggers an update.
	compare []string
	update  []string
	create  []string
	primary bool
	match   matchOptions

	// label names the main value in change records; display renders it.
	label   string
	display func(store.Fields) string
	shown   []string
}

func mainValue(field string) func(store.Fields) string {
	return func(f store.Fields) string { return f[field] }
}

func (r *run) syncEmails(ctx context.Context) error {
	return r.syncDetails(ctx, detailSpec{
		phase:   PhaseEmails,
		kind:    store.KindEmail,
		src:     r.emails.Collection,
		key:     []string{"email"},
		tiers:   [][]string{{"email", "location_type_id", "is_primary"}, {"email", "location_type_id"}, {"email"}},
		compare: []string{"email", "location_type_id", "is_primary"},
		update:  []string{"email", "is_primary", "location_type_id"},
		create:  []string{"email", "is_primary", "location_type_id"},
		primary: true,
		match:   matchOptions{caseless: map[string]bool{"email": true}},
		label:   "email",
		display: mainValue("email"),
		shown:   []string{"email"},
	})
}

func (r *run) syncPhones(ctx context.Context) error {
	return r.syncDetails(ctx, detailSpec{
		phase: PhasePhones,
		kind:  store.KindPhone,
		src:   r.phones.Collection,
		key:   []string{"phone"},
		tiers: [][]string{
			{"phone", "location_type_id", "phone_type_id"},
			{"phone", "phone_type_id"},
			{"phone", "location_type_id"},
			{"phone"},
		},
		compare: []string{"phone", "location_type_id", "phone_type_id"},
		update:  []string{"phone", "phone_type_id", "location_type_id"},
		create:  []string{"phone", "phone_type_id", "is_primary", "location_type_id"},
		primary: true,
		label:   "phone",
		display: mainValue("phone"),
		shown:   []string{"phone"},
	})
}

func (r *run) syncAddresses(ctx context.Context) error {
	located := []string{"street_address", "postal_code", "city", "supplemental_address_1"}
	return r.syncDetails(ctx, detailSpec{
		phase:   PhaseAddresses,
		kind:    store.KindAddress,
		src:     r.addresses.Collection,
		key:     []string{"street_address", "postal_code"},
		tiers:   [][]string{append(slices.Clone(located), "location_type_id"), located},
		compare: append(slices.Clone(located), "country_id", "location_type_id"),
		update: []string{
			"street_address", "postal_code", "city", "supplemental_address_1",
			"country_id", "geo_code_1", "geo_code_2", "location_type_id",
		},
		create: []string{
			"street_address", "postal_code", "city", "supplemental_address_1",
			"country_id", "geo_code_1", "geo_code_2", "is_primary", "location_type_id",
		},
		primary: true,
		label:   "address",
		display: func(f store.Fields) string { return entity.FormatAddress(f) },
		shown:   []string{"street_address", "postal_code", "city"},
	})
}

func (r *run) syncWebsites(ctx context.Context) error {
	return r.syncDetails(ctx, detailSpec{
		phase:   PhaseWebsites,
		kind:    store.KindWebsite,
		src:     r.websites.Collection,
		key:     []string{"url"},
		tiers:   [][]string{{"url", "location_type_id"}, {"url"}},
		compare: []string{"url", "location_type_id"},
		update:  []string{"url", "location_type_id"},
		create:  []string{"url", "location_type_id"},
		label:   "url",
		display: mainValue("url"),
		shown:   []string{"url"},
	})
}

// syncDetails pairs the wanted details of every imported contact with its
// existing ones. Paired details are updated when they differ, unpaired
// wanted details are created and unpaired existing details are left alone.
func (r *run) syncDetails(ctx context.Context, spec detailSpec) error {
	existing, err := r.store.TrackedDetails(ctx, spec.kind, r.opts.IdentityType)
	if err != nil {
		return fmt.Errorf("load existing %s details: %w", spec.kind, err)
	}

	var order []int64
	wanted := make(map[int64][]store.Fields)
	for _, rec := range spec.src.Records() {
		gmvID := rec["contact_id"]
		id, found, err := r.ids.Resolve(ctx, gmvID, true)
		if err != nil {
			r.log.Error("cannot resolve detail owner", "kind", spec.kind, "gmv_id", gmvID, "error", err)
			r.count(spec.phase, Failed)
			continue
		}
		if !found {
			r.log.Debug("detail owner not imported, skipped", "kind", spec.kind, "gmv_id", gmvID)
			r.count(spec.phase, Skipped)
			continue
		}
		if _, ok := wanted[id]; !ok {
			order = append(order, id)
		}
		wanted[id] = append(wanted[id], store.Fields(rec))
	}

	for _, id := range order {
		list := spec.match.removeDuplicates(wanted[id], spec.key)
		if spec.primary {
			fixPrimary(list)
		}
		candidates := slices.Clone(existing[id])

		for _, want := range list {
			idx := -1
			for _, tier := range spec.tiers {
				if idx = spec.match.fetchNextDetail(candidates, want, tier); idx >= 0 {
					break
				}
			}

			if idx < 0 {
				if _, err := r.store.CreateDetail(ctx, spec.kind, id, pick(want, spec.create)); err != nil {
					r.log.Error("cannot create detail", "kind", spec.kind, "gmv_id", want["contact_id"], "contact_id", id, "error", err)
					r.count(spec.phase, Failed)
					continue
				}
				r.recordDetail(id, spec, nil, want, nil)
				r.count(spec.phase, Created)
				continue
			}

			have := candidates[idx]
			candidates = slices.Delete(candidates, idx, idx+1)
			changed := spec.match.diff(want, have.Fields, spec.compare)
			if len(changed) == 0 {
				r.count(spec.phase, Unchanged)
				continue
			}
			if err := r.store.UpdateDetail(ctx, spec.kind, have.ID, pick(want, spec.update)); err != nil {
				r.log.Error("cannot update detail", "kind", spec.kind, "gmv_id", want["contact_id"], "detail_id", have.ID, "error", err)
				r.count(spec.phase, Failed)
				continue
			}
			r.recordDetail(id, spec, have.Fields, want, changed)
			r.count(spec.phase, Updated)
		}
	}
	return nil
}

// recordDetail records a created (old == nil) or updated detail. The main
// value is recorded under "<label> [<location>]", other changed attributes
// under their own name and location.
func (r *run) recordDetail(contactID int64, spec detailSpec, old, want store.Fields, changed []string) {
	if old == nil {
		key := fmt.Sprintf("%s [%s]", spec.label, want["location_type_id"])
		r.changes.Record(contactID, key, "", false, spec.display(want))
		return
	}

	loc := old["location_type_id"]
	if before, after := spec.display(old), spec.display(want); !spec.match.equal(spec.label, before, after) {
		r.changes.Record(contactID, fmt.Sprintf("%s [%s]", spec.label, loc), before, true, after)
	}
	for _, attr := range changed {
		if slices.Contains(spec.shown, attr) {
			continue
		}
		before, set := old[attr]
		r.changes.Record(contactID, fmt.Sprintf("%s [%s]", attr, loc), before, set, want[attr])
	}
}
