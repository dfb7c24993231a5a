package reconcile

import (
	"context"
	"slices"

	"github.com/JonMunkholm/gmvsync/internal/entity"
	"github.com/JonMunkholm/gmvsync/internal/store"
)

// matcherProfiles are the criteria used to find an existing contact for an
// individual that is not tracked yet. Every criterion must be non-empty.
var matcherProfiles = map[string][]string{
	"default":    {"first_name", "last_name", "email"},
	"email":      {"email"},
	"name_birth": {"first_name", "last_name", "birth_date"},
}

// MatcherProfiles returns the names of the known matcher profiles.
func MatcherProfiles() []string {
	return sortedKeys(matcherProfiles)
}

func individualCoreFields() []string {
	return slices.DeleteFunc(slices.Clone(entity.IndividualFields), func(f string) bool { return f == "gmv_id" })
}

// syncIndividuals links every individual to a contact, creating the ones
// that cannot be found, and then brings the core fields up to date.
func (r *run) syncIndividuals(ctx context.Context) error {
	if !r.opts.SyncIndividuals {
		r.log.Info("individuals sync disabled")
		return nil
	}
	core := individualCoreFields()

	for _, rec := range r.matcherSet.Records() {
		gmvID := rec["gmv_id"]
		log := r.log.With("gmv_id", gmvID)

		_, found, err := r.ids.Resolve(ctx, gmvID, false)
		if err != nil {
			log.Error("cannot resolve individual", "error", err)
			r.count(PhaseMatcher, Failed)
			continue
		}
		if found {
			r.count(PhaseMatcher, Unchanged)
			continue
		}

		id, err := r.matchContact(ctx, store.Fields(rec))
		if err != nil {
			log.Error("cannot match individual", "error", err)
			r.count(PhaseMatcher, Failed)
			continue
		}
		outcome := Updated
		if id == 0 {
			if id, err = r.createIndividual(ctx, store.Fields(rec), core); err != nil {
				log.Error("cannot create individual", "error", err)
				r.count(PhaseMatcher, Failed)
				continue
			}
			outcome = Created
		}

		if err := r.ids.Register(ctx, id, gmvID); err != nil {
			log.Error("cannot register individual", "contact_id", id, "error", err)
			r.count(PhaseMatcher, Failed)
			continue
		}
		log.Debug("individual linked", "contact_id", id, "outcome", outcome)
		r.count(PhaseMatcher, outcome)
	}

	for _, rec := range r.individuals.Records() {
		gmvID := rec["gmv_id"]
		id, found, err := r.ids.Resolve(ctx, gmvID, true)
		if err != nil || !found {
			r.log.Warn("individual not linked, skipped", "gmv_id", gmvID, "error", err)
			r.count(PhaseIndividuals, Skipped)
			continue
		}
		changed, err := r.updateContact(ctx, id, pick(store.Fields(rec), core))
		switch {
		case err != nil:
			r.log.Error("cannot update individual", "gmv_id", gmvID, "contact_id", id, "error", err)
			r.count(PhaseIndividuals, Failed)
		case changed:
			r.count(PhaseIndividuals, Updated)
		default:
			r.count(PhaseIndividuals, Unchanged)
		}
	}
	return nil
}

// matchContact returns the existing contact matching rec under the
// configured profile, or 0.
func (r *run) matchContact(ctx context.Context, rec store.Fields) (int64, error) {
	criteria := store.Fields{"contact_type": "Individual"}
	for _, f := range matcherProfiles[r.opts.XCMProfile] {
		if rec[f] == "" {
			return 0, nil
		}
		criteria[f] = rec[f]
	}

	ids, err := r.store.FindContacts(ctx, criteria)
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	if len(ids) > 1 {
		r.log.Warn("several contacts match individual, using the oldest", "gmv_id", rec["gmv_id"], "contact_ids", ids)
	}
	return slices.Min(ids), nil
}

type bundledDetail struct {
	kind store.DetailKind
	f    store.Fields
}

// createIndividual creates the contact together with the details bundled
// in the reconciliation set.
func (r *run) createIndividual(ctx context.Context, rec store.Fields, core []string) (int64, error) {
	id, err := r.store.CreateContact(ctx, pick(rec, core))
	if err != nil {
		return 0, err
	}

	work := entity.LocationTypeMap["0"]
	var bundled []bundledDetail
	add := func(kind store.DetailKind, f store.Fields) {
		f["location_type_id"] = work
		bundled = append(bundled, bundledDetail{kind, f})
	}

	if rec["email"] != "" {
		add(store.KindEmail, store.Fields{"email": rec["email"], "is_primary": "1"})
	}
	if rec["phone"] != "" {
		add(store.KindPhone, store.Fields{"phone": rec["phone"], "is_primary": "1"})
	}
	if rec["phone2"] != "" {
		add(store.KindPhone, store.Fields{"phone": rec["phone2"], "is_primary": "0"})
	}
	if rec["street_address"] != "" || rec["postal_code"] != "" || rec["city"] != "" {
		f := pick(rec, []string{"street_address", "postal_code", "city", "supplemental_address_1", "country_id"})
		f["is_primary"] = "1"
		add(store.KindAddress, f)
	}

	for _, d := range bundled {
		if _, err := r.store.CreateDetail(ctx, d.kind, id, d.f); err != nil {
			r.log.Warn("cannot create bundled detail", "gmv_id", rec["gmv_id"], "contact_id", id, "kind", d.kind, "error", err)
		}
	}
	return id, nil
}
