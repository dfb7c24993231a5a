package reconcile

import (
	"context"
	"slices"

	"github.com/JonMunkholm/gmvsync/internal/entity"
	"github.com/JonMunkholm/gmvsync/internal/store"
)

// syncOrganizations writes the organizations in two passes: first their own
// attributes, then the links to their parent organizations, so that every
// parent exists before it is referenced.
func (r *run) syncOrganizations(ctx context.Context) error {
	fields := slices.DeleteFunc(slices.Clone(entity.OrganizationFields), func(f string) bool {
		return f == "gmv_id" || f == entity.FieldMasterID
	})

	for _, rec := range r.orgs.Records() {
		gmvID := rec["gmv_id"]
		log := r.log.With("gmv_id", gmvID)
		desired := pick(store.Fields(rec), fields)

		id, found, err := r.ids.Resolve(ctx, gmvID, false)
		if err != nil {
			log.Error("cannot resolve organisation", "error", err)
			r.count(PhaseOrganizations, Failed)
			continue
		}

		if found {
			changed, err := r.updateContact(ctx, id, desired)
			if err != nil {
				log.Error("cannot update organisation", "contact_id", id, "error", err)
				r.count(PhaseOrganizations, Failed)
				continue
			}
			if changed {
				log.Debug("organisation updated", "contact_id", id)
				r.count(PhaseOrganizations, Updated)
			} else {
				r.count(PhaseOrganizations, Unchanged)
			}
			continue
		}

		id, err = r.store.CreateContact(ctx, desired)
		if err != nil {
			log.Error("cannot create organisation", "name", rec["organization_name"], "error", err)
			r.count(PhaseOrganizations, Failed)
			continue
		}
		if err := r.ids.Register(ctx, id, gmvID); err != nil {
			log.Error("cannot register organisation", "contact_id", id, "error", err)
			r.count(PhaseOrganizations, Failed)
			continue
		}
		r.newOrgs[id] = true
		log.Debug("organisation created", "contact_id", id, "name", rec["organization_name"])
		r.count(PhaseOrganizations, Created)
	}

	return r.linkOrganizations(ctx)
}

// linkOrganizations stores the parent contact id on every organization.
// Links of organizations created in this run are not change records.
func (r *run) linkOrganizations(ctx context.Context) error {
	for _, rec := range r.orgs.Records() {
		gmvID, parentGmvID := rec["gmv_id"], rec[entity.FieldMasterID]
		log := r.log.With("gmv_id", gmvID)

		id, found, err := r.ids.Resolve(ctx, gmvID, true)
		if err != nil || !found {
			log.Error("cannot link organisation, contact unresolved", "error", err)
			r.count(PhaseOrganizationLinks, Skipped)
			continue
		}

		parent := ""
		if parentGmvID != "" {
			parentID, found, err := r.ids.Resolve(ctx, parentGmvID, true)
			if err != nil || !found {
				log.Error("cannot link organisation, parent unresolved", "parent_gmv_id", parentGmvID, "error", err)
				r.count(PhaseOrganizationLinks, Skipped)
				continue
			}
			parent = formatID(parentID)
		}

		if r.newOrgs[id] {
			if parent == "" {
				r.count(PhaseOrganizationLinks, Unchanged)
				continue
			}
			if err := r.store.UpdateContact(ctx, id, store.Fields{entity.FieldMasterID: parent}); err != nil {
				log.Error("cannot link organisation", "contact_id", id, "error", err)
				r.count(PhaseOrganizationLinks, Failed)
				continue
			}
			r.count(PhaseOrganizationLinks, Updated)
			continue
		}

		changed, err := r.updateContact(ctx, id, store.Fields{entity.FieldMasterID: parent})
		switch {
		case err != nil:
			log.Error("cannot link organisation", "contact_id", id, "error", err)
			r.count(PhaseOrganizationLinks, Failed)
		case changed:
			log.Debug("organisation parent changed", "contact_id", id, "parent", parent)
			r.count(PhaseOrganizationLinks, Updated)
		default:
			r.count(PhaseOrganizationLinks, Unchanged)
		}
	}
	return nil
}
