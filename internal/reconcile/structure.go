package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/gmvsync/internal/entity"
	"github.com/JonMunkholm/gmvsync/internal/store"
)

// syncStructures makes sure the contact sub types, the identity type, the
// job option list and (with employments enabled) the employment
// relationship type exist before any record is written.
func (r *run) syncStructures(ctx context.Context) error {
	for _, name := range entity.OrgSubTypes {
		if err := r.ensureContactType(ctx, name); err != nil {
			return fmt.Errorf("%w: contact type %s: %v", ErrStructural, name, err)
		}
	}

	if err := r.ensureIdentityType(ctx); err != nil {
		return fmt.Errorf("%w: identity type %s: %v", ErrStructural, r.opts.IdentityType, err)
	}

	if r.lists.Occupations.Len() == 0 {
		r.log.Warn("occupation list empty, job option list left as is", "group", store.GroupEmployeeJob)
	} else {
		res, err := r.lists.Occupations.SyncToOptionGroup(ctx, r.store, store.GroupEmployeeJob, store.GroupEmployeeJobName, r.opts.OrphanPolicy)
		if err != nil {
			return fmt.Errorf("%w: option group %s: %v", ErrStructural, store.GroupEmployeeJob, err)
		}
		r.log.Info("job option list synchronised", "group", store.GroupEmployeeJob,
			"created", res.Created, "updated", res.Updated, "unchanged", res.Unchanged,
			"disabled", res.Disabled, "deleted", res.Deleted)
	}

	if r.opts.EmploymentMode == EmploymentOff {
		return nil
	}
	id, err := r.store.RelationshipTypeID(ctx, r.opts.EmploymentRelationship)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: relationship type %q does not exist", ErrStructural, r.opts.EmploymentRelationship)
	case err != nil:
		return fmt.Errorf("%w: relationship type %q: %v", ErrStructural, r.opts.EmploymentRelationship, err)
	}
	r.relTypeID = id
	return nil
}

func (r *run) ensureContactType(ctx context.Context, name string) error {
	types, err := r.store.ListContactTypes(ctx, name)
	if err != nil {
		return err
	}
	switch len(types) {
	case 0:
		id, err := r.store.CreateContactType(ctx, store.ContactType{Name: name, Label: name, Parent: "Organization"})
		if err != nil {
			return err
		}
		r.log.Info("contact sub type created", "name", name, "id", id)
	case 1:
	default:
		r.log.Warn("contact sub type defined more than once", "name", name, "count", len(types))
	}
	return nil
}

func (r *run) ensureIdentityType(ctx context.Context) error {
	if _, err := r.store.OptionGroupID(ctx, store.GroupIdentityType); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if _, err := r.store.CreateOptionGroup(ctx, store.GroupIdentityType, "Contact ID History Type"); err != nil {
			return err
		}
	}

	values, err := r.store.ListOptionValues(ctx, store.GroupIdentityType)
	if err != nil {
		return err
	}
	n := 0
	for _, v := range values {
		if v.Name == r.opts.IdentityType {
			n++
		}
	}
	switch n {
	case 0:
		_, err := r.store.CreateOptionValue(ctx, store.OptionValue{
			Group:    store.GroupIdentityType,
			Value:    r.opts.IdentityType,
			Name:     r.opts.IdentityType,
			Label:    "GMV ID",
			IsActive: true,
		})
		if err != nil {
			return err
		}
		r.log.Info("identity type created", "name", r.opts.IdentityType)
	case 1:
	default:
		r.log.Warn("identity type defined more than once", "name", r.opts.IdentityType, "count", n)
	}
	return nil
}
