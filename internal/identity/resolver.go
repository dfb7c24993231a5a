// Package identity maps external GMV ids to target contact ids.
//
// The target store tracks identities as (type, identifier) pairs where the
// identifier is the external id with a fixed prefix ("GMV-4711"). The
// resolver caches the mapping by the bare external id. The cache is warmed
// once per run and updated on every registration, so an id registered
// during a run is never looked up in the store again.
package identity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JonMunkholm/gmvsync/internal/store"
)

// Resolver resolves external ids. It belongs to a single run and a single
// target store.
type Resolver struct {
	store  store.Identities
	typ    string
	prefix string
	log    *slog.Logger

	cache     map[string]int64
	ambiguous map[string][]int64
	missed    map[string]bool
}

// New returns an empty resolver for identities of type typ.
func New(s store.Identities, typ, prefix string, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		store:     s,
		typ:       typ,
		prefix:    prefix,
		log:       log,
		cache:     make(map[string]int64),
		ambiguous: make(map[string][]int64),
		missed:    make(map[string]bool),
	}
}

// Identifier returns the tracked identifier of an external id.
func (r *Resolver) Identifier(extID string) string {
	return r.prefix + extID
}

// Warm loads every tracked identity of the resolver's type. Identifiers
// without the prefix are skipped; an external id tracked for several
// contacts is marked ambiguous and never resolves.
func (r *Resolver) Warm(ctx context.Context) (int, error) {
	idents, err := r.store.ListIdentities(ctx, r.typ)
	if err != nil {
		return 0, fmt.Errorf("warm identity cache: %w", err)
	}

	for _, ident := range idents {
		extID, ok := strings.CutPrefix(ident.Identifier, r.prefix)
		if !ok || extID == "" {
			r.log.Warn("identity without expected prefix ignored", "identifier", ident.Identifier, "contact_id", ident.ContactID)
			continue
		}
		if ids, ok := r.ambiguous[extID]; ok {
			r.ambiguous[extID] = append(ids, ident.ContactID)
			continue
		}
		if prev, ok := r.cache[extID]; ok {
			if prev == ident.ContactID {
				continue
			}
			delete(r.cache, extID)
			r.ambiguous[extID] = []int64{prev, ident.ContactID}
			continue
		}
		r.cache[extID] = ident.ContactID
	}

	for extID, ids := range r.ambiguous {
		r.log.Warn("external id tracked for several contacts", "gmv_id", extID, "contact_ids", ids)
	}
	r.log.Info("identity cache warmed", "identities", len(r.cache), "ambiguous", len(r.ambiguous))
	return len(r.cache), nil
}

// Resolve returns the contact id of extID. With cacheOnly a cache miss is
// final; otherwise the store is asked once and the answer cached. An
// ambiguous id returns an error wrapping store.ErrAmbiguous.
func (r *Resolver) Resolve(ctx context.Context, extID string, cacheOnly bool) (int64, bool, error) {
	if extID == "" {
		return 0, false, nil
	}
	if id, ok := r.cache[extID]; ok {
		return id, true, nil
	}
	if ids, ok := r.ambiguous[extID]; ok {
		return 0, false, fmt.Errorf("gmv id %s maps to contacts %v: %w", extID, ids, store.ErrAmbiguous)
	}
	if cacheOnly || r.missed[extID] {
		return 0, false, nil
	}

	ids, err := r.store.FindByIdentity(ctx, r.typ, r.Identifier(extID))
	if err != nil {
		return 0, false, fmt.Errorf("resolve gmv id %s: %w", extID, err)
	}
	switch len(ids) {
	case 0:
		r.missed[extID] = true
		return 0, false, nil
	case 1:
		r.cache[extID] = ids[0]
		return ids[0], true, nil
	default:
		r.ambiguous[extID] = ids
		r.log.Warn("external id tracked for several contacts", "gmv_id", extID, "contact_ids", ids)
		return 0, false, fmt.Errorf("gmv id %s maps to contacts %v: %w", extID, ids, store.ErrAmbiguous)
	}
}

// Register tracks extID for a newly created contact.
func (r *Resolver) Register(ctx context.Context, contactID int64, extID string) error {
	if existing, ok := r.cache[extID]; ok && existing != contactID {
		return fmt.Errorf("gmv id %s already registered for contact %d: %w", extID, existing, store.ErrAmbiguous)
	}
	if err := r.store.AddIdentity(ctx, contactID, r.typ, r.Identifier(extID)); err != nil {
		return fmt.Errorf("register gmv id %s: %w", extID, err)
	}
	r.cache[extID] = contactID
	delete(r.missed, extID)
	return nil
}

// Len returns the number of cached mappings.
func (r *Resolver) Len() int {
	return len(r.cache)
}
