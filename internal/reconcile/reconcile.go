// Package reconcile runs one import: it loads an export folder, brings the
// target store's structures up to date and creates or updates
// organizations, individuals, their details and employments so that the
// store mirrors the export. Field level changes are collected per contact
// and written as change activities at the end of the run.
//
// A run is strictly sequential. Everything a run learns (identity cache,
// collections, lookup caches, change log) lives in a run value that is
// discarded when Run returns.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/JonMunkholm/gmvsync/internal/csv"
	"github.com/JonMunkholm/gmvsync/internal/entity"
	"github.com/JonMunkholm/gmvsync/internal/identity"
	"github.com/JonMunkholm/gmvsync/internal/logging"
	"github.com/JonMunkholm/gmvsync/internal/store"
)

var (
	// ErrStructural marks configuration or structure problems that abort a run.
	ErrStructural = errors.New("structural error")

	// ErrFolderNotFound is returned when the import folder does not exist.
	ErrFolderNotFound = errors.New("import folder not found")
)

// EmploymentMode selects how employments are handled.
type EmploymentMode string

const (
	EmploymentOff    EmploymentMode = "off"
	EmploymentImport EmploymentMode = "import"
	EmploymentSync   EmploymentMode = "sync"
)

// Options configures the engine.
type Options struct {
	XCMProfile             string
	SyncIndividuals        bool
	EmploymentMode         EmploymentMode
	EmploymentRelationship string
	ChangeActivityTypeID   int64
	OrphanPolicy           entity.OrphanPolicy
	IdentityType           string
	IdentifierPrefix       string
	Mappings               entity.Mappings
	CSV                    csv.Options

	// Now stamps run logs and activities; defaults to time.Now.
	Now func() time.Time
}

// Engine runs imports against one target store.
type Engine struct {
	store store.Store
	opts  Options
	log   *slog.Logger
}

// New returns an engine. log is the process logger; every run additionally
// writes to its own log file inside the import folder.
func New(s store.Store, opts Options, log *slog.Logger) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.EmploymentMode == "" {
		opts.EmploymentMode = EmploymentOff
	}
	if opts.OrphanPolicy == "" {
		opts.OrphanPolicy = entity.OrphanIgnore
	}
	if opts.Mappings.TrueFalse == nil {
		opts.Mappings = entity.DefaultMappings(nil)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{store: s, opts: opts, log: log}
}

// run is the state of one import.
type run struct {
	store   store.Store
	opts    Options
	log     *slog.Logger
	src     *entity.Source
	ids     *identity.Resolver
	lookups *lookups
	changes *ChangeLog
	summary *Summary

	lists       entity.Lists
	orgs        *entity.Organizations
	employments *entity.Employments
	addresses   *entity.Addresses
	emails      *entity.Emails
	phones      *entity.Phones
	websites    *entity.Websites
	individuals *entity.Individuals
	matcherSet  *entity.Collection
	relTypeID   int64
	newOrgs     map[int64]bool
}

// Run imports folder. The returned summary is valid even when err is
// non-nil and describes the phases completed so far.
func (e *Engine) Run(ctx context.Context, folder string) (*Summary, error) {
	started := e.opts.Now()
	summary := &Summary{Folder: folder, Started: started}

	if fi, err := os.Stat(folder); err != nil || !fi.IsDir() {
		return summary, fmt.Errorf("%w: %s", ErrFolderNotFound, folder)
	}

	runLog, err := logging.OpenRunLog(folder, e.log, started)
	if err != nil {
		return summary, err
	}
	defer runLog.Close()
	summary.LogPath = runLog.Path
	log := runLog.Logger.With("folder", folder)

	r := &run{
		store:   e.store,
		opts:    e.opts,
		log:     log,
		src:     entity.NewSource(folder, e.opts.CSV, log),
		ids:     identity.New(e.store, e.opts.IdentityType, e.opts.IdentifierPrefix, log),
		changes: NewChangeLog(),
		summary: summary,
		newOrgs: make(map[int64]bool),
	}
	r.lookups = newLookups(e.store, log)

	runsStarted.Inc()
	log.Info("import started")
	err = r.execute(ctx)
	summary.Finished = e.opts.Now()

	if err != nil {
		runsFinished.WithLabelValues("failed").Inc()
		log.Error("import aborted", "error", err, "duration", summary.Finished.Sub(started))
		return summary, err
	}
	runsFinished.WithLabelValues("succeeded").Inc()
	log.Info("import finished", "duration", summary.Finished.Sub(started), "changed_contacts", r.changes.Len())
	return summary, nil
}

func (r *run) execute(ctx context.Context) error {
	if err := r.checkPreconditions(); err != nil {
		return err
	}

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"warm_identity_cache", r.warmIdentities},
		{"load_lists", r.loadLists},
		{"structures", r.syncStructures},
		{"load_organizations", r.loadOrganizations},
		{"load_employments", r.loadEmployments},
		{PhaseOrganizations, r.syncOrganizations},
		{"load_details", r.loadDetails},
		{"load_individuals", r.loadIndividuals},
		{"purge", r.purgeDetails},
		{PhaseIndividuals, r.syncIndividuals},
		{PhaseEmails, r.syncEmails},
		{PhasePhones, r.syncPhones},
		{PhaseAddresses, r.syncAddresses},
		{PhaseWebsites, r.syncWebsites},
		{PhaseEmployments, r.syncEmployments},
		{PhaseActivities, r.generateChangeActivities},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		r.log.Debug("step started", "step", step.name)
		if err := step.fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
		phaseDuration.WithLabelValues(step.name).Observe(time.Since(start).Seconds())
	}
	return nil
}

// checkPreconditions validates the configuration a run depends on.
func (r *run) checkPreconditions() error {
	if r.opts.SyncIndividuals {
		if r.opts.XCMProfile == "" {
			return fmt.Errorf("%w: matcher profile for individuals not set", ErrStructural)
		}
		if _, ok := matcherProfiles[r.opts.XCMProfile]; !ok {
			return fmt.Errorf("%w: unknown matcher profile %q", ErrStructural, r.opts.XCMProfile)
		}
	}
	switch r.opts.EmploymentMode {
	case EmploymentOff, EmploymentImport, EmploymentSync:
	default:
		return fmt.Errorf("%w: unknown employment mode %q", ErrStructural, r.opts.EmploymentMode)
	}
	if r.opts.IdentityType == "" {
		return fmt.Errorf("%w: identity type not set", ErrStructural)
	}
	return nil
}

func (r *run) warmIdentities(ctx context.Context) error {
	_, err := r.ids.Warm(ctx)
	return err
}

func (r *run) loadLists(context.Context) error {
	r.lists = entity.LoadLists(r.src)
	return nil
}

func (r *run) loadOrganizations(context.Context) error {
	r.orgs = entity.LoadOrganizations(r.src)
	return nil
}

func (r *run) loadEmployments(context.Context) error {
	r.employments = entity.LoadEmployments(r.src, r.orgs, r.lists.Occupations)
	return nil
}

func (r *run) loadDetails(ctx context.Context) error {
	countries, err := r.lookups.countryIndex(ctx)
	if err != nil {
		return fmt.Errorf("load countries: %w", err)
	}
	data := entity.LoadAddressData(r.src, countries)
	r.addresses = entity.LoadAddresses(r.src, data, r.opts.Mappings)
	r.emails = entity.LoadEmails(r.src, r.opts.Mappings)
	r.phones = entity.LoadPhones(r.src, r.opts.Mappings)
	r.websites = entity.LoadWebsites(r.src, r.opts.Mappings)
	r.log.Info("contact details loaded",
		"addresses", r.addresses.Len(), "emails", r.emails.Len(),
		"phones", r.phones.Len(), "websites", r.websites.Len())
	return nil
}

func (r *run) loadIndividuals(context.Context) error {
	r.individuals = entity.LoadIndividuals(r.src, r.lists, r.opts.Mappings)
	r.matcherSet = r.individuals.ReconciliationSet(r.addresses, r.emails, r.phones)
	return nil
}

// purgeDetails drops details and employments of contacts that are not part
// of this import.
func (r *run) purgeDetails(context.Context) error {
	keep := make([]string, 0, r.individuals.Len()+r.orgs.Len())
	for id := range r.individuals.Occurrences("gmv_id") {
		keep = append(keep, id)
	}
	for id := range r.orgs.Occurrences("gmv_id") {
		keep = append(keep, id)
	}

	targets := []struct {
		c     *entity.Collection
		field string
	}{
		{r.emails.Collection, "contact_id"},
		{r.phones.Collection, "contact_id"},
		{r.websites.Collection, "contact_id"},
		{r.addresses.Collection, "contact_id"},
		{r.employments.Collection, entity.FieldEmployee},
		{r.employments.Collection, entity.FieldEmployer},
	}
	for _, t := range targets {
		n, err := t.c.Filter(t.field, entity.In, keep...)
		if err != nil {
			return err
		}
		if n > 0 {
			r.log.Info("records of contacts outside the import purged", "collection", t.c.Name(), "field", t.field, "count", n)
		}
	}
	return nil
}

// updateContact writes the fields of desired that differ from the stored
// contact and records each difference.
func (r *run) updateContact(ctx context.Context, id int64, desired store.Fields) (bool, error) {
	names := make([]string, 0, len(desired))
	for name := range desired {
		names = append(names, name)
	}
	current, err := r.store.GetContact(ctx, id, names)
	if err != nil {
		return false, err
	}

	update := store.Fields{}
	var changed []string
	for _, name := range sortedKeys(desired) {
		if have := current[name]; have != desired[name] {
			update[name] = desired[name]
			changed = append(changed, name)
		}
	}
	if len(update) == 0 {
		return false, nil
	}
	if err := r.store.UpdateContact(ctx, id, update); err != nil {
		return false, err
	}
	for _, name := range changed {
		have, set := current[name]
		r.changes.Record(id, name, have, set, desired[name])
	}
	return true, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
