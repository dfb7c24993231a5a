package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/JonMunkholm/gmvsync/internal/entity"
	"github.com/JonMunkholm/gmvsync/internal/store"
)

// changeLabels are the display names of changed attributes.
var changeLabels = map[string]string{
	"organization_name":      "Organisationsname",
	"first_name":             "Vorname",
	"last_name":              "Nachname",
	"birth_date":             "Geburtsdatum",
	"gender_id":              "Geschlecht",
	"prefix_id":              "Anrede",
	"job_title":              "Berufsbezeichnung",
	"formal_title":           "Titel",
	"city":                   "Stadt",
	"country_id":             "Land",
	"street_address":         "Straße/Hausnummer",
	"postal_code":            "Postleitzahl",
	"supplemental_address_1": "Addresszusatz",
	"address":                "Adresse",
	"email":                  "E-Mail",
	"phone":                  "Telefon",
	"url":                    "Webseite",
	"is_primary":             "Primär?",
	"location_type_id":       "Typ",
	"phone_type_id":          "Telefonart",
	"start_date":             "Beginn",
	"end_date":               "Ende",
	"employer_id":            "Arbeitgeber",
}

// detailKey matches "field [location]" change keys of contact details.
var detailKey = regexp.MustCompile(`^(\S+) \[(\d*)\]$`)

// lookups caches the reference data needed to label and format changes.
// It is owned by a run and filled on first use.
type lookups struct {
	store store.Store
	log   *slog.Logger
	title cases.Caser

	labels       map[string]string
	options      map[string]map[string]string
	countries    map[string]string
	locations    map[string]string
	customFields map[string]store.CustomField
}

func newLookups(s store.Store, log *slog.Logger) *lookups {
	return &lookups{
		store:   s,
		log:     log,
		title:   cases.Title(language.German),
		labels:  make(map[string]string),
		options: make(map[string]map[string]string),
	}
}

// countryIndex returns localized country name to id.
func (l *lookups) countryIndex(ctx context.Context) (entity.CountryIndex, error) {
	if err := l.loadCountries(ctx); err != nil {
		return nil, err
	}
	idx := make(entity.CountryIndex, len(l.countries))
	for id, name := range l.countries {
		idx[name] = id
	}
	return idx, nil
}

func (l *lookups) loadCountries(ctx context.Context) error {
	if l.countries != nil {
		return nil
	}
	countries, err := l.store.ListCountries(ctx)
	if err != nil {
		return err
	}
	l.countries = make(map[string]string, len(countries))
	for _, c := range countries {
		l.countries[formatID(c.ID)] = c.Name
	}
	return nil
}

func (l *lookups) loadLocations(ctx context.Context) error {
	if l.locations != nil {
		return nil
	}
	types, err := l.store.ListLocationTypes(ctx)
	if err != nil {
		return err
	}
	l.locations = make(map[string]string, len(types))
	for _, t := range types {
		name := t.DisplayName
		if name == "" {
			name = t.Name
		}
		l.locations[formatID(t.ID)] = name
	}
	return nil
}

func (l *lookups) customField(ctx context.Context, key string) (store.CustomField, bool) {
	if l.customFields == nil {
		fields, err := l.store.ListCustomFields(ctx)
		if err != nil {
			l.log.Warn("cannot load custom fields", "error", err)
			return store.CustomField{}, false
		}
		l.customFields = make(map[string]store.CustomField, len(fields))
		for _, f := range fields {
			l.customFields[f.Key()] = f
		}
	}
	f, ok := l.customFields[key]
	return f, ok
}

// Label returns the display name of a change key.
func (l *lookups) Label(ctx context.Context, key string) string {
	if label, ok := l.labels[key]; ok {
		return label
	}

	var label string
	if m := detailKey.FindStringSubmatch(key); m != nil {
		label = l.Label(ctx, m[1])
		if loc := l.formatLocation(ctx, m[2]); loc != "" {
			label = fmt.Sprintf("%s (%s)", label, loc)
		}
	} else if known, ok := changeLabels[key]; ok {
		label = known
	} else if store.IsCustom(key) {
		label = key
		if f, ok := l.customField(ctx, key); ok && f.Label != "" {
			label = f.Label
		}
	} else {
		l.log.Warn("no label for changed field", "field", key)
		label = l.title.String(key)
	}

	l.labels[key] = label
	return label
}

// Format returns the display form of a value of field.
func (l *lookups) Format(ctx context.Context, key, value string) string {
	if value == "" {
		return ""
	}
	field := key
	if m := detailKey.FindStringSubmatch(key); m != nil {
		field = m[1]
	}

	switch field {
	case "gender_id":
		return l.optionLabel(ctx, store.GroupGender, value)
	case "prefix_id":
		return l.optionLabel(ctx, store.GroupPrefix, value)
	case "phone_type_id":
		return l.optionLabel(ctx, store.GroupPhoneType, value)
	case "country_id":
		if err := l.loadCountries(ctx); err != nil {
			return value
		}
		if name, ok := l.countries[value]; ok {
			return name
		}
	case "location_type_id":
		return l.formatLocation(ctx, value)
	default:
		if store.IsCustom(field) {
			if f, ok := l.customField(ctx, field); ok && f.OptionGroup != "" {
				return l.optionLabel(ctx, f.OptionGroup, value)
			}
		}
	}
	return value
}

func (l *lookups) formatLocation(ctx context.Context, value string) string {
	if value == "" {
		return ""
	}
	if err := l.loadLocations(ctx); err != nil {
		return value
	}
	if name, ok := l.locations[value]; ok {
		return name
	}
	return value
}

func (l *lookups) optionLabel(ctx context.Context, group, value string) string {
	labels, ok := l.options[group]
	if !ok {
		labels = make(map[string]string)
		values, err := l.store.ListOptionValues(ctx, group)
		if err != nil {
			l.log.Warn("cannot load option group", "group", group, "error", err)
		}
		for _, v := range values {
			labels[v.Value] = v.Label
		}
		l.options[group] = labels
	}
	if label, ok := labels[value]; ok {
		return label
	}
	return value
}
