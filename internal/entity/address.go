package entity

import (
	"strings"
	"unicode/utf8"
)

// DefaultCountry is assumed for addresses without a country.
const DefaultCountry = "Deutschland"

// geoCodeWidth is the width of the target geo code columns.
const geoCodeWidth = 14

// CountryCorrections maps abbreviations and misspellings found in the export
// to the localized country name used by the target store.
var CountryCorrections = map[string]string{
	"AUT":         "Österreich",
	"BEL":         "Belgien",
	"CH":          "Schweiz",
	"CHE":         "Schweiz",
	"CZE":         "Tschechien",
	"Deutschlan":  "Deutschland",
	"DNK":         "Dänemark",
	"ESP":         "Spanien",
	"EST":         "Estland",
	"FRA":         "Frankreich",
	"GR":          "Griechenland",
	"GUATEMALA":   "Guatemala",
	"IDN":         "Indien",
	"IRN":         "Iran, Islamische Republik",
	"ISR":         "Israel",
	"LUX":         "Luxemburg",
	"NIEDERLANDE": "Niederlande",
	"NLD":         "Niederlande",
	"NOR":         "Norwegen",
	"SCHWEIZ":     "Schweiz",
	"SPANIEN":     "Spanien",
	"SUI":         "Schweiz",
	"SWE":         "Schweden",
	"USA":         "Vereinigte Staaten",
}

// CountryIndex maps localized country names to target country ids.
type CountryIndex map[string]string

// AddressFields are the target facing fields of an address record.
var AddressFields = []string{
	"contact_id", "is_primary", "location_type_id",
	"street_address", "postal_code", "city", "supplemental_address_1",
	"country_id", "geo_code_1", "geo_code_2",
}

// AddressData holds the address table of the export, keyed by address_id.
type AddressData struct {
	*Collection
}

// LoadAddressData loads address.csv and resolves countries through countries.
func LoadAddressData(src *Source, countries CountryIndex) *AddressData {
	mapping := []FieldMap{
		{"id", "address_id"},
		{"city", "city"},
		{"country", "country_id"},
		{"street", "street_address"},
		{"zip", "postal_code"},
		{"housenumber", "_housenumber"},
		{"latitude", "geo_code_1"},
		{"longitude", "geo_code_2"},
		{"addition", "supplemental_address_1"},
	}
	log := src.Log.With("file", FileAddressData)
	c := NewCollection("address_data", log, src.Load(FileAddressData, sources(mapping)))
	c.RenameKeys(mapping, true)

	unknown := make(map[string]int)
	c.Transform(func(r Record) {
		r["street_address"] = strings.TrimSpace(r["street_address"] + " " + r["_housenumber"])
		r["geo_code_1"] = truncate(r["geo_code_1"], geoCodeWidth)
		r["geo_code_2"] = truncate(r["geo_code_2"], geoCodeWidth)

		name := CorrectCountry(r["country_id"])
		id, ok := countries[name]
		if !ok {
			unknown[name]++
			id = ""
		}
		r["country_id"] = id
	})
	for name, n := range unknown {
		log.Warn("cannot map country", "country", name, "records", n)
	}
	c.DropField("_housenumber")
	c.IndexBy("address_id")

	return &AddressData{Collection: c}
}

// CorrectCountry applies the default country and the spelling corrections.
func CorrectCountry(name string) string {
	if name == "" {
		name = DefaultCountry
	}
	if corrected, ok := CountryCorrections[name]; ok {
		return corrected
	}
	return name
}

// Addresses holds contact addresses: the link table joined with AddressData.
type Addresses struct {
	*Collection
}

// LoadAddresses loads addresses.csv and joins the address data onto it.
func LoadAddresses(src *Source, data *AddressData, maps Mappings) *Addresses {
	mapping := []FieldMap{
		{"id", "contact_address_id"},
		{"owner_id", "contact_id"},
		{"addition", "supplemental_address_1"},
		{"principal", "is_primary"},
		{"address_id", "address_data_id"},
		{"classification", "location_type_id"},
	}
	log := src.Log.With("file", FileAddresses)
	c := NewCollection("addresses", log, src.Load(FileAddresses, sources(mapping)))
	c.RenameKeys(mapping, true)
	c.MapValues("is_primary", maps.TrueFalse, "0")
	c.MapValues("location_type_id", maps.LocationType, "")
	c.Join(data.Collection, "address_data_id", "address_id", nil)
	c.Retain(AddressFields...)
	c.IndexBy("contact_id")

	return &Addresses{Collection: c}
}

// FormatAddress renders an address for change records.
func FormatAddress(r map[string]string) string {
	line := strings.TrimSpace(r["postal_code"] + " " + r["city"])
	switch {
	case r["street_address"] == "":
		return line
	case line == "":
		return r["street_address"]
	default:
		return r["street_address"] + ", " + line
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// sources lists the export columns of a mapping.
func sources(mapping []FieldMap) []string {
	out := make([]string, len(mapping))
	for i, m := range mapping {
		out[i] = m.From
	}
	return out
}
