package entity

import "strings"

// PhoneFields are the target facing fields of a phone record.
var PhoneFields = []string{"contact_id", "phone", "phone_type_id", "location_type_id"}

// Phones holds phone numbers keyed by owner.
type Phones struct {
	*Collection
}

// LoadPhones loads phone.csv and assembles the display number.
func LoadPhones(src *Source, maps Mappings) *Phones {
	mapping := []FieldMap{
		{"owner_id", "contact_id"},
		{"country_code", "_country_code"},
		{"code", "_code"},
		{"number", "_number"},
		{"type", "phone_type_id"},
		{"classification", "location_type_id"},
	}
	log := src.Log.With("file", FilePhones)
	c := NewCollection("phones", log, src.Load(FilePhones, sources(mapping)))
	c.RenameKeys(mapping, true)
	c.Transform(func(r Record) {
		r["phone"] = FormatPhone(r["_country_code"], r["_code"], r["_number"])
	})
	c.MapValues("phone_type_id", maps.PhoneType, "")
	c.MapValues("location_type_id", maps.LocationType, "")
	if n, _ := c.Filter("phone", NotEmpty); n > 0 {
		log.Info("dropped phones without number", "count", n)
	}
	c.Retain(PhoneFields...)
	c.IndexBy("contact_id")

	return &Phones{Collection: c}
}

// FormatPhone renders "+{country} {area} {number}" with the leading "00" of
// the country code and the leading "0" of the area code removed. A row
// without a number yields "".
func FormatPhone(country, area, number string) string {
	number = strings.TrimSpace(number)
	if number == "" {
		return ""
	}
	country = strings.TrimPrefix(strings.TrimSpace(country), "00")
	country = strings.TrimPrefix(country, "+")
	area = strings.TrimPrefix(strings.TrimSpace(area), "0")

	parts := make([]string, 0, 3)
	if country != "" {
		parts = append(parts, "+"+country)
	}
	if area != "" {
		parts = append(parts, area)
	}
	parts = append(parts, number)
	return strings.Join(parts, " ")
}
