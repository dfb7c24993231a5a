package entity

// EmailFields are the target facing fields of an email record.
var EmailFields = []string{"contact_id", "email", "is_primary", "location_type_id"}

// Emails holds email addresses keyed by owner.
type Emails struct {
	*Collection
}

// LoadEmails loads email.csv.
func LoadEmails(src *Source, maps Mappings) *Emails {
	mapping := []FieldMap{
		{"owner_id", "contact_id"},
		{"address", "email"},
		{"principal", "is_primary"},
		{"classification", "location_type_id"},
	}
	log := src.Log.With("file", FileEmails)
	c := NewCollection("emails", log, src.Load(FileEmails, sources(mapping)))
	c.RenameKeys(mapping, true)
	c.MapValues("is_primary", maps.TrueFalse, "0")
	c.MapValues("location_type_id", maps.LocationType, "")
	if n, _ := c.Filter("email", NotEmpty); n > 0 {
		log.Info("dropped emails without address", "count", n)
	}
	c.Retain(EmailFields...)
	c.IndexBy("contact_id")

	return &Emails{Collection: c}
}
