package entity

import "strings"

// WebsiteFields are the target facing fields of a website record.
var WebsiteFields = []string{"contact_id", "url", "location_type_id"}

// Websites holds homepages keyed by owner.
type Websites struct {
	*Collection
}

// LoadWebsites loads homepage.csv. Empty urls are dropped and urls without a
// scheme get "http://".
func LoadWebsites(src *Source, maps Mappings) *Websites {
	mapping := []FieldMap{
		{"owner_id", "contact_id"},
		{"url", "url"},
		{"classification", "location_type_id"},
	}
	log := src.Log.With("file", FileWebsites)
	c := NewCollection("websites", log, src.Load(FileWebsites, sources(mapping)))
	c.RenameKeys(mapping, true)
	c.MapValues("location_type_id", maps.LocationType, "")

	c.Transform(func(r Record) {
		r["url"] = strings.TrimSpace(r["url"])
	})
	if n, _ := c.Filter("url", NotEmpty); n > 0 {
		log.Info("dropped websites without url", "count", n)
	}

	fixed := 0
	c.Transform(func(r Record) {
		if u, ok := NormalizeURL(r["url"]); ok {
			r["url"] = u
			fixed++
		}
	})
	if fixed > 0 {
		log.Info("added missing url scheme", "count", fixed)
	}
	c.Retain(WebsiteFields...)
	c.IndexBy("contact_id")

	return &Websites{Collection: c}
}

// NormalizeURL prefixes "http://" when u has no http or https scheme and
// reports whether it changed u.
func NormalizeURL(u string) (string, bool) {
	lower := strings.ToLower(u)
	if u == "" || strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return u, false
	}
	return "http://" + u, true
}
