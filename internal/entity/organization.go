package entity

import (
	"regexp"
)

// OrgType classifies an organization by its identifier.
type OrgType int

const (
	OrgUnknown      OrgType = iota
	OrgTopLevel             // the church itself, identifier "A1"
	OrgDistrict             // Kirchenkreis, 6 digits
	OrgCongregation         // Kirchengemeinde, 8 digits
	OrgParishPost           // Pfarrstelle, 10 digits
)

// TopLevelIdentifier marks the top-level institution.
const TopLevelIdentifier = "A1"

// MaxOrganizationName is the width of the target organization name.
const MaxOrganizationName = 128

// Organization sub type names in the target store.
const (
	SubTypeDistrict     = "Kirchenkreis"
	SubTypeCongregation = "Kirchengemeinde"
	SubTypeParishPost   = "Pfarrstelle"
)

// OrgSubTypes lists the sub types the structural sync provisions.
var OrgSubTypes = []string{SubTypeDistrict, SubTypeCongregation, SubTypeParishPost}

// Organization fields used by the engine.
const (
	FieldIdentifier = "gmv_data.gmv_data_identifier"
	FieldMasterID   = "gmv_data.gmv_data_master_id"
)

var orgPatterns = []struct {
	re  *regexp.Regexp
	typ OrgType
}{
	{regexp.MustCompile(`^A1$`), OrgTopLevel},
	{regexp.MustCompile(`^\d{6}$`), OrgDistrict},
	{regexp.MustCompile(`^\d{8}$`), OrgCongregation},
	{regexp.MustCompile(`^\d{10}$`), OrgParishPost},
}

// ClassifyOrganization returns the type for identifier.
func ClassifyOrganization(identifier string) OrgType {
	for _, p := range orgPatterns {
		if p.re.MatchString(identifier) {
			return p.typ
		}
	}
	return OrgUnknown
}

// SubType returns the contact sub type of t; the top level has none.
func (t OrgType) SubType() string {
	switch t {
	case OrgDistrict:
		return SubTypeDistrict
	case OrgCongregation:
		return SubTypeCongregation
	case OrgParishPost:
		return SubTypeParishPost
	default:
		return ""
	}
}

func (t OrgType) String() string {
	switch t {
	case OrgTopLevel:
		return "top-level"
	case OrgDistrict:
		return "district"
	case OrgCongregation:
		return "congregation"
	case OrgParishPost:
		return "parish-post"
	default:
		return "unknown"
	}
}

// OrganizationFields are the target facing fields of an organization.
var OrganizationFields = []string{
	"gmv_id", "contact_type", "contact_sub_type", "organization_name", "note",
	FieldMasterID, FieldIdentifier,
	"gmv_data.gmv_data_disbanded",
	"gmv_data.gmv_data_established",
	"gmv_data.gmv_data_catechism",
	"gmv_data.gmv_data_government_district",
	"gmv_data.gmv_data_religious_community",
	"gmv_data.gmv_member_count",
}

// Organizations holds the current organizations keyed by gmv_id.
type Organizations struct {
	*Collection
}

// LoadOrganizations loads organization.csv, classifies every record and
// drops historical and unclassifiable ones.
func LoadOrganizations(src *Source) *Organizations {
	mapping := []FieldMap{
		{"id", "gmv_id"},
		{"historical", "_historic"},
		{"parent_id", FieldMasterID},
		{"designation", "organization_name"},
		{"additions", "note"},
		{"disbanded", "gmv_data.gmv_data_disbanded"},
		{"established", "gmv_data.gmv_data_established"},
		{"catechism", "gmv_data.gmv_data_catechism"},
		{"government_district", "gmv_data.gmv_data_government_district"},
		{"religious_community", "gmv_data.gmv_data_religious_community"},
		{"identifier", FieldIdentifier},
		{"members", "gmv_data.gmv_member_count"},
	}
	log := src.Log.With("file", FileOrganizations)
	c := NewCollection("organizations", log, src.Load(FileOrganizations, sources(mapping)))
	c.RenameKeys(mapping, true)
	c.SetAll("contact_type", "Organization")

	c.Transform(func(r Record) {
		if name := r["organization_name"]; len([]rune(name)) > MaxOrganizationName {
			log.Warn("organisation name too long, truncated", "gmv_id", r["gmv_id"], "name", name, "max", MaxOrganizationName)
			r["organization_name"] = truncate(name, MaxOrganizationName)
		}

		typ := ClassifyOrganization(r[FieldIdentifier])
		r["_org_type"] = typ.String()
		r["contact_sub_type"] = typ.SubType()
		if typ == OrgTopLevel {
			r[FieldMasterID] = ""
		}
	})

	purged, _ := c.Filter("_org_type", In, OrgTopLevel.String(), OrgDistrict.String(), OrgCongregation.String(), OrgParishPost.String())
	if purged > 0 {
		log.Warn("organisations with unrecognized identifier purged", "count", purged)
	}
	dropHistorical(c, "_historic")
	c.Retain(OrganizationFields...)
	c.IndexBy("gmv_id")

	log.Info("organisations loaded", "count", c.Len())
	return &Organizations{Collection: c}
}

// dropHistorical keeps records whose flag is "f" or unset and removes field.
func dropHistorical(c *Collection, field string) {
	n, _ := c.Filter(field, In, "f", "")
	if n > 0 {
		c.log.Info("historical records dropped", "collection", c.Name(), "count", n)
	}
	c.DropField(field)
}
