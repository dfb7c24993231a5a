package entity

// IndividualFields are the target facing fields of an individual.
var IndividualFields = []string{
	"gmv_id", "contact_type", "first_name", "last_name", "birth_date",
	"gender_id", "prefix_id", "job_title", "formal_title",
}

// Individuals holds the current persons keyed by gmv_id.
type Individuals struct {
	*Collection
}

// Lists are the reference lists loaded at the start of a run.
type Lists struct {
	Salutations *ReferenceList
	Occupations *ReferenceList
	Departments *ReferenceList
}

// LoadLists loads the three reference lists.
func LoadLists(src *Source) Lists {
	return Lists{
		Salutations: LoadSalutationList(src, FileSalutations),
		Occupations: LoadReferenceList(src, FileOccupations, "id", "designation"),
		Departments: LoadReferenceList(src, FileDepartments, "id", "designation"),
	}
}

// LoadIndividuals loads person.csv.
func LoadIndividuals(src *Source, lists Lists, maps Mappings) *Individuals {
	mapping := []FieldMap{
		{"id", "gmv_id"},
		{"firstname", "first_name"},
		{"lastname", "last_name"},
		{"birthdate", "birth_date"},
		{"gender", "gender_id"},
		{"department_designation_id", "job_title"},
		{"salutation_id", "formal_title"},
		{"historical", "_historic"},
	}
	log := src.Log.With("file", FilePersons)
	c := NewCollection("individuals", log, src.Load(FilePersons, sources(mapping)))
	c.RenameKeys(mapping, true)
	c.SetAll("contact_type", "Individual")

	c.MapViaList("job_title", lists.Departments, "")
	c.MapViaList("formal_title", lists.Salutations, "")
	c.CopyField("gender_id", "prefix_id")
	c.MapValues("gender_id", maps.Gender, "")
	c.MapValues("prefix_id", maps.Prefix, "")

	dropHistorical(c, "_historic")
	c.Retain(IndividualFields...)
	c.IndexBy("gmv_id")

	log.Info("individuals loaded", "count", c.Len())
	return &Individuals{Collection: c}
}

// ReconciliationFields are the detail fields bundled onto an individual for
// the contact matcher.
var ReconciliationFields = []string{
	"street_address", "postal_code", "city", "supplemental_address_1", "country_id",
	"email", "phone", "phone2",
}

// ReconciliationSet returns a copy of the individuals with the primary
// address, the primary email and up to two distinct phones attached.
// Bundled details carry the work location type.
func (p *Individuals) ReconciliationSet(addrs *Addresses, emails *Emails, phones *Phones) *Collection {
	set := NewCollection("individuals_matcher", p.log, p.Records())
	set.Transform(func(r Record) {
		id := r["gmv_id"]
		if a := primaryOf(addrs.LookupAll("contact_id", id)); a != nil {
			for _, f := range []string{"street_address", "postal_code", "city", "supplemental_address_1", "country_id"} {
				r[f] = a[f]
			}
		}
		if e := primaryOf(emails.LookupAll("contact_id", id)); e != nil {
			r["email"] = e["email"]
		}

		var numbers []string
		for _, ph := range phones.LookupAll("contact_id", id) {
			if ph["phone"] == "" || (len(numbers) == 1 && numbers[0] == ph["phone"]) {
				continue
			}
			numbers = append(numbers, ph["phone"])
			if len(numbers) == 2 {
				break
			}
		}
		if len(numbers) > 0 {
			r["phone"] = numbers[0]
		}
		if len(numbers) > 1 {
			r["phone2"] = numbers[1]
		}
		r["location_type_id"] = LocationTypeMap["0"]
	})
	return set
}

// primaryOf returns the first record flagged primary, else the first record.
func primaryOf(records []Record) Record {
	for _, r := range records {
		if r["is_primary"] == "1" {
			return r
		}
	}
	if len(records) > 0 {
		return records[0]
	}
	return nil
}
