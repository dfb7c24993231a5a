package entity

// Employment fields.
const (
	FieldEmployee = "contact_id_a"
	FieldEmployer = "contact_id_b"
	FieldJob      = "gmv_employee.gmv_employee_job"
)

// EmploymentFields are the target facing fields of an employment.
var EmploymentFields = []string{
	FieldEmployee, FieldEmployer, "start_date", "end_date",
	FieldJob,
	"gmv_employee.gmv_employee_designation",
	"gmv_employee.gmv_employee_end_reason",
}

// Employments holds the current employment relations between individuals
// and organizations.
type Employments struct {
	*Collection
}

// LoadEmployments loads employment.csv, restricted to non-historical rows
// whose employer is one of orgs.
func LoadEmployments(src *Source, orgs *Organizations, occupations *ReferenceList) *Employments {
	mapping := []FieldMap{
		{"since", "start_date"},
		{"end", "end_date"},
		{"employee_id", FieldEmployee},
		{"employer_id", FieldEmployer},
		{"occupation_id", FieldJob},
		{"designation", "gmv_employee.gmv_employee_designation"},
		{"end_reason", "gmv_employee.gmv_employee_end_reason"},
		{"historical", "historical"},
	}
	log := src.Log.With("file", FileEmployments)
	c := NewCollection("employments", log, src.Load(FileEmployments, sources(mapping)))
	c.RenameKeys(mapping, true)

	dropHistorical(c, "historical")

	c.Join(orgs.Collection, FieldEmployer, "gmv_id", []string{"gmv_id"})
	if n, _ := c.Filter("gmv_id", NotEmpty); n > 0 {
		log.Info("employments with unknown employer dropped", "count", n)
	}
	c.DropField("gmv_id")

	// the job option group uses the occupation ids as values
	known := make(map[string]string, occupations.Len())
	for _, v := range occupations.Values() {
		known[v] = v
	}
	c.MapValues(FieldJob, known, "")

	c.Retain(EmploymentFields...)
	log.Info("employments loaded", "count", c.Len())
	return &Employments{Collection: c}
}
