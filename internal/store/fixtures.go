package store

// Reference data every target store is expected to carry. The memory store
// seeds it on construction and the SQL schema fixture inserts the same rows.

// Option group names used by the engine.
const (
	GroupGender          = "gender"
	GroupPrefix          = "individual_prefix"
	GroupPhoneType       = "phone_type"
	GroupIdentityType    = "contact_id_history_type"
	GroupEmployeeJob     = "gmv_employee_job"
	GroupEmployeeJobName = "Job Titel"
)

// DefaultCountries are the countries of the fixture.
var DefaultCountries = []Country{
	{ID: 1014, Name: "Österreich"},
	{ID: 1020, Name: "Belgien"},
	{ID: 1082, Name: "Deutschland"},
	{ID: 1076, Name: "Frankreich"},
	{ID: 1152, Name: "Niederlande"},
	{ID: 1205, Name: "Schweiz"},
	{ID: 1228, Name: "Vereinigte Staaten"},
}

// DefaultLocationTypes are the location types of the fixture.
var DefaultLocationTypes = []LocationType{
	{ID: 1, Name: "Home", DisplayName: "Privat"},
	{ID: 2, Name: "Work", DisplayName: "Dienstlich"},
}

// DefaultCustomFields are the custom fields of the fixture.
var DefaultCustomFields = []CustomField{
	{Group: "gmv_data", Name: "gmv_data_master_id", Label: "Übergeordnete Einheit"},
	{Group: "gmv_data", Name: "gmv_data_identifier", Label: "GMV Kennung"},
	{Group: "gmv_data", Name: "gmv_data_disbanded", Label: "Aufgelöst"},
	{Group: "gmv_data", Name: "gmv_data_established", Label: "Gegründet"},
	{Group: "gmv_data", Name: "gmv_data_catechism", Label: "Bekenntnis"},
	{Group: "gmv_data", Name: "gmv_data_government_district", Label: "Regierungsbezirk"},
	{Group: "gmv_data", Name: "gmv_data_religious_community", Label: "Religionsgemeinschaft"},
	{Group: "gmv_data", Name: "gmv_member_count", Label: "Gemeindeglieder"},
	{Group: "gmv_employee", Name: "gmv_employee_job", Label: "Job Titel", OptionGroup: GroupEmployeeJob},
	{Group: "gmv_employee", Name: "gmv_employee_designation", Label: "Bezeichnung"},
	{Group: "gmv_employee", Name: "gmv_employee_end_reason", Label: "Beendigungsgrund"},
}

// DefaultOptionValues are the option values of the fixture.
var DefaultOptionValues = []OptionValue{
	{Group: GroupGender, Value: "1", Name: "Female", Label: "Weiblich", IsActive: true},
	{Group: GroupGender, Value: "2", Name: "Male", Label: "Männlich", IsActive: true},
	{Group: GroupPrefix, Value: "1", Name: "Mrs.", Label: "Frau", IsActive: true},
	{Group: GroupPrefix, Value: "3", Name: "Mr.", Label: "Herr", IsActive: true},
	{Group: GroupPhoneType, Value: "1", Name: "Phone", Label: "Festnetz", IsActive: true},
	{Group: GroupPhoneType, Value: "2", Name: "Mobile", Label: "Mobil", IsActive: true},
}

// DefaultRelationshipTypes maps A to B names to ids.
var DefaultRelationshipTypes = map[string]int64{
	"Employee of": 5,
}
