package entity

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/gmvsync/internal/csv"
)

// testSource writes files into a fresh import folder.
func testSource(t *testing.T, files map[string]string) (*Source, *bytes.Buffer) {
	t.Helper()
	folder := t.TempDir()
	dir := filepath.Join(folder, filepath.FromSlash(DataDir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewSource(folder, csv.Options{Comma: ','}, log), &buf
}

func TestClassifyOrganization(t *testing.T) {
	tests := []struct {
		identifier string
		want       OrgType
		subType    string
	}{
		{"A1", OrgTopLevel, ""},
		{"151234", OrgDistrict, SubTypeDistrict},
		{"15123456", OrgCongregation, SubTypeCongregation},
		{"1512345678", OrgParishPost, SubTypeParishPost},
		{"A2", OrgUnknown, ""},
		{"1512345", OrgUnknown, ""},
		{"", OrgUnknown, ""},
	}

	for _, tt := range tests {
		t.Run(tt.identifier, func(t *testing.T) {
			got := ClassifyOrganization(tt.identifier)
			if got != tt.want {
				t.Errorf("ClassifyOrganization(%q) = %v, want %v", tt.identifier, got, tt.want)
			}
			if got.SubType() != tt.subType {
				t.Errorf("SubType() = %q, want %q", got.SubType(), tt.subType)
			}
		})
	}
}

func TestLoadOrganizations(t *testing.T) {
	long := strings.Repeat("x", 140)
	src, logs := testSource(t, map[string]string{
		FileOrganizations: "id,historical,parent_id,designation,identifier,members\n" +
			"1,f,9,EKiR,A1,\n" +
			"2,f,1,KK Bonn,151234,\n" +
			"3,f,2," + long + ",15123456,120\n" +
			"4,f,2,Broken,12ab,\n" +
			"5,t,2,Old,15123457,\n",
	})
	orgs := LoadOrganizations(src)

	if orgs.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", orgs.Len())
	}

	top, _ := orgs.Lookup("gmv_id", "1")
	if top[FieldMasterID] != "" {
		t.Errorf("top level master id = %q, want empty", top[FieldMasterID])
	}
	if top["contact_type"] != "Organization" {
		t.Errorf("contact_type = %q, want Organization", top["contact_type"])
	}

	district, _ := orgs.Lookup("gmv_id", "2")
	if district["contact_sub_type"] != SubTypeDistrict {
		t.Errorf("contact_sub_type = %q, want %q", district["contact_sub_type"], SubTypeDistrict)
	}

	congregation, _ := orgs.Lookup("gmv_id", "3")
	if n := len([]rune(congregation["organization_name"])); n != MaxOrganizationName {
		t.Errorf("name length = %d, want %d", n, MaxOrganizationName)
	}
	if congregation["gmv_data.gmv_member_count"] != "120" {
		t.Errorf("member count = %q, want 120", congregation["gmv_data.gmv_member_count"])
	}
	if _, ok := congregation["_historic"]; ok {
		t.Error("helper field _historic retained")
	}

	out := logs.String()
	if !strings.Contains(out, "organisations with unrecognized identifier purged") {
		t.Error("purge count not logged")
	}
	if !strings.Contains(out, "organisation name too long") {
		t.Error("truncation not logged")
	}
}

func TestCorrectCountry(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "Deutschland"},
		{"CHE", "Schweiz"},
		{"Deutschlan", "Deutschland"},
		{"USA", "Vereinigte Staaten"},
		{"Frankreich", "Frankreich"},
	}
	for _, tt := range tests {
		if got := CorrectCountry(tt.in); got != tt.want {
			t.Errorf("CorrectCountry(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadAddresses(t *testing.T) {
	src, logs := testSource(t, map[string]string{
		FileAddressData: "id,city,country,street,zip,housenumber,latitude,longitude,addition\n" +
			"10,Bern,CHE,Marktgasse,3011,5,46.947974123456789,7.447447123456789,\n" +
			"11,Nowhere,ZZZ,Weg,00000,,,,\n" +
			"12,Bonn,,Adenauerallee,53113,37,,,Hinterhaus\n",
		FileAddresses: "id,owner_id,addition,principal,address_id,classification\n" +
			"1,100,,t,10,0\n" +
			"2,100,,f,11,1\n" +
			"3,101,Büro,f,12,0\n",
	})
	countries := CountryIndex{"Schweiz": "1205", "Deutschland": "1082"}
	data := LoadAddressData(src, countries)
	addrs := LoadAddresses(src, data, DefaultMappings(nil))

	first := addrs.LookupAll("contact_id", "100")
	if len(first) != 2 {
		t.Fatalf("addresses for 100 = %d, want 2", len(first))
	}
	a := first[0]
	if a["country_id"] != "1205" {
		t.Errorf("country_id = %q, want 1205", a["country_id"])
	}
	if a["street_address"] != "Marktgasse 5" {
		t.Errorf("street_address = %q, want %q", a["street_address"], "Marktgasse 5")
	}
	if a["geo_code_1"] != "46.94797412345" {
		t.Errorf("geo_code_1 = %q, want 14 characters", a["geo_code_1"])
	}
	if a["is_primary"] != "1" || a["location_type_id"] != "2" {
		t.Errorf("is_primary/location = %q/%q, want 1/2", a["is_primary"], a["location_type_id"])
	}
	if first[1]["country_id"] != "" {
		t.Errorf("unknown country id = %q, want empty", first[1]["country_id"])
	}
	if !strings.Contains(logs.String(), "cannot map country") {
		t.Error("unknown country not logged")
	}

	b, _ := addrs.Lookup("contact_id", "101")
	if b["country_id"] != "1082" {
		t.Errorf("default country id = %q, want 1082", b["country_id"])
	}
	if b["supplemental_address_1"] != "Büro" {
		t.Errorf("supplemental_address_1 = %q, want link table value", b["supplemental_address_1"])
	}
	if _, ok := b["address_data_id"]; ok {
		t.Error("helper field address_data_id retained")
	}
}

func TestFormatPhone(t *testing.T) {
	tests := []struct {
		country, area, number string
		want                  string
	}{
		{"0049", "0228", "123456", "+49 228 123456"},
		{"49", "228", "123456", "+49 228 123456"},
		{"", "0228", "123456", "228 123456"},
		{"0041", "", "7654321", "+41 7654321"},
		{"0049", "0228", "", ""},
	}
	for _, tt := range tests {
		if got := FormatPhone(tt.country, tt.area, tt.number); got != tt.want {
			t.Errorf("FormatPhone(%q, %q, %q) = %q, want %q", tt.country, tt.area, tt.number, got, tt.want)
		}
	}
}

func TestLoadPhonesCustomTypeMap(t *testing.T) {
	src, _ := testSource(t, map[string]string{
		FilePhones: "owner_id,country_code,code,number,type,classification\n" +
			"100,0049,0171,555,0,1\n" +
			"100,0049,0228,666,3,0\n",
	})
	phones := LoadPhones(src, DefaultMappings(map[string]string{"0": "2", "1": "1", "3": "4"}))

	all := phones.LookupAll("contact_id", "100")
	if len(all) != 2 {
		t.Fatalf("phones = %d, want 2", len(all))
	}
	if all[0]["phone"] != "+49 171 555" || all[0]["phone_type_id"] != "2" {
		t.Errorf("first phone = %v", all[0])
	}
	if all[1]["phone_type_id"] != "4" {
		t.Errorf("phone_type_id = %q, want configured 4", all[1]["phone_type_id"])
	}
}

func TestLoadWebsites(t *testing.T) {
	src, logs := testSource(t, map[string]string{
		FileWebsites: "owner_id,url,classification\n" +
			"1,www.ekir.de,0\n" +
			"2,https://kirche-bonn.de,0\n" +
			"3,,0\n",
	})
	sites := LoadWebsites(src, DefaultMappings(nil))

	if sites.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", sites.Len())
	}
	r, _ := sites.Lookup("contact_id", "1")
	if r["url"] != "http://www.ekir.de" {
		t.Errorf("url = %q, want scheme added", r["url"])
	}
	r, _ = sites.Lookup("contact_id", "2")
	if r["url"] != "https://kirche-bonn.de" {
		t.Errorf("url = %q, want unchanged", r["url"])
	}
	if !strings.Contains(logs.String(), "added missing url scheme") {
		t.Error("scheme fix not logged")
	}
}

func TestLoadIndividuals(t *testing.T) {
	src, _ := testSource(t, map[string]string{
		FileSalutations: "id,designation\n1,Herr Pfarrer\n2,Frau Dr.\n",
		FileOccupations: "id,designation\n7,Pfarrer/in\n",
		FileDepartments: "id,designation\n3,Superintendent\n",
		FilePersons: "id,firstname,lastname,birthdate,gender,department_designation_id,salutation_id,historical\n" +
			"100,Anna,Schmidt,1970-01-02,1,3,2,f\n" +
			"101,Old,Timer,1930-01-01,0,,,t\n" +
			"102,Paul,Meyer,,0,,1,f\n",
	})
	lists := LoadLists(src)
	people := LoadIndividuals(src, lists, DefaultMappings(nil))

	if people.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", people.Len())
	}
	anna, _ := people.Lookup("gmv_id", "100")
	want := Record{
		"gmv_id":       "100",
		"contact_type": "Individual",
		"first_name":   "Anna",
		"last_name":    "Schmidt",
		"birth_date":   "1970-01-02",
		"gender_id":    "1",
		"prefix_id":    "1",
		"job_title":    "Superintendent",
		"formal_title": "Dr.",
	}
	for k, v := range want {
		if anna[k] != v {
			t.Errorf("%s = %q, want %q", k, anna[k], v)
		}
	}
	paul, _ := people.Lookup("gmv_id", "102")
	if paul["formal_title"] != "Pfarrer" || paul["gender_id"] != "2" || paul["prefix_id"] != "3" {
		t.Errorf("paul = %v", paul)
	}
}

func TestReconciliationSet(t *testing.T) {
	src, _ := testSource(t, map[string]string{
		FilePersons: "id,firstname,lastname,historical\n100,Anna,Schmidt,f\n101,Paul,Meyer,f\n",
		FileAddressData: "id,city,country,street,zip,housenumber\n" +
			"10,Bonn,,Weg,53113,1\n11,Köln,,Ring,50667,2\n",
		FileAddresses: "id,owner_id,principal,address_id,classification\n" +
			"1,100,f,10,0\n2,100,t,11,0\n",
		FileEmails: "owner_id,address,principal,classification\n" +
			"100,a@example.org,f,0\n100,b@example.org,t,0\n",
		FilePhones: "owner_id,country_code,code,number,type,classification\n" +
			"100,0049,0228,1,1,0\n100,0049,0228,1,1,0\n100,0049,0228,2,1,0\n100,0049,0228,3,1,0\n",
	})
	maps := DefaultMappings(nil)
	people := LoadIndividuals(src, LoadLists(src), maps)
	addrs := LoadAddresses(src, LoadAddressData(src, CountryIndex{"Deutschland": "1082"}), maps)
	set := people.ReconciliationSet(addrs, LoadEmails(src, maps), LoadPhones(src, maps))

	anna, _ := set.Lookup("gmv_id", "100")
	if anna["city"] != "Köln" {
		t.Errorf("city = %q, want primary address city", anna["city"])
	}
	if anna["email"] != "b@example.org" {
		t.Errorf("email = %q, want primary email", anna["email"])
	}
	if anna["phone"] != "+49 228 1" || anna["phone2"] != "+49 228 2" {
		t.Errorf("phones = %q, %q", anna["phone"], anna["phone2"])
	}

	paul, _ := set.Lookup("gmv_id", "101")
	if _, ok := paul["email"]; ok {
		t.Errorf("paul got an email: %v", paul)
	}
	if _, ok := people.Records()[0]["email"]; ok {
		t.Error("reconciliation set modified the individuals")
	}
}

func TestLoadEmployments(t *testing.T) {
	src, _ := testSource(t, map[string]string{
		FileOrganizations: "id,historical,designation,identifier\n1,f,EKiR,A1\n2,f,Broken,x\n",
		FileOccupations:   "id,designation\n7,Pfarrer/in\n",
		FileEmployments: "since,end,employee_id,employer_id,occupation_id,designation,historical\n" +
			"2001-01-01,,100,1,7,Pfarrer,f\n" +
			"2001-01-01,,101,2,7,Pfarrer,f\n" +
			"2001-01-01,,102,1,99,Küster,f\n" +
			"1990-01-01,2000-01-01,103,1,7,,t\n",
	})
	orgs := LoadOrganizations(src)
	occupations := LoadReferenceList(src, FileOccupations, "id", "designation")
	jobs := LoadEmployments(src, orgs, occupations)

	if jobs.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", jobs.Len())
	}
	records := jobs.Records()
	if records[0][FieldJob] != "7" {
		t.Errorf("job = %q, want 7", records[0][FieldJob])
	}
	if records[1][FieldJob] != "" {
		t.Errorf("unknown job = %q, want empty", records[1][FieldJob])
	}
	if _, ok := records[0]["gmv_id"]; ok {
		t.Error("join helper field retained")
	}
}

func TestSourceMissingFile(t *testing.T) {
	src, logs := testSource(t, nil)
	if got := src.Load(FileEmails, []string{"owner_id"}); len(got) != 0 {
		t.Errorf("Load() = %v, want empty", got)
	}
	if !strings.Contains(logs.String(), "cannot load file") {
		t.Error("load error not logged")
	}
}

func TestStripSalutation(t *testing.T) {
	tests := map[string]string{
		"Herr Pfarrer": "Pfarrer",
		"Frau Dr.":     "Dr.",
		"Herr":         "",
		"Prof.":        "Prof.",
	}
	for in, want := range tests {
		if got := StripSalutation(in); got != want {
			t.Errorf("StripSalutation(%q) = %q, want %q", in, got, want)
		}
	}
}
