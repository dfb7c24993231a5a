package entity

// Value maps from export codes to target ids.
var (
	TrueFalseMap = map[string]string{
		"t": "1",
		"f": "0",
		"":  "0",
	}

	// LocationTypeMap: 0 is work (dienstlich), 1 is home (privat).
	LocationTypeMap = map[string]string{
		"0": "2",
		"1": "1",
	}

	// GenderMap: 0 is male, 1 is female.
	GenderMap = map[string]string{
		"0": "2",
		"1": "1",
	}

	// PrefixMap derives the individual prefix from the gender code: Herr, Frau.
	PrefixMap = map[string]string{
		"0": "3",
		"1": "1",
	}

	// DefaultPhoneTypeMap: 0 is mobile, everything else landline. Codes 2 and 3
	// are not documented by the export and are collapsed onto landline.
	DefaultPhoneTypeMap = map[string]string{
		"0": "2",
		"1": "1",
		"2": "1",
		"3": "1",
	}
)

// Mappings bundles the value maps used while loading a folder.
type Mappings struct {
	TrueFalse    map[string]string
	LocationType map[string]string
	Gender       map[string]string
	Prefix       map[string]string
	PhoneType    map[string]string
}

// DefaultMappings returns the built-in maps. A non-empty phoneType replaces
// the default phone type map.
func DefaultMappings(phoneType map[string]string) Mappings {
	m := Mappings{
		TrueFalse:    TrueFalseMap,
		LocationType: LocationTypeMap,
		Gender:       GenderMap,
		Prefix:       PrefixMap,
		PhoneType:    DefaultPhoneTypeMap,
	}
	if len(phoneType) > 0 {
		m.PhoneType = phoneType
	}
	return m
}
