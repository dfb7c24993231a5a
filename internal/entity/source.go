package entity

import (
	"log/slog"
	"path/filepath"

	"github.com/JonMunkholm/gmvsync/internal/csv"
)

// DataDir is the location of the export files inside an import folder.
const DataDir = "data/ekir_gmv"

// Export file names.
const (
	FileSalutations   = "salutation.csv"
	FileOccupations   = "occupation.csv"
	FileDepartments   = "department_designation.csv"
	FileAddressData   = "address.csv"
	FileAddresses     = "addresses.csv"
	FileEmails        = "email.csv"
	FilePhones        = "phone.csv"
	FileWebsites      = "homepage.csv"
	FilePersons       = "person.csv"
	FileOrganizations = "organization.csv"
	FileEmployments   = "employment.csv"
)

// Source reads export files of one import folder.
type Source struct {
	Dir     string
	Options csv.Options
	Log     *slog.Logger
}

// NewSource returns a Source for the import folder.
func NewSource(folder string, opts csv.Options, log *slog.Logger) *Source {
	if log == nil {
		log = slog.Default()
	}
	return &Source{
		Dir:     filepath.Join(folder, filepath.FromSlash(DataDir)),
		Options: opts,
		Log:     log,
	}
}

// Path returns the full path of an export file.
func (s *Source) Path(file string) string {
	return filepath.Join(s.Dir, file)
}

// Load reads the requested columns of file. A file that cannot be read is
// logged and yields no records; the run goes on without it.
func (s *Source) Load(file string, columns []string) []Record {
	path := s.Path(file)
	s.Log.Debug("opening file", "file", file)

	res, err := csv.ReadFile(path, columns, s.Options)
	if err != nil {
		s.Log.Error("cannot load file, continuing without its records", "file", file, "error", err)
		return nil
	}
	if len(res.Missing) > 0 {
		s.Log.Warn("columns missing from header", "file", file, "columns", res.Missing)
	}

	records := make([]Record, len(res.Rows))
	for i, row := range res.Rows {
		records[i] = Record(row)
	}
	return records
}
