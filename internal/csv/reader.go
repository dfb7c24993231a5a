// Package csv reads the delimited export files into named string records.
//
// The first row of a file is its header. Only requested columns are kept,
// matched by exact header name. Files may carry a UTF-8 byte order mark or
// be encoded as Latin-1 / Windows-1252; both are decoded to UTF-8 on the fly.
package csv

import (
	stdcsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrEmptyFile is returned for a file without a header row.
var ErrEmptyFile = errors.New("empty file")

// Options controls how a file is parsed.
type Options struct {
	Comma    rune   // field delimiter (default ',')
	Encoding string // utf-8, latin1, iso-8859-1 or windows-1252 (default utf-8)
}

// Row is one source row keyed by header name.
type Row map[string]string

// Result holds the rows read from one file.
type Result struct {
	Rows    []Row
	Missing []string // requested columns absent from the header
}

// ReadFile opens path and returns the requested columns of every data row.
func ReadFile(path string, columns []string, opts Options) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Read(f, columns, opts)
}

// Read parses r. Columns absent from the header are left out of every row;
// short rows only carry the columns they reach.
func Read(r io.Reader, columns []string, opts Options) (*Result, error) {
	dec, err := decoder(opts.Encoding)
	if err != nil {
		return nil, err
	}

	reader := stdcsv.NewReader(transform.NewReader(r, dec.NewDecoder()))
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("invalid csv header: %w", err)
	}

	wanted := make(map[string]bool, len(columns))
	for _, c := range columns {
		wanted[c] = true
	}
	indices := make(map[int]string)
	present := make(map[string]bool, len(header))
	for i, h := range header {
		// a repeated column name keeps its first position
		if wanted[h] && !present[h] {
			indices[i] = h
		}
		present[h] = true
	}

	res := &Result{}
	for _, c := range columns {
		if !present[c] {
			res.Missing = append(res.Missing, c)
		}
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, fmt.Errorf("invalid csv at line %d: %w", line, err)
		}
		if isBlank(record) {
			continue
		}

		row := make(Row, len(indices))
		for i, name := range indices {
			if i < len(record) {
				row[name] = record[i]
			}
		}
		res.Rows = append(res.Rows, row)
	}

	return res, nil
}

// decoder returns the charset decoder for name. UTF-8 input has its BOM stripped.
func decoder(name string) (encoding.Encoding, error) {
	switch strings.ToLower(name) {
	case "", "utf-8", "utf8":
		return unicode.UTF8BOM, nil
	case "latin1", "iso-8859-1":
		return charmap.ISO8859_1, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	default:
		return nil, fmt.Errorf("encoding error: unsupported encoding %q", name)
	}
}

func isBlank(record []string) bool {
	for _, v := range record {
		if v != "" {
			return false
		}
	}
	return true
}
