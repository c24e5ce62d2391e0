package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// CSVOptions control CSV sampling behavior.
//
// NOTE: all fields are optional; the zero value reads comma-separated UTF-8
// with a header row.
type CSVOptions struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune
	// HasHeader indicates the first record carries column labels. When false,
	// labels are synthesized as "Unnamed: 0".."Unnamed: N-1" and every record
	// is data. Defaults to true via ReadCSV's Options helper; the zero value
	// of the struct literal must set it explicitly.
	HasHeader bool
	// TrimSpace trims surrounding whitespace from every field.
	TrimSpace bool
	// MaxRows caps the number of data rows read. 0 means unlimited; exceeding
	// the cap is an error, mirroring the ingest guard of the original tool.
	MaxRows int
	// Encoding selects the source charset: "", "utf-8", "latin1", or
	// "windows-1252". Unknown values are an error.
	Encoding string
	// LazyQuotes relaxes quote handling for sloppy exports.
	LazyQuotes bool
}

// DefaultCSVOptions returns the options used when callers pass the zero value
// to ReadCSV: comma-delimited, header row present, fields trimmed.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{Comma: ',', HasHeader: true, TrimSpace: true}
}

// ReadCSV reads a CSV stream into a Dataset.
//
// Parsing is best-effort: records whose field count does not match the label
// row are skipped rather than failing the load. Empty fields become null cells when TrimSpace is set; all other values
// stay text: typing is the classifier's job, not the loader's.
//
// Errors:
//   - Unreadable input or an unknown Encoding value.
//   - More data rows than MaxRows when MaxRows > 0.
func ReadCSV(r io.Reader, opt CSVOptions) (*Dataset, error) {
	if opt.Comma == 0 {
		opt.Comma = ','
	}

	dec, err := decodeCharset(r, opt.Encoding)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(dec)
	cr.Comma = opt.Comma
	cr.FieldsPerRecord = -1 // alignment is validated manually
	cr.LazyQuotes = opt.LazyQuotes

	var labels []string
	if opt.HasHeader {
		rec, err := cr.Read()
		if err != nil {
			if err == io.EOF {
				return &Dataset{}, nil
			}
			return nil, fmt.Errorf("read header: %w", err)
		}
		labels = make([]string, len(rec))
		for i, h := range rec {
			labels[i] = strings.TrimSpace(h)
		}
	}

	ds := &Dataset{}
	for {
		rec, err := cr.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("read record: %w", err)
		}

		if labels == nil {
			labels = anonymousLabels(len(rec))
		}
		if len(rec) != len(labels) {
			continue
		}

		row := make(Row, len(labels))
		for i, v := range rec {
			if opt.TrimSpace {
				v = strings.TrimSpace(v)
			}
			if v == "" {
				row[labels[i]] = Null()
			} else {
				row[labels[i]] = Text(v)
			}
		}
		ds.Rows = append(ds.Rows, row)

		if opt.MaxRows > 0 && len(ds.Rows) > opt.MaxRows {
			return nil, fmt.Errorf("csv: input exceeds %d row limit", opt.MaxRows)
		}
	}

	ds.Columns = labels
	return ds, nil
}

// anonymousLabels synthesizes labels for headerless input using the marker
// the inference engine recognizes.
func anonymousLabels(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s: %d", AnonymousPrefix, i)
	}
	return out
}

// decodeCharset wraps r with a charset decoder when needed.
func decodeCharset(r io.Reader, enc string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(enc)) {
	case "", "utf-8", "utf8":
		return r, nil
	case "latin1", "iso-8859-1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	case "windows-1252", "cp1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("csv: unsupported encoding %q", enc)
	}
}
