package dataset

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTMLOptions control HTML table extraction.
type HTMLOptions struct {
	// Selector narrows which table is read. Empty means the first <table> in
	// the document.
	Selector string
	// MaxRows caps the number of data rows, as in CSVOptions.
	MaxRows int
	// TrimSpace trims surrounding whitespace from every cell's text.
	TrimSpace bool
}

// ReadHTMLTable extracts one HTML <table> into a Dataset.
//
// The first row containing <th> cells (or the first row outright) supplies the
// column labels; remaining rows are data in DOM order. Rows whose cell count
// does not match the label row are skipped, matching the CSV loader's
// best-effort alignment.
//
// Errors:
//   - Unparseable HTML.
//   - No table matching the selector, or a table with no rows.
//   - More data rows than MaxRows when MaxRows > 0.
func ReadHTMLTable(r io.Reader, opt HTMLOptions) (*Dataset, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	sel := opt.Selector
	if sel == "" {
		sel = "table"
	}
	table := doc.Find(sel).First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("html: no table matches %q", sel)
	}

	rows := table.Find("tr")
	if rows.Length() == 0 {
		return nil, fmt.Errorf("html: table has no rows")
	}

	var labels []string
	ds := &Dataset{}
	var rowErr error

	rows.EachWithBreak(func(i int, tr *goquery.Selection) bool {
		cells := cellTexts(tr, opt.TrimSpace)

		if labels == nil {
			// Header row: prefer the first row with <th> cells; otherwise the
			// first row becomes the header.
			if tr.Find("th").Length() > 0 || i == 0 {
				labels = cells
				return true
			}
		}
		if len(cells) != len(labels) {
			return true
		}

		row := make(Row, len(labels))
		for j, v := range cells {
			if v == "" {
				row[labels[j]] = Null()
			} else {
				row[labels[j]] = Text(v)
			}
		}
		ds.Rows = append(ds.Rows, row)

		if opt.MaxRows > 0 && len(ds.Rows) > opt.MaxRows {
			rowErr = fmt.Errorf("html: table exceeds %d row limit", opt.MaxRows)
			return false
		}
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}

	ds.Columns = labels
	return ds, nil
}

func cellTexts(tr *goquery.Selection, trim bool) []string {
	var out []string
	tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
		t := cell.Text()
		if trim {
			t = strings.TrimSpace(t)
		}
		out = append(out, t)
	})
	return out
}
