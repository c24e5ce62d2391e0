package dataset

import (
	"reflect"
	"strings"
	"testing"
)

const peopleTable = `
<html><body>
<table>
  <tr><th>id</th><th>name</th></tr>
  <tr><td>1</td><td>Alice</td></tr>
  <tr><td>2</td><td>Bob</td></tr>
</table>
</body></html>`

func TestReadHTMLTable(t *testing.T) {
	t.Parallel()

	ds, err := ReadHTMLTable(strings.NewReader(peopleTable), HTMLOptions{TrimSpace: true})
	if err != nil {
		t.Fatalf("ReadHTMLTable() error = %v", err)
	}

	if !reflect.DeepEqual(ds.Columns, []string{"id", "name"}) {
		t.Fatalf("Columns = %v", ds.Columns)
	}
	if ds.NumRows() != 2 {
		t.Fatalf("NumRows() = %d", ds.NumRows())
	}
	if got, _ := ds.Rows[1]["name"].Text(); got != "Bob" {
		t.Fatalf("row 1 name = %q", got)
	}
}

// TestReadHTMLTableFirstRowHeader covers tables without <th>: the first row
// supplies the labels.
func TestReadHTMLTableFirstRowHeader(t *testing.T) {
	t.Parallel()

	in := `<table>
	  <tr><td>a</td><td>b</td></tr>
	  <tr><td>1</td><td>2</td></tr>
	</table>`

	ds, err := ReadHTMLTable(strings.NewReader(in), HTMLOptions{TrimSpace: true})
	if err != nil {
		t.Fatalf("ReadHTMLTable() error = %v", err)
	}
	if !reflect.DeepEqual(ds.Columns, []string{"a", "b"}) {
		t.Fatalf("Columns = %v", ds.Columns)
	}
	if ds.NumRows() != 1 {
		t.Fatalf("NumRows() = %d", ds.NumRows())
	}
}

func TestReadHTMLTableSelector(t *testing.T) {
	t.Parallel()

	in := `
	<table id="first"><tr><th>x</th></tr><tr><td>1</td></tr></table>
	<table id="second"><tr><th>y</th></tr><tr><td>2</td></tr></table>`

	ds, err := ReadHTMLTable(strings.NewReader(in), HTMLOptions{Selector: "#second", TrimSpace: true})
	if err != nil {
		t.Fatalf("ReadHTMLTable() error = %v", err)
	}
	if !reflect.DeepEqual(ds.Columns, []string{"y"}) {
		t.Fatalf("Columns = %v", ds.Columns)
	}

	if _, err := ReadHTMLTable(strings.NewReader(in), HTMLOptions{Selector: "#missing"}); err == nil {
		t.Fatal("missing selector accepted")
	}
}

func TestReadHTMLTableMisalignedAndEmpty(t *testing.T) {
	t.Parallel()

	in := `<table>
	  <tr><th>a</th><th>b</th></tr>
	  <tr><td>1</td></tr>
	  <tr><td>2</td><td></td></tr>
	</table>`

	ds, err := ReadHTMLTable(strings.NewReader(in), HTMLOptions{TrimSpace: true})
	if err != nil {
		t.Fatalf("ReadHTMLTable() error = %v", err)
	}
	if ds.NumRows() != 1 {
		t.Fatalf("NumRows() = %d, want 1 (short row skipped)", ds.NumRows())
	}
	if !ds.Rows[0]["b"].IsNull() {
		t.Fatal("empty cell not null")
	}
}

func TestReadHTMLTableMaxRows(t *testing.T) {
	t.Parallel()

	_, err := ReadHTMLTable(strings.NewReader(peopleTable), HTMLOptions{TrimSpace: true, MaxRows: 1})
	if err == nil {
		t.Fatal("row cap not enforced")
	}
}

func TestReadHTMLTableNoTable(t *testing.T) {
	t.Parallel()

	if _, err := ReadHTMLTable(strings.NewReader("<p>nothing</p>"), HTMLOptions{}); err == nil {
		t.Fatal("document without table accepted")
	}
}
