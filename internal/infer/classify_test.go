package infer

import (
	"testing"
	"time"

	"github.com/jarom-bradshaw/excel-to-streamlit/internal/dataset"
	"github.com/jarom-bradshaw/excel-to-streamlit/internal/schema"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		values []dataset.Cell
		want   schema.Type
	}{
		{name: "empty column", values: nil, want: schema.Text},
		{
			name:   "all nulls",
			values: []dataset.Cell{dataset.Null(), dataset.Null()},
			want:   schema.Text,
		},
		{
			name:   "native timestamps",
			values: []dataset.Cell{dataset.Time(day), dataset.Time(day.AddDate(0, 0, 1))},
			want:   schema.Date,
		},
		{
			name:   "integers",
			values: []dataset.Cell{dataset.Int(1), dataset.Int(2)},
			want:   schema.Integer,
		},
		{
			name:   "integer strings",
			values: []dataset.Cell{dataset.Text("1"), dataset.Text("2")},
			want:   schema.Integer,
		},
		{
			name:   "whole floats collapse to integer",
			values: []dataset.Cell{dataset.Float(1.0), dataset.Float(2.0)},
			want:   schema.Integer,
		},
		{
			name:   "fractional floats",
			values: []dataset.Cell{dataset.Float(1.5), dataset.Int(2)},
			want:   schema.Float,
		},
		{
			name:   "float strings",
			values: []dataset.Cell{dataset.Text("1.5"), dataset.Text("2")},
			want:   schema.Float,
		},
		{
			name:   "iso dates",
			values: []dataset.Cell{dataset.Text("2024-05-01"), dataset.Text("2024-05-02")},
			want:   schema.Date,
		},
		{
			name:   "dotted european dates",
			values: []dataset.Cell{dataset.Text("01.05.2024"), dataset.Text("02.05.2024")},
			want:   schema.Date,
		},
		{
			name:   "canonical timestamps round-trip",
			values: []dataset.Cell{dataset.Text("2024-05-01T00:00:00")},
			want:   schema.Date,
		},
		{
			name:   "plain text",
			values: []dataset.Cell{dataset.Text("Alice"), dataset.Text("Bob")},
			want:   schema.Text,
		},
		{
			name:   "mixed numeric and text",
			values: []dataset.Cell{dataset.Int(1), dataset.Text("Alice")},
			want:   schema.Text,
		},
		{
			name:   "mixed date and text",
			values: []dataset.Cell{dataset.Text("2024-05-01"), dataset.Text("soon")},
			want:   schema.Text,
		},
		{
			name:   "nulls ignored around integers",
			values: []dataset.Cell{dataset.Null(), dataset.Int(7), dataset.Null()},
			want:   schema.Integer,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Classify(tc.values); got != tc.want {
				t.Fatalf("Classify() = %v, want %v", got, tc.want)
			}
		})
	}
}

// TestClassifyNumericBeforeDate pins the decision order: a digit string that
// parses as a number must never be read as a date, even where a loose layout
// could technically accept it.
func TestClassifyNumericBeforeDate(t *testing.T) {
	t.Parallel()

	got := Classify([]dataset.Cell{dataset.Text("20240501"), dataset.Text("20240502")})
	if got != schema.Integer {
		t.Fatalf("digit strings classified as %v, want %v", got, schema.Integer)
	}
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		ok   bool
		want time.Time
	}{
		{in: "2024-05-01", ok: true, want: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{in: "01.05.2024", ok: true, want: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{in: "05/01/2024", ok: true, want: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
		{in: "2024-05-01T12:30:00", ok: true, want: time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)},
		{in: "  2024-05-01  ", ok: true, want: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{in: "", ok: false},
		{in: "not a date", ok: false},
		{in: "2024-13-01", ok: false},
	}

	for _, tc := range cases {
		got, ok := ParseDate(tc.in)
		if ok != tc.ok {
			t.Errorf("ParseDate(%q) ok = %v, want %v", tc.in, ok, tc.ok)
			continue
		}
		if ok && !got.Equal(tc.want) {
			t.Errorf("ParseDate(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
