package timecalc

import (
	"testing"
	"time"
)

func TestDeriveDateParts(t *testing.T) {
	tests := []struct {
		name string
		ts   string
		want DateParts
	}{
		{
			name: "rfc3339",
			ts:   "2024-03-15T09:30:00+01:00",
			want: DateParts{Date: "2024-03-15", Year: 2024, Month: 3, Day: 15, Week: 11},
		},
		{
			name: "export timestamp",
			ts:   "2023-01-02T08:00:00",
			want: DateParts{Date: "2023-01-02", Year: 2023, Month: 1, Day: 2, Week: 1},
		},
		{
			name: "bare date",
			ts:   "2022-12-31",
			want: DateParts{Date: "2022-12-31", Year: 2022, Month: 12, Day: 31, Week: 52},
		},
		{
			name: "unparsable falls back to substrings",
			ts:   "2024-03-15 09:30:00",
			want: DateParts{Date: "2024-03-15", Year: 2024, Month: 3, Day: 15, Week: 0},
		},
		{
			name: "year only",
			ts:   "2024",
			want: DateParts{Year: 2024},
		},
		{
			name: "empty",
			ts:   "",
			want: DateParts{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveDateParts(tt.ts); got != tt.want {
				t.Errorf("DeriveDateParts(%q) = %+v, want %+v", tt.ts, got, tt.want)
			}
		})
	}
}

func TestParseClockDuration(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"0:00:00", 0},
		{"1:00:00", 3600},
		{"0:45:30", 2730},
		{"12:34:56", 45296},
		{"100:00:00", 360000},
		{"1:00", 0},
		{"", 0},
		{"abc", 0},
		{"x:00:00", 0},
	}
	for _, tt := range tests {
		if got := ParseClockDuration(tt.in); got != tt.want {
			t.Errorf("ParseClockDuration(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestMonthNumber(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"january", 1},
		{"Jan", 1},
		{"MARCH", 3},
		{"sept", 9},
		{"december", 12},
		{"notamonth", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := MonthNumber(tt.in); got != tt.want {
			t.Errorf("MonthNumber(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestMonthName(t *testing.T) {
	if got := MonthName(2); got != "February" {
		t.Errorf("MonthName(2) = %q, want February", got)
	}
	if got := MonthName(0); got != "" {
		t.Errorf("MonthName(0) = %q, want empty", got)
	}
	if got := MonthName(13); got != "" {
		t.Errorf("MonthName(13) = %q, want empty", got)
	}
}

func TestFormatHours(t *testing.T) {
	if got := FormatHours(12.55); got != "12.6h" {
		t.Errorf("FormatHours(12.55) = %q", got)
	}
	if got := FormatHours(1.04); got != "1.0h" {
		t.Errorf("FormatHours(1.04) = %q", got)
	}
	if got := FormatHours(0); got != "0.0h" {
		t.Errorf("FormatHours(0) = %q", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{6000, "1h 40m"},
		{3600, "1h 0m"},
		{120, "2m"},
		{45, "45s"},
		{0, "0s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.seconds); got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestISOWeek(t *testing.T) {
	// 2024-01-01 is a Monday in ISO week 1.
	d := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	if got := ISOWeek(d); got != 1 {
		t.Errorf("ISOWeek(2024-01-01) = %d, want 1", got)
	}
}
