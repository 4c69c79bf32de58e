package timex

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func TestParseTypes(t *testing.T) {
	tests := []struct {
		expr     string
		definite bool
		types    []string
	}{
		{"2024-05-01", true, []string{TypeDate, TypeDefinite}},
		{"XXXX-05-01", false, []string{TypeDate}},
		{"2024-XX-01", false, []string{TypeDate}},
		{"2024-05-01T10:30", true, []string{TypeDate, TypeDateTime, TypeDefinite, TypeTime}},
		{"2024-05", false, []string{TypeDateRange}},
		{"2024-W12", false, []string{TypeDateRange}},
		{"XXXX-WXX-WE", false, []string{TypeDateRange}},
		{"2024", false, []string{TypeDateRange}},
		{"P3D", false, []string{TypeDuration}},
		{"PT2H", false, []string{TypeDuration}},
		{"T14", false, []string{TypeTime}},
		{"PRESENT_REF", false, []string{TypeDate, TypeDateTime, TypePresent, TypeTime}},
		{"(2024-05-01,2024-05-08,P7D)", true, []string{TypeDateRange, TypeDefinite, TypeDuration}},
		{"(XXXX-05-01,XXXX-05-08,P7D)", false, []string{TypeDateRange, TypeDuration}},
		{"(2024-05-01,2024-05-08)", true, []string{TypeDateRange, TypeDefinite}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			tx, err := Parse(tt.expr)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.expr, err)
			}
			if tx.IsDefinite() != tt.definite {
				t.Errorf("IsDefinite = %v, want %v", tx.IsDefinite(), tt.definite)
			}
			if got := tx.Types(); !slices.Equal(got, tt.types) {
				t.Errorf("Types = %v, want %v", got, tt.types)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, expr := range []string{"", "next week", "2024-13-01", "2023-02-30", "2024-05-00", "(2024-05-01)", "(2024-05-01,2024-05-08,soon)"} {
		if _, err := Parse(expr); !errors.Is(err, ErrInvalid) {
			t.Errorf("Parse(%q) err = %v, want ErrInvalid", expr, err)
		}
	}
}

func TestIsAmbiguous(t *testing.T) {
	if IsAmbiguous("2024-05-01") {
		t.Error("definite date reported ambiguous")
	}
	for _, expr := range []string{"", "XXXX-05-01", "2024-W12", "tomorrow"} {
		if !IsAmbiguous(expr) {
			t.Errorf("IsAmbiguous(%q) = false, want true", expr)
		}
	}
}

func TestDatePart(t *testing.T) {
	tests := map[string]string{
		"2024-05-01T10:00":            "2024-05-01",
		"2024-05-01":                  "2024-05-01",
		"PT2H":                        "PT2H",
		"PRESENT_REF":                 "PRESENT_REF",
		"(2024-05-01,2024-05-08,P7D)": "(2024-05-01,2024-05-08,P7D)",
	}
	for in, want := range tests {
		if got := DatePart(in); got != want {
			t.Errorf("DatePart(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTimexDate(t *testing.T) {
	tx, err := Parse("2024-02-29")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	d, ok := tx.Date()
	if !ok {
		t.Fatal("expected a calendar date")
	}
	if !d.Equal(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Date = %v", d)
	}

	tx, _ = Parse("XXXX-02-29")
	if _, ok := tx.Date(); ok {
		t.Error("partial date should have no calendar date")
	}
}
