package inputval

import (
	"testing"
)

func TestIsValidDecimal(t *testing.T) {
	tests := []struct {
		s    string
		want bool
	}{
		{"5", true},
		{"-1.25", true},
		{"  3.14  ", true},
		{"0.000001", true},
		{"1e3", true},
		{"", false},
		{"   ", false},
		{"abc", false},
		{"1,5", false},
		{"12.3.4", false},
	}
	for _, tt := range tests {
		t.Run(tt.s, func(t *testing.T) {
			if got := IsValidDecimal(tt.s); got != tt.want {
				t.Errorf("IsValidDecimal(%q) = %v, want %v", tt.s, got, tt.want)
			}
		})
	}
}

func TestIsInputStatus(t *testing.T) {
	tests := []struct {
		s    string
		want bool
	}{
		{"draft", true},
		{"preliminary", true},
		{" Draft ", true},
		{"final", false},
		{"", false},
		{"archived", false},
	}
	for _, tt := range tests {
		if got := IsInputStatus(tt.s); got != tt.want {
			t.Errorf("IsInputStatus(%q) = %v, want %v", tt.s, got, tt.want)
		}
	}
}

func TestIsValidObjectID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		// Valid ObjectIDs (24 hex characters)
		{"507f1f77bcf86cd799439011", true},
		{"000000000000000000000000", true},

		// Invalid ObjectIDs
		{"", false},
		{"507f1f77bcf86cd79943901", false},   // too short
		{"507f1f77bcf86cd7994390111", false}, // too long
		{"507f1f77bcf86cd79943901g", false},  // invalid hex
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := IsValidObjectID(tt.id); got != tt.want {
				t.Errorf("IsValidObjectID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestFormatMessage(t *testing.T) {
	tests := []struct {
		label, rule, param string
		want               string
	}{
		{"Value", "required", "", "Value is required."},
		{"Value", "decimal", "", "Value must be a number."},
		{"Notes", "max", "2000", "Notes must be at most 2000 characters."},
		{"Kind", "oneof", "a b", "Kind must be one of: a, b."},
		{"Status", "inputstatus", "", "Status must be draft or preliminary; use verify to finalize."},
		{"Thing", "mystery", "", "Thing is invalid."},
	}
	for _, tt := range tests {
		if got := formatMessage(tt.label, tt.rule, tt.param); got != tt.want {
			t.Errorf("formatMessage(%q, %q) = %q, want %q", tt.label, tt.rule, got, tt.want)
		}
	}
}

func TestGetFieldLabels(t *testing.T) {
	type input struct {
		IndicatorID string `json:"indicator_id" label:"Indicator"`
		Value       string `json:"value,omitempty" label:"Value"`
		Plain       string
	}
	labels := getFieldLabels(&input{})
	if labels["indicator_id"] != "Indicator" {
		t.Errorf("indicator_id label = %q", labels["indicator_id"])
	}
	if labels["value"] != "Value" {
		t.Errorf("value label = %q", labels["value"])
	}
	if _, ok := labels["Plain"]; ok {
		t.Error("field without label tag should not have a label")
	}
}

func TestResult(t *testing.T) {
	r := &Result{}
	if r.HasErrors() || r.First() != "" || r.All() != "" {
		t.Error("empty result should report no errors")
	}
	r.Errors = []FieldError{{Field: "a", Message: "A bad."}, {Field: "b", Message: "B bad."}}
	if !r.HasErrors() {
		t.Error("HasErrors() = false")
	}
	if r.First() != "A bad." {
		t.Errorf("First() = %q", r.First())
	}
	if r.All() != "A bad.; B bad." {
		t.Errorf("All() = %q", r.All())
	}
}
