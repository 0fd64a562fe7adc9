package normalize

import "testing"

func TestName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Inflasi Bulanan", "Inflasi Bulanan"},
		{"  Inflasi Bulanan  ", "Inflasi Bulanan"},
		{"\tJumlah Penduduk\n", "Jumlah Penduduk"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Name(tt.input); got != tt.want {
				t.Errorf("Name(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestLowercasing(t *testing.T) {
	tests := []struct {
		name  string
		fn    func(string) string
		input string
		want  string
	}{
		{"category", Category, " Economic ", "economic"},
		{"category empty", Category, "   ", ""},
		{"status", Status, "PRELIMINARY", "preliminary"},
		{"status padded", Status, "\tdraft\n", "draft"},
		{"role", Role, " Demographic_Admin", "demographic_admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.input); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestQueryParam(t *testing.T) {
	if got := QueryParam("  2024 "); got != "2024" {
		t.Errorf("QueryParam() = %q, want %q", got, "2024")
	}
	if got := QueryParam("Mixed Case"); got != "Mixed Case" {
		t.Errorf("QueryParam() should not change case, got %q", got)
	}
}

func TestSearch(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"inflasi", "inflasi"},
		{"  inflasi   bulanan ", "inflasi bulanan"},
		{"\tpdb\n\nriil", "pdb riil"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Search(tt.input); got != tt.want {
				t.Errorf("Search(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
