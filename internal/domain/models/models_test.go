package models

import (
	"math"
	"testing"
)

func TestPeriod_Quarter(t *testing.T) {
	tests := []struct {
		p    Period
		want int
	}{
		{AnnualPeriod(2024), 0},
		{MonthlyPeriod(2024, 1), 1},
		{MonthlyPeriod(2024, 3), 1},
		{MonthlyPeriod(2024, 4), 2},
		{MonthlyPeriod(2024, 9), 3},
		{MonthlyPeriod(2024, 12), 4},
	}
	for _, tt := range tests {
		if got := tt.p.Quarter(); got != tt.want {
			t.Errorf("%s.Quarter() = %d, want %d", tt.p, got, tt.want)
		}
	}
}

func TestPeriod_Validate(t *testing.T) {
	tests := []struct {
		name    string
		p       Period
		wantErr bool
	}{
		{"annual ok", AnnualPeriod(2024), false},
		{"monthly ok", MonthlyPeriod(2024, 7), false},
		{"year too small", AnnualPeriod(1800), true},
		{"year too large", AnnualPeriod(2200), true},
		{"annual with month", Period{Kind: PeriodAnnual, Year: 2024, Month: 2}, true},
		{"monthly month zero", MonthlyPeriod(2024, 0), true},
		{"monthly month 13", MonthlyPeriod(2024, 13), true},
		{"unknown kind", Period{Kind: "weekly", Year: 2024}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStatus_Rank(t *testing.T) {
	if !(StatusDraft.Rank() < StatusPreliminary.Rank() && StatusPreliminary.Rank() < StatusFinal.Rank()) {
		t.Error("status ranks should follow draft < preliminary < final")
	}
	if Status("archived").Valid() {
		t.Error("unknown status should not be valid")
	}
}

func TestCanManageCategory(t *testing.T) {
	tests := []struct {
		role string
		cat  Category
		want bool
	}{
		{RoleAdmin, CategoryEconomic, true},
		{RoleEconomicAdmin, CategoryEconomic, true},
		{RoleEconomicAdmin, CategoryDemographic, false},
		{RoleDemographicAdmin, CategoryDemographic, true},
		{"visitor", CategoryEnvironmental, false},
		{RoleEnvironmentalAdmin, Category("fiscal"), false},
	}
	for _, tt := range tests {
		if got := CanManageCategory(tt.role, tt.cat); got != tt.want {
			t.Errorf("CanManageCategory(%q, %q) = %v, want %v", tt.role, tt.cat, got, tt.want)
		}
	}
}

func TestManagedCategories(t *testing.T) {
	if got := len(ManagedCategories(RoleAdmin)); got != 3 {
		t.Errorf("admin manages %d categories, want 3", got)
	}
	got := ManagedCategories(RoleEnvironmentalAdmin)
	if len(got) != 1 || got[0] != CategoryEnvironmental {
		t.Errorf("ManagedCategories(environmental_admin) = %v", got)
	}
}

func TestTotalPagesFor(t *testing.T) {
	tests := []struct{ total, size, want int }{
		{0, 10, 0},
		{23, 10, 3},
		{20, 10, 2},
		{1, 10, 1},
		{5, 0, 0},
		{5, math.MaxInt, 1},
	}
	for _, tt := range tests {
		if got := TotalPagesFor(tt.total, tt.size); got != tt.want {
			t.Errorf("TotalPagesFor(%d, %d) = %d, want %d", tt.total, tt.size, got, tt.want)
		}
	}
}
