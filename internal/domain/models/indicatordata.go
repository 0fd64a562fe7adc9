// internal/domain/models/indicatordata.go
package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PeriodKind discriminates annual from monthly observations.
type PeriodKind string

const (
	PeriodAnnual  PeriodKind = "annual"
	PeriodMonthly PeriodKind = "monthly"
)

// Year bounds accepted for observations.
const (
	MinYear = 1900
	MaxYear = 2100
)

// Period is the temporal slot an observation occupies.
// Month is set only for monthly periods.
type Period struct {
	Kind  PeriodKind `json:"kind"`
	Year  int        `json:"year"`
	Month int        `json:"month,omitempty"`
}

// AnnualPeriod returns the period for a whole year.
func AnnualPeriod(year int) Period {
	return Period{Kind: PeriodAnnual, Year: year}
}

// MonthlyPeriod returns the period for one month of a year.
func MonthlyPeriod(year, month int) Period {
	return Period{Kind: PeriodMonthly, Year: year, Month: month}
}

// Quarter returns the quarter (1-4) of a monthly period, 0 for annual.
func (p Period) Quarter() int {
	if p.Kind != PeriodMonthly || p.Month < 1 {
		return 0
	}
	return (p.Month-1)/3 + 1
}

// Validate checks the year range and that month agrees with the kind.
func (p Period) Validate() error {
	if p.Year < MinYear || p.Year > MaxYear {
		return fmt.Errorf("year must be between %d and %d", MinYear, MaxYear)
	}
	switch p.Kind {
	case PeriodAnnual:
		if p.Month != 0 {
			return fmt.Errorf("annual period cannot have a month")
		}
	case PeriodMonthly:
		if p.Month < 1 || p.Month > 12 {
			return fmt.Errorf("month must be between 1 and 12")
		}
	default:
		return fmt.Errorf("unknown period kind %q", p.Kind)
	}
	return nil
}

// String renders the period as "2024" or "2024-03".
func (p Period) String() string {
	if p.Kind == PeriodMonthly {
		return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
	}
	return fmt.Sprintf("%04d", p.Year)
}

// Status is the record lifecycle: draft -> preliminary -> final.
type Status string

const (
	StatusDraft       Status = "draft"
	StatusPreliminary Status = "preliminary"
	StatusFinal       Status = "final"
)

// AllStatuses returns the statuses in lifecycle order.
func AllStatuses() []Status {
	return []Status{StatusDraft, StatusPreliminary, StatusFinal}
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s.Rank() > 0
}

// Rank is the position of s in the lifecycle, 0 if unknown.
func (s Status) Rank() int {
	switch s {
	case StatusDraft:
		return 1
	case StatusPreliminary:
		return 2
	case StatusFinal:
		return 3
	}
	return 0
}

// Verification records who promoted a record out of preliminary.
type Verification struct {
	VerifiedBy     string    `json:"verified_by"`
	VerifiedByName string    `json:"verified_by_name"`
	VerifiedAt     time.Time `json:"verified_at"`
}

// Audit fields are assigned by the store and never taken from input.
type Audit struct {
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedBy string    `json:"updated_by"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IndicatorDataRecord is one observation of one indicator for one period.
//
// Indicator name, subcategory, unit and category are denormalized from the
// owning indicator when the record is read.
type IndicatorDataRecord struct {
	ID             string              `json:"id"`
	IndicatorID    string              `json:"indicator_id"`
	IndicatorName  string              `json:"indicator_name"`
	Subcategory    string              `json:"subcategory"`
	Unit           string              `json:"unit"`
	Category       Category            `json:"category"`
	Period         Period              `json:"period"`
	Value          decimal.NullDecimal `json:"value"`
	Status         Status              `json:"status"`
	Verification   *Verification       `json:"verification,omitempty"`
	Notes          string              `json:"notes,omitempty"`
	SourceDocument string              `json:"source_document,omitempty"`
	Audit          Audit               `json:"audit"`
}

// IsInflation reports whether the record belongs to the inflation table.
func (r IndicatorDataRecord) IsInflation() bool {
	return r.Subcategory == InflationSubcategory
}
