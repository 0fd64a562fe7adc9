package datasource

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dalemusser/stratadata/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratadata/internal/app/system/inputval"
	"github.com/dalemusser/stratadata/internal/domain/models"
	"github.com/shopspring/decimal"
)

// Field length limits.
const (
	MaxNotesLen  = 2000
	MaxSourceLen = 500
)

// NumberText holds a number as the client typed it. It decodes from a JSON
// number or a JSON string so form posts and API clients both work.
type NumberText string

// UnmarshalJSON implements json.Unmarshaler.
func (n *NumberText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = NumberText(strings.TrimSpace(s))
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return fmt.Errorf("value must be a number or numeric string")
	}
	*n = NumberText(num.String())
	return nil
}

// CreateInput is the decoded body of a create request.
type CreateInput struct {
	IndicatorID    string     `json:"indicator_id"`
	Year           int        `json:"year"`
	Month          *int       `json:"month,omitempty"`
	Value          NumberText `json:"value"`
	Status         string     `json:"status"`
	Notes          string     `json:"notes"`
	SourceDocument string     `json:"source_document"`
}

// UpdateInput is the decoded body of an update request. Nil fields are
// left unchanged.
type UpdateInput struct {
	Year           *int        `json:"year,omitempty"`
	Month          *int        `json:"month,omitempty"`
	Value          *NumberText `json:"value,omitempty"`
	Status         *string     `json:"status,omitempty"`
	Notes          *string     `json:"notes,omitempty"`
	SourceDocument *string     `json:"source_document,omitempty"`
}

// NewRecord is a validated create request ready for a Mutator.
type NewRecord struct {
	IndicatorID    string
	Period         models.Period
	Value          decimal.Decimal
	Status         models.Status
	Notes          string
	SourceDocument string
}

// Patch is a validated partial update. Nil fields are left unchanged.
// Month is only meaningful for monthly records; the store rejects it on
// annual ones.
type Patch struct {
	Year           *int
	Month          *int
	Value          *decimal.Decimal
	Status         *models.Status
	Notes          *string
	SourceDocument *string
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Year == nil && p.Month == nil && p.Value == nil &&
		p.Status == nil && p.Notes == nil && p.SourceDocument == nil
}

// createFields is what inputval sees for a create.
type createFields struct {
	IndicatorID    string `json:"indicator_id" validate:"required" label:"Indicator"`
	Value          string `json:"value" validate:"required,decimal" label:"Value"`
	Status         string `json:"status" validate:"required,inputstatus" label:"Status"`
	Notes          string `json:"notes" validate:"max=2000" label:"Notes"`
	SourceDocument string `json:"source_document" validate:"max=500" label:"Source document"`
}

// ParseCreate validates in without touching any store. ind, when known,
// decides whether a month is required: inflation indicators take monthly
// data, everything else annual.
func ParseCreate(in CreateInput, ind *models.Indicator) (NewRecord, error) {
	status := strings.ToLower(strings.TrimSpace(in.Status))
	if status == "" {
		status = string(models.StatusDraft)
	}
	fields := createFields{
		IndicatorID:    strings.TrimSpace(in.IndicatorID),
		Value:          strings.TrimSpace(string(in.Value)),
		Status:         status,
		Notes:          htmlsanitize.Notes(in.Notes),
		SourceDocument: htmlsanitize.PlainText(in.SourceDocument),
	}

	verr := &ValidationError{}
	if res := inputval.Validate(fields); res.HasErrors() {
		for _, fe := range res.Errors {
			verr.Add(fe.Field, fe.Message)
		}
	}

	period := models.AnnualPeriod(in.Year)
	if in.Month != nil {
		period = models.MonthlyPeriod(in.Year, *in.Month)
	}
	if ind != nil {
		switch {
		case ind.IsInflation() && in.Month == nil:
			verr.Add("month", "Month is required for inflation indicators.")
		case !ind.IsInflation() && in.Month != nil:
			verr.Add("month", "Month is only allowed for inflation indicators.")
		}
	}
	checkYear(verr, in.Year)
	if in.Month != nil {
		checkMonth(verr, *in.Month)
	}

	if verr.HasErrors() {
		return NewRecord{}, verr
	}

	value, _ := decimal.NewFromString(fields.Value)
	return NewRecord{
		IndicatorID:    fields.IndicatorID,
		Period:         period,
		Value:          value,
		Status:         models.Status(fields.Status),
		Notes:          fields.Notes,
		SourceDocument: fields.SourceDocument,
	}, nil
}

// ParsePatch validates an update without touching any store. An update
// that changes nothing is a validation error.
func ParsePatch(in UpdateInput) (Patch, error) {
	var p Patch
	verr := &ValidationError{}

	if in.Year != nil {
		checkYear(verr, *in.Year)
		y := *in.Year
		p.Year = &y
	}
	if in.Month != nil {
		checkMonth(verr, *in.Month)
		m := *in.Month
		p.Month = &m
	}
	if in.Value != nil {
		s := strings.TrimSpace(string(*in.Value))
		if !inputval.IsValidDecimal(s) {
			verr.Add("value", "Value must be a number.")
		} else {
			d, _ := decimal.NewFromString(s)
			p.Value = &d
		}
	}
	if in.Status != nil {
		s := strings.ToLower(strings.TrimSpace(*in.Status))
		if !inputval.IsInputStatus(s) {
			verr.Add("status", "Status must be draft or preliminary; use verify to finalize.")
		} else {
			st := models.Status(s)
			p.Status = &st
		}
	}
	if in.Notes != nil {
		n := htmlsanitize.Notes(*in.Notes)
		if len([]rune(n)) > MaxNotesLen {
			verr.Add("notes", fmt.Sprintf("Notes must be at most %d characters.", MaxNotesLen))
		}
		p.Notes = &n
	}
	if in.SourceDocument != nil {
		s := htmlsanitize.PlainText(*in.SourceDocument)
		if len([]rune(s)) > MaxSourceLen {
			verr.Add("source_document", fmt.Sprintf("Source document must be at most %d characters.", MaxSourceLen))
		}
		p.SourceDocument = &s
	}

	if verr.HasErrors() {
		return Patch{}, verr
	}
	if p.IsEmpty() {
		return Patch{}, NewValidationError("", "Nothing to update.")
	}
	return p, nil
}

func checkYear(verr *ValidationError, year int) {
	if year < models.MinYear || year > models.MaxYear {
		verr.Add("year", fmt.Sprintf("Year must be between %d and %d.", models.MinYear, models.MaxYear))
	}
}

func checkMonth(verr *ValidationError, month int) {
	if month < 1 || month > 12 {
		verr.Add("month", "Month must be between 1 and 12.")
	}
}
