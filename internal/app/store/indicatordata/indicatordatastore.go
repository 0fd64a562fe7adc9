// internal/app/store/indicatordata/indicatordatastore.go
package indicatordatastore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/dalemusser/stratadata/internal/app/datasource"
	indicatorstore "github.com/dalemusser/stratadata/internal/app/store/indicators"
	"github.com/dalemusser/stratadata/internal/app/store/storeutil"
	"github.com/dalemusser/stratadata/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ datasource.Backend = (*Store)(nil)

// Store provides access to the indicator_data collection. It implements
// datasource.Backend on MongoDB.
type Store struct {
	c          *mongo.Collection
	indicators *indicatorstore.Store
}

// New creates a new indicator data store.
func New(db *mongo.Database) *Store {
	return &Store{
		c:          db.Collection("indicator_data"),
		indicators: indicatorstore.New(db),
	}
}

type verificationDoc struct {
	VerifiedBy     string    `bson:"verified_by"`
	VerifiedByName string    `bson:"verified_by_name"`
	VerifiedAt     time.Time `bson:"verified_at"`
}

// recordDoc is the stored shape of one observation. Indicator is only
// populated by the $lookup stage of Fetch.
type recordDoc struct {
	ID             primitive.ObjectID    `bson:"_id"`
	IndicatorID    primitive.ObjectID    `bson:"indicator_id"`
	Category       models.Category       `bson:"category"`
	Subcategory    string                `bson:"subcategory"`
	PeriodKind     models.PeriodKind     `bson:"period_kind"`
	Year           int                   `bson:"year"`
	Month          int                   `bson:"month"`
	Value          *primitive.Decimal128 `bson:"value"`
	Status         models.Status         `bson:"status"`
	Verification   *verificationDoc      `bson:"verification,omitempty"`
	Notes          string                `bson:"notes"`
	SourceDocument string                `bson:"source_document"`
	CreatedBy      string                `bson:"created_by"`
	CreatedAt      time.Time             `bson:"created_at"`
	UpdatedBy      string                `bson:"updated_by"`
	UpdatedAt      time.Time             `bson:"updated_at"`

	Indicator *indicatorstore.Doc `bson:"indicator,omitempty"`
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	return primitive.ParseDecimal128(d.String())
}

func fromDecimal128(p *primitive.Decimal128) decimal.NullDecimal {
	if p == nil {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(p.String())
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func (d recordDoc) period() models.Period {
	if d.PeriodKind == models.PeriodMonthly {
		return models.MonthlyPeriod(d.Year, d.Month)
	}
	return models.AnnualPeriod(d.Year)
}

// model converts the document; ind overrides d.Indicator when non-nil.
func (d recordDoc) model(ind *indicatorstore.Doc) models.IndicatorDataRecord {
	if ind == nil {
		ind = d.Indicator
	}
	rec := models.IndicatorDataRecord{
		ID:             d.ID.Hex(),
		IndicatorID:    d.IndicatorID.Hex(),
		Subcategory:    d.Subcategory,
		Category:       d.Category,
		Period:         d.period(),
		Value:          fromDecimal128(d.Value),
		Status:         d.Status,
		Notes:          d.Notes,
		SourceDocument: d.SourceDocument,
		Audit: models.Audit{
			CreatedBy: d.CreatedBy,
			CreatedAt: d.CreatedAt,
			UpdatedBy: d.UpdatedBy,
			UpdatedAt: d.UpdatedAt,
		},
	}
	if ind != nil {
		rec.IndicatorName = ind.Name
		rec.Unit = ind.Unit
	}
	if d.Verification != nil {
		rec.Verification = &models.Verification{
			VerifiedBy:     d.Verification.VerifiedBy,
			VerifiedByName: d.Verification.VerifiedByName,
			VerifiedAt:     d.Verification.VerifiedAt,
		}
	}
	return rec
}

/* -------------------------------------------------------------------------- */
/* Queries                                                                    */
/* -------------------------------------------------------------------------- */

// scopeMatch limits a query to its category and subcategory.
func scopeMatch(q datasource.Query) bson.M {
	m := bson.M{}
	if q.Category != "" {
		m["category"] = q.Category
	}
	switch {
	case q.Subcategory != "":
		m["subcategory"] = q.Subcategory
	case q.ExcludeSubcategory != "":
		m["subcategory"] = bson.M{"$ne": q.ExcludeSubcategory}
	}
	return m
}

// filterMatch applies the user's search and field filters. It runs after
// the indicator $lookup so it can see indicator names.
func filterMatch(q datasource.Query) bson.M {
	m := bson.M{}
	if q.Search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
		m["$or"] = bson.A{
			bson.M{"indicator.name": re},
			bson.M{"notes": re},
			bson.M{"subcategory": re},
		}
	}
	if q.Year != 0 {
		m["year"] = q.Year
	}
	if q.Status != "" {
		m["status"] = q.Status
	}
	if q.IndicatorName != "" {
		m["indicator.name_ci"] = text.Fold(q.IndicatorName)
	}
	return m
}

type facetResult struct {
	Rows  []recordDoc `bson:"rows"`
	Total []struct {
		N int `bson:"n"`
	} `bson:"total"`
	Stats []struct {
		Status models.Status `bson:"_id"`
		N      int           `bson:"n"`
	} `bson:"stats"`
	Indicators []struct {
		N int `bson:"n"`
	} `bson:"indicators"`
	Years []struct {
		Year int `bson:"_id"`
	} `bson:"years"`
}

// Fetch returns one page of a category's data, newest period first, with
// statistics and the years present across the whole category.
func (s *Store) Fetch(ctx context.Context, q datasource.Query) (datasource.Result, error) {
	skip, limit := storeutil.Window(q.Page, q.Limit)
	filter := filterMatch(q)

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: scopeMatch(q)}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "indicators",
			"localField":   "indicator_id",
			"foreignField": "_id",
			"as":           "indicator",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$indicator", "preserveNullAndEmptyArrays": true}}},
		{{Key: "$facet", Value: bson.M{
			"rows": bson.A{
				bson.M{"$match": filter},
				bson.M{"$sort": bson.D{
					{Key: "year", Value: -1},
					{Key: "month", Value: -1},
					{Key: "indicator.name_ci", Value: 1},
					{Key: "_id", Value: 1},
				}},
				bson.M{"$skip": skip},
				bson.M{"$limit": limit},
			},
			"total": bson.A{
				bson.M{"$match": filter},
				bson.M{"$count": "n"},
			},
			"stats": bson.A{
				bson.M{"$group": bson.M{"_id": "$status", "n": bson.M{"$sum": 1}}},
			},
			"indicators": bson.A{
				bson.M{"$group": bson.M{"_id": "$indicator_id"}},
				bson.M{"$count": "n"},
			},
			"years": bson.A{
				bson.M{"$group": bson.M{"_id": "$year"}},
				bson.M{"$sort": bson.M{"_id": -1}},
			},
		}}},
	}

	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return datasource.Result{}, fmt.Errorf("aggregate indicator data: %w", err)
	}
	defer cur.Close(ctx)

	var out []facetResult
	if err := cur.All(ctx, &out); err != nil {
		return datasource.Result{}, fmt.Errorf("decode indicator data: %w", err)
	}

	res := datasource.Result{
		Data:           []models.IndicatorDataRecord{},
		AvailableYears: []int{},
	}
	if len(out) == 0 {
		res.Pagination = models.Pagination{CurrentPage: storeutil.EffectivePage(q.Page), PageSize: int(limit)}
		return res, nil
	}
	f := out[0]

	for _, d := range f.Rows {
		res.Data = append(res.Data, d.model(nil))
	}
	total := 0
	if len(f.Total) > 0 {
		total = f.Total[0].N
	}
	res.Pagination = models.Pagination{
		TotalItems:  total,
		TotalPages:  models.TotalPagesFor(total, int(limit)),
		CurrentPage: storeutil.EffectivePage(q.Page),
		PageSize:    int(limit),
	}
	for _, st := range f.Stats {
		res.Statistics.Total += st.N
		switch st.Status {
		case models.StatusDraft:
			res.Statistics.Draft = st.N
		case models.StatusPreliminary:
			res.Statistics.Preliminary = st.N
		case models.StatusFinal:
			res.Statistics.Final = st.N
		}
	}
	if len(f.Indicators) > 0 {
		res.Statistics.Indicators = f.Indicators[0].N
	}
	for _, y := range f.Years {
		res.AvailableYears = append(res.AvailableYears, y.Year)
	}
	return res, nil
}

// Get returns one record with its indicator details.
func (s *Store) Get(ctx context.Context, id string) (models.IndicatorDataRecord, error) {
	d, err := s.getDoc(ctx, id)
	if err != nil {
		return models.IndicatorDataRecord{}, err
	}
	return s.withIndicator(ctx, d)
}

// ListIndicators implements datasource.Indicators.
func (s *Store) ListIndicators(ctx context.Context, category models.Category) ([]models.Indicator, error) {
	return s.indicators.List(ctx, category)
}

func (s *Store) getDoc(ctx context.Context, id string) (recordDoc, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return recordDoc{}, datasource.ErrNotFound
	}
	var d recordDoc
	if err := s.c.FindOne(ctx, bson.M{"_id": oid}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return recordDoc{}, datasource.ErrNotFound
		}
		return recordDoc{}, err
	}
	return d, nil
}

// withIndicator fills in indicator name and unit. A dangling indicator
// reference is not an error; the record comes back without them.
func (s *Store) withIndicator(ctx context.Context, d recordDoc) (models.IndicatorDataRecord, error) {
	ind, err := s.indicators.GetDoc(ctx, d.IndicatorID)
	if errors.Is(err, datasource.ErrNotFound) {
		return d.model(nil), nil
	}
	if err != nil {
		return models.IndicatorDataRecord{}, err
	}
	return d.model(&ind), nil
}

/* -------------------------------------------------------------------------- */
/* Mutations                                                                  */
/* -------------------------------------------------------------------------- */

// Create inserts a new observation. A second observation for the same
// indicator and period yields a *datasource.DuplicateError naming the
// existing record.
func (s *Store) Create(ctx context.Context, actor datasource.Actor, in datasource.NewRecord) (models.IndicatorDataRecord, error) {
	if err := in.Period.Validate(); err != nil {
		return models.IndicatorDataRecord{}, datasource.NewValidationError("period", err.Error())
	}
	indID, err := primitive.ObjectIDFromHex(in.IndicatorID)
	if err != nil {
		return models.IndicatorDataRecord{}, datasource.NewValidationError("indicator_id", "Unknown indicator.")
	}
	ind, err := s.indicators.GetDoc(ctx, indID)
	if errors.Is(err, datasource.ErrNotFound) {
		return models.IndicatorDataRecord{}, datasource.NewValidationError("indicator_id", "Unknown indicator.")
	}
	if err != nil {
		return models.IndicatorDataRecord{}, err
	}
	if err := checkPeriodKind(ind.Model(), in.Period); err != nil {
		return models.IndicatorDataRecord{}, err
	}
	value, err := toDecimal128(in.Value)
	if err != nil {
		return models.IndicatorDataRecord{}, datasource.NewValidationError("value", "Value is out of range.")
	}

	now := time.Now().UTC()
	d := recordDoc{
		ID:             primitive.NewObjectID(),
		IndicatorID:    indID,
		Category:       ind.Category,
		Subcategory:    ind.Subcategory,
		PeriodKind:     in.Period.Kind,
		Year:           in.Period.Year,
		Month:          in.Period.Month,
		Value:          &value,
		Status:         in.Status,
		Notes:          in.Notes,
		SourceDocument: in.SourceDocument,
		CreatedBy:      actor.ID,
		CreatedAt:      now,
		UpdatedBy:      actor.ID,
		UpdatedAt:      now,
	}
	if _, err := s.c.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.IndicatorDataRecord{}, s.duplicate(ctx, indID, in.Period)
		}
		return models.IndicatorDataRecord{}, err
	}
	return d.model(&ind), nil
}

func (s *Store) duplicate(ctx context.Context, indID primitive.ObjectID, p models.Period) error {
	dup := &datasource.DuplicateError{IndicatorID: indID.Hex(), Period: p}
	var existing struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	err := s.c.FindOne(ctx,
		bson.M{"indicator_id": indID, "year": p.Year, "month": p.Month},
		options.FindOne().SetProjection(bson.M{"_id": 1}),
	).Decode(&existing)
	if err == nil {
		dup.ExistingID = existing.ID.Hex()
	}
	return dup
}

func checkPeriodKind(ind models.Indicator, p models.Period) error {
	switch {
	case ind.IsInflation() && p.Kind != models.PeriodMonthly:
		return datasource.NewValidationError("month", "Month is required for inflation indicators.")
	case !ind.IsInflation() && p.Kind != models.PeriodAnnual:
		return datasource.NewValidationError("month", "Month is only allowed for inflation indicators.")
	}
	return nil
}

// Update applies a patch. Moving a final record back to draft or
// preliminary clears its verification.
func (s *Store) Update(ctx context.Context, actor datasource.Actor, id string, p datasource.Patch) (models.IndicatorDataRecord, error) {
	cur, err := s.getDoc(ctx, id)
	if err != nil {
		return models.IndicatorDataRecord{}, err
	}

	period := cur.period()
	if p.Year != nil {
		period.Year = *p.Year
	}
	if p.Month != nil {
		if period.Kind != models.PeriodMonthly {
			return models.IndicatorDataRecord{}, datasource.NewValidationError("month", "Month is only allowed for inflation indicators.")
		}
		period.Month = *p.Month
	}
	if err := period.Validate(); err != nil {
		return models.IndicatorDataRecord{}, datasource.NewValidationError("period", err.Error())
	}

	set := bson.M{
		"year":       period.Year,
		"month":      period.Month,
		"updated_by": actor.ID,
		"updated_at": time.Now().UTC(),
	}
	update := bson.M{"$set": set}
	if p.Value != nil {
		v, err := toDecimal128(*p.Value)
		if err != nil {
			return models.IndicatorDataRecord{}, datasource.NewValidationError("value", "Value is out of range.")
		}
		set["value"] = v
	}
	if p.Status != nil {
		if *p.Status == models.StatusFinal && cur.Status != models.StatusFinal {
			return models.IndicatorDataRecord{}, datasource.NewValidationError("status", "Use verify to finalize a record.")
		}
		set["status"] = *p.Status
		if *p.Status != models.StatusFinal && cur.Verification != nil {
			update["$unset"] = bson.M{"verification": ""}
		}
	}
	if p.Notes != nil {
		set["notes"] = *p.Notes
	}
	if p.SourceDocument != nil {
		set["source_document"] = *p.SourceDocument
	}

	var d recordDoc
	err = s.c.FindOneAndUpdate(ctx, bson.M{"_id": cur.ID}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.IndicatorDataRecord{}, datasource.ErrNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return models.IndicatorDataRecord{}, datasource.NewValidationError("year", "Data for this indicator and period already exists.")
		}
		return models.IndicatorDataRecord{}, err
	}
	return s.withIndicator(ctx, d)
}

// Delete removes a record.
func (s *Store) Delete(ctx context.Context, actor datasource.Actor, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return datasource.ErrNotFound
	}
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return datasource.ErrNotFound
	}
	return nil
}

// Verify promotes a preliminary record to final and stamps the verifier.
// The status check and the write are one atomic operation.
func (s *Store) Verify(ctx context.Context, actor datasource.Actor, id string) (models.IndicatorDataRecord, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.IndicatorDataRecord{}, datasource.ErrNotFound
	}
	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"status": models.StatusFinal,
		"verification": verificationDoc{
			VerifiedBy:     actor.ID,
			VerifiedByName: actor.Name,
			VerifiedAt:     now,
		},
		"updated_by": actor.ID,
		"updated_at": now,
	}}

	var d recordDoc
	err = s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "status": models.StatusPreliminary},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		n, cerr := s.c.CountDocuments(ctx, bson.M{"_id": oid})
		if cerr != nil {
			return models.IndicatorDataRecord{}, cerr
		}
		if n == 0 {
			return models.IndicatorDataRecord{}, datasource.ErrNotFound
		}
		return models.IndicatorDataRecord{}, datasource.ErrInvalidState
	}
	if err != nil {
		return models.IndicatorDataRecord{}, err
	}
	return s.withIndicator(ctx, d)
}
