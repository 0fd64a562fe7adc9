// internal/app/store/indicators/indicatorstore.go
package indicatorstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/stratadata/internal/app/datasource"
	"github.com/dalemusser/stratadata/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store provides access to the indicators collection.
type Store struct {
	c *mongo.Collection
}

// New creates a new indicator store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("indicators")}
}

// Doc is the stored shape of an indicator.
type Doc struct {
	ID          primitive.ObjectID `bson:"_id"`
	Name        string             `bson:"name"`
	NameCI      string             `bson:"name_ci"`
	Category    models.Category    `bson:"category"`
	Subcategory string             `bson:"subcategory"`
	Unit        string             `bson:"unit,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

// Model converts the document to the domain type.
func (d Doc) Model() models.Indicator {
	return models.Indicator{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Category:    d.Category,
		Subcategory: d.Subcategory,
		Unit:        d.Unit,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// GetByID returns one indicator. Unknown or malformed ids give
// datasource.ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id string) (models.Indicator, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Indicator{}, datasource.ErrNotFound
	}
	d, err := s.GetDoc(ctx, oid)
	if err != nil {
		return models.Indicator{}, err
	}
	return d.Model(), nil
}

// GetDoc returns the raw document for an indicator.
func (s *Store) GetDoc(ctx context.Context, id primitive.ObjectID) (Doc, error) {
	var d Doc
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Doc{}, datasource.ErrNotFound
		}
		return Doc{}, err
	}
	return d, nil
}

// List returns a category's indicators ordered by subcategory then name.
// An empty category lists everything.
func (s *Store) List(ctx context.Context, category models.Category) ([]models.Indicator, error) {
	filter := bson.M{}
	if category != "" {
		filter["category"] = category
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "category", Value: 1},
		{Key: "subcategory", Value: 1},
		{Key: "name_ci", Value: 1},
	})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []Doc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Indicator, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Model())
	}
	return out, nil
}

// Exists checks if an indicator with this name exists in the category.
// Names compare case- and diacritic-insensitively.
func (s *Store) Exists(ctx context.Context, category models.Category, name string) (bool, error) {
	count, err := s.c.CountDocuments(ctx, bson.M{"category": category, "name_ci": text.Fold(name)})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Upsert creates or updates an indicator keyed by category and name.
func (s *Store) Upsert(ctx context.Context, ind models.Indicator) error {
	now := time.Now().UTC()

	filter := bson.M{"category": ind.Category, "name_ci": text.Fold(ind.Name)}
	update := bson.M{
		"$set": bson.M{
			"name":        ind.Name,
			"subcategory": ind.Subcategory,
			"unit":        ind.Unit,
			"updated_at":  now,
		},
		"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID(),
			"created_at": now,
		},
	}

	opts := options.Update().SetUpsert(true)
	_, err := s.c.UpdateOne(ctx, filter, update, opts)
	return err
}

// Count returns the number of indicators in a category.
func (s *Store) Count(ctx context.Context, category models.Category) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"category": category})
}
