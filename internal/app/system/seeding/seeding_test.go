package seeding

import (
	"context"
	"errors"
	"testing"

	indicatorstore "github.com/dalemusser/stratadata/internal/app/store/indicators"
	"github.com/dalemusser/stratadata/internal/domain/models"
	"github.com/dalemusser/stratadata/internal/testutil"
	"go.uber.org/zap"
)

type memCatalogue struct {
	have    map[string]bool
	upserts int
	failOn  string
}

func key(c models.Category, name string) string { return string(c) + "/" + name }

func (m *memCatalogue) Exists(_ context.Context, c models.Category, name string) (bool, error) {
	return m.have[key(c, name)], nil
}

func (m *memCatalogue) Upsert(_ context.Context, ind models.Indicator) error {
	if ind.Name == m.failOn {
		return errors.New("write failed")
	}
	m.have[key(ind.Category, ind.Name)] = true
	m.upserts++
	return nil
}

func TestDefaultIndicators(t *testing.T) {
	perCategory := map[models.Category]int{}
	inflation := 0
	for _, ind := range DefaultIndicators() {
		if !models.IsValidCategory(string(ind.Category)) {
			t.Errorf("%s has invalid category %q", ind.Name, ind.Category)
		}
		perCategory[ind.Category]++
		if ind.IsInflation() {
			inflation++
		}
	}
	for _, c := range models.AllCategories() {
		if perCategory[c] == 0 {
			t.Errorf("no default indicators for %s", c)
		}
	}
	if inflation == 0 {
		t.Error("expected at least one inflation indicator")
	}
}

func TestSeedAll_SkipsExisting(t *testing.T) {
	cat := &memCatalogue{have: map[string]bool{
		key(models.CategoryEconomic, "Inflasi Bulanan"): true,
	}}
	if err := SeedAll(context.Background(), cat, zap.NewNop()); err != nil {
		t.Fatalf("SeedAll() error = %v", err)
	}
	if want := len(DefaultIndicators()) - 1; cat.upserts != want {
		t.Errorf("upserts = %d, want %d", cat.upserts, want)
	}

	// Second run is a no-op.
	cat.upserts = 0
	if err := SeedAll(context.Background(), cat, zap.NewNop()); err != nil {
		t.Fatal(err)
	}
	if cat.upserts != 0 {
		t.Errorf("second run upserts = %d, want 0", cat.upserts)
	}
}

func TestSeedAll_PropagatesErrors(t *testing.T) {
	cat := &memCatalogue{have: map[string]bool{}, failOn: "Curah Hujan"}
	if err := SeedAll(context.Background(), cat, zap.NewNop()); err == nil {
		t.Error("SeedAll() should return the upsert error")
	}
}

func TestSeedAll_Mongo(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := indicatorstore.New(db)
	if err := SeedAll(ctx, store, zap.NewNop()); err != nil {
		t.Fatalf("SeedAll() error = %v", err)
	}
	list, err := store.List(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != len(DefaultIndicators()) {
		t.Errorf("seeded %d indicators, want %d", len(list), len(DefaultIndicators()))
	}
}
