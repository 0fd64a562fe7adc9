// internal/app/system/seeding/seeding.go
package seeding

import (
	"context"

	"github.com/dalemusser/stratadata/internal/domain/models"
	"go.uber.org/zap"
)

// Catalogue is where indicators are stored. Both backends provide one.
type Catalogue interface {
	Exists(ctx context.Context, category models.Category, name string) (bool, error)
	Upsert(ctx context.Context, ind models.Indicator) error
}

// DefaultIndicators is the starter catalogue for a fresh install.
func DefaultIndicators() []models.Indicator {
	return []models.Indicator{
		{Name: "Jumlah Penduduk", Category: models.CategoryDemographic, Subcategory: "Kependudukan", Unit: "Jiwa"},
		{Name: "Laju Pertumbuhan Penduduk", Category: models.CategoryDemographic, Subcategory: "Kependudukan", Unit: "%"},
		{Name: "Rasio Jenis Kelamin", Category: models.CategoryDemographic, Subcategory: "Kependudukan", Unit: "Rasio"},
		{Name: "Angka Harapan Hidup", Category: models.CategoryDemographic, Subcategory: "Kesehatan", Unit: "Tahun"},

		{Name: "PDRB Atas Dasar Harga Berlaku", Category: models.CategoryEconomic, Subcategory: "Ekonomi Makro", Unit: "Miliar Rupiah"},
		{Name: "Laju Pertumbuhan Ekonomi", Category: models.CategoryEconomic, Subcategory: "Ekonomi Makro", Unit: "%"},
		{Name: "Tingkat Pengangguran Terbuka", Category: models.CategoryEconomic, Subcategory: "Ketenagakerjaan", Unit: "%"},
		{Name: "Inflasi Bulanan", Category: models.CategoryEconomic, Subcategory: models.InflationSubcategory, Unit: "%"},
		{Name: "Inflasi Tahun Kalender", Category: models.CategoryEconomic, Subcategory: models.InflationSubcategory, Unit: "%"},
		{Name: "Inflasi Year on Year", Category: models.CategoryEconomic, Subcategory: models.InflationSubcategory, Unit: "%"},

		{Name: "Luas Kawasan Hutan", Category: models.CategoryEnvironmental, Subcategory: "Kehutanan", Unit: "Ha"},
		{Name: "Curah Hujan", Category: models.CategoryEnvironmental, Subcategory: "Iklim", Unit: "mm"},
		{Name: "Indeks Kualitas Udara", Category: models.CategoryEnvironmental, Subcategory: "Kualitas Lingkungan", Unit: "Indeks"},
	}
}

// SeedAll seeds default data if not already present.
func SeedAll(ctx context.Context, cat Catalogue, logger *zap.Logger) error {
	return seedIndicators(ctx, cat, DefaultIndicators(), logger)
}

// seedIndicators creates indicators that don't exist yet. Existing ones
// are left alone so admin edits survive restarts.
func seedIndicators(ctx context.Context, cat Catalogue, inds []models.Indicator, logger *zap.Logger) error {
	for _, ind := range inds {
		exists, err := cat.Exists(ctx, ind.Category, ind.Name)
		if err != nil {
			logger.Error("failed to check if indicator exists",
				zap.String("category", string(ind.Category)),
				zap.String("name", ind.Name),
				zap.Error(err))
			return err
		}
		if exists {
			continue
		}
		if err := cat.Upsert(ctx, ind); err != nil {
			logger.Error("failed to seed indicator",
				zap.String("category", string(ind.Category)),
				zap.String("name", ind.Name),
				zap.Error(err))
			return err
		}
		logger.Info("seeded default indicator",
			zap.String("category", string(ind.Category)),
			zap.String("name", ind.Name))
	}
	return nil
}
