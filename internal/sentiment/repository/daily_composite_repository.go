package repository

import (
	"context"
	"errors"

	"golang-sentiment-index/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DailyCompositeRepository defines the interface for composite data operations.
type DailyCompositeRepository interface {
	Upsert(ctx context.Context, composite *entity.DailyComposite) error
	FindLatest(ctx context.Context, asset string) (*entity.DailyComposite, error)
	Find(ctx context.Context, filter ScoreFilter) ([]entity.DailyComposite, error)
}

// NewDailyCompositeRepository creates a new GORM-based composite repository.
func NewDailyCompositeRepository(db *gorm.DB) DailyCompositeRepository {
	return &dailyCompositeRepository{db: db}
}

type dailyCompositeRepository struct {
	db *gorm.DB
}

// Upsert inserts a composite row or overwrites the row for (date, asset).
func (r *dailyCompositeRepository) Upsert(ctx context.Context, composite *entity.DailyComposite) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date"}, {Name: "asset"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"composite_score", "label", "sentiment_layer", "macro_layer",
			"driver_breakdown", "asset_price", "asset_return", "updated_at",
		}),
	}).Create(composite).Error
}

// FindLatest retrieves the most recent composite row for an asset, or nil if
// none exists.
func (r *dailyCompositeRepository) FindLatest(ctx context.Context, asset string) (*entity.DailyComposite, error) {
	var composite entity.DailyComposite
	err := r.db.WithContext(ctx).
		Where("asset = ?", asset).
		Order("date DESC").
		First(&composite).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &composite, nil
}

// Find retrieves composite rows matching the filter.
func (r *dailyCompositeRepository) Find(ctx context.Context, filter ScoreFilter) ([]entity.DailyComposite, error) {
	query := r.db.WithContext(ctx).Model(&entity.DailyComposite{})
	if filter.Asset != "" {
		query = query.Where("asset = ?", filter.Asset)
	}
	if filter.StartDate != nil {
		query = query.Where("date >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("date <= ?", *filter.EndDate)
	}

	var composites []entity.DailyComposite
	err := query.Order("date").Find(&composites).Error
	return composites, err
}
