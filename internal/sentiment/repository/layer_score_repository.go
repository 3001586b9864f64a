package repository

import (
	"context"
	"errors"
	"time"

	"golang-sentiment-index/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LayerScoreRepository defines the interface for layer score data operations.
type LayerScoreRepository interface {
	Upsert(ctx context.Context, score *entity.LayerScore) error
	FindForDate(ctx context.Context, asset string, date time.Time) (*entity.LayerScore, error)
	Find(ctx context.Context, filter ScoreFilter) ([]entity.LayerScore, error)
}

// NewLayerScoreRepository creates a new GORM-based layer score repository.
func NewLayerScoreRepository(db *gorm.DB) LayerScoreRepository {
	return &layerScoreRepository{db: db}
}

type layerScoreRepository struct {
	db *gorm.DB
}

// Upsert inserts a layer score or overwrites the row for (date, asset).
func (r *layerScoreRepository) Upsert(ctx context.Context, score *entity.LayerScore) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}, {Name: "asset"}},
		DoUpdates: clause.AssignmentColumns([]string{"sentiment_layer_score", "macro_layer_score", "updated_at"}),
	}).Create(score).Error
}

// FindForDate retrieves the layer score row for an asset on a date, or nil if
// none exists.
func (r *layerScoreRepository) FindForDate(ctx context.Context, asset string, date time.Time) (*entity.LayerScore, error) {
	var score entity.LayerScore
	err := r.db.WithContext(ctx).
		Where("asset = ? AND date = ?", asset, date).
		First(&score).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &score, nil
}

// Find retrieves layer scores matching the filter.
func (r *layerScoreRepository) Find(ctx context.Context, filter ScoreFilter) ([]entity.LayerScore, error) {
	query := r.db.WithContext(ctx).Model(&entity.LayerScore{})
	if filter.Asset != "" {
		query = query.Where("asset = ?", filter.Asset)
	}
	if filter.StartDate != nil {
		query = query.Where("date >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("date <= ?", *filter.EndDate)
	}

	var scores []entity.LayerScore
	err := query.Order("date").Find(&scores).Error
	return scores, err
}
