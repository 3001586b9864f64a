package repository

import (
	"context"
	"time"

	"golang-sentiment-index/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ScoreFilter narrows score history queries. Zero values mean "no filter".
type ScoreFilter struct {
	Asset     string
	Driver    string
	StartDate *time.Time
	EndDate   *time.Time
}

// DriverScoreRepository defines the interface for driver score data operations.
type DriverScoreRepository interface {
	Upsert(ctx context.Context, score *entity.DriverScore) error
	FindForDate(ctx context.Context, asset string, date time.Time) ([]entity.DriverScore, error)
	Find(ctx context.Context, filter ScoreFilter) ([]entity.DriverScore, error)
}

// NewDriverScoreRepository creates a new GORM-based driver score repository.
func NewDriverScoreRepository(db *gorm.DB) DriverScoreRepository {
	return &driverScoreRepository{db: db}
}

type driverScoreRepository struct {
	db *gorm.DB
}

// Upsert inserts a driver score or overwrites the row for (date, asset, driver).
func (r *driverScoreRepository) Upsert(ctx context.Context, score *entity.DriverScore) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}, {Name: "asset"}, {Name: "driver"}},
		DoUpdates: clause.AssignmentColumns([]string{"sentiment_score", "macro_score", "updated_at"}),
	}).Create(score).Error
}

// FindForDate retrieves all driver scores for an asset on a single date.
func (r *driverScoreRepository) FindForDate(ctx context.Context, asset string, date time.Time) ([]entity.DriverScore, error) {
	var scores []entity.DriverScore
	err := r.db.WithContext(ctx).
		Where("asset = ? AND date = ?", asset, date).
		Order("driver").
		Find(&scores).Error
	return scores, err
}

// Find retrieves driver scores matching the filter.
func (r *driverScoreRepository) Find(ctx context.Context, filter ScoreFilter) ([]entity.DriverScore, error) {
	query := r.db.WithContext(ctx).Model(&entity.DriverScore{})
	if filter.Asset != "" {
		query = query.Where("asset = ?", filter.Asset)
	}
	if filter.Driver != "" {
		query = query.Where("driver = ?", filter.Driver)
	}
	if filter.StartDate != nil {
		query = query.Where("date >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("date <= ?", *filter.EndDate)
	}

	var scores []entity.DriverScore
	err := query.Order("date, driver").Find(&scores).Error
	return scores, err
}
