package repository

import (
	"context"
	"time"

	"golang-sentiment-index/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SignalFilter narrows raw signal queries. Zero values mean "no filter".
type SignalFilter struct {
	Asset      string
	Driver     string
	Layer      entity.Layer
	Source     string
	StartDate  *time.Time
	EndDate    *time.Time
	Limit      int
	Offset     int
}

// RawSignalRepository defines the interface for raw signal data operations.
type RawSignalRepository interface {
	Upsert(ctx context.Context, signal *entity.RawSignal) error
	FindForDate(ctx context.Context, asset string, date time.Time) ([]entity.RawSignal, error)
	FindHistory(ctx context.Context, asset, driver, source, seriesName string, before time.Time, limit int) ([]float64, error)
	Find(ctx context.Context, filter SignalFilter) ([]entity.RawSignal, error)
}

// NewRawSignalRepository creates a new GORM-based raw signal repository.
func NewRawSignalRepository(db *gorm.DB) RawSignalRepository {
	return &rawSignalRepository{db: db}
}

type rawSignalRepository struct {
	db *gorm.DB
}

// Upsert inserts a raw signal or overwrites the row with the same identity key.
func (r *rawSignalRepository) Upsert(ctx context.Context, signal *entity.RawSignal) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "date"}, {Name: "asset"}, {Name: "driver"},
			{Name: "layer"}, {Name: "source"}, {Name: "series_name"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"raw_value", "normalized_value", "metadata", "updated_at"}),
	}).Create(signal).Error
}

// FindForDate retrieves all signals for an asset on a single date.
func (r *rawSignalRepository) FindForDate(ctx context.Context, asset string, date time.Time) ([]entity.RawSignal, error) {
	var signals []entity.RawSignal
	err := r.db.WithContext(ctx).
		Where("asset = ? AND date = ?", asset, date).
		Order("driver, layer, source, series_name").
		Find(&signals).Error
	return signals, err
}

// FindHistory returns the trailing raw values of one series strictly before the
// given date, most recent first, capped at limit rows.
func (r *rawSignalRepository) FindHistory(ctx context.Context, asset, driver, source, seriesName string, before time.Time, limit int) ([]float64, error) {
	var values []float64
	err := r.db.WithContext(ctx).
		Model(&entity.RawSignal{}).
		Where("asset = ? AND driver = ? AND source = ? AND series_name = ? AND date < ?",
			asset, driver, source, seriesName, before).
		Order("date DESC").
		Limit(limit).
		Pluck("raw_value", &values).Error
	return values, err
}

// Find retrieves signals matching the filter, paginated.
func (r *rawSignalRepository) Find(ctx context.Context, filter SignalFilter) ([]entity.RawSignal, error) {
	query := r.db.WithContext(ctx).Model(&entity.RawSignal{})
	if filter.Asset != "" {
		query = query.Where("asset = ?", filter.Asset)
	}
	if filter.Driver != "" {
		query = query.Where("driver = ?", filter.Driver)
	}
	if filter.Layer != "" {
		query = query.Where("layer = ?", filter.Layer)
	}
	if filter.Source != "" {
		query = query.Where("source = ?", filter.Source)
	}
	if filter.StartDate != nil {
		query = query.Where("date >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("date <= ?", *filter.EndDate)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var signals []entity.RawSignal
	err := query.Order("date, driver, layer, source, series_name").Find(&signals).Error
	return signals, err
}
