package service

import (
	"context"
	"fmt"
	"time"

	"golang-sentiment-index/internal/entity"
	"golang-sentiment-index/internal/sentiment/dto"
	"golang-sentiment-index/internal/sentiment/repository"
	"golang-sentiment-index/pkg/logger"
	"golang-sentiment-index/pkg/utils"
)

const defaultSignalPageSize = 100

// HistoryService exposes read access over the four persisted entities.
type HistoryService interface {
	GetSignals(ctx context.Context, query *dto.SignalQuery) ([]entity.RawSignal, error)
	GetDriverScores(ctx context.Context, query *dto.HistoryQuery) ([]entity.DriverScore, error)
	GetLayerScores(ctx context.Context, query *dto.HistoryQuery) ([]entity.LayerScore, error)
	GetComposites(ctx context.Context, query *dto.HistoryQuery) ([]entity.DailyComposite, error)
	GetLatestComposite(ctx context.Context, asset string) (*entity.DailyComposite, error)
}

// NewHistoryService creates a new history read service.
func NewHistoryService(
	signals repository.RawSignalRepository,
	driverScores repository.DriverScoreRepository,
	layerScores repository.LayerScoreRepository,
	composites repository.DailyCompositeRepository,
	log *logger.Logger,
) HistoryService {
	return &historyService{
		signals:      signals,
		driverScores: driverScores,
		layerScores:  layerScores,
		composites:   composites,
		logger:       log,
	}
}

type historyService struct {
	signals      repository.RawSignalRepository
	driverScores repository.DriverScoreRepository
	layerScores  repository.LayerScoreRepository
	composites   repository.DailyCompositeRepository
	logger       *logger.Logger
}

// GetSignals lists raw signals matching the query, paginated.
func (s *historyService) GetSignals(ctx context.Context, query *dto.SignalQuery) ([]entity.RawSignal, error) {
	start, end, err := parseDateRange(query.StartDate, query.EndDate)
	if err != nil {
		return nil, err
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultSignalPageSize
	}
	filter := repository.SignalFilter{
		Asset:     query.Asset,
		Driver:    query.Driver,
		Layer:     entity.Layer(query.Layer),
		Source:    query.Source,
		StartDate: start,
		EndDate:   end,
		Limit:     limit,
		Offset:    query.Offset,
	}
	if filter.Layer != "" && !filter.Layer.Valid() {
		return nil, fmt.Errorf("invalid layer %q", query.Layer)
	}
	return s.signals.Find(ctx, filter)
}

// GetDriverScores lists driver score history matching the query.
func (s *historyService) GetDriverScores(ctx context.Context, query *dto.HistoryQuery) ([]entity.DriverScore, error) {
	filter, err := scoreFilter(query)
	if err != nil {
		return nil, err
	}
	return s.driverScores.Find(ctx, filter)
}

// GetLayerScores lists layer score history matching the query.
func (s *historyService) GetLayerScores(ctx context.Context, query *dto.HistoryQuery) ([]entity.LayerScore, error) {
	filter, err := scoreFilter(query)
	if err != nil {
		return nil, err
	}
	return s.layerScores.Find(ctx, filter)
}

// GetComposites lists composite history matching the query.
func (s *historyService) GetComposites(ctx context.Context, query *dto.HistoryQuery) ([]entity.DailyComposite, error) {
	filter, err := scoreFilter(query)
	if err != nil {
		return nil, err
	}
	return s.composites.Find(ctx, filter)
}

// GetLatestComposite returns the most recent composite row for an asset, or
// nil if the asset has no computed history yet.
func (s *historyService) GetLatestComposite(ctx context.Context, asset string) (*entity.DailyComposite, error) {
	return s.composites.FindLatest(ctx, asset)
}

func scoreFilter(query *dto.HistoryQuery) (repository.ScoreFilter, error) {
	start, end, err := parseDateRange(query.StartDate, query.EndDate)
	if err != nil {
		return repository.ScoreFilter{}, err
	}
	return repository.ScoreFilter{
		Asset:     query.Asset,
		Driver:    query.Driver,
		StartDate: start,
		EndDate:   end,
	}, nil
}

func parseDateRange(startDate, endDate string) (*time.Time, *time.Time, error) {
	var start, end *time.Time
	if startDate != "" {
		t, err := utils.ParseDate(startDate)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid start_date: %w", err)
		}
		start = &t
	}
	if endDate != "" {
		t, err := utils.ParseDate(endDate)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid end_date: %w", err)
		}
		end = &t
	}
	return start, end, nil
}
