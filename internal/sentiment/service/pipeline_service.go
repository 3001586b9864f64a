package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"golang-sentiment-index/internal/entity"
	"golang-sentiment-index/internal/sentiment/provider"
	"golang-sentiment-index/internal/sentiment/registry"
	"golang-sentiment-index/internal/sentiment/repository"
	"golang-sentiment-index/pkg/common"
	"golang-sentiment-index/pkg/logger"
	"golang-sentiment-index/pkg/report"
	"golang-sentiment-index/pkg/telegram"
	"golang-sentiment-index/pkg/utils"

	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
)

const (
	// RunStarted acknowledges that a new pipeline run was accepted.
	RunStarted = "started"
	// RunAlreadyRunning acknowledges that a run is already in flight; the
	// caller is expected to poll Status.
	RunAlreadyRunning = "already_running"
)

// RunAck is the immediate acknowledgement returned by Run and Backfill.
type RunAck struct {
	Status string `json:"status"`
	Date   string `json:"date,omitempty"`
}

// RunResult summarizes the outcome of the most recent successful run.
type RunResult struct {
	Date           string  `json:"date"`
	Asset          string  `json:"asset"`
	CompositeScore float64 `json:"composite_score"`
	Label          string  `json:"label"`
}

// RunStatus is the pollable observation of the run-state machine.
type RunStatus struct {
	Running    bool       `json:"running"`
	LastError  *string    `json:"last_error"`
	LastResult *RunResult `json:"last_result"`
}

// runState is the single shared mutable resource of the pipeline: a
// mutex-guarded run flag plus the last observed outcome. It is owned by the
// service instance so tests can construct isolated pipelines.
type runState struct {
	mu         sync.Mutex
	running    bool
	lastError  *string
	lastResult *RunResult
}

// tryAcquire atomically tests the idle flag and marks the state running.
func (s *runState) tryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

// release records the run outcome and returns the state to idle.
func (s *runState) release(result *RunResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	if err != nil {
		msg := err.Error()
		s.lastError = &msg
		return
	}
	s.lastError = nil
	s.lastResult = result
}

// snapshot is a pure read of the state; it never blocks a running pipeline.
func (s *runState) snapshot() RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return RunStatus{
		Running:    s.running,
		LastError:  s.lastError,
		LastResult: s.lastResult,
	}
}

// PipelineService drives the scoring pipeline and exposes its run state.
type PipelineService interface {
	Run(ctx context.Context, asset string, targetDate *time.Time) (*RunAck, error)
	Backfill(ctx context.Context, asset string, startDate, endDate time.Time) (*RunAck, error)
	Status() RunStatus
}

// PipelineDeps bundles the collaborators of the pipeline service.
type PipelineDeps struct {
	Signals      repository.RawSignalRepository
	DriverScores repository.DriverScoreRepository
	LayerScores  repository.LayerScoreRepository
	Composites   repository.DailyCompositeRepository
	Registry     registry.Registry
	Source       provider.SignalSource
	Prices       provider.PriceProvider
	Normalizer   *Normalizer
	RedisClient  *redis.Client
	StreamMaxLen int64
	Notifier     telegram.Notifier
	Logger       *logger.Logger
}

// NewPipelineService creates the pipeline orchestrator. RedisClient and
// Notifier are optional; nil disables event publishing and report delivery.
func NewPipelineService(deps PipelineDeps) PipelineService {
	return &pipelineService{
		deps:  deps,
		state: &runState{},
	}
}

type pipelineService struct {
	deps  PipelineDeps
	state *runState
}

// Run requests a pipeline execution for one asset and date. It returns
// immediately: "started" with the pipeline executing in the background, or
// "already_running" when another run holds the guard. Only configuration
// problems (unknown asset, malformed weights) surface as synchronous errors.
func (s *pipelineService) Run(ctx context.Context, asset string, targetDate *time.Time) (*RunAck, error) {
	cfg, err := s.deps.Registry.Get(asset)
	if err != nil {
		return nil, err
	}

	date := utils.Today()
	if targetDate != nil {
		date = *targetDate
	}

	if !s.state.tryAcquire() {
		return &RunAck{Status: RunAlreadyRunning}, nil
	}

	go func() {
		// The request context ends with the HTTP call; the run does not.
		runCtx := context.Background()
		result, err := s.executeDate(runCtx, cfg, date)
		if err != nil {
			s.deps.Logger.Error("Pipeline run failed",
				logger.ErrorField(err),
				logger.Field("asset", asset),
				logger.Field("date", utils.FormatDate(date)))
		}
		s.state.release(result, err)
	}()

	return &RunAck{Status: RunStarted, Date: utils.FormatDate(date)}, nil
}

// Backfill runs the pipeline for every weekday in [startDate, endDate] under a
// single Running span. Per-date failures are logged and skipped; the backfill
// fails only when no date succeeds.
func (s *pipelineService) Backfill(ctx context.Context, asset string, startDate, endDate time.Time) (*RunAck, error) {
	cfg, err := s.deps.Registry.Get(asset)
	if err != nil {
		return nil, err
	}
	if endDate.Before(startDate) {
		return nil, fmt.Errorf("end date %s is before start date %s",
			utils.FormatDate(endDate), utils.FormatDate(startDate))
	}
	if !rangeHasWeekday(startDate, endDate) {
		return nil, fmt.Errorf("no weekdays between %s and %s",
			utils.FormatDate(startDate), utils.FormatDate(endDate))
	}

	if !s.state.tryAcquire() {
		return &RunAck{Status: RunAlreadyRunning}, nil
	}

	go func() {
		runCtx := context.Background()
		var lastResult *RunResult
		var succeeded, failed int

		for date := startDate; !date.After(endDate); date = date.AddDate(0, 0, 1) {
			if utils.IsWeekend(date) {
				continue
			}
			result, err := s.executeDate(runCtx, cfg, date)
			if err != nil {
				failed++
				s.deps.Logger.Error("Backfill date failed",
					logger.ErrorField(err),
					logger.Field("asset", asset),
					logger.Field("date", utils.FormatDate(date)))
				continue
			}
			succeeded++
			lastResult = result
		}

		if succeeded == 0 && failed > 0 {
			s.state.release(nil, fmt.Errorf("backfill failed for all %d dates", failed))
			return
		}
		s.deps.Logger.Info("Backfill finished",
			logger.Field("asset", asset),
			logger.Field("succeeded", succeeded),
			logger.Field("failed", failed))
		s.state.release(lastResult, nil)
	}()

	return &RunAck{Status: RunStarted, Date: utils.FormatDate(startDate)}, nil
}

func rangeHasWeekday(startDate, endDate time.Time) bool {
	for date := startDate; !date.After(endDate); date = date.AddDate(0, 0, 1) {
		if !utils.IsWeekend(date) {
			return true
		}
	}
	return false
}

// Status reports the observable run state for polling callers.
func (s *pipelineService) Status() RunStatus {
	return s.state.snapshot()
}

// executeDate runs the four stages in order for one (asset, date). Each stage
// persists its rows before the next stage reads them, so a failed run leaves
// completed stages in place to be overwritten by a later rerun.
func (s *pipelineService) executeDate(ctx context.Context, cfg *registry.AssetConfig, date time.Time) (*RunResult, error) {
	asset := cfg.AssetID
	s.deps.Logger.Info("Pipeline run starting",
		logger.Field("asset", asset),
		logger.Field("date", utils.FormatDate(date)))

	observations, err := s.deps.Source.FetchSignals(ctx, asset, date)
	if err != nil {
		return nil, fmt.Errorf("signal ingestion failed: %w", err)
	}

	if err := s.normalizeAndStore(ctx, asset, date, observations); err != nil {
		return nil, err
	}
	if err := s.computeDriverScores(ctx, asset, date); err != nil {
		return nil, err
	}
	layerScore, driverScores, err := s.computeLayerScores(ctx, cfg, date)
	if err != nil {
		return nil, err
	}
	composite, err := s.computeComposite(ctx, cfg, date, layerScore, driverScores)
	if err != nil {
		return nil, err
	}

	s.publishCompleted(ctx, composite)
	s.sendReport(cfg, composite)

	s.deps.Logger.Info("Pipeline run succeeded",
		logger.Field("asset", asset),
		logger.Field("date", utils.FormatDate(date)),
		logger.Field("composite_score", composite.CompositeScore),
		logger.Field("label", composite.Label))

	return &RunResult{
		Date:           utils.FormatDate(date),
		Asset:          asset,
		CompositeScore: composite.CompositeScore,
		Label:          composite.Label,
	}, nil
}

// normalizeAndStore normalizes each observation and upserts the raw signal
// rows. Observations with a missing or non-numeric raw value are skipped, not
// scored as neutral.
func (s *pipelineService) normalizeAndStore(ctx context.Context, asset string, date time.Time, observations []provider.RawObservation) error {
	stored := 0
	for _, obs := range observations {
		if obs.RawValue == nil || math.IsNaN(*obs.RawValue) || math.IsInf(*obs.RawValue, 0) {
			s.deps.Logger.Warn("Skipping signal with unusable raw value",
				logger.Field("driver", obs.Driver),
				logger.Field("source", obs.Source),
				logger.Field("series", obs.SeriesName))
			continue
		}
		if !obs.Layer.Valid() {
			s.deps.Logger.Warn("Skipping signal with unknown layer",
				logger.Field("driver", obs.Driver),
				logger.Field("layer", string(obs.Layer)))
			continue
		}

		history, err := s.deps.Signals.FindHistory(ctx, asset, obs.Driver, obs.Source, obs.SeriesName,
			date, s.deps.Normalizer.HistoryWindow())
		if err != nil {
			return fmt.Errorf("failed to load normalization history: %w", err)
		}

		invert := false
		if v, ok := obs.Metadata["invert"].(bool); ok {
			invert = v
		}
		normalized := s.deps.Normalizer.Normalize(obs.Source, obs.SeriesName, *obs.RawValue, history, invert)

		var metadata datatypes.JSON
		if obs.Metadata != nil {
			raw, err := json.Marshal(obs.Metadata)
			if err != nil {
				return fmt.Errorf("failed to marshal signal metadata: %w", err)
			}
			metadata = datatypes.JSON(raw)
		}

		signal := &entity.RawSignal{
			Date:            date,
			Asset:           asset,
			Driver:          obs.Driver,
			Layer:           obs.Layer,
			Source:          obs.Source,
			SeriesName:      obs.SeriesName,
			RawValue:        *obs.RawValue,
			NormalizedValue: &normalized,
			Metadata:        metadata,
		}
		if err := s.deps.Signals.Upsert(ctx, signal); err != nil {
			return fmt.Errorf("failed to store raw signal: %w", err)
		}
		stored++
	}

	s.deps.Logger.Info("Stored normalized signals",
		logger.Field("asset", asset),
		logger.Field("stored", stored),
		logger.Field("received", len(observations)))
	return nil
}

// computeDriverScores aggregates the day's persisted signals into one
// DriverScore row per driver.
func (s *pipelineService) computeDriverScores(ctx context.Context, asset string, date time.Time) error {
	signals, err := s.deps.Signals.FindForDate(ctx, asset, date)
	if err != nil {
		return fmt.Errorf("failed to load raw signals: %w", err)
	}

	byDriver := make(map[string][]entity.RawSignal)
	for _, sig := range signals {
		byDriver[sig.Driver] = append(byDriver[sig.Driver], sig)
	}

	drivers := make([]string, 0, len(byDriver))
	for driver := range byDriver {
		drivers = append(drivers, driver)
	}
	sort.Strings(drivers)

	for _, driver := range drivers {
		sentiment, macro := AggregateDriver(byDriver[driver])
		score := &entity.DriverScore{
			Date:           date,
			Asset:          asset,
			Driver:         driver,
			SentimentScore: sentiment,
			MacroScore:     macro,
		}
		if err := s.deps.DriverScores.Upsert(ctx, score); err != nil {
			return fmt.Errorf("failed to store driver score for %s: %w", driver, err)
		}
	}
	return nil
}

// computeLayerScores aggregates the day's driver scores into the LayerScore
// row, renormalizing weights over drivers that have data.
func (s *pipelineService) computeLayerScores(ctx context.Context, cfg *registry.AssetConfig, date time.Time) (*entity.LayerScore, []entity.DriverScore, error) {
	driverScores, err := s.deps.DriverScores.FindForDate(ctx, cfg.AssetID, date)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load driver scores: %w", err)
	}

	sentimentByDriver := make(map[string]*float64)
	macroByDriver := make(map[string]*float64)
	for _, ds := range driverScores {
		sentimentByDriver[ds.Driver] = ds.SentimentScore
		macroByDriver[ds.Driver] = ds.MacroScore
	}

	layerScore := &entity.LayerScore{
		Date:                date,
		Asset:               cfg.AssetID,
		SentimentLayerScore: AggregateLayer(sentimentByDriver, cfg.DriverWeights),
		MacroLayerScore:     AggregateLayer(macroByDriver, cfg.DriverWeights),
	}
	if err := s.deps.LayerScores.Upsert(ctx, layerScore); err != nil {
		return nil, nil, fmt.Errorf("failed to store layer scores: %w", err)
	}
	return layerScore, driverScores, nil
}

// computeComposite blends the layer scores, snapshots the driver breakdown,
// enriches with the asset quote when available, and upserts the composite row.
func (s *pipelineService) computeComposite(ctx context.Context, cfg *registry.AssetConfig, date time.Time, layerScore *entity.LayerScore, driverScores []entity.DriverScore) (*entity.DailyComposite, error) {
	wSentiment := cfg.LayerWeights["sentiment"]
	wMacro := cfg.LayerWeights["macro"]

	if layerScore.SentimentLayerScore == nil && layerScore.MacroLayerScore != nil {
		s.deps.Logger.Warn("Sentiment layer missing, composite uses macro layer alone",
			logger.Field("asset", cfg.AssetID), logger.Field("date", utils.FormatDate(date)))
	}
	if layerScore.MacroLayerScore == nil && layerScore.SentimentLayerScore != nil {
		s.deps.Logger.Warn("Macro layer missing, composite uses sentiment layer alone",
			logger.Field("asset", cfg.AssetID), logger.Field("date", utils.FormatDate(date)))
	}

	result := BlendLayers(layerScore.SentimentLayerScore, layerScore.MacroLayerScore, wSentiment, wMacro)

	breakdown, err := s.buildBreakdown(cfg, driverScores, wSentiment, wMacro)
	if err != nil {
		return nil, err
	}

	composite := &entity.DailyComposite{
		Date:            date,
		Asset:           cfg.AssetID,
		CompositeScore:  result.Score,
		Label:           result.Label,
		SentimentLayer:  layerScore.SentimentLayerScore,
		MacroLayer:      layerScore.MacroLayerScore,
		DriverBreakdown: breakdown,
	}

	if s.deps.Prices != nil {
		quote, err := s.deps.Prices.FetchQuote(ctx, cfg.AssetID, date)
		if err != nil {
			s.deps.Logger.Warn("Could not fetch asset quote", logger.ErrorField(err),
				logger.Field("asset", cfg.AssetID))
		} else if quote != nil {
			composite.AssetPrice = &quote.Price
			composite.AssetReturn = quote.Return
		}
	}

	if err := s.deps.Composites.Upsert(ctx, composite); err != nil {
		return nil, fmt.Errorf("failed to store daily composite: %w", err)
	}
	return composite, nil
}

// buildBreakdown freezes each configured driver's scores and weighted
// contribution using the same null-excluded weighting the layer math used.
func (s *pipelineService) buildBreakdown(cfg *registry.AssetConfig, driverScores []entity.DriverScore, wSentiment, wMacro float64) (datatypes.JSON, error) {
	sentimentByDriver := make(map[string]*float64)
	macroByDriver := make(map[string]*float64)
	for _, ds := range driverScores {
		sentimentByDriver[ds.Driver] = ds.SentimentScore
		macroByDriver[ds.Driver] = ds.MacroScore
	}
	sentWeights := AvailableWeights(sentimentByDriver, cfg.DriverWeights)
	macroWeights := AvailableWeights(macroByDriver, cfg.DriverWeights)

	// Mirror the layer fallback: a layer with no data drops out and its
	// weight shifts to the other, so the contributions sum to the composite.
	if len(sentWeights) == 0 {
		wSentiment = 0
	}
	if len(macroWeights) == 0 {
		wMacro = 0
	}
	wTotal := wSentiment + wMacro

	breakdown := make(map[string]entity.DriverContribution, len(cfg.DriverNames))
	for _, driver := range cfg.DriverNames {
		contribution := entity.DriverContribution{
			Sentiment: sentimentByDriver[driver],
			Macro:     macroByDriver[driver],
			Weight:    cfg.DriverWeights[driver],
		}
		if wTotal > 0 {
			var weighted float64
			if score := sentimentByDriver[driver]; score != nil {
				weighted += sentWeights[driver] * wSentiment / wTotal * *score
			}
			if score := macroByDriver[driver]; score != nil {
				weighted += macroWeights[driver] * wMacro / wTotal * *score
			}
			contribution.Weighted = weighted
		}
		breakdown[driver] = contribution
	}

	raw, err := json.Marshal(breakdown)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal driver breakdown: %w", err)
	}
	return datatypes.JSON(raw), nil
}

// publishCompleted emits a run-completed event to the Redis stream for
// downstream consumers. Publishing failures never fail the run.
func (s *pipelineService) publishCompleted(ctx context.Context, composite *entity.DailyComposite) {
	if s.deps.RedisClient == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"date":            utils.FormatDate(composite.Date),
		"asset":           composite.Asset,
		"composite_score": composite.CompositeScore,
		"label":           composite.Label,
	})
	if err != nil {
		s.deps.Logger.Error("Failed to marshal completion event", logger.ErrorField(err))
		return
	}
	if err := s.deps.RedisClient.XAdd(ctx, &redis.XAddArgs{
		Stream: common.RedisStreamPipelineCompleted,
		Values: map[string]interface{}{"payload": payload},
		MaxLen: s.deps.StreamMaxLen,
	}).Err(); err != nil {
		s.deps.Logger.Error("Failed to publish completion event", logger.ErrorField(err))
	}
}

// sendReport delivers the daily report through the notifier when configured.
func (s *pipelineService) sendReport(cfg *registry.AssetConfig, composite *entity.DailyComposite) {
	if s.deps.Notifier == nil {
		return
	}
	text := report.DailyReport(cfg.DisplayName, composite)
	if err := s.deps.Notifier.SendMessage(text); err != nil {
		s.deps.Logger.Error("Failed to send daily report", logger.ErrorField(err))
	}
}
