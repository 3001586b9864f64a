package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"golang-sentiment-index/internal/entity"
	"golang-sentiment-index/internal/sentiment/provider"
	"golang-sentiment-index/internal/sentiment/registry"
	"golang-sentiment-index/internal/sentiment/repository"
	"golang-sentiment-index/pkg/logger"
	"golang-sentiment-index/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- in-memory fakes -------------------------------------------------------

type fakeSignalRepo struct {
	mu   sync.Mutex
	rows map[string]entity.RawSignal
}

func newFakeSignalRepo() *fakeSignalRepo {
	return &fakeSignalRepo{rows: make(map[string]entity.RawSignal)}
}

func signalKey(s *entity.RawSignal) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s",
		utils.FormatDate(s.Date), s.Asset, s.Driver, s.Layer, s.Source, s.SeriesName)
}

func (f *fakeSignalRepo) Upsert(_ context.Context, signal *entity.RawSignal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[signalKey(signal)] = *signal
	return nil
}

func (f *fakeSignalRepo) FindForDate(_ context.Context, asset string, date time.Time) ([]entity.RawSignal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.RawSignal
	for _, row := range f.rows {
		if row.Asset == asset && row.Date.Equal(date) {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return signalKey(&out[i]) < signalKey(&out[j]) })
	return out, nil
}

func (f *fakeSignalRepo) FindHistory(_ context.Context, asset, driver, source, seriesName string, before time.Time, limit int) ([]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	type dated struct {
		date  time.Time
		value float64
	}
	var matches []dated
	for _, row := range f.rows {
		if row.Asset == asset && row.Driver == driver && row.Source == source &&
			row.SeriesName == seriesName && row.Date.Before(before) {
			matches = append(matches, dated{row.Date, row.RawValue})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].date.After(matches[j].date) })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	values := make([]float64, len(matches))
	for i, m := range matches {
		values[i] = m.value
	}
	return values, nil
}

func (f *fakeSignalRepo) Find(_ context.Context, _ repository.SignalFilter) ([]entity.RawSignal, error) {
	return nil, nil
}

type fakeDriverScoreRepo struct {
	mu   sync.Mutex
	rows map[string]entity.DriverScore
}

func newFakeDriverScoreRepo() *fakeDriverScoreRepo {
	return &fakeDriverScoreRepo{rows: make(map[string]entity.DriverScore)}
}

func (f *fakeDriverScoreRepo) Upsert(_ context.Context, score *entity.DriverScore) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fmt.Sprintf("%s|%s|%s", utils.FormatDate(score.Date), score.Asset, score.Driver)
	f.rows[key] = *score
	return nil
}

func (f *fakeDriverScoreRepo) FindForDate(_ context.Context, asset string, date time.Time) ([]entity.DriverScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.DriverScore
	for _, row := range f.rows {
		if row.Asset == asset && row.Date.Equal(date) {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Driver < out[j].Driver })
	return out, nil
}

func (f *fakeDriverScoreRepo) Find(_ context.Context, _ repository.ScoreFilter) ([]entity.DriverScore, error) {
	return nil, nil
}

type fakeLayerScoreRepo struct {
	mu   sync.Mutex
	rows map[string]entity.LayerScore
}

func newFakeLayerScoreRepo() *fakeLayerScoreRepo {
	return &fakeLayerScoreRepo{rows: make(map[string]entity.LayerScore)}
}

func (f *fakeLayerScoreRepo) Upsert(_ context.Context, score *entity.LayerScore) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[utils.FormatDate(score.Date)+"|"+score.Asset] = *score
	return nil
}

func (f *fakeLayerScoreRepo) FindForDate(_ context.Context, asset string, date time.Time) (*entity.LayerScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[utils.FormatDate(date)+"|"+asset]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (f *fakeLayerScoreRepo) Find(_ context.Context, _ repository.ScoreFilter) ([]entity.LayerScore, error) {
	return nil, nil
}

type fakeCompositeRepo struct {
	mu   sync.Mutex
	rows map[string]entity.DailyComposite
}

func newFakeCompositeRepo() *fakeCompositeRepo {
	return &fakeCompositeRepo{rows: make(map[string]entity.DailyComposite)}
}

func (f *fakeCompositeRepo) Upsert(_ context.Context, composite *entity.DailyComposite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[utils.FormatDate(composite.Date)+"|"+composite.Asset] = *composite
	return nil
}

func (f *fakeCompositeRepo) FindLatest(_ context.Context, asset string) (*entity.DailyComposite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *entity.DailyComposite
	for _, row := range f.rows {
		row := row
		if row.Asset != asset {
			continue
		}
		if latest == nil || row.Date.After(latest.Date) {
			latest = &row
		}
	}
	return latest, nil
}

func (f *fakeCompositeRepo) Find(_ context.Context, _ repository.ScoreFilter) ([]entity.DailyComposite, error) {
	return nil, nil
}

func (f *fakeCompositeRepo) get(date time.Time, asset string) (entity.DailyComposite, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[utils.FormatDate(date)+"|"+asset]
	return row, ok
}

type fakeRegistry struct {
	configs map[string]*registry.AssetConfig
}

func (f *fakeRegistry) Get(assetID string) (*registry.AssetConfig, error) {
	cfg, ok := f.configs[assetID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", registry.ErrUnknownAsset, assetID)
	}
	return cfg, nil
}

func (f *fakeRegistry) List() ([]registry.AssetSummary, error) { return nil, nil }
func (f *fakeRegistry) Reload() error                          { return nil }

type fakeSource struct {
	mu      sync.Mutex
	signals []provider.RawObservation
	err     error
	block   chan struct{}
}

func (f *fakeSource) FetchSignals(_ context.Context, _ string, _ time.Time) ([]provider.RawObservation, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.signals, nil
}

type fakePrices struct {
	quote *provider.AssetQuote
}

func (f *fakePrices) FetchQuote(_ context.Context, _ string, _ time.Time) (*provider.AssetQuote, error) {
	return f.quote, nil
}

// --- helpers ---------------------------------------------------------------

// gdelt signals rescale linearly from [-10, 10], so a raw value of 2 lands on
// exactly 60, 4 on 70, -2 on 40 and 0 on 50.
func obs(driver string, layer entity.Layer, raw float64) provider.RawObservation {
	return provider.RawObservation{
		Driver:     driver,
		Layer:      layer,
		Source:     "gdelt",
		SeriesName: "tone",
		RawValue:   &raw,
	}
}

func goldConfig() *registry.AssetConfig {
	return &registry.AssetConfig{
		AssetID:     "gold",
		DisplayName: "Gold",
		DriverNames: []string{"monetary_policy", "us_dollar"},
		DriverWeights: map[string]float64{
			"monetary_policy": 0.5,
			"us_dollar":       0.5,
		},
		LayerWeights: map[string]float64{"sentiment": 0.4, "macro": 0.6},
	}
}

type pipelineFixture struct {
	pipeline   PipelineService
	signals    *fakeSignalRepo
	drivers    *fakeDriverScoreRepo
	layers     *fakeLayerScoreRepo
	composites *fakeCompositeRepo
	source     *fakeSource
}

func newPipelineFixture(t *testing.T, source *fakeSource) *pipelineFixture {
	t.Helper()
	log, err := logger.New("error", "console")
	require.NoError(t, err)

	f := &pipelineFixture{
		signals:    newFakeSignalRepo(),
		drivers:    newFakeDriverScoreRepo(),
		layers:     newFakeLayerScoreRepo(),
		composites: newFakeCompositeRepo(),
		source:     source,
	}
	f.pipeline = NewPipelineService(PipelineDeps{
		Signals:      f.signals,
		DriverScores: f.drivers,
		LayerScores:  f.layers,
		Composites:   f.composites,
		Registry: &fakeRegistry{configs: map[string]*registry.AssetConfig{
			"gold": goldConfig(),
			"silver": {
				AssetID:       "silver",
				DisplayName:   "Silver",
				DriverNames:   []string{"monetary_policy"},
				DriverWeights: map[string]float64{"monetary_policy": 1.0},
				LayerWeights:  map[string]float64{"sentiment": 0.4, "macro": 0.6},
			},
		}},
		Source:     source,
		Prices:     &fakePrices{},
		Normalizer: NewNormalizer(252, 63),
		Logger:     log,
	})
	return f
}

func waitIdle(t *testing.T, p PipelineService) RunStatus {
	t.Helper()
	require.Eventually(t, func() bool { return !p.Status().Running },
		2*time.Second, 5*time.Millisecond, "pipeline did not return to idle")
	return p.Status()
}

func testDate() time.Time {
	return time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
}

// --- tests -----------------------------------------------------------------

func TestRunEndToEnd(t *testing.T) {
	f := newPipelineFixture(t, &fakeSource{signals: []provider.RawObservation{
		obs("monetary_policy", entity.LayerSentiment, 2),  // 60
		obs("monetary_policy", entity.LayerMacro, 4),      // 70
		obs("us_dollar", entity.LayerSentiment, -2),       // 40
		obs("us_dollar", entity.LayerMacro, 0),            // 50
	}})

	date := testDate()
	ack, err := f.pipeline.Run(context.Background(), "gold", &date)
	require.NoError(t, err)
	assert.Equal(t, RunStarted, ack.Status)
	assert.Equal(t, "2026-08-28", ack.Date)

	status := waitIdle(t, f.pipeline)
	require.Nil(t, status.LastError)
	require.NotNil(t, status.LastResult)

	// sentiment layer 0.5x60+0.5x40=50, macro 0.5x70+0.5x50=60,
	// composite 0.4x50+0.6x60=56
	assert.InDelta(t, 56.0, status.LastResult.CompositeScore, 1e-9)
	assert.Equal(t, "Slightly Bullish", status.LastResult.Label)
	assert.Equal(t, "gold", status.LastResult.Asset)

	row, ok := f.composites.get(date, "gold")
	require.True(t, ok)
	require.NotNil(t, row.SentimentLayer)
	require.NotNil(t, row.MacroLayer)
	assert.InDelta(t, 50.0, *row.SentimentLayer, 1e-9)
	assert.InDelta(t, 60.0, *row.MacroLayer, 1e-9)

	var breakdown map[string]entity.DriverContribution
	require.NoError(t, json.Unmarshal(row.DriverBreakdown, &breakdown))
	require.Len(t, breakdown, 2)
	var total float64
	for _, contribution := range breakdown {
		total += contribution.Weighted
	}
	assert.InDelta(t, 56.0, total, 1e-9, "contributions must sum to the composite")
}

func TestRunMissingLayerReweights(t *testing.T) {
	// us_dollar has no macro signal: the macro layer must equal
	// monetary_policy's macro score alone, not a diluted average.
	f := newPipelineFixture(t, &fakeSource{signals: []provider.RawObservation{
		obs("monetary_policy", entity.LayerSentiment, 2), // 60
		obs("monetary_policy", entity.LayerMacro, 4),     // 70
		obs("us_dollar", entity.LayerSentiment, -2),      // 40
	}})

	date := testDate()
	_, err := f.pipeline.Run(context.Background(), "gold", &date)
	require.NoError(t, err)
	status := waitIdle(t, f.pipeline)
	require.Nil(t, status.LastError)

	row, ok := f.composites.get(date, "gold")
	require.True(t, ok)
	require.NotNil(t, row.MacroLayer)
	assert.InDelta(t, 70.0, *row.MacroLayer, 1e-9)
}

func TestRunIdempotent(t *testing.T) {
	source := &fakeSource{signals: []provider.RawObservation{
		obs("monetary_policy", entity.LayerSentiment, 2),
		obs("monetary_policy", entity.LayerMacro, 4),
		obs("us_dollar", entity.LayerSentiment, -2),
		obs("us_dollar", entity.LayerMacro, 0),
	}}
	f := newPipelineFixture(t, source)
	date := testDate()

	_, err := f.pipeline.Run(context.Background(), "gold", &date)
	require.NoError(t, err)
	waitIdle(t, f.pipeline)

	firstSignals := len(f.signals.rows)
	firstComposite, ok := f.composites.get(date, "gold")
	require.True(t, ok)

	_, err = f.pipeline.Run(context.Background(), "gold", &date)
	require.NoError(t, err)
	waitIdle(t, f.pipeline)

	assert.Equal(t, firstSignals, len(f.signals.rows), "rerun must not duplicate signal rows")
	assert.Len(t, f.composites.rows, 1, "rerun must upsert, not append")
	secondComposite, _ := f.composites.get(date, "gold")
	assert.Equal(t, firstComposite.CompositeScore, secondComposite.CompositeScore)
	assert.Equal(t, firstComposite.Label, secondComposite.Label)
	assert.Equal(t, string(firstComposite.DriverBreakdown), string(secondComposite.DriverBreakdown))
}

func TestRunAlreadyRunning(t *testing.T) {
	block := make(chan struct{})
	f := newPipelineFixture(t, &fakeSource{block: block})

	date := testDate()
	ack, err := f.pipeline.Run(context.Background(), "gold", &date)
	require.NoError(t, err)
	require.Equal(t, RunStarted, ack.Status)
	require.True(t, f.pipeline.Status().Running)

	// A different asset must still be refused while the guard is held.
	second, err := f.pipeline.Run(context.Background(), "silver", &date)
	require.NoError(t, err)
	assert.Equal(t, RunAlreadyRunning, second.Status)

	close(block)
	waitIdle(t, f.pipeline)
}

func TestRunUnknownAssetFailsFast(t *testing.T) {
	f := newPipelineFixture(t, &fakeSource{})

	_, err := f.pipeline.Run(context.Background(), "plutonium", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, registry.ErrUnknownAsset)
	assert.False(t, f.pipeline.Status().Running, "a rejected run must not hold the guard")
}

func TestRunIngestionFailureSurfacesInStatus(t *testing.T) {
	f := newPipelineFixture(t, &fakeSource{err: errors.New("feed unreachable")})

	date := testDate()
	ack, err := f.pipeline.Run(context.Background(), "gold", &date)
	require.NoError(t, err, "ingestion failures are reported through status, not Run")
	require.Equal(t, RunStarted, ack.Status)

	status := waitIdle(t, f.pipeline)
	require.NotNil(t, status.LastError)
	assert.Contains(t, *status.LastError, "feed unreachable")
	assert.Nil(t, status.LastResult)
}

func TestRunRecoversAfterFailure(t *testing.T) {
	source := &fakeSource{err: errors.New("feed unreachable")}
	f := newPipelineFixture(t, source)
	date := testDate()

	_, err := f.pipeline.Run(context.Background(), "gold", &date)
	require.NoError(t, err)
	status := waitIdle(t, f.pipeline)
	require.NotNil(t, status.LastError)

	source.mu.Lock()
	source.err = nil
	source.signals = []provider.RawObservation{obs("monetary_policy", entity.LayerMacro, 4)}
	source.mu.Unlock()

	_, err = f.pipeline.Run(context.Background(), "gold", &date)
	require.NoError(t, err)
	status = waitIdle(t, f.pipeline)
	assert.Nil(t, status.LastError, "a successful rerun clears last_error")
	require.NotNil(t, status.LastResult)
	assert.InDelta(t, 70.0, status.LastResult.CompositeScore, 1e-9)
}

func TestRunSkipsUnusableSignals(t *testing.T) {
	f := newPipelineFixture(t, &fakeSource{signals: []provider.RawObservation{
		obs("monetary_policy", entity.LayerMacro, 4), // 70
		{Driver: "monetary_policy", Layer: entity.LayerMacro, Source: "gdelt", SeriesName: "broken", RawValue: nil},
		{Driver: "monetary_policy", Layer: "weather", Source: "gdelt", SeriesName: "tone", RawValue: fptr(1)},
	}})

	date := testDate()
	_, err := f.pipeline.Run(context.Background(), "gold", &date)
	require.NoError(t, err)
	status := waitIdle(t, f.pipeline)
	require.Nil(t, status.LastError)

	// Only the usable signal was stored and scored; the broken ones were
	// excluded, not treated as zero.
	assert.Len(t, f.signals.rows, 1)
	require.NotNil(t, status.LastResult)
	assert.InDelta(t, 70.0, status.LastResult.CompositeScore, 1e-9)
}

func TestBackfillRunsWeekdaysUnderOneGuard(t *testing.T) {
	f := newPipelineFixture(t, &fakeSource{signals: []provider.RawObservation{
		obs("monetary_policy", entity.LayerMacro, 4),
	}})

	// Thursday through Monday: Saturday and Sunday are skipped.
	start := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	ack, err := f.pipeline.Backfill(context.Background(), "gold", start, end)
	require.NoError(t, err)
	assert.Equal(t, RunStarted, ack.Status)

	status := waitIdle(t, f.pipeline)
	require.Nil(t, status.LastError)
	require.NotNil(t, status.LastResult)
	assert.Equal(t, "2026-08-31", status.LastResult.Date, "status reports the last completed date")
	assert.Len(t, f.composites.rows, 3)
}

func TestBackfillRejectsInvertedRange(t *testing.T) {
	f := newPipelineFixture(t, &fakeSource{})

	start := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	_, err := f.pipeline.Backfill(context.Background(), "gold", start, end)
	require.Error(t, err)
	assert.False(t, f.pipeline.Status().Running)
}

func TestBackfillRejectsWeekendOnlyRange(t *testing.T) {
	f := newPipelineFixture(t, &fakeSource{signals: []provider.RawObservation{
		obs("monetary_policy", entity.LayerSentiment, 2),
	}})

	date := testDate()
	_, err := f.pipeline.Run(context.Background(), "gold", &date)
	require.NoError(t, err)
	before := waitIdle(t, f.pipeline)
	require.NotNil(t, before.LastResult)

	// 2026-08-29 and 2026-08-30 are Saturday and Sunday.
	start := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	_, err = f.pipeline.Backfill(context.Background(), "gold", start, end)
	require.Error(t, err)

	after := f.pipeline.Status()
	assert.False(t, after.Running)
	require.NotNil(t, after.LastResult, "rejected backfill must not wipe the previous result")
	assert.Equal(t, before.LastResult.Date, after.LastResult.Date)
}
