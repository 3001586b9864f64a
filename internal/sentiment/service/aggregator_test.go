package service

import (
	"testing"

	"golang-sentiment-index/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 { return &v }

func signal(layer entity.Layer, normalized *float64) entity.RawSignal {
	return entity.RawSignal{Driver: "d", Layer: layer, NormalizedValue: normalized}
}

func TestAggregateDriver(t *testing.T) {
	sentiment, macro := AggregateDriver([]entity.RawSignal{
		signal(entity.LayerSentiment, fptr(40)),
		signal(entity.LayerSentiment, fptr(60)),
		signal(entity.LayerMacro, fptr(70)),
	})

	require.NotNil(t, sentiment)
	require.NotNil(t, macro)
	assert.InDelta(t, 50.0, *sentiment, 1e-9)
	assert.InDelta(t, 70.0, *macro, 1e-9)
}

func TestAggregateDriverEmptyLayerIsNil(t *testing.T) {
	sentiment, macro := AggregateDriver([]entity.RawSignal{
		signal(entity.LayerSentiment, fptr(55)),
	})

	require.NotNil(t, sentiment)
	assert.Nil(t, macro, "layer without signals must not get a fabricated score")
}

func TestAggregateDriverSkipsUnnormalizedSignals(t *testing.T) {
	sentiment, macro := AggregateDriver([]entity.RawSignal{
		signal(entity.LayerSentiment, fptr(80)),
		signal(entity.LayerSentiment, nil),
	})

	require.NotNil(t, sentiment)
	assert.InDelta(t, 80.0, *sentiment, 1e-9)
	assert.Nil(t, macro)
}

func TestAggregateLayer(t *testing.T) {
	weights := map[string]float64{"a": 0.5, "b": 0.5}
	score := AggregateLayer(map[string]*float64{"a": fptr(60), "b": fptr(40)}, weights)

	require.NotNil(t, score)
	assert.InDelta(t, 50.0, *score, 1e-9)
}

func TestAggregateLayerRenormalizesOverScoredDrivers(t *testing.T) {
	// b has no score: a's weight renormalizes to 1.0, not weight x 0 or x 50.
	weights := map[string]float64{"a": 0.25, "b": 0.75}
	score := AggregateLayer(map[string]*float64{"a": fptr(70), "b": nil}, weights)

	require.NotNil(t, score)
	assert.InDelta(t, 70.0, *score, 1e-9)
}

func TestAggregateLayerNullExclusion(t *testing.T) {
	// Three drivers, one missing: result is the weighted mean of the other two.
	weights := map[string]float64{"a": 0.5, "b": 0.3, "c": 0.2}
	score := AggregateLayer(map[string]*float64{"a": fptr(80), "b": nil, "c": fptr(30)}, weights)

	require.NotNil(t, score)
	expected := (0.5*80 + 0.2*30) / 0.7
	assert.InDelta(t, expected, *score, 1e-9)
}

func TestAggregateLayerAllMissing(t *testing.T) {
	weights := map[string]float64{"a": 0.5, "b": 0.5}
	assert.Nil(t, AggregateLayer(map[string]*float64{"a": nil, "b": nil}, weights))
	assert.Nil(t, AggregateLayer(map[string]*float64{}, weights))
}

func TestAggregateLayerIgnoresUnweightedDrivers(t *testing.T) {
	weights := map[string]float64{"a": 1.0}
	score := AggregateLayer(map[string]*float64{"a": fptr(60), "rogue": fptr(0)}, weights)

	require.NotNil(t, score)
	assert.InDelta(t, 60.0, *score, 1e-9)
}

func TestAvailableWeights(t *testing.T) {
	weights := map[string]float64{"a": 0.5, "b": 0.3, "c": 0.2}
	normalized := AvailableWeights(map[string]*float64{"a": fptr(1), "b": nil, "c": fptr(1)}, weights)

	assert.InDelta(t, 0.5/0.7, normalized["a"], 1e-9)
	assert.InDelta(t, 0.2/0.7, normalized["c"], 1e-9)
	assert.NotContains(t, normalized, "b")
}
