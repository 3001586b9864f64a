package service

import (
	"math"
	"strings"
)

// NormalizationMethod selects how a raw value is mapped onto the 0-100 scale.
type NormalizationMethod string

const (
	MethodPercentile NormalizationMethod = "percentile"
	MethodLinear     NormalizationMethod = "linear"
	MethodZScore     NormalizationMethod = "zscore"
)

// NormConfig describes the transform for one source/series combination.
type NormConfig struct {
	Method NormalizationMethod
	SrcMin float64
	SrcMax float64
}

// normConfigs maps signal sources to their normalization policy. Bounded
// sources get a linear rescale; unbounded ones are ranked against history.
var normConfigs = map[string]NormConfig{
	"fred":          {Method: MethodPercentile},
	"market":        {Method: MethodPercentile},
	"cftc_cot":      {Method: MethodZScore},
	"gdelt":         {Method: MethodLinear, SrcMin: -10.0, SrcMax: 10.0},
	"alphavantage":  {Method: MethodLinear, SrcMin: -1.0, SrcMax: 1.0},
	"reddit_vader":  {Method: MethodLinear, SrcMin: -1.0, SrcMax: 1.0},
	"google_trends": {Method: MethodLinear, SrcMin: 0.0, SrcMax: 100.0},
}

// NormConfigFor resolves the normalization policy for a source/series pair.
// Market volume series shift range over time, so they use the z-score method.
func NormConfigFor(source, seriesName string) NormConfig {
	if source == "market" && strings.Contains(strings.ToLower(seriesName), "volume") {
		return NormConfig{Method: MethodZScore}
	}
	if cfg, ok := normConfigs[source]; ok {
		return cfg
	}
	return NormConfig{Method: MethodPercentile}
}

// Normalizer maps raw signal values onto the common 0-100 bullish scale.
type Normalizer struct {
	percentileWindow int
	zscoreWindow     int
}

// NewNormalizer creates a normalizer with the given trailing-window sizes.
// Zero or negative windows fall back to the defaults (252 and 63 values).
func NewNormalizer(percentileWindow, zscoreWindow int) *Normalizer {
	if percentileWindow <= 0 {
		percentileWindow = 252
	}
	if zscoreWindow <= 0 {
		zscoreWindow = 63
	}
	return &Normalizer{percentileWindow: percentileWindow, zscoreWindow: zscoreWindow}
}

// HistoryWindow is the number of trailing values the normalizer can use.
func (n *Normalizer) HistoryWindow() int {
	if n.percentileWindow > n.zscoreWindow {
		return n.percentileWindow
	}
	return n.zscoreWindow
}

// Normalize maps a raw value to [0, 100] using the policy for its source.
// history holds trailing raw values of the same series. invert flips the
// orientation for indicators inversely related to bullishness.
func (n *Normalizer) Normalize(source, seriesName string, rawValue float64, history []float64, invert bool) float64 {
	cfg := NormConfigFor(source, seriesName)
	switch cfg.Method {
	case MethodLinear:
		return LinearRescale(rawValue, cfg.SrcMin, cfg.SrcMax, invert)
	case MethodZScore:
		return n.zscoreSigmoid(rawValue, history, invert)
	default:
		return n.rollingPercentile(rawValue, history, invert)
	}
}

// rollingPercentile ranks the current value within its trailing window.
// A series with no history yet has no rank context and scores neutral.
func (n *Normalizer) rollingPercentile(value float64, history []float64, invert bool) float64 {
	window := trimWindow(history, n.percentileWindow)
	if len(window) == 0 {
		return 50.0
	}
	below := 0
	for _, v := range window {
		if v < value {
			below++
		}
	}
	pct := float64(below) / float64(len(window)) * 100.0
	if invert {
		pct = 100.0 - pct
	}
	return clampScore(pct)
}

// LinearRescale maps [srcMin, srcMax] linearly onto [0, 100].
func LinearRescale(value, srcMin, srcMax float64, invert bool) float64 {
	if srcMax == srcMin {
		return 50.0
	}
	normed := (value - srcMin) / (srcMax - srcMin) * 100.0
	if invert {
		normed = 100.0 - normed
	}
	return clampScore(normed)
}

// zscoreSigmoid squashes the window z-score through a logistic sigmoid.
// Fewer than two history values cannot produce a deviation and score neutral.
func (n *Normalizer) zscoreSigmoid(value float64, history []float64, invert bool) float64 {
	window := trimWindow(history, n.zscoreWindow)
	if len(window) < 2 {
		return 50.0
	}
	var sum float64
	for _, v := range window {
		sum += v
	}
	mean := sum / float64(len(window))
	var sqSum float64
	for _, v := range window {
		d := v - mean
		sqSum += d * d
	}
	std := math.Sqrt(sqSum / float64(len(window)-1))
	if std == 0 {
		return 50.0
	}
	z := (value - mean) / std
	score := 1.0 / (1.0 + math.Exp(-z)) * 100.0
	if invert {
		score = 100.0 - score
	}
	return clampScore(score)
}

// trimWindow keeps the most recent `window` values; history is most recent first.
func trimWindow(history []float64, window int) []float64 {
	if len(history) > window {
		return history[:window]
	}
	return history
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
