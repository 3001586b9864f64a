package service

import (
	"sort"

	"golang-sentiment-index/internal/entity"
)

// AggregateDriver combines the normalized signals of one (date, asset, driver)
// into per-layer scores. A layer with no usable signals yields nil, never a
// fabricated neutral. Signals without a normalized value are excluded.
func AggregateDriver(signals []entity.RawSignal) (sentiment, macro *float64) {
	var sentSum, macroSum float64
	var sentCount, macroCount int

	for _, sig := range signals {
		if sig.NormalizedValue == nil {
			continue
		}
		switch sig.Layer {
		case entity.LayerSentiment:
			sentSum += *sig.NormalizedValue
			sentCount++
		case entity.LayerMacro:
			macroSum += *sig.NormalizedValue
			macroCount++
		}
	}

	if sentCount > 0 {
		v := sentSum / float64(sentCount)
		sentiment = &v
	}
	if macroCount > 0 {
		v := macroSum / float64(macroCount)
		macro = &v
	}
	return sentiment, macro
}

// AggregateLayer computes the weighted mean of driver scores for one layer
// axis, renormalizing by the weight sum of drivers that actually have a score.
// Drivers without a score are excluded from the mean, not substituted with a
// neutral value. Returns nil when no weighted driver has a score.
func AggregateLayer(scores map[string]*float64, weights map[string]float64) *float64 {
	drivers := make([]string, 0, len(scores))
	for driver := range scores {
		drivers = append(drivers, driver)
	}
	sort.Strings(drivers)

	var weightedSum, totalWeight float64
	for _, driver := range drivers {
		score := scores[driver]
		if score == nil {
			continue
		}
		weight, ok := weights[driver]
		if !ok || weight <= 0 {
			continue
		}
		weightedSum += weight * *score
		totalWeight += weight
	}

	if totalWeight == 0 {
		return nil
	}
	result := weightedSum / totalWeight
	return &result
}

// AvailableWeights returns each scored driver's weight renormalized over the
// drivers that have a score, mirroring what AggregateLayer used.
func AvailableWeights(scores map[string]*float64, weights map[string]float64) map[string]float64 {
	var totalWeight float64
	for driver, score := range scores {
		if score == nil {
			continue
		}
		if w, ok := weights[driver]; ok && w > 0 {
			totalWeight += w
		}
	}

	normalized := make(map[string]float64)
	if totalWeight == 0 {
		return normalized
	}
	for driver, score := range scores {
		if score == nil {
			continue
		}
		if w, ok := weights[driver]; ok && w > 0 {
			normalized[driver] = w / totalWeight
		}
	}
	return normalized
}
