package provider

import (
	"context"
	"time"

	"golang-sentiment-index/internal/entity"
)

// RawObservation is one already-fetched indicator value handed to the pipeline
// by the ingestion layer. The pipeline is agnostic to how it was acquired.
type RawObservation struct {
	Driver     string                 `json:"driver"`
	Layer      entity.Layer           `json:"layer"`
	Source     string                 `json:"source"`
	SeriesName string                 `json:"series_name"`
	RawValue   *float64               `json:"raw_value"`
	Metadata   map[string]interface{} `json:"metadata"`
}

// SignalSource supplies the raw observations for an asset and date.
type SignalSource interface {
	FetchSignals(ctx context.Context, asset string, date time.Time) ([]RawObservation, error)
}

// AssetQuote is the optional market-data enrichment for a composite row.
type AssetQuote struct {
	Price  float64  `json:"price"`
	Return *float64 `json:"return"`
}

// PriceProvider supplies the asset's price and daily return for a date.
// A nil quote with a nil error means no quote is available for that date.
type PriceProvider interface {
	FetchQuote(ctx context.Context, asset string, date time.Time) (*AssetQuote, error)
}
