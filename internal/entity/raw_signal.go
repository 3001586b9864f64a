package entity

import (
	"time"

	"gorm.io/datatypes"
)

// Layer is one of the two aggregation axes of the index.
type Layer string

const (
	LayerSentiment Layer = "sentiment"
	LayerMacro     Layer = "macro"
)

// Valid reports whether the layer is one of the two known axes.
func (l Layer) Valid() bool {
	return l == LayerSentiment || l == LayerMacro
}

// RawSignal is one observed indicator value for a (date, asset, driver, layer,
// source, series) key. Re-ingesting the same key overwrites the row.
type RawSignal struct {
	ID              int64          `json:"id"`
	Date            time.Time      `json:"date" gorm:"type:date"`
	Asset           string         `json:"asset"`
	Driver          string         `json:"driver"`
	Layer           Layer          `json:"layer"`
	Source          string         `json:"source"`
	SeriesName      string         `json:"series_name"`
	RawValue        float64        `json:"raw_value"`
	NormalizedValue *float64       `json:"normalized_value"`
	Metadata        datatypes.JSON `json:"metadata" gorm:"type:jsonb"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (RawSignal) TableName() string {
	return "raw_signals"
}
