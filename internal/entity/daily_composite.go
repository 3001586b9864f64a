package entity

import (
	"time"

	"gorm.io/datatypes"
)

// DailyComposite is the final blended index value for a (date, asset).
// DriverBreakdown freezes each driver's scores and weighted contribution at
// computation time so history stays interpretable if weights change later.
type DailyComposite struct {
	ID              int64          `json:"id"`
	Date            time.Time      `json:"date" gorm:"type:date"`
	Asset           string         `json:"asset"`
	CompositeScore  float64        `json:"composite_score"`
	Label           string         `json:"label"`
	SentimentLayer  *float64       `json:"sentiment_layer"`
	MacroLayer      *float64       `json:"macro_layer"`
	DriverBreakdown datatypes.JSON `json:"driver_breakdown" gorm:"type:jsonb"`
	AssetPrice      *float64       `json:"asset_price"`
	AssetReturn     *float64       `json:"asset_return"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (DailyComposite) TableName() string {
	return "daily_composite"
}

// DriverContribution is one driver's entry in the breakdown snapshot.
type DriverContribution struct {
	Sentiment *float64 `json:"sentiment"`
	Macro     *float64 `json:"macro"`
	Weight    float64  `json:"weight"`
	Weighted  float64  `json:"weighted"`
}
