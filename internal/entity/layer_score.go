package entity

import (
	"time"
)

// LayerScore summarizes all driver scores for a (date, asset) into the two
// layer axes.
type LayerScore struct {
	ID                  int64     `json:"id"`
	Date                time.Time `json:"date" gorm:"type:date"`
	Asset               string    `json:"asset"`
	SentimentLayerScore *float64  `json:"sentiment_layer_score"`
	MacroLayerScore     *float64  `json:"macro_layer_score"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (LayerScore) TableName() string {
	return "layer_scores"
}
