package entity

import (
	"time"
)

// DriverScore is the aggregated 0-100 score of one driver for one day, split by
// layer axis. A nil score means the driver had no usable signals on that axis.
type DriverScore struct {
	ID             int64     `json:"id"`
	Date           time.Time `json:"date" gorm:"type:date"`
	Asset          string    `json:"asset"`
	Driver         string    `json:"driver"`
	SentimentScore *float64  `json:"sentiment_score"`
	MacroScore     *float64  `json:"macro_score"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (DriverScore) TableName() string {
	return "driver_scores"
}
