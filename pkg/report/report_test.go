package report

import (
	"testing"
	"time"

	"golang-sentiment-index/internal/entity"

	"github.com/stretchr/testify/assert"
)

func fptr(v float64) *float64 { return &v }

func TestDailyReport(t *testing.T) {
	composite := &entity.DailyComposite{
		Date:            time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
		Asset:           "gold",
		CompositeScore:  56.0,
		Label:           "Slightly Bullish",
		SentimentLayer:  fptr(50),
		MacroLayer:      fptr(60),
		AssetPrice:      fptr(2450.25),
		AssetReturn:     fptr(0.0123),
		DriverBreakdown: []byte(`{"monetary_policy":{"sentiment":60,"macro":70,"weight":0.5,"weighted":33.0},"us_dollar":{"sentiment":40,"macro":50,"weight":0.5,"weighted":23.0}}`),
	}

	text := DailyReport("Gold", composite)

	assert.Contains(t, text, "Gold Sentiment Index — 2026-08-28")
	assert.Contains(t, text, "56.0")
	assert.Contains(t, text, "Slightly Bullish")
	assert.Contains(t, text, "Sentiment layer: 50.0")
	assert.Contains(t, text, "Macro layer: 60.0")
	assert.Contains(t, text, "2450.25")
	assert.Contains(t, text, "+1.23%")
	assert.Contains(t, text, "monetary_policy")
}

func TestDailyReportOmitsMissingSections(t *testing.T) {
	composite := &entity.DailyComposite{
		Date:           time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
		Asset:          "gold",
		CompositeScore: 50.0,
		Label:          "Neutral",
	}

	text := DailyReport("Gold", composite)

	assert.Contains(t, text, "Neutral")
	assert.NotContains(t, text, "Price")
	assert.NotContains(t, text, "Driver contributions")
}
