package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"golang-sentiment-index/internal/entity"
)

// DailyReport formats a composite row into the plain-text daily report sent to
// the configured notifier.
func DailyReport(displayName string, composite *entity.DailyComposite) string {
	var b strings.Builder

	fmt.Fprintf(&b, "*%s Sentiment Index — %s*\n\n", displayName, composite.Date.Format("2006-01-02"))
	fmt.Fprintf(&b, "Composite: *%.1f* (%s)\n", composite.CompositeScore, composite.Label)
	if composite.SentimentLayer != nil {
		fmt.Fprintf(&b, "Sentiment layer: %.1f\n", *composite.SentimentLayer)
	}
	if composite.MacroLayer != nil {
		fmt.Fprintf(&b, "Macro layer: %.1f\n", *composite.MacroLayer)
	}
	if composite.AssetPrice != nil {
		fmt.Fprintf(&b, "Price: %.2f", *composite.AssetPrice)
		if composite.AssetReturn != nil {
			fmt.Fprintf(&b, " (%+.2f%%)", *composite.AssetReturn*100)
		}
		b.WriteString("\n")
	}

	if len(composite.DriverBreakdown) > 0 {
		var breakdown map[string]entity.DriverContribution
		if err := json.Unmarshal(composite.DriverBreakdown, &breakdown); err == nil && len(breakdown) > 0 {
			b.WriteString("\nDriver contributions:\n")
			drivers := make([]string, 0, len(breakdown))
			for driver := range breakdown {
				drivers = append(drivers, driver)
			}
			sort.Slice(drivers, func(i, j int) bool {
				return breakdown[drivers[i]].Weighted > breakdown[drivers[j]].Weighted
			})
			for _, driver := range drivers {
				fmt.Fprintf(&b, "  %s: %.1f\n", driver, breakdown[driver].Weighted)
			}
		}
	}

	return b.String()
}
