package service

// labelRange maps a half-open score interval [Lo, Hi) to a qualitative label.
type labelRange struct {
	Lo    float64
	Hi    float64
	Label string
}

var labelRanges = []labelRange{
	{0, 20, "Strongly Bearish"},
	{20, 35, "Bearish"},
	{35, 45, "Slightly Bearish"},
	{45, 55, "Neutral"},
	{55, 65, "Slightly Bullish"},
	{65, 80, "Bullish"},
	{80, 101, "Strongly Bullish"},
}

// ScoreToLabel converts a 0-100 score to its qualitative label.
func ScoreToLabel(score float64) string {
	for _, r := range labelRanges {
		if score >= r.Lo && score < r.Hi {
			return r.Label
		}
	}
	return "Neutral"
}

// CompositeResult is the blended index value for one date.
type CompositeResult struct {
	Score float64
	Label string
}

// BlendLayers blends the two layer scores with the configured layer weights.
// When one layer is missing its weight is reassigned to the available layer,
// so a date with only macro data still produces an index value. Both layers
// missing degrades to neutral 50.
func BlendLayers(sentiment, macro *float64, wSentiment, wMacro float64) CompositeResult {
	var score float64
	switch {
	case sentiment != nil && macro != nil:
		// Weights conventionally sum to 1; renormalize in case they don't.
		score = (wSentiment**sentiment + wMacro**macro) / (wSentiment + wMacro)
	case macro != nil:
		score = *macro
	case sentiment != nil:
		score = *sentiment
	default:
		score = 50.0
	}
	score = clampScore(score)
	return CompositeResult{Score: score, Label: ScoreToLabel(score)}
}
