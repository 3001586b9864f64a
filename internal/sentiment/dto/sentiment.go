package dto

// RunRequest triggers a pipeline run.
type RunRequest struct {
	Asset      string `json:"asset"`
	TargetDate string `json:"target_date,omitempty"`
}

// BackfillRequest triggers a pipeline run for every weekday in a date range.
type BackfillRequest struct {
	Asset     string `json:"asset"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// SignalQuery filters the raw signal listing.
type SignalQuery struct {
	Asset     string `query:"asset"`
	Driver    string `query:"driver"`
	Layer     string `query:"layer"`
	Source    string `query:"source"`
	StartDate string `query:"start_date"`
	EndDate   string `query:"end_date"`
	Limit     int    `query:"limit"`
	Offset    int    `query:"offset"`
}

// HistoryQuery filters the score history listings.
type HistoryQuery struct {
	Asset     string `query:"asset"`
	Driver    string `query:"driver"`
	StartDate string `query:"start_date"`
	EndDate   string `query:"end_date"`
}

// ErrorResponse represents a generic error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}
