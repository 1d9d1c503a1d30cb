package model

// Comparison statuses.
const (
	ComparisonSuccess  = "success"
	ComparisonFallback = "fallback"
)

// Verdict names a winner for one aspect.
type Verdict struct {
	Aspect string `json:"aspect"`
	Winner string `json:"winner"`
	Reason string `json:"reason"`
}

// AspectRecommendation is one row of the comparison.
type AspectRecommendation struct {
	Aspect  string `json:"aspect"`
	Winner  string `json:"winner"`
	Reason  string `json:"reason"`
	Details string `json:"details"`
}

// OverallRecommendation is the final verdict.
type OverallRecommendation struct {
	Winner  string `json:"winner"`
	Summary string `json:"summary"`
}

// ComparisonResult is the recommendation across all products. It refers to
// products by name only.
type ComparisonResult struct {
	Status                 string                 `json:"status"`
	UserPriority           string                 `json:"user_priority"`
	PriorityRecommendation Verdict                `json:"priority_recommendation"`
	AspectRecommendations  []AspectRecommendation `json:"aspect_recommendations"`
	OverallRecommendation  OverallRecommendation  `json:"overall_recommendation"`
}
