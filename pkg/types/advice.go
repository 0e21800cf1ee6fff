package types

// AdvicePriority ranks how impactful a recommendation is.
type AdvicePriority string

const (
	AdvicePriorityHigh   AdvicePriority = "high"
	AdvicePriorityMedium AdvicePriority = "medium"
	AdvicePriorityLow    AdvicePriority = "low"
)

// Rank returns a sortable weight, highest priority first.
func (p AdvicePriority) Rank() int {
	switch p {
	case AdvicePriorityHigh:
		return 0
	case AdvicePriorityMedium:
		return 1
	default:
		return 2
	}
}

// AdviceItem is a single recommendation. Items are produced transiently per
// request and never persisted.
type AdviceItem struct {
	Title                string         `json:"title"`
	Description          string         `json:"description"`
	RecommendedTimeStart TimeOfDay      `json:"recommendedTimeStart"`
	RecommendedTimeEnd   TimeOfDay      `json:"recommendedTimeEnd"`
	EstimatedSavings     float64        `json:"estimatedSavings"`
	Priority             AdvicePriority `json:"priority"`
}

// EnergyAdvice is the full advice response: three independently ranked lists,
// each capped at three items.
type EnergyAdvice struct {
	GeneralAdvice []AdviceItem `json:"generalAdvice"`
	EVAdvice      []AdviceItem `json:"evAdvice"`
	BatteryAdvice []AdviceItem `json:"batteryAdvice"`
}
