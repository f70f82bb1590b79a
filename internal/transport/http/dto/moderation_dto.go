package dto

type ModerationFeedbackRequest struct {
	CorrectAction string `json:"correct_action"`
}

type ModerationStatsResponse struct {
	Approved       int64   `json:"approved"`
	Rejected       int64   `json:"rejected"`
	Flagged        int64   `json:"flagged"`
	AvgConfidence  float64 `json:"avg_confidence"`
	LearningCycles int64   `json:"learning_cycles"`
	Accuracy       float64 `json:"accuracy"`
}
