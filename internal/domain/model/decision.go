package model

import (
	"time"

	"github.com/Iornfire12211221/KNG-sub001/internal/domain/enums"
)

// FactorScores are the five weighted moderation factors, each in [0,1].
type FactorScores struct {
	Toxicity  float64 `json:"toxicity"`
	Relevance float64 `json:"relevance"`
	Quality   float64 `json:"quality"`
	Context   float64 `json:"context"`
	Image     float64 `json:"image"`
}

// ModerationDecision is immutable once produced; the decision log only
// ever appends.
type ModerationDecision struct {
	PostID           string                 `json:"post_id"`
	Action           enums.ModerationAction `json:"action"`
	Confidence       float64                `json:"confidence"`
	Scores           FactorScores           `json:"scores"`
	TotalScore       float64                `json:"total_score"`
	ApproveThreshold float64                `json:"approve_threshold"`
	RejectThreshold  float64                `json:"reject_threshold"`
	CreatedAt        time.Time              `json:"created_at"`
}
