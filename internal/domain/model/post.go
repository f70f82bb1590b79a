package model

import (
	"time"

	"github.com/Iornfire12211221/KNG-sub001/internal/domain/enums"
)

type Post struct {
	ID          string                 `json:"id"`
	Description string                 `json:"description"`
	Latitude    float64                `json:"latitude"`
	Longitude   float64                `json:"longitude"`
	Address     string                 `json:"address,omitempty"`
	Category    enums.PostCategory     `json:"type"`
	Severity    enums.Severity         `json:"severity"`
	Status      enums.ModerationStatus `json:"status"`
	UserID      int64                  `json:"userId,omitempty"`
	UserName    string                 `json:"userName,omitempty"`
	PhotoKey    string                 `json:"photo,omitempty"`
	Likes       int                    `json:"likes"`
	CreatedAt   time.Time              `json:"timestamp"`
	ExpiresAt   time.Time              `json:"expiresAt"`
}

// Active reports whether the post should appear on the live map:
// approved and not yet expired. Expiry wins regardless of status.
func (p Post) Active(now time.Time) bool {
	return p.Status == enums.ModerationStatusApproved && p.ExpiresAt.After(now)
}

func (p Post) Expired(now time.Time) bool {
	return !p.ExpiresAt.After(now)
}
