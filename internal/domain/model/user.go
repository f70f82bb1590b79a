package model

import (
	"time"

	"github.com/Iornfire12211221/KNG-sub001/internal/domain/enums"
)

type User struct {
	ID          int64                   `json:"id"`
	TelegramID  int64                   `json:"telegram_id"`
	Name        string                  `json:"name"`
	Username    string                  `json:"username"`
	PhotoURL    string                  `json:"photo_url,omitempty"`
	Role        enums.Role              `json:"role"`
	Preferences NotificationPreferences `json:"preferences"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

type NotificationPreferences struct {
	Enabled    bool                        `json:"enabled"`
	Categories map[enums.PostCategory]bool `json:"categories"`
	RadiusKM   float64                     `json:"radius_km"`
	QuietStart string                      `json:"quiet_start"`
	QuietEnd   string                      `json:"quiet_end"`
}

// WantsCategory defaults to true for categories the user never configured.
func (p NotificationPreferences) WantsCategory(category enums.PostCategory) bool {
	if p.Categories == nil {
		return true
	}
	enabled, ok := p.Categories[category]
	if !ok {
		return true
	}
	return enabled
}
