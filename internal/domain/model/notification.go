package model

import "time"

type Notification struct {
	ID         string    `json:"id"`
	UserID     int64     `json:"user_id"`
	PostID     string    `json:"post_id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	DistanceKM float64   `json:"distance_km"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}
