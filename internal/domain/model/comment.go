package model

import "time"

type Comment struct {
	ID           string    `json:"id"`
	PostID       string    `json:"postId"`
	UserID       int64     `json:"userId"`
	UserName     string    `json:"userName"`
	UserPhotoURL string    `json:"userPhotoUrl,omitempty"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"timestamp"`
}
