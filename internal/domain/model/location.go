package model

import "time"

// LocationFix is a resolved coordinate with its precision tier. IP-derived
// fixes carry a deliberately coarse accuracy so callers can tell them apart
// from sensor fixes.
type LocationFix struct {
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lon"`
	AccuracyM float64   `json:"accuracy_m"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	FixSourceSensor = "sensor"
	FixSourceIP     = "ip"
	FixSourceCache  = "cache"
)
