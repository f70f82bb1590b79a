package dto

import "github.com/Iornfire12211221/KNG-sub001/internal/domain/model"

type PreferencesRequest struct {
	Enabled    *bool           `json:"enabled"`
	Categories map[string]bool `json:"categories,omitempty"`
	RadiusKM   *float64        `json:"radius_km"`
	QuietStart string          `json:"quiet_start,omitempty"`
	QuietEnd   string          `json:"quiet_end,omitempty"`
}

type ReportLocationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	AccuracyM float64  `json:"accuracy_m,omitempty"`
}

type ReportLocationResponse struct {
	Fix     *model.LocationFix `json:"fix,omitempty"`
	Address string             `json:"address,omitempty"`
}

type SetRoleRequest struct {
	Role string `json:"role"`
}
