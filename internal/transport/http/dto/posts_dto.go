package dto

// SubmitPostRequest mirrors the Mini App payload; lat/lon are pointers so
// an omitted coordinate can fall back to the coverage-area center.
type SubmitPostRequest struct {
	Description string   `json:"description"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Address     string   `json:"address,omitempty"`
	Type        string   `json:"type,omitempty"`
	Severity    string   `json:"severity,omitempty"`
	UserName    string   `json:"userName,omitempty"`
	PhotoKey    string   `json:"photo,omitempty"`
}

type UpdatePostRequest struct {
	Description *string `json:"description,omitempty"`
	Address     *string `json:"address,omitempty"`
	Severity    *string `json:"severity,omitempty"`
}

type LikeResponse struct {
	Likes int `json:"likes"`
}
