package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Iornfire12211221/KNG-sub001/internal/domain/model"
)

// IPAPIClient resolves coarse positions through an ip-api.com style
// endpoint (GET <endpoint>/<ip> returning {"status","lat","lon"}).
type IPAPIClient struct {
	endpoint string
	http     *http.Client
}

func NewIPAPIClient(endpoint string, client *http.Client) *IPAPIClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &IPAPIClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     client,
	}
}

func (c *IPAPIClient) Locate(ctx context.Context, ip string) (model.LocationFix, error) {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return model.LocationFix{}, fmt.Errorf("empty ip")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/"+url.PathEscape(ip), nil)
	if err != nil {
		return model.LocationFix{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return model.LocationFix{}, fmt.Errorf("ip geolocation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.LocationFix{}, fmt.Errorf("ip geolocation status %d", resp.StatusCode)
	}

	var body struct {
		Status  string  `json:"status"`
		Message string  `json:"message"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return model.LocationFix{}, fmt.Errorf("decode ip geolocation response: %w", err)
	}
	if body.Status != "success" {
		return model.LocationFix{}, fmt.Errorf("ip geolocation failed: %s", body.Message)
	}

	return model.LocationFix{
		Latitude:  body.Lat,
		Longitude: body.Lon,
		Source:    model.FixSourceIP,
	}, nil
}
