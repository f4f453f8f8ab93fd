package geocode

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/banshee-data/trackmap/internal/geodesy"
	"github.com/banshee-data/trackmap/internal/httputil"
)

// APIKeyEnv names the environment variable holding the LocationIQ key.
const APIKeyEnv = "LOCATIONIQ_API_KEY"

// LocationIQ reverse geocodes with the LocationIQ reverse endpoint.
type LocationIQ struct {
	client   httputil.HTTPClient
	endpoint string
	apiKey   string
}

// NewLocationIQ returns a client for endpoint authenticating with apiKey.
func NewLocationIQ(client httputil.HTTPClient, endpoint, apiKey string) *LocationIQ {
	return &LocationIQ{client: client, endpoint: endpoint, apiKey: apiKey}
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
}

// Reverse makes one request and shortens the returned display name.
func (l *LocationIQ) Reverse(ctx context.Context, p geodesy.LatLon) (string, error) {
	if l.apiKey == "" {
		return "", ErrNotConfigured
	}
	u, err := url.Parse(l.endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("key", l.apiKey)
	q.Set("lat", strconv.FormatFloat(p.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(p.Lon, 'f', -1, 64))
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	var resp reverseResponse
	if err := httputil.GetJSON(ctx, l.client, u.String(), &resp); err != nil {
		return "", err
	}
	name := ShortPlaceName(resp.DisplayName)
	if name == "" {
		return "", errors.New("response has no display_name")
	}
	return name, nil
}

// ShortPlaceName keeps the first three comma-separated parts of a display
// name. Names led by a "UCR" code (unclassified road) skip that part.
func ShortPlaceName(displayName string) string {
	if strings.TrimSpace(displayName) == "" {
		return ""
	}
	sections := strings.Split(displayName, ",")
	start := 0
	if strings.HasPrefix(strings.TrimSpace(sections[0]), "UCR") {
		start = 1
	}
	end := start + 3
	if end > len(sections) {
		end = len(sections)
	}
	if start >= end {
		return ""
	}
	return strings.TrimSpace(strings.Join(sections[start:end], ","))
}
