package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fieldops/planner/internal/models"
)

// NominatimGeocoder resolves locations with the OpenStreetMap structured
// search. Requests are spaced by MinInterval and answers are cached.
type NominatimGeocoder struct {
	BaseURL     string
	UserAgent   string
	MinInterval time.Duration
	Client      *http.Client

	mu        sync.Mutex
	lastReqAt time.Time
	cache     map[string]Point
}

type nominatimPlace struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Importance  float64 `json:"importance"`
}

func (g *NominatimGeocoder) Locate(ctx context.Context, loc models.Location, country string) (Point, error) {
	if isEmpty(loc) {
		return Point{}, ErrEmptyLocation
	}
	g.defaults()
	key := CacheKey(loc, country)

	g.mu.Lock()
	if p, ok := g.cache[key]; ok {
		g.mu.Unlock()
		return p, nil
	}
	wait := time.Until(g.lastReqAt.Add(g.MinInterval))
	g.lastReqAt = time.Now().Add(max(wait, 0))
	g.mu.Unlock()

	if wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Point{}, ctx.Err()
		case <-timer.C:
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.searchURL(loc, country), nil)
	if err != nil {
		return Point{}, err
	}
	req.Header.Set("User-Agent", g.UserAgent)

	resp, err := g.Client.Do(req)
	if err != nil {
		return Point{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Point{}, fmt.Errorf("nominatim: unexpected status %s", resp.Status)
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return Point{}, err
	}
	p, err := firstPlace(places)
	if err != nil {
		return Point{}, err
	}

	g.mu.Lock()
	g.cache[key] = p
	g.mu.Unlock()
	return p, nil
}

func (g *NominatimGeocoder) defaults() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Client == nil {
		g.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if g.BaseURL == "" {
		g.BaseURL = "https://nominatim.openstreetmap.org"
	}
	if g.UserAgent == "" {
		g.UserAgent = "fieldops-planner"
	}
	if g.MinInterval <= 0 {
		g.MinInterval = time.Second
	}
	if g.cache == nil {
		g.cache = map[string]Point{}
	}
}

func (g *NominatimGeocoder) searchURL(loc models.Location, country string) string {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("limit", "1")
	if s := strings.TrimSpace(loc.Address); s != "" {
		q.Set("street", s)
	}
	if s := strings.TrimSpace(loc.PostalCode); s != "" {
		q.Set("postalcode", s)
	}
	if s := strings.TrimSpace(loc.City); s != "" {
		q.Set("city", s)
	}
	if s := strings.TrimSpace(country); s != "" {
		q.Set("country", s)
	}
	return strings.TrimRight(g.BaseURL, "/") + "/search?" + q.Encode()
}

func firstPlace(places []nominatimPlace) (Point, error) {
	if len(places) == 0 {
		return Point{}, ErrNotFound
	}
	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return Point{}, fmt.Errorf("nominatim lat: %w", err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return Point{}, fmt.Errorf("nominatim lon: %w", err)
	}
	if lat == 0 && lon == 0 && places[0].DisplayName == "" {
		return Point{}, ErrNotFound
	}
	return Point{
		Lat:         lat,
		Lon:         lon,
		DisplayName: places[0].DisplayName,
		Confidence:  places[0].Importance,
	}, nil
}
