package geocode

import (
	"context"
	"errors"
	"strings"

	"github.com/fieldops/planner/internal/models"
)

var (
	ErrNotFound      = errors.New("geocode: location not found")
	ErrEmptyLocation = errors.New("geocode: location has no postal code or city")
)

// Point is a map position for an installation site. It is used for display
// and never for scheduling.
type Point struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	DisplayName string  `json:"displayName"`
	Confidence  float64 `json:"confidence"`
}

type Geocoder interface {
	Locate(ctx context.Context, loc models.Location, country string) (Point, error)
}

// CacheKey normalises a location so equivalent spellings share one lookup.
func CacheKey(loc models.Location, country string) string {
	parts := []string{
		strings.ToLower(strings.TrimSpace(loc.Address)),
		strings.ToUpper(strings.ReplaceAll(loc.PostalCode, " ", "")),
		strings.ToLower(strings.TrimSpace(loc.City)),
		strings.ToLower(strings.TrimSpace(country)),
	}
	return strings.Join(parts, "|")
}

func isEmpty(loc models.Location) bool {
	return strings.TrimSpace(loc.PostalCode) == "" && strings.TrimSpace(loc.City) == ""
}
