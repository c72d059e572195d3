// Package geocode resolves human-readable locations to coordinates via
// Nominatim and turns them into Overpass API map URLs with a metric bounding
// box. The Overpass URL is what the context-generator Grasshopper definition
// consumes.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultNominatimURL = "https://nominatim.openstreetmap.org/search"
	defaultOverpassURL  = "https://overpass-api.de/api/map"
	userAgent           = "ghbridge/1.0"
)

// Geocoder resolves location strings. Safe for concurrent use.
type Geocoder struct {
	nominatimURL string
	overpassURL  string
	client       *http.Client
}

// New returns a Geocoder with production endpoints.
func New() *Geocoder {
	return &Geocoder{
		nominatimURL: defaultNominatimURL,
		overpassURL:  defaultOverpassURL,
		client:       &http.Client{Timeout: 30 * time.Second},
	}
}

// result is one Nominatim search hit.
type result struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Type        string `json:"type"`
	Class       string `json:"class"`
	DisplayName string `json:"display_name"`
}

// ParseCoordinates attempts to read location as "lat, lon". Returns ok=false
// when the string is not a coordinate pair in valid ranges.
func ParseCoordinates(location string) (lat, lon float64, ok bool) {
	parts := strings.Split(location, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, false
	}
	return lat, lon, true
}

// IsIntersection reports whether location looks like a street intersection.
func IsIntersection(location string) bool {
	lower := strings.ToLower(location)
	for _, kw := range []string{" and ", " & ", " at ", " intersection "} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// BoundingBox computes (minLon, minLat, maxLon, maxLat) for a square box of
// the given side length centred on the point. Uses the ~111320 m/degree
// approximation, with longitude corrected for latitude.
func BoundingBox(lat, lon, boxSizeMeters float64) [4]float64 {
	latOffset := boxSizeMeters / 111320
	lonOffset := boxSizeMeters / (111320 * math.Abs(math.Cos(lat*math.Pi/180)))
	return [4]float64{lon - lonOffset, lat - latOffset, lon + lonOffset, lat + latOffset}
}

// OverpassURL renders the map URL for a bounding box.
func (g *Geocoder) OverpassURL(bbox [4]float64) string {
	return fmt.Sprintf("%s?bbox=%v,%v,%v,%v", g.overpassURL, bbox[0], bbox[1], bbox[2], bbox[3])
}

// search queries Nominatim for the location.
func (g *Geocoder) search(ctx context.Context, location string) ([]result, error) {
	q := url.Values{}
	q.Set("q", location)
	q.Set("format", "json")
	q.Set("limit", "5")
	q.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.nominatimURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding service returned HTTP %d", resp.StatusCode)
	}

	var results []result
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("geocoding response decode failed: %w", err)
	}
	return results, nil
}

// selectBest picks the hit to use. For intersections, highway hits win;
// otherwise the highest-ranked result.
func selectBest(results []result, intersection bool) result {
	if intersection {
		for _, r := range results {
			if strings.Contains(strings.ToLower(r.Type), "highway") || r.Class == "highway" {
				return r
			}
		}
	}
	return results[0]
}

// swapConnector rewrites "x and y" to "x & y" (or back) for the retry pass.
func swapConnector(location string) string {
	lower := strings.ToLower(location)
	if strings.Contains(lower, " and ") {
		return strings.ReplaceAll(lower, " and ", " & ")
	}
	return strings.ReplaceAll(lower, " & ", " and ")
}

// Resolve turns a location string into coordinates. Coordinate pairs skip the
// network entirely. Intersections that miss on the first query are retried
// with the connector swapped.
func (g *Geocoder) Resolve(ctx context.Context, location string) (lat, lon float64, err error) {
	if lat, lon, ok := ParseCoordinates(location); ok {
		return lat, lon, nil
	}

	intersection := IsIntersection(location)
	results, err := g.search(ctx, location)
	if err != nil {
		return 0, 0, err
	}
	if len(results) == 0 && intersection {
		results, err = g.search(ctx, swapConnector(location))
		if err != nil {
			return 0, 0, err
		}
	}
	if len(results) == 0 {
		return 0, 0, fmt.Errorf("location %q not found", location)
	}

	best := selectBest(results, intersection)
	lat, err1 := strconv.ParseFloat(best.Lat, 64)
	lon, err2 := strconv.ParseFloat(best.Lon, 64)
	if err1 != nil || err2 != nil {
		return 0, 0, fmt.Errorf("geocoding result for %q has malformed coordinates", location)
	}
	return lat, lon, nil
}

// LocationToOverpassURL is the full pipeline: resolve, box, render URL.
func (g *Geocoder) LocationToOverpassURL(ctx context.Context, location string, boxSizeMeters float64) (string, error) {
	if boxSizeMeters <= 0 {
		boxSizeMeters = 100
	}
	lat, lon, err := g.Resolve(ctx, location)
	if err != nil {
		return "", err
	}
	return g.OverpassURL(BoundingBox(lat, lon, boxSizeMeters)), nil
}
