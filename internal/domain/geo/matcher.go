package geo

import (
	"math"
	"strings"

	"leadmarket/internal/domain/lead"
	"leadmarket/internal/domain/provider"
)

const earthRadiusKm = 6371.0

// Matcher resolves whether a lead's location falls inside a provider's
// declared coverage. Stateless and safe for concurrent use.
type Matcher struct{}

func NewMatcher() *Matcher {
	return &Matcher{}
}

// IsMatch runs the coverage checks in priority order; the first hit wins.
//
//  1. both sides have coordinates and the lead is within travel radius
//  2. lead city/suburb is literally in the provider's service-area list
//  3. the lead city's province is in the service-area list
//  4. a regional service area ("western sydney region") contains the lead city
//  5. the provider declares nationwide coverage and the lead sits in a major
//     city, or its province is declared
func (m *Matcher) IsMatch(l *lead.Lead, p *provider.Provider) bool {
	if l.HasCoordinates() && p.HasCoordinates() && p.TravelRadiusKm > 0 {
		d := m.DistanceKm(*l.Latitude, *l.Longitude, *p.Latitude, *p.Longitude)
		if d <= p.TravelRadiusKm {
			return true
		}
	}

	city := normalize(l.City)
	suburb := normalize(l.Suburb)
	prov := ProvinceFor(l.City)

	nationwide := false
	for _, raw := range p.ServiceAreas {
		area := normalize(raw)
		if area == "" {
			continue
		}

		if area == city || (suburb != "" && area == suburb) {
			return true
		}

		if prov != "" && area == prov {
			return true
		}

		if city != "" && hasRegionKeyword(area) && strings.Contains(area, city) {
			return true
		}

		if area == "nationwide" || area == "all" || area == "australia wide" {
			nationwide = true
		}
	}

	// Province declarations already matched above, so nationwide coverage
	// only needs the major-city check here.
	if nationwide && isMajorCity(l.City) {
		return true
	}

	return false
}

// DistanceKm is the great-circle distance between two coordinates.
func (m *Matcher) DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
