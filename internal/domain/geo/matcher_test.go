package geo

import (
	"math"
	"testing"

	"leadmarket/internal/domain/lead"
	"leadmarket/internal/domain/provider"
)

func ptr(f float64) *float64 { return &f }

func TestDistanceKm(t *testing.T) {
	m := NewMatcher()

	// Sydney CBD to Melbourne CBD is roughly 714 km great-circle.
	d := m.DistanceKm(-33.8688, 151.2093, -37.8136, 144.9631)
	if math.Abs(d-714) > 10 {
		t.Fatalf("expected ~714km, got %.1f", d)
	}

	if d := m.DistanceKm(-33.8688, 151.2093, -33.8688, 151.2093); d != 0 {
		t.Fatalf("expected zero distance for identical points, got %f", d)
	}
}

func TestIsMatchByTravelRadius(t *testing.T) {
	m := NewMatcher()

	l := &lead.Lead{City: "Somewhere", Latitude: ptr(-33.8688), Longitude: ptr(151.2093)}
	p := &provider.Provider{
		Latitude:       ptr(-33.8915), // Newtown, a few km away
		Longitude:      ptr(151.1786),
		TravelRadiusKm: 10,
	}
	if !m.IsMatch(l, p) {
		t.Fatal("expected match within travel radius")
	}

	p.TravelRadiusKm = 1
	if m.IsMatch(l, p) {
		t.Fatal("expected no match outside travel radius")
	}
}

func TestIsMatchByCityAndSuburb(t *testing.T) {
	m := NewMatcher()

	l := &lead.Lead{City: "Sydney", Suburb: "Newtown"}

	if !m.IsMatch(l, &provider.Provider{ServiceAreas: []string{"sydney"}}) {
		t.Fatal("expected city match to be case-insensitive")
	}
	if !m.IsMatch(l, &provider.Provider{ServiceAreas: []string{"Newtown"}}) {
		t.Fatal("expected suburb match")
	}
	if m.IsMatch(l, &provider.Provider{ServiceAreas: []string{"Melbourne"}}) {
		t.Fatal("expected no match for a different city")
	}
}

func TestIsMatchByProvince(t *testing.T) {
	m := NewMatcher()

	l := &lead.Lead{City: "Wollongong"}
	if !m.IsMatch(l, &provider.Provider{ServiceAreas: []string{"NSW"}}) {
		t.Fatal("expected province declaration to cover its cities")
	}
	if m.IsMatch(l, &provider.Provider{ServiceAreas: []string{"vic"}}) {
		t.Fatal("expected no match for the wrong province")
	}
}

func TestIsMatchByRegionKeyword(t *testing.T) {
	m := NewMatcher()

	l := &lead.Lead{City: "Sydney"}
	if !m.IsMatch(l, &provider.Provider{ServiceAreas: []string{"western sydney region"}}) {
		t.Fatal("expected regional area containing the city to match")
	}
	if m.IsMatch(l, &provider.Provider{ServiceAreas: []string{"western melbourne region"}}) {
		t.Fatal("expected regional area for another city not to match")
	}
}

func TestIsMatchNationwide(t *testing.T) {
	m := NewMatcher()

	p := &provider.Provider{ServiceAreas: []string{"nationwide"}}
	if !m.IsMatch(&lead.Lead{City: "Perth"}, p) {
		t.Fatal("expected nationwide coverage to include major cities")
	}
	if m.IsMatch(&lead.Lead{City: "Dubbo"}, p) {
		t.Fatal("expected nationwide coverage to exclude unknown towns")
	}
}

func TestIsMatchNoCriteria(t *testing.T) {
	m := NewMatcher()

	if m.IsMatch(&lead.Lead{City: "Sydney"}, &provider.Provider{}) {
		t.Fatal("expected provider with no coverage to match nothing")
	}
	if m.IsMatch(&lead.Lead{}, &provider.Provider{ServiceAreas: []string{"Sydney"}}) {
		t.Fatal("expected lead with no location to match nothing")
	}
}
