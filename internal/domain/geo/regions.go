package geo

import "strings"

// cityProvince maps major localities to their state/province token. Lookups
// are case-insensitive; the table covers the cities the marketplace launched
// in plus their common satellite centres.
var cityProvince = map[string]string{
	"sydney":         "nsw",
	"newcastle":      "nsw",
	"wollongong":     "nsw",
	"central coast":  "nsw",
	"parramatta":     "nsw",
	"penrith":        "nsw",
	"melbourne":      "vic",
	"geelong":        "vic",
	"ballarat":       "vic",
	"bendigo":        "vic",
	"brisbane":       "qld",
	"gold coast":     "qld",
	"sunshine coast": "qld",
	"townsville":     "qld",
	"cairns":         "qld",
	"toowoomba":      "qld",
	"perth":          "wa",
	"fremantle":      "wa",
	"adelaide":       "sa",
	"hobart":         "tas",
	"launceston":     "tas",
	"darwin":         "nt",
	"canberra":       "act",
}

// majorCities are the localities a nationwide provider is assumed to cover.
var majorCities = map[string]bool{
	"sydney":    true,
	"melbourne": true,
	"brisbane":  true,
	"perth":     true,
	"adelaide":  true,
	"hobart":    true,
	"darwin":    true,
	"canberra":  true,
}

// regionKeywords mark a service-area string as a regional declaration rather
// than a single locality.
var regionKeywords = []string{"area", "region", "metro", "district"}

// ProvinceFor returns the state token for a known city, "" otherwise.
func ProvinceFor(city string) string {
	return cityProvince[strings.ToLower(strings.TrimSpace(city))]
}

func isMajorCity(city string) bool {
	return majorCities[strings.ToLower(strings.TrimSpace(city))]
}

func hasRegionKeyword(area string) bool {
	for _, kw := range regionKeywords {
		if strings.Contains(area, kw) {
			return true
		}
	}
	return false
}
