package lead

// The marketplace runs on a fixed category set; submissions outside it are
// rejected at validation time, before the quality gate.
var categories = map[string]string{
	"plumbing":      "Plumbing",
	"electrical":    "Electrical",
	"carpentry":     "Carpentry",
	"painting":      "Painting & Decorating",
	"roofing":       "Roofing",
	"landscaping":   "Landscaping & Gardening",
	"cleaning":      "Cleaning",
	"flooring":      "Flooring & Tiling",
	"hvac":          "Heating & Cooling",
	"concreting":    "Concreting",
	"fencing":       "Fencing & Gates",
	"pest_control":  "Pest Control",
	"renovations":   "Renovations & Extensions",
	"handyman":      "Handyman",
	"removals":      "Removals & Delivery",
	"solar":         "Solar & Battery",
	"pool_services": "Pool Services",
	"locksmith":     "Locksmiths & Security",
}

func IsValidCategory(slug string) bool {
	_, ok := categories[slug]
	return ok
}

func CategoryName(slug string) string {
	return categories[slug]
}

// CategorySlugs returns the slugs in no particular order.
func CategorySlugs() []string {
	out := make([]string, 0, len(categories))
	for slug := range categories {
		out = append(out, slug)
	}
	return out
}
