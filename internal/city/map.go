// Package city provides the district map: the zones agents move between,
// each with wealth and danger modifiers and a rotating set of job offers.
package city

import "fmt"

// Civic district slugs that always exist regardless of the generated grid.
const (
	SlugCentral  = "central"  // default civilian district, jail release point
	SlugJail     = "jail"     // arrested agents are relocated here
	SlugHospital = "hospital" // agents at zero health wake up here
)

// District is one zone of the city.
type District struct {
	Slug   string  `json:"slug"`
	Name   string  `json:"name"`
	Wealth float64 `json:"wealth"` // 0–1, scales job wages and property prices
	Danger float64 `json:"danger"` // 0–1, scales crime rewards
	Civic  bool    `json:"civic"`  // jail/hospital/central: no jobs or claims
}

// JobOffer is a wage posting in one district. Taking it makes the agent
// busy for Duration ticks and pays Wage on completion.
type JobOffer struct {
	ID       string `json:"id"`
	Zone     string `json:"zone"`
	Title    string `json:"title"`
	Wage     int64  `json:"wage"`
	Duration uint64 `json:"duration"`
}

// Map holds the generated city.
type Map struct {
	Districts map[string]*District `json:"districts"`
	Order     []string             `json:"order"` // slugs in generation order
}

// Get returns the district for a slug, or nil.
func (m *Map) Get(slug string) *District {
	return m.Districts[slug]
}

// Has reports whether the slug names a district.
func (m *Map) Has(slug string) bool {
	_, ok := m.Districts[slug]
	return ok
}

// Claimable returns the slugs of non-civic districts in stable order.
func (m *Map) Claimable() []string {
	out := make([]string, 0, len(m.Order))
	for _, slug := range m.Order {
		if d := m.Districts[slug]; d != nil && !d.Civic {
			out = append(out, slug)
		}
	}
	return out
}

// String summarizes the map.
func (m *Map) String() string {
	return fmt.Sprintf("Map(districts=%d)", len(m.Districts))
}
