package city

import (
	"fmt"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/blockrow/internal/entropy"
)

// District name fragments. Names come out like "North Dockside" or
// "Old Ironrow".
var (
	namePrefixes = []string{"North", "South", "East", "West", "Old", "Lower", "Upper", "New"}
	nameCores    = []string{
		"Dockside", "Ironrow", "Brickton", "Marrow Hill", "Ashgate",
		"Fenwick", "Copper Flats", "Hollowbrook", "Granite Yards", "Vesper Row",
	}
)

// GenConfig controls city generation.
type GenConfig struct {
	Seed      string // world seed; drives both noise and naming
	Districts int    // non-civic district count
}

// Generate builds the district map. Wealth and danger come from two
// independent opensimplex layers sampled along the district index, so the
// same seed always yields the same city.
func Generate(cfg GenConfig) *Map {
	if cfg.Districts <= 0 {
		cfg.Districts = 8
	}

	stream := entropy.NewStream(cfg.Seed, 0)
	noiseSeed := int64(stream.IntRange(0, 1<<30))
	wealthNoise := opensimplex.NewNormalized(noiseSeed)
	dangerNoise := opensimplex.NewNormalized(noiseSeed + 1)

	m := &Map{Districts: make(map[string]*District)}

	// Civic districts first: fixed slugs, flat modifiers.
	for _, civic := range []struct {
		slug, name string
	}{
		{SlugCentral, "Central Plaza"},
		{SlugJail, "County Jail"},
		{SlugHospital, "St. Verity Hospital"},
	} {
		m.Districts[civic.slug] = &District{
			Slug:   civic.slug,
			Name:   civic.name,
			Wealth: 0.5,
			Danger: 0.1,
			Civic:  true,
		}
		m.Order = append(m.Order, civic.slug)
	}

	cores := append([]string(nil), nameCores...)
	entropy.Shuffle(stream, cores)

	for i := 0; i < cfg.Districts; i++ {
		x := float64(i) * 0.73
		wealth := wealthNoise.Eval2(x, 0.5)
		danger := dangerNoise.Eval2(x, 1.5)

		core := cores[i%len(cores)]
		name := core
		if i >= len(cores) || stream.Chance(0.5) {
			name = entropy.Pick(stream, namePrefixes) + " " + core
		}
		slug := fmt.Sprintf("d%02d", i)

		m.Districts[slug] = &District{
			Slug:   slug,
			Name:   name,
			Wealth: wealth,
			Danger: danger,
		}
		m.Order = append(m.Order, slug)
	}

	return m
}

// Job titles by wealth band.
var (
	jobsLow  = []string{"Dishwasher", "Warehouse Loader", "Courier", "Night Porter"}
	jobsMid  = []string{"Line Cook", "Mechanic", "Security Guard", "Electrician"}
	jobsHigh = []string{"Scommis Chef", "Clerk", "Locksmith", "Private Driver"}
)

// GenerateJobs creates fresh job offers for one district at the given tick.
// Wages scale with district wealth; durations are short multiples of the
// tick so jobs resolve within a play session.
func GenerateJobs(d *District, seed string, tick uint64, count int) []JobOffer {
	if d == nil || d.Civic || count <= 0 {
		return nil
	}

	stream := entropy.NewStream(seed+":jobs:"+d.Slug, tick)
	titles := jobsLow
	switch {
	case d.Wealth > 0.66:
		titles = jobsHigh
	case d.Wealth > 0.33:
		titles = jobsMid
	}

	offers := make([]JobOffer, 0, count)
	for i := 0; i < count; i++ {
		base := 20 + int64(d.Wealth*80)
		offers = append(offers, JobOffer{
			ID:       fmt.Sprintf("%s-%d-%d", d.Slug, tick, i),
			Zone:     d.Slug,
			Title:    entropy.Pick(stream, titles),
			Wage:     base + int64(stream.IntRange(0, 30)),
			Duration: uint64(stream.IntRange(2, 6)),
		})
	}
	return offers
}
