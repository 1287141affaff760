// Package engine is the simulation core: the World aggregate, the command
// resolver, and the tick processor. The World is an explicit parameter to
// every handler and pass, never ambient state.
package engine

import (
	"fmt"
	"sort"

	"github.com/talgya/blockrow/internal/agents"
	"github.com/talgya/blockrow/internal/city"
	"github.com/talgya/blockrow/internal/economy"
	"github.com/talgya/blockrow/internal/entropy"
	"github.com/talgya/blockrow/internal/rules"
	"github.com/talgya/blockrow/internal/social"
)

// CoopStatus is the lifecycle state of a cooperative crime.
type CoopStatus string

const (
	CoopRecruiting CoopStatus = "recruiting"
	CoopReady      CoopStatus = "ready"
	CoopExecuting  CoopStatus = "executing"
	CoopCompleted  CoopStatus = "completed"
	CoopFailed     CoopStatus = "failed"
	CoopCancelled  CoopStatus = "cancelled"
)

// CoopAction is a multi-agent crime in recruitment. It is created by
// INITIATE_COOP, grown by JOIN_COOP, and resolved by the tick processor.
type CoopAction struct {
	ID           string     `json:"id"`
	Category     string     `json:"category"` // crime category from the rule tables
	InitiatorID  string     `json:"initiator_id"`
	Participants []string   `json:"participants"` // includes the initiator, join order
	MinCrew      int        `json:"min_crew"`
	Status       CoopStatus `json:"status"`
	ExpiresTick  uint64     `json:"expires_tick"`
}

// Bounty is escrowed cash on an agent's head. The amount leaves the
// placer's pocket at placement and returns on expiry if unclaimed.
type Bounty struct {
	ID          string `json:"id"`
	PlacerID    string `json:"placer_id"`
	TargetID    string `json:"target_id"`
	Amount      int64  `json:"amount"`
	ExpiresTick uint64 `json:"expires_tick"`
}

// World is the complete simulation state. It is created once per database
// and owned by a single Engine; the seed never changes after creation.
type World struct {
	Seed   string `json:"seed"`
	Tick   uint64 `json:"tick"`
	Paused bool   `json:"paused"`

	Map         *city.Map                    `json:"map"`
	Agents      map[string]*agents.Agent     `json:"agents"`
	Businesses  map[string]*economy.Business `json:"businesses"`
	Properties  map[string]*economy.Property `json:"properties"`
	Residencies map[string]*economy.Residency `json:"residencies"` // keyed by property ID
	Gangs       map[string]*social.Gang      `json:"gangs"`
	Territories map[string]*social.Territory `json:"territories"` // keyed by district slug
	Friendships map[string]*social.Friendship `json:"friendships"` // keyed by "a|b"
	Coops       map[string]*CoopAction       `json:"coops"`
	Bounties    map[string]*Bounty           `json:"bounties"`
	Jobs        map[string]city.JobOffer     `json:"jobs"`
}

// NewWorld generates a fresh world from a seed: district map, city-owned
// properties, and the opening job board.
func NewWorld(seed string, r *rules.Rules, districts int) *World {
	m := city.Generate(city.GenConfig{Seed: seed, Districts: districts})

	w := &World{
		Seed:        seed,
		Map:         m,
		Agents:      make(map[string]*agents.Agent),
		Businesses:  make(map[string]*economy.Business),
		Properties:  make(map[string]*economy.Property),
		Residencies: make(map[string]*economy.Residency),
		Gangs:       make(map[string]*social.Gang),
		Territories: make(map[string]*social.Territory),
		Friendships: make(map[string]*social.Friendship),
		Coops:       make(map[string]*CoopAction),
		Bounties:    make(map[string]*Bounty),
		Jobs:        make(map[string]city.JobOffer),
	}

	// Two city-owned properties per claimable district, priced by wealth.
	stream := entropy.NewStream(seed+":property", 0)
	for _, slug := range m.Claimable() {
		d := m.Get(slug)
		for i := 0; i < 2; i++ {
			price := 800 + int64(d.Wealth*1200) + int64(stream.IntRange(0, 200))
			id := fmt.Sprintf("prop-%s-%d", slug, i)
			w.Properties[id] = &economy.Property{
				ID:    id,
				Zone:  slug,
				Name:  fmt.Sprintf("%s Walk-up #%d", d.Name, i+1),
				Price: price,
				Rent:  price / 20,
			}
		}
	}

	w.RefreshJobs(0)
	return w
}

// RefreshJobs repopulates the job board for districts running low.
func (w *World) RefreshJobs(tick uint64) {
	const perDistrict = 3

	open := make(map[string]int)
	for _, job := range w.Jobs {
		open[job.Zone]++
	}
	for _, slug := range w.Map.Claimable() {
		if open[slug] > 0 {
			continue
		}
		for _, job := range city.GenerateJobs(w.Map.Get(slug), w.Seed, tick, perDistrict) {
			w.Jobs[job.ID] = job
		}
	}
}

// AgentIDs returns agent IDs in sorted order. Tick passes iterate this way
// so RNG consumption is identical on every replay.
func (w *World) AgentIDs() []string {
	ids := make([]string, 0, len(w.Agents))
	for id := range w.Agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CoopIDs returns coop action IDs in sorted order.
func (w *World) CoopIDs() []string {
	ids := make([]string, 0, len(w.Coops))
	for id := range w.Coops {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// TerritoryZones returns claimed district slugs in sorted order.
func (w *World) TerritoryZones() []string {
	zones := make([]string, 0, len(w.Territories))
	for z := range w.Territories {
		zones = append(zones, z)
	}
	sort.Strings(zones)
	return zones
}

// ResidencyKeys returns residency property IDs in sorted order.
func (w *World) ResidencyKeys() []string {
	keys := make([]string, 0, len(w.Residencies))
	for k := range w.Residencies {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FriendshipKeys returns friendship pair keys in sorted order.
func (w *World) FriendshipKeys() []string {
	keys := make([]string, 0, len(w.Friendships))
	for k := range w.Friendships {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// BountyIDs returns bounty IDs in sorted order.
func (w *World) BountyIDs() []string {
	ids := make([]string, 0, len(w.Bounties))
	for id := range w.Bounties {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// JobsInZone lists open offers for one district, sorted by ID.
func (w *World) JobsInZone(zone string) []city.JobOffer {
	var out []city.JobOffer
	for _, job := range w.Jobs {
		if job.Zone == zone {
			out = append(out, job)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// BusinessesInZone lists businesses in one district, sorted by ID.
func (w *World) BusinessesInZone(zone string) []*economy.Business {
	var out []*economy.Business
	for _, b := range w.Businesses {
		if b.Zone == zone {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// TotalWealth computes an agent's taxable wealth: cash, inventory at base
// value, owned property at assessed value, plus owned-business cash and
// shelf stock.
func (w *World) TotalWealth(a *agents.Agent) int64 {
	total := a.Cash + a.Inventory.Value()
	for _, p := range w.Properties {
		if p.OwnerID == a.ID {
			total += p.AssessedValue()
		}
	}
	for _, b := range w.Businesses {
		if b.OwnerID == a.ID {
			total += b.Cash + b.StockValue()
		}
	}
	return total
}

// GangOf returns the agent's gang, or nil.
func (w *World) GangOf(a *agents.Agent) *social.Gang {
	if a.GangID == "" {
		return nil
	}
	return w.Gangs[a.GangID]
}
