// Package agents provides the agent data model: status machine, inventory,
// skills, heat, and the tax and lifetime-stat fields the tick processor
// works over.
package agents

import (
	"github.com/talgya/blockrow/internal/economy"
)

// Status is the agent lifecycle state. At most one status constrains action
// eligibility at a time; only idle agents may issue commands.
type Status uint8

const (
	StatusIdle Status = iota
	StatusBusy
	StatusJailed
	StatusHospitalized
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusBusy:
		return "busy"
	case StatusJailed:
		return "jailed"
	case StatusHospitalized:
		return "hospitalized"
	default:
		return "unknown"
	}
}

// PendingKind tags the action a busy agent resolves when its busy window
// elapses.
type PendingKind uint8

const (
	PendingNone PendingKind = iota
	PendingMove
	PendingJob
	PendingHeal
	PendingRest
)

// PendingAction is the typed resumption record for a busy agent. Exactly
// the fields for its kind are set: Destination for moves, JobID/Wage/Title
// for jobs.
type PendingAction struct {
	Kind        PendingKind `json:"kind"`
	Destination string      `json:"destination,omitempty"`
	JobID       string      `json:"job_id,omitempty"`
	JobTitle    string      `json:"job_title,omitempty"`
	Wage        int64       `json:"wage,omitempty"`
}

// Lifetime tracks per-agent counters that only ever increase.
type Lifetime struct {
	JobsCompleted   int `json:"jobs_completed"`
	MovesCompleted  int `json:"moves_completed"`
	CrimesAttempted int `json:"crimes_attempted"`
	CrimesSucceeded int `json:"crimes_succeeded"`
	Arrests         int `json:"arrests"`
	TimesRobbed     int `json:"times_robbed"`
	TaxesPaid       int `json:"taxes_paid"`
	Evasions        int `json:"evasions"`
}

// Agent is one inhabitant of the city, player- or NPC-controlled.
type Agent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	NPC  bool   `json:"npc,omitempty"`

	// Location and status.
	Zone      string         `json:"zone"`
	Status    Status         `json:"status"`
	BusyUntil uint64         `json:"busy_until,omitempty"` // tick the current status resolves
	Pending   *PendingAction `json:"pending,omitempty"`

	// Vitals and standing.
	Cash       int64   `json:"cash"`
	Health     int     `json:"health"`  // 0–100
	Stamina    int     `json:"stamina"` // 0–100
	Reputation int     `json:"reputation"`
	Heat       float64 `json:"heat"` // 0–100

	// Possessions.
	Inventory economy.Inventory `json:"inventory"`
	Skills    map[string]int    `json:"skills"`

	// Taxation.
	TaxOwed     int64  `json:"tax_owed,omitempty"`
	TaxDueTick  uint64 `json:"tax_due_tick"`
	TaxGraceEnd uint64 `json:"tax_grace_end,omitempty"`

	// Optional references.
	GangID        string `json:"gang_id,omitempty"`
	HomeProperty  string `json:"home_property,omitempty"`
	VehicleID     string `json:"vehicle_id,omitempty"`
	DisguiseUntil uint64 `json:"disguise_until,omitempty"`

	FriendCount int      `json:"friend_count"`
	Stats       Lifetime `json:"stats"`
	CreatedTick uint64   `json:"created_tick"`
}

// New creates an idle agent in the given zone.
func New(id, name, zone string, cash int64, tick uint64) *Agent {
	return &Agent{
		ID:          id,
		Name:        name,
		Zone:        zone,
		Status:      StatusIdle,
		Cash:        cash,
		Health:      100,
		Stamina:     100,
		Inventory:   make(economy.Inventory),
		Skills:      make(map[string]int),
		CreatedTick: tick,
	}
}

// Skill returns the level for a named skill, zero if untrained.
func (a *Agent) Skill(name string) int {
	return a.Skills[name]
}

// AddHeat raises heat, clamped to cap.
func (a *Agent) AddHeat(amount, cap float64) {
	a.Heat += amount
	if a.Heat > cap {
		a.Heat = cap
	}
	if a.Heat < 0 {
		a.Heat = 0
	}
}

// Damage lowers health, flooring at 0, and reports whether the agent
// dropped to zero (the caller hospitalizes).
func (a *Agent) Damage(amount int) bool {
	a.Health -= amount
	if a.Health <= 0 {
		a.Health = 0
		return true
	}
	return false
}

// Disguised reports whether a disguise is active at the given tick.
func (a *Agent) Disguised(tick uint64) bool {
	return a.DisguiseUntil > tick
}
