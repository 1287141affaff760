// Package social provides the gang, territory, and friendship aggregates.
// Each is mutated by exactly one command family plus, where time-based, one
// tick-processor pass.
package social

// Gang is a named crew with a shared treasury. Membership is tracked on the
// gang side; each member agent carries the gang ID back-reference.
type Gang struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	LeaderID string   `json:"leader_id"`
	Members  []string `json:"members"` // includes the leader
	Treasury int64    `json:"treasury"`
	Invites  []string `json:"invites,omitempty"` // pending invited agent IDs

	CreatedTick uint64 `json:"created_tick"`
}

// HasMember reports membership.
func (g *Gang) HasMember(agentID string) bool {
	for _, id := range g.Members {
		if id == agentID {
			return true
		}
	}
	return false
}

// Invited reports whether an invite is pending for the agent.
func (g *Gang) Invited(agentID string) bool {
	for _, id := range g.Invites {
		if id == agentID {
			return true
		}
	}
	return false
}

// DropInvite removes a pending invite if present.
func (g *Gang) DropInvite(agentID string) {
	for i, id := range g.Invites {
		if id == agentID {
			g.Invites = append(g.Invites[:i], g.Invites[i+1:]...)
			return
		}
	}
}

// RemoveMember drops an agent from the roster. Returns false if absent.
func (g *Gang) RemoveMember(agentID string) bool {
	for i, id := range g.Members {
		if id == agentID {
			g.Members = append(g.Members[:i], g.Members[i+1:]...)
			return true
		}
	}
	return false
}
