package social

// Friendship is a mutual bond between two agents. The pair is stored in
// canonical order (A < B) so each bond exists exactly once.
type Friendship struct {
	A         string `json:"a"`
	B         string `json:"b"`
	Strength  int    `json:"strength"` // 0–100
	LastTick  uint64 `json:"last_tick"`
	Pending   bool   `json:"pending,omitempty"`
	Requester string `json:"requester,omitempty"` // set while pending
}

// PairKey returns the canonical key for two agent IDs.
func PairKey(a, b string) (string, string) {
	if b < a {
		a, b = b, a
	}
	return a, b
}

// Involves reports whether the agent is one of the pair.
func (f *Friendship) Involves(agentID string) bool {
	return f.A == agentID || f.B == agentID
}

// Other returns the counterpart of the given agent in the pair.
func (f *Friendship) Other(agentID string) string {
	if f.A == agentID {
		return f.B
	}
	return f.A
}
