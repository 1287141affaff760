package social

// Territory is gang control over one district. Strength rises while a
// member holds the ground and decays when undefended; at zero strength the
// territory is lost.
type Territory struct {
	Zone        string  `json:"zone"` // district slug, one territory per district
	GangID      string  `json:"gang_id"`
	Strength    float64 `json:"strength"` // 0–100
	Contestable bool    `json:"contestable"`
	ClaimedTick uint64  `json:"claimed_tick"`
}

// Reinforce nudges strength upward, capped at 100.
func (t *Territory) Reinforce(gain float64) {
	t.Strength += gain
	if t.Strength > 100 {
		t.Strength = 100
	}
	t.Contestable = false
}

// Decay lowers strength by step, flooring at zero. Returns true when the
// territory is exhausted and should be deleted.
func (t *Territory) Decay(step, weakThreshold float64) bool {
	t.Strength -= step
	if t.Strength <= 0 {
		t.Strength = 0
		return true
	}
	t.Contestable = t.Strength < weakThreshold
	return false
}
