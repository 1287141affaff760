package engine

import (
	"github.com/talgya/blockrow/internal/agents"
	"github.com/talgya/blockrow/internal/entropy"
)

// resolveCoops is pass 7: ready crews execute their job this tick;
// recruiting crews that ran out of time cancel. Resolved actions leave
// the map; their history lives in the event log.
func (e *Engine) resolveCoops(w *World, t *txn, sum *TickSummary) {
	stream := entropy.NewStream(w.Seed+":coop", w.Tick)

	for _, id := range w.CoopIDs() {
		coop := w.Coops[id]

		switch coop.Status {
		case CoopRecruiting:
			if w.Tick >= coop.ExpiresTick {
				e.cancelCoop(w, t, coop, "recruitment expired")
				sum.Coops++
			}
		case CoopReady:
			e.executeCoop(w, t, coop, stream)
			sum.Coops++
		}
	}
}

func (e *Engine) cancelCoop(w *World, t *txn, coop *CoopAction, reason string) {
	coop.Status = CoopCancelled
	delete(w.Coops, coop.ID)
	t.emit(EvCoopCancel, coop.InitiatorID, "", coop.ID, map[string]any{"reason": reason})
}

// executeCoop rolls one success chance for the whole crew. Everyone must
// still be idle and standing where the crew formed; otherwise the action
// cancels rather than punishing the ones who showed up.
func (e *Engine) executeCoop(w *World, t *txn, coop *CoopAction, stream *entropy.Stream) {
	spec, ok := e.rules.Crimes[coop.Category]
	if !ok {
		e.cancelCoop(w, t, coop, "unknown category")
		return
	}
	initiator := w.Agents[coop.InitiatorID]
	if initiator == nil {
		e.cancelCoop(w, t, coop, "initiator gone")
		return
	}

	crew := make([]*agents.Agent, 0, len(coop.Participants))
	for _, pid := range coop.Participants {
		m := w.Agents[pid]
		if m == nil || m.Status != agents.StatusIdle || m.Zone != initiator.Zone {
			e.cancelCoop(w, t, coop, "crew scattered")
			return
		}
		crew = append(crew, m)
	}

	coop.Status = CoopExecuting
	chance := e.coopChance(spec.BaseChance, crew)
	n := len(crew)

	if stream.Chance(chance) {
		base := int64(stream.IntRange(int(spec.RewardMin), int(spec.RewardMax)))
		share := int64(float64(base) * e.rules.CoopRewardFactor)
		heatEach := spec.HeatOnSuccess / float64(n)

		coop.Status = CoopCompleted
		delete(w.Coops, coop.ID)
		ref := t.emit(EvCoopSuccess, coop.InitiatorID, initiator.Zone, coop.ID, map[string]any{
			"category": coop.Category, "crew": n, "share": share, "chance": chance,
		})
		for _, m := range crew {
			m.Stats.CrimesAttempted++
			m.Stats.CrimesSucceeded++
			m.AddHeat(heatEach, e.rules.HeatCap)
			m.Skills[spec.Skill]++
			t.credit(m, share, "coop crime: "+coop.Category, ref)
		}
		return
	}

	coop.Status = CoopFailed
	delete(w.Coops, coop.ID)
	t.emit(EvCoopFailed, coop.InitiatorID, initiator.Zone, coop.ID, map[string]any{
		"category": coop.Category, "crew": n, "chance": chance,
	})
	for _, m := range crew {
		m.Stats.CrimesAttempted++
		m.AddHeat(spec.HeatOnFailure, e.rules.HeatCap)
		damage := stream.IntRange(spec.DamageMin, spec.DamageMax)
		if m.Damage(damage) {
			e.hospitalize(w, m, t, "coop crime: "+coop.Category)
		}
	}
}

// coopChance layers crew bonuses over the category's base chance: extra
// hands beyond the minimum (capped), a same-gang bonus when the whole
// crew shares one gang, and the crew's average stealth.
func (e *Engine) coopChance(base float64, crew []*agents.Agent) float64 {
	extra := float64(len(crew)-e.rules.CoopMinCrew) * e.rules.CoopBonusPerExtra
	if extra > e.rules.CoopBonusCap {
		extra = e.rules.CoopBonusCap
	}
	if extra < 0 {
		extra = 0
	}

	sameGang := crew[0].GangID != ""
	totalStealth := 0
	for _, m := range crew {
		if m.GangID != crew[0].GangID {
			sameGang = false
		}
		totalStealth += m.Skill("stealth")
	}

	p := base + extra
	if sameGang {
		p += e.rules.CoopSameGangBonus
	}
	p += float64(totalStealth) / float64(len(crew)) * e.rules.CoopStealthWeight
	if p > e.rules.CrimeChanceCap {
		p = e.rules.CrimeChanceCap
	}
	return p
}

// decayFriendships is pass 8, running every FriendDecayEvery ticks: bonds
// idle past the window lose strength and dissolve at zero. Pending
// requests expire on the same schedule.
func (e *Engine) decayFriendships(w *World, t *txn, sum *TickSummary) {
	if e.rules.FriendDecayEvery == 0 || w.Tick%e.rules.FriendDecayEvery != 0 {
		return
	}

	for _, key := range w.FriendshipKeys() {
		f := w.Friendships[key]
		if w.Tick < f.LastTick+e.rules.FriendIdleWindow {
			continue
		}

		if f.Pending {
			delete(w.Friendships, key)
			sum.Friendships++
			t.emit(EvFriendEnd, f.Requester, "", f.Other(f.Requester), map[string]any{"reason": "request expired"})
			continue
		}

		f.Strength -= e.rules.FriendDecayStep
		sum.Friendships++
		if f.Strength > 0 {
			continue
		}

		delete(w.Friendships, key)
		for _, id := range []string{f.A, f.B} {
			if a := w.Agents[id]; a != nil && a.FriendCount > 0 {
				a.FriendCount--
			}
		}
		t.emit(EvFriendEnd, f.A, "", f.B, map[string]any{"reason": "drifted apart"})
	}
}
