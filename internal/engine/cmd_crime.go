package engine

import (
	"github.com/google/uuid"

	"github.com/talgya/blockrow/internal/agents"
	"github.com/talgya/blockrow/internal/city"
	"github.com/talgya/blockrow/internal/entropy"
)

// Crime handlers. The success roll is always the first draw from
// NewStream(world.Seed, world.Tick), so any outcome can be reproduced from
// the event history alone.

// crimeChance combines a base rate with linear skill bonuses, capped so
// crime is never a sure thing.
func (e *Engine) crimeChance(base, perLevel float64, level int) float64 {
	p := base + perLevel*float64(level)
	if p > e.rules.CrimeChanceCap {
		p = e.rules.CrimeChanceCap
	}
	if p < 0 {
		p = 0
	}
	return p
}

// hospitalize moves an agent to the hospital district after their health
// hits zero. Logged as its own event; release happens in the expiry pass.
func (e *Engine) hospitalize(w *World, a *agents.Agent, t *txn, cause string) {
	a.Status = agents.StatusHospitalized
	a.BusyUntil = w.Tick + e.rules.HospitalTicks
	a.Pending = nil
	a.Zone = city.SlugHospital
	t.emit(EvHospitalized, a.ID, a.Zone, "", map[string]any{
		"cause": cause, "release": a.BusyUntil,
	})
}

func (e *Engine) handleCrime(w *World, a *agents.Agent, c Crime, t *txn) (map[string]any, *Rejection) {
	spec, ok := e.rules.Crimes[c.Category]
	if !ok {
		return nil, reject(CodeInvalidTarget, "no such crime category: %s", c.Category)
	}
	d := w.Map.Get(a.Zone)
	if d == nil || d.Civic {
		return nil, reject(CodeWrongZone, "no marks in %s", a.Zone)
	}

	stream := entropy.NewStream(w.Seed, w.Tick)
	chance := e.crimeChance(spec.BaseChance, spec.SkillBonus, a.Skill(spec.Skill))
	a.Stats.CrimesAttempted++

	if stream.Chance(chance) {
		reward := int64(stream.IntRange(int(spec.RewardMin), int(spec.RewardMax)))
		a.Stats.CrimesSucceeded++
		a.AddHeat(spec.HeatOnSuccess, e.rules.HeatCap)
		a.Skills[spec.Skill]++

		ref := t.emit(EvCrimeSuccess, a.ID, a.Zone, "", map[string]any{
			"category": c.Category, "reward": reward, "chance": chance,
		})
		t.credit(a, reward, "crime: "+c.Category, ref)
		return map[string]any{"success": true, "reward": reward}, nil
	}

	damage := stream.IntRange(spec.DamageMin, spec.DamageMax)
	a.AddHeat(spec.HeatOnFailure, e.rules.HeatCap)
	t.emit(EvCrimeFailed, a.ID, a.Zone, "", map[string]any{
		"category": c.Category, "damage": damage, "chance": chance,
	})
	if a.Damage(damage) {
		e.hospitalize(w, a, t, "crime: "+c.Category)
	}
	return map[string]any{"success": false, "damage": damage}, nil
}

func (e *Engine) handleRob(w *World, a *agents.Agent, c Rob, t *txn) (map[string]any, *Rejection) {
	victim, ok := w.Agents[c.TargetID]
	if !ok {
		return nil, reject(CodeInvalidTarget, "no such agent: %s", c.TargetID)
	}
	if victim.ID == a.ID {
		return nil, reject(CodeInvalidTarget, "cannot rob self")
	}
	if victim.Zone != a.Zone {
		return nil, reject(CodeWrongZone, "target is in %s, agent is in %s", victim.Zone, a.Zone)
	}
	if victim.Status == agents.StatusJailed || victim.Status == agents.StatusHospitalized {
		return nil, reject(CodeRequirement, "target is out of reach")
	}
	if victim.Cash <= 0 {
		return nil, reject(CodeRequirement, "target has nothing worth taking")
	}

	stream := entropy.NewStream(w.Seed, w.Tick)
	chance := e.crimeChance(e.rules.RobBaseChance, e.rules.RobSkillBonus, a.Skill("muscle"))
	a.Stats.CrimesAttempted++

	if stream.Chance(chance) {
		maxTake := int64(float64(victim.Cash) * e.rules.RobMaxTakeRate)
		if maxTake < 1 {
			maxTake = 1
		}
		take := int64(stream.IntRange(1, int(maxTake)))

		a.Stats.CrimesSucceeded++
		victim.Stats.TimesRobbed++
		a.AddHeat(e.rules.RobHeatOnSuccess, e.rules.HeatCap)
		a.Skills["muscle"]++

		ref := t.emit(EvRobSuccess, a.ID, a.Zone, victim.ID, map[string]any{"take": take})
		t.transfer(victim, a, take, "robbery", ref)
		return map[string]any{"success": true, "take": take}, nil
	}

	damage := stream.IntRange(e.rules.RobDamageMin, e.rules.RobDamageMax)
	a.AddHeat(e.rules.RobHeatOnFailure, e.rules.HeatCap)
	t.emit(EvRobFailed, a.ID, a.Zone, victim.ID, map[string]any{"damage": damage})
	if a.Damage(damage) {
		e.hospitalize(w, a, t, "robbery gone wrong")
	}
	return map[string]any{"success": false, "damage": damage}, nil
}

func (e *Engine) handleBuyDisguise(w *World, a *agents.Agent, t *txn) (map[string]any, *Rejection) {
	if a.Disguised(w.Tick) {
		return nil, reject(CodeRequirement, "disguise already active until tick %d", a.DisguiseUntil)
	}
	if a.Cash < e.rules.DisguiseCost {
		return nil, reject(CodeInsufficientFunds, "disguise costs %d, agent has %d", e.rules.DisguiseCost, a.Cash)
	}

	a.DisguiseUntil = w.Tick + e.rules.DisguiseTicks
	ref := t.emit(EvDisguiseOn, a.ID, a.Zone, "", map[string]any{"until": a.DisguiseUntil})
	t.debit(a, e.rules.DisguiseCost, "disguise", ref)

	return map[string]any{"until": a.DisguiseUntil}, nil
}

func (e *Engine) handlePlaceBounty(w *World, a *agents.Agent, c PlaceBounty, t *txn) (map[string]any, *Rejection) {
	target, ok := w.Agents[c.TargetID]
	if !ok {
		return nil, reject(CodeInvalidTarget, "no such agent: %s", c.TargetID)
	}
	if target.ID == a.ID {
		return nil, reject(CodeInvalidTarget, "cannot place a bounty on self")
	}
	if c.Amount < e.rules.BountyMin {
		return nil, reject(CodeRequirement, "bounty must be at least %d", e.rules.BountyMin)
	}
	if a.Cash < c.Amount {
		return nil, reject(CodeInsufficientFunds, "agent has %d", a.Cash)
	}

	bounty := &Bounty{
		ID:          uuid.NewString(),
		PlacerID:    a.ID,
		TargetID:    target.ID,
		Amount:      c.Amount,
		ExpiresTick: w.Tick + e.rules.BountyTicks,
	}
	w.Bounties[bounty.ID] = bounty

	// The amount sits in escrow until claimed or expired.
	ref := t.emit(EvBountySet, a.ID, a.Zone, bounty.ID, map[string]any{
		"target": target.ID, "amount": c.Amount, "expires": bounty.ExpiresTick,
	})
	t.debit(a, c.Amount, "bounty escrow", ref)

	return map[string]any{"bounty_id": bounty.ID}, nil
}

func (e *Engine) handleClaimBounty(w *World, a *agents.Agent, c ClaimBounty, t *txn) (map[string]any, *Rejection) {
	bounty, ok := w.Bounties[c.BountyID]
	if !ok {
		return nil, reject(CodeInvalidTarget, "no such bounty: %s", c.BountyID)
	}
	target, ok := w.Agents[bounty.TargetID]
	if !ok {
		return nil, reject(CodeInvalidTarget, "bounty target no longer exists")
	}
	if a.ID == bounty.TargetID {
		return nil, reject(CodeUnauthorized, "target cannot collect their own bounty")
	}
	if target.Zone != a.Zone {
		return nil, reject(CodeWrongZone, "target is in %s, agent is in %s", target.Zone, a.Zone)
	}
	if target.Status == agents.StatusJailed || target.Status == agents.StatusHospitalized {
		return nil, reject(CodeRequirement, "target is out of reach")
	}

	stream := entropy.NewStream(w.Seed, w.Tick)
	chance := e.crimeChance(e.rules.RobBaseChance, e.rules.RobSkillBonus, a.Skill("muscle"))

	if stream.Chance(chance) {
		delete(w.Bounties, c.BountyID)

		damage := stream.IntRange(e.rules.RobDamageMin, e.rules.RobDamageMax)
		ref := t.emit(EvBountyWon, a.ID, a.Zone, bounty.ID, map[string]any{
			"target": target.ID, "amount": bounty.Amount,
		})
		t.credit(a, bounty.Amount, "bounty collected", ref)
		if target.Damage(damage) {
			e.hospitalize(w, target, t, "bounty collected on them")
		}
		return map[string]any{"success": true, "amount": bounty.Amount}, nil
	}

	damage := stream.IntRange(e.rules.RobDamageMin, e.rules.RobDamageMax)
	t.emit(EvBountyMiss, a.ID, a.Zone, bounty.ID, map[string]any{"damage": damage})
	if a.Damage(damage) {
		e.hospitalize(w, a, t, "bounty attempt gone wrong")
	}
	return map[string]any{"success": false, "damage": damage}, nil
}
