package engine

import (
	"github.com/talgya/blockrow/internal/agents"
	"github.com/talgya/blockrow/internal/city"
)

// Delayed command handlers: each validates, debits any up-front cost, then
// parks the agent as busy with a typed pending action. The effect itself
// lands in the tick processor's busy-resolution pass.

func (e *Engine) handleMove(w *World, a *agents.Agent, c Move, t *txn) (map[string]any, *Rejection) {
	if !w.Map.Has(c.Dest) {
		return nil, reject(CodeInvalidTarget, "no such district: %s", c.Dest)
	}
	if c.Dest == city.SlugJail {
		return nil, reject(CodeInvalidTarget, "nobody walks into the jail")
	}
	if c.Dest == a.Zone {
		return nil, reject(CodeRequirement, "already in %s", c.Dest)
	}

	until := w.Tick + e.rules.MoveTicks
	a.Status = agents.StatusBusy
	a.BusyUntil = until
	a.Pending = &agents.PendingAction{Kind: agents.PendingMove, Destination: c.Dest}

	t.emit(EvMoveStarted, a.ID, a.Zone, "", map[string]any{"dest": c.Dest, "arrives": until})
	return map[string]any{"busy_until": until, "dest": c.Dest}, nil
}

func (e *Engine) handleTakeJob(w *World, a *agents.Agent, c TakeJob, t *txn) (map[string]any, *Rejection) {
	job, ok := w.Jobs[c.JobID]
	if !ok {
		return nil, reject(CodeInvalidTarget, "no such job: %s", c.JobID)
	}
	if job.Zone != a.Zone {
		return nil, reject(CodeWrongZone, "job %s is in %s, agent is in %s", c.JobID, job.Zone, a.Zone)
	}

	delete(w.Jobs, c.JobID)
	until := w.Tick + job.Duration
	a.Status = agents.StatusBusy
	a.BusyUntil = until
	a.Pending = &agents.PendingAction{
		Kind:     agents.PendingJob,
		JobID:    job.ID,
		JobTitle: job.Title,
		Wage:     job.Wage,
	}

	t.emit(EvJobTaken, a.ID, a.Zone, job.ID, map[string]any{
		"title": job.Title, "wage": job.Wage, "done": until,
	})
	return map[string]any{"busy_until": until, "wage": job.Wage}, nil
}

func (e *Engine) handleHeal(w *World, a *agents.Agent, t *txn) (map[string]any, *Rejection) {
	if a.Zone != city.SlugHospital {
		return nil, reject(CodeWrongZone, "healing requires the hospital district")
	}
	if a.Cash < e.rules.HealCost {
		return nil, reject(CodeInsufficientFunds, "treatment costs %d, agent has %d", e.rules.HealCost, a.Cash)
	}
	if a.Health >= 100 {
		return nil, reject(CodeRequirement, "agent is already at full health")
	}

	until := w.Tick + e.rules.HealTicks
	a.Status = agents.StatusBusy
	a.BusyUntil = until
	a.Pending = &agents.PendingAction{Kind: agents.PendingHeal}

	ref := t.emit(EvHealStarted, a.ID, a.Zone, "", map[string]any{"cost": e.rules.HealCost, "done": until})
	t.debit(a, e.rules.HealCost, "hospital treatment", ref)

	return map[string]any{"busy_until": until}, nil
}

func (e *Engine) handleRest(w *World, a *agents.Agent, t *txn) (map[string]any, *Rejection) {
	if a.Stamina >= 100 {
		return nil, reject(CodeRequirement, "agent is already rested")
	}

	until := w.Tick + e.rules.RestTicks
	a.Status = agents.StatusBusy
	a.BusyUntil = until
	a.Pending = &agents.PendingAction{Kind: agents.PendingRest}

	t.emit(EvRestStarted, a.ID, a.Zone, "", map[string]any{"done": until})
	return map[string]any{"busy_until": until}, nil
}
