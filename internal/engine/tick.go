package engine

import (
	"errors"
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/talgya/blockrow/internal/agents"
	"github.com/talgya/blockrow/internal/city"
)

// ErrNotInitialized is returned when the tick processor runs before a
// world exists.
var ErrNotInitialized = errors.New("engine: world not initialized")

// TickSummary counts what each pass did, and is the payload of the
// aggregate TICK event.
type TickSummary struct {
	Tick        uint64 `json:"tick"`
	Resolved    int    `json:"resolved"`
	Arrests     int    `json:"arrests"`
	Assessed    int    `json:"assessed"`
	TaxPaid     int    `json:"tax_paid"`
	Evasions    int    `json:"evasions"`
	Territories int    `json:"territories"`
	RentEvents  int    `json:"rent_events"`
	Coops       int    `json:"coops"`
	Friendships int    `json:"friendships"`
	Expired     int    `json:"expired"`
	Released    int    `json:"released"`
}

// ProcessTick runs the batch passes in their fixed order and increments
// the tick counter. The order matters: later passes depend on earlier
// effects being visible, so busy resolution always runs first and the
// expiry pass last. Returns (nil, nil) while the world is paused.
func (e *Engine) ProcessTick() (*TickSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	w := e.world
	if w == nil {
		return nil, ErrNotInitialized
	}
	if w.Paused {
		return nil, nil
	}

	t := &txn{tick: w.Tick}
	sum := &TickSummary{Tick: w.Tick}

	e.resolveBusy(w, t, sum)
	e.decayHeat(w)
	e.arrestSweep(w, t, sum)
	e.collectTaxes(w, t, sum)
	e.territoryPass(w, t, sum)
	e.rentPass(w, t, sum)
	e.resolveCoops(w, t, sum)
	e.decayFriendships(w, t, sum)
	e.expirePass(w, t, sum)

	w.RefreshJobs(w.Tick)

	t.emit(EvTick, "", "", "", map[string]any{
		"resolved": sum.Resolved, "arrests": sum.Arrests,
		"assessed": sum.Assessed, "tax_paid": sum.TaxPaid, "evasions": sum.Evasions,
		"territories": sum.Territories, "rent": sum.RentEvents,
		"coops": sum.Coops, "friendships": sum.Friendships,
		"expired": sum.Expired, "released": sum.Released,
	})
	w.Tick++

	e.recent = append(e.recent, t.events...)
	if len(e.recent) > recentEventCap {
		e.recent = e.recent[len(e.recent)-recentEventCap:]
	}
	if e.sink != nil && len(t.events) > 0 {
		e.sink(t.events)
	}
	if e.rec != nil {
		// Snapshot and journal commit together with the incremented tick,
		// so a crash mid-tick replays the whole tick from (seed, tick).
		err := withRetry(func() error {
			return e.rec.AppendTick(w, t.events, t.ledger)
		})
		if err != nil {
			slog.Error("tick persistence failed", "tick", sum.Tick, "error", err)
		}
	}

	if sum.Tick%50 == 0 {
		e.logReport(w, sum)
	}
	return sum, nil
}

func (e *Engine) logReport(w *World, sum *TickSummary) {
	var totalCash int64
	for _, a := range w.Agents {
		totalCash += a.Cash
	}
	slog.Info("tick report",
		"tick", sum.Tick,
		"agents", len(w.Agents),
		"total_cash", humanize.Comma(totalCash),
		"gangs", len(w.Gangs),
		"territories", len(w.Territories),
		"arrests", sum.Arrests,
		"coops", sum.Coops,
	)
}

// resolveBusy is pass 1: agents whose busy window elapsed get their
// pending action's effect and return to idle.
func (e *Engine) resolveBusy(w *World, t *txn, sum *TickSummary) {
	for _, id := range w.AgentIDs() {
		a := w.Agents[id]
		if a.Status != agents.StatusBusy || a.BusyUntil > w.Tick {
			continue
		}

		pending := a.Pending
		a.Status = agents.StatusIdle
		a.BusyUntil = 0
		a.Pending = nil
		sum.Resolved++

		if pending == nil {
			slog.Warn("busy agent had no pending action", "agent", a.ID)
			continue
		}

		switch pending.Kind {
		case agents.PendingJob:
			a.Stats.JobsCompleted++
			a.Stamina -= 10
			if a.Stamina < 0 {
				a.Stamina = 0
			}
			ref := t.emit(EvJobDone, a.ID, a.Zone, pending.JobID, map[string]any{
				"title": pending.JobTitle, "wage": pending.Wage,
			})
			t.credit(a, pending.Wage, "wages: "+pending.JobTitle, ref)
		case agents.PendingMove:
			if !w.Map.Has(pending.Destination) {
				slog.Warn("move destination vanished", "agent", a.ID, "dest", pending.Destination)
				continue
			}
			a.Zone = pending.Destination
			a.Stats.MovesCompleted++
			t.emit(EvMoveDone, a.ID, a.Zone, "", nil)
		case agents.PendingHeal:
			a.Health = 100
			t.emit(EvHealDone, a.ID, a.Zone, "", nil)
		case agents.PendingRest:
			a.Stamina = 100
			t.emit(EvRestDone, a.ID, a.Zone, "", nil)
		}
	}
}

// decayHeat is pass 2: heat cools at a status-dependent rate, faster for
// agents off the street, plus a disguise bonus while one is active.
func (e *Engine) decayHeat(w *World) {
	for _, a := range w.Agents {
		decay := e.rules.HeatDecayIdle
		switch a.Status {
		case agents.StatusBusy:
			decay = e.rules.HeatDecayBusy
		case agents.StatusJailed, agents.StatusHospitalized:
			decay = e.rules.HeatDecayConfined
		}
		if a.Disguised(w.Tick) {
			decay += e.rules.DisguiseDecayBonus
		}
		a.Heat -= decay
		if a.Heat < 0 {
			a.Heat = 0
		}
	}
}

// expirePass is pass 9: bounties refund, disguises wear off, jail
// sentences and hospital stays end.
func (e *Engine) expirePass(w *World, t *txn, sum *TickSummary) {
	for _, id := range w.BountyIDs() {
		bounty := w.Bounties[id]
		if bounty.ExpiresTick > w.Tick {
			continue
		}
		delete(w.Bounties, id)
		sum.Expired++
		ref := t.emit(EvBountyEnd, bounty.PlacerID, "", bounty.ID, map[string]any{"amount": bounty.Amount})
		if placer := w.Agents[bounty.PlacerID]; placer != nil {
			t.credit(placer, bounty.Amount, "bounty refund", ref)
		}
	}

	for _, id := range w.AgentIDs() {
		a := w.Agents[id]

		if a.DisguiseUntil != 0 && a.DisguiseUntil <= w.Tick {
			a.DisguiseUntil = 0
			sum.Expired++
			t.emit(EvDisguiseOff, a.ID, a.Zone, "", nil)
		}

		switch a.Status {
		case agents.StatusJailed:
			if a.BusyUntil <= w.Tick {
				a.Status = agents.StatusIdle
				a.BusyUntil = 0
				a.Zone = city.SlugCentral
				sum.Released++
				t.emit(EvJailRelease, a.ID, a.Zone, "", nil)
			}
		case agents.StatusHospitalized:
			if a.BusyUntil <= w.Tick {
				a.Status = agents.StatusIdle
				a.BusyUntil = 0
				if a.Health < 50 {
					a.Health = 50
				}
				sum.Released++
				t.emit(EvDischarged, a.ID, a.Zone, "", nil)
			}
		}
	}
}

// SetPaused toggles the world clock's run state.
func (e *Engine) SetPaused(paused bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.world != nil {
		e.world.Paused = paused
	}
}
