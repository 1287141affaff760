package engine

import (
	"log/slog"

	"github.com/talgya/blockrow/internal/agents"
)

// territoryPass is pass 5: each held district pays income into the
// holding gang's treasury while a member stands on the ground, and decays
// toward loss while undefended.
func (e *Engine) territoryPass(w *World, t *txn, sum *TickSummary) {
	for _, zone := range w.TerritoryZones() {
		terr := w.Territories[zone]
		g := w.Gangs[terr.GangID]
		if g == nil {
			// Gang vanished out from under the claim.
			slog.Warn("territory held by missing gang", "zone", zone, "gang", terr.GangID)
			delete(w.Territories, zone)
			continue
		}

		defended := false
		for _, memberID := range g.Members {
			m := w.Agents[memberID]
			if m != nil && m.Zone == zone && m.Status != agents.StatusJailed {
				defended = true
				break
			}
		}

		if defended {
			g.Treasury += e.rules.TerritoryIncome
			terr.Reinforce(e.rules.TerritoryStrengthGain)
			sum.Territories++
			t.emit(EvTerrIncome, "", zone, g.ID, map[string]any{
				"income": e.rules.TerritoryIncome, "strength": terr.Strength,
			})
			continue
		}

		if terr.Decay(e.rules.TerritoryStrengthDecay, e.rules.TerritoryWeakThreshold) {
			delete(w.Territories, zone)
			t.emit(EvTerrLost, "", zone, g.ID, map[string]any{"reason": "abandoned"})
		}
	}
}

// rentPass is pass 6: due rents collect automatically; tenants who cannot
// pay get one overdue warning and then an eviction after the grace window.
func (e *Engine) rentPass(w *World, t *txn, sum *TickSummary) {
	for _, propID := range w.ResidencyKeys() {
		res := w.Residencies[propID]
		if w.Tick < res.NextDueTick {
			continue
		}
		p := w.Properties[propID]
		tenant := w.Agents[res.TenantID]
		if p == nil || tenant == nil {
			slog.Warn("residency with missing property or tenant", "property", propID)
			delete(w.Residencies, propID)
			continue
		}

		if tenant.Cash >= res.Rent {
			ref := t.emit(EvRentPaid, tenant.ID, p.Zone, p.ID, map[string]any{"rent": res.Rent})
			if owner := w.Agents[p.OwnerID]; owner != nil {
				t.transfer(tenant, owner, res.Rent, "rent", ref)
			} else {
				t.debit(tenant, res.Rent, "rent", ref)
			}
			res.NextDueTick = w.Tick + e.rules.RentIntervalTicks
			res.OverdueTick = 0
			sum.RentEvents++
			continue
		}

		if res.OverdueTick == 0 {
			res.OverdueTick = w.Tick
			sum.RentEvents++
			t.emit(EvRentOverdue, tenant.ID, p.Zone, p.ID, map[string]any{
				"rent": res.Rent, "evict_after": res.OverdueTick + e.rules.RentGraceTicks,
			})
			continue
		}

		if w.Tick >= res.OverdueTick+e.rules.RentGraceTicks {
			delete(w.Residencies, propID)
			if tenant.HomeProperty == p.ID {
				tenant.HomeProperty = ""
			}
			sum.RentEvents++
			t.emit(EvEvicted, tenant.ID, p.Zone, p.ID, map[string]any{
				"tenant": tenant.ID, "reason": "rent overdue",
			})
		}
	}
}
