package engine

import (
	"github.com/talgya/blockrow/internal/agents"
	"github.com/talgya/blockrow/internal/city"
	"github.com/talgya/blockrow/internal/entropy"
)

// collectTaxes is pass 4. Two sub-phases per agent: settle obligations
// whose grace period elapsed (auto-pay or punish evasion), then assess
// new obligations that came due. An agent assessed this tick gets the
// full grace window before the first sub-phase can touch them.
func (e *Engine) collectTaxes(w *World, t *txn, sum *TickSummary) {
	stream := entropy.NewStream(w.Seed+":taxes", w.Tick)

	for _, id := range w.AgentIDs() {
		a := w.Agents[id]

		if a.TaxOwed > 0 && a.TaxGraceEnd > 0 && w.Tick >= a.TaxGraceEnd {
			// Only idle agents settle. Jailed and hospitalized agents cannot
			// be punished twice over, and a busy agent must not be yanked out
			// of an in-flight job or move; grace extends past the window.
			if a.Status != agents.StatusIdle {
				a.TaxGraceEnd = a.BusyUntil + 1
				continue
			}
			if a.Cash >= a.TaxOwed {
				e.autoPayTax(w, a, t)
				sum.TaxPaid++
			} else {
				e.punishEvasion(w, a, t, stream)
				sum.Evasions++
			}
			continue
		}

		if a.TaxOwed == 0 && a.TaxDueTick > 0 && w.Tick >= a.TaxDueTick {
			wealth := w.TotalWealth(a)
			tax := e.rules.TaxOn(wealth)
			if tax <= 0 {
				a.TaxDueTick = w.Tick + e.rules.TaxIntervalTicks
				continue
			}
			a.TaxOwed = tax
			a.TaxGraceEnd = w.Tick + e.rules.TaxGraceTicks
			sum.Assessed++
			t.emit(EvTaxAssessed, a.ID, a.Zone, "", map[string]any{
				"wealth": wealth, "owed": tax, "grace_end": a.TaxGraceEnd,
			})
		}
	}
}

// autoPayTax settles an overdue obligation from cash on hand.
func (e *Engine) autoPayTax(w *World, a *agents.Agent, t *txn) {
	owed := a.TaxOwed
	a.TaxOwed = 0
	a.TaxGraceEnd = 0
	a.TaxDueTick = w.Tick + e.rules.TaxIntervalTicks
	a.Stats.TaxesPaid++

	ref := t.emit(EvTaxPaid, a.ID, a.Zone, "", map[string]any{"amount": owed, "auto": true})
	t.debit(a, owed, "tax (collected)", ref)
}

// punishEvasion jails an agent who cannot cover an overdue obligation:
// partial cash seizure, inventory seizure, reputation penalty, and a
// sentence. The debt itself is discharged by the punishment; the next
// assessment is scheduled after release.
func (e *Engine) punishEvasion(w *World, a *agents.Agent, t *txn, stream *entropy.Stream) {
	seized := int64(float64(a.Cash) * e.rules.EvasionSeizureRate)
	sentence := uint64(stream.IntRange(int(e.rules.EvasionSentenceMin), int(e.rules.EvasionSentenceMax)))

	var taken []string
	if items := a.Inventory.ItemIDs(); len(items) > 0 {
		n := stream.IntRange(1, 3)
		if n > len(items) {
			n = len(items)
		}
		entropy.Shuffle(stream, items)
		for i := 0; i < n; i++ {
			a.Inventory.Remove(items[i], 1)
			taken = append(taken, items[i])
		}
	}

	a.Reputation -= e.rules.EvasionRepPenalty
	a.Status = agents.StatusJailed
	a.BusyUntil = w.Tick + sentence
	a.Pending = nil
	a.Zone = city.SlugJail
	a.Stats.Evasions++

	owed := a.TaxOwed
	a.TaxOwed = 0
	a.TaxGraceEnd = 0
	a.TaxDueTick = a.BusyUntil + e.rules.TaxIntervalTicks

	ref := t.emit(EvTaxEvasion, a.ID, a.Zone, "", map[string]any{
		"owed": owed, "seized": seized, "items": taken,
		"sentence": sentence, "release": a.BusyUntil,
	})
	if seized > 0 {
		t.debit(a, seized, "tax seizure", ref)
	}
}
