package engine

import (
	"github.com/talgya/blockrow/internal/agents"
	"github.com/talgya/blockrow/internal/city"
	"github.com/talgya/blockrow/internal/entropy"
)

// arrestSweep is pass 3: idle agents over the heat threshold risk arrest.
// The sweep draws from its own salted stream, one roll per eligible agent
// in sorted ID order, so a replay from (seed, tick) reproduces every
// arrest.
func (e *Engine) arrestSweep(w *World, t *txn, sum *TickSummary) {
	stream := entropy.NewStream(w.Seed+":arrests", w.Tick)

	for _, id := range w.AgentIDs() {
		a := w.Agents[id]
		if a.Status != agents.StatusIdle {
			continue
		}
		chance := e.rules.ArrestChance(a.Heat)
		if chance <= 0 {
			continue
		}
		if !stream.Chance(chance) {
			continue
		}

		sentence := uint64(stream.IntRange(int(e.rules.SentenceMin), int(e.rules.SentenceMax)))
		fine := int64(a.Heat * e.rules.FineRate)
		if fine > a.Cash {
			fine = a.Cash
		}

		a.Status = agents.StatusJailed
		a.BusyUntil = w.Tick + sentence
		a.Pending = nil
		a.Zone = city.SlugJail
		a.Heat /= 2
		a.Stats.Arrests++
		sum.Arrests++

		ref := t.emit(EvArrested, a.ID, a.Zone, "", map[string]any{
			"sentence": sentence, "fine": fine, "release": a.BusyUntil,
		})
		if fine > 0 {
			fineRef := t.emit(EvFine, a.ID, a.Zone, "", map[string]any{
				"amount": fine, "arrest": ref,
			})
			t.debit(a, fine, "arrest fine", fineRef)
		}
	}
}
