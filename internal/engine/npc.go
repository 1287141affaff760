package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/blockrow/internal/agents"
	"github.com/talgya/blockrow/internal/city"
	"github.com/talgya/blockrow/internal/entropy"
)

// NPCPool drives the computer-controlled population. NPCs issue commands
// through the same resolver as players, with synthetic request IDs, so
// every rule and every journal entry applies to them identically.
type NPCPool struct {
	engine *Engine
	ids    []string
}

// NewNPCPool registers count NPCs if the world has fewer, and adopts any
// NPCs already present from a restored world.
func NewNPCPool(e *Engine, count int) *NPCPool {
	pool := &NPCPool{engine: e}

	var existing []string
	var seed string
	e.View(func(w *World) {
		seed = w.Seed
		for _, id := range w.AgentIDs() {
			if w.Agents[id].NPC {
				existing = append(existing, id)
			}
		}
	})
	pool.ids = existing

	nameStream := entropy.NewStream(seed+":npc-names", uint64(len(existing)))
	for i := len(existing); i < count; i++ {
		a := e.RegisterNPC(agents.StreetName(nameStream))
		pool.ids = append(pool.ids, a.ID)
	}

	slog.Info("npc pool ready", "count", len(pool.ids))
	return pool
}

// npcIntent is a decision made under the read lock, executed after it is
// released. Resolve takes the engine lock itself.
type npcIntent struct {
	agentID   string
	requestID string
	cmd       Command
}

// Act makes one decision per idle NPC and resolves the resulting
// commands. Decisions draw from a salted per-tick stream in sorted agent
// order, so an NPC population replays byte-for-byte with the world.
func (p *NPCPool) Act() {
	var intents []npcIntent

	p.engine.View(func(w *World) {
		stream := entropy.NewStream(w.Seed+":npc", w.Tick)
		for _, id := range p.ids {
			a := w.Agents[id]
			if a == nil || a.Status != agents.StatusIdle {
				continue
			}
			if !stream.Chance(p.engine.rules.NPCActChance) {
				continue
			}
			cmd := p.decide(w, a, stream)
			if cmd == nil {
				continue
			}
			intents = append(intents, npcIntent{
				agentID:   a.ID,
				requestID: fmt.Sprintf("npc-%d-%s", w.Tick, a.ID),
				cmd:       cmd,
			})
		}
	})

	for _, in := range intents {
		res := p.engine.Resolve(in.agentID, in.requestID, in.cmd)
		if !res.OK && res.Code != CodeInsufficientFunds && res.Code != CodeRequirement {
			slog.Debug("npc command rejected",
				"agent", in.agentID, "cmd", in.cmd.Kind(), "code", res.Code)
		}
	}
}

// decide picks one command from the agent's situation. Needs before
// wants: health, then stamina, then taxes, then income, then trouble.
func (p *NPCPool) decide(w *World, a *agents.Agent, stream *entropy.Stream) Command {
	r := p.engine.rules

	if a.Health < 40 {
		if a.Zone == city.SlugHospital {
			if a.Cash >= r.HealCost {
				return Heal{}
			}
			return Rest{}
		}
		return Move{Dest: city.SlugHospital}
	}
	if a.Stamina < 30 {
		return Rest{}
	}
	if a.TaxOwed > 0 && a.Cash >= a.TaxOwed {
		return PayTax{}
	}

	if jobs := w.JobsInZone(a.Zone); len(jobs) > 0 && a.Cash < 400 {
		return TakeJob{JobID: jobs[0].ID}
	}

	d := w.Map.Get(a.Zone)
	if d != nil && !d.Civic && a.Heat < r.ArrestThreshold/2 && stream.Chance(d.Danger*0.5) {
		return Crime{Category: "PICKPOCKET"}
	}

	claimable := w.Map.Claimable()
	if len(claimable) == 0 {
		return nil
	}
	dest := entropy.Pick(stream, claimable)
	if dest == a.Zone {
		return nil
	}
	return Move{Dest: dest}
}
