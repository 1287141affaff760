package engine

import (
	"github.com/google/uuid"

	"github.com/talgya/blockrow/internal/agents"
	"github.com/talgya/blockrow/internal/social"
)

// Gang, friendship, and cooperative-crime handlers.

func (e *Engine) handleCreateGang(w *World, a *agents.Agent, c CreateGang, t *txn) (map[string]any, *Rejection) {
	if c.Name == "" {
		return nil, reject(CodeRequirement, "gang needs a name")
	}
	if a.GangID != "" {
		return nil, reject(CodeRequirement, "agent is already in a gang")
	}
	if a.Cash < e.rules.GangCreateCost {
		return nil, reject(CodeInsufficientFunds, "founding costs %d, agent has %d", e.rules.GangCreateCost, a.Cash)
	}

	g := &social.Gang{
		ID:          uuid.NewString(),
		Name:        c.Name,
		LeaderID:    a.ID,
		Members:     []string{a.ID},
		CreatedTick: w.Tick,
	}
	w.Gangs[g.ID] = g
	a.GangID = g.ID

	// The founding stake seeds the treasury.
	ref := t.emit(EvGangCreated, a.ID, a.Zone, g.ID, map[string]any{"name": c.Name})
	t.debit(a, e.rules.GangCreateCost, "gang founding stake", ref)
	g.Treasury += e.rules.GangCreateCost

	return map[string]any{"gang_id": g.ID}, nil
}

func (e *Engine) handleInviteToGang(w *World, a *agents.Agent, c InviteToGang, t *txn) (map[string]any, *Rejection) {
	target, ok := w.Agents[c.TargetID]
	if !ok {
		return nil, reject(CodeInvalidTarget, "no such agent: %s", c.TargetID)
	}
	g := w.GangOf(a)
	if g == nil {
		return nil, reject(CodeRequirement, "agent is not in a gang")
	}
	if g.LeaderID != a.ID {
		return nil, reject(CodeUnauthorized, "only the leader invites")
	}
	if target.GangID != "" {
		return nil, reject(CodeRequirement, "target is already in a gang")
	}
	if g.Invited(target.ID) {
		return nil, reject(CodeRequirement, "target is already invited")
	}

	g.Invites = append(g.Invites, target.ID)
	t.emit(EvGangInvite, a.ID, a.Zone, g.ID, map[string]any{"target": target.ID})
	return map[string]any{"target": target.ID}, nil
}

func (e *Engine) handleJoinGang(w *World, a *agents.Agent, c JoinGang, t *txn) (map[string]any, *Rejection) {
	g, ok := w.Gangs[c.GangID]
	if !ok {
		return nil, reject(CodeInvalidTarget, "no such gang: %s", c.GangID)
	}
	if a.GangID != "" {
		return nil, reject(CodeRequirement, "agent is already in a gang")
	}
	if !g.Invited(a.ID) {
		return nil, reject(CodeUnauthorized, "agent was not invited")
	}

	g.DropInvite(a.ID)
	g.Members = append(g.Members, a.ID)
	a.GangID = g.ID

	t.emit(EvGangJoined, a.ID, a.Zone, g.ID, nil)
	return map[string]any{"gang_id": g.ID}, nil
}

func (e *Engine) handleLeaveGang(w *World, a *agents.Agent, t *txn) (map[string]any, *Rejection) {
	g := w.GangOf(a)
	if g == nil {
		return nil, reject(CodeRequirement, "agent is not in a gang")
	}

	g.RemoveMember(a.ID)
	a.GangID = ""

	if len(g.Members) == 0 {
		// Last one out dissolves the gang; the treasury leaves with them
		// so no cash evaporates.
		ref := t.emit(EvGangLeft, a.ID, a.Zone, g.ID, map[string]any{"dissolved": true})
		if g.Treasury > 0 {
			t.credit(a, g.Treasury, "gang dissolution payout", ref)
			g.Treasury = 0
		}
		for _, zone := range w.TerritoryZones() {
			if w.Territories[zone].GangID == g.ID {
				delete(w.Territories, zone)
				t.emit(EvTerrLost, "", zone, g.ID, map[string]any{"reason": "gang dissolved"})
			}
		}
		delete(w.Gangs, g.ID)
		return map[string]any{"dissolved": true}, nil
	}

	if g.LeaderID == a.ID {
		g.LeaderID = g.Members[0]
	}
	t.emit(EvGangLeft, a.ID, a.Zone, g.ID, nil)
	return map[string]any{"dissolved": false}, nil
}

func (e *Engine) handleClaimTerritory(w *World, a *agents.Agent, t *txn) (map[string]any, *Rejection) {
	g := w.GangOf(a)
	if g == nil {
		return nil, reject(CodeRequirement, "agent is not in a gang")
	}
	d := w.Map.Get(a.Zone)
	if d == nil || d.Civic {
		return nil, reject(CodeWrongZone, "%s cannot be claimed", a.Zone)
	}
	if existing := w.Territories[a.Zone]; existing != nil {
		if existing.GangID == g.ID {
			return nil, reject(CodeRequirement, "gang already controls %s", a.Zone)
		}
		if !existing.Contestable {
			return nil, reject(CodeRequirement, "%s is firmly held", a.Zone)
		}
	}
	if a.Cash < e.rules.TerritoryClaimCost {
		return nil, reject(CodeInsufficientFunds, "claiming costs %d, agent has %d", e.rules.TerritoryClaimCost, a.Cash)
	}

	if existing := w.Territories[a.Zone]; existing != nil {
		t.emit(EvTerrLost, "", a.Zone, existing.GangID, map[string]any{"reason": "contested"})
	}
	w.Territories[a.Zone] = &social.Territory{
		Zone:        a.Zone,
		GangID:      g.ID,
		Strength:    50,
		ClaimedTick: w.Tick,
	}

	ref := t.emit(EvTerrClaimed, a.ID, a.Zone, g.ID, nil)
	t.debit(a, e.rules.TerritoryClaimCost, "territory claim", ref)

	return map[string]any{"zone": a.Zone}, nil
}

func friendshipKey(a, b string) string {
	x, y := social.PairKey(a, b)
	return x + "|" + y
}

func (e *Engine) handleFriendRequest(w *World, a *agents.Agent, c FriendRequest, t *txn) (map[string]any, *Rejection) {
	target, ok := w.Agents[c.TargetID]
	if !ok {
		return nil, reject(CodeInvalidTarget, "no such agent: %s", c.TargetID)
	}
	if target.ID == a.ID {
		return nil, reject(CodeInvalidTarget, "cannot befriend self")
	}
	key := friendshipKey(a.ID, target.ID)
	if _, exists := w.Friendships[key]; exists {
		return nil, reject(CodeRequirement, "friendship or request already exists")
	}

	x, y := social.PairKey(a.ID, target.ID)
	w.Friendships[key] = &social.Friendship{
		A: x, B: y,
		Pending:   true,
		Requester: a.ID,
		LastTick:  w.Tick,
	}

	t.emit(EvFriendAsk, a.ID, a.Zone, target.ID, nil)
	return map[string]any{"target": target.ID}, nil
}

func (e *Engine) handleAcceptFriend(w *World, a *agents.Agent, c AcceptFriend, t *txn) (map[string]any, *Rejection) {
	target, ok := w.Agents[c.TargetID]
	if !ok {
		return nil, reject(CodeInvalidTarget, "no such agent: %s", c.TargetID)
	}
	key := friendshipKey(a.ID, target.ID)
	f, exists := w.Friendships[key]
	if !exists || !f.Pending {
		return nil, reject(CodeInvalidTarget, "no pending request from %s", c.TargetID)
	}
	if f.Requester != target.ID {
		return nil, reject(CodeUnauthorized, "request was sent by this agent, not to them")
	}

	f.Pending = false
	f.Requester = ""
	f.Strength = e.rules.FriendInitial
	f.LastTick = w.Tick
	a.FriendCount++
	target.FriendCount++

	t.emit(EvFriendOK, a.ID, a.Zone, target.ID, nil)
	return map[string]any{"friend": target.ID}, nil
}

// activeCoopOf finds a recruiting or ready coop the agent belongs to.
func (w *World) activeCoopOf(agentID string) *CoopAction {
	for _, id := range w.CoopIDs() {
		coop := w.Coops[id]
		if coop.Status != CoopRecruiting && coop.Status != CoopReady {
			continue
		}
		for _, pid := range coop.Participants {
			if pid == agentID {
				return coop
			}
		}
	}
	return nil
}

func (e *Engine) handleInitiateCoop(w *World, a *agents.Agent, c InitiateCoop, t *txn) (map[string]any, *Rejection) {
	if _, ok := e.rules.Crimes[c.Category]; !ok {
		return nil, reject(CodeInvalidTarget, "no such crime category: %s", c.Category)
	}
	d := w.Map.Get(a.Zone)
	if d == nil || d.Civic {
		return nil, reject(CodeWrongZone, "no jobs to case in %s", a.Zone)
	}
	if w.activeCoopOf(a.ID) != nil {
		return nil, reject(CodeRequirement, "agent already has a crew forming")
	}

	minCrew := c.MinCrew
	if minCrew < e.rules.CoopMinCrew {
		minCrew = e.rules.CoopMinCrew
	}
	if minCrew > e.rules.CoopMaxCrew {
		return nil, reject(CodeRequirement, "crew size capped at %d", e.rules.CoopMaxCrew)
	}

	coop := &CoopAction{
		ID:           uuid.NewString(),
		Category:     c.Category,
		InitiatorID:  a.ID,
		Participants: []string{a.ID},
		MinCrew:      minCrew,
		Status:       CoopRecruiting,
		ExpiresTick:  w.Tick + e.rules.CoopExpiryTicks,
	}
	w.Coops[coop.ID] = coop

	t.emit(EvCoopStarted, a.ID, a.Zone, coop.ID, map[string]any{
		"category": c.Category, "min_crew": minCrew, "expires": coop.ExpiresTick,
	})
	return map[string]any{"coop_id": coop.ID, "min_crew": minCrew}, nil
}

func (e *Engine) handleJoinCoop(w *World, a *agents.Agent, c JoinCoop, t *txn) (map[string]any, *Rejection) {
	coop, ok := w.Coops[c.CoopID]
	if !ok {
		return nil, reject(CodeInvalidTarget, "no such coop action: %s", c.CoopID)
	}
	initiator, ok := w.Agents[coop.InitiatorID]
	if !ok {
		return nil, reject(CodeInvalidTarget, "crew initiator no longer exists")
	}
	if initiator.Zone != a.Zone {
		return nil, reject(CodeWrongZone, "crew is forming in %s", initiator.Zone)
	}
	if coop.Status != CoopRecruiting {
		return nil, reject(CodeRequirement, "crew is no longer recruiting")
	}
	for _, pid := range coop.Participants {
		if pid == a.ID {
			return nil, reject(CodeRequirement, "agent already joined")
		}
	}
	if w.activeCoopOf(a.ID) != nil {
		return nil, reject(CodeRequirement, "agent already has a crew forming")
	}
	if len(coop.Participants) >= e.rules.CoopMaxCrew {
		return nil, reject(CodeRequirement, "crew is full")
	}

	coop.Participants = append(coop.Participants, a.ID)
	if len(coop.Participants) >= coop.MinCrew {
		coop.Status = CoopReady
	}

	t.emit(EvCoopJoined, a.ID, a.Zone, coop.ID, map[string]any{
		"crew": len(coop.Participants), "status": string(coop.Status),
	})
	return map[string]any{"coop_id": coop.ID, "status": string(coop.Status)}, nil
}
