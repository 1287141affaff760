package engine

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/blockrow/internal/agents"
	"github.com/talgya/blockrow/internal/city"
	"github.com/talgya/blockrow/internal/economy"
	"github.com/talgya/blockrow/internal/rules"
)

func testEngine(t *testing.T) (*Engine, *World) {
	t.Helper()
	r := rules.Default()
	w := NewWorld("test-seed", r, 8)
	return NewEngine(w, r, nil), w
}

func countEvents(e *Engine, evType string) int {
	n := 0
	for _, ev := range e.RecentEvents(0) {
		if ev.Type == evType {
			n++
		}
	}
	return n
}

func TestRegisterStartsIdleInCentral(t *testing.T) {
	e, w := testEngine(t)

	a := e.Register("Slick Vic")
	assert.Equal(t, city.SlugCentral, a.Zone)
	assert.Equal(t, agents.StatusIdle, a.Status)
	assert.Equal(t, e.Rules().StartingCash, a.Cash)
	assert.Equal(t, w.Tick+e.Rules().TaxIntervalTicks, a.TaxDueTick)
	assert.Equal(t, 1, countEvents(e, EvRegistered))
}

func TestResolveUnknownAgent(t *testing.T) {
	e, _ := testEngine(t)

	res := e.Resolve("nobody", "req-00000001", Rest{})
	assert.False(t, res.OK)
	assert.Equal(t, CodeUnauthorized, res.Code)
}

func TestIdempotentReplay(t *testing.T) {
	e, w := testEngine(t)
	a := e.Register("Dutch")
	dest := w.Map.Claimable()[0]

	first := e.Resolve(a.ID, "req-00000001", Move{Dest: dest})
	require.True(t, first.OK)

	// Same request replays the stored result even though the agent is now
	// busy and a fresh MOVE would be rejected.
	second := e.Resolve(a.ID, "req-00000001", Move{Dest: dest})
	assert.Equal(t, first, second)
	assert.Equal(t, 1, countEvents(e, EvMoveStarted))
}

func TestIdempotentConcurrentDuplicates(t *testing.T) {
	e, w := testEngine(t)
	a := e.Register("Marla")
	dest := w.Map.Claimable()[0]

	const n = 16
	results := make([]Result, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = e.Resolve(a.ID, "req-concurrent", Move{Dest: dest})
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		assert.Equal(t, results[0], results[i])
	}
	assert.True(t, results[0].OK)
	assert.Equal(t, 1, countEvents(e, EvMoveStarted))
}

func TestDistinctRequestsAreDistinct(t *testing.T) {
	e, w := testEngine(t)
	a := e.Register("Sonny")
	dest := w.Map.Claimable()[0]

	first := e.Resolve(a.ID, "req-00000001", Move{Dest: dest})
	require.True(t, first.OK)

	second := e.Resolve(a.ID, "req-00000002", Move{Dest: dest})
	assert.False(t, second.OK)
	assert.Equal(t, CodeAgentBusy, second.Code)
}

func TestMoveRejectsJailAndCurrentZone(t *testing.T) {
	e, _ := testEngine(t)
	a := e.Register("Lou")

	res := e.Resolve(a.ID, "req-00000001", Move{Dest: city.SlugJail})
	assert.Equal(t, CodeInvalidTarget, res.Code)

	res = e.Resolve(a.ID, "req-00000002", Move{Dest: city.SlugCentral})
	assert.Equal(t, CodeRequirement, res.Code)

	assert.Equal(t, agents.StatusIdle, a.Status)
}

func TestBuyInsufficientFundsLeavesNoTrace(t *testing.T) {
	e, w := testEngine(t)
	a := e.Register("Frankie")
	zone := w.Map.Claimable()[0]
	a.Zone = zone
	a.Cash = 100

	b := economy.NewBusiness("biz-1", "someone-else", zone, "Corner Shop")
	b.AddStock("bread", 5, 150)
	w.Businesses[b.ID] = b

	eventsBefore := len(e.RecentEvents(0))

	res := e.Resolve(a.ID, "req-00000001", Buy{BusinessID: "biz-1", ItemID: "bread", Qty: 1})
	assert.False(t, res.OK)
	assert.Equal(t, CodeInsufficientFunds, res.Code)

	assert.Equal(t, int64(100), a.Cash)
	assert.Equal(t, 5, b.Stock["bread"].Qty)
	assert.Equal(t, 0, a.Inventory["bread"])
	assert.Equal(t, eventsBefore, len(e.RecentEvents(0)), "rejection must not emit events")

	// The rejection still replays idempotently.
	again := e.Resolve(a.ID, "req-00000001", Buy{BusinessID: "biz-1", ItemID: "bread", Qty: 1})
	assert.Equal(t, res, again)
}

func TestBuySellRoundTrip(t *testing.T) {
	e, w := testEngine(t)
	a := e.Register("Della")
	zone := w.Map.Claimable()[0]
	a.Zone = zone

	b := economy.NewBusiness("biz-1", "someone-else", zone, "Corner Shop")
	b.Cash = 500
	b.AddStock("bread", 10, 8)
	w.Businesses[b.ID] = b

	res := e.Resolve(a.ID, "req-00000001", Buy{BusinessID: "biz-1", ItemID: "bread", Qty: 3})
	require.True(t, res.OK)
	assert.Equal(t, 3, a.Inventory["bread"])
	assert.Equal(t, e.Rules().StartingCash-24, a.Cash)
	assert.Equal(t, int64(24), b.Cash-500)

	res = e.Resolve(a.ID, "req-00000002", Sell{BusinessID: "biz-1", ItemID: "bread", Qty: 3})
	require.True(t, res.OK)
	assert.Equal(t, 0, a.Inventory["bread"])
	assert.Equal(t, 10, b.Stock["bread"].Qty)
}

func TestGiftConservesCash(t *testing.T) {
	e, w := testEngine(t)
	a := e.Register("Moe")
	b := e.Register("Teddy")

	total := func() int64 {
		var sum int64
		for _, ag := range w.Agents {
			sum += ag.Cash
		}
		return sum
	}
	before := total()

	res := e.Resolve(a.ID, "req-00000001", Gift{TargetID: b.ID, Amount: 200})
	require.True(t, res.OK)
	assert.Equal(t, before, total())
	assert.Equal(t, e.Rules().StartingCash-200, a.Cash)
	assert.Equal(t, e.Rules().StartingCash+200, b.Cash)
}

func TestCrimeOutcomeIsDeterministic(t *testing.T) {
	run := func() (Result, int64) {
		r := rules.Default()
		w := NewWorld("det-seed", r, 8)
		e := NewEngine(w, r, nil)
		w.Tick = 5

		a := agents.New("agent-fixed", "Test", w.Map.Claimable()[0], 500, 0)
		w.Agents[a.ID] = a

		res := e.Resolve(a.ID, "req-00000001", Crime{Category: "THEFT"})
		return res, a.Cash
	}

	res1, cash1 := run()
	res2, cash2 := run()
	require.True(t, res1.OK)
	assert.Equal(t, res1.Data["success"], res2.Data["success"])
	assert.Equal(t, cash1, cash2)
}

func TestRobTransfersWithinBounds(t *testing.T) {
	r := rules.Default()
	r.RobBaseChance = 1.0 // guaranteed hit for the transfer check
	r.CrimeChanceCap = 1.0
	w := NewWorld("rob-seed", r, 8)
	e := NewEngine(w, r, nil)

	zone := w.Map.Claimable()[0]
	robber := agents.New("agent-a", "Robber", zone, 500, 0)
	victim := agents.New("agent-b", "Victim", zone, 1000, 0)
	w.Agents[robber.ID] = robber
	w.Agents[victim.ID] = victim

	res := e.Resolve(robber.ID, "req-00000001", Rob{TargetID: victim.ID})
	require.True(t, res.OK)
	require.Equal(t, true, res.Data["success"])

	take := res.Data["take"].(int64)
	maxTake := int64(float64(1000) * r.RobMaxTakeRate)
	assert.GreaterOrEqual(t, take, int64(1))
	assert.LessOrEqual(t, take, maxTake)
	assert.Equal(t, int64(500)+take, robber.Cash)
	assert.Equal(t, int64(1000)-take, victim.Cash)
}

func TestStatusGateRejectsJailed(t *testing.T) {
	e, w := testEngine(t)
	a := e.Register("Gus")
	a.Status = agents.StatusJailed
	a.BusyUntil = w.Tick + 10
	a.Zone = city.SlugJail

	res := e.Resolve(a.ID, "req-00000001", Rest{})
	assert.Equal(t, CodeAgentJailed, res.Code)
}

func TestGangLifecycle(t *testing.T) {
	e, w := testEngine(t)
	leader := e.Register("Boss")
	recruit := e.Register("Recruit")
	leader.Cash = 5000

	res := e.Resolve(leader.ID, "req-00000001", CreateGang{Name: "The Rooks"})
	require.True(t, res.OK)
	gangID := res.Data["gang_id"].(string)
	g := w.Gangs[gangID]
	require.NotNil(t, g)
	assert.Equal(t, e.Rules().GangCreateCost, g.Treasury)

	// Joining without an invite fails.
	res = e.Resolve(recruit.ID, "req-00000002", JoinGang{GangID: gangID})
	assert.Equal(t, CodeUnauthorized, res.Code)

	res = e.Resolve(leader.ID, "req-00000003", InviteToGang{TargetID: recruit.ID})
	require.True(t, res.OK)
	res = e.Resolve(recruit.ID, "req-00000004", JoinGang{GangID: gangID})
	require.True(t, res.OK)
	assert.Len(t, g.Members, 2)

	// Leader leaves; leadership passes.
	res = e.Resolve(leader.ID, "req-00000005", LeaveGang{})
	require.True(t, res.OK)
	assert.Equal(t, recruit.ID, g.LeaderID)

	// Last member out dissolves the gang and collects the treasury.
	cashBefore := recruit.Cash
	res = e.Resolve(recruit.ID, "req-00000006", LeaveGang{})
	require.True(t, res.OK)
	assert.Equal(t, true, res.Data["dissolved"])
	assert.Nil(t, w.Gangs[gangID])
	assert.Equal(t, cashBefore+e.Rules().GangCreateCost, recruit.Cash)
}

func TestFriendRequestAcceptFlow(t *testing.T) {
	e, w := testEngine(t)
	a := e.Register("Ines")
	b := e.Register("Cash")

	res := e.Resolve(a.ID, "req-00000001", FriendRequest{TargetID: b.ID})
	require.True(t, res.OK)

	// The requester cannot accept their own request.
	res = e.Resolve(a.ID, "req-00000002", AcceptFriend{TargetID: b.ID})
	assert.Equal(t, CodeUnauthorized, res.Code)

	res = e.Resolve(b.ID, "req-00000003", AcceptFriend{TargetID: a.ID})
	require.True(t, res.OK)
	assert.Equal(t, 1, a.FriendCount)
	assert.Equal(t, 1, b.FriendCount)

	f := w.Friendships[friendshipKey(a.ID, b.ID)]
	require.NotNil(t, f)
	assert.False(t, f.Pending)
	assert.Equal(t, e.Rules().FriendInitial, f.Strength)
}

func TestCoopRecruitment(t *testing.T) {
	e, w := testEngine(t)
	zone := w.Map.Claimable()[0]

	initiator := e.Register("Planner")
	joiner := e.Register("Helper")
	initiator.Zone = zone
	joiner.Zone = zone

	res := e.Resolve(initiator.ID, "req-00000001", InitiateCoop{Category: "HEIST", MinCrew: 2})
	require.True(t, res.OK)
	coopID := res.Data["coop_id"].(string)
	assert.Equal(t, CoopRecruiting, w.Coops[coopID].Status)

	// One agent, one active crew.
	res = e.Resolve(initiator.ID, "req-00000002", InitiateCoop{Category: "THEFT", MinCrew: 2})
	assert.Equal(t, CodeRequirement, res.Code)

	res = e.Resolve(joiner.ID, "req-00000003", JoinCoop{CoopID: coopID})
	require.True(t, res.OK)
	assert.Equal(t, CoopReady, w.Coops[coopID].Status)
}

func TestBountyEscrow(t *testing.T) {
	e, w := testEngine(t)
	placer := e.Register("Vengeful")
	target := e.Register("Marked")
	placer.Cash = 1000

	res := e.Resolve(placer.ID, "req-00000001", PlaceBounty{TargetID: target.ID, Amount: 400})
	require.True(t, res.OK)
	assert.Equal(t, int64(600), placer.Cash, "escrow leaves the placer at placement")

	bountyID := res.Data["bounty_id"].(string)
	require.NotNil(t, w.Bounties[bountyID])
	assert.Equal(t, int64(400), w.Bounties[bountyID].Amount)

	// Below the minimum is rejected.
	res = e.Resolve(placer.ID, "req-00000002", PlaceBounty{TargetID: target.ID, Amount: 10})
	assert.Equal(t, CodeRequirement, res.Code)
}

func TestAllowedCommandsReflectState(t *testing.T) {
	e, w := testEngine(t)
	a := e.Register("Nadia")

	kinds := AllowedCommands(w, a)
	assert.Contains(t, kinds, "MOVE")
	assert.Contains(t, kinds, "JOIN_GANG")
	assert.NotContains(t, kinds, "PAY_TAX")
	assert.NotContains(t, kinds, "LEAVE_GANG")

	a.Status = agents.StatusJailed
	assert.Empty(t, AllowedCommands(w, a))
}

func TestRestoreIdempotencyReplays(t *testing.T) {
	e, _ := testEngine(t)
	a := e.Register("Roxie")

	e.RestoreIdempotency([]IdempotencyRecord{{
		AgentID:   a.ID,
		RequestID: "req-restored",
		Result:    Result{OK: true, Data: map[string]any{"dest": "d01"}},
	}})

	res := e.Resolve(a.ID, "req-restored", Rest{})
	assert.True(t, res.OK)
	assert.Equal(t, "d01", res.Data["dest"])
}

func TestRequestKeysAreScopedPerAgent(t *testing.T) {
	e, w := testEngine(t)
	a := e.Register("One")
	b := e.Register("Two")
	dest := w.Map.Claimable()[0]

	res := e.Resolve(a.ID, "req-shared00", Move{Dest: dest})
	require.True(t, res.OK)

	// Same request ID from a different agent is a fresh request.
	res = e.Resolve(b.ID, "req-shared00", Move{Dest: dest})
	assert.True(t, res.OK)
	assert.Equal(t, 2, countEvents(e, EvMoveStarted))
}

func TestEventHistoryRing(t *testing.T) {
	e, w := testEngine(t)
	a := e.Register("Penny")
	dest := w.Map.Claimable()[0]

	for i := 0; i < recentEventCap+50; i++ {
		// Alternate moves so each one is valid.
		target := dest
		if a.Zone == dest {
			target = city.SlugCentral
		}
		e.Resolve(a.ID, fmt.Sprintf("req-ring-%04d", i), Move{Dest: target})
		a.Status = agents.StatusIdle
		a.Zone = target
		a.Pending = nil
	}

	assert.Len(t, e.RecentEvents(0), recentEventCap)
	assert.Len(t, e.RecentEvents(10), 10)
}
