package engine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/blockrow/internal/agents"
	"github.com/talgya/blockrow/internal/city"
	"github.com/talgya/blockrow/internal/rules"
)

// Command is the closed union of agent commands. Each variant carries its
// own typed argument struct; the resolver dispatches with an exhaustive
// type switch.
type Command interface {
	// Kind is the wire name of the command.
	Kind() string
}

// Delayed commands: resolved by the tick processor's busy-resolution pass.
type (
	Move    struct{ Dest string }
	TakeJob struct{ JobID string }
	Heal    struct{}
	Rest    struct{}
)

// Instantaneous commands: fully resolved within the call.
type (
	Buy           struct {
		BusinessID string
		ItemID     string
		Qty        int
	}
	Sell struct {
		BusinessID string
		ItemID     string
		Qty        int
	}
	Gift struct {
		TargetID string
		Amount   int64
		ItemID   string
		Qty      int
	}
	Rob    struct{ TargetID string }
	Crime  struct{ Category string }
	PayTax struct{}

	StartBusiness struct{ Name string }
	StockBusiness struct {
		BusinessID string
		ItemID     string
		Qty        int
		Price      int64
	}
	SetPrices struct {
		BusinessID string
		ItemID     string
		Price      int64
	}
	OpenBusiness  struct{ BusinessID string }
	CloseBusiness struct{ BusinessID string }

	CreateGang     struct{ Name string }
	InviteToGang   struct{ TargetID string }
	JoinGang       struct{ GangID string }
	LeaveGang      struct{}
	ClaimTerritory struct{}

	FriendRequest struct{ TargetID string }
	AcceptFriend  struct{ TargetID string }

	InitiateCoop struct {
		Category string
		MinCrew  int
	}
	JoinCoop struct{ CoopID string }

	BuyProperty  struct{ PropertyID string }
	RentProperty struct{ PropertyID string }
	EvictTenant  struct{ PropertyID string }

	PlaceBounty struct {
		TargetID string
		Amount   int64
	}
	ClaimBounty struct{ BountyID string }
	BuyDisguise struct{}
)

func (Move) Kind() string           { return "MOVE" }
func (TakeJob) Kind() string        { return "TAKE_JOB" }
func (Heal) Kind() string           { return "HEAL" }
func (Rest) Kind() string           { return "REST" }
func (Buy) Kind() string            { return "BUY" }
func (Sell) Kind() string           { return "SELL" }
func (Gift) Kind() string           { return "GIFT" }
func (Rob) Kind() string            { return "ROB" }
func (Crime) Kind() string          { return "CRIME" }
func (PayTax) Kind() string         { return "PAY_TAX" }
func (StartBusiness) Kind() string  { return "START_BUSINESS" }
func (StockBusiness) Kind() string  { return "STOCK_BUSINESS" }
func (SetPrices) Kind() string      { return "SET_PRICES" }
func (OpenBusiness) Kind() string   { return "OPEN_BUSINESS" }
func (CloseBusiness) Kind() string  { return "CLOSE_BUSINESS" }
func (CreateGang) Kind() string     { return "CREATE_GANG" }
func (InviteToGang) Kind() string   { return "INVITE_TO_GANG" }
func (JoinGang) Kind() string       { return "JOIN_GANG" }
func (LeaveGang) Kind() string      { return "LEAVE_GANG" }
func (ClaimTerritory) Kind() string { return "CLAIM_TERRITORY" }
func (FriendRequest) Kind() string  { return "FRIEND_REQUEST" }
func (AcceptFriend) Kind() string   { return "ACCEPT_FRIEND" }
func (InitiateCoop) Kind() string   { return "INITIATE_COOP" }
func (JoinCoop) Kind() string       { return "JOIN_COOP" }
func (BuyProperty) Kind() string    { return "BUY_PROPERTY" }
func (RentProperty) Kind() string   { return "RENT_PROPERTY" }
func (EvictTenant) Kind() string    { return "EVICT_TENANT" }
func (PlaceBounty) Kind() string    { return "PLACE_BOUNTY" }
func (ClaimBounty) Kind() string    { return "CLAIM_BOUNTY" }
func (BuyDisguise) Kind() string    { return "BUY_DISGUISE" }

// Result is the stored outcome of a command. Rejections are results too:
// a retried request replays whatever happened the first time.
type Result struct {
	OK      bool           `json:"ok"`
	Code    string         `json:"code,omitempty"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

func failure(r *Rejection) Result {
	return Result{Code: r.Code, Message: r.Message}
}

// IdempotencyRecord is one row of the idempotency ledger.
type IdempotencyRecord struct {
	AgentID   string `json:"agent_id" db:"agent_id"`
	RequestID string `json:"request_id" db:"request_id"`
	Tick      uint64 `json:"tick" db:"tick"`
	Result    Result `json:"result"`
}

// Recorder journals command and tick effects durably. The engine treats it
// as best-effort after a bounded retry: the in-memory world is
// authoritative within a run, and every pass replays deterministically from
// (seed, tick) after a crash.
type Recorder interface {
	AppendCommand(events []Event, ledger []LedgerEntry, idem IdempotencyRecord) error
	AppendTick(w *World, events []Event, ledger []LedgerEntry) error
}

// txn accumulates the events and ledger rows of one command or pass. All
// writes for one command commit together: handlers validate first and only
// then mutate, so a rejection leaves both the world and the txn untouched.
type txn struct {
	tick   uint64
	events []Event
	ledger []LedgerEntry
}

// emit appends an event and returns its ID for ledger references.
func (t *txn) emit(evType, agentID, zoneID, entityID string, payload map[string]any) string {
	ev := newEvent(t.tick, evType, agentID, zoneID, entityID, payload)
	t.events = append(t.events, ev)
	return ev.ID
}

const recentEventCap = 1000

// Engine owns the world and serializes every mutation: commands, NPC
// decisions, and tick passes all run behind one lock, so the idempotency
// check and the execution it guards are a single critical section.
type Engine struct {
	mu    sync.Mutex
	world *World
	rules *rules.Rules
	rec   Recorder

	idem   map[string]Result
	recent []Event // ring of recent events for the query API
	sink   func([]Event)
}

// SetSink registers a listener for committed events. The listener runs
// under the engine lock and must not call back into the engine; hand off
// to a channel and return.
func (e *Engine) SetSink(fn func([]Event)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sink = fn
}

// NewEngine wraps an existing world. rec may be nil (tests, dry runs).
func NewEngine(w *World, r *rules.Rules, rec Recorder) *Engine {
	return &Engine{
		world: w,
		rules: r,
		rec:   rec,
		idem:  make(map[string]Result),
	}
}

// InitWorld installs a freshly generated world when the engine has none.
// Idempotent: if a world already exists it is reported unchanged.
func (e *Engine) InitWorld(seed string, districts int) (tick uint64, created bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.world != nil {
		return e.world.Tick, false
	}
	e.world = NewWorld(seed, e.rules, districts)
	slog.Info("world initialized", "seed", seed, "districts", districts)
	return e.world.Tick, true
}

// RestoreIdempotency reloads previously journaled idempotency rows, so
// retries of pre-restart commands still replay their original results.
func (e *Engine) RestoreIdempotency(records []IdempotencyRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, rec := range records {
		e.idem[rec.AgentID+"|"+rec.RequestID] = rec.Result
	}
}

// View runs fn with read access to the world under the engine lock.
func (e *Engine) View(fn func(w *World)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.world)
}

// Rules returns the rule tables (immutable after startup).
func (e *Engine) Rules() *rules.Rules { return e.rules }

// RecentEvents copies up to limit events from the in-memory ring, newest
// last.
func (e *Engine) RecentEvents(limit int) []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	if limit <= 0 || limit > len(e.recent) {
		limit = len(e.recent)
	}
	out := make([]Event, limit)
	copy(out, e.recent[len(e.recent)-limit:])
	return out
}

// Register creates a new idle agent in the central district and returns it.
// Registration is not a Command: it has no issuing agent yet.
func (e *Engine) Register(name string) *agents.Agent {
	return e.register(name, false)
}

// RegisterNPC registers a computer-controlled agent.
func (e *Engine) RegisterNPC(name string) *agents.Agent {
	return e.register(name, true)
}

func (e *Engine) register(name string, npc bool) *agents.Agent {
	e.mu.Lock()
	defer e.mu.Unlock()

	w := e.world
	a := agents.New(uuid.NewString(), name, city.SlugCentral, e.rules.StartingCash, w.Tick)
	a.TaxDueTick = w.Tick + e.rules.TaxIntervalTicks
	a.NPC = npc
	w.Agents[a.ID] = a

	t := &txn{tick: w.Tick}
	t.emit(EvRegistered, a.ID, a.Zone, "", map[string]any{"name": name, "npc": npc})
	e.commitTxn(t)

	slog.Info("agent registered", "agent", a.ID, "name", name, "npc", npc)
	return a
}

// Resolve validates and executes one command for one agent. Exactly-once:
// the idempotency ledger is consulted and written inside the same critical
// section as execution, so concurrent duplicates observe the first result.
func (e *Engine) Resolve(agentID, requestID string, cmd Command) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	w := e.world
	if w == nil {
		return Result{Code: CodeNotInitialized, Message: "world not initialized"}
	}

	key := agentID + "|" + requestID
	if prev, ok := e.idem[key]; ok {
		return prev
	}

	if w.Paused {
		// Not recorded: the same request may retry after resume.
		return Result{Code: CodeWorldPaused, Message: "world is paused"}
	}

	a := w.Agents[agentID]
	if a == nil {
		// Not recorded: an unknown agent has no ledger to pollute.
		return Result{Code: CodeUnauthorized, Message: "unknown agent"}
	}

	res := e.execute(w, a, cmd)

	e.idem[key] = res
	e.persistIdem(IdempotencyRecord{AgentID: agentID, RequestID: requestID, Tick: w.Tick, Result: res})

	return res
}

// execute applies the status gate and dispatches. On success the txn is
// committed (recent ring + durable journal); on rejection nothing was
// mutated and nothing is journaled except the idempotency row.
func (e *Engine) execute(w *World, a *agents.Agent, cmd Command) Result {
	switch a.Status {
	case agents.StatusBusy:
		return failure(rejectBusy(a.BusyUntil))
	case agents.StatusJailed:
		return failure(reject(CodeAgentJailed, "agent is jailed until tick %d", a.BusyUntil))
	case agents.StatusHospitalized:
		return failure(reject(CodeAgentHospitalized, "agent is hospitalized until tick %d", a.BusyUntil))
	}

	t := &txn{tick: w.Tick}
	data, rej := e.dispatch(w, a, cmd, t)
	if rej != nil {
		return failure(rej)
	}

	e.commitTxn(t)
	return Result{OK: true, Data: data}
}

// dispatch routes to the per-family handlers. The type switch is the
// closed command enum: an unknown variant is a caller bug.
func (e *Engine) dispatch(w *World, a *agents.Agent, cmd Command, t *txn) (map[string]any, *Rejection) {
	switch c := cmd.(type) {
	case Move:
		return e.handleMove(w, a, c, t)
	case TakeJob:
		return e.handleTakeJob(w, a, c, t)
	case Heal:
		return e.handleHeal(w, a, t)
	case Rest:
		return e.handleRest(w, a, t)
	case Buy:
		return e.handleBuy(w, a, c, t)
	case Sell:
		return e.handleSell(w, a, c, t)
	case Gift:
		return e.handleGift(w, a, c, t)
	case Rob:
		return e.handleRob(w, a, c, t)
	case Crime:
		return e.handleCrime(w, a, c, t)
	case PayTax:
		return e.handlePayTax(w, a, t)
	case StartBusiness:
		return e.handleStartBusiness(w, a, c, t)
	case StockBusiness:
		return e.handleStockBusiness(w, a, c, t)
	case SetPrices:
		return e.handleSetPrices(w, a, c, t)
	case OpenBusiness:
		return e.handleOpenBusiness(w, a, c, t)
	case CloseBusiness:
		return e.handleCloseBusiness(w, a, c, t)
	case CreateGang:
		return e.handleCreateGang(w, a, c, t)
	case InviteToGang:
		return e.handleInviteToGang(w, a, c, t)
	case JoinGang:
		return e.handleJoinGang(w, a, c, t)
	case LeaveGang:
		return e.handleLeaveGang(w, a, t)
	case ClaimTerritory:
		return e.handleClaimTerritory(w, a, t)
	case FriendRequest:
		return e.handleFriendRequest(w, a, c, t)
	case AcceptFriend:
		return e.handleAcceptFriend(w, a, c, t)
	case InitiateCoop:
		return e.handleInitiateCoop(w, a, c, t)
	case JoinCoop:
		return e.handleJoinCoop(w, a, c, t)
	case BuyProperty:
		return e.handleBuyProperty(w, a, c, t)
	case RentProperty:
		return e.handleRentProperty(w, a, c, t)
	case EvictTenant:
		return e.handleEvictTenant(w, a, c, t)
	case PlaceBounty:
		return e.handlePlaceBounty(w, a, c, t)
	case ClaimBounty:
		return e.handleClaimBounty(w, a, c, t)
	case BuyDisguise:
		return e.handleBuyDisguise(w, a, t)
	default:
		return nil, reject(CodeRequirement, "unknown command %T", cmd)
	}
}

// commitTxn publishes a successful txn: recent ring, event sink, then
// durable journal with bounded retry.
func (e *Engine) commitTxn(t *txn) {
	e.recent = append(e.recent, t.events...)
	if len(e.recent) > recentEventCap {
		e.recent = e.recent[len(e.recent)-recentEventCap:]
	}
	if e.sink != nil && len(t.events) > 0 {
		e.sink(t.events)
	}
	if e.rec == nil || (len(t.events) == 0 && len(t.ledger) == 0) {
		return
	}
	err := withRetry(func() error {
		return e.rec.AppendCommand(t.events, t.ledger, IdempotencyRecord{})
	})
	if err != nil {
		slog.Error("command journal append failed", "error", err, "events", len(t.events))
	}
}

func (e *Engine) persistIdem(rec IdempotencyRecord) {
	if e.rec == nil {
		return
	}
	err := withRetry(func() error {
		return e.rec.AppendCommand(nil, nil, rec)
	})
	if err != nil {
		slog.Error("idempotency journal append failed", "error", err, "agent", rec.AgentID)
	}
}

// withRetry runs fn up to three times with linear backoff. SQLite can
// report busy under WAL contention; anything that survives all attempts is
// surfaced to the caller as fatal.
func withRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		time.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
	}
	return err
}

// AllowedCommands lists the command kinds an idle agent may issue right
// now. Non-idle agents get an empty list.
func AllowedCommands(w *World, a *agents.Agent) []string {
	if a.Status != agents.StatusIdle {
		return nil
	}
	kinds := []string{
		"MOVE", "HEAL", "REST", "BUY", "SELL", "GIFT", "ROB", "CRIME",
		"START_BUSINESS", "CREATE_GANG", "FRIEND_REQUEST", "ACCEPT_FRIEND",
		"INITIATE_COOP", "JOIN_COOP", "BUY_PROPERTY", "RENT_PROPERTY",
		"PLACE_BOUNTY", "CLAIM_BOUNTY", "BUY_DISGUISE",
	}
	if len(w.JobsInZone(a.Zone)) > 0 {
		kinds = append(kinds, "TAKE_JOB")
	}
	if a.TaxOwed > 0 {
		kinds = append(kinds, "PAY_TAX")
	}
	if a.GangID != "" {
		kinds = append(kinds, "INVITE_TO_GANG", "LEAVE_GANG", "CLAIM_TERRITORY")
	} else {
		kinds = append(kinds, "JOIN_GANG")
	}
	for _, b := range w.Businesses {
		if b.OwnerID == a.ID {
			kinds = append(kinds, "STOCK_BUSINESS", "SET_PRICES", "OPEN_BUSINESS", "CLOSE_BUSINESS")
			break
		}
	}
	for _, p := range w.Properties {
		if p.OwnerID == a.ID {
			kinds = append(kinds, "EVICT_TENANT")
			break
		}
	}
	return kinds
}
