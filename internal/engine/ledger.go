package engine

import "github.com/talgya/blockrow/internal/agents"

// Ledger entry types.
const (
	LedgerCredit = "credit"
	LedgerDebit  = "debit"
)

// LedgerEntry is one append-only cash movement leg. Balance is the agent's
// cash immediately after the entry applies, which makes the ledger
// self-auditing: replaying entries must reproduce every balance.
type LedgerEntry struct {
	Tick       uint64 `json:"tick" db:"tick"`
	AgentID    string `json:"agent_id" db:"agent_id"`
	Type       string `json:"type" db:"type"`
	Amount     int64  `json:"amount" db:"amount"`
	Reason     string `json:"reason" db:"reason"`
	Balance    int64  `json:"balance" db:"balance"`
	RefEventID string `json:"ref_event_id,omitempty" db:"ref_event_id"`
}

// credit adds cash to an agent and records the leg.
func (t *txn) credit(a *agents.Agent, amount int64, reason, refEventID string) {
	if amount <= 0 {
		return
	}
	a.Cash += amount
	t.ledger = append(t.ledger, LedgerEntry{
		Tick:       t.tick,
		AgentID:    a.ID,
		Type:       LedgerCredit,
		Amount:     amount,
		Reason:     reason,
		Balance:    a.Cash,
		RefEventID: refEventID,
	})
}

// debit removes cash from an agent and records the leg. Callers must have
// verified affordability; a negative balance here is a bug, not a rejection.
func (t *txn) debit(a *agents.Agent, amount int64, reason, refEventID string) {
	if amount <= 0 {
		return
	}
	a.Cash -= amount
	t.ledger = append(t.ledger, LedgerEntry{
		Tick:       t.tick,
		AgentID:    a.ID,
		Type:       LedgerDebit,
		Amount:     amount,
		Reason:     reason,
		Balance:    a.Cash,
		RefEventID: refEventID,
	})
}

// transfer moves cash between two agents as a debit/credit pair sharing one
// reference event, so the sum across both parties is conserved exactly.
func (t *txn) transfer(from, to *agents.Agent, amount int64, reason, refEventID string) {
	t.debit(from, amount, reason, refEventID)
	t.credit(to, amount, reason, refEventID)
}
