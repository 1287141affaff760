package engine

import (
	"time"

	"github.com/google/uuid"
)

// Event types. Events are append-only and form the canonical history.
const (
	EvMoveStarted  = "MOVE_STARTED"
	EvMoveDone     = "MOVE_COMPLETED"
	EvJobTaken     = "JOB_TAKEN"
	EvJobDone      = "JOB_COMPLETED"
	EvHealStarted  = "HEAL_STARTED"
	EvHealDone     = "HEAL_COMPLETED"
	EvRestStarted  = "REST_STARTED"
	EvRestDone     = "REST_COMPLETED"
	EvPurchase     = "PURCHASE"
	EvSale         = "SALE"
	EvGift         = "GIFT"
	EvRobSuccess   = "ROB_SUCCESS"
	EvRobFailed    = "ROB_FAILED"
	EvCrimeSuccess = "CRIME_SUCCESS"
	EvCrimeFailed  = "CRIME_FAILED"
	EvHospitalized = "AGENT_HOSPITALIZED"
	EvDischarged   = "HOSPITAL_DISCHARGED"
	EvArrested     = "AGENT_ARRESTED"
	EvJailRelease  = "JAIL_RELEASED"
	EvTaxAssessed  = "TAX_ASSESSED"
	EvTaxPaid      = "TAX_PAID"
	EvTaxEvasion   = "TAX_EVASION"
	EvBizStarted   = "BUSINESS_STARTED"
	EvBizStocked   = "BUSINESS_STOCKED"
	EvBizPriced    = "BUSINESS_PRICED"
	EvBizOpened    = "BUSINESS_OPENED"
	EvBizClosed    = "BUSINESS_CLOSED"
	EvGangCreated  = "GANG_CREATED"
	EvGangInvite   = "GANG_INVITED"
	EvGangJoined   = "GANG_JOINED"
	EvGangLeft     = "GANG_LEFT"
	EvTerrClaimed  = "TERRITORY_CLAIMED"
	EvTerrIncome   = "TERRITORY_INCOME"
	EvTerrLost     = "TERRITORY_LOST"
	EvFriendAsk    = "FRIEND_REQUESTED"
	EvFriendOK     = "FRIEND_ACCEPTED"
	EvFriendEnd    = "FRIEND_ENDED"
	EvCoopStarted  = "COOP_INITIATED"
	EvCoopJoined   = "COOP_JOINED"
	EvCoopCancel   = "COOP_CANCELLED"
	EvCoopSuccess  = "COOP_SUCCESS"
	EvCoopFailed   = "COOP_FAILED"
	EvPropBought   = "PROPERTY_BOUGHT"
	EvRented       = "RESIDENCY_STARTED"
	EvRentPaid     = "RENT_PAID"
	EvRentOverdue  = "RENT_OVERDUE"
	EvEvicted      = "EVICTED"
	EvBountySet    = "BOUNTY_PLACED"
	EvBountyWon    = "BOUNTY_CLAIMED"
	EvBountyMiss   = "BOUNTY_MISSED"
	EvBountyEnd    = "BOUNTY_EXPIRED"
	EvDisguiseOn   = "DISGUISE_PURCHASED"
	EvDisguiseOff  = "DISGUISE_EXPIRED"
	EvRegistered   = "AGENT_REGISTERED"
	EvFine         = "FINE"
	EvTick         = "TICK"
)

// Event is one append-only audit log entry.
type Event struct {
	ID        string         `json:"id" db:"id"`
	Tick      uint64         `json:"tick" db:"tick"`
	Timestamp time.Time      `json:"timestamp" db:"timestamp"`
	Type      string         `json:"type" db:"type"`
	AgentID   string         `json:"agent_id,omitempty" db:"agent_id"`
	ZoneID    string         `json:"zone_id,omitempty" db:"zone_id"`
	EntityID  string         `json:"entity_id,omitempty" db:"entity_id"`
	Payload   map[string]any `json:"payload,omitempty"`
	RequestID string         `json:"request_id,omitempty" db:"request_id"`
}

func newEvent(tick uint64, evType, agentID, zoneID, entityID string, payload map[string]any) Event {
	return Event{
		ID:        uuid.NewString(),
		Tick:      tick,
		Timestamp: time.Now().UTC(),
		Type:      evType,
		AgentID:   agentID,
		ZoneID:    zoneID,
		EntityID:  entityID,
		Payload:   payload,
	}
}
