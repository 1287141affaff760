package api

import (
	"encoding/json"
	"fmt"

	"github.com/talgya/blockrow/internal/engine"
)

// CommandRequest is the wire form of one command submission. RequestID is
// the client's idempotency key: retries with the same key replay the
// original result.
type CommandRequest struct {
	AgentID   string          `json:"agent_id"`
	RequestID string          `json:"request_id"`
	Kind      string          `json:"type"`
	Args      json.RawMessage `json:"args,omitempty"`
}

// parseCommand decodes the args for one command kind into its typed
// variant. Unknown kinds and malformed args are client errors.
func parseCommand(kind string, args json.RawMessage) (engine.Command, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	decode := func(v any) error {
		if err := json.Unmarshal(args, v); err != nil {
			return fmt.Errorf("args for %s: %w", kind, err)
		}
		return nil
	}

	switch kind {
	case "MOVE":
		var a struct {
			Dest string `json:"dest"`
		}
		if err := decode(&a); err != nil {
			return nil, err
		}
		return engine.Move{Dest: a.Dest}, nil
	case "TAKE_JOB":
		var a struct {
			JobID string `json:"job_id"`
		}
		if err := decode(&a); err != nil {
			return nil, err
		}
		return engine.TakeJob{JobID: a.JobID}, nil
	case "HEAL":
		return engine.Heal{}, nil
	case "REST":
		return engine.Rest{}, nil
	case "PAY_TAX":
		return engine.PayTax{}, nil
	case "BUY":
		var a struct {
			BusinessID string `json:"business_id"`
			ItemID     string `json:"item_id"`
			Qty        int    `json:"qty"`
		}
		if err := decode(&a); err != nil {
			return nil, err
		}
		return engine.Buy{BusinessID: a.BusinessID, ItemID: a.ItemID, Qty: a.Qty}, nil
	case "SELL":
		var a struct {
			BusinessID string `json:"business_id"`
			ItemID     string `json:"item_id"`
			Qty        int    `json:"qty"`
		}
		if err := decode(&a); err != nil {
			return nil, err
		}
		return engine.Sell{BusinessID: a.BusinessID, ItemID: a.ItemID, Qty: a.Qty}, nil
	case "GIFT":
		var a struct {
			TargetID string `json:"target_id"`
			Amount   int64  `json:"amount"`
			ItemID   string `json:"item_id"`
			Qty      int    `json:"qty"`
		}
		if err := decode(&a); err != nil {
			return nil, err
		}
		return engine.Gift{TargetID: a.TargetID, Amount: a.Amount, ItemID: a.ItemID, Qty: a.Qty}, nil
	case "ROB":
		var a struct {
			TargetID string `json:"target_id"`
		}
		if err := decode(&a); err != nil {
			return nil, err
		}
		return engine.Rob{TargetID: a.TargetID}, nil
	case "CRIME":
		var a struct {
			Category string `json:"category"`
		}
		if err := decode(&a); err != nil {
			return nil, err
		}
		return engine.Crime{Category: a.Category}, nil
	case "START_BUSINESS":
		var a struct {
			Name string `json:"name"`
		}
		if err := decode(&a); err != nil {
			return nil, err
		}
		return engine.StartBusiness{Name: a.Name}, nil
	case "STOCK_BUSINESS":
		var a struct {
			BusinessID string `json:"business_id"`
			ItemID     string `json:"item_id"`
			Qty        int    `json:"qty"`
			Price      int64  `json:"price"`
		}
		if err := decode(&a); err != nil {
			return nil, err
		}
		return engine.StockBusiness{BusinessID: a.BusinessID, ItemID: a.ItemID, Qty: a.Qty, Price: a.Price}, nil
	case "SET_PRICES":
		var a struct {
			BusinessID string `json:"business_id"`
			ItemID     string `json:"item_id"`
			Price      int64  `json:"price"`
		}
		if err := decode(&a); err != nil {
			return nil, err
		}
		return engine.SetPrices{BusinessID: a.BusinessID, ItemID: a.ItemID, Price: a.Price}, nil
	case "OPEN_BUSINESS":
		var a struct {
			BusinessID string `json:"business_id"`
		}
		if err := decode(&a); err != nil {
			return nil, err
		}
		return engine.OpenBusiness{BusinessID: a.BusinessID}, nil
	case "CLOSE_BUSINESS":
		var a struct {
			BusinessID string `json:"business_id"`
		}
		if err := decode(&a); err != nil {
			return nil, err
		}
		return engine.CloseBusiness{BusinessID: a.BusinessID}, nil
	case "CREATE_GANG":
		var a struct {
			Name string `json:"name"`
		}
		if err := decode(&a); err != nil {
			return nil, err
		}
		return engine.CreateGang{Name: a.Name}, nil
	case "INVITE_TO_GANG":
		var a struct {
			TargetID string `json:"target_id"`
		}
		if err := decode(&a); err != nil {
			return nil, err
		}
		return engine.InviteToGang{TargetID: a.TargetID}, nil
	case "JOIN_GANG":
		var a struct {
			GangID string `json:"gang_id"`
		}
		if err := decode(&a); err != nil {
			return nil, err
		}
		return engine.JoinGang{GangID: a.GangID}, nil
	case "LEAVE_GANG":
		return engine.LeaveGang{}, nil
	case "CLAIM_TERRITORY":
		return engine.ClaimTerritory{}, nil
	case "FRIEND_REQUEST":
		var a struct {
			TargetID string `json:"target_id"`
		}
		if err := decode(&a); err != nil {
			return nil, err
		}
		return engine.FriendRequest{TargetID: a.TargetID}, nil
	case "ACCEPT_FRIEND":
		var a struct {
			TargetID string `json:"target_id"`
		}
		if err := decode(&a); err != nil {
			return nil, err
		}
		return engine.AcceptFriend{TargetID: a.TargetID}, nil
	case "INITIATE_COOP":
		var a struct {
			Category string `json:"category"`
			MinCrew  int    `json:"min_crew"`
		}
		if err := decode(&a); err != nil {
			return nil, err
		}
		return engine.InitiateCoop{Category: a.Category, MinCrew: a.MinCrew}, nil
	case "JOIN_COOP":
		var a struct {
			CoopID string `json:"coop_id"`
		}
		if err := decode(&a); err != nil {
			return nil, err
		}
		return engine.JoinCoop{CoopID: a.CoopID}, nil
	case "BUY_PROPERTY":
		var a struct {
			PropertyID string `json:"property_id"`
		}
		if err := decode(&a); err != nil {
			return nil, err
		}
		return engine.BuyProperty{PropertyID: a.PropertyID}, nil
	case "RENT_PROPERTY":
		var a struct {
			PropertyID string `json:"property_id"`
		}
		if err := decode(&a); err != nil {
			return nil, err
		}
		return engine.RentProperty{PropertyID: a.PropertyID}, nil
	case "EVICT_TENANT":
		var a struct {
			PropertyID string `json:"property_id"`
		}
		if err := decode(&a); err != nil {
			return nil, err
		}
		return engine.EvictTenant{PropertyID: a.PropertyID}, nil
	case "PLACE_BOUNTY":
		var a struct {
			TargetID string `json:"target_id"`
			Amount   int64  `json:"amount"`
		}
		if err := decode(&a); err != nil {
			return nil, err
		}
		return engine.PlaceBounty{TargetID: a.TargetID, Amount: a.Amount}, nil
	case "CLAIM_BOUNTY":
		var a struct {
			BountyID string `json:"bounty_id"`
		}
		if err := decode(&a); err != nil {
			return nil, err
		}
		return engine.ClaimBounty{BountyID: a.BountyID}, nil
	case "BUY_DISGUISE":
		return engine.BuyDisguise{}, nil
	default:
		return nil, fmt.Errorf("unknown command kind %q", kind)
	}
}
