package engine

import (
	"github.com/google/uuid"

	"github.com/talgya/blockrow/internal/agents"
	"github.com/talgya/blockrow/internal/economy"
)

// Trade and business handlers. Every cash movement goes through the txn
// credit/debit helpers so each transfer leg lands in the ledger with the
// post-transfer balance.

func (e *Engine) handleBuy(w *World, a *agents.Agent, c Buy, t *txn) (map[string]any, *Rejection) {
	b, ok := w.Businesses[c.BusinessID]
	if !ok {
		return nil, reject(CodeInvalidTarget, "no such business: %s", c.BusinessID)
	}
	if b.Zone != a.Zone {
		return nil, reject(CodeWrongZone, "business is in %s, agent is in %s", b.Zone, a.Zone)
	}
	if c.Qty <= 0 {
		return nil, reject(CodeRequirement, "quantity must be positive")
	}
	entry, stocked := b.Stock[c.ItemID]
	if !stocked || entry.Qty < c.Qty {
		return nil, reject(CodeInsufficientItems, "business has %d of %s", entry.Qty, c.ItemID)
	}
	total := entry.Price * int64(c.Qty)
	if a.Cash < total {
		return nil, reject(CodeInsufficientFunds, "costs %d, agent has %d", total, a.Cash)
	}
	if !b.Open {
		return nil, reject(CodeRequirement, "business is closed")
	}

	b.TakeStock(c.ItemID, c.Qty)
	a.Inventory.Add(c.ItemID, c.Qty)
	b.Cash += total
	b.TotalRevenue += total
	b.SalesCount++

	ref := t.emit(EvPurchase, a.ID, a.Zone, b.ID, map[string]any{
		"item": c.ItemID, "qty": c.Qty, "total": total,
	})
	t.debit(a, total, "purchase: "+c.ItemID, ref)

	return map[string]any{"item": c.ItemID, "qty": c.Qty, "paid": total}, nil
}

func (e *Engine) handleSell(w *World, a *agents.Agent, c Sell, t *txn) (map[string]any, *Rejection) {
	b, ok := w.Businesses[c.BusinessID]
	if !ok {
		return nil, reject(CodeInvalidTarget, "no such business: %s", c.BusinessID)
	}
	if b.Zone != a.Zone {
		return nil, reject(CodeWrongZone, "business is in %s, agent is in %s", b.Zone, a.Zone)
	}
	item, known := economy.Catalog[c.ItemID]
	if !known {
		return nil, reject(CodeInvalidTarget, "no such item: %s", c.ItemID)
	}
	if c.Qty <= 0 {
		return nil, reject(CodeRequirement, "quantity must be positive")
	}
	if a.Inventory[c.ItemID] < c.Qty {
		return nil, reject(CodeInsufficientItems, "agent has %d of %s", a.Inventory[c.ItemID], c.ItemID)
	}
	// Businesses buy at catalog base value; the margin is whatever markup
	// the owner lists at.
	total := item.BaseValue * int64(c.Qty)
	if b.Cash < total {
		return nil, reject(CodeInsufficientFunds, "business cannot cover %d", total)
	}
	if !b.Open {
		return nil, reject(CodeRequirement, "business is closed")
	}

	a.Inventory.Remove(c.ItemID, c.Qty)
	listPrice := item.BaseValue + item.BaseValue/4
	if prev, ok := b.Stock[c.ItemID]; ok && prev.Price > 0 {
		listPrice = prev.Price
	}
	b.AddStock(c.ItemID, c.Qty, listPrice)
	b.Cash -= total

	ref := t.emit(EvSale, a.ID, a.Zone, b.ID, map[string]any{
		"item": c.ItemID, "qty": c.Qty, "total": total,
	})
	t.credit(a, total, "sale: "+c.ItemID, ref)

	return map[string]any{"item": c.ItemID, "qty": c.Qty, "earned": total}, nil
}

func (e *Engine) handleGift(w *World, a *agents.Agent, c Gift, t *txn) (map[string]any, *Rejection) {
	target, ok := w.Agents[c.TargetID]
	if !ok {
		return nil, reject(CodeInvalidTarget, "no such agent: %s", c.TargetID)
	}
	if target.ID == a.ID {
		return nil, reject(CodeInvalidTarget, "cannot gift to self")
	}
	if target.Zone != a.Zone {
		return nil, reject(CodeWrongZone, "target is in %s, agent is in %s", target.Zone, a.Zone)
	}
	if c.Amount <= 0 && c.Qty <= 0 {
		return nil, reject(CodeRequirement, "nothing to give")
	}
	if c.Amount > 0 && a.Cash < c.Amount {
		return nil, reject(CodeInsufficientFunds, "agent has %d", a.Cash)
	}
	if c.Qty > 0 && a.Inventory[c.ItemID] < c.Qty {
		return nil, reject(CodeInsufficientItems, "agent has %d of %s", a.Inventory[c.ItemID], c.ItemID)
	}

	ref := t.emit(EvGift, a.ID, a.Zone, target.ID, map[string]any{
		"amount": c.Amount, "item": c.ItemID, "qty": c.Qty,
	})
	if c.Amount > 0 {
		t.transfer(a, target, c.Amount, "gift", ref)
	}
	if c.Qty > 0 {
		a.Inventory.Remove(c.ItemID, c.Qty)
		target.Inventory.Add(c.ItemID, c.Qty)
	}

	return map[string]any{"target": target.ID}, nil
}

func (e *Engine) handlePayTax(w *World, a *agents.Agent, t *txn) (map[string]any, *Rejection) {
	if a.TaxOwed <= 0 {
		return nil, reject(CodeRequirement, "no tax owed")
	}
	if a.Cash < a.TaxOwed {
		return nil, reject(CodeInsufficientFunds, "owes %d, has %d", a.TaxOwed, a.Cash)
	}

	owed := a.TaxOwed
	ref := t.emit(EvTaxPaid, a.ID, a.Zone, "", map[string]any{"amount": owed})
	t.debit(a, owed, "tax payment", ref)
	a.TaxOwed = 0
	a.TaxGraceEnd = 0
	a.TaxDueTick = w.Tick + e.rules.TaxIntervalTicks
	a.Stats.TaxesPaid++

	return map[string]any{"paid": owed, "next_assessment": a.TaxDueTick}, nil
}

func (e *Engine) handleStartBusiness(w *World, a *agents.Agent, c StartBusiness, t *txn) (map[string]any, *Rejection) {
	d := w.Map.Get(a.Zone)
	if d == nil || d.Civic {
		return nil, reject(CodeWrongZone, "cannot open a business in %s", a.Zone)
	}
	if c.Name == "" {
		return nil, reject(CodeRequirement, "business needs a name")
	}
	if a.Cash < e.rules.BusinessStartCost {
		return nil, reject(CodeInsufficientFunds, "startup costs %d, agent has %d", e.rules.BusinessStartCost, a.Cash)
	}

	b := economy.NewBusiness(uuid.NewString(), a.ID, a.Zone, c.Name)
	w.Businesses[b.ID] = b

	ref := t.emit(EvBizStarted, a.ID, a.Zone, b.ID, map[string]any{"name": c.Name})
	t.debit(a, e.rules.BusinessStartCost, "business license", ref)

	return map[string]any{"business_id": b.ID}, nil
}

func (e *Engine) ownedBusiness(w *World, a *agents.Agent, businessID string) (*economy.Business, *Rejection) {
	b, ok := w.Businesses[businessID]
	if !ok {
		return nil, reject(CodeInvalidTarget, "no such business: %s", businessID)
	}
	if b.OwnerID != a.ID {
		return nil, reject(CodeUnauthorized, "agent does not own this business")
	}
	return b, nil
}

func (e *Engine) handleStockBusiness(w *World, a *agents.Agent, c StockBusiness, t *txn) (map[string]any, *Rejection) {
	b, rej := e.ownedBusiness(w, a, c.BusinessID)
	if rej != nil {
		return nil, rej
	}
	if _, known := economy.Catalog[c.ItemID]; !known {
		return nil, reject(CodeInvalidTarget, "no such item: %s", c.ItemID)
	}
	if c.Qty <= 0 || c.Price <= 0 {
		return nil, reject(CodeRequirement, "quantity and price must be positive")
	}
	if a.Inventory[c.ItemID] < c.Qty {
		return nil, reject(CodeInsufficientItems, "agent has %d of %s", a.Inventory[c.ItemID], c.ItemID)
	}

	a.Inventory.Remove(c.ItemID, c.Qty)
	b.AddStock(c.ItemID, c.Qty, c.Price)

	t.emit(EvBizStocked, a.ID, a.Zone, b.ID, map[string]any{
		"item": c.ItemID, "qty": c.Qty, "price": c.Price,
	})
	return map[string]any{"item": c.ItemID, "qty": b.Stock[c.ItemID].Qty}, nil
}

func (e *Engine) handleSetPrices(w *World, a *agents.Agent, c SetPrices, t *txn) (map[string]any, *Rejection) {
	b, rej := e.ownedBusiness(w, a, c.BusinessID)
	if rej != nil {
		return nil, rej
	}
	entry, ok := b.Stock[c.ItemID]
	if !ok {
		return nil, reject(CodeInvalidTarget, "item %s is not stocked", c.ItemID)
	}
	if c.Price <= 0 {
		return nil, reject(CodeRequirement, "price must be positive")
	}

	entry.Price = c.Price
	b.Stock[c.ItemID] = entry

	t.emit(EvBizPriced, a.ID, a.Zone, b.ID, map[string]any{"item": c.ItemID, "price": c.Price})
	return map[string]any{"item": c.ItemID, "price": c.Price}, nil
}

func (e *Engine) handleOpenBusiness(w *World, a *agents.Agent, c OpenBusiness, t *txn) (map[string]any, *Rejection) {
	b, rej := e.ownedBusiness(w, a, c.BusinessID)
	if rej != nil {
		return nil, rej
	}
	if b.Open {
		return nil, reject(CodeRequirement, "business is already open")
	}
	b.Open = true
	t.emit(EvBizOpened, a.ID, a.Zone, b.ID, nil)
	return map[string]any{"open": true}, nil
}

func (e *Engine) handleCloseBusiness(w *World, a *agents.Agent, c CloseBusiness, t *txn) (map[string]any, *Rejection) {
	b, rej := e.ownedBusiness(w, a, c.BusinessID)
	if rej != nil {
		return nil, rej
	}
	if !b.Open {
		return nil, reject(CodeRequirement, "business is already closed")
	}
	b.Open = false
	t.emit(EvBizClosed, a.ID, a.Zone, b.ID, nil)
	return map[string]any{"open": false}, nil
}
