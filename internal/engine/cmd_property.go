package engine

import (
	"github.com/talgya/blockrow/internal/agents"
	"github.com/talgya/blockrow/internal/economy"
)

// Property handlers: buy, rent, evict. Rent collection itself runs in the
// tick processor.

func (e *Engine) handleBuyProperty(w *World, a *agents.Agent, c BuyProperty, t *txn) (map[string]any, *Rejection) {
	p, ok := w.Properties[c.PropertyID]
	if !ok {
		return nil, reject(CodeInvalidTarget, "no such property: %s", c.PropertyID)
	}
	if p.Zone != a.Zone {
		return nil, reject(CodeWrongZone, "property is in %s, agent is in %s", p.Zone, a.Zone)
	}
	if p.OwnerID == a.ID {
		return nil, reject(CodeRequirement, "agent already owns this property")
	}
	if a.Cash < p.Price {
		return nil, reject(CodeInsufficientFunds, "property costs %d, agent has %d", p.Price, a.Cash)
	}

	ref := t.emit(EvPropBought, a.ID, a.Zone, p.ID, map[string]any{"price": p.Price})
	if prevOwner := w.Agents[p.OwnerID]; prevOwner != nil {
		t.transfer(a, prevOwner, p.Price, "property sale", ref)
	} else {
		// City-owned: the price leaves circulation.
		t.debit(a, p.Price, "property purchase", ref)
	}
	p.OwnerID = a.ID

	// An owner living elsewhere keeps any tenant in place.
	return map[string]any{"property_id": p.ID}, nil
}

func (e *Engine) handleRentProperty(w *World, a *agents.Agent, c RentProperty, t *txn) (map[string]any, *Rejection) {
	p, ok := w.Properties[c.PropertyID]
	if !ok {
		return nil, reject(CodeInvalidTarget, "no such property: %s", c.PropertyID)
	}
	if p.Zone != a.Zone {
		return nil, reject(CodeWrongZone, "property is in %s, agent is in %s", p.Zone, a.Zone)
	}
	if p.OwnerID == a.ID {
		return nil, reject(CodeRequirement, "owners do not rent from themselves")
	}
	if _, occupied := w.Residencies[p.ID]; occupied {
		return nil, reject(CodeRequirement, "property already has a tenant")
	}
	if a.HomeProperty != "" {
		return nil, reject(CodeRequirement, "agent already has a residence")
	}
	if a.Cash < p.Rent {
		return nil, reject(CodeInsufficientFunds, "first rent is %d, agent has %d", p.Rent, a.Cash)
	}

	w.Residencies[p.ID] = &economy.Residency{
		PropertyID:  p.ID,
		TenantID:    a.ID,
		Rent:        p.Rent,
		NextDueTick: w.Tick + e.rules.RentIntervalTicks,
	}
	a.HomeProperty = p.ID

	// First rent up front.
	ref := t.emit(EvRented, a.ID, a.Zone, p.ID, map[string]any{"rent": p.Rent})
	if owner := w.Agents[p.OwnerID]; owner != nil {
		t.transfer(a, owner, p.Rent, "rent", ref)
	} else {
		t.debit(a, p.Rent, "rent", ref)
	}

	return map[string]any{"property_id": p.ID, "rent": p.Rent}, nil
}

func (e *Engine) handleEvictTenant(w *World, a *agents.Agent, c EvictTenant, t *txn) (map[string]any, *Rejection) {
	p, ok := w.Properties[c.PropertyID]
	if !ok {
		return nil, reject(CodeInvalidTarget, "no such property: %s", c.PropertyID)
	}
	if p.OwnerID != a.ID {
		return nil, reject(CodeUnauthorized, "agent does not own this property")
	}
	res, occupied := w.Residencies[p.ID]
	if !occupied {
		return nil, reject(CodeRequirement, "property has no tenant")
	}

	delete(w.Residencies, p.ID)
	if tenant := w.Agents[res.TenantID]; tenant != nil && tenant.HomeProperty == p.ID {
		tenant.HomeProperty = ""
	}

	t.emit(EvEvicted, a.ID, p.Zone, p.ID, map[string]any{
		"tenant": res.TenantID, "reason": "owner eviction",
	})
	return map[string]any{"tenant": res.TenantID}, nil
}
