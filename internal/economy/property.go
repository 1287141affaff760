package economy

// Property is a purchasable address in a district. An owned property can be
// rented out to one tenant at a time.
type Property struct {
	ID      string `json:"id"`
	Zone    string `json:"zone"`
	Name    string `json:"name"`
	Price   int64  `json:"price"`
	OwnerID string `json:"owner_id,omitempty"` // empty while city-owned
	Rent    int64  `json:"rent"`
}

// Residency is a tenant's hold on a property. Rent falls due every rent
// interval; once overdue past the grace window the tick processor evicts.
type Residency struct {
	PropertyID  string `json:"property_id"`
	TenantID    string `json:"tenant_id"`
	Rent        int64  `json:"rent"`
	NextDueTick uint64 `json:"next_due_tick"`
	OverdueTick uint64 `json:"overdue_tick,omitempty"` // tick rent first went unpaid, 0 = current
}

// AssessedValue is the property's contribution to its owner's taxable
// wealth.
func (p *Property) AssessedValue() int64 {
	return p.Price
}
