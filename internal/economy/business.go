package economy

// StockEntry is one item line in a business inventory: quantity on the
// shelf and the asking price per unit.
type StockEntry struct {
	Qty   int   `json:"qty"`
	Price int64 `json:"price"`
}

// Business is an agent-owned shop in one district.
type Business struct {
	ID      string                `json:"id"`
	OwnerID string                `json:"owner_id"`
	Zone    string                `json:"zone"`
	Name    string                `json:"name"`
	Cash    int64                 `json:"cash"`
	Open    bool                  `json:"open"`
	Stock   map[string]StockEntry `json:"stock"`

	// Revenue metrics.
	TotalRevenue int64 `json:"total_revenue"`
	SalesCount   int   `json:"sales_count"`
}

// NewBusiness creates an open shop with empty shelves.
func NewBusiness(id, ownerID, zone, name string) *Business {
	return &Business{
		ID:      id,
		OwnerID: ownerID,
		Zone:    zone,
		Name:    name,
		Open:    true,
		Stock:   make(map[string]StockEntry),
	}
}

// StockValue prices shelf stock at catalog base values for tax assessment.
func (b *Business) StockValue() int64 {
	var total int64
	for id, entry := range b.Stock {
		if item, ok := Catalog[id]; ok {
			total += item.BaseValue * int64(entry.Qty)
		}
	}
	return total
}

// TakeStock removes qty units of an item, dropping the line at zero.
// Returns false without mutating if the shelf holds fewer than qty.
func (b *Business) TakeStock(itemID string, qty int) bool {
	entry, ok := b.Stock[itemID]
	if !ok || qty <= 0 || entry.Qty < qty {
		return false
	}
	entry.Qty -= qty
	if entry.Qty == 0 {
		delete(b.Stock, itemID)
	} else {
		b.Stock[itemID] = entry
	}
	return true
}

// AddStock adds qty units at the given price, replacing any previous price.
func (b *Business) AddStock(itemID string, qty int, price int64) {
	entry := b.Stock[itemID]
	entry.Qty += qty
	entry.Price = price
	b.Stock[itemID] = entry
}
