// Package economy provides the item catalog and the business and property
// aggregates. Prices are integer cash units; the catalog's base values feed
// wealth assessment at tax time.
package economy

import "sort"

// Item is one tradeable good.
type Item struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	BaseValue int64  `json:"base_value"`
}

// Catalog is the fixed set of tradeable items, keyed by item ID.
var Catalog = map[string]Item{
	"bread":      {ID: "bread", Name: "Bread", BaseValue: 5},
	"coffee":     {ID: "coffee", Name: "Coffee", BaseValue: 8},
	"medkit":     {ID: "medkit", Name: "Medkit", BaseValue: 40},
	"phone":      {ID: "phone", Name: "Burner Phone", BaseValue: 60},
	"watch":      {ID: "watch", Name: "Gold Watch", BaseValue: 150},
	"lockpick":   {ID: "lockpick", Name: "Lockpick Set", BaseValue: 75},
	"crowbar":    {ID: "crowbar", Name: "Crowbar", BaseValue: 35},
	"suit":       {ID: "suit", Name: "Tailored Suit", BaseValue: 200},
	"painting":   {ID: "painting", Name: "Stolen Painting", BaseValue: 500},
	"spraypaint": {ID: "spraypaint", Name: "Spray Paint", BaseValue: 12},
}

// Inventory maps item ID to quantity. Zero-quantity entries are removed.
type Inventory map[string]int

// Add increases the quantity for an item.
func (inv Inventory) Add(itemID string, qty int) {
	if qty <= 0 {
		return
	}
	inv[itemID] += qty
}

// Remove decreases the quantity, deleting the entry at zero.
// Returns false without mutating if the inventory holds fewer than qty.
func (inv Inventory) Remove(itemID string, qty int) bool {
	if qty <= 0 || inv[itemID] < qty {
		return false
	}
	inv[itemID] -= qty
	if inv[itemID] == 0 {
		delete(inv, itemID)
	}
	return true
}

// Value prices the whole inventory at catalog base values.
// Unknown item IDs count as worthless rather than failing the assessment.
func (inv Inventory) Value() int64 {
	var total int64
	for id, qty := range inv {
		if item, ok := Catalog[id]; ok {
			total += item.BaseValue * int64(qty)
		}
	}
	return total
}

// ItemIDs returns the held item IDs sorted for deterministic iteration.
func (inv Inventory) ItemIDs() []string {
	ids := make([]string, 0, len(inv))
	for id := range inv {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns an independent copy.
func (inv Inventory) Clone() Inventory {
	out := make(Inventory, len(inv))
	for id, qty := range inv {
		out[id] = qty
	}
	return out
}
