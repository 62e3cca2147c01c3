package types

// FlavorSelection records one flavor chosen for a cart or order line.
type FlavorSelection struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// FlavorSelections is stored as a JSON column on cart and order items.
type FlavorSelections []FlavorSelection

// TotalQuantity sums the chosen flavor quantities.
func (f FlavorSelections) TotalQuantity() int {
	total := 0
	for _, sel := range f {
		total += sel.Quantity
	}
	return total
}

// Equal reports whether two selections pick the same flavors in the same
// quantities, ignoring order.
func (f FlavorSelections) Equal(other FlavorSelections) bool {
	if len(f) != len(other) {
		return false
	}
	counts := make(map[FlavorSelection]int, len(f))
	for _, sel := range f {
		counts[sel]++
	}
	for _, sel := range other {
		counts[sel]--
		if counts[sel] < 0 {
			return false
		}
	}
	return true
}

// Names returns the flavor names in selection order.
func (f FlavorSelections) Names() []string {
	names := make([]string, 0, len(f))
	for _, sel := range f {
		names = append(names, sel.Name)
	}
	return names
}
