package domain

// Category groups a cost basis (materials) with a payout set (products).
// Name is unique among categories at creation time.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Material is a batch of Count interchangeable units, each costing Price.
// Belongs to exactly one category.
type Material struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"` // > 0, enforced at entry
	Count int     `json:"count"` // >= 1, enforced at entry
}

// Cost returns the total cost of the batch (Price × Count).
func (m Material) Cost() float64 {
	return m.Price * float64(m.Count)
}

// Product is one possible payout. Every product in a category is equally
// likely when that category is drawn; price does not weight the draw.
type Product struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"` // > 0, enforced at entry
}
