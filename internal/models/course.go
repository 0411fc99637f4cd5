package models

// Course is a catalog entry. Prices are in minor currency units.
type Course struct {
	ID                 string `db:"id" json:"id"`
	Number             string `db:"num" json:"num"`
	Title              string `db:"title" json:"title"`
	PriceRegularCents  int64  `db:"price_regular_cents" json:"price_regular_cents"`
	PriceDiscountCents *int64 `db:"price_discount_cents" json:"price_discount_cents,omitempty"`
	Active             bool   `db:"active" json:"active"`
	SortOrder          int    `db:"sort_order" json:"sort_order"`
}

// ListPriceCents returns the discounted list price when present, else the regular price.
func (c Course) ListPriceCents() int64 {
	if c.PriceDiscountCents != nil && *c.PriceDiscountCents >= 0 {
		return *c.PriceDiscountCents
	}
	return c.PriceRegularCents
}

// DisplayName combines the course number and title.
func (c Course) DisplayName() string {
	switch {
	case c.Number == "":
		return c.Title
	case c.Title == "":
		return c.Number
	default:
		return c.Number + " - " + c.Title
	}
}
