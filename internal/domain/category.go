package domain

import "github.com/shopspring/decimal"

// Category is a priced ticket tier of an event with a fixed pool of tickets.
type Category struct {
	ID                string
	EventID           string
	Name              string
	Price             decimal.Decimal
	InitialQuantity   int
	RemainingQuantity int
	AtomicTemplateID  *int64
}

// IsFree reports whether buying from the category needs no token transfer.
func (c Category) IsFree() bool {
	return !c.Price.IsPositive()
}
