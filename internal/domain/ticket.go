package domain

import "time"

// Ticket is one sellable inventory unit of a category.
type Ticket struct {
	ID            string
	CategoryID    string
	EventID       string
	IsSold        bool
	ReservedUntil *time.Time
	AssetID       *string
	OwnerAccount  *string
}

// AvailableAt reports whether the ticket can be handed to a new buyer at now.
// A hold that has passed is treated as released.
func (t Ticket) AvailableAt(now time.Time) bool {
	if t.IsSold {
		return false
	}
	return t.ReservedUntil == nil || t.ReservedUntil.Before(now)
}

// TicketMutableData is the complete mutable attribute set of a ticket asset.
// The ledger replaces mutable data wholesale, so updates always carry every
// field.
type TicketMutableData struct {
	Signed bool
	Used   uint8
}

// TemplateData is the immutable fingerprint of a ticket template.
type TemplateData struct {
	EventName        string `json:"name"`
	LocationName     string `json:"locationName"`
	OriginalDateTime string `json:"originalDateTime"`
	OriginalPrice    string `json:"originalPrice"`
	CategoryName     string `json:"categoryName"`
}

// Template is a template created on the ledger.
type Template struct {
	ID   int64        `json:"template_id"`
	Data TemplateData `json:"data"`
}
