package domain

import "time"

// Event is an organizer's event. Its categories and tickets live under it and
// its minted assets live in the AtomicCollName collection on the ledger.
type Event struct {
	ID             string
	Name           string
	LocationName   string
	LocationCity   string
	EventTime      time.Time
	AtomicCollName string
	CreatedBy      string
	CreatedAt      time.Time
}
