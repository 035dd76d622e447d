package ws

import "auctionhub/internal/store"

// Envelope wraps every outbound WS frame.
type Envelope struct {
	Event string `json:"event"` // "snapshot" | "bid" | "closed"
	Body  any    `json:"body,omitempty"`
}

// SnapshotBody is pushed once when a client joins an auction room; every
// later frame is a relayed bid/closed event.
type SnapshotBody struct {
	Auction store.Auction `json:"auction"`
}
