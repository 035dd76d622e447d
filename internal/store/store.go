package store

import (
	"context"
	"errors"
	"time"
)

// Auction is a listed item accepting bids until EndAt.
type Auction struct {
	ID          int64      `json:"id"`
	OwnerID     int64      `json:"owner_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartingBid float64    `json:"starting_bid"`
	CurrentBid  *float64   `json:"current_bid"` // nil until the first bid is admitted
	EndAt       time.Time  `json:"end_at"`
	IsActive    bool       `json:"is_active"`
	WinnerID    *int64     `json:"winner_id"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Bid is one entry of an auction's append-only ledger.
type Bid struct {
	ID        string    `json:"id"`
	AuctionID int64     `json:"auction_id"`
	BidderID  int64     `json:"bidder_id"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// ClosedAuction is an auction flipped to inactive together with its final
// bid ledger, ordered by creation time.
type ClosedAuction struct {
	Auction Auction
	Bids    []Bid
}

var (
	ErrNotFound = errors.New("auction not found")

	// ErrWinnerConflict means SetWinner was asked to overwrite a different,
	// already recorded winner. Closure runs once per auction, so this is a
	// contract violation, not a transient condition.
	ErrWinnerConflict = errors.New("winner already set to a different user")
)

// AuctionStore is the sole arbiter of ordering for a given auction row.
// All mutating operations are atomic with respect to each other on the
// same auction.
type AuctionStore interface {
	// GetAuctionForBid returns a snapshot used as the basis for a
	// subsequent TryAdmitBid. The snapshot carries no freshness guarantee
	// beyond the moment of the call.
	GetAuctionForBid(ctx context.Context, id int64) (Auction, bool, error)

	// TryAdmitBid atomically verifies that the stored current_bid still
	// equals expectedCurrentBid (nil compares as "no bid yet") and, if so,
	// sets it to bid.Amount and appends the bid record in the same atomic
	// unit. Returns false when the comparison fails: another bid won the
	// race and the caller must re-read and retry.
	TryAdmitBid(ctx context.Context, auctionID int64, expectedCurrentBid *float64, bid Bid) (bool, error)

	// CloseExpiredAuctions flips every active auction with end_at <= now
	// to inactive and returns each one with its full ledger, in the same
	// transaction that performed the flip. An auction already inactive is
	// never selected again.
	CloseExpiredAuctions(ctx context.Context, now time.Time) ([]ClosedAuction, error)

	// SetWinner records the computed winner. Idempotent for the same
	// winner; a different winner once set returns ErrWinnerConflict.
	SetWinner(ctx context.Context, auctionID int64, winnerID *int64) error

	CreateAuction(ctx context.Context, a Auction) (Auction, error)
	GetAuction(ctx context.Context, id int64) (Auction, error)
	ListAuctions(ctx context.Context, activeOnly bool, limit, offset int) ([]Auction, error)
	ListBids(ctx context.Context, auctionID int64) ([]Bid, error)
}
