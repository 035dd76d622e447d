package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Channel returns the pub/sub channel carrying one auction's events.
// Pattern-subscribed by the ws fan-out as "auction:*:events".
func Channel(auctionID int64) string {
	return fmt.Sprintf("auction:%d:events", auctionID)
}

type BidEvent struct {
	Event     string    `json:"event"` // "bid"
	AuctionID int64     `json:"auction_id"`
	BidID     string    `json:"bid_id"`
	BidderID  int64     `json:"bidder_id"`
	Amount    float64   `json:"amount"`
	PlacedAt  time.Time `json:"placed_at"`
}

type ClosedEvent struct {
	Event     string `json:"event"` // "closed"
	AuctionID int64  `json:"auction_id"`
	WinnerID  *int64 `json:"winner_id"`
}

// Publisher fans admitted bids and closures out over Redis pub/sub.
// A nil Publisher is valid and drops every event, so the core runs
// without Redis.
type Publisher struct {
	rdc *redis.Client
}

func NewPublisher(rdc *redis.Client) *Publisher {
	if rdc == nil {
		return nil
	}
	return &Publisher{rdc: rdc}
}

func (p *Publisher) BidAdmitted(ctx context.Context, ev BidEvent) {
	ev.Event = "bid"
	p.publish(ctx, ev.AuctionID, ev)
}

func (p *Publisher) AuctionClosed(ctx context.Context, ev ClosedEvent) {
	ev.Event = "closed"
	p.publish(ctx, ev.AuctionID, ev)
}

// publish is fire-and-forget: a dropped event only delays watchers until
// their next snapshot, it never affects admission or closure.
func (p *Publisher) publish(ctx context.Context, auctionID int64, v any) {
	if p == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		zap.L().Warn("events.marshal", zap.Error(err))
		return
	}
	if err := p.rdc.Publish(ctx, Channel(auctionID), payload).Err(); err != nil {
		zap.L().Warn("events.publish", zap.Int64("auction_id", auctionID), zap.Error(err))
	}
}
