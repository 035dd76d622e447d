package bidding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auctionhub/internal/events"
	"auctionhub/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Rejections are expected, user-facing outcomes; only ErrStorageUnavailable
// signals a fault.
var (
	ErrAuctionNotFound  = errors.New("auction not found")
	ErrAuctionClosed    = errors.New("auction closed")
	ErrSelfBid          = errors.New("cannot bid on own auction")
	ErrBidBelowStarting = errors.New("bid below starting bid")
	ErrBidBelowCurrent  = errors.New("bid below current bid")

	// ErrContention means the bounded compare-and-swap retries were
	// exhausted under concurrent pressure; the caller should resubmit.
	ErrContention = errors.New("too much contention, retry the bid")

	ErrStorageUnavailable = errors.New("storage unavailable")
)

// BidResult identifies an admitted bid.
type BidResult struct {
	BidID    string    `json:"bid_id"`
	Amount   float64   `json:"amount"`
	PlacedAt time.Time `json:"placed_at"`
}

type IBiddingService interface {
	PlaceBid(ctx context.Context, auctionID, bidderID int64, amount float64) (BidResult, error)
}

type biddingService struct {
	store      store.AuctionStore
	pub        *events.Publisher
	maxRetries int
	now        func() time.Time
}

func NewBiddingService(st store.AuctionStore, pub *events.Publisher, maxRetries int) IBiddingService {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &biddingService{
		store:      st,
		pub:        pub,
		maxRetries: maxRetries,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// PlaceBid admits or rejects one bid. Validation runs against a snapshot;
// admission is a compare-and-swap against the snapshot's current_bid, so a
// concurrent bid that lands in between forces a re-read and re-validation
// against the newer price. Retries are bounded.
func (svc *biddingService) PlaceBid(ctx context.Context, auctionID, bidderID int64, amount float64) (BidResult, error) {
	for attempt := 0; attempt < svc.maxRetries; attempt++ {
		now := svc.now()

		snap, exists, err := svc.store.GetAuctionForBid(ctx, auctionID)
		if err != nil {
			return BidResult{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		if !exists {
			return BidResult{}, ErrAuctionNotFound
		}
		if !snap.IsActive || !snap.EndAt.After(now) {
			return BidResult{}, ErrAuctionClosed
		}
		if bidderID == snap.OwnerID {
			return BidResult{}, ErrSelfBid
		}
		// Equal amounts outrank: both comparisons are >=, matching the
		// marketplace's established behavior.
		if snap.CurrentBid == nil {
			if amount < snap.StartingBid {
				return BidResult{}, ErrBidBelowStarting
			}
		} else if amount < *snap.CurrentBid {
			return BidResult{}, ErrBidBelowCurrent
		}

		bid := store.Bid{
			ID:        uuid.NewString(),
			AuctionID: auctionID,
			BidderID:  bidderID,
			Amount:    amount,
			CreatedAt: now,
		}
		accepted, err := svc.store.TryAdmitBid(ctx, auctionID, snap.CurrentBid, bid)
		if err != nil {
			return BidResult{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		if !accepted {
			// Stale: another bid won the race against this snapshot.
			zap.L().Debug("bid_stale_retry",
				zap.Int64("auction_id", auctionID),
				zap.Int64("bidder_id", bidderID),
				zap.Int("attempt", attempt+1),
			)
			continue
		}

		zap.L().Info("bid_admitted",
			zap.Int64("auction_id", auctionID),
			zap.Int64("bidder_id", bidderID),
			zap.Float64("amount", amount),
			zap.String("bid_id", bid.ID),
		)
		svc.pub.BidAdmitted(ctx, events.BidEvent{
			AuctionID: auctionID,
			BidID:     bid.ID,
			BidderID:  bidderID,
			Amount:    amount,
			PlacedAt:  bid.CreatedAt,
		})
		return BidResult{BidID: bid.ID, Amount: amount, PlacedAt: bid.CreatedAt}, nil
	}

	zap.L().Warn("bid_contention",
		zap.Int64("auction_id", auctionID),
		zap.Int64("bidder_id", bidderID),
		zap.Int("retries", svc.maxRetries),
	)
	return BidResult{}, ErrContention
}
