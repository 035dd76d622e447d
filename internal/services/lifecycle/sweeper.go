package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"auctionhub/internal/events"
	"auctionhub/internal/store"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const leaseKey = "auction_sweep_lease"

// Sweeper periodically closes expired auctions and assigns winners.
// Closing is delegated to the store's atomic flip; the sweeper only
// computes winners from the returned (final) ledgers.
type Sweeper struct {
	store    store.AuctionStore
	rdc      *redis.Client // optional: sweep lease across replicas
	pub      *events.Publisher
	interval time.Duration

	// Auctions flipped to inactive whose winner assignment failed. Their
	// ledgers are final, so the captured copy stays valid for retries.
	mu      sync.Mutex
	pending map[int64][]store.Bid

	now func() time.Time
}

func NewSweeper(st store.AuctionStore, rdc *redis.Client, pub *events.Publisher, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Sweeper{
		store:    st,
		rdc:      rdc,
		pub:      pub,
		interval: interval,
		pending:  make(map[int64][]store.Bid),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run starts the periodic sweep and returns immediately.
func (s *Sweeper) Run(ctx context.Context) {
	tk := time.NewTicker(s.interval)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				if !s.acquireLease(ctx) {
					continue // another instance sweeps this cycle
				}
				if failed, err := s.RunSweep(ctx, s.now()); err != nil {
					zap.L().Error("sweep", zap.Error(err))
				} else if len(failed) > 0 {
					zap.L().Warn("sweep_partial", zap.Int64s("failed_auctions", failed))
				}
			}
		}
	}()
}

// acquireLease de-duplicates work when replicas share a store. Losing the
// lease is never a correctness issue: the store's flip is atomic either way.
func (s *Sweeper) acquireLease(ctx context.Context) bool {
	if s.rdc == nil {
		return true
	}
	ok, err := s.rdc.SetNX(ctx, leaseKey, 1, s.interval).Result()
	if err != nil {
		zap.L().Warn("sweep_lease", zap.Error(err))
		return true // degrade to lockless rather than stall closures
	}
	return ok
}

// RunSweep closes every auction expired at now and assigns winners. It is
// idempotent: already-inactive auctions are never re-selected, and winner
// assignment is retried only from previously captured ledgers. Returns the
// ids whose winner assignment failed and will be retried next cycle.
func (s *Sweeper) RunSweep(ctx context.Context, now time.Time) ([]int64, error) {
	closed, err := s.store.CloseExpiredAuctions(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("close expired auctions: %w", err)
	}

	s.mu.Lock()
	retries := s.pending
	s.pending = make(map[int64][]store.Bid)
	s.mu.Unlock()

	var failed []int64
	for id, ledger := range retries {
		if !s.assignWinner(ctx, id, ledger) {
			failed = append(failed, id)
		}
	}
	for _, ca := range closed {
		zap.L().Info("auction_closed",
			zap.Int64("auction_id", ca.Auction.ID),
			zap.Int("bids", len(ca.Bids)),
		)
		if !s.assignWinner(ctx, ca.Auction.ID, ca.Bids) {
			failed = append(failed, ca.Auction.ID)
		}
	}
	return failed, nil
}

// assignWinner reports false when the assignment must be retried; the
// ledger is then re-queued for the next cycle.
func (s *Sweeper) assignWinner(ctx context.Context, auctionID int64, ledger []store.Bid) bool {
	winner := PickWinner(ledger)
	err := s.store.SetWinner(ctx, auctionID, winner)
	if errors.Is(err, store.ErrWinnerConflict) {
		// Contract violation, retrying cannot fix it.
		zap.L().Error("winner_conflict", zap.Int64("auction_id", auctionID))
		return true
	}
	if err != nil {
		zap.L().Warn("set_winner_failed",
			zap.Int64("auction_id", auctionID),
			zap.Error(err),
		)
		s.mu.Lock()
		s.pending[auctionID] = ledger
		s.mu.Unlock()
		return false
	}

	s.pub.AuctionClosed(ctx, events.ClosedEvent{AuctionID: auctionID, WinnerID: winner})
	if winner != nil {
		zap.L().Info("winner_assigned",
			zap.Int64("auction_id", auctionID),
			zap.Int64("winner_id", *winner),
		)
	}
	return true
}

// PickWinner returns the bidder holding the highest amount, ties broken by
// earliest bid (first bidder to reach that price wins). Nil for an empty
// ledger.
func PickWinner(ledger []store.Bid) *int64 {
	if len(ledger) == 0 {
		return nil
	}
	best := ledger[0]
	for _, b := range ledger[1:] {
		if b.Amount > best.Amount || (b.Amount == best.Amount && b.CreatedAt.Before(best.CreatedAt)) {
			best = b
		}
	}
	return &best.BidderID
}
