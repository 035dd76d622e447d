package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"auctionhub/internal/store"
)

// MemStore is a concurrency-safe in-memory AuctionStore. It backs the
// "memory" store backend and the test suite.
type MemStore struct {
	mu       sync.Mutex
	nextID   int64
	auctions map[int64]*store.Auction
	bids     map[int64][]store.Bid // auctionID -> ledger, append order
}

func New() *MemStore {
	return &MemStore{
		nextID:   1,
		auctions: make(map[int64]*store.Auction),
		bids:     make(map[int64][]store.Bid),
	}
}

var _ store.AuctionStore = (*MemStore)(nil)

func (m *MemStore) GetAuctionForBid(ctx context.Context, id int64) (store.Auction, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.auctions[id]
	if !ok {
		return store.Auction{}, false, nil
	}
	return snapshot(a), true, nil
}

func (m *MemStore) TryAdmitBid(ctx context.Context, auctionID int64, expectedCurrentBid *float64, bid store.Bid) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.auctions[auctionID]
	if !ok || !a.IsActive {
		return false, nil
	}
	if !sameBidValue(a.CurrentBid, expectedCurrentBid) {
		return false, nil
	}

	amount := bid.Amount
	a.CurrentBid = &amount
	m.bids[auctionID] = append(m.bids[auctionID], bid)
	return true, nil
}

func (m *MemStore) CloseExpiredAuctions(ctx context.Context, now time.Time) ([]store.ClosedAuction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var closed []store.ClosedAuction
	for _, a := range m.auctions {
		if !a.IsActive || a.EndAt.After(now) {
			continue
		}
		a.IsActive = false
		ledger := append([]store.Bid(nil), m.bids[a.ID]...)
		closed = append(closed, store.ClosedAuction{Auction: snapshot(a), Bids: ledger})
	}
	sort.Slice(closed, func(i, j int) bool { return closed[i].Auction.ID < closed[j].Auction.ID })
	return closed, nil
}

func (m *MemStore) SetWinner(ctx context.Context, auctionID int64, winnerID *int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.auctions[auctionID]
	if !ok {
		return store.ErrNotFound
	}
	if a.WinnerID == nil {
		a.WinnerID = winnerID
		return nil
	}
	if winnerID == nil || *a.WinnerID != *winnerID {
		return store.ErrWinnerConflict
	}
	return nil
}

func (m *MemStore) CreateAuction(ctx context.Context, a store.Auction) (store.Auction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a.ID = m.nextID
	m.nextID++
	a.IsActive = true
	a.CurrentBid = nil
	a.WinnerID = nil
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	cp := a
	m.auctions[a.ID] = &cp
	return a, nil
}

func (m *MemStore) GetAuction(ctx context.Context, id int64) (store.Auction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.auctions[id]
	if !ok {
		return store.Auction{}, store.ErrNotFound
	}
	return snapshot(a), nil
}

func (m *MemStore) ListAuctions(ctx context.Context, activeOnly bool, limit, offset int) ([]store.Auction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int64, 0, len(m.auctions))
	for id, a := range m.auctions {
		if activeOnly && !a.IsActive {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if offset >= len(ids) {
		return []store.Auction{}, nil
	}
	ids = ids[offset:]
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}

	out := make([]store.Auction, 0, len(ids))
	for _, id := range ids {
		out = append(out, snapshot(m.auctions[id]))
	}
	return out, nil
}

func (m *MemStore) ListBids(ctx context.Context, auctionID int64) ([]store.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.auctions[auctionID]; !ok {
		return nil, store.ErrNotFound
	}
	return append([]store.Bid(nil), m.bids[auctionID]...), nil
}

func snapshot(a *store.Auction) store.Auction {
	cp := *a
	if a.CurrentBid != nil {
		v := *a.CurrentBid
		cp.CurrentBid = &v
	}
	if a.WinnerID != nil {
		w := *a.WinnerID
		cp.WinnerID = &w
	}
	return cp
}

func sameBidValue(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
