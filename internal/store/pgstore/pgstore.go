package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"auctionhub/internal/store"
)

// PgStore implements store.AuctionStore on PostgreSQL. The auction row is
// the unit of serialization: admission is a conditional UPDATE keyed on the
// previous current_bid, closing is flip-and-return in one transaction.
type PgStore struct {
	db *sql.DB
}

func New(db *sql.DB) *PgStore { return &PgStore{db: db} }

var _ store.AuctionStore = (*PgStore)(nil)

const auctionCols = `id, owner_id, title, description, starting_bid,
	current_bid, end_at, is_active, winner_id, created_at`

func (s *PgStore) GetAuctionForBid(ctx context.Context, id int64) (store.Auction, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+auctionCols+` FROM auctions WHERE id = $1`, id)
	a, err := scanAuction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Auction{}, false, nil
	}
	if err != nil {
		return store.Auction{}, false, err
	}
	return a, true, nil
}

func (s *PgStore) TryAdmitBid(ctx context.Context, auctionID int64, expectedCurrentBid *float64, bid store.Bid) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	// Compare-and-swap: the UPDATE matches only while current_bid still
	// equals the value the caller validated against. Zero rows means
	// another bid (or the closing sweep) got there first.
	res, err := tx.ExecContext(ctx, `
		UPDATE auctions
		   SET current_bid = $2
		 WHERE id = $1
		   AND is_active
		   AND current_bid IS NOT DISTINCT FROM $3`,
		auctionID, bid.Amount, nullFloat(expectedCurrentBid))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO bids (id, auction_id, bidder_id, amount, created_at)
		     VALUES ($1, $2, $3, $4, $5)`,
		bid.ID, bid.AuctionID, bid.BidderID, bid.Amount, bid.CreatedAt)
	if err != nil {
		return false, err
	}
	return true, tx.Commit()
}

func (s *PgStore) CloseExpiredAuctions(ctx context.Context, now time.Time) ([]store.ClosedAuction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		UPDATE auctions
		   SET is_active = FALSE
		 WHERE is_active
		   AND end_at <= $1
		RETURNING `+auctionCols, now)
	if err != nil {
		return nil, err
	}
	var closed []store.ClosedAuction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		closed = append(closed, store.ClosedAuction{Auction: a})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// Ledgers are read inside the same transaction as the flip, so a bid
	// admitted after the flip can neither be missed nor double-counted.
	for i := range closed {
		bids, err := queryBids(ctx, tx, closed[i].Auction.ID)
		if err != nil {
			return nil, err
		}
		closed[i].Bids = bids
	}
	return closed, tx.Commit()
}

func (s *PgStore) SetWinner(ctx context.Context, auctionID int64, winnerID *int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT winner_id FROM auctions WHERE id = $1 FOR UPDATE`, auctionID).
		Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}

	if current.Valid {
		if winnerID != nil && *winnerID == current.Int64 {
			return tx.Commit() // same winner, no-op
		}
		return store.ErrWinnerConflict
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE auctions SET winner_id = $2 WHERE id = $1`,
		auctionID, nullInt(winnerID))
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PgStore) CreateAuction(ctx context.Context, a store.Auction) (store.Auction, error) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO auctions (owner_id, title, description, starting_bid,
		                      end_at, is_active, created_at)
		     VALUES ($1, $2, $3, $4, $5, TRUE, $6)
		  RETURNING id`,
		a.OwnerID, a.Title, a.Description, a.StartingBid, a.EndAt, a.CreatedAt).
		Scan(&a.ID)
	if err != nil {
		return store.Auction{}, err
	}
	a.IsActive = true
	a.CurrentBid = nil
	a.WinnerID = nil
	return a, nil
}

func (s *PgStore) GetAuction(ctx context.Context, id int64) (store.Auction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+auctionCols+` FROM auctions WHERE id = $1`, id)
	a, err := scanAuction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Auction{}, store.ErrNotFound
	}
	return a, err
}

func (s *PgStore) ListAuctions(ctx context.Context, activeOnly bool, limit, offset int) ([]store.Auction, error) {
	if limit <= 0 {
		limit = 10
	}
	q := `SELECT ` + auctionCols + ` FROM auctions`
	args := []any{}
	if activeOnly {
		q += ` WHERE is_active`
	}
	q += ` ORDER BY end_at DESC LIMIT $1 OFFSET $2`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]store.Auction, 0, limit)
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

func (s *PgStore) ListBids(ctx context.Context, auctionID int64) ([]store.Bid, error) {
	if _, err := s.GetAuction(ctx, auctionID); err != nil {
		return nil, err
	}
	return queryBids(ctx, s.db, auctionID)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryBids(ctx context.Context, q querier, auctionID int64) ([]store.Bid, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, auction_id, bidder_id, amount, created_at
		  FROM bids
		 WHERE auction_id = $1
		 ORDER BY created_at, id`, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []store.Bid
	for rows.Next() {
		var b store.Bid
		if err := rows.Scan(&b.ID, &b.AuctionID, &b.BidderID, &b.Amount, &b.CreatedAt); err != nil {
			return nil, err
		}
		bids = append(bids, b)
	}
	return bids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAuction(r rowScanner) (store.Auction, error) {
	var (
		a       store.Auction
		current sql.NullFloat64
		winner  sql.NullInt64
	)
	err := r.Scan(&a.ID, &a.OwnerID, &a.Title, &a.Description, &a.StartingBid,
		&current, &a.EndAt, &a.IsActive, &winner, &a.CreatedAt)
	if err != nil {
		return store.Auction{}, err
	}
	if current.Valid {
		a.CurrentBid = &current.Float64
	}
	if winner.Valid {
		a.WinnerID = &winner.Int64
	}
	return a, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
