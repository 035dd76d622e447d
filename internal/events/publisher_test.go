package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/require"
)

func TestChannel(t *testing.T) {
	require.Equal(t, "auction:42:events", Channel(42))
}

func TestPublisher_BidAdmitted(t *testing.T) {
	rdc, mock := redismock.NewClientMock()
	p := NewPublisher(rdc)

	placedAt := time.Date(2025, 7, 27, 16, 5, 5, 0, time.UTC)
	ev := BidEvent{
		Event:     "bid",
		AuctionID: 1,
		BidID:     "bid-1",
		BidderID:  7,
		Amount:    150,
		PlacedAt:  placedAt,
	}
	payload, err := json.Marshal(ev)
	require.NoError(t, err)
	mock.ExpectPublish(Channel(1), payload).SetVal(1)

	p.BidAdmitted(context.Background(), BidEvent{
		AuctionID: 1,
		BidID:     "bid-1",
		BidderID:  7,
		Amount:    150,
		PlacedAt:  placedAt,
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPublisher_AuctionClosed(t *testing.T) {
	rdc, mock := redismock.NewClientMock()
	p := NewPublisher(rdc)

	winner := int64(7)
	payload, err := json.Marshal(ClosedEvent{Event: "closed", AuctionID: 2, WinnerID: &winner})
	require.NoError(t, err)
	mock.ExpectPublish(Channel(2), payload).SetVal(1)

	p.AuctionClosed(context.Background(), ClosedEvent{AuctionID: 2, WinnerID: &winner})
	require.NoError(t, mock.ExpectationsWereMet())
}

// A nil publisher drops events instead of panicking: the core must run
// without Redis.
func TestPublisher_NilSafe(t *testing.T) {
	var p *Publisher
	require.Nil(t, NewPublisher(nil))
	p.BidAdmitted(context.Background(), BidEvent{AuctionID: 1})
	p.AuctionClosed(context.Background(), ClosedEvent{AuctionID: 1})
}
