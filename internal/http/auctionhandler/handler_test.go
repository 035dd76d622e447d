package auctionhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"auctionhub/internal/services/bidding"
	"auctionhub/internal/store"
	"auctionhub/internal/store/memstore"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*gin.Engine, *memstore.MemStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	m := memstore.New()
	svc := bidding.NewBiddingService(m, nil, 5)
	r := gin.New()
	New(svc, m).Register(r)
	return r, m
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func seedAuction(t *testing.T, m *memstore.MemStore, ownerID int64, startingBid float64, endAt time.Time) store.Auction {
	t.Helper()
	a, err := m.CreateAuction(context.Background(), store.Auction{
		OwnerID:     ownerID,
		Title:       "test item",
		StartingBid: startingBid,
		EndAt:       endAt,
	})
	require.NoError(t, err)
	return a
}

func TestHandler_CreateAuction(t *testing.T) {
	r, _ := newTestRouter(t)

	t.Run("created", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/auctions", CreateAuctionBody{
			OwnerID:     1,
			Title:       "Antique clock",
			StartingBid: 100,
			EndsAt:      time.Now().UTC().Add(time.Hour),
		})
		require.Equal(t, http.StatusCreated, w.Code)

		var a store.Auction
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &a))
		require.NotZero(t, a.ID)
		require.True(t, a.IsActive)
		require.Nil(t, a.CurrentBid)
	})

	t.Run("ends_at_in_past", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/auctions", CreateAuctionBody{
			OwnerID:     1,
			Title:       "Antique clock",
			StartingBid: 100,
			EndsAt:      time.Now().UTC().Add(-time.Hour),
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing_fields", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/auctions", gin.H{"owner_id": 1})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_PlaceBid(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name       string
		seed       func(m *memstore.MemStore) int64
		body       PlaceBidBody
		wantStatus int
	}{
		{
			name:       "admitted",
			seed:       func(m *memstore.MemStore) int64 { return seedAuction(t, m, 1, 100, now.Add(time.Hour)).ID },
			body:       PlaceBidBody{BidderID: 2, Amount: 150},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "auction_missing",
			seed:       func(m *memstore.MemStore) int64 { return 999 },
			body:       PlaceBidBody{BidderID: 2, Amount: 150},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "below_starting",
			seed:       func(m *memstore.MemStore) int64 { return seedAuction(t, m, 1, 100, now.Add(time.Hour)).ID },
			body:       PlaceBidBody{BidderID: 2, Amount: 90},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "self_bid",
			seed:       func(m *memstore.MemStore) int64 { return seedAuction(t, m, 1, 100, now.Add(time.Hour)).ID },
			body:       PlaceBidBody{BidderID: 1, Amount: 500},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "auction_expired",
			seed:       func(m *memstore.MemStore) int64 { return seedAuction(t, m, 1, 100, now.Add(-time.Minute)).ID },
			body:       PlaceBidBody{BidderID: 2, Amount: 500},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "invalid_amount",
			seed:       func(m *memstore.MemStore) int64 { return seedAuction(t, m, 1, 100, now.Add(time.Hour)).ID },
			body:       PlaceBidBody{BidderID: 2},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, m := newTestRouter(t)
			id := tc.seed(m)
			w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/auctions/%d/bid", id), tc.body)
			require.Equal(t, tc.wantStatus, w.Code)

			if tc.wantStatus == http.StatusCreated {
				var res bidding.BidResult
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
				require.NotEmpty(t, res.BidID)
				require.Equal(t, tc.body.Amount, res.Amount)
			}
		})
	}
}

func TestHandler_GetAuctionAndLedger(t *testing.T) {
	r, m := newTestRouter(t)
	now := time.Now().UTC()
	a := seedAuction(t, m, 1, 100, now.Add(time.Hour))

	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/auctions/%d/bid", a.ID), PlaceBidBody{BidderID: 2, Amount: 150})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/auctions/%d", a.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got store.Auction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.NotNil(t, got.CurrentBid)
	require.Equal(t, 150.0, *got.CurrentBid)

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/auctions/%d/bids", a.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ledger []store.Bid
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ledger))
	require.Len(t, ledger, 1)
	require.Equal(t, int64(2), ledger[0].BidderID)

	w = doJSON(t, r, http.MethodGet, "/auctions/999", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/auctions/999/bids", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/auctions/abc", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_ListAuctions(t *testing.T) {
	r, m := newTestRouter(t)
	now := time.Now().UTC()
	seedAuction(t, m, 1, 100, now.Add(time.Hour))
	seedAuction(t, m, 1, 100, now.Add(time.Hour))

	w := doJSON(t, r, http.MethodGet, "/auctions?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var out []store.Auction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out, 1)

	w = doJSON(t, r, http.MethodGet, "/auctions?limit=500", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
