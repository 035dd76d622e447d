package auctionhandler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"auctionhub/internal/services/bidding"
	"auctionhub/internal/store"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	bids  bidding.IBiddingService
	store store.AuctionStore
}

func New(bids bidding.IBiddingService, st store.AuctionStore) *Handler {
	return &Handler{bids: bids, store: st}
}

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/auctions", h.list)
	r.POST("/auctions", h.create)
	r.GET("/auctions/:id", h.info)
	r.GET("/auctions/:id/bids", h.ledger)
	r.POST("/auctions/:id/bid", h.bid)
}

func (h *Handler) create(ginCtx *gin.Context) {
	var body CreateAuctionBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}

	endsAt := body.EndsAt.UTC()
	if !endsAt.After(time.Now().UTC()) {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: "ends_at must be in the future"})
		return
	}

	a, err := h.store.CreateAuction(ginCtx.Request.Context(), store.Auction{
		OwnerID:     body.OwnerID,
		Title:       body.Title,
		Description: body.Description,
		StartingBid: body.StartingBid,
		EndAt:       endsAt,
	})
	if err != nil {
		ginCtx.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusCreated, a)
}

func (h *Handler) info(ginCtx *gin.Context) {
	id, ok := auctionID(ginCtx)
	if !ok {
		return
	}
	a, err := h.store.GetAuction(ginCtx.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		ginCtx.JSON(http.StatusNotFound, &ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		ginCtx.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusOK, a)
}

func (h *Handler) list(ginCtx *gin.Context) {
	var q ListAuctionsQuery
	if err := ginCtx.ShouldBindQuery(&q); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}
	out, err := h.store.ListAuctions(ginCtx.Request.Context(), q.Active, q.Limit, q.Offset)
	if err != nil {
		ginCtx.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusOK, out)
}

func (h *Handler) ledger(ginCtx *gin.Context) {
	id, ok := auctionID(ginCtx)
	if !ok {
		return
	}
	out, err := h.store.ListBids(ginCtx.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		ginCtx.JSON(http.StatusNotFound, &ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		ginCtx.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
		return
	}
	if out == nil {
		out = []store.Bid{}
	}
	ginCtx.JSON(http.StatusOK, out)
}

func (h *Handler) bid(ginCtx *gin.Context) {
	var body PlaceBidBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}
	id, ok := auctionID(ginCtx)
	if !ok {
		return
	}

	res, err := h.bids.PlaceBid(ginCtx.Request.Context(), id, body.BidderID, body.Amount)
	if err != nil {
		ginCtx.JSON(bidStatus(err), &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusCreated, res)
}

// bidStatus maps the admission taxonomy onto HTTP statuses. Rejections are
// expected outcomes, not faults.
func bidStatus(err error) int {
	switch {
	case errors.Is(err, bidding.ErrAuctionNotFound):
		return http.StatusNotFound
	case errors.Is(err, bidding.ErrAuctionClosed),
		errors.Is(err, bidding.ErrSelfBid),
		errors.Is(err, bidding.ErrBidBelowStarting),
		errors.Is(err, bidding.ErrBidBelowCurrent):
		return http.StatusConflict
	case errors.Is(err, bidding.ErrContention):
		return http.StatusTooManyRequests
	case errors.Is(err, bidding.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func auctionID(ginCtx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ginCtx.Param("id"), 10, 64)
	if err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: "invalid auction id"})
		return 0, false
	}
	return id, true
}
