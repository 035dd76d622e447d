package auctionhandler

import "time"

type CreateAuctionBody struct {
	OwnerID     int64     `json:"owner_id"     binding:"required"      example:"42"`
	Title       string    `json:"title"        binding:"required"      example:"Antique clock"`
	Description string    `json:"description"                          example:"Mantel clock, 1905"`
	StartingBid float64   `json:"starting_bid" binding:"required,gt=0" example:"100"`
	EndsAt      time.Time `json:"ends_at"      binding:"required"      example:"2025-07-27T16:05:05Z"`
}

type PlaceBidBody struct {
	BidderID int64   `json:"bidder_id" binding:"required"      example:"7"`
	Amount   float64 `json:"amount"    binding:"required,gt=0" example:"150"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type ListAuctionsQuery struct {
	Active bool `form:"active"`
	Limit  int  `form:"limit,default=10"  binding:"gte=0,lte=100"`
	Offset int  `form:"offset,default=0"  binding:"gte=0"`
}
