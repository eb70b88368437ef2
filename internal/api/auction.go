package api

import (
	"context"
	"encoding/json"
	"net/http"
)

type bidRequest struct {
	AuctionID int64 `json:"auctionId"`
	BidAmount int64 `json:"bidAmount"`
	IsAutoBid bool  `json:"isAutoBid"`
}

// PlaceBid submits a manual bid. Bid validation happens on the backend; the
// response is returned as-is.
func (c *Client) PlaceBid(ctx context.Context, auctionID, amount int64) (json.RawMessage, error) {
	var resp json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/bids", bidRequest{AuctionID: auctionID, BidAmount: amount}, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}
