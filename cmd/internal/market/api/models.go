package marketapi

import "gameswap/cmd/internal/market"

// The seller is always the authenticated subject; it never comes from the
// request body.
type createOfferRequest struct {
	GameTitle   string  `json:"game_title"`
	Platform    string  `json:"platform"`
	Condition   string  `json:"condition"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
}

// updateOfferRequest is a partial update. Absent fields keep their stored
// values; present fields must be non-blank.
type updateOfferRequest struct {
	GameTitle   *string  `json:"game_title"`
	Platform    *string  `json:"platform"`
	Condition   *string  `json:"condition"`
	Price       *float64 `json:"price"`
	Description *string  `json:"description"`
}

type offerResponse struct {
	Offer market.Offer `json:"offer"`
}

type offersResponse struct {
	Offers []market.Offer `json:"offers"`
}
