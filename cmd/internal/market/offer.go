package market

import "time"

// Offer is a game listing. The JSON tags are the wire shape used by both
// the REST responses and the feed events.
type Offer struct {
	ID          string    `json:"id"`
	GameTitle   string    `json:"game_title"`
	Platform    string    `json:"platform"`
	Condition   string    `json:"condition"`
	Price       float64   `json:"price"`
	Description string    `json:"description"`
	SellerID    string    `json:"seller_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateInput describes a new listing. SellerID comes from the
// authenticated subject, never from the request body.
type CreateInput struct {
	SellerID    string
	GameTitle   string
	Platform    string
	Condition   string
	Price       float64
	Description string
	Now         time.Time
}

// UpdateInput describes a partial update. Nil fields keep their current
// value; at least one field must be set.
type UpdateInput struct {
	OfferID  string
	SellerID string

	GameTitle   *string
	Platform    *string
	Condition   *string
	Price       *float64
	Description *string
}
