package domain

import "time"

// Product is a single wishlist entry.
type Product struct {
	ID          string    `json:"id"`
	WishlistID  string    `json:"wishlist_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"image_url"`
	Price       float64   `json:"price"`
	Amount      int       `json:"amount"`
	Ranking     string    `json:"ranking"`
	DateAdded   time.Time `json:"date_added"`
}
