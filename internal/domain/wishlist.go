package domain

import "time"

// Wishlist is a named collection of products owned by one user. Public
// lists are readable by any authenticated user; private lists only by
// their owner.
type Wishlist struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Public      bool      `json:"public"`
	CreatedAt   time.Time `json:"created_at"`
}
