package repository

import (
	"context"
	"time"

	"github.com/MrQay/Wishlist-application/internal/domain"
)

// UserRepository persists accounts. The store, not its callers, is the
// serialization point for the one-account-per-email invariant: concurrent
// CreateUser calls for the same email resolve to one success and
// ErrDuplicateEmail for the rest.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	UpdatePasswordHash(ctx context.Context, id string, hash []byte) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

// WishlistRepository persists wishlists.
type WishlistRepository interface {
	CreateWishlist(ctx context.Context, list *domain.Wishlist) error
	GetWishlistByID(ctx context.Context, id string) (*domain.Wishlist, error)
	ListWishlistsByUser(ctx context.Context, userID string) ([]domain.Wishlist, error)
	UpdateWishlist(ctx context.Context, list *domain.Wishlist) error
	DeleteWishlist(ctx context.Context, id string) error
}

// ProductRepository persists wishlist entries.
type ProductRepository interface {
	CreateProduct(ctx context.Context, product *domain.Product) error
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	ListProductsByWishlist(ctx context.Context, wishlistID string) ([]domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	DeleteProductsByWishlist(ctx context.Context, wishlistID string) error
}
