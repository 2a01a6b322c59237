package product

import (
	"context"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/MrQay/Wishlist-application/internal/domain"
	"github.com/MrQay/Wishlist-application/internal/repository"
)

var (
	// ErrTitleRequired indicates a product without a title.
	ErrTitleRequired = errors.New("title is required")
	// ErrURLRequired indicates a product without a link.
	ErrURLRequired = errors.New("url is required")
)

// Service manages products inside wishlists. Ownership and visibility are
// resolved against the parent wishlist.
type Service struct {
	products repository.ProductRepository
	lists    repository.WishlistRepository
	logger   *slog.Logger
}

// New constructs a Service.
func New(products repository.ProductRepository, lists repository.WishlistRepository, logger *slog.Logger) Service {
	return Service{products: products, lists: lists, logger: logger}
}

// AddInput describes a new product.
type AddInput struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	URL         string  `json:"url"`
	ImageURL    string  `json:"image_url"`
	Price       float64 `json:"price"`
	Amount      int     `json:"amount"`
	Ranking     string  `json:"ranking"`
}

// Add stores a product on a wishlist owned by ownerID.
func (s Service) Add(ctx context.Context, ownerID, wishlistID string, in AddInput) (*domain.Product, error) {
	if _, err := s.ownedList(ctx, ownerID, wishlistID); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	url := strings.TrimSpace(in.URL)
	if url == "" {
		return nil, ErrURLRequired
	}
	amount := in.Amount
	if amount <= 0 {
		amount = 1
	}
	product := &domain.Product{
		ID:          uuid.NewString(),
		WishlistID:  wishlistID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		URL:         url,
		ImageURL:    strings.TrimSpace(in.ImageURL),
		Price:       in.Price,
		Amount:      amount,
		Ranking:     strings.TrimSpace(in.Ranking),
		DateAdded:   time.Now().UTC(),
	}
	if err := s.products.CreateProduct(ctx, product); err != nil {
		return nil, err
	}
	s.logger.Info("product added", "product_id", product.ID, "wishlist_id", wishlistID)
	return product, nil
}

// List returns the products of a wishlist the viewer may see.
func (s Service) List(ctx context.Context, viewerID, wishlistID string) ([]domain.Product, error) {
	list, err := s.lists.GetWishlistByID(ctx, wishlistID)
	if err != nil {
		return nil, err
	}
	if list.UserID != viewerID && !list.Public {
		return nil, repository.ErrNotFound
	}
	return s.products.ListProductsByWishlist(ctx, wishlistID)
}

// Remove deletes one product from a wishlist owned by ownerID.
func (s Service) Remove(ctx context.Context, ownerID, wishlistID, productID string) error {
	if _, err := s.ownedList(ctx, ownerID, wishlistID); err != nil {
		return err
	}
	product, err := s.products.GetProductByID(ctx, productID)
	if err != nil {
		return err
	}
	if product.WishlistID != wishlistID {
		return repository.ErrNotFound
	}
	if err := s.products.DeleteProduct(ctx, productID); err != nil {
		return err
	}
	s.logger.Info("product removed", "product_id", productID, "wishlist_id", wishlistID)
	return nil
}

// Clear deletes every product of a wishlist owned by ownerID.
func (s Service) Clear(ctx context.Context, ownerID, wishlistID string) error {
	if _, err := s.ownedList(ctx, ownerID, wishlistID); err != nil {
		return err
	}
	if err := s.products.DeleteProductsByWishlist(ctx, wishlistID); err != nil {
		return err
	}
	s.logger.Info("wishlist cleared", "wishlist_id", wishlistID)
	return nil
}

func (s Service) ownedList(ctx context.Context, ownerID, wishlistID string) (*domain.Wishlist, error) {
	list, err := s.lists.GetWishlistByID(ctx, wishlistID)
	if err != nil {
		return nil, err
	}
	if list.UserID != ownerID {
		return nil, repository.ErrNotFound
	}
	return list, nil
}
