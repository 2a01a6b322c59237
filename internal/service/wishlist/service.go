package wishlist

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

// ErrTitleRequired indicates a wishlist without a title.
var ErrTitleRequired = errors.New("title is required")

// Service manages wishlists. Private lists are indistinguishable from
// missing ones for anybody but their owner.
type Service struct {
	lists  repository.WishlistRepository
	logger *slog.Logger
}

// New constructs a Service.
func New(lists repository.WishlistRepository, logger *slog.Logger) Service {
	return Service{lists: lists, logger: logger}
}

// CreateInput describes a new wishlist.
type CreateInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
}

// UpdateInput carries partial wishlist updates.
type UpdateInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Public      *bool   `json:"public"`
}

// Create stores a wishlist owned by ownerID.
func (s Service) Create(ctx context.Context, ownerID string, in CreateInput) (*domain.Wishlist, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	list := &domain.Wishlist{
		ID:          uuid.NewString(),
		UserID:      ownerID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Public:      in.Public,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.lists.CreateWishlist(ctx, list); err != nil {
		return nil, err
	}
	s.logger.Info("wishlist created", "wishlist_id", list.ID, "user_id", ownerID)
	return list, nil
}

// ListByOwner returns the caller's wishlists.
func (s Service) ListByOwner(ctx context.Context, ownerID string) ([]domain.Wishlist, error) {
	return s.lists.ListWishlistsByUser(ctx, ownerID)
}

// Get returns a wishlist the viewer is allowed to see: their own, or a
// public one. Anything else reports ErrNotFound.
func (s Service) Get(ctx context.Context, viewerID, listID string) (*domain.Wishlist, error) {
	list, err := s.lists.GetWishlistByID(ctx, listID)
	if err != nil {
		return nil, err
	}
	if list.UserID != viewerID && !list.Public {
		return nil, repository.ErrNotFound
	}
	return list, nil
}

// Update applies partial changes to a wishlist owned by ownerID.
func (s Service) Update(ctx context.Context, ownerID, listID string, in UpdateInput) (*domain.Wishlist, error) {
	list, err := s.owned(ctx, ownerID, listID)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		list.Title = title
	}
	if in.Description != nil {
		list.Description = strings.TrimSpace(*in.Description)
	}
	if in.Public != nil {
		list.Public = *in.Public
	}
	if err := s.lists.UpdateWishlist(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// Delete removes a wishlist owned by ownerID. Products cascade in the
// schema.
func (s Service) Delete(ctx context.Context, ownerID, listID string) error {
	if _, err := s.owned(ctx, ownerID, listID); err != nil {
		return err
	}
	if err := s.lists.DeleteWishlist(ctx, listID); err != nil {
		return err
	}
	s.logger.Info("wishlist deleted", "wishlist_id", listID, "user_id", ownerID)
	return nil
}

// owned loads a wishlist and hides it behind ErrNotFound unless ownerID
// owns it.
func (s Service) owned(ctx context.Context, ownerID, listID string) (*domain.Wishlist, error) {
	list, err := s.lists.GetWishlistByID(ctx, listID)
	if err != nil {
		return nil, err
	}
	if list.UserID != ownerID {
		return nil, repository.ErrNotFound
	}
	return list, nil
}
