package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrQay/Wishlist-application/internal/domain"
	"github.com/MrQay/Wishlist-application/internal/repository"
)

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.UserRepository     = (*Repository)(nil)
	_ repository.WishlistRepository = (*Repository)(nil)
	_ repository.ProductRepository  = (*Repository)(nil)
)

// CreateUser inserts a user. A unique violation on the email index maps to
// ErrDuplicateEmail so concurrent registrations resolve in the database.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	const query = `INSERT INTO users (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)`
	_, err := r.pool.Exec(ctx, query, user.ID, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return repository.ErrDuplicateEmail
			case "23514", "22P02":
				return repository.ErrInvalidArgument
			}
		}
		return err
	}
	return nil
}

// GetUserByEmail fetches a user by normalized email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT id, email, password_hash, created_at, last_login_at
		FROM users WHERE email = $1`
	row := r.pool.QueryRow(ctx, query, email)
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.LastLoginAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetUserByID retrieves a user by identifier.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT id, email, password_hash, created_at, last_login_at
		FROM users WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.LastLoginAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// UpdatePasswordHash replaces the stored credential material for a user.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id string, hash []byte) error {
	const query = `UPDATE users SET password_hash = $2 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// TouchLastLogin records a successful login timestamp.
func (r *Repository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE users SET last_login_at = $2 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// CreateWishlist inserts a wishlist.
func (r *Repository) CreateWishlist(ctx context.Context, list *domain.Wishlist) error {
	const query = `INSERT INTO wishlists (id, user_id, title, description, is_public, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, query, list.ID, list.UserID, list.Title, list.Description, list.Public, list.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23503":
				return repository.ErrNotFound
			case "23505", "23514", "22P02":
				return repository.ErrInvalidArgument
			}
		}
		return err
	}
	return nil
}

// GetWishlistByID fetches a wishlist by identifier.
func (r *Repository) GetWishlistByID(ctx context.Context, id string) (*domain.Wishlist, error) {
	const query = `SELECT id, user_id, title, description, is_public, created_at
		FROM wishlists WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	var list domain.Wishlist
	if err := row.Scan(&list.ID, &list.UserID, &list.Title, &list.Description, &list.Public, &list.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &list, nil
}

// ListWishlistsByUser returns the wishlists owned by a user.
func (r *Repository) ListWishlistsByUser(ctx context.Context, userID string) ([]domain.Wishlist, error) {
	const query = `SELECT id, user_id, title, description, is_public, created_at
		FROM wishlists WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lists := make([]domain.Wishlist, 0)
	for rows.Next() {
		var list domain.Wishlist
		if err := rows.Scan(&list.ID, &list.UserID, &list.Title, &list.Description, &list.Public, &list.CreatedAt); err != nil {
			return nil, err
		}
		lists = append(lists, list)
	}
	return lists, rows.Err()
}

// UpdateWishlist mutates wishlist metadata.
func (r *Repository) UpdateWishlist(ctx context.Context, list *domain.Wishlist) error {
	const query = `UPDATE wishlists SET title = $2, description = $3, is_public = $4
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, list.ID, list.Title, list.Description, list.Public)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteWishlist removes a wishlist; products cascade in the schema.
func (r *Repository) DeleteWishlist(ctx context.Context, id string) error {
	const query = `DELETE FROM wishlists WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// CreateProduct inserts a wishlist entry.
func (r *Repository) CreateProduct(ctx context.Context, product *domain.Product) error {
	const query = `INSERT INTO products (id, wishlist_id, title, description, url, image_url, price, amount, ranking, date_added)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.pool.Exec(ctx, query,
		product.ID,
		product.WishlistID,
		product.Title,
		product.Description,
		product.URL,
		product.ImageURL,
		product.Price,
		product.Amount,
		product.Ranking,
		product.DateAdded,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23503":
				return repository.ErrNotFound
			case "23505", "23514", "22P02":
				return repository.ErrInvalidArgument
			}
		}
		return err
	}
	return nil
}

// GetProductByID fetches a product by identifier.
func (r *Repository) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	const query = `SELECT id, wishlist_id, title, description, url, image_url, price, amount, ranking, date_added
		FROM products WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	var p domain.Product
	if err := row.Scan(&p.ID, &p.WishlistID, &p.Title, &p.Description, &p.URL, &p.ImageURL, &p.Price, &p.Amount, &p.Ranking, &p.DateAdded); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListProductsByWishlist returns the entries of one wishlist.
func (r *Repository) ListProductsByWishlist(ctx context.Context, wishlistID string) ([]domain.Product, error) {
	const query = `SELECT id, wishlist_id, title, description, url, image_url, price, amount, ranking, date_added
		FROM products WHERE wishlist_id = $1 ORDER BY date_added DESC`
	rows, err := r.pool.Query(ctx, query, wishlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.WishlistID, &p.Title, &p.Description, &p.URL, &p.ImageURL, &p.Price, &p.Amount, &p.Ranking, &p.DateAdded); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// DeleteProduct removes a single wishlist entry.
func (r *Repository) DeleteProduct(ctx context.Context, id string) error {
	const query = `DELETE FROM products WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteProductsByWishlist clears every entry of a wishlist.
func (r *Repository) DeleteProductsByWishlist(ctx context.Context, wishlistID string) error {
	const query = `DELETE FROM products WHERE wishlist_id = $1`
	_, err := r.pool.Exec(ctx, query, wishlistID)
	return err
}
