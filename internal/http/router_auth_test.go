package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"log/slog"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/MrQay/Wishlist-application/internal/domain"
	"github.com/MrQay/Wishlist-application/internal/repository"
	"github.com/MrQay/Wishlist-application/internal/service/auth"
	"github.com/MrQay/Wishlist-application/internal/service/product"
	"github.com/MrQay/Wishlist-application/internal/service/wishlist"
	jwtpkg "github.com/MrQay/Wishlist-application/pkg/jwt"
)

const testSecret = "router-test-secret"

// memoryStore implements the repository interfaces for router tests. The
// mutex around CreateUser mirrors the uniqueness guarantee the real store
// gets from its unique index.
type memoryStore struct {
	mu       sync.Mutex
	users    map[string]domain.User
	lists    map[string]domain.Wishlist
	products map[string]domain.Product

	// userErr, when set, makes user lookups fail like a database outage.
	userErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:    make(map[string]domain.User),
		lists:    make(map[string]domain.Wishlist),
		products: make(map[string]domain.Product),
	}
}

func (m *memoryStore) CreateUser(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	m.users[user.ID] = *user
	return nil
}

func (m *memoryStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryStore) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.userErr != nil {
		return nil, m.userErr
	}
	if user, ok := m.users[id]; ok {
		u := user
		return &u, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memoryStore) UpdatePasswordHash(_ context.Context, id string, hash []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = hash
	m.users[id] = user
	return nil
}

func (m *memoryStore) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.LastLoginAt = &at
	m.users[id] = user
	return nil
}

func (m *memoryStore) CreateWishlist(_ context.Context, list *domain.Wishlist) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[list.ID] = *list
	return nil
}

func (m *memoryStore) GetWishlistByID(_ context.Context, id string) (*domain.Wishlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if list, ok := m.lists[id]; ok {
		l := list
		return &l, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memoryStore) ListWishlistsByUser(_ context.Context, userID string) ([]domain.Wishlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]domain.Wishlist, 0)
	for _, list := range m.lists {
		if list.UserID == userID {
			result = append(result, list)
		}
	}
	return result, nil
}

func (m *memoryStore) UpdateWishlist(_ context.Context, list *domain.Wishlist) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lists[list.ID]; !ok {
		return repository.ErrNotFound
	}
	m.lists[list.ID] = *list
	return nil
}

func (m *memoryStore) DeleteWishlist(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lists[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.lists, id)
	for pid, p := range m.products {
		if p.WishlistID == id {
			delete(m.products, pid)
		}
	}
	return nil
}

func (m *memoryStore) CreateProduct(_ context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = *p
	return nil
}

func (m *memoryStore) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.products[id]; ok {
		prod := p
		return &prod, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memoryStore) ListProductsByWishlist(_ context.Context, wishlistID string) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]domain.Product, 0)
	for _, p := range m.products {
		if p.WishlistID == wishlistID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *memoryStore) DeleteProduct(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *memoryStore) DeleteProductsByWishlist(_ context.Context, wishlistID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.products {
		if p.WishlistID == wishlistID {
			delete(m.products, id)
		}
	}
	return nil
}

func newTestRouter(t *testing.T) (*Router, *memoryStore, jwtpkg.Issuer) {
	t.Helper()
	store := newMemoryStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	issuer, err := jwtpkg.NewIssuer(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	authSvc := auth.New(store, issuer, auth.MinLengthPolicy(8), log, bcrypt.MinCost)
	listSvc := wishlist.New(store, log)
	productSvc := product.New(store, store, log)
	router := NewRouter(log, authSvc, listSvc, productSvc, NewMemoryRateLimiter(), nil)
	t.Cleanup(router.Close)
	return router, store, issuer
}

func doJSON(t *testing.T, router *Router, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return payload
}

func TestAuthEndToEnd(t *testing.T) {
	router, _, _ := newTestRouter(t)

	// Register.
	rec := doJSON(t, router, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    "alice@example.com",
		"password": "password123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status: %d body=%s", rec.Code, rec.Body.String())
	}
	payload := decodeBody(t, rec)
	user, ok := payload["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected user object, got %v", payload)
	}
	if user["email"] != "alice@example.com" {
		t.Fatalf("unexpected email: %v", user["email"])
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Fatalf("response must not carry credential material")
	}

	// Duplicate register.
	rec = doJSON(t, router, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    "Alice@example.com",
		"password": "password123",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register status: %d", rec.Code)
	}

	// Login.
	rec = doJSON(t, router, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "password123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status: %d body=%s", rec.Code, rec.Body.String())
	}
	token, _ := decodeBody(t, rec)["authToken"].(string)
	if token == "" {
		t.Fatalf("expected authToken in body")
	}
	if rec.Header().Get("Authorization") != token {
		t.Fatalf("expected token mirrored in Authorization header")
	}

	// Change password with the bearer token.
	rec = doJSON(t, router, http.MethodPost, "/auth/editPassword", token, map[string]string{
		"password": "newpassword456",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("editPassword status: %d body=%s", rec.Code, rec.Body.String())
	}

	// Old password no longer works.
	rec = doJSON(t, router, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "password123",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("old password status: %d", rec.Code)
	}

	// New password does.
	rec = doJSON(t, router, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "newpassword456",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("new password status: %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestConcurrentRegistrationsOneWinner(t *testing.T) {
	router, _, _ := newTestRouter(t)

	const attempts = 5
	codes := make(chan int, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := doJSON(t, router, http.MethodPost, "/auth/register", "", map[string]string{
				"email":    "alice@example.com",
				"password": "password123",
			})
			codes <- rec.Code
		}()
	}
	wg.Wait()
	close(codes)

	var created, rejected int
	for code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusBadRequest:
			rejected++
		default:
			t.Fatalf("unexpected status: %d", code)
		}
	}
	if created != 1 || rejected != attempts-1 {
		t.Fatalf("expected 1 created and %d rejected, got %d/%d", attempts-1, created, rejected)
	}
}

func TestLoginFailuresShareOneExternalMessage(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    "real@x.com",
		"password": "password123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status: %d", rec.Code)
	}

	missing := doJSON(t, router, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "missing@x.com",
		"password": "anything",
	})
	wrong := doJSON(t, router, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "real@x.com",
		"password": "wrongpassword",
	})
	if missing.Code != http.StatusUnauthorized || wrong.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", missing.Code, wrong.Code)
	}
	if missing.Body.String() != wrong.Body.String() {
		t.Fatalf("bodies differ: %q vs %q", missing.Body.String(), wrong.Body.String())
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	router, _, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    "alice@example.com",
		"password": "short",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("weak password status: %d", rec.Code)
	}
}

func TestRegisterRejectsOverlongPassword(t *testing.T) {
	router, _, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    "alice@example.com",
		"password": strings.Repeat("a", 100),
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("overlong password status: %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestProtectedRouteRejections(t *testing.T) {
	router, store, issuer := newTestRouter(t)

	// No token.
	rec := doJSON(t, router, http.MethodGet, "/wishlists", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token status: %d", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "authentication required" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}

	// Garbage token.
	rec = doJSON(t, router, http.MethodGet, "/wishlists", "not-a-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token status: %d", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "authentication failed" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}

	// Expired token, well formed and correctly signed.
	expired := craftToken(t, testSecret, "user-1", time.Now().Add(-time.Minute))
	rec = doJSON(t, router, http.MethodGet, "/wishlists", expired, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expired token status: %d", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "authentication failed" {
		t.Fatalf("expired token must get the generic body: %s", rec.Body.String())
	}

	// Valid token whose subject no longer exists.
	store.users["ghost"] = domain.User{ID: "ghost", Email: "ghost@x.com"}
	token, err := issuer.Issue("ghost")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	delete(store.users, "ghost")
	rec = doJSON(t, router, http.MethodGet, "/wishlists", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("deleted subject status: %d", rec.Code)
	}
}

func TestIdentityLookupOutageIsNotAuthFailure(t *testing.T) {
	router, store, _ := newTestRouter(t)
	token := registerAndLogin(t, router, "alice@example.com")

	store.userErr = errors.New("connection refused")
	rec := doJSON(t, router, http.MethodGet, "/wishlists", token, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("storage outage status: %d body=%s", rec.Code, rec.Body.String())
	}
	if decodeBody(t, rec)["error"] != "internal server error" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}

	// The same token works again once the store recovers.
	store.userErr = nil
	rec = doJSON(t, router, http.MethodGet, "/wishlists", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("post-recovery status: %d", rec.Code)
	}
}

func TestWishlistAndProductFlow(t *testing.T) {
	router, _, _ := newTestRouter(t)
	aliceToken := registerAndLogin(t, router, "alice@example.com")
	bobToken := registerAndLogin(t, router, "bob@example.com")

	// Alice creates a private wishlist.
	rec := doJSON(t, router, http.MethodPost, "/wishlists", aliceToken, map[string]any{
		"title":       "Birthday",
		"description": "gift ideas",
		"public":      false,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create wishlist status: %d body=%s", rec.Code, rec.Body.String())
	}
	listID, _ := decodeBody(t, rec)["id"].(string)
	if listID == "" {
		t.Fatalf("expected wishlist id, body=%s", rec.Body.String())
	}

	// Alice adds a product.
	rec = doJSON(t, router, http.MethodPost, "/wishlists/"+listID+"/products", aliceToken, map[string]any{
		"title": "Wool socks",
		"url":   "https://example.com/socks",
		"price": 9.99,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add product status: %d body=%s", rec.Code, rec.Body.String())
	}

	// Alice sees her list and products.
	rec = doJSON(t, router, http.MethodGet, "/wishlists/"+listID, aliceToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get wishlist status: %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodGet, "/wishlists/"+listID+"/products", aliceToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list products status: %d", rec.Code)
	}

	// Bob cannot see or modify the private list.
	rec = doJSON(t, router, http.MethodGet, "/wishlists/"+listID, bobToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("private list leak: %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodDelete, "/wishlists/"+listID, bobToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign delete status: %d", rec.Code)
	}

	// Making it public opens reads, not writes.
	rec = doJSON(t, router, http.MethodPatch, "/wishlists/"+listID, aliceToken, map[string]any{"public": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status: %d body=%s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, router, http.MethodGet, "/wishlists/"+listID, bobToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("public read status: %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodPost, "/wishlists/"+listID+"/products", bobToken, map[string]any{
		"title": "hijack",
		"url":   "https://example.com",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign product add status: %d", rec.Code)
	}

	// Alice clears and deletes.
	rec = doJSON(t, router, http.MethodDelete, "/wishlists/"+listID+"/products", aliceToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear status: %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodDelete, "/wishlists/"+listID, aliceToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status: %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodGet, "/wishlists/"+listID, aliceToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("deleted list still visible: %d", rec.Code)
	}
}

func TestLoginRateLimit(t *testing.T) {
	router, _, _ := newTestRouter(t)
	var last *httptest.ResponseRecorder
	for i := 0; i <= rateLimitLogin; i++ {
		last = doJSON(t, router, http.MethodPost, "/auth/login", "", map[string]string{
			"email":    fmt.Sprintf("user%d@example.com", i),
			"password": "password123",
		})
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after %d attempts, got %d", rateLimitLogin+1, last.Code)
	}
	if last.Header().Get("X-RateLimit-Limit") == "" {
		t.Fatalf("expected rate limit headers")
	}
}

func TestHealthz(t *testing.T) {
	store := newMemoryStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	issuer, err := jwtpkg.NewIssuer(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	authSvc := auth.New(store, issuer, auth.MinLengthPolicy(8), log, bcrypt.MinCost)
	router := NewRouter(log, authSvc, wishlist.New(store, log), product.New(store, store, log), NewMemoryRateLimiter(), func(context.Context) error { return nil })
	t.Cleanup(router.Close)

	rec := doJSON(t, router, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status: %d", rec.Code)
	}
	if decodeBody(t, rec)["status"] != "ok" {
		t.Fatalf("unexpected health payload: %s", rec.Body.String())
	}
}

func registerAndLogin(t *testing.T, router *Router, email string) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    email,
		"password": "password123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s status: %d body=%s", email, rec.Code, rec.Body.String())
	}
	rec = doJSON(t, router, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    email,
		"password": "password123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s status: %d", email, rec.Code)
	}
	token, _ := decodeBody(t, rec)["authToken"].(string)
	if token == "" {
		t.Fatalf("expected token for %s", email)
	}
	return token
}

func craftToken(t *testing.T, secret, userID string, expiresAt time.Time) string {
	t.Helper()
	claims := jwtpkg.Claims{
		UserID: userID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwtlib.NewNumericDate(expiresAt.Add(-time.Hour)),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
		},
	}
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}
