package backendapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nearbuy/nearbuy-gateway/internal/domain/entities"
	"github.com/nearbuy/nearbuy-gateway/internal/infrastructure/observability"
	"github.com/nearbuy/nearbuy-gateway/pkg/config"
	apperrors "github.com/nearbuy/nearbuy-gateway/pkg/errors"
)

// Client is the marketplace backend API surface the gateway consumes.
type Client interface {
	// Session probes. A 401-class answer means "no session for that role"
	// and surfaces as an unauthenticated error, never as a transport one.
	CurrentUser(ctx context.Context) (*entities.Principal, error)
	CurrentOwner(ctx context.Context) (*entities.Principal, error)

	Login(ctx context.Context, req LoginRequest) (*entities.Principal, error)
	OwnerLogin(ctx context.Context, req LoginRequest) (*entities.Principal, error)
	Register(ctx context.Context, req RegisterRequest) (*entities.Principal, error)
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error

	SearchProducts(ctx context.Context, term string) ([]entities.ProductResult, error)
	SearchProductsNearby(ctx context.Context, term string, loc entities.GeoPoint) ([]entities.ProductResult, error)
	SearchShops(ctx context.Context, term string) ([]entities.ShopResult, error)
	SearchCategories(ctx context.Context, term string) ([]entities.ProductResult, error)
	ProductsInCity(ctx context.Context, city, term string) ([]entities.ProductResult, error)
	ShopsByCity(ctx context.Context, city string) ([]entities.ShopResult, error)
	ShopsNearby(ctx context.Context, loc entities.GeoPoint) ([]entities.ShopResult, error)

	AddShopProduct(ctx context.Context, shopID string, req ShopProductRequest) error
	UpdateShopProduct(ctx context.Context, shopID, productID string, req ShopProductUpdate) error
	DeleteShopProduct(ctx context.Context, shopID, productID string) error
}

// LoginRequest carries credentials for either role's login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest carries a new consumer account registration.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
}

// ShopProductRequest adds a product listing to a shop.
type ShopProductRequest struct {
	ProductID string   `json:"product_id,omitempty"`
	Name      string   `json:"product_name,omitempty"`
	Brand     string   `json:"brand,omitempty"`
	Price     *float64 `json:"price,omitempty"`
	Stock     *int     `json:"stock,omitempty"`
}

// ShopProductUpdate updates price or stock on an existing listing.
type ShopProductUpdate struct {
	Price *float64 `json:"price,omitempty"`
	Stock *int     `json:"stock,omitempty"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

// principalPayload covers both /users/me and /owners/me response shapes.
type principalPayload struct {
	UserID    string    `json:"user_id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	LastLogin time.Time `json:"last_login"`
}

func (p principalPayload) toPrincipal(role entities.Role) *entities.Principal {
	id := p.UserID
	if role == entities.RoleOwner && p.OwnerID != "" {
		id = p.OwnerID
	}
	return &entities.Principal{
		Role:      role,
		ID:        id,
		Name:      p.Name,
		Email:     p.Email,
		Phone:     p.Phone,
		CreatedAt: p.CreatedAt,
		LastLogin: p.LastLogin,
	}
}

// errorPayload matches the backend's error body, {"detail": "..."}.
type errorPayload struct {
	Detail string `json:"detail"`
}

// HTTPClient talks to the marketplace backend over REST. All authenticated
// traffic flows through an authTransport that recovers from expired sessions;
// the refresh call itself uses a bare client sharing the same cookie jar.
type HTTPClient struct {
	baseURL   string
	authed    *http.Client
	bare      *http.Client
	creds     *CredentialStore
	transport *authTransport
	metrics   *observability.Metrics
}

// NewHTTPClient creates a backend API client.
func NewHTTPClient(backendCfg *config.BackendConfig, sessionCfg *config.SessionConfig, creds *CredentialStore) (*HTTPClient, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	transport := &authTransport{
		base:           http.DefaultTransport,
		creds:          creds,
		refreshTimeout: sessionCfg.RefreshTimeout,
	}

	c := &HTTPClient{
		baseURL: strings.TrimRight(backendCfg.BaseURL, "/"),
		authed: &http.Client{
			Timeout:   backendCfg.Timeout,
			Jar:       jar,
			Transport: transport,
		},
		bare: &http.Client{
			Timeout: backendCfg.Timeout,
			Jar:     jar,
		},
		creds:     creds,
		transport: transport,
	}
	transport.refresh = c.doRefresh

	return c, nil
}

// OnRefreshFailure registers the hook invoked when a session refresh fails
// terminally. Must be set before the client serves traffic.
func (c *HTTPClient) OnRefreshFailure(fn func()) {
	c.transport.onRefreshFailure = fn
}

// SetMetrics enables backend call and refresh instrumentation. Optional.
func (c *HTTPClient) SetMetrics(m *observability.Metrics) {
	c.metrics = m
	c.transport.metrics = m
}

// CurrentUser probes the consumer session.
func (c *HTTPClient) CurrentUser(ctx context.Context) (*entities.Principal, error) {
	var payload principalPayload
	if err := c.doJSON(ctx, c.authed, http.MethodGet, "/users/me", nil, &payload); err != nil {
		return nil, err
	}
	return payload.toPrincipal(entities.RoleUser), nil
}

// CurrentOwner probes the shop-owner session.
func (c *HTTPClient) CurrentOwner(ctx context.Context) (*entities.Principal, error) {
	var payload principalPayload
	if err := c.doJSON(ctx, c.authed, http.MethodGet, "/owners/me", nil, &payload); err != nil {
		return nil, err
	}
	return payload.toPrincipal(entities.RoleOwner), nil
}

// Login authenticates a consumer, stores the issued token, and returns the
// resolved principal.
func (c *HTTPClient) Login(ctx context.Context, req LoginRequest) (*entities.Principal, error) {
	return c.login(ctx, "/auth/login", entities.RoleUser, req, c.CurrentUser)
}

// OwnerLogin authenticates a shop owner.
func (c *HTTPClient) OwnerLogin(ctx context.Context, req LoginRequest) (*entities.Principal, error) {
	return c.login(ctx, "/auth/owner/login", entities.RoleOwner, req, c.CurrentOwner)
}

func (c *HTTPClient) login(ctx context.Context, endpoint string, role entities.Role, req LoginRequest, probe func(context.Context) (*entities.Principal, error)) (*entities.Principal, error) {
	var tok tokenResponse
	if err := c.doJSON(ctx, c.bare, http.MethodPost, endpoint, req, &tok); err != nil {
		return nil, err
	}
	c.creds.SetToken(role, tok.AccessToken)
	return probe(ctx)
}

// Register creates a consumer account. The backend does not log the new
// account in; callers follow up with Login.
func (c *HTTPClient) Register(ctx context.Context, req RegisterRequest) (*entities.Principal, error) {
	var payload principalPayload
	if err := c.doJSON(ctx, c.bare, http.MethodPost, "/auth/register", req, &payload); err != nil {
		return nil, err
	}
	return payload.toPrincipal(entities.RoleUser), nil
}

// Refresh explicitly refreshes the session, outside the 401-recovery path.
func (c *HTTPClient) Refresh(ctx context.Context) error {
	return c.transport.refreshSession(ctx)
}

// doRefresh is the raw refresh call used by the auth transport. It goes
// through the bare client so a 401 here is terminal, not recursive.
func (c *HTTPClient) doRefresh(ctx context.Context) error {
	var tok tokenResponse
	if err := c.doJSON(ctx, c.bare, http.MethodPost, "/auth/refresh", struct{}{}, &tok); err != nil {
		return err
	}
	if tok.AccessToken != "" {
		// The refresh endpoint reissues whichever role's token the
		// session cookie belongs to. Owner sessions take precedence in
		// the store, matching header attachment.
		c.creds.SetToken(c.creds.ActiveRole(), tok.AccessToken)
	}
	return nil
}

// Logout terminates the backend session. Best effort: transport failures are
// logged, credentials are cleared regardless by the caller.
func (c *HTTPClient) Logout(ctx context.Context) error {
	err := c.doJSON(ctx, c.bare, http.MethodPost, "/auth/logout", struct{}{}, nil)
	if err != nil && !apperrors.IsUnauthenticated(err) {
		log.Warn().Err(err).Msg("backend logout failed")
		return err
	}
	return nil
}

// SearchProducts runs a global product search.
func (c *HTTPClient) SearchProducts(ctx context.Context, term string) ([]entities.ProductResult, error) {
	q := url.Values{"q": {term}}
	var products []entities.ProductResult
	if err := c.doJSON(ctx, c.authed, http.MethodGet, "/search/products?"+q.Encode(), nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// SearchProductsNearby runs a product search scoped to the user's location.
func (c *HTTPClient) SearchProductsNearby(ctx context.Context, term string, loc entities.GeoPoint) ([]entities.ProductResult, error) {
	q := url.Values{"q": {term}}
	addGeo(q, loc)
	var products []entities.ProductResult
	if err := c.doJSON(ctx, c.authed, http.MethodGet, "/search/products_nearby?"+q.Encode(), nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// SearchShops runs a shop-name search.
func (c *HTTPClient) SearchShops(ctx context.Context, term string) ([]entities.ShopResult, error) {
	q := url.Values{"q": {term}}
	var shops []entities.ShopResult
	if err := c.doJSON(ctx, c.authed, http.MethodGet, "/search/shops?"+q.Encode(), nil, &shops); err != nil {
		return nil, err
	}
	return shops, nil
}

// SearchCategories searches products by category label.
func (c *HTTPClient) SearchCategories(ctx context.Context, term string) ([]entities.ProductResult, error) {
	q := url.Values{"q": {term}}
	var products []entities.ProductResult
	if err := c.doJSON(ctx, c.authed, http.MethodGet, "/search/categories?"+q.Encode(), nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// ProductsInCity lists products available in a city, optionally narrowed by a
// search term.
func (c *HTTPClient) ProductsInCity(ctx context.Context, city, term string) ([]entities.ProductResult, error) {
	q := url.Values{"city": {city}}
	if term != "" {
		q.Set("q", term)
	}
	var products []entities.ProductResult
	if err := c.doJSON(ctx, c.authed, http.MethodGet, "/products/in_city?"+q.Encode(), nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// ShopsByCity lists shops registered in a city.
func (c *HTTPClient) ShopsByCity(ctx context.Context, city string) ([]entities.ShopResult, error) {
	q := url.Values{"city": {city}}
	var shops []entities.ShopResult
	if err := c.doJSON(ctx, c.authed, http.MethodGet, "/shops/by_city?"+q.Encode(), nil, &shops); err != nil {
		return nil, err
	}
	return shops, nil
}

// ShopsNearby lists shops within the given radius of a location.
func (c *HTTPClient) ShopsNearby(ctx context.Context, loc entities.GeoPoint) ([]entities.ShopResult, error) {
	q := url.Values{}
	addGeo(q, loc)
	var shops []entities.ShopResult
	if err := c.doJSON(ctx, c.authed, http.MethodGet, "/shops/nearby?"+q.Encode(), nil, &shops); err != nil {
		return nil, err
	}
	return shops, nil
}

// AddShopProduct adds a product listing to the owner's shop.
func (c *HTTPClient) AddShopProduct(ctx context.Context, shopID string, req ShopProductRequest) error {
	endpoint := fmt.Sprintf("/shops/%s/products", url.PathEscape(shopID))
	return c.doJSON(ctx, c.authed, http.MethodPost, endpoint, req, nil)
}

// UpdateShopProduct updates price or stock on an existing listing.
func (c *HTTPClient) UpdateShopProduct(ctx context.Context, shopID, productID string, req ShopProductUpdate) error {
	endpoint := fmt.Sprintf("/shops/%s/products/%s", url.PathEscape(shopID), url.PathEscape(productID))
	return c.doJSON(ctx, c.authed, http.MethodPatch, endpoint, req, nil)
}

// DeleteShopProduct removes a listing from the owner's shop.
func (c *HTTPClient) DeleteShopProduct(ctx context.Context, shopID, productID string) error {
	endpoint := fmt.Sprintf("/shops/%s/products/%s", url.PathEscape(shopID), url.PathEscape(productID))
	return c.doJSON(ctx, c.authed, http.MethodDelete, endpoint, nil, nil)
}

// doJSON issues a request against the backend and decodes the JSON response
// into out when non-nil. HTTP statuses map onto the error taxonomy; refresh
// failures raised by the transport pass through unchanged.
func (c *HTTPClient) doJSON(ctx context.Context, client *http.Client, method, endpoint string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return apperrors.NewInternalError("failed to encode request body", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return apperrors.NewInternalError("failed to build backend request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.metrics != nil {
		start := time.Now()
		defer func() {
			operation := method + " " + strings.SplitN(endpoint, "?", 2)[0]
			observability.RecordBackendMetric(ctx, c.metrics, operation, time.Since(start))
		}()
	}

	resp, err := client.Do(req)
	if err != nil {
		// The auth transport surfaces refresh failures as AppErrors;
		// http.Client wraps them in *url.Error.
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperrors.NewTransientError("backend request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.statusError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewTransientError("failed to decode backend response", err)
	}
	return nil
}

func (c *HTTPClient) statusError(resp *http.Response) error {
	detail := readDetail(resp.Body)
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		if detail == "" {
			detail = "not authenticated"
		}
		return apperrors.NewUnauthenticatedError(detail)
	case resp.StatusCode == http.StatusNotFound:
		if detail == "" {
			detail = "resource not found"
		}
		return apperrors.NewNotFoundError(detail)
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		if detail == "" {
			detail = "invalid request"
		}
		return apperrors.NewValidationError(detail)
	default:
		return apperrors.NewTransientError(
			"backend returned "+strconv.Itoa(resp.StatusCode),
			fmt.Errorf("status %d: %s", resp.StatusCode, detail),
		)
	}
}

func readDetail(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return ""
	}
	var payload errorPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	return payload.Detail
}

func addGeo(q url.Values, loc entities.GeoPoint) {
	q.Set("lat", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	if loc.RadiusKm > 0 {
		q.Set("radius_km", strconv.FormatFloat(loc.RadiusKm, 'f', -1, 64))
	}
}
