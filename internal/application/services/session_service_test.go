package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearbuy/nearbuy-gateway/internal/domain/entities"
	"github.com/nearbuy/nearbuy-gateway/internal/infrastructure/clients/backendapi"
	apperrors "github.com/nearbuy/nearbuy-gateway/pkg/errors"
	"github.com/nearbuy/nearbuy-gateway/pkg/retry"
)

// stubBackendClient implements backendapi.Client for service tests. Only the
// hooks a test sets are meaningful; the rest return empty results.
type stubBackendClient struct {
	currentUser  func(ctx context.Context) (*entities.Principal, error)
	currentOwner func(ctx context.Context) (*entities.Principal, error)
	refreshErr   error
	logoutErr    error
	logoutCalls  atomic.Int32

	products     []entities.ProductResult
	productsErr  error
	nearby       []entities.ProductResult
	nearbyErr    error
	shops        []entities.ShopResult
	shopsErr     error
	categories      []entities.ProductResult
	cityProducts    []entities.ProductResult
	cityProductsErr error
	cityShops       []entities.ShopResult
	nearbyShops     []entities.ShopResult
}

func (c *stubBackendClient) CurrentUser(ctx context.Context) (*entities.Principal, error) {
	if c.currentUser != nil {
		return c.currentUser(ctx)
	}
	return nil, apperrors.NewUnauthenticatedError("no session")
}

func (c *stubBackendClient) CurrentOwner(ctx context.Context) (*entities.Principal, error) {
	if c.currentOwner != nil {
		return c.currentOwner(ctx)
	}
	return nil, apperrors.NewUnauthenticatedError("no session")
}

func (c *stubBackendClient) Login(ctx context.Context, req backendapi.LoginRequest) (*entities.Principal, error) {
	return &entities.Principal{Role: entities.RoleUser, ID: "u1", Email: req.Email}, nil
}

func (c *stubBackendClient) OwnerLogin(ctx context.Context, req backendapi.LoginRequest) (*entities.Principal, error) {
	return &entities.Principal{Role: entities.RoleOwner, ID: "o1", Email: req.Email}, nil
}

func (c *stubBackendClient) Register(ctx context.Context, req backendapi.RegisterRequest) (*entities.Principal, error) {
	return &entities.Principal{Role: entities.RoleUser, ID: "u-new", Name: req.Name}, nil
}

func (c *stubBackendClient) Refresh(ctx context.Context) error {
	return c.refreshErr
}

func (c *stubBackendClient) Logout(ctx context.Context) error {
	c.logoutCalls.Add(1)
	return c.logoutErr
}

func (c *stubBackendClient) SearchProducts(ctx context.Context, term string) ([]entities.ProductResult, error) {
	return c.products, c.productsErr
}

func (c *stubBackendClient) SearchProductsNearby(ctx context.Context, term string, loc entities.GeoPoint) ([]entities.ProductResult, error) {
	return c.nearby, c.nearbyErr
}

func (c *stubBackendClient) SearchShops(ctx context.Context, term string) ([]entities.ShopResult, error) {
	return c.shops, c.shopsErr
}

func (c *stubBackendClient) SearchCategories(ctx context.Context, term string) ([]entities.ProductResult, error) {
	return c.categories, nil
}

func (c *stubBackendClient) ProductsInCity(ctx context.Context, city, term string) ([]entities.ProductResult, error) {
	return c.cityProducts, c.cityProductsErr
}

func (c *stubBackendClient) ShopsByCity(ctx context.Context, city string) ([]entities.ShopResult, error) {
	return c.cityShops, nil
}

func (c *stubBackendClient) ShopsNearby(ctx context.Context, loc entities.GeoPoint) ([]entities.ShopResult, error) {
	return c.nearbyShops, nil
}

func (c *stubBackendClient) AddShopProduct(ctx context.Context, shopID string, req backendapi.ShopProductRequest) error {
	return nil
}

func (c *stubBackendClient) UpdateShopProduct(ctx context.Context, shopID, productID string, req backendapi.ShopProductUpdate) error {
	return nil
}

func (c *stubBackendClient) DeleteShopProduct(ctx context.Context, shopID, productID string) error {
	return nil
}

func fastRetry() retry.Config {
	return retry.Config{
		MaxAttempts:     3,
		BaseDelay:       time.Millisecond,
		MaxDelay:        10 * time.Millisecond,
		MaxTotalTimeout: time.Second,
	}
}

func newSessionService(client backendapi.Client) *SessionService {
	return NewSessionService(client, backendapi.NewCredentialStore(), fastRetry())
}

func TestBootstrapProbesAreIndependent(t *testing.T) {
	owner := &entities.Principal{Role: entities.RoleOwner, ID: "o1", Name: "DB Mall Electronics"}
	client := &stubBackendClient{
		currentUser: func(ctx context.Context) (*entities.Principal, error) {
			return nil, apperrors.NewUnauthenticatedError("no user session")
		},
		currentOwner: func(ctx context.Context) (*entities.Principal, error) {
			return owner, nil
		},
	}
	svc := newSessionService(client)

	state := svc.Bootstrap(context.Background())

	assert.Nil(t, state.User)
	require.NotNil(t, state.Owner)
	assert.Equal(t, "o1", state.Owner.ID)
	assert.NoError(t, state.Err)
	assert.False(t, state.Loading)
	assert.True(t, state.CanManageShop())
}

func TestBootstrapRetriesTransientProbeFailures(t *testing.T) {
	var calls atomic.Int32
	user := &entities.Principal{Role: entities.RoleUser, ID: "u1"}
	client := &stubBackendClient{
		currentUser: func(ctx context.Context) (*entities.Principal, error) {
			if calls.Add(1) < 3 {
				return nil, apperrors.NewTransientError("backend hiccup", nil)
			}
			return user, nil
		},
	}
	svc := newSessionService(client)

	state := svc.Bootstrap(context.Background())

	require.NotNil(t, state.User)
	assert.Equal(t, "u1", state.User.ID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestBootstrapTransportFailureKeepsPriorPrincipal(t *testing.T) {
	user := &entities.Principal{Role: entities.RoleUser, ID: "u1"}
	client := &stubBackendClient{
		currentUser: func(ctx context.Context) (*entities.Principal, error) {
			return user, nil
		},
	}
	svc := newSessionService(client)
	svc.Bootstrap(context.Background())
	require.NotNil(t, svc.Snapshot().User)

	client.currentUser = func(ctx context.Context) (*entities.Principal, error) {
		return nil, apperrors.NewTransientError("backend down", nil)
	}
	state := svc.Bootstrap(context.Background())

	require.NotNil(t, state.User, "transport failure must not log the user out")
	assert.Equal(t, "u1", state.User.ID)
	assert.Error(t, state.Err)
}

func TestBootstrapUnauthenticatedClearsPriorPrincipal(t *testing.T) {
	user := &entities.Principal{Role: entities.RoleUser, ID: "u1"}
	client := &stubBackendClient{
		currentUser: func(ctx context.Context) (*entities.Principal, error) {
			return user, nil
		},
	}
	svc := newSessionService(client)
	svc.Bootstrap(context.Background())

	client.currentUser = nil // default: 401
	state := svc.Bootstrap(context.Background())

	assert.Nil(t, state.User)
	assert.NoError(t, state.Err)
}

func TestLogoutIsIdempotent(t *testing.T) {
	client := &stubBackendClient{}
	svc := newSessionService(client)

	_, err := svc.Login(context.Background(), "asha@example.com", "secret")
	require.NoError(t, err)
	require.True(t, svc.Snapshot().IsAuthenticated())

	svc.Logout(context.Background())
	first := svc.Snapshot()
	svc.Logout(context.Background())
	second := svc.Snapshot()

	assert.Nil(t, first.User)
	assert.Nil(t, first.Owner)
	assert.Nil(t, second.User)
	assert.Nil(t, second.Owner)
	assert.Equal(t, int32(2), client.logoutCalls.Load())
}

func TestLogoutBroadcastsOncePerTransition(t *testing.T) {
	client := &stubBackendClient{}
	svc := newSessionService(client)

	var notifications atomic.Int32
	unsubscribe := svc.Subscribe(func() {
		notifications.Add(1)
	})
	defer unsubscribe()

	_, err := svc.Login(context.Background(), "asha@example.com", "secret")
	require.NoError(t, err)

	svc.Logout(context.Background())
	svc.Logout(context.Background())

	assert.Equal(t, int32(1), notifications.Load())
}

func TestRefreshFailureForcesLogout(t *testing.T) {
	client := &stubBackendClient{
		refreshErr: apperrors.NewRefreshFailedError("refresh token expired", nil),
	}
	svc := newSessionService(client)

	_, err := svc.OwnerLogin(context.Background(), "shop@example.com", "secret")
	require.NoError(t, err)
	require.True(t, svc.Snapshot().CanManageShop())

	var notifications atomic.Int32
	defer svc.Subscribe(func() { notifications.Add(1) })()

	err = svc.Refresh(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.IsRefreshFailed(err))
	assert.False(t, svc.Snapshot().IsAuthenticated())
	assert.Equal(t, int32(1), notifications.Load())
}

func TestDualRoleSessionsCoexist(t *testing.T) {
	client := &stubBackendClient{}
	svc := newSessionService(client)
	ctx := context.Background()

	_, err := svc.Login(ctx, "asha@example.com", "secret")
	require.NoError(t, err)
	_, err = svc.OwnerLogin(ctx, "shop@example.com", "secret")
	require.NoError(t, err)

	state := svc.Snapshot()
	require.NotNil(t, state.User)
	require.NotNil(t, state.Owner)
	assert.Equal(t, "u1", state.User.ID)
	assert.Equal(t, "o1", state.Owner.ID)
}

func TestLogoutDuringBootstrapDiscardsProbeResults(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	user := &entities.Principal{Role: entities.RoleUser, ID: "u1"}
	client := &stubBackendClient{
		currentUser: func(ctx context.Context) (*entities.Principal, error) {
			close(started)
			<-release
			return user, nil
		},
	}
	svc := newSessionService(client)

	_, err := svc.Login(context.Background(), "asha@example.com", "secret")
	require.NoError(t, err)

	done := make(chan entities.SessionState, 1)
	go func() {
		done <- svc.Bootstrap(context.Background())
	}()

	// logout lands while the user probe is still in flight
	<-started
	svc.Logout(context.Background())
	close(release)
	<-done

	assert.Nil(t, svc.Snapshot().User, "stale probe result must not resurrect the session")
}
