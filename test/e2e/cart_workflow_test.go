//go:build e2e
// +build e2e

package e2e_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/ammerola/cartsync/internal/adapters/db"
	"github.com/ammerola/cartsync/internal/adapters/httpgateway"
	"github.com/ammerola/cartsync/internal/adapters/localstore"
	"github.com/ammerola/cartsync/internal/adapters/notify"
	redis_a "github.com/ammerola/cartsync/internal/adapters/redis_adapter"
	"github.com/ammerola/cartsync/internal/core/domain"
	"github.com/ammerola/cartsync/internal/core/ports"
	"github.com/ammerola/cartsync/internal/core/services"
	"github.com/ammerola/cartsync/internal/handlers"
	"github.com/ammerola/cartsync/internal/handlers/middleware"
	"github.com/ammerola/cartsync/test/helpers"
)

const e2eToken = "e2e-token"

type CartE2ESuite struct {
	suite.Suite
	server    *httptest.Server
	testDB    *helpers.TestDB
	testRedis *helpers.TestRedis
	api       *services.CartAPIService
	catalog   *db.Catalog
	userID    int64
	products  []domain.Product
}

func (s *CartE2ESuite) SetupSuite() {
	s.testDB = helpers.SetupTestDB(s.T())
	s.testRedis = helpers.SetupTestRedis(s.T())
	s.server = s.startTestServer()
}

func (s *CartE2ESuite) TearDownSuite() {
	s.server.Close()
}

func (s *CartE2ESuite) SetupTest() {
	ctx := context.Background()
	s.testRedis.Server.FlushAll()
	s.Require().NoError(s.catalog.Truncate(ctx))

	s.products = []domain.Product{
		{Name: "Jasmine Rice 5kg", Price: decimal.NewFromInt(95000), Unit: "bag", Active: true},
		{Name: "Green Tea 100 bags", Price: decimal.NewFromInt(48000), Unit: "box", Active: true},
		{Name: "Arabica Coffee 1kg", Price: decimal.NewFromInt(210000), Unit: "bag", Active: true},
	}
	s.Require().NoError(s.catalog.SaveProducts(ctx, s.products))

	user, err := s.catalog.EnsureUser(ctx, "e2e@example.com")
	s.Require().NoError(err)
	s.userID = user.ID
	s.Require().NoError(s.catalog.IssueToken(ctx, user.ID, e2eToken, time.Hour))
}

func (s *CartE2ESuite) TestLoginMergeSyncsGuestCart() {
	ctx := context.Background()
	cart, observer, _ := s.newClient(services.LoginPolicyMerge)

	// guest edits stay local
	_, err := cart.AddItem(ctx, s.products[0].Snapshot(), 2, "")
	s.Require().NoError(err)
	_, err = cart.AddItem(ctx, s.products[1].Snapshot(), 1, "no sugar")
	s.Require().NoError(err)
	s.Empty(s.serverLines())

	s.Require().NoError(observer.Login(ctx, s.userID))
	s.Require().NoError(cart.SyncNow(ctx))

	lines := s.serverLines()
	s.Len(lines, 2)
	snapshot := cart.Snapshot()
	for _, item := range snapshot.Items {
		s.True(item.IsLinked(), item.Name)
		s.Equal(domain.ItemLinked, cart.ItemState(item.ProductID))
	}
	s.False(cart.SyncState().HasPending())
	s.Equal("238000", snapshot.TotalAmount.String())
}

func (s *CartE2ESuite) TestQuantityUpdateAndRemove() {
	ctx := context.Background()
	cart, observer, _ := s.newClient(services.LoginPolicyReplace)
	s.Require().NoError(observer.Login(ctx, s.userID))

	_, err := cart.AddItem(ctx, s.products[2].Snapshot(), 1, "")
	s.Require().NoError(err)
	s.Require().NoError(cart.SyncNow(ctx))

	s.Require().NoError(cart.UpdateQuantity(ctx, s.products[2].ID, 4))
	lines := s.serverLines()
	s.Require().Len(lines, 1)
	s.Equal(4, lines[0].Quantity)

	s.Require().NoError(cart.RemoveItem(ctx, s.products[2].ID))
	s.Empty(s.serverLines())
	s.True(cart.Snapshot().IsEmpty())
}

func (s *CartE2ESuite) TestUpdateRecreatesLineDeletedElsewhere() {
	ctx := context.Background()
	cart, observer, _ := s.newClient(services.LoginPolicyReplace)
	s.Require().NoError(observer.Login(ctx, s.userID))

	_, err := cart.AddItem(ctx, s.products[0].Snapshot(), 1, "")
	s.Require().NoError(err)
	s.Require().NoError(cart.SyncNow(ctx))
	oldID := *cart.Snapshot().Items[0].ServerItemID

	// another device removes the line
	s.Require().NoError(s.api.Remove(ctx, s.userID, oldID))

	s.Require().NoError(cart.UpdateQuantity(ctx, s.products[0].ID, 3))

	lines := s.serverLines()
	s.Require().Len(lines, 1)
	s.Equal(3, lines[0].Quantity)
	s.NotEqual(oldID, lines[0].ID)
	s.Equal(lines[0].ID, *cart.Snapshot().Items[0].ServerItemID)
}

func (s *CartE2ESuite) TestReplaceLoginLoadsServerCart() {
	ctx := context.Background()
	_, err := s.api.Add(ctx, s.userID, portsAdd(s.products[1].ID, 2))
	s.Require().NoError(err)

	cart, observer, _ := s.newClient(services.LoginPolicyReplace)
	_, err = cart.AddItem(ctx, s.products[0].Snapshot(), 1, "")
	s.Require().NoError(err)

	s.Require().NoError(observer.Login(ctx, s.userID))

	snapshot := cart.Snapshot()
	s.Require().Len(snapshot.Items, 1)
	s.Equal(s.products[1].ID, snapshot.Items[0].ProductID)
	s.Equal(2, snapshot.Items[0].Quantity)
	s.Len(s.serverLines(), 1)
}

func (s *CartE2ESuite) TestInactiveProductIsRejected() {
	ctx := context.Background()
	inactive := []domain.Product{{Name: "Discontinued Soap", Price: decimal.NewFromInt(12000), Unit: "pcs"}}
	s.Require().NoError(s.catalog.SaveProducts(ctx, inactive))

	cart, observer, recorder := s.newClient(services.LoginPolicyReplace)
	s.Require().NoError(observer.Login(ctx, s.userID))

	_, err := cart.AddItem(ctx, inactive[0].Snapshot(), 1, "")
	s.Require().NoError(err)
	_ = cart.SyncNow(ctx)

	s.True(cart.Snapshot().IsEmpty())
	s.Empty(s.serverLines())
	s.Positive(recorder.Count(domain.LevelError))
}

func (s *CartE2ESuite) TestExpiredTokenLogsOut() {
	ctx := context.Background()
	cart, observer, _ := s.newClientWithToken(services.LoginPolicyReplace, "unknown-token")

	err := observer.Login(ctx, s.userID)
	s.Error(err)

	state, _ := observer.State()
	s.Equal(services.SessionAnonymous, state)
	s.False(cart.IsAuthenticated())
}

func (s *CartE2ESuite) TestConcurrentClients() {
	ctx := context.Background()
	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cart, observer, _ := s.newClient(services.LoginPolicyMerge)
			if err := observer.Login(ctx, s.userID); err != nil {
				s.T().Errorf("login: %v", err)
				return
			}
			if _, err := cart.AddItem(ctx, s.products[0].Snapshot(), 1, ""); err != nil {
				s.T().Errorf("add: %v", err)
				return
			}
			if err := cart.SyncNow(ctx); err != nil {
				s.T().Errorf("sync: %v", err)
			}
		}()
	}
	wg.Wait()

	// every client targets the same product, so the server keeps one line
	lines := s.serverLines()
	s.Require().Len(lines, 1)
	s.GreaterOrEqual(lines[0].Quantity, 1)
}

func (s *CartE2ESuite) TestHealthCheck() {
	resp, err := http.Get(s.server.URL + "/health")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	var health map[string]interface{}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&health))
	s.Equal("healthy", health["status"])

	svc := health["services"].(map[string]interface{})
	s.Contains(svc, "database")
	s.Contains(svc, "redis")
}

// Helper methods

func (s *CartE2ESuite) startTestServer() *httptest.Server {
	log := helpers.TestLogger()
	cfg := helpers.LoadTestConfig()

	repo := db.NewCartRepository(s.testDB.Database, log)
	cache := redis_a.NewCache(s.testRedis.Client, time.Minute, log)
	s.api = services.NewCartAPIService(repo, cache, notify.NewLogNotifier(log), time.Minute, log)
	s.catalog = db.NewCatalog(s.testDB.Database, log)

	mux := http.NewServeMux()
	handlers.NewCartHandler(s.api, log).Register(mux, middleware.Authenticate(s.api, log))
	health := handlers.NewHealthHandler(s.testDB.Database, s.testRedis.Client, nil, cfg, log)
	mux.HandleFunc("GET /health", health.Health)

	return httptest.NewServer(middleware.Chain(mux, middleware.RequestID, middleware.Recovery(log)))
}

func (s *CartE2ESuite) newClient(policy services.LoginPolicy) (*services.CartService, *services.SessionObserver, *notify.Recorder) {
	return s.newClientWithToken(policy, e2eToken)
}

func (s *CartE2ESuite) newClientWithToken(policy services.LoginPolicy, token string) (*services.CartService, *services.SessionObserver, *notify.Recorder) {
	log := helpers.TestLogger()

	gateway, err := httpgateway.New(httpgateway.Config{
		BaseURL: s.server.URL,
		Timeout: 5 * time.Second,
	}, httpgateway.StaticToken(token), log)
	s.Require().NoError(err)

	recorder := notify.NewRecorder()
	cart := services.NewCartService(localstore.NewMemory(log), gateway, recorder, services.CartServiceConfig{
		DebounceWindow: time.Hour,
		BaseRetryDelay: 10 * time.Millisecond,
		MaxRetryCount:  domain.MaxRetryCount,
		Shipping:       domain.DefaultShippingPolicy(),
	}, log)
	s.Require().NoError(cart.Init(context.Background()))
	s.T().Cleanup(cart.Teardown)

	return cart, services.NewSessionObserver(cart, policy, log), recorder
}

func (s *CartE2ESuite) serverLines() []domain.CartLine {
	lines, err := s.api.List(context.Background(), s.userID)
	s.Require().NoError(err)
	return lines
}

func portsAdd(productID int64, quantity int) ports.AddCartItemRequest {
	return ports.AddCartItemRequest{ProductID: productID, Quantity: quantity}
}

func TestCartE2ESuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E tests in short mode")
	}
	suite.Run(t, new(CartE2ESuite))
}
