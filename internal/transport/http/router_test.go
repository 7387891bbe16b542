package httptransport

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	auditService "aurum/internal/audit/service"
	"aurum/internal/auth/device"
	authModels "aurum/internal/auth/models"
	authService "aurum/internal/auth/service"
	"aurum/internal/auth/token"
	billingModels "aurum/internal/billing/models"
	billingService "aurum/internal/billing/service"
	"aurum/internal/catalog"
	customerModels "aurum/internal/customer/models"
	customerService "aurum/internal/customer/service"
	inventoryModels "aurum/internal/inventory/models"
	inventoryService "aurum/internal/inventory/service"
	logisticsModels "aurum/internal/logistics/models"
	logisticsService "aurum/internal/logistics/service"
	settingsService "aurum/internal/settings/service"
	taggingService "aurum/internal/tagging/service"
	"aurum/pkg/platform/audit"
	"aurum/pkg/testutil"
)

const ownerPassword = "owner-pass-1"

type testServer struct {
	fx     *testutil.Fixture
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	fx := testutil.NewFixture()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	tokens, err := token.New("router-test-key")
	require.NoError(t, err)
	auth, err := authService.New(fx.Runner, tokens, authService.WithTokenTTL(time.Hour))
	require.NoError(t, err)
	created, err := auth.Bootstrap(context.Background(), "olga", ownerPassword)
	require.NoError(t, err)
	require.True(t, created)

	router := NewRouter(Services{
		Auth:      NewAuthHandler(auth, logger),
		Customers: NewCustomerHandler(customerService.New(fx.Runner), logger),
		Inventory: NewInventoryHandler(inventoryService.New(fx.Runner), logger),
		Billing:   NewBillingHandler(billingService.New(fx.Runner), logger),
		Logistics: NewLogisticsHandler(logisticsService.New(fx.Runner), logger),
		Tagging:   NewTaggingHandler(taggingService.New(fx.Runner), logger),
		Settings:  NewSettingsHandler(settingsService.New(fx.Runner), logger),
		Audit:     NewAuditHandler(auditService.New(fx.Runner), logger),
	}, auth, logger, WithDeviceParser(device.NewService(true)))
	return &testServer{fx: fx, router: router}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	return testutil.DoRequest(ts.router, testutil.NewJSONRequest(t, method, path, body, token))
}

func (ts *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	rr := ts.do(t, http.MethodPost, "/auth/login", map[string]string{"username": username, "password": password}, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	res := testutil.UnmarshalResponse[authService.LoginResult](t, rr)
	require.NotEmpty(t, res.Token)
	return res.Token
}

type RouterSuite struct {
	suite.Suite
	srv   *testServer
	owner string
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.srv = newTestServer(s.T())
	s.owner = s.srv.login(s.T(), "olga", ownerPassword)
}

func (s *RouterSuite) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	return s.srv.do(s.T(), method, path, body, token)
}

func (s *RouterSuite) login(username, password string) string {
	return s.srv.login(s.T(), username, password)
}

func (s *RouterSuite) TestHealthAndRequestID() {
	rr := s.do(http.MethodGet, "/healthz", nil, "")
	s.Equal(http.StatusOK, rr.Code)
	s.NotEmpty(rr.Header().Get("X-Request-ID"))
}

func (s *RouterSuite) TestProtectedRoutesNeedToken() {
	rr := s.do(http.MethodGet, "/products", nil, "")
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")

	rr = s.do(http.MethodGet, "/products", nil, "not-a-token")
	s.Equal(http.StatusUnauthorized, rr.Code)
}

func (s *RouterSuite) TestLoginRejectsBadCredentials() {
	rr := s.do(http.MethodPost, "/auth/login", map[string]string{"username": "olga", "password": "wrong-pass"}, "")
	s.Equal(http.StatusUnauthorized, rr.Code)

	rr = testutil.DoRequest(s.srv.router, testutil.NewRequestWithBody(s.T(), http.MethodPost, "/auth/login", "{", ""))
	s.Equal(http.StatusBadRequest, rr.Code)
}

func (s *RouterSuite) TestLogoutEndsSession() {
	rr := s.do(http.MethodPost, "/auth/logout", nil, s.owner)
	s.Equal(http.StatusNoContent, rr.Code)

	rr = s.do(http.MethodGet, "/settings", nil, s.owner)
	s.Equal(http.StatusUnauthorized, rr.Code)
}

func (s *RouterSuite) TestRoleIsEnforced() {
	rr := s.do(http.MethodPost, "/users", map[string]string{
		"username": "bina", "password": "billing-pass", "role": "billing",
	}, s.owner)
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	user := testutil.UnmarshalResponse[authModels.User](s.T(), rr)
	s.Equal("bina", user.Username)

	biller := s.login("bina", "billing-pass")
	rr = s.do(http.MethodPost, "/products", map[string]any{
		"barcode": "R1", "type": "ring", "purity": "22K",
		"total_weight": "10", "stone_weight": "0", "gold_weight": "10",
	}, biller)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
}

func (s *RouterSuite) TestValidationErrors() {
	rr := s.do(http.MethodPost, "/products/allot", map[string]any{"customer_id": "nope", "product_ids": []string{}}, s.owner)
	s.Equal(http.StatusBadRequest, rr.Code, rr.Body.String())

	rr = s.do(http.MethodGet, "/products/not-a-uuid", nil, s.owner)
	s.Equal(http.StatusBadRequest, rr.Code)

	rr = s.do(http.MethodPut, "/settings/gold-rate", map[string]string{"rate": "-1"}, s.owner)
	s.Equal(http.StatusBadRequest, rr.Code)
}

func TestCustodyChainOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	owner := srv.login(t, "olga", ownerPassword)

	testutil.Given(t, "an active customer and an intaken product", func(t *testing.T) {
		rr := srv.do(t, http.MethodPost, "/customers", map[string]string{"name": "Meera", "phone": "9000000001"}, owner)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		customer := testutil.UnmarshalResponse[customerModels.Customer](t, rr)
		assert.Equal(t, customerModels.StatusActive, customer.Status)

		rr = srv.do(t, http.MethodPost, "/products", map[string]any{
			"barcode": "r-100", "type": "ring", "purity": "22K",
			"total_weight": "12.5", "stone_weight": "2.5", "gold_weight": "10",
		}, owner)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		product := testutil.UnmarshalResponse[inventoryModels.Product](t, rr)
		assert.Equal(t, inventoryModels.StatusInStock, product.Status)
		pid := product.ID.String()

		testutil.When(t, "the product is allotted and billed", func(t *testing.T) {
			rr := srv.do(t, http.MethodPost, "/products/"+pid+"/allot", map[string]string{"customer_id": customer.ID.String()}, owner)
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

			rr = srv.do(t, http.MethodGet, "/bills/queue/"+customer.ID.String(), nil, owner)
			require.Equal(t, http.StatusOK, rr.Code)
			queue := testutil.UnmarshalResponse[struct {
				Products []inventoryModels.Product `json:"products"`
			}](t, rr)
			assert.Len(t, queue.Products, 1)

			rr = srv.do(t, http.MethodPost, "/bills", map[string]any{
				"customer_id": customer.ID.String(),
				"mode":        "sale",
				"items":       []map[string]any{{"product_id": pid, "making_percent": "10"}},
			}, owner)
			require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
			bill := testutil.UnmarshalResponse[billingModels.Bill](t, rr)
			assert.Equal(t, billingModels.StatusPending, bill.Status)
			bid := bill.ID.String()

			testutil.Then(t, "settling both flags completes the bill", func(t *testing.T) {
				rr := srv.do(t, http.MethodPost, "/bills/"+bid+"/payment", map[string]string{"mode": "upi"}, owner)
				require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
				rr = srv.do(t, http.MethodPost, "/bills/"+bid+"/gold-received", nil, owner)
				require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
				settled := testutil.UnmarshalResponse[billingModels.Bill](t, rr)
				assert.Equal(t, billingModels.StatusCompleted, settled.Status)
			})

			testutil.Then(t, "the package can be dispatched and delivered", func(t *testing.T) {
				rr := srv.do(t, http.MethodPost, "/packages", map[string]any{"bill_id": bid}, owner)
				require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
				pkg := testutil.UnmarshalResponse[logisticsModels.Package](t, rr)

				rr = srv.do(t, http.MethodPost, "/packages/"+pkg.TrackingID+"/deliver",
					map[string]any{"verified_product_ids": []string{pid}}, owner)
				require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

				rr = srv.do(t, http.MethodGet, "/products/"+pid, nil, owner)
				delivered := testutil.UnmarshalResponse[inventoryModels.Product](t, rr)
				assert.Equal(t, inventoryModels.StatusDelivered, delivered.Status)
			})
		})
	})
}

func (s *RouterSuite) TestIncidentResolution() {
	for range 2 {
		rr := s.do(http.MethodPost, "/auth/login", map[string]string{"username": "ghost", "password": "guess-pass"}, "")
		s.Equal(http.StatusUnauthorized, rr.Code)
	}

	rr := s.do(http.MethodGet, "/audit/incidents?status=open", nil, s.owner)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	open := testutil.UnmarshalResponse[struct {
		Incidents []audit.Entry `json:"incidents"`
	}](s.T(), rr)
	s.Require().Len(open.Incidents, 1)
	s.Equal(audit.ActionSecurityAlert, open.Incidents[0].Action)

	path := "/audit/incidents/" + open.Incidents[0].ID.String() + "/resolve"
	rr = s.do(http.MethodPost, path, map[string]string{"note": "checked cctv"}, s.owner)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	resolved := testutil.UnmarshalResponse[audit.Entry](s.T(), rr)
	s.Equal(audit.StatusResolved, resolved.Status)

	rr = s.do(http.MethodPost, path, map[string]string{}, s.owner)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "precondition_failed")
}

func (s *RouterSuite) TestOperationsToggle() {
	rr := s.do(http.MethodPut, "/settings/operations", map[string]bool{"open": false}, s.owner)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	settings := testutil.UnmarshalResponse[catalog.Settings](s.T(), rr)
	s.False(settings.OperationsOpen)

	rr = s.do(http.MethodPut, "/settings/operations", map[string]any{}, s.owner)
	s.Equal(http.StatusBadRequest, rr.Code)
}
